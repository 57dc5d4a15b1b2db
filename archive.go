package main

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mholt/archives"
)

const batchZipPrefix = "processed_files_"

var ErrEmptyBatch = errors.New("nothing to package")

// BatchZipName is the archive name for a batch: processed_files_<id[:8]>.zip.
func BatchZipName(id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return batchZipPrefix + short + ".zip"
}

// PackZip writes every regular file directly inside dir into a deflated zip
// at zipPath, flattened to their base names. It returns the number of files
// packed.
func PackZip(ctx context.Context, dir, zipPath string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	names := make(map[string]string)
	for _, e := range entries {
		if e.Type().IsRegular() {
			names[filepath.Join(dir, e.Name())] = e.Name()
		}
	}
	if len(names) == 0 {
		return 0, fmt.Errorf("%s: %w", dir, ErrEmptyBatch)
	}

	files, err := archives.FilesFromDisk(ctx, nil, names)
	if err != nil {
		return 0, fmt.Errorf("gather files: %w", err)
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return 0, err
	}

	format := archives.Zip{Compression: zip.Deflate}
	if err := format.Archive(ctx, out, files); err != nil {
		out.Close()
		os.Remove(zipPath)
		return 0, fmt.Errorf("write %s: %w", zipPath, err)
	}
	if err := out.Close(); err != nil {
		return 0, err
	}
	return len(files), nil
}

// Package zips the batch work directory next to it and removes the
// directory. It returns the archive path.
func (b *Batch) Package(ctx context.Context) (string, error) {
	zipPath := filepath.Join(filepath.Dir(b.WorkDir), BatchZipName(b.ID))
	n, err := PackZip(ctx, b.WorkDir, zipPath)
	if err != nil {
		return "", err
	}
	log.Info("packed %d files into %s", n, zipPath)

	if err := removeWorkDir(b.WorkDir); err != nil {
		log.Warn("cleanup %s: %v", b.WorkDir, err)
	}
	return zipPath, nil
}
