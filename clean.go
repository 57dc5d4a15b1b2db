package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StaleEntry is a leftover batch directory or archive in the output dir.
type StaleEntry struct {
	Path    string
	ModTime time.Time
	IsDir   bool
}

// findStale lists batch work directories (named by their UUID) and batch
// archives in outDir last modified before cutoff. Anything else is left
// alone.
func findStale(outDir string, cutoff time.Time) ([]StaleEntry, error) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, err
	}

	var stale []StaleEntry
	for _, e := range entries {
		name := e.Name()
		isBatchDir := e.IsDir() && uuid.Validate(name) == nil
		isBatchZip := !e.IsDir() && strings.HasPrefix(name, batchZipPrefix) && strings.HasSuffix(name, ".zip")
		if !isBatchDir && !isBatchZip {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			stale = append(stale, StaleEntry{Path: filepath.Join(outDir, name), ModTime: info.ModTime(), IsDir: e.IsDir()})
		}
	}
	return stale, nil
}

// runClean removes (or with dryRun, reports) batch leftovers older than
// maxAge. It returns how many entries were found.
func runClean(outDir string, maxAge time.Duration, dryRun bool) (int, error) {
	stale, err := findStale(outDir, time.Now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", outDir, err)
	}

	for _, s := range stale {
		if dryRun {
			log.Action("DRY", s.Path, "would remove (modified %s)", s.ModTime.Format(time.DateTime))
			continue
		}
		var err error
		if s.IsDir {
			err = removeWorkDir(s.Path)
		} else {
			err = os.Remove(s.Path)
		}
		if err != nil {
			log.Error(err, "remove %s", s.Path)
			continue
		}
		log.Action("CLEAN", s.Path, "removed")
	}
	return len(stale), nil
}

// removeWorkDir deletes a batch directory. It refuses paths whose last
// element is not a batch id so a bad -out can't wipe unrelated data.
func removeWorkDir(dir string) error {
	if uuid.Validate(filepath.Base(dir)) != nil {
		return fmt.Errorf("refusing to remove %s: not a batch directory", dir)
	}
	return os.RemoveAll(dir)
}
