package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/barasher/go-exiftool"
	"github.com/levmv/existamp/exifdate"
)

var ErrToolMissing = errors.New("external tool unavailable")

// MetadataWriter reads and writes the capture date embedded in a media file.
type MetadataWriter interface {
	WriteDate(ctx context.Context, path string, stamp Stamp) error
	EmbeddedDate(path string) (time.Time, bool)
}

// MetadataService talks to a single long-lived exiftool process.
type MetadataService struct {
	binPath string
	et      *exiftool.Exiftool
	mu      sync.Mutex
}

func NewMetadataService(binPath string) *MetadataService {
	return &MetadataService{binPath: binPath}
}

// Close cleans up the ExifTool process if it was started.
func (s *MetadataService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.et != nil {
		s.et.Close()
		s.et = nil
	}
}

// exifTool lazily starts exiftool. Callers must hold s.mu.
func (s *MetadataService) exifTool() (*exiftool.Exiftool, error) {
	if s.et != nil {
		return s.et, nil
	}

	opts := []func(*exiftool.Exiftool) error{
		// write QuickTime dates as UTC, as cameras do
		exiftool.Api("QuickTimeUTC"),
	}
	if s.binPath != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(s.binPath))
	}

	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: exiftool: %v", ErrToolMissing, err)
	}
	s.et = et
	return s.et, nil
}

// WriteDate sets every date tag (AllDates) and the filesystem modify date of
// path to stamp, overwriting the file in place.
func (s *MetadataService) WriteDate(ctx context.Context, path string, stamp Stamp) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	et, err := s.exifTool()
	if err != nil {
		return err
	}

	fm := exiftool.EmptyFileMetadata()
	fm.File = path
	fm.SetString("AllDates", stamp.String())
	fm.SetString("FileModifyDate", stamp.String())

	batch := []exiftool.FileMetadata{fm}
	et.WriteMetadata(batch)
	if batch[0].Err != nil {
		return fmt.Errorf("exiftool write %s: %w", path, batch[0].Err)
	}
	return nil
}

// EmbeddedDate returns the date already stored in path, if any.
func (s *MetadataService) EmbeddedDate(path string) (time.Time, bool) {
	// 1. native reader, no subprocess
	t, err := exifdate.Get(path)
	if err == nil {
		return t, true
	}
	if !errors.Is(err, exifdate.ErrUnsupported) {
		return time.Time{}, false
	}

	// 2. exiftool for everything else (videos, gif, bmp)
	s.mu.Lock()
	defer s.mu.Unlock()

	et, err := s.exifTool()
	if err != nil {
		log.Debug("no exiftool fallback for %s: %v", path, err)
		return time.Time{}, false
	}

	for _, fi := range et.ExtractMetadata(path) {
		if fi.Err != nil {
			continue
		}
		for _, key := range []string{"DateTimeOriginal", "CreateDate", "MediaCreateDate"} {
			v, err := fi.GetString(key)
			if err != nil {
				continue
			}
			if t, err := exifdate.ParseStamp(v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
