package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindUnknown Kind = "unknown"
)

var ErrUnsupportedKind = errors.New("unsupported file type")

// headers larger than this with no known signature are assumed to be video
const sniffVideoSize = 5 << 20

// KindOf classifies path by extension and, failing that, by its header.
func (c *Config) KindOf(path string) Kind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch {
	case c.ImageExts[ext]:
		return KindImage
	case c.VideoExts[ext]:
		return KindVideo
	}
	return sniffKind(path)
}

// Accepts reports whether a file found while walking a directory should be
// picked up.
func (c *Config) Accepts(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return c.ImageExts[ext] || c.VideoExts[ext]
}

func sniffKind(path string) Kind {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown
	}
	defer f.Close()

	head := make([]byte, 12)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return KindUnknown
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, []byte{0xFF, 0xD8, 0xFF}),
		bytes.HasPrefix(head, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}),
		bytes.HasPrefix(head, []byte("GIF8")),
		bytes.HasPrefix(head, []byte("BM")):
		return KindImage
	case len(head) >= 8 && (string(head[4:8]) == "ftyp" || string(head[4:8]) == "moov" || string(head[4:8]) == "mdat"):
		return KindVideo
	}

	info, err := f.Stat()
	if err != nil {
		return KindUnknown
	}
	if info.Size() > sniffVideoSize {
		return KindVideo
	}
	return KindImage
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SafeName turns an incoming filename into one that is safe to write into
// the batch directory. Generic names that phones send for picked media
// ("image.jpg") get a timestamped replacement so they don't collide.
func SafeName(original string, now time.Time) string {
	name := original
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	ext := "jpg"
	if i := strings.LastIndexByte(name, '.'); i >= 0 && i < len(name)-1 {
		ext = strings.ToLower(name[i+1:])
	}
	stamp := now.Format("20060102_150405")

	if strings.HasPrefix(name, "image.") || strings.HasPrefix(name, "video.") {
		name = "mobile_" + stamp + "." + ext
	}

	name = strings.Join(strings.Fields(name), "_")
	name = unsafeNameChars.ReplaceAllString(name, "")
	stem := strings.Trim(strings.TrimSuffix(name, filepath.Ext(name)), "._")
	name = strings.Trim(name, "._")

	if len(name) < 3 || stem == "" {
		name = "mobile_upload_" + stamp + "." + unsafeNameChars.ReplaceAllString(ext, "")
	}
	return name
}
