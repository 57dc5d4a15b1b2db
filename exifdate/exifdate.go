// Package exifdate reads the capture date already embedded in a JPEG or PNG
// file without starting an exiftool process.
package exifdate

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

var (
	// ErrUnsupported means the container can't be read natively; callers
	// should ask exiftool instead.
	ErrUnsupported = errors.New("unsupported format")
	// ErrNoDate means the file was readable but carries no usable date.
	ErrNoDate = errors.New("no embedded date")

	exifHeader = []byte{'E', 'x', 'i', 'f', 0x00, 0x00}
	pngMagic   = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
)

const (
	maxJPEGScan  = 1 << 20
	maxPNGChunk  = 10 << 20
	sniffLength  = 12
	jpegAPP1     = 0xE1
	jpegSOS      = 0xDA
	jpegEOI      = 0xD9
	jpegSOI      = 0xD8
	jpegTEM      = 0x01
	jpegRST0     = 0xD0
	jpegRST7     = 0xD7
)

// Get returns the embedded capture date of the file at path.
func Get(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()
	return Read(f)
}

// Read returns the embedded capture date from r.
func Read(r io.ReadSeeker) (time.Time, error) {
	blob, err := ExtractEXIF(r)
	if err != nil {
		return time.Time{}, err
	}
	if blob == nil {
		return time.Time{}, ErrNoDate
	}
	return ParseDate(blob)
}

// ExtractEXIF returns the raw TIFF block of r, or nil when the container has
// none. r is rewound before scanning.
func ExtractEXIF(r io.ReadSeeker) ([]byte, error) {
	sniff := make([]byte, sniffLength)
	n, err := io.ReadFull(r, sniff)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty file", ErrUnsupported)
		}
		return nil, err
	}
	sniff = sniff[:n]

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	switch {
	case bytes.HasPrefix(sniff, []byte{0xFF, 0xD8}):
		return scanJPEG(bufio.NewReader(r))
	case bytes.HasPrefix(sniff, pngMagic):
		return scanPNG(r)
	default:
		return nil, ErrUnsupported
	}
}

// scanJPEG walks the marker segments up to the first scan looking for an
// APP1 Exif segment.
func scanJPEG(br *bufio.Reader) ([]byte, error) {
	var lenBuf [2]byte
	scanned := 0

	for scanned < maxJPEGScan {
		b, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		scanned++
		if b != 0xFF {
			continue
		}

		marker := byte(0xFF)
		for marker == 0xFF {
			if marker, err = br.ReadByte(); err != nil {
				return nil, err
			}
			scanned++
		}

		switch {
		case marker == jpegSOI, marker == jpegTEM, marker >= jpegRST0 && marker <= jpegRST7:
			continue
		case marker == jpegEOI, marker == jpegSOS:
			return nil, nil
		}

		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return nil, err
		}
		scanned += 2
		size := int(binary.BigEndian.Uint16(lenBuf[:])) - 2

		if marker == jpegAPP1 && size >= len(exifHeader) {
			if sig, err := br.Peek(len(exifHeader)); err == nil && bytes.Equal(sig, exifHeader) {
				seg := make([]byte, size)
				if _, err := io.ReadFull(br, seg); err != nil {
					return nil, err
				}
				return seg[len(exifHeader):], nil
			}
		}

		if size > maxJPEGScan-scanned {
			return nil, nil
		}
		if size > 0 {
			n, err := br.Discard(size)
			if err != nil {
				return nil, err
			}
			scanned += n
		}
	}
	return nil, nil
}

// scanPNG walks the chunk list for an eXIf chunk. Unlike JPEG, its payload is
// the bare TIFF structure.
func scanPNG(r io.Reader) ([]byte, error) {
	if _, err := io.CopyN(io.Discard, r, int64(len(pngMagic))); err != nil {
		return nil, err
	}

	var hdr [8]byte
	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, err
		}
		size := binary.BigEndian.Uint32(hdr[0:4])

		switch string(hdr[4:8]) {
		case "eXIf":
			if size > maxPNGChunk {
				return nil, fmt.Errorf("eXIf chunk too large: %d bytes", size)
			}
			data := make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, err
			}
			return data, nil
		case "IEND":
			return nil, nil
		}

		// payload + CRC
		if _, err := io.CopyN(io.Discard, r, int64(size)+4); err != nil {
			return nil, err
		}
	}
}
