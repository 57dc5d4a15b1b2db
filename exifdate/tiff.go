package exifdate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	tagExifIFD          = 0x8769
	tagDateTime         = 0x0132
	tagDateTimeOriginal = 0x9003

	ifdEntrySize = 12
)

// ParseDate reads DateTimeOriginal from the Exif sub-IFD of a TIFF block,
// falling back to IFD0 DateTime.
func ParseDate(data []byte) (time.Time, error) {
	if len(data) < 8 {
		return time.Time{}, fmt.Errorf("%w: tiff block too short", ErrUnsupported)
	}

	var order binary.ByteOrder
	switch string(data[0:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return time.Time{}, fmt.Errorf("%w: bad byte order mark", ErrUnsupported)
	}
	if order.Uint16(data[2:4]) != 42 {
		return time.Time{}, fmt.Errorf("%w: bad tiff magic", ErrUnsupported)
	}

	var subIFD int
	var modified string
	err := walkIFD(data, int(order.Uint32(data[4:8])), order, func(tag uint16, entry int, count uint32) {
		switch tag {
		case tagExifIFD:
			subIFD = int(order.Uint32(data[entry+8 : entry+12]))
		case tagDateTime:
			modified = asciiValue(data, entry, count, order)
		}
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	if subIFD > 0 {
		var original string
		_ = walkIFD(data, subIFD, order, func(tag uint16, entry int, count uint32) {
			if tag == tagDateTimeOriginal {
				original = asciiValue(data, entry, count, order)
			}
		})
		if original != "" {
			return ParseStamp(original)
		}
	}
	if modified != "" {
		return ParseStamp(modified)
	}
	return time.Time{}, ErrNoDate
}

// walkIFD calls fn with the tag id, absolute entry offset and value count of
// every entry in the directory at off.
func walkIFD(data []byte, off int, order binary.ByteOrder, fn func(tag uint16, entry int, count uint32)) error {
	if off < 0 || off+2 > len(data) {
		return errors.New("ifd offset out of bounds")
	}
	n := int(order.Uint16(data[off : off+2]))
	entry := off + 2
	for i := 0; i < n; i++ {
		if entry+ifdEntrySize > len(data) {
			return errors.New("ifd entry out of bounds")
		}
		fn(order.Uint16(data[entry:entry+2]), entry, order.Uint32(data[entry+4:entry+8]))
		entry += ifdEntrySize
	}
	return nil
}

func asciiValue(data []byte, entry int, count uint32, order binary.ByteOrder) string {
	start := entry + 8
	if count > 4 {
		start = int(order.Uint32(data[entry+8 : entry+12]))
	}
	end := start + int(count)
	if start < 0 || end > len(data) || end < start {
		return ""
	}
	raw := data[start:end]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(bytes.TrimSpace(raw))
}

var stampLayouts = []string{
	"2006:01:02 15:04:05",
	"2006:01:02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

// ParseStamp parses an EXIF style date/time value in local time.
func ParseStamp(s string) (time.Time, error) {
	if len(s) < 10 || strings.HasPrefix(s, "0000:00:00") || strings.HasPrefix(s, "    :  :  ") {
		return time.Time{}, ErrNoDate
	}
	for _, layout := range stampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unknown date layout %q", ErrUnsupported, s)
}
