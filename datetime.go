package main

import (
	"fmt"
	"time"

	"github.com/levmv/existamp/fndate"
)

// Stamp is the date/time written into a file, in exiftool's
// "YYYY:MM:DD HH:MM:SS" form.
type Stamp struct {
	Date string
	Time string
	// Where each half came from: "filename", "manual" or "default".
	DateSource string
	TimeSource string
}

func (s Stamp) String() string {
	return s.Date + " " + s.Time
}

// ResolveStamp decides what to write for a file named name. A manual date
// switches the file to manual mode: the filename is ignored and the time is
// the manual time or the default. Otherwise the filename wins, a missing date
// becomes today's date and a missing time becomes the manual time, then the
// default.
func ResolveStamp(ex *fndate.Extractor, name string, cfg *Config, now time.Time) Stamp {
	if cfg.Date != "" {
		s := Stamp{Date: cfg.Date, DateSource: "manual", Time: cfg.DefaultTime, TimeSource: "default"}
		if cfg.Time != "" {
			s.Time, s.TimeSource = cfg.Time, "manual"
		}
		return s
	}

	res := ex.Extract(name)
	s := Stamp{
		Date: res.DateString(), DateSource: "filename",
		Time: res.TimeString(), TimeSource: "filename",
	}
	if !res.HasDate() {
		s.Date, s.DateSource = now.Format("2006:01:02"), "default"
	}
	if !res.HasTime() {
		s.Time, s.TimeSource = cfg.DefaultTime, "default"
		if cfg.Time != "" {
			s.Time, s.TimeSource = cfg.Time, "manual"
		}
	}
	return s
}

var dateLayouts = []string{"2006:01:02", "2006-01-02", "2006/01/02"}

// normalizeDate accepts a user supplied date and returns it as YYYY:MM:DD.
func normalizeDate(s string) (string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006:01:02"), nil
		}
	}
	return "", fmt.Errorf("invalid date %q, want YYYY:MM:DD or YYYY-MM-DD", s)
}

// normalizeTime accepts HH:MM or HH:MM:SS and returns HH:MM:SS.
func normalizeTime(s string) (string, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05"), nil
		}
	}
	return "", fmt.Errorf("invalid time %q, want HH:MM[:SS]", s)
}
