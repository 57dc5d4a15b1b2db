// Package fndate infers the capture date and time of a photo or video from
// its filename.
//
// Phones, cameras, messaging apps and screenshot tools all name files
// differently. Extract runs an ordered cascade of patterns over the base name
// and returns whatever it could recover. A missing date or time is a normal
// outcome, not an error.
package fndate

import (
	"fmt"
	"strings"
)

// Date is a calendar date rendered as YYYY:MM:DD. It is not validated: a
// Gregorian token such as 20231345 comes through as month 13, day 45.
type Date struct {
	Year, Month, Day int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d:%02d:%02d", d.Year, d.Month, d.Day)
}

// Clock is a time of day rendered as HH:MM:SS.
type Clock struct {
	Hour, Minute, Second int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// Result holds what was recovered from a filename. Nil fields are absent.
type Result struct {
	Date *Date
	Time *Clock
}

func (r Result) HasDate() bool { return r.Date != nil }
func (r Result) HasTime() bool { return r.Time != nil }

// DateString returns the date as YYYY:MM:DD, or "" when absent.
func (r Result) DateString() string {
	if r.Date == nil {
		return ""
	}
	return r.Date.String()
}

// TimeString returns the time as HH:MM:SS, or "" when absent.
func (r Result) TimeString() string {
	if r.Time == nil {
		return ""
	}
	return r.Time.String()
}

// Extractor runs the rule cascade. The zero value is not usable; build one
// with New. An Extractor holds no mutable state and is safe for concurrent use.
type Extractor struct {
	conv  Converter
	rules []Rule
}

type Option func(*Extractor)

// WithConverter sets the Jalali calendar capability. Pass NoPersianCalendar()
// to run without regional calendar support.
func WithConverter(c Converter) Option {
	return func(e *Extractor) {
		e.conv = c
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{
		conv:  Corrected(PersianCalendar()),
		rules: defaultRules,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.conv == nil {
		e.conv = NoPersianCalendar()
	}
	return e
}

var std = New()

// Extract runs the default extractor over filename.
func Extract(filename string) Result {
	return std.Extract(filename)
}

// Extract infers the date and time encoded in filename. Directory and
// extension are ignored. Rules run in table order: a rule marked Final ends
// the cascade as soon as it applies, the others only update the accumulated
// result.
func (e *Extractor) Extract(filename string) Result {
	base := Normalize(filename)

	var res Result
	for _, r := range e.rules {
		m := r.Pattern.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		if r.apply(m, &res, e.conv) && r.Final {
			break
		}
	}
	return res
}

// Normalize strips the directory (either separator style) and the extension
// from filename. A leading dot does not start an extension.
func Normalize(filename string) string {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 && strings.Trim(base[:i], ".") != "" {
		base = base[:i]
	}
	return base
}
