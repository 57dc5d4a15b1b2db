package fndate

import "time"

// Calendar is the calendar system an 8-digit token is believed to use.
type Calendar int

const (
	Gregorian Calendar = iota
	Persian
)

func (c Calendar) String() string {
	if c == Persian {
		return "persian"
	}
	return "gregorian"
}

// Classify guesses the calendar of a YYYYMMDD token.
//
// Years 1300-1500 with a plausible Jalali month/day are Persian, years
// 2000-2050 are Gregorian, and everything else falls back to Persian. The
// fallback is a heuristic; callers should not treat it as authoritative.
func Classify(token string) Calendar {
	y, m, d, ok := splitToken(token)
	if !ok {
		return Gregorian
	}
	if y >= 1300 && y <= 1500 && m >= 1 && m <= 12 && d >= 1 && d <= persianMonthDays(m) {
		return Persian
	}
	if y >= 2000 && y <= 2050 {
		return Gregorian
	}
	return Persian
}

// persianMonthDays is a simplified month length: the Esfand leap day is
// ignored.
func persianMonthDays(m int) int {
	if m <= 6 {
		return 31
	}
	return 30
}

// ParseToken turns an 8-digit YYYYMMDD token into a Gregorian date.
// Gregorian tokens are re-sliced as-is. Persian tokens go through conv and
// yield false when conversion is unavailable or fails.
func ParseToken(token string, conv Converter) (Date, bool) {
	y, m, d, ok := splitToken(token)
	if !ok {
		return Date{}, false
	}
	if Classify(token) == Gregorian {
		return Date{Year: y, Month: m, Day: d}, true
	}
	if conv == nil {
		return Date{}, false
	}
	return conv.JalaliToGregorian(y, m, d)
}

func splitToken(token string) (y, m, d int, ok bool) {
	if len(token) != 8 {
		return 0, 0, 0, false
	}
	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return 0, 0, 0, false
		}
	}
	return atoi(token[0:4]), atoi(token[4:6]), atoi(token[6:8]), true
}

// Converter converts a Jalali date to the Gregorian calendar. It returns
// false when the date is invalid or the capability is missing.
type Converter interface {
	JalaliToGregorian(year, month, day int) (Date, bool)
}

type ConverterFunc func(year, month, day int) (Date, bool)

func (f ConverterFunc) JalaliToGregorian(year, month, day int) (Date, bool) {
	return f(year, month, day)
}

type noPersian struct{}

func (noPersian) JalaliToGregorian(int, int, int) (Date, bool) { return Date{}, false }

// NoPersianCalendar is the converter used when regional calendar support is
// absent. Persian tokens then resolve to no date at all.
func NoPersianCalendar() Converter { return noPersian{} }

type corrected struct {
	next Converter
}

// Corrected wraps c with correctFarvardin1404.
func Corrected(c Converter) Converter {
	return corrected{next: c}
}

func (c corrected) JalaliToGregorian(year, month, day int) (Date, bool) {
	d, ok := c.next.JalaliToGregorian(year, month, day)
	if !ok {
		return d, false
	}
	return correctFarvardin1404(year, month, d), true
}

// correctFarvardin1404 moves dates in Farvardin 1404 back by one day. The
// conversion library this tool was first calibrated against returned those
// dates one day late, and stamped archives depend on the adjusted values.
func correctFarvardin1404(year, month int, d Date) Date {
	if year != 1404 || month != 1 {
		return d
	}
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 12, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}
