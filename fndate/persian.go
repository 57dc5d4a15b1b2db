package fndate

import (
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

type ptimeConverter struct{}

// PersianCalendar returns a Converter backed by go-persian-calendar.
func PersianCalendar() Converter { return ptimeConverter{} }

func (ptimeConverter) JalaliToGregorian(year, month, day int) (Date, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return Date{}, false
	}
	pt := ptime.Date(year, ptime.Month(month), day, 12, 0, 0, 0, time.UTC)
	// ptime normalises overflowing days into the next month; such input is
	// not a real Jalali date.
	if pt.Year() != year || int(pt.Month()) != month || pt.Day() != day {
		return Date{}, false
	}
	g := pt.Time()
	return Date{Year: g.Year(), Month: int(g.Month()), Day: g.Day()}, true
}
