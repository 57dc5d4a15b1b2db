package fndate

import (
	"regexp"
	"strconv"
)

// Rule is one step of the extraction cascade.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	// Final rules end the cascade once they apply.
	Final bool

	apply func(m []string, res *Result, conv Converter) bool
}

// Apply runs the rule against an already matched submatch slice and reports
// whether it changed res.
func (r Rule) Apply(m []string, res *Result, conv Converter) bool {
	return r.apply(m, res, conv)
}

// Rules returns a copy of the cascade in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

var defaultRules = []Rule{
	{
		// clip_2024_06_01__10_15_20
		Name:    "underscore-datetime",
		Pattern: regexp.MustCompile(`(?:^|_)(\d{4})_(\d{2})_(\d{2})__(\d{2})_(\d{2})_(\d{2})`),
		Final:   true,
		apply:   setDateTime,
	},
	{
		// IMG_20230405_...
		Name:    "delimited-token",
		Pattern: regexp.MustCompile(`_(\d{8})_`),
		apply:   setToken,
	},
	{
		Name:    "bare-token",
		Pattern: regexp.MustCompile(`(\d{8})`),
		apply: func(m []string, res *Result, conv Converter) bool {
			if res.Date != nil {
				return false
			}
			return setToken(m, res, conv)
		},
	},
	{
		// VID_2023-04-05-14.30.00
		Name:    "dashed-datetime",
		Pattern: regexp.MustCompile(`(\d{4})[-_](\d{1,2})[-_](\d{1,2})[-_](\d{1,2})\.(\d{1,2})\.(\d{1,2})`),
		Final:   true,
		apply:   setDateTime,
	},
	{
		Name:    "dashed-date",
		Pattern: regexp.MustCompile(`(\d{4})[-_](\d{1,2})[-_](\d{1,2})`),
		apply: func(m []string, res *Result, _ Converter) bool {
			res.Date = &Date{Year: atoi(m[1]), Month: atoi(m[2]), Day: atoi(m[3])}
			return true
		},
	},
	{
		// WhatsApp status saves: Status_Jan_05_2023
		Name:    "status-month-name",
		Pattern: regexp.MustCompile(`Status_(\w{3})_(\d{1,2})_(\d{4})`),
		apply: func(m []string, res *Result, _ Converter) bool {
			res.Date = &Date{Year: atoi(m[3]), Month: MonthNumber(m[1]), Day: atoi(m[2])}
			return true
		},
	},
	{
		Name:    "dotted-time",
		Pattern: regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{1,2})`),
		Final:   true,
		apply: func(m []string, res *Result, _ Converter) bool {
			res.Time = &Clock{Hour: atoi(m[1]), Minute: atoi(m[2]), Second: atoi(m[3])}
			return true
		},
	},
	{
		// HHMMSS plus a three digit millisecond suffix
		Name:    "trailing-9-digits",
		Pattern: regexp.MustCompile(`_(\d{9})$`),
		Final:   true,
		apply:   setCompactTime,
	},
	{
		Name:    "6-digits-dash-or-dot",
		Pattern: regexp.MustCompile(`_(\d{6})[-.]`),
		Final:   true,
		apply:   setCompactTime,
	},
	{
		// Subsumed by the previous rule; kept so the table mirrors the
		// historical lookup order.
		Name:    "6-digits-dash",
		Pattern: regexp.MustCompile(`_(\d{6})-`),
		Final:   true,
		apply:   setCompactTime,
	},
}

func setDateTime(m []string, res *Result, _ Converter) bool {
	res.Date = &Date{Year: atoi(m[1]), Month: atoi(m[2]), Day: atoi(m[3])}
	res.Time = &Clock{Hour: atoi(m[4]), Minute: atoi(m[5]), Second: atoi(m[6])}
	return true
}

func setToken(m []string, res *Result, conv Converter) bool {
	d, ok := ParseToken(m[1], conv)
	if !ok {
		return false
	}
	res.Date = &d
	return true
}

func setCompactTime(m []string, res *Result, _ Converter) bool {
	t := m[1]
	res.Time = &Clock{Hour: atoi(t[0:2]), Minute: atoi(t[2:4]), Second: atoi(t[4:6])}
	return true
}

var monthNames = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4, "May": 5, "Jun": 6,
	"Jul": 7, "Aug": 8, "Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

// MonthNumber maps an English three letter month abbreviation to 1..12.
// Anything unrecognised maps to January.
func MonthNumber(abbr string) int {
	if n, ok := monthNames[abbr]; ok {
		return n
	}
	return 1
}

// atoi is only called on submatches of \d groups.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
