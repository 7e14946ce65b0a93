package timeseries

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Unit is the calendar unit a Frequency steps by.
type Unit int

// Frequency units.
const (
	UnitHour Unit = iota + 1
	UnitDay
	UnitWeek
	UnitMonth
	UnitQuarter
	UnitYear
)

func (u Unit) String() string {
	switch u {
	case UnitHour:
		return "hour"
	case UnitDay:
		return "day"
	case UnitWeek:
		return "week"
	case UnitMonth:
		return "month"
	case UnitQuarter:
		return "quarter"
	case UnitYear:
		return "year"
	}
	return "unknown"
}

// Frequency is the regular spacing of a series.
type Frequency struct {
	Unit     Unit
	Step     int
	MonthEnd bool // calendar units anchored on the last day of the month
}

// Common frequencies.
var (
	Monthly   = Frequency{Unit: UnitMonth, Step: 1}
	Quarterly = Frequency{Unit: UnitQuarter, Step: 1}
	Daily     = Frequency{Unit: UnitDay, Step: 1}
)

// IsZero reports whether the frequency is unset.
func (f Frequency) IsZero() bool {
	return f.Unit == 0
}

func (f Frequency) String() string {
	if f.IsZero() {
		return "none"
	}
	s := f.Unit.String()
	if f.Step > 1 {
		s = fmt.Sprintf("%d %ss", f.Step, s)
	}
	if f.MonthEnd {
		s += " (month end)"
	}
	return s
}

// Period returns the natural seasonal period for the frequency.
func (f Frequency) Period() int {
	step := max(f.Step, 1)
	var perYear int
	switch f.Unit {
	case UnitHour:
		return max(24/step, 1)
	case UnitDay:
		return max(7/step, 1)
	case UnitWeek:
		perYear = 52
	case UnitMonth:
		perYear = 12
	case UnitQuarter:
		perYear = 4
	default:
		return 1
	}
	return max(perYear/step, 1)
}

// months returns the number of calendar months in one step, or 0 for
// fixed-duration units.
func (f Frequency) months() int {
	switch f.Unit {
	case UnitMonth:
		return f.Step
	case UnitQuarter:
		return 3 * f.Step
	case UnitYear:
		return 12 * f.Step
	}
	return 0
}

// Add returns t advanced by k steps.
func (f Frequency) Add(t time.Time, k int) time.Time {
	step := max(f.Step, 1)
	switch f.Unit {
	case UnitHour:
		return t.Add(time.Duration(k*step) * time.Hour)
	case UnitDay:
		return t.AddDate(0, 0, k*step)
	case UnitWeek:
		return t.AddDate(0, 0, 7*k*step)
	case UnitMonth, UnitQuarter, UnitYear:
		return addMonths(t, k*f.months(), f.MonthEnd)
	}
	return t
}

// Steps returns how many steps separate a and b, and whether b lies exactly
// on the grid that starts at a.
func (f Frequency) Steps(a, b time.Time) (int, bool) {
	switch f.Unit {
	case UnitHour:
		step := time.Duration(max(f.Step, 1)) * time.Hour
		k := int(math.Round(float64(b.Sub(a)) / float64(step)))
		drift := b.Sub(a) - time.Duration(k)*step
		if drift < 0 {
			drift = -drift
		}
		return k, drift <= step/100
	case UnitDay, UnitWeek:
		days := int(math.Round(b.Sub(a).Hours() / 24))
		span := max(f.Step, 1)
		if f.Unit == UnitWeek {
			span *= 7
		}
		k := days / span
		return k, f.Add(a, k).Equal(b)
	case UnitMonth, UnitQuarter, UnitYear:
		m := monthIndex(b) - monthIndex(a)
		span := f.months()
		if span <= 0 {
			return 0, false
		}
		k := m / span
		return k, m%span == 0 && f.Add(a, k).Equal(b)
	}
	return 0, false
}

// InferFrequency infers the regular spacing of strictly increasing
// timestamps. The step is the greatest common divisor of the gaps, so
// missing periods do not change the inferred frequency.
func InferFrequency(ts []time.Time) (Frequency, error) {
	if len(ts) < 2 {
		return Frequency{}, errors.New("at least two timestamps are needed to infer a frequency")
	}

	if f, ok := inferCalendar(ts); ok {
		return f, nil
	}
	if f, ok := inferDays(ts); ok {
		return f, nil
	}
	if f, ok := inferHours(ts); ok {
		return f, nil
	}
	return Frequency{}, errors.New("timestamps are not regularly spaced in hours, days, weeks or months")
}

func inferCalendar(ts []time.Time) (Frequency, bool) {
	monthEnd := true
	for _, t := range ts {
		if !isMonthEnd(t) {
			monthEnd = false
			break
		}
	}

	step := 0
	for i := 1; i < len(ts); i++ {
		m := monthIndex(ts[i]) - monthIndex(ts[i-1])
		if m <= 0 || !addMonths(ts[i-1], m, monthEnd).Equal(ts[i]) {
			return Frequency{}, false
		}
		step = gcd(step, m)
	}

	switch {
	case step%12 == 0:
		return Frequency{Unit: UnitYear, Step: step / 12, MonthEnd: monthEnd}, true
	case step%3 == 0:
		return Frequency{Unit: UnitQuarter, Step: step / 3, MonthEnd: monthEnd}, true
	}
	return Frequency{Unit: UnitMonth, Step: step, MonthEnd: monthEnd}, true
}

func inferDays(ts []time.Time) (Frequency, bool) {
	step := 0
	for i := 1; i < len(ts); i++ {
		d := int(math.Round(ts[i].Sub(ts[i-1]).Hours() / 24))
		if d <= 0 || !ts[i-1].AddDate(0, 0, d).Equal(ts[i]) {
			return Frequency{}, false
		}
		step = gcd(step, d)
	}
	if step%7 == 0 {
		return Frequency{Unit: UnitWeek, Step: step / 7}, true
	}
	return Frequency{Unit: UnitDay, Step: step}, true
}

func inferHours(ts []time.Time) (Frequency, bool) {
	step := 0
	for i := 1; i < len(ts); i++ {
		h := int(math.Round(ts[i].Sub(ts[i-1]).Hours()))
		if h <= 0 {
			return Frequency{}, false
		}
		step = gcd(step, h)
	}
	f := Frequency{Unit: UnitHour, Step: step}
	for i := 1; i < len(ts); i++ {
		if _, ok := f.Steps(ts[i-1], ts[i]); !ok {
			return Frequency{}, false
		}
	}
	return f, true
}

func addMonths(t time.Time, n int, monthEnd bool) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, n, 0)
	last := daysIn(target.Year(), target.Month())
	if monthEnd || d > last {
		d = last
	}
	return target.AddDate(0, 0, d-1)
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isMonthEnd(t time.Time) bool {
	return t.Day() == daysIn(t.Year(), t.Month())
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
