package recap

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Granularity is the bucket size for a period.
type Granularity int

// Granularities from finest to coarsest.
const (
	Day Granularity = iota
	Week
	Month
	Quarter
	Year
)

// granularityNames maps granularities to their config/flag spellings.
var granularityNames = map[Granularity]string{
	Day:     "day",
	Week:    "week",
	Month:   "month",
	Quarter: "quarter",
	Year:    "year",
}

// String returns the lowercase name of the granularity.
func (g Granularity) String() string {
	name, ok := granularityNames[g]
	if !ok {
		return "unknown"
	}

	return name
}

// ErrUnknownGranularity is returned for unrecognized granularity names.
var ErrUnknownGranularity = errors.New("unknown granularity")

// ParseGranularity parses a granularity name ("week", "month", ...).
func ParseGranularity(name string) (Granularity, error) {
	for g, n := range granularityNames {
		if n == name {
			return g, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownGranularity, name)
}

// NextCoarser returns the next coarser calendar level. Weeks roll up into
// months (a week belongs to the month containing its start date).
func (g Granularity) NextCoarser() (Granularity, bool) {
	switch g {
	case Day:
		return Week, true
	case Week:
		return Month, true
	case Month:
		return Quarter, true
	case Quarter:
		return Year, true
	case Year:
		return Year, false
	default:
		return Year, false
	}
}

// Period is a contiguous [Start, End) time span at one granularity. Periods
// of a given granularity are disjoint and calendar-aligned.
type Period struct {
	Granularity Granularity `json:"granularity"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// ContainsPeriod reports whether child starts inside this period. Used to
// group finer periods under coarser ones deterministically.
func (p Period) ContainsPeriod(child Period) bool {
	return p.Contains(child.Start)
}

// Label returns the canonical label: "2025", "2025-Q3", "2025-06",
// "2025-W23", or "2025-06-03" depending on granularity.
func (p Period) Label() string {
	switch p.Granularity {
	case Year:
		// A span wider than one calendar year (e.g. a root node covering a
		// multi-year range) labels as the inclusive year range.
		endYear := p.End.Add(-time.Nanosecond).Year()
		if endYear > p.Start.Year() {
			return fmt.Sprintf("%d:%d", p.Start.Year(), endYear)
		}

		return strconv.Itoa(p.Start.Year())
	case Quarter:
		return fmt.Sprintf("%d-Q%d", p.Start.Year(), (int(p.Start.Month())-1)/3+1)
	case Month:
		return p.Start.Format("2006-01")
	case Week:
		year, week := p.Start.ISOWeek()

		return fmt.Sprintf("%d-W%02d", year, week)
	case Day:
		return p.Start.Format("2006-01-02")
	default:
		return p.Start.Format("2006-01-02")
	}
}

const (
	daysPerWeek      = 7
	monthsPerQuarter = 3
	hoursPerDay      = 24
)

// periodAt returns the calendar-aligned period of the given granularity
// containing the instant t.
func periodAt(t time.Time, g Granularity) Period {
	t = t.UTC()

	var start, end time.Time

	switch g {
	case Year:
		start = time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0)
	case Quarter:
		quarterMonth := time.Month((int(t.Month())-1)/monthsPerQuarter*monthsPerQuarter + 1)
		start = time.Date(t.Year(), quarterMonth, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, monthsPerQuarter, 0)
	case Month:
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	case Week:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + daysPerWeek - int(time.Monday)) % daysPerWeek
		start = day.AddDate(0, 0, -offset)
		end = start.AddDate(0, 0, daysPerWeek)
	case Day:
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
	default:
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
	}

	return Period{Granularity: g, Start: start, End: end}
}

// Split partitions [start, end) into disjoint, exhaustive, calendar-aligned
// periods of the given granularity. The first and last periods may extend
// beyond the requested range since they align to calendar boundaries.
// Identical inputs always produce identical period lists.
func Split(start, end time.Time, g Granularity) []Period {
	if !start.Before(end) {
		return nil
	}

	var periods []Period

	current := periodAt(start, g)
	for current.Start.Before(end) {
		periods = append(periods, current)
		current = periodAt(current.End, g)
	}

	return periods
}

// periodPattern matches the accepted period spellings.
var periodPattern = regexp.MustCompile(
	`^(\d{4})(?:-Q([1-4])|-W(\d{2})|-(\d{2})(?:-(\d{2}))?)?$`,
)

// rangePattern matches multi-year ranges like "2020:2025" (inclusive).
var rangePattern = regexp.MustCompile(`^(\d{4}):(\d{4})$`)

// ErrInvalidPeriod is returned when a period string cannot be parsed.
var ErrInvalidPeriod = errors.New("invalid period")

// ParsePeriod parses a period spec into its label and [start, end) bounds.
// Accepted forms: "2025", "2025-Q3", "2025-06", "2025-W23", "2025-06-03",
// and the inclusive year range "2020:2025".
func ParsePeriod(spec string) (string, time.Time, time.Time, error) {
	if m := rangePattern.FindStringSubmatch(spec); m != nil {
		fromYear, _ := strconv.Atoi(m[1])
		toYear, _ := strconv.Atoi(m[2])

		if toYear < fromYear {
			return "", time.Time{}, time.Time{}, fmt.Errorf("%w: %q (range end before start)", ErrInvalidPeriod, spec)
		}

		start := time.Date(fromYear, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(toYear+1, time.January, 1, 0, 0, 0, 0, time.UTC)

		return spec, start, end, nil
	}

	m := periodPattern.FindStringSubmatch(spec)
	if m == nil {
		return "", time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, spec)
	}

	year, _ := strconv.Atoi(m[1])

	switch {
	case m[2] != "": // Quarter.
		quarter, _ := strconv.Atoi(m[2])
		start := time.Date(year, time.Month((quarter-1)*monthsPerQuarter+1), 1, 0, 0, 0, 0, time.UTC)
		period := periodAt(start, Quarter)

		return period.Label(), period.Start, period.End, nil
	case m[3] != "": // ISO week.
		week, _ := strconv.Atoi(m[3])
		start, err := isoWeekStart(year, week)
		if err != nil {
			return "", time.Time{}, time.Time{}, err
		}

		return fmt.Sprintf("%d-W%02d", year, week), start, start.AddDate(0, 0, daysPerWeek), nil
	case m[5] != "": // Day.
		month, _ := strconv.Atoi(m[4])
		day, _ := strconv.Atoi(m[5])
		period := periodAt(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), Day)

		return period.Label(), period.Start, period.End, nil
	case m[4] != "": // Month.
		month, _ := strconv.Atoi(m[4])
		if month < 1 || month > 12 {
			return "", time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, spec)
		}

		period := periodAt(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), Month)

		return period.Label(), period.Start, period.End, nil
	default: // Year.
		period := periodAt(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), Year)

		return period.Label(), period.Start, period.End, nil
	}
}

// isoWeekStart returns the Monday starting ISO week number week of year.
func isoWeekStart(year, week int) (time.Time, error) {
	if week < 1 || week > 53 {
		return time.Time{}, fmt.Errorf("%w: week %d out of range", ErrInvalidPeriod, week)
	}

	// January 4th is always in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + daysPerWeek - int(time.Monday)) % daysPerWeek
	week1Monday := jan4.AddDate(0, 0, -offset)

	start := week1Monday.AddDate(0, 0, (week-1)*daysPerWeek)

	gotYear, gotWeek := start.ISOWeek()
	if gotYear != year || gotWeek != week {
		return time.Time{}, fmt.Errorf("%w: %d-W%02d does not exist", ErrInvalidPeriod, year, week)
	}

	return start, nil
}
