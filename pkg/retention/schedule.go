// Package retention implements the retention engine (C8): given a folder's
// session metadata and a schedule, it computes the set of session ids a
// retention pass should delete.
package retention

import (
	"fmt"
	"time"

	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// Schedule names one of the built-in deletion policies.
type Schedule int

const (
	// All deletes every session.
	All Schedule = iota
	// BeforeToday deletes sessions older than local midnight today.
	BeforeToday
	// BeforeThisWeek deletes sessions older than the first day of this week.
	BeforeThisWeek
	// BeforeThisMonth deletes sessions older than the first of this month.
	BeforeThisMonth
	// BeforeThisYear deletes sessions older than January 1st this year.
	BeforeThisYear
	// OneDay deletes sessions older than 24 hours ago.
	OneDay
	// OneWeek deletes sessions older than 7 days ago.
	OneWeek
	// OneMonth deletes sessions older than 30 days ago.
	OneMonth
	// OneYear deletes sessions older than 365 days ago.
	OneYear
	// ExactDate deletes sessions older than an explicit cutoff supplied
	// alongside the schedule (see Evaluate's cutoff parameter).
	ExactDate
	// Auto applies the tiered retention policy: at most one session per
	// calendar hour in the last day, per calendar day in the last week, per
	// 7-day window in the last month, and per calendar month beyond that.
	Auto
)

// String returns the schedule's config/CLI name.
func (s Schedule) String() string {
	switch s {
	case All:
		return "all"
	case BeforeToday:
		return "before_today"
	case BeforeThisWeek:
		return "before_this_week"
	case BeforeThisMonth:
		return "before_this_month"
	case BeforeThisYear:
		return "before_this_year"
	case OneDay:
		return "one_day"
	case OneWeek:
		return "one_week"
	case OneMonth:
		return "one_month"
	case OneYear:
		return "one_year"
	case ExactDate:
		return "exact_date"
	case Auto:
		return "auto"
	default:
		return "unknown"
	}
}

// ParseSchedule maps a config/CLI name to a Schedule. "exact_date" is
// accepted here but Evaluate still requires a non-nil cutoff for it.
func ParseSchedule(s string) (Schedule, error) {
	switch s {
	case "all":
		return All, nil
	case "before_today":
		return BeforeToday, nil
	case "before_this_week":
		return BeforeThisWeek, nil
	case "before_this_month":
		return BeforeThisMonth, nil
	case "before_this_year":
		return BeforeThisYear, nil
	case "one_day":
		return OneDay, nil
	case "one_week":
		return OneWeek, nil
	case "one_month":
		return OneMonth, nil
	case "one_year":
		return OneYear, nil
	case "exact_date":
		return ExactDate, nil
	case "auto":
		return Auto, nil
	default:
		return 0, secerr.New(secerr.KindInternal, "parse_schedule", fmt.Errorf("unrecognized retention schedule %q", s))
	}
}

// cutoff returns the instant before which a non-Auto schedule deletes every
// session, evaluated relative to now. exactDate is only consulted for
// ExactDate and must be non-nil in that case.
func cutoff(s Schedule, now time.Time, exactDate *time.Time) (time.Time, error) {
	switch s {
	case All:
		return now, nil
	case BeforeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	case BeforeThisWeek:
		y, m, d := now.Date()
		midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		// time.Weekday: Sunday = 0 ... Saturday = 6. A week starts on Monday.
		offset := (int(midnight.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset), nil
	case BeforeThisMonth:
		y, m, _ := now.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location()), nil
	case BeforeThisYear:
		y, _, _ := now.Date()
		return time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location()), nil
	case OneDay:
		return now.Add(-24 * time.Hour), nil
	case OneWeek:
		return now.Add(-7 * 24 * time.Hour), nil
	case OneMonth:
		return now.Add(-30 * 24 * time.Hour), nil
	case OneYear:
		return now.Add(-365 * 24 * time.Hour), nil
	case ExactDate:
		if exactDate == nil {
			return time.Time{}, secerr.New(secerr.KindInternal, "retention_cutoff", fmt.Errorf("exact_date schedule requires a cutoff date"))
		}
		return *exactDate, nil
	default:
		return time.Time{}, secerr.New(secerr.KindInternal, "retention_cutoff", fmt.Errorf("schedule %v has no fixed cutoff", s))
	}
}
