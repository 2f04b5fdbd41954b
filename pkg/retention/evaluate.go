package retention

import (
	"sort"
	"strconv"
	"time"

	"github.com/safedrive/safedrive-engine/pkg/remote"
)

// Evaluate computes the set of session ids a retention pass should delete
// from sessions, under schedule, relative to now. exactDate is only used
// (and required) for the ExactDate schedule.
//
// Evaluate never mutates sessions and is idempotent: calling it twice over
// the same input, or over the survivor set of a prior pass, returns the
// same deletion set (empty, the second time).
func Evaluate(sessions []remote.SessionInfo, schedule Schedule, now time.Time, exactDate *time.Time) ([]string, error) {
	if schedule == Auto {
		return evaluateAuto(sessions, now), nil
	}

	before, err := cutoff(schedule, now, exactDate)
	if err != nil {
		return nil, err
	}

	var toDelete []string
	for _, s := range sessions {
		if schedule == All || s.Time.Before(before) {
			toDelete = append(toDelete, s.ID)
		}
	}
	return toDelete, nil
}

// tier is one of Auto's four retention windows, each keeping at most one
// session per key returned by bucket, for sessions whose age falls in
// [minAge, maxAge). maxAge of zero means "no upper bound".
type tier struct {
	minAge, maxAge time.Duration
	bucket         func(t time.Time) string
}

func evaluateAuto(sessions []remote.SessionInfo, now time.Time) []string {
	tiers := []tier{
		{minAge: 0, maxAge: 24 * time.Hour, bucket: hourBucket},
		{minAge: 24 * time.Hour, maxAge: 7 * 24 * time.Hour, bucket: dayBucket},
		{minAge: 7 * 24 * time.Hour, maxAge: 30 * 24 * time.Hour, bucket: weekBucket(now)},
		{minAge: 30 * 24 * time.Hour, maxAge: 0, bucket: monthBucket},
	}

	// Sort oldest-first so that, within a bucket, the first session kept is
	// the oldest one: this is what "ties broken by keeping the oldest"
	// means in practice, since we simply never overwrite a bucket's first
	// pick with a later (newer) one.
	ordered := make([]remote.SessionInfo, len(sessions))
	copy(ordered, sessions)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Time.Before(ordered[j].Time) })

	kept := make(map[string]bool)
	var toDelete []string

	for _, t := range tiers {
		seen := make(map[string]bool)
		for _, s := range ordered {
			age := now.Sub(s.Time)
			if age < t.minAge {
				continue
			}
			if t.maxAge > 0 && age >= t.maxAge {
				continue
			}
			key := t.bucket(s.Time)
			if seen[key] {
				continue
			}
			seen[key] = true
			kept[s.ID] = true
		}
	}

	for _, s := range sessions {
		if !kept[s.ID] {
			toDelete = append(toDelete, s.ID)
		}
	}
	return toDelete
}

func hourBucket(t time.Time) string {
	return t.UTC().Format("2006010215")
}

func dayBucket(t time.Time) string {
	return t.UTC().Format("20060102")
}

// weekBucket buckets by 7-day windows counted backward from now, so
// "this week" always means "the 7 days ending now" rather than a calendar
// week, matching the tier's own sliding [7d, 30d) age range.
func weekBucket(now time.Time) func(time.Time) string {
	return func(t time.Time) string {
		age := now.Sub(t)
		windowIndex := int(age / (7 * 24 * time.Hour))
		return strconv.Itoa(windowIndex)
	}
}

func monthBucket(t time.Time) string {
	return t.UTC().Format("200601")
}
