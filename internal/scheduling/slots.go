package scheduling

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDuration = errors.New("slot duration must be positive")
	ErrInvalidWindow   = errors.New("invalid slot window")
)

// TimeOfDay is a wall-clock time within a day, parsed from "HH:MM".
type TimeOfDay struct {
	Hour   int
	Minute int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) on(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// SlotWindow describes a batch of slots to generate: every day in
// [StartDate, EndDate], start times every Duration within the daily window.
// A window whose end is at or before its start spans midnight and runs into
// the following calendar day.
type SlotWindow struct {
	StartDate time.Time
	EndDate   time.Time
	StartTime TimeOfDay
	EndTime   TimeOfDay
	Duration  time.Duration
}

// Enumerate returns every slot start time in the window, in order.
func (w SlotWindow) Enumerate() ([]time.Time, error) {
	if w.Duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if w.EndDate.Before(w.StartDate) {
		return nil, ErrInvalidWindow
	}

	var slots []time.Time
	for day := w.StartDate; !day.After(w.EndDate); day = day.AddDate(0, 0, 1) {
		start := w.StartTime.on(day)
		end := w.EndTime.on(day)
		if end.Equal(start) {
			continue
		}
		if end.Before(start) {
			// Window spans midnight: run into the next calendar day.
			end = end.AddDate(0, 0, 1)
		}
		for ts := start; ts.Before(end); ts = ts.Add(w.Duration) {
			slots = append(slots, ts)
		}
	}
	return slots, nil
}

// FilterExisting drops slot times the professional already has, comparing
// instants rather than formatted strings.
func FilterExisting(slots, existing []time.Time) []time.Time {
	taken := make(map[int64]struct{}, len(existing))
	for _, t := range existing {
		taken[t.Unix()] = struct{}{}
	}

	kept := slots[:0:0]
	for _, t := range slots {
		if _, ok := taken[t.Unix()]; ok {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}
