package scheduling

import (
	"encoding/json"
	"fmt"
	"time"
)

// Clinic working hours. All appointments are fixed 30-minute slots that must
// fit inside these bounds; the window from FollowUpStart to WorkEnd is
// reserved for follow-up visits.
var (
	WorkStart     = TimeOfDay{9, 30}
	WorkEnd       = TimeOfDay{18, 0}
	LunchStart    = TimeOfDay{13, 0}
	LunchEnd      = TimeOfDay{14, 30}
	FollowUpStart = TimeOfDay{16, 0}
)

// SlotMinutes is the fixed slot length.
const SlotMinutes = 30

// TimeOfDay is a clock time with minute precision, independent of date and
// time zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "15:04" formatted input.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// TimeOfDayFrom extracts the clock time of t.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

// Add returns the time of day m minutes later.
func (t TimeOfDay) Add(m int) TimeOfDay {
	total := t.Minutes() + m
	return TimeOfDay{Hour: total / 60, Minute: total % 60}
}

// Before reports whether t is earlier than other.
func (t TimeOfDay) Before(other TimeOfDay) bool { return t.Minutes() < other.Minutes() }

// After reports whether t is later than other.
func (t TimeOfDay) After(other TimeOfDay) bool { return t.Minutes() > other.Minutes() }

// At anchors the clock time on the given date in d's location.
func (t TimeOfDay) At(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, d.Location())
}

// MarshalJSON renders "15:04".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts "15:04".
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back slots do not overlap.
func overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ValidateSlotTime checks that a slot starting at start is legally placed
// within clinic hours for the given visit type. The returned error is one of
// ErrOutsideHours, ErrLunchConflict, ErrFollowUpWindowOnly or
// ErrNotFollowUpWindow.
func ValidateSlotTime(start TimeOfDay, followUp bool) error {
	end := start.Add(SlotMinutes)
	if start.Before(WorkStart) || end.After(WorkEnd) {
		return ErrOutsideHours
	}
	if followUp {
		if start.Before(FollowUpStart) {
			return ErrNotFollowUpWindow
		}
		return nil
	}
	if overlaps(start, end, LunchStart, LunchEnd) {
		return ErrLunchConflict
	}
	if !start.Before(FollowUpStart) {
		return ErrFollowUpWindowOnly
	}
	return nil
}

// Slots enumerates every canonical 30-minute slot start between WorkStart and
// WorkEnd, excluding slots that overlap the lunch break. The result is in
// schedule order and is a pure function of the clinic constants.
func Slots() []TimeOfDay {
	var out []TimeOfDay
	for t := WorkStart; !t.Add(SlotMinutes).After(WorkEnd); t = t.Add(SlotMinutes) {
		if overlaps(t, t.Add(SlotMinutes), LunchStart, LunchEnd) {
			continue
		}
		out = append(out, t)
	}
	return out
}
