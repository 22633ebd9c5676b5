package models

import (
	"time"
)

type Repeat string

const (
	RepeatNone   Repeat = "none"
	RepeatDaily  Repeat = "daily"
	RepeatWeekly Repeat = "weekly"
)

// LessonDurations lists the bookable lesson lengths, in minutes. The
// lessons table carries the matching CHECK constraint.
var LessonDurations = []int{15, 30}

// ValidLessonDuration reports whether minutes is a bookable lesson length.
func ValidLessonDuration(minutes int) bool {
	for _, d := range LessonDurations {
		if minutes == d {
			return true
		}
	}
	return false
}

// TimeOfDay holds the wall-clock window of a recurring rule as "15:04"
// strings, UTC. Parsed and validated by schedule.Discretize.
type TimeOfDay struct {
	Start string `db:"time_start"`
	End   string `db:"time_end"`
}

// AvailabilitySlot is a recurring availability rule owned by one tutor.
// Start anchors the recurrence; End bounds it, nil means unbounded.
// The concrete daily window comes from Time, not from Start/End.
type AvailabilitySlot struct {
	ID        string       `db:"id"`
	OwnerID   string       `db:"owner_id"`
	Title     string       `db:"title"`
	Start     time.Time    `db:"start_at"`
	End       *time.Time   `db:"end_at"`
	Repeat    Repeat       `db:"repeat"`
	Weekday   time.Weekday `db:"weekday"`
	Time      TimeOfDay
	DeletedAt *time.Time `db:"deleted_at"`
}

// DiscreteSlot is one concrete materialization of a rule for a single day.
// Derived, never persisted.
type DiscreteSlot struct {
	ID      string    `json:"id"`
	OwnerID string    `json:"owner_id"`
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// Lesson is a booked span inside one rule's materialized slot.
// Read-only input to masking and conflict logic.
type Lesson struct {
	ID       string    `db:"id"`
	SlotID   string    `db:"slot_id"`
	Start    time.Time `db:"start_at"`
	Duration int       `db:"duration_minutes"`
}

func (l Lesson) End() time.Time {
	return l.Start.Add(time.Duration(l.Duration) * time.Minute)
}

// DaySchedule is one entry of the availability feed.
type DaySchedule struct {
	Day   string         `json:"day"`
	Slots []DiscreteSlot `json:"slots"`
}

// Pending actions against a user's slot set. A batch of actions is
// validated and applied atomically.

type PendingCreate struct {
	Title string
	Start time.Time
	End   time.Time
}

// PendingUpdate overrides stored fields independently; a nil field keeps
// the stored value.
type PendingUpdate struct {
	ID    string
	Start *time.Time
	End   *time.Time
}

type PendingDelete struct {
	ID string
}
