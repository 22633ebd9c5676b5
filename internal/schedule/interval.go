package schedule

import (
	"fmt"
	"time"

	"tutorhub-service/internal/models"
)

// timeOfDayLayout is the wall-clock format stored on availability rules.
const timeOfDayLayout = "15:04"

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Intervals that only touch at an endpoint do
// not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DateOf truncates t to UTC midnight.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsApplicable reports whether rule materializes on the given calendar day.
// Bounds and weekdays are evaluated after UTC normalization.
func IsApplicable(rule models.AvailabilitySlot, day time.Time) bool {
	d := DateOf(day)
	anchor := DateOf(rule.Start)

	switch rule.Repeat {
	case models.RepeatNone:
		return d.Equal(anchor)
	case models.RepeatDaily:
		return withinBounds(rule, d, anchor)
	case models.RepeatWeekly:
		return withinBounds(rule, d, anchor) && d.Weekday() == rule.Weekday
	default:
		return false
	}
}

func withinBounds(rule models.AvailabilitySlot, d, anchor time.Time) bool {
	if d.Before(anchor) {
		return false
	}
	if rule.End == nil {
		return true
	}
	return !d.After(DateOf(*rule.End))
}

// Discretize combines the rule's wall-clock window with the target calendar
// day, producing one concrete slot. Pure function of (rule, day).
func Discretize(rule models.AvailabilitySlot, day time.Time) (models.DiscreteSlot, error) {
	const op = "schedule.Discretize"

	startClock, err := time.Parse(timeOfDayLayout, rule.Time.Start)
	if err != nil {
		return models.DiscreteSlot{}, fmt.Errorf("%s: invalid start time %q: %w", op, rule.Time.Start, err)
	}

	endClock, err := time.Parse(timeOfDayLayout, rule.Time.End)
	if err != nil {
		return models.DiscreteSlot{}, fmt.Errorf("%s: invalid end time %q: %w", op, rule.Time.End, err)
	}

	d := DateOf(day)

	return models.DiscreteSlot{
		ID:      rule.ID,
		OwnerID: rule.OwnerID,
		Title:   rule.Title,
		Start:   d.Add(clockOffset(startClock)),
		End:     d.Add(clockOffset(endClock)),
	}, nil
}

func clockOffset(clock time.Time) time.Duration {
	return time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute
}
