package schedule

import (
	"fmt"
	"time"

	"tutorhub-service/internal/models"
)

// FeedDays is the look-ahead window of the availability feed. Callers
// needing a longer horizon re-invoke with a shifted reference day.
const FeedDays = 14

// Unpack materializes the availability feed: for each day of the window
// starting at now's UTC date, selects the applicable rules, discretizes
// them and masks out the booked lessons. The result always has exactly
// FeedDays entries, in ascending day order.
func Unpack(rules []models.AvailabilitySlot, lessons []models.Lesson, now time.Time) ([]models.DaySchedule, error) {
	const op = "schedule.Unpack"

	today := DateOf(now)
	feed := make([]models.DaySchedule, 0, FeedDays)

	for offset := 0; offset < FeedDays; offset++ {
		day := today.AddDate(0, 0, offset)
		slots := make([]models.DiscreteSlot, 0)

		for _, rule := range rules {
			if !IsApplicable(rule, day) {
				continue
			}

			discrete, err := Discretize(rule, day)
			if err != nil {
				return nil, fmt.Errorf("%s: rule %s: %w", op, rule.ID, err)
			}

			masked, err := MaskLessons(discrete, lessonsForDay(lessons, rule.ID, day))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}

			slots = append(slots, masked...)
		}

		feed = append(feed, models.DaySchedule{
			Day:   day.Format(time.DateOnly),
			Slots: slots,
		})
	}

	return feed, nil
}

func lessonsForDay(lessons []models.Lesson, slotID string, day time.Time) []models.Lesson {
	var matched []models.Lesson
	for _, lesson := range lessons {
		if lesson.SlotID == slotID && DateOf(lesson.Start).Equal(day) {
			matched = append(matched, lesson)
		}
	}
	return matched
}
