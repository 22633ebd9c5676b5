package schedule

import (
	"errors"
	"fmt"
	"sort"

	"tutorhub-service/internal/models"
)

// ErrLessonStartCollision means two lessons against the same slot share a
// start instant. The conflict validator upstream makes this impossible, so
// hitting it is a broken invariant, not a recoverable condition.
var ErrLessonStartCollision = errors.New("two lessons share a start instant")

// ErrBadLessonDuration means a lesson carries a length outside
// models.LessonDurations. The lessons table CHECK makes this impossible,
// so hitting it is a broken invariant too.
var ErrBadLessonDuration = errors.New("lesson duration is not bookable")

// MaskLessons subtracts the booked lesson spans from one discrete slot and
// returns the residual free sub-slots, disjoint and ordered by start.
// The union of the result plus the lesson spans reconstructs the input slot
// exactly; degenerate sub-slots are dropped.
func MaskLessons(slot models.DiscreteSlot, lessons []models.Lesson) ([]models.DiscreteSlot, error) {
	const op = "schedule.MaskLessons"

	if len(lessons) == 0 {
		return []models.DiscreteSlot{slot}, nil
	}

	for _, lesson := range lessons {
		if !models.ValidLessonDuration(lesson.Duration) {
			return nil, fmt.Errorf("%s: lesson %s: %w", op, lesson.ID, ErrBadLessonDuration)
		}
	}

	sorted := make([]models.Lesson, len(lessons))
	copy(sorted, lessons)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start.Equal(sorted[i-1].Start) {
			return nil, fmt.Errorf("%s: slot %s: %w", op, slot.ID, ErrLessonStartCollision)
		}
	}

	free := make([]models.DiscreteSlot, 0, len(sorted)+1)
	remaining := slot

	for _, lesson := range sorted {
		// A lesson ending at or before the frontier cannot carve anything
		// out; letting it through would drag the frontier backwards and
		// emit free time outside the slot window.
		if !lesson.End().After(remaining.Start) {
			continue
		}

		left := remaining
		left.End = lesson.Start
		if left.End.After(remaining.End) {
			left.End = remaining.End
		}
		if left.Start.Before(left.End) {
			free = append(free, left)
		}

		remaining.Start = lesson.End()
	}

	if remaining.Start.Before(remaining.End) {
		free = append(free, remaining)
	}

	return free, nil
}
