package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorhub-service/internal/models"
)

func testSlot() models.DiscreteSlot {
	day := time.Date(2026, time.September, 9, 0, 0, 0, 0, time.UTC)
	return models.DiscreteSlot{
		ID:      "r1",
		OwnerID: "tutor-1",
		Start:   at(day, 14, 0),
		End:     at(day, 18, 0),
	}
}

func lesson(id string, start time.Time, minutes int) models.Lesson {
	return models.Lesson{ID: id, SlotID: "r1", Start: start, Duration: minutes}
}

func totalDuration(slots []models.DiscreteSlot) time.Duration {
	var total time.Duration
	for _, s := range slots {
		total += s.End.Sub(s.Start)
	}
	return total
}

func TestMaskLessons_NoLessons(t *testing.T) {
	slot := testSlot()

	free, err := MaskLessons(slot, nil)
	require.NoError(t, err)

	require.Len(t, free, 1)
	assert.Equal(t, slot, free[0])
}

func TestMaskLessons_SplitsAroundBookings(t *testing.T) {
	slot := testSlot()

	free, err := MaskLessons(slot, []models.Lesson{
		lesson("l2", at(DateOf(slot.Start), 16, 0), 30),
		lesson("l1", at(DateOf(slot.Start), 14, 30), 30),
	})
	require.NoError(t, err)

	require.Len(t, free, 3)

	assert.Equal(t, at(DateOf(slot.Start), 14, 0), free[0].Start)
	assert.Equal(t, at(DateOf(slot.Start), 14, 30), free[0].End)

	assert.Equal(t, at(DateOf(slot.Start), 15, 0), free[1].Start)
	assert.Equal(t, at(DateOf(slot.Start), 16, 0), free[1].End)

	assert.Equal(t, at(DateOf(slot.Start), 16, 30), free[2].Start)
	assert.Equal(t, at(DateOf(slot.Start), 18, 0), free[2].End)
}

func TestMaskLessons_RoundTrip(t *testing.T) {
	slot := testSlot()
	day := DateOf(slot.Start)

	lessons := []models.Lesson{
		lesson("l1", at(day, 14, 0), 30),
		lesson("l2", at(day, 15, 0), 15),
		lesson("l3", at(day, 17, 30), 30),
	}

	free, err := MaskLessons(slot, lessons)
	require.NoError(t, err)

	// The free sub-slots plus the lesson spans reconstruct the slot.
	booked := time.Duration(30+15+30) * time.Minute
	assert.Equal(t, slot.End.Sub(slot.Start)-booked, totalDuration(free))

	// Disjoint and ordered.
	for i := 1; i < len(free); i++ {
		assert.False(t, free[i].Start.Before(free[i-1].End))
	}

	// Re-masking the residue is a no-op: no lesson intersects any
	// free sub-slot.
	for _, f := range free {
		for _, l := range lessons {
			assert.False(t, Overlaps(f.Start, f.End, l.Start, l.End()))
		}
	}
}

func TestMaskLessons_LeadingLessonDropsEmptyHead(t *testing.T) {
	slot := testSlot()
	day := DateOf(slot.Start)

	free, err := MaskLessons(slot, []models.Lesson{lesson("l1", at(day, 14, 0), 30)})
	require.NoError(t, err)

	require.Len(t, free, 1)
	assert.Equal(t, at(day, 14, 30), free[0].Start)
	assert.Equal(t, slot.End, free[0].End)
}

func TestMaskLessons_FullyBooked(t *testing.T) {
	slot := testSlot()
	day := DateOf(slot.Start)

	var lessons []models.Lesson
	for i := 0; i < 8; i++ {
		start := at(day, 14, 0).Add(time.Duration(i) * 30 * time.Minute)
		lessons = append(lessons, lesson(start.String(), start, 30))
	}

	free, err := MaskLessons(slot, lessons)
	require.NoError(t, err)
	assert.Empty(t, free)
}

func TestMaskLessons_LessonBeforeWindowLeavesSlotIntact(t *testing.T) {
	slot := testSlot()
	day := DateOf(slot.Start)

	// Same day, same rule, but ends hours before the slot opens. It must
	// not drag the free time backwards past the slot start.
	free, err := MaskLessons(slot, []models.Lesson{lesson("l1", at(day, 9, 0), 30)})
	require.NoError(t, err)

	require.Len(t, free, 1)
	assert.Equal(t, slot, free[0])
	for _, f := range free {
		assert.False(t, f.Start.Before(slot.Start))
	}
}

func TestMaskLessons_LessonStraddlingWindowStart(t *testing.T) {
	slot := testSlot()
	day := DateOf(slot.Start)

	free, err := MaskLessons(slot, []models.Lesson{lesson("l1", at(day, 13, 45), 30)})
	require.NoError(t, err)

	require.Len(t, free, 1)
	assert.Equal(t, at(day, 14, 15), free[0].Start)
	assert.Equal(t, slot.End, free[0].End)
}

func TestMaskLessons_DuplicateStartIsFatal(t *testing.T) {
	slot := testSlot()
	day := DateOf(slot.Start)

	_, err := MaskLessons(slot, []models.Lesson{
		lesson("l1", at(day, 15, 0), 30),
		lesson("l2", at(day, 15, 0), 15),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLessonStartCollision)
}

func TestMaskLessons_UnbookableDurationIsFatal(t *testing.T) {
	slot := testSlot()
	day := DateOf(slot.Start)

	_, err := MaskLessons(slot, []models.Lesson{lesson("l1", at(day, 15, 0), 45)})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadLessonDuration)
}
