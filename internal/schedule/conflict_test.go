package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tutorhub-service/internal/models"
)

func conflictDay() (time.Time, time.Time) {
	now := time.Date(2026, time.September, 7, 8, 0, 0, 0, time.UTC)
	return now, DateOf(now)
}

func TestWouldConflict_RejectsOverlap(t *testing.T) {
	now, day := conflictDay()

	existing := []Interval{
		{ID: "s1", Start: at(day, 14, 0), End: at(day, 16, 0)},
	}
	creates := []models.PendingCreate{
		{Start: at(day, 15, 0), End: at(day, 17, 0)},
	}

	assert.True(t, WouldConflict(now, existing, creates, nil, nil))
}

func TestWouldConflict_AcceptsSharedBoundary(t *testing.T) {
	now, day := conflictDay()

	existing := []Interval{
		{ID: "s1", Start: at(day, 14, 0), End: at(day, 16, 0)},
	}
	creates := []models.PendingCreate{
		{Start: at(day, 16, 0), End: at(day, 18, 0)},
	}

	assert.False(t, WouldConflict(now, existing, creates, nil, nil))
}

func TestWouldConflict_RejectsDegenerate(t *testing.T) {
	now, day := conflictDay()

	creates := []models.PendingCreate{
		{Start: at(day, 16, 0), End: at(day, 16, 0)},
	}

	assert.True(t, WouldConflict(now, nil, creates, nil, nil))
}

func TestWouldConflict_RejectsPastStart(t *testing.T) {
	now, day := conflictDay()

	creates := []models.PendingCreate{
		{Start: at(day, 6, 0), End: at(day, 7, 0)},
	}

	assert.True(t, WouldConflict(now, nil, creates, nil, nil), "start before now")
}

func TestWouldConflict_RejectsDuplicateBoundary(t *testing.T) {
	now, day := conflictDay()

	existing := []Interval{
		{ID: "s1", Start: at(day, 14, 0), End: at(day, 15, 0)},
	}
	// Starts at the same instant as s1: caught by the boundary
	// uniqueness pre-filter before the pairwise scan ever runs.
	creates := []models.PendingCreate{
		{Start: at(day, 14, 0), End: at(day, 14, 30)},
	}

	assert.True(t, WouldConflict(now, existing, creates, nil, nil))
}

func TestWouldConflict_UpdateOverride(t *testing.T) {
	now, day := conflictDay()

	existing := []Interval{
		{ID: "s1", Start: at(day, 14, 0), End: at(day, 16, 0)},
		{ID: "s2", Start: at(day, 18, 0), End: at(day, 19, 0)},
	}

	// Moving s2 onto s1 conflicts.
	newStart := at(day, 15, 0)
	newEnd := at(day, 17, 0)
	updates := []models.PendingUpdate{
		{ID: "s2", Start: &newStart, End: &newEnd},
	}
	assert.True(t, WouldConflict(now, existing, nil, updates, nil))

	// Moving s2 to a free stretch does not.
	okStart := at(day, 16, 30)
	okEnd := at(day, 17, 30)
	updates = []models.PendingUpdate{
		{ID: "s2", Start: &okStart, End: &okEnd},
	}
	assert.False(t, WouldConflict(now, existing, nil, updates, nil))
}

func TestWouldConflict_PartialUpdateKeepsStoredField(t *testing.T) {
	now, day := conflictDay()

	existing := []Interval{
		{ID: "s1", Start: at(day, 14, 0), End: at(day, 16, 0)},
	}

	// Only the end moves; moving it before the stored start is degenerate.
	badEnd := at(day, 13, 0)
	updates := []models.PendingUpdate{{ID: "s1", End: &badEnd}}
	assert.True(t, WouldConflict(now, existing, nil, updates, nil))

	okEnd := at(day, 15, 0)
	updates = []models.PendingUpdate{{ID: "s1", End: &okEnd}}
	assert.False(t, WouldConflict(now, existing, nil, updates, nil))
}

func TestWouldConflict_DeleteUnblocksCreate(t *testing.T) {
	now, day := conflictDay()

	existing := []Interval{
		{ID: "s1", Start: at(day, 14, 0), End: at(day, 16, 0)},
	}
	creates := []models.PendingCreate{
		{Start: at(day, 14, 0), End: at(day, 16, 0)},
	}

	assert.True(t, WouldConflict(now, existing, creates, nil, nil))

	deletes := []models.PendingDelete{{ID: "s1"}}
	assert.False(t, WouldConflict(now, existing, creates, nil, deletes),
		"a slot deleted in the same batch does not count against creates")
}

func TestWouldConflict_EmptyBatch(t *testing.T) {
	now, day := conflictDay()

	existing := []Interval{
		{ID: "s1", Start: at(day, 14, 0), End: at(day, 16, 0)},
		{ID: "s2", Start: at(day, 16, 0), End: at(day, 18, 0)},
	}

	assert.False(t, WouldConflict(now, existing, nil, nil, nil))
}
