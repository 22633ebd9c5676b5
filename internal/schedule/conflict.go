package schedule

import (
	"time"

	"tutorhub-service/internal/models"
)

// Interval is the conflict-validation view of one stored slot: the base
// occurrence window, already fetched by the caller. The validator does no
// I/O of its own; the caller is responsible for taking the snapshot and
// the eventual write inside one transaction.
type Interval struct {
	ID    string
	Start time.Time
	End   time.Time
}

// WouldConflict reports whether applying the pending actions to the
// snapshot would leave the owner's slot set with a temporal overlap or a
// degenerate interval. The batch is judged as a whole: either every action
// is acceptable or the batch is rejected.
func WouldConflict(now time.Time, existing []Interval, creates []models.PendingCreate, updates []models.PendingUpdate, deletes []models.PendingDelete) bool {
	deleted := make(map[string]struct{}, len(deletes))
	for _, d := range deletes {
		deleted[d.ID] = struct{}{}
	}

	pending := make(map[string]models.PendingUpdate, len(updates))
	for _, u := range updates {
		pending[u.ID] = u
	}

	candidates := make([]Interval, 0, len(existing)+len(creates))

	for _, slot := range existing {
		if _, gone := deleted[slot.ID]; gone {
			continue
		}

		if u, ok := pending[slot.ID]; ok {
			// Overrides apply independently; an omitted field keeps
			// the stored value.
			if u.Start != nil {
				slot.Start = *u.Start
			}
			if u.End != nil {
				slot.End = *u.End
			}
			if degenerate(slot.Start, slot.End, now) {
				return true
			}
		}

		candidates = append(candidates, slot)
	}

	for _, c := range creates {
		if degenerate(c.Start, c.End, now) {
			return true
		}
		candidates = append(candidates, Interval{Start: c.Start, End: c.End})
	}

	// Duplicate boundary instants are a cheap short-circuit before the
	// pairwise scan: no two slots of one owner may share a start or an end.
	starts := make(map[int64]struct{}, len(candidates))
	ends := make(map[int64]struct{}, len(candidates))
	for _, c := range candidates {
		if _, seen := starts[c.Start.UnixNano()]; seen {
			return true
		}
		if _, seen := ends[c.End.UnixNano()]; seen {
			return true
		}
		starts[c.Start.UnixNano()] = struct{}{}
		ends[c.End.UnixNano()] = struct{}{}
	}

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if Overlaps(candidates[i].Start, candidates[i].End, candidates[j].Start, candidates[j].End) {
				return true
			}
		}
	}

	return false
}

func degenerate(start, end, now time.Time) bool {
	return !start.Before(end) || start.Before(now)
}
