package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutorhub-service/api"
	"tutorhub-service/internal/lock"
	"tutorhub-service/internal/models"
	"tutorhub-service/internal/schedule"
	"tutorhub-service/internal/storage"
	"tutorhub-service/pkg/response"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

const feedCacheSize = 256

type Service struct {
	store  Store
	locker lock.Locker
	feed   *lru.Cache[string, []api.DayAvailability]
	now    func() time.Time
}

type Store interface {
	BeginTx(ctx context.Context) (storage.Tx, error)

	// Slots
	ListOwnerSlots(ctx context.Context, ownerID string) ([]*models.AvailabilitySlot, error)
	ListOwnerSlotsTx(ctx context.Context, tx storage.Tx, ownerID string) ([]*models.AvailabilitySlot, error)
	GetSlot(ctx context.Context, id string) (*models.AvailabilitySlot, error)
	CreateSlotTx(ctx context.Context, tx storage.Tx, slot *models.AvailabilitySlot) error
	UpdateSlotTx(ctx context.Context, tx storage.Tx, slot *models.AvailabilitySlot) error
	SoftDeleteSlotTx(ctx context.Context, tx storage.Tx, id string) error
	DeleteSlotTx(ctx context.Context, tx storage.Tx, id string) error

	// Lessons
	ListOwnerLessons(ctx context.Context, ownerID string, from, to time.Time) ([]models.Lesson, error)
	CountSlotLessonsTx(ctx context.Context, tx storage.Tx, slotID string) (int, error)
}

func NewService(store Store, locker lock.Locker) (*Service, error) {
	const op = "service.NewService"

	feed, err := lru.New[string, []api.DayAvailability](feedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Service{
		store:  store,
		locker: locker,
		feed:   feed,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// ApplySlotChanges validates and applies a batch of create/update/delete
// actions against one owner's availability rules. The batch succeeds or
// fails as a whole: validation runs over a transactional snapshot, under
// a per-owner lock, and nothing is written when any action conflicts.
func (s *Service) ApplySlotChanges(ctx context.Context, req *api.SlotBatchRequest) error {
	const op = "service.ApplySlotChanges"

	if req.OwnerID == "" {
		return fmt.Errorf("%s: owner_id is required: %w", op, response.ErrBadRequest)
	}

	now := s.now()

	newSlots, creates, err := parseCreates(req.Creates, req.OwnerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	updates, err := parseUpdates(req.Updates)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	deletes := make([]models.PendingDelete, 0, len(req.Deletes))
	for _, d := range req.Deletes {
		deletes = append(deletes, models.PendingDelete{ID: d.ID})
	}

	lockKey := fmt.Sprintf("slots:%s", req.OwnerID)

	locked, err := s.locker.Lock(ctx, lockKey, 10*time.Second)
	if err != nil {
		return fmt.Errorf("%s: lock error: %w", op, err)
	}
	if !locked {
		return fmt.Errorf("%s: %w", op, response.ErrLocked)
	}
	defer func() {
		_ = s.locker.Unlock(ctx, lockKey)
	}()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stored, err := s.store.ListOwnerSlotsTx(ctx, tx, req.OwnerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	snapshot, err := baseIntervals(stored)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if schedule.WouldConflict(now, snapshot, creates, updates, deletes) {
		return fmt.Errorf("%s: %w", op, response.ErrConflict)
	}

	for _, slot := range newSlots {
		if err := s.store.CreateSlotTx(ctx, tx, slot); err != nil {
			return fmt.Errorf("%s: create slot: %w", op, err)
		}
	}

	byID := make(map[string]*models.AvailabilitySlot, len(stored))
	for _, slot := range stored {
		byID[slot.ID] = slot
	}

	for _, u := range updates {
		slot, ok := byID[u.ID]
		if !ok {
			return fmt.Errorf("%s: update slot %s: %w", op, u.ID, response.ErrNotFound)
		}

		// Same one-day rule as creates, applied to the interval after the
		// overrides. An end spilling onto the next day would be stored as
		// a wall-clock window that reads end-before-start.
		occ, err := schedule.Discretize(*slot, slot.Start)
		if err != nil {
			return fmt.Errorf("%s: update slot %s: %w", op, u.ID, err)
		}
		effStart, effEnd := occ.Start, occ.End
		if u.Start != nil {
			effStart = *u.Start
		}
		if u.End != nil {
			effEnd = *u.End
		}
		if !schedule.DateOf(effStart).Equal(schedule.DateOf(effEnd)) {
			return fmt.Errorf("%s: update slot %s: start and end must fall on one day: %w", op, u.ID, response.ErrBadRequest)
		}

		if u.Start != nil {
			slot.Start = u.Start.UTC()
			slot.Time.Start = u.Start.UTC().Format("15:04")
		}
		if u.End != nil {
			slot.Time.End = u.End.UTC().Format("15:04")
		}

		if err := s.store.UpdateSlotTx(ctx, tx, slot); err != nil {
			return fmt.Errorf("%s: update slot: %w", op, err)
		}
	}

	for _, d := range deletes {
		n, err := s.store.CountSlotLessonsTx(ctx, tx, d.ID)
		if err != nil {
			return fmt.Errorf("%s: count lessons: %w", op, err)
		}

		// A rule with booked lessons is only soft-deleted so the
		// lessons keep a valid parent.
		if n > 0 {
			err = s.store.SoftDeleteSlotTx(ctx, tx, d.ID)
		} else {
			err = s.store.DeleteSlotTx(ctx, tx, d.ID)
		}
		if err != nil {
			return fmt.Errorf("%s: delete slot: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	s.feed.Remove(req.OwnerID)

	return nil
}

// AvailabilityFeed returns the owner's masked availability for the next
// schedule.FeedDays days. Results are cached per owner until the next
// accepted slot mutation.
func (s *Service) AvailabilityFeed(ctx context.Context, ownerID string) ([]api.DayAvailability, error) {
	const op = "service.AvailabilityFeed"

	if days, ok := s.feed.Get(ownerID); ok {
		return days, nil
	}

	stored, err := s.store.ListOwnerSlots(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	from := schedule.DateOf(now)
	to := from.AddDate(0, 0, schedule.FeedDays)

	lessons, err := s.store.ListOwnerLessons(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rules := make([]models.AvailabilitySlot, 0, len(stored))
	for _, slot := range stored {
		rules = append(rules, *slot)
	}

	feed, err := schedule.Unpack(rules, lessons, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	days := make([]api.DayAvailability, 0, len(feed))
	for _, day := range feed {
		slots := make([]api.DiscreteSlot, 0, len(day.Slots))
		for _, slot := range day.Slots {
			slots = append(slots, api.DiscreteSlot{
				ID:      slot.ID,
				OwnerID: slot.OwnerID,
				Title:   slot.Title,
				Start:   slot.Start,
				End:     slot.End,
			})
		}
		days = append(days, api.DayAvailability{Day: day.Day, Slots: slots})
	}

	s.feed.Add(ownerID, days)

	return days, nil
}

func (s *Service) GetSlot(ctx context.Context, id string) (*api.SlotResponse, error) {
	const op = "service.GetSlot"

	slot, err := s.store.GetSlot(ctx, id)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &api.SlotResponse{
		ID:        slot.ID,
		OwnerID:   slot.OwnerID,
		Title:     slot.Title,
		Start:     slot.Start,
		End:       slot.End,
		Repeat:    string(slot.Repeat),
		Weekday:   int(slot.Weekday),
		TimeStart: slot.Time.Start,
		TimeEnd:   slot.Time.End,
	}, nil
}

// baseIntervals materializes each stored rule's base occurrence, the
// interval the conflict validator compares against.
func baseIntervals(slots []*models.AvailabilitySlot) ([]schedule.Interval, error) {
	intervals := make([]schedule.Interval, 0, len(slots))

	for _, slot := range slots {
		discrete, err := schedule.Discretize(*slot, slot.Start)
		if err != nil {
			return nil, err
		}

		intervals = append(intervals, schedule.Interval{
			ID:    slot.ID,
			Start: discrete.Start,
			End:   discrete.End,
		})
	}

	return intervals, nil
}

func parseCreates(creates []api.SlotCreate, ownerID string) ([]*models.AvailabilitySlot, []models.PendingCreate, error) {
	slots := make([]*models.AvailabilitySlot, 0, len(creates))
	pending := make([]models.PendingCreate, 0, len(creates))

	for _, c := range creates {
		start, err := time.Parse(time.RFC3339, c.Start)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start: %w", response.ErrBadRequest)
		}

		end, err := time.Parse(time.RFC3339, c.End)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end: %w", response.ErrBadRequest)
		}

		start = start.UTC()
		end = end.UTC()

		if !schedule.DateOf(start).Equal(schedule.DateOf(end)) {
			return nil, nil, fmt.Errorf("start and end must fall on one day: %w", response.ErrBadRequest)
		}

		repeat := models.Repeat(c.Repeat)
		if c.Repeat == "" {
			repeat = models.RepeatNone
		}
		if repeat != models.RepeatNone && repeat != models.RepeatDaily && repeat != models.RepeatWeekly {
			return nil, nil, fmt.Errorf("invalid repeat %q: %w", c.Repeat, response.ErrBadRequest)
		}

		weekday := start.Weekday()
		if c.Weekday != nil {
			if *c.Weekday < 0 || *c.Weekday > 6 {
				return nil, nil, fmt.Errorf("invalid weekday %d: %w", *c.Weekday, response.ErrBadRequest)
			}
			weekday = time.Weekday(*c.Weekday)
		}

		slots = append(slots, &models.AvailabilitySlot{
			ID:      uuid.NewString(),
			OwnerID: ownerID,
			Title:   c.Title,
			Start:   start,
			Repeat:  repeat,
			Weekday: weekday,
			Time: models.TimeOfDay{
				Start: start.Format("15:04"),
				End:   end.Format("15:04"),
			},
		})

		pending = append(pending, models.PendingCreate{
			Title: c.Title,
			Start: start,
			End:   end,
		})
	}

	return slots, pending, nil
}

func parseUpdates(updates []api.SlotUpdate) ([]models.PendingUpdate, error) {
	pending := make([]models.PendingUpdate, 0, len(updates))

	for _, u := range updates {
		if u.ID == "" {
			return nil, fmt.Errorf("update id is required: %w", response.ErrBadRequest)
		}

		p := models.PendingUpdate{ID: u.ID}

		if u.Start != nil {
			start, err := time.Parse(time.RFC3339, *u.Start)
			if err != nil {
				return nil, fmt.Errorf("invalid start: %w", response.ErrBadRequest)
			}
			start = start.UTC()
			p.Start = &start
		}

		if u.End != nil {
			end, err := time.Parse(time.RFC3339, *u.End)
			if err != nil {
				return nil, fmt.Errorf("invalid end: %w", response.ErrBadRequest)
			}
			end = end.UTC()
			p.End = &end
		}

		pending = append(pending, p)
	}

	return pending, nil
}
