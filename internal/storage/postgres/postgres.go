package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tutorhub-service/internal/models"
	"tutorhub-service/internal/storage"
	"tutorhub-service/pkg/response"

	_ "github.com/lib/pq"
)

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

func (s *Storage) BeginTx(ctx context.Context) (storage.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func sqlTx(tx storage.Tx) (*sql.Tx, error) {
	t, ok := tx.(*sql.Tx)
	if !ok {
		return nil, fmt.Errorf("unexpected tx type %T", tx)
	}
	return t, nil
}

const slotColumns = `id, owner_id, title, start_at, end_at, repeat, weekday, time_start, time_end`

func scanSlots(rows *sql.Rows) ([]*models.AvailabilitySlot, error) {
	defer rows.Close()

	var slots []*models.AvailabilitySlot

	for rows.Next() {
		var slot models.AvailabilitySlot
		var weekday int

		err := rows.Scan(
			&slot.ID,
			&slot.OwnerID,
			&slot.Title,
			&slot.Start,
			&slot.End,
			&slot.Repeat,
			&weekday,
			&slot.Time.Start,
			&slot.Time.End,
		)
		if err != nil {
			return nil, err
		}

		slot.Weekday = time.Weekday(weekday)
		slots = append(slots, &slot)
	}

	return slots, rows.Err()
}

func listOwnerSlots(ctx context.Context, q queryer, ownerID string) ([]*models.AvailabilitySlot, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY start_at`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}

	return scanSlots(rows)
}

// ListOwnerSlots returns the owner's non-deleted availability rules.
func (s *Storage) ListOwnerSlots(ctx context.Context, ownerID string) ([]*models.AvailabilitySlot, error) {
	const op = "storage.postgres.ListOwnerSlots"

	slots, err := listOwnerSlots(ctx, s.db, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return slots, nil
}

// ListOwnerSlotsTx is the transactional snapshot read the conflict
// validation runs against.
func (s *Storage) ListOwnerSlotsTx(ctx context.Context, tx storage.Tx, ownerID string) ([]*models.AvailabilitySlot, error) {
	const op = "storage.postgres.ListOwnerSlotsTx"

	t, err := sqlTx(tx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slots, err := listOwnerSlots(ctx, t, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return slots, nil
}

func (s *Storage) GetSlot(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	const op = "storage.postgres.GetSlot"

	var slot models.AvailabilitySlot
	var weekday int

	err := s.db.QueryRowContext(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE id = $1 AND deleted_at IS NULL`,
		id,
	).Scan(
		&slot.ID,
		&slot.OwnerID,
		&slot.Title,
		&slot.Start,
		&slot.End,
		&slot.Repeat,
		&weekday,
		&slot.Time.Start,
		&slot.Time.End,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slot.Weekday = time.Weekday(weekday)

	return &slot, nil
}

// ListOwnerLessons returns the lessons booked against any of the owner's
// rules with a start inside [from, to).
func (s *Storage) ListOwnerLessons(ctx context.Context, ownerID string, from, to time.Time) ([]models.Lesson, error) {
	const op = "storage.postgres.ListOwnerLessons"

	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.slot_id, l.start_at, l.duration_minutes
		FROM lessons l
		JOIN availability_slots s ON s.id = l.slot_id
		WHERE s.owner_id = $1 AND l.start_at >= $2 AND l.start_at < $3
		ORDER BY l.start_at`,
		ownerID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var lessons []models.Lesson

	for rows.Next() {
		var lesson models.Lesson

		if err := rows.Scan(&lesson.ID, &lesson.SlotID, &lesson.Start, &lesson.Duration); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		lessons = append(lessons, lesson)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lessons, nil
}

func (s *Storage) CreateSlotTx(ctx context.Context, tx storage.Tx, slot *models.AvailabilitySlot) error {
	const op = "storage.postgres.CreateSlotTx"

	t, err := sqlTx(tx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = t.ExecContext(ctx, `
		INSERT INTO availability_slots (id, owner_id, title, start_at, end_at, repeat, weekday, time_start, time_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		slot.ID, slot.OwnerID, slot.Title, slot.Start, slot.End, slot.Repeat, int(slot.Weekday), slot.Time.Start, slot.Time.End,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) UpdateSlotTx(ctx context.Context, tx storage.Tx, slot *models.AvailabilitySlot) error {
	const op = "storage.postgres.UpdateSlotTx"

	t, err := sqlTx(tx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := t.ExecContext(ctx, `
		UPDATE availability_slots
		SET start_at = $2, end_at = $3, time_start = $4, time_end = $5
		WHERE id = $1 AND deleted_at IS NULL`,
		slot.ID, slot.Start, slot.End, slot.Time.Start, slot.Time.End,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

func (s *Storage) CountSlotLessonsTx(ctx context.Context, tx storage.Tx, slotID string) (int, error) {
	const op = "storage.postgres.CountSlotLessonsTx"

	t, err := sqlTx(tx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var n int
	if err := t.QueryRowContext(ctx, `SELECT COUNT(*) FROM lessons WHERE slot_id = $1`, slotID).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// SoftDeleteSlotTx marks a rule deleted but keeps the row so booked
// lessons keep a valid parent.
func (s *Storage) SoftDeleteSlotTx(ctx context.Context, tx storage.Tx, id string) error {
	const op = "storage.postgres.SoftDeleteSlotTx"

	t, err := sqlTx(tx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := t.ExecContext(ctx, `
		UPDATE availability_slots SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

// DeleteSlotTx removes a rule with no booked lessons.
func (s *Storage) DeleteSlotTx(ctx context.Context, tx storage.Tx, id string) error {
	const op = "storage.postgres.DeleteSlotTx"

	t, err := sqlTx(tx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := t.ExecContext(ctx, `DELETE FROM availability_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}
