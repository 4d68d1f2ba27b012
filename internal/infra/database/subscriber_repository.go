package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt" // For error wrapping
	"time"

	"daily365_bot/internal/domain/subscriber"
)

const subscriberColumns = `id, telegram_id, username, timezone, current_slot, last_delivery_date,
               is_active, started_at, created_at, updated_at`

// dateLayout is how calendar dates are bound; both drivers accept it for DATE columns.
const dateLayout = "2006-01-02"

type SubscriberRepository struct {
	db *sql.DB
}

func NewSubscriberRepository(db *sql.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

var _ subscriber.Repository = (*SubscriberRepository)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(row rowScanner) (*subscriber.Subscriber, error) {
	s := &subscriber.Subscriber{}
	err := row.Scan(&s.ID, &s.TelegramID, &s.Username, &s.Timezone, &s.CurrentSlot, &s.LastDeliveryDate,
		&s.IsActive, &s.StartedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SubscriberRepository) Create(ctx context.Context, s *subscriber.Subscriber) error {
	query := `INSERT INTO subscribers (telegram_id, username, timezone, current_slot, is_active)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING id`

	if s.Timezone == "" {
		s.Timezone = subscriber.DefaultTimezone
	}
	if s.CurrentSlot == 0 {
		s.CurrentSlot = 1
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query, s.TelegramID, s.Username, s.Timezone, s.CurrentSlot, s.IsActive).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTelegramID
		}
		return fmt.Errorf("error creating subscriber: %w", err)
	}

	stored, err := r.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("error reloading created subscriber: %w", err)
	}
	*s = *stored
	return nil
}

func (r *SubscriberRepository) GetByID(ctx context.Context, id int64) (*subscriber.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE id = $1`
	s, err := scanSubscriber(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("error getting subscriber by ID: %w", err)
	}
	return s, nil
}

func (r *SubscriberRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*subscriber.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE telegram_id = $1`
	s, err := scanSubscriber(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("error getting subscriber by Telegram ID: %w", err)
	}
	return s, nil
}

// ListActive is the scheduler's only query: a single predicate on is_active.
func (r *SubscriberRepository) ListActive(ctx context.Context) ([]*subscriber.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE is_active = TRUE ORDER BY id`
	return r.list(ctx, query, "active")
}

func (r *SubscriberRepository) ListAll(ctx context.Context) ([]*subscriber.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers ORDER BY id`
	return r.list(ctx, query, "all")
}

func (r *SubscriberRepository) list(ctx context.Context, query, kind string) ([]*subscriber.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing %s subscribers: %w", kind, err)
	}
	defer rows.Close()

	subscribers := make([]*subscriber.Subscriber, 0)
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning %s subscriber: %w", kind, err)
		}
		subscribers = append(subscribers, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s subscribers: %w", kind, err)
	}
	return subscribers, nil
}

func (r *SubscriberRepository) Count(ctx context.Context) (int, int, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) FROM subscribers`
	var total, active int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("error counting subscribers: %w", err)
	}
	return total, active, nil
}

func (r *SubscriberRepository) RecordDelivery(ctx context.Context, id int64, fromSlot int, date time.Time) error {
	query := `UPDATE subscribers
               SET current_slot = $1, last_delivery_date = $2, updated_at = CURRENT_TIMESTAMP
               WHERE id = $3 AND current_slot = $4`

	res, err := r.db.ExecContext(ctx, query, subscriber.NextSlot(fromSlot), date.Format(dateLayout), id, fromSlot)
	if err != nil {
		return fmt.Errorf("error recording delivery: %w", err)
	}
	return r.expectOneRow(ctx, res, id, true)
}

func (r *SubscriberRepository) Deactivate(ctx context.Context, id int64) error {
	return r.setActive(ctx, id, false)
}

func (r *SubscriberRepository) Reactivate(ctx context.Context, id int64) error {
	return r.setActive(ctx, id, true)
}

func (r *SubscriberRepository) setActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE subscribers SET is_active = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("error updating subscriber active flag: %w", err)
	}
	return r.expectOneRow(ctx, res, id, false)
}

func (r *SubscriberRepository) UpdateTimezone(ctx context.Context, id int64, timezone string) error {
	query := `UPDATE subscribers SET timezone = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, timezone, id)
	if err != nil {
		return fmt.Errorf("error updating subscriber timezone: %w", err)
	}
	return r.expectOneRow(ctx, res, id, false)
}

func (r *SubscriberRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	query := `UPDATE subscribers SET username = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	name := sql.NullString{String: username, Valid: username != ""}
	res, err := r.db.ExecContext(ctx, query, name, id)
	if err != nil {
		return fmt.Errorf("error updating subscriber username: %w", err)
	}
	return r.expectOneRow(ctx, res, id, false)
}

// expectOneRow turns "no row updated" into a sentinel. With guarded=true a missing row
// is told apart from a guard mismatch.
func (r *SubscriberRepository) expectOneRow(ctx context.Context, res sql.Result, id int64, guarded bool) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	if !guarded {
		return ErrSubscriberNotFound
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrStaleSubscriber
}
