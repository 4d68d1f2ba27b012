package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"daily365_bot/internal/domain/content"
)

type ContentRepository struct {
	db *sql.DB
}

func NewContentRepository(db *sql.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

var _ content.Repository = (*ContentRepository)(nil)

func scanSlot(row rowScanner) (*content.Slot, error) {
	s := &content.Slot{}
	var rawTime string
	if err := row.Scan(&s.Number, &s.Body, &rawTime, &s.UpdatedAt); err != nil {
		return nil, err
	}
	st, err := content.ParseSendTime(rawTime)
	if err != nil {
		return nil, fmt.Errorf("slot %d has malformed send_time %q: %w", s.Number, rawTime, err)
	}
	s.SendTime = st
	return s, nil
}

func (r *ContentRepository) GetByNumber(ctx context.Context, number int) (*content.Slot, error) {
	query := `SELECT slot_number, body, send_time, updated_at FROM content_slots WHERE slot_number = $1`
	s, err := scanSlot(r.db.QueryRowContext(ctx, query, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("error getting content slot %d: %w", number, err)
	}
	return s, nil
}

func (r *ContentRepository) ListAll(ctx context.Context) ([]*content.Slot, error) {
	query := `SELECT slot_number, body, send_time, updated_at FROM content_slots ORDER BY slot_number`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing content slots: %w", err)
	}
	defer rows.Close()

	slots := make([]*content.Slot, 0, 365)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning content slot: %w", err)
		}
		slots = append(slots, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating content slots: %w", err)
	}
	return slots, nil
}

func (r *ContentRepository) Update(ctx context.Context, slot *content.Slot) error {
	query := `UPDATE content_slots SET body = $1, send_time = $2, updated_at = CURRENT_TIMESTAMP
               WHERE slot_number = $3`
	res, err := r.db.ExecContext(ctx, query, slot.Body, slot.SendTime.String(), slot.Number)
	if err != nil {
		return fmt.Errorf("error updating content slot %d: %w", slot.Number, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// EnsureSlots creates any missing slot in 1..total with an empty body. Existing slots are untouched.
func (r *ContentRepository) EnsureSlots(ctx context.Context, total int) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting slot seed transaction: %w", err)
	}
	defer tx.Rollback() // No-op after commit

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO content_slots (slot_number, body, send_time)
               VALUES ($1, '', $2) ON CONFLICT (slot_number) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("error preparing slot seed: %w", err)
	}
	defer stmt.Close()

	created := 0
	for n := 1; n <= total; n++ {
		res, err := stmt.ExecContext(ctx, n, content.DefaultSendTime.String())
		if err != nil {
			return 0, fmt.Errorf("error seeding slot %d: %w", n, err)
		}
		if affected, err := res.RowsAffected(); err == nil {
			created += int(affected)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing slot seed: %w", err)
	}
	return created, nil
}
