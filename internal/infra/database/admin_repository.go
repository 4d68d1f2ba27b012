package database

import (
	"context"
	"database/sql"
	"fmt"

	"daily365_bot/internal/domain/admin"
)

type AdminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

var _ admin.Repository = (*AdminRepository)(nil)

func (r *AdminRepository) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins WHERE telegram_id = $1`, telegramID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("error checking admin %d: %w", telegramID, err)
	}
	return n > 0, nil
}

func (r *AdminRepository) Add(ctx context.Context, telegramID int64) error {
	query := `INSERT INTO admins (telegram_id) VALUES ($1) ON CONFLICT (telegram_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, telegramID); err != nil {
		return fmt.Errorf("error adding admin %d: %w", telegramID, err)
	}
	return nil
}

func (r *AdminRepository) Remove(ctx context.Context, telegramID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM admins WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return false, fmt.Errorf("error removing admin %d: %w", telegramID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *AdminRepository) List(ctx context.Context) ([]*admin.Admin, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT telegram_id, granted_at FROM admins ORDER BY granted_at`)
	if err != nil {
		return nil, fmt.Errorf("error listing admins: %w", err)
	}
	defer rows.Close()

	admins := make([]*admin.Admin, 0)
	for rows.Next() {
		a := &admin.Admin{}
		if err := rows.Scan(&a.TelegramID, &a.GrantedAt); err != nil {
			return nil, fmt.Errorf("error scanning admin: %w", err)
		}
		admins = append(admins, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admins: %w", err)
	}
	return admins, nil
}
