package admin

import (
	"context"
	"time"
)

// Admin is a Telegram account allowed to run content-editing commands.
type Admin struct {
	TelegramID int64
	GrantedAt  time.Time
}

// Repository stores the admin allowlist.
type Repository interface {
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)
	Add(ctx context.Context, telegramID int64) error // No-op when already present
	Remove(ctx context.Context, telegramID int64) (bool, error)
	List(ctx context.Context) ([]*Admin, error)
}
