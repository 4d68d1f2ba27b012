package database

import (
	"context"
	"fmt"

	"daily365_bot/internal/domain/content"
	"daily365_bot/internal/domain/settings"
	"daily365_bot/internal/domain/subscriber"
)

// Bootstrap seeds the rows the scheduler relies on: every curriculum slot (empty) and
// the welcome setting. Safe to run on every start.
func Bootstrap(ctx context.Context, slots content.Repository, store settings.Repository) (int, error) {
	created, err := slots.EnsureSlots(ctx, subscriber.TotalSlots)
	if err != nil {
		return 0, fmt.Errorf("failed to seed content slots: %w", err)
	}
	if err := store.SetDefault(ctx, settings.KeyWelcomeMessage, settings.DefaultWelcomeMessage); err != nil {
		return created, fmt.Errorf("failed to seed welcome message: %w", err)
	}
	return created, nil
}
