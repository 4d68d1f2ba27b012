package database

import (
	"context"
	"testing"

	"daily365_bot/internal/domain/content"
	"daily365_bot/internal/domain/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap_SeedsEverySlotOnce(t *testing.T) {
	db := setupTestDB(t)
	slots := NewContentRepository(db)
	store := NewSettingsRepository(db)
	ctx := context.Background()

	created, err := Bootstrap(ctx, slots, store)
	require.NoError(t, err)
	assert.Equal(t, 365, created)

	// Second run creates nothing and keeps edits.
	slot, err := slots.GetByNumber(ctx, 12)
	require.NoError(t, err)
	slot.Body = "Keep me"
	require.NoError(t, slots.Update(ctx, slot))

	created, err = Bootstrap(ctx, slots, store)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	all, err := slots.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 365)
	assert.Equal(t, 1, all[0].Number)
	assert.Equal(t, 365, all[364].Number)
	assert.Equal(t, "Keep me", all[11].Body)
	for _, s := range all {
		assert.Equal(t, content.DefaultSendTime, s.SendTime)
	}

	welcome, err := store.Get(ctx, settings.KeyWelcomeMessage)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultWelcomeMessage, welcome)
}

func TestContentRepository_GetAndUpdate(t *testing.T) {
	db := setupTestDB(t)
	slots := NewContentRepository(db)
	ctx := context.Background()
	_, err := slots.EnsureSlots(ctx, 365)
	require.NoError(t, err)

	slot, err := slots.GetByNumber(ctx, 100)
	require.NoError(t, err)
	assert.True(t, slot.IsEmpty())
	assert.Equal(t, content.DefaultSendTime, slot.SendTime)

	slot.Body = "Day one hundred"
	slot.SendTime = content.SendTime{Hour: 18, Minute: 45}
	require.NoError(t, slots.Update(ctx, slot))

	got, err := slots.GetByNumber(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Day one hundred", got.Body)
	assert.Equal(t, content.SendTime{Hour: 18, Minute: 45}, got.SendTime)

	_, err = slots.GetByNumber(ctx, 400)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	err = slots.Update(ctx, &content.Slot{Number: 0, Body: "x"})
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestSettingsRepository(t *testing.T) {
	store := NewSettingsRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSettingNotFound)

	require.NoError(t, store.Set(ctx, settings.KeyWelcomeMessage, "Hello"))
	require.NoError(t, store.SetDefault(ctx, settings.KeyWelcomeMessage, "ignored"))
	require.NoError(t, store.Set(ctx, settings.KeyWelcomeMessage, "Hello again"))

	got, err := store.Get(ctx, settings.KeyWelcomeMessage)
	require.NoError(t, err)
	assert.Equal(t, "Hello again", got)
}

func TestAdminRepository(t *testing.T) {
	admins := NewAdminRepository(setupTestDB(t))
	ctx := context.Background()

	ok, err := admins.IsAdmin(ctx, 55)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, admins.Add(ctx, 55))
	require.NoError(t, admins.Add(ctx, 55))

	ok, err = admins.IsAdmin(ctx, 55)
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := admins.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(55), list[0].TelegramID)

	removed, err := admins.Remove(ctx, 55)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = admins.Remove(ctx, 55)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLoadMigrations(t *testing.T) {
	for _, dir := range []string{"migrations/postgres", "migrations/sqlite"} {
		t.Run(dir, func(t *testing.T) {
			migrations, err := loadMigrations(dir)
			require.NoError(t, err)
			require.Len(t, migrations, 4)
			for i, m := range migrations {
				assert.Equal(t, float64(i+1), m.Version)
				assert.NotEmpty(t, m.Script)
			}
		})
	}
}
