package telegram

import (
	"context"
	"strings"
	"testing"

	"daily365_bot/internal/app"
	"daily365_bot/internal/domain/settings"
	"daily365_bot/internal/infra/config"
	"daily365_bot/internal/infra/database"
	"daily365_bot/internal/infra/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminPassword = "open-sesame"

type commandsFixture struct {
	h    *Commands
	subs *database.SubscriberRepository
}

func newCommandsFixture(t *testing.T) *commandsFixture {
	t.Helper()
	db, err := database.NewSQLiteConnection(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db, config.DriverSQLite))

	subs := database.NewSubscriberRepository(db)
	slots := database.NewContentRepository(db)
	store := database.NewSettingsRepository(db)
	admins := database.NewAdminRepository(db)
	_, err = database.Bootstrap(context.Background(), slots, store)
	require.NoError(t, err)

	h := NewCommands(
		app.NewSubscriberService(subs, store),
		app.NewAdminService(admins, slots, store, subs, testAdminPassword),
		logger.Discard(),
	)
	return &commandsFixture{h: h, subs: subs}
}

func (f *commandsFixture) loginAdmin(t *testing.T, id int64) {
	t.Helper()
	reply := f.h.handleAdminLogin(context.Background(), request{SenderID: id, Payload: testAdminPassword})
	require.Contains(t, reply, "now an admin")
}

func TestCommandPayload(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "/start", want: ""},
		{text: "/timezone Europe/Berlin", want: "Europe/Berlin"},
		{text: "/setday@daily_bot 3 Line one\nLine two", want: "3 Line one\nLine two"},
		{text: "/setwelcome   Hello\n\nWorld  ", want: "Hello\n\nWorld"},
		{text: "plain text", want: "plain text"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, commandPayload(tt.text), tt.text)
	}
}

func TestParseSlotArgs(t *testing.T) {
	n, rest, err := parseSlotArgs("12 Hello\nthere")
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, "Hello\nthere", rest)

	n, rest, err = parseSlotArgs("7\t07:30")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "07:30", rest)

	for _, bad := range []string{"", "12", "x hello", "12   "} {
		_, _, err := parseSlotArgs(bad)
		assert.ErrorIs(t, err, errUsage, bad)
	}
}

func TestHandleStart(t *testing.T) {
	f := newCommandsFixture(t)
	ctx := context.Background()

	reply := f.h.handleStart(ctx, request{SenderID: 100, Username: "bob"})
	assert.Equal(t, settings.DefaultWelcomeMessage, reply)

	reply = f.h.handleStart(ctx, request{SenderID: 100, Username: "bob"})
	assert.Contains(t, reply, "already subscribed")

	s, err := f.subs.GetByTelegramID(ctx, 100)
	require.NoError(t, err)
	require.NoError(t, f.subs.Deactivate(ctx, s.ID))

	reply = f.h.handleStart(ctx, request{SenderID: 100, Username: "bob"})
	assert.Contains(t, reply, "Welcome back")
}

func TestHandleStatusAndTimezone(t *testing.T) {
	f := newCommandsFixture(t)
	ctx := context.Background()

	assert.Contains(t, f.h.handleStatus(ctx, request{SenderID: 5}), "not subscribed")
	assert.Contains(t, f.h.handleTimezone(ctx, request{SenderID: 5, Payload: "Asia/Tokyo"}), "not subscribed")

	f.h.handleStart(ctx, request{SenderID: 5})
	assert.Contains(t, f.h.handleStatus(ctx, request{SenderID: 5}), "day 1 of 365")

	assert.Contains(t, f.h.handleTimezone(ctx, request{SenderID: 5}), "Usage")
	assert.Contains(t, f.h.handleTimezone(ctx, request{SenderID: 5, Payload: "Moon/Base"}), "don't know")
	assert.Equal(t, "Time zone set to Asia/Tokyo.", f.h.handleTimezone(ctx, request{SenderID: 5, Payload: "Asia/Tokyo"}))
	assert.Contains(t, f.h.handleStatus(ctx, request{SenderID: 5}), "Asia/Tokyo")
}

func TestAdminCommands_SilentForNonAdmins(t *testing.T) {
	f := newCommandsFixture(t)
	ctx := context.Background()

	assert.Empty(t, f.h.handleAdminLogin(ctx, request{SenderID: 9, Payload: "guess"}))
	assert.Empty(t, f.h.adminOnly("/stats", f.h.handleStats)(ctx, request{SenderID: 9}))
	assert.Empty(t, f.h.adminOnly("/setday", f.h.handleSetDay)(ctx, request{SenderID: 9, Payload: "1 hijacked"}))
	assert.NotContains(t, f.h.handleHelp(ctx, request{SenderID: 9}), "Admin commands")
}

func TestAdminCommands_EditContent(t *testing.T) {
	f := newCommandsFixture(t)
	ctx := context.Background()
	f.loginAdmin(t, 1)
	admin := func(cmd string, fn handlerFunc, payload string) string {
		return f.h.adminOnly(cmd, fn)(ctx, request{SenderID: 1, Payload: payload})
	}

	assert.Contains(t, f.h.handleHelp(ctx, request{SenderID: 1}), "Admin commands")

	assert.Equal(t, "Day 3 updated.", admin("/setday", f.h.handleSetDay, "3 First line\nSecond line"))
	assert.Equal(t, "Day 3 now sends at 07:30 local time.", admin("/settime", f.h.handleSetTime, "3 07:30"))

	reply := admin("/day", f.h.handleDay, "3")
	assert.Contains(t, reply, "07:30")
	assert.Contains(t, reply, "First line\nSecond line")

	assert.Contains(t, admin("/day", f.h.handleDay, "2"), "empty")
	assert.Contains(t, admin("/day", f.h.handleDay, "366"), "between 1 and 365")
	assert.Contains(t, admin("/day", f.h.handleDay, "abc"), "Usage")
	assert.Contains(t, admin("/settime", f.h.handleSetTime, "3 7pm"), "HH:MM")
	assert.Contains(t, admin("/setday", f.h.handleSetDay, "3 "+strings.Repeat("x", 4097)), "too long")

	assert.Equal(t, "Welcome message updated.", admin("/setwelcome", f.h.handleSetWelcome, "Hi!\nGlad you're here."))
	assert.Contains(t, admin("/welcome", f.h.handleWelcome, ""), "Glad you're here.")
	assert.Equal(t, "Hi!\nGlad you're here.", f.h.handleStart(ctx, request{SenderID: 77}))

	assert.Equal(t, "Subscribers: 1 active, 1 total.", admin("/stats", f.h.handleStats, ""))
}
