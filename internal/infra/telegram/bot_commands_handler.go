// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"daily365_bot/internal/app"
	"daily365_bot/internal/domain/settings"
	"daily365_bot/internal/domain/subscriber"
	idb "daily365_bot/internal/infra/database" // For ErrSubscriberNotFound

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// request is the part of an incoming command the handlers look at.
type request struct {
	SenderID int64
	Username string
	Payload  string // Text after the command
}

// handlerFunc answers a command. An empty reply sends nothing.
type handlerFunc func(ctx context.Context, req request) string

// Commands holds the chat front-end. Handlers are plain methods so they can be
// exercised without a live bot.
type Commands struct {
	subscriberService *app.SubscriberService
	adminService      *app.AdminService
	logger            *logrus.Entry
}

func NewCommands(ss *app.SubscriberService, as *app.AdminService, baseLogger *logrus.Entry) *Commands {
	return &Commands{
		subscriberService: ss,
		adminService:      as,
		logger:            baseLogger,
	}
}

// Register binds every command to b.
func (h *Commands) Register(ctx context.Context, b *telebot.Bot) {
	b.Handle("/start", h.wrap(ctx, "/start", h.handleStart))
	b.Handle("/help", h.wrap(ctx, "/help", h.handleHelp))
	b.Handle("/status", h.wrap(ctx, "/status", h.handleStatus))
	b.Handle("/timezone", h.wrap(ctx, "/timezone", h.handleTimezone))
	h.registerAdmin(ctx, b)
}

func (h *Commands) wrap(ctx context.Context, command string, fn handlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if c.Sender() == nil || c.Message() == nil {
			return nil
		}
		req := request{
			SenderID: c.Sender().ID,
			Username: c.Sender().Username,
			Payload:  commandPayload(c.Message().Text),
		}
		h.logger.WithFields(logrus.Fields{
			"command":   command,
			"sender_id": req.SenderID,
		}).Debug("Command received")

		reply := fn(ctx, req)
		if reply == "" {
			return nil
		}
		return c.Send(reply, &telebot.SendOptions{DisableWebPagePreview: true})
	}
}

// commandPayload returns everything after "/cmd" or "/cmd@bot". Unlike Message.Payload
// it keeps later lines, so multi-line bodies survive.
func commandPayload(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	end := strings.IndexFunc(text, unicode.IsSpace)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(text[end:])
}

func (h *Commands) handleStart(ctx context.Context, req request) string {
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/start", "sender_id": req.SenderID})

	res, err := h.subscriberService.Register(ctx, req.SenderID, req.Username)
	if err != nil {
		logCtx.WithError(err).Error("Failed to register subscriber")
		return "Something went wrong while signing you up. Please try again later."
	}

	switch {
	case res.Created:
		logCtx.WithField("subscriber_id", res.Subscriber.ID).Info("New subscriber registered")
		welcome, err := h.subscriberService.Welcome(ctx)
		if err != nil {
			logCtx.WithError(err).Warn("Failed to load welcome message, using default")
			welcome = settings.DefaultWelcomeMessage
		}
		return welcome
	case res.Reactivated:
		logCtx.WithField("subscriber_id", res.Subscriber.ID).Info("Subscriber reactivated")
		return fmt.Sprintf("Welcome back! Your daily messages resume from day %d.", res.Subscriber.CurrentSlot)
	default:
		return fmt.Sprintf("You're already subscribed and currently on day %d. Use /status for details.", res.Subscriber.CurrentSlot)
	}
}

func (h *Commands) handleHelp(ctx context.Context, req request) string {
	var helpText strings.Builder
	helpText.WriteString("Available commands:\n\n")
	helpText.WriteString("/start - subscribe to the daily messages\n")
	helpText.WriteString("/status - show which day you're on\n")
	helpText.WriteString("/timezone <Area/City> - set your time zone, e.g. /timezone Europe/Berlin\n")
	helpText.WriteString("/help - show this message\n")

	isAdmin, err := h.adminService.IsAdmin(ctx, req.SenderID)
	if err != nil {
		h.logger.WithError(err).WithField("sender_id", req.SenderID).Warn("Failed to check admin status for /help")
	}
	if isAdmin {
		helpText.WriteString("\nAdmin commands:\n\n")
		helpText.WriteString("/welcome - show the welcome message\n")
		helpText.WriteString("/setwelcome <text> - replace the welcome message\n")
		helpText.WriteString("/day <n> - show the message for day n\n")
		helpText.WriteString("/setday <n> <text> - replace the message for day n\n")
		helpText.WriteString("/settime <n> <HH:MM> - set the local send time for day n\n")
		helpText.WriteString("/stats - subscriber counts\n")
	}
	return helpText.String()
}

func (h *Commands) handleStatus(ctx context.Context, req request) string {
	s, err := h.subscriberService.Status(ctx, req.SenderID)
	if errors.Is(err, idb.ErrSubscriberNotFound) {
		return "You're not subscribed yet. Send /start to begin."
	}
	if err != nil {
		h.logger.WithError(err).WithField("sender_id", req.SenderID).Error("Failed to load subscriber status")
		return "Something went wrong while checking your status. Please try again later."
	}
	return formatStatus(s)
}

func formatStatus(s *subscriber.Subscriber) string {
	var b strings.Builder
	if !s.IsActive {
		b.WriteString("Your subscription is paused. Send /start to resume.\n")
	}
	fmt.Fprintf(&b, "Next message: day %d of %d.\n", s.CurrentSlot, subscriber.TotalSlots)
	fmt.Fprintf(&b, "Time zone: %s.", s.Timezone)
	if s.LastDeliveryDate.Valid {
		fmt.Fprintf(&b, "\nLast message sent on %s.", s.LastDeliveryDate.Time.Format("2006-01-02"))
	}
	return b.String()
}

func (h *Commands) handleTimezone(ctx context.Context, req request) string {
	if req.Payload == "" {
		return "Usage: /timezone <Area/City>, for example /timezone America/New_York"
	}
	s, err := h.subscriberService.SetTimezone(ctx, req.SenderID, req.Payload)
	switch {
	case errors.Is(err, app.ErrUnknownTimezone):
		return fmt.Sprintf("I don't know the time zone %q. Use a name like Europe/Berlin or Asia/Tokyo.", req.Payload)
	case errors.Is(err, idb.ErrSubscriberNotFound):
		return "You're not subscribed yet. Send /start to begin."
	case err != nil:
		h.logger.WithError(err).WithField("sender_id", req.SenderID).Error("Failed to update timezone")
		return "Something went wrong while saving your time zone. Please try again later."
	}
	h.logger.WithFields(logrus.Fields{"sender_id": req.SenderID, "timezone": s.Timezone}).Info("Subscriber timezone updated")
	return fmt.Sprintf("Time zone set to %s.", s.Timezone)
}
