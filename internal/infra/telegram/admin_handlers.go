package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"daily365_bot/internal/app"
	"daily365_bot/internal/domain/content"
	"daily365_bot/internal/domain/subscriber"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

var errUsage = errors.New("usage")

func (h *Commands) registerAdmin(ctx context.Context, b *telebot.Bot) {
	adminLogin := h.wrap(ctx, "/admin", h.handleAdminLogin)
	b.Handle("/admin", func(c telebot.Context) error {
		err := adminLogin(c)
		// Keep the password out of the chat history; bots may delete in private chats.
		if delErr := c.Delete(); delErr != nil {
			h.logger.WithError(delErr).Debug("Could not delete /admin message")
		}
		return err
	})

	b.Handle("/welcome", h.wrap(ctx, "/welcome", h.adminOnly("/welcome", h.handleWelcome)))
	b.Handle("/setwelcome", h.wrap(ctx, "/setwelcome", h.adminOnly("/setwelcome", h.handleSetWelcome)))
	b.Handle("/day", h.wrap(ctx, "/day", h.adminOnly("/day", h.handleDay)))
	b.Handle("/setday", h.wrap(ctx, "/setday", h.adminOnly("/setday", h.handleSetDay)))
	b.Handle("/settime", h.wrap(ctx, "/settime", h.adminOnly("/settime", h.handleSetTime)))
	b.Handle("/stats", h.wrap(ctx, "/stats", h.adminOnly("/stats", h.handleStats)))
}

// adminOnly answers non-admins with silence.
func (h *Commands) adminOnly(command string, fn handlerFunc) handlerFunc {
	return func(ctx context.Context, req request) string {
		handlerLogger := h.logger.WithFields(logrus.Fields{
			"handler":   command,
			"sender_id": req.SenderID,
		})
		err := h.adminService.RequireAdmin(ctx, req.SenderID)
		if errors.Is(err, app.ErrNotAdmin) {
			handlerLogger.Warn("Unauthorized access attempt")
			return ""
		}
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to check admin status")
			return ""
		}
		handlerLogger.Info("Command received")
		return fn(ctx, req)
	}
}

func (h *Commands) handleAdminLogin(ctx context.Context, req request) string {
	handlerLogger := h.logger.WithFields(logrus.Fields{
		"handler":   "/admin",
		"sender_id": req.SenderID,
	})

	err := h.adminService.GrantAdmin(ctx, req.SenderID, req.Payload)
	if errors.Is(err, app.ErrInvalidPassword) {
		handlerLogger.Warn("Admin login with wrong password")
		return ""
	}
	if err != nil {
		handlerLogger.WithError(err).Error("Failed to grant admin")
		return "Something went wrong. Please try again later."
	}
	handlerLogger.Info("Admin access granted")
	return "You're now an admin. Send /help to see the admin commands."
}

func (h *Commands) handleWelcome(ctx context.Context, _ request) string {
	text, err := h.adminService.Welcome(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load welcome message")
		return "Failed to load the welcome message."
	}
	return "Current welcome message:\n\n" + text
}

func (h *Commands) handleSetWelcome(ctx context.Context, req request) string {
	if req.Payload == "" {
		return "Usage: /setwelcome <text>"
	}
	if err := h.adminService.SetWelcome(ctx, req.Payload); err != nil {
		return h.editFailure("/setwelcome", err)
	}
	return "Welcome message updated."
}

func (h *Commands) handleDay(ctx context.Context, req request) string {
	number, err := strconv.Atoi(req.Payload)
	if err != nil {
		return "Usage: /day <n>"
	}
	slot, err := h.adminService.Slot(ctx, number)
	if err != nil {
		return h.editFailure("/day", err)
	}
	return formatSlot(slot)
}

func (h *Commands) handleSetDay(ctx context.Context, req request) string {
	number, body, err := parseSlotArgs(req.Payload)
	if err != nil {
		return "Usage: /setday <n> <text>"
	}
	slot, err := h.adminService.SetSlotBody(ctx, number, body)
	if err != nil {
		return h.editFailure("/setday", err)
	}
	h.logger.WithField("slot", slot.Number).Info("Slot text updated via chat")
	return fmt.Sprintf("Day %d updated.", slot.Number)
}

func (h *Commands) handleSetTime(ctx context.Context, req request) string {
	number, rawTime, err := parseSlotArgs(req.Payload)
	if err != nil {
		return "Usage: /settime <n> <HH:MM>"
	}
	slot, err := h.adminService.SetSlotSendTime(ctx, number, rawTime)
	if err != nil {
		return h.editFailure("/settime", err)
	}
	h.logger.WithFields(logrus.Fields{"slot": slot.Number, "send_time": slot.SendTime.String()}).Info("Slot send time updated via chat")
	return fmt.Sprintf("Day %d now sends at %s local time.", slot.Number, slot.SendTime)
}

func (h *Commands) handleStats(ctx context.Context, _ request) string {
	stats, err := h.adminService.Stats(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load subscriber stats")
		return "Failed to load statistics."
	}
	return fmt.Sprintf("Subscribers: %d active, %d total.", stats.Active, stats.Total)
}

func (h *Commands) editFailure(command string, err error) string {
	switch {
	case errors.Is(err, app.ErrInvalidSlotNumber):
		return fmt.Sprintf("Day must be between 1 and %d.", subscriber.TotalSlots)
	case errors.Is(err, app.ErrMessageTooLong):
		return fmt.Sprintf("That text is too long; the limit is %d characters.", content.MaxMessageLength)
	case errors.Is(err, app.ErrInvalidSendTime):
		return "Time must be HH:MM in 24-hour format, e.g. 07:30."
	}
	h.logger.WithError(err).WithField("handler", command).Error("Admin edit failed")
	return fmt.Sprintf("Error: %s", err.Error())
}

func formatSlot(slot *content.Slot) string {
	body := slot.Body
	if slot.IsEmpty() {
		body = "(empty, nothing will be sent)"
	}
	return fmt.Sprintf("Day %d, sent at %s local time:\n\n%s", slot.Number, slot.SendTime, body)
}

// parseSlotArgs splits "<n> <rest>" keeping rest verbatim (newlines included).
func parseSlotArgs(payload string) (int, string, error) {
	payload = strings.TrimSpace(payload)
	end := strings.IndexFunc(payload, unicode.IsSpace)
	if end < 0 {
		return 0, "", errUsage
	}
	number, err := strconv.Atoi(payload[:end])
	if err != nil {
		return 0, "", errUsage
	}
	rest := strings.TrimSpace(payload[end:])
	if rest == "" {
		return 0, "", errUsage
	}
	return number, rest, nil
}
