// internal/infra/telegram/gateway.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"daily365_bot/internal/domain/delivery"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// sender is the slice of *telebot.Bot the gateway needs.
type sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Gateway implements delivery.Gateway on top of telebot.
type Gateway struct {
	bot     sender
	limiter *rate.Limiter
}

var _ delivery.Gateway = (*Gateway)(nil)

// NewGateway wraps b. Sends are paced to perSecond messages (unlimited when <= 0).
func NewGateway(b sender, perSecond int) *Gateway {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Gateway{
		bot:     b,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Send delivers text as a plain message. The call gives up when ctx is done; the HTTP
// client timeout of the bot bounds the request itself.
func (g *Gateway) Send(ctx context.Context, recipientID int64, text string) delivery.Result {
	if err := g.limiter.Wait(ctx); err != nil {
		return delivery.TransientFailure(fmt.Errorf("waiting for send slot: %w", err))
	}

	done := make(chan error, 1)
	go func() {
		_, err := g.bot.Send(telebot.ChatID(recipientID), text, &telebot.SendOptions{DisableWebPagePreview: true})
		done <- err
	}()

	select {
	case err := <-done:
		return Classify(err)
	case <-ctx.Done():
		return delivery.TransientFailure(ctx.Err())
	}
}

// Errors meaning the recipient can no longer be reached by this bot.
var permanentErrors = []error{
	telebot.ErrBlockedByUser,
	telebot.ErrUserIsDeactivated,
	telebot.ErrChatNotFound,
	telebot.ErrKickedFromGroup,
}

// Descriptions telebot does not map to a typed error arrive as plain text.
var permanentMarkers = []string{
	"forbidden",
	"(403)",
	"bot was blocked",
	"user is deactivated",
	"chat not found",
}

// Classify maps a telebot send error to a delivery result. Anything not known to be
// permanent is transient, so the send is retried on a later tick.
func Classify(err error) delivery.Result {
	if err == nil {
		return delivery.Delivered()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return delivery.TransientFailure(err)
	}
	for _, perm := range permanentErrors {
		if errors.Is(err, perm) {
			return delivery.PermanentFailure(err)
		}
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return delivery.PermanentFailure(err)
		}
	}
	return delivery.TransientFailure(err)
}
