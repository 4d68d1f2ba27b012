package settings

import "context"

const (
	KeyWelcomeMessage     = "welcome_message"
	DefaultWelcomeMessage = "Welcome! You'll receive a daily message for the next 365 days."
)

// Repository is a small key/value store for front-end settings.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// SetDefault writes value only when key is absent.
	SetDefault(ctx context.Context, key, value string) error
}
