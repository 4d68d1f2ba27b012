package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"daily365_bot/internal/domain/clock"
	"daily365_bot/internal/domain/settings"
	"daily365_bot/internal/domain/subscriber"
	idb "daily365_bot/internal/infra/database"
)

var ErrUnknownTimezone = fmt.Errorf("unknown timezone, expected an IANA name like Europe/Berlin")

// RegistrationResult describes what /start did for a user.
type RegistrationResult struct {
	Subscriber  *subscriber.Subscriber
	Created     bool
	Reactivated bool // Progress kept from before the deactivation
}

type SubscriberService struct {
	subscriberRepo subscriber.Repository
	settingsRepo   settings.Repository
}

func NewSubscriberService(sr subscriber.Repository, st settings.Repository) *SubscriberService {
	return &SubscriberService{
		subscriberRepo: sr,
		settingsRepo:   st,
	}
}

// Register creates a subscriber on first contact or reactivates a deactivated one.
// Reactivation never touches the current slot or the last delivery date.
func (s *SubscriberService) Register(ctx context.Context, telegramID int64, username string) (*RegistrationResult, error) {
	existing, err := s.subscriberRepo.GetByTelegramID(ctx, telegramID)
	if err != nil && !errors.Is(err, idb.ErrSubscriberNotFound) {
		return nil, fmt.Errorf("failed to look up subscriber: %w", err)
	}

	if existing != nil {
		result := &RegistrationResult{Subscriber: existing}
		if username != "" && (!existing.Username.Valid || existing.Username.String != username) {
			if err := s.subscriberRepo.UpdateUsername(ctx, existing.ID, username); err != nil {
				return nil, fmt.Errorf("failed to refresh username: %w", err)
			}
			existing.Username = sql.NullString{String: username, Valid: true}
		}
		if !existing.IsActive {
			if err := s.subscriberRepo.Reactivate(ctx, existing.ID); err != nil {
				return nil, fmt.Errorf("failed to reactivate subscriber: %w", err)
			}
			existing.IsActive = true
			result.Reactivated = true
		}
		return result, nil
	}

	newSubscriber := &subscriber.Subscriber{
		TelegramID:  telegramID,
		Timezone:    subscriber.DefaultTimezone,
		CurrentSlot: 1,
		IsActive:    true,
	}
	if username != "" {
		newSubscriber.Username = sql.NullString{String: username, Valid: true}
	}

	err = s.subscriberRepo.Create(ctx, newSubscriber)
	if errors.Is(err, idb.ErrDuplicateTelegramID) {
		// Lost a race with a concurrent /start from the same user.
		stored, getErr := s.subscriberRepo.GetByTelegramID(ctx, telegramID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load concurrently created subscriber: %w", getErr)
		}
		return &RegistrationResult{Subscriber: stored}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}
	return &RegistrationResult{Subscriber: newSubscriber, Created: true}, nil
}

// SetTimezone validates and stores the subscriber's zone name.
func (s *SubscriberService) SetTimezone(ctx context.Context, telegramID int64, timezone string) (*subscriber.Subscriber, error) {
	timezone = strings.TrimSpace(timezone)
	if !clock.IsKnownLocation(timezone) {
		return nil, ErrUnknownTimezone
	}

	sub, err := s.subscriberRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if err := s.subscriberRepo.UpdateTimezone(ctx, sub.ID, timezone); err != nil {
		return nil, fmt.Errorf("failed to update timezone: %w", err)
	}
	sub.Timezone = timezone
	return sub, nil
}

// Status returns the caller's subscription. idb.ErrSubscriberNotFound when unknown.
func (s *SubscriberService) Status(ctx context.Context, telegramID int64) (*subscriber.Subscriber, error) {
	return s.subscriberRepo.GetByTelegramID(ctx, telegramID)
}

// Welcome returns the configured welcome text, falling back to the built-in default.
func (s *SubscriberService) Welcome(ctx context.Context) (string, error) {
	return welcomeText(ctx, s.settingsRepo)
}

func welcomeText(ctx context.Context, repo settings.Repository) (string, error) {
	text, err := repo.Get(ctx, settings.KeyWelcomeMessage)
	if errors.Is(err, idb.ErrSettingNotFound) || (err == nil && strings.TrimSpace(text) == "") {
		return settings.DefaultWelcomeMessage, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load welcome message: %w", err)
	}
	return text, nil
}
