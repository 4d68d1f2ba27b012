package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"daily365_bot/internal/domain/admin"
	"daily365_bot/internal/domain/content"
	"daily365_bot/internal/domain/settings"
	"daily365_bot/internal/domain/subscriber"
)

// Custom application-level errors for admin service
var ErrInvalidPassword = fmt.Errorf("invalid admin password")
var ErrNotAdmin = fmt.Errorf("performing user is not authorized as an admin")
var ErrInvalidSlotNumber = fmt.Errorf("slot number must be between 1 and %d", subscriber.TotalSlots)
var ErrEmptyMessage = fmt.Errorf("message cannot be empty")
var ErrMessageTooLong = fmt.Errorf("message exceeds %d characters", content.MaxMessageLength)

// ErrInvalidSendTime is content.ErrInvalidSendTime re-exported for front-ends.
var ErrInvalidSendTime = content.ErrInvalidSendTime

// SubscriberStats is the dashboard summary.
type SubscriberStats struct {
	Total  int
	Active int
}

// AdminService backs the content-editing commands and the web console.
// It never changes subscriber progress.
type AdminService struct {
	adminRepo      admin.Repository
	contentRepo    content.Repository
	settingsRepo   settings.Repository
	subscriberRepo subscriber.Repository
	adminPassword  string
}

func NewAdminService(
	ar admin.Repository,
	cr content.Repository,
	st settings.Repository,
	sr subscriber.Repository,
	adminPassword string,
) *AdminService {
	return &AdminService{
		adminRepo:      ar,
		contentRepo:    cr,
		settingsRepo:   st,
		subscriberRepo: sr,
		adminPassword:  adminPassword,
	}
}

// GrantAdmin adds telegramID to the allowlist when password matches.
func (s *AdminService) GrantAdmin(ctx context.Context, telegramID int64, password string) error {
	if !s.CheckPassword(password) {
		return ErrInvalidPassword
	}
	if err := s.adminRepo.Add(ctx, telegramID); err != nil {
		return fmt.Errorf("failed to grant admin: %w", err)
	}
	return nil
}

// CheckPassword compares in constant time. An unset password never matches.
func (s *AdminService) CheckPassword(password string) bool {
	if s.adminPassword == "" || password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) == 1
}

func (s *AdminService) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	ok, err := s.adminRepo.IsAdmin(ctx, telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to check admin status: %w", err)
	}
	return ok, nil
}

// RequireAdmin returns ErrNotAdmin unless telegramID is on the allowlist.
func (s *AdminService) RequireAdmin(ctx context.Context, telegramID int64) error {
	ok, err := s.IsAdmin(ctx, telegramID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAdmin
	}
	return nil
}

func (s *AdminService) Welcome(ctx context.Context) (string, error) {
	return welcomeText(ctx, s.settingsRepo)
}

func (s *AdminService) SetWelcome(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > content.MaxMessageLength {
		return ErrMessageTooLong
	}
	if err := s.settingsRepo.Set(ctx, settings.KeyWelcomeMessage, text); err != nil {
		return fmt.Errorf("failed to save welcome message: %w", err)
	}
	return nil
}

func (s *AdminService) Slot(ctx context.Context, number int) (*content.Slot, error) {
	if err := validateSlotNumber(number); err != nil {
		return nil, err
	}
	return s.contentRepo.GetByNumber(ctx, number)
}

func (s *AdminService) Slots(ctx context.Context) ([]*content.Slot, error) {
	slots, err := s.contentRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list content slots: %w", err)
	}
	return slots, nil
}

// SetSlotBody replaces the text of a slot and keeps its send time.
func (s *AdminService) SetSlotBody(ctx context.Context, number int, body string) (*content.Slot, error) {
	slot, err := s.Slot(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := validateBody(body); err != nil {
		return nil, err
	}
	slot.Body = body
	return slot, s.update(ctx, slot)
}

// SetSlotSendTime changes when a slot fires and keeps its text.
func (s *AdminService) SetSlotSendTime(ctx context.Context, number int, rawTime string) (*content.Slot, error) {
	slot, err := s.Slot(ctx, number)
	if err != nil {
		return nil, err
	}
	st, err := content.ParseSendTime(rawTime)
	if err != nil {
		return nil, err
	}
	slot.SendTime = st
	return slot, s.update(ctx, slot)
}

// SaveSlot writes both fields at once, as the web editor submits them together.
func (s *AdminService) SaveSlot(ctx context.Context, number int, body, rawTime string) (*content.Slot, error) {
	if err := validateSlotNumber(number); err != nil {
		return nil, err
	}
	if err := validateBody(body); err != nil {
		return nil, err
	}
	st, err := content.ParseSendTime(rawTime)
	if err != nil {
		return nil, err
	}
	slot := &content.Slot{Number: number, Body: body, SendTime: st}
	return slot, s.update(ctx, slot)
}

func (s *AdminService) Stats(ctx context.Context) (SubscriberStats, error) {
	total, active, err := s.subscriberRepo.Count(ctx)
	if err != nil {
		return SubscriberStats{}, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return SubscriberStats{Total: total, Active: active}, nil
}

func (s *AdminService) update(ctx context.Context, slot *content.Slot) error {
	if err := s.contentRepo.Update(ctx, slot); err != nil {
		return fmt.Errorf("failed to save slot %d: %w", slot.Number, err)
	}
	return nil
}

func validateSlotNumber(number int) error {
	if number < 1 || number > subscriber.TotalSlots {
		return ErrInvalidSlotNumber
	}
	return nil
}

func validateBody(body string) error {
	if utf8.RuneCountInString(body) > content.MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// IsValidationError reports whether err is caused by bad admin input rather than storage.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidSlotNumber) ||
		errors.Is(err, ErrMessageTooLong) ||
		errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrInvalidSendTime)
}
