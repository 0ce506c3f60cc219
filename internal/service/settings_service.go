package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// Setting keys persisted in the settings table.
const (
	SettingTimezone               = "timezone"
	SettingSessionTimeoutMinutes  = "session_timeout_minutes"
	SettingPendingAutoResolveDays = "pending_auto_resolve_days"
	SettingAutoAssignEnabled      = "auto_assign_enabled"
	SettingSetupCompleted         = "setup_completed"
)

const settingsCacheTTL = 30 * time.Second

var settingDefaults = map[string]string{
	SettingTimezone:               "UTC",
	SettingSessionTimeoutMinutes:  "5",
	SettingPendingAutoResolveDays: "3",
	SettingAutoAssignEnabled:      "false",
	SettingSetupCompleted:         "false",
}

// SettingsService reads system-wide settings through a short-lived
// in-process cache; writes validate and invalidate. It is injected into
// request handlers instead of living as a global.
type SettingsService struct {
	settings repository.SettingsRepository

	mu        sync.Mutex
	cache     map[string]string
	fetchedAt time.Time
}

// NewSettingsService builds the service.
func NewSettingsService(settings repository.SettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

// Get returns a setting value, falling back to its default when unset.
func (s *SettingsService) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache == nil || time.Since(s.fetchedAt) > settingsCacheTTL {
		all, err := s.settings.All(ctx)
		if err != nil {
			return "", apperrors.MapError(err)
		}
		s.cache = all
		s.fetchedAt = time.Now()
	}

	if val, ok := s.cache[key]; ok {
		return val, nil
	}
	if def, ok := settingDefaults[key]; ok {
		return def, nil
	}
	return "", apperrors.NewNotFound("setting", map[string]any{"key": key})
}

// All returns every known setting with defaults filled in for unset keys.
func (s *SettingsService) All(ctx context.Context) (map[string]string, error) {
	stored, err := s.settings.All(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	merged := make(map[string]string, len(settingDefaults))
	for key, def := range settingDefaults {
		merged[key] = def
	}
	for key, val := range stored {
		merged[key] = val
	}
	return merged, nil
}

// Set validates and persists a setting, then invalidates the cache.
func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	if err := validateSetting(key, value); err != nil {
		return err
	}
	if err := s.settings.Set(ctx, key, value); err != nil {
		return apperrors.MapError(err)
	}
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
	return nil
}

// Timezone returns the configured IANA location, defaulting to UTC when
// the stored value fails to load.
func (s *SettingsService) Timezone(ctx context.Context) (*time.Location, error) {
	name, err := s.Get(ctx, SettingTimezone)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, nil
	}
	return loc, nil
}

// SessionTimeoutMinutes returns the client-facing inactivity countdown.
func (s *SettingsService) SessionTimeoutMinutes(ctx context.Context) (int, error) {
	return s.getInt(ctx, SettingSessionTimeoutMinutes, 5)
}

// PendingAutoResolveDays returns how long a pending ticket may sit before
// the sweeper resolves it.
func (s *SettingsService) PendingAutoResolveDays(ctx context.Context) (int, error) {
	return s.getInt(ctx, SettingPendingAutoResolveDays, 3)
}

// AutoAssignEnabled reports whether new tickets are auto-assigned.
func (s *SettingsService) AutoAssignEnabled(ctx context.Context) (bool, error) {
	return s.getBool(ctx, SettingAutoAssignEnabled)
}

// SetupCompleted reports whether the bootstrap super_admin exists.
func (s *SettingsService) SetupCompleted(ctx context.Context) (bool, error) {
	return s.getBool(ctx, SettingSetupCompleted)
}

func (s *SettingsService) getInt(ctx context.Context, key string, fallback int) (int, error) {
	val, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fallback, nil
		}
		return 0, err
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback, nil
	}
	return parsed, nil
}

func (s *SettingsService) getBool(ctx context.Context, key string) (bool, error) {
	val, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, nil
	}
	return parsed, nil
}

func validateSetting(key, value string) error {
	switch key {
	case SettingTimezone:
		if _, err := time.LoadLocation(value); err != nil {
			return apperrors.NewValidationError("invalid timezone", map[string]any{"value": value})
		}
	case SettingSessionTimeoutMinutes:
		return validateIntRange(key, value, 1, 480)
	case SettingPendingAutoResolveDays:
		return validateIntRange(key, value, 1, 30)
	case SettingAutoAssignEnabled, SettingSetupCompleted:
		if _, err := strconv.ParseBool(value); err != nil {
			return apperrors.NewValidationError("invalid boolean", map[string]any{"key": key, "value": value})
		}
	default:
		return apperrors.NewValidationError("unknown setting", map[string]any{"key": key})
	}
	return nil
}

func validateIntRange(key, value string, min, max int) error {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < min || parsed > max {
		return apperrors.NewValidationError("value out of range", map[string]any{
			"key": key, "min": min, "max": max,
		})
	}
	return nil
}
