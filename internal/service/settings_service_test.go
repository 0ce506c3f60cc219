package service

import (
	"context"
	"testing"
	"time"
)

func TestSettingsDefaults(t *testing.T) {
	store := newFakeStore()
	svc := NewSettingsService(store.repositories().Settings)
	ctx := context.Background()

	days, err := svc.PendingAutoResolveDays(ctx)
	if err != nil {
		t.Fatalf("PendingAutoResolveDays: %v", err)
	}
	if days != 3 {
		t.Errorf("days = %d, want default 3", days)
	}

	enabled, err := svc.AutoAssignEnabled(ctx)
	if err != nil {
		t.Fatalf("AutoAssignEnabled: %v", err)
	}
	if enabled {
		t.Error("auto-assign enabled by default")
	}

	done, err := svc.SetupCompleted(ctx)
	if err != nil {
		t.Fatalf("SetupCompleted: %v", err)
	}
	if done {
		t.Error("setup reported completed on a fresh store")
	}

	loc, err := svc.Timezone(ctx)
	if err != nil {
		t.Fatalf("Timezone: %v", err)
	}
	if loc != time.UTC {
		t.Errorf("timezone = %v, want UTC", loc)
	}
}

func TestSettingsSetInvalidatesCache(t *testing.T) {
	store := newFakeStore()
	svc := NewSettingsService(store.repositories().Settings)
	ctx := context.Background()

	// prime the cache
	if _, err := svc.Get(ctx, SettingPendingAutoResolveDays); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if err := svc.Set(ctx, SettingPendingAutoResolveDays, "7"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	days, err := svc.PendingAutoResolveDays(ctx)
	if err != nil {
		t.Fatalf("PendingAutoResolveDays: %v", err)
	}
	if days != 7 {
		t.Errorf("days = %d, want 7 after Set", days)
	}
}

func TestSettingsValidation(t *testing.T) {
	store := newFakeStore()
	svc := NewSettingsService(store.repositories().Settings)
	ctx := context.Background()

	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "favorite_color", "blue"},
		{"bad timezone", SettingTimezone, "Mars/OlympusMons"},
		{"timeout below range", SettingSessionTimeoutMinutes, "0"},
		{"timeout above range", SettingSessionTimeoutMinutes, "481"},
		{"resolve days not a number", SettingPendingAutoResolveDays, "soon"},
		{"bad boolean", SettingAutoAssignEnabled, "maybe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Set(ctx, tc.key, tc.value)
			assertStatus(t, err, 400)
		})
	}
}

func TestSettingsAllMergesDefaults(t *testing.T) {
	store := newFakeStore()
	svc := NewSettingsService(store.repositories().Settings)
	ctx := context.Background()

	if err := svc.Set(ctx, SettingTimezone, "Europe/Berlin"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	all, err := svc.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if all[SettingTimezone] != "Europe/Berlin" {
		t.Errorf("timezone = %q, want stored override", all[SettingTimezone])
	}
	if all[SettingPendingAutoResolveDays] != "3" {
		t.Errorf("resolve days = %q, want default", all[SettingPendingAutoResolveDays])
	}
	if _, ok := all[SettingSetupCompleted]; !ok {
		t.Error("All missing setup_completed default")
	}
}
