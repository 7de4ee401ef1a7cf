package service

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"riskjournal/internal/models"
)

func TestEnsureDefaultSwitches_SeedsDefaults(t *testing.T) {
	repo := newStubRepo()
	svc := &SystemSettingsService{Repo: repo}
	if err := svc.EnsureDefaultSwitches(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
	for key, want := range DefaultFeatureSwitches() {
		item, err := repo.GetSystemSettingByKey(context.Background(), key)
		if err != nil || item == nil {
			t.Fatalf("%s not seeded (err=%v)", key, err)
		}
		got, ok := item.BoolValue()
		if !ok || got != want {
			t.Fatalf("%s=%v ok=%v want %v", key, got, ok, want)
		}
	}
}

func TestEnsureDefaultSwitches_UpgradesOffToOn(t *testing.T) {
	repo := newStubRepo()
	svc := &SystemSettingsService{Repo: repo}
	if err := svc.SetEnabled(context.Background(), FeatureDailyStats, false); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.EnsureDefaultSwitches(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
	if !svc.IsEnabled(context.Background(), FeatureDailyStats, false) {
		t.Fatalf("stored false must upgrade to the true default")
	}
}

func TestEnsureDefaultSwitches_NeverDowngrades(t *testing.T) {
	repo := newStubRepo()
	svc := &SystemSettingsService{Repo: repo}
	// audit_webhook defaults to false; an operator who turned it on keeps it.
	if err := svc.SetEnabled(context.Background(), FeatureAuditWebhook, true); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.EnsureDefaultSwitches(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
	if !svc.IsEnabled(context.Background(), FeatureAuditWebhook, false) {
		t.Fatalf("operator ON must survive the default sweep")
	}
}

func TestIsEnabled_FallbackPaths(t *testing.T) {
	repo := newStubRepo()
	svc := &SystemSettingsService{Repo: repo}
	if !svc.IsEnabled(context.Background(), "feature.missing", true) {
		t.Fatalf("missing key must return the fallback")
	}
	if svc.IsEnabled(context.Background(), "feature.missing", false) {
		t.Fatalf("missing key must return the fallback")
	}
	if err := repo.UpsertSystemSetting(context.Background(), &models.SystemSetting{
		Key:   "feature.corrupt",
		Value: datatypes.JSON([]byte(`"not a bool"`)),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !svc.IsEnabled(context.Background(), "feature.corrupt", true) {
		t.Fatalf("non-boolean value must fall back")
	}
}

func TestSetEnabled_RoundTrip(t *testing.T) {
	repo := newStubRepo()
	svc := &SystemSettingsService{Repo: repo}
	if err := svc.SetEnabled(context.Background(), FeatureStream, false); err != nil {
		t.Fatalf("err=%v", err)
	}
	if svc.IsEnabled(context.Background(), FeatureStream, true) {
		t.Fatalf("stored false must win over the fallback")
	}
}
