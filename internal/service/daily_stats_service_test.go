package service

import (
	"context"
	"testing"
)

func TestDailyStatsRunOnce_EnabledByDefault(t *testing.T) {
	repo := newStubRepo()
	svc := &DailyStatsService{Repo: repo, Flags: &SystemSettingsService{Repo: repo}}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
	if repo.rebuilds != 1 {
		t.Fatalf("rebuilds=%d want 1", repo.rebuilds)
	}
}

func TestDailyStatsRunOnce_SkipsWhenDisabled(t *testing.T) {
	repo := newStubRepo()
	flags := &SystemSettingsService{Repo: repo}
	if err := flags.SetEnabled(context.Background(), FeatureDailyStats, false); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := &DailyStatsService{Repo: repo, Flags: flags}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
	if repo.rebuilds != 0 {
		t.Fatalf("rebuilds=%d, disabled switch must skip the rebuild", repo.rebuilds)
	}
}

func TestDailyStatsRunOnce_NilFlagsStillRuns(t *testing.T) {
	repo := newStubRepo()
	svc := &DailyStatsService{Repo: repo}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
	if repo.rebuilds != 1 {
		t.Fatalf("rebuilds=%d want 1", repo.rebuilds)
	}
}
