package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"riskjournal/internal/audit"
	"riskjournal/internal/insights"
)

// ReviewReminderService periodically checks whether a self-review is due and
// logs what the journal currently asks for. It never writes to the journal;
// the reminder is the log line, optionally mirrored to the audit webhook
// when the audit client rides in on the context.
type ReviewReminderService struct {
	Insights *insights.Engine
	Logger   *zap.Logger
	Flags    *SystemSettingsService
}

func (s *ReviewReminderService) Run(ctx context.Context, interval time.Duration) error {
	if s == nil || s.Insights == nil {
		return nil
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("review reminder run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *ReviewReminderService) RunOnce(ctx context.Context) error {
	if s == nil || s.Insights == nil {
		return nil
	}
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureReviewReminders, true) {
		return nil
	}
	schedule, err := s.Insights.ReviewDue(ctx)
	if err != nil {
		return err
	}
	if schedule == nil || !schedule.Due {
		return nil
	}
	prompts, err := s.Insights.ReviewPrompts(ctx)
	if err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("review reminder",
			zap.String("reason", schedule.Reason),
			zap.Int("frequency_days", schedule.FrequencyDays),
			zap.Strings("prompts", prompts))
	}
	if s.Flags.IsEnabled(ctx, FeatureAuditWebhook, false) {
		audit.LogBestEffortCtx(ctx, "review_due", "info", map[string]any{
			"reason":         schedule.Reason,
			"frequency_days": schedule.FrequencyDays,
			"entry_count":    schedule.EntryCount,
			"prompts":        prompts,
		})
	}
	return nil
}
