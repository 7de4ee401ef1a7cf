package insights

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"riskjournal/internal/models"
	"riskjournal/internal/repository"
	"riskjournal/internal/risk"
)

type ReviewSchedule struct {
	Due           bool   `json:"due"`
	Reason        string `json:"reason"`
	FrequencyDays int    `json:"frequency_days"`
	EntryCount    int    `json:"entry_count"`
}

type IterationSuggestions struct {
	UnusedFields  []string `json:"unused_fields"`
	PopularFields []string `json:"popular_fields"`
	Suggestions   []string `json:"suggestions"`
}

// trackedFields are the optional context fields whose usage is worth
// watching. Keys the journal owner invents on the fly are tracked as they
// appear.
var trackedFields = []string{
	"risk_category",
	"expected_value",
	"fair_value",
	"max_loss",
	"max_gain",
	"confidence",
	"allocation_pct",
	"opportunity_cost_perceived",
	"opportunity_cost_real",
	"ownership",
	"aligned_with_self",
	"voluntary",
	"motivation_internal",
	"voices_present",
	"motivation_type",
	"what_i_saw",
	"why_it_mattered",
	"related_trades",
	"related_alpha",
	"related_code",
}

// lifecycle bookkeeping keys, excluded from usage tracking.
var untrackedFields = makeFieldSet(
	"cost",
	"currency",
	"status",
	"realized_value",
	"reward_history",
	"closed_at",
)

// ReviewPrompts lists the follow-ups the journal currently calls for: open
// risks without outcomes, quick captures missing context, and recently
// closed risks whose lessons have not been reviewed.
func (e *Engine) ReviewPrompts(ctx context.Context) ([]string, error) {
	if e == nil || e.Repo == nil {
		return nil, nil
	}
	rows, err := e.listRiskWindow(ctx, 0, false)
	if err != nil {
		return nil, err
	}
	open := 0
	quick := 0
	recentClosed := 0
	weekAgo := time.Now().UTC().Add(-7 * 24 * time.Hour)
	for _, r := range rows {
		if r.meta.Status == risk.StatusOpen {
			open++
			if r.meta.QuickMode {
				quick++
			}
			continue
		}
		if r.meta.ClosedAt != nil && r.meta.ClosedAt.After(weekAgo) {
			recentClosed++
		}
	}
	prompts := []string{}
	if open > 0 {
		prompts = append(prompts, fmt.Sprintf("%d open risk(s) - update outcomes?", open))
	}
	if quick > 0 {
		prompts = append(prompts, fmt.Sprintf("%d quick entry/ies - add context?", quick))
	}
	if recentClosed > 0 {
		prompts = append(prompts, fmt.Sprintf("%d recent outcome(s) - review learnings?", recentClosed))
	}
	return prompts, nil
}

// ReviewQuestions builds the periodic self-review. There are no prefilled
// answers; the questions get harder as the journal grows. At most ten are
// returned.
func (e *Engine) ReviewQuestions(ctx context.Context, days int) ([]string, error) {
	if e == nil || e.Repo == nil {
		return nil, nil
	}
	days = e.windowDays(days)
	rows, err := e.listRiskWindow(ctx, days, false)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []string{}, nil
	}
	questions := []string{
		"What patterns do you see in your risk entries?",
		"What principles guide your decisions? (Not preferences - principles)",
		"When do you deviate from yourself? What triggers it?",
	}
	if len(rows) >= 10 {
		questions = append(questions,
			"What ownership type (mine/influenced/performed) correlates with better outcomes?",
			"What voices influence you? Do they help or hurt?",
			"What's your misalignment rate? What does it mean?")
	}
	if len(rows) >= 20 {
		questions = append(questions,
			"What transferable skills have you learned from logging?",
			"What patterns repeat? What do they teach you?",
			"Where are you uncomfortable? (That's where living happens)")
	}
	if len(rows) >= 50 {
		questions = append(questions,
			"What principles have you discovered? (Not preferences)",
			"What have you learned about yourself that you didn't know?",
			"What keeps you in positive loops? What breaks them?")
	}
	if len(rows) >= 100 {
		questions = append(questions,
			"What's your edge? How do you know?",
			"What patterns across domains (sports, trading, code) do you see?",
			"What have you learned that's transferable?")
	}
	if len(questions) > maxReportSample {
		questions = questions[:maxReportSample]
	}
	return questions, nil
}

// ReviewDue derives the review cadence from how much has been logged. A
// last-review marker is not tracked yet, so a review is always suggested.
func (e *Engine) ReviewDue(ctx context.Context) (*ReviewSchedule, error) {
	if e == nil || e.Repo == nil {
		return nil, nil
	}
	entryType := models.EntryTypeRisk
	count, err := e.Repo.CountEntries(ctx, repository.ListEntriesParams{EntryType: &entryType})
	if err != nil {
		return nil, err
	}
	freq := 90
	switch {
	case count < 10:
		freq = 7
	case count < 50:
		freq = 14
	case count < 100:
		freq = 30
	}
	return &ReviewSchedule{
		Due:           true,
		Reason:        fmt.Sprintf("Review recommended (%d entries logged, review every %d days)", count, freq),
		FrequencyDays: freq,
		EntryCount:    int(count),
	}, nil
}

// FieldUsage counts how often each optional metadata field actually gets
// filled in across the risk entries.
func (e *Engine) FieldUsage(ctx context.Context) (map[string]int, error) {
	if e == nil || e.Repo == nil {
		return nil, nil
	}
	rows, err := e.listRiskWindow(ctx, 0, false)
	if err != nil {
		return nil, err
	}
	usage := make(map[string]int, len(trackedFields))
	for _, field := range trackedFields {
		usage[field] = 0
	}
	for _, r := range rows {
		for key, val := range r.entry.DecodedMetadata() {
			if val == nil {
				continue
			}
			if _, skip := untrackedFields[key]; skip {
				continue
			}
			usage[key]++
		}
	}
	return usage, nil
}

// SuggestIterations looks at field usage and capture habits and suggests how
// to tune the journal itself.
func (e *Engine) SuggestIterations(ctx context.Context) (*IterationSuggestions, error) {
	if e == nil || e.Repo == nil {
		return nil, nil
	}
	usage, err := e.FieldUsage(ctx)
	if err != nil {
		return nil, err
	}
	entryType := models.EntryTypeRisk
	total, err := e.Repo.CountEntries(ctx, repository.ListEntriesParams{EntryType: &entryType})
	if err != nil {
		return nil, err
	}
	threshold := math.Max(1, float64(total)*0.1)
	out := &IterationSuggestions{
		UnusedFields:  []string{},
		PopularFields: []string{},
		Suggestions:   []string{},
	}
	for field, count := range usage {
		switch {
		case float64(count) < threshold:
			out.UnusedFields = append(out.UnusedFields, field)
		case float64(count) >= threshold*2:
			out.PopularFields = append(out.PopularFields, field)
		}
	}
	sort.Strings(out.UnusedFields)
	sort.Strings(out.PopularFields)
	if len(out.UnusedFields) > 0 {
		out.Suggestions = append(out.Suggestions,
			"Consider removing or simplifying: "+strings.Join(headFields(out.UnusedFields, 5), ", "))
	}
	if len(out.PopularFields) > 0 {
		out.Suggestions = append(out.Suggestions,
			"These fields work well for you: "+strings.Join(headFields(out.PopularFields, 5), ", "))
	}

	recent, err := e.Repo.ListLatestEntriesByType(ctx, models.EntryTypeRisk, 100)
	if err != nil {
		return nil, err
	}
	quick := 0
	for i := range recent {
		if on, _ := recent[i].DecodedMetadata()["quick_mode"].(bool); on {
			quick++
		}
	}
	if len(recent) > 0 && float64(quick) > float64(len(recent))*0.5 {
		out.Suggestions = append(out.Suggestions,
			"You use quick mode often - consider making it even faster or adding defaults")
	}
	return out, nil
}

func headFields(fields []string, n int) []string {
	if len(fields) <= n {
		return fields
	}
	return fields[:n]
}

func makeFieldSet(keys ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		out[key] = struct{}{}
	}
	return out
}
