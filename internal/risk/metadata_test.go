package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"riskjournal/internal/models"
)

func TestParseRiskMetadata_CostCoercion(t *testing.T) {
	meta, err := ParseRiskMetadata(map[string]any{"cost": "12.50"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if meta.Cost.Cmp(decimal.RequireFromString("12.5")) != 0 {
		t.Fatalf("cost=%s want 12.5", meta.Cost.String())
	}
	if _, err := ParseRiskMetadata(map[string]any{"cost": true}); !models.IsValidation(err) {
		t.Fatalf("err=%v want validation", err)
	}
	if _, err := ParseRiskMetadata(map[string]any{"cost": "not a number"}); !models.IsValidation(err) {
		t.Fatalf("err=%v want validation", err)
	}
}

func TestParseRiskMetadata_RangeChecks(t *testing.T) {
	if _, err := ParseRiskMetadata(map[string]any{"cost": 10, "confidence": 1.5}); !models.IsValidation(err) {
		t.Fatalf("confidence out of range err=%v", err)
	}
	if _, err := ParseRiskMetadata(map[string]any{"cost": 10, "allocation_pct": 250}); !models.IsValidation(err) {
		t.Fatalf("allocation out of range err=%v", err)
	}
	if _, err := ParseRiskMetadata(map[string]any{"cost": 10, "ownership": "borrowed"}); !models.IsValidation(err) {
		t.Fatalf("ownership err=%v", err)
	}
	if _, err := ParseRiskMetadata(map[string]any{"cost": 10, "motivation_type": "boredom"}); !models.IsValidation(err) {
		t.Fatalf("motivation err=%v", err)
	}
}

func TestParseRiskMetadata_StatusRules(t *testing.T) {
	meta, err := ParseRiskMetadata(map[string]any{"cost": 10, "status": "open"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if meta.Status != StatusOpen {
		t.Fatalf("status=%q want OPEN", meta.Status)
	}
	if _, err := ParseRiskMetadata(map[string]any{"cost": 10, "status": "PENDING"}); !models.IsValidation(err) {
		t.Fatalf("bogus status err=%v", err)
	}
	if _, err := ParseRiskMetadata(map[string]any{"cost": 10, "status": "CLOSED"}); !models.IsValidation(err) {
		t.Fatalf("closed without realized err=%v", err)
	}
	meta, err = ParseRiskMetadata(map[string]any{"cost": 10, "status": "closed", "realized_value": 8})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if meta.Status != StatusClosed {
		t.Fatalf("status=%q want CLOSED", meta.Status)
	}
}

func TestParseRiskMetadata_LegacyAliases(t *testing.T) {
	meta, err := ParseRiskMetadata(map[string]any{
		"cost":             10,
		"what_i_see":       "an edge",
		"why_i_trust_this": "did the math",
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if meta.WhatISaw != "an edge" || meta.WhyItMattered != "did the math" {
		t.Fatalf("aliases not mapped: %q %q", meta.WhatISaw, meta.WhyItMattered)
	}

	meta, err = ParseRiskMetadata(map[string]any{
		"cost":       10,
		"what_i_saw": "canonical",
		"what_i_see": "legacy",
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if meta.WhatISaw != "canonical" {
		t.Fatalf("what_i_saw=%q want canonical to win", meta.WhatISaw)
	}

	// Aliases never resurface in the serialized document.
	doc := meta.Document()
	if _, ok := doc["what_i_see"]; ok {
		t.Fatalf("legacy key leaked into document")
	}
}

func TestParseRiskMetadata_ExtraKeysPreserved(t *testing.T) {
	meta, err := ParseRiskMetadata(map[string]any{
		"cost":      10,
		"mood":      "wired",
		"sleep_hrs": 4.5,
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got, _ := meta.Extra["mood"].(string); got != "wired" {
		t.Fatalf("extra=%v want mood preserved", meta.Extra)
	}
	doc := meta.Document()
	if got, _ := doc["mood"].(string); got != "wired" {
		t.Fatalf("doc=%v want mood round-tripped", doc)
	}
	if got, _ := doc["sleep_hrs"].(float64); got != 4.5 {
		t.Fatalf("doc=%v want sleep_hrs round-tripped", doc)
	}
}

func TestDocument_OmitsNilOptionals(t *testing.T) {
	meta, err := ParseRiskMetadata(map[string]any{"cost": 10})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	doc := meta.Document()
	for _, key := range []string{"expected_value", "max_loss", "confidence", "closed_at", "ownership", "realized_value"} {
		if _, ok := doc[key]; ok {
			t.Fatalf("doc carries %q for an unset field", key)
		}
	}
	if doc["status"] != StatusOpen {
		t.Fatalf("status=%v want OPEN", doc["status"])
	}
}

func TestAppendReward_TimestampsNeverDecrease(t *testing.T) {
	meta := &RiskMetadata{Cost: decimal.NewFromInt(10)}
	later := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	meta.AppendReward(decimal.NewFromInt(1), "", later)
	rec := meta.AppendReward(decimal.NewFromInt(2), "clock went backwards", earlier)
	if !rec.Timestamp.Equal(later) {
		t.Fatalf("timestamp=%v want clamped to %v", rec.Timestamp, later)
	}
	if len(meta.RewardHistory) != 2 {
		t.Fatalf("history=%d want 2", len(meta.RewardHistory))
	}
}

func TestOutcomeAndROI(t *testing.T) {
	meta := &RiskMetadata{Cost: decimal.NewFromInt(200)}
	if _, ok := meta.Outcome(); ok {
		t.Fatalf("outcome defined without realized value")
	}
	realized := decimal.NewFromInt(150)
	meta.RealizedValue = &realized
	outcome, ok := meta.Outcome()
	if !ok || outcome.Cmp(decimal.NewFromInt(-50)) != 0 {
		t.Fatalf("outcome=%s ok=%v want -50", outcome.String(), ok)
	}
	roi, ok := meta.ROIPct()
	if !ok || roi != -25 {
		t.Fatalf("roi=%v ok=%v want -25", roi, ok)
	}
}
