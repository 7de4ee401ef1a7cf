package risk

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"riskjournal/internal/models"
)

const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

const (
	OwnershipMine       = "mine"
	OwnershipInfluenced = "influenced"
	OwnershipPerformed  = "performed"
)

const (
	MotivationAlignment   = "alignment"
	MotivationExpectation = "expectation"
	MotivationAvoidance   = "avoidance"
	MotivationPruning     = "pruning"
)

// RewardRecord is one append-only outcome observation on an open risk.
type RewardRecord struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
	Reason    string          `json:"reason,omitempty"`
}

// RiskMetadata is the typed view over a risk entry's metadata document.
// Known fields are validated; anything else rides along in Extra untouched.
type RiskMetadata struct {
	Cost     decimal.Decimal
	Currency string

	RiskCategory string

	ExpectedValue *decimal.Decimal
	FairValue     *decimal.Decimal
	MaxLoss       *decimal.Decimal
	MaxGain       *decimal.Decimal

	Confidence    *float64
	AllocationPct *float64

	OpportunityCostPerceived *decimal.Decimal
	OpportunityCostReal      *decimal.Decimal

	Status        string
	RealizedValue *decimal.Decimal
	ClosedAt      *time.Time
	RewardHistory []RewardRecord

	Ownership          string
	AlignedWithSelf    *bool
	Voluntary          *bool
	VoicesPresent      []string
	MotivationInternal *bool
	MotivationType     string

	WhatISaw      string
	WhyItMattered string

	RelatedTrades []uint64
	RelatedAlpha  []uint64
	RelatedCode   []uint64

	QuickMode bool

	Extra map[string]any
}

// knownMetadataKeys covers every field the typed view owns, including the
// legacy aliases, so Extra only ever carries genuinely unknown keys.
var knownMetadataKeys = makeSet(
	"cost",
	"currency",
	"risk_category",
	"expected_value",
	"fair_value",
	"max_loss",
	"max_gain",
	"confidence",
	"allocation_pct",
	"opportunity_cost_perceived",
	"opportunity_cost_real",
	"status",
	"realized_value",
	"closed_at",
	"reward_history",
	"ownership",
	"aligned_with_self",
	"voluntary",
	"voices_present",
	"motivation_internal",
	"motivation_type",
	"what_i_saw",
	"why_it_mattered",
	"what_i_see",
	"why_i_trust_this",
	"related_trades",
	"related_alpha",
	"related_code",
	"quick_mode",
)

func makeSet(keys ...string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, key := range keys {
		set[key] = true
	}
	return set
}

// ParseRiskMetadata coerces and validates an open metadata document into the
// typed view. It never mutates doc. Validation covers the full document
// before anything is returned, so a caller can treat a nil error as "safe to
// persist".
func ParseRiskMetadata(doc map[string]any) (*RiskMetadata, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	m := &RiskMetadata{Extra: map[string]any{}}

	cost, err := decimalField(doc, "cost")
	if err != nil {
		return nil, err
	}
	if cost == nil || !cost.IsPositive() {
		return nil, models.Validation("cost", "a positive cost is required, e.g. 100 or 0.05")
	}
	m.Cost = *cost

	if m.Currency, err = stringField(doc, "currency"); err != nil {
		return nil, err
	}

	if m.RiskCategory, err = stringField(doc, "risk_category"); err != nil {
		return nil, err
	}
	m.RiskCategory = strings.ToLower(m.RiskCategory)

	if m.ExpectedValue, err = decimalField(doc, "expected_value"); err != nil {
		return nil, err
	}
	if m.FairValue, err = decimalField(doc, "fair_value"); err != nil {
		return nil, err
	}
	if m.MaxLoss, err = decimalField(doc, "max_loss"); err != nil {
		return nil, err
	}
	if m.MaxGain, err = decimalField(doc, "max_gain"); err != nil {
		return nil, err
	}

	if m.Confidence, err = floatField(doc, "confidence"); err != nil {
		return nil, err
	}
	if m.Confidence != nil && (*m.Confidence < 0 || *m.Confidence > 1) {
		return nil, models.Validation("confidence", "must be in [0,1], use 0.45 not 45")
	}

	if m.AllocationPct, err = floatField(doc, "allocation_pct"); err != nil {
		return nil, err
	}
	if m.AllocationPct != nil && (*m.AllocationPct < 0 || *m.AllocationPct > 100) {
		return nil, models.Validation("allocation_pct", "must be in [0,100], use 25 not 0.25")
	}

	if m.OpportunityCostPerceived, err = decimalField(doc, "opportunity_cost_perceived"); err != nil {
		return nil, err
	}
	if m.OpportunityCostReal, err = decimalField(doc, "opportunity_cost_real"); err != nil {
		return nil, err
	}

	status, err := stringField(doc, "status")
	if err != nil {
		return nil, err
	}
	switch strings.ToUpper(status) {
	case "":
		m.Status = StatusOpen
	case StatusOpen:
		m.Status = StatusOpen
	case StatusClosed:
		m.Status = StatusClosed
	default:
		return nil, models.Validation("status", "must be OPEN or CLOSED")
	}

	if m.RealizedValue, err = decimalField(doc, "realized_value"); err != nil {
		return nil, err
	}
	if m.Status == StatusClosed && m.RealizedValue == nil {
		return nil, models.Validation("realized_value", "realized value required to close")
	}

	if m.ClosedAt, err = timeField(doc, "closed_at"); err != nil {
		return nil, err
	}

	if m.RewardHistory, err = historyField(doc, "reward_history"); err != nil {
		return nil, err
	}

	if m.Ownership, err = stringField(doc, "ownership"); err != nil {
		return nil, err
	}
	m.Ownership = strings.ToLower(m.Ownership)
	switch m.Ownership {
	case "", OwnershipMine, OwnershipInfluenced, OwnershipPerformed:
	default:
		return nil, models.Validation("ownership", "must be one of mine, influenced, performed")
	}

	if m.AlignedWithSelf, err = boolField(doc, "aligned_with_self"); err != nil {
		return nil, err
	}
	if m.Voluntary, err = boolField(doc, "voluntary"); err != nil {
		return nil, err
	}
	if m.VoicesPresent, err = stringsField(doc, "voices_present"); err != nil {
		return nil, err
	}
	if m.MotivationInternal, err = boolField(doc, "motivation_internal"); err != nil {
		return nil, err
	}
	if m.MotivationType, err = stringField(doc, "motivation_type"); err != nil {
		return nil, err
	}
	m.MotivationType = strings.ToLower(m.MotivationType)
	switch m.MotivationType {
	case "", MotivationAlignment, MotivationExpectation, MotivationAvoidance, MotivationPruning:
	default:
		return nil, models.Validation("motivation_type", "must be one of alignment, expectation, avoidance, pruning")
	}

	if m.WhatISaw, err = stringField(doc, "what_i_saw"); err != nil {
		return nil, err
	}
	if m.WhyItMattered, err = stringField(doc, "why_it_mattered"); err != nil {
		return nil, err
	}

	// Legacy aliases resolve to the canonical fields on read; the canonical
	// value wins when both are present. The reverse mapping never happens.
	if legacy, lerr := stringField(doc, "what_i_see"); lerr != nil {
		return nil, lerr
	} else if m.WhatISaw == "" {
		m.WhatISaw = legacy
	}
	if legacy, lerr := stringField(doc, "why_i_trust_this"); lerr != nil {
		return nil, lerr
	} else if m.WhyItMattered == "" {
		m.WhyItMattered = legacy
	}

	if m.RelatedTrades, err = idsField(doc, "related_trades"); err != nil {
		return nil, err
	}
	if m.RelatedAlpha, err = idsField(doc, "related_alpha"); err != nil {
		return nil, err
	}
	if m.RelatedCode, err = idsField(doc, "related_code"); err != nil {
		return nil, err
	}

	if quick, qerr := boolField(doc, "quick_mode"); qerr != nil {
		return nil, qerr
	} else if quick != nil {
		m.QuickMode = *quick
	}

	for key, val := range doc {
		if knownMetadataKeys[key] {
			continue
		}
		m.Extra[key] = val
	}

	return m, nil
}

// Document serializes the typed view back to an open metadata document.
// Known fields win over Extra collisions; nil optionals are omitted;
// reward history timestamps are RFC3339.
func (m *RiskMetadata) Document() map[string]any {
	doc := map[string]any{}
	for key, val := range m.Extra {
		if knownMetadataKeys[key] {
			continue
		}
		doc[key] = val
	}

	doc["cost"] = m.Cost.InexactFloat64()
	if m.Currency != "" {
		doc["currency"] = m.Currency
	}
	if m.RiskCategory != "" {
		doc["risk_category"] = m.RiskCategory
	}
	putDecimal(doc, "expected_value", m.ExpectedValue)
	putDecimal(doc, "fair_value", m.FairValue)
	putDecimal(doc, "max_loss", m.MaxLoss)
	putDecimal(doc, "max_gain", m.MaxGain)
	if m.Confidence != nil {
		doc["confidence"] = *m.Confidence
	}
	if m.AllocationPct != nil {
		doc["allocation_pct"] = *m.AllocationPct
	}
	putDecimal(doc, "opportunity_cost_perceived", m.OpportunityCostPerceived)
	putDecimal(doc, "opportunity_cost_real", m.OpportunityCostReal)

	status := m.Status
	if status == "" {
		status = StatusOpen
	}
	doc["status"] = status
	putDecimal(doc, "realized_value", m.RealizedValue)
	if m.ClosedAt != nil {
		doc["closed_at"] = m.ClosedAt.UTC().Format(time.RFC3339)
	}

	history := make([]any, 0, len(m.RewardHistory))
	for _, rec := range m.RewardHistory {
		item := map[string]any{
			"timestamp": rec.Timestamp.UTC().Format(time.RFC3339),
			"value":     rec.Value.InexactFloat64(),
		}
		if rec.Reason != "" {
			item["reason"] = rec.Reason
		}
		history = append(history, item)
	}
	doc["reward_history"] = history

	if m.Ownership != "" {
		doc["ownership"] = m.Ownership
	}
	if m.AlignedWithSelf != nil {
		doc["aligned_with_self"] = *m.AlignedWithSelf
	}
	if m.Voluntary != nil {
		doc["voluntary"] = *m.Voluntary
	}
	if len(m.VoicesPresent) > 0 {
		doc["voices_present"] = m.VoicesPresent
	}
	if m.MotivationInternal != nil {
		doc["motivation_internal"] = *m.MotivationInternal
	}
	if m.MotivationType != "" {
		doc["motivation_type"] = m.MotivationType
	}
	if m.WhatISaw != "" {
		doc["what_i_saw"] = m.WhatISaw
	}
	if m.WhyItMattered != "" {
		doc["why_it_mattered"] = m.WhyItMattered
	}
	if len(m.RelatedTrades) > 0 {
		doc["related_trades"] = m.RelatedTrades
	}
	if len(m.RelatedAlpha) > 0 {
		doc["related_alpha"] = m.RelatedAlpha
	}
	if len(m.RelatedCode) > 0 {
		doc["related_code"] = m.RelatedCode
	}
	if m.QuickMode {
		doc["quick_mode"] = true
	}

	return doc
}

// AppendReward appends exactly one history record. Timestamps never
// decrease: a clock running behind the last record is clamped to it.
func (m *RiskMetadata) AppendReward(value decimal.Decimal, reason string, at time.Time) RewardRecord {
	at = at.UTC()
	if n := len(m.RewardHistory); n > 0 {
		if last := m.RewardHistory[n-1].Timestamp; at.Before(last) {
			at = last
		}
	}
	rec := RewardRecord{Timestamp: at, Value: value, Reason: reason}
	m.RewardHistory = append(m.RewardHistory, rec)
	return rec
}

// Outcome is realized minus cost; false until the risk has a realized value.
func (m *RiskMetadata) Outcome() (decimal.Decimal, bool) {
	if m == nil || m.RealizedValue == nil {
		return decimal.Zero, false
	}
	return m.RealizedValue.Sub(m.Cost), true
}

// ROIPct is Outcome over cost as a percentage. Cost is always positive, so
// the division is safe whenever Outcome is defined.
func (m *RiskMetadata) ROIPct() (float64, bool) {
	outcome, ok := m.Outcome()
	if !ok {
		return 0, false
	}
	return outcome.Div(m.Cost).Mul(decimal.NewFromInt(100)).InexactFloat64(), true
}

func putDecimal(doc map[string]any, key string, val *decimal.Decimal) {
	if val == nil {
		return
	}
	doc[key] = val.InexactFloat64()
}

// --- field coercion ---------------------------------------------------------

func decimalField(doc map[string]any, key string) (*decimal.Decimal, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case decimal.Decimal:
		return &v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, models.Validation(key, "must be a finite number")
		}
		d := decimal.NewFromFloat(v)
		return &d, nil
	case int:
		d := decimal.NewFromInt(int64(v))
		return &d, nil
	case int64:
		d := decimal.NewFromInt(v)
		return &d, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return nil, models.Validation(key, "must be a number")
		}
		return &d, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, models.Validation(key, "must be a number")
		}
		return &d, nil
	}
	return nil, models.Validation(key, "must be a number")
}

func floatField(doc map[string]any, key string) (*float64, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, models.Validation(key, "must be a finite number")
		}
		return &v, nil
	case int:
		f := float64(v)
		return &f, nil
	case int64:
		f := float64(v)
		return &f, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, models.Validation(key, "must be a number")
		}
		return &f, nil
	}
	return nil, models.Validation(key, "must be a number")
}

func boolField(doc map[string]any, key string) (*bool, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		return nil, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return nil, models.Validation(key, "must be true or false")
	}
	return &b, nil
}

func stringField(doc map[string]any, key string) (string, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", models.Validation(key, "must be a string")
	}
	return strings.TrimSpace(s), nil
}

func stringsField(doc map[string]any, key string) ([]string, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, models.Validation(key, "must be a list of strings")
			}
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, models.Validation(key, "must be a list of strings")
}

func idsField(doc map[string]any, key string) ([]uint64, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []uint64:
		return append([]uint64(nil), v...), nil
	case []any:
		out := make([]uint64, 0, len(v))
		for _, item := range v {
			f, ok := item.(float64)
			if !ok || f < 0 || f != math.Trunc(f) {
				return nil, models.Validation(key, "must be a list of entry ids")
			}
			out = append(out, uint64(f))
		}
		return out, nil
	}
	return nil, models.Validation(key, "must be a list of entry ids")
}

func timeField(doc map[string]any, key string) (*time.Time, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case time.Time:
		t := v.UTC()
		return &t, nil
	case string:
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
		if err != nil {
			return nil, models.Validation(key, "must be an RFC3339 timestamp")
		}
		t = t.UTC()
		return &t, nil
	}
	return nil, models.Validation(key, "must be an RFC3339 timestamp")
}

func historyField(doc map[string]any, key string) ([]RewardRecord, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []RewardRecord:
		return append([]RewardRecord(nil), v...), nil
	case []any:
		out := make([]RewardRecord, 0, len(v))
		for _, item := range v {
			rec, ok := item.(map[string]any)
			if !ok {
				return nil, models.Validation(key, "must be a list of reward records")
			}
			ts, err := timeField(rec, "timestamp")
			if err != nil {
				return nil, err
			}
			if ts == nil {
				return nil, models.Validation(key, "reward records need a timestamp")
			}
			val, err := decimalField(rec, "value")
			if err != nil {
				return nil, err
			}
			if val == nil {
				return nil, models.Validation(key, "reward records need a value")
			}
			reason, err := stringField(rec, "reason")
			if err != nil {
				return nil, err
			}
			out = append(out, RewardRecord{Timestamp: *ts, Value: *val, Reason: reason})
		}
		return out, nil
	}
	return nil, models.Validation(key, "must be a list of reward records")
}
