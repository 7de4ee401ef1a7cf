package insights

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"riskjournal/internal/config"
	"riskjournal/internal/models"
	"riskjournal/internal/repository"
	"riskjournal/internal/risk"
)

// maxReportSample caps the per-report detail lists; counts are never capped.
const maxReportSample = 10

// Engine derives behavioral reports from the risk entries in a trailing
// window. It only reads; empty windows produce zero-valued reports.
type Engine struct {
	Config config.InsightsConfig
	Repo   repository.Repository
	Logger *zap.Logger
}

type MisalignedEntry struct {
	EntryID    uint64          `json:"entry_id"`
	CreatedAt  time.Time       `json:"created_at"`
	Ownership  string          `json:"ownership,omitempty"`
	Voluntary  *bool           `json:"voluntary,omitempty"`
	Voices     []string        `json:"voices,omitempty"`
	Motivation string          `json:"motivation,omitempty"`
	Cost       decimal.Decimal `json:"cost"`
	Currency   string          `json:"currency,omitempty"`
}

type MisalignmentReport struct {
	WindowDays       int               `json:"window_days"`
	EntriesScanned   int               `json:"entries_scanned"`
	AlignedCount     int               `json:"aligned_count"`
	MisalignedCount  int               `json:"misaligned_count"`
	MisalignmentRate float64           `json:"misalignment_rate"`
	Misaligned       []MisalignedEntry `json:"misaligned"`
	Ownership        map[string]int    `json:"ownership_distribution"`
	Voices           map[string]int    `json:"voices_distribution"`
	Motivation       map[string]int    `json:"motivation_distribution"`
}

type DriftCorrection struct {
	MisalignedID uint64 `json:"misaligned_id"`
	CorrectedBy  uint64 `json:"corrected_by"`
	MatchedOn    string `json:"matched_on"`
	Category     string `json:"category,omitempty"`
	Days         int    `json:"days"`
}

type DriftReport struct {
	WindowDays       int               `json:"window_days"`
	EntriesScanned   int               `json:"entries_scanned"`
	MisalignedCount  int               `json:"misaligned_count"`
	CorrectionsCount int               `json:"corrections_count"`
	AvgDaysToCorrect float64           `json:"avg_days_to_correct"`
	Corrections      []DriftCorrection `json:"corrections"`
}

type OwnershipGroup struct {
	Count      int             `json:"count"`
	AvgOutcome decimal.Decimal `json:"avg_outcome"`
	AvgROIPct  float64         `json:"avg_roi_pct"`
}

type OwnershipReport struct {
	WindowDays  int                       `json:"window_days"`
	ClosedCount int                       `json:"closed_count"`
	Groups      map[string]OwnershipGroup `json:"groups"`
}

// DetectMisalignment reports how often logged risks were taken against the
// journal owner's own judgement. The rate is taken over every risk entry in
// the window, including entries that never recorded an alignment flag; the
// distributions only cover the misaligned ones.
func (e *Engine) DetectMisalignment(ctx context.Context, days int) (*MisalignmentReport, error) {
	if e == nil || e.Repo == nil {
		return nil, nil
	}
	days = e.windowDays(days)
	rows, err := e.listRiskWindow(ctx, days, false)
	if err != nil {
		return nil, err
	}
	rep := &MisalignmentReport{
		WindowDays:     days,
		EntriesScanned: len(rows),
		Misaligned:     []MisalignedEntry{},
		Ownership:      map[string]int{},
		Voices:         map[string]int{},
		Motivation:     map[string]int{},
	}
	for _, r := range rows {
		if aligned(r.meta) {
			rep.AlignedCount++
			continue
		}
		if !misaligned(r.meta) {
			continue
		}
		rep.MisalignedCount++
		rep.Ownership[orUnknown(r.meta.Ownership)]++
		rep.Motivation[orUnknown(r.meta.MotivationType)]++
		for _, voice := range r.meta.VoicesPresent {
			rep.Voices[voice]++
		}
		if len(rep.Misaligned) < maxReportSample {
			rep.Misaligned = append(rep.Misaligned, MisalignedEntry{
				EntryID:    r.entry.ID,
				CreatedAt:  r.entry.CreatedAt,
				Ownership:  r.meta.Ownership,
				Voluntary:  r.meta.Voluntary,
				Voices:     r.meta.VoicesPresent,
				Motivation: r.meta.MotivationType,
				Cost:       r.meta.Cost,
				Currency:   r.meta.Currency,
			})
		}
	}
	if rep.EntriesScanned > 0 {
		rep.MisalignmentRate = float64(rep.MisalignedCount) / float64(rep.EntriesScanned)
	}
	return rep, nil
}

// DetectDrift pairs each misaligned entry with the earliest later aligned
// entry about the same subject: either the two entries reference each other
// through related_* links, or they share a risk_category close enough in
// time. A correcting entry is consumed by the first misaligned entry it
// matches.
func (e *Engine) DetectDrift(ctx context.Context, days int) (*DriftReport, error) {
	if e == nil || e.Repo == nil {
		return nil, nil
	}
	days = e.windowDays(days)
	rows, err := e.listRiskWindow(ctx, days, true)
	if err != nil {
		return nil, err
	}
	rep := &DriftReport{
		WindowDays:     days,
		EntriesScanned: len(rows),
		Corrections:    []DriftCorrection{},
	}
	proximity := time.Duration(e.proximityDays()) * 24 * time.Hour
	refs := make([]map[uint64]struct{}, len(rows))
	for i := range rows {
		refs[i] = relatedSet(rows[i].meta)
	}
	consumed := make([]bool, len(rows))
	totalDays := 0
	for i := range rows {
		if !misaligned(rows[i].meta) {
			continue
		}
		rep.MisalignedCount++
		for j := i + 1; j < len(rows); j++ {
			if consumed[j] || !aligned(rows[j].meta) {
				continue
			}
			matchedOn, category, ok := subjectMatch(rows[i], rows[j], refs[i], refs[j], proximity)
			if !ok {
				continue
			}
			consumed[j] = true
			elapsed := int(rows[j].entry.CreatedAt.Sub(rows[i].entry.CreatedAt).Hours() / 24)
			rep.CorrectionsCount++
			totalDays += elapsed
			if len(rep.Corrections) < maxReportSample {
				rep.Corrections = append(rep.Corrections, DriftCorrection{
					MisalignedID: rows[i].entry.ID,
					CorrectedBy:  rows[j].entry.ID,
					MatchedOn:    matchedOn,
					Category:     category,
					Days:         elapsed,
				})
			}
			break
		}
	}
	if rep.CorrectionsCount > 0 {
		rep.AvgDaysToCorrect = float64(totalDays) / float64(rep.CorrectionsCount)
	}
	return rep, nil
}

// OwnershipCorrelation groups closed risks by who drove the decision and
// compares their realized outcomes. Groups with no closed entries are
// omitted.
func (e *Engine) OwnershipCorrelation(ctx context.Context, days int) (*OwnershipReport, error) {
	if e == nil || e.Repo == nil {
		return nil, nil
	}
	days = e.windowDays(days)
	rows, err := e.listRiskWindow(ctx, days, false)
	if err != nil {
		return nil, err
	}
	rep := &OwnershipReport{
		WindowDays: days,
		Groups:     map[string]OwnershipGroup{},
	}
	type acc struct {
		count   int
		outcome decimal.Decimal
		roi     float64
	}
	groups := map[string]*acc{}
	for _, r := range rows {
		if r.meta.Status != risk.StatusClosed {
			continue
		}
		outcome, ok := r.meta.Outcome()
		if !ok {
			continue
		}
		rep.ClosedCount++
		if r.meta.Ownership == "" {
			continue
		}
		g := groups[r.meta.Ownership]
		if g == nil {
			g = &acc{}
			groups[r.meta.Ownership] = g
		}
		g.count++
		g.outcome = g.outcome.Add(outcome)
		if roi, ok := r.meta.ROIPct(); ok {
			g.roi += roi
		}
	}
	for name, g := range groups {
		rep.Groups[name] = OwnershipGroup{
			Count:      g.count,
			AvgOutcome: g.outcome.Div(decimal.NewFromInt(int64(g.count))),
			AvgROIPct:  g.roi / float64(g.count),
		}
	}
	return rep, nil
}

type riskRow struct {
	entry models.Entry
	meta  *risk.RiskMetadata
}

// listRiskWindow pages through the risk entries created within the trailing
// window, skipping rows whose metadata no longer parses. days <= 0 scans
// without a date bound.
func (e *Engine) listRiskWindow(ctx context.Context, days int, asc bool) ([]riskRow, error) {
	var since *time.Time
	if days > 0 {
		cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
		since = &cutoff
	}
	entryType := models.EntryTypeRisk
	limit := e.scanLimit()
	rows := make([]riskRow, 0, 64)
	const pageSize = 200
	for offset := 0; ; offset += pageSize {
		batch, err := e.Repo.ListEntries(ctx, repository.ListEntriesParams{
			Limit:     pageSize,
			Offset:    offset,
			EntryType: &entryType,
			Since:     since,
			OrderBy:   "created_at",
			Asc:       &asc,
		})
		if err != nil {
			return nil, err
		}
		for i := range batch {
			meta, perr := risk.ParseRiskMetadata(batch[i].DecodedMetadata())
			if perr != nil {
				if e.Logger != nil {
					e.Logger.Warn("skipping malformed risk entry",
						zap.Uint64("entry_id", batch[i].ID),
						zap.Error(perr))
				}
				continue
			}
			rows = append(rows, riskRow{entry: batch[i], meta: meta})
			if len(rows) >= limit {
				return rows, nil
			}
		}
		if len(batch) < pageSize {
			return rows, nil
		}
	}
}

func (e *Engine) windowDays(days int) int {
	if days > 0 {
		return days
	}
	if e.Config.WindowDays > 0 {
		return e.Config.WindowDays
	}
	return 90
}

func (e *Engine) proximityDays() int {
	if e.Config.DriftProximityDays > 0 {
		return e.Config.DriftProximityDays
	}
	return 30
}

func (e *Engine) scanLimit() int {
	if e.Config.ScanLimit > 0 {
		return e.Config.ScanLimit
	}
	return 1000
}

func aligned(m *risk.RiskMetadata) bool {
	return m.AlignedWithSelf != nil && *m.AlignedWithSelf
}

func misaligned(m *risk.RiskMetadata) bool {
	return m.AlignedWithSelf != nil && !*m.AlignedWithSelf
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func relatedSet(m *risk.RiskMetadata) map[uint64]struct{} {
	n := len(m.RelatedTrades) + len(m.RelatedAlpha) + len(m.RelatedCode)
	if n == 0 {
		return nil
	}
	out := make(map[uint64]struct{}, n)
	for _, id := range m.RelatedTrades {
		out[id] = struct{}{}
	}
	for _, id := range m.RelatedAlpha {
		out[id] = struct{}{}
	}
	for _, id := range m.RelatedCode {
		out[id] = struct{}{}
	}
	return out
}

// subjectMatch decides whether b corrects a. Link references match at any
// distance inside the window; a shared category only matches within the
// configured proximity.
func subjectMatch(a, b riskRow, aRefs, bRefs map[uint64]struct{}, proximity time.Duration) (string, string, bool) {
	if _, ok := bRefs[a.entry.ID]; ok {
		return "link", "", true
	}
	if _, ok := aRefs[b.entry.ID]; ok {
		return "link", "", true
	}
	for id := range aRefs {
		if _, ok := bRefs[id]; ok {
			return "link", "", true
		}
	}
	cat := a.meta.RiskCategory
	if cat != "" && cat == b.meta.RiskCategory && b.entry.CreatedAt.Sub(a.entry.CreatedAt) <= proximity {
		return "category", cat, true
	}
	return "", "", false
}
