package risk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"riskjournal/internal/config"
	"riskjournal/internal/models"
	"riskjournal/internal/repository"
	"riskjournal/internal/stream"
	"riskjournal/internal/tagger"
)

// Manager drives the open/adjust/close lifecycle of risk entries. Every
// mutation validates the complete metadata document before anything is
// written, so a failed call leaves the stored entry untouched.
type Manager struct {
	Config config.JournalConfig
	Repo   repository.Repository
	Logger *zap.Logger
	Hub    *stream.Hub
	Tagger *tagger.Tagger
}

// View pairs a stored entry with its typed metadata.
type View struct {
	Entry models.Entry
	Meta  *RiskMetadata
}

type OpenInput struct {
	Notes    string
	Tags     []string
	Source   string
	Metadata map[string]any
}

type QuickOpenInput struct {
	Notes    string
	Cost     decimal.Decimal
	Currency string
}

type AdjustInput struct {
	Changes map[string]any
	Reward  *decimal.Decimal
	Reason  string
}

type CloseInput struct {
	RealizedValue *decimal.Decimal
	Reason        string
}

type ListParams struct {
	Status   string
	Category string
	Limit    int
	Offset   int
}

// ResolveCurrency returns the currency of the most recently created risk
// entry that carries one, scanning newest first, bounded by limit. Evaluated
// once per creation and never re-evaluated later.
func ResolveCurrency(ctx context.Context, repo repository.Repository, limit int, fallback string) string {
	if repo == nil {
		return fallback
	}
	if limit <= 0 {
		limit = 10
	}
	entries, err := repo.ListLatestEntriesByType(ctx, models.EntryTypeRisk, limit)
	if err != nil {
		return fallback
	}
	for i := range entries {
		cur, _ := entries[i].DecodedMetadata()["currency"].(string)
		if cur = strings.TrimSpace(cur); cur != "" {
			return cur
		}
	}
	return fallback
}

// Open creates a new risk entry. Status is forced OPEN and the reward
// history starts empty regardless of the input document.
func (m *Manager) Open(ctx context.Context, input OpenInput) (*View, error) {
	if m == nil || m.Repo == nil {
		return nil, nil
	}
	meta, err := ParseRiskMetadata(input.Metadata)
	if err != nil {
		return nil, err
	}
	meta.Status = StatusOpen
	meta.RewardHistory = nil
	meta.ClosedAt = nil
	if meta.Currency == "" {
		meta.Currency = m.resolveCurrency(ctx)
	}

	entry := &models.Entry{
		EntryType: models.EntryTypeRisk,
		Notes:     strings.TrimSpace(input.Notes),
		Source:    strings.TrimSpace(input.Source),
	}
	entry.SetTags(m.riskTags(input.Tags, entry.Notes, meta))
	if err := entry.SetMetadata(meta.Document()); err != nil {
		return nil, err
	}
	if err := m.Repo.InsertEntry(ctx, entry); err != nil {
		return nil, err
	}
	m.publish(stream.ActionRiskOpen, entry, meta.Status)
	if m.Logger != nil {
		m.Logger.Info("risk opened",
			zap.Uint64("entry_id", entry.ID),
			zap.String("cost", meta.Cost.String()),
			zap.String("currency", meta.Currency),
			zap.Bool("quick", meta.QuickMode))
	}
	return &View{Entry: *entry, Meta: meta}, nil
}

// QuickOpen is abbreviated capture: cost and notes only, quick_mode marked,
// category suggested from the notes when enabled.
func (m *Manager) QuickOpen(ctx context.Context, input QuickOpenInput) (*View, error) {
	if m == nil || m.Repo == nil {
		return nil, nil
	}
	doc := map[string]any{
		"cost":       input.Cost,
		"quick_mode": true,
	}
	if cur := strings.TrimSpace(input.Currency); cur != "" {
		doc["currency"] = cur
	}
	if m.Config.SuggestCategory && m.Tagger != nil {
		if cat, conf := m.Tagger.SuggestRiskCategory(input.Notes); conf >= 0.7 {
			doc["risk_category"] = cat
		}
	}
	return m.Open(ctx, OpenInput{Notes: input.Notes, Metadata: doc})
}

// Adjust applies non-status changes to a risk entry. Unknown keys merge into
// the open document; a reward (with optional reason) appends exactly one
// history record. Scalars stay adjustable after close.
func (m *Manager) Adjust(ctx context.Context, id uint64, input AdjustInput) (*View, error) {
	if m == nil || m.Repo == nil {
		return nil, nil
	}
	entry, err := m.loadEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := input.Changes["status"]; ok {
		return nil, models.Validation("status", "status cannot be adjusted, close the risk instead")
	}
	if _, ok := input.Changes["reward_history"]; ok {
		return nil, models.Validation("reward_history", "history is append-only, use reward and reason")
	}
	if _, ok := input.Changes["closed_at"]; ok {
		return nil, models.Validation("closed_at", "set when the risk closes")
	}
	if input.Reward == nil && strings.TrimSpace(input.Reason) != "" {
		return nil, models.Validation("reward", "reward value required when a reason is given")
	}

	doc := entry.DecodedMetadata()
	for key, val := range input.Changes {
		doc[key] = val
	}
	meta, err := ParseRiskMetadata(doc)
	if err != nil {
		return nil, err
	}
	if input.Reward != nil {
		meta.AppendReward(*input.Reward, strings.TrimSpace(input.Reason), time.Now().UTC())
	}
	if err := m.save(ctx, entry, meta); err != nil {
		return nil, err
	}
	m.publish(stream.ActionRiskAdjust, entry, meta.Status)
	if m.Logger != nil {
		m.Logger.Info("risk adjusted",
			zap.Uint64("entry_id", entry.ID),
			zap.Int("changes", len(input.Changes)),
			zap.Bool("reward_appended", input.Reward != nil))
	}
	return &View{Entry: *entry, Meta: meta}, nil
}

// Close transitions a risk to CLOSED. The realized value must arrive with
// the call or already be present on the entry. CLOSED is terminal.
func (m *Manager) Close(ctx context.Context, id uint64, input CloseInput) (*View, error) {
	if m == nil || m.Repo == nil {
		return nil, nil
	}
	entry, meta, err := m.loadView(ctx, id)
	if err != nil {
		return nil, err
	}
	if meta.Status == StatusClosed {
		return nil, models.Validation("status", fmt.Sprintf("risk %d is already closed", id))
	}
	realized := input.RealizedValue
	if realized == nil {
		realized = meta.RealizedValue
	}
	if realized == nil {
		return nil, models.Validation("realized_value", "realized value required to close")
	}

	now := time.Now().UTC()
	meta.Status = StatusClosed
	meta.RealizedValue = realized
	meta.ClosedAt = &now
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "realized"
	}
	meta.AppendReward(*realized, reason, now)

	if err := m.save(ctx, entry, meta); err != nil {
		return nil, err
	}
	m.publish(stream.ActionRiskClose, entry, meta.Status)
	if m.Logger != nil {
		outcome, _ := meta.Outcome()
		m.Logger.Info("risk closed",
			zap.Uint64("entry_id", entry.ID),
			zap.String("realized", realized.String()),
			zap.String("outcome", outcome.String()))
	}
	return &View{Entry: *entry, Meta: meta}, nil
}

// Get returns the typed view of one risk entry.
func (m *Manager) Get(ctx context.Context, id uint64) (*View, error) {
	if m == nil || m.Repo == nil {
		return nil, nil
	}
	entry, meta, err := m.loadView(ctx, id)
	if err != nil {
		return nil, err
	}
	return &View{Entry: *entry, Meta: meta}, nil
}

// List returns typed views filtered by status and category. Entries whose
// documents no longer parse are skipped with a warning rather than failing
// the whole listing.
func (m *Manager) List(ctx context.Context, params ListParams) ([]View, error) {
	if m == nil || m.Repo == nil {
		return nil, nil
	}
	entryType := models.EntryTypeRisk
	lp := repository.ListEntriesParams{
		Limit:     params.Limit,
		Offset:    params.Offset,
		EntryType: &entryType,
	}
	if status := strings.TrimSpace(params.Status); status != "" {
		status = strings.ToUpper(status)
		lp.Status = &status
	}
	if cat := strings.ToLower(strings.TrimSpace(params.Category)); cat != "" {
		lp.Tag = &cat
	}
	entries, err := m.Repo.ListEntries(ctx, lp)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(entries))
	for i := range entries {
		meta, perr := ParseRiskMetadata(entries[i].DecodedMetadata())
		if perr != nil {
			if m.Logger != nil {
				m.Logger.Warn("skipping malformed risk entry",
					zap.Uint64("entry_id", entries[i].ID),
					zap.Error(perr))
			}
			continue
		}
		views = append(views, View{Entry: entries[i], Meta: meta})
	}
	return views, nil
}

func (m *Manager) loadEntry(ctx context.Context, id uint64) (*models.Entry, error) {
	entry, err := m.Repo.GetEntryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, &models.NotFoundError{Kind: "entry", ID: id}
	}
	if entry.EntryType != models.EntryTypeRisk {
		return nil, models.Validation("entry_type", fmt.Sprintf("entry %d is not a risk entry", id))
	}
	return entry, nil
}

func (m *Manager) loadView(ctx context.Context, id uint64) (*models.Entry, *RiskMetadata, error) {
	entry, err := m.loadEntry(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	meta, err := ParseRiskMetadata(entry.DecodedMetadata())
	if err != nil {
		return nil, nil, err
	}
	return entry, meta, nil
}

func (m *Manager) save(ctx context.Context, entry *models.Entry, meta *RiskMetadata) error {
	if err := entry.SetMetadata(meta.Document()); err != nil {
		return err
	}
	return m.Repo.UpdateEntry(ctx, entry)
}

func (m *Manager) resolveCurrency(ctx context.Context) string {
	fallback := strings.TrimSpace(m.Config.DefaultCurrency)
	if fallback == "" {
		fallback = "USD"
	}
	return ResolveCurrency(ctx, m.Repo, m.Config.CurrencyScanLimit, fallback)
}

// riskTags merges caller tags, note hashtags, the category and the fixed
// "risk" marker, lowercased and deduplicated in first-appearance order.
func (m *Manager) riskTags(tags []string, notes string, meta *RiskMetadata) []string {
	merged := append([]string(nil), tags...)
	if m.Config.HashtagTags {
		merged = append(merged, tagger.ExtractHashtags(notes)...)
	}
	if meta.RiskCategory != "" {
		merged = append(merged, meta.RiskCategory)
	}
	merged = append(merged, models.EntryTypeRisk)

	seen := map[string]struct{}{}
	out := make([]string, 0, len(merged))
	for _, raw := range merged {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func (m *Manager) publish(action string, entry *models.Entry, status string) {
	if m.Hub == nil {
		return
	}
	m.Hub.Publish(stream.Event{
		Action:    action,
		EntryID:   entry.ID,
		EntryType: entry.EntryType,
		Status:    status,
	})
}
