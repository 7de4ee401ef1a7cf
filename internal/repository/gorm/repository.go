package gormrepository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"riskjournal/internal/models"
	"riskjournal/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- entries ----------------------------------------------------------------

func (s *Store) InsertEntry(ctx context.Context, item *models.Entry) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if err := normalizeEntry(item); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return storage("insert entry", err)
	}
	return nil
}

func (s *Store) GetEntryByID(ctx context.Context, id uint64) (*models.Entry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if id == 0 {
		return nil, &models.NotFoundError{Kind: "entry", ID: id}
	}
	var item models.Entry
	err := s.db.WithContext(ctx).Model(&models.Entry{}).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &models.NotFoundError{Kind: "entry", ID: id}
	}
	if err != nil {
		return nil, storage("get entry", err)
	}
	return &item, nil
}

func (s *Store) ListEntries(ctx context.Context, params repository.ListEntriesParams) ([]models.Entry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyEntryFilters(s.db.WithContext(ctx).Model(&models.Entry{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Entry
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, storage("list entries", err)
	}
	return items, nil
}

func (s *Store) CountEntries(ctx context.Context, params repository.ListEntriesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := applyEntryFilters(s.db.WithContext(ctx).Model(&models.Entry{}), params)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, storage("count entries", err)
	}
	return total, nil
}

// UpdateEntry replaces the mutable columns of an existing row. The id,
// entry_type and created_at of the stored row never change.
func (s *Store) UpdateEntry(ctx context.Context, item *models.Entry) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.ID == 0 {
		return &models.NotFoundError{Kind: "entry", ID: 0}
	}
	if err := normalizeEntry(item); err != nil {
		return err
	}
	updates := map[string]any{
		"notes":      item.Notes,
		"tags":       item.Tags,
		"metadata":   item.Metadata,
		"source":     item.Source,
		"updated_at": time.Now().UTC(),
	}
	res := s.db.WithContext(ctx).
		Model(&models.Entry{}).
		Where("id = ?", item.ID).
		Updates(updates)
	if res.Error != nil {
		return storage("update entry", res.Error)
	}
	if res.RowsAffected == 0 {
		return &models.NotFoundError{Kind: "entry", ID: item.ID}
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, id uint64) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	if id == 0 {
		return false, nil
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Entry{})
	if res.Error != nil {
		return false, storage("delete entry", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ListLatestEntriesByType(ctx context.Context, entryType string, limit int) ([]models.Entry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	entryType = strings.TrimSpace(entryType)
	if entryType == "" {
		return nil, nil
	}
	limit = normalizeLimit(limit, 10)
	var items []models.Entry
	if err := s.db.WithContext(ctx).
		Model(&models.Entry{}).
		Where("entry_type = ?", entryType).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, storage("list latest entries", err)
	}
	return items, nil
}

func applyEntryFilters(query *gorm.DB, params repository.ListEntriesParams) *gorm.DB {
	if params.EntryType != nil && strings.TrimSpace(*params.EntryType) != "" {
		query = query.Where("entry_type = ?", strings.TrimSpace(*params.EntryType))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		status := strings.ToUpper(strings.TrimSpace(*params.Status))
		query = query.Where(datatypes.JSONQuery("metadata").Equals(status, "status"))
	}
	if params.Tag != nil && strings.TrimSpace(*params.Tag) != "" {
		query = applyTagFilter(query, strings.TrimSpace(*params.Tag))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", params.Since.UTC())
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("created_at <= ?", params.Until.UTC())
	}
	return query
}

// applyTagFilter matches one element of the tags JSON array. sqlite gets the
// json_each form; other dialects fall back to a quoted text match.
func applyTagFilter(query *gorm.DB, tag string) *gorm.DB {
	if query.Dialector != nil && query.Dialector.Name() == "sqlite" {
		return query.Where(datatypes.JSONArrayQuery("tags").Contains(tag))
	}
	return query.Where("CAST(tags AS TEXT) LIKE ?", `%"`+tag+`"%`)
}

// normalizeEntry trims and validates the caller-controlled columns before a
// write touches the database.
func normalizeEntry(item *models.Entry) error {
	item.EntryType = strings.ToLower(strings.TrimSpace(item.EntryType))
	if !models.ValidEntryType(item.EntryType) {
		return models.Validation("entry_type", "must be one of "+strings.Join(models.EntryTypes(), ", "))
	}
	item.Notes = strings.TrimSpace(item.Notes)
	if item.Notes == "" {
		return models.Validation("notes", "notes must not be empty")
	}
	if strings.TrimSpace(item.Source) == "" {
		item.Source = models.SourceManual
	}
	if len(item.Tags) == 0 {
		item.SetTags(nil)
	}
	if len(item.Metadata) == 0 {
		_ = item.SetMetadata(nil)
	}
	return nil
}

// --- daily rollups ----------------------------------------------------------

func (s *Store) UpsertJournalDailyStats(ctx context.Context, item *models.JournalDailyStats) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.Date.IsZero() {
		return nil
	}
	item.Date = dateOf(item.Date)
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"entries_count",
			"risks_opened",
			"risks_closed",
			"quick_count",
			"open_cost_total",
			"realized_pnl_total",
			"updated_at",
		}),
	}).Create(item).Error; err != nil {
		return storage("upsert daily stats", err)
	}
	return nil
}

func (s *Store) ListJournalDailyStats(ctx context.Context, params repository.ListDailyStatsParams) ([]models.JournalDailyStats, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.JournalDailyStats{})
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("date >= ?", dateOf(*params.Since))
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("date <= ?", dateOf(*params.Until))
	}
	limit := normalizeLimit(params.Limit, 500)
	offset := normalizeOffset(params.Offset)
	var items []models.JournalDailyStats
	if err := query.Order("date desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, storage("list daily stats", err)
	}
	return items, nil
}

type dayBucket struct {
	entries  int
	opened   int
	closed   int
	quick    int
	openCost decimal.Decimal
	realized decimal.Decimal
}

// RebuildJournalDailyStats recomputes the per-day rollups from the entries
// table. Close events can land on a later day than the opening entry, so
// closed risks are scanned without the created_at lower bound.
func (s *Store) RebuildJournalDailyStats(ctx context.Context, since, until *time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Entry{})
	if since != nil && !since.IsZero() {
		query = query.Where("created_at >= ?", since.UTC())
	}
	if until != nil && !until.IsZero() {
		query = query.Where("created_at <= ?", until.UTC())
	}
	var entries []models.Entry
	if err := query.Order("created_at asc").Find(&entries).Error; err != nil {
		return 0, storage("rebuild daily stats", err)
	}

	days := map[time.Time]*dayBucket{}
	bucketFor := func(day time.Time) *dayBucket {
		if b, ok := days[day]; ok {
			return b
		}
		b := &dayBucket{openCost: decimal.Zero, realized: decimal.Zero}
		days[day] = b
		return b
	}

	for i := range entries {
		e := &entries[i]
		b := bucketFor(dateOf(e.CreatedAt))
		b.entries++
		if e.EntryType != models.EntryTypeRisk {
			continue
		}
		b.opened++
		meta := e.DecodedMetadata()
		if cost, ok := metaDecimal(meta, "cost"); ok {
			b.openCost = b.openCost.Add(cost)
		}
		if quick, _ := meta["quick_mode"].(bool); quick {
			b.quick++
		}
	}

	closeQuery := s.db.WithContext(ctx).
		Model(&models.Entry{}).
		Where("entry_type = ?", models.EntryTypeRisk)
	if until != nil && !until.IsZero() {
		closeQuery = closeQuery.Where("created_at <= ?", until.UTC())
	}
	var risks []models.Entry
	if err := closeQuery.Find(&risks).Error; err != nil {
		return 0, storage("rebuild daily stats", err)
	}
	for i := range risks {
		meta := risks[i].DecodedMetadata()
		if status, _ := meta["status"].(string); !strings.EqualFold(status, "CLOSED") {
			continue
		}
		closedAt, ok := metaTime(meta, "closed_at")
		if !ok {
			continue
		}
		if since != nil && !since.IsZero() && closedAt.Before(since.UTC()) {
			continue
		}
		if until != nil && !until.IsZero() && closedAt.After(until.UTC()) {
			continue
		}
		b := bucketFor(dateOf(closedAt))
		b.closed++
		realized, ok := metaDecimal(meta, "realized_value")
		if !ok {
			continue
		}
		cost, _ := metaDecimal(meta, "cost")
		b.realized = b.realized.Add(realized.Sub(cost))
	}

	dates := make([]time.Time, 0, len(days))
	for day := range days {
		dates = append(dates, day)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	updated := 0
	now := time.Now().UTC()
	for _, day := range dates {
		b := days[day]
		item := &models.JournalDailyStats{
			Date:             day,
			EntriesCount:     b.entries,
			RisksOpened:      b.opened,
			RisksClosed:      b.closed,
			QuickCount:       b.quick,
			OpenCostTotal:    b.openCost,
			RealizedPnLTotal: b.realized,
			UpdatedAt:        now,
		}
		if err := s.UpsertJournalDailyStats(ctx, item); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error; err != nil {
		return storage("upsert setting", err)
	}
	return nil
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storage("get setting", err)
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		pattern := strings.TrimSpace(*params.Prefix) + "%"
		query = query.Where("key LIKE ?", pattern)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "key")
	limit := normalizeLimit(params.Limit, 500)
	offset := normalizeOffset(params.Offset)
	var items []models.SystemSetting
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, storage("list settings", err)
	}
	return items, nil
}

func (s *Store) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		pattern := strings.TrimSpace(*params.Prefix) + "%"
		query = query.Where("key LIKE ?", pattern)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, storage("count settings", err)
	}
	return total, nil
}

// --- helpers ----------------------------------------------------------------

func storage(op string, err error) error {
	return &models.StorageError{Op: op, Err: err}
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func metaDecimal(meta map[string]any, key string) (decimal.Decimal, bool) {
	raw, ok := meta[key]
	if !ok || raw == nil {
		return decimal.Zero, false
	}
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

func metaTime(meta map[string]any, key string) (time.Time, bool) {
	raw, _ := meta[key].(string)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

var _ repository.Repository = (*Store)(nil)
