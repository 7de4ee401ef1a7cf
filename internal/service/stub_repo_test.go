package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"riskjournal/internal/models"
	"riskjournal/internal/repository"
)

// stubRepo is a test-only in-memory implementation of
// repository.Repository. It mirrors the store's validation and the
// (nil, nil) miss behavior of the settings lookups; the rollup methods are
// inert because the services under test never reach them.
type stubRepo struct {
	entries  map[uint64]*models.Entry
	settings map[string]*models.SystemSetting
	nextID   uint64
	rebuilds int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		entries:  make(map[uint64]*models.Entry),
		settings: make(map[string]*models.SystemSetting),
	}
}

func (s *stubRepo) InsertEntry(_ context.Context, item *models.Entry) error {
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
	s.nextID++
	item.ID = s.nextID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC().Add(time.Duration(item.ID) * time.Millisecond)
	}
	cp := *item
	s.entries[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetEntryByID(_ context.Context, id uint64) (*models.Entry, error) {
	item, ok := s.entries[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "entry", ID: id}
	}
	cp := *item
	return &cp, nil
}

func (s *stubRepo) ListEntries(_ context.Context, params repository.ListEntriesParams) ([]models.Entry, error) {
	matched := s.filtered(params)
	asc := params.Asc != nil && *params.Asc
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if asc {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if asc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
	limit := params.Limit
	if limit <= 0 {
		limit = 200
	}
	offset := params.Offset
	if offset >= len(matched) {
		return []models.Entry{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *stubRepo) CountEntries(_ context.Context, params repository.ListEntriesParams) (int64, error) {
	return int64(len(s.filtered(params))), nil
}

func (s *stubRepo) UpdateEntry(_ context.Context, item *models.Entry) error {
	if _, ok := s.entries[item.ID]; !ok {
		return &models.NotFoundError{Kind: "entry", ID: item.ID}
	}
	cp := *item
	s.entries[item.ID] = &cp
	return nil
}

func (s *stubRepo) DeleteEntry(_ context.Context, id uint64) (bool, error) {
	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

func (s *stubRepo) ListLatestEntriesByType(ctx context.Context, entryType string, limit int) ([]models.Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.ListEntries(ctx, repository.ListEntriesParams{EntryType: &entryType, Limit: limit})
}

func (s *stubRepo) UpsertJournalDailyStats(context.Context, *models.JournalDailyStats) error {
	return nil
}

func (s *stubRepo) ListJournalDailyStats(context.Context, repository.ListDailyStatsParams) ([]models.JournalDailyStats, error) {
	return nil, nil
}

func (s *stubRepo) RebuildJournalDailyStats(context.Context, *time.Time, *time.Time) (int, error) {
	s.rebuilds++
	return 1, nil
}

func (s *stubRepo) UpsertSystemSetting(_ context.Context, item *models.SystemSetting) error {
	if item == nil || strings.TrimSpace(item.Key) == "" {
		return nil
	}
	key := strings.TrimSpace(item.Key)
	cp := *item
	cp.Key = key
	if existing, ok := s.settings[key]; ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.ID = uint64(len(s.settings) + 1)
	}
	s.settings[key] = &cp
	return nil
}

func (s *stubRepo) GetSystemSettingByKey(_ context.Context, key string) (*models.SystemSetting, error) {
	item, ok := s.settings[strings.TrimSpace(key)]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (s *stubRepo) ListSystemSettings(_ context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	out := make([]models.SystemSetting, 0, len(s.settings))
	for _, item := range s.settings {
		if params.Prefix != nil && !strings.HasPrefix(item.Key, *params.Prefix) {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *stubRepo) CountSystemSettings(_ context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	items, _ := s.ListSystemSettings(context.Background(), params)
	return int64(len(items)), nil
}

func (s *stubRepo) filtered(params repository.ListEntriesParams) []models.Entry {
	out := make([]models.Entry, 0, len(s.entries))
	for _, item := range s.entries {
		if params.EntryType != nil && item.EntryType != *params.EntryType {
			continue
		}
		if params.Since != nil && item.CreatedAt.Before(*params.Since) {
			continue
		}
		if params.Until != nil && item.CreatedAt.After(*params.Until) {
			continue
		}
		if params.Status != nil {
			status, _ := item.DecodedMetadata()["status"].(string)
			if !strings.EqualFold(status, *params.Status) {
				continue
			}
		}
		if params.Tag != nil {
			found := false
			for _, tag := range item.DecodedTags() {
				if strings.EqualFold(tag, *params.Tag) {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, *item)
	}
	return out
}
