package insights

import (
	"context"
	"sort"
	"strings"
	"time"

	"riskjournal/internal/models"
	"riskjournal/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Entry listing mirrors the store's ordering and paging; the reports never
// touch rollups or settings.
type stubRepo struct {
	entries map[uint64]*models.Entry
	nextID  uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{entries: map[uint64]*models.Entry{}}
}

func (s *stubRepo) InsertEntry(ctx context.Context, item *models.Entry) error {
	s.nextID++
	item.ID = s.nextID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC().Add(time.Duration(s.nextID) * time.Millisecond)
	}
	item.UpdatedAt = item.CreatedAt
	cp := *item
	s.entries[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetEntryByID(ctx context.Context, id uint64) (*models.Entry, error) {
	item, ok := s.entries[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "entry", ID: id}
	}
	cp := *item
	return &cp, nil
}

func (s *stubRepo) ListEntries(ctx context.Context, params repository.ListEntriesParams) ([]models.Entry, error) {
	matched := s.filtered(params)
	asc := params.Asc != nil && *params.Asc
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			if asc {
				return a.ID < b.ID
			}
			return a.ID > b.ID
		}
		if asc {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	limit := params.Limit
	if limit <= 0 {
		limit = 200
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *stubRepo) CountEntries(ctx context.Context, params repository.ListEntriesParams) (int64, error) {
	return int64(len(s.filtered(params))), nil
}

func (s *stubRepo) UpdateEntry(ctx context.Context, item *models.Entry) error {
	if _, ok := s.entries[item.ID]; !ok {
		return &models.NotFoundError{Kind: "entry", ID: item.ID}
	}
	cp := *item
	s.entries[item.ID] = &cp
	return nil
}

func (s *stubRepo) DeleteEntry(ctx context.Context, id uint64) (bool, error) {
	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

func (s *stubRepo) ListLatestEntriesByType(ctx context.Context, entryType string, limit int) ([]models.Entry, error) {
	et := entryType
	out, err := s.ListEntries(ctx, repository.ListEntriesParams{EntryType: &et, Limit: limit})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *stubRepo) UpsertJournalDailyStats(ctx context.Context, item *models.JournalDailyStats) error {
	return nil
}

func (s *stubRepo) ListJournalDailyStats(ctx context.Context, params repository.ListDailyStatsParams) ([]models.JournalDailyStats, error) {
	return nil, nil
}

func (s *stubRepo) RebuildJournalDailyStats(ctx context.Context, since, until *time.Time) (int, error) {
	return 0, nil
}

func (s *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	return nil
}

func (s *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	return nil, nil
}

func (s *stubRepo) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	return nil, nil
}

func (s *stubRepo) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	return 0, nil
}

func (s *stubRepo) filtered(params repository.ListEntriesParams) []models.Entry {
	var out []models.Entry
	for _, item := range s.entries {
		if params.EntryType != nil && *params.EntryType != "" && item.EntryType != *params.EntryType {
			continue
		}
		if params.Status != nil && *params.Status != "" {
			status, _ := item.DecodedMetadata()["status"].(string)
			if !strings.EqualFold(status, *params.Status) {
				continue
			}
		}
		if params.Since != nil && item.CreatedAt.Before(*params.Since) {
			continue
		}
		if params.Until != nil && item.CreatedAt.After(*params.Until) {
			continue
		}
		out = append(out, *item)
	}
	return out
}
