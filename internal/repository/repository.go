package repository

import (
	"context"
	"time"

	"riskjournal/internal/models"
)

// Repository is the persistence surface for the journal. Implementations
// validate writes, map driver errors to the models error types, and never
// partially apply an operation.
type Repository interface {
	// Entries
	InsertEntry(ctx context.Context, item *models.Entry) error
	GetEntryByID(ctx context.Context, id uint64) (*models.Entry, error)
	ListEntries(ctx context.Context, params ListEntriesParams) ([]models.Entry, error)
	CountEntries(ctx context.Context, params ListEntriesParams) (int64, error)
	UpdateEntry(ctx context.Context, item *models.Entry) error
	DeleteEntry(ctx context.Context, id uint64) (bool, error)
	ListLatestEntriesByType(ctx context.Context, entryType string, limit int) ([]models.Entry, error)

	// Daily rollups
	UpsertJournalDailyStats(ctx context.Context, item *models.JournalDailyStats) error
	ListJournalDailyStats(ctx context.Context, params ListDailyStatsParams) ([]models.JournalDailyStats, error)
	RebuildJournalDailyStats(ctx context.Context, since, until *time.Time) (int, error)

	// System settings
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
	CountSystemSettings(ctx context.Context, params ListSystemSettingsParams) (int64, error)
}

type ListEntriesParams struct {
	Limit     int
	Offset    int
	EntryType *string
	// Status filters risk entries by the metadata status field.
	Status  *string
	Tag     *string
	Since   *time.Time
	Until   *time.Time
	OrderBy string
	Asc     *bool
}

type ListDailyStatsParams struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}
