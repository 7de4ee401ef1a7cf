package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalDailyStats is a per-UTC-day rollup over entries, rebuilt by the
// stats cron job.
type JournalDailyStats struct {
	ID   uint64    `gorm:"primaryKey;autoIncrement"`
	Date time.Time `gorm:"type:date;not null;uniqueIndex"`

	EntriesCount int `gorm:"not null;default:0"`
	RisksOpened  int `gorm:"not null;default:0"`
	RisksClosed  int `gorm:"not null;default:0"`
	QuickCount   int `gorm:"not null;default:0"`

	OpenCostTotal    decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	RealizedPnLTotal decimal.Decimal `gorm:"column:realized_pnl_total;type:numeric(30,10);not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (JournalDailyStats) TableName() string {
	return "journal_daily_stats"
}
