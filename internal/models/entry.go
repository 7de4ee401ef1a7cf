package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	EntryTypeTrade       = "trade"
	EntryTypeCode        = "code"
	EntryTypeAlpha       = "alpha"
	EntryTypeLearning    = "learning"
	EntryTypeAction      = "action"
	EntryTypeNote        = "note"
	EntryTypeOpportunity = "opportunity"
	EntryTypeRisk        = "risk"
)

const (
	SourceManual = "manual"
	SourceAuto   = "auto"
	SourceSync   = "sync"
)

// Entry is one logged activity. Risk entries are entries with
// EntryType "risk"; their typed fields live inside the Metadata document.
type Entry struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	EntryType string `gorm:"type:varchar(20);not null;index"`

	Notes string         `gorm:"type:text;not null"`
	Tags  datatypes.JSON `gorm:"type:jsonb"`

	// Metadata is an open document. Known risk fields are validated on
	// write; unknown keys are preserved verbatim.
	Metadata datatypes.JSON `gorm:"type:jsonb"`

	Source string `gorm:"type:varchar(20);not null;default:'manual'"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Entry) TableName() string {
	return "entries"
}

// EntryTypes lists the recognized entry type tags.
func EntryTypes() []string {
	return []string{
		EntryTypeTrade,
		EntryTypeCode,
		EntryTypeAlpha,
		EntryTypeLearning,
		EntryTypeAction,
		EntryTypeNote,
		EntryTypeOpportunity,
		EntryTypeRisk,
	}
}

func ValidEntryType(v string) bool {
	switch v {
	case EntryTypeTrade, EntryTypeCode, EntryTypeAlpha, EntryTypeLearning,
		EntryTypeAction, EntryTypeNote, EntryTypeOpportunity, EntryTypeRisk:
		return true
	}
	return false
}

// DecodedTags returns the tag list; nil when the column is empty or invalid.
func (e *Entry) DecodedTags() []string {
	if e == nil || len(e.Tags) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(e.Tags, &out); err != nil {
		return nil
	}
	return out
}

func (e *Entry) SetTags(tags []string) {
	if e == nil {
		return
	}
	if tags == nil {
		tags = []string{}
	}
	raw, _ := json.Marshal(tags)
	e.Tags = datatypes.JSON(raw)
}

// DecodedMetadata returns the open metadata document; empty map when unset.
func (e *Entry) DecodedMetadata() map[string]any {
	if e == nil || len(e.Metadata) == 0 {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(e.Metadata, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func (e *Entry) SetMetadata(doc map[string]any) error {
	if e == nil {
		return nil
	}
	if doc == nil {
		doc = map[string]any{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	e.Metadata = datatypes.JSON(raw)
	return nil
}
