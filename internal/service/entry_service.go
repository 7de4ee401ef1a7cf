package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"riskjournal/internal/config"
	"riskjournal/internal/models"
	"riskjournal/internal/repository"
	"riskjournal/internal/stream"
	"riskjournal/internal/tagger"
)

// EntryService is the write path for plain journal entries. Risk entries
// have lifecycle rules of their own and are rejected here so they can only
// be opened and mutated through the risk manager.
type EntryService struct {
	Config config.JournalConfig
	Repo   repository.Repository
	Logger *zap.Logger
	Hub    *stream.Hub
	Tagger *tagger.Tagger
}

type CreateEntryInput struct {
	EntryType string
	Notes     string
	Tags      []string
	Metadata  map[string]any
	Source    string
}

type UpdateEntryInput struct {
	Notes    *string
	Tags     []string
	Metadata map[string]any
	Source   *string
}

func (s *EntryService) Create(ctx context.Context, input CreateEntryInput) (*models.Entry, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	notes := strings.TrimSpace(input.Notes)
	entryType := strings.ToLower(strings.TrimSpace(input.EntryType))
	if entryType == models.EntryTypeRisk {
		return nil, models.Validation("entry_type", "risks are opened through the risk endpoints")
	}
	if entryType == "" && s.Tagger != nil {
		suggested, confidence := s.Tagger.SuggestEntryType(notes)
		entryType = suggested
		if s.Logger != nil {
			s.Logger.Debug("entry type suggested",
				zap.String("entry_type", suggested),
				zap.Float64("confidence", confidence))
		}
	}

	item := &models.Entry{
		EntryType: entryType,
		Notes:     notes,
		Source:    strings.TrimSpace(input.Source),
	}
	item.SetTags(s.entryTags(input.Tags, notes))
	if err := item.SetMetadata(input.Metadata); err != nil {
		return nil, models.Validation("metadata", "metadata must be a JSON object")
	}
	if err := s.Repo.InsertEntry(ctx, item); err != nil {
		return nil, err
	}
	s.publish(stream.ActionEntryCreate, item)
	if s.Logger != nil {
		s.Logger.Info("entry created",
			zap.Uint64("entry_id", item.ID),
			zap.String("entry_type", item.EntryType))
	}
	return item, nil
}

func (s *EntryService) Get(ctx context.Context, id uint64) (*models.Entry, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	return s.Repo.GetEntryByID(ctx, id)
}

func (s *EntryService) List(ctx context.Context, params repository.ListEntriesParams) ([]models.Entry, int64, error) {
	if s == nil || s.Repo == nil {
		return nil, 0, nil
	}
	items, err := s.Repo.ListEntries(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountEntries(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *EntryService) Update(ctx context.Context, id uint64, input UpdateEntryInput) (*models.Entry, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	item, err := s.Repo.GetEntryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.EntryType == models.EntryTypeRisk && input.Metadata != nil {
		return nil, models.Validation("metadata", "risk metadata changes go through the risk endpoints")
	}
	if input.Notes != nil {
		notes := strings.TrimSpace(*input.Notes)
		if notes == "" {
			return nil, models.Validation("notes", "notes must not be empty")
		}
		item.Notes = notes
	}
	if input.Tags != nil {
		item.SetTags(normalizeTags(input.Tags))
	}
	if input.Metadata != nil {
		if err := item.SetMetadata(input.Metadata); err != nil {
			return nil, models.Validation("metadata", "metadata must be a JSON object")
		}
	}
	if input.Source != nil {
		item.Source = strings.TrimSpace(*input.Source)
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.Repo.UpdateEntry(ctx, item); err != nil {
		return nil, err
	}
	s.publish(stream.ActionEntryUpdate, item)
	if s.Logger != nil {
		s.Logger.Info("entry updated", zap.Uint64("entry_id", item.ID))
	}
	return item, nil
}

func (s *EntryService) Delete(ctx context.Context, id uint64) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	item, err := s.Repo.GetEntryByID(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := s.Repo.DeleteEntry(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return &models.NotFoundError{Kind: "entry", ID: id}
	}
	s.publish(stream.ActionEntryDelete, item)
	if s.Logger != nil {
		s.Logger.Info("entry deleted",
			zap.Uint64("entry_id", id),
			zap.String("entry_type", item.EntryType))
	}
	return nil
}

// entryTags merges the caller's tags with hashtags lifted from the notes.
func (s *EntryService) entryTags(tags []string, notes string) []string {
	merged := make([]string, 0, len(tags)+2)
	merged = append(merged, tags...)
	if s.Config.HashtagTags && s.Tagger != nil {
		merged = append(merged, tagger.ExtractHashtags(notes)...)
	}
	return normalizeTags(merged)
}

func (s *EntryService) publish(action string, item *models.Entry) {
	if s == nil || s.Hub == nil || item == nil {
		return
	}
	s.Hub.Publish(stream.Event{
		Action:    action,
		EntryID:   item.ID,
		EntryType: item.EntryType,
	})
}

// normalizeTags lowercases, trims and dedupes, keeping first-appearance
// order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
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
