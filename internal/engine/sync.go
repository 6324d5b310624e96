package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"Story-Atlas/server/internal/interfaces"
	"Story-Atlas/server/internal/models"
)

// SyncReport summarizes one sync run
type SyncReport struct {
	Synced    []string `json:"synced"`
	Failed    []string `json:"failed"`
	Skipped   []string `json:"skipped"`
	Remaining int      `json:"remaining"`
	Offline   bool     `json:"offline"`
}

// Syncer delivers pending offline records to the server and prunes the local
// copy once the server copy is cached. Each record gets one attempt per run.
type Syncer struct {
	client interfaces.StoryClient
	cache  interfaces.StoryCache
	token  string
	logger *zap.Logger

	mu sync.Mutex // one run at a time
}

func NewSyncer(client interfaces.StoryClient, cache interfaces.StoryCache, token string, logger *zap.Logger) *Syncer {
	return &Syncer{client: client, cache: cache, token: token, logger: logger.Named("sync")}
}

// Run performs one sync pass over the cache
func (s *Syncer) Run(ctx context.Context) (*SyncReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.cache.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	report := &SyncReport{Synced: []string{}, Failed: []string{}, Skipped: []string{}}
	var pending []models.Story
	for _, story := range all {
		if story.IsPending() {
			pending = append(pending, story)
		}
	}

	for _, story := range pending {
		if !story.AsGuest && s.token == "" {
			report.Skipped = append(report.Skipped, story.ID)
			continue
		}

		err := s.syncOne(ctx, story)
		switch {
		case err == nil:
			report.Synced = append(report.Synced, story.ID)
		case interfaces.IsConnectivity(err):
			s.logger.Info("still offline, stopping sync", zap.Error(err))
			report.Offline = true
			report.Remaining = len(pending) - len(report.Synced)
			return report, nil
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			s.logger.Warn("failed to sync story", zap.String("id", story.ID), zap.Error(err))
			report.Failed = append(report.Failed, story.ID)
		}
	}

	report.Remaining = len(pending) - len(report.Synced)
	if len(pending) > 0 {
		s.logger.Info("sync finished",
			zap.Int("synced", len(report.Synced)),
			zap.Int("failed", len(report.Failed)),
			zap.Int("skipped", len(report.Skipped)))
	}
	return report, nil
}

func (s *Syncer) syncOne(ctx context.Context, local models.Story) error {
	form := &interfaces.StoryForm{
		Description: local.Description,
		Photo: &models.Photo{
			Data:        local.PhotoData,
			ContentType: local.PhotoType,
			Filename:    local.ID + ".jpg",
		},
		Lat: local.Lat,
		Lon: local.Lon,
	}

	var (
		resp *interfaces.CreateStoryResponse
		err  error
	)
	if local.AsGuest {
		resp, err = s.client.CreateStoryAsGuest(ctx, form)
	} else {
		resp, err = s.client.CreateStory(ctx, form, s.token)
	}
	if err != nil {
		return err
	}
	if !resp.Success {
		return &interfaces.ServerError{Message: resp.Message}
	}

	synced := local
	if resp.Data != nil && resp.Data.ID != "" {
		synced = *resp.Data
		if synced.Description == "" {
			synced.Description = local.Description
		}
		if synced.CreatedAt == "" {
			synced.CreatedAt = local.CreatedAt
		}
		if !synced.HasLocation() {
			synced.Lat, synced.Lon = local.Lat, local.Lon
		}
		if synced.PhotoURL == "" {
			// keep serving the local bytes until the server copy is fetched
			synced.PhotoData, synced.PhotoType = local.PhotoData, local.PhotoType
			synced.PhotoURL = models.LocalPhotoURL(synced.ID)
		}
		synced.Title, synced.Body = local.Title, local.Body
		synced.AsGuest = local.AsGuest
	}
	synced.SyncState = models.SyncStateSynced

	if err := s.cache.Put(ctx, &synced); err != nil {
		return fmt.Errorf("failed to cache synced story: %w", err)
	}
	if synced.ID != local.ID {
		if err := s.cache.Delete(ctx, local.ID); err != nil {
			return fmt.Errorf("failed to prune local story %s: %w", local.ID, err)
		}
	}
	return nil
}
