package engine

import (
	"context"

	"go.uber.org/zap"

	"Story-Atlas/server/internal/interfaces"
	"Story-Atlas/server/internal/models"
)

// Detail is a single story and where it came from
type Detail struct {
	Story     *models.Story `json:"story"`
	FromCache bool          `json:"fromCache"`
}

// DetailFlow loads one story, falling back to the cached copy
type DetailFlow struct {
	client interfaces.StoryClient
	cache  interfaces.StoryCache
	logger *zap.Logger
}

func NewDetailFlow(client interfaces.StoryClient, cache interfaces.StoryCache, logger *zap.Logger) *DetailFlow {
	return &DetailFlow{client: client, cache: cache, logger: logger.Named("detail")}
}

// Get fetches the story from the server; on any failure it returns the cached
// record, and surfaces the original error when there is none.
func (f *DetailFlow) Get(ctx context.Context, id, token string) (*Detail, error) {
	story, err := f.client.GetStory(ctx, id, token)
	if err == nil {
		story.Normalize()
		return &Detail{Story: story}, nil
	}

	cached, cacheErr := f.cache.Get(ctx, id)
	if cacheErr != nil {
		f.logger.Debug("no cached copy", zap.String("id", id), zap.Error(cacheErr))
		return nil, err
	}

	f.logger.Info("serving cached story", zap.String("id", id), zap.Error(err))
	cached.Normalize()
	return &Detail{Story: cached, FromCache: true}, nil
}
