package engine

import (
	"context"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"Story-Atlas/server/internal/interfaces"
	"Story-Atlas/server/internal/models"
)

const defaultPageSize = 10

// ListConfig configures one list session
type ListConfig struct {
	PageSize int
	// Token selects the location-aware endpoint when set
	Token string
}

// ListFlow keeps a paginated, de-duplicated, cache-backed view of stories.
// At most one fetch is in flight; overlapping triggers are ignored, not queued.
type ListFlow struct {
	client   interfaces.StoryClient
	cache    interfaces.StoryCache
	view     interfaces.ListView
	pageSize int
	token    string
	logger   *zap.Logger

	loading atomic.Bool

	mu      sync.Mutex
	page    int
	stories []models.Story
	seen    map[string]struct{}
	hasMore bool
}

func NewListFlow(client interfaces.StoryClient, cache interfaces.StoryCache, view interfaces.ListView, cfg ListConfig, logger *zap.Logger) *ListFlow {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	return &ListFlow{
		client:   client,
		cache:    cache,
		view:     view,
		pageSize: cfg.PageSize,
		token:    cfg.Token,
		logger:   logger.Named("list"),
		page:     1,
		seen:     make(map[string]struct{}),
		hasMore:  true,
	}
}

// LoadPage fetches the current page. With appendMode the accepted stories are
// added below the displayed ones, otherwise they replace them. A call made
// while another load is running does nothing. The returned error is the one
// surfaced to the view, nil when the cache covered the failure.
func (f *ListFlow) LoadPage(ctx context.Context, appendMode bool) error {
	if !f.loading.CompareAndSwap(false, true) {
		f.logger.Debug("load already in flight, ignoring")
		return nil
	}
	return f.load(ctx, appendMode)
}

// LoadMore advances to the next page when there is one
func (f *ListFlow) LoadMore(ctx context.Context) error {
	if !f.loading.CompareAndSwap(false, true) {
		return nil
	}

	f.mu.Lock()
	if !f.hasMore {
		f.mu.Unlock()
		f.loading.Store(false)
		return nil
	}
	f.page++
	f.mu.Unlock()

	return f.load(ctx, true)
}

// Refresh starts over from the first page
func (f *ListFlow) Refresh(ctx context.Context) error {
	if !f.loading.CompareAndSwap(false, true) {
		return nil
	}

	f.mu.Lock()
	f.page = 1
	f.hasMore = true
	f.stories = nil
	f.seen = make(map[string]struct{})
	f.mu.Unlock()

	return f.load(ctx, false)
}

// load runs with the loading flag held and releases it
func (f *ListFlow) load(ctx context.Context, appendMode bool) error {
	f.view.UpdateLoadButton(true, f.HasMore())
	defer func() {
		f.loading.Store(false)
		f.view.UpdateLoadButton(false, f.HasMore())
	}()

	page := f.Page()
	resp, err := f.fetch(ctx, page)
	if err == nil && resp.ListStory == nil {
		err = &interfaces.InvalidResponseError{Reason: "missing listStory"}
	}
	if err != nil {
		f.logger.Warn("failed to load stories", zap.Int("page", page), zap.Error(err))
		return f.fallback(ctx, err)
	}

	accepted, all := f.merge(resp.ListStory, appendMode)

	for i := range accepted {
		if err := f.cache.Put(ctx, &accepted[i]); err != nil {
			f.logger.Warn("failed to cache story", zap.String("id", accepted[i].ID), zap.Error(err))
		}
	}

	if appendMode {
		f.view.AppendStories(accepted)
	} else {
		f.view.RenderStories(accepted)
	}
	f.view.UpdateMapMarkers(models.WithLocation(all))
	return nil
}

func (f *ListFlow) fetch(ctx context.Context, page int) (*interfaces.ListStoriesResponse, error) {
	if f.token != "" {
		return f.client.ListStoriesWithLocation(ctx, page, f.pageSize)
	}
	return f.client.ListStories(ctx, page, f.pageSize)
}

// merge drops stories whose id is already known and records the rest.
// It returns the accepted stories and a snapshot of the accumulated set.
func (f *ListFlow) merge(incoming []models.Story, appendMode bool) ([]models.Story, []models.Story) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !appendMode {
		f.stories = nil
		f.seen = make(map[string]struct{})
	}

	accepted := make([]models.Story, 0, len(incoming))
	for _, s := range incoming {
		if _, dup := f.seen[s.ID]; dup {
			continue
		}
		s.Normalize()
		f.seen[s.ID] = struct{}{}
		accepted = append(accepted, s)
	}

	f.stories = append(f.stories, accepted...)
	f.hasMore = len(incoming) >= f.pageSize
	return accepted, f.snapshotLocked()
}

// fallback replaces the displayed set with the cache, or surfaces err when the cache is empty
func (f *ListFlow) fallback(ctx context.Context, loadErr error) error {
	cached, err := f.cache.GetAll(ctx)
	if err != nil {
		f.logger.Warn("cache fallback failed", zap.Error(err))
	}

	if err != nil || len(cached) == 0 {
		f.mu.Lock()
		if f.page > 1 {
			f.page--
		}
		f.mu.Unlock()
		f.view.ShowError(loadErr)
		return loadErr
	}

	f.logger.Info("using cached stories", zap.Int("count", len(cached)))
	for i := range cached {
		cached[i] = cached[i].WithoutPhotoData()
	}

	f.mu.Lock()
	f.stories = cached
	f.seen = make(map[string]struct{}, len(cached))
	for _, s := range cached {
		f.seen[s.ID] = struct{}{}
	}
	f.hasMore = false
	all := f.snapshotLocked()
	f.mu.Unlock()

	f.view.RenderStories(all)
	f.view.UpdateMapMarkers(models.WithLocation(all))
	return nil
}

// Stories returns a copy of the accumulated set in arrival order
func (f *ListFlow) Stories() []models.Story {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *ListFlow) snapshotLocked() []models.Story {
	out := make([]models.Story, len(f.stories))
	copy(out, f.stories)
	return out
}

// Page returns the current page number
func (f *ListFlow) Page() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.page
}

// HasMore reports whether another page is expected
func (f *ListFlow) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasMore
}

// Loading reports whether a fetch is in flight
func (f *ListFlow) Loading() bool {
	return f.loading.Load()
}
