package engine

import (
	"context"
	"errors"
	"sync"

	"Story-Atlas/server/internal/interfaces"
	"Story-Atlas/server/internal/models"
	"Story-Atlas/server/internal/storage"
)

var errOffline = &interfaces.ConnectivityError{Op: "test", Err: errors.New("dial tcp: connection refused")}

type fakeClient struct {
	mu sync.Mutex

	createFn  func(form *interfaces.StoryForm, token string) (*interfaces.CreateStoryResponse, error)
	guestFn   func(form *interfaces.StoryForm) (*interfaces.CreateStoryResponse, error)
	listFn    func(ctx context.Context, page, size int, withLocation bool) (*interfaces.ListStoriesResponse, error)
	getFn     func(id, token string) (*models.Story, error)
	create    int
	guest     int
	lists     []int
	locations []bool
	forms     []*interfaces.StoryForm
}

func (c *fakeClient) CreateStory(ctx context.Context, form *interfaces.StoryForm, token string) (*interfaces.CreateStoryResponse, error) {
	c.mu.Lock()
	c.create++
	c.forms = append(c.forms, form)
	fn := c.createFn
	c.mu.Unlock()
	if fn == nil {
		return nil, errors.New("unexpected CreateStory")
	}
	return fn(form, token)
}

func (c *fakeClient) CreateStoryAsGuest(ctx context.Context, form *interfaces.StoryForm) (*interfaces.CreateStoryResponse, error) {
	c.mu.Lock()
	c.guest++
	c.forms = append(c.forms, form)
	fn := c.guestFn
	c.mu.Unlock()
	if fn == nil {
		return nil, errors.New("unexpected CreateStoryAsGuest")
	}
	return fn(form)
}

func (c *fakeClient) ListStories(ctx context.Context, page, size int) (*interfaces.ListStoriesResponse, error) {
	return c.list(ctx, page, size, false)
}

func (c *fakeClient) ListStoriesWithLocation(ctx context.Context, page, size int) (*interfaces.ListStoriesResponse, error) {
	return c.list(ctx, page, size, true)
}

func (c *fakeClient) list(ctx context.Context, page, size int, withLocation bool) (*interfaces.ListStoriesResponse, error) {
	c.mu.Lock()
	c.lists = append(c.lists, page)
	c.locations = append(c.locations, withLocation)
	fn := c.listFn
	c.mu.Unlock()
	return fn(ctx, page, size, withLocation)
}

func (c *fakeClient) GetStory(ctx context.Context, id, token string) (*models.Story, error) {
	return c.getFn(id, token)
}

func (c *fakeClient) networkCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.create + c.guest + len(c.lists)
}

// countingCache wraps a memory store and counts writes
type countingCache struct {
	*storage.MemoryStore
	mu      sync.Mutex
	puts    int
	putErr  error
	listErr error
}

func newCountingCache() *countingCache {
	return &countingCache{MemoryStore: storage.NewMemoryStore()}
}

func (c *countingCache) Put(ctx context.Context, story *models.Story) error {
	c.mu.Lock()
	c.puts++
	err := c.putErr
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.MemoryStore.Put(ctx, story)
}

func (c *countingCache) GetAll(ctx context.Context) ([]models.Story, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.MemoryStore.GetAll(ctx)
}

func (c *countingCache) writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.puts
}

type loadState struct {
	loading bool
	hasMore bool
}

type recordingView struct {
	mu       sync.Mutex
	rendered [][]models.Story
	appended [][]models.Story
	buttons  []loadState
	errors   []error
	markers  [][]models.Story
}

func (v *recordingView) RenderStories(s []models.Story) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rendered = append(v.rendered, s)
}

func (v *recordingView) AppendStories(s []models.Story) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.appended = append(v.appended, s)
}

func (v *recordingView) UpdateLoadButton(loading, hasMore bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.buttons = append(v.buttons, loadState{loading, hasMore})
}

func (v *recordingView) ShowError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errors = append(v.errors, err)
}

func (v *recordingView) UpdateMapMarkers(s []models.Story) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.markers = append(v.markers, s)
}

func storyIDs(stories []models.Story) []string {
	out := make([]string, len(stories))
	for i, s := range stories {
		out[i] = s.ID
	}
	return out
}

func located(id string, lat, lon float64) models.Story {
	return models.Story{ID: id, Description: "[HEADER]" + id + "[/HEADER]\nbody", Lat: &lat, Lon: &lon}
}

func plain(id string) models.Story {
	return models.Story{ID: id, Description: "[HEADER]" + id + "[/HEADER]\nbody"}
}
