package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"Story-Atlas/server/internal/client"
	"Story-Atlas/server/internal/config"
	"Story-Atlas/server/internal/engine"
	"Story-Atlas/server/internal/interfaces"
	"Story-Atlas/server/internal/models"
	"Story-Atlas/server/internal/storage"
)

// fakeAPI imitates the upstream story REST API
type fakeAPI struct {
	mu      sync.Mutex
	down    bool
	stories []models.Story
	created []string
	auth    []string
}

func (a *fakeAPI) setDown(down bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.down = down
}

func (a *fakeAPI) descriptions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.created...)
}

func (a *fakeAPI) authHeaders() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.auth...)
}

func (a *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	down := a.down
	a.mu.Unlock()
	if down {
		// drop the connection so the client sees a transport failure
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}

	switch {
	case r.Method == http.MethodPost && (r.URL.Path == "/stories" || r.URL.Path == "/stories/guest"):
		a.create(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/stories":
		a.list(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/stories/"):
		a.get(w, strings.TrimPrefix(r.URL.Path, "/stories/"))
	default:
		http.NotFound(w, r)
	}
}

func (a *fakeAPI) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		apiReply(w, http.StatusBadRequest, map[string]interface{}{"error": true, "message": err.Error()})
		return
	}

	a.mu.Lock()
	a.auth = append(a.auth, r.Header.Get("Authorization"))
	id := fmt.Sprintf("story-%d", len(a.created)+1)
	a.created = append(a.created, r.FormValue("description"))
	a.mu.Unlock()

	apiReply(w, http.StatusCreated, map[string]interface{}{
		"error":   false,
		"message": "Story created successfully",
		"data": map[string]interface{}{
			"id":          id,
			"name":        "Ana",
			"description": r.FormValue("description"),
			"photoUrl":    "https://cdn.example.com/" + id + ".jpg",
			"createdAt":   "2024-05-01T10:00:00.000Z",
		},
	})
}

func (a *fakeAPI) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	a.mu.Lock()
	defer a.mu.Unlock()

	start := (page - 1) * size
	out := []models.Story{}
	if start >= 0 && start < len(a.stories) {
		end := start + size
		if end > len(a.stories) {
			end = len(a.stories)
		}
		out = append(out, a.stories[start:end]...)
	}
	apiReply(w, http.StatusOK, map[string]interface{}{"error": false, "message": "Stories fetched successfully", "listStory": out})
}

func (a *fakeAPI) get(w http.ResponseWriter, id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range a.stories {
		if s.ID == id {
			apiReply(w, http.StatusOK, map[string]interface{}{"error": false, "message": "Story fetched successfully", "story": s})
			return
		}
	}
	apiReply(w, http.StatusNotFound, map[string]interface{}{"error": true, "message": "Story not found"})
}

func apiReply(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type testEnv struct {
	api   *fakeAPI
	cache *storage.MemoryStore
	hub   *FeedHub
	srv   *httptest.Server
}

// newTestEnv serves the router with a running hub
func newTestEnv(t *testing.T, api *fakeAPI) *testEnv {
	t.Helper()
	env := newServedEnv(t, api)
	env.runHub(t)
	return env
}

func (e *testEnv) runHub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go e.hub.Run(ctx)
	t.Cleanup(cancel)
}

// newServedEnv serves the router but leaves the hub's Run loop to the test
func newServedEnv(t *testing.T, api *fakeAPI) *testEnv {
	t.Helper()

	upstream := httptest.NewServer(api)
	t.Cleanup(upstream.Close)

	cfg := &config.Config{
		API: config.APIConfig{
			BaseURL:       upstream.URL,
			Timeout:       2 * time.Second,
			PageSize:      2,
			MaxPhotoBytes: 1024,
		},
		Cache: config.CacheConfig{Driver: config.DriverMemory},
	}
	logger := zap.NewNop()
	storyClient := client.NewStoryClient(cfg.API, logger)
	cache := storage.NewMemoryStore()

	svc := &Services{
		Cache: cache,
		Clients: func(token string) interfaces.StoryClient {
			return storyClient.WithToken(token)
		},
		Submit: engine.NewSubmissionFlow(storyClient, cache, engine.SubmissionConfig{MaxPhotoBytes: cfg.API.MaxPhotoBytes}, logger),
		Detail: engine.NewDetailFlow(storyClient, cache, logger),
		Syncer: engine.NewSyncer(storyClient, cache, "tok", logger),
	}

	hub := NewFeedHub(svc, cfg.API.PageSize, logger)

	srv := httptest.NewServer(NewRouter(cfg, svc, hub, logger))
	t.Cleanup(srv.Close)

	return &testEnv{api: api, cache: cache, hub: hub, srv: srv}
}

type formFields map[string]string

func multipartBody(t *testing.T, fields formFields, photo []byte) (io.Reader, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if photo != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="photo"; filename="story.jpg"`)
		h.Set("Content-Type", "image/jpeg")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func (e *testEnv) submit(t *testing.T, fields formFields, photo []byte, token string) (*http.Response, SubmitResponse) {
	t.Helper()

	body, contentType := multipartBody(t, fields, photo)
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/api/v1/stories", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out SubmitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func (e *testEnv) getJSON(t *testing.T, path string, v interface{}) int {
	t.Helper()

	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func story(id string, lat, lon *float64) models.Story {
	return models.Story{
		ID:          id,
		Name:        "Ana",
		Description: models.ComposeDescription("Title "+id, "Body "+id),
		PhotoURL:    "https://cdn.example.com/" + id + ".jpg",
		CreatedAt:   "2024-05-01T10:00:00.000Z",
		Lat:         lat,
		Lon:         lon,
	}
}

func coord(v float64) *float64 {
	return &v
}
