package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"Story-Atlas/server/internal/config"
	"Story-Atlas/server/internal/engine"
	"Story-Atlas/server/internal/interfaces"
)

// ClientFactory returns a story client that authenticates with token, if any
type ClientFactory func(token string) interfaces.StoryClient

// Services bundles what the HTTP surface drives
type Services struct {
	Cache   interfaces.StoryCache
	Clients ClientFactory
	Submit  *engine.SubmissionFlow
	Detail  *engine.DetailFlow
	Syncer  *engine.Syncer
}

type Handlers struct {
	config *config.Config
	svc    *Services
	logger *zap.Logger
}

func NewHandlers(cfg *config.Config, svc *Services, logger *zap.Logger) *Handlers {
	return &Handlers{config: cfg, svc: svc, logger: logger}
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.Cache.Count(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "degraded",
			"driver": h.config.Cache.Driver,
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "story-atlas",
		"driver":  h.config.Cache.Driver,
		"durable": h.config.Durable(),
		"cached":  count,
	})
}

// CORS middleware
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.Header().Set("Access-Control-Max-Age", "300")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

// NewRouter wires the HTTP API and the websocket feed. The hub must be running.
func NewRouter(cfg *config.Config, svc *Services, hub *FeedHub, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger.Named("http")))
	r.Use(corsMiddleware)

	handlers := NewHandlers(cfg, svc, logger.Named("http"))
	stories := NewStoryHandlers(cfg, svc, logger.Named("stories"))

	r.Get("/health", handlers.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/stories", func(r chi.Router) {
			r.Post("/", stories.CreateStory)
			r.Get("/{id}", stories.GetStory)
			r.Get("/{id}/photo", stories.GetPhoto)
		})
		r.Get("/cache", stories.ListCached)
		r.Get("/markers", stories.Markers)
		r.Post("/sync", stories.Sync)
		r.Get("/feed", hub.ServeWS)
	})

	return r
}

// bearerToken extracts the token of an "Authorization: Bearer" header
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
