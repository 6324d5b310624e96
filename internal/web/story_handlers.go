package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Story-Atlas/server/internal/config"
	"Story-Atlas/server/internal/engine"
	"Story-Atlas/server/internal/geo"
	"Story-Atlas/server/internal/interfaces"
	"Story-Atlas/server/internal/models"
	"Story-Atlas/server/internal/storage"
)

const formOverhead = 1 << 20

// StoryHandlers handles story-related requests
type StoryHandlers struct {
	config *config.Config
	svc    *Services
	logger *zap.Logger
}

// NewStoryHandlers creates a new story handlers instance
func NewStoryHandlers(cfg *config.Config, svc *Services, logger *zap.Logger) *StoryHandlers {
	return &StoryHandlers{config: cfg, svc: svc, logger: logger}
}

// SubmitResponse is the reply to a story submission
type SubmitResponse struct {
	Success bool           `json:"success"`
	Outcome engine.Outcome `json:"outcome,omitempty"`
	Message string         `json:"message,omitempty"`
	Story   *models.Story  `json:"story,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// CreateStory accepts a multipart story submission
func (h *StoryHandlers) CreateStory(w http.ResponseWriter, r *http.Request) {
	maxPhoto := h.config.API.MaxPhotoBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxPhoto+formOverhead)
	if err := r.ParseMultipartForm(maxPhoto + formOverhead); err != nil {
		writeJSON(w, http.StatusBadRequest, SubmitResponse{Error: "Invalid request body"})
		return
	}

	in, coordErr, err := submitInput(r, maxPhoto)
	if err != nil {
		writeJSON(w, statusFor(err), SubmitResponse{Error: err.Error()})
		return
	}
	// text, photo and auth problems are reported before coordinate ones
	if coordErr != nil {
		var failure error = coordErr
		if err := h.svc.Submit.Validate(in); err != nil {
			failure = err
		}
		writeJSON(w, statusFor(failure), SubmitResponse{Error: failure.Error()})
		return
	}

	res, err := h.svc.Submit.Submit(r.Context(), in)
	if err != nil {
		h.logger.Info("submission failed", zap.Error(err))
		writeJSON(w, statusFor(err), SubmitResponse{Error: err.Error()})
		return
	}

	status := http.StatusCreated
	if res.Outcome == engine.OutcomeSavedOffline {
		status = http.StatusAccepted
	}
	story := res.Story.WithoutPhotoData()
	writeJSON(w, status, SubmitResponse{
		Success: true,
		Outcome: res.Outcome,
		Message: res.Outcome.Message(),
		Story:   &story,
	})
}

// submitInput reads the multipart form. Unparseable coordinates are returned
// separately so the caller can order them after the other checks.
func submitInput(r *http.Request, maxPhoto int64) (engine.SubmitInput, *interfaces.ValidationError, error) {
	in := engine.SubmitInput{
		Title:           r.FormValue("title"),
		Body:            r.FormValue("body"),
		IncludeLocation: formBool(r, "include_location"),
		AsGuest:         formBool(r, "as_guest"),
		AuthToken:       bearerToken(r),
	}

	var coordErr *interfaces.ValidationError
	if in.IncludeLocation {
		in.Coordinates, coordErr = formCoordinates(r)
	}

	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return in, coordErr, nil
	}
	if err != nil {
		return in, nil, fmt.Errorf("failed to read photo: %w", err)
	}
	defer file.Close()

	// one byte over the limit is enough for the flow to reject it
	data, err := io.ReadAll(io.LimitReader(file, maxPhoto+1))
	if err != nil {
		return in, nil, fmt.Errorf("failed to read photo: %w", err)
	}
	in.Photo = &models.Photo{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}
	return in, coordErr, nil
}

// formCoordinates parses lat/lon; both absent means the flow locates the device
func formCoordinates(r *http.Request) (*models.Coordinates, *interfaces.ValidationError) {
	latStr, lonStr := r.FormValue("lat"), r.FormValue("lon")
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, &interfaces.ValidationError{Field: "lat", Message: "not a number"}
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, &interfaces.ValidationError{Field: "lon", Message: "not a number"}
	}
	return &models.Coordinates{Lat: lat, Lon: lon}, nil
}

func formBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.FormValue(key))
	return err == nil && v
}

// GetStory returns a story, from the server or the cache
func (h *StoryHandlers) GetStory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.svc.Detail.Get(r.Context(), id, bearerToken(r))
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}

	story := detail.Story.WithoutPhotoData()
	writeJSON(w, http.StatusOK, engine.Detail{Story: &story, FromCache: detail.FromCache})
}

// GetPhoto serves photo bytes kept in the cache for offline stories
func (h *StoryHandlers) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	story, err := h.svc.Cache.Get(r.Context(), id)
	if err != nil || len(story.PhotoData) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "photo not found"})
		return
	}

	contentType := story.PhotoType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(story.PhotoData)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(story.PhotoData)
}

// ListCached returns every cached story without photo bytes
func (h *StoryHandlers) ListCached(w http.ResponseWriter, r *http.Request) {
	stories, err := h.svc.Cache.GetAll(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	for i := range stories {
		stories[i].Normalize()
		stories[i] = stories[i].WithoutPhotoData()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"listStory": stories})
}

// Markers returns the map markers of all cached stories with coordinates
func (h *StoryHandlers) Markers(w http.ResponseWriter, r *http.Request) {
	stories, err := h.svc.Cache.GetAll(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"markers": geo.Markers(stories)})
}

// Sync pushes pending offline stories to the server
func (h *StoryHandlers) Sync(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Syncer.Run(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// statusFor maps the error taxonomy onto HTTP statuses
func statusFor(err error) int {
	var (
		ve *interfaces.ValidationError
		ae *interfaces.AuthRequiredError
		se *interfaces.ServerError
		ie *interfaces.InvalidResponseError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ae):
		return http.StatusUnauthorized
	case errors.As(err, &se):
		if se.StatusCode == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.As(err, &ie):
		return http.StatusBadGateway
	case interfaces.IsConnectivity(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
