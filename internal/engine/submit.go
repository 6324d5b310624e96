package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"Story-Atlas/server/internal/interfaces"
	"Story-Atlas/server/internal/models"
)

// Outcome distinguishes how a submission became durable
type Outcome string

const (
	// OutcomePublished means the authoritative store accepted the story
	OutcomePublished Outcome = "published"
	// OutcomeSavedOffline means the story was only persisted locally
	OutcomeSavedOffline Outcome = "saved_offline"
)

// Message returns the user-facing wording for the outcome
func (o Outcome) Message() string {
	switch o {
	case OutcomePublished:
		return "Story published successfully"
	case OutcomeSavedOffline:
		return "Saved locally, will sync when back online"
	default:
		return ""
	}
}

// SubmitInput is one story creation attempt
type SubmitInput struct {
	Title           string
	Body            string
	Photo           *models.Photo
	IncludeLocation bool
	Coordinates     *models.Coordinates
	AsGuest         bool
	AuthToken       string
}

// SubmitResult is the durable record and how it got there
type SubmitResult struct {
	Outcome Outcome
	Story   *models.Story
}

// Locator returns a position or nil; it never fails
type Locator interface {
	Locate(ctx context.Context) *models.Coordinates
}

// SubmissionConfig holds the optional collaborators of a SubmissionFlow
type SubmissionConfig struct {
	// MaxPhotoBytes rejects larger photos; zero means no limit
	MaxPhotoBytes int64
	// Locator is asked for a position when location is wanted but none was given
	Locator Locator
	// Reachability, when set, short-circuits to the offline path
	Reachability interfaces.Reachability
	Now          func() time.Time
}

// SubmissionFlow validates a story, submits it once and persists the result,
// falling back to a local pending record when the network is unavailable.
type SubmissionFlow struct {
	client interfaces.StoryClient
	cache  interfaces.StoryCache
	cfg    SubmissionConfig
	logger *zap.Logger
}

func NewSubmissionFlow(client interfaces.StoryClient, cache interfaces.StoryCache, cfg SubmissionConfig, logger *zap.Logger) *SubmissionFlow {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SubmissionFlow{
		client: client,
		cache:  cache,
		cfg:    cfg,
		logger: logger.Named("submit"),
	}
}

// Submit runs validation, a single network attempt and one cache write
func (f *SubmissionFlow) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Body)
	if err := f.validate(title, body, in); err != nil {
		return nil, err
	}

	description := models.ComposeDescription(title, body)
	coords := f.coordinates(ctx, in)

	form := &interfaces.StoryForm{Description: description, Photo: in.Photo}
	if coords != nil {
		form.Lat, form.Lon = &coords.Lat, &coords.Lon
	}

	if f.cfg.Reachability != nil && !f.cfg.Reachability.Online(ctx) {
		f.logger.Info("api unreachable, keeping story locally")
		return f.saveOffline(ctx, title, body, description, in, coords)
	}

	resp, err := f.send(ctx, form, in)
	if err != nil {
		if interfaces.IsConnectivity(err) {
			f.logger.Info("network failure, keeping story locally", zap.Error(err))
			return f.saveOffline(ctx, title, body, description, in, coords)
		}
		return nil, err
	}

	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "failed to submit story"
		}
		return nil, &interfaces.ServerError{Message: msg}
	}
	if resp.Data == nil {
		return nil, &interfaces.InvalidResponseError{Reason: "missing data payload"}
	}

	story := *resp.Data
	if story.ID == "" {
		story.ID = f.freeLocalID(ctx, f.cfg.Now())
	}
	if story.Description == "" {
		story.Description = description
	}
	if story.CreatedAt == "" {
		story.CreatedAt = models.FormatTimestamp(f.cfg.Now())
	}
	if !story.HasLocation() {
		story.SetLocation(coords)
	}
	story.Title, story.Body = title, body
	story.SyncState = models.SyncStateSynced
	story.AsGuest = in.AsGuest

	if err := f.cache.Put(ctx, &story); err != nil {
		return nil, fmt.Errorf("failed to cache published story: %w", err)
	}

	f.logger.Info("story published", zap.String("id", story.ID), zap.Bool("guest", in.AsGuest))
	return &SubmitResult{Outcome: OutcomePublished, Story: &story}, nil
}

// Validate runs the input checks of Submit without side effects
func (f *SubmissionFlow) Validate(in SubmitInput) error {
	return f.validate(strings.TrimSpace(in.Title), strings.TrimSpace(in.Body), in)
}

// freeLocalID returns the local id for now, moved forward a millisecond at a
// time past ids the cache already holds
func (f *SubmissionFlow) freeLocalID(ctx context.Context, now time.Time) string {
	for {
		id := models.LocalID(now)
		if _, err := f.cache.Get(ctx, id); err != nil {
			return id
		}
		now = now.Add(time.Millisecond)
	}
}

func (f *SubmissionFlow) validate(title, body string, in SubmitInput) error {
	if title == "" || body == "" {
		return &interfaces.ValidationError{Field: "title/body", Message: "header and content are required"}
	}
	if in.Photo == nil || len(in.Photo.Data) == 0 {
		return &interfaces.ValidationError{Field: "photo", Message: "please upload or take a photo"}
	}
	if f.cfg.MaxPhotoBytes > 0 && int64(len(in.Photo.Data)) > f.cfg.MaxPhotoBytes {
		return &interfaces.ValidationError{
			Field:   "photo",
			Message: fmt.Sprintf("photo exceeds %d bytes", f.cfg.MaxPhotoBytes),
		}
	}
	if !in.AsGuest && in.AuthToken == "" {
		return &interfaces.AuthRequiredError{}
	}
	return nil
}

func (f *SubmissionFlow) coordinates(ctx context.Context, in SubmitInput) *models.Coordinates {
	if !in.IncludeLocation {
		return nil
	}
	if in.Coordinates != nil {
		return in.Coordinates
	}
	if f.cfg.Locator == nil {
		return nil
	}
	return f.cfg.Locator.Locate(ctx)
}

func (f *SubmissionFlow) send(ctx context.Context, form *interfaces.StoryForm, in SubmitInput) (*interfaces.CreateStoryResponse, error) {
	if in.AsGuest {
		return f.client.CreateStoryAsGuest(ctx, form)
	}
	return f.client.CreateStory(ctx, form, in.AuthToken)
}

func (f *SubmissionFlow) saveOffline(ctx context.Context, title, body, description string, in SubmitInput, coords *models.Coordinates) (*SubmitResult, error) {
	now := f.cfg.Now()
	id := f.freeLocalID(ctx, now)

	story := models.Story{
		ID:          id,
		Title:       title,
		Body:        body,
		Description: description,
		PhotoURL:    models.LocalPhotoURL(id),
		PhotoData:   in.Photo.Data,
		PhotoType:   in.Photo.ContentType,
		CreatedAt:   models.FormatTimestamp(now),
		SyncState:   models.SyncStatePending,
		AsGuest:     in.AsGuest,
	}
	story.SetLocation(coords)

	if err := f.cache.Put(ctx, &story); err != nil {
		return nil, fmt.Errorf("failed to save story locally: %w", err)
	}

	f.logger.Info("story saved offline", zap.String("id", id))
	return &SubmitResult{Outcome: OutcomeSavedOffline, Story: &story}, nil
}
