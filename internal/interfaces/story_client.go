package interfaces

import (
	"context"

	"Story-Atlas/server/internal/models"
)

// StoryForm is the multipart payload of a story submission
type StoryForm struct {
	Description string
	Photo       *models.Photo
	Lat         *float64
	Lon         *float64
}

// CreateStoryResponse is the normalized reply to a create call
type CreateStoryResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Data    *models.Story `json:"data,omitempty"`
}

// ListStoriesResponse is the reply to a list call.
// ListStory is nil when the server omitted the field.
type ListStoriesResponse struct {
	Message   string         `json:"message,omitempty"`
	ListStory []models.Story `json:"listStory"`
}

// StoryClient is the network boundary to the authoritative story store.
// Every call is a single attempt.
type StoryClient interface {
	// CreateStory submits a story with an auth token
	CreateStory(ctx context.Context, form *StoryForm, token string) (*CreateStoryResponse, error)

	// CreateStoryAsGuest submits a story without authentication
	CreateStoryAsGuest(ctx context.Context, form *StoryForm) (*CreateStoryResponse, error)

	// ListStories fetches one page of stories
	ListStories(ctx context.Context, page, size int) (*ListStoriesResponse, error)

	// ListStoriesWithLocation fetches one page of stories that carry coordinates
	ListStoriesWithLocation(ctx context.Context, page, size int) (*ListStoriesResponse, error)

	// GetStory fetches a single story
	GetStory(ctx context.Context, id, token string) (*models.Story, error)
}

// Reachability reports whether the story API can currently be reached
type Reachability interface {
	Online(ctx context.Context) bool
}
