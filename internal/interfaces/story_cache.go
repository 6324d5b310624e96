package interfaces

import (
	"context"

	"Story-Atlas/server/internal/models"
)

// StoryCache is the durable local copy of story records.
// Implementations must be safe for concurrent use; writes are last-write-wins per id.
type StoryCache interface {
	// Put stores or replaces a record
	Put(ctx context.Context, story *models.Story) error

	// Get returns the record or storage.ErrNotFound
	Get(ctx context.Context, id string) (*models.Story, error)

	// GetAll returns every record in an order that is stable across calls
	GetAll(ctx context.Context) ([]models.Story, error)

	// Delete removes a record; deleting a missing id is not an error
	Delete(ctx context.Context, id string) error

	// Count returns the number of cached records
	Count(ctx context.Context) (int, error)

	Close() error
}
