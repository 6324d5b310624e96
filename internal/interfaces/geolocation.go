package interfaces

import (
	"context"

	"Story-Atlas/server/internal/models"
)

// Geolocator acquires the current device position
type Geolocator interface {
	CurrentPosition(ctx context.Context) (*models.Coordinates, error)
}
