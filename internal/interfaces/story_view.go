package interfaces

import "Story-Atlas/server/internal/models"

// ListView receives notifications from the story list flow
type ListView interface {
	// RenderStories replaces the displayed stories
	RenderStories(stories []models.Story)

	// AppendStories adds stories below the displayed ones
	AppendStories(stories []models.Story)

	// UpdateLoadButton reflects the loading and pagination state
	UpdateLoadButton(loading, hasMore bool)

	// ShowError surfaces a load failure
	ShowError(err error)

	// UpdateMapMarkers receives the accumulated stories that have both coordinates
	UpdateMapMarkers(stories []models.Story)
}
