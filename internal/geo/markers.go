package geo

import "Story-Atlas/server/internal/models"

// Marker is a story placed on the map
type Marker struct {
	ID       string  `json:"id"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	PhotoURL string  `json:"photoUrl,omitempty"`
}

// Markers projects the stories that have both coordinates
func Markers(stories []models.Story) []Marker {
	markers := make([]Marker, 0, len(stories))
	for _, s := range stories {
		if !s.HasLocation() {
			continue
		}
		title, body := s.Title, s.Body
		if title == "" && body == "" {
			title, body = models.ParseDescription(s.Description, s.Name)
		}
		markers = append(markers, Marker{
			ID:       s.ID,
			Lat:      *s.Lat,
			Lon:      *s.Lon,
			Title:    title,
			Body:     body,
			PhotoURL: s.PhotoURL,
		})
	}
	return markers
}
