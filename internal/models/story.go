package models

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 form used for createdAt (UTC, millisecond precision)
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	localIDPrefix  = "local-"
	localPhotoBase = "local://"
)

// SyncState tells whether a record has reached the authoritative store
type SyncState string

const (
	SyncStateSynced  SyncState = "synced"
	SyncStatePending SyncState = "pending"
)

// Story is a user-submitted post as held by the local cache
type Story struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Name        string    `gorm:"size:128" json:"name,omitempty"`
	Title       string    `gorm:"size:255" json:"title"`
	Body        string    `gorm:"type:text" json:"body"`
	Description string    `gorm:"type:text" json:"description"`
	PhotoURL    string    `gorm:"size:512" json:"photoUrl"`
	PhotoData   []byte    `gorm:"type:longblob" json:"photoData,omitempty"`
	PhotoType   string    `gorm:"size:64" json:"photoType,omitempty"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	CreatedAt   string    `gorm:"size:32;autoCreateTime:false" json:"createdAt"`
	SyncState   SyncState `gorm:"size:16;index" json:"syncState,omitempty"`
	AsGuest     bool      `json:"asGuest,omitempty"`
	CachedAt    time.Time `gorm:"index" json:"-"`
}

// TableName pins the gorm table name
func (Story) TableName() string {
	return "stories"
}

// Coordinates is a geographic position
type Coordinates struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Accuracy float64 `json:"accuracy,omitempty"`
}

// Photo is the binary photo attached to a submission
type Photo struct {
	Data        []byte
	ContentType string
	Filename    string
}

// HasLocation reports whether both coordinates are present
func (s *Story) HasLocation() bool {
	return s.Lat != nil && s.Lon != nil
}

// SetLocation copies coordinates into the record
func (s *Story) SetLocation(c *Coordinates) {
	if c == nil {
		return
	}
	lat, lon := c.Lat, c.Lon
	s.Lat = &lat
	s.Lon = &lon
}

// IsPending reports whether the record was created offline and never synced
func (s *Story) IsPending() bool {
	return s.SyncState == SyncStatePending
}

// Normalize keeps the title/body pair and the wire description in step.
// Server records only carry a description; locally built ones only title/body.
func (s *Story) Normalize() {
	if s.Description == "" && (s.Title != "" || s.Body != "") {
		s.Description = ComposeDescription(s.Title, s.Body)
	}
	if s.Title == "" && s.Body == "" && s.Description != "" {
		s.Title, s.Body = ParseDescription(s.Description, s.Name)
	}
	if s.SyncState == "" {
		s.SyncState = SyncStateSynced
	}
}

// WithoutPhotoData returns a copy that is safe to list without the photo bytes
func (s Story) WithoutPhotoData() Story {
	s.PhotoData = nil
	return s
}

// LocalID builds a locally scoped story id from a timestamp
func LocalID(t time.Time) string {
	return fmt.Sprintf("%s%d", localIDPrefix, t.UnixMilli())
}

// IsLocalID reports whether id was synthesized locally
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

// LocalPhotoURL is the reference stored for photos kept in the cache
func LocalPhotoURL(id string) string {
	return localPhotoBase + id
}

// FormatTimestamp renders t the way createdAt is stored
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// WithLocation filters stories down to those that can be placed on a map
func WithLocation(stories []Story) []Story {
	out := make([]Story, 0, len(stories))
	for _, s := range stories {
		if s.HasLocation() {
			out = append(out, s)
		}
	}
	return out
}
