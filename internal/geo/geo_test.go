package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"Story-Atlas/server/internal/models"
)

type slowLocator struct {
	delay time.Duration
}

func (s slowLocator) CurrentPosition(ctx context.Context) (*models.Coordinates, error) {
	select {
	case <-time.After(s.delay):
		return &models.Coordinates{Lat: 1, Lon: 2}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type failingLocator struct{}

func (failingLocator) CurrentPosition(context.Context) (*models.Coordinates, error) {
	return nil, errors.New("permission denied")
}

func TestBoundedLocator(t *testing.T) {
	t.Run("returns position in time", func(t *testing.T) {
		l := NewBoundedLocator(slowLocator{delay: time.Millisecond}, time.Second, zap.NewNop())
		pos := l.Locate(context.Background())
		if assert.NotNil(t, pos) {
			assert.Equal(t, 1.0, pos.Lat)
		}
	})

	t.Run("abandons after timeout", func(t *testing.T) {
		l := NewBoundedLocator(slowLocator{delay: time.Second}, 10*time.Millisecond, zap.NewNop())
		start := time.Now()
		assert.Nil(t, l.Locate(context.Background()))
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("failure means no location", func(t *testing.T) {
		l := NewBoundedLocator(failingLocator{}, time.Second, zap.NewNop())
		assert.Nil(t, l.Locate(context.Background()))
	})
}

func TestStaticLocator(t *testing.T) {
	_, err := StaticLocator{}.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, ErrNoPosition)

	pos, err := StaticLocator{Position: &models.Coordinates{Lat: 3, Lon: 4}}.CurrentPosition(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 4.0, pos.Lon)
}

func TestMarkers(t *testing.T) {
	lat, lon := -6.2, 106.8
	stories := []models.Story{
		{ID: "a", Description: "[HEADER]Beach[/HEADER]\nsunset", Lat: &lat, Lon: &lon},
		{ID: "b", Description: "no place", Lat: &lat},
		{ID: "c", Name: "Ann", Description: "plain", Lat: &lat, Lon: &lon},
	}

	markers := Markers(stories)
	assert.Len(t, markers, 2)
	assert.Equal(t, "Beach", markers[0].Title)
	assert.Equal(t, "sunset", markers[0].Body)
	assert.Equal(t, "Ann's Story", markers[1].Title)
	assert.Equal(t, "plain", markers[1].Body)
}
