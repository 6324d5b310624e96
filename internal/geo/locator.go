package geo

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"Story-Atlas/server/internal/interfaces"
	"Story-Atlas/server/internal/models"
)

// ErrNoPosition is returned by locators that have nothing to report
var ErrNoPosition = errors.New("position unavailable")

// BoundedLocator gives a Geolocator a fixed time budget. Timeouts and
// failures are swallowed: the caller simply gets no position.
type BoundedLocator struct {
	inner   interfaces.Geolocator
	timeout time.Duration
	logger  *zap.Logger
}

func NewBoundedLocator(inner interfaces.Geolocator, timeout time.Duration, logger *zap.Logger) *BoundedLocator {
	return &BoundedLocator{inner: inner, timeout: timeout, logger: logger.Named("geolocation")}
}

// Locate returns the current position, or nil when none arrived in time
func (l *BoundedLocator) Locate(ctx context.Context) *models.Coordinates {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type result struct {
		pos *models.Coordinates
		err error
	}
	done := make(chan result, 1)
	go func() {
		pos, err := l.inner.CurrentPosition(ctx)
		done <- result{pos, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			l.logger.Debug("geolocation failed", zap.Error(r.err))
			return nil
		}
		return r.pos
	case <-ctx.Done():
		l.logger.Debug("geolocation abandoned", zap.Duration("timeout", l.timeout))
		return nil
	}
}

// StaticLocator always reports the same position
type StaticLocator struct {
	Position *models.Coordinates
}

func (s StaticLocator) CurrentPosition(ctx context.Context) (*models.Coordinates, error) {
	if s.Position == nil {
		return nil, ErrNoPosition
	}
	pos := *s.Position
	return &pos, nil
}
