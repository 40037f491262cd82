package executor

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/action"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
	"go.uber.org/zap"
)

// defaultHighlightDuration applies when a highlight request has no duration.
const defaultHighlightDuration = 2 * time.Second

// highlightRegistry tracks live overlays so they can be ended early.
type highlightRegistry struct {
	mu       sync.Mutex
	overlays map[string]*trackedOverlay
	logger   *zap.Logger
}

type trackedOverlay struct {
	handle ports.OverlayHandle
	timer  *time.Timer
}

func newHighlightRegistry(logger *zap.Logger) *highlightRegistry {
	return &highlightRegistry{
		overlays: make(map[string]*trackedOverlay),
		logger:   logger,
	}
}

// show draws an overlay and schedules its removal. Drawing failures are
// logged and swallowed: highlighting never blocks the action pipeline.
func (r *highlightRegistry) show(
	ctx context.Context,
	platform ports.OverlaySupport,
	bounds image.Rectangle,
	spec action.Highlight,
) string {
	duration := spec.Duration
	if duration <= 0 {
		duration = defaultHighlightDuration
	}

	handle, err := platform.ShowHighlight(ctx, bounds, spec.Color, spec.Text, spec.Position)
	if err != nil {
		r.logger.Debug("Highlight overlay unavailable", zap.Error(err))

		return ""
	}

	id := uuid.NewString()

	r.mu.Lock()

	tracked := &trackedOverlay{handle: handle}
	tracked.timer = time.AfterFunc(duration, func() {
		r.remove(id)
	})
	r.overlays[id] = tracked

	r.mu.Unlock()

	return id
}

// remove closes one overlay.
func (r *highlightRegistry) remove(id string) {
	r.mu.Lock()

	tracked, exists := r.overlays[id]
	if exists {
		delete(r.overlays, id)
	}

	r.mu.Unlock()

	if !exists {
		return
	}

	tracked.timer.Stop()

	if err := tracked.handle.Close(); err != nil {
		r.logger.Debug("Failed to close highlight overlay", zap.Error(err))
	}
}

// stopAll ends every live overlay immediately.
func (r *highlightRegistry) stopAll() {
	r.mu.Lock()

	overlays := r.overlays
	r.overlays = make(map[string]*trackedOverlay)

	r.mu.Unlock()

	for _, tracked := range overlays {
		tracked.timer.Stop()

		if err := tracked.handle.Close(); err != nil {
			r.logger.Debug("Failed to close highlight overlay", zap.Error(err))
		}
	}
}
