package element

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
)

// readCacheTTL bounds how long a property snapshot may serve reads within a
// single action. Writes through the handle invalidate the snapshot early.
const readCacheTTL = 100 * time.Millisecond

// Element is a handle to a single UI node. Handles are cheap to share: all
// holders see the same underlying node, and the handle stays alive as long
// as any holder remains.
type Element struct {
	platform ports.Platform
	node     ports.NativeNode
	id       ports.RuntimeID

	mu       sync.Mutex
	snapshot *ports.NodeInfo
	readAt   time.Time
}

// New wraps a native node into a handle, capturing its runtime id. The id is
// read once here and never re-read: it is stable for the node's lifetime.
func New(platform ports.Platform, node ports.NativeNode) (*Element, error) {
	id, err := platform.NodeRuntimeID(node)
	if err != nil {
		return nil, err
	}

	return &Element{
		platform: platform,
		node:     node,
		id:       id,
	}, nil
}

// RuntimeID returns the element's stable identity.
func (e *Element) RuntimeID() ports.RuntimeID {
	return e.id
}

// Node returns the underlying platform node for adapter-level calls.
func (e *Element) Node() ports.NativeNode {
	return e.node
}

// Equal reports whether both handles reference the same UI node.
func (e *Element) Equal(other *Element) bool {
	if other == nil {
		return false
	}

	return e.id == other.id
}

// HashKey returns a 64-bit hash of the runtime id, suitable for map keys and
// cache fingerprints.
func (e *Element) HashKey() uint64 {
	return xxhash.Sum64String(string(e.id))
}

// Info returns the element's property snapshot, reading through to the
// platform unless a fresh per-action snapshot exists. Returns
// ElementDetached when the underlying node is gone.
func (e *Element) Info(ctx context.Context) (*ports.NodeInfo, error) {
	e.mu.Lock()

	if e.snapshot != nil && time.Since(e.readAt) < readCacheTTL {
		info := e.snapshot
		e.mu.Unlock()

		return info, nil
	}

	e.mu.Unlock()

	info, err := e.platform.Info(ctx, e.node)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.snapshot = info
	e.readAt = time.Now()
	e.mu.Unlock()

	return info, nil
}

// FreshInfo bypasses the per-action cache and reads directly from the
// platform. Precondition checks use this so every sample is a live read.
func (e *Element) FreshInfo(ctx context.Context) (*ports.NodeInfo, error) {
	info, err := e.platform.Info(ctx, e.node)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.snapshot = info
	e.readAt = time.Now()
	e.mu.Unlock()

	return info, nil
}

// InvalidateReadCache drops the per-action snapshot. Every write action
// performed through the handle calls this.
func (e *Element) InvalidateReadCache() {
	e.mu.Lock()
	e.snapshot = nil
	e.mu.Unlock()
}

// Validate reports whether the underlying node still exists, via a single
// live property read.
func (e *Element) Validate(ctx context.Context) bool {
	_, err := e.FreshInfo(ctx)

	return err == nil
}

// Role returns the element's normalized role.
func (e *Element) Role(ctx context.Context) (string, error) {
	info, err := e.Info(ctx)
	if err != nil {
		return "", err
	}

	return info.Role, nil
}

// Name returns the element's accessible label.
func (e *Element) Name(ctx context.Context) (string, error) {
	info, err := e.Info(ctx)
	if err != nil {
		return "", err
	}

	return info.Name, nil
}

// Bounds returns the element's screen-space rectangle.
func (e *Element) Bounds(ctx context.Context) (image.Rectangle, error) {
	info, err := e.Info(ctx)
	if err != nil {
		return image.Rectangle{}, err
	}

	return info.Bounds, nil
}

// Enabled reports whether the element accepts interaction.
func (e *Element) Enabled(ctx context.Context) (bool, error) {
	info, err := e.Info(ctx)
	if err != nil {
		return false, err
	}

	return info.Enabled, nil
}

// ProcessID returns the owning process id.
func (e *Element) ProcessID(ctx context.Context) (int, error) {
	info, err := e.Info(ctx)
	if err != nil {
		return 0, err
	}

	return info.ProcessID, nil
}

// Center returns the centroid of the element's bounds.
func (e *Element) Center(ctx context.Context) (image.Point, error) {
	bounds, err := e.Bounds(ctx)
	if err != nil {
		return image.Point{}, err
	}

	return image.Point{
		X: bounds.Min.X + bounds.Dx()/2,
		Y: bounds.Min.Y + bounds.Dy()/2,
	}, nil
}

// VisibleIn reports whether bounds are non-empty and intersect any monitor.
func VisibleIn(bounds image.Rectangle, screens []image.Rectangle) bool {
	if bounds.Empty() {
		return false
	}

	for _, screen := range screens {
		if bounds.Overlaps(screen) {
			return true
		}
	}

	return false
}

// Visible reports whether the element has non-empty bounds intersecting some
// monitor.
func (e *Element) Visible(ctx context.Context) (bool, error) {
	info, err := e.Info(ctx)
	if err != nil {
		return false, err
	}

	screens, err := e.platform.Screens(ctx)
	if err != nil {
		return false, err
	}

	return VisibleIn(info.Bounds, screens), nil
}

// Parent returns a handle to the element's parent, or nil at the root.
func (e *Element) Parent(ctx context.Context) (*Element, error) {
	parentNode, err := e.platform.Parent(ctx, e.node)
	if err != nil {
		return nil, err
	}

	if parentNode == nil {
		return nil, nil
	}

	return New(e.platform, parentNode)
}

// Children returns handles to the element's children in platform order.
func (e *Element) Children(ctx context.Context) ([]*Element, error) {
	nodes, err := e.platform.Children(ctx, e.node)
	if err != nil {
		return nil, err
	}

	children := make([]*Element, 0, len(nodes))

	for _, node := range nodes {
		child, childErr := New(e.platform, node)
		if childErr != nil {
			// A sibling vanishing mid-enumeration is not fatal to the rest.
			continue
		}

		children = append(children, child)
	}

	return children, nil
}
