package element_test

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/element"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"github.com/tribhuwan-kumar/terminator/internal/core/infra/platform"
)

func fixtureTree() *platform.MockNode {
	return platform.Node("desktop", "Desktop", "", image.Rect(0, 0, 1920, 1080),
		platform.Node("win", "Window", "Calculator", image.Rect(100, 100, 500, 600),
			platform.Node("btn", "Button", "Seven", image.Rect(110, 170, 160, 220)),
		),
	)
}

func TestNew_CapturesRuntimeID(t *testing.T) {
	mock := platform.NewMock(fixtureTree())

	elem, err := element.New(mock, mock.FindNode("btn"))
	require.NoError(t, err)
	assert.Equal(t, "btn", string(elem.RuntimeID()))
}

func TestEqual_ByRuntimeIDOnly(t *testing.T) {
	mock := platform.NewMock(fixtureTree())

	first, err := element.New(mock, mock.FindNode("btn"))
	require.NoError(t, err)

	second, err := element.New(mock, mock.FindNode("btn"))
	require.NoError(t, err)

	other, err := element.New(mock, mock.FindNode("win"))
	require.NoError(t, err)

	assert.True(t, first.Equal(second), "two handles to one node are equal")
	assert.False(t, first.Equal(other))
	assert.False(t, first.Equal(nil))
	assert.Equal(t, first.HashKey(), second.HashKey())
}

func TestPropertyReads(t *testing.T) {
	mock := platform.NewMock(fixtureTree())
	ctx := context.Background()

	elem, err := element.New(mock, mock.FindNode("btn"))
	require.NoError(t, err)

	role, err := elem.Role(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Button", role)

	name, err := elem.Name(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Seven", name)

	bounds, err := elem.Bounds(ctx)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(110, 170, 160, 220), bounds)

	center, err := elem.Center(ctx)
	require.NoError(t, err)
	assert.Equal(t, image.Point{X: 135, Y: 195}, center)

	visible, err := elem.Visible(ctx)
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestDetachedReadsFail(t *testing.T) {
	mock := platform.NewMock(fixtureTree())
	ctx := context.Background()

	elem, err := element.New(mock, mock.FindNode("btn"))
	require.NoError(t, err)

	mock.Detach(mock.FindNode("btn"))

	_, err = elem.FreshInfo(ctx)
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeElementDetached))
	assert.False(t, elem.Validate(ctx))

	// The runtime id survives detachment; identity never mutates.
	assert.Equal(t, "btn", string(elem.RuntimeID()))
}

func TestReadCache_InvalidatedOnWrite(t *testing.T) {
	mock := platform.NewMock(fixtureTree())
	ctx := context.Background()
	node := mock.FindNode("btn")

	elem, err := element.New(mock, node)
	require.NoError(t, err)

	name, err := elem.Name(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Seven", name)

	// Mutate underneath the cache: the cached snapshot still serves...
	node.Info.Name = "Eight"

	cachedName, err := elem.Name(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Seven", cachedName, "per-action cache serves within its window")

	// ...until a write through the handle invalidates it.
	elem.InvalidateReadCache()

	freshName, err := elem.Name(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Eight", freshName)
}

func TestReadCache_Expires(t *testing.T) {
	mock := platform.NewMock(fixtureTree())
	ctx := context.Background()
	node := mock.FindNode("btn")

	elem, err := element.New(mock, node)
	require.NoError(t, err)

	_, err = elem.Name(ctx)
	require.NoError(t, err)

	node.Info.Name = "Eight"

	time.Sleep(120 * time.Millisecond)

	name, err := elem.Name(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Eight", name, "snapshot older than the cache window re-reads")
}

func TestParentChildren(t *testing.T) {
	mock := platform.NewMock(fixtureTree())
	ctx := context.Background()

	elem, err := element.New(mock, mock.FindNode("btn"))
	require.NoError(t, err)

	parent, err := elem.Parent(ctx)
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, "win", string(parent.RuntimeID()))

	children, err := parent.Children(ctx)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.True(t, children[0].Equal(elem))

	root, err := element.New(mock, mock.FindNode("desktop"))
	require.NoError(t, err)

	top, err := root.Parent(ctx)
	require.NoError(t, err)
	assert.Nil(t, top, "the desktop root has no parent")
}

func TestVisibleIn(t *testing.T) {
	screens := []image.Rectangle{image.Rect(0, 0, 1920, 1080)}

	assert.True(t, element.VisibleIn(image.Rect(10, 10, 20, 20), screens))
	assert.False(t, element.VisibleIn(image.Rectangle{}, screens), "empty bounds are invisible")
	assert.False(t, element.VisibleIn(image.Rect(-100, -100, -50, -50), screens))
	assert.True(t, element.VisibleIn(image.Rect(1900, 1000, 2000, 1200), screens),
		"partial overlap counts")
}
