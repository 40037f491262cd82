package locator_test

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"github.com/tribhuwan-kumar/terminator/internal/core/infra/platform"
	"github.com/tribhuwan-kumar/terminator/internal/core/locator"
)

func TestWaitFor_Exists(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	match, err := engine.WaitFor(context.Background(), locator.Query{
		Selector: "role:Button|name:Eight",
		Timeout:  time.Second,
	}, locator.CondExists)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "btn8", string(match.RuntimeID()))
}

func TestWaitFor_TimesOut(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	_, err := engine.WaitFor(context.Background(), locator.Query{
		Selector: "role:Hyperlink",
		Timeout:  250 * time.Millisecond,
	}, locator.CondExists)
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeTimeout), "got %v", err)
}

func TestWaitFor_Gone(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	// Detach the button on a timer; wait_for(gone) observes the removal.
	go func() {
		time.Sleep(150 * time.Millisecond)
		mock.Detach(mock.FindNode("btn8"))
	}()

	match, err := engine.WaitFor(context.Background(), locator.Query{
		Selector: "role:Button|name:Eight",
		Timeout:  2 * time.Second,
	}, locator.CondGone)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestWaitFor_VisibleAfterMove(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	offscreen := mock.FindNode("btnoff")

	go func() {
		time.Sleep(150 * time.Millisecond)
		mock.SetBounds(offscreen, image.Rect(10, 10, 60, 60))
	}()

	match, err := engine.WaitFor(context.Background(), locator.Query{
		Selector: "role:Button|name:Offscreen",
		Timeout:  2 * time.Second,
	}, locator.CondVisible)
	require.NoError(t, err)
	require.NotNil(t, match)
}

func TestWaitFor_Enabled(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	mock.FindNode("btn8").Info.Enabled = false

	engine := newEngine(t, mock)

	_, err := engine.WaitFor(context.Background(), locator.Query{
		Selector: "role:Button|name:Eight",
		Timeout:  250 * time.Millisecond,
	}, locator.CondEnabled)
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeTimeout))
}
