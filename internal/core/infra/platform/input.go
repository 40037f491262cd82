package platform

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/action"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

const (
	// scrollLinesPerTick converts scroll ticks into wheel lines.
	scrollLinesPerTick = 3

	// dragSteps is the number of intermediate pointer moves during a drag.
	dragSteps = 10

	// dragStepDelay spaces the intermediate drag moves.
	dragStepDelay = 10 * time.Millisecond
)

// inputEngine synthesizes OS input through robotgo. All adapters share it;
// robotgo handles the per-OS event injection underneath.
type inputEngine struct {
	logger *zap.Logger
}

// modifierKeys maps domain modifiers to robotgo key names.
var modifierKeys = map[action.Modifier]string{
	action.ModCtrl:  "ctrl",
	action.ModAlt:   "alt",
	action.ModShift: "shift",
	action.ModCmd:   "cmd",
}

func (in *inputEngine) Click(
	ctx context.Context,
	point image.Point,
	button action.Button,
	count int,
	modifiers []action.Modifier,
) error {
	if err := ctx.Err(); err != nil {
		return derrors.Wrap(err, derrors.CodeCanceled, "click canceled")
	}

	if count <= 0 {
		count = 1
	}

	for _, modifier := range modifiers {
		robotgo.KeyToggle(modifierKeys[modifier], "down")
	}

	defer func() {
		for index := len(modifiers) - 1; index >= 0; index-- {
			robotgo.KeyToggle(modifierKeys[modifiers[index]], "up")
		}
	}()

	robotgo.Move(point.X, point.Y)

	if count == 2 {
		robotgo.Click(string(button), true)

		return nil
	}

	for range count {
		robotgo.Click(string(button))
	}

	return nil
}

func (in *inputEngine) MoveMouse(ctx context.Context, point image.Point) error {
	if err := ctx.Err(); err != nil {
		return derrors.Wrap(err, derrors.CodeCanceled, "move canceled")
	}

	robotgo.Move(point.X, point.Y)

	return nil
}

func (in *inputEngine) TypeKeystrokes(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return derrors.Wrap(err, derrors.CodeCanceled, "typing canceled")
	}

	robotgo.TypeStr(text)

	return nil
}

func (in *inputEngine) PressChords(ctx context.Context, chords []action.Chord) error {
	for _, chord := range chords {
		if err := ctx.Err(); err != nil {
			return derrors.Wrap(err, derrors.CodeCanceled, "key press canceled")
		}

		// Modifier-down, key, modifier-up — in order.
		for _, modifier := range chord.Modifiers {
			robotgo.KeyToggle(modifierKeys[modifier], "down")
		}

		robotgo.KeyToggle(chord.Key, "down")
		robotgo.KeyToggle(chord.Key, "up")

		for index := len(chord.Modifiers) - 1; index >= 0; index-- {
			robotgo.KeyToggle(modifierKeys[chord.Modifiers[index]], "up")
		}
	}

	return nil
}

func (in *inputEngine) Scroll(
	ctx context.Context,
	point image.Point,
	direction action.ScrollDirection,
	amount float64,
) error {
	if err := ctx.Err(); err != nil {
		return derrors.Wrap(err, derrors.CodeCanceled, "scroll canceled")
	}

	robotgo.Move(point.X, point.Y)

	lines := int(amount * scrollLinesPerTick)
	if lines <= 0 {
		lines = scrollLinesPerTick
	}

	robotgo.ScrollDir(lines, string(direction))

	return nil
}

func (in *inputEngine) Drag(
	ctx context.Context,
	from, to image.Point,
	button action.Button,
) error {
	robotgo.Move(from.X, from.Y)
	robotgo.Toggle(string(button), "down")

	// Intermediate moves so drop targets see the pointer travel and the
	// system drag threshold is crossed.
	for step := 1; step <= dragSteps; step++ {
		if err := ctx.Err(); err != nil {
			robotgo.Toggle(string(button), "up")

			return derrors.Wrap(err, derrors.CodeCanceled, "drag canceled")
		}

		x := from.X + (to.X-from.X)*step/dragSteps
		y := from.Y + (to.Y-from.Y)*step/dragSteps
		robotgo.Move(x, y)
		time.Sleep(dragStepDelay)
	}

	robotgo.Toggle(string(button), "up")

	return nil
}

// screens enumerates monitor rectangles in logical pixels.
func (in *inputEngine) screens(_ context.Context) ([]image.Rectangle, error) {
	count := robotgo.DisplaysNum()
	if count <= 0 {
		width, height := robotgo.GetScreenSize()

		return []image.Rectangle{image.Rect(0, 0, width, height)}, nil
	}

	rects := make([]image.Rectangle, 0, count)

	for index := range count {
		x, y, w, h := robotgo.GetDisplayBounds(index)
		rects = append(rects, image.Rect(x, y, x+w, y+h))
	}

	return rects, nil
}

// capturePNG captures the desktop (or clip) and encodes PNG. Captures come
// back in physical pixels; when the scale factor is above 1, a clipped
// capture is resampled to logical size so it lines up with element geometry.
// Full-desktop captures are returned at physical size.
func (in *inputEngine) capturePNG(ctx context.Context, clip *image.Rectangle) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeCanceled, "capture canceled")
	}

	var img image.Image

	if clip != nil {
		img = robotgo.CaptureImg(clip.Min.X, clip.Min.Y, clip.Dx(), clip.Dy())
	} else {
		img = robotgo.CaptureImg()
	}

	if img == nil {
		return nil, derrors.New(derrors.CodePlatformUnavailable, "screen capture failed")
	}

	scale := robotgo.ScaleF()
	if clip != nil && scale > 1.01 {
		logical := image.NewRGBA(image.Rect(0, 0, clip.Dx(), clip.Dy()))
		draw.ApproxBiLinear.Scale(logical, logical.Bounds(), img, img.Bounds(), draw.Over, nil)
		img = logical
	}

	var buf bytes.Buffer

	if err := png.Encode(&buf, img); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to encode screenshot")
	}

	return buf.Bytes(), nil
}

var _ ports.InputSynthesis = (*inputEngine)(nil)
