package executor_test

import (
	"context"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribhuwan-kumar/terminator/internal/config"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/action"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/element"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"github.com/tribhuwan-kumar/terminator/internal/core/executor"
	"github.com/tribhuwan-kumar/terminator/internal/core/infra/platform"
	"go.uber.org/zap"
)

type fakeClipboard struct {
	content  string
	writeErr error
	writes   []string
}

func (f *fakeClipboard) ReadAll() (string, error) {
	return f.content, nil
}

func (f *fakeClipboard) WriteAll(text string) error {
	if f.writeErr != nil {
		return f.writeErr
	}

	f.writes = append(f.writes, text)
	f.content = text

	return nil
}

func actionTree() *platform.MockNode {
	button := platform.Node("ok", "Button", "OK", image.Rect(100, 100, 200, 140))
	button.HasInvoke = true

	edit := platform.Node("edit", "Edit", "", image.Rect(100, 200, 500, 240))
	edit.Focusable = true

	check := platform.Node("check", "CheckBox", "Agree", image.Rect(100, 300, 130, 330))

	plain := platform.Node("plain", "Button", "Plain", image.Rect(300, 100, 400, 140))

	disabled := platform.Node("off", "Button", "Disabled", image.Rect(100, 400, 200, 440))
	disabled.Info.Enabled = false

	hidden := platform.Node("hidden", "Button", "Hidden", image.Rectangle{})

	return platform.Node("desktop", "Desktop", "", image.Rect(0, 0, 1920, 1080),
		platform.Node("win", "Window", "App", image.Rect(0, 0, 800, 600),
			button, edit, check, plain, disabled, hidden,
		),
	)
}

func newFixture(t *testing.T) (*platform.Mock, *executor.Executor, *fakeClipboard) {
	t.Helper()

	mock := platform.NewMock(actionTree())
	clip := &fakeClipboard{content: "previous"}
	exec := executor.New(mock, config.DefaultConfig(), zap.NewNop(), executor.WithClipboard(clip))

	return mock, exec, clip
}

func target(t *testing.T, mock *platform.Mock, id string) *element.Element {
	t.Helper()

	node := mock.FindNode(id)
	require.NotNil(t, node)

	elem, err := element.New(mock, node)
	require.NoError(t, err)

	return elem
}

func TestClick_SynthesizesPointerAtCentroid(t *testing.T) {
	mock, exec, _ := newFixture(t)

	report, err := exec.Click(context.Background(), target(t, mock, "plain"),
		action.Click{}, action.Options{Timeout: time.Second})
	require.NoError(t, err)

	assert.True(t, report.Validated)
	assert.Equal(t, "pointer", report.Method)

	require.Len(t, mock.Clicks, 1)
	assert.Equal(t, image.Point{X: 350, Y: 120}, mock.Clicks[0].Point)
	assert.Equal(t, action.ButtonLeft, mock.Clicks[0].Button)
	assert.Equal(t, 1, mock.Clicks[0].Count)
}

func TestClick_Offset(t *testing.T) {
	mock, exec, _ := newFixture(t)

	offset := image.Point{X: 5, Y: 5}

	report, err := exec.Click(context.Background(), target(t, mock, "plain"),
		action.Click{Offset: &offset}, action.Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, image.Point{X: 305, Y: 105}, report.Point)
}

func TestClick_DetachedFailsFast(t *testing.T) {
	mock, exec, _ := newFixture(t)

	elem := target(t, mock, "plain")
	mock.Detach(mock.FindNode("plain"))

	_, err := exec.Click(context.Background(), elem, action.Click{},
		action.Options{Timeout: 2 * time.Second})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeElementDetached), "got %v", err)
	assert.Empty(t, mock.Clicks, "no input synthesized for a failed precondition")
}

func TestClick_DisabledFailsFast(t *testing.T) {
	mock, exec, _ := newFixture(t)

	started := time.Now()

	_, err := exec.Click(context.Background(), target(t, mock, "off"), action.Click{},
		action.Options{Timeout: 3 * time.Second})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeElementNotEnabled), "got %v", err)
	assert.Less(t, time.Since(started), time.Second, "fatal states do not wait out the deadline")
}

func TestClick_InvisibleFails(t *testing.T) {
	mock, exec, _ := newFixture(t)

	_, err := exec.Click(context.Background(), target(t, mock, "hidden"), action.Click{},
		action.Options{Timeout: 500 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeElementNotVisible), "got %v", err)
}

func TestClick_AnimationSettles(t *testing.T) {
	mock, exec, _ := newFixture(t)

	node := mock.FindNode("plain")

	// Animate for ~300 ms, then settle.
	stop := make(chan struct{})

	go func() {
		defer close(stop)

		for i := range 15 {
			mock.SetBounds(node, image.Rect(300+i, 100, 400+i, 140))
			time.Sleep(20 * time.Millisecond)
		}
	}()

	report, err := exec.Click(context.Background(), target(t, mock, "plain"),
		action.Click{}, action.Options{Timeout: 3 * time.Second})
	require.NoError(t, err)
	assert.True(t, report.Validated)

	<-stop
}

func TestClick_NeverSettlesReturnsNotStable(t *testing.T) {
	mock, exec, _ := newFixture(t)

	node := mock.FindNode("plain")
	stop := make(chan struct{})

	defer close(stop)

	go func() {
		offset := 0

		for {
			select {
			case <-stop:
				return
			case <-time.After(5 * time.Millisecond):
				offset += 10
				mock.SetBounds(node, image.Rect(300+offset%200, 100, 400+offset%200, 140))
			}
		}
	}()

	_, err := exec.Click(context.Background(), target(t, mock, "plain"),
		action.Click{}, action.Options{Timeout: time.Second})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeElementNotStable), "got %v", err)
}

func TestClick_Obscured(t *testing.T) {
	mock, exec, _ := newFixture(t)

	// A dialog later in document order covers the button.
	win := mock.FindNode("win")
	overlay := platform.Node("dialog", "Window", "Modal", image.Rect(250, 50, 500, 300))
	overlay.ParentMN = win
	win.Kids = append(win.Kids, overlay)

	_, err := exec.Click(context.Background(), target(t, mock, "plain"), action.Click{},
		action.Options{Timeout: time.Second})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeElementObscured), "got %v", err)
}

func TestInvoke_PrefersPattern(t *testing.T) {
	mock, exec, _ := newFixture(t)

	report, err := exec.Invoke(context.Background(), target(t, mock, "ok"),
		action.Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "invoke", report.Method)
	assert.Equal(t, 1, mock.FindNode("ok").Invoked)
	assert.Empty(t, mock.Clicks)
}

func TestInvoke_FallsBackToPointer(t *testing.T) {
	mock, exec, _ := newFixture(t)

	report, err := exec.Invoke(context.Background(), target(t, mock, "plain"),
		action.Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "pointer", report.Method)
	assert.Len(t, mock.Clicks, 1)
}

func TestTypeText_ShortUsesKeystrokes(t *testing.T) {
	mock, exec, clip := newFixture(t)

	report, err := exec.TypeText(context.Background(), target(t, mock, "edit"),
		action.TypeText{Text: "hello"}, action.Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "keystrokes", report.Method)
	assert.Equal(t, []string{"hello"}, mock.Typed)
	assert.Empty(t, clip.writes, "short ASCII text never touches the clipboard")
	assert.Positive(t, mock.FindNode("edit").FocusCount, "element focused before typing")
}

func TestTypeText_LongUsesClipboardAndRestores(t *testing.T) {
	mock, exec, clip := newFixture(t)

	long := strings.Repeat("x", 80)

	report, err := exec.TypeText(context.Background(), target(t, mock, "edit"),
		action.TypeText{Text: long}, action.Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "clipboard-paste", report.Method)

	require.Len(t, mock.Chords, 1, "paste chord emitted")
	assert.Equal(t, "v", mock.Chords[0][0].Key)

	require.Len(t, clip.writes, 2, "text written, then prior content restored")
	assert.Equal(t, long, clip.writes[0])
	assert.Equal(t, "previous", clip.writes[1])
}

func TestTypeText_NonASCIIUsesClipboard(t *testing.T) {
	mock, exec, clip := newFixture(t)

	_, err := exec.TypeText(context.Background(), target(t, mock, "edit"),
		action.TypeText{Text: "héllo"}, action.Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.NotEmpty(t, clip.writes)
	assert.Empty(t, mock.Typed)
}

func TestTypeText_ClipboardFailureFallsBack(t *testing.T) {
	mock, exec, clip := newFixture(t)

	clip.writeErr = assert.AnError

	long := strings.Repeat("y", 80)

	report, err := exec.TypeText(context.Background(), target(t, mock, "edit"),
		action.TypeText{Text: long}, action.Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "keystrokes", report.Method, "clipboard failure degrades to keystrokes")
	assert.Equal(t, []string{long}, mock.Typed)
}

func TestTypeText_ClearFirst(t *testing.T) {
	mock, exec, _ := newFixture(t)

	_, err := exec.TypeText(context.Background(), target(t, mock, "edit"),
		action.TypeText{Text: "new", ClearFirst: true}, action.Options{Timeout: time.Second})
	require.NoError(t, err)

	require.NotEmpty(t, mock.Chords, "select-all and delete emitted")
	assert.Equal(t, "a", mock.Chords[0][0].Key)
	assert.Equal(t, "delete", mock.Chords[0][1].Key)
}

func TestTypeText_VerifyMismatch(t *testing.T) {
	mock, exec, _ := newFixture(t)

	// The mock does not apply keystrokes to the value, so verification sees
	// an empty value and must fail rather than pretend success.
	_, err := exec.TypeText(context.Background(), target(t, mock, "edit"),
		action.TypeText{Text: "hello", Verify: true}, action.Options{Timeout: time.Second})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeVerificationFailed), "got %v", err)
}

func TestTypeText_VerifyMatch(t *testing.T) {
	mock, exec, _ := newFixture(t)

	mock.FindNode("edit").Value = "hello"

	_, err := exec.TypeText(context.Background(), target(t, mock, "edit"),
		action.TypeText{Text: "hello", Verify: true}, action.Options{Timeout: time.Second})
	require.NoError(t, err)
}

func TestPressKey_EmitsChords(t *testing.T) {
	mock, exec, _ := newFixture(t)

	report, err := exec.PressKey(context.Background(), target(t, mock, "edit"),
		action.PressKey{KeySpec: "{Ctrl}{Shift}n"}, action.Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.True(t, report.Validated)

	require.Len(t, mock.Chords, 1)
	require.Len(t, mock.Chords[0], 1)
	assert.Equal(t, "n", mock.Chords[0][0].Key)
	assert.Equal(t,
		[]action.Modifier{action.ModCtrl, action.ModShift},
		mock.Chords[0][0].Modifiers)
}

func TestPressKey_InvalidSpec(t *testing.T) {
	mock, exec, _ := newFixture(t)

	_, err := exec.PressKey(context.Background(), target(t, mock, "edit"),
		action.PressKey{KeySpec: "{Bogus}"}, action.Options{Timeout: time.Second})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeInvalidKeySpec))
	assert.Empty(t, mock.Chords)
}

func TestScroll(t *testing.T) {
	mock, exec, _ := newFixture(t)

	report, err := exec.Scroll(context.Background(), target(t, mock, "edit"),
		action.Scroll{Direction: action.ScrollDown, Amount: 2},
		action.Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "wheel", report.Method)

	require.Len(t, mock.Scrolls, 1)
	assert.Equal(t, action.ScrollDown, mock.Scrolls[0].Direction)
	assert.InDelta(t, 2.0, mock.Scrolls[0].Amount, 0.001)
}

func TestScroll_UnsupportedSurfaces(t *testing.T) {
	mock, exec, _ := newFixture(t)

	mock.ScrollErr = derrors.New(derrors.CodeScrollFailed, "element is not scrollable")

	_, err := exec.Scroll(context.Background(), target(t, mock, "plain"),
		action.Scroll{Direction: action.ScrollUp}, action.Options{Timeout: time.Second})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeScrollFailed))
}

func TestHover_MovesWithoutClicking(t *testing.T) {
	mock, exec, _ := newFixture(t)

	_, err := exec.Hover(context.Background(), target(t, mock, "plain"),
		action.Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.Len(t, mock.Moves, 1)
	assert.Empty(t, mock.Clicks)
}

func TestDrag(t *testing.T) {
	mock, exec, _ := newFixture(t)

	dest := image.Point{X: 700, Y: 500}

	_, err := exec.Drag(context.Background(), target(t, mock, "plain"),
		action.Drag{To: dest}, action.Options{Timeout: time.Second})
	require.NoError(t, err)

	require.Len(t, mock.Drags, 1)
	assert.Equal(t, image.Point{X: 350, Y: 120}, mock.Drags[0].From)
	assert.Equal(t, dest, mock.Drags[0].To)
}

func TestHighlight_TrackedAndStoppable(t *testing.T) {
	mock, exec, _ := newFixture(t)

	_, err := exec.Highlight(context.Background(), target(t, mock, "plain"),
		action.Highlight{Color: 0x00FF00, Duration: time.Minute},
		action.Options{Timeout: time.Second})
	require.NoError(t, err)

	require.Len(t, mock.Highlights, 1)
	assert.Equal(t, uint32(0x00FF00), mock.Highlights[0].Color)
	assert.False(t, mock.Highlights[0].Closed)

	exec.StopHighlighting()
	assert.True(t, mock.Highlights[0].Closed)
}

func TestHighlight_WorksOnDisabledElements(t *testing.T) {
	mock, exec, _ := newFixture(t)

	_, err := exec.Highlight(context.Background(), target(t, mock, "off"),
		action.Highlight{Color: 0xFF0000}, action.Options{Timeout: time.Second})
	require.NoError(t, err, "highlight is exempt from the enabled precondition")
}

func TestScreenshot_Desktop(t *testing.T) {
	mock, exec, _ := newFixture(t)

	report, err := exec.Screenshot(context.Background(), nil, action.Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.NotEmpty(t, report.Data)
	assert.Equal(t, 1, mock.Captures)
}

func TestScreenshot_ElementClip(t *testing.T) {
	mock, exec, _ := newFixture(t)

	report, err := exec.Screenshot(context.Background(), target(t, mock, "plain"),
		action.Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.Contains(t, string(report.Data), "100x40", "capture clipped to element bounds")
}

func TestClick_ToggleVerify(t *testing.T) {
	mock, exec, _ := newFixture(t)

	node := mock.FindNode("check")

	// The mock's synthetic click does not flip state; flip it out of band
	// the way a real control would shortly after the click lands.
	go func() {
		time.Sleep(50 * time.Millisecond)
		mock.SetToggle(node, true)
	}()

	_, err := exec.Click(context.Background(), target(t, mock, "check"), action.Click{},
		action.Options{Timeout: time.Second, VerifyAction: true})
	require.NoError(t, err)
}

func TestClick_ToggleVerifyFails(t *testing.T) {
	mock, exec, _ := newFixture(t)

	_, err := exec.Click(context.Background(), target(t, mock, "check"), action.Click{},
		action.Options{Timeout: time.Second, VerifyAction: true})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeVerificationFailed), "got %v", err)
}

func TestActivateWindow(t *testing.T) {
	mock, exec, _ := newFixture(t)

	_, err := exec.ActivateWindow(context.Background(), target(t, mock, "win"),
		action.Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, []string{"win"}, mock.Activated)
}

func TestCancellation(t *testing.T) {
	mock, exec, _ := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Click(ctx, target(t, mock, "plain"), action.Click{},
		action.Options{Timeout: time.Second})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeCanceled), "got %v", err)
}
