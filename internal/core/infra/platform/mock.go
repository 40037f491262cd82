package platform

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/tribhuwan-kumar/terminator/internal/core/domain/action"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
)

// MockNode is one node of the in-memory test tree.
type MockNode struct {
	ID       string
	Info     ports.NodeInfo
	Kids     []*MockNode
	ParentMN *MockNode

	// Pattern support flags and state.
	HasInvoke  bool
	InvokeErr  error
	Invoked    int
	Value      string
	Toggle     bool
	Scrollable bool
	Focusable  bool
	FocusCount int

	detached bool
}

// Release implements ports.NativeNode. The mock retains nothing.
func (n *MockNode) Release() {}

// Node builds a tree node. Children passed here get their parent link set.
func Node(id, role, name string, bounds image.Rectangle, kids ...*MockNode) *MockNode {
	node := &MockNode{
		ID: id,
		Info: ports.NodeInfo{
			Role:    role,
			Name:    name,
			Bounds:  bounds,
			Enabled: true,
		},
		Kids: kids,
	}

	for _, kid := range kids {
		kid.ParentMN = node
	}

	return node
}

// MockClick records one synthesized click.
type MockClick struct {
	Point     image.Point
	Button    action.Button
	Count     int
	Modifiers []action.Modifier
}

// MockScroll records one synthesized scroll.
type MockScroll struct {
	Point     image.Point
	Direction action.ScrollDirection
	Amount    float64
}

// MockDrag records one synthesized drag.
type MockDrag struct {
	From   image.Point
	To     image.Point
	Button action.Button
}

// MockHighlight records one overlay request.
type MockHighlight struct {
	Bounds image.Rectangle
	Color  uint32
	Text   string
	Pos    action.TextPosition
	Closed bool
}

// Mock is a scriptable in-memory ports.Platform for tests.
type Mock struct {
	mu sync.Mutex

	RootNode *MockNode
	Screen   image.Rectangle
	Apps     []ports.AppInfo

	// Error injectors.
	PermissionsErr error
	ClickErr       error
	TypeErr        error
	ScrollErr      error
	CaptureErr     error

	// Recorded input.
	Clicks     []MockClick
	Typed      []string
	Chords     [][]action.Chord
	Scrolls    []MockScroll
	Drags      []MockDrag
	Moves      []image.Point
	Activated  []string
	Opened     []string
	Highlights []*MockHighlight
	Captures   int

	handlers []func(ports.Event)
}

// NewMock builds a mock platform around the given tree with one full-HD
// monitor.
func NewMock(root *MockNode) *Mock {
	return &Mock{
		RootNode: root,
		Screen:   image.Rect(0, 0, 1920, 1080),
	}
}

var errDetached = derrors.New(derrors.CodeElementDetached, "element no longer exists")

func (m *Mock) resolve(node ports.NativeNode) (*MockNode, error) {
	mockNode, ok := node.(*MockNode)
	if !ok || mockNode == nil {
		return nil, derrors.New(derrors.CodeInternal, "foreign node handed to mock platform")
	}

	if mockNode.detached {
		return nil, errDetached
	}

	return mockNode, nil
}

// Detach marks the node and its whole subtree as destroyed.
func (m *Mock) Detach(node *MockNode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var mark func(*MockNode)

	mark = func(n *MockNode) {
		n.detached = true

		for _, kid := range n.Kids {
			mark(kid)
		}
	}

	mark(node)
}

// SetToggle mutates a node's toggle state, as a clicked checkbox would.
func (m *Mock) SetToggle(node *MockNode, toggled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node.Toggle = toggled
}

// SetBounds mutates a node's bounds, as an animating UI would.
func (m *Mock) SetBounds(node *MockNode, bounds image.Rectangle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node.Info.Bounds = bounds
}

// InjectEvent delivers a synthetic OS event to all subscribers.
func (m *Mock) InjectEvent(event ports.Event) {
	m.mu.Lock()
	handlers := make([]func(ports.Event), len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// Root implements ports.TreeAccess.
func (m *Mock) Root(_ context.Context) (ports.NativeNode, error) {
	if m.RootNode == nil {
		return nil, derrors.New(derrors.CodePlatformUnavailable, "mock has no root")
	}

	return m.RootNode, nil
}

// Children implements ports.TreeAccess.
func (m *Mock) Children(_ context.Context, node ports.NativeNode) ([]ports.NativeNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mockNode, err := m.resolve(node)
	if err != nil {
		return nil, err
	}

	children := make([]ports.NativeNode, 0, len(mockNode.Kids))
	for _, kid := range mockNode.Kids {
		if !kid.detached {
			children = append(children, kid)
		}
	}

	return children, nil
}

// Parent implements ports.TreeAccess.
func (m *Mock) Parent(_ context.Context, node ports.NativeNode) (ports.NativeNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mockNode, err := m.resolve(node)
	if err != nil {
		return nil, err
	}

	if mockNode.ParentMN == nil {
		return nil, nil
	}

	return mockNode.ParentMN, nil
}

// Info implements ports.TreeAccess.
func (m *Mock) Info(_ context.Context, node ports.NativeNode) (*ports.NodeInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mockNode, err := m.resolve(node)
	if err != nil {
		return nil, err
	}

	info := mockNode.Info

	return &info, nil
}

// NodeRuntimeID implements ports.TreeAccess.
func (m *Mock) NodeRuntimeID(node ports.NativeNode) (ports.RuntimeID, error) {
	mockNode, ok := node.(*MockNode)
	if !ok || mockNode == nil {
		return "", derrors.New(derrors.CodeInternal, "foreign node handed to mock platform")
	}

	return ports.RuntimeID(mockNode.ID), nil
}

// ElementAtPoint implements ports.TreeAccess: the deepest, latest-in-document
// -order node whose bounds contain the point wins, approximating z-order.
func (m *Mock) ElementAtPoint(_ context.Context, point image.Point) (ports.NativeNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var topmost *MockNode

	var visit func(*MockNode)

	visit = func(n *MockNode) {
		if n == nil || n.detached {
			return
		}

		if point.In(n.Info.Bounds) {
			topmost = n
		}

		for _, kid := range n.Kids {
			visit(kid)
		}
	}

	visit(m.RootNode)

	if topmost == nil {
		return nil, nil
	}

	return topmost, nil
}

// Invoke implements ports.Patterns.
func (m *Mock) Invoke(_ context.Context, node ports.NativeNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mockNode, err := m.resolve(node)
	if err != nil {
		return err
	}

	if mockNode.InvokeErr != nil {
		return mockNode.InvokeErr
	}

	if !mockNode.HasInvoke {
		return derrors.New(derrors.CodeInvokeUnsupported, "element lacks the invoke pattern")
	}

	mockNode.Invoked++

	return nil
}

// Focus implements ports.Patterns.
func (m *Mock) Focus(_ context.Context, node ports.NativeNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mockNode, err := m.resolve(node)
	if err != nil {
		return err
	}

	mockNode.FocusCount++
	mockNode.Info.Focused = true

	return nil
}

// Value implements ports.Patterns.
func (m *Mock) Value(_ context.Context, node ports.NativeNode) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mockNode, err := m.resolve(node)
	if err != nil {
		return "", err
	}

	return mockNode.Value, nil
}

// Toggled implements ports.Patterns.
func (m *Mock) Toggled(_ context.Context, node ports.NativeNode) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mockNode, err := m.resolve(node)
	if err != nil {
		return false, err
	}

	return mockNode.Toggle, nil
}

// ScrollIntoView implements ports.Patterns. Scrollable nodes are moved fully
// on screen; others fail.
func (m *Mock) ScrollIntoView(_ context.Context, node ports.NativeNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mockNode, err := m.resolve(node)
	if err != nil {
		return err
	}

	if !mockNode.Scrollable {
		return derrors.New(derrors.CodeScrollFailed, "element is not scrollable")
	}

	size := mockNode.Info.Bounds.Size()
	mockNode.Info.Bounds = image.Rectangle{
		Min: image.Point{X: m.Screen.Min.X + 10, Y: m.Screen.Min.Y + 10},
	}
	mockNode.Info.Bounds.Max = mockNode.Info.Bounds.Min.Add(size)

	return nil
}

// Click implements ports.InputSynthesis.
func (m *Mock) Click(
	_ context.Context,
	point image.Point,
	button action.Button,
	count int,
	modifiers []action.Modifier,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ClickErr != nil {
		return m.ClickErr
	}

	m.Clicks = append(m.Clicks, MockClick{
		Point:     point,
		Button:    button,
		Count:     count,
		Modifiers: modifiers,
	})

	return nil
}

// MoveMouse implements ports.InputSynthesis.
func (m *Mock) MoveMouse(_ context.Context, point image.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Moves = append(m.Moves, point)

	return nil
}

// TypeKeystrokes implements ports.InputSynthesis.
func (m *Mock) TypeKeystrokes(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.TypeErr != nil {
		return m.TypeErr
	}

	m.Typed = append(m.Typed, text)

	return nil
}

// PressChords implements ports.InputSynthesis.
func (m *Mock) PressChords(_ context.Context, chords []action.Chord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Chords = append(m.Chords, chords)

	return nil
}

// Scroll implements ports.InputSynthesis.
func (m *Mock) Scroll(
	_ context.Context,
	point image.Point,
	direction action.ScrollDirection,
	amount float64,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ScrollErr != nil {
		return m.ScrollErr
	}

	m.Scrolls = append(m.Scrolls, MockScroll{Point: point, Direction: direction, Amount: amount})

	return nil
}

// Drag implements ports.InputSynthesis.
func (m *Mock) Drag(_ context.Context, from, to image.Point, button action.Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Drags = append(m.Drags, MockDrag{From: from, To: to, Button: button})

	return nil
}

// ListApplications implements ports.WindowManagement.
func (m *Mock) ListApplications(_ context.Context) ([]ports.AppInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	apps := make([]ports.AppInfo, len(m.Apps))
	copy(apps, m.Apps)

	return apps, nil
}

// ActivateWindow implements ports.WindowManagement.
func (m *Mock) ActivateWindow(_ context.Context, node ports.NativeNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mockNode, err := m.resolve(node)
	if err != nil {
		return err
	}

	m.Activated = append(m.Activated, mockNode.ID)

	return nil
}

// FocusedWindow implements ports.WindowManagement. The first toplevel child
// of the root is treated as focused.
func (m *Mock) FocusedWindow(_ context.Context) (ports.NativeNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RootNode == nil || len(m.RootNode.Kids) == 0 {
		return nil, derrors.New(derrors.CodeElementNotFound, "no focused window")
	}

	return m.RootNode.Kids[0], nil
}

// OpenApplication implements ports.WindowManagement.
func (m *Mock) OpenApplication(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Opened = append(m.Opened, name)

	return nil
}

// Screens implements ports.ScreenAccess.
func (m *Mock) Screens(_ context.Context) ([]image.Rectangle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return []image.Rectangle{m.Screen}, nil
}

// CapturePNG implements ports.ScreenAccess, returning a minimal PNG header
// so callers can assert on format without a real framebuffer.
func (m *Mock) CapturePNG(_ context.Context, clip *image.Rectangle) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CaptureErr != nil {
		return nil, m.CaptureErr
	}

	m.Captures++

	area := m.Screen
	if clip != nil {
		area = *clip
	}

	return []byte(fmt.Sprintf("\x89PNG mock %dx%d", area.Dx(), area.Dy())), nil
}

type mockSubscription struct {
	mock  *Mock
	index int
}

func (s *mockSubscription) Close() error {
	s.mock.mu.Lock()
	defer s.mock.mu.Unlock()

	if s.index >= 0 && s.index < len(s.mock.handlers) {
		s.mock.handlers[s.index] = func(ports.Event) {}
	}

	return nil
}

// SubscribeEvents implements ports.EventSource.
func (m *Mock) SubscribeEvents(handler func(ports.Event)) (ports.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers = append(m.handlers, handler)

	return &mockSubscription{mock: m, index: len(m.handlers) - 1}, nil
}

// ShowHighlight implements ports.OverlaySupport.
func (m *Mock) ShowHighlight(
	_ context.Context,
	bounds image.Rectangle,
	color uint32,
	text string,
	pos action.TextPosition,
) (ports.OverlayHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	highlight := &MockHighlight{Bounds: bounds, Color: color, Text: text, Pos: pos}
	m.Highlights = append(m.Highlights, highlight)

	return &mockOverlay{mock: m, highlight: highlight}, nil
}

type mockOverlay struct {
	mock      *Mock
	highlight *MockHighlight
}

func (o *mockOverlay) Close() error {
	o.mock.mu.Lock()
	defer o.mock.mu.Unlock()

	o.highlight.Closed = true

	return nil
}

// CheckPermissions implements ports.Health.
func (m *Mock) CheckPermissions(_ context.Context) error {
	return m.PermissionsErr
}

// FindNode walks the mock tree by id, for test assertions.
func (m *Mock) FindNode(id string) *MockNode {
	var find func(*MockNode) *MockNode

	find = func(n *MockNode) *MockNode {
		if n == nil {
			return nil
		}

		if strings.EqualFold(n.ID, id) {
			return n
		}

		for _, kid := range n.Kids {
			if found := find(kid); found != nil {
				return found
			}
		}

		return nil
	}

	return find(m.RootNode)
}
