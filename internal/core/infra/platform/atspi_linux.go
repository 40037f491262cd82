//go:build linux

package platform

import (
	"context"
	"fmt"
	"image"
	"os/exec"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/action"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
	"go.uber.org/zap"
)

const (
	atspiAccessibleIface = "org.a11y.atspi.Accessible"
	atspiComponentIface  = "org.a11y.atspi.Component"
	atspiActionIface     = "org.a11y.atspi.Action"
	atspiTextIface       = "org.a11y.atspi.Text"
	atspiValueIface      = "org.a11y.atspi.Value"
	atspiRegistryService = "org.a11y.atspi.Registry"
	atspiRootPath        = "/org/a11y/atspi/accessible/root"
	propsIface           = "org.freedesktop.DBus.Properties"
)

// AT-SPI state ids (AtspiStateType).
const (
	stateChecked = 4
	stateDefunct = 6
	stateEnabled = 8
	stateFocused = 12
	stateShowing = 25
)

// coordTypeScreen asks Component methods for screen coordinates.
const coordTypeScreen = 0

// atspiPlatform implements ports.Platform over AT-SPI2. Tree access talks to
// the dedicated accessibility bus; input synthesis goes through the shared
// robotgo engine because AT-SPI's device-event layer is write-protected on
// Wayland sessions.
type atspiPlatform struct {
	inputEngine

	logger *zap.Logger
	conn   *dbus.Conn
}

func newOSPlatform(logger *zap.Logger) (ports.Platform, error) {
	conn, err := connectAccessibilityBus()
	if err != nil {
		return nil, derrors.Wrap(
			err,
			derrors.CodePlatformUnavailable,
			"the AT-SPI accessibility bus is unreachable",
		)
	}

	return &atspiPlatform{
		inputEngine: inputEngine{logger: logger},
		logger:      logger,
		conn:        conn,
	}, nil
}

// connectAccessibilityBus resolves the dedicated a11y bus address from the
// session bus and connects to it.
func connectAccessibilityBus() (*dbus.Conn, error) {
	session, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}

	var address string

	obj := session.Object("org.a11y.Bus", "/org/a11y/bus")

	if callErr := obj.Call("org.a11y.Bus.GetAddress", 0).Store(&address); callErr != nil {
		return nil, callErr
	}

	conn, err := dbus.Connect(address)
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// atspiNode is one (service, object path) accessible reference.
type atspiNode struct {
	service string
	path    dbus.ObjectPath
}

// Release implements ports.NativeNode. D-Bus references hold no OS resources.
func (n *atspiNode) Release() {}

func (p *atspiPlatform) resolve(node ports.NativeNode) (*atspiNode, error) {
	aNode, ok := node.(*atspiNode)
	if !ok || aNode == nil {
		return nil, derrors.New(derrors.CodeInternal, "foreign node handed to AT-SPI adapter")
	}

	return aNode, nil
}

func (p *atspiPlatform) object(node *atspiNode) dbus.BusObject {
	return p.conn.Object(node.service, node.path)
}

// wrapDBusError converts D-Bus failures into the taxonomy. A vanished object
// or service is a detached element.
func wrapDBusError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var dbusErr dbus.Error

	if ok := asDBusError(err, &dbusErr); ok {
		switch dbusErr.Name {
		case "org.freedesktop.DBus.Error.UnknownObject",
			"org.freedesktop.DBus.Error.ServiceUnknown",
			"org.freedesktop.DBus.Error.NoReply":
			return derrors.Wrap(err, derrors.CodeElementDetached, "element no longer exists")
		case "org.freedesktop.DBus.Error.AccessDenied":
			return derrors.Wrap(err, derrors.CodePermissionDenied, "access to the element was denied")
		}
	}

	return derrors.Wrap(err, derrors.CodeInternal, msg)
}

func asDBusError(err error, target *dbus.Error) bool {
	dbusErr, ok := err.(dbus.Error) //nolint:errorlint // dbus returns its error type by value
	if ok {
		*target = dbusErr
	}

	return ok
}

// Root implements ports.TreeAccess.
func (p *atspiPlatform) Root(_ context.Context) (ports.NativeNode, error) {
	return &atspiNode{service: atspiRegistryService, path: atspiRootPath}, nil
}

// Children implements ports.TreeAccess.
func (p *atspiPlatform) Children(ctx context.Context, node ports.NativeNode) ([]ports.NativeNode, error) {
	aNode, err := p.resolve(node)
	if err != nil {
		return nil, err
	}

	var refs [][]interface{}

	call := p.object(aNode).CallWithContext(ctx, atspiAccessibleIface+".GetChildren", 0)
	if call.Err != nil {
		return nil, wrapDBusError(call.Err, "failed to enumerate children")
	}

	if storeErr := call.Store(&refs); storeErr != nil {
		return nil, wrapDBusError(storeErr, "unexpected children reply shape")
	}

	children := make([]ports.NativeNode, 0, len(refs))

	for _, ref := range refs {
		child, ok := nodeFromRef(ref)
		if !ok {
			continue
		}

		// The registry pads missing children with the null path.
		if child.path == "/org/a11y/atspi/null" {
			continue
		}

		children = append(children, child)
	}

	return children, nil
}

func nodeFromRef(ref []interface{}) (*atspiNode, bool) {
	if len(ref) != 2 {
		return nil, false
	}

	service, serviceOK := ref[0].(string)
	path, pathOK := ref[1].(dbus.ObjectPath)

	if !serviceOK || !pathOK {
		return nil, false
	}

	return &atspiNode{service: service, path: path}, true
}

// Parent implements ports.TreeAccess.
func (p *atspiPlatform) Parent(ctx context.Context, node ports.NativeNode) (ports.NativeNode, error) {
	aNode, err := p.resolve(node)
	if err != nil {
		return nil, err
	}

	if aNode.path == atspiRootPath {
		return nil, nil
	}

	variant, propErr := p.getProperty(ctx, aNode, atspiAccessibleIface, "Parent")
	if propErr != nil {
		return nil, propErr
	}

	ref, ok := variant.Value().([]interface{})
	if !ok {
		return nil, nil
	}

	parent, ok := nodeFromRef(ref)
	if !ok || parent.path == "/org/a11y/atspi/null" {
		return nil, nil
	}

	return parent, nil
}

func (p *atspiPlatform) getProperty(
	ctx context.Context,
	node *atspiNode,
	iface, name string,
) (dbus.Variant, error) {
	var variant dbus.Variant

	call := p.object(node).CallWithContext(ctx, propsIface+".Get", 0, iface, name)
	if call.Err != nil {
		return variant, wrapDBusError(call.Err, "failed to read property "+name)
	}

	if storeErr := call.Store(&variant); storeErr != nil {
		return variant, wrapDBusError(storeErr, "unexpected property reply shape")
	}

	return variant, nil
}

// Info implements ports.TreeAccess.
func (p *atspiPlatform) Info(ctx context.Context, node ports.NativeNode) (*ports.NodeInfo, error) {
	aNode, err := p.resolve(node)
	if err != nil {
		return nil, err
	}

	info := &ports.NodeInfo{}

	var roleName string

	roleCall := p.object(aNode).CallWithContext(ctx, atspiAccessibleIface+".GetRoleName", 0)
	if roleCall.Err != nil {
		return nil, wrapDBusError(roleCall.Err, "failed to read the element role")
	}

	if storeErr := roleCall.Store(&roleName); storeErr != nil {
		return nil, wrapDBusError(storeErr, "unexpected role reply shape")
	}

	info.Role = NormalizeRole(roleName)

	nameVariant, nameErr := p.getProperty(ctx, aNode, atspiAccessibleIface, "Name")
	if nameErr != nil {
		return nil, nameErr
	}

	if name, ok := nameVariant.Value().(string); ok {
		info.Name = NormalizeName(name)
	}

	states, statesErr := p.states(ctx, aNode)
	if statesErr != nil {
		return nil, statesErr
	}

	if states.has(stateDefunct) {
		return nil, derrors.New(derrors.CodeElementDetached, "element no longer exists")
	}

	info.Enabled = states.has(stateEnabled)
	info.Focused = states.has(stateFocused)

	// Extents are only meaningful for showing components.
	var extents struct {
		X, Y, Width, Height int32
	}

	extentsCall := p.object(aNode).CallWithContext(
		ctx, atspiComponentIface+".GetExtents", 0, int32(coordTypeScreen),
	)
	if extentsCall.Err == nil {
		if storeErr := extentsCall.Store(&extents); storeErr == nil && states.has(stateShowing) {
			info.Bounds = image.Rect(
				int(extents.X), int(extents.Y),
				int(extents.X+extents.Width), int(extents.Y+extents.Height),
			)
		}
	}

	// The automation id arrives as the AccessibleId property on toolkits
	// that publish one.
	if idVariant, idErr := p.getProperty(ctx, aNode, atspiAccessibleIface, "AccessibleId"); idErr == nil {
		if id, ok := idVariant.Value().(string); ok {
			info.NativeID = id
		}
	}

	if pid, pidErr := p.processID(ctx, aNode); pidErr == nil {
		info.ProcessID = pid
	}

	return info, nil
}

type stateSet uint64

func (s stateSet) has(state uint) bool {
	return s&(1<<state) != 0
}

func (p *atspiPlatform) states(ctx context.Context, node *atspiNode) (stateSet, error) {
	var raw []uint32

	call := p.object(node).CallWithContext(ctx, atspiAccessibleIface+".GetState", 0)
	if call.Err != nil {
		return 0, wrapDBusError(call.Err, "failed to read the element state")
	}

	if storeErr := call.Store(&raw); storeErr != nil {
		return 0, wrapDBusError(storeErr, "unexpected state reply shape")
	}

	var states stateSet

	if len(raw) > 0 {
		states = stateSet(raw[0])
	}

	if len(raw) > 1 {
		states |= stateSet(raw[1]) << 32
	}

	return states, nil
}

func (p *atspiPlatform) processID(ctx context.Context, node *atspiNode) (int, error) {
	var pid uint32

	call := p.object(node).CallWithContext(ctx, atspiAccessibleIface+".GetApplication", 0)
	if call.Err != nil {
		return 0, wrapDBusError(call.Err, "failed to resolve the owning application")
	}

	var appRef []interface{}

	if storeErr := call.Store(&appRef); storeErr != nil {
		return 0, wrapDBusError(storeErr, "unexpected application reply shape")
	}

	app, ok := nodeFromRef(appRef)
	if !ok {
		return 0, nil
	}

	pidCall := p.object(app).CallWithContext(ctx, "org.a11y.atspi.Application.GetProcessID", 0)
	if pidCall.Err != nil {
		return 0, nil //nolint:nilerr // older registries lack the call; pid stays unknown
	}

	if storeErr := pidCall.Store(&pid); storeErr != nil {
		return 0, nil //nolint:nilerr // malformed replies leave the pid unknown
	}

	return int(pid), nil
}

// NodeRuntimeID implements ports.TreeAccess. The bus name and object path
// are unique and stable for the accessible's lifetime.
func (p *atspiPlatform) NodeRuntimeID(node ports.NativeNode) (ports.RuntimeID, error) {
	aNode, err := p.resolve(node)
	if err != nil {
		return "", err
	}

	return ports.RuntimeID(aNode.service + string(aNode.path)), nil
}

// ElementAtPoint implements ports.TreeAccess by descending through
// Component.GetAccessibleAtPoint from the root.
func (p *atspiPlatform) ElementAtPoint(ctx context.Context, point image.Point) (ports.NativeNode, error) {
	current := &atspiNode{service: atspiRegistryService, path: atspiRootPath}

	for range 64 {
		call := p.object(current).CallWithContext(
			ctx, atspiComponentIface+".GetAccessibleAtPoint", 0,
			int32(point.X), int32(point.Y), int32(coordTypeScreen),
		)
		if call.Err != nil {
			break
		}

		var ref []interface{}

		if storeErr := call.Store(&ref); storeErr != nil {
			break
		}

		next, ok := nodeFromRef(ref)
		if !ok || next.path == "/org/a11y/atspi/null" || next.path == current.path {
			break
		}

		current = next
	}

	if current.path == atspiRootPath {
		return nil, nil
	}

	return current, nil
}

// Invoke implements ports.Patterns through the Action interface's default
// action.
func (p *atspiPlatform) Invoke(ctx context.Context, node ports.NativeNode) error {
	aNode, err := p.resolve(node)
	if err != nil {
		return err
	}

	var actions int32

	countCall := p.object(aNode).CallWithContext(ctx, propsIface+".Get", 0, atspiActionIface, "NActions")
	if countCall.Err != nil {
		return derrors.New(derrors.CodeInvokeUnsupported, "element lacks the action interface")
	}

	var variant dbus.Variant

	if storeErr := countCall.Store(&variant); storeErr == nil {
		if n, ok := variant.Value().(int32); ok {
			actions = n
		}
	}

	if actions == 0 {
		return derrors.New(derrors.CodeInvokeUnsupported, "element exposes no actions")
	}

	var performed bool

	call := p.object(aNode).CallWithContext(ctx, atspiActionIface+".DoAction", 0, int32(0))
	if call.Err != nil {
		return wrapDBusError(call.Err, "invoke failed")
	}

	if storeErr := call.Store(&performed); storeErr == nil && !performed {
		return derrors.New(derrors.CodeInternal, "the element rejected its default action")
	}

	return nil
}

// Focus implements ports.Patterns.
func (p *atspiPlatform) Focus(ctx context.Context, node ports.NativeNode) error {
	aNode, err := p.resolve(node)
	if err != nil {
		return err
	}

	var granted bool

	call := p.object(aNode).CallWithContext(ctx, atspiComponentIface+".GrabFocus", 0)
	if call.Err != nil {
		return wrapDBusError(call.Err, "failed to focus the element")
	}

	if storeErr := call.Store(&granted); storeErr == nil && !granted {
		return derrors.New(derrors.CodeInternal, "focus grab was refused")
	}

	return nil
}

// Value implements ports.Patterns, preferring the Text interface and falling
// back to the numeric Value interface.
func (p *atspiPlatform) Value(ctx context.Context, node ports.NativeNode) (string, error) {
	aNode, err := p.resolve(node)
	if err != nil {
		return "", err
	}

	var text string

	textCall := p.object(aNode).CallWithContext(
		ctx, atspiTextIface+".GetText", 0, int32(0), int32(-1),
	)
	if textCall.Err == nil {
		if storeErr := textCall.Store(&text); storeErr == nil {
			return text, nil
		}
	}

	variant, valueErr := p.getProperty(ctx, aNode, atspiValueIface, "CurrentValue")
	if valueErr != nil {
		return "", wrapDBusError(textCall.Err, "element has neither text nor value")
	}

	return fmt.Sprint(variant.Value()), nil
}

// Toggled implements ports.Patterns via the checked state.
func (p *atspiPlatform) Toggled(ctx context.Context, node ports.NativeNode) (bool, error) {
	aNode, err := p.resolve(node)
	if err != nil {
		return false, err
	}

	states, statesErr := p.states(ctx, aNode)
	if statesErr != nil {
		return false, statesErr
	}

	return states.has(stateChecked), nil
}

// ScrollIntoView implements ports.Patterns.
func (p *atspiPlatform) ScrollIntoView(ctx context.Context, node ports.NativeNode) error {
	aNode, err := p.resolve(node)
	if err != nil {
		return err
	}

	const scrollAnywhere = 6 // ATSPI_SCROLL_ANYWHERE

	var scrolled bool

	call := p.object(aNode).CallWithContext(ctx, atspiComponentIface+".ScrollTo", 0, int32(scrollAnywhere))
	if call.Err != nil {
		return derrors.Wrap(call.Err, derrors.CodeScrollFailed, "element could not be scrolled into view")
	}

	if storeErr := call.Store(&scrolled); storeErr == nil && !scrolled {
		return derrors.New(derrors.CodeScrollFailed, "the container refused to scroll")
	}

	return nil
}

// ListApplications enumerates the registry root's direct children: one
// accessible application per entry. This never walks deeper.
func (p *atspiPlatform) ListApplications(ctx context.Context) ([]ports.AppInfo, error) {
	root := &atspiNode{service: atspiRegistryService, path: atspiRootPath}

	children, err := p.Children(ctx, root)
	if err != nil {
		return nil, err
	}

	apps := make([]ports.AppInfo, 0, len(children))

	for _, child := range children {
		aNode, resolveErr := p.resolve(child)
		if resolveErr != nil {
			continue
		}

		info, infoErr := p.Info(ctx, child)
		if infoErr != nil {
			continue
		}

		name := info.Name

		if info.ProcessID > 0 {
			if proc, procErr := process.NewProcess(int32(info.ProcessID)); procErr == nil {
				if procName, nameErr := proc.Name(); nameErr == nil && procName != "" {
					name = procName
				}
			}
		}

		apps = append(apps, ports.AppInfo{
			Name:        name,
			ProcessID:   info.ProcessID,
			WindowTitle: info.Name,
			Window:      aNode,
		})
	}

	return apps, nil
}

// ActivateWindow implements ports.WindowManagement.
func (p *atspiPlatform) ActivateWindow(ctx context.Context, node ports.NativeNode) error {
	return p.Focus(ctx, node)
}

// FocusedWindow implements ports.WindowManagement by scanning toplevels for
// the active state.
func (p *atspiPlatform) FocusedWindow(ctx context.Context) (ports.NativeNode, error) {
	apps, err := p.ListApplications(ctx)
	if err != nil {
		return nil, err
	}

	for _, app := range apps {
		windows, windowsErr := p.Children(ctx, app.Window)
		if windowsErr != nil {
			continue
		}

		for _, window := range windows {
			aNode, resolveErr := p.resolve(window)
			if resolveErr != nil {
				continue
			}

			states, statesErr := p.states(ctx, aNode)
			if statesErr != nil {
				continue
			}

			const stateActive = 1

			if states.has(stateActive) {
				return window, nil
			}
		}
	}

	return nil, derrors.New(derrors.CodeElementNotFound, "no window has the active state")
}

// OpenApplication launches an application by name.
func (p *atspiPlatform) OpenApplication(_ context.Context, name string) error {
	return exec.Command(name).Start()
}

// Screens implements ports.ScreenAccess via the shared input engine.
func (p *atspiPlatform) Screens(ctx context.Context) ([]image.Rectangle, error) {
	return p.screens(ctx)
}

// CapturePNG implements ports.ScreenAccess via the shared input engine.
func (p *atspiPlatform) CapturePNG(ctx context.Context, clip *image.Rectangle) ([]byte, error) {
	return p.capturePNG(ctx, clip)
}

// atspiSubscription is one live signal registration.
type atspiSubscription struct {
	conn    *dbus.Conn
	signals chan *dbus.Signal
	stop    chan struct{}
}

func (s *atspiSubscription) Close() error {
	close(s.stop)
	s.conn.RemoveSignal(s.signals)

	return nil
}

// SubscribeEvents implements ports.EventSource over window-activation and
// name-change signals. Registries that expose only a subset still deliver
// what they have.
func (p *atspiPlatform) SubscribeEvents(handler func(ports.Event)) (ports.Subscription, error) {
	matches := []string{
		"type='signal',interface='org.a11y.atspi.Event.Window',member='Activate'",
		"type='signal',interface='org.a11y.atspi.Event.Object',member='PropertyChange'",
		"type='signal',interface='org.a11y.atspi.Event.Object',member='StateChanged'",
	}

	for _, match := range matches {
		call := p.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, match)
		if call.Err != nil {
			p.logger.Debug("AT-SPI match rule rejected", zap.String("rule", match), zap.Error(call.Err))
		}
	}

	signals := make(chan *dbus.Signal, 64)
	p.conn.Signal(signals)

	sub := &atspiSubscription{conn: p.conn, signals: signals, stop: make(chan struct{})}

	go func() {
		for {
			select {
			case <-sub.stop:
				return
			case signal, ok := <-signals:
				if !ok {
					return
				}

				event, relevant := p.translateSignal(signal)
				if relevant {
					handler(event)
				}
			}
		}
	}()

	return sub, nil
}

// translateSignal converts a raw AT-SPI signal into a port event.
func (p *atspiPlatform) translateSignal(signal *dbus.Signal) (ports.Event, bool) {
	node := &atspiNode{service: signal.Sender, path: signal.Path}

	ctx := context.Background()

	switch {
	case strings.HasSuffix(signal.Name, "Window.Activate"):
		info, err := p.Info(ctx, node)
		if err != nil {
			return ports.Event{}, false
		}

		return ports.Event{
			Kind:        ports.EventForegroundChanged,
			AppName:     info.Name,
			WindowTitle: info.Name,
			ProcessID:   info.ProcessID,
		}, true
	case strings.HasSuffix(signal.Name, "Object.PropertyChange"):
		if len(signal.Body) == 0 {
			return ports.Event{}, false
		}

		property, ok := signal.Body[0].(string)
		if !ok || property != "accessible-name" {
			return ports.Event{}, false
		}

		info, err := p.Info(ctx, node)
		if err != nil {
			return ports.Event{}, false
		}

		return ports.Event{
			Kind:        ports.EventTitleChanged,
			WindowTitle: info.Name,
			ProcessID:   info.ProcessID,
		}, true
	case strings.HasSuffix(signal.Name, "Object.StateChanged"):
		if len(signal.Body) < 2 {
			return ports.Event{}, false
		}

		state, ok := signal.Body[0].(string)
		if !ok || state != "focused" {
			return ports.Event{}, false
		}

		info, err := p.Info(ctx, node)
		if err != nil {
			return ports.Event{}, false
		}

		return ports.Event{
			Kind:        ports.EventFocusChanged,
			WindowTitle: info.Name,
			ProcessID:   info.ProcessID,
		}, true
	default:
		return ports.Event{}, false
	}
}

// ShowHighlight is not implemented by the AT-SPI adapter; highlighting
// degrades to a no-op upstream.
func (p *atspiPlatform) ShowHighlight(
	_ context.Context,
	_ image.Rectangle,
	_ uint32,
	_ string,
	_ action.TextPosition,
) (ports.OverlayHandle, error) {
	return nil, derrors.New(derrors.CodeInvokeUnsupported, "overlay drawing is not available")
}

// CheckPermissions implements ports.Health: reachability of the registry
// root is the probe.
func (p *atspiPlatform) CheckPermissions(ctx context.Context) error {
	root := &atspiNode{service: atspiRegistryService, path: atspiRootPath}

	_, err := p.Info(ctx, root)
	if err != nil {
		return derrors.Wrap(err, derrors.CodePermissionDenied, "the accessibility registry rejected the probe")
	}

	return nil
}
