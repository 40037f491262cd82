//go:build windows

package platform

import (
	"context"
	"fmt"
	"image"
	"strings"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/action"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

// UIA class and interface identifiers.
var (
	clsidCUIAutomation = ole.NewGUID("{FF48DBA4-60EF-4201-AA87-54103EEF594E}")
	iidIUIAutomation   = ole.NewGUID("{30CBE57D-D9D0-452A-AB13-7AC5AC4825EE}")

	iidInvokePattern     = ole.NewGUID("{FB377FBE-8EA6-46D5-9C73-6499642D3059}")
	iidValuePattern      = ole.NewGUID("{A94CD8B1-0844-4CD6-9D2D-640537AB39E9}")
	iidTogglePattern     = ole.NewGUID("{94CF8058-9B8D-4AB9-8BFD-4CD0A33C8C70}")
	iidScrollItemPattern = ole.NewGUID("{B488300F-D015-4F19-9C29-BB595E3645EF}")
)

// UIA pattern ids.
const (
	patternInvoke     = 10000
	patternValue      = 10002
	patternToggle     = 10015
	patternScrollItem = 10017
)

// Foreground and title-change win events.
const (
	eventSystemForeground = 0x0003
	eventObjectFocus      = 0x8005
	eventObjectNameChange = 0x800C
	wineventOutOfContext  = 0x0000
)

// uiaPlatform implements ports.Platform over Windows UI Automation. All COM
// calls are marshalled onto one OS-locked STA goroutine: the UIA client
// objects are apartment-threaded and must never be touched from arbitrary
// scheduler threads.
type uiaPlatform struct {
	inputEngine

	logger *zap.Logger
	calls  chan func()
	done   chan struct{}

	automation *uiaAutomation
	walker     *uiaTreeWalker
}

func newOSPlatform(logger *zap.Logger) (ports.Platform, error) {
	p := &uiaPlatform{
		inputEngine: inputEngine{logger: logger},
		logger:      logger,
		calls:       make(chan func()),
		done:        make(chan struct{}),
	}

	ready := make(chan error, 1)

	go p.staLoop(ready)

	if err := <-ready; err != nil {
		return nil, err
	}

	return p, nil
}

// staLoop owns the COM apartment. It initializes UIA and then serves
// marshalled calls until shutdown.
func (p *uiaPlatform) staLoop(ready chan<- error) {
	// The apartment lives on this exact OS thread for the process lifetime.
	lockThread()

	if err := ole.CoInitialize(0); err != nil {
		ready <- derrors.Wrap(err, derrors.CodePlatformUnavailable, "COM initialization failed")

		return
	}

	unknown, err := ole.CreateInstance(clsidCUIAutomation, iidIUIAutomation)
	if err != nil {
		ready <- derrors.Wrap(err, derrors.CodePlatformUnavailable, "UI Automation is unavailable")

		return
	}

	p.automation = (*uiaAutomation)(unsafe.Pointer(unknown))

	walker, walkerErr := p.automation.rawViewWalker()
	if walkerErr != nil {
		ready <- walkerErr

		return
	}

	p.walker = walker

	ready <- nil

	for {
		select {
		case call := <-p.calls:
			call()
		case <-p.done:
			ole.CoUninitialize()

			return
		}
	}
}

// onSTA runs fn on the apartment thread and waits for it.
func (p *uiaPlatform) onSTA(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)

	select {
	case p.calls <- func() { result <- fn() }:
	case <-ctx.Done():
		return derrors.Wrap(ctx.Err(), derrors.CodeCanceled, "call canceled before dispatch")
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return derrors.Wrap(ctx.Err(), derrors.CodeCanceled, "call canceled")
	}
}

// uiaNode wraps one IUIAutomationElement.
type uiaNode struct {
	elem     *uiaElement
	platform *uiaPlatform
}

// Release drops the COM reference on the apartment thread.
func (n *uiaNode) Release() {
	if n.elem == nil {
		return
	}

	_ = n.platform.onSTA(context.Background(), func() error {
		n.elem.release()

		return nil
	})
}

func (p *uiaPlatform) resolve(node ports.NativeNode) (*uiaNode, error) {
	uNode, ok := node.(*uiaNode)
	if !ok || uNode == nil || uNode.elem == nil {
		return nil, derrors.New(derrors.CodeInternal, "foreign node handed to UIA adapter")
	}

	return uNode, nil
}

// wrapHRESULT converts a COM failure into the taxonomy. UIA reports a
// destroyed element as UIA_E_ELEMENTNOTAVAILABLE.
func wrapHRESULT(err error, msg string) error {
	if err == nil {
		return nil
	}

	var oleErr *ole.OleError
	if ok := asOleError(err, &oleErr); ok {
		const elementNotAvailable = 0x80040201

		if uint32(oleErr.Code()) == elementNotAvailable {
			return derrors.Wrap(err, derrors.CodeElementDetached, "element no longer exists")
		}

		const accessDenied = 0x80070005

		if uint32(oleErr.Code()) == accessDenied {
			return derrors.Wrap(err, derrors.CodePermissionDenied, "access to the element was denied")
		}
	}

	return derrors.Wrap(err, derrors.CodeInternal, msg)
}

// Root implements ports.TreeAccess.
func (p *uiaPlatform) Root(ctx context.Context) (ports.NativeNode, error) {
	var node *uiaNode

	err := p.onSTA(ctx, func() error {
		elem, rootErr := p.automation.rootElement()
		if rootErr != nil {
			return wrapHRESULT(rootErr, "failed to get the desktop root")
		}

		node = &uiaNode{elem: elem, platform: p}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return node, nil
}

// Children implements ports.TreeAccess using the raw view walker.
func (p *uiaPlatform) Children(ctx context.Context, node ports.NativeNode) ([]ports.NativeNode, error) {
	uNode, err := p.resolve(node)
	if err != nil {
		return nil, err
	}

	var children []ports.NativeNode

	err = p.onSTA(ctx, func() error {
		child, childErr := p.walker.firstChild(uNode.elem)
		if childErr != nil {
			return wrapHRESULT(childErr, "failed to enumerate children")
		}

		for child != nil {
			children = append(children, &uiaNode{elem: child, platform: p})

			next, nextErr := p.walker.nextSibling(child)
			if nextErr != nil {
				return wrapHRESULT(nextErr, "failed to advance to the next sibling")
			}

			child = next
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return children, nil
}

// Parent implements ports.TreeAccess.
func (p *uiaPlatform) Parent(ctx context.Context, node ports.NativeNode) (ports.NativeNode, error) {
	uNode, err := p.resolve(node)
	if err != nil {
		return nil, err
	}

	var parent ports.NativeNode

	err = p.onSTA(ctx, func() error {
		elem, parentErr := p.walker.parent(uNode.elem)
		if parentErr != nil {
			return wrapHRESULT(parentErr, "failed to get the parent element")
		}

		if elem != nil {
			parent = &uiaNode{elem: elem, platform: p}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return parent, nil
}

// Info implements ports.TreeAccess. Every property read is live; DPI scaling
// applies to the bounding rectangle here and nowhere else.
func (p *uiaPlatform) Info(ctx context.Context, node ports.NativeNode) (*ports.NodeInfo, error) {
	uNode, err := p.resolve(node)
	if err != nil {
		return nil, err
	}

	info := &ports.NodeInfo{}

	err = p.onSTA(ctx, func() error {
		props, propsErr := uNode.elem.currentProperties()
		if propsErr != nil {
			return wrapHRESULT(propsErr, "failed to read element properties")
		}

		info.Role = NormalizeRole(props.controlType)
		info.Name = NormalizeName(props.name)
		info.NativeID = props.automationID
		info.ClassName = props.className
		info.Enabled = props.enabled
		info.Focused = props.focused
		info.ProcessID = props.processID
		info.Bounds = ScaleBounds(props.bounds, displayScale())
		info.WindowTitle = props.windowTitle

		return nil
	})
	if err != nil {
		return nil, err
	}

	return info, nil
}

// NodeRuntimeID implements ports.TreeAccess.
func (p *uiaPlatform) NodeRuntimeID(node ports.NativeNode) (ports.RuntimeID, error) {
	uNode, err := p.resolve(node)
	if err != nil {
		return "", err
	}

	var id ports.RuntimeID

	err = p.onSTA(context.Background(), func() error {
		parts, idErr := uNode.elem.runtimeID()
		if idErr != nil {
			return wrapHRESULT(idErr, "failed to read the runtime id")
		}

		segments := make([]string, len(parts))
		for index, part := range parts {
			segments[index] = fmt.Sprintf("%x", part)
		}

		id = ports.RuntimeID(strings.Join(segments, "."))

		return nil
	})
	if err != nil {
		return "", err
	}

	return id, nil
}

// ElementAtPoint implements ports.TreeAccess.
func (p *uiaPlatform) ElementAtPoint(ctx context.Context, point image.Point) (ports.NativeNode, error) {
	var node ports.NativeNode

	err := p.onSTA(ctx, func() error {
		scale := displayScale()
		physical := image.Point{
			X: int(float64(point.X) * scale),
			Y: int(float64(point.Y) * scale),
		}

		elem, hitErr := p.automation.elementFromPoint(physical)
		if hitErr != nil {
			return wrapHRESULT(hitErr, "hit test failed")
		}

		if elem != nil {
			node = &uiaNode{elem: elem, platform: p}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return node, nil
}

// Invoke implements ports.Patterns.
func (p *uiaPlatform) Invoke(ctx context.Context, node ports.NativeNode) error {
	uNode, err := p.resolve(node)
	if err != nil {
		return err
	}

	return p.onSTA(ctx, func() error {
		pattern, patternErr := uNode.elem.pattern(patternInvoke, iidInvokePattern)
		if patternErr != nil || pattern == nil {
			return derrors.New(derrors.CodeInvokeUnsupported, "element lacks the invoke pattern")
		}
		defer pattern.release()

		if invokeErr := pattern.call(3); invokeErr != nil { // IUIAutomationInvokePattern::Invoke
			return wrapHRESULT(invokeErr, "invoke failed")
		}

		return nil
	})
}

// Focus implements ports.Patterns.
func (p *uiaPlatform) Focus(ctx context.Context, node ports.NativeNode) error {
	uNode, err := p.resolve(node)
	if err != nil {
		return err
	}

	return p.onSTA(ctx, func() error {
		if focusErr := uNode.elem.setFocus(); focusErr != nil {
			return wrapHRESULT(focusErr, "failed to focus the element")
		}

		return nil
	})
}

// Value implements ports.Patterns.
func (p *uiaPlatform) Value(ctx context.Context, node ports.NativeNode) (string, error) {
	uNode, err := p.resolve(node)
	if err != nil {
		return "", err
	}

	var value string

	err = p.onSTA(ctx, func() error {
		pattern, patternErr := uNode.elem.pattern(patternValue, iidValuePattern)
		if patternErr != nil || pattern == nil {
			// Fall back to the name property for value-less elements.
			props, propsErr := uNode.elem.currentProperties()
			if propsErr != nil {
				return wrapHRESULT(propsErr, "failed to read element value")
			}

			value = props.name

			return nil
		}
		defer pattern.release()

		read, readErr := pattern.getBSTR(5) // IUIAutomationValuePattern::get_CurrentValue
		if readErr != nil {
			return wrapHRESULT(readErr, "failed to read the value pattern")
		}

		value = read

		return nil
	})
	if err != nil {
		return "", err
	}

	return value, nil
}

// Toggled implements ports.Patterns.
func (p *uiaPlatform) Toggled(ctx context.Context, node ports.NativeNode) (bool, error) {
	uNode, err := p.resolve(node)
	if err != nil {
		return false, err
	}

	var toggled bool

	err = p.onSTA(ctx, func() error {
		pattern, patternErr := uNode.elem.pattern(patternToggle, iidTogglePattern)
		if patternErr != nil || pattern == nil {
			return derrors.New(derrors.CodeInvokeUnsupported, "element lacks the toggle pattern")
		}
		defer pattern.release()

		state, stateErr := pattern.getInt(4) // IUIAutomationTogglePattern::get_CurrentToggleState
		if stateErr != nil {
			return wrapHRESULT(stateErr, "failed to read the toggle state")
		}

		toggled = state == 1 // ToggleState_On

		return nil
	})
	if err != nil {
		return false, err
	}

	return toggled, nil
}

// ScrollIntoView implements ports.Patterns.
func (p *uiaPlatform) ScrollIntoView(ctx context.Context, node ports.NativeNode) error {
	uNode, err := p.resolve(node)
	if err != nil {
		return err
	}

	return p.onSTA(ctx, func() error {
		pattern, patternErr := uNode.elem.pattern(patternScrollItem, iidScrollItemPattern)
		if patternErr != nil || pattern == nil {
			return derrors.New(derrors.CodeScrollFailed, "element cannot scroll itself into view")
		}
		defer pattern.release()

		if scrollErr := pattern.call(3); scrollErr != nil { // ScrollIntoView
			return wrapHRESULT(scrollErr, "scroll into view failed")
		}

		return nil
	})
}

// ListApplications enumerates toplevel windows without walking the UIA tree.
func (p *uiaPlatform) ListApplications(ctx context.Context) ([]ports.AppInfo, error) {
	type rawWindow struct {
		hwnd  windows.HWND
		title string
		pid   uint32
	}

	var raw []rawWindow

	cb := syscall.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		if !isWindowVisible(hwnd) {
			return 1
		}

		title := windowText(hwnd)
		if title == "" {
			return 1
		}

		var pid uint32

		windows.GetWindowThreadProcessId(hwnd, &pid)
		raw = append(raw, rawWindow{hwnd: hwnd, title: title, pid: pid})

		return 1
	})

	if err := enumWindows(cb); err != nil {
		return nil, derrors.Wrap(err, derrors.CodePlatformUnavailable, "window enumeration failed")
	}

	apps := make([]ports.AppInfo, 0, len(raw))

	for _, win := range raw {
		name := win.title

		if proc, procErr := process.NewProcess(int32(win.pid)); procErr == nil {
			if procName, nameErr := proc.Name(); nameErr == nil {
				name = strings.TrimSuffix(procName, ".exe")
			}
		}

		var node ports.NativeNode

		hwnd := win.hwnd

		err := p.onSTA(ctx, func() error {
			elem, fromErr := p.automation.elementFromHandle(uintptr(hwnd))
			if fromErr != nil || elem == nil {
				return nil //nolint:nilerr // windows may vanish mid-enumeration
			}

			node = &uiaNode{elem: elem, platform: p}

			return nil
		})
		if err != nil {
			continue
		}

		apps = append(apps, ports.AppInfo{
			Name:        name,
			ProcessID:   int(win.pid),
			WindowTitle: win.title,
			Window:      node,
		})
	}

	return apps, nil
}

// ActivateWindow implements ports.WindowManagement.
func (p *uiaPlatform) ActivateWindow(ctx context.Context, node ports.NativeNode) error {
	uNode, err := p.resolve(node)
	if err != nil {
		return err
	}

	var hwnd uintptr

	err = p.onSTA(ctx, func() error {
		handle, handleErr := uNode.elem.nativeWindowHandle()
		if handleErr != nil {
			return wrapHRESULT(handleErr, "failed to resolve the window handle")
		}

		hwnd = handle

		return nil
	})
	if err != nil {
		return err
	}

	if hwnd == 0 {
		return derrors.New(derrors.CodeInternal, "element has no native window handle")
	}

	if !setForegroundWindow(hwnd) {
		return derrors.New(derrors.CodePermissionDenied, "the window refused foreground activation")
	}

	return nil
}

// FocusedWindow implements ports.WindowManagement.
func (p *uiaPlatform) FocusedWindow(ctx context.Context) (ports.NativeNode, error) {
	var node ports.NativeNode

	err := p.onSTA(ctx, func() error {
		elem, focusErr := p.automation.focusedElement()
		if focusErr != nil || elem == nil {
			return wrapHRESULT(focusErr, "failed to get the focused element")
		}

		node = &uiaNode{elem: elem, platform: p}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return node, nil
}

// OpenApplication launches an application by name.
func (p *uiaPlatform) OpenApplication(_ context.Context, name string) error {
	return startProcess(name)
}

// Screens implements ports.ScreenAccess via the shared input engine.
func (p *uiaPlatform) Screens(ctx context.Context) ([]image.Rectangle, error) {
	return p.screens(ctx)
}

// CapturePNG implements ports.ScreenAccess via the shared input engine.
func (p *uiaPlatform) CapturePNG(ctx context.Context, clip *image.Rectangle) ([]byte, error) {
	return p.capturePNG(ctx, clip)
}

// SubscribeEvents implements ports.EventSource with WinEvent hooks for
// foreground, focus, and name changes.
func (p *uiaPlatform) SubscribeEvents(handler func(ports.Event)) (ports.Subscription, error) {
	return newWinEventSubscription(p.logger, handler)
}

// ShowHighlight is not implemented by the UIA adapter yet; highlighting
// degrades to a no-op upstream.
func (p *uiaPlatform) ShowHighlight(
	_ context.Context,
	_ image.Rectangle,
	_ uint32,
	_ string,
	_ action.TextPosition,
) (ports.OverlayHandle, error) {
	return nil, derrors.New(derrors.CodeInvokeUnsupported, "overlay drawing is not available")
}

// CheckPermissions implements ports.Health. UIA needs no explicit permission
// grant; reachability of the root element is the health probe.
func (p *uiaPlatform) CheckPermissions(ctx context.Context) error {
	node, err := p.Root(ctx)
	if err != nil {
		return err
	}

	node.Release()

	return nil
}
