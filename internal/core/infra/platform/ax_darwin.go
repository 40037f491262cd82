//go:build darwin

package platform

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework ApplicationServices -framework AppKit -framework CoreFoundation
#include "ax_bridge.h"
#include <stdlib.h>
*/
import "C"

import (
	"context"
	"fmt"
	"image"
	"os/exec"
	"unsafe"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/action"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
	"go.uber.org/zap"
)

// axPlatform implements ports.Platform over the macOS AXUIElement API.
// Tree reads go through the cgo bridge; input synthesis uses the shared
// robotgo engine.
type axPlatform struct {
	inputEngine

	logger *zap.Logger
}

func newOSPlatform(logger *zap.Logger) (ports.Platform, error) {
	if C.ax_trusted() == 0 {
		return nil, derrors.New(
			derrors.CodePermissionDenied,
			"accessibility permission is not granted; enable it in System Settings",
		)
	}

	return &axPlatform{inputEngine: inputEngine{logger: logger}, logger: logger}, nil
}

// axNode wraps one retained AXUIElementRef.
type axNode struct {
	ref C.AXUIElementRef
}

// Release drops the CFRetain'd reference.
func (n *axNode) Release() {
	if n.ref != nil {
		C.ax_release(n.ref)
		n.ref = nil
	}
}

func (p *axPlatform) resolve(node ports.NativeNode) (*axNode, error) {
	aNode, ok := node.(*axNode)
	if !ok || aNode == nil || aNode.ref == nil {
		return nil, derrors.New(derrors.CodeInternal, "foreign node handed to AX adapter")
	}

	return aNode, nil
}

// wrapAXError converts an AXError code into the taxonomy.
func wrapAXError(code C.int, msg string) error {
	switch code {
	case 0:
		return nil
	case C.kAXErrorInvalidUIElement, C.kAXErrorCannotComplete:
		return derrors.New(derrors.CodeElementDetached, "element no longer exists")
	case C.kAXErrorAPIDisabled, C.kAXErrorNotImplemented:
		return derrors.New(derrors.CodePermissionDenied, "the accessibility API rejected the call")
	case C.kAXErrorNoValue, C.kAXErrorAttributeUnsupported:
		return derrors.Newf(derrors.CodeInternal, "%s: attribute unsupported", msg)
	default:
		return derrors.Newf(derrors.CodeInternal, "%s: AXError %d", msg, int(code))
	}
}

// Root implements ports.TreeAccess with the system-wide element.
func (p *axPlatform) Root(_ context.Context) (ports.NativeNode, error) {
	ref := C.ax_system_wide()
	if ref == nil {
		return nil, derrors.New(derrors.CodePlatformUnavailable, "the system-wide element is unavailable")
	}

	return &axNode{ref: ref}, nil
}

// Children implements ports.TreeAccess. The system-wide root has no children
// attribute; its children are the running applications' elements.
func (p *axPlatform) Children(ctx context.Context, node ports.NativeNode) ([]ports.NativeNode, error) {
	aNode, err := p.resolve(node)
	if err != nil {
		return nil, err
	}

	if C.ax_is_system_wide(aNode.ref) != 0 {
		return p.applicationElements(ctx)
	}

	var (
		count C.int
		refs  *C.AXUIElementRef
	)

	code := C.ax_copy_children(aNode.ref, &refs, &count)
	if code != 0 {
		return nil, wrapAXError(code, "failed to enumerate children")
	}
	defer C.free(unsafe.Pointer(refs))

	children := make([]ports.NativeNode, 0, int(count))

	slice := unsafe.Slice(refs, int(count))
	for _, ref := range slice {
		children = append(children, &axNode{ref: ref})
	}

	return children, nil
}

// applicationElements returns one retained AX element per running GUI app.
func (p *axPlatform) applicationElements(_ context.Context) ([]ports.NativeNode, error) {
	var (
		count C.int
		refs  *C.AXUIElementRef
	)

	code := C.ax_application_elements(&refs, &count)
	if code != 0 {
		return nil, wrapAXError(code, "failed to enumerate applications")
	}
	defer C.free(unsafe.Pointer(refs))

	apps := make([]ports.NativeNode, 0, int(count))

	slice := unsafe.Slice(refs, int(count))
	for _, ref := range slice {
		apps = append(apps, &axNode{ref: ref})
	}

	return apps, nil
}

// Parent implements ports.TreeAccess.
func (p *axPlatform) Parent(_ context.Context, node ports.NativeNode) (ports.NativeNode, error) {
	aNode, err := p.resolve(node)
	if err != nil {
		return nil, err
	}

	ref := C.ax_copy_parent(aNode.ref)
	if ref == nil {
		return nil, nil
	}

	return &axNode{ref: ref}, nil
}

// Info implements ports.TreeAccess.
func (p *axPlatform) Info(_ context.Context, node ports.NativeNode) (*ports.NodeInfo, error) {
	aNode, err := p.resolve(node)
	if err != nil {
		return nil, err
	}

	var raw C.ax_element_info

	code := C.ax_copy_info(aNode.ref, &raw)
	if code != 0 {
		return nil, wrapAXError(code, "failed to read element properties")
	}
	defer C.ax_free_info(&raw)

	info := &ports.NodeInfo{
		Role:      NormalizeRole(C.GoString(raw.role)),
		Name:      NormalizeName(C.GoString(raw.title)),
		NativeID:  C.GoString(raw.identifier),
		ClassName: C.GoString(raw.subrole),
		Enabled:   raw.enabled != 0,
		Focused:   raw.focused != 0,
		ProcessID: int(raw.pid),
		// AX reports logical points already; no scaling here.
		Bounds: image.Rect(
			int(raw.x), int(raw.y),
			int(raw.x)+int(raw.width), int(raw.y)+int(raw.height),
		),
		WindowTitle: C.GoString(raw.window_title),
	}

	return info, nil
}

// NodeRuntimeID implements ports.TreeAccess. AX has no first-class runtime
// id; the element's pid plus its hash is stable for the element's lifetime.
func (p *axPlatform) NodeRuntimeID(node ports.NativeNode) (ports.RuntimeID, error) {
	aNode, err := p.resolve(node)
	if err != nil {
		return "", err
	}

	var pid C.int

	C.ax_get_pid(aNode.ref, &pid)

	return ports.RuntimeID(fmt.Sprintf("%d.%x", int(pid), uint64(C.ax_hash(aNode.ref)))), nil
}

// ElementAtPoint implements ports.TreeAccess.
func (p *axPlatform) ElementAtPoint(_ context.Context, point image.Point) (ports.NativeNode, error) {
	ref := C.ax_element_at(C.float(point.X), C.float(point.Y))
	if ref == nil {
		return nil, nil
	}

	return &axNode{ref: ref}, nil
}

// Invoke implements ports.Patterns via the AXPress action.
func (p *axPlatform) Invoke(_ context.Context, node ports.NativeNode) error {
	aNode, err := p.resolve(node)
	if err != nil {
		return err
	}

	if C.ax_supports_press(aNode.ref) == 0 {
		return derrors.New(derrors.CodeInvokeUnsupported, "element lacks the press action")
	}

	return wrapAXError(C.ax_press(aNode.ref), "press failed")
}

// Focus implements ports.Patterns.
func (p *axPlatform) Focus(_ context.Context, node ports.NativeNode) error {
	aNode, err := p.resolve(node)
	if err != nil {
		return err
	}

	return wrapAXError(C.ax_set_focused(aNode.ref), "failed to focus the element")
}

// Value implements ports.Patterns.
func (p *axPlatform) Value(_ context.Context, node ports.NativeNode) (string, error) {
	aNode, err := p.resolve(node)
	if err != nil {
		return "", err
	}

	cValue := C.ax_copy_value(aNode.ref)
	if cValue == nil {
		return "", nil
	}
	defer C.free(unsafe.Pointer(cValue))

	return C.GoString(cValue), nil
}

// Toggled implements ports.Patterns: a numeric AXValue of 1 is checked.
func (p *axPlatform) Toggled(_ context.Context, node ports.NativeNode) (bool, error) {
	aNode, err := p.resolve(node)
	if err != nil {
		return false, err
	}

	return C.ax_toggled(aNode.ref) != 0, nil
}

// ScrollIntoView implements ports.Patterns.
func (p *axPlatform) ScrollIntoView(_ context.Context, node ports.NativeNode) error {
	aNode, err := p.resolve(node)
	if err != nil {
		return err
	}

	code := C.ax_scroll_to_visible(aNode.ref)
	if code != 0 {
		return derrors.New(derrors.CodeScrollFailed, "element could not be scrolled into view")
	}

	return nil
}

// ListApplications enumerates running GUI applications and their focused
// windows without walking the tree.
func (p *axPlatform) ListApplications(ctx context.Context) ([]ports.AppInfo, error) {
	elements, err := p.applicationElements(ctx)
	if err != nil {
		return nil, err
	}

	apps := make([]ports.AppInfo, 0, len(elements))

	for _, elem := range elements {
		aNode, resolveErr := p.resolve(elem)
		if resolveErr != nil {
			continue
		}

		var pid C.int

		C.ax_get_pid(aNode.ref, &pid)

		name := ""

		if proc, procErr := process.NewProcess(int32(pid)); procErr == nil {
			name, _ = proc.Name()
		}

		title := ""

		if window := C.ax_copy_main_window_title(aNode.ref); window != nil {
			title = C.GoString(window)
			C.free(unsafe.Pointer(window))
		}

		apps = append(apps, ports.AppInfo{
			Name:        name,
			ProcessID:   int(pid),
			WindowTitle: title,
			Window:      aNode,
		})
	}

	return apps, nil
}

// ActivateWindow implements ports.WindowManagement.
func (p *axPlatform) ActivateWindow(_ context.Context, node ports.NativeNode) error {
	aNode, err := p.resolve(node)
	if err != nil {
		return err
	}

	return wrapAXError(C.ax_activate(aNode.ref), "failed to activate the window")
}

// FocusedWindow implements ports.WindowManagement.
func (p *axPlatform) FocusedWindow(_ context.Context) (ports.NativeNode, error) {
	ref := C.ax_focused_window()
	if ref == nil {
		return nil, derrors.New(derrors.CodeElementNotFound, "no window has focus")
	}

	return &axNode{ref: ref}, nil
}

// OpenApplication launches an application by name.
func (p *axPlatform) OpenApplication(_ context.Context, name string) error {
	return exec.Command("open", "-a", name).Start()
}

// Screens implements ports.ScreenAccess via the shared input engine.
func (p *axPlatform) Screens(ctx context.Context) ([]image.Rectangle, error) {
	return p.screens(ctx)
}

// CapturePNG implements ports.ScreenAccess via the shared input engine.
func (p *axPlatform) CapturePNG(ctx context.Context, clip *image.Rectangle) ([]byte, error) {
	return p.capturePNG(ctx, clip)
}

// SubscribeEvents implements ports.EventSource over NSWorkspace activation
// notifications (foreground changes) and a poller of the focused window's
// title (title changes). No focus-change events are produced.
func (p *axPlatform) SubscribeEvents(handler func(ports.Event)) (ports.Subscription, error) {
	return newAXSubscription(p.logger, handler)
}

// ShowHighlight draws a borderless colored overlay window via the bridge.
func (p *axPlatform) ShowHighlight(
	_ context.Context,
	bounds image.Rectangle,
	color uint32,
	text string,
	_ action.TextPosition,
) (ports.OverlayHandle, error) {
	cText := C.CString(text)
	defer C.free(unsafe.Pointer(cText))

	handle := C.ax_show_overlay(
		C.int(bounds.Min.X), C.int(bounds.Min.Y),
		C.int(bounds.Dx()), C.int(bounds.Dy()),
		C.uint(color), cText,
	)
	if handle == 0 {
		return nil, derrors.New(derrors.CodeInternal, "overlay window creation failed")
	}

	return &axOverlay{handle: handle}, nil
}

type axOverlay struct {
	handle C.long
}

func (o *axOverlay) Close() error {
	C.ax_close_overlay(o.handle)

	return nil
}

// CheckPermissions implements ports.Health.
func (p *axPlatform) CheckPermissions(_ context.Context) error {
	if C.ax_trusted() == 0 {
		return derrors.New(derrors.CodePermissionDenied, "accessibility permission is not granted")
	}

	return nil
}
