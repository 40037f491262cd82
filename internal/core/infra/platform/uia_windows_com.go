//go:build windows

package platform

import (
	"errors"
	"image"
	"os/exec"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

// Low-level IUIAutomation bindings. The UIA client interfaces are plain
// IUnknown-derived COM; calls go through raw vtable slots.

func lockThread() {
	runtime.LockOSThread()
}

func asOleError(err error, target **ole.OleError) bool {
	return errors.As(err, target)
}

// comCall invokes vtable slot n on a COM object.
func comCall(obj unsafe.Pointer, slot uintptr, args ...uintptr) error {
	vtbl := *(**[64]uintptr)(obj)

	full := append([]uintptr{uintptr(obj)}, args...)

	hr, _, _ := syscall.SyscallN(vtbl[slot], full...)
	if hr != 0 {
		return ole.NewError(hr)
	}

	return nil
}

func comRelease(obj unsafe.Pointer) {
	vtbl := *(**[64]uintptr)(obj)

	syscall.SyscallN(vtbl[2], uintptr(obj)) //nolint:errcheck // Release never fails usefully
}

// uiaAutomation wraps IUIAutomation.
type uiaAutomation struct{ _ uintptr }

// IUIAutomation vtable slots (after IUnknown's 0..2).
const (
	slotGetRootElement    = 5
	slotElementFromHandle = 6
	slotElementFromPoint  = 7
	slotGetFocusedElement = 8
	slotGetRawViewWalker  = 16
)

func (a *uiaAutomation) rootElement() (*uiaElement, error) {
	var elem *uiaElement

	err := comCall(unsafe.Pointer(a), slotGetRootElement, uintptr(unsafe.Pointer(&elem)))
	if err != nil {
		return nil, err
	}

	return elem, nil
}

func (a *uiaAutomation) elementFromHandle(hwnd uintptr) (*uiaElement, error) {
	var elem *uiaElement

	err := comCall(unsafe.Pointer(a), slotElementFromHandle, hwnd, uintptr(unsafe.Pointer(&elem)))
	if err != nil {
		return nil, err
	}

	return elem, nil
}

func (a *uiaAutomation) elementFromPoint(pt image.Point) (*uiaElement, error) {
	var elem *uiaElement

	// POINT is passed by value: two LONGs packed into one stack slot pair.
	err := comCall(unsafe.Pointer(a), slotElementFromPoint,
		uintptr(uint32(pt.X))|uintptr(uint32(pt.Y))<<32,
		uintptr(unsafe.Pointer(&elem)))
	if err != nil {
		return nil, err
	}

	return elem, nil
}

func (a *uiaAutomation) focusedElement() (*uiaElement, error) {
	var elem *uiaElement

	err := comCall(unsafe.Pointer(a), slotGetFocusedElement, uintptr(unsafe.Pointer(&elem)))
	if err != nil {
		return nil, err
	}

	return elem, nil
}

func (a *uiaAutomation) rawViewWalker() (*uiaTreeWalker, error) {
	var walker *uiaTreeWalker

	err := comCall(unsafe.Pointer(a), slotGetRawViewWalker, uintptr(unsafe.Pointer(&walker)))
	if err != nil {
		return nil, err
	}

	return walker, nil
}

// uiaTreeWalker wraps IUIAutomationTreeWalker.
type uiaTreeWalker struct{ _ uintptr }

// IUIAutomationTreeWalker vtable slots.
const (
	slotWalkerGetParent      = 3
	slotWalkerGetFirstChild  = 4
	slotWalkerGetNextSibling = 6
)

func (w *uiaTreeWalker) parent(elem *uiaElement) (*uiaElement, error) {
	var out *uiaElement

	err := comCall(unsafe.Pointer(w), slotWalkerGetParent,
		uintptr(unsafe.Pointer(elem)), uintptr(unsafe.Pointer(&out)))
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (w *uiaTreeWalker) firstChild(elem *uiaElement) (*uiaElement, error) {
	var out *uiaElement

	err := comCall(unsafe.Pointer(w), slotWalkerGetFirstChild,
		uintptr(unsafe.Pointer(elem)), uintptr(unsafe.Pointer(&out)))
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (w *uiaTreeWalker) nextSibling(elem *uiaElement) (*uiaElement, error) {
	var out *uiaElement

	err := comCall(unsafe.Pointer(w), slotWalkerGetNextSibling,
		uintptr(unsafe.Pointer(elem)), uintptr(unsafe.Pointer(&out)))
	if err != nil {
		return nil, err
	}

	return out, nil
}

// uiaElement wraps IUIAutomationElement.
type uiaElement struct{ _ uintptr }

// IUIAutomationElement vtable slots.
const (
	slotSetFocus             = 3
	slotGetRuntimeID         = 4
	slotGetCurrentPattern    = 16
	slotCurrentProcessID     = 20
	slotCurrentControlType   = 21
	slotCurrentLocalizedType = 22
	slotCurrentName          = 23
	slotCurrentHasFocus      = 26
	slotCurrentIsEnabled     = 28
	slotCurrentAutomationID  = 29
	slotCurrentClassName     = 30
	slotCurrentNativeHandle  = 36
	slotCurrentBoundingRect  = 43
)

func (e *uiaElement) release() {
	comRelease(unsafe.Pointer(e))
}

func (e *uiaElement) setFocus() error {
	return comCall(unsafe.Pointer(e), slotSetFocus)
}

func (e *uiaElement) runtimeID() ([]int32, error) {
	var sa *ole.SafeArray

	err := comCall(unsafe.Pointer(e), slotGetRuntimeID, uintptr(unsafe.Pointer(&sa)))
	if err != nil {
		return nil, err
	}

	conv := &ole.SafeArrayConversion{Array: sa}
	defer conv.Release()

	values := conv.ToValueArray()
	parts := make([]int32, 0, len(values))

	for _, value := range values {
		if v, ok := value.(int32); ok {
			parts = append(parts, v)
		}
	}

	return parts, nil
}

func (e *uiaElement) nativeWindowHandle() (uintptr, error) {
	var hwnd uintptr

	err := comCall(unsafe.Pointer(e), slotCurrentNativeHandle, uintptr(unsafe.Pointer(&hwnd)))
	if err != nil {
		return 0, err
	}

	return hwnd, nil
}

// elementProperties is one live property snapshot.
type elementProperties struct {
	controlType  string
	name         string
	automationID string
	className    string
	windowTitle  string
	bounds       image.Rectangle
	enabled      bool
	focused      bool
	processID    int
}

type uiaRect struct {
	left, top, right, bottom float64
}

func (e *uiaElement) currentProperties() (*elementProperties, error) {
	props := &elementProperties{}

	var pid int32

	if err := comCall(unsafe.Pointer(e), slotCurrentProcessID, uintptr(unsafe.Pointer(&pid))); err != nil {
		return nil, err
	}

	props.processID = int(pid)

	var controlType int32

	if err := comCall(unsafe.Pointer(e), slotCurrentControlType, uintptr(unsafe.Pointer(&controlType))); err != nil {
		return nil, err
	}

	props.controlType = controlTypeName(controlType)

	name, err := e.getBSTRSlot(slotCurrentName)
	if err != nil {
		return nil, err
	}

	props.name = name

	automationID, err := e.getBSTRSlot(slotCurrentAutomationID)
	if err != nil {
		return nil, err
	}

	props.automationID = automationID

	className, err := e.getBSTRSlot(slotCurrentClassName)
	if err != nil {
		return nil, err
	}

	props.className = className

	var enabled int32

	if err := comCall(unsafe.Pointer(e), slotCurrentIsEnabled, uintptr(unsafe.Pointer(&enabled))); err != nil {
		return nil, err
	}

	props.enabled = enabled != 0

	var focused int32

	if err := comCall(unsafe.Pointer(e), slotCurrentHasFocus, uintptr(unsafe.Pointer(&focused))); err != nil {
		return nil, err
	}

	props.focused = focused != 0

	var rect uiaRect

	if err := comCall(unsafe.Pointer(e), slotCurrentBoundingRect, uintptr(unsafe.Pointer(&rect))); err != nil {
		return nil, err
	}

	props.bounds = image.Rect(int(rect.left), int(rect.top), int(rect.right), int(rect.bottom))

	// The owning toplevel window's text doubles as the window title.
	if hwnd, handleErr := e.nativeWindowHandle(); handleErr == nil && hwnd != 0 {
		root := rootOwnerWindow(hwnd)
		props.windowTitle = windowText(windows.HWND(root))
	}

	return props, nil
}

func (e *uiaElement) getBSTRSlot(slot uintptr) (string, error) {
	var bstr *uint16

	if err := comCall(unsafe.Pointer(e), slot, uintptr(unsafe.Pointer(&bstr))); err != nil {
		return "", err
	}

	if bstr == nil {
		return "", nil
	}

	defer ole.SysFreeString((*int16)(unsafe.Pointer(bstr))) //nolint:errcheck // freeing a BSTR cannot fail

	return ole.BstrToString(bstr), nil
}

// pattern retrieves a control pattern object, nil when unsupported.
func (e *uiaElement) pattern(patternID int32, iid *ole.GUID) (*uiaPattern, error) {
	var unknown *ole.IUnknown

	err := comCall(unsafe.Pointer(e), slotGetCurrentPattern,
		uintptr(patternID), uintptr(unsafe.Pointer(&unknown)))
	if err != nil {
		return nil, err
	}

	if unknown == nil {
		return nil, nil
	}

	defer unknown.Release()

	disp, queryErr := unknown.QueryInterface(iid)
	if queryErr != nil {
		return nil, queryErr
	}

	return (*uiaPattern)(unsafe.Pointer(disp)), nil
}

// uiaPattern is a generic wrapper over pattern interfaces; concrete methods
// are addressed by vtable slot.
type uiaPattern struct{ _ uintptr }

func (p *uiaPattern) release() {
	comRelease(unsafe.Pointer(p))
}

func (p *uiaPattern) call(slot uintptr) error {
	return comCall(unsafe.Pointer(p), slot)
}

func (p *uiaPattern) getBSTR(slot uintptr) (string, error) {
	var bstr *uint16

	if err := comCall(unsafe.Pointer(p), slot, uintptr(unsafe.Pointer(&bstr))); err != nil {
		return "", err
	}

	if bstr == nil {
		return "", nil
	}

	defer ole.SysFreeString((*int16)(unsafe.Pointer(bstr))) //nolint:errcheck // freeing a BSTR cannot fail

	return ole.BstrToString(bstr), nil
}

func (p *uiaPattern) getInt(slot uintptr) (int32, error) {
	var value int32

	if err := comCall(unsafe.Pointer(p), slot, uintptr(unsafe.Pointer(&value))); err != nil {
		return 0, err
	}

	return value, nil
}

// controlTypeName maps UIA control type ids to their short names.
var controlTypeNames = map[int32]string{
	50000: "Button", 50001: "Calendar", 50002: "CheckBox", 50003: "ComboBox",
	50004: "Edit", 50005: "Hyperlink", 50006: "Image", 50007: "ListItem",
	50008: "List", 50009: "Menu", 50010: "MenuBar", 50011: "MenuItem",
	50012: "ProgressBar", 50013: "RadioButton", 50014: "ScrollBar", 50015: "Slider",
	50016: "Spinner", 50017: "StatusBar", 50018: "Tab", 50019: "TabItem",
	50020: "Text", 50021: "ToolBar", 50022: "ToolTip", 50023: "Tree",
	50024: "TreeItem", 50025: "Custom", 50026: "Group", 50027: "Thumb",
	50028: "DataGrid", 50029: "DataItem", 50030: "Document", 50031: "SplitButton",
	50032: "Window", 50033: "Pane", 50034: "Header", 50035: "HeaderItem",
	50036: "Table", 50037: "TitleBar", 50038: "Separator", 50039: "SemanticZoom",
	50040: "AppBar",
}

func controlTypeName(controlType int32) string {
	if name, ok := controlTypeNames[controlType]; ok {
		return name
	}

	return "Custom"
}

// --- user32 helpers ---

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	shcore                  = windows.NewLazySystemDLL("shcore.dll")
	procEnumWindows         = user32.NewProc("EnumWindows")
	procIsWindowVisible     = user32.NewProc("IsWindowVisible")
	procGetWindowTextW      = user32.NewProc("GetWindowTextW")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procGetAncestor         = user32.NewProc("GetAncestor")
	procSetWinEventHook     = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent      = user32.NewProc("UnhookWinEvent")
	procGetScaleFactor      = shcore.NewProc("GetScaleFactorForDevice")
)

func enumWindows(callback uintptr) error {
	ret, _, err := procEnumWindows.Call(callback, 0)
	if ret == 0 {
		return err
	}

	return nil
}

func isWindowVisible(hwnd windows.HWND) bool {
	ret, _, _ := procIsWindowVisible.Call(uintptr(hwnd))

	return ret != 0
}

func windowText(hwnd windows.HWND) string {
	buf := make([]uint16, 512)

	length, _, _ := procGetWindowTextW.Call(
		uintptr(hwnd),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
	)

	return windows.UTF16ToString(buf[:length])
}

func setForegroundWindow(hwnd uintptr) bool {
	ret, _, _ := procSetForegroundWindow.Call(hwnd)

	return ret != 0
}

func rootOwnerWindow(hwnd uintptr) uintptr {
	const gaRootOwner = 3

	root, _, _ := procGetAncestor.Call(hwnd, gaRootOwner)
	if root == 0 {
		return hwnd
	}

	return root
}

// displayScale reads the primary display's DPI scale factor.
func displayScale() float64 {
	const devicePrimary = 0

	var factor uint32

	ret, _, _ := procGetScaleFactor.Call(devicePrimary, uintptr(unsafe.Pointer(&factor)))
	if ret != 0 || factor == 0 {
		return 1
	}

	return float64(factor) / 100
}

func startProcess(name string) error {
	return exec.Command("cmd", "/C", "start", "", name).Start()
}

// --- WinEvent hook subscription ---

// winEventSubscription bridges SetWinEventHook notifications into port
// events. The hook callback runs on a dedicated message-loop thread.
type winEventSubscription struct {
	hooks  []uintptr
	logger *zap.Logger
	stop   chan struct{}
}

func newWinEventSubscription(logger *zap.Logger, handler func(ports.Event)) (ports.Subscription, error) {
	sub := &winEventSubscription{logger: logger, stop: make(chan struct{})}

	ready := make(chan error, 1)

	go func() {
		runtime.LockOSThread()

		callback := syscall.NewCallback(func(
			_ uintptr, event uint32, hwnd uintptr, _, _ int32, _, _ uint32,
		) uintptr {
			if hwnd == 0 {
				return 0
			}

			title := windowText(windows.HWND(hwnd))

			var pid uint32

			windows.GetWindowThreadProcessId(windows.HWND(hwnd), &pid)

			kind := ports.EventFocusChanged

			switch event {
			case eventSystemForeground:
				kind = ports.EventForegroundChanged
			case eventObjectNameChange:
				kind = ports.EventTitleChanged
			}

			handler(ports.Event{
				Kind:        kind,
				AppName:     processName(pid),
				WindowTitle: title,
				ProcessID:   int(pid),
			})

			return 0
		})

		for _, event := range []uint32{eventSystemForeground, eventObjectFocus, eventObjectNameChange} {
			hook, _, _ := procSetWinEventHook.Call(
				uintptr(event), uintptr(event),
				0, callback, 0, 0, wineventOutOfContext,
			)
			if hook != 0 {
				sub.hooks = append(sub.hooks, hook)
			}
		}

		if len(sub.hooks) == 0 {
			ready <- errors.New("no WinEvent hook could be installed")

			return
		}

		ready <- nil

		// Pump messages; WinEvent hooks need a message loop on this thread.
		var msg struct {
			hwnd    uintptr
			message uint32
			wparam  uintptr
			lparam  uintptr
			time    uint32
			pt      struct{ x, y int32 }
		}

		getMessage := user32.NewProc("GetMessageW")

		for {
			select {
			case <-sub.stop:
				return
			default:
			}

			ret, _, _ := getMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) <= 0 {
				return
			}
		}
	}()

	if err := <-ready; err != nil {
		return nil, err
	}

	return sub, nil
}

func (s *winEventSubscription) Close() error {
	close(s.stop)

	for _, hook := range s.hooks {
		procUnhookWinEvent.Call(hook) //nolint:errcheck // best-effort unhook during teardown
	}

	return nil
}

func processName(pid uint32) string {
	handle, err := windows.OpenProcess(
		windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid,
	)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(handle) //nolint:errcheck // handle close during lookup

	var buf [windows.MAX_PATH]uint16

	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(handle, 0, &buf[0], &size); err != nil {
		return ""
	}

	full := windows.UTF16ToString(buf[:size])

	for index := len(full) - 1; index >= 0; index-- {
		if full[index] == '\\' {
			full = full[index+1:]

			break
		}
	}

	return trimExeSuffix(full)
}

func trimExeSuffix(name string) string {
	const suffix = ".exe"

	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		return name[:len(name)-len(suffix)]
	}

	return name
}
