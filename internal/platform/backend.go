package platform

// WindowID is a platform-neutral native window identifier.
type WindowID uint32

// Display describes a physical display and its usable work area.
type Display struct {
	ID      int
	Name    string
	Frame   Rect
	Visible Rect
}

// WindowInfo is one entry of the window server's visible window list.
type WindowInfo struct {
	ID         WindowID
	PID        int
	Level      int
	Frame      Rect
	Tags       []string
	Attributes map[string]string
}

// FrameRequest asks for a native window to be placed at Frame.
type FrameRequest struct {
	ID    WindowID
	Frame Rect
}

// EventKind classifies window server notifications.
type EventKind int

const (
	EventWindowClosed EventKind = iota
	EventWindowMoved
	EventTitleChanged
	EventFocusChanged
	EventProcessTerminated
	EventDisplaysChanged
)

func (k EventKind) String() string {
	switch k {
	case EventWindowClosed:
		return "closed"
	case EventWindowMoved:
		return "moved"
	case EventTitleChanged:
		return "title"
	case EventFocusChanged:
		return "focus"
	case EventProcessTerminated:
		return "terminated"
	case EventDisplaysChanged:
		return "displays"
	default:
		return "unknown"
	}
}

// Event is a notification from the window server or accessibility layer,
// keyed by (process, native window id) where applicable.
type Event struct {
	Kind     EventKind
	PID      int
	WindowID WindowID
	Frame    Rect
}

// Backend is the window-server bridge: the privileged operations the tiling
// core relies on but never implements itself.
type Backend interface {
	Displays() ([]Display, error)
	EnumerateVisibleWindows() ([]WindowInfo, error)
	MoveWindow(id WindowID, origin Point) bool
	WindowBounds(id WindowID) (Rect, bool)
	MoveResizeBatch(reqs []FrameRequest) error
	SubscribeWindowEvents(ids []WindowID) error
	Events() <-chan Event
	FocusedWindow() (WindowID, bool)
	FocusWindow(id WindowID) error
	Close() error
}

// Subrole values reported by AXWindow.
const (
	SubroleStandard = "standard"
	SubroleDialog   = "dialog"
	SubroleUnknown  = "unknown"
)

// AXWindow is a window as seen through the accessibility layer.
type AXWindow struct {
	ID                      WindowID
	BundleID                string
	Title                   string
	Subrole                 string
	HasCloseButton          bool
	FullscreenButtonEnabled bool
	AccessoryApp            bool
	Frame                   Rect
}

// AppElement is the accessibility handle for one application process. It is
// not safe for concurrent use: callers must confine it to a single thread.
type AppElement interface {
	Windows() ([]AXWindow, error)
	SetFrame(id WindowID, frame Rect) error
	EnhancedUserInterface() bool
	SetEnhancedUserInterface(enabled bool) error
	Close()
}

// AccessibilityProvider opens per-process accessibility handles.
type AccessibilityProvider interface {
	OpenApplication(pid int) (AppElement, error)
}
