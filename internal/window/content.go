package window

import "github.com/1broseidon/winsession/internal/wm"

// Surface is the compositor resource backing a window. The window only sets
// attributes on it.
type Surface interface {
	SetAlpha(alpha float32)
	SetShadowRadius(radius float32)
	SetShadowColor(color uint32)
	SetBlur(radius float32)
	SetCornerRadius(radius float32)
	Resize(width, height uint32)
	Move(x, y int32)
	Release()
}

// SurfaceFactory creates surfaces for new windows.
type SurfaceFactory interface {
	CreateSurface(name string, typ wm.WindowType) (Surface, error)
}

// ViewportConfig is the geometry handed to UI content on every resize.
type ViewportConfig struct {
	Rect        wm.Rect
	Density     float32
	Orientation wm.Orientation
}

// KeyAction is the phase of a key event.
type KeyAction uint8

const (
	KeyDown KeyAction = iota + 1
	KeyUp
)

// KeyEvent is a key press or release.
type KeyEvent struct {
	Code   int32
	Action KeyAction
}

// PointerAction is the phase of a pointer event.
type PointerAction uint8

const (
	PointerDown PointerAction = iota + 1
	PointerMove
	PointerUp
	PointerCancel
)

// PointerEvent is a pointer sample in display coordinates.
type PointerEvent struct {
	PointerID int32
	Action    PointerAction
	X, Y      int32
}

// UIContent is the application layer rendering into a window.
type UIContent interface {
	Initialize(w *Window, contentRef string, storage []byte) error
	Restore(w *Window, contentRef string, storage []byte) error
	Foreground()
	Background()
	ProcessKeyEvent(ev KeyEvent) bool
	ProcessPointerEvent(ev PointerEvent) bool
	UpdateViewportConfig(cfg ViewportConfig, reason wm.SizeChangeReason)
	Destroy()
}
