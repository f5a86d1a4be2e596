// Package wm holds the vocabulary shared by the window-session client and the
// window-management service: identifiers, geometry, window kinds and modes,
// lifecycle states and the error taxonomy.
package wm

import "fmt"

// WindowID identifies a window for the lifetime of one service instance.
type WindowID uint32

// InvalidWindowID is never assigned by the service.
const InvalidWindowID WindowID = 0

// DisplayID identifies a physical or virtual display.
type DisplayID uint64

// DefaultDisplayID is the display used when a window does not name one.
const DefaultDisplayID DisplayID = 0

// Rect is a window or display rectangle in screen coordinates.
type Rect struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.Width == 0 || r.Height == 0
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(x, y int32) bool {
	return x >= r.X && y >= r.Y &&
		int64(x) < int64(r.X)+int64(r.Width) &&
		int64(y) < int64(r.Y)+int64(r.Height)
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d %d %d %d]", r.X, r.Y, r.Width, r.Height)
}

// Point is a pointer position.
type Point struct {
	X int32
	Y int32
}

// State is the lifecycle state of a window.
type State uint32

const (
	StateInitial State = iota
	StateCreated
	StateShown
	StateHidden
	StateFrozen
	StateUnfrozen
	StateDestroyed
	// StateBottom bounds the enumeration; no window is ever in it.
	StateBottom
)

// Valid reports whether a window in this state may receive operations.
func (s State) Valid() bool {
	return s > StateInitial && s < StateBottom && s != StateDestroyed
}

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateCreated:
		return "created"
	case StateShown:
		return "shown"
	case StateHidden:
		return "hidden"
	case StateFrozen:
		return "frozen"
	case StateUnfrozen:
		return "unfrozen"
	case StateDestroyed:
		return "destroyed"
	case StateBottom:
		return "bottom"
	default:
		return fmt.Sprintf("state(%d)", uint32(s))
	}
}

// SizeChangeReason explains why a window rectangle changed.
type SizeChangeReason uint32

const (
	ReasonUndefined SizeChangeReason = iota
	ReasonMaximize
	ReasonRecover
	ReasonRotation
	ReasonDrag
	ReasonDragStart
	ReasonDragEnd
	ReasonResize
	ReasonMove
	ReasonHide
	ReasonTransform
	ReasonCustomAnimationShow
	ReasonFullToSplit
	ReasonSplitToFull
)

// AvoidAreaType selects which class of occluding UI an avoid area describes.
type AvoidAreaType uint32

const (
	AvoidAreaSystem AvoidAreaType = iota
	AvoidAreaCutout
	AvoidAreaSystemGesture
	AvoidAreaKeyboard
	AvoidAreaNavigationIndicator
)

// AvoidArea lists the regions on each edge a window should keep clear.
type AvoidArea struct {
	Top    Rect
	Left   Rect
	Right  Rect
	Bottom Rect
}

// IsEmpty reports whether no edge carries an area.
func (a AvoidArea) IsEmpty() bool {
	return a.Top.IsEmpty() && a.Left.IsEmpty() && a.Right.IsEmpty() && a.Bottom.IsEmpty()
}

// DragEvent is the phase of a drag gesture delivered to a window.
type DragEvent uint32

const (
	DragIn DragEvent = iota + 1
	DragOut
	DragMove
	DragEnd
)

// Orientation is a requested display orientation.
type Orientation uint32

const (
	OrientationUnspecified Orientation = iota
	OrientationVertical
	OrientationHorizontal
	OrientationReverseVertical
	OrientationReverseHorizontal
	OrientationSensor
	OrientationSensorVertical
	OrientationSensorHorizontal
	OrientationLocked
)

// Gravity anchors a window to a display edge.
type Gravity uint32

const (
	GravityFloat Gravity = iota
	GravityBottom
	GravityDefault
)

// OccupiedAreaType describes who occupies part of a window.
type OccupiedAreaType uint32

const (
	OccupiedAreaKeyboard OccupiedAreaType = iota
)

// OccupiedAreaInfo reports an area of a window covered by another surface,
// typically the soft keyboard.
type OccupiedAreaInfo struct {
	Type OccupiedAreaType
	Rect Rect
}

// SystemBarProperty configures a status or navigation bar.
type SystemBarProperty struct {
	Enable          bool
	BackgroundColor uint32
	ContentColor    uint32
}

// DefaultSystemBarProperty is what a window gets until it asks otherwise.
var DefaultSystemBarProperty = SystemBarProperty{
	Enable:          true,
	BackgroundColor: 0xff000000,
	ContentColor:    0xffffffff,
}

// Transform is a 2D transform applied to the window surface.
type Transform struct {
	PivotX     float32
	PivotY     float32
	ScaleX     float32
	ScaleY     float32
	TranslateX float32
	TranslateY float32
}

// IdentityTransform leaves the surface unchanged.
var IdentityTransform = Transform{PivotX: 0.5, PivotY: 0.5, ScaleX: 1, ScaleY: 1}

// Rotation is the physical rotation of a display in quarter turns.
type Rotation uint32

const (
	Rotation0 Rotation = iota
	Rotation90
	Rotation180
	Rotation270
)

// DisplayInfo is the geometry of one display as reported by the display
// provider. Density is the ratio of physical pixels to 160 dpi.
type DisplayInfo struct {
	ID       DisplayID
	Name     string
	Bounds   Rect
	Usable   Rect
	Density  float32
	Rotation Rotation
}

// Orientation derives the natural orientation of the display from its
// bounds and rotation.
func (d DisplayInfo) Orientation() Orientation {
	landscape := d.Bounds.Width >= d.Bounds.Height
	switch {
	case landscape && d.Rotation == Rotation180:
		return OrientationReverseHorizontal
	case landscape:
		return OrientationHorizontal
	case d.Rotation == Rotation180:
		return OrientationReverseVertical
	default:
		return OrientationVertical
	}
}
