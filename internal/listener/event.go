// Package listener keeps per-window observer lists and delivers window
// events to them in registration order.
package listener

import "github.com/1broseidon/winsession/internal/wm"

// Category groups listeners by the events they receive.
type Category uint8

const (
	CategoryLifecycle Category = iota
	CategoryWindowChange
	CategoryAvoidArea
	CategoryDrag
	CategoryDisplayMove
	CategoryOccupiedArea
	CategoryTouchOutside
	CategoryScreenshot
	CategoryDialogTarget
	categoryCount
)

var categoryNames = [categoryCount]string{
	"lifecycle",
	"window-change",
	"avoid-area",
	"drag",
	"display-move",
	"occupied-area",
	"touch-outside",
	"screenshot",
	"dialog-target",
}

func (c Category) String() string {
	if c < categoryCount {
		return categoryNames[c]
	}
	return "unknown"
}

// Event is one notification. The concrete type determines its category.
type Event interface {
	Category() Category
}

// LifecycleKind enumerates lifecycle notifications.
type LifecycleKind uint8

const (
	AfterForeground LifecycleKind = iota + 1
	AfterBackground
	AfterFocused
	AfterUnfocused
	AfterActive
	AfterInactive
	ForegroundFailed
	BeforeDestroy
)

func (k LifecycleKind) String() string {
	switch k {
	case AfterForeground:
		return "after-foreground"
	case AfterBackground:
		return "after-background"
	case AfterFocused:
		return "after-focused"
	case AfterUnfocused:
		return "after-unfocused"
	case AfterActive:
		return "after-active"
	case AfterInactive:
		return "after-inactive"
	case ForegroundFailed:
		return "foreground-failed"
	case BeforeDestroy:
		return "before-destroy"
	}
	return "unknown"
}

// LifecycleEvent reports a visibility, focus or teardown transition. Err is
// set for ForegroundFailed.
type LifecycleEvent struct {
	Kind LifecycleKind
	Err  error
}

// SizeChangeEvent reports a new window rectangle.
type SizeChangeEvent struct {
	Rect   wm.Rect
	Reason wm.SizeChangeReason
}

// ModeChangeEvent reports a new window mode.
type ModeChangeEvent struct {
	Mode wm.WindowMode
}

// AvoidAreaEvent reports a changed avoid area.
type AvoidAreaEvent struct {
	Type wm.AvoidAreaType
	Area wm.AvoidArea
}

// DragEvent reports a drag phase at a point.
type DragEvent struct {
	Point wm.Point
	Phase wm.DragEvent
}

// DisplayMoveEvent reports the window moving between displays.
type DisplayMoveEvent struct {
	From wm.DisplayID
	To   wm.DisplayID
}

// OccupiedAreaEvent reports part of the window being covered.
type OccupiedAreaEvent struct {
	Info wm.OccupiedAreaInfo
}

// TouchOutsideEvent reports a touch that landed outside the window.
type TouchOutsideEvent struct{}

// ScreenshotEvent reports that a screenshot was taken.
type ScreenshotEvent struct{}

// DialogTargetTouchEvent reports a touch on the window a dialog is bound to.
type DialogTargetTouchEvent struct{}

func (LifecycleEvent) Category() Category         { return CategoryLifecycle }
func (SizeChangeEvent) Category() Category        { return CategoryWindowChange }
func (ModeChangeEvent) Category() Category        { return CategoryWindowChange }
func (AvoidAreaEvent) Category() Category         { return CategoryAvoidArea }
func (DragEvent) Category() Category              { return CategoryDrag }
func (DisplayMoveEvent) Category() Category       { return CategoryDisplayMove }
func (OccupiedAreaEvent) Category() Category      { return CategoryOccupiedArea }
func (TouchOutsideEvent) Category() Category      { return CategoryTouchOutside }
func (ScreenshotEvent) Category() Category        { return CategoryScreenshot }
func (DialogTargetTouchEvent) Category() Category { return CategoryDialogTarget }
