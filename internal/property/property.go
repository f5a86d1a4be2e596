// Package property defines WindowProperty, the record the client and the
// service exchange to describe a window, and its wire encoding.
package property

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/1broseidon/winsession/internal/parcel"
	"github.com/1broseidon/winsession/internal/wm"
)

const (
	// MaxSystemBarEntries bounds the system-bar map on decode.
	MaxSystemBarEntries = 8
	// MaxTouchHotAreas bounds the touch hot-area list on decode.
	MaxTouchHotAreas = 64
)

// DecorStatus describes the window decoration state.
type DecorStatus uint32

const (
	DecorNone DecorStatus = iota
	DecorEnabled
)

// DragType is the kind of drag a window is performing.
type DragType uint32

const (
	DragUndefined DragType = iota
	DragWidth
	DragHeight
	DragCorner
)

// WindowProperty is every attribute of a window that crosses the wire.
// Values are copied on every hand-off; a WindowProperty is never shared
// between goroutines without Clone.
type WindowProperty struct {
	Name     string
	ID       wm.WindowID
	ParentID wm.WindowID

	Rect        wm.Rect
	RequestRect wm.Rect
	OriginRect  wm.Rect

	Type        wm.WindowType
	Mode        wm.WindowMode
	LastMode    wm.WindowMode
	ModeSupport wm.ModeSupport
	Flags       wm.WindowFlag

	Alpha       float32
	Brightness  float32
	Transform   wm.Transform
	AspectRatio float32

	Focusable    bool
	Touchable    bool
	PrivacyMode  bool
	Transparent  bool
	KeepScreenOn bool
	TurnScreenOn bool
	Decor        DecorStatus

	SystemBars map[wm.WindowType]wm.SystemBarProperty

	DisplayID            wm.DisplayID
	RequestedOrientation wm.Orientation
	AnimationFlag        uint32
	CallingWindow        wm.WindowID
	SizeChangeReason     wm.SizeChangeReason
	DragType             DragType
	Gravity              wm.Gravity
	GravityPercent       uint32
	HitOffset            wm.Point
	TouchHotAreas        []wm.Rect
}

// New returns a property with defaults and the mandatory status-bar and
// navigation-bar entries.
func New() *WindowProperty {
	return &WindowProperty{
		Type:        wm.TypeAppMainWindow,
		Mode:        wm.ModeFullscreen,
		LastMode:    wm.ModeFullscreen,
		ModeSupport: wm.SupportAll,
		Alpha:       1,
		Brightness:  -1,
		Transform:   wm.IdentityTransform,
		Focusable:   true,
		Touchable:   true,
		SystemBars: map[wm.WindowType]wm.SystemBarProperty{
			wm.TypeStatusBar:     wm.DefaultSystemBarProperty,
			wm.TypeNavigationBar: wm.DefaultSystemBarProperty,
		},
	}
}

func (p *WindowProperty) ensureSystemBars() {
	if p.SystemBars == nil {
		p.SystemBars = make(map[wm.WindowType]wm.SystemBarProperty, 2)
	}
	for _, t := range []wm.WindowType{wm.TypeStatusBar, wm.TypeNavigationBar} {
		if _, ok := p.SystemBars[t]; !ok {
			p.SystemBars[t] = wm.DefaultSystemBarProperty
		}
	}
}

// SetSystemBar replaces the entry for bar. Only status and navigation bars
// are accepted.
func (p *WindowProperty) SetSystemBar(bar wm.WindowType, prop wm.SystemBarProperty) error {
	if bar != wm.TypeStatusBar && bar != wm.TypeNavigationBar {
		return wm.Errorf(wm.CodeInvalidParam, "SetSystemBar", "%v is not a system bar", bar)
	}
	p.ensureSystemBars()
	p.SystemBars[bar] = prop
	return nil
}

// SystemBar returns the entry for bar, or the default.
func (p *WindowProperty) SystemBar(bar wm.WindowType) wm.SystemBarProperty {
	if v, ok := p.SystemBars[bar]; ok {
		return v
	}
	return wm.DefaultSystemBarProperty
}

// SetMode records the previous mode before switching.
func (p *WindowProperty) SetMode(m wm.WindowMode) {
	if p.Mode != m {
		p.LastMode = p.Mode
	}
	p.Mode = m
}

// AddFlag sets f.
func (p *WindowProperty) AddFlag(f wm.WindowFlag) { p.Flags |= f }

// RemoveFlag clears f.
func (p *WindowProperty) RemoveFlag(f wm.WindowFlag) { p.Flags &^= f }

// HasFlag reports whether f is set.
func (p *WindowProperty) HasFlag(f wm.WindowFlag) bool { return p.Flags&f != 0 }

// Clone returns a deep copy.
func (p *WindowProperty) Clone() *WindowProperty {
	c := *p
	c.SystemBars = maps.Clone(p.SystemBars)
	c.TouchHotAreas = slices.Clone(p.TouchHotAreas)
	return &c
}

// Equal reports whether both properties encode to the same bytes. A
// property that cannot be encoded equals nothing, itself included.
func (p *WindowProperty) Equal(o *WindowProperty) bool {
	if p == nil || o == nil {
		return p == o
	}
	a, b := parcel.New(), parcel.New()
	if err := p.Encode(a); err != nil {
		return false
	}
	if err := o.Encode(b); err != nil {
		return false
	}
	return bytes.Equal(a.Bytes(), b.Bytes())
}

func (p *WindowProperty) String() string {
	return fmt.Sprintf("%s#%d type=%v mode=%v rect=%v", p.Name, p.ID, p.Type, p.Mode, p.Rect)
}
