package property

import (
	"fmt"

	"github.com/1broseidon/winsession/internal/parcel"
	"github.com/1broseidon/winsession/internal/wm"
)

// Action names the subset of a property an update carries. Only the fields
// belonging to the action are written, so updates stay small.
type Action uint32

const (
	ActionRect Action = iota + 1
	ActionMode
	ActionFlags
	ActionOtherProps
	ActionFocusable
	ActionTouchable
	ActionCallingWindow
	ActionOrientation
	ActionTurnScreenOn
	ActionKeepScreenOn
	ActionBrightness
	ActionModeSupport
	ActionTouchHotArea
	ActionAspectRatio
	ActionPrivacyMode
	ActionAlpha
	ActionTransform
	ActionGravity
)

var actionNames = map[Action]string{
	ActionRect:          "rect",
	ActionMode:          "mode",
	ActionFlags:         "flags",
	ActionOtherProps:    "system-bars",
	ActionFocusable:     "focusable",
	ActionTouchable:     "touchable",
	ActionCallingWindow: "calling-window",
	ActionOrientation:   "orientation",
	ActionTurnScreenOn:  "turn-screen-on",
	ActionKeepScreenOn:  "keep-screen-on",
	ActionBrightness:    "brightness",
	ActionModeSupport:   "mode-support",
	ActionTouchHotArea:  "touch-hot-area",
	ActionAspectRatio:   "aspect-ratio",
	ActionPrivacyMode:   "privacy-mode",
	ActionAlpha:         "alpha",
	ActionTransform:     "transform",
	ActionGravity:       "gravity",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", uint32(a))
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

// WriteAction writes the window id followed by the fields for action.
func (w *WindowProperty) WriteAction(p *parcel.Parcel, action Action) error {
	p.WriteUint32(uint32(w.ID))
	switch action {
	case ActionRect:
		writeRect(p, w.RequestRect)
		p.WriteUint32(uint32(w.SizeChangeReason))
	case ActionMode:
		p.WriteUint32(uint32(w.Mode))
		p.WriteUint32(uint32(w.LastMode))
		p.WriteUint32(uint32(w.Decor))
	case ActionFlags:
		p.WriteUint32(uint32(w.Flags))
	case ActionOtherProps:
		writeSystemBars(p, w.SystemBars)
	case ActionFocusable:
		p.WriteBool(w.Focusable)
	case ActionTouchable:
		p.WriteBool(w.Touchable)
	case ActionCallingWindow:
		p.WriteUint32(uint32(w.CallingWindow))
	case ActionOrientation:
		p.WriteUint32(uint32(w.RequestedOrientation))
	case ActionTurnScreenOn:
		p.WriteBool(w.TurnScreenOn)
	case ActionKeepScreenOn:
		p.WriteBool(w.KeepScreenOn)
	case ActionBrightness:
		p.WriteFloat32(w.Brightness)
	case ActionModeSupport:
		p.WriteUint32(uint32(w.ModeSupport))
	case ActionTouchHotArea:
		if len(w.TouchHotAreas) > MaxTouchHotAreas {
			return fmt.Errorf("%w: %d touch hot areas", parcel.ErrCollectionTooLarge, len(w.TouchHotAreas))
		}
		writeHotAreas(p, w.TouchHotAreas)
	case ActionAspectRatio:
		p.WriteFloat32(w.AspectRatio)
	case ActionPrivacyMode:
		p.WriteBool(w.PrivacyMode)
	case ActionAlpha:
		p.WriteFloat32(w.Alpha)
	case ActionTransform:
		writeTransform(p, w.Transform)
	case ActionGravity:
		p.WriteUint32(uint32(w.Gravity))
		p.WriteUint32(w.GravityPercent)
	default:
		return wm.Errorf(wm.CodeInvalidParam, "WriteAction", "unknown action %v", action)
	}
	return nil
}

// ReadAction reads a delta written by WriteAction into w. The window id on
// the wire replaces w.ID. On error w is left unchanged.
func (w *WindowProperty) ReadAction(p *parcel.Parcel, action Action) error {
	if !action.Valid() {
		return wm.Errorf(wm.CodeInvalidParam, "ReadAction", "unknown action %v", action)
	}
	r := parcel.NewReader(p)
	next := w.Clone()
	next.ID = wm.WindowID(r.Uint32())
	switch action {
	case ActionRect:
		next.RequestRect = readRect(r)
		next.SizeChangeReason = wm.SizeChangeReason(r.Uint32())
	case ActionMode:
		next.Mode = wm.WindowMode(r.Uint32())
		next.LastMode = wm.WindowMode(r.Uint32())
		next.Decor = DecorStatus(r.Uint32())
	case ActionFlags:
		next.Flags = wm.WindowFlag(r.Uint32())
	case ActionOtherProps:
		next.SystemBars = readSystemBars(r)
		next.ensureSystemBars()
	case ActionFocusable:
		next.Focusable = r.Bool()
	case ActionTouchable:
		next.Touchable = r.Bool()
	case ActionCallingWindow:
		next.CallingWindow = wm.WindowID(r.Uint32())
	case ActionOrientation:
		next.RequestedOrientation = wm.Orientation(r.Uint32())
	case ActionTurnScreenOn:
		next.TurnScreenOn = r.Bool()
	case ActionKeepScreenOn:
		next.KeepScreenOn = r.Bool()
	case ActionBrightness:
		next.Brightness = r.Float32()
	case ActionModeSupport:
		next.ModeSupport = wm.ModeSupport(r.Uint32())
	case ActionTouchHotArea:
		next.TouchHotAreas = readHotAreas(r)
	case ActionAspectRatio:
		next.AspectRatio = r.Float32()
	case ActionPrivacyMode:
		next.PrivacyMode = r.Bool()
	case ActionAlpha:
		next.Alpha = r.Float32()
	case ActionTransform:
		next.Transform = readTransform(r)
	case ActionGravity:
		next.Gravity = wm.Gravity(r.Uint32())
		next.GravityPercent = r.Uint32()
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("decode %v delta: %w", action, err)
	}
	*w = *next
	return nil
}

// ApplyAction copies the fields belonging to action from src into w. The
// window id of w is kept.
func (w *WindowProperty) ApplyAction(src *WindowProperty, action Action) error {
	p := parcel.New()
	if err := src.WriteAction(p, action); err != nil {
		return err
	}
	id := w.ID
	if err := w.ReadAction(parcel.FromBytes(p.Bytes(), nil), action); err != nil {
		return err
	}
	w.ID = id
	return nil
}
