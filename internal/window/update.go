package window

import (
	"context"
	"errors"
	"math"

	"github.com/1broseidon/winsession/internal/property"
	"github.com/1broseidon/winsession/internal/wm"
)

// update mutates the local property, sends the change and rolls the action's
// fields back if the service does not confirm it. mutate runs under w.mu and
// returns wm.ErrDoNothing when there is nothing to send.
func (w *Window) update(ctx context.Context, op string, action property.Action, mutate func(p *property.WindowProperty) error) error {
	return w.updateWith(ctx, op, action, mutate, func(ctx context.Context, snapshot *property.WindowProperty) error {
		return w.env.Service.UpdateProperty(ctx, snapshot, action)
	})
}

func (w *Window) updateWith(ctx context.Context, op string, action property.Action,
	mutate func(p *property.WindowProperty) error,
	send func(ctx context.Context, snapshot *property.WindowProperty) error,
) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	if !w.state.Valid() {
		w.mu.Unlock()
		return wm.Errorf(wm.CodeInvalidWindow, op, "window %s is %v", w.name, w.state)
	}
	before := w.prop.Clone()
	if err := mutate(w.prop); err != nil {
		w.prop = before
		w.mu.Unlock()
		if errors.Is(err, wm.ErrDoNothing) {
			return nil
		}
		return err
	}
	snapshot := w.prop.Clone()
	w.mu.Unlock()

	if err := send(ctx, snapshot); err != nil {
		w.mu.Lock()
		if rerr := w.prop.ApplyAction(before, action); rerr != nil {
			w.prop = before
		}
		w.mu.Unlock()
		w.logger.Debug("property update rolled back", "action", action, "error", err)
		return err
	}
	return nil
}

// Resize requests a new size for a floating window.
func (w *Window) Resize(ctx context.Context, width, height uint32) error {
	if width == 0 || height == 0 {
		return wm.Errorf(wm.CodeInvalidParam, "Resize", "size %dx%d", width, height)
	}
	return w.update(ctx, "Resize", property.ActionRect, func(p *property.WindowProperty) error {
		if p.Mode != wm.ModeFloating {
			return wm.Errorf(wm.CodeInvalidOperation, "Resize", "window in %v mode", p.Mode)
		}
		r := p.RequestRect
		if r.Width == width && r.Height == height {
			return wm.ErrDoNothing
		}
		r.Width, r.Height = width, height
		p.RequestRect = r
		p.SizeChangeReason = wm.ReasonResize
		return nil
	})
}

// MoveTo requests a new position for a floating window.
func (w *Window) MoveTo(ctx context.Context, x, y int32) error {
	return w.update(ctx, "MoveTo", property.ActionRect, func(p *property.WindowProperty) error {
		if p.Mode != wm.ModeFloating {
			return wm.Errorf(wm.CodeInvalidOperation, "MoveTo", "window in %v mode", p.Mode)
		}
		r := p.RequestRect
		if r.X == x && r.Y == y {
			return wm.ErrDoNothing
		}
		r.X, r.Y = x, y
		p.RequestRect = r
		p.SizeChangeReason = wm.ReasonMove
		return nil
	})
}

// SetWindowMode switches the window to mode, which must be in its
// supported set.
func (w *Window) SetWindowMode(ctx context.Context, mode wm.WindowMode) error {
	return w.update(ctx, "SetWindowMode", property.ActionMode, func(p *property.WindowProperty) error {
		if mode == wm.ModeUndefined || !p.ModeSupport.Supports(mode) {
			return wm.Errorf(wm.CodeInvalidWindowModeOrSize, "SetWindowMode", "mode %v not supported", mode)
		}
		if p.Mode == mode {
			return wm.ErrDoNothing
		}
		p.SetMode(mode)
		return nil
	})
}

// SetModeSupport replaces the set of modes the window accepts.
func (w *Window) SetModeSupport(ctx context.Context, support wm.ModeSupport) error {
	if support == 0 || support&^wm.SupportAll != 0 {
		return wm.Errorf(wm.CodeInvalidParam, "SetModeSupport", "mode support %#x", uint32(support))
	}
	return w.update(ctx, "SetModeSupport", property.ActionModeSupport, func(p *property.WindowProperty) error {
		p.ModeSupport = support
		return nil
	})
}

// AddFlag sets flag on the window.
func (w *Window) AddFlag(ctx context.Context, flag wm.WindowFlag) error {
	return w.update(ctx, "AddFlag", property.ActionFlags, func(p *property.WindowProperty) error {
		if flag == wm.FlagShowWhenLocked && !p.Type.IsMainWindow() {
			return wm.Errorf(wm.CodeInvalidType, "AddFlag", "show-when-locked needs a main window")
		}
		if p.HasFlag(flag) {
			return wm.ErrDoNothing
		}
		p.AddFlag(flag)
		return nil
	})
}

// RemoveFlag clears flag.
func (w *Window) RemoveFlag(ctx context.Context, flag wm.WindowFlag) error {
	return w.update(ctx, "RemoveFlag", property.ActionFlags, func(p *property.WindowProperty) error {
		if !p.HasFlag(flag) {
			return wm.ErrDoNothing
		}
		p.RemoveFlag(flag)
		return nil
	})
}

// SetAspectRatio fixes the width to height ratio of a main window. Zero
// clears it.
func (w *Window) SetAspectRatio(ctx context.Context, ratio float32) error {
	if ratio < 0 || math.IsNaN(float64(ratio)) || math.IsInf(float64(ratio), 0) {
		return wm.Errorf(wm.CodeInvalidParam, "SetAspectRatio", "ratio %v", ratio)
	}
	if !w.typ.IsMainWindow() {
		return wm.Errorf(wm.CodeInvalidType, "SetAspectRatio", "%v window", w.typ)
	}
	return w.update(ctx, "SetAspectRatio", property.ActionAspectRatio, func(p *property.WindowProperty) error {
		p.AspectRatio = ratio
		return nil
	})
}

// SetPrivacyMode hides the window content from screenshots and casting.
func (w *Window) SetPrivacyMode(ctx context.Context, on bool) error {
	return w.update(ctx, "SetPrivacyMode", property.ActionPrivacyMode, func(p *property.WindowProperty) error {
		p.PrivacyMode = on
		return nil
	})
}

// SetFocusable controls whether the window can take focus.
func (w *Window) SetFocusable(ctx context.Context, on bool) error {
	return w.update(ctx, "SetFocusable", property.ActionFocusable, func(p *property.WindowProperty) error {
		p.Focusable = on
		return nil
	})
}

// SetTouchable controls whether the window receives touches.
func (w *Window) SetTouchable(ctx context.Context, on bool) error {
	return w.update(ctx, "SetTouchable", property.ActionTouchable, func(p *property.WindowProperty) error {
		p.Touchable = on
		return nil
	})
}

// SetKeepScreenOn keeps the display awake while the window is shown.
func (w *Window) SetKeepScreenOn(ctx context.Context, on bool) error {
	return w.update(ctx, "SetKeepScreenOn", property.ActionKeepScreenOn, func(p *property.WindowProperty) error {
		p.KeepScreenOn = on
		return nil
	})
}

// SetTurnScreenOn wakes the display when the window is shown.
func (w *Window) SetTurnScreenOn(ctx context.Context, on bool) error {
	return w.update(ctx, "SetTurnScreenOn", property.ActionTurnScreenOn, func(p *property.WindowProperty) error {
		p.TurnScreenOn = on
		return nil
	})
}

// SetBrightness overrides the screen brightness while the window has focus.
// -1 restores the system value.
func (w *Window) SetBrightness(ctx context.Context, brightness float32) error {
	if brightness != -1 && (brightness < 0 || brightness > 1) {
		return wm.Errorf(wm.CodeInvalidParam, "SetBrightness", "brightness %v", brightness)
	}
	return w.update(ctx, "SetBrightness", property.ActionBrightness, func(p *property.WindowProperty) error {
		p.Brightness = brightness
		return nil
	})
}

// SetRequestedOrientation asks for a display orientation.
func (w *Window) SetRequestedOrientation(ctx context.Context, o wm.Orientation) error {
	if o > wm.OrientationLocked {
		return wm.Errorf(wm.CodeInvalidParam, "SetRequestedOrientation", "orientation %d", o)
	}
	return w.update(ctx, "SetRequestedOrientation", property.ActionOrientation, func(p *property.WindowProperty) error {
		if p.RequestedOrientation == o {
			return wm.ErrDoNothing
		}
		p.RequestedOrientation = o
		return nil
	})
}

// SetSystemBarProperty styles the status bar or navigation bar while the
// window is on top.
func (w *Window) SetSystemBarProperty(ctx context.Context, bar wm.WindowType, prop wm.SystemBarProperty) error {
	if bar != wm.TypeStatusBar && bar != wm.TypeNavigationBar {
		return wm.Errorf(wm.CodeInvalidParam, "SetSystemBarProperty", "%v is not a system bar", bar)
	}
	return w.update(ctx, "SetSystemBarProperty", property.ActionOtherProps, func(p *property.WindowProperty) error {
		if p.SystemBar(bar) == prop {
			return wm.ErrDoNothing
		}
		return p.SetSystemBar(bar, prop)
	})
}

// SetCallingWindow records the window that started this one, used by input
// method windows.
func (w *Window) SetCallingWindow(ctx context.Context, id wm.WindowID) error {
	return w.update(ctx, "SetCallingWindow", property.ActionCallingWindow, func(p *property.WindowProperty) error {
		p.CallingWindow = id
		return nil
	})
}

// SetTouchHotAreas limits touches to rects, in window coordinates.
func (w *Window) SetTouchHotAreas(ctx context.Context, rects []wm.Rect) error {
	if len(rects) > property.MaxTouchHotAreas {
		return wm.Errorf(wm.CodeInvalidParam, "SetTouchHotAreas", "%d areas", len(rects))
	}
	return w.update(ctx, "SetTouchHotAreas", property.ActionTouchHotArea, func(p *property.WindowProperty) error {
		p.TouchHotAreas = append([]wm.Rect(nil), rects...)
		return nil
	})
}

// SetAlpha sets the window opacity in [0, 1].
func (w *Window) SetAlpha(ctx context.Context, alpha float32) error {
	if alpha < 0 || alpha > 1 || math.IsNaN(float64(alpha)) {
		return wm.Errorf(wm.CodeInvalidParam, "SetAlpha", "alpha %v", alpha)
	}
	err := w.update(ctx, "SetAlpha", property.ActionAlpha, func(p *property.WindowProperty) error {
		p.Alpha = alpha
		return nil
	})
	if err == nil {
		w.withSurface(func(s Surface) { s.SetAlpha(alpha) })
	}
	return err
}

// SetTransform applies a scale, pivot and translation to the window.
func (w *Window) SetTransform(ctx context.Context, t wm.Transform) error {
	return w.update(ctx, "SetTransform", property.ActionTransform, func(p *property.WindowProperty) error {
		if p.Transform == t {
			return wm.ErrDoNothing
		}
		p.Transform = t
		return nil
	})
}

// SetGravity anchors the window to a display edge, taking percent of the
// display height.
func (w *Window) SetGravity(ctx context.Context, gravity wm.Gravity, percent uint32) error {
	if gravity > wm.GravityDefault || percent > 100 {
		return wm.Errorf(wm.CodeInvalidParam, "SetGravity", "gravity %d percent %d", gravity, percent)
	}
	return w.updateWith(ctx, "SetGravity", property.ActionGravity,
		func(p *property.WindowProperty) error {
			p.Gravity = gravity
			p.GravityPercent = percent
			return nil
		},
		func(ctx context.Context, snapshot *property.WindowProperty) error {
			return w.env.Service.SetWindowGravity(ctx, snapshot.ID, gravity, percent)
		})
}

func (w *Window) withSurface(fn func(Surface)) {
	w.mu.Lock()
	s := w.surface
	w.mu.Unlock()
	if s != nil {
		fn(s)
	}
}
