package window

import (
	"context"

	"github.com/1broseidon/winsession/internal/ipc"
	"github.com/1broseidon/winsession/internal/listener"
	"github.com/1broseidon/winsession/internal/property"
	"github.com/1broseidon/winsession/internal/wm"
)

// agent applies service pushes to its window. Handlers never take the
// window's operation lock, so a push arriving while the window waits on a
// reply cannot deadlock, with the exception of NotifyDestroy.
type agent struct {
	w *Window
}

var _ ipc.WindowAgent = (*agent)(nil)

func (a *agent) UpdateWindowRect(ctx context.Context, rect wm.Rect, decorated bool, reason wm.SizeChangeReason) error {
	w := a.w
	w.mu.Lock()
	if w.state == wm.StateDestroyed {
		w.mu.Unlock()
		return nil
	}
	w.prop.Rect = rect
	if decorated {
		w.prop.Decor = property.DecorEnabled
	} else {
		w.prop.Decor = property.DecorNone
	}
	if w.rectSent && w.lastRect == rect && w.lastReason == reason {
		w.mu.Unlock()
		return nil
	}
	w.rectSent, w.lastRect, w.lastReason = true, rect, reason
	surface, content, display := w.surface, w.content, w.prop.DisplayID
	w.mu.Unlock()

	if surface != nil {
		surface.Resize(rect.Width, rect.Height)
		surface.Move(rect.X, rect.Y)
	}
	if content != nil {
		content.UpdateViewportConfig(w.viewport(rect, display), reason)
	}
	w.notify(listener.SizeChangeEvent{Rect: rect, Reason: reason})
	return nil
}

func (w *Window) viewport(rect wm.Rect, display wm.DisplayID) ViewportConfig {
	cfg := ViewportConfig{Rect: rect, Density: 1}
	if w.env.Displays == nil {
		return cfg
	}
	info, err := w.env.Displays.Display(display)
	if err != nil {
		w.logger.Debug("display lookup failed", "display", display, "error", err)
		return cfg
	}
	if info.Density > 0 {
		cfg.Density = info.Density
	}
	cfg.Orientation = info.Orientation()
	return cfg
}

func (a *agent) UpdateWindowMode(ctx context.Context, mode wm.WindowMode) error {
	w := a.w
	w.mu.Lock()
	if w.state == wm.StateDestroyed {
		w.mu.Unlock()
		return nil
	}
	if w.prop.Mode != mode {
		w.prop.SetMode(mode)
	}
	if w.modeSent && w.lastMode == mode {
		w.mu.Unlock()
		return nil
	}
	w.modeSent, w.lastMode = true, mode
	w.mu.Unlock()

	w.notify(listener.ModeChangeEvent{Mode: mode})
	return nil
}

func (a *agent) UpdateModeSupport(ctx context.Context, support wm.ModeSupport) error {
	w := a.w
	w.mu.Lock()
	w.prop.ModeSupport = support
	w.mu.Unlock()
	return nil
}

func (a *agent) UpdateFocusStatus(ctx context.Context, focused bool) error {
	w := a.w
	w.mu.Lock()
	if w.state == wm.StateDestroyed || w.focused == focused {
		w.mu.Unlock()
		return nil
	}
	w.focused = focused
	w.mu.Unlock()

	kind := listener.AfterUnfocused
	if focused {
		kind = listener.AfterFocused
	}
	w.notify(listener.LifecycleEvent{Kind: kind})
	return nil
}

func (a *agent) UpdateAvoidArea(ctx context.Context, area wm.AvoidArea, typ wm.AvoidAreaType) error {
	w := a.w
	w.mu.Lock()
	if w.state == wm.StateDestroyed {
		w.mu.Unlock()
		return nil
	}
	w.avoid[typ] = area
	w.mu.Unlock()

	w.notify(listener.AvoidAreaEvent{Type: typ, Area: area})
	return nil
}

// UpdateWindowState applies a state decided by the service. Frozen and
// Unfrozen map onto the application's background and foreground.
func (a *agent) UpdateWindowState(ctx context.Context, state wm.State) error {
	w := a.w
	switch state {
	case wm.StateFrozen:
		w.freeze()
	case wm.StateUnfrozen:
		w.unfreeze()
	case wm.StateHidden:
		if w.State() == wm.StateShown {
			w.becomeHidden()
		}
	case wm.StateShown:
		w.becomeShown()
	default:
		w.logger.Debug("ignoring pushed state", "state", state)
	}
	return nil
}

func (a *agent) UpdateDragEvent(ctx context.Context, point wm.Point, event wm.DragEvent) error {
	if !a.w.valid() {
		return nil
	}
	a.w.notify(listener.DragEvent{Point: point, Phase: event})
	return nil
}

func (a *agent) UpdateDisplayID(ctx context.Context, from, to wm.DisplayID) error {
	w := a.w
	w.mu.Lock()
	if w.state == wm.StateDestroyed {
		w.mu.Unlock()
		return nil
	}
	w.prop.DisplayID = to
	w.mu.Unlock()

	if from != to {
		w.notify(listener.DisplayMoveEvent{From: from, To: to})
	}
	return nil
}

func (a *agent) UpdateOccupiedArea(ctx context.Context, info wm.OccupiedAreaInfo) error {
	if !a.w.valid() {
		return nil
	}
	a.w.notify(listener.OccupiedAreaEvent{Info: info})
	return nil
}

func (a *agent) UpdateActiveStatus(ctx context.Context, active bool) error {
	w := a.w
	w.mu.Lock()
	if w.state == wm.StateDestroyed || w.active == active {
		w.mu.Unlock()
		return nil
	}
	w.active = active
	w.mu.Unlock()

	kind := listener.AfterInactive
	if active {
		kind = listener.AfterActive
	}
	w.notify(listener.LifecycleEvent{Kind: kind})
	return nil
}

func (a *agent) GetWindowProperty(ctx context.Context) (*property.WindowProperty, error) {
	w := a.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == wm.StateDestroyed {
		return nil, wm.ErrDestroyedObject
	}
	return w.prop.Clone(), nil
}

func (a *agent) NotifyTouchOutside(ctx context.Context) error {
	if a.w.valid() {
		a.w.notify(listener.TouchOutsideEvent{})
	}
	return nil
}

func (a *agent) NotifyScreenshot(ctx context.Context) error {
	if a.w.valid() {
		a.w.notify(listener.ScreenshotEvent{})
	}
	return nil
}

// NotifyDestroy tears the window down locally; the service already dropped it.
func (a *agent) NotifyDestroy(ctx context.Context) error {
	return a.w.destroy(ctx, false)
}

func (a *agent) NotifyTouchDialogTarget(ctx context.Context) error {
	if a.w.valid() {
		a.w.notify(listener.DialogTargetTouchEvent{})
	}
	return nil
}
