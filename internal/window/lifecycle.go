package window

import (
	"context"

	"github.com/1broseidon/winsession/internal/ipc"
	"github.com/1broseidon/winsession/internal/listener"
	"github.com/1broseidon/winsession/internal/wm"
)

// Show makes the window visible. Showing a shown window succeeds without a
// request, except for the desktop, which asks the service to minimize every
// app window instead. Mode constraints are checked before the service is
// contacted.
func (w *Window) Show(ctx context.Context, reason uint32, withAnimation bool) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	if !w.state.Valid() {
		w.mu.Unlock()
		return wm.ErrInvalidWindow
	}
	switch w.state {
	case wm.StateShown:
		display := w.prop.DisplayID
		w.mu.Unlock()
		if w.typ == wm.TypeDesktop {
			return w.env.Service.MinimizeAllAppWindows(ctx, display)
		}
		return nil
	case wm.StateFrozen:
		w.mu.Unlock()
		return wm.Errorf(wm.CodeInvalidOpInCurStatus, "Show", "window is frozen")
	}
	support, mode := w.prop.ModeSupport, w.prop.Mode
	if !support.Supports(mode) || (support.OnlySplit() && w.prop.HasFlag(wm.FlagShowWhenLocked)) {
		w.mu.Unlock()
		return wm.Errorf(wm.CodeInvalidWindowModeOrSize, "Show", "mode %v outside supported set %#x", mode, uint32(support))
	}
	w.prop.AnimationFlag = animationFlag(withAnimation)
	snapshot := w.prop.Clone()
	parentID := w.prop.ParentID
	w.mu.Unlock()

	if err := w.env.Service.AddWindow(ctx, snapshot); err != nil {
		w.logger.Warn("show failed", "reason", reason, "error", err)
		w.notify(listener.LifecycleEvent{Kind: listener.ForegroundFailed, Err: err})
		if rerr := w.env.Service.RecordEvent(ctx, snapshot.ID, "foreground-failed"); rerr != nil {
			w.logger.Debug("record event failed", "error", rerr)
		}
		return err
	}

	parent := w.gatingParent(parentID)

	w.mu.Lock()
	w.state = wm.StateShown
	suppressed := parent != nil && !parent.Visible()
	if suppressed {
		w.subState = wm.StateHidden
	} else {
		w.subState = wm.StateShown
	}
	w.mu.Unlock()

	if !suppressed {
		w.afterForeground()
		w.cascade(true)
	}
	return nil
}

// Hide removes the window from the screen. Hiding a hidden or never shown
// window succeeds without a request.
func (w *Window) Hide(ctx context.Context, reason uint32, withAnimation bool) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	if !w.state.Valid() {
		w.mu.Unlock()
		return wm.ErrInvalidWindow
	}
	switch w.state {
	case wm.StateHidden, wm.StateCreated:
		w.mu.Unlock()
		return nil
	case wm.StateFrozen:
		w.mu.Unlock()
		return wm.Errorf(wm.CodeInvalidOpInCurStatus, "Hide", "window is frozen")
	}
	w.prop.AnimationFlag = animationFlag(withAnimation)
	id := w.id
	w.mu.Unlock()

	if err := w.env.Service.RemoveWindow(ctx, id); err != nil {
		w.logger.Warn("hide failed", "reason", reason, "error", err)
		return err
	}
	w.becomeHidden()
	return nil
}

// becomeHidden records the hidden state and tells whoever saw the window
// disappear.
func (w *Window) becomeHidden() {
	w.mu.Lock()
	wasVisible := w.visibleLocked()
	w.state = wm.StateHidden
	w.subState = wm.StateHidden
	w.mu.Unlock()

	if wasVisible {
		w.afterBackground()
		w.cascade(false)
	}
}

// becomeShown is the push-driven counterpart of Show.
func (w *Window) becomeShown() {
	parent := w.gatingParent(w.ParentID())

	w.mu.Lock()
	if w.state != wm.StateHidden {
		w.mu.Unlock()
		return
	}
	w.state = wm.StateShown
	suppressed := parent != nil && !parent.Visible()
	if suppressed {
		w.subState = wm.StateHidden
	} else {
		w.subState = wm.StateShown
	}
	w.mu.Unlock()

	if !suppressed {
		w.afterForeground()
		w.cascade(true)
	}
}

// cascade propagates the parent's effective visibility to its sub-windows.
// Only children whose own state is Shown change, and only those are
// notified. Grandchildren follow through the recursion.
func (w *Window) cascade(visible bool) {
	for _, c := range w.env.Windows.Children(w.ID()) {
		if c.typ == wm.TypeAppComponent {
			continue
		}
		c.mu.Lock()
		changed := false
		if c.state == wm.StateShown {
			switch {
			case visible && c.subState == wm.StateHidden:
				c.subState = wm.StateShown
				changed = true
			case !visible && c.subState == wm.StateShown:
				c.subState = wm.StateHidden
				changed = true
			}
		}
		c.mu.Unlock()

		if !changed {
			continue
		}
		if visible {
			c.afterForeground()
		} else {
			c.afterBackground()
		}
		c.cascade(visible)
	}
}

func (w *Window) afterForeground() {
	if content := w.uiContent(); content != nil {
		content.Foreground()
	}
	w.notify(listener.LifecycleEvent{Kind: listener.AfterForeground})
}

func (w *Window) afterBackground() {
	if content := w.uiContent(); content != nil {
		content.Background()
	}
	w.notify(listener.LifecycleEvent{Kind: listener.AfterBackground})
}

func (w *Window) uiContent() UIContent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.content
}

// freeze moves a shown or hidden window to Frozen. A main window takes its
// application to the background with it, and sub-windows lose visibility the
// same way they do when the window is hidden.
func (w *Window) freeze() {
	w.mu.Lock()
	if w.state != wm.StateShown && w.state != wm.StateHidden {
		w.mu.Unlock()
		return
	}
	wasVisible := w.visibleLocked()
	w.state = wm.StateFrozen
	w.mu.Unlock()

	if w.typ.IsMainWindow() && w.appCtx != nil && w.appCtx.OnBackground != nil {
		w.appCtx.OnBackground()
	}
	if wasVisible {
		w.afterBackground()
		w.cascade(false)
	}
}

// unfreeze returns a frozen window to Shown, whatever it was before the
// freeze. Sub-window state is derived again from the parent.
func (w *Window) unfreeze() {
	parent := w.gatingParent(w.ParentID())

	w.mu.Lock()
	if w.state != wm.StateFrozen {
		w.mu.Unlock()
		return
	}
	w.state = wm.StateShown
	suppressed := parent != nil && !parent.Visible()
	if suppressed {
		w.subState = wm.StateHidden
	} else {
		w.subState = wm.StateShown
	}
	w.mu.Unlock()

	if w.typ.IsMainWindow() && w.appCtx != nil && w.appCtx.OnForeground != nil {
		w.appCtx.OnForeground()
	}
	if !suppressed {
		w.afterForeground()
		w.cascade(true)
	}
}

// gatingParent returns the parent whose visibility decides whether a shown
// sub-window is on screen, or nil. App components ignore their parent.
//
// Callers read the parent's visibility while holding w.mu, after writing
// w.state. A parent cascade locks the child after writing its own state, so
// one of the two always sees the other's write. Window locks nest child
// before parent only.
func (w *Window) gatingParent(parentID wm.WindowID) *Window {
	if !w.typ.IsSubWindow() || w.typ == wm.TypeAppComponent {
		return nil
	}
	parent, ok := w.env.Windows.FindByID(parentID)
	if !ok || parent == w {
		return nil
	}
	return parent
}

// Destroy tears the window down: listeners hear about it first, then every
// sub-window, floating window and dialog it owns is destroyed, the service is
// told, and the window leaves every registry. The local teardown happens even
// if the request fails; the request error is returned.
func (w *Window) Destroy(ctx context.Context) error {
	return w.destroy(ctx, true)
}

func (w *Window) destroy(ctx context.Context, tellService bool) error {
	var agents []*ipc.LocalRemote
	err := w.teardown(ctx, tellService, &agents)
	// Killing an agent drops it from the in-process object table so the
	// window can be collected. Sub-window agents die only after the service
	// has destroyed them with their parent.
	for _, a := range agents {
		a.Kill()
	}
	return err
}

func (w *Window) teardown(ctx context.Context, tellService bool, agents *[]*ipc.LocalRemote) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	if w.state == wm.StateDestroyed {
		w.mu.Unlock()
		return nil
	}
	id := w.id
	w.mu.Unlock()

	w.notify(listener.LifecycleEvent{Kind: listener.BeforeDestroy})

	// The service destroys sub-windows with their parent.
	for _, c := range w.env.Windows.Children(id) {
		if err := c.teardown(ctx, false, agents); err != nil {
			w.logger.Warn("destroy sub-window failed", "child", c.Name(), "error", err)
		}
	}
	if w.typ.IsMainWindow() {
		owned := append(w.env.Windows.Floating(id), w.env.Windows.Dialogs(id)...)
		for _, c := range owned {
			if err := c.destroy(ctx, true); err != nil {
				w.logger.Warn("destroy owned window failed", "owned", c.Name(), "error", err)
			}
		}
	}

	var err error
	if tellService {
		err = w.env.Service.DestroyWindow(ctx, id)
		if err != nil {
			w.logger.Warn("remote destroy failed", "error", err)
		}
	}

	w.env.Windows.Remove(id)
	w.env.Listeners.Clear(id)
	w.env.Service.UnregisterSessionRecover(id)

	w.mu.Lock()
	content := w.content
	w.content = nil
	w.state = wm.StateDestroyed
	w.subState = wm.StateDestroyed
	w.rectSent, w.modeSent = false, false
	w.lastRect, w.lastReason, w.lastMode = wm.Rect{}, 0, 0
	w.mu.Unlock()

	if content != nil {
		content.Destroy()
	}
	w.releaseSurface()
	*agents = append(*agents, w.agent)
	w.logger.Debug("window destroyed", "id", id)
	return err
}

// recoverSession re-creates the window on a restarted service, turns
// avoid-area pushes back on if anyone still listens for them, and shows the
// window again if it was shown.
func (w *Window) recoverSession(ctx context.Context) error {
	w.mu.Lock()
	if !w.state.Valid() {
		w.mu.Unlock()
		return nil
	}
	snapshot := w.prop.Clone()
	shown := w.state == wm.StateShown
	id := w.id
	w.mu.Unlock()

	if err := w.env.Service.RecoverWindow(ctx, w.agent, snapshot); err != nil {
		return err
	}
	if w.env.Listeners.Count(listener.CategoryAvoidArea, id) > 0 {
		if err := w.env.Service.UpdateAvoidAreaListener(ctx, id, true); err != nil {
			return err
		}
	}
	if shown {
		return w.env.Service.AddWindow(ctx, snapshot)
	}
	return nil
}

func animationFlag(on bool) uint32 {
	if on {
		return 1
	}
	return 0
}
