package window

import (
	"context"

	"github.com/1broseidon/winsession/internal/wm"
)

// RequestFocus asks the service to focus the window.
func (w *Window) RequestFocus(ctx context.Context) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()
	if !w.valid() {
		return wm.ErrInvalidWindow
	}
	return w.env.Service.RequestFocus(ctx, w.ID())
}

// BindDialogTarget ties a dialog to the window it belongs to; touches on the
// target are reported to the dialog.
func (w *Window) BindDialogTarget(ctx context.Context, target wm.WindowID) error {
	if w.typ != wm.TypeDialog {
		return wm.Errorf(wm.CodeInvalidType, "BindDialogTarget", "%v window", w.typ)
	}
	if target == wm.InvalidWindowID {
		return wm.Errorf(wm.CodeInvalidParam, "BindDialogTarget", "no target")
	}
	w.opMu.Lock()
	defer w.opMu.Unlock()
	if !w.valid() {
		return wm.ErrInvalidWindow
	}
	return w.env.Service.BindDialogTarget(ctx, w.ID(), target)
}

// GetAvoidArea asks the service for the current avoid area of typ.
func (w *Window) GetAvoidArea(ctx context.Context, typ wm.AvoidAreaType) (wm.AvoidArea, error) {
	if typ > wm.AvoidAreaNavigationIndicator {
		return wm.AvoidArea{}, wm.Errorf(wm.CodeInvalidParam, "GetAvoidArea", "avoid area type %d", typ)
	}
	if !w.valid() {
		return wm.AvoidArea{}, wm.ErrInvalidWindow
	}
	area, err := w.env.Service.GetAvoidArea(ctx, w.ID(), typ)
	if err != nil {
		return wm.AvoidArea{}, err
	}
	w.mu.Lock()
	w.avoid[typ] = area
	w.mu.Unlock()
	return area, nil
}

// SetUIContent attaches content to the window, replacing any earlier
// content. With restore set the content is rebuilt from storage.
func (w *Window) SetUIContent(content UIContent, contentRef string, storage []byte, restore bool) error {
	if content == nil {
		return wm.Errorf(wm.CodeNullPtr, "SetUIContent", "nil content")
	}
	if !w.valid() {
		return wm.ErrInvalidWindow
	}

	var err error
	if restore {
		err = content.Restore(w, contentRef, storage)
	} else {
		err = content.Initialize(w, contentRef, storage)
	}
	if err != nil {
		return wm.Wrap(wm.CodeInvalidParam, "SetUIContent", err)
	}

	w.mu.Lock()
	old := w.content
	w.content = content
	rect, display, visible := w.prop.Rect, w.prop.DisplayID, w.visibleLocked()
	w.mu.Unlock()

	if old != nil {
		old.Destroy()
	}
	content.UpdateViewportConfig(w.viewport(rect, display), wm.ReasonUndefined)
	if visible {
		content.Foreground()
	}
	return nil
}

// ConsumePointerEvent routes a pointer event to the content. Pointer down and
// up are also reported to the service, without waiting.
func (w *Window) ConsumePointerEvent(ctx context.Context, ev PointerEvent) bool {
	if !w.valid() {
		return false
	}
	id := w.ID()
	var err error
	switch ev.Action {
	case PointerDown:
		err = w.env.Service.ProcessPointDown(ctx, id, true)
	case PointerUp:
		err = w.env.Service.ProcessPointUp(ctx, id)
	}
	if err != nil {
		w.logger.Debug("pointer report failed", "action", ev.Action, "error", err)
	}
	if content := w.uiContent(); content != nil {
		return content.ProcessPointerEvent(ev)
	}
	return false
}

// ConsumeKeyEvent routes a key event to the content.
func (w *Window) ConsumeKeyEvent(ev KeyEvent) bool {
	if !w.valid() {
		return false
	}
	if content := w.uiContent(); content != nil {
		return content.ProcessKeyEvent(ev)
	}
	return false
}
