package wmservice

import (
	"context"
	"slices"

	"github.com/1broseidon/winsession/internal/property"
	"github.com/1broseidon/winsession/internal/wm"
)

func (s *Service) UpdateProperty(ctx context.Context, prop *property.WindowProperty, action property.Action) error {
	if prop == nil {
		return wm.Errorf(wm.CodeNullPtr, "UpdateProperty", "nil property")
	}
	s.mu.Lock()
	rec, err := s.lookup("UpdateProperty", prop.ID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := validateUpdate(rec.prop, prop, action); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := rec.prop.ApplyAction(prop, action); err != nil {
		s.mu.Unlock()
		return wm.Wrap(wm.CodeInvalidParam, "UpdateProperty", err)
	}

	var ps pushes
	agent := rec.agent
	switch action {
	case property.ActionRect, property.ActionGravity:
		ps = append(ps, s.relayoutLocked(rec, rec.prop.SizeChangeReason)...)
	case property.ActionMode:
		mode := rec.prop.Mode
		ps = append(ps, func(ctx context.Context) error { return agent.UpdateWindowMode(ctx, mode) })
		ps = append(ps, s.relayoutLocked(rec, wm.ReasonUndefined)...)
	case property.ActionModeSupport:
		support := rec.prop.ModeSupport
		ps = append(ps, func(ctx context.Context) error { return agent.UpdateModeSupport(ctx, support) })
	case property.ActionFocusable:
		if !rec.prop.Focusable && s.focused == prop.ID {
			ps = append(ps, s.refocusLocked()...)
		}
	case property.ActionOtherProps:
		if s.focused == prop.ID {
			ps = append(ps, s.tintPushesLocked(prop.ID)...)
		}
	}
	s.mu.Unlock()

	s.deliver(ctx, ps)
	return nil
}

func validateUpdate(cur, next *property.WindowProperty, action property.Action) error {
	switch action {
	case property.ActionMode:
		if !cur.ModeSupport.Supports(next.Mode) {
			return wm.Errorf(wm.CodeInvalidWindowModeOrSize, "UpdateProperty", "mode %v unsupported", next.Mode)
		}
	case property.ActionRect:
		if cur.Mode != wm.ModeFloating {
			return wm.Errorf(wm.CodeInvalidOperation, "UpdateProperty", "rect change in %v mode", cur.Mode)
		}
		if next.RequestRect.IsEmpty() {
			return wm.Errorf(wm.CodeInvalidWindowModeOrSize, "UpdateProperty", "empty rect %v", next.RequestRect)
		}
	case property.ActionFlags:
		if next.HasFlag(wm.FlagShowWhenLocked) && !cur.Type.IsMainWindow() {
			return wm.Errorf(wm.CodeInvalidType, "UpdateProperty", "show-when-locked on %v", cur.Type)
		}
	case property.ActionModeSupport:
		if next.ModeSupport == 0 {
			return wm.Errorf(wm.CodeInvalidParam, "UpdateProperty", "empty mode support")
		}
	case property.ActionGravity:
		if next.Gravity > wm.GravityDefault || next.GravityPercent > 100 {
			return wm.Errorf(wm.CodeInvalidParam, "UpdateProperty", "gravity %d percent %d", next.Gravity, next.GravityPercent)
		}
	}
	return nil
}

// relayoutLocked recomputes the rect of rec and pushes it when it changed.
func (s *Service) relayoutLocked(rec *record, reason wm.SizeChangeReason) pushes {
	rect := s.layout(rec.prop)
	if rect == rec.prop.Rect && rec.prop.SizeChangeReason == reason {
		return nil
	}
	rec.prop.Rect = rect
	if !rec.shown {
		return nil
	}
	agent, decorated := rec.agent, rec.prop.Decor == property.DecorEnabled
	return pushes{func(ctx context.Context) error {
		return agent.UpdateWindowRect(ctx, rect, decorated, reason)
	}}
}

func (s *Service) SetWindowGravity(ctx context.Context, id wm.WindowID, gravity wm.Gravity, percent uint32) error {
	if gravity > wm.GravityDefault || percent > 100 {
		return wm.Errorf(wm.CodeInvalidParam, "SetWindowGravity", "gravity %d percent %d", gravity, percent)
	}
	s.mu.Lock()
	rec, err := s.lookup("SetWindowGravity", id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	rec.prop.Gravity = gravity
	rec.prop.GravityPercent = percent
	ps := s.relayoutLocked(rec, wm.ReasonUndefined)
	s.mu.Unlock()

	s.deliver(ctx, ps)
	return nil
}

func appMainShown(rec *record, display wm.DisplayID, anyDisplay bool) bool {
	return rec.shown && rec.prop.Type.IsMainWindow() && (anyDisplay || rec.prop.DisplayID == display)
}

// MinimizeAllAppWindows hides every shown application main window on
// display. Sub-windows follow on the client side.
func (s *Service) MinimizeAllAppWindows(ctx context.Context, display wm.DisplayID) error {
	s.mu.Lock()
	ps := s.minimizeLocked(display, false)
	s.mu.Unlock()

	s.deliver(ctx, ps)
	return nil
}

func (s *Service) minimizeLocked(display wm.DisplayID, anyDisplay bool) pushes {
	var ps pushes
	for _, id := range s.sortedIDsLocked() {
		rec := s.windows[id]
		if !appMainShown(rec, display, anyDisplay) {
			continue
		}
		agent := rec.agent
		ps = append(ps, func(ctx context.Context) error { return agent.UpdateWindowState(ctx, wm.StateHidden) })
		ps = append(ps, s.hideLocked(id)...)
	}
	return ps
}

// ToggleShownStateForAllAppWindows minimizes every shown application main
// window, or restores the ones it minimized last time when none is shown.
func (s *Service) ToggleShownStateForAllAppWindows(ctx context.Context) error {
	s.mu.Lock()
	var ps pushes
	anyShown := false
	for _, rec := range s.windows {
		if appMainShown(rec, 0, true) {
			anyShown = true
			break
		}
	}
	if anyShown {
		s.toggled = s.toggled[:0]
		for _, id := range s.sortedIDsLocked() {
			if appMainShown(s.windows[id], 0, true) {
				s.toggled = append(s.toggled, id)
			}
		}
		ps = s.minimizeLocked(0, true)
	} else {
		for _, id := range s.toggled {
			rec, ok := s.windows[id]
			if !ok || rec.shown {
				continue
			}
			rec.shown = true
			s.raiseLocked(id)
			agent := rec.agent
			ps = append(ps, func(ctx context.Context) error { return agent.UpdateWindowState(ctx, wm.StateShown) })
			ps = append(ps, s.visibilityLocked(id, true)...)
		}
		s.toggled = nil
		ps = append(ps, s.refocusLocked()...)
	}
	s.mu.Unlock()

	s.deliver(ctx, ps)
	return nil
}

func (s *Service) NotifyScreenshotEvent(ctx context.Context, display wm.DisplayID) error {
	s.mu.Lock()
	var ps pushes
	for _, id := range s.sortedIDsLocked() {
		rec := s.windows[id]
		if !rec.shown || rec.prop.DisplayID != display {
			continue
		}
		agent := rec.agent
		ps = append(ps, func(ctx context.Context) error { return agent.NotifyScreenshot(ctx) })
	}
	s.mu.Unlock()

	s.deliver(ctx, ps)
	return nil
}

// UpdateAvoidAreaListener turns avoid-area pushes for id on or off. Turning
// them on delivers the current system avoid area right away.
func (s *Service) UpdateAvoidAreaListener(ctx context.Context, id wm.WindowID, enable bool) error {
	s.mu.Lock()
	rec, err := s.lookup("UpdateAvoidAreaListener", id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	rec.avoidWatch = enable
	var ps pushes
	if enable {
		area := s.avoidAreaLocked(rec.prop.DisplayID, wm.AvoidAreaSystem)
		agent := rec.agent
		ps = append(ps, func(ctx context.Context) error { return agent.UpdateAvoidArea(ctx, area, wm.AvoidAreaSystem) })
	}
	s.mu.Unlock()

	s.deliver(ctx, ps)
	return nil
}

func (s *Service) GetAvoidArea(ctx context.Context, id wm.WindowID, typ wm.AvoidAreaType) (wm.AvoidArea, error) {
	if typ > wm.AvoidAreaNavigationIndicator {
		return wm.AvoidArea{}, wm.Errorf(wm.CodeInvalidParam, "GetAvoidArea", "avoid area type %d", typ)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.lookup("GetAvoidArea", id)
	if err != nil {
		return wm.AvoidArea{}, err
	}
	if isBar(rec.prop.Type) {
		return wm.AvoidArea{}, nil
	}
	return s.avoidAreaLocked(rec.prop.DisplayID, typ), nil
}

func (s *Service) BindDialogTarget(ctx context.Context, id, target wm.WindowID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.lookup("BindDialogTarget", id)
	if err != nil {
		return err
	}
	if rec.prop.Type != wm.TypeDialog {
		return wm.Errorf(wm.CodeInvalidType, "BindDialogTarget", "%v window", rec.prop.Type)
	}
	if _, err := s.lookup("BindDialogTarget", target); err != nil {
		return err
	}
	if !slices.Contains(s.dialogs[target], id) {
		s.dialogs[target] = append(s.dialogs[target], id)
	}
	return nil
}
