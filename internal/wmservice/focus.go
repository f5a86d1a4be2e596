package wmservice

import (
	"context"
	"slices"

	"github.com/1broseidon/winsession/internal/ipc"
	"github.com/1broseidon/winsession/internal/wm"
)

func (s *Service) sortedIDsLocked() []wm.WindowID {
	ids := make([]wm.WindowID, 0, len(s.windows))
	for id := range s.windows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// raiseLocked moves id to the top of the z-order.
func (s *Service) raiseLocked(id wm.WindowID) {
	s.zorder = slices.DeleteFunc(s.zorder, func(z wm.WindowID) bool { return z == id })
	s.zorder = append(s.zorder, id)
}

func (s *Service) focusInfo(id wm.WindowID) ipc.FocusChangeInfo {
	rec := s.windows[id]
	return ipc.FocusChangeInfo{WindowID: id, DisplayID: rec.prop.DisplayID, Type: rec.prop.Type}
}

// focusLocked gives focus to id and returns the pushes telling the old and
// new holders and the focus manager agents.
func (s *Service) focusLocked(id wm.WindowID) pushes {
	if s.focused == id {
		return nil
	}
	var ps pushes
	if old, ok := s.windows[s.focused]; ok {
		info := s.focusInfo(s.focused)
		agent := old.agent
		ps = append(ps, func(ctx context.Context) error { return agent.UpdateFocusStatus(ctx, false) })
		ps = append(ps, s.managerPushesLocked(ipc.ManagerAgentFocus, func(ctx context.Context, m *ipc.ManagerAgentProxy) error {
			return m.UpdateFocusChanged(ctx, info, false)
		})...)
	}
	s.focused = id
	metricFocusChanges.Inc()

	rec := s.windows[id]
	info := s.focusInfo(id)
	agent := rec.agent
	ps = append(ps, func(ctx context.Context) error { return agent.UpdateFocusStatus(ctx, true) })
	ps = append(ps, s.managerPushesLocked(ipc.ManagerAgentFocus, func(ctx context.Context, m *ipc.ManagerAgentProxy) error {
		return m.UpdateFocusChanged(ctx, info, true)
	})...)
	ps = append(ps, s.tintPushesLocked(id)...)
	return ps
}

// refocusLocked hands focus to the topmost shown focusable window, or
// clears it when there is none.
func (s *Service) refocusLocked() pushes {
	for i := len(s.zorder) - 1; i >= 0; i-- {
		id := s.zorder[i]
		rec, ok := s.windows[id]
		if !ok || !rec.shown || !rec.prop.Focusable || rec.prop.Type.IsBelowApp() {
			continue
		}
		if id == s.focused {
			return nil
		}
		return s.focusLocked(id)
	}

	old, ok := s.windows[s.focused]
	s.focused = wm.InvalidWindowID
	if !ok {
		return nil
	}
	agent := old.agent
	return pushes{func(ctx context.Context) error { return agent.UpdateFocusStatus(ctx, false) }}
}

func (s *Service) visibilityLocked(id wm.WindowID, visible bool) pushes {
	infos := []ipc.VisibilityInfo{{WindowID: id, Visible: visible}}
	return s.managerPushesLocked(ipc.ManagerAgentVisibility, func(ctx context.Context, m *ipc.ManagerAgentProxy) error {
		return m.UpdateWindowVisibility(ctx, infos)
	})
}

// tintPushesLocked reports the system bar style of the focused window.
func (s *Service) tintPushesLocked(id wm.WindowID) pushes {
	rec, ok := s.windows[id]
	if !ok {
		return nil
	}
	display := rec.prop.DisplayID
	var tints []ipc.SystemBarTint
	for _, bar := range []wm.WindowType{wm.TypeStatusBar, wm.TypeNavigationBar} {
		tint := ipc.SystemBarTint{Bar: bar, Prop: rec.prop.SystemBar(bar)}
		for _, other := range s.windows {
			if other.prop.Type == bar && other.prop.DisplayID == display {
				tint.Region = other.prop.Rect
			}
		}
		tints = append(tints, tint)
	}
	return s.managerPushesLocked(ipc.ManagerAgentSystemBar, func(ctx context.Context, m *ipc.ManagerAgentProxy) error {
		return m.UpdateSystemBarTints(ctx, display, tints)
	})
}

func (s *Service) managerPushesLocked(typ ipc.ManagerAgentType, fn func(ctx context.Context, m *ipc.ManagerAgentProxy) error) pushes {
	list := s.managers[typ]
	ps := make(pushes, 0, len(list))
	for _, m := range list {
		proxy := m.proxy
		ps = append(ps, func(ctx context.Context) error { return fn(ctx, proxy) })
	}
	return ps
}

func (s *Service) RequestFocus(ctx context.Context, id wm.WindowID) error {
	s.mu.Lock()
	rec, err := s.lookup("RequestFocus", id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !rec.shown || !rec.prop.Focusable {
		s.mu.Unlock()
		return wm.Errorf(wm.CodeInvalidOperation, "RequestFocus", "window %d cannot take focus", id)
	}
	s.raiseLocked(id)
	ps := s.focusLocked(id)
	s.mu.Unlock()

	s.deliver(ctx, ps)
	return nil
}

func (s *Service) RegisterManagerAgent(ctx context.Context, typ ipc.ManagerAgentType, agent ipc.Remote) error {
	if typ < ipc.ManagerAgentFocus || typ > ipc.ManagerAgentSystemBar {
		return wm.Errorf(wm.CodeInvalidParam, "RegisterManagerAgent", "agent type %d", typ)
	}
	if agent == nil {
		return wm.Errorf(wm.CodeNullPtr, "RegisterManagerAgent", "nil agent")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.managers[typ] {
		if m.remote == agent {
			return nil
		}
	}
	s.managers[typ] = append(s.managers[typ], managerAgent{remote: agent, proxy: ipc.NewManagerAgentProxy(agent)})
	agent.AddDeathRecipient(func() { s.dropManager(typ, agent) })
	return nil
}

func (s *Service) UnregisterManagerAgent(ctx context.Context, typ ipc.ManagerAgentType, agent ipc.Remote) error {
	if typ < ipc.ManagerAgentFocus || typ > ipc.ManagerAgentSystemBar {
		return wm.Errorf(wm.CodeInvalidParam, "UnregisterManagerAgent", "agent type %d", typ)
	}
	s.dropManager(typ, agent)
	return nil
}

func (s *Service) dropManager(typ ipc.ManagerAgentType, agent ipc.Remote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.managers[typ] = slices.DeleteFunc(s.managers[typ], func(m managerAgent) bool { return m.remote == agent })
}

// GetTopWindowID returns the topmost shown window among mainID and its
// sub-windows, or mainID itself when none is shown.
func (s *Service) GetTopWindowID(ctx context.Context, mainID wm.WindowID) (wm.WindowID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup("GetTopWindowID", mainID); err != nil {
		return wm.InvalidWindowID, err
	}
	for i := len(s.zorder) - 1; i >= 0; i-- {
		id := s.zorder[i]
		rec, ok := s.windows[id]
		if !ok || !rec.shown {
			continue
		}
		if id == mainID || rec.prop.ParentID == mainID {
			return id, nil
		}
	}
	return mainID, nil
}

// ProcessPointDown focuses and raises the touched window, tells windows
// watching for outside touches, and tells dialogs bound to it.
func (s *Service) ProcessPointDown(ctx context.Context, id wm.WindowID, isPointDown bool) error {
	s.mu.Lock()
	rec, err := s.lookup("ProcessPointDown", id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !isPointDown {
		s.mu.Unlock()
		return nil
	}

	var ps pushes
	if rec.shown && rec.prop.Focusable && !rec.prop.Type.IsBelowApp() {
		s.raiseLocked(id)
		ps = append(ps, s.focusLocked(id)...)
	}
	for _, oid := range s.sortedIDsLocked() {
		other := s.windows[oid]
		if oid == id || !other.shown || !other.prop.HasFlag(wm.FlagWatchOutside) {
			continue
		}
		agent := other.agent
		ps = append(ps, func(ctx context.Context) error { return agent.NotifyTouchOutside(ctx) })
	}
	for _, did := range s.dialogs[id] {
		if d, ok := s.windows[did]; ok {
			agent := d.agent
			ps = append(ps, func(ctx context.Context) error { return agent.NotifyTouchDialogTarget(ctx) })
		}
	}
	s.mu.Unlock()

	s.deliver(ctx, ps)
	return nil
}

func (s *Service) ProcessPointUp(ctx context.Context, id wm.WindowID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.lookup("ProcessPointUp", id)
	return err
}
