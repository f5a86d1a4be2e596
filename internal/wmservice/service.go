// Package wmservice is the window-management service that clients talk to:
// it hands out window ids, lays windows out on displays, tracks z-order and
// focus, and pushes state changes to each window's agent.
package wmservice

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/1broseidon/winsession/internal/ipc"
	"github.com/1broseidon/winsession/internal/property"
	"github.com/1broseidon/winsession/internal/wm"
)

// Displays reports display geometry to the service.
type Displays interface {
	Display(id wm.DisplayID) (wm.DisplayInfo, error)
}

// Options configures a Service.
type Options struct {
	Logger   *slog.Logger
	Displays Displays
	// RestrictSystemWindows rejects creation of system windows with
	// wm.ErrInvalidPermission.
	RestrictSystemWindows bool
}

// DefaultDisplay is used when no display provider is configured or the
// provider does not know a display.
var DefaultDisplay = wm.DisplayInfo{
	ID:      wm.DefaultDisplayID,
	Name:    "default",
	Bounds:  wm.Rect{Width: 1920, Height: 1080},
	Usable:  wm.Rect{Width: 1920, Height: 1080},
	Density: 1,
}

type record struct {
	prop        *property.WindowProperty
	remote      ipc.Remote
	agent       *ipc.AgentProxy
	removeDeath func()
	shown       bool
	avoidWatch  bool
}

type managerAgent struct {
	remote ipc.Remote
	proxy  *ipc.ManagerAgentProxy
}

// Service implements ipc.WindowManager. A single mutex guards its state;
// pushes to agents are collected under it and delivered after it is
// released, in emission order.
type Service struct {
	logger   *slog.Logger
	displays Displays
	restrict bool

	mu       sync.Mutex
	nextID   wm.WindowID
	windows  map[wm.WindowID]*record
	zorder   []wm.WindowID
	focused  wm.WindowID
	managers map[ipc.ManagerAgentType][]managerAgent
	dialogs  map[wm.WindowID][]wm.WindowID
	toggled  []wm.WindowID
}

var _ ipc.WindowManager = (*Service)(nil)

// New returns an empty service.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:   logger.With("component", "wmservice"),
		displays: opts.Displays,
		restrict: opts.RestrictSystemWindows,
		nextID:   1,
		windows:  make(map[wm.WindowID]*record),
		managers: make(map[ipc.ManagerAgentType][]managerAgent),
		dialogs:  make(map[wm.WindowID][]wm.WindowID),
	}
}

// pushes collects notifications to deliver once the lock is released.
type pushes []func(ctx context.Context) error

func (s *Service) deliver(ctx context.Context, ps pushes) {
	ctx = context.WithoutCancel(ctx)
	for _, p := range ps {
		if err := p(ctx); err != nil {
			s.logger.Debug("push failed", "error", err)
		}
	}
}

func (s *Service) display(id wm.DisplayID) wm.DisplayInfo {
	if s.displays == nil {
		return DefaultDisplay
	}
	info, err := s.displays.Display(id)
	if err != nil {
		return DefaultDisplay
	}
	return info
}

func (s *Service) lookup(op string, id wm.WindowID) (*record, error) {
	rec, ok := s.windows[id]
	if !ok {
		return nil, wm.Errorf(wm.CodeInvalidWindow, op, "window %d", id)
	}
	return rec, nil
}

func (s *Service) CreateWindow(ctx context.Context, agent ipc.Remote, prop *property.WindowProperty) (wm.WindowID, error) {
	if agent == nil || prop == nil {
		return wm.InvalidWindowID, wm.Errorf(wm.CodeNullPtr, "CreateWindow", "missing agent or property")
	}
	if !prop.Type.Valid() {
		return wm.InvalidWindowID, wm.Errorf(wm.CodeInvalidType, "CreateWindow", "type %d", prop.Type)
	}
	if s.restrict && prop.Type.IsSystemWindow() {
		return wm.InvalidWindowID, wm.Errorf(wm.CodeInvalidPermission, "CreateWindow", "%v needs system privilege", prop.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prop.Type.IsSubWindow() {
		parent, ok := s.windows[prop.ParentID]
		if !ok || !parent.prop.Type.CanParent() {
			return wm.InvalidWindowID, wm.Errorf(wm.CodeInvalidParent, "CreateWindow", "parent %d", prop.ParentID)
		}
	}
	if prop.Type.IsSingleInstance() {
		for _, rec := range s.windows {
			if rec.prop.Type == prop.Type {
				return wm.InvalidWindowID, wm.Errorf(wm.CodeRepeatOperation, "CreateWindow", "%v exists", prop.Type)
			}
		}
	}

	id := s.nextID
	s.nextID++
	s.insertLocked(id, agent, prop)
	s.logger.Info("window created", "id", id, "name", prop.Name, "type", prop.Type)
	return id, nil
}

func (s *Service) insertLocked(id wm.WindowID, agent ipc.Remote, prop *property.WindowProperty) {
	p := prop.Clone()
	p.ID = id
	if p.Rect.IsEmpty() {
		p.Rect = s.layout(p)
	}
	rec := &record{prop: p, remote: agent, agent: ipc.NewAgentProxy(agent)}
	rec.removeDeath = agent.AddDeathRecipient(func() { s.onAgentDeath(id, agent) })
	s.windows[id] = rec
	metricWindows.Set(float64(len(s.windows)))
}

func (s *Service) AddWindow(ctx context.Context, prop *property.WindowProperty) error {
	s.mu.Lock()
	rec, err := s.lookup("AddWindow", prop.ID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !prop.ModeSupport.Supports(prop.Mode) {
		s.mu.Unlock()
		return wm.Errorf(wm.CodeInvalidWindowModeOrSize, "AddWindow", "mode %v unsupported", prop.Mode)
	}

	// The client owns the requested fields; the rect stays the service's.
	effective := rec.prop.Rect
	next := prop.Clone()
	next.Rect = effective
	rec.prop = next
	rect := s.layout(rec.prop)
	rec.prop.Rect = rect
	rec.shown = true
	s.raiseLocked(prop.ID)

	ps := pushes{func(ctx context.Context) error {
		return rec.agent.UpdateWindowRect(ctx, rect, rec.prop.Decor == property.DecorEnabled, wm.ReasonUndefined)
	}}
	if rec.prop.Focusable && !rec.prop.Type.IsBelowApp() {
		ps = append(ps, s.focusLocked(prop.ID)...)
	}
	ps = append(ps, s.visibilityLocked(prop.ID, true)...)
	if isBar(rec.prop.Type) {
		ps = append(ps, s.avoidAreaPushesLocked(rec.prop.DisplayID)...)
	}
	s.mu.Unlock()

	s.deliver(ctx, ps)
	return nil
}

func (s *Service) RemoveWindow(ctx context.Context, id wm.WindowID) error {
	s.mu.Lock()
	rec, err := s.lookup("RemoveWindow", id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var ps pushes
	if rec.shown {
		ps = s.hideLocked(id)
	}
	s.mu.Unlock()

	s.deliver(ctx, ps)
	return nil
}

// hideLocked marks id hidden and returns the resulting pushes, not
// including a state push to id itself.
func (s *Service) hideLocked(id wm.WindowID) pushes {
	rec := s.windows[id]
	rec.shown = false
	var ps pushes
	if s.focused == id {
		ps = append(ps, s.refocusLocked()...)
	}
	ps = append(ps, s.visibilityLocked(id, false)...)
	if isBar(rec.prop.Type) {
		ps = append(ps, s.avoidAreaPushesLocked(rec.prop.DisplayID)...)
	}
	return ps
}

func (s *Service) DestroyWindow(ctx context.Context, id wm.WindowID) error {
	s.mu.Lock()
	if _, err := s.lookup("DestroyWindow", id); err != nil {
		s.mu.Unlock()
		return err
	}
	ps := s.destroyLocked(id, true)
	s.mu.Unlock()

	s.deliver(ctx, ps)
	return nil
}

// destroyLocked drops id and every descendant. Descendants are told through
// NotifyDestroy; id itself is told only when its client did not ask for the
// destroy.
func (s *Service) destroyLocked(id wm.WindowID, requested bool) pushes {
	victims := append([]wm.WindowID{id}, s.descendantsLocked(id)...)
	var ps pushes
	refocus := false
	bars := map[wm.DisplayID]bool{}
	for i, vid := range victims {
		rec, ok := s.windows[vid]
		if !ok {
			continue
		}
		if rec.removeDeath != nil {
			rec.removeDeath()
		}
		delete(s.windows, vid)
		delete(s.dialogs, vid)
		s.zorder = slices.DeleteFunc(s.zorder, func(z wm.WindowID) bool { return z == vid })
		s.toggled = slices.DeleteFunc(s.toggled, func(z wm.WindowID) bool { return z == vid })
		for target, ds := range s.dialogs {
			s.dialogs[target] = slices.DeleteFunc(ds, func(d wm.WindowID) bool { return d == vid })
		}
		if s.focused == vid {
			s.focused = wm.InvalidWindowID
			refocus = true
		}
		if rec.shown {
			ps = append(ps, s.visibilityLocked(vid, false)...)
			if isBar(rec.prop.Type) {
				bars[rec.prop.DisplayID] = true
			}
		}
		if i > 0 || !requested {
			agent := rec.agent
			ps = append(ps, func(ctx context.Context) error { return agent.NotifyDestroy(ctx) })
		}
	}
	if refocus {
		ps = append(ps, s.refocusLocked()...)
	}
	for display := range bars {
		ps = append(ps, s.avoidAreaPushesLocked(display)...)
	}
	metricWindows.Set(float64(len(s.windows)))
	s.logger.Info("window destroyed", "id", id, "cascade", len(victims)-1)
	return ps
}

func (s *Service) descendantsLocked(id wm.WindowID) []wm.WindowID {
	var out []wm.WindowID
	for cid, rec := range s.windows {
		if rec.prop.ParentID == id && cid != id {
			out = append(out, cid)
			out = append(out, s.descendantsLocked(cid)...)
		}
	}
	slices.Sort(out)
	return out
}

// onAgentDeath destroys the windows of a client that went away. A stale
// recipient for a recovered window is ignored.
func (s *Service) onAgentDeath(id wm.WindowID, agent ipc.Remote) {
	s.mu.Lock()
	rec, ok := s.windows[id]
	if !ok || rec.remote != agent {
		s.mu.Unlock()
		return
	}
	rec.removeDeath = nil
	ps := s.destroyLocked(id, true)
	s.mu.Unlock()

	metricAgentDeaths.Inc()
	s.logger.Warn("window agent died", "id", id)
	s.deliver(context.Background(), ps)
}

// Sweep destroys windows and drops manager agents whose peer is gone. It
// returns the number of windows removed.
func (s *Service) Sweep(ctx context.Context) int {
	s.mu.Lock()
	var dead []wm.WindowID
	for id, rec := range s.windows {
		if !rec.remote.Alive() {
			dead = append(dead, id)
		}
	}
	slices.Sort(dead)
	var ps pushes
	removed := 0
	for _, id := range dead {
		if _, ok := s.windows[id]; !ok {
			continue
		}
		before := len(s.windows)
		ps = append(ps, s.destroyLocked(id, true)...)
		removed += before - len(s.windows)
	}
	for typ, list := range s.managers {
		s.managers[typ] = slices.DeleteFunc(list, func(m managerAgent) bool { return !m.remote.Alive() })
	}
	s.mu.Unlock()

	s.deliver(ctx, ps)
	return removed
}

func (s *Service) RecoverWindow(ctx context.Context, agent ipc.Remote, prop *property.WindowProperty) error {
	if agent == nil || prop == nil || prop.ID == wm.InvalidWindowID {
		return wm.Errorf(wm.CodeInvalidParam, "RecoverWindow", "missing agent or id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.windows[prop.ID]; ok {
		if rec.remote == agent {
			return nil
		}
		if rec.removeDeath != nil {
			rec.removeDeath()
		}
		delete(s.windows, prop.ID)
	}
	p := prop.Clone()
	p.Rect = wm.Rect{}
	s.insertLocked(prop.ID, agent, p)
	if prop.ID >= s.nextID {
		s.nextID = prop.ID + 1
	}
	s.logger.Info("window recovered", "id", prop.ID, "name", prop.Name)
	return nil
}

func (s *Service) RecordEvent(ctx context.Context, id wm.WindowID, event string) error {
	s.logger.Info("window event", "id", id, "event", event)
	return nil
}

func (s *Service) ListWindowInfo(ctx context.Context) ([]ipc.WindowInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]wm.WindowID, 0, len(s.windows))
	for id := range s.windows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	infos := make([]ipc.WindowInfo, 0, len(ids))
	for _, id := range ids {
		rec := s.windows[id]
		infos = append(infos, ipc.WindowInfo{
			ID:        id,
			ParentID:  rec.prop.ParentID,
			Name:      rec.prop.Name,
			Type:      rec.prop.Type,
			Mode:      rec.prop.Mode,
			Rect:      rec.prop.Rect,
			DisplayID: rec.prop.DisplayID,
			Visible:   rec.shown,
			Focused:   s.focused == id,
		})
	}
	return infos, nil
}

func isBar(t wm.WindowType) bool {
	return t == wm.TypeStatusBar || t == wm.TypeNavigationBar
}
