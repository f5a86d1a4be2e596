package wmservice

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/1broseidon/winsession/internal/ipc"
	"github.com/1broseidon/winsession/internal/property"
	"github.com/1broseidon/winsession/internal/wm"
)

type recordingAgent struct {
	mu            sync.Mutex
	rects         []wm.Rect
	modes         []wm.WindowMode
	focus         []bool
	states        []wm.State
	areas         []wm.AvoidArea
	destroys      int
	outside       int
	screenshots   int
	dialogTouches int
}

func (a *recordingAgent) UpdateWindowRect(ctx context.Context, rect wm.Rect, decorated bool, reason wm.SizeChangeReason) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rects = append(a.rects, rect)
	return nil
}

func (a *recordingAgent) UpdateWindowMode(ctx context.Context, mode wm.WindowMode) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.modes = append(a.modes, mode)
	return nil
}

func (a *recordingAgent) UpdateModeSupport(ctx context.Context, support wm.ModeSupport) error {
	return nil
}

func (a *recordingAgent) UpdateFocusStatus(ctx context.Context, focused bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.focus = append(a.focus, focused)
	return nil
}

func (a *recordingAgent) UpdateAvoidArea(ctx context.Context, area wm.AvoidArea, typ wm.AvoidAreaType) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.areas = append(a.areas, area)
	return nil
}

func (a *recordingAgent) UpdateWindowState(ctx context.Context, state wm.State) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states = append(a.states, state)
	return nil
}

func (a *recordingAgent) UpdateDragEvent(ctx context.Context, point wm.Point, event wm.DragEvent) error {
	return nil
}

func (a *recordingAgent) UpdateDisplayID(ctx context.Context, from, to wm.DisplayID) error {
	return nil
}

func (a *recordingAgent) UpdateOccupiedArea(ctx context.Context, info wm.OccupiedAreaInfo) error {
	return nil
}

func (a *recordingAgent) UpdateActiveStatus(ctx context.Context, active bool) error { return nil }

func (a *recordingAgent) GetWindowProperty(ctx context.Context) (*property.WindowProperty, error) {
	return property.New(), nil
}

func (a *recordingAgent) NotifyTouchOutside(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outside++
	return nil
}

func (a *recordingAgent) NotifyScreenshot(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.screenshots++
	return nil
}

func (a *recordingAgent) NotifyDestroy(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroys++
	return nil
}

func (a *recordingAgent) NotifyTouchDialogTarget(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dialogTouches++
	return nil
}

func (a *recordingAgent) lastFocus() (bool, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.focus) == 0 {
		return false, false
	}
	return a.focus[len(a.focus)-1], true
}

type client struct {
	agent  *recordingAgent
	remote *ipc.LocalRemote
}

func newClient() client {
	a := &recordingAgent{}
	return client{agent: a, remote: ipc.Local(ipc.NewAgentStub(a))}
}

func mainProp(name string) *property.WindowProperty {
	p := property.New()
	p.Name = name
	return p
}

func create(t *testing.T, s *Service, c client, p *property.WindowProperty) *property.WindowProperty {
	t.Helper()
	id, err := s.CreateWindow(context.Background(), c.remote, p)
	if err != nil {
		t.Fatalf("CreateWindow(%s) error = %v", p.Name, err)
	}
	out := p.Clone()
	out.ID = id
	return out
}

func show(t *testing.T, s *Service, p *property.WindowProperty) {
	t.Helper()
	if err := s.AddWindow(context.Background(), p); err != nil {
		t.Fatalf("AddWindow(%s) error = %v", p.Name, err)
	}
}

func TestCreateWindowValidation(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()
	c := newClient()
	create(t, s, c, func() *property.WindowProperty {
		p := mainProp("bar")
		p.Type = wm.TypeStatusBar
		return p
	}())

	tests := []struct {
		name string
		prop func() *property.WindowProperty
		want error
	}{
		{
			name: "invalid type",
			prop: func() *property.WindowProperty { p := mainProp("x"); p.Type = 500; return p },
			want: wm.ErrInvalidType,
		},
		{
			name: "orphan sub-window",
			prop: func() *property.WindowProperty {
				p := mainProp("sub")
				p.Type = wm.TypeAppSubWindow
				p.ParentID = 99
				return p
			},
			want: wm.ErrInvalidParent,
		},
		{
			name: "second status bar",
			prop: func() *property.WindowProperty { p := mainProp("bar2"); p.Type = wm.TypeStatusBar; return p },
			want: wm.ErrRepeatOperation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateWindow(ctx, newClient().remote, tt.prop())
			if !errors.Is(err, tt.want) {
				t.Fatalf("CreateWindow() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateWindowAllocatesIncreasingIDs(t *testing.T) {
	s := New(Options{})
	a := create(t, s, newClient(), mainProp("a"))
	b := create(t, s, newClient(), mainProp("b"))
	if a.ID == wm.InvalidWindowID || b.ID <= a.ID {
		t.Fatalf("ids = %d, %d, want increasing and non-zero", a.ID, b.ID)
	}
}

func TestRestrictSystemWindows(t *testing.T) {
	s := New(Options{RestrictSystemWindows: true})
	p := mainProp("panel")
	p.Type = wm.TypePanel
	if _, err := s.CreateWindow(context.Background(), newClient().remote, p); !errors.Is(err, wm.ErrInvalidPermission) {
		t.Fatalf("CreateWindow() error = %v, want %v", err, wm.ErrInvalidPermission)
	}
	if _, err := s.CreateWindow(context.Background(), newClient().remote, mainProp("app")); err != nil {
		t.Fatalf("CreateWindow(app) error = %v", err)
	}
}

func TestAddWindowLaysOutAndMovesFocus(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()
	ca, cb := newClient(), newClient()
	a := create(t, s, ca, mainProp("a"))
	b := create(t, s, cb, mainProp("b"))

	show(t, s, a)
	if got := ca.agent.rects; len(got) != 1 || got[0] != DefaultDisplay.Usable {
		t.Fatalf("rect pushes = %v, want [%v]", got, DefaultDisplay.Usable)
	}
	if f, ok := ca.agent.lastFocus(); !ok || !f {
		t.Fatalf("a focused = %v, want true", f)
	}

	show(t, s, b)
	if f, _ := ca.agent.lastFocus(); f {
		t.Fatalf("a still focused after b shown")
	}
	if f, _ := cb.agent.lastFocus(); !f {
		t.Fatalf("b not focused after show")
	}

	if err := s.RemoveWindow(ctx, b.ID); err != nil {
		t.Fatalf("RemoveWindow() error = %v", err)
	}
	if f, _ := ca.agent.lastFocus(); !f {
		t.Fatalf("focus did not return to a")
	}
}

func TestAddWindowRejectsUnsupportedMode(t *testing.T) {
	s := New(Options{})
	p := mainProp("a")
	p.ModeSupport = wm.SupportFullscreen
	a := create(t, s, newClient(), p)
	a.Mode = wm.ModeFloating
	if err := s.AddWindow(context.Background(), a); !errors.Is(err, wm.ErrInvalidWindowModeOrSize) {
		t.Fatalf("AddWindow() error = %v, want %v", err, wm.ErrInvalidWindowModeOrSize)
	}
}

func TestDestroyWindowCascades(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()
	cm, cs := newClient(), newClient()
	m := create(t, s, cm, mainProp("main"))
	sp := mainProp("sub")
	sp.Type = wm.TypeAppSubWindow
	sp.ParentID = m.ID
	create(t, s, cs, sp)

	if err := s.DestroyWindow(ctx, m.ID); err != nil {
		t.Fatalf("DestroyWindow() error = %v", err)
	}
	if cs.agent.destroys != 1 {
		t.Fatalf("sub-window destroy pushes = %d, want 1", cs.agent.destroys)
	}
	if cm.agent.destroys != 0 {
		t.Fatalf("requester destroy pushes = %d, want 0", cm.agent.destroys)
	}
	infos, _ := s.ListWindowInfo(ctx)
	if len(infos) != 0 {
		t.Fatalf("ListWindowInfo() = %v, want empty", infos)
	}
	if err := s.DestroyWindow(ctx, m.ID); !errors.Is(err, wm.ErrInvalidWindow) {
		t.Fatalf("second DestroyWindow() error = %v, want %v", err, wm.ErrInvalidWindow)
	}
}

func TestAgentDeathDestroysWindows(t *testing.T) {
	s := New(Options{})
	c := newClient()
	create(t, s, c, mainProp("a"))
	other := create(t, s, newClient(), mainProp("b"))

	c.remote.Kill()

	infos, _ := s.ListWindowInfo(context.Background())
	if len(infos) != 1 || infos[0].ID != other.ID {
		t.Fatalf("ListWindowInfo() = %v, want only %d", infos, other.ID)
	}
}

// silentRemote reports death through Alive only, the way a peer that vanished
// without closing its connection looks.
type silentRemote struct {
	ipc.Remote
	dead atomic.Bool
}

func (r *silentRemote) Alive() bool { return !r.dead.Load() }

func TestSweepRemovesUnreachableWindows(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()
	r := &silentRemote{Remote: newClient().remote}
	if _, err := s.CreateWindow(ctx, r, mainProp("ghost")); err != nil {
		t.Fatalf("CreateWindow() error = %v", err)
	}
	create(t, s, newClient(), mainProp("live"))

	if n := s.Sweep(ctx); n != 0 {
		t.Fatalf("Sweep() = %d, want 0", n)
	}
	r.dead.Store(true)
	if n := s.Sweep(ctx); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
}

func TestToggleShownStateForAllAppWindows(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()
	ca, cb := newClient(), newClient()
	a := create(t, s, ca, mainProp("a"))
	b := create(t, s, cb, mainProp("b"))
	show(t, s, a)
	show(t, s, b)

	if err := s.ToggleShownStateForAllAppWindows(ctx); err != nil {
		t.Fatalf("ToggleShownStateForAllAppWindows() error = %v", err)
	}
	for name, c := range map[string]client{"a": ca, "b": cb} {
		if got := c.agent.states; len(got) != 1 || got[0] != wm.StateHidden {
			t.Fatalf("%s states = %v, want [hidden]", name, got)
		}
	}
	infos, _ := s.ListWindowInfo(ctx)
	for _, info := range infos {
		if info.Visible {
			t.Fatalf("window %d still visible after toggle", info.ID)
		}
	}

	if err := s.ToggleShownStateForAllAppWindows(ctx); err != nil {
		t.Fatalf("ToggleShownStateForAllAppWindows() error = %v", err)
	}
	if got := ca.agent.states; len(got) != 2 || got[1] != wm.StateShown {
		t.Fatalf("a states = %v, want [hidden shown]", got)
	}
}

func TestMinimizeAllSkipsOtherDisplays(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()
	ca, cb := newClient(), newClient()
	a := create(t, s, ca, mainProp("a"))
	pb := mainProp("b")
	pb.DisplayID = 1
	b := create(t, s, cb, pb)
	show(t, s, a)
	show(t, s, b)

	if err := s.MinimizeAllAppWindows(ctx, wm.DefaultDisplayID); err != nil {
		t.Fatalf("MinimizeAllAppWindows() error = %v", err)
	}
	if len(ca.agent.states) != 1 {
		t.Fatalf("a states = %v, want one hide", ca.agent.states)
	}
	if len(cb.agent.states) != 0 {
		t.Fatalf("b states = %v, want none", cb.agent.states)
	}
}

func TestAvoidAreaFollowsStatusBar(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()
	cm := newClient()
	m := create(t, s, cm, mainProp("main"))
	if err := s.UpdateAvoidAreaListener(ctx, m.ID, true); err != nil {
		t.Fatalf("UpdateAvoidAreaListener() error = %v", err)
	}
	if got := cm.agent.areas; len(got) != 1 || !got[0].IsEmpty() {
		t.Fatalf("initial areas = %v, want one empty", got)
	}

	bp := mainProp("status")
	bp.Type = wm.TypeStatusBar
	bar := create(t, s, newClient(), bp)
	show(t, s, bar)

	want := wm.Rect{Width: 1920, Height: barHeight}
	if got := cm.agent.areas; len(got) != 2 || got[1].Top != want {
		t.Fatalf("areas = %v, want second with top %v", got, want)
	}
	area, err := s.GetAvoidArea(ctx, m.ID, wm.AvoidAreaSystem)
	if err != nil || area.Top != want {
		t.Fatalf("GetAvoidArea() = %v, %v, want top %v", area, err, want)
	}
}

func TestUpdatePropertyValidation(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()
	p := mainProp("a")
	p.ModeSupport = wm.SupportFullscreen
	a := create(t, s, newClient(), p)

	mode := a.Clone()
	mode.Mode = wm.ModeFloating
	if err := s.UpdateProperty(ctx, mode, property.ActionMode); !errors.Is(err, wm.ErrInvalidWindowModeOrSize) {
		t.Fatalf("UpdateProperty(mode) error = %v, want %v", err, wm.ErrInvalidWindowModeOrSize)
	}
	rect := a.Clone()
	rect.RequestRect = wm.Rect{Width: 10, Height: 10}
	if err := s.UpdateProperty(ctx, rect, property.ActionRect); !errors.Is(err, wm.ErrInvalidOperation) {
		t.Fatalf("UpdateProperty(rect) error = %v, want %v", err, wm.ErrInvalidOperation)
	}
	ghost := a.Clone()
	ghost.ID = 42
	if err := s.UpdateProperty(ctx, ghost, property.ActionFlags); !errors.Is(err, wm.ErrInvalidWindow) {
		t.Fatalf("UpdateProperty(unknown) error = %v, want %v", err, wm.ErrInvalidWindow)
	}
}

func TestUpdatePropertyMovesFloatingWindow(t *testing.T) {
	s := New(Options{})
	c := newClient()
	p := mainProp("float")
	p.Mode = wm.ModeFloating
	f := create(t, s, c, p)
	show(t, s, f)

	next := f.Clone()
	next.RequestRect = wm.Rect{X: 10, Y: 20, Width: 300, Height: 200}
	next.SizeChangeReason = wm.ReasonMove
	if err := s.UpdateProperty(context.Background(), next, property.ActionRect); err != nil {
		t.Fatalf("UpdateProperty() error = %v", err)
	}
	got := c.agent.rects[len(c.agent.rects)-1]
	if got != next.RequestRect {
		t.Fatalf("last rect = %v, want %v", got, next.RequestRect)
	}
}

func TestGetTopWindowID(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()
	m := create(t, s, newClient(), mainProp("main"))
	show(t, s, m)

	if got, err := s.GetTopWindowID(ctx, m.ID); err != nil || got != m.ID {
		t.Fatalf("GetTopWindowID() = %d, %v, want %d", got, err, m.ID)
	}

	sp := mainProp("sub")
	sp.Type = wm.TypeAppSubWindow
	sp.ParentID = m.ID
	sub := create(t, s, newClient(), sp)
	show(t, s, sub)
	if got, _ := s.GetTopWindowID(ctx, m.ID); got != sub.ID {
		t.Fatalf("GetTopWindowID() = %d, want %d", got, sub.ID)
	}
	if _, err := s.GetTopWindowID(ctx, 0); !errors.Is(err, wm.ErrInvalidWindow) {
		t.Fatalf("GetTopWindowID(0) error = %v, want %v", err, wm.ErrInvalidWindow)
	}
}

func TestPointDownNotifications(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()
	cm, cw, cd := newClient(), newClient(), newClient()
	m := create(t, s, cm, mainProp("main"))
	wp := mainProp("watcher")
	wp.AddFlag(wm.FlagWatchOutside)
	w := create(t, s, cw, wp)
	dp := mainProp("dialog")
	dp.Type = wm.TypeDialog
	d := create(t, s, cd, dp)
	show(t, s, m)
	show(t, s, w)

	if err := s.BindDialogTarget(ctx, m.ID, d.ID); !errors.Is(err, wm.ErrInvalidType) {
		t.Fatalf("BindDialogTarget(non-dialog) error = %v, want %v", err, wm.ErrInvalidType)
	}
	if err := s.BindDialogTarget(ctx, d.ID, m.ID); err != nil {
		t.Fatalf("BindDialogTarget() error = %v", err)
	}
	if err := s.ProcessPointDown(ctx, m.ID, true); err != nil {
		t.Fatalf("ProcessPointDown() error = %v", err)
	}
	if cw.agent.outside != 1 {
		t.Fatalf("touch-outside pushes = %d, want 1", cw.agent.outside)
	}
	if cd.agent.dialogTouches != 1 {
		t.Fatalf("dialog target pushes = %d, want 1", cd.agent.dialogTouches)
	}
	if f, _ := cm.agent.lastFocus(); !f {
		t.Fatalf("touched window not focused")
	}
}

func TestRecoverWindowKeepsID(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()
	p := mainProp("survivor")
	p.ID = 7
	if err := s.RecoverWindow(ctx, newClient().remote, p); err != nil {
		t.Fatalf("RecoverWindow() error = %v", err)
	}
	infos, _ := s.ListWindowInfo(ctx)
	if len(infos) != 1 || infos[0].ID != 7 || infos[0].Name != "survivor" {
		t.Fatalf("ListWindowInfo() = %v, want window 7", infos)
	}
	next := create(t, s, newClient(), mainProp("next"))
	if next.ID != 8 {
		t.Fatalf("next id = %d, want 8", next.ID)
	}
	p.ID = 0
	if err := s.RecoverWindow(ctx, newClient().remote, p); !errors.Is(err, wm.ErrInvalidParam) {
		t.Fatalf("RecoverWindow(no id) error = %v, want %v", err, wm.ErrInvalidParam)
	}
}

type focusRecorder struct {
	mu     sync.Mutex
	events []ipc.FocusChangeInfo
	gained []bool
}

func (f *focusRecorder) UpdateFocusChanged(ctx context.Context, info ipc.FocusChangeInfo, focused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, info)
	f.gained = append(f.gained, focused)
	return nil
}

func (f *focusRecorder) UpdateWindowVisibility(ctx context.Context, infos []ipc.VisibilityInfo) error {
	return nil
}

func (f *focusRecorder) UpdateSystemBarTints(ctx context.Context, display wm.DisplayID, tints []ipc.SystemBarTint) error {
	return nil
}

func TestManagerAgentHearsFocus(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()
	rec := &focusRecorder{}
	remote := ipc.Local(ipc.NewManagerAgentStub(rec))
	if err := s.RegisterManagerAgent(ctx, ipc.ManagerAgentFocus, remote); err != nil {
		t.Fatalf("RegisterManagerAgent() error = %v", err)
	}
	if err := s.RegisterManagerAgent(ctx, 0, remote); !errors.Is(err, wm.ErrInvalidParam) {
		t.Fatalf("RegisterManagerAgent(0) error = %v, want %v", err, wm.ErrInvalidParam)
	}

	a := create(t, s, newClient(), mainProp("a"))
	show(t, s, a)
	if len(rec.events) != 1 || rec.events[0].WindowID != a.ID || !rec.gained[0] {
		t.Fatalf("focus events = %v %v, want gain of %d", rec.events, rec.gained, a.ID)
	}

	if err := s.UnregisterManagerAgent(ctx, ipc.ManagerAgentFocus, remote); err != nil {
		t.Fatalf("UnregisterManagerAgent() error = %v", err)
	}
	b := create(t, s, newClient(), mainProp("b"))
	show(t, s, b)
	if len(rec.events) != 1 {
		t.Fatalf("focus events after unregister = %d, want 1", len(rec.events))
	}
}

func TestScreenshotReachesShownWindows(t *testing.T) {
	s := New(Options{})
	ca, cb := newClient(), newClient()
	a := create(t, s, ca, mainProp("a"))
	create(t, s, cb, mainProp("b"))
	show(t, s, a)

	if err := s.NotifyScreenshotEvent(context.Background(), wm.DefaultDisplayID); err != nil {
		t.Fatalf("NotifyScreenshotEvent() error = %v", err)
	}
	if ca.agent.screenshots != 1 || cb.agent.screenshots != 0 {
		t.Fatalf("screenshots = %d, %d, want 1, 0", ca.agent.screenshots, cb.agent.screenshots)
	}
}
