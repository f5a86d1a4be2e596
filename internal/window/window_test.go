package window

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1broseidon/winsession/internal/adapter"
	"github.com/1broseidon/winsession/internal/ipc"
	"github.com/1broseidon/winsession/internal/listener"
	"github.com/1broseidon/winsession/internal/property"
	"github.com/1broseidon/winsession/internal/wm"
	"github.com/1broseidon/winsession/internal/wmservice"
)

// countingService wraps the real service and counts the calls the tests
// care about. UpdateProperty can be made to fail.
type countingService struct {
	ipc.WindowManager
	adds        atomic.Int32
	removes     atomic.Int32
	recovers    atomic.Int32
	failUpdates atomic.Bool
}

func (c *countingService) AddWindow(ctx context.Context, prop *property.WindowProperty) error {
	c.adds.Add(1)
	return c.WindowManager.AddWindow(ctx, prop)
}

func (c *countingService) RemoveWindow(ctx context.Context, id wm.WindowID) error {
	c.removes.Add(1)
	return c.WindowManager.RemoveWindow(ctx, id)
}

func (c *countingService) RecoverWindow(ctx context.Context, agent ipc.Remote, prop *property.WindowProperty) error {
	c.recovers.Add(1)
	return c.WindowManager.RecoverWindow(ctx, agent, prop)
}

func (c *countingService) UpdateProperty(ctx context.Context, prop *property.WindowProperty, action property.Action) error {
	if c.failUpdates.Load() {
		return wm.ErrSystemAbnormally
	}
	return c.WindowManager.UpdateProperty(ctx, prop, action)
}

// harness runs windows against a fresh in-process service. Every connect
// starts a new service, the way a restarted service process looks.
type harness struct {
	env *Env
	ad  *adapter.Adapter

	mu       sync.Mutex
	svc      *countingService
	remote   *ipc.LocalRemote
	connects int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{}
	h.ad = adapter.New(func(ctx context.Context) (ipc.Remote, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.svc = &countingService{WindowManager: wmservice.New(wmservice.Options{})}
		h.remote = ipc.Local(ipc.NewServiceStub(h.svc))
		h.connects++
		return h.remote, nil
	}, nil)
	h.env = NewEnv(h.ad, EnvOptions{})
	t.Cleanup(func() {
		h.env.Teardown(context.Background())
		h.ad.Close()
	})
	return h
}

func (h *harness) service() *countingService {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.svc
}

func (h *harness) kill() {
	h.mu.Lock()
	r := h.remote
	h.mu.Unlock()
	r.Kill()
}

func (h *harness) create(t *testing.T, opt Option) *Window {
	t.Helper()
	w, err := Create(context.Background(), h.env, opt)
	if err != nil {
		t.Fatalf("Create(%s) error = %v", opt.Name, err)
	}
	return w
}

type recorder struct {
	mu     sync.Mutex
	events []listener.Event
}

func (r *recorder) OnWindowEvent(id wm.WindowID, ev listener.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(kind listener.LifecycleKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if lc, ok := ev.(listener.LifecycleEvent); ok && lc.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) sizeChanges() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if _, ok := ev.(listener.SizeChangeEvent); ok {
			n++
		}
	}
	return n
}

func watch(t *testing.T, w *Window, cats ...listener.Category) *recorder {
	t.Helper()
	r := &recorder{}
	for _, cat := range cats {
		if err := w.RegisterListener(cat, r); err != nil {
			t.Fatalf("RegisterListener(%v) error = %v", cat, err)
		}
	}
	return r
}

func TestShowHideDestroy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.create(t, Option{Name: "W1"})
	rec := watch(t, w, listener.CategoryLifecycle)

	if err := w.Show(ctx, 0, false); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	if got := rec.count(listener.AfterForeground); got != 1 {
		t.Fatalf("AfterForeground = %d, want 1", got)
	}
	if w.State() != wm.StateShown {
		t.Fatalf("State() = %v, want shown", w.State())
	}

	if err := w.Hide(ctx, 0, false); err != nil {
		t.Fatalf("Hide() error = %v", err)
	}
	if got := rec.count(listener.AfterBackground); got != 1 {
		t.Fatalf("AfterBackground = %d, want 1", got)
	}

	if err := w.Destroy(ctx); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if _, ok := h.env.Find("W1"); ok {
		t.Fatalf("Find(W1) found a destroyed window")
	}
	if got := rec.count(listener.BeforeDestroy); got != 1 {
		t.Fatalf("BeforeDestroy = %d, want 1", got)
	}
	if err := w.Show(ctx, 0, false); !errors.Is(err, wm.ErrInvalidWindow) {
		t.Fatalf("Show() after destroy error = %v, want %v", err, wm.ErrInvalidWindow)
	}
	if err := w.Destroy(ctx); err != nil {
		t.Fatalf("second Destroy() error = %v", err)
	}
}

func TestShowAndHideAreIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.create(t, Option{Name: "twice"})
	rec := watch(t, w, listener.CategoryLifecycle)

	if err := w.Hide(ctx, 0, false); err != nil {
		t.Fatalf("Hide() before show error = %v", err)
	}
	for range 2 {
		if err := w.Show(ctx, 0, false); err != nil {
			t.Fatalf("Show() error = %v", err)
		}
	}
	for range 2 {
		if err := w.Hide(ctx, 0, false); err != nil {
			t.Fatalf("Hide() error = %v", err)
		}
	}
	svc := h.service()
	if got := svc.adds.Load(); got != 1 {
		t.Fatalf("AddWindow calls = %d, want 1", got)
	}
	if got := svc.removes.Load(); got != 1 {
		t.Fatalf("RemoveWindow calls = %d, want 1", got)
	}
	if fg, bg := rec.count(listener.AfterForeground), rec.count(listener.AfterBackground); fg != 1 || bg != 1 {
		t.Fatalf("foreground/background = %d/%d, want 1/1", fg, bg)
	}
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	main := h.create(t, Option{Name: "main"})
	h.create(t, Option{Name: "desktop", Type: wm.TypeDesktop})

	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{"empty name", Option{}, wm.ErrInvalidParam},
		{"unknown type", Option{Name: "x", Type: 500}, wm.ErrInvalidType},
		{"name taken", Option{Name: "main"}, wm.ErrRepeatOperation},
		{"second desktop", Option{Name: "desktop2", Type: wm.TypeDesktop}, wm.ErrRepeatOperation},
		{"sub without parent", Option{Name: "sub", Type: wm.TypeAppSubWindow}, wm.ErrInvalidParent},
		{"sub of unknown parent", Option{Name: "sub", Type: wm.TypeAppSubWindow, ParentID: 99}, wm.ErrInvalidParent},
		{"main with parent", Option{Name: "m2", ParentID: main.ID()}, wm.ErrInvalidParent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Create(context.Background(), h.env, tt.opt)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParentVisibilityCascades(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.create(t, Option{Name: "P"})
	c := h.create(t, Option{Name: "C", Type: wm.TypeAppSubWindow, ParentID: p.ID()})
	rec := watch(t, c, listener.CategoryLifecycle)

	if err := p.Show(ctx, 0, false); err != nil {
		t.Fatalf("P.Show() error = %v", err)
	}
	if err := c.Show(ctx, 0, false); err != nil {
		t.Fatalf("C.Show() error = %v", err)
	}
	if !c.Visible() {
		t.Fatalf("C not visible after show")
	}

	if err := p.Hide(ctx, 0, false); err != nil {
		t.Fatalf("P.Hide() error = %v", err)
	}
	if got := rec.count(listener.AfterBackground); got != 1 {
		t.Fatalf("C AfterBackground = %d, want 1", got)
	}
	if c.State() != wm.StateShown || c.SubWindowState() != wm.StateHidden {
		t.Fatalf("C state/sub-state = %v/%v, want shown/hidden", c.State(), c.SubWindowState())
	}

	if err := p.Show(ctx, 0, false); err != nil {
		t.Fatalf("P.Show() error = %v", err)
	}
	if got := rec.count(listener.AfterForeground); got != 2 {
		t.Fatalf("C AfterForeground = %d, want 2", got)
	}
	if !c.Visible() {
		t.Fatalf("C not visible after parent shown again")
	}
}

func TestSubWindowShownUnderHiddenParentIsSuppressed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.create(t, Option{Name: "P"})
	c := h.create(t, Option{Name: "C", Type: wm.TypeAppSubWindow, ParentID: p.ID()})
	rec := watch(t, c, listener.CategoryLifecycle)

	if err := c.Show(ctx, 0, false); err != nil {
		t.Fatalf("C.Show() error = %v", err)
	}
	if c.Visible() || rec.count(listener.AfterForeground) != 0 {
		t.Fatalf("C visible under a hidden parent")
	}
	if err := p.Show(ctx, 0, false); err != nil {
		t.Fatalf("P.Show() error = %v", err)
	}
	if !c.Visible() || rec.count(listener.AfterForeground) != 1 {
		t.Fatalf("C not revealed with its parent")
	}
}

func TestConcurrentParentAndChildVisibilityAgree(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		parent := h.create(t, Option{Name: fmt.Sprintf("parent%d", i)})
		child := h.create(t, Option{Name: fmt.Sprintf("child%d", i), Type: wm.TypeAppSubWindow, ParentID: parent.ID()})
		parentShown := i%2 == 0
		if parentShown {
			if err := parent.Show(ctx, 0, false); err != nil {
				t.Fatalf("parent Show() error = %v", err)
			}
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if parentShown {
				_ = parent.Hide(ctx, 0, false)
			} else {
				_ = parent.Show(ctx, 0, false)
			}
		}()
		go func() {
			defer wg.Done()
			_ = child.Show(ctx, 0, false)
		}()
		wg.Wait()

		if child.State() != wm.StateShown {
			t.Fatalf("child state = %v, want shown", child.State())
		}
		if child.Visible() != parent.Visible() {
			t.Fatalf("round %d: parent visible = %v, child visible = %v", i, parent.Visible(), child.Visible())
		}
	}
}

func TestShowRejectsUnsupportedModeLocally(t *testing.T) {
	h := newHarness(t)
	w := h.create(t, Option{Name: "split-only", Mode: wm.ModeFullscreen, ModeSupport: wm.SupportSplit})
	rec := watch(t, w, listener.CategoryLifecycle)

	if err := w.Show(context.Background(), 0, false); !errors.Is(err, wm.ErrInvalidWindowModeOrSize) {
		t.Fatalf("Show() error = %v, want %v", err, wm.ErrInvalidWindowModeOrSize)
	}
	if got := h.service().adds.Load(); got != 0 {
		t.Fatalf("AddWindow calls = %d, want 0", got)
	}
	if w.State() != wm.StateCreated || rec.count(listener.AfterForeground) != 0 {
		t.Fatalf("window changed state after a rejected show")
	}
}

func TestFailedUpdateRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.create(t, Option{Name: "w"})
	before := w.Property()

	h.service().failUpdates.Store(true)
	if err := w.SetBrightness(ctx, 0.5); err == nil {
		t.Fatalf("SetBrightness() error = nil, want failure")
	}
	if err := w.AddFlag(ctx, wm.FlagNeedAvoid); err == nil {
		t.Fatalf("AddFlag() error = nil, want failure")
	}
	if !w.Property().Equal(before) {
		t.Fatalf("Property() = %v, want %v", w.Property(), before)
	}

	h.service().failUpdates.Store(false)
	if err := w.SetBrightness(ctx, 0.5); err != nil {
		t.Fatalf("SetBrightness() error = %v", err)
	}
	if got := w.Property().Brightness; got != 0.5 {
		t.Fatalf("Brightness = %v, want 0.5", got)
	}
}

func TestMutatorValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.create(t, Option{Name: "w"})
	sub := h.create(t, Option{Name: "s", Type: wm.TypeAppSubWindow, ParentID: w.ID()})

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"resize fullscreen", func() error { return w.Resize(ctx, 10, 10) }, wm.ErrInvalidOperation},
		{"resize zero", func() error { return w.Resize(ctx, 0, 10) }, wm.ErrInvalidParam},
		{"move fullscreen", func() error { return w.MoveTo(ctx, 5, 5) }, wm.ErrInvalidOperation},
		{"brightness", func() error { return w.SetBrightness(ctx, 2) }, wm.ErrInvalidParam},
		{"alpha", func() error { return w.SetAlpha(ctx, -0.1) }, wm.ErrInvalidParam},
		{"aspect on sub", func() error { return sub.SetAspectRatio(ctx, 1.5) }, wm.ErrInvalidType},
		{"negative aspect", func() error { return w.SetAspectRatio(ctx, -1) }, wm.ErrInvalidParam},
		{"show when locked on sub", func() error { return sub.AddFlag(ctx, wm.FlagShowWhenLocked) }, wm.ErrInvalidType},
		{"bar property on panel", func() error { return w.SetSystemBarProperty(ctx, wm.TypePanel, wm.SystemBarProperty{}) }, wm.ErrInvalidParam},
		{"too many hot areas", func() error { return w.SetTouchHotAreas(ctx, make([]wm.Rect, property.MaxTouchHotAreas+1)) }, wm.ErrInvalidParam},
		{"dialog bind on main", func() error { return w.BindDialogTarget(ctx, sub.ID()) }, wm.ErrInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFloatingResizeReachesListeners(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.create(t, Option{Name: "float", Mode: wm.ModeFloating, Rect: wm.Rect{X: 10, Y: 10, Width: 200, Height: 100}})
	rec := watch(t, w, listener.CategoryWindowChange)
	if err := w.Show(ctx, 0, false); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	if err := w.Resize(ctx, 400, 300); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	want := wm.Rect{X: 10, Y: 10, Width: 400, Height: 300}
	if got := w.Rect(); got != want {
		t.Fatalf("Rect() = %v, want %v", got, want)
	}
	if got := rec.sizeChanges(); got != 2 {
		t.Fatalf("size changes = %d, want 2", got)
	}
}

func TestRectPushIsDeduplicated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.create(t, Option{Name: "w"})
	rec := watch(t, w, listener.CategoryWindowChange)
	if err := w.Show(ctx, 0, false); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	if got := rec.sizeChanges(); got != 1 {
		t.Fatalf("size changes after show = %d, want 1", got)
	}

	a := &agent{w: w}
	rect := w.Rect()
	_ = a.UpdateWindowRect(ctx, rect, false, wm.ReasonUndefined)
	if got := rec.sizeChanges(); got != 1 {
		t.Fatalf("size changes after repeat = %d, want 1", got)
	}
	_ = a.UpdateWindowRect(ctx, rect, false, wm.ReasonRotation)
	if got := rec.sizeChanges(); got != 2 {
		t.Fatalf("size changes after new reason = %d, want 2", got)
	}
}

func TestDestroyCascadesToOwnedWindows(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	appCtx := NewAppContext("app")
	m := h.create(t, Option{Name: "main", Context: appCtx})
	sub := h.create(t, Option{Name: "sub", Type: wm.TypeAppSubWindow, ParentID: m.ID()})
	float := h.create(t, Option{Name: "float", Type: wm.TypeFloat, Context: appCtx})
	subRec := watch(t, sub, listener.CategoryLifecycle)

	if err := m.Destroy(ctx); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	for _, w := range []*Window{m, sub, float} {
		if w.State() != wm.StateDestroyed {
			t.Fatalf("%s state = %v, want destroyed", w.Name(), w.State())
		}
		if _, ok := h.env.Find(w.Name()); ok {
			t.Fatalf("Find(%s) found a destroyed window", w.Name())
		}
	}
	if got := subRec.count(listener.BeforeDestroy); got != 1 {
		t.Fatalf("sub BeforeDestroy = %d, want 1", got)
	}
	infos, err := h.ad.ListWindowInfo(ctx)
	if err != nil || len(infos) != 0 {
		t.Fatalf("ListWindowInfo() = %v, %v, want empty", infos, err)
	}
}

func TestDesktopShowMinimizesApps(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	desk := h.create(t, Option{Name: "desktop", Type: wm.TypeDesktop})
	app := h.create(t, Option{Name: "app"})
	rec := watch(t, app, listener.CategoryLifecycle)

	for _, w := range []*Window{desk, app} {
		if err := w.Show(ctx, 0, false); err != nil {
			t.Fatalf("%s.Show() error = %v", w.Name(), err)
		}
	}
	if err := desk.Show(ctx, 0, false); err != nil {
		t.Fatalf("desktop Show() again error = %v", err)
	}
	if app.State() != wm.StateHidden {
		t.Fatalf("app state = %v, want hidden", app.State())
	}
	if got := rec.count(listener.AfterBackground); got != 1 {
		t.Fatalf("app AfterBackground = %d, want 1", got)
	}
}

func TestFreezeFromService(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	var bg, fg atomic.Int32
	appCtx := NewAppContext("app")
	appCtx.OnBackground = func() { bg.Add(1) }
	appCtx.OnForeground = func() { fg.Add(1) }
	w := h.create(t, Option{Name: "main", Context: appCtx})
	if err := w.Show(ctx, 0, false); err != nil {
		t.Fatalf("Show() error = %v", err)
	}

	a := &agent{w: w}
	_ = a.UpdateWindowState(ctx, wm.StateFrozen)
	if w.State() != wm.StateFrozen || bg.Load() != 1 {
		t.Fatalf("state = %v, background hooks = %d, want frozen, 1", w.State(), bg.Load())
	}
	if err := w.Hide(ctx, 0, false); !errors.Is(err, wm.ErrInvalidOpInCurStatus) {
		t.Fatalf("Hide() while frozen error = %v, want %v", err, wm.ErrInvalidOpInCurStatus)
	}
	_ = a.UpdateWindowState(ctx, wm.StateUnfrozen)
	if w.State() != wm.StateShown || fg.Load() != 1 {
		t.Fatalf("state = %v, foreground hooks = %d, want shown, 1", w.State(), fg.Load())
	}
}

func TestUnfreezeFromHiddenLandsShown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.create(t, Option{Name: "main"})
	rec := watch(t, w, listener.CategoryLifecycle)
	if err := w.Show(ctx, 0, false); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	if err := w.Hide(ctx, 0, false); err != nil {
		t.Fatalf("Hide() error = %v", err)
	}

	a := &agent{w: w}
	_ = a.UpdateWindowState(ctx, wm.StateFrozen)
	_ = a.UpdateWindowState(ctx, wm.StateUnfrozen)
	if w.State() != wm.StateShown || w.SubWindowState() != wm.StateShown || !w.Visible() {
		t.Fatalf("after unfreeze state = %v, sub = %v, visible = %v, want shown, shown, true",
			w.State(), w.SubWindowState(), w.Visible())
	}
	if got := rec.count(listener.AfterForeground); got != 2 {
		t.Fatalf("AfterForeground = %d, want 2", got)
	}

	removes := h.service().removes.Load()
	if err := w.Hide(ctx, 0, false); err != nil {
		t.Fatalf("Hide() after unfreeze error = %v", err)
	}
	if got := h.service().removes.Load(); got != removes+1 {
		t.Fatalf("RemoveWindow calls = %d, want %d", got, removes+1)
	}
	if w.Visible() {
		t.Fatal("window still visible after Hide")
	}
}

func TestFreezeCascadesToSubWindows(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	parent := h.create(t, Option{Name: "parent"})
	child := h.create(t, Option{Name: "child", Type: wm.TypeAppSubWindow, ParentID: parent.ID()})
	for _, w := range []*Window{parent, child} {
		if err := w.Show(ctx, 0, false); err != nil {
			t.Fatalf("%s.Show() error = %v", w.Name(), err)
		}
	}
	rec := watch(t, child, listener.CategoryLifecycle)

	a := &agent{w: parent}
	_ = a.UpdateWindowState(ctx, wm.StateFrozen)
	if child.Visible() || rec.count(listener.AfterBackground) != 1 {
		t.Fatalf("child visible = %v, AfterBackground = %d, want false, 1",
			child.Visible(), rec.count(listener.AfterBackground))
	}
	_ = a.UpdateWindowState(ctx, wm.StateUnfrozen)
	if !child.Visible() || rec.count(listener.AfterForeground) != 1 {
		t.Fatalf("child visible = %v, AfterForeground = %d, want true, 1",
			child.Visible(), rec.count(listener.AfterForeground))
	}
}

func TestSessionRecoversOnceAfterServiceDeath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	shown := h.create(t, Option{Name: "shown"})
	hidden := h.create(t, Option{Name: "hidden"})
	if err := shown.Show(ctx, 0, false); err != nil {
		t.Fatalf("Show() error = %v", err)
	}

	h.kill()
	if err := h.ad.Reconnect(ctx); err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if err := h.ad.Reconnect(ctx); err != nil {
		t.Fatalf("second Reconnect() error = %v", err)
	}

	svc := h.service()
	if got := svc.recovers.Load(); got != 2 {
		t.Fatalf("RecoverWindow calls = %d, want 2", got)
	}
	infos, err := h.ad.ListWindowInfo(ctx)
	if err != nil {
		t.Fatalf("ListWindowInfo() error = %v", err)
	}
	visible := map[wm.WindowID]bool{}
	for _, info := range infos {
		visible[info.ID] = info.Visible
	}
	if v, ok := visible[shown.ID()]; !ok || !v {
		t.Fatalf("shown window recovered = %v, visible = %v", ok, v)
	}
	if v, ok := visible[hidden.ID()]; !ok || v {
		t.Fatalf("hidden window recovered = %v, visible = %v", ok, v)
	}
	if h.connects != 2 {
		t.Fatalf("connects = %d, want 2", h.connects)
	}

	// Destroyed windows are not recovered.
	if err := hidden.Destroy(ctx); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	h.kill()
	if err := h.ad.Reconnect(ctx); err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if got := h.service().recovers.Load(); got != 1 {
		t.Fatalf("RecoverWindow calls after destroy = %d, want 1", got)
	}
}

func TestRecoveryRestoresAvoidAreaPushes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.create(t, Option{Name: "app"})

	var mu sync.Mutex
	var areas []wm.AvoidArea
	l := listener.NewFunc(func(id wm.WindowID, ev listener.Event) {
		if a, ok := ev.(listener.AvoidAreaEvent); ok {
			mu.Lock()
			areas = append(areas, a.Area)
			mu.Unlock()
		}
	})
	if err := w.RegisterListener(listener.CategoryAvoidArea, l); err != nil {
		t.Fatalf("RegisterListener() error = %v", err)
	}

	h.kill()
	if err := h.ad.Reconnect(ctx); err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	mu.Lock()
	before := len(areas)
	mu.Unlock()

	bar := h.create(t, Option{Name: "status", Type: wm.TypeStatusBar})
	if err := bar.Show(ctx, 0, false); err != nil {
		t.Fatalf("bar Show() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(areas) <= before || areas[len(areas)-1].Top.IsEmpty() {
		t.Fatalf("avoid areas after recovery = %v, want the status bar pushed", areas[before:])
	}
}

func TestDestroyedWindowsAreReleased(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	const n = 50
	var collected atomic.Int32
	for i := 0; i < n; i++ {
		w := h.create(t, Option{Name: fmt.Sprintf("w%d", i)})
		// The window sits in a cycle with its agent, so watch its property.
		runtime.SetFinalizer(w.prop, func(*property.WindowProperty) { collected.Add(1) })
		if err := w.Destroy(ctx); err != nil {
			t.Fatalf("Destroy() error = %v", err)
		}
		if w.agent.Alive() {
			t.Fatalf("%s agent still alive after Destroy", w.Name())
		}
	}

	for i := 0; i < 50 && collected.Load() == 0; i++ {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if collected.Load() == 0 {
		t.Fatalf("collected = 0 of %d destroyed windows", n)
	}
}

type fakeContent struct {
	fg, bg    int
	viewports []ViewportConfig
	destroyed bool
}

func (c *fakeContent) Initialize(w *Window, ref string, storage []byte) error { return nil }
func (c *fakeContent) Restore(w *Window, ref string, storage []byte) error    { return nil }
func (c *fakeContent) Foreground()                                             { c.fg++ }
func (c *fakeContent) Background()                                             { c.bg++ }
func (c *fakeContent) ProcessKeyEvent(ev KeyEvent) bool                        { return true }
func (c *fakeContent) ProcessPointerEvent(ev PointerEvent) bool                { return true }
func (c *fakeContent) UpdateViewportConfig(cfg ViewportConfig, reason wm.SizeChangeReason) {
	c.viewports = append(c.viewports, cfg)
}
func (c *fakeContent) Destroy() { c.destroyed = true }

func TestUIContentFollowsLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.create(t, Option{Name: "ui"})
	content := &fakeContent{}
	if err := w.SetUIContent(content, "page", nil, false); err != nil {
		t.Fatalf("SetUIContent() error = %v", err)
	}
	if err := w.Show(ctx, 0, false); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	if err := w.Hide(ctx, 0, false); err != nil {
		t.Fatalf("Hide() error = %v", err)
	}
	if content.fg != 1 || content.bg != 1 {
		t.Fatalf("foreground/background = %d/%d, want 1/1", content.fg, content.bg)
	}
	if len(content.viewports) < 2 {
		t.Fatalf("viewport updates = %d, want at least 2", len(content.viewports))
	}
	if !w.ConsumeKeyEvent(KeyEvent{Code: 1, Action: KeyDown}) {
		t.Fatalf("ConsumeKeyEvent() = false, want true")
	}
	if err := w.Destroy(ctx); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if !content.destroyed {
		t.Fatalf("content not destroyed with the window")
	}
}

func TestFindTopWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	appCtx := NewAppContext("app")
	m := h.create(t, Option{Name: "main", Context: appCtx})
	sub := h.create(t, Option{Name: "sub", Type: wm.TypeAppSubWindow, ParentID: m.ID()})
	for _, w := range []*Window{m, sub} {
		if err := w.Show(ctx, 0, false); err != nil {
			t.Fatalf("%s.Show() error = %v", w.Name(), err)
		}
	}
	top, err := h.env.FindTopWindowByContext(ctx, appCtx)
	if err != nil || top != sub {
		t.Fatalf("FindTopWindowByContext() = %v, %v, want %v", top, err, sub)
	}
	if _, err := h.env.FindTopWindowByContext(ctx, NewAppContext("other")); !errors.Is(err, wm.ErrNotFound) {
		t.Fatalf("FindTopWindowByContext(other) error = %v, want %v", err, wm.ErrNotFound)
	}
}

func TestAvoidAreaListenerGetsPushes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.create(t, Option{Name: "app"})
	bar := h.create(t, Option{Name: "status", Type: wm.TypeStatusBar})

	var mu sync.Mutex
	var areas []wm.AvoidArea
	l := listener.NewFunc(func(id wm.WindowID, ev listener.Event) {
		if a, ok := ev.(listener.AvoidAreaEvent); ok {
			mu.Lock()
			areas = append(areas, a.Area)
			mu.Unlock()
		}
	})
	if err := w.RegisterListener(listener.CategoryAvoidArea, l); err != nil {
		t.Fatalf("RegisterListener() error = %v", err)
	}
	if err := bar.Show(ctx, 0, false); err != nil {
		t.Fatalf("bar Show() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(areas) != 2 || areas[1].Top.IsEmpty() {
		t.Fatalf("avoid areas = %v, want an empty one then the status bar", areas)
	}
	if got := w.AvoidArea(wm.AvoidAreaSystem); got.Top != areas[1].Top {
		t.Fatalf("AvoidArea() = %v, want %v", got, areas[1])
	}
}
