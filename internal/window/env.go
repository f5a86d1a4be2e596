// Package window implements the client-side window handle: its lifecycle
// state machine, the property mutators that round-trip through the service,
// and the agent that applies pushes from the service and fans them out to
// listeners.
package window

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/1broseidon/winsession/internal/adapter"
	"github.com/1broseidon/winsession/internal/hierarchy"
	"github.com/1broseidon/winsession/internal/ipc"
	"github.com/1broseidon/winsession/internal/listener"
	"github.com/1broseidon/winsession/internal/wm"
)

// Service is what a window needs from the connection to the service.
// *adapter.Adapter implements it.
type Service interface {
	ipc.WindowManager
	RegisterSessionRecover(id wm.WindowID, fn adapter.RecoverFunc)
	UnregisterSessionRecover(id wm.WindowID)
}

var _ Service = (*adapter.Adapter)(nil)

// DisplayProvider reports display geometry.
type DisplayProvider interface {
	Display(id wm.DisplayID) (wm.DisplayInfo, error)
}

// AppContext groups the windows of one logical application. Floating
// windows and dialogs attach to the main window sharing their context.
type AppContext struct {
	ID   uuid.UUID
	Name string

	// OnForeground and OnBackground, when set, are called when the service
	// freezes or unfreezes the context's main window.
	OnForeground func()
	OnBackground func()
}

// NewAppContext returns a context with a fresh identity.
func NewAppContext(name string) *AppContext {
	return &AppContext{ID: uuid.New(), Name: name}
}

// Env is the per-process state shared by all windows: the service
// connection and the registries. Tests build one per test.
type Env struct {
	Service   Service
	Windows   *hierarchy.Registry[*Window]
	Listeners *listener.Registry
	Displays  DisplayProvider
	Surfaces  SurfaceFactory
	Logger    *slog.Logger
}

// EnvOptions carries the optional collaborators of an Env.
type EnvOptions struct {
	Displays DisplayProvider
	Surfaces SurfaceFactory
	Logger   *slog.Logger
}

// NewEnv builds the registries around svc. The first avoid-area listener on
// a window turns on avoid-area pushes for it and the last one turns them off.
func NewEnv(svc Service, opts EnvOptions) *Env {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	env := &Env{
		Service:   svc,
		Windows:   hierarchy.New[*Window](),
		Listeners: listener.NewRegistry(logger),
		Displays:  opts.Displays,
		Surfaces:  opts.Surfaces,
		Logger:    logger,
	}
	env.Listeners.Watch(listener.CategoryAvoidArea, func(id wm.WindowID, enable bool) error {
		return svc.UpdateAvoidAreaListener(context.Background(), id, enable)
	})
	return env
}

// Find returns the live window called name.
func (e *Env) Find(name string) (*Window, bool) {
	return e.Windows.FindByName(name)
}

// FindByID returns the live window with id.
func (e *Env) FindByID(id wm.WindowID) (*Window, bool) {
	return e.Windows.FindByID(id)
}

// FindTopWindow asks the service for the topmost window above mainID and
// resolves it locally.
func (e *Env) FindTopWindow(ctx context.Context, mainID wm.WindowID) (*Window, error) {
	id, err := e.Service.GetTopWindowID(ctx, mainID)
	if err != nil {
		return nil, err
	}
	w, ok := e.Windows.FindByID(id)
	if !ok {
		return nil, wm.Errorf(wm.CodeNotFound, "FindTopWindow", "window %d not in this process", id)
	}
	return w, nil
}

// FindTopWindowByContext finds the main window of appCtx and returns the
// topmost window above it.
func (e *Env) FindTopWindowByContext(ctx context.Context, appCtx *AppContext) (*Window, error) {
	main, ok := e.mainWindowOf(appCtx)
	if !ok {
		return nil, wm.Errorf(wm.CodeNotFound, "FindTopWindowByContext", "no main window for context")
	}
	return e.FindTopWindow(ctx, main.ID())
}

func (e *Env) mainWindowOf(appCtx *AppContext) (*Window, bool) {
	if appCtx == nil {
		return nil, false
	}
	return e.Windows.Find(func(w *Window) bool {
		return w.typ.IsMainWindow() && w.appCtx == appCtx
	})
}

// NotifyScreenshot tells the service a screenshot was taken on display.
func (e *Env) NotifyScreenshot(ctx context.Context, display wm.DisplayID) error {
	return e.Service.NotifyScreenshotEvent(ctx, display)
}

// Teardown destroys every window still alive, top-level windows first.
func (e *Env) Teardown(ctx context.Context) {
	for _, w := range e.Windows.All() {
		if w.ParentID() != wm.InvalidWindowID {
			continue
		}
		if err := w.Destroy(ctx); err != nil {
			e.Logger.Warn("destroy on teardown failed", "window", w.Name(), "error", err)
		}
	}
	for _, w := range e.Windows.All() {
		if err := w.Destroy(ctx); err != nil {
			e.Logger.Warn("destroy on teardown failed", "window", w.Name(), "error", err)
		}
	}
}
