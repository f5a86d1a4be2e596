package window

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/winsession/internal/hierarchy"
	"github.com/1broseidon/winsession/internal/ipc"
	"github.com/1broseidon/winsession/internal/listener"
	"github.com/1broseidon/winsession/internal/property"
	"github.com/1broseidon/winsession/internal/wm"
)

// Option describes a window to create.
type Option struct {
	Name        string
	Type        wm.WindowType
	Mode        wm.WindowMode
	ModeSupport wm.ModeSupport
	Flags       wm.WindowFlag
	ParentID    wm.WindowID
	Rect        wm.Rect
	DisplayID   wm.DisplayID
	Context     *AppContext
}

// Window is the client handle of one window. All methods are safe for
// concurrent use. Public operations on one window are serialised so its
// requests reach the service in the order they were issued.
type Window struct {
	env    *Env
	name   string
	typ    wm.WindowType
	appCtx *AppContext
	logger *slog.Logger
	agent  *ipc.LocalRemote

	// opMu serialises public operations. It may be held across a remote
	// call; mu never is.
	opMu sync.Mutex

	mu       sync.Mutex
	id       wm.WindowID
	state    wm.State
	subState wm.State
	prop     *property.WindowProperty
	focused  bool
	active   bool
	surface  Surface
	content  UIContent
	avoid    map[wm.AvoidAreaType]wm.AvoidArea

	// last values forwarded to listeners, for push dedup
	rectSent   bool
	lastRect   wm.Rect
	lastReason wm.SizeChangeReason
	modeSent   bool
	lastMode   wm.WindowMode
}

func (o Option) property() *property.WindowProperty {
	p := property.New()
	p.Name = o.Name
	if o.Type != 0 {
		p.Type = o.Type
	}
	if o.Mode != wm.ModeUndefined {
		p.Mode = o.Mode
		p.LastMode = o.Mode
	}
	if o.ModeSupport != 0 {
		p.ModeSupport = o.ModeSupport
	}
	p.Flags = o.Flags
	p.ParentID = o.ParentID
	p.Rect = o.Rect
	p.RequestRect = o.Rect
	p.OriginRect = o.Rect
	p.DisplayID = o.DisplayID
	return p
}

// Create registers a new window with the service. Name clashes, a second
// instance of a single-instance kind and a missing or incapable parent are
// rejected before the service is contacted.
func Create(ctx context.Context, env *Env, opt Option) (*Window, error) {
	prop := opt.property()
	if prop.Name == "" {
		return nil, wm.Errorf(wm.CodeInvalidParam, "Create", "window name is empty")
	}
	if !prop.Type.Valid() {
		return nil, wm.Errorf(wm.CodeInvalidType, "Create", "window type %d", prop.Type)
	}
	if _, taken := env.Windows.FindByName(prop.Name); taken {
		return nil, wm.Errorf(wm.CodeRepeatOperation, "Create", "window %q already exists", prop.Name)
	}
	if prop.Type.IsSingleInstance() {
		if _, dup := env.Windows.Find(func(w *Window) bool { return w.typ == prop.Type }); dup {
			return nil, wm.Errorf(wm.CodeRepeatOperation, "Create", "a %v window already exists", prop.Type)
		}
	}
	rel, owner, err := env.relationFor(prop, opt.Context)
	if err != nil {
		return nil, err
	}

	w := &Window{
		env:      env,
		name:     prop.Name,
		typ:      prop.Type,
		appCtx:   opt.Context,
		logger:   env.Logger.With("window", prop.Name),
		state:    wm.StateInitial,
		subState: wm.StateInitial,
		prop:     prop,
		avoid:    make(map[wm.AvoidAreaType]wm.AvoidArea),
	}
	w.agent = ipc.Local(ipc.NewAgentStub(&agent{w: w}))

	if env.Surfaces != nil {
		surface, err := env.Surfaces.CreateSurface(prop.Name, prop.Type)
		if err != nil {
			w.agent.Kill()
			return nil, wm.Wrap(wm.CodeNullPtr, "Create", fmt.Errorf("create surface: %w", err))
		}
		w.surface = surface
	}

	id, err := env.Service.CreateWindow(ctx, w.agent, prop.Clone())
	if err != nil {
		w.releaseSurface()
		w.agent.Kill()
		return nil, err
	}

	w.mu.Lock()
	w.id = id
	w.prop.ID = id
	w.mu.Unlock()

	if _, err := env.Windows.Insert(hierarchy.Entry[*Window]{
		Name: prop.Name, ID: id, Window: w, Relation: rel, Owner: owner,
	}); err != nil {
		if derr := env.Service.DestroyWindow(ctx, id); derr != nil {
			w.logger.Warn("destroy after failed insert", "error", derr)
		}
		w.releaseSurface()
		w.agent.Kill()
		return nil, err
	}
	env.Service.RegisterSessionRecover(id, w.recoverSession)

	w.mu.Lock()
	w.state = wm.StateCreated
	w.subState = wm.StateCreated
	w.mu.Unlock()

	w.logger.Debug("window created", "id", id, "type", prop.Type, "relation", rel)
	return w, nil
}

// relationFor decides which hierarchy map a new window joins.
func (e *Env) relationFor(prop *property.WindowProperty, appCtx *AppContext) (hierarchy.Relation, wm.WindowID, error) {
	switch {
	case prop.Type.IsSubWindow():
		if prop.ParentID == wm.InvalidWindowID {
			return 0, 0, wm.Errorf(wm.CodeInvalidParent, "Create", "%v window needs a parent", prop.Type)
		}
		parent, ok := e.Windows.FindByID(prop.ParentID)
		if !ok {
			return 0, 0, wm.Errorf(wm.CodeInvalidParent, "Create", "parent %d not found", prop.ParentID)
		}
		if !parent.typ.CanParent() {
			return 0, 0, wm.Errorf(wm.CodeInvalidParent, "Create", "%v window cannot own sub-windows", parent.typ)
		}
		if parent.State() == wm.StateDestroyed {
			return 0, 0, wm.Errorf(wm.CodeInvalidParent, "Create", "parent %d destroyed", prop.ParentID)
		}
		return hierarchy.RelationSub, prop.ParentID, nil
	case prop.ParentID != wm.InvalidWindowID:
		return 0, 0, wm.Errorf(wm.CodeInvalidParent, "Create", "%v window cannot have a parent", prop.Type)
	case prop.Type == wm.TypeFloat || prop.Type == wm.TypeDialog:
		main, ok := e.mainWindowOf(appCtx)
		if !ok {
			return hierarchy.RelationNone, 0, nil
		}
		if prop.Type == wm.TypeFloat {
			return hierarchy.RelationFloating, main.ID(), nil
		}
		return hierarchy.RelationDialog, main.ID(), nil
	}
	return hierarchy.RelationNone, 0, nil
}

// ID returns the id assigned by the service.
func (w *Window) ID() wm.WindowID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.id
}

// Name returns the unique window name.
func (w *Window) Name() string { return w.name }

// Type returns the window kind.
func (w *Window) Type() wm.WindowType { return w.typ }

// Context returns the application context the window was created with.
func (w *Window) Context() *AppContext { return w.appCtx }

// ParentID returns the parent window id, or wm.InvalidWindowID.
func (w *Window) ParentID() wm.WindowID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.prop.ParentID
}

// State returns the window's own lifecycle state.
func (w *Window) State() wm.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// SubWindowState returns the effective visibility of the window. For
// top-level windows it follows State.
func (w *Window) SubWindowState() wm.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.subState
}

// Visible reports whether the window is shown and not suppressed by its
// parent.
func (w *Window) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visibleLocked()
}

func (w *Window) visibleLocked() bool {
	return w.state == wm.StateShown && w.subState == wm.StateShown
}

// Property returns a copy of the window property.
func (w *Window) Property() *property.WindowProperty {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.prop.Clone()
}

// Rect returns the rectangle last confirmed by the service.
func (w *Window) Rect() wm.Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.prop.Rect
}

// Mode returns the current window mode.
func (w *Window) Mode() wm.WindowMode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.prop.Mode
}

// Focused reports whether the window holds focus.
func (w *Window) Focused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused
}

// Active reports whether the service marked the window active.
func (w *Window) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// AvoidArea returns the last pushed avoid area of typ.
func (w *Window) AvoidArea(typ wm.AvoidAreaType) wm.AvoidArea {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.avoid[typ]
}

// RegisterListener subscribes l to events of cat on this window.
func (w *Window) RegisterListener(cat listener.Category, l listener.Listener) error {
	if !w.valid() {
		return wm.ErrInvalidWindow
	}
	return w.env.Listeners.Register(cat, w.ID(), l)
}

// UnregisterListener removes l.
func (w *Window) UnregisterListener(cat listener.Category, l listener.Listener) error {
	return w.env.Listeners.Unregister(cat, w.ID(), l)
}

func (w *Window) valid() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Valid()
}

func (w *Window) notify(ev listener.Event) {
	w.env.Listeners.Dispatch(w.ID(), ev)
}

func (w *Window) releaseSurface() {
	w.mu.Lock()
	s := w.surface
	w.surface = nil
	w.mu.Unlock()
	if s != nil {
		s.Release()
	}
}

func (w *Window) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fmt.Sprintf("%s(%d, %v)", w.name, w.id, w.state)
}
