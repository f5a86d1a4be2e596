// Package adapter owns the process-wide connection to the window-management
// service. It connects lazily, notices when the service dies and, on the next
// successful connect, replays manager-agent registrations and session-recover
// callbacks so windows can re-attach.
package adapter

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/1broseidon/winsession/internal/ipc"
	"github.com/1broseidon/winsession/internal/property"
	"github.com/1broseidon/winsession/internal/wm"
)

// State is the connection state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// Connector resolves a handle to the service.
type Connector func(ctx context.Context) (ipc.Remote, error)

// RecoverFunc re-attaches one window after the service restarted.
type RecoverFunc func(ctx context.Context) error

type socketRemote struct {
	ipc.Remote
	conn *ipc.Conn
}

func (s *socketRemote) Close() error { return s.conn.Close() }

// SocketConnector dials the service socket at path on every connect.
func SocketConnector(path string, logger *slog.Logger) Connector {
	return func(ctx context.Context) (ipc.Remote, error) {
		conn, err := ipc.Dial(ctx, path, logger)
		if err != nil {
			return nil, err
		}
		return &socketRemote{Remote: conn.Root(), conn: conn}, nil
	}
}

// LocalConnector serves requests from h in this process.
func LocalConnector(h ipc.Handler) Connector {
	return func(context.Context) (ipc.Remote, error) {
		return ipc.Local(h), nil
	}
}

type agentKey struct {
	typ   ipc.ManagerAgentType
	agent ipc.Remote
}

// Adapter is the client's view of the service. It implements
// ipc.WindowManager; every request resolves the connection first.
type Adapter struct {
	connect Connector
	logger  *slog.Logger

	proxy atomic.Pointer[ipc.ServiceProxy]
	state atomic.Int32

	mu          sync.Mutex
	remote      ipc.Remote
	gen         uint64
	removeDeath func()
	needRecover bool
	closed      bool

	regMu    sync.Mutex
	agents   []agentKey
	recovers map[wm.WindowID]RecoverFunc
}

var _ ipc.WindowManager = (*Adapter)(nil)

// New returns a disconnected adapter.
func New(connect Connector, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		connect:  connect,
		logger:   logger.With("component", "adapter"),
		recovers: make(map[wm.WindowID]RecoverFunc),
	}
}

// State reports the current connection state.
func (a *Adapter) State() State { return State(a.state.Load()) }

func (a *Adapter) setState(s State) {
	a.state.Store(int32(s))
	metricState.Set(float64(s))
}

// service returns the live proxy, connecting if needed. When the previous
// connection died, the recovery pass runs here, once, before returning.
func (a *Adapter) service(ctx context.Context) (*ipc.ServiceProxy, error) {
	if p := a.proxy.Load(); p != nil {
		return p, nil
	}

	a.mu.Lock()
	if p := a.proxy.Load(); p != nil {
		a.mu.Unlock()
		return p, nil
	}
	if a.closed {
		a.mu.Unlock()
		return nil, wm.Wrap(wm.CodeIPCFailed, "connect", ipc.ErrClosed)
	}

	a.setState(Connecting)
	remote, err := a.connect(ctx)
	if err != nil {
		a.setState(Disconnected)
		a.mu.Unlock()
		metricConnectFailures.Inc()
		return nil, wm.Wrap(wm.CodeIPCFailed, "connect", err)
	}
	a.gen++
	gen := a.gen
	p := ipc.NewServiceProxy(remote)
	a.remote = remote
	a.removeDeath = remote.AddDeathRecipient(func() { a.onDeath(gen) })
	a.proxy.Store(p)
	a.setState(Connected)
	pending := a.needRecover
	a.needRecover = false
	a.mu.Unlock()

	metricConnects.Inc()
	if pending {
		a.recover(ctx, p)
	}
	return p, nil
}

// Reconnect forces the connection up, running a pending recovery pass.
func (a *Adapter) Reconnect(ctx context.Context) error {
	_, err := a.service(ctx)
	return err
}

func (a *Adapter) onDeath(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || a.proxy.Load() == nil {
		a.mu.Unlock()
		return
	}
	a.proxy.Store(nil)
	a.remote = nil
	a.removeDeath = nil
	a.needRecover = !a.closed
	a.setState(Disconnected)
	a.mu.Unlock()

	metricDeaths.Inc()
	a.logger.Warn("window manager service died, recovery pending")
}

func (a *Adapter) recover(ctx context.Context, p *ipc.ServiceProxy) {
	a.regMu.Lock()
	agents := slices.Clone(a.agents)
	ids := make([]wm.WindowID, 0, len(a.recovers))
	for id := range a.recovers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]RecoverFunc, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, a.recovers[id])
	}
	a.regMu.Unlock()

	a.logger.Info("recovering session", "manager_agents", len(agents), "windows", len(fns))
	for _, k := range agents {
		if err := p.RegisterManagerAgent(ctx, k.typ, k.agent); err != nil {
			a.logger.Error("re-register manager agent failed", "type", k.typ, "error", err)
		}
	}
	for i, fn := range fns {
		if err := fn(ctx); err != nil {
			a.logger.Error("session recover failed", "window", ids[i], "error", err)
		}
	}
	metricRecoveries.Inc()
}

// RegisterSessionRecover installs fn for id, replacing any earlier one.
func (a *Adapter) RegisterSessionRecover(id wm.WindowID, fn RecoverFunc) {
	if fn == nil {
		return
	}
	a.regMu.Lock()
	a.recovers[id] = fn
	a.regMu.Unlock()
}

// UnregisterSessionRecover removes the callback for id.
func (a *Adapter) UnregisterSessionRecover(id wm.WindowID) {
	a.regMu.Lock()
	delete(a.recovers, id)
	a.regMu.Unlock()
}

// RegisterManagerAgent registers agent with the service and remembers it
// for recovery.
func (a *Adapter) RegisterManagerAgent(ctx context.Context, typ ipc.ManagerAgentType, agent ipc.Remote) error {
	if agent == nil {
		return wm.Errorf(wm.CodeNullPtr, "RegisterManagerAgent", "nil agent")
	}
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	if err := p.RegisterManagerAgent(ctx, typ, agent); err != nil {
		return err
	}
	k := agentKey{typ, agent}
	a.regMu.Lock()
	if !slices.Contains(a.agents, k) {
		a.agents = append(a.agents, k)
	}
	a.regMu.Unlock()
	return nil
}

// UnregisterManagerAgent forgets agent and tells the service.
func (a *Adapter) UnregisterManagerAgent(ctx context.Context, typ ipc.ManagerAgentType, agent ipc.Remote) error {
	k := agentKey{typ, agent}
	a.regMu.Lock()
	a.agents = slices.DeleteFunc(a.agents, func(e agentKey) bool { return e == k })
	a.regMu.Unlock()

	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.UnregisterManagerAgent(ctx, typ, agent)
}

// Close drops the connection. Later requests fail with wm.ErrIPCFailed.
func (a *Adapter) Close() error {
	a.mu.Lock()
	a.closed = true
	a.needRecover = false
	remote, remove := a.remote, a.removeDeath
	a.remote, a.removeDeath = nil, nil
	a.proxy.Store(nil)
	a.setState(Disconnected)
	a.mu.Unlock()

	if remove != nil {
		remove()
	}
	if c, ok := remote.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (a *Adapter) CreateWindow(ctx context.Context, agent ipc.Remote, prop *property.WindowProperty) (wm.WindowID, error) {
	p, err := a.service(ctx)
	if err != nil {
		return wm.InvalidWindowID, err
	}
	return p.CreateWindow(ctx, agent, prop)
}

func (a *Adapter) AddWindow(ctx context.Context, prop *property.WindowProperty) error {
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.AddWindow(ctx, prop)
}

func (a *Adapter) RemoveWindow(ctx context.Context, id wm.WindowID) error {
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.RemoveWindow(ctx, id)
}

func (a *Adapter) DestroyWindow(ctx context.Context, id wm.WindowID) error {
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.DestroyWindow(ctx, id)
}

func (a *Adapter) RequestFocus(ctx context.Context, id wm.WindowID) error {
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.RequestFocus(ctx, id)
}

func (a *Adapter) GetAvoidArea(ctx context.Context, id wm.WindowID, typ wm.AvoidAreaType) (wm.AvoidArea, error) {
	p, err := a.service(ctx)
	if err != nil {
		return wm.AvoidArea{}, err
	}
	return p.GetAvoidArea(ctx, id, typ)
}

func (a *Adapter) GetTopWindowID(ctx context.Context, mainID wm.WindowID) (wm.WindowID, error) {
	p, err := a.service(ctx)
	if err != nil {
		return wm.InvalidWindowID, err
	}
	return p.GetTopWindowID(ctx, mainID)
}

func (a *Adapter) ProcessPointDown(ctx context.Context, id wm.WindowID, isPointDown bool) error {
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.ProcessPointDown(ctx, id, isPointDown)
}

func (a *Adapter) ProcessPointUp(ctx context.Context, id wm.WindowID) error {
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.ProcessPointUp(ctx, id)
}

func (a *Adapter) MinimizeAllAppWindows(ctx context.Context, display wm.DisplayID) error {
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.MinimizeAllAppWindows(ctx, display)
}

func (a *Adapter) ToggleShownStateForAllAppWindows(ctx context.Context) error {
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.ToggleShownStateForAllAppWindows(ctx)
}

func (a *Adapter) UpdateProperty(ctx context.Context, prop *property.WindowProperty, action property.Action) error {
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.UpdateProperty(ctx, prop, action)
}

func (a *Adapter) NotifyScreenshotEvent(ctx context.Context, display wm.DisplayID) error {
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.NotifyScreenshotEvent(ctx, display)
}

func (a *Adapter) UpdateAvoidAreaListener(ctx context.Context, id wm.WindowID, enable bool) error {
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.UpdateAvoidAreaListener(ctx, id, enable)
}

func (a *Adapter) BindDialogTarget(ctx context.Context, id, target wm.WindowID) error {
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.BindDialogTarget(ctx, id, target)
}

func (a *Adapter) SetWindowGravity(ctx context.Context, id wm.WindowID, gravity wm.Gravity, percent uint32) error {
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.SetWindowGravity(ctx, id, gravity, percent)
}

func (a *Adapter) ListWindowInfo(ctx context.Context) ([]ipc.WindowInfo, error) {
	p, err := a.service(ctx)
	if err != nil {
		return nil, err
	}
	return p.ListWindowInfo(ctx)
}

func (a *Adapter) RecoverWindow(ctx context.Context, agent ipc.Remote, prop *property.WindowProperty) error {
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.RecoverWindow(ctx, agent, prop)
}

func (a *Adapter) RecordEvent(ctx context.Context, id wm.WindowID, event string) error {
	p, err := a.service(ctx)
	if err != nil {
		return err
	}
	return p.RecordEvent(ctx, id, event)
}
