package listener

import (
	"errors"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/1broseidon/winsession/internal/wm"
)

var (
	// ErrNullHandle is returned when registering a nil listener.
	ErrNullHandle = errors.New("listener: nil handle")
	// ErrAlreadyRegistered is returned when the same listener is registered
	// twice for one window and category.
	ErrAlreadyRegistered = errors.New("listener: already registered")
	// ErrNotRegistered is returned when unregistering an unknown listener.
	ErrNotRegistered = errors.New("listener: not registered")
	// ErrNotComparable is returned for a listener whose dynamic type cannot
	// be compared, such as a struct value holding a slice. Register a
	// pointer instead.
	ErrNotComparable = errors.New("listener: handle type is not comparable")
)

// Listener receives events for the windows it is registered on.
type Listener interface {
	OnWindowEvent(id wm.WindowID, ev Event)
}

// Validity is implemented by listeners whose target may go away before they
// are unregistered. Dispatch skips a listener reporting false.
type Validity interface {
	Valid() bool
}

// Func adapts a function to Listener. Use NewFunc so each adapter has its
// own identity.
type Func struct {
	fn func(wm.WindowID, Event)
}

// NewFunc wraps fn.
func NewFunc(fn func(id wm.WindowID, ev Event)) *Func {
	return &Func{fn: fn}
}

func (f *Func) OnWindowEvent(id wm.WindowID, ev Event) {
	if f != nil && f.fn != nil {
		f.fn(id, ev)
	}
}

// Valid reports whether the adapter holds a function.
func (f *Func) Valid() bool { return f != nil && f.fn != nil }

// Watcher is told when a window gains its first or loses its last listener
// in a watched category.
type Watcher func(id wm.WindowID, enable bool) error

type key struct {
	cat Category
	id  wm.WindowID
}

// Registry holds listener lists keyed by category and window.
type Registry struct {
	mu        sync.Mutex
	listeners map[key][]Listener
	watchers  map[Category]Watcher
	// watching records what the watcher was last told per key. Guarded by mu.
	watching map[key]bool
	// watchMu orders watcher calls; it is taken before mu, never after.
	watchMu sync.Mutex
	logger  *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		listeners: make(map[key][]Listener),
		watchers:  make(map[Category]Watcher),
		watching:  make(map[key]bool),
		logger:    logger,
	}
}

// Watch installs fn for cat. Installing twice replaces the watcher.
func (r *Registry) Watch(cat Category, fn Watcher) {
	r.mu.Lock()
	r.watchers[cat] = fn
	r.mu.Unlock()
}

func checkHandle(l Listener) error {
	if isNil(l) {
		return ErrNullHandle
	}
	if !reflect.TypeOf(l).Comparable() {
		return ErrNotComparable
	}
	return nil
}

// Register appends l to the list for (cat, id). The first listener in a
// watched category triggers the watcher outside the lock; its error is
// returned but the registration stands.
func (r *Registry) Register(cat Category, id wm.WindowID, l Listener) error {
	if err := checkHandle(l); err != nil {
		return err
	}

	k := key{cat, id}
	r.mu.Lock()
	if slices.Contains(r.listeners[k], l) {
		r.mu.Unlock()
		return ErrAlreadyRegistered
	}
	r.listeners[k] = append(r.listeners[k], l)
	first := len(r.listeners[k]) == 1
	r.mu.Unlock()

	if first {
		return r.syncWatcher(k)
	}
	return nil
}

// Unregister removes l from the list for (cat, id). Removing the last
// listener in a watched category triggers the watcher.
func (r *Registry) Unregister(cat Category, id wm.WindowID, l Listener) error {
	if err := checkHandle(l); err != nil {
		return err
	}

	k := key{cat, id}
	r.mu.Lock()
	list := r.listeners[k]
	idx := slices.Index(list, l)
	if idx < 0 {
		r.mu.Unlock()
		return ErrNotRegistered
	}
	list = slices.Delete(slices.Clone(list), idx, idx+1)
	if len(list) == 0 {
		delete(r.listeners, k)
	} else {
		r.listeners[k] = list
	}
	last := len(list) == 0
	r.mu.Unlock()

	if last {
		return r.syncWatcher(k)
	}
	return nil
}

// syncWatcher tells the category watcher whether k has listeners, based on
// the count at the time of the call rather than at the time of the change.
// Calls are serialized so a slow disable cannot land after a later enable.
func (r *Registry) syncWatcher(k key) error {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()

	r.mu.Lock()
	watcher := r.watchers[k.cat]
	want := len(r.listeners[k]) > 0
	have := r.watching[k]
	r.mu.Unlock()

	if watcher == nil || want == have {
		return nil
	}
	if err := watcher(k.id, want); err != nil {
		return err
	}

	r.mu.Lock()
	if want {
		r.watching[k] = true
	} else {
		delete(r.watching, k)
	}
	r.mu.Unlock()
	return nil
}

// Count returns the number of listeners for (cat, id).
func (r *Registry) Count(cat Category, id wm.WindowID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[key{cat, id}])
}

// Snapshot returns a copy of the listener list for (cat, id).
func (r *Registry) Snapshot(cat Category, id wm.WindowID) []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.listeners[key{cat, id}])
}

// Dispatch delivers ev to every listener registered for its category on id,
// in registration order. Listeners added or removed during delivery do not
// affect this round.
func (r *Registry) Dispatch(id wm.WindowID, ev Event) {
	if ev == nil {
		return
	}
	forEachLive(r.Snapshot(ev.Category(), id), func(l Listener) {
		l.OnWindowEvent(id, ev)
	}, r.logger)
}

// Clear drops every listener for id without notifying watchers.
func (r *Registry) Clear(id wm.WindowID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.listeners {
		if k.id == id {
			delete(r.listeners, k)
		}
	}
	for k := range r.watching {
		if k.id == id {
			delete(r.watching, k)
		}
	}
}

// forEachLive calls fn for each live handle, skipping nil and invalid ones.
// A panicking listener is logged and does not stop delivery to the rest.
func forEachLive[L any](handles []L, fn func(L), logger *slog.Logger) {
	for _, h := range handles {
		if isNil(h) {
			continue
		}
		if v, ok := any(h).(Validity); ok && !v.Valid() {
			continue
		}
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("listener panic recovered", "error", rec)
				}
			}()
			fn(h)
		}()
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
