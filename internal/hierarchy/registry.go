// Package hierarchy indexes the windows of one process: by name, by id, and
// by their relationship to a parent or owning main window.
package hierarchy

import (
	"slices"
	"sync"

	"github.com/1broseidon/winsession/internal/wm"
)

// Ref is a weak reference to a registered window. A Ref taken before the
// window was removed never resolves, even if its id is reused.
type Ref struct {
	ID  wm.WindowID
	gen uint64
}

// Valid reports whether r was ever issued.
func (r Ref) Valid() bool { return r.ID != wm.InvalidWindowID && r.gen != 0 }

// Relation says how a window hangs off another one.
type Relation uint8

const (
	// RelationNone marks a top-level window.
	RelationNone Relation = iota
	// RelationSub marks a sub-window of ParentID.
	RelationSub
	// RelationFloating marks a floating window owned by a main window.
	RelationFloating
	// RelationDialog marks a dialog owned by a main window.
	RelationDialog
)

// Entry describes a window being registered.
type Entry[W any] struct {
	Name     string
	ID       wm.WindowID
	Window   W
	Relation Relation
	// Owner is the parent for sub-windows and the main window for floating
	// windows and dialogs.
	Owner wm.WindowID
}

type slot[W any] struct {
	gen      uint64
	live     bool
	name     string
	window   W
	relation Relation
	owner    wm.WindowID
}

// Registry holds every live window of a process. All methods are safe for
// concurrent use; none of them call out while holding the lock.
type Registry[W any] struct {
	mu       sync.RWMutex
	gen      uint64
	slots    map[wm.WindowID]*slot[W]
	byName   map[string]Ref
	children map[wm.WindowID][]Ref
	floating map[wm.WindowID][]Ref
	dialogs  map[wm.WindowID][]Ref
}

// New returns an empty registry.
func New[W any]() *Registry[W] {
	return &Registry[W]{
		slots:    make(map[wm.WindowID]*slot[W]),
		byName:   make(map[string]Ref),
		children: make(map[wm.WindowID][]Ref),
		floating: make(map[wm.WindowID][]Ref),
		dialogs:  make(map[wm.WindowID][]Ref),
	}
}

func (r *Registry[W]) relationMap(rel Relation) map[wm.WindowID][]Ref {
	switch rel {
	case RelationSub:
		return r.children
	case RelationFloating:
		return r.floating
	case RelationDialog:
		return r.dialogs
	}
	return nil
}

// Insert registers e. It fails with wm.ErrRepeatOperation when the name or
// id is already taken, and wm.ErrInvalidParam for an empty name or id.
func (r *Registry[W]) Insert(e Entry[W]) (Ref, error) {
	if e.Name == "" || e.ID == wm.InvalidWindowID {
		return Ref{}, wm.Errorf(wm.CodeInvalidParam, "Insert", "name %q id %d", e.Name, e.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byName[e.Name]; taken {
		return Ref{}, wm.Errorf(wm.CodeRepeatOperation, "Insert", "name %q in use", e.Name)
	}
	s, ok := r.slots[e.ID]
	if ok && s.live {
		return Ref{}, wm.Errorf(wm.CodeRepeatOperation, "Insert", "id %d in use", e.ID)
	}
	if !ok {
		s = &slot[W]{}
		r.slots[e.ID] = s
	}
	r.gen++
	*s = slot[W]{gen: r.gen, live: true, name: e.Name, window: e.Window, relation: e.Relation, owner: e.Owner}

	ref := Ref{ID: e.ID, gen: s.gen}
	r.byName[e.Name] = ref
	if m := r.relationMap(e.Relation); m != nil {
		m[e.Owner] = append(m[e.Owner], ref)
	}
	return ref, nil
}

// Remove drops the window with id from every index and invalidates every
// Ref to it. Removing an unknown id is a no-op.
func (r *Registry[W]) Remove(id wm.WindowID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok || !s.live {
		return
	}
	if ref, ok := r.byName[s.name]; ok && ref.ID == id {
		delete(r.byName, s.name)
	}
	if m := r.relationMap(s.relation); m != nil {
		m[s.owner] = slices.DeleteFunc(m[s.owner], func(ref Ref) bool { return ref.ID == id })
		if len(m[s.owner]) == 0 {
			delete(m, s.owner)
		}
	}
	var zero W
	s.live = false
	s.window = zero
	s.gen = 0
}

// Resolve returns the window behind ref if it is still registered.
func (r *Registry[W]) Resolve(ref Ref) (W, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolveLocked(ref)
}

func (r *Registry[W]) resolveLocked(ref Ref) (W, bool) {
	var zero W
	s, ok := r.slots[ref.ID]
	if !ok || !s.live || s.gen != ref.gen {
		return zero, false
	}
	return s.window, true
}

// FindByName looks a window up by its unique name.
func (r *Registry[W]) FindByName(name string) (W, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.byName[name]
	if !ok {
		var zero W
		return zero, false
	}
	return r.resolveLocked(ref)
}

// FindByID scans the name index for id.
func (r *Registry[W]) FindByID(id wm.WindowID) (W, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ref := range r.byName {
		if ref.ID == id {
			return r.resolveLocked(ref)
		}
	}
	var zero W
	return zero, false
}

// RefOf returns the current reference for id.
func (r *Registry[W]) RefOf(id wm.WindowID) (Ref, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[id]
	if !ok || !s.live {
		return Ref{}, false
	}
	return Ref{ID: id, gen: s.gen}, true
}

func (r *Registry[W]) related(m map[wm.WindowID][]Ref, owner wm.WindowID) []W {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]W, 0, len(m[owner]))
	for _, ref := range m[owner] {
		if w, ok := r.resolveLocked(ref); ok {
			out = append(out, w)
		}
	}
	return out
}

// Children returns the sub-windows of parent in creation order.
func (r *Registry[W]) Children(parent wm.WindowID) []W { return r.related(r.children, parent) }

// Floating returns the floating windows owned by main.
func (r *Registry[W]) Floating(main wm.WindowID) []W { return r.related(r.floating, main) }

// Dialogs returns the dialogs owned by main.
func (r *Registry[W]) Dialogs(main wm.WindowID) []W { return r.related(r.dialogs, main) }

// All returns every live window in name order.
func (r *Registry[W]) All() []W {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]W, 0, len(names))
	for _, name := range names {
		if w, ok := r.resolveLocked(r.byName[name]); ok {
			out = append(out, w)
		}
	}
	return out
}

// Find returns the first live window, in name order, for which match is true.
// match runs without the registry lock held.
func (r *Registry[W]) Find(match func(W) bool) (W, bool) {
	for _, w := range r.All() {
		if match(w) {
			return w, true
		}
	}
	var zero W
	return zero, false
}

// Len returns the number of live windows.
func (r *Registry[W]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
