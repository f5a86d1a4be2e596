package ipc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/1broseidon/winsession/internal/parcel"
)

var (
	// ErrPeerDead is returned for requests to, or in flight to, a peer whose
	// process or connection is gone.
	ErrPeerDead = errors.New("ipc: peer is dead")
	// ErrClosed is returned after the local end has been closed.
	ErrClosed = errors.New("ipc: connection closed")
)

// StatusError reports a non-OK status returned by the peer's stub.
type StatusError struct {
	Code   Code
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ipc: request %d rejected: %v", e.Code, e.Status)
}

// Remote is a handle to an object living in another process, or in this one
// behind the same interface.
type Remote interface {
	// SendRequest delivers data to the remote object. For Async requests
	// the returned parcel is nil.
	SendRequest(ctx context.Context, code Code, data *parcel.Parcel, opt Option) (*parcel.Parcel, error)
	// AddDeathRecipient registers fn to run once when the peer dies. The
	// returned function unregisters it.
	AddDeathRecipient(fn func()) (remove func())
	// Alive reports whether the peer is still reachable.
	Alive() bool
}

// Handler serves requests addressed to a local object. Stubs implement it.
type Handler interface {
	OnRemoteRequest(ctx context.Context, code Code, data, reply *parcel.Parcel, opt Option) Status
}

// deathList runs registered recipients exactly once.
type deathList struct {
	mu      sync.Mutex
	dead    bool
	nextID  uint64
	entries map[uint64]func()
}

func (d *deathList) add(fn func()) func() {
	d.mu.Lock()
	if d.dead {
		d.mu.Unlock()
		go fn()
		return func() {}
	}
	if d.entries == nil {
		d.entries = make(map[uint64]func())
	}
	id := d.nextID
	d.nextID++
	d.entries[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.entries, id)
		d.mu.Unlock()
	}
}

// fire marks the list dead and runs every recipient outside the lock.
func (d *deathList) fire() {
	d.mu.Lock()
	if d.dead {
		d.mu.Unlock()
		return
	}
	d.dead = true
	fns := make([]func(), 0, len(d.entries))
	for _, fn := range d.entries {
		fns = append(fns, fn)
	}
	d.entries = nil
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (d *deathList) isDead() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dead
}

// ReadRemote reads an object reference from p and returns it as a Remote.
// In-process handlers are wrapped with Local.
func ReadRemote(p *parcel.Parcel) (Remote, error) {
	obj, err := p.ReadObject()
	if err != nil {
		return nil, err
	}
	switch v := obj.(type) {
	case Remote:
		return v, nil
	case Handler:
		return Local(v), nil
	}
	return nil, fmt.Errorf("%w: %T is not a remote object", parcel.ErrBadObject, obj)
}

// writeToken starts a request with the interface descriptor.
func writeToken(p *parcel.Parcel, descriptor string) {
	p.WriteString(descriptor)
}

// checkToken reads and compares the interface descriptor.
func checkToken(p *parcel.Parcel, descriptor string) bool {
	token, err := p.ReadString()
	return err == nil && token == descriptor
}
