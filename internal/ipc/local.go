package ipc

import (
	"context"
	"sync"

	"github.com/1broseidon/winsession/internal/parcel"
)

var localRemotes sync.Map // Handler -> *LocalRemote

// LocalRemote delivers requests to a Handler in the same process. It is the
// transport used when client and service share an address space, and in tests.
type LocalRemote struct {
	h      Handler
	deaths deathList
	dead   chan struct{}
	once   sync.Once
}

// Local returns the in-process remote for h. Repeated calls with the same
// handler return the same remote until it is killed, so remotes compare
// equal by identity. h must be a comparable value, typically a pointer.
func Local(h Handler) *LocalRemote {
	if v, ok := localRemotes.Load(h); ok {
		return v.(*LocalRemote)
	}
	v, _ := localRemotes.LoadOrStore(h, &LocalRemote{h: h, dead: make(chan struct{})})
	return v.(*LocalRemote)
}

// Handler returns the object behind the remote.
func (l *LocalRemote) Handler() Handler { return l.h }

// SendRequest runs the handler. Sync requests run on their own goroutine so
// Kill can abandon them; async requests run inline to keep per-sender order.
func (l *LocalRemote) SendRequest(ctx context.Context, code Code, data *parcel.Parcel, opt Option) (*parcel.Parcel, error) {
	if !l.Alive() {
		return nil, ErrPeerDead
	}
	in := data.Clone()

	if opt == Async {
		l.h.OnRemoteRequest(context.WithoutCancel(ctx), code, in, parcel.New(), opt)
		return nil, nil
	}

	reply := parcel.New()
	done := make(chan Status, 1)
	go func() {
		done <- l.h.OnRemoteRequest(ctx, code, in, reply, opt)
	}()

	select {
	case status := <-done:
		if status != StatusOK {
			return nil, &StatusError{Code: code, Status: status}
		}
		return parcel.FromBytes(reply.Bytes(), reply.Objects()), nil
	case <-l.dead:
		return nil, ErrPeerDead
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AddDeathRecipient registers fn to run when Kill is called.
func (l *LocalRemote) AddDeathRecipient(fn func()) func() {
	return l.deaths.add(fn)
}

// Alive reports whether Kill has not been called.
func (l *LocalRemote) Alive() bool {
	select {
	case <-l.dead:
		return false
	default:
		return true
	}
}

// Kill simulates the death of the peer: pending and future requests fail
// with ErrPeerDead and death recipients run. A later Local call for the same
// handler yields a fresh remote.
func (l *LocalRemote) Kill() {
	l.once.Do(func() {
		localRemotes.CompareAndDelete(l.h, l)
		close(l.dead)
		l.deaths.fire()
	})
}
