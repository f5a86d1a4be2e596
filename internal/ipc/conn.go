package ipc

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/1broseidon/winsession/internal/parcel"
)

const (
	frameRequest uint8 = 1
	frameReply   uint8 = 2

	flagAsync uint8 = 1 << 0

	headerSize = 32
	maxPayload = 4 << 20
	maxObjects = 64

	// rootHandle addresses the object a connection was opened for.
	rootHandle uint32 = 0
	// peerOwned marks an object handle that belongs to the receiver.
	peerOwned uint32 = 1 << 31
)

var wireOrder = binary.BigEndian

type frame struct {
	kind    uint8
	flags   uint8
	handle  uint32
	code    Code
	seq     uint64
	status  Status
	objects []uint32
	data    []byte
}

func writeFrame(w *bufio.Writer, f frame) error {
	var hdr [headerSize]byte
	hdr[0] = f.kind
	hdr[1] = f.flags
	wireOrder.PutUint32(hdr[4:], f.handle)
	wireOrder.PutUint32(hdr[8:], uint32(f.code))
	wireOrder.PutUint64(hdr[12:], f.seq)
	wireOrder.PutUint32(hdr[20:], uint32(f.status))
	wireOrder.PutUint32(hdr[24:], uint32(len(f.objects)))
	wireOrder.PutUint32(hdr[28:], uint32(len(f.data)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	var b [4]byte
	for _, h := range f.objects {
		wireOrder.PutUint32(b[:], h)
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	if _, err := w.Write(f.data); err != nil {
		return err
	}
	return w.Flush()
}

func readFrame(r *bufio.Reader) (frame, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return frame{}, err
	}
	f := frame{
		kind:   hdr[0],
		flags:  hdr[1],
		handle: wireOrder.Uint32(hdr[4:]),
		code:   Code(wireOrder.Uint32(hdr[8:])),
		seq:    wireOrder.Uint64(hdr[12:]),
		status: Status(wireOrder.Uint32(hdr[20:])),
	}
	nobj := wireOrder.Uint32(hdr[24:])
	ndata := wireOrder.Uint32(hdr[28:])
	if nobj > maxObjects || ndata > maxPayload {
		return frame{}, fmt.Errorf("frame too large: %d objects, %d bytes", nobj, ndata)
	}
	if nobj > 0 {
		raw := make([]byte, 4*nobj)
		if _, err := io.ReadFull(r, raw); err != nil {
			return frame{}, err
		}
		f.objects = make([]uint32, nobj)
		for i := range f.objects {
			f.objects[i] = wireOrder.Uint32(raw[4*i:])
		}
	}
	f.data = make([]byte, ndata)
	if _, err := io.ReadFull(r, f.data); err != nil {
		return frame{}, err
	}
	return f, nil
}

// Conn is one end of a persistent socket connection. Either end can send
// requests to objects the other end exported and serve requests addressed to
// its own objects. Incoming requests run one at a time in arrival order;
// replies are routed by the reader so a handler may itself make calls.
type Conn struct {
	id     uuid.UUID
	nc     net.Conn
	logger *slog.Logger

	wmu sync.Mutex
	w   *bufio.Writer

	mu         sync.Mutex
	closed     bool
	nextSeq    uint64
	pending    map[uint64]chan frame
	exported   map[uint32]Handler
	handles    map[Handler]uint32
	nextHandle uint32
	remotes    map[uint32]*connRemote

	qmu   sync.Mutex
	queue []frame
	wake  chan struct{}

	deaths deathList
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

func newConn(nc net.Conn, root Handler, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		id:         uuid.New(),
		nc:         nc,
		w:          bufio.NewWriter(nc),
		pending:    make(map[uint64]chan frame),
		exported:   make(map[uint32]Handler),
		handles:    make(map[Handler]uint32),
		nextHandle: rootHandle + 1,
		remotes:    make(map[uint32]*connRemote),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
	c.logger = logger.With("conn", c.id.String())
	if root != nil {
		c.exported[rootHandle] = root
		c.handles[root] = rootHandle
	}
	metricConnections.Inc()
	go c.readLoop()
	go c.dispatchLoop()
	return c
}

// ID identifies the connection in logs.
func (c *Conn) ID() uuid.UUID { return c.id }

// Root returns the object the peer serves at the root handle.
func (c *Conn) Root() Remote { return c.remoteFor(rootHandle) }

// Done is closed once the connection is dead.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close tears the connection down. Pending calls fail with ErrPeerDead.
func (c *Conn) Close() error {
	c.shutdown(ErrClosed)
	return nil
}

func (c *Conn) remoteFor(handle uint32) *connRemote {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.remotes[handle]; ok {
		return r
	}
	r := &connRemote{c: c, handle: handle}
	c.remotes[handle] = r
	return r
}

// exportObjects turns the sender's object table into wire handles.
func (c *Conn) exportObjects(objects []any) ([]uint32, error) {
	if len(objects) > maxObjects {
		return nil, fmt.Errorf("%w: %d objects", parcel.ErrCollectionTooLarge, len(objects))
	}
	out := make([]uint32, 0, len(objects))
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, obj := range objects {
		var (
			h     Handler
			local *LocalRemote
		)
		switch v := obj.(type) {
		case *connRemote:
			if v.c != c {
				return nil, fmt.Errorf("%w: remote belongs to another connection", parcel.ErrBadObject)
			}
			out = append(out, v.handle|peerOwned)
			continue
		case *LocalRemote:
			h, local = v.Handler(), v
		case Handler:
			h = v
		default:
			return nil, fmt.Errorf("%w: cannot export %T", parcel.ErrBadObject, obj)
		}
		id, ok := c.handles[h]
		if !ok {
			id = c.nextHandle
			c.nextHandle++
			c.handles[h] = id
			c.exported[id] = h
			if local != nil {
				// Runs on its own goroutine if the remote is already dead.
				local.AddDeathRecipient(func() { c.release(id) })
			}
		}
		out = append(out, id)
	}
	return out, nil
}

// release forgets an exported object. Later requests for its handle fail
// with StatusTransactionFailed.
func (c *Conn) release(handle uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.exported[handle]; ok {
		delete(c.exported, handle)
		delete(c.handles, h)
	}
}

// importObjects turns wire handles into Remotes or local handlers.
func (c *Conn) importObjects(handles []uint32) ([]any, error) {
	out := make([]any, 0, len(handles))
	for _, h := range handles {
		if h&peerOwned != 0 {
			c.mu.Lock()
			local, ok := c.exported[h&^peerOwned]
			c.mu.Unlock()
			if !ok {
				return nil, fmt.Errorf("%w: unknown local handle %d", parcel.ErrBadObject, h&^peerOwned)
			}
			out = append(out, local)
			continue
		}
		out = append(out, c.remoteFor(h))
	}
	return out, nil
}

func (c *Conn) send(f frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return writeFrame(c.w, f)
}

func (c *Conn) call(ctx context.Context, handle uint32, code Code, data *parcel.Parcel, opt Option) (*parcel.Parcel, error) {
	objects, err := c.exportObjects(data.Objects())
	if err != nil {
		return nil, err
	}
	f := frame{kind: frameRequest, handle: handle, code: code, objects: objects, data: data.Bytes()}

	if opt == Async {
		f.flags = flagAsync
		if err := c.send(f); err != nil {
			c.shutdown(err)
			return nil, fmt.Errorf("%w: %v", ErrPeerDead, err)
		}
		return nil, nil
	}

	ch := make(chan frame, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrPeerDead
	}
	c.nextSeq++
	f.seq = c.nextSeq
	c.pending[f.seq] = ch
	c.mu.Unlock()

	if err := c.send(f); err != nil {
		c.shutdown(err)
		return nil, fmt.Errorf("%w: %v", ErrPeerDead, err)
	}

	select {
	case rf, ok := <-ch:
		if !ok {
			return nil, ErrPeerDead
		}
		if rf.status != StatusOK {
			return nil, &StatusError{Code: code, Status: rf.status}
		}
		objs, err := c.importObjects(rf.objects)
		if err != nil {
			return nil, err
		}
		return parcel.FromBytes(rf.data, objs), nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, f.seq)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (c *Conn) readLoop() {
	r := bufio.NewReader(c.nc)
	for {
		f, err := readFrame(r)
		if err != nil {
			c.shutdown(err)
			return
		}
		switch f.kind {
		case frameReply:
			c.mu.Lock()
			ch, ok := c.pending[f.seq]
			delete(c.pending, f.seq)
			c.mu.Unlock()
			if ok {
				ch <- f
			}
		case frameRequest:
			c.qmu.Lock()
			c.queue = append(c.queue, f)
			c.qmu.Unlock()
			select {
			case c.wake <- struct{}{}:
			default:
			}
		default:
			c.shutdown(fmt.Errorf("unknown frame kind %d", f.kind))
			return
		}
	}
}

func (c *Conn) dispatchLoop() {
	for {
		c.qmu.Lock()
		if len(c.queue) == 0 {
			c.qmu.Unlock()
			select {
			case <-c.wake:
				continue
			case <-c.done:
				return
			}
		}
		f := c.queue[0]
		c.queue = c.queue[1:]
		c.qmu.Unlock()

		c.dispatch(f)
	}
}

func (c *Conn) dispatch(f frame) {
	opt := Sync
	if f.flags&flagAsync != 0 {
		opt = Async
	}

	reply := parcel.New()
	status := c.serve(f, reply, opt)
	if opt == Async {
		if status != StatusOK {
			c.logger.Warn("async request rejected", "code", f.code, "status", status.String())
		}
		return
	}

	rf := frame{kind: frameReply, seq: f.seq, status: status}
	if status == StatusOK {
		objects, err := c.exportObjects(reply.Objects())
		if err != nil {
			rf.status = StatusInvalidData
		} else {
			rf.objects = objects
			rf.data = reply.Bytes()
		}
	}
	if err := c.send(rf); err != nil {
		c.shutdown(err)
	}
}

func (c *Conn) serve(f frame, reply *parcel.Parcel, opt Option) (status Status) {
	c.mu.Lock()
	h, ok := c.exported[f.handle]
	c.mu.Unlock()
	if !ok {
		return StatusTransactionFailed
	}
	objects, err := c.importObjects(f.objects)
	if err != nil {
		return StatusInvalidData
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("request handler panic recovered", "code", f.code, "error", r)
			status = StatusTransactionFailed
		}
	}()
	return h.OnRemoteRequest(c.ctx, f.code, parcel.FromBytes(f.data, objects), reply, opt)
}

func (c *Conn) shutdown(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[uint64]chan frame)
	c.mu.Unlock()

	c.cancel()
	close(c.done)
	c.nc.Close()
	for _, ch := range pending {
		close(ch)
	}
	metricConnections.Dec()

	if cause != nil && !errors.Is(cause, io.EOF) && !errors.Is(cause, ErrClosed) && !errors.Is(cause, net.ErrClosed) {
		c.logger.Warn("connection closed", "error", cause)
	} else {
		c.logger.Debug("connection closed")
	}
	c.deaths.fire()
}

// connRemote addresses one object exported by the peer.
type connRemote struct {
	c      *Conn
	handle uint32
}

func (r *connRemote) SendRequest(ctx context.Context, code Code, data *parcel.Parcel, opt Option) (*parcel.Parcel, error) {
	return r.c.call(ctx, r.handle, code, data, opt)
}

func (r *connRemote) AddDeathRecipient(fn func()) func() {
	return r.c.deaths.add(fn)
}

func (r *connRemote) Alive() bool {
	return !r.c.deaths.isDead()
}
