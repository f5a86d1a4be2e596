// Package parcel implements the flat binary buffer exchanged between the
// window-session client and the service. Scalars are little-endian and
// 4-byte aligned; strings are a u32 byte length followed by the bytes padded
// to 4; objects travel in a side table and are referenced by index.
package parcel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var byteOrder = binary.LittleEndian

// MaxStringLen bounds any string read from the wire.
const MaxStringLen = 64 << 10

var (
	// ErrTruncated is returned when a read runs past the end of the data.
	ErrTruncated = errors.New("parcel: truncated data")
	// ErrCollectionTooLarge is returned when a length prefix exceeds its bound.
	ErrCollectionTooLarge = errors.New("parcel: collection too large")
	// ErrBadObject is returned when an object reference is out of range.
	ErrBadObject = errors.New("parcel: bad object reference")
)

// Parcel is a growable write buffer and a sequential reader over the same
// bytes. The zero value is an empty parcel ready for writing.
type Parcel struct {
	data    []byte
	pos     int
	objects []any
}

// New returns an empty parcel.
func New() *Parcel {
	return &Parcel{}
}

// FromBytes wraps received bytes and objects for reading.
func FromBytes(data []byte, objects []any) *Parcel {
	return &Parcel{data: data, objects: objects}
}

// Bytes returns the written data.
func (p *Parcel) Bytes() []byte { return p.data }

// Objects returns the object side table.
func (p *Parcel) Objects() []any { return p.objects }

// Len is the number of bytes written.
func (p *Parcel) Len() int { return len(p.data) }

// Remaining is the number of unread bytes.
func (p *Parcel) Remaining() int { return len(p.data) - p.pos }

// Rewind moves the read position back to the start.
func (p *Parcel) Rewind() { p.pos = 0 }

// Clone copies the parcel for independent reading.
func (p *Parcel) Clone() *Parcel {
	data := make([]byte, len(p.data))
	copy(data, p.data)
	objects := make([]any, len(p.objects))
	copy(objects, p.objects)
	return &Parcel{data: data, objects: objects}
}

func (p *Parcel) grow(n int) []byte {
	off := len(p.data)
	p.data = append(p.data, make([]byte, n)...)
	return p.data[off : off+n]
}

func (p *Parcel) next(n int) ([]byte, error) {
	if n < 0 || p.Remaining() < n {
		return nil, ErrTruncated
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n
	return b, nil
}

func pad4(n int) int { return (n + 3) &^ 3 }

func (p *Parcel) WriteUint32(v uint32) { byteOrder.PutUint32(p.grow(4), v) }

func (p *Parcel) WriteInt32(v int32) { p.WriteUint32(uint32(v)) }

func (p *Parcel) WriteUint64(v uint64) { byteOrder.PutUint64(p.grow(8), v) }

func (p *Parcel) WriteFloat32(v float32) { p.WriteUint32(math.Float32bits(v)) }

func (p *Parcel) WriteBool(v bool) {
	if v {
		p.WriteUint32(1)
		return
	}
	p.WriteUint32(0)
}

// WriteString writes a length-prefixed, padded string.
func (p *Parcel) WriteString(s string) {
	p.WriteUint32(uint32(len(s)))
	copy(p.grow(pad4(len(s))), s)
}

// WriteBytes writes a length-prefixed, padded byte slice.
func (p *Parcel) WriteBytes(b []byte) {
	p.WriteUint32(uint32(len(b)))
	copy(p.grow(pad4(len(b))), b)
}

// WriteObject appends obj to the side table and writes its index.
func (p *Parcel) WriteObject(obj any) {
	p.objects = append(p.objects, obj)
	p.WriteUint32(uint32(len(p.objects) - 1))
}

func (p *Parcel) ReadUint32() (uint32, error) {
	b, err := p.next(4)
	if err != nil {
		return 0, err
	}
	return byteOrder.Uint32(b), nil
}

func (p *Parcel) ReadInt32() (int32, error) {
	v, err := p.ReadUint32()
	return int32(v), err
}

func (p *Parcel) ReadUint64() (uint64, error) {
	b, err := p.next(8)
	if err != nil {
		return 0, err
	}
	return byteOrder.Uint64(b), nil
}

func (p *Parcel) ReadFloat32() (float32, error) {
	v, err := p.ReadUint32()
	return math.Float32frombits(v), err
}

func (p *Parcel) ReadBool() (bool, error) {
	v, err := p.ReadUint32()
	return v != 0, err
}

func (p *Parcel) ReadString() (string, error) {
	b, err := p.ReadBytes(MaxStringLen)
	return string(b), err
}

// ReadBytes reads a length-prefixed byte slice no longer than limit.
func (p *Parcel) ReadBytes(limit int) ([]byte, error) {
	n, err := p.ReadUint32()
	if err != nil {
		return nil, err
	}
	if int64(n) > int64(limit) {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrCollectionTooLarge, n, limit)
	}
	b, err := p.next(pad4(int(n)))
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadCount reads a u32 element count and checks it against max.
func (p *Parcel) ReadCount(max int) (int, error) {
	n, err := p.ReadUint32()
	if err != nil {
		return 0, err
	}
	if int64(n) > int64(max) {
		return 0, fmt.Errorf("%w: %d exceeds %d", ErrCollectionTooLarge, n, max)
	}
	return int(n), nil
}

// ReadObject returns the side-table entry referenced at the read position.
func (p *Parcel) ReadObject() (any, error) {
	idx, err := p.ReadUint32()
	if err != nil {
		return nil, err
	}
	if int(idx) >= len(p.objects) {
		return nil, ErrBadObject
	}
	obj := p.objects[idx]
	if obj == nil {
		return nil, ErrBadObject
	}
	return obj, nil
}

// Reader accumulates the first error across a sequence of reads so decoders
// can read a whole record and check once.
type Reader struct {
	p   *Parcel
	err error
}

// NewReader reads from p.
func NewReader(p *Parcel) *Reader { return &Reader{p: p} }

// Err returns the first read error.
func (r *Reader) Err() error { return r.err }

func (r *Reader) Uint32() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.p.ReadUint32()
	r.err = err
	return v
}

func (r *Reader) Int32() int32 { return int32(r.Uint32()) }

func (r *Reader) Uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.p.ReadUint64()
	r.err = err
	return v
}

func (r *Reader) Float32() float32 { return math.Float32frombits(r.Uint32()) }

func (r *Reader) Bool() bool { return r.Uint32() != 0 }

func (r *Reader) Str() string {
	if r.err != nil {
		return ""
	}
	v, err := r.p.ReadString()
	r.err = err
	return v
}

func (r *Reader) Count(max int) int {
	if r.err != nil {
		return 0
	}
	n, err := r.p.ReadCount(max)
	r.err = err
	return n
}
