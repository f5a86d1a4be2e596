package ipc

import (
	"context"

	"github.com/1broseidon/winsession/internal/parcel"
	"github.com/1broseidon/winsession/internal/wm"
)

// FocusChangeInfo describes the window that gained or lost focus.
type FocusChangeInfo struct {
	WindowID  wm.WindowID
	DisplayID wm.DisplayID
	Type      wm.WindowType
}

// VisibilityInfo reports whether a window is visible to the user.
type VisibilityInfo struct {
	WindowID wm.WindowID
	Visible  bool
}

// SystemBarTint reports the effective style of one system bar.
type SystemBarTint struct {
	Bar    wm.WindowType
	Region wm.Rect
	Prop   wm.SystemBarProperty
}

const maxManagerItems = 1024

// ManagerAgent receives process-wide notifications that are not tied to
// one window.
type ManagerAgent interface {
	UpdateFocusChanged(ctx context.Context, info FocusChangeInfo, focused bool) error
	UpdateWindowVisibility(ctx context.Context, infos []VisibilityInfo) error
	UpdateSystemBarTints(ctx context.Context, display wm.DisplayID, tints []SystemBarTint) error
}

// ManagerAgentProxy sends notifications to a manager agent.
type ManagerAgentProxy struct {
	proxy
}

var _ ManagerAgent = (*ManagerAgentProxy)(nil)

// NewManagerAgentProxy wraps remote.
func NewManagerAgentProxy(remote Remote) *ManagerAgentProxy {
	return &ManagerAgentProxy{proxy{remote: remote, descriptor: ManagerAgentDescriptor, catalog: ManagerAgentCatalog}}
}

func (m *ManagerAgentProxy) UpdateFocusChanged(ctx context.Context, info FocusChangeInfo, focused bool) error {
	_, err := m.callResult(ctx, CodeUpdateFocusChanged, func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(info.WindowID))
		p.WriteUint64(uint64(info.DisplayID))
		p.WriteUint32(uint32(info.Type))
		p.WriteBool(focused)
		return nil
	})
	return err
}

func (m *ManagerAgentProxy) UpdateWindowVisibility(ctx context.Context, infos []VisibilityInfo) error {
	_, err := m.callResult(ctx, CodeUpdateWindowVisibility, func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(len(infos)))
		for _, info := range infos {
			p.WriteUint32(uint32(info.WindowID))
			p.WriteBool(info.Visible)
		}
		return nil
	})
	return err
}

func (m *ManagerAgentProxy) UpdateSystemBarTints(ctx context.Context, display wm.DisplayID, tints []SystemBarTint) error {
	_, err := m.callResult(ctx, CodeUpdateSystemBarTints, func(p *parcel.Parcel) error {
		p.WriteUint64(uint64(display))
		p.WriteUint32(uint32(len(tints)))
		for _, t := range tints {
			p.WriteUint32(uint32(t.Bar))
			p.WriteInt32(t.Region.X)
			p.WriteInt32(t.Region.Y)
			p.WriteUint32(t.Region.Width)
			p.WriteUint32(t.Region.Height)
			p.WriteBool(t.Prop.Enable)
			p.WriteUint32(t.Prop.BackgroundColor)
			p.WriteUint32(t.Prop.ContentColor)
		}
		return nil
	})
	return err
}

// ManagerAgentStub decodes notifications for a manager agent.
type ManagerAgentStub struct {
	impl ManagerAgent
}

// NewManagerAgentStub serves impl.
func NewManagerAgentStub(impl ManagerAgent) *ManagerAgentStub {
	return &ManagerAgentStub{impl: impl}
}

func (s *ManagerAgentStub) OnRemoteRequest(ctx context.Context, code Code, data, reply *parcel.Parcel, opt Option) Status {
	if !checkToken(data, ManagerAgentDescriptor) {
		return rejected(ManagerAgentDescriptor, StatusTransactionFailed)
	}

	r := parcel.NewReader(data)
	var err error
	switch code {
	case CodeUpdateFocusChanged:
		info := FocusChangeInfo{
			WindowID:  wm.WindowID(r.Uint32()),
			DisplayID: wm.DisplayID(r.Uint64()),
			Type:      wm.WindowType(r.Uint32()),
		}
		focused := r.Bool()
		if r.Err() != nil {
			return rejected(ManagerAgentDescriptor, StatusInvalidData)
		}
		err = s.impl.UpdateFocusChanged(ctx, info, focused)
	case CodeUpdateWindowVisibility:
		n := r.Count(maxManagerItems)
		infos := make([]VisibilityInfo, 0, n)
		for i := 0; i < n && r.Err() == nil; i++ {
			infos = append(infos, VisibilityInfo{WindowID: wm.WindowID(r.Uint32()), Visible: r.Bool()})
		}
		if r.Err() != nil {
			return rejected(ManagerAgentDescriptor, StatusInvalidData)
		}
		err = s.impl.UpdateWindowVisibility(ctx, infos)
	case CodeUpdateSystemBarTints:
		display := wm.DisplayID(r.Uint64())
		n := r.Count(maxManagerItems)
		tints := make([]SystemBarTint, 0, n)
		for i := 0; i < n && r.Err() == nil; i++ {
			tints = append(tints, SystemBarTint{
				Bar:    wm.WindowType(r.Uint32()),
				Region: wm.Rect{X: r.Int32(), Y: r.Int32(), Width: r.Uint32(), Height: r.Uint32()},
				Prop: wm.SystemBarProperty{
					Enable:          r.Bool(),
					BackgroundColor: r.Uint32(),
					ContentColor:    r.Uint32(),
				},
			})
		}
		if r.Err() != nil {
			return rejected(ManagerAgentDescriptor, StatusInvalidData)
		}
		err = s.impl.UpdateSystemBarTints(ctx, display, tints)
	default:
		return rejected(ManagerAgentDescriptor, StatusUnknownTransaction)
	}
	writeResult(reply, err)
	return StatusOK
}
