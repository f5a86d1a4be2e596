package ipc

import (
	"context"

	"github.com/1broseidon/winsession/internal/parcel"
	"github.com/1broseidon/winsession/internal/property"
	"github.com/1broseidon/winsession/internal/wm"
)

// WindowAgent receives service pushes for one window.
type WindowAgent interface {
	UpdateWindowRect(ctx context.Context, rect wm.Rect, decorated bool, reason wm.SizeChangeReason) error
	UpdateWindowMode(ctx context.Context, mode wm.WindowMode) error
	UpdateModeSupport(ctx context.Context, support wm.ModeSupport) error
	UpdateFocusStatus(ctx context.Context, focused bool) error
	UpdateAvoidArea(ctx context.Context, area wm.AvoidArea, typ wm.AvoidAreaType) error
	UpdateWindowState(ctx context.Context, state wm.State) error
	UpdateDragEvent(ctx context.Context, point wm.Point, event wm.DragEvent) error
	UpdateDisplayID(ctx context.Context, from, to wm.DisplayID) error
	UpdateOccupiedArea(ctx context.Context, info wm.OccupiedAreaInfo) error
	UpdateActiveStatus(ctx context.Context, active bool) error
	GetWindowProperty(ctx context.Context) (*property.WindowProperty, error)
	NotifyTouchOutside(ctx context.Context) error
	NotifyScreenshot(ctx context.Context) error
	NotifyDestroy(ctx context.Context) error
	NotifyTouchDialogTarget(ctx context.Context) error
}

// AgentProxy sends pushes to a window agent in a client process.
type AgentProxy struct {
	proxy
}

var _ WindowAgent = (*AgentProxy)(nil)

// NewAgentProxy wraps remote.
func NewAgentProxy(remote Remote) *AgentProxy {
	return &AgentProxy{proxy{remote: remote, descriptor: AgentDescriptor, catalog: AgentCatalog}}
}

func (a *AgentProxy) push(ctx context.Context, code Code, write func(*parcel.Parcel) error) error {
	_, err := a.callResult(ctx, code, write)
	return err
}

func (a *AgentProxy) UpdateWindowRect(ctx context.Context, rect wm.Rect, decorated bool, reason wm.SizeChangeReason) error {
	return a.push(ctx, CodeUpdateWindowRect, func(p *parcel.Parcel) error {
		property.WriteRect(p, rect)
		p.WriteBool(decorated)
		p.WriteUint32(uint32(reason))
		return nil
	})
}

func (a *AgentProxy) UpdateWindowMode(ctx context.Context, mode wm.WindowMode) error {
	return a.push(ctx, CodeUpdateWindowMode, func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(mode))
		return nil
	})
}

func (a *AgentProxy) UpdateModeSupport(ctx context.Context, support wm.ModeSupport) error {
	return a.push(ctx, CodeUpdateModeSupport, func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(support))
		return nil
	})
}

func (a *AgentProxy) UpdateFocusStatus(ctx context.Context, focused bool) error {
	return a.push(ctx, CodeUpdateFocusStatus, func(p *parcel.Parcel) error {
		p.WriteBool(focused)
		return nil
	})
}

func (a *AgentProxy) UpdateAvoidArea(ctx context.Context, area wm.AvoidArea, typ wm.AvoidAreaType) error {
	return a.push(ctx, CodeUpdateAvoidArea, func(p *parcel.Parcel) error {
		property.WriteAvoidArea(p, area)
		p.WriteUint32(uint32(typ))
		return nil
	})
}

func (a *AgentProxy) UpdateWindowState(ctx context.Context, state wm.State) error {
	return a.push(ctx, CodeUpdateWindowState, func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(state))
		return nil
	})
}

func (a *AgentProxy) UpdateDragEvent(ctx context.Context, point wm.Point, event wm.DragEvent) error {
	return a.push(ctx, CodeUpdateDragEvent, func(p *parcel.Parcel) error {
		p.WriteInt32(point.X)
		p.WriteInt32(point.Y)
		p.WriteUint32(uint32(event))
		return nil
	})
}

func (a *AgentProxy) UpdateDisplayID(ctx context.Context, from, to wm.DisplayID) error {
	return a.push(ctx, CodeUpdateDisplayID, func(p *parcel.Parcel) error {
		p.WriteUint64(uint64(from))
		p.WriteUint64(uint64(to))
		return nil
	})
}

func (a *AgentProxy) UpdateOccupiedArea(ctx context.Context, info wm.OccupiedAreaInfo) error {
	return a.push(ctx, CodeUpdateOccupiedArea, func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(info.Type))
		property.WriteRect(p, info.Rect)
		return nil
	})
}

func (a *AgentProxy) UpdateActiveStatus(ctx context.Context, active bool) error {
	return a.push(ctx, CodeUpdateActiveStatus, func(p *parcel.Parcel) error {
		p.WriteBool(active)
		return nil
	})
}

func (a *AgentProxy) GetWindowProperty(ctx context.Context) (*property.WindowProperty, error) {
	reply, err := a.callResult(ctx, CodeGetWindowProperty, nil)
	if err != nil {
		return nil, err
	}
	prop, err := property.Decode(reply)
	if err != nil {
		return nil, decodeErr(CodeGetWindowProperty, AgentCatalog, err)
	}
	return prop, nil
}

func (a *AgentProxy) NotifyTouchOutside(ctx context.Context) error {
	return a.push(ctx, CodeNotifyTouchOutside, nil)
}

func (a *AgentProxy) NotifyScreenshot(ctx context.Context) error {
	return a.push(ctx, CodeNotifyScreenshot, nil)
}

func (a *AgentProxy) NotifyDestroy(ctx context.Context) error {
	return a.push(ctx, CodeNotifyDestroy, nil)
}

func (a *AgentProxy) NotifyTouchDialogTarget(ctx context.Context) error {
	return a.push(ctx, CodeNotifyTouchDialogTarget, nil)
}

// AgentStub decodes pushes addressed to a window and calls its agent.
type AgentStub struct {
	impl WindowAgent
}

// NewAgentStub serves impl.
func NewAgentStub(impl WindowAgent) *AgentStub {
	return &AgentStub{impl: impl}
}

// OnRemoteRequest validates the descriptor, decodes the push and calls the
// agent.
func (s *AgentStub) OnRemoteRequest(ctx context.Context, code Code, data, reply *parcel.Parcel, opt Option) Status {
	if !checkToken(data, AgentDescriptor) {
		return rejected(AgentDescriptor, StatusTransactionFailed)
	}

	r := parcel.NewReader(data)
	var call func() error
	switch code {
	case CodeUpdateWindowRect:
		rect, decorated, reason := property.ReadRect(r), r.Bool(), wm.SizeChangeReason(r.Uint32())
		call = func() error { return s.impl.UpdateWindowRect(ctx, rect, decorated, reason) }
	case CodeUpdateWindowMode:
		mode := wm.WindowMode(r.Uint32())
		call = func() error { return s.impl.UpdateWindowMode(ctx, mode) }
	case CodeUpdateModeSupport:
		support := wm.ModeSupport(r.Uint32())
		call = func() error { return s.impl.UpdateModeSupport(ctx, support) }
	case CodeUpdateFocusStatus:
		focused := r.Bool()
		call = func() error { return s.impl.UpdateFocusStatus(ctx, focused) }
	case CodeUpdateAvoidArea:
		area, typ := property.ReadAvoidArea(r), wm.AvoidAreaType(r.Uint32())
		call = func() error { return s.impl.UpdateAvoidArea(ctx, area, typ) }
	case CodeUpdateWindowState:
		state := wm.State(r.Uint32())
		call = func() error { return s.impl.UpdateWindowState(ctx, state) }
	case CodeUpdateDragEvent:
		point := wm.Point{X: r.Int32(), Y: r.Int32()}
		event := wm.DragEvent(r.Uint32())
		call = func() error { return s.impl.UpdateDragEvent(ctx, point, event) }
	case CodeUpdateDisplayID:
		from, to := wm.DisplayID(r.Uint64()), wm.DisplayID(r.Uint64())
		call = func() error { return s.impl.UpdateDisplayID(ctx, from, to) }
	case CodeUpdateOccupiedArea:
		typ := wm.OccupiedAreaType(r.Uint32())
		rect := property.ReadRect(r)
		call = func() error { return s.impl.UpdateOccupiedArea(ctx, wm.OccupiedAreaInfo{Type: typ, Rect: rect}) }
	case CodeUpdateActiveStatus:
		active := r.Bool()
		call = func() error { return s.impl.UpdateActiveStatus(ctx, active) }
	case CodeGetWindowProperty:
		prop, err := s.impl.GetWindowProperty(ctx)
		writeResult(reply, err)
		if err == nil {
			if err := prop.Encode(reply); err != nil {
				return rejected(AgentDescriptor, StatusInvalidData)
			}
		}
		return StatusOK
	case CodeNotifyTouchOutside:
		call = func() error { return s.impl.NotifyTouchOutside(ctx) }
	case CodeNotifyScreenshot:
		call = func() error { return s.impl.NotifyScreenshot(ctx) }
	case CodeNotifyDestroy:
		call = func() error { return s.impl.NotifyDestroy(ctx) }
	case CodeNotifyTouchDialogTarget:
		call = func() error { return s.impl.NotifyTouchDialogTarget(ctx) }
	default:
		return rejected(AgentDescriptor, StatusUnknownTransaction)
	}

	if r.Err() != nil {
		return rejected(AgentDescriptor, StatusInvalidData)
	}
	writeResult(reply, call())
	return StatusOK
}
