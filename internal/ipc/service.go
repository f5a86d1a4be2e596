package ipc

import (
	"context"

	"github.com/1broseidon/winsession/internal/parcel"
	"github.com/1broseidon/winsession/internal/property"
	"github.com/1broseidon/winsession/internal/wm"
)

// ManagerAgentType selects which process-wide notifications a manager agent
// receives.
type ManagerAgentType uint32

const (
	ManagerAgentFocus ManagerAgentType = iota + 1
	ManagerAgentVisibility
	ManagerAgentSystemBar
)

// WindowInfo summarises one window for listings.
type WindowInfo struct {
	ID        wm.WindowID
	ParentID  wm.WindowID
	Name      string
	Type      wm.WindowType
	Mode      wm.WindowMode
	Rect      wm.Rect
	DisplayID wm.DisplayID
	Visible   bool
	Focused   bool
}

// MaxWindowInfos bounds a ListWindowInfo reply on decode.
const MaxWindowInfos = 4096

// WindowManager is the window-management service as seen by clients.
// Agents are passed as Remote handles; in-process callers wrap their stub
// with Local.
type WindowManager interface {
	CreateWindow(ctx context.Context, agent Remote, prop *property.WindowProperty) (wm.WindowID, error)
	AddWindow(ctx context.Context, prop *property.WindowProperty) error
	RemoveWindow(ctx context.Context, id wm.WindowID) error
	DestroyWindow(ctx context.Context, id wm.WindowID) error
	RequestFocus(ctx context.Context, id wm.WindowID) error
	RegisterManagerAgent(ctx context.Context, typ ManagerAgentType, agent Remote) error
	UnregisterManagerAgent(ctx context.Context, typ ManagerAgentType, agent Remote) error
	GetAvoidArea(ctx context.Context, id wm.WindowID, typ wm.AvoidAreaType) (wm.AvoidArea, error)
	GetTopWindowID(ctx context.Context, mainID wm.WindowID) (wm.WindowID, error)
	ProcessPointDown(ctx context.Context, id wm.WindowID, isPointDown bool) error
	ProcessPointUp(ctx context.Context, id wm.WindowID) error
	MinimizeAllAppWindows(ctx context.Context, display wm.DisplayID) error
	ToggleShownStateForAllAppWindows(ctx context.Context) error
	UpdateProperty(ctx context.Context, prop *property.WindowProperty, action property.Action) error
	NotifyScreenshotEvent(ctx context.Context, display wm.DisplayID) error
	UpdateAvoidAreaListener(ctx context.Context, id wm.WindowID, enable bool) error
	BindDialogTarget(ctx context.Context, id, target wm.WindowID) error
	SetWindowGravity(ctx context.Context, id wm.WindowID, gravity wm.Gravity, percent uint32) error
	ListWindowInfo(ctx context.Context) ([]WindowInfo, error)
	RecoverWindow(ctx context.Context, agent Remote, prop *property.WindowProperty) error
	RecordEvent(ctx context.Context, id wm.WindowID, event string) error
}

// ServiceProxy implements WindowManager by sending requests to a remote
// service.
type ServiceProxy struct {
	proxy
}

var _ WindowManager = (*ServiceProxy)(nil)

// NewServiceProxy wraps remote.
func NewServiceProxy(remote Remote) *ServiceProxy {
	return &ServiceProxy{proxy{remote: remote, descriptor: ServiceDescriptor, catalog: ServiceCatalog}}
}

func writeID(id wm.WindowID) func(*parcel.Parcel) error {
	return func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(id))
		return nil
	}
}

func (s *ServiceProxy) CreateWindow(ctx context.Context, agent Remote, prop *property.WindowProperty) (wm.WindowID, error) {
	reply, err := s.callResult(ctx, CodeCreateWindow, func(p *parcel.Parcel) error {
		p.WriteObject(agent)
		return prop.Encode(p)
	})
	if err != nil {
		return wm.InvalidWindowID, err
	}
	id, err := reply.ReadUint32()
	if err != nil {
		return wm.InvalidWindowID, decodeErr(CodeCreateWindow, ServiceCatalog, err)
	}
	return wm.WindowID(id), nil
}

func (s *ServiceProxy) AddWindow(ctx context.Context, prop *property.WindowProperty) error {
	_, err := s.callResult(ctx, CodeAddWindow, prop.Encode)
	return err
}

func (s *ServiceProxy) RemoveWindow(ctx context.Context, id wm.WindowID) error {
	_, err := s.callResult(ctx, CodeRemoveWindow, writeID(id))
	return err
}

func (s *ServiceProxy) DestroyWindow(ctx context.Context, id wm.WindowID) error {
	_, err := s.callResult(ctx, CodeDestroyWindow, writeID(id))
	return err
}

func (s *ServiceProxy) RequestFocus(ctx context.Context, id wm.WindowID) error {
	_, err := s.callResult(ctx, CodeRequestFocus, writeID(id))
	return err
}

func (s *ServiceProxy) RegisterManagerAgent(ctx context.Context, typ ManagerAgentType, agent Remote) error {
	_, err := s.callResult(ctx, CodeRegisterManagerAgent, func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(typ))
		p.WriteObject(agent)
		return nil
	})
	return err
}

func (s *ServiceProxy) UnregisterManagerAgent(ctx context.Context, typ ManagerAgentType, agent Remote) error {
	_, err := s.callResult(ctx, CodeUnregisterManagerAgent, func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(typ))
		p.WriteObject(agent)
		return nil
	})
	return err
}

func (s *ServiceProxy) GetAvoidArea(ctx context.Context, id wm.WindowID, typ wm.AvoidAreaType) (wm.AvoidArea, error) {
	reply, err := s.callResult(ctx, CodeGetAvoidArea, func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(id))
		p.WriteUint32(uint32(typ))
		return nil
	})
	if err != nil {
		return wm.AvoidArea{}, err
	}
	r := parcel.NewReader(reply)
	area := property.ReadAvoidArea(r)
	if err := r.Err(); err != nil {
		return wm.AvoidArea{}, decodeErr(CodeGetAvoidArea, ServiceCatalog, err)
	}
	return area, nil
}

func (s *ServiceProxy) GetTopWindowID(ctx context.Context, mainID wm.WindowID) (wm.WindowID, error) {
	reply, err := s.callResult(ctx, CodeGetTopWindowID, writeID(mainID))
	if err != nil {
		return wm.InvalidWindowID, err
	}
	id, err := reply.ReadUint32()
	if err != nil {
		return wm.InvalidWindowID, decodeErr(CodeGetTopWindowID, ServiceCatalog, err)
	}
	return wm.WindowID(id), nil
}

func (s *ServiceProxy) ProcessPointDown(ctx context.Context, id wm.WindowID, isPointDown bool) error {
	_, err := s.callResult(ctx, CodeProcessPointDown, func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(id))
		p.WriteBool(isPointDown)
		return nil
	})
	return err
}

func (s *ServiceProxy) ProcessPointUp(ctx context.Context, id wm.WindowID) error {
	_, err := s.callResult(ctx, CodeProcessPointUp, writeID(id))
	return err
}

func (s *ServiceProxy) MinimizeAllAppWindows(ctx context.Context, display wm.DisplayID) error {
	_, err := s.callResult(ctx, CodeMinimizeAllAppWindows, func(p *parcel.Parcel) error {
		p.WriteUint64(uint64(display))
		return nil
	})
	return err
}

func (s *ServiceProxy) ToggleShownStateForAllAppWindows(ctx context.Context) error {
	_, err := s.callResult(ctx, CodeToggleShownStateForAllAppWindows, nil)
	return err
}

func (s *ServiceProxy) UpdateProperty(ctx context.Context, prop *property.WindowProperty, action property.Action) error {
	_, err := s.callResult(ctx, CodeUpdateProperty, func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(action))
		return prop.WriteAction(p, action)
	})
	return err
}

func (s *ServiceProxy) NotifyScreenshotEvent(ctx context.Context, display wm.DisplayID) error {
	_, err := s.callResult(ctx, CodeNotifyScreenshotEvent, func(p *parcel.Parcel) error {
		p.WriteUint64(uint64(display))
		return nil
	})
	return err
}

func (s *ServiceProxy) UpdateAvoidAreaListener(ctx context.Context, id wm.WindowID, enable bool) error {
	_, err := s.callResult(ctx, CodeUpdateAvoidAreaListener, func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(id))
		p.WriteBool(enable)
		return nil
	})
	return err
}

func (s *ServiceProxy) BindDialogTarget(ctx context.Context, id, target wm.WindowID) error {
	_, err := s.callResult(ctx, CodeBindDialogTarget, func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(id))
		p.WriteUint32(uint32(target))
		return nil
	})
	return err
}

func (s *ServiceProxy) SetWindowGravity(ctx context.Context, id wm.WindowID, gravity wm.Gravity, percent uint32) error {
	_, err := s.callResult(ctx, CodeSetWindowGravity, func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(id))
		p.WriteUint32(uint32(gravity))
		p.WriteUint32(percent)
		return nil
	})
	return err
}

func (s *ServiceProxy) ListWindowInfo(ctx context.Context) ([]WindowInfo, error) {
	reply, err := s.callResult(ctx, CodeListWindowInfo, nil)
	if err != nil {
		return nil, err
	}
	infos, err := readWindowInfos(reply)
	if err != nil {
		return nil, decodeErr(CodeListWindowInfo, ServiceCatalog, err)
	}
	return infos, nil
}

func (s *ServiceProxy) RecoverWindow(ctx context.Context, agent Remote, prop *property.WindowProperty) error {
	_, err := s.callResult(ctx, CodeRecoverWindow, func(p *parcel.Parcel) error {
		p.WriteObject(agent)
		return prop.Encode(p)
	})
	return err
}

func (s *ServiceProxy) RecordEvent(ctx context.Context, id wm.WindowID, event string) error {
	_, err := s.callResult(ctx, CodeRecordEvent, func(p *parcel.Parcel) error {
		p.WriteUint32(uint32(id))
		p.WriteString(event)
		return nil
	})
	return err
}

func writeWindowInfos(p *parcel.Parcel, infos []WindowInfo) {
	p.WriteUint32(uint32(len(infos)))
	for _, info := range infos {
		p.WriteUint32(uint32(info.ID))
		p.WriteUint32(uint32(info.ParentID))
		p.WriteString(info.Name)
		p.WriteUint32(uint32(info.Type))
		p.WriteUint32(uint32(info.Mode))
		property.WriteRect(p, info.Rect)
		p.WriteUint64(uint64(info.DisplayID))
		p.WriteBool(info.Visible)
		p.WriteBool(info.Focused)
	}
}

func readWindowInfos(p *parcel.Parcel) ([]WindowInfo, error) {
	r := parcel.NewReader(p)
	n := r.Count(MaxWindowInfos)
	infos := make([]WindowInfo, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		infos = append(infos, WindowInfo{
			ID:        wm.WindowID(r.Uint32()),
			ParentID:  wm.WindowID(r.Uint32()),
			Name:      r.Str(),
			Type:      wm.WindowType(r.Uint32()),
			Mode:      wm.WindowMode(r.Uint32()),
			Rect:      property.ReadRect(r),
			DisplayID: wm.DisplayID(r.Uint64()),
			Visible:   r.Bool(),
			Focused:   r.Bool(),
		})
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

// ServiceStub decodes requests addressed to the service and dispatches them
// to a WindowManager implementation.
type ServiceStub struct {
	impl WindowManager
}

// NewServiceStub serves impl.
func NewServiceStub(impl WindowManager) *ServiceStub {
	return &ServiceStub{impl: impl}
}

// OnRemoteRequest validates the descriptor, decodes the arguments and calls
// the implementation. Decode failures never reach the implementation.
func (s *ServiceStub) OnRemoteRequest(ctx context.Context, code Code, data, reply *parcel.Parcel, opt Option) Status {
	if !checkToken(data, ServiceDescriptor) {
		return rejected(ServiceDescriptor, StatusTransactionFailed)
	}

	switch code {
	case CodeCreateWindow:
		agent, err := ReadRemote(data)
		if err != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		prop, err := property.Decode(data)
		if err != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		id, err := s.impl.CreateWindow(ctx, agent, prop)
		writeResult(reply, err)
		reply.WriteUint32(uint32(id))

	case CodeAddWindow:
		prop, err := property.Decode(data)
		if err != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		writeResult(reply, s.impl.AddWindow(ctx, prop))

	case CodeRemoveWindow, CodeDestroyWindow, CodeRequestFocus, CodeProcessPointUp:
		id, err := data.ReadUint32()
		if err != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		writeResult(reply, s.byID(ctx, code, wm.WindowID(id)))

	case CodeRegisterManagerAgent, CodeUnregisterManagerAgent:
		typ, err := data.ReadUint32()
		if err != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		agent, err := ReadRemote(data)
		if err != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		if code == CodeRegisterManagerAgent {
			err = s.impl.RegisterManagerAgent(ctx, ManagerAgentType(typ), agent)
		} else {
			err = s.impl.UnregisterManagerAgent(ctx, ManagerAgentType(typ), agent)
		}
		writeResult(reply, err)

	case CodeGetAvoidArea:
		r := parcel.NewReader(data)
		id, typ := wm.WindowID(r.Uint32()), wm.AvoidAreaType(r.Uint32())
		if r.Err() != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		area, err := s.impl.GetAvoidArea(ctx, id, typ)
		writeResult(reply, err)
		property.WriteAvoidArea(reply, area)

	case CodeGetTopWindowID:
		id, err := data.ReadUint32()
		if err != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		top, err := s.impl.GetTopWindowID(ctx, wm.WindowID(id))
		writeResult(reply, err)
		reply.WriteUint32(uint32(top))

	case CodeProcessPointDown:
		r := parcel.NewReader(data)
		id, down := wm.WindowID(r.Uint32()), r.Bool()
		if r.Err() != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		writeResult(reply, s.impl.ProcessPointDown(ctx, id, down))

	case CodeMinimizeAllAppWindows, CodeNotifyScreenshotEvent:
		display, err := data.ReadUint64()
		if err != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		if code == CodeMinimizeAllAppWindows {
			err = s.impl.MinimizeAllAppWindows(ctx, wm.DisplayID(display))
		} else {
			err = s.impl.NotifyScreenshotEvent(ctx, wm.DisplayID(display))
		}
		writeResult(reply, err)

	case CodeToggleShownStateForAllAppWindows:
		writeResult(reply, s.impl.ToggleShownStateForAllAppWindows(ctx))

	case CodeUpdateProperty:
		action, err := data.ReadUint32()
		if err != nil || !property.Action(action).Valid() {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		prop := property.New()
		if err := prop.ReadAction(data, property.Action(action)); err != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		writeResult(reply, s.impl.UpdateProperty(ctx, prop, property.Action(action)))

	case CodeUpdateAvoidAreaListener:
		r := parcel.NewReader(data)
		id, enable := wm.WindowID(r.Uint32()), r.Bool()
		if r.Err() != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		writeResult(reply, s.impl.UpdateAvoidAreaListener(ctx, id, enable))

	case CodeBindDialogTarget:
		r := parcel.NewReader(data)
		id, target := wm.WindowID(r.Uint32()), wm.WindowID(r.Uint32())
		if r.Err() != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		writeResult(reply, s.impl.BindDialogTarget(ctx, id, target))

	case CodeSetWindowGravity:
		r := parcel.NewReader(data)
		id, gravity, percent := wm.WindowID(r.Uint32()), wm.Gravity(r.Uint32()), r.Uint32()
		if r.Err() != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		writeResult(reply, s.impl.SetWindowGravity(ctx, id, gravity, percent))

	case CodeListWindowInfo:
		infos, err := s.impl.ListWindowInfo(ctx)
		writeResult(reply, err)
		writeWindowInfos(reply, infos)

	case CodeRecoverWindow:
		agent, err := ReadRemote(data)
		if err != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		prop, err := property.Decode(data)
		if err != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		writeResult(reply, s.impl.RecoverWindow(ctx, agent, prop))

	case CodeRecordEvent:
		r := parcel.NewReader(data)
		id, event := wm.WindowID(r.Uint32()), r.Str()
		if r.Err() != nil {
			return rejected(ServiceDescriptor, StatusInvalidData)
		}
		writeResult(reply, s.impl.RecordEvent(ctx, id, event))

	default:
		return rejected(ServiceDescriptor, StatusUnknownTransaction)
	}
	return StatusOK
}

func (s *ServiceStub) byID(ctx context.Context, code Code, id wm.WindowID) error {
	switch code {
	case CodeRemoveWindow:
		return s.impl.RemoveWindow(ctx, id)
	case CodeDestroyWindow:
		return s.impl.DestroyWindow(ctx, id)
	case CodeRequestFocus:
		return s.impl.RequestFocus(ctx, id)
	default:
		return s.impl.ProcessPointUp(ctx, id)
	}
}
