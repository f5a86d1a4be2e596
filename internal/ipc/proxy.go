package ipc

import (
	"context"
	"errors"

	"github.com/1broseidon/winsession/internal/parcel"
	"github.com/1broseidon/winsession/internal/wm"
)

// proxy is the sending half shared by every interface proxy.
type proxy struct {
	remote     Remote
	descriptor string
	catalog    map[Code]Message
}

// call writes the descriptor and arguments, sends the request with the
// catalog's delivery mode and maps transport failures to wm.ErrIPCFailed.
func (p proxy) call(ctx context.Context, code Code, write func(*parcel.Parcel) error) (*parcel.Parcel, error) {
	msg := lookup(p.catalog, code)
	data := parcel.New()
	writeToken(data, p.descriptor)
	if write != nil {
		if err := write(data); err != nil {
			return nil, wm.Wrap(wm.CodeInvalidParam, msg.Name, err)
		}
	}

	metricRequests.WithLabelValues(p.descriptor, msg.Name).Inc()
	reply, err := p.remote.SendRequest(ctx, code, data, msg.Option)
	if err != nil {
		metricFailures.WithLabelValues(p.descriptor, msg.Name).Inc()
		if errors.Is(err, ErrPeerDead) {
			metricPeerDeaths.WithLabelValues(p.descriptor).Inc()
		}
		return nil, wm.Wrap(wm.CodeIPCFailed, msg.Name, err)
	}
	return reply, nil
}

// callResult sends a request and decodes the leading result code. Async
// requests have no reply and succeed once delivered.
func (p proxy) callResult(ctx context.Context, code Code, write func(*parcel.Parcel) error) (*parcel.Parcel, error) {
	reply, err := p.call(ctx, code, write)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, nil
	}
	msg := lookup(p.catalog, code)
	result, err := reply.ReadInt32()
	if err != nil {
		return nil, wm.Wrap(wm.CodeIPCFailed, msg.Name, err)
	}
	if err := wm.FromCode(wm.ErrorCode(result), msg.Name); err != nil {
		return nil, err
	}
	return reply, nil
}

// Remote returns the transport handle behind the proxy.
func (p proxy) Remote() Remote { return p.remote }

// writeResult writes the result code of err at the start of a reply.
func writeResult(reply *parcel.Parcel, err error) {
	reply.WriteInt32(int32(wm.CodeOf(err)))
}

// decodeErr maps a reply decode failure after a successful result.
func decodeErr(code Code, catalog map[Code]Message, err error) error {
	return wm.Wrap(wm.CodeIPCFailed, lookup(catalog, code).Name, err)
}
