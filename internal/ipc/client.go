package ipc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// DefaultDialTimeout bounds connection setup when ctx has no deadline.
const DefaultDialTimeout = 5 * time.Second

// Dial connects to the service listening at socketPath. The returned
// connection serves no root object; objects the client passes in requests
// are exported on demand.
func Dial(ctx context.Context, socketPath string, logger *slog.Logger) (*Conn, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultDialTimeout)
		defer cancel()
	}

	var d net.Dialer
	nc, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	return newConn(nc, nil, logger), nil
}
