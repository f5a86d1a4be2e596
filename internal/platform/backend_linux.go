//go:build linux

package platform

import (
	"fmt"
	"sync"
	"time"

	"github.com/1broseidon/winsession/internal/wm"
	"github.com/1broseidon/winsession/internal/x11"
)

// X11Provider reports RandR monitors of an X11 server.
type X11Provider struct {
	conn *x11.Connection

	mu       sync.Mutex
	cached   []wm.DisplayInfo
	cachedAt time.Time
	ttl      time.Duration
}

var _ Provider = (*X11Provider)(nil)

// NewX11Provider opens a connection to display (empty means DISPLAY).
// Monitor queries are cached for ttl.
func NewX11Provider(display string, ttl time.Duration) (*X11Provider, error) {
	conn, err := x11.NewConnectionDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &X11Provider{conn: conn, ttl: ttl}, nil
}

// Disconnect closes the underlying X11 connection.
func (p *X11Provider) Disconnect() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}

// Connection returns the underlying X11 connection.
func (p *X11Provider) Connection() *x11.Connection {
	if p == nil {
		return nil
	}
	return p.conn
}

// Displays returns all active displays.
func (p *X11Provider) Displays() ([]wm.DisplayInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil && time.Since(p.cachedAt) < p.ttl {
		return p.cached, nil
	}
	monitors, err := p.conn.GetMonitors()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return nil, fmt.Errorf("no monitors found")
	}
	displays := make([]wm.DisplayInfo, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, monitorInfo(m))
	}
	p.cached, p.cachedAt = displays, time.Now()
	return displays, nil
}

func (p *X11Provider) Display(id wm.DisplayID) (wm.DisplayInfo, error) {
	displays, err := p.Displays()
	if err != nil {
		return wm.DisplayInfo{}, wm.Wrap(wm.CodeInvalidDisplay, "Display", err)
	}
	return lookup(displays, id)
}

func monitorInfo(m x11.Monitor) wm.DisplayInfo {
	return wm.DisplayInfo{
		ID:       wm.DisplayID(m.ID),
		Name:     m.Name,
		Bounds:   wm.Rect{X: int32(m.X), Y: int32(m.Y), Width: uint32(m.Width), Height: uint32(m.Height)},
		Usable:   wm.Rect{X: int32(m.UsableX), Y: int32(m.UsableY), Width: uint32(m.UsableWidth), Height: uint32(m.UsableHeight)},
		Density:  x11.Density(m.Width, m.MMWidth),
		Rotation: wm.Rotation(m.QuarterTurns),
	}
}
