//go:build !linux

package platform

import (
	"errors"
	"time"

	"github.com/1broseidon/winsession/internal/wm"
	"github.com/1broseidon/winsession/internal/x11"
)

// X11Provider is only available on linux.
type X11Provider struct{}

var _ Provider = (*X11Provider)(nil)

func NewX11Provider(display string, ttl time.Duration) (*X11Provider, error) {
	return nil, errors.New("x11 display backend is only supported on linux")
}

func (p *X11Provider) Disconnect() {}

func (p *X11Provider) Connection() *x11.Connection { return nil }

func (p *X11Provider) Displays() ([]wm.DisplayInfo, error) {
	return nil, errors.New("x11 display backend is only supported on linux")
}

func (p *X11Provider) Display(id wm.DisplayID) (wm.DisplayInfo, error) {
	return lookup(nil, id)
}
