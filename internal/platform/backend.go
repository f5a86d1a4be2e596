package platform

import (
	"sort"
	"sync"

	"github.com/1broseidon/winsession/internal/wm"
)

// Provider reports the displays windows are laid out on.
type Provider interface {
	Displays() ([]wm.DisplayInfo, error)
	Display(id wm.DisplayID) (wm.DisplayInfo, error)
}

// DefaultDisplay is reported by a static provider configured with no
// displays.
var DefaultDisplay = wm.DisplayInfo{
	ID:      wm.DefaultDisplayID,
	Name:    "default",
	Bounds:  wm.Rect{Width: 1920, Height: 1080},
	Usable:  wm.Rect{Width: 1920, Height: 1080},
	Density: 1,
}

// Static serves a fixed display list, typically taken from configuration.
type Static struct {
	mu       sync.RWMutex
	displays map[wm.DisplayID]wm.DisplayInfo
}

var _ Provider = (*Static)(nil)

// NewStatic builds a provider over displays. Displays without a usable area
// use their bounds; a zero density becomes 1.
func NewStatic(displays ...wm.DisplayInfo) *Static {
	s := &Static{displays: make(map[wm.DisplayID]wm.DisplayInfo)}
	if len(displays) == 0 {
		displays = []wm.DisplayInfo{DefaultDisplay}
	}
	for _, d := range displays {
		s.Set(d)
	}
	return s
}

// Set adds or replaces a display.
func (s *Static) Set(d wm.DisplayInfo) {
	if d.Usable.IsEmpty() {
		d.Usable = d.Bounds
	}
	if d.Density <= 0 {
		d.Density = 1
	}
	s.mu.Lock()
	s.displays[d.ID] = d
	s.mu.Unlock()
}

// Displays returns every display ordered by id.
func (s *Static) Displays() ([]wm.DisplayInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]wm.DisplayInfo, 0, len(s.displays))
	for _, d := range s.displays {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Static) Display(id wm.DisplayID) (wm.DisplayInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.displays[id]
	if !ok {
		return wm.DisplayInfo{}, wm.Errorf(wm.CodeInvalidDisplay, "Display", "display %d", id)
	}
	return d, nil
}

// lookup finds id in a display list.
func lookup(displays []wm.DisplayInfo, id wm.DisplayID) (wm.DisplayInfo, error) {
	for _, d := range displays {
		if d.ID == id {
			return d, nil
		}
	}
	return wm.DisplayInfo{}, wm.Errorf(wm.CodeInvalidDisplay, "Display", "display %d", id)
}
