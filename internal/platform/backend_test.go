package platform

import (
	"errors"
	"testing"

	"github.com/1broseidon/winsession/internal/wm"
)

func TestNewStatic_DefaultsToSingleDisplay(t *testing.T) {
	p := NewStatic()
	displays, err := p.Displays()
	if err != nil {
		t.Fatalf("Displays() error: %v", err)
	}
	if len(displays) != 1 || displays[0] != DefaultDisplay {
		t.Fatalf("Displays() = %+v, want [%+v]", displays, DefaultDisplay)
	}
}

func TestStatic_FillsUsableAndDensity(t *testing.T) {
	bounds := wm.Rect{X: 1920, Width: 1280, Height: 1024}
	p := NewStatic(wm.DisplayInfo{ID: 3, Bounds: bounds})

	d, err := p.Display(3)
	if err != nil {
		t.Fatalf("Display(3) error: %v", err)
	}
	if d.Usable != bounds {
		t.Fatalf("Usable = %v, want %v", d.Usable, bounds)
	}
	if d.Density != 1 {
		t.Fatalf("Density = %v, want 1", d.Density)
	}
}

func TestStatic_UnknownDisplay(t *testing.T) {
	p := NewStatic()
	_, err := p.Display(9)
	if !errors.Is(err, wm.ErrInvalidDisplay) {
		t.Fatalf("Display(9) error = %v, want %v", err, wm.ErrInvalidDisplay)
	}
}

func TestStatic_DisplaysSortedByID(t *testing.T) {
	p := NewStatic(
		wm.DisplayInfo{ID: 2, Bounds: wm.Rect{Width: 10, Height: 10}},
		wm.DisplayInfo{ID: 0, Bounds: wm.Rect{Width: 10, Height: 10}},
		wm.DisplayInfo{ID: 1, Bounds: wm.Rect{Width: 10, Height: 10}},
	)
	displays, err := p.Displays()
	if err != nil {
		t.Fatalf("Displays() error: %v", err)
	}
	for i, d := range displays {
		if d.ID != wm.DisplayID(i) {
			t.Fatalf("Displays()[%d].ID = %d, want %d", i, d.ID, i)
		}
	}
}
