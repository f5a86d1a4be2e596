package wmservice

import (
	"context"

	"github.com/1broseidon/winsession/internal/property"
	"github.com/1broseidon/winsession/internal/wm"
)

// barHeight is the thickness given to status and navigation bars that do
// not request a rect of their own.
const barHeight = 48

// layout computes the effective rect of a window from its mode, gravity and
// display. Callers hold s.mu.
func (s *Service) layout(p *property.WindowProperty) wm.Rect {
	d := s.display(p.DisplayID)
	area := d.Usable
	if area.IsEmpty() {
		area = d.Bounds
	}

	if !p.RequestRect.IsEmpty() && (p.Mode == wm.ModeFloating || !p.Type.IsAppWindow()) {
		return p.RequestRect
	}

	switch {
	case p.Type == wm.TypeStatusBar:
		return wm.Rect{X: d.Bounds.X, Y: d.Bounds.Y, Width: d.Bounds.Width, Height: barHeight}
	case p.Type == wm.TypeNavigationBar:
		return wm.Rect{
			X:      d.Bounds.X,
			Y:      d.Bounds.Y + int32(d.Bounds.Height) - barHeight,
			Width:  d.Bounds.Width,
			Height: barHeight,
		}
	case p.Type.IsSubWindow():
		if parent, ok := s.windows[p.ParentID]; ok {
			return parent.prop.Rect
		}
	}

	var r wm.Rect
	switch p.Mode {
	case wm.ModeSplitPrimary:
		r = wm.Rect{X: area.X, Y: area.Y, Width: area.Width / 2, Height: area.Height}
	case wm.ModeSplitSecondary:
		half := area.Width / 2
		r = wm.Rect{X: area.X + int32(half), Y: area.Y, Width: area.Width - half, Height: area.Height}
	case wm.ModeFloating:
		w, h := area.Width/2, area.Height/2
		r = wm.Rect{X: area.X + int32(area.Width-w)/2, Y: area.Y + int32(area.Height-h)/2, Width: w, Height: h}
	case wm.ModePIP:
		w, h := area.Width/4, area.Height/4
		r = wm.Rect{X: area.X + int32(area.Width-w), Y: area.Y + int32(area.Height-h), Width: w, Height: h}
	default:
		r = area
	}

	if p.Gravity == wm.GravityBottom && p.GravityPercent > 0 {
		h := area.Height * p.GravityPercent / 100
		r = wm.Rect{X: area.X, Y: area.Y + int32(area.Height-h), Width: area.Width, Height: h}
	}
	return r
}

// avoidAreaLocked reports which parts of display are covered by shown
// system bars.
func (s *Service) avoidAreaLocked(display wm.DisplayID, typ wm.AvoidAreaType) wm.AvoidArea {
	var area wm.AvoidArea
	for _, rec := range s.windows {
		if !rec.shown || rec.prop.DisplayID != display {
			continue
		}
		switch {
		case rec.prop.Type == wm.TypeStatusBar && typ == wm.AvoidAreaSystem:
			area.Top = rec.prop.Rect
		case rec.prop.Type == wm.TypeNavigationBar && (typ == wm.AvoidAreaSystem || typ == wm.AvoidAreaNavigationIndicator):
			area.Bottom = rec.prop.Rect
		case rec.prop.Type == wm.TypeInputMethod && typ == wm.AvoidAreaKeyboard:
			area.Bottom = rec.prop.Rect
		}
	}
	return area
}

// avoidAreaPushesLocked tells every listening window on display its new
// system avoid area.
func (s *Service) avoidAreaPushesLocked(display wm.DisplayID) pushes {
	area := s.avoidAreaLocked(display, wm.AvoidAreaSystem)
	var ps pushes
	for _, id := range s.sortedIDsLocked() {
		rec := s.windows[id]
		if !rec.avoidWatch || rec.prop.DisplayID != display {
			continue
		}
		agent := rec.agent
		ps = append(ps, func(ctx context.Context) error {
			return agent.UpdateAvoidArea(ctx, area, wm.AvoidAreaSystem)
		})
	}
	return ps
}
