package property

import (
	"fmt"
	"slices"

	"github.com/1broseidon/winsession/internal/parcel"
	"github.com/1broseidon/winsession/internal/wm"
)

func writeRect(p *parcel.Parcel, r wm.Rect) {
	p.WriteInt32(r.X)
	p.WriteInt32(r.Y)
	p.WriteUint32(r.Width)
	p.WriteUint32(r.Height)
}

func readRect(r *parcel.Reader) wm.Rect {
	return wm.Rect{X: r.Int32(), Y: r.Int32(), Width: r.Uint32(), Height: r.Uint32()}
}

// WriteRect encodes a rectangle in the same layout the property uses.
func WriteRect(p *parcel.Parcel, r wm.Rect) { writeRect(p, r) }

// ReadRect decodes a rectangle written by WriteRect.
func ReadRect(r *parcel.Reader) wm.Rect { return readRect(r) }

// WriteAvoidArea encodes the four edges of an avoid area.
func WriteAvoidArea(p *parcel.Parcel, a wm.AvoidArea) {
	writeRect(p, a.Top)
	writeRect(p, a.Left)
	writeRect(p, a.Right)
	writeRect(p, a.Bottom)
}

// ReadAvoidArea decodes an avoid area written by WriteAvoidArea.
func ReadAvoidArea(r *parcel.Reader) wm.AvoidArea {
	return wm.AvoidArea{Top: readRect(r), Left: readRect(r), Right: readRect(r), Bottom: readRect(r)}
}

func writeTransform(p *parcel.Parcel, t wm.Transform) {
	p.WriteFloat32(t.PivotX)
	p.WriteFloat32(t.PivotY)
	p.WriteFloat32(t.ScaleX)
	p.WriteFloat32(t.ScaleY)
	p.WriteFloat32(t.TranslateX)
	p.WriteFloat32(t.TranslateY)
}

func readTransform(r *parcel.Reader) wm.Transform {
	return wm.Transform{
		PivotX:     r.Float32(),
		PivotY:     r.Float32(),
		ScaleX:     r.Float32(),
		ScaleY:     r.Float32(),
		TranslateX: r.Float32(),
		TranslateY: r.Float32(),
	}
}

// system bars are written in type order so equal maps encode identically.
func writeSystemBars(p *parcel.Parcel, bars map[wm.WindowType]wm.SystemBarProperty) {
	keys := make([]wm.WindowType, 0, len(bars))
	for k := range bars {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	p.WriteUint32(uint32(len(keys)))
	for _, k := range keys {
		v := bars[k]
		p.WriteUint32(uint32(k))
		p.WriteBool(v.Enable)
		p.WriteUint32(v.BackgroundColor)
		p.WriteUint32(v.ContentColor)
	}
}

func readSystemBars(r *parcel.Reader) map[wm.WindowType]wm.SystemBarProperty {
	n := r.Count(MaxSystemBarEntries)
	bars := make(map[wm.WindowType]wm.SystemBarProperty, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		k := wm.WindowType(r.Uint32())
		bars[k] = wm.SystemBarProperty{
			Enable:          r.Bool(),
			BackgroundColor: r.Uint32(),
			ContentColor:    r.Uint32(),
		}
	}
	return bars
}

func writeHotAreas(p *parcel.Parcel, areas []wm.Rect) {
	p.WriteUint32(uint32(len(areas)))
	for _, a := range areas {
		writeRect(p, a)
	}
}

func readHotAreas(r *parcel.Reader) []wm.Rect {
	n := r.Count(MaxTouchHotAreas)
	if n == 0 {
		return nil
	}
	areas := make([]wm.Rect, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		areas = append(areas, readRect(r))
	}
	return areas
}

// Encode writes every field of the property. It fails only when a collection
// exceeds what Decode would accept.
func (w *WindowProperty) Encode(p *parcel.Parcel) error {
	if len(w.SystemBars) > MaxSystemBarEntries {
		return fmt.Errorf("%w: %d system bars", parcel.ErrCollectionTooLarge, len(w.SystemBars))
	}
	if len(w.TouchHotAreas) > MaxTouchHotAreas {
		return fmt.Errorf("%w: %d touch hot areas", parcel.ErrCollectionTooLarge, len(w.TouchHotAreas))
	}
	p.WriteString(w.Name)
	p.WriteUint32(uint32(w.ID))
	p.WriteUint32(uint32(w.ParentID))
	writeRect(p, w.Rect)
	writeRect(p, w.RequestRect)
	writeRect(p, w.OriginRect)
	p.WriteUint32(uint32(w.Type))
	p.WriteUint32(uint32(w.Mode))
	p.WriteUint32(uint32(w.LastMode))
	p.WriteUint32(uint32(w.ModeSupport))
	p.WriteUint32(uint32(w.Flags))
	p.WriteFloat32(w.Alpha)
	p.WriteFloat32(w.Brightness)
	writeTransform(p, w.Transform)
	p.WriteFloat32(w.AspectRatio)
	p.WriteBool(w.Focusable)
	p.WriteBool(w.Touchable)
	p.WriteBool(w.PrivacyMode)
	p.WriteBool(w.Transparent)
	p.WriteBool(w.KeepScreenOn)
	p.WriteBool(w.TurnScreenOn)
	p.WriteUint32(uint32(w.Decor))
	writeSystemBars(p, w.SystemBars)
	p.WriteUint64(uint64(w.DisplayID))
	p.WriteUint32(uint32(w.RequestedOrientation))
	p.WriteUint32(w.AnimationFlag)
	p.WriteUint32(uint32(w.CallingWindow))
	p.WriteUint32(uint32(w.SizeChangeReason))
	p.WriteUint32(uint32(w.DragType))
	p.WriteUint32(uint32(w.Gravity))
	p.WriteUint32(w.GravityPercent)
	p.WriteInt32(w.HitOffset.X)
	p.WriteInt32(w.HitOffset.Y)
	writeHotAreas(p, w.TouchHotAreas)
	return nil
}

// Decode reads a property written by Encode. On any error the partial
// record is discarded.
func Decode(p *parcel.Parcel) (*WindowProperty, error) {
	r := parcel.NewReader(p)
	w := &WindowProperty{}
	w.Name = r.Str()
	w.ID = wm.WindowID(r.Uint32())
	w.ParentID = wm.WindowID(r.Uint32())
	w.Rect = readRect(r)
	w.RequestRect = readRect(r)
	w.OriginRect = readRect(r)
	w.Type = wm.WindowType(r.Uint32())
	w.Mode = wm.WindowMode(r.Uint32())
	w.LastMode = wm.WindowMode(r.Uint32())
	w.ModeSupport = wm.ModeSupport(r.Uint32())
	w.Flags = wm.WindowFlag(r.Uint32())
	w.Alpha = r.Float32()
	w.Brightness = r.Float32()
	w.Transform = readTransform(r)
	w.AspectRatio = r.Float32()
	w.Focusable = r.Bool()
	w.Touchable = r.Bool()
	w.PrivacyMode = r.Bool()
	w.Transparent = r.Bool()
	w.KeepScreenOn = r.Bool()
	w.TurnScreenOn = r.Bool()
	w.Decor = DecorStatus(r.Uint32())
	w.SystemBars = readSystemBars(r)
	w.DisplayID = wm.DisplayID(r.Uint64())
	w.RequestedOrientation = wm.Orientation(r.Uint32())
	w.AnimationFlag = r.Uint32()
	w.CallingWindow = wm.WindowID(r.Uint32())
	w.SizeChangeReason = wm.SizeChangeReason(r.Uint32())
	w.DragType = DragType(r.Uint32())
	w.Gravity = wm.Gravity(r.Uint32())
	w.GravityPercent = r.Uint32()
	w.HitOffset = wm.Point{X: r.Int32(), Y: r.Int32()}
	w.TouchHotAreas = readHotAreas(r)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode window property: %w", err)
	}
	w.ensureSystemBars()
	return w, nil
}
