package property

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/1broseidon/winsession/internal/parcel"
	"github.com/1broseidon/winsession/internal/wm"
)

func sample() *WindowProperty {
	p := New()
	p.Name = "main"
	p.ID = 42
	p.ParentID = 7
	p.Rect = wm.Rect{X: 1, Y: 2, Width: 300, Height: 400}
	p.RequestRect = wm.Rect{X: 5, Y: 6, Width: 30, Height: 40}
	p.Type = wm.TypeAppSubWindow
	p.SetMode(wm.ModeFloating)
	p.AddFlag(wm.FlagNeedAvoid | wm.FlagShowWhenLocked)
	p.Alpha = 0.75
	p.PrivacyMode = true
	p.DisplayID = 1 << 33
	p.TouchHotAreas = []wm.Rect{{X: 0, Y: 0, Width: 10, Height: 10}}
	_ = p.SetSystemBar(wm.TypeStatusBar, wm.SystemBarProperty{Enable: false, BackgroundColor: 1, ContentColor: 2})
	return p
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := sample()
	buf := parcel.New()
	if err := want.Encode(buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := Decode(parcel.FromBytes(buf.Bytes(), nil))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("Decode() = %v, want %v", got, want)
	}
	if got.LastMode != wm.ModeFullscreen {
		t.Fatalf("LastMode = %v, want %v", got.LastMode, wm.ModeFullscreen)
	}
	if got.SystemBar(wm.TypeStatusBar).Enable {
		t.Fatalf("status bar entry lost its value")
	}
}

// full sets every field to a value different from New's default.
func full() *WindowProperty {
	p := sample()
	p.Name = "ünïcode window"
	p.OriginRect = wm.Rect{X: -20, Y: -30, Width: 1, Height: 1}
	p.ModeSupport = wm.SupportAll &^ 1
	p.Brightness = 0.5
	p.Transform = wm.Transform{PivotX: 0.5, PivotY: 0.25, ScaleX: 2, ScaleY: 3, TranslateX: -4, TranslateY: 5}
	p.AspectRatio = 1.5
	p.Focusable = false
	p.Touchable = false
	p.Transparent = true
	p.KeepScreenOn = true
	p.TurnScreenOn = true
	p.Decor = DecorEnabled
	_ = p.SetSystemBar(wm.TypeNavigationBar, wm.SystemBarProperty{Enable: true, BackgroundColor: 0xff00ff00, ContentColor: 0xffffffff})
	p.DisplayID = ^wm.DisplayID(0)
	p.RequestedOrientation = wm.Orientation(3)
	p.AnimationFlag = 1
	p.CallingWindow = 99
	p.SizeChangeReason = wm.SizeChangeReason(4)
	p.DragType = DragCorner
	p.Gravity = wm.Gravity(1)
	p.GravityPercent = 30
	p.HitOffset = wm.Point{X: -3, Y: 8}
	p.TouchHotAreas = []wm.Rect{{X: 0, Y: 0, Width: 10, Height: 10}, {X: -5, Y: 7, Width: 1 << 31, Height: 2}}
	return p
}

// random fills the fields from rng. Floats stay finite so DeepEqual holds.
func random(rng *rand.Rand) *WindowProperty {
	p := New()
	p.Name = string(rune('a' + rng.IntN(26)))
	p.ID = wm.WindowID(rng.Uint32())
	p.ParentID = wm.WindowID(rng.Uint32())
	p.Rect = wm.Rect{X: rng.Int32() - 1<<30, Y: rng.Int32(), Width: rng.Uint32(), Height: rng.Uint32()}
	p.Type = wm.WindowType(rng.Uint32())
	p.Mode = wm.WindowMode(rng.Uint32())
	p.Flags = wm.WindowFlag(rng.Uint32())
	p.Alpha = rng.Float32()
	p.Transform.ScaleX = rng.Float32() * 10
	p.PrivacyMode = rng.IntN(2) == 1
	p.DisplayID = wm.DisplayID(rng.Uint64())
	p.CallingWindow = wm.WindowID(rng.Uint32())
	p.HitOffset = wm.Point{X: rng.Int32(), Y: -rng.Int32()}
	_ = p.SetSystemBar(wm.TypeStatusBar, wm.SystemBarProperty{Enable: rng.IntN(2) == 1, BackgroundColor: rng.Uint32()})
	if n := rng.IntN(4); n > 0 {
		p.TouchHotAreas = make([]wm.Rect, n)
		for i := range p.TouchHotAreas {
			p.TouchHotAreas[i] = wm.Rect{X: rng.Int32(), Y: rng.Int32(), Width: rng.Uint32(), Height: rng.Uint32()}
		}
	}
	return p
}

func TestRoundTripPreservesEveryField(t *testing.T) {
	tests := []struct {
		name string
		prop *WindowProperty
	}{
		{"defaults", New()},
		{"sample", sample()},
		{"every field set", full()},
	}
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		tests = append(tests, struct {
			name string
			prop *WindowProperty
		}{"random", random(rng)})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := parcel.New()
			if err := tt.prop.Encode(buf); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := Decode(parcel.FromBytes(buf.Bytes(), nil))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.prop) {
				t.Fatalf("Decode() = %+v, want %+v", got, tt.prop)
			}
		})
	}
}

func TestEqualRejectsUnencodable(t *testing.T) {
	p := sample()
	p.TouchHotAreas = make([]wm.Rect, MaxTouchHotAreas+1)
	if p.Equal(p.Clone()) {
		t.Fatal("Equal() = true for a property that cannot be encoded")
	}
	if !sample().Equal(sample()) {
		t.Fatal("Equal() = false for identical properties")
	}
}

func TestDecodeTruncated(t *testing.T) {
	buf := parcel.New()
	if err := sample().Encode(buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	short := buf.Bytes()[:buf.Len()-8]
	if _, err := Decode(parcel.FromBytes(short, nil)); !errors.Is(err, parcel.ErrTruncated) {
		t.Fatalf("Decode(short) error = %v, want ErrTruncated", err)
	}
}

func TestDecodeOversizedSystemBarMap(t *testing.T) {
	p := sample()
	p.SystemBars = nil
	buf := parcel.New()
	if err := p.Encode(buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	// Rewrite the encoded bar count (zero, since the map is nil) in place.
	raw := buf.Bytes()
	idx := systemBarCountOffset(t, p)
	raw[idx] = MaxSystemBarEntries + 1
	if _, err := Decode(parcel.FromBytes(raw, nil)); !errors.Is(err, parcel.ErrCollectionTooLarge) {
		t.Fatalf("Decode() error = %v, want ErrCollectionTooLarge", err)
	}
}

// systemBarCountOffset finds where the bar count sits by encoding the fields
// that precede it.
func systemBarCountOffset(t *testing.T, p *WindowProperty) int {
	t.Helper()
	head := parcel.New()
	q := p.Clone()
	q.SystemBars = nil
	q.TouchHotAreas = nil
	if err := q.Encode(head); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	tail := parcel.New()
	writeSystemBars(tail, nil)
	tail.WriteUint64(uint64(q.DisplayID))
	for i := 0; i < 7; i++ {
		tail.WriteUint32(0)
	}
	tail.WriteInt32(0)
	tail.WriteInt32(0)
	writeHotAreas(tail, nil)
	return head.Len() - tail.Len()
}

func TestMandatorySystemBars(t *testing.T) {
	p := &WindowProperty{}
	buf := parcel.New()
	if err := p.Encode(buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := Decode(parcel.FromBytes(buf.Bytes(), nil))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	for _, bar := range []wm.WindowType{wm.TypeStatusBar, wm.TypeNavigationBar} {
		if _, ok := got.SystemBars[bar]; !ok {
			t.Fatalf("decoded property missing %v entry", bar)
		}
	}
	if err := got.SetSystemBar(wm.TypeDialog, wm.SystemBarProperty{}); !errors.Is(err, wm.ErrInvalidParam) {
		t.Fatalf("SetSystemBar(dialog) error = %v, want ErrInvalidParam", err)
	}
}

func TestActionDelta(t *testing.T) {
	src := sample()
	src.RequestRect = wm.Rect{X: 9, Y: 9, Width: 90, Height: 90}
	src.SizeChangeReason = wm.ReasonResize
	src.Focusable = false

	tests := []struct {
		action Action
		check  func(t *testing.T, got *WindowProperty)
	}{
		{ActionRect, func(t *testing.T, got *WindowProperty) {
			if got.RequestRect != src.RequestRect || got.SizeChangeReason != wm.ReasonResize {
				t.Fatalf("rect delta = %v/%v, want %v/%v", got.RequestRect, got.SizeChangeReason, src.RequestRect, wm.ReasonResize)
			}
			if !got.Focusable {
				t.Fatalf("rect delta changed focusable")
			}
		}},
		{ActionFocusable, func(t *testing.T, got *WindowProperty) {
			if got.Focusable {
				t.Fatalf("focusable delta not applied")
			}
			if got.RequestRect == src.RequestRect {
				t.Fatalf("focusable delta changed the rect")
			}
		}},
		{ActionOtherProps, func(t *testing.T, got *WindowProperty) {
			if got.SystemBar(wm.TypeStatusBar).Enable {
				t.Fatalf("system bar delta not applied")
			}
		}},
		{ActionMode, func(t *testing.T, got *WindowProperty) {
			if got.Mode != wm.ModeFloating {
				t.Fatalf("mode delta = %v, want floating", got.Mode)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			buf := parcel.New()
			if err := src.WriteAction(buf, tt.action); err != nil {
				t.Fatalf("WriteAction() error = %v", err)
			}
			dst := New()
			if err := dst.ReadAction(parcel.FromBytes(buf.Bytes(), nil), tt.action); err != nil {
				t.Fatalf("ReadAction() error = %v", err)
			}
			if dst.ID != src.ID {
				t.Fatalf("ID = %d, want %d", dst.ID, src.ID)
			}
			tt.check(t, dst)
		})
	}
}

func TestReadActionLeavesPropertyOnError(t *testing.T) {
	dst := sample()
	before := dst.Clone()
	buf := parcel.New()
	buf.WriteUint32(99)
	if err := dst.ReadAction(parcel.FromBytes(buf.Bytes(), nil), ActionRect); err == nil {
		t.Fatalf("ReadAction(short) error = nil")
	}
	if !dst.Equal(before) {
		t.Fatalf("ReadAction(short) modified the property")
	}
	if err := dst.ReadAction(parcel.New(), Action(999)); !errors.Is(err, wm.ErrInvalidParam) {
		t.Fatalf("ReadAction(unknown) error = %v, want ErrInvalidParam", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := sample()
	b := a.Clone()
	b.TouchHotAreas[0].Width = 99
	_ = b.SetSystemBar(wm.TypeNavigationBar, wm.SystemBarProperty{})
	if a.TouchHotAreas[0].Width == 99 {
		t.Fatalf("Clone() shares touch hot areas")
	}
	if !a.SystemBar(wm.TypeNavigationBar).Enable {
		t.Fatalf("Clone() shares system bars")
	}
}

func TestApplyActionKeepsID(t *testing.T) {
	dst := New()
	dst.ID = 5
	src := sample()
	src.Alpha = 0.25
	if err := dst.ApplyAction(src, ActionAlpha); err != nil {
		t.Fatalf("ApplyAction() error = %v", err)
	}
	if dst.ID != 5 || dst.Alpha != 0.25 {
		t.Fatalf("ApplyAction() = id %d alpha %v, want id 5 alpha 0.25", dst.ID, dst.Alpha)
	}
	if dst.Name == src.Name {
		t.Fatalf("ApplyAction(alpha) copied the name")
	}
}
