package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/1broseidon/winsession/internal/ipc"
	"github.com/1broseidon/winsession/internal/wm"
)

type fakeService struct {
	windows     []ipc.WindowInfo
	minimized   []wm.DisplayID
	toggles     int
	screenshots []wm.DisplayID
	listErr     error
}

func (f *fakeService) ListWindowInfo(context.Context) ([]ipc.WindowInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.windows), nil
}

func (f *fakeService) RequestFocus(_ context.Context, id wm.WindowID) error {
	found := false
	for i := range f.windows {
		if f.windows[i].ID == id {
			found = f.windows[i].Visible
		}
	}
	if !found {
		return wm.Errorf(wm.CodeInvalidOperation, "RequestFocus", "window %d", id)
	}
	for i := range f.windows {
		f.windows[i].Focused = f.windows[i].ID == id
	}
	return nil
}

func (f *fakeService) MinimizeAllAppWindows(_ context.Context, display wm.DisplayID) error {
	f.minimized = append(f.minimized, display)
	for i := range f.windows {
		if f.windows[i].DisplayID == display && f.windows[i].Type.IsMainWindow() {
			f.windows[i].Visible = false
			f.windows[i].Focused = false
		}
	}
	return nil
}

func (f *fakeService) ToggleShownStateForAllAppWindows(context.Context) error {
	f.toggles++
	return nil
}

func (f *fakeService) NotifyScreenshotEvent(_ context.Context, display wm.DisplayID) error {
	f.screenshots = append(f.screenshots, display)
	return nil
}

func newTestServer(svc *fakeService) *Server {
	return NewServer(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sampleWindows() []ipc.WindowInfo {
	return []ipc.WindowInfo{
		{ID: 1, Name: "editor", Type: wm.TypeAppMainWindow, Mode: wm.ModeFullscreen, Rect: wm.Rect{Width: 800, Height: 600}, Visible: true, Focused: true},
		{ID: 2, ParentID: 1, Name: "editor-sub", Type: wm.TypeAppSubWindow, Visible: true},
		{ID: 3, Name: "hidden", Type: wm.TypeAppMainWindow, Visible: false},
		{ID: 4, Name: "other", Type: wm.TypeAppMainWindow, DisplayID: 1, Visible: true},
	}
}

func windowIDs(ws []WindowSummary) []uint64 {
	ids := make([]uint64, 0, len(ws))
	for _, w := range ws {
		ids = append(ids, w.ID)
	}
	return ids
}

func TestHandleListWindows(t *testing.T) {
	display := uint64(0)
	tests := []struct {
		name string
		args ListWindowsInput
		want []uint64
	}{
		{"all", ListWindowsInput{}, []uint64{1, 2, 3, 4}},
		{"visible only", ListWindowsInput{VisibleOnly: true}, []uint64{1, 2, 4}},
		{"display 0", ListWindowsInput{Display: &display}, []uint64{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeService{windows: sampleWindows()})
			_, out, err := s.handleListWindows(context.Background(), nil, tt.args)
			if err != nil {
				t.Fatalf("handleListWindows() error: %v", err)
			}
			if got := windowIDs(out.Windows); !slices.Equal(got, tt.want) {
				t.Fatalf("windows = %v, want %v", got, tt.want)
			}
			if out.Focused != 1 {
				t.Fatalf("Focused = %d, want 1", out.Focused)
			}
		})
	}
}

func TestHandleListWindows_Summary(t *testing.T) {
	s := newTestServer(&fakeService{windows: sampleWindows()[:1]})
	_, out, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{})
	if err != nil {
		t.Fatalf("handleListWindows() error: %v", err)
	}
	got := out.Windows[0]
	if got.Type != wm.TypeAppMainWindow.String() || got.Mode != wm.ModeFullscreen.String() || got.Width != 800 {
		t.Fatalf("summary = %+v", got)
	}
}

func TestHandleListWindows_ServiceError(t *testing.T) {
	s := newTestServer(&fakeService{listErr: wm.ErrIPCFailed})
	if _, _, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{}); !errors.Is(err, wm.ErrIPCFailed) {
		t.Fatalf("handleListWindows() error = %v, want %v", err, wm.ErrIPCFailed)
	}
}

func TestHandleFocusWindow(t *testing.T) {
	svc := &fakeService{windows: sampleWindows()}
	s := newTestServer(svc)

	_, out, err := s.handleFocusWindow(context.Background(), nil, FocusWindowInput{ID: 4})
	if err != nil {
		t.Fatalf("handleFocusWindow() error: %v", err)
	}
	if out.Focused != 4 {
		t.Fatalf("Focused = %d, want 4", out.Focused)
	}

	if _, _, err := s.handleFocusWindow(context.Background(), nil, FocusWindowInput{ID: 3}); !errors.Is(err, wm.ErrInvalidOperation) {
		t.Fatalf("focus hidden window error = %v, want %v", err, wm.ErrInvalidOperation)
	}
	if _, _, err := s.handleFocusWindow(context.Background(), nil, FocusWindowInput{}); err == nil {
		t.Fatal("focus without id succeeded")
	}
}

func TestHandleMinimizeAll(t *testing.T) {
	svc := &fakeService{windows: sampleWindows()}
	s := newTestServer(svc)

	_, out, err := s.handleMinimizeAll(context.Background(), nil, MinimizeAllInput{})
	if err != nil {
		t.Fatalf("handleMinimizeAll() error: %v", err)
	}
	if !slices.Equal(svc.minimized, []wm.DisplayID{0}) {
		t.Fatalf("minimized displays = %v, want [0]", svc.minimized)
	}
	if !slices.Equal(out.Visible, []uint64{2, 4}) {
		t.Fatalf("Visible = %v, want [2 4]", out.Visible)
	}
	if out.Focused != 0 {
		t.Fatalf("Focused = %d, want 0", out.Focused)
	}
}

func TestHandleToggleAllAndScreenshot(t *testing.T) {
	svc := &fakeService{windows: sampleWindows()}
	s := newTestServer(svc)

	if _, _, err := s.handleToggleAll(context.Background(), nil, ToggleAllInput{}); err != nil {
		t.Fatalf("handleToggleAll() error: %v", err)
	}
	if svc.toggles != 1 {
		t.Fatalf("toggles = %d, want 1", svc.toggles)
	}
	if _, _, err := s.handleScreenshot(context.Background(), nil, ScreenshotInput{Display: 1}); err != nil {
		t.Fatalf("handleScreenshot() error: %v", err)
	}
	if !slices.Equal(svc.screenshots, []wm.DisplayID{1}) {
		t.Fatalf("screenshots = %v, want [1]", svc.screenshots)
	}
}
