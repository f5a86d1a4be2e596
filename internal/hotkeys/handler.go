package hotkeys

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/1broseidon/winsession/internal/wm"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Service is the part of the window manager hotkeys drive.
type Service interface {
	MinimizeAllAppWindows(ctx context.Context, display wm.DisplayID) error
	ToggleShownStateForAllAppWindows(ctx context.Context) error
}

const actionTimeout = 2 * time.Second

// Handler manages global keyboard shortcuts
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	svc    Service
	logger *slog.Logger
}

var initOnce sync.Once

// NewHandler creates a new hotkey handler on an X connection.
func NewHandler(xu *xgbutil.XUtil, root xproto.Window, svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	initOnce.Do(func() {
		keybind.Initialize(xu)
		configureIgnoreMods(xu)
	})
	return &Handler{
		xu:     xu,
		root:   root,
		svc:    svc,
		logger: logger.With("component", "hotkeys"),
	}
}

// RegisterToggleAll binds keySequence to minimizing or restoring every
// application window.
func (h *Handler) RegisterToggleAll(keySequence string) error {
	return h.RegisterFunc(keySequence, func() {
		h.run("toggle_all", func(ctx context.Context) error {
			return h.svc.ToggleShownStateForAllAppWindows(ctx)
		})
	})
}

// RegisterMinimizeAll binds keySequence to minimizing the application
// windows of display.
func (h *Handler) RegisterMinimizeAll(keySequence string, display wm.DisplayID) error {
	return h.RegisterFunc(keySequence, func() {
		h.run("minimize_all", func(ctx context.Context) error {
			return h.svc.MinimizeAllAppWindows(ctx, display)
		})
	})
}

func (h *Handler) run(action string, fn func(ctx context.Context) error) {
	h.logger.Debug("hotkey triggered", "action", action)
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		h.logger.Warn("hotkey action failed", "action", action, "error", err)
	}
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	if err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true); err != nil {
		return fmt.Errorf("failed to register hotkey %q: %w", keySequence, err)
	}
	return nil
}

// Run processes X events until ctx is cancelled.
func (h *Handler) Run(ctx context.Context) {
	go xevent.Main(h.xu)
	<-ctx.Done()
	xevent.Quit(h.xu)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}
	xevent.IgnoreMods = ignoreMasks(base)
}

// ignoreMasks returns every combination of the lock masks in base,
// including the empty one, sorted.
func ignoreMasks(base []uint16) []uint16 {
	unique := map[uint16]struct{}{0: {}}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		unique[mask] = struct{}{}
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}
	sort.Slice(ignore, func(i, j int) bool { return ignore[i] < ignore[j] })
	return ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
