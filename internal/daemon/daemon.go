package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/1broseidon/winsession/internal/config"
	"github.com/1broseidon/winsession/internal/hotkeys"
	"github.com/1broseidon/winsession/internal/ipc"
	"github.com/1broseidon/winsession/internal/platform"
	"github.com/1broseidon/winsession/internal/runtimepath"
	"github.com/1broseidon/winsession/internal/wm"
	"github.com/1broseidon/winsession/internal/wmservice"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Options configures a Daemon.
type Options struct {
	Config *config.Config
	Logger *slog.Logger
	// Displays overrides the provider selected by Config.Display.
	Displays platform.Provider
	// PIDFile overrides the runtime pid file; "-" disables it.
	PIDFile string
}

// Daemon serves the window manager service on a unix socket.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	displays   platform.Provider
	svc        *wmservice.Service
	reconciler *Reconciler
	socketPath string
	pidFile    string

	mu          sync.Mutex
	metricsAddr string
	ready       chan struct{}
}

// New builds the service and its display provider.
func New(opts Options) (*Daemon, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	displays := opts.Displays
	if displays == nil {
		var err error
		displays, err = newDisplayProvider(cfg)
		if err != nil {
			return nil, err
		}
	}

	socketPath, err := cfg.SocketPath()
	if err != nil {
		return nil, err
	}
	pidFile := opts.PIDFile
	if pidFile == "" {
		if pidFile, err = runtimepath.PIDFilePath(); err != nil {
			return nil, err
		}
	}

	svc := wmservice.New(wmservice.Options{
		Logger:                logger,
		Displays:              displays,
		RestrictSystemWindows: cfg.Service.GetRestrictSystemWindows(),
	})

	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		displays: displays,
		svc:      svc,
		reconciler: NewReconciler(ReconcilerConfig{
			Interval: cfg.Reconciler.Interval,
			Logger:   logger.With("component", "reconciler"),
		}, svc),
		socketPath: socketPath,
		pidFile:    pidFile,
		ready:      make(chan struct{}),
	}, nil
}

func newDisplayProvider(cfg *config.Config) (platform.Provider, error) {
	switch cfg.Display.Backend {
	case config.BackendX11:
		return platform.NewX11Provider(cfg.Display.X11Display, cfg.Display.CacheTTL)
	case config.BackendStatic, "":
		return platform.NewStatic(cfg.StaticDisplays()...), nil
	default:
		return nil, fmt.Errorf("unknown display backend %q", cfg.Display.Backend)
	}
}

// Service returns the served window manager.
func (d *Daemon) Service() *wmservice.Service { return d.svc }

// SocketPath returns the socket the daemon listens on.
func (d *Daemon) SocketPath() string { return d.socketPath }

// Ready is closed once the socket and metrics listener are up.
func (d *Daemon) Ready() <-chan struct{} { return d.ready }

// MetricsAddr returns the bound metrics address, empty when disabled or not
// yet listening.
func (d *Daemon) MetricsAddr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metricsAddr
}

func (d *Daemon) registerHotkeys(h *hotkeys.Handler) error {
	if seq := d.cfg.Hotkeys.ToggleAll; seq != "" {
		if err := h.RegisterToggleAll(seq); err != nil {
			return err
		}
	}
	if seq := d.cfg.Hotkeys.MinimizeAll; seq != "" {
		if err := h.RegisterMinimizeAll(seq, wm.DefaultDisplayID); err != nil {
			return err
		}
	}
	return nil
}

// Run serves until ctx is cancelled or a component fails.
func (d *Daemon) Run(ctx context.Context) error {
	if d.pidFile != "-" {
		if err := WritePIDFile(d.pidFile); err != nil {
			return err
		}
		defer RemovePIDFile(d.pidFile)
	}

	server, err := ipc.NewServer(d.socketPath, ipc.NewServiceStub(d.svc), d.logger)
	if err != nil {
		return err
	}
	server.OnConnect(func(c *ipc.Conn) {
		metricConnections.Inc()
		go func() {
			<-c.Done()
			metricConnections.Dec()
		}()
	})
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	g, ctx := errgroup.WithContext(ctx)

	if d.cfg.Metrics.GetEnabled() {
		ln, err := net.Listen("tcp", d.cfg.Metrics.Listen)
		if err != nil {
			return fmt.Errorf("failed to listen for metrics: %w", err)
		}
		d.mu.Lock()
		d.metricsAddr = ln.Addr().String()
		d.mu.Unlock()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		d.logger.Info("metrics listening", "addr", ln.Addr().String())

		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if x, ok := d.displays.(*platform.X11Provider); ok {
		defer x.Disconnect()
		if conn := x.Connection(); conn != nil {
			h := hotkeys.NewHandler(conn.XUtil, conn.Root, d.svc, d.logger)
			if err := d.registerHotkeys(h); err != nil {
				d.logger.Warn("hotkeys unavailable", "error", err)
			}
			g.Go(func() error {
				h.Run(ctx)
				return nil
			})
		}
	}

	if d.cfg.Reconciler.GetEnabled() {
		// Clear windows left by clients that died while nobody was watching.
		d.reconciler.ReconcileNow(ctx)
		g.Go(func() error {
			d.reconciler.Run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	close(d.ready)
	d.logger.Info("winsession daemon started", "socket", d.socketPath, "displays", d.cfg.Display.Backend)

	err = g.Wait()
	d.logger.Info("winsession daemon stopped")
	return err
}
