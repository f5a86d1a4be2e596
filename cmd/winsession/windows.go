package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/1broseidon/winsession/internal/adapter"
	"github.com/1broseidon/winsession/internal/ipc"
	"github.com/1broseidon/winsession/internal/wm"
)

const requestTimeout = 5 * time.Second

type client struct {
	adapter *adapter.Adapter
	logger  *slog.Logger
}

func newClient() (*client, error) {
	cfg, err := loadConfig("")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	socket, err := cfg.SocketPath()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return &client{
		adapter: adapter.New(adapter.SocketConnector(socket, logger), logger),
		logger:  logger,
	}, nil
}

func (c *client) Close() error { return c.adapter.Close() }

// withClient runs fn against the daemon with a request timeout.
func withClient(fn func(ctx context.Context, c *client) error) int {
	c, err := newClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := fn(ctx, c); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Print JSON")
	display := fs.Int("display", -1, "Only list windows on this display")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winsession windows [--json] [--display N]")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	return withClient(func(ctx context.Context, c *client) error {
		infos, err := c.adapter.ListWindowInfo(ctx)
		if err != nil {
			return fmt.Errorf("list windows: %w", err)
		}
		if *display >= 0 {
			infos = filterDisplay(infos, wm.DisplayID(*display))
		}
		switch {
		case *jsonOut:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		case term.IsTerminal(int(os.Stdout.Fd())):
			width, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				width = 0
			}
			return writeWindowTable(os.Stdout, infos, width)
		default:
			return writeWindowPlain(os.Stdout, infos)
		}
	})
}

func filterDisplay(infos []ipc.WindowInfo, display wm.DisplayID) []ipc.WindowInfo {
	out := infos[:0]
	for _, info := range infos {
		if info.DisplayID == display {
			out = append(out, info)
		}
	}
	return out
}

func windowFlags(info ipc.WindowInfo) string {
	s := ""
	if info.Visible {
		s += "V"
	} else {
		s += "-"
	}
	if info.Focused {
		s += "F"
	} else {
		s += "-"
	}
	return s
}

// nameWidth is what remains of a terminal line for the name column.
func nameWidth(termWidth int) int {
	const fixedColumns = 72
	if termWidth <= 0 {
		return 0
	}
	return max(termWidth-fixedColumns, 8)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// writeWindowTable prints an aligned table, shortening names to fit width
// columns when width is known.
func writeWindowTable(w io.Writer, infos []ipc.WindowInfo, width int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPARENT\tTYPE\tMODE\tDISPLAY\tRECT\tSTATE\tNAME")
	nw := nameWidth(width)
	for _, info := range infos {
		parent := "-"
		if info.ParentID != wm.InvalidWindowID {
			parent = strconv.FormatUint(uint64(info.ParentID), 10)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			info.ID, parent, info.Type, info.Mode, info.DisplayID, info.Rect, windowFlags(info), truncate(info.Name, nw))
	}
	return tw.Flush()
}

// writeWindowPlain prints one tab-separated line per window for scripts.
func writeWindowPlain(w io.Writer, infos []ipc.WindowInfo) error {
	for _, info := range infos {
		if _, err := fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%d\t%d,%d,%d,%d\t%t\t%t\t%s\n",
			info.ID, info.ParentID, info.Type, info.Mode, info.DisplayID,
			info.Rect.X, info.Rect.Y, info.Rect.Width, info.Rect.Height,
			info.Visible, info.Focused, info.Name); err != nil {
			return err
		}
	}
	return nil
}

func runFocus(args []string) int {
	fs := flag.NewFlagSet("focus", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winsession focus <window-id>")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	id, err := strconv.ParseUint(fs.Arg(0), 10, 32)
	if err != nil || id == 0 {
		fmt.Fprintf(os.Stderr, "invalid window id %q\n", fs.Arg(0))
		return 2
	}

	return withClient(func(ctx context.Context, c *client) error {
		if err := c.adapter.RequestFocus(ctx, wm.WindowID(id)); err != nil {
			return fmt.Errorf("focus window %d: %w", id, err)
		}
		return nil
	})
}

func runMinimizeAll(args []string) int {
	fs := flag.NewFlagSet("minimize-all", flag.ContinueOnError)
	display := fs.Uint64("display", 0, "Display to minimize")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winsession minimize-all [--display N]")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	return withClient(func(ctx context.Context, c *client) error {
		return c.adapter.MinimizeAllAppWindows(ctx, wm.DisplayID(*display))
	})
}

func runToggleAll(args []string) int {
	fs := flag.NewFlagSet("toggle-all", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winsession toggle-all")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	return withClient(func(ctx context.Context, c *client) error {
		return c.adapter.ToggleShownStateForAllAppWindows(ctx)
	})
}
