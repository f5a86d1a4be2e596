package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winsession/internal/ipc"
	"github.com/1broseidon/winsession/internal/wm"
)

func summarize(info ipc.WindowInfo) WindowSummary {
	return WindowSummary{
		ID:       uint64(info.ID),
		ParentID: uint64(info.ParentID),
		Name:     info.Name,
		Type:     info.Type.String(),
		Mode:     info.Mode.String(),
		Display:  uint64(info.DisplayID),
		X:        info.Rect.X,
		Y:        info.Rect.Y,
		Width:    info.Rect.Width,
		Height:   info.Rect.Height,
		Visible:  info.Visible,
		Focused:  info.Focused,
	}
}

func (s *Server) handleListWindows(ctx context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	infos, err := s.svc.ListWindowInfo(ctx)
	if err != nil {
		return nil, ListWindowsOutput{}, fmt.Errorf("list windows: %w", err)
	}

	out := ListWindowsOutput{Windows: make([]WindowSummary, 0, len(infos))}
	for _, info := range infos {
		if info.Focused {
			out.Focused = uint64(info.ID)
		}
		if args.Display != nil && uint64(info.DisplayID) != *args.Display {
			continue
		}
		if args.VisibleOnly && !info.Visible {
			continue
		}
		out.Windows = append(out.Windows, summarize(info))
	}
	s.logger.Debug("list_windows", "count", len(out.Windows))
	return nil, out, nil
}

// snapshot reports which windows are visible and focused after an action.
func (s *Server) snapshot(ctx context.Context) (ActionOutput, error) {
	infos, err := s.svc.ListWindowInfo(ctx)
	if err != nil {
		return ActionOutput{}, fmt.Errorf("list windows: %w", err)
	}
	out := ActionOutput{Visible: []uint64{}}
	for _, info := range infos {
		if info.Visible {
			out.Visible = append(out.Visible, uint64(info.ID))
		}
		if info.Focused {
			out.Focused = uint64(info.ID)
		}
	}
	return out, nil
}

func (s *Server) handleFocusWindow(ctx context.Context, _ *mcpsdk.CallToolRequest, args FocusWindowInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if args.ID == 0 {
		return nil, ActionOutput{}, fmt.Errorf("id is required")
	}
	if err := s.svc.RequestFocus(ctx, wm.WindowID(args.ID)); err != nil {
		return nil, ActionOutput{}, fmt.Errorf("focus window %d: %w", args.ID, err)
	}
	s.logger.Info("focus_window", "id", args.ID)
	out, err := s.snapshot(ctx)
	return nil, out, err
}

func (s *Server) handleMinimizeAll(ctx context.Context, _ *mcpsdk.CallToolRequest, args MinimizeAllInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if err := s.svc.MinimizeAllAppWindows(ctx, wm.DisplayID(args.Display)); err != nil {
		return nil, ActionOutput{}, fmt.Errorf("minimize all on display %d: %w", args.Display, err)
	}
	s.logger.Info("minimize_all", "display", args.Display)
	out, err := s.snapshot(ctx)
	return nil, out, err
}

func (s *Server) handleToggleAll(ctx context.Context, _ *mcpsdk.CallToolRequest, _ ToggleAllInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if err := s.svc.ToggleShownStateForAllAppWindows(ctx); err != nil {
		return nil, ActionOutput{}, fmt.Errorf("toggle all windows: %w", err)
	}
	s.logger.Info("toggle_all_windows")
	out, err := s.snapshot(ctx)
	return nil, out, err
}

func (s *Server) handleScreenshot(ctx context.Context, _ *mcpsdk.CallToolRequest, args ScreenshotInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if err := s.svc.NotifyScreenshotEvent(ctx, wm.DisplayID(args.Display)); err != nil {
		return nil, ActionOutput{}, fmt.Errorf("notify screenshot on display %d: %w", args.Display, err)
	}
	out, err := s.snapshot(ctx)
	return nil, out, err
}
