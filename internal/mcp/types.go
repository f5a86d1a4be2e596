package mcp

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	Display     *uint64 `json:"display,omitempty" jsonschema:"Only list windows on this display id"`
	VisibleOnly bool    `json:"visible_only,omitempty" jsonschema:"When true, skip hidden windows"`
}

// WindowSummary describes a single window known to the service.
type WindowSummary struct {
	ID       uint64 `json:"id"`
	ParentID uint64 `json:"parent_id,omitempty"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Mode     string `json:"mode"`
	Display  uint64 `json:"display"`
	X        int32  `json:"x"`
	Y        int32  `json:"y"`
	Width    uint32 `json:"width"`
	Height   uint32 `json:"height"`
	Visible  bool   `json:"visible"`
	Focused  bool   `json:"focused"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowSummary `json:"windows"`
	Focused uint64          `json:"focused,omitempty"`
}

// FocusWindowInput is the input for the focus_window tool.
type FocusWindowInput struct {
	ID uint64 `json:"id" jsonschema:"Id of the window to focus"`
}

// MinimizeAllInput is the input for the minimize_all tool.
type MinimizeAllInput struct {
	Display uint64 `json:"display,omitempty" jsonschema:"Display whose application windows are minimized (default: 0)"`
}

// ToggleAllInput is the input for the toggle_all_windows tool.
type ToggleAllInput struct{}

// ScreenshotInput is the input for the notify_screenshot tool.
type ScreenshotInput struct {
	Display uint64 `json:"display,omitempty" jsonschema:"Display that was captured (default: 0)"`
}

// ActionOutput reports the windows affected by a state-changing tool.
type ActionOutput struct {
	Visible []uint64 `json:"visible"`
	Focused uint64   `json:"focused,omitempty"`
}
