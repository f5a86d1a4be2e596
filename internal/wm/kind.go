package wm

import "fmt"

// WindowType is the kind of a window. Numbering follows the service's ranges:
// application main windows, then sub-windows from 1000, then system windows
// from 2000.
type WindowType uint32

const (
	TypeAppMainWindow WindowType = 1

	TypeMedia        WindowType = 1000
	TypeAppSubWindow WindowType = 1001
	TypeAppComponent WindowType = 1002

	TypeWallpaper      WindowType = 2000
	TypeDesktop        WindowType = 2001
	TypeAppLaunching   WindowType = 2100
	TypeDockSlice      WindowType = 2101
	TypeIncomingCall   WindowType = 2102
	TypeSearchingBar   WindowType = 2103
	TypeSystemAlarm    WindowType = 2104
	TypeInputMethod    WindowType = 2105
	TypeToast          WindowType = 2106
	TypeFloat          WindowType = 2107
	TypeStatusBar      WindowType = 2108
	TypePanel          WindowType = 2109
	TypeKeyguard       WindowType = 2110
	TypeVolumeOverlay  WindowType = 2111
	TypeNavigationBar  WindowType = 2112
	TypeDragging       WindowType = 2113
	TypePointer        WindowType = 2114
	TypeLauncherRecent WindowType = 2115
	TypeLauncherDock   WindowType = 2116
	TypeBootAnimation  WindowType = 2117
	TypeFreeze         WindowType = 2118
	TypeDialog         WindowType = 2119
)

const (
	appMainBase   WindowType = 1
	appMainEnd    WindowType = 2
	appSubBase    WindowType = 1000
	appSubEnd     WindowType = 1003
	systemBase    WindowType = 2000
	systemEnd     WindowType = 2120
	belowAppStart WindowType = 2000
	belowAppEnd   WindowType = 2002
)

// IsMainWindow reports whether t is an application main window.
func (t WindowType) IsMainWindow() bool { return t >= appMainBase && t < appMainEnd }

// IsSubWindow reports whether t must be attached to a parent.
func (t WindowType) IsSubWindow() bool { return t >= appSubBase && t < appSubEnd }

// IsAppWindow reports whether t belongs to an application rather than the system.
func (t WindowType) IsAppWindow() bool { return t.IsMainWindow() || t.IsSubWindow() }

// IsSystemWindow reports whether t is owned by the system shell.
func (t WindowType) IsSystemWindow() bool { return t >= systemBase && t < systemEnd }

// IsBelowApp reports whether t is drawn beneath application windows.
func (t WindowType) IsBelowApp() bool { return t >= belowAppStart && t < belowAppEnd }

// Valid reports whether t names a known window type.
func (t WindowType) Valid() bool {
	return t.IsAppWindow() || t.IsSystemWindow()
}

// IsSingleInstance reports whether at most one window of this type may exist
// per process.
func (t WindowType) IsSingleInstance() bool {
	switch t {
	case TypeWallpaper, TypeDesktop, TypeStatusBar, TypeNavigationBar, TypeKeyguard, TypeBootAnimation:
		return true
	}
	return false
}

// CanParent reports whether a window of type t may own sub-windows.
func (t WindowType) CanParent() bool {
	return t.IsMainWindow() || t.IsSystemWindow()
}

func (t WindowType) String() string {
	switch t {
	case TypeAppMainWindow:
		return "app-main"
	case TypeMedia:
		return "media"
	case TypeAppSubWindow:
		return "app-sub"
	case TypeAppComponent:
		return "app-component"
	case TypeWallpaper:
		return "wallpaper"
	case TypeDesktop:
		return "desktop"
	case TypeStatusBar:
		return "status-bar"
	case TypeNavigationBar:
		return "navigation-bar"
	case TypeKeyguard:
		return "keyguard"
	case TypeDialog:
		return "dialog"
	case TypeFloat:
		return "float"
	case TypeToast:
		return "toast"
	case TypeInputMethod:
		return "input-method"
	}
	if t.IsSystemWindow() {
		return fmt.Sprintf("system(%d)", uint32(t))
	}
	return fmt.Sprintf("type(%d)", uint32(t))
}

// WindowMode is the layout mode a window is in.
type WindowMode uint32

const (
	ModeUndefined      WindowMode = 0
	ModeFullscreen     WindowMode = 1
	ModeSplitPrimary   WindowMode = 100
	ModeSplitSecondary WindowMode = 101
	ModeFloating       WindowMode = 102
	ModePIP            WindowMode = 103
)

func (m WindowMode) String() string {
	switch m {
	case ModeUndefined:
		return "undefined"
	case ModeFullscreen:
		return "fullscreen"
	case ModeSplitPrimary:
		return "split-primary"
	case ModeSplitSecondary:
		return "split-secondary"
	case ModeFloating:
		return "floating"
	case ModePIP:
		return "pip"
	}
	return fmt.Sprintf("mode(%d)", uint32(m))
}

// ModeSupport is the set of modes a window accepts.
type ModeSupport uint32

const (
	SupportFullscreen ModeSupport = 1 << iota
	SupportFloating
	SupportSplitPrimary
	SupportSplitSecondary
	SupportPIP

	SupportAll   = SupportFullscreen | SupportFloating | SupportSplitPrimary | SupportSplitSecondary | SupportPIP
	SupportSplit = SupportSplitPrimary | SupportSplitSecondary
)

// Supports reports whether mode m is in the set. Undefined is always accepted.
func (s ModeSupport) Supports(m WindowMode) bool {
	switch m {
	case ModeUndefined:
		return true
	case ModeFullscreen:
		return s&SupportFullscreen != 0
	case ModeFloating:
		return s&SupportFloating != 0
	case ModeSplitPrimary:
		return s&SupportSplitPrimary != 0
	case ModeSplitSecondary:
		return s&SupportSplitSecondary != 0
	case ModePIP:
		return s&SupportPIP != 0
	}
	return false
}

// OnlySplit reports whether the set contains split modes and nothing else.
func (s ModeSupport) OnlySplit() bool {
	return s != 0 && s&^SupportSplit == 0
}

// WindowFlag is a bit in a window's flag set.
type WindowFlag uint32

const (
	FlagNeedAvoid WindowFlag = 1 << iota
	FlagParentLimit
	FlagShowWhenLocked
	FlagForbidSplitMove
	FlagWatchOutside
)
