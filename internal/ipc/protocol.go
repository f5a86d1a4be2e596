package ipc

import (
	"fmt"
)

// Interface descriptors carried at the start of every request. A stub rejects
// any request whose descriptor does not match its own.
const (
	ServiceDescriptor      = "winsession.IWindowManager"
	AgentDescriptor        = "winsession.IWindow"
	ManagerAgentDescriptor = "winsession.IWindowManagerAgent"
)

// Code is a message number within one interface. Catalogs are append-only:
// existing numbers are a compatibility surface.
type Code uint32

// Option selects the delivery mode of a request.
type Option uint32

const (
	// Sync waits for the peer's reply.
	Sync Option = iota
	// Async returns once the request is queued; no reply is produced.
	Async
)

func (o Option) String() string {
	if o == Async {
		return "async"
	}
	return "sync"
}

// Status is the transport-level outcome a stub reports for a request. It is
// distinct from the window-management result code carried inside the reply.
type Status int32

const (
	StatusOK Status = iota
	StatusTransactionFailed
	StatusInvalidData
	StatusUnknownTransaction
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTransactionFailed:
		return "transaction failed"
	case StatusInvalidData:
		return "invalid data"
	case StatusUnknownTransaction:
		return "unknown transaction"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// Message describes one catalog entry.
type Message struct {
	Name   string
	Option Option
}

// Client-to-service messages.
const (
	CodeCreateWindow Code = iota
	CodeAddWindow
	CodeRemoveWindow
	CodeDestroyWindow
	CodeRequestFocus
	CodeRegisterManagerAgent
	CodeUnregisterManagerAgent
	CodeGetAvoidArea
	CodeGetTopWindowID
	CodeProcessPointDown
	CodeProcessPointUp
	CodeMinimizeAllAppWindows
	CodeToggleShownStateForAllAppWindows
	CodeUpdateProperty
	CodeNotifyScreenshotEvent
	CodeUpdateAvoidAreaListener
	CodeBindDialogTarget
	CodeSetWindowGravity
	CodeListWindowInfo
	CodeRecoverWindow
	CodeRecordEvent
)

// ServiceCatalog lists every client-to-service message.
var ServiceCatalog = map[Code]Message{
	CodeCreateWindow:                     {"CreateWindow", Sync},
	CodeAddWindow:                        {"AddWindow", Sync},
	CodeRemoveWindow:                     {"RemoveWindow", Sync},
	CodeDestroyWindow:                    {"DestroyWindow", Sync},
	CodeRequestFocus:                     {"RequestFocus", Sync},
	CodeRegisterManagerAgent:             {"RegisterManagerAgent", Sync},
	CodeUnregisterManagerAgent:           {"UnregisterManagerAgent", Sync},
	CodeGetAvoidArea:                     {"GetAvoidArea", Sync},
	CodeGetTopWindowID:                   {"GetTopWindowID", Sync},
	CodeProcessPointDown:                 {"ProcessPointDown", Async},
	CodeProcessPointUp:                   {"ProcessPointUp", Async},
	CodeMinimizeAllAppWindows:            {"MinimizeAllAppWindows", Sync},
	CodeToggleShownStateForAllAppWindows: {"ToggleShownStateForAllAppWindows", Sync},
	CodeUpdateProperty:                   {"UpdateProperty", Sync},
	CodeNotifyScreenshotEvent:            {"NotifyScreenshotEvent", Async},
	CodeUpdateAvoidAreaListener:          {"UpdateAvoidAreaListener", Sync},
	CodeBindDialogTarget:                 {"BindDialogTarget", Sync},
	CodeSetWindowGravity:                 {"SetWindowGravity", Sync},
	CodeListWindowInfo:                   {"ListWindowInfo", Sync},
	CodeRecoverWindow:                    {"RecoverWindow", Sync},
	CodeRecordEvent:                      {"RecordEvent", Async},
}

// Service-to-window pushes.
const (
	CodeUpdateWindowRect Code = iota
	CodeUpdateWindowMode
	CodeUpdateModeSupport
	CodeUpdateFocusStatus
	CodeUpdateAvoidArea
	CodeUpdateWindowState
	CodeUpdateDragEvent
	CodeUpdateDisplayID
	CodeUpdateOccupiedArea
	CodeUpdateActiveStatus
	CodeGetWindowProperty
	CodeNotifyTouchOutside
	CodeNotifyScreenshot
	CodeNotifyDestroy
	CodeNotifyTouchDialogTarget
)

// AgentCatalog lists every service-to-window push.
var AgentCatalog = map[Code]Message{
	CodeUpdateWindowRect:        {"UpdateWindowRect", Async},
	CodeUpdateWindowMode:        {"UpdateWindowMode", Async},
	CodeUpdateModeSupport:       {"UpdateModeSupport", Async},
	CodeUpdateFocusStatus:       {"UpdateFocusStatus", Async},
	CodeUpdateAvoidArea:         {"UpdateAvoidArea", Async},
	CodeUpdateWindowState:       {"UpdateWindowState", Async},
	CodeUpdateDragEvent:         {"UpdateDragEvent", Async},
	CodeUpdateDisplayID:         {"UpdateDisplayID", Async},
	CodeUpdateOccupiedArea:      {"UpdateOccupiedArea", Async},
	CodeUpdateActiveStatus:      {"UpdateActiveStatus", Async},
	CodeGetWindowProperty:       {"GetWindowProperty", Sync},
	CodeNotifyTouchOutside:      {"NotifyTouchOutside", Async},
	CodeNotifyScreenshot:        {"NotifyScreenshot", Async},
	CodeNotifyDestroy:           {"NotifyDestroy", Async},
	CodeNotifyTouchDialogTarget: {"NotifyTouchDialogTarget", Async},
}

// Service-to-manager-agent pushes.
const (
	CodeUpdateFocusChanged Code = iota
	CodeUpdateWindowVisibility
	CodeUpdateSystemBarTints
)

// ManagerAgentCatalog lists every push to a process-wide manager agent.
var ManagerAgentCatalog = map[Code]Message{
	CodeUpdateFocusChanged:     {"UpdateFocusChanged", Async},
	CodeUpdateWindowVisibility: {"UpdateWindowVisibility", Async},
	CodeUpdateSystemBarTints:   {"UpdateSystemBarTints", Async},
}

// lookup returns the catalog entry for code, falling back to a synthetic
// synchronous entry for unknown codes.
func lookup(catalog map[Code]Message, code Code) Message {
	if m, ok := catalog[code]; ok {
		return m
	}
	return Message{Name: fmt.Sprintf("code(%d)", uint32(code)), Option: Sync}
}
