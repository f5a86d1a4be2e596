package wm

import (
	"errors"
	"fmt"
)

// ErrorCode is the numeric result carried in every service reply. The values
// are part of the wire contract and never change.
type ErrorCode int32

const (
	CodeOK                      ErrorCode = 0
	CodeDoNothing               ErrorCode = 1
	CodeNoMem                   ErrorCode = 2
	CodeDestroyedObject         ErrorCode = 3
	CodeInvalidWindow           ErrorCode = 4
	CodeInvalidWindowModeOrSize ErrorCode = 5
	CodeInvalidOperation        ErrorCode = 6
	CodeInvalidPermission       ErrorCode = 7
	CodeNotSystemApp            ErrorCode = 8
	CodeNoRemoteAnimation       ErrorCode = 9
	CodeInvalidDisplay          ErrorCode = 10
	CodeInvalidParent           ErrorCode = 11
	CodeInvalidOpInCurStatus    ErrorCode = 12
	CodeRepeatOperation         ErrorCode = 13
	CodeInvalidSession          ErrorCode = 14
	CodeInvalidCalling          ErrorCode = 15
	CodeSystemAbnormally        ErrorCode = 16
	CodeNotFound                ErrorCode = 17

	CodeDeviceNotSupport ErrorCode = 801

	CodeNullPtr      ErrorCode = 1001
	CodeInvalidType  ErrorCode = 1002
	CodeInvalidParam ErrorCode = 1003
	CodeSamgr        ErrorCode = 1004
	CodeIPCFailed    ErrorCode = 1005
)

var codeNames = map[ErrorCode]string{
	CodeOK:                      "ok",
	CodeDoNothing:               "do nothing",
	CodeNoMem:                   "no memory",
	CodeDestroyedObject:         "destroyed object",
	CodeInvalidWindow:           "invalid window",
	CodeInvalidWindowModeOrSize: "invalid window mode or size",
	CodeInvalidOperation:        "invalid operation",
	CodeInvalidPermission:       "permission denied",
	CodeNotSystemApp:            "not a system app",
	CodeNoRemoteAnimation:       "no remote animation",
	CodeInvalidDisplay:          "invalid display",
	CodeInvalidParent:           "invalid parent",
	CodeInvalidOpInCurStatus:    "invalid operation in current state",
	CodeRepeatOperation:         "repeated operation",
	CodeInvalidSession:          "invalid session",
	CodeInvalidCalling:          "invalid calling",
	CodeSystemAbnormally:        "system abnormal",
	CodeNotFound:                "not found",
	CodeDeviceNotSupport:        "device not supported",
	CodeNullPtr:                 "null handle",
	CodeInvalidType:             "invalid type",
	CodeInvalidParam:            "invalid parameter",
	CodeSamgr:                   "service lookup failed",
	CodeIPCFailed:               "ipc failed",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("error code %d", int32(c))
}

// Error is a window-management failure with a stable code.
type Error struct {
	Code ErrorCode
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so callers can compare against
// the sentinels below regardless of Op or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrDoNothing               = &Error{Code: CodeDoNothing}
	ErrDestroyedObject         = &Error{Code: CodeDestroyedObject}
	ErrInvalidWindow           = &Error{Code: CodeInvalidWindow}
	ErrInvalidWindowModeOrSize = &Error{Code: CodeInvalidWindowModeOrSize}
	ErrInvalidOperation        = &Error{Code: CodeInvalidOperation}
	ErrInvalidPermission       = &Error{Code: CodeInvalidPermission}
	ErrInvalidDisplay          = &Error{Code: CodeInvalidDisplay}
	ErrInvalidParent           = &Error{Code: CodeInvalidParent}
	ErrInvalidOpInCurStatus    = &Error{Code: CodeInvalidOpInCurStatus}
	ErrRepeatOperation         = &Error{Code: CodeRepeatOperation}
	ErrSystemAbnormally        = &Error{Code: CodeSystemAbnormally}
	ErrNotFound                = &Error{Code: CodeNotFound}
	ErrNullPtr                 = &Error{Code: CodeNullPtr}
	ErrInvalidType             = &Error{Code: CodeInvalidType}
	ErrInvalidParam            = &Error{Code: CodeInvalidParam}
	ErrIPCFailed               = &Error{Code: CodeIPCFailed}
)

// Errorf builds an *Error for op with a formatted cause.
func Errorf(code ErrorCode, op, format string, args ...any) error {
	return &Error{Code: code, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches code and op to err. A nil err yields nil.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf extracts the code from err. Errors that carry no code map to
// CodeSystemAbnormally; nil maps to CodeOK.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeSystemAbnormally
}

// FromCode turns a reply code back into an error; CodeOK yields nil.
func FromCode(code ErrorCode, op string) error {
	if code == CodeOK {
		return nil
	}
	return &Error{Code: code, Op: op}
}
