// Package errors defines the infrastructural error signals surfaced to the
// host. Per-frame rejections are not AppErrors; they never leave the
// scanner.
package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so wrapped instances of
// the sentinels below satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Event returns the {code, message, cause} mapping delivered to the host.
func (e *AppError) Event() map[string]string {
	cause := ""
	if e.Cause != nil {
		cause = e.Cause.Error()
	}
	return map[string]string{
		"code":    e.Code,
		"message": e.Message,
		"cause":   cause,
	}
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

const (
	CodeCameraNotReady   = "session/camera-not-ready"
	CodeAlreadyRunning   = "session/already-running"
	CodeCameraDenied     = "permission/camera-denied"
	CodeNoDevice         = "device/no-device"
	CodeTorchUnavailable = "device/torch-unavailable"
	CodeConfigureError   = "device/configure-error"
	CodeInvalidParameter = "parameter/invalid"
	CodeOCRUnavailable   = "system/ocr-unavailable"
	CodeConfigInvalid    = "system/config-invalid"
	CodeUnknown          = "system/unknown"
)

var (
	ErrCameraNotReady   = &AppError{Code: CodeCameraNotReady, Message: "capture session is not running"}
	ErrAlreadyRunning   = &AppError{Code: CodeAlreadyRunning, Message: "capture session is already running"}
	ErrCameraDenied     = &AppError{Code: CodeCameraDenied, Message: "camera access denied"}
	ErrNoDevice         = &AppError{Code: CodeNoDevice, Message: "no capture device available"}
	ErrTorchUnavailable = &AppError{Code: CodeTorchUnavailable, Message: "torch is not available on this device"}
	ErrConfigureDevice  = &AppError{Code: CodeConfigureError, Message: "failed to configure capture device"}
	ErrInvalidParameter = &AppError{Code: CodeInvalidParameter, Message: "invalid parameter"}
	ErrOCRUnavailable   = &AppError{Code: CodeOCRUnavailable, Message: "OCR engine unavailable"}
	ErrConfigInvalid    = &AppError{Code: CodeConfigInvalid, Message: "invalid configuration"}
)

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// From converts any error into an AppError, keeping the first AppError in
// its chain and classifying everything else as unknown.
func From(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unexpected error")
}
