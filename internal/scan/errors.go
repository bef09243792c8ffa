package scan

import (
	"errors"
	"os"
	"strings"
	"syscall"

	"save-the-fridge/internal/model"
)

// ErrorKind classifies camera failures.
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission-denied"
	KindNoCamera         ErrorKind = "no-camera"
	KindCameraInUse      ErrorKind = "camera-in-use"
	KindOther            ErrorKind = "other"
)

// Sentinel errors collaborators may return or wrap.
var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoCamera         = errors.New("no cameras found on device")
	ErrCameraInUse      = errors.New("camera is in use by another application")
)

var (
	// ErrSessionActive is returned by Start when the session is not idle.
	ErrSessionActive = errors.New("scan session already active")
	// ErrStartAborted is returned by Start when Stop ran before the session
	// became active.
	ErrStartAborted = errors.New("scan start aborted")
)

const messagePrefix = "Unable to access camera. "

// ScanError is a classified camera failure.
type ScanError struct {
	Kind ErrorKind
	Err  error
}

func (e *ScanError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Message returns the user-readable text for the failure.
func (e *ScanError) Message() string {
	switch e.Kind {
	case KindPermissionDenied:
		return messagePrefix + "Please allow camera permissions in your settings."
	case KindNoCamera:
		return messagePrefix + "No camera detected on your device."
	case KindCameraInUse:
		return messagePrefix + "Please close all other apps using the camera and try again."
	default:
		return messagePrefix + "Please try manual entry or restart the scanner."
	}
}

// Hints returns recovery suggestions for the failure, if any.
func (e *ScanError) Hints() []string {
	if e.Kind != KindCameraInUse {
		return nil
	}
	return []string{
		"Close all other apps using the scanner",
		"Restart the application",
		"If the issue persists, reconnect or restart the device",
	}
}

// Code maps the failure to a domain error code.
func (e *ScanError) Code() string {
	switch e.Kind {
	case KindPermissionDenied:
		return model.ErrCodePermissionDenied
	case KindNoCamera:
		return model.ErrCodeDeviceAbsent
	case KindCameraInUse:
		return model.ErrCodeDeviceBusy
	default:
		return model.ErrCodeCameraFailure
	}
}

// Classify wraps err in a ScanError. Existing ScanErrors are returned as is.
func Classify(err error) *ScanError {
	var se *ScanError
	if errors.As(err, &se) {
		return se
	}
	return &ScanError{Kind: kindOf(err), Err: err}
}

func kindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindOther
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, os.ErrPermission):
		return KindPermissionDenied
	case errors.Is(err, ErrNoCamera), errors.Is(err, os.ErrNotExist):
		return KindNoCamera
	case errors.Is(err, ErrCameraInUse), errors.Is(err, syscall.EBUSY):
		return KindCameraInUse
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "No cameras"), strings.Contains(msg, "no cameras"):
		return KindNoCamera
	case strings.Contains(msg, "in use"):
		return KindCameraInUse
	default:
		return KindOther
	}
}
