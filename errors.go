package player

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrEndOfStream is returned once the packet source and decoder are exhausted.
	ErrEndOfStream = errors.New("end of stream")
	// ErrAgain means no frame is ready yet; call again.
	ErrAgain = errors.New("no frame ready")

	ErrNoVideoStream     = errors.New("no video stream found")
	ErrHardwareDevice    = errors.New("hardware device context creation failed")
	ErrNoDecoder         = errors.New("no decoder could be opened")
	ErrHardwareFormat    = errors.New("hardware pixel format not offered by decoder")
	ErrFormatMismatch    = errors.New("frame format does not match upload path")
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
	ErrDecoderFailed     = errors.New("decoder entered a non-recoverable state")
	ErrClosed            = errors.New("closed")
)

// Setup stages reported by SetupError.
const (
	StageOpenInput = "open input"
	StageProbe     = "probe stream info"
	StageSelect    = "select video stream"
	StageHardware  = "create hardware device"
	StageDecoder   = "open decoder"
	StageDisplay   = "initialize display"
	StageUpload    = "configure upload"
)

// SetupError is a fatal failure while building the pipeline. No playback is
// attempted after one is returned.
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *SetupError) Unwrap() error { return e.Err }

func setupError(stage string, err error) error {
	var se *SetupError
	if errors.As(err, &se) {
		return err
	}
	return &SetupError{Stage: stage, Err: err}
}

// IsFatalSetup reports whether err is a fatal setup failure.
func IsFatalSetup(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}

// DecodeError is a per-packet decode failure. The packet's contribution is
// dropped and decoding continues.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// IsRecoverable reports whether err only affects the current packet.
func IsRecoverable(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
