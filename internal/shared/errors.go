package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Storage errors
	ErrStorageUnavailable = fmt.Errorf("storage unavailable")
	ErrUnknownTable       = fmt.Errorf("unknown table")
	ErrBusClosed          = fmt.Errorf("message bus closed")
	ErrStoreClosed        = fmt.Errorf("store closed")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Playback errors
	ErrLoadFailed        = fmt.Errorf("failed to load stream")
	ErrUnsupportedFormat = fmt.Errorf("unsupported audio format")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
