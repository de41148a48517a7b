package integration

import "errors"

// Error constants.
var (
	ErrTemplate = errors.New("integration template failed")
)

// User-facing messages.
const (
	MsgUnreachable = "Could not connect to calendar service"
	MsgUnknown     = "Unknown error"
)
