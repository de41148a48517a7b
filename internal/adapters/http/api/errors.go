package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNoData     = errors.New("no JSON data provided")
	ErrBadID      = errors.New("invalid event id")
)

// Client-facing messages.
const (
	MsgNoJSON         = "No JSON data provided"
	MsgNoCalendar     = "No calendar data provided"
	MsgBadCalendar    = "Invalid iCalendar data"
	MsgNotFound       = "Event not found"
	MsgCreated        = "Event created successfully"
	MsgScheduled      = "Event scheduled successfully"
	MsgDeleted        = "Event deleted successfully"
	MsgTooManyRequest = "Too many requests"
	MsgInternal       = "Internal server error"
)
