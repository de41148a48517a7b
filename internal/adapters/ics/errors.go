package ics

import "errors"

var (
	// ErrEmptyBody is returned when Decode receives no data.
	ErrEmptyBody = errors.New("empty iCalendar body")
	// ErrParse wraps iCalendar syntax errors.
	ErrParse = errors.New("iCalendar parse failed")
)
