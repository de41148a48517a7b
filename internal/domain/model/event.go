// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the wire format of every timestamp: local wall clock,
// minute precision, no zone.
const TimeLayout = "2006-01-02T15:04"

// Kind records how an event was created.
type Kind string

const (
	KindAuto   Kind = "auto"
	KindManual Kind = "manual"
)

// ParseKind maps a schedule_type value to a Kind. Anything other than
// "auto" is a manual submission.
func ParseKind(s string) Kind {
	if strings.TrimSpace(s) == string(KindAuto) {
		return KindAuto
	}
	return KindManual
}

// Field names shared by forms, JSON bodies and templates.
const (
	FieldTitle        = "title"
	FieldStart        = "start"
	FieldEnd          = "end"
	FieldDescription  = "description"
	FieldScheduleType = "schedule_type"
)

// Fields holds raw submitted values keyed by field name. A key that is
// absent or maps to "" counts as missing.
type Fields map[string]string

// Get returns the value for key, or "" when absent.
func (f Fields) Get(key string) string {
	if f == nil {
		return ""
	}
	return f[key]
}

// Has reports whether key is present with a non-empty value.
func (f Fields) Has(key string) bool {
	return f.Get(key) != ""
}

// Timestamp is a naive local time serialized as TimeLayout.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s as TimeLayout in the local zone.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Time: t}, nil
}

// NewTimestamp truncates t to the minute.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Minute)}
}

// String formats the timestamp as TimeLayout.
func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	ts, err := ParseTimestamp(s)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	*t = ts
	return nil
}

// Event is a scheduled Disaster Recovery test.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Start       Timestamp `json:"start"`
	End         Timestamp `json:"end"`
	Description string    `json:"description"`
	Kind        Kind      `json:"type"`
}

// Fields returns the event's editable values in submission form.
func (e Event) Fields() Fields {
	return Fields{
		FieldTitle:       e.Title,
		FieldStart:       e.Start.String(),
		FieldEnd:         e.End.String(),
		FieldDescription: e.Description,
	}
}

// Duration is End minus Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start.Time)
}
