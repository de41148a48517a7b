// Package ics converts calendar events to and from iCalendar (RFC 5545).
//
// Times are written as floating local date-times (no TZID, no Z) because
// events carry naive local timestamps. On import, UTC and TZID values are
// converted to the local zone; date-only values become local midnight.
package ics

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
	_ "time/tzdata" // TZID values must resolve on hosts without zoneinfo.

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/okian/drcal/internal/domain/model"
)

const (
	// ProductID identifies the generator in exported calendars.
	ProductID = "-//okian//drcal//EN"
	// CalendarName is the display name of exported calendars.
	CalendarName = "DR Tests"

	propertyKind = ical.ComponentProperty("X-DRCAL-TYPE")

	layoutLocal = "20060102T150405"
	layoutUTC   = "20060102T150405Z"
	layoutDate  = "20060102"
)

// Encoder writes events as a VCALENDAR.
type Encoder struct {
	domain string
	now    func() time.Time
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithUIDDomain sets the host part of generated UIDs.
func WithUIDDomain(domain string) EncoderOption {
	return func(e *Encoder) {
		if domain != "" {
			e.domain = domain
		}
	}
}

// WithStampClock sets the clock used for DTSTAMP.
func WithStampClock(now func() time.Time) EncoderOption {
	return func(e *Encoder) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEncoder creates an Encoder.
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{domain: "drcal.local", now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UID returns the stable iCalendar UID for an event id.
func (e *Encoder) UID(id int64) string {
	return fmt.Sprintf("drcal-%d@%s", id, e.domain)
}

// Calendar builds the VCALENDAR for events.
func (e *Encoder) Calendar(events []model.Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName(CalendarName)

	stamp := e.now().UTC()
	for _, ev := range events {
		ve := cal.AddEvent(e.UID(ev.ID))
		ve.SetDtStampTime(stamp)
		ve.SetSummary(ev.Title)
		ve.SetDescription(ev.Description)
		ve.SetProperty(ical.ComponentPropertyDtStart, ev.Start.Format(layoutLocal))
		ve.SetProperty(ical.ComponentPropertyDtEnd, ev.End.Format(layoutLocal))
		ve.SetProperty(ical.ComponentPropertyCategories, "DR Test")
		ve.SetProperty(propertyKind, string(ev.Kind))
	}
	return cal
}

// Encode writes events to w.
func (e *Encoder) Encode(w io.Writer, events []model.Event) error {
	_, err := io.WriteString(w, e.Calendar(events).Serialize())
	return err
}

// Submission is one VEVENT read back as a manual submission.
type Submission struct {
	UID    string
	Fields model.Fields
}

// Summary returns the submitted title.
func (s Submission) Summary() string {
	return s.Fields.Get(model.FieldTitle)
}

// Decode parses body into one submission per VEVENT, in document order.
// Values that cannot be converted are passed through raw so validation
// reports them.
func Decode(r io.Reader) ([]Submission, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	events := cal.Events()
	out := make([]Submission, 0, len(events))
	for _, ve := range events {
		out = append(out, decodeEvent(ve))
	}
	return out, nil
}

func decodeEvent(ve *ical.VEvent) Submission {
	sub := Submission{Fields: model.Fields{}}

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil && p.Value != "" {
		sub.UID = p.Value
	} else {
		sub.UID = uuid.NewString()
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		sub.Fields[model.FieldTitle] = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		sub.Fields[model.FieldDescription] = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		sub.Fields[model.FieldStart] = localStamp(p)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		sub.Fields[model.FieldEnd] = localStamp(p)
	}
	return sub
}

// localStamp renders a DTSTART/DTEND property in the wire layout, or
// returns the raw value when it is not a recognised date-time.
func localStamp(p *ical.IANAProperty) string {
	raw := strings.TrimSpace(p.Value)
	var tzid string
	if vs, ok := p.ICalParameters["TZID"]; ok && len(vs) > 0 {
		tzid = vs[0]
	}

	t, err := parseTime(raw, tzid)
	if err != nil {
		return raw
	}
	return t.In(time.Local).Format(model.TimeLayout)
}

func parseTime(v, tzid string) (time.Time, error) {
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse(layoutUTC, v)
	case strings.Contains(v, "T"):
		loc := time.Local
		if tzid != "" {
			if l, err := time.LoadLocation(tzid); err == nil {
				loc = l
			}
		}
		return time.ParseInLocation(layoutLocal, v, loc)
	default:
		return time.ParseInLocation(layoutDate, v, time.Local)
	}
}
