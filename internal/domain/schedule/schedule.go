// Package schedule holds the rules that decide whether a submitted Disaster
// Recovery test is well-formed and how auto and manual submissions become
// events.
package schedule

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/okian/drcal/internal/domain/model"
)

// Defaults for auto-scheduled tests.
const (
	defaultAutoLeadDays  = 7 * 7
	defaultAutoStartHour = 9
	defaultAutoDuration  = 2 * time.Hour

	AutoTitle       = "Auto Scheduled DR Test"
	AutoDescription = "Automatically scheduled Disaster Recovery Test - 7 weeks from creation date"
)

// Length bounds, counted in characters after trimming.
const (
	TitleMinLen       = 3
	TitleMaxLen       = 200
	DescriptionMinLen = 10
	DescriptionMaxLen = 1000
)

// Validation messages, in the order checks run.
const (
	MsgTitleTooShort       = "Title must be at least 3 characters long"
	MsgTitleTooLong        = "Title must be less than 200 characters"
	MsgStartRequired       = "Start date and time are required"
	MsgStartInvalid        = "Invalid start date format"
	MsgStartInPast         = "Start dates cannot be in the past"
	MsgEndRequired         = "End date and time are required"
	MsgEndInvalid          = "Invalid end date format"
	MsgEndBeforeStart      = "End time must be after start time"
	MsgDescriptionTooShort = "Description must be at least 10 characters long"
	MsgDescriptionTooLong  = "Description must be less than 1000 characters"
)

// Planner validates submissions and builds unsaved events.
type Planner struct {
	now           func() time.Time
	autoLeadDays  int
	autoStartHour int
	autoDuration  time.Duration
}

// NewPlanner creates a Planner with configuration options.
func NewPlanner(opts ...Option) *Planner {
	p := &Planner{
		now:           time.Now,
		autoLeadDays:  defaultAutoLeadDays,
		autoStartHour: defaultAutoStartHour,
		autoDuration:  defaultAutoDuration,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Now returns the planner's current instant.
func (p *Planner) Now() time.Time {
	return p.now()
}

// Validate returns the messages for every rule fields break. Auto
// submissions are generated, not typed, and always pass.
func (p *Planner) Validate(fields model.Fields, kind model.Kind) []string {
	if kind == model.KindAuto {
		return nil
	}
	now := p.now()
	var errs []string

	title := strings.TrimSpace(fields.Get(model.FieldTitle))
	switch n := utf8.RuneCountInString(title); {
	case n < TitleMinLen:
		errs = append(errs, MsgTitleTooShort)
	case n > TitleMaxLen:
		errs = append(errs, MsgTitleTooLong)
	}

	var (
		start   time.Time
		startOK bool
	)
	if !fields.Has(model.FieldStart) {
		errs = append(errs, MsgStartRequired)
	} else if ts, err := model.ParseTimestamp(fields.Get(model.FieldStart)); err != nil {
		errs = append(errs, MsgStartInvalid)
	} else {
		start, startOK = ts.Time, true
		if !start.After(now) {
			errs = append(errs, MsgStartInPast)
		}
	}

	if !fields.Has(model.FieldEnd) {
		errs = append(errs, MsgEndRequired)
	} else if ts, err := model.ParseTimestamp(fields.Get(model.FieldEnd)); err != nil {
		errs = append(errs, MsgEndInvalid)
	} else if startOK && !ts.After(start) {
		errs = append(errs, MsgEndBeforeStart)
	}

	description := strings.TrimSpace(fields.Get(model.FieldDescription))
	switch n := utf8.RuneCountInString(description); {
	case n < DescriptionMinLen:
		errs = append(errs, MsgDescriptionTooShort)
	case n > DescriptionMaxLen:
		errs = append(errs, MsgDescriptionTooLong)
	}

	return errs
}

// NewAuto builds the standard auto-scheduled test: seven weeks out at the
// configured hour, lasting the configured duration.
func (p *Planner) NewAuto() model.Event {
	now := p.now()
	day := now.AddDate(0, 0, p.autoLeadDays)
	start := time.Date(day.Year(), day.Month(), day.Day(), p.autoStartHour, 0, 0, 0, now.Location())
	return model.Event{
		Title:       AutoTitle,
		Start:       model.Timestamp{Time: start},
		End:         model.Timestamp{Time: start.Add(p.autoDuration)},
		Description: AutoDescription,
		Kind:        model.KindAuto,
	}
}

// NewManual builds an event from validated fields. Callers run Validate
// first; unparsable timestamps yield zero values.
func (p *Planner) NewManual(fields model.Fields) model.Event {
	start, _ := model.ParseTimestamp(fields.Get(model.FieldStart))
	end, _ := model.ParseTimestamp(fields.Get(model.FieldEnd))
	return model.Event{
		Title:       strings.TrimSpace(fields.Get(model.FieldTitle)),
		Start:       start,
		End:         end,
		Description: strings.TrimSpace(fields.Get(model.FieldDescription)),
		Kind:        model.KindManual,
	}
}

// Merge overlays the present editable fields onto current and returns the
// merged field set. ID and Kind are not editable.
func Merge(current model.Event, partial model.Fields) model.Fields {
	merged := current.Fields()
	for _, key := range []string{model.FieldTitle, model.FieldStart, model.FieldEnd, model.FieldDescription} {
		if v, ok := partial[key]; ok {
			merged[key] = v
		}
	}
	return merged
}

// Apply validates the merge of partial onto current as a manual record.
// On success the returned event keeps current's ID, Kind and position.
func (p *Planner) Apply(current model.Event, partial model.Fields) (model.Event, []string) {
	merged := Merge(current, partial)
	if errs := p.Validate(merged, model.KindManual); len(errs) > 0 {
		return current, errs
	}
	next := p.NewManual(merged)
	next.ID = current.ID
	next.Kind = current.Kind
	return next, nil
}
