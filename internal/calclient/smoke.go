package calclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/drcal/internal/domain/model"
	"github.com/okian/drcal/pkg/logger"
)

// Smoke run constants.
const (
	smokeLead         = 30 * 24 * time.Hour
	smokeDuration     = 3 * time.Hour
	smokeTitle        = "API Test DR Exercise"
	smokeUpdatedTitle = "Updated API Test DR Exercise"
	smokeDescription  = "This is a test event created via the API to demonstrate functionality and validate the integration capabilities of the calendar system."
	smokeUpdatedDesc  = "This event has been updated via the API to demonstrate the update functionality. The new description includes additional details about the enhanced testing procedures."
	smokeInvalidCount = 4
)

// Step is the outcome of one smoke check.
type Step struct {
	Name   string
	Passed bool
	Detail string
}

// Report summarises a smoke run.
type Report struct {
	Steps    []Step
	Duration time.Duration
}

// Passed reports whether every step passed.
func (r Report) Passed() bool {
	for _, s := range r.Steps {
		if !s.Passed {
			return false
		}
	}
	return len(r.Steps) > 0
}

// RunSmoke drives the whole API once: list, auto create, manual create,
// get, update, a rejected submission, list again, delete and a 404 check.
// It stops at the first failing step.
func RunSmoke(ctx context.Context, c *Client) (Report, error) {
	started := time.Now()
	report := Report{}
	r := &smokeRun{ctx: ctx, c: c}

	c.logger.Info(ctx, "starting calendar smoke run", logger.String("baseURL", c.baseURL))

	steps := []struct {
		name string
		fn   func() (string, error)
	}{
		{"list events", r.list},
		{"create auto event", r.createAuto},
		{"create manual event", r.createManual},
		{"get event", r.get},
		{"update event", r.update},
		{"reject invalid event", r.rejectInvalid},
		{"list events again", r.list},
		{"delete event", r.delete},
		{"verify deletion", r.verifyDeleted},
	}

	for _, s := range steps {
		detail, err := s.fn()
		if err != nil {
			report.Steps = append(report.Steps, Step{Name: s.name, Detail: err.Error()})
			report.Duration = time.Since(started)
			c.logger.Error(ctx, "smoke step failed", logger.String("step", s.name), logger.Error(err))
			return report, fmt.Errorf("%w: %s: %w", ErrSmoke, s.name, err)
		}
		report.Steps = append(report.Steps, Step{Name: s.name, Passed: true, Detail: detail})
		c.logger.Info(ctx, "smoke step passed", logger.String("step", s.name), logger.String("detail", detail))
	}

	report.Duration = time.Since(started)
	c.logger.Info(ctx, "calendar smoke run passed",
		logger.Int("steps", len(report.Steps)),
		logger.Duration("duration", report.Duration))
	return report, nil
}

type smokeRun struct {
	ctx      context.Context
	c        *Client
	manualID int64
}

func (r *smokeRun) list() (string, error) {
	events, err := r.c.ListEvents(r.ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("found %d events", len(events)), nil
}

func (r *smokeRun) createAuto() (string, error) {
	ev, err := r.c.AutoSchedule(r.ctx)
	if err != nil {
		return "", err
	}
	if ev.Kind != model.KindAuto {
		return "", fmt.Errorf("event %d has type %q", ev.ID, ev.Kind)
	}
	return fmt.Sprintf("auto event %d at %s", ev.ID, ev.Start), nil
}

func (r *smokeRun) createManual() (string, error) {
	start := r.c.now().Add(smokeLead)
	ev, err := r.c.ScheduleDRTest(r.ctx, smokeTitle, start, smokeDuration, smokeDescription)
	if err != nil {
		return "", err
	}
	r.manualID = ev.ID
	return fmt.Sprintf("manual event %d at %s", ev.ID, ev.Start), nil
}

func (r *smokeRun) get() (string, error) {
	ev, err := r.c.GetEvent(r.ctx, r.manualID)
	if err != nil {
		return "", err
	}
	if ev.Title != smokeTitle {
		return "", fmt.Errorf("got title %q", ev.Title)
	}
	return "retrieved " + ev.Title, nil
}

func (r *smokeRun) update() (string, error) {
	ev, err := r.c.UpdateEvent(r.ctx, r.manualID, model.Fields{
		model.FieldTitle:       smokeUpdatedTitle,
		model.FieldDescription: smokeUpdatedDesc,
	})
	if err != nil {
		return "", err
	}
	if ev.Title != smokeUpdatedTitle {
		return "", fmt.Errorf("got title %q", ev.Title)
	}
	return "renamed to " + ev.Title, nil
}

func (r *smokeRun) rejectInvalid() (string, error) {
	_, err := r.c.CreateEvent(r.ctx, model.Fields{
		model.FieldScheduleType: string(model.KindManual),
		model.FieldTitle:        "AB",
		model.FieldStart:        "2024-01-01T10:00",
		model.FieldEnd:          "2024-01-01T09:00",
		model.FieldDescription:  "Too short",
	})
	if err == nil {
		return "", fmt.Errorf("invalid event was accepted")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		return "", fmt.Errorf("expected 400: %w", err)
	}
	if len(apiErr.Errors) != smokeInvalidCount {
		return "", fmt.Errorf("expected %d errors, got %v", smokeInvalidCount, apiErr.Errors)
	}
	return fmt.Sprintf("%d errors reported", len(apiErr.Errors)), nil
}

func (r *smokeRun) delete() (string, error) {
	if err := r.c.DeleteEvent(r.ctx, r.manualID); err != nil {
		return "", err
	}
	return fmt.Sprintf("deleted event %d", r.manualID), nil
}

func (r *smokeRun) verifyDeleted() (string, error) {
	_, err := r.c.GetEvent(r.ctx, r.manualID)
	if IsNotFound(err) {
		return "event properly deleted", nil
	}
	if err != nil {
		return "", err
	}
	return "", fmt.Errorf("event %d still exists", r.manualID)
}
