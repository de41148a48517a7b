// Package service composes the event store, scheduling rules and the
// automatic scheduler into the calendar operations used by the HTTP layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/drcal/internal/adapters/repository"
	"github.com/okian/drcal/internal/domain/model"
	"github.com/okian/drcal/internal/domain/schedule"
	"github.com/okian/drcal/internal/scheduler"
	"github.com/okian/drcal/pkg/logger"
	"github.com/okian/drcal/pkg/metrics"
)

// AutoScheduleJob names the cron job that creates auto events.
const AutoScheduleJob = "auto_schedule"

// Service implements the calendar operations.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	planner   *schedule.Planner
	scheduler *scheduler.Scheduler

	// Configuration
	cronSpec    string
	plannerOpts []schedule.Option

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore replaces the default in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClock sets the time source used for validation and auto events.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.plannerOpts = append(s.plannerOpts, schedule.WithClock(now))
		}
	}
}

// WithPlannerOptions passes options through to the schedule planner.
func WithPlannerOptions(opts ...schedule.Option) Option {
	return func(s *Service) {
		s.plannerOpts = append(s.plannerOpts, opts...)
	}
}

// WithAutoScheduleCron enables periodic auto scheduling on spec.
func WithAutoScheduleCron(spec string) Option {
	return func(s *Service) {
		s.cronSpec = spec
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		logger: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.planner = schedule.NewPlanner(s.plannerOpts...)
	return s
}

// Start launches the automatic scheduler when a cron spec is configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting calendar service...")

	if s.cronSpec != "" {
		sch := scheduler.New(scheduler.WithLogger(s.logger.Named("scheduler")), scheduler.WithJobTimeout(time.Minute))
		err := sch.Add(AutoScheduleJob, s.cronSpec, func(ctx context.Context) error {
			ev, err := s.AutoSchedule(ctx)
			if err != nil {
				return err
			}
			s.logger.Info(ctx, "auto DR test scheduled by cron",
				logger.Int64("id", ev.ID), logger.String("start", ev.Start.String()))
			return nil
		})
		if err != nil {
			return fmt.Errorf("auto schedule cron: %w", err)
		}
		sch.Start(ctx)
		s.scheduler = sch
	}

	s.started = true
	s.logger.Info(ctx, "calendar service started",
		logger.String("auto_schedule_cron", s.cronSpec),
		logger.Int("events", s.store.Count(ctx)),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping calendar service...")
	if s.scheduler != nil {
		s.scheduler.Stop()
		s.scheduler = nil
	}
	s.started = false
	s.logger.Info(context.Background(), "calendar service stopped")
}

// List returns every event in insertion order.
func (s *Service) List(ctx context.Context) []model.Event {
	return s.store.List(ctx)
}

// Get returns the event with id.
func (s *Service) Get(ctx context.Context, id int64) (model.Event, error) {
	ev, err := s.store.Find(ctx, id)
	if err != nil {
		return model.Event{}, s.mapStoreErr(id, err)
	}
	return ev, nil
}

// Create stores a new event. An auto submission ignores fields; any other
// kind is validated as manual and rejected with *ValidationError.
func (s *Service) Create(ctx context.Context, kind model.Kind, fields model.Fields) (model.Event, error) {
	if kind == model.KindAuto {
		return s.AutoSchedule(ctx)
	}

	if errs := s.planner.Validate(fields, model.KindManual); len(errs) > 0 {
		metrics.RecordValidationFailure("create")
		s.logger.Debug(ctx, "event rejected", logger.Int("errors", len(errs)))
		return model.Event{}, &ValidationError{Messages: errs}
	}
	return s.insert(ctx, s.planner.NewManual(fields))
}

// AutoSchedule stores a new auto event placed by the planner.
func (s *Service) AutoSchedule(ctx context.Context) (model.Event, error) {
	return s.insert(ctx, s.planner.NewAuto())
}

func (s *Service) insert(ctx context.Context, ev model.Event) (model.Event, error) {
	stored, err := s.store.Insert(ctx, ev)
	if err != nil {
		s.logger.Error(ctx, "insert failed", logger.Error(err))
		return model.Event{}, err
	}
	metrics.RecordEventCreated(string(stored.Kind))
	s.logger.Info(ctx, "event created",
		logger.Int64("id", stored.ID),
		logger.String("type", string(stored.Kind)),
		logger.String("start", stored.Start.String()),
	)
	return stored, nil
}

// Update overlays fields on the stored event, re-validates the merged record
// and commits it in place. Id, kind and list position are preserved.
func (s *Service) Update(ctx context.Context, id int64, fields model.Fields) (model.Event, error) {
	if len(fields) == 0 {
		return model.Event{}, ErrNoData
	}

	updated, err := s.store.Update(ctx, id, func(current model.Event) (model.Event, error) {
		next, errs := s.planner.Apply(current, fields)
		if len(errs) > 0 {
			return current, &ValidationError{Messages: errs}
		}
		return next, nil
	})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			metrics.RecordValidationFailure("update")
			return model.Event{}, err
		}
		return model.Event{}, s.mapStoreErr(id, err)
	}

	metrics.RecordEventUpdated()
	s.logger.Info(ctx, "event updated", logger.Int64("id", id))
	return updated, nil
}

// Delete removes the event with id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if !s.store.Delete(ctx, id) {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	metrics.RecordEventDeleted()
	s.logger.Info(ctx, "event deleted", logger.Int64("id", id))
	return nil
}

func (s *Service) mapStoreErr(id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return err
}

// Now returns the planner's current time.
func (s *Service) Now() time.Time {
	return s.planner.Now()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	events := s.store.List(ctx)

	byKind := map[string]int{string(model.KindAuto): 0, string(model.KindManual): 0}
	for _, e := range events {
		byKind[string(e.Kind)]++
	}

	stats := map[string]any{
		"started":            s.started,
		"totalEvents":        len(events),
		"autoEvents":         byKind[string(model.KindAuto)],
		"manualEvents":       byKind[string(model.KindManual)],
		"autoScheduleCron":   s.cronSpec,
		"autoScheduleActive": s.scheduler != nil,
	}
	if n, ok := s.store.(interface{ NextID(context.Context) int64 }); ok {
		stats["nextId"] = n.NextID(ctx)
	}
	if s.scheduler != nil {
		for _, e := range s.scheduler.Entries() {
			if e.Name == AutoScheduleJob && !e.Next.IsZero() {
				stats["nextAutoSchedule"] = e.Next.Format(model.TimeLayout)
			}
		}
	}

	metrics.UpdateStoredEvents(len(events))
	return stats
}
