package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"serverwatch/internal/logging"
	"serverwatch/internal/modules/monitoring/classifier"
	"serverwatch/internal/modules/monitoring/repository"
	"serverwatch/internal/modules/monitoring/types"
	"serverwatch/internal/observability"
)

// Submission sources, used as a metrics label.
const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
	SourceCLI  = "cli"
)

type SubmitResult struct {
	Reading    types.Reading    `json:"reading"`
	Advisories []types.Advisory `json:"advisories"`
}

type Service struct {
	repository repository.Repository
	loc        *time.Location
	metrics    *observability.Metrics
	now        func() time.Time

	mu       sync.RWMutex
	listener func([]types.Reading)
}

type Option func(*Service)

// WithLocation sets the display location used to parse operator timestamps
// and render chart labels. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo repository.Repository, opts ...Option) *Service {
	s := &Service{
		repository: repo,
		loc:        time.UTC,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Location() *time.Location { return s.loc }

// Now returns the current time in the display location.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

// Watch delivers a fresh history to fn whenever it changes. Backends that
// implement repository.ChangeNotifier report changes from any writer; for the
// others fn runs after each mutation made through this Service.
func (s *Service) Watch(ctx context.Context, fn func([]types.Reading)) error {
	if n, ok := s.repository.(repository.ChangeNotifier); ok {
		return n.OnChange(ctx, func(history []types.Reading) {
			s.metrics.SetReadingsStored(len(history))
			fn(history)
		})
	}
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.listener = nil
		s.mu.Unlock()
	}()
	return nil
}

// Submit validates c, persists it and returns the stored reading with the
// advisories it raised. Errors are *types.ValidationError or
// *types.RepositoryError.
func (s *Service) Submit(ctx context.Context, source string, c types.Candidate) (SubmitResult, error) {
	logger := logging.FromContext(ctx)

	reading, err := ParseCandidate(c, s.loc)
	if err != nil {
		s.metrics.Submission(source, "rejected")
		return SubmitResult{}, err
	}

	reading, err = s.repository.Append(ctx, reading)
	if err != nil {
		if types.IsValidation(err) {
			s.metrics.Submission(source, "rejected")
			return SubmitResult{}, err
		}
		s.metrics.Submission(source, "failed")
		s.metrics.RepositoryError("append")
		return SubmitResult{}, &types.RepositoryError{Op: "append", Err: err}
	}

	advisories := classifier.Advisories(reading.TemperatureC, reading.HumidityPct)
	for _, a := range advisories {
		s.metrics.Advisory(string(a.Field))
	}
	s.metrics.Submission(source, "accepted")

	logger.Info("reading submitted",
		"id", reading.ID,
		"source", source,
		"operator", reading.Operator,
		"suhu", reading.TemperatureC,
		"kelembaban", reading.HumidityPct,
		"advisories", len(advisories),
	)

	s.changed(ctx)
	return SubmitResult{Reading: reading, Advisories: advisories}, nil
}

// Remove deletes one reading. It returns types.ErrNotFound when id is unknown.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if err := s.repository.Remove(ctx, id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return err
		}
		s.metrics.RepositoryError("remove")
		return &types.RepositoryError{Op: "remove", Err: err}
	}
	logging.FromContext(ctx).Info("reading removed", "id", id)
	s.changed(ctx)
	return nil
}

// RemoveAll empties the history. Confirmation is the caller's concern.
func (s *Service) RemoveAll(ctx context.Context) error {
	if err := s.repository.RemoveAll(ctx); err != nil {
		s.metrics.RepositoryError("remove_all")
		return &types.RepositoryError{Op: "remove_all", Err: err}
	}
	logging.FromContext(ctx).Warn("all readings removed")
	s.changed(ctx)
	return nil
}

// History returns every reading, newest first.
func (s *Service) History(ctx context.Context) ([]types.Reading, error) {
	history, err := s.repository.ListAll(ctx)
	if err != nil {
		s.metrics.RepositoryError("list")
		return nil, &types.RepositoryError{Op: "list", Err: err}
	}
	s.metrics.SetReadingsStored(len(history))
	return history, nil
}

func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	history, err := s.History(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return BuildSnapshot(history, s.loc), nil
}

func (s *Service) changed(ctx context.Context) {
	s.mu.RLock()
	fn := s.listener
	s.mu.RUnlock()
	if fn == nil {
		return
	}
	history, err := s.History(ctx)
	if err != nil {
		slog.Error("list readings after change", "error", err)
		return
	}
	fn(history)
}
