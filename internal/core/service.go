package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/NICValidator/internal/config"
	"github.com/JonMunkholm/NICValidator/internal/nic"
	"github.com/go-playground/validator/v10"
)

// Service is the entry point for batch validation and reporting.
type Service struct {
	store    RecordStore
	cache    StatsCache
	observer Observer
	limiter  *UploadLimiter
	validate *validator.Validate
	now      func() time.Time

	uploadCfg config.UploadConfig
	reportCfg config.ReportConfig
}

// Option customises a Service.
type Option func(*Service)

// WithStatsCache enables caching of dashboard aggregates.
func WithStatsCache(c StatsCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithObserver registers an observer for decode and batch events.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock overrides the clock used for reference years and report windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service backed by store.
func NewService(store RecordStore, cfg *config.Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("core: nil record store")
	}
	if cfg == nil {
		return nil, errors.New("core: nil config")
	}

	s := &Service{
		store:     store,
		observer:  nopObserver{},
		limiter:   NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		now:       time.Now,
		uploadCfg: cfg.Upload,
		reportCfg: cfg.Report,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DecodeOne decodes a single identifier against the current year.
func (s *Service) DecodeOne(identifier string) (nic.Record, error) {
	rec, err := nic.Decode(identifier, s.referenceYear())
	s.observeDecode(err)
	return rec, err
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	return nil
}

// UploadLimiterStatus returns a snapshot of batch concurrency.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until active batches finish or ctx is done.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) referenceYear() int {
	return s.now().Year()
}

func (s *Service) observeDecode(err error) {
	reason, _ := nic.ReasonOf(err)
	s.observer.ObserveDecode(reason)
}

type nopObserver struct{}

func (nopObserver) ObserveDecode(nic.Reason)               {}
func (nopObserver) ObserveBatch(BatchStatus, *BatchResult) {}
