// Package service implements the external ID directory: paged reads under a
// shared read-capacity throttle, and the assignment protocol that binds
// identifiers to accounts through conditional writes.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"extid/internal/externalid/metrics"
	"extid/internal/externalid/ports"
	dErrors "extid/pkg/domain-errors"
	"extid/pkg/platform/audit"
	"extid/pkg/platform/sentinel"
)

const tracerName = "extid/internal/externalid/service"

// Default directory limits.
const (
	DefaultMaxPageSize     = 100
	DefaultDefaultPageSize = 50
	DefaultScanLimit       = 200
)

// CapacityLimiter debits read capacity before each store query.
// *throttle.Throttle satisfies it.
type CapacityLimiter interface {
	Acquire(ctx context.Context, cost int) (time.Duration, error)
}

// Config bounds directory reads.
type Config struct {
	MaxPageSize     int
	DefaultPageSize int
	// ScanLimit is the raw record count requested per store query. Larger
	// values mean fewer round trips but more records discarded by filters.
	ScanLimit int
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{
		MaxPageSize:     DefaultMaxPageSize,
		DefaultPageSize: DefaultDefaultPageSize,
		ScanLimit:       DefaultScanLimit,
	}
}

// Service orchestrates the identifier directory.
type Service struct {
	store          ports.Store
	limiter        CapacityLimiter
	cfg            Config
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithConfig overrides the directory limits. Non-positive fields keep their
// defaults.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.MaxPageSize > 0 {
			s.cfg.MaxPageSize = cfg.MaxPageSize
		}
		if cfg.DefaultPageSize > 0 {
			s.cfg.DefaultPageSize = cfg.DefaultPageSize
		}
		if cfg.ScanLimit > 0 {
			s.cfg.ScanLimit = cfg.ScanLimit
		}
	}
}

// New constructs a Service. limiter is shared by every caller of the
// returned service and should be shared with any other service reading the
// same store.
func New(store ports.Store, limiter CapacityLimiter, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if limiter == nil {
		return nil, errors.New("capacity limiter is required")
	}
	s := &Service{
		store:   store,
		limiter: limiter,
		cfg:     DefaultConfig(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg.DefaultPageSize = min(s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	return s, nil
}

// Config returns the effective directory limits.
func (s *Service) Config() Config {
	return s.cfg
}

func (s *Service) logAudit(ctx context.Context, action audit.AuditEvent, appID, identifier, studyID string, attrs ...any) {
	event := audit.Event{
		Category:   action.Category(),
		Action:     string(action),
		AppID:      appID,
		Identifier: identifier,
		StudyID:    studyID,
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, event, attrs...)
}

// storeError wraps a store failure for op. A store reporting
// sentinel.ErrUnavailable becomes CodeUnavailable so clients back off;
// anything else stays uncoded and surfaces as an internal error.
func storeError(op string, err error) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "identifier store is temporarily unavailable")
	}
	return fmt.Errorf("%s: %w", op, err)
}
