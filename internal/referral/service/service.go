package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	refmetrics "referrals/internal/referral/metrics"
	"referrals/internal/referral/models"
	id "referrals/pkg/domain"
)

// Store is the persistence port for codes, tracking rows and the event outbox.
// Implementations are pure I/O; every business rule lives in this package.
//
// Methods that guard a state change (IncrementUsesIfAvailable, CompleteIfPending,
// CancelIfPending) are conditional writes: they either apply atomically or
// report sentinel.ErrExhausted / sentinel.ErrInvalidState without side effects.
type Store interface {
	CreateCode(ctx context.Context, code *models.ReferralCode) error
	FindCodeByID(ctx context.Context, codeID id.CodeID) (*models.ReferralCode, error)
	FindCodeByValue(ctx context.Context, value string) (*models.ReferralCode, error)
	LockCode(ctx context.Context, codeID id.CodeID) (*models.ReferralCode, error)
	ListCodesByOwner(ctx context.Context, ownerID id.UserID, includeArchived bool) ([]*models.ReferralCode, error)
	UpdateCode(ctx context.Context, code *models.ReferralCode) error
	DeleteCode(ctx context.Context, codeID id.CodeID) error
	IncrementUsesIfAvailable(ctx context.Context, codeID id.CodeID) error
	DecrementUses(ctx context.Context, codeID id.CodeID) error

	CreateTracking(ctx context.Context, tracking *models.ReferralTracking) error
	FindTracking(ctx context.Context, trackingID id.TrackingID) (*models.ReferralTracking, error)
	FindTrackingByPair(ctx context.Context, codeID id.CodeID, referredUserID id.UserID) (*models.ReferralTracking, error)
	CountTrackingsByCode(ctx context.Context, codeID id.CodeID) (total int, pending int, err error)
	CompleteIfPending(ctx context.Context, trackingID id.TrackingID, now time.Time) (*models.ReferralTracking, error)
	CancelIfPending(ctx context.Context, trackingID id.TrackingID, reason string, now time.Time) (*models.ReferralTracking, error)
	ListTrackings(ctx context.Context, filter models.TrackingFilter) ([]*models.ReferralTracking, error)
	AggregateByReferrer(ctx context.Context, filter models.TrackingFilter) ([]models.OwnerTotals, error)

	AppendOutbox(ctx context.Context, event models.OutboxEvent) error
}

// StoreTx provides transactional boundaries over Store.
// Implementations may wrap a database transaction or, in-memory, a coarse lock
// with copy-on-write so a failing callback leaves no partial state.
type StoreTx interface {
	// RunInTx runs fn in one read-write unit of work. Returning an error rolls back.
	// A storage-level serialization conflict is reported as sentinel.ErrConflict.
	RunInTx(ctx context.Context, fn func(store Store) error) error
	// ReadSnapshot runs fn against one consistent read-only snapshot.
	ReadSnapshot(ctx context.Context, fn func(store Store) error) error
}

// LeaderboardCache stores computed top-performer lists for a short time.
type LeaderboardCache interface {
	GetTopPerformers(ctx context.Context, key string) ([]models.OwnerSummary, bool, error)
	SetTopPerformers(ctx context.Context, key string, summaries []models.OwnerSummary) error
}

// CodeGenerator produces candidate code strings.
type CodeGenerator func() (string, error)

const (
	defaultCodeLength            = 8
	defaultMaxGenerationAttempts = 5
	defaultMaxTxRetries          = 3
	defaultRetryBackoff          = 10 * time.Millisecond
	defaultTopLimit              = 10
	maxTopLimit                  = 100
)

// Service is the referral engine: code registry, redemption ledger and analytics.
type Service struct {
	store   Store
	tx      StoreTx
	logger  *slog.Logger
	metrics *refmetrics.Metrics
	tracer  trace.Tracer
	cache   LeaderboardCache

	generate              CodeGenerator
	codeLength            int
	maxGenerationAttempts int
	maxTxRetries          int
	retryBackoff          time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *refmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLeaderboardCache(cache LeaderboardCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithCodeLength sets the generated code length, clamped to 6-10 characters.
func WithCodeLength(n int) Option {
	return func(s *Service) {
		s.codeLength = min(max(n, minCodeLength), maxCodeLength)
	}
}

func WithCodeGenerator(gen CodeGenerator) Option {
	return func(s *Service) {
		if gen != nil {
			s.generate = gen
		}
	}
}

func WithMaxGenerationAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxGenerationAttempts = n
		}
	}
}

// WithTxRetries bounds retries of transactions that hit a storage conflict.
func WithTxRetries(n int, backoff time.Duration) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxTxRetries = n
		}
		if backoff >= 0 {
			s.retryBackoff = backoff
		}
	}
}

// New constructs a Service. store serves plain reads; tx serves every
// multi-step mutation and every analytics snapshot.
func New(store Store, tx StoreTx, opts ...Option) *Service {
	s := &Service{
		store:                 store,
		tx:                    tx,
		tracer:                otel.Tracer("referrals/internal/referral/service"),
		codeLength:            defaultCodeLength,
		maxGenerationAttempts: defaultMaxGenerationAttempts,
		maxTxRetries:          defaultMaxTxRetries,
		retryBackoff:          defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.generate == nil {
		s.generate = randomCodeGenerator(s.codeLength)
	}
	return s
}
