package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/events"
	"github.com/spec-kit/ticket-routing/internal/observability"
	"github.com/spec-kit/ticket-routing/internal/repository"
	apperrors "github.com/spec-kit/ticket-routing/pkg/util"
)

// LockService owns the editing-lease lifecycle for tickets. Leases are
// cooperative: they serialize Lock-Manager-respecting clients, they do not
// guard the ticket store against writers that bypass the manager.
type LockService struct {
	locks      repository.LockRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	leaseTTL   time.Duration
	now        func() time.Time
}

// LockDependencies bundles collaborators.
type LockDependencies struct {
	LockRepo   repository.LockRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	LeaseTTL   time.Duration
	Now        func() time.Time
}

// NewLockService creates the service.
func NewLockService(deps LockDependencies) *LockService {
	ttl := deps.LeaseTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LockService{
		locks:      deps.LockRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		leaseTTL:   ttl,
		now:        now,
	}
}

// LockGrant is the outcome of an acquire attempt. A denial carries the
// current holder so the UI can show who is editing.
type LockGrant struct {
	Granted   bool
	HolderID  string
	ExpiresAt time.Time
}

// LockStatus describes the observable lock state of a ticket.
type LockStatus struct {
	Locked    bool
	HolderID  string
	ExpiresAt *time.Time
}

// BulkAcquireFailure reports one denied ticket in a bulk acquire.
type BulkAcquireFailure struct {
	TicketID string
	HolderID string
}

// BulkAcquireResult reports per-ticket outcomes; partial success is the
// expected shape, not an error.
type BulkAcquireResult struct {
	Acquired []string
	Failed   []BulkAcquireFailure
}

// Acquire grants or renews the editing lease on a ticket. An expired lock is
// swept as if it never existed; re-acquire by the current holder extends the
// lease.
func (s *LockService) Acquire(ctx context.Context, ticketID, agentID string) (*LockGrant, error) {
	now := s.now()

	existing, err := s.locks.Get(ctx, ticketID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if existing != nil {
		if existing.ExpiredAt(now) {
			if err := s.locks.Delete(ctx, ticketID); err != nil {
				return nil, err
			}
			existing = nil
		} else if existing.HolderID != agentID {
			s.metrics.RecordEngineOp("lock_denied")
			return &LockGrant{Granted: false, HolderID: existing.HolderID, ExpiresAt: existing.ExpiresAt}, nil
		}
	}

	lock := &domain.TicketLock{
		TicketID:  ticketID,
		HolderID:  agentID,
		ExpiresAt: now.Add(s.leaseTTL),
	}
	if err := s.locks.Upsert(ctx, lock); err != nil {
		return nil, err
	}

	s.metrics.RecordEngineOp("lock_granted")
	return &LockGrant{Granted: true, HolderID: agentID, ExpiresAt: lock.ExpiresAt}, nil
}

// Release removes the agent's own lease. Releasing a missing lock is a
// no-op; releasing another agent's lock is an authorization failure.
func (s *LockService) Release(ctx context.Context, ticketID, agentID string) error {
	existing, err := s.locks.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if existing.HolderID != agentID {
		return apperrors.NewNotLockOwner(ticketID, existing.HolderID)
	}
	return s.locks.Delete(ctx, ticketID)
}

// Status reports lock state, sweeping an expired row so stale locks never
// appear active.
func (s *LockService) Status(ctx context.Context, ticketID string) (*LockStatus, error) {
	existing, err := s.locks.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &LockStatus{Locked: false}, nil
		}
		return nil, err
	}
	if existing.ExpiredAt(s.now()) {
		if err := s.locks.Delete(ctx, ticketID); err != nil {
			return nil, err
		}
		return &LockStatus{Locked: false}, nil
	}
	expiresAt := existing.ExpiresAt
	return &LockStatus{Locked: true, HolderID: existing.HolderID, ExpiresAt: &expiresAt}, nil
}

// ForceRelease deletes any lock on the ticket with no ownership check. Role
// authorization happens at the HTTP layer.
func (s *LockService) ForceRelease(ctx context.Context, ticketID, actingAgentID string) error {
	existing, err := s.locks.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if err := s.locks.Delete(ctx, ticketID); err != nil {
		return err
	}

	s.logger.Info("lock force released",
		zap.String("ticket_id", ticketID),
		zap.String("holder_id", existing.HolderID),
		zap.String("actor_id", actingAgentID),
	)
	s.metrics.RecordEngineOp("lock_force_released")
	s.publish(ctx, events.Event{
		ID:           uuid.NewString(),
		Type:         events.EventLockForceReleased,
		TicketID:     ticketID,
		ActorAgentID: &actingAgentID,
		Timestamp:    s.now(),
		Payload:      events.LockForceReleasedPayload{HolderAgentID: existing.HolderID},
	})
	return nil
}

// BulkAcquire attempts Acquire per ticket in input order. There is no
// atomicity across the set; partial results are reported as-is.
func (s *LockService) BulkAcquire(ctx context.Context, ticketIDs []string, agentID string) (*BulkAcquireResult, error) {
	result := &BulkAcquireResult{
		Acquired: []string{},
		Failed:   []BulkAcquireFailure{},
	}
	for _, ticketID := range ticketIDs {
		grant, err := s.Acquire(ctx, ticketID, agentID)
		if err != nil {
			return nil, err
		}
		if grant.Granted {
			result.Acquired = append(result.Acquired, ticketID)
		} else {
			result.Failed = append(result.Failed, BulkAcquireFailure{TicketID: ticketID, HolderID: grant.HolderID})
		}
	}
	return result, nil
}

// SweepExpired bulk-deletes lapsed leases. The lazy sweep in Acquire/Status
// already keeps reads correct; this trims abandoned rows.
func (s *LockService) SweepExpired(ctx context.Context) (int64, error) {
	swept, err := s.locks.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		s.logger.Info("swept expired locks", zap.Int64("count", swept))
	}
	return swept, nil
}

func (s *LockService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
