package worker

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/config"
	"github.com/spec-kit/ticket-routing/internal/repository"
	"github.com/spec-kit/ticket-routing/internal/service"
)

// Sweeper runs the periodic maintenance jobs: stale-lock sweep, workload
// drift correction, and the breach fact sweep. All jobs are idempotent
// upserts or bounded deletes, so overlapping with foreground requests is
// safe.
type Sweeper struct {
	cron    *cron.Cron
	locks   *service.LockService
	routing *service.RoutingService
	sla     *service.SLAService
	agents  repository.AgentRepository
	cfg     config.Config
	logger  *zap.Logger
}

// NewSweeper constructs the background worker.
func NewSweeper(cfg config.Config, locks *service.LockService, routing *service.RoutingService, sla *service.SLAService, agents repository.AgentRepository, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		cron:    cron.New(),
		locks:   locks,
		routing: routing,
		sla:     sla,
		agents:  agents,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start registers the cron entries and begins scheduling. Returns without
// starting when sweeps are disabled.
func (s *Sweeper) Start(ctx context.Context) error {
	if !s.cfg.Sweep.Enabled {
		s.logger.Info("background sweeps disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.Sweep.LockSweepSpec, func() { s.sweepLocks(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.Sweep.WorkloadResyncSpec, func() { s.resyncWorkloads(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.Sweep.BreachSweepSpec, func() { s.sweepBreaches(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("background sweeper started",
		zap.String("lock_spec", s.cfg.Sweep.LockSweepSpec),
		zap.String("workload_spec", s.cfg.Sweep.WorkloadResyncSpec),
		zap.String("breach_spec", s.cfg.Sweep.BreachSweepSpec),
	)
	return nil
}

// Stop halts scheduling and waits for running jobs.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweepLocks(ctx context.Context) {
	if _, err := s.locks.SweepExpired(ctx); err != nil {
		s.logger.Error("lock sweep failed", zap.Error(err))
	}
}

func (s *Sweeper) resyncWorkloads(ctx context.Context) {
	orgIDs, err := s.agents.ListOrganizationIDs(ctx)
	if err != nil {
		s.logger.Error("workload resync: list organizations failed", zap.Error(err))
		return
	}
	for _, orgID := range orgIDs {
		if err := s.routing.SyncWorkloads(ctx, orgID); err != nil {
			s.logger.Error("workload resync failed",
				zap.String("organization_id", orgID), zap.Error(err))
		}
	}
}

func (s *Sweeper) sweepBreaches(ctx context.Context) {
	orgIDs, err := s.agents.ListOrganizationIDs(ctx)
	if err != nil {
		s.logger.Error("breach sweep: list organizations failed", zap.Error(err))
		return
	}
	for _, orgID := range orgIDs {
		if _, err := s.sla.SweepBreaches(ctx, orgID, s.cfg.SLA.BreachSweepWindowDays); err != nil {
			s.logger.Error("breach sweep failed",
				zap.String("organization_id", orgID), zap.Error(err))
		}
	}
}
