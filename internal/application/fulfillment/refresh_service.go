package fulfillment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

// RefreshConfig bounds a status-refresh run.
type RefreshConfig struct {
	// Window is how far back submitted orders are considered for refresh.
	Window time.Duration
	// BatchLimit caps the orders processed per run.
	BatchLimit int
}

func (c *RefreshConfig) applyDefaults() {
	if c.Window <= 0 {
		c.Window = 14 * 24 * time.Hour
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = 200
	}
}

// RefreshReport summarizes one status-refresh run.
type RefreshReport struct {
	Candidates int `json:"candidates"`
	Refreshed  int `json:"refreshed"`
	Failed     int `json:"failed"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// RefreshService re-reads the live upstream status for recently submitted
// orders. One order's failure never stops the batch; an authentication
// failure does, since every remaining call would fail the same way.
type RefreshService struct {
	gateway  fulfillment.UpstreamGateway
	repo     fulfillment.OrderRepository
	throttle *Throttle
	cfg      RefreshConfig
	logger   *zap.Logger

	now func() time.Time
}

// NewRefreshService creates a status-refresh batch service.
func NewRefreshService(
	gateway fulfillment.UpstreamGateway,
	repo fulfillment.OrderRepository,
	throttle *Throttle,
	cfg RefreshConfig,
	logger *zap.Logger,
) *RefreshService {
	cfg.applyDefaults()
	return &RefreshService{
		gateway:  gateway,
		repo:     repo,
		throttle: throttle,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes one refresh pass and returns its report. The returned error is
// non-nil only when the run itself could not proceed (repository failure,
// context cancellation, upstream auth failure); per-order failures are
// recorded on the orders and counted in the report.
func (s *RefreshService) Run(ctx context.Context) (*RefreshReport, error) {
	report := &RefreshReport{StartedAt: s.now()}

	cutoff := s.now().Add(-s.cfg.Window)
	orders, err := s.repo.FindRecentSubmitted(ctx, cutoff, s.cfg.BatchLimit)
	if err != nil {
		return report, err
	}
	report.Candidates = len(orders)

	for i := range orders {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = s.now()
			return report, err
		}
		if i > 0 {
			if err := s.throttle.Wait(ctx); err != nil {
				report.FinishedAt = s.now()
				return report, err
			}
		}

		order := &orders[i]
		snap, err := s.gateway.FetchStatus(ctx, order.UpstreamOrderID)
		if err != nil {
			report.Failed++
			order.RecordSyncError(err.Error(), s.now())
			if updateErr := s.repo.Update(ctx, order); updateErr != nil {
				s.logger.Error("failed to record refresh error",
					zap.String("order_id", order.ID.String()),
					zap.Error(updateErr),
				)
			}
			if fulfillment.IsAuthFailure(err) {
				report.FinishedAt = s.now()
				return report, err
			}
			s.logger.Warn("status refresh failed for order",
				zap.String("order_id", order.ID.String()),
				zap.String("upstream_order_id", order.UpstreamOrderID),
				zap.Error(err),
			)
			continue
		}

		order.ApplySnapshot(snap, s.now())
		if err := s.repo.Update(ctx, order); err != nil {
			report.Failed++
			s.logger.Error("failed to persist refreshed status",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
			continue
		}
		report.Refreshed++
	}

	report.FinishedAt = s.now()
	s.logger.Info("status refresh run complete",
		zap.Int("candidates", report.Candidates),
		zap.Int("refreshed", report.Refreshed),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
