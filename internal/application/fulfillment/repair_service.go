package fulfillment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

// RepairConfig bounds an on-hold repair run.
type RepairConfig struct {
	// BatchLimit caps the orders processed per run.
	BatchLimit int
}

func (c *RepairConfig) applyDefaults() {
	if c.BatchLimit <= 0 {
		c.BatchLimit = 50
	}
}

// RepairReport summarizes one on-hold repair run.
type RepairReport struct {
	Candidates        int `json:"candidates"`
	Repaired          int `json:"repaired"`
	SkippedBadAddress int `json:"skippedBadAddress"`
	Locked            int `json:"locked"`
	Failed            int `json:"failed"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// RepairService works the upstream's manual-intervention queue: orders parked
// "On Hold - Contact Desk" get their shipping address re-submitted and the
// required shipping instruction re-applied, which releases them without a
// phone call to the fulfiller's desk.
type RepairService struct {
	gateway  fulfillment.UpstreamGateway
	repo     fulfillment.OrderRepository
	throttle *Throttle
	cfg      RepairConfig
	logger   *zap.Logger

	now func() time.Time
}

// NewRepairService creates an on-hold repair batch service.
func NewRepairService(
	gateway fulfillment.UpstreamGateway,
	repo fulfillment.OrderRepository,
	throttle *Throttle,
	cfg RepairConfig,
	logger *zap.Logger,
) *RepairService {
	cfg.applyDefaults()
	return &RepairService{
		gateway:  gateway,
		repo:     repo,
		throttle: throttle,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes one repair pass. Orders whose stored address cannot be
// normalized are skipped without any upstream call; every other failure is
// recorded on the order and the run continues. When no order is on hold the
// run makes no upstream calls at all.
func (s *RepairService) Run(ctx context.Context) (*RepairReport, error) {
	report := &RepairReport{StartedAt: s.now()}

	orders, err := s.repo.FindByUpstreamStatus(ctx, fulfillment.RawStatusOnHoldContactDesk, s.cfg.BatchLimit)
	if err != nil {
		return report, err
	}
	report.Candidates = len(orders)
	if len(orders) == 0 {
		report.FinishedAt = s.now()
		return report, nil
	}

	// One instruction lookup serves the whole batch; the required entry is
	// configuration, not per-order data.
	instruction, err := s.gateway.RequiredShippingInstruction(ctx)
	if err != nil {
		report.FinishedAt = s.now()
		return report, err
	}

	upstreamCalls := 0
	for i := range orders {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = s.now()
			return report, err
		}

		order := &orders[i]
		address, err := fulfillment.NormalizeAddress(order.ShippingAddress)
		if err != nil {
			report.SkippedBadAddress++
			order.RecordSyncError(fmt.Sprintf("repair skipped: %s", err.Error()), s.now())
			if updateErr := s.repo.Update(ctx, order); updateErr != nil {
				s.logger.Error("failed to record repair skip",
					zap.String("order_id", order.ID.String()),
					zap.Error(updateErr),
				)
			}
			s.logger.Warn("on-hold order has unrepairable address",
				zap.String("order_id", order.ID.String()),
				zap.String("upstream_order_id", order.UpstreamOrderID),
				zap.Error(err),
			)
			continue
		}

		if upstreamCalls > 0 {
			if err := s.throttle.Wait(ctx); err != nil {
				report.FinishedAt = s.now()
				return report, err
			}
		}
		upstreamCalls++

		note := fmt.Sprintf("Address re-verified and shipping instruction re-applied automatically at %s",
			s.now().UTC().Format(time.RFC3339))
		status, err := s.gateway.UpdateOrder(ctx, order.UpstreamOrderID, fulfillment.OrderUpdate{
			ShippingAddress:       &address,
			ShippingInstructionID: &instruction.ID,
			Notes:                 &note,
		})
		if err != nil {
			order.RecordSyncError(err.Error(), s.now())
			if updateErr := s.repo.Update(ctx, order); updateErr != nil {
				s.logger.Error("failed to record repair error",
					zap.String("order_id", order.ID.String()),
					zap.Error(updateErr),
				)
			}
			if fulfillment.IsLockFailure(err) {
				report.Locked++
				s.logger.Warn("on-hold order is locked upstream, leaving for next run",
					zap.String("order_id", order.ID.String()),
					zap.String("upstream_order_id", order.UpstreamOrderID),
				)
			} else {
				report.Failed++
				s.logger.Warn("on-hold repair failed for order",
					zap.String("order_id", order.ID.String()),
					zap.String("upstream_order_id", order.UpstreamOrderID),
					zap.Error(err),
				)
			}
			if fulfillment.IsAuthFailure(err) {
				report.FinishedAt = s.now()
				return report, err
			}
			continue
		}

		// An empty status in the update response means the upstream did not
		// report the post-update workflow state. The sentinel keeps the order
		// out of the next repair pass while flagging it for verification.
		if status == "" {
			status = fulfillment.RawStatusAddressFixed
		}
		order.UpstreamStatus = status
		order.LocalStatus = fulfillment.Simplify(status, order.TrackingNumbers)
		order.LastError = ""
		order.LastErrorAt = nil
		syncedAt := s.now()
		order.LastSyncedAt = &syncedAt
		order.UpdatedAt = syncedAt
		if err := s.repo.Update(ctx, order); err != nil {
			report.Failed++
			s.logger.Error("failed to persist repaired order",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
			continue
		}
		report.Repaired++
	}

	report.FinishedAt = s.now()
	s.logger.Info("on-hold repair run complete",
		zap.Int("candidates", report.Candidates),
		zap.Int("repaired", report.Repaired),
		zap.Int("skipped_bad_address", report.SkippedBadAddress),
		zap.Int("locked", report.Locked),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
