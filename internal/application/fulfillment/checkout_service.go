package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

// CheckoutConfig carries the storefront-side policy for order submission.
type CheckoutConfig struct {
	// Mode selects quote or firm submission for every checkout.
	Mode fulfillment.OrderMode
	// RequiredShippingInstruction is the exact upstream instruction name every
	// order must carry.
	RequiredShippingInstruction string
}

// CheckoutService places customer orders with the upstream fulfiller and
// keeps the local order record in sync with the submission outcome.
type CheckoutService struct {
	gateway fulfillment.UpstreamGateway
	repo    fulfillment.OrderRepository
	cache   fulfillment.ReferenceCache
	cfg     CheckoutConfig
	logger  *zap.Logger

	now func() time.Time
}

// NewCheckoutService creates a checkout service.
func NewCheckoutService(
	gateway fulfillment.UpstreamGateway,
	repo fulfillment.OrderRepository,
	cache fulfillment.ReferenceCache,
	cfg CheckoutConfig,
	logger *zap.Logger,
) *CheckoutService {
	if cfg.Mode == "" {
		cfg.Mode = fulfillment.OrderModeOrder
	}
	return &CheckoutService{
		gateway: gateway,
		repo:    repo,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// PlaceOrderInput is the checkout request as the storefront collected it.
type PlaceOrderInput struct {
	CustomerRef     string
	Email           string
	Items           []fulfillment.LineItem
	ShippingAddress fulfillment.AddressInput
	PaymentMethodID string
}

// PlaceOrder validates the checkout locally, submits it upstream and persists
// the resulting order record. Validation failures never reach the upstream
// API; upstream failures leave an order record behind with the error on it so
// operators can audit what was attempted.
func (s *CheckoutService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*fulfillment.OrderRecord, error) {
	missing := make([]string, 0, 3)
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if len(in.Items) == 0 {
		missing = append(missing, "items")
	}
	if in.PaymentMethodID == "" {
		missing = append(missing, "paymentMethodId")
	}
	if len(missing) > 0 {
		return nil, fulfillment.NewValidationError(missing...)
	}

	address, err := fulfillment.NormalizeAddress(in.ShippingAddress)
	if err != nil {
		return nil, err
	}

	if err := s.verifyPaymentMethod(ctx, in.PaymentMethodID); err != nil {
		return nil, err
	}

	instruction, err := s.requiredInstruction(ctx)
	if err != nil {
		return nil, err
	}

	order := fulfillment.NewOrderRecord(in.CustomerRef, in.Email, in.Items, in.ShippingAddress, in.PaymentMethodID)
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	result, err := s.gateway.CreateOrder(ctx, &fulfillment.CreateOrderRequest{
		Items:                 in.Items,
		ShippingAddress:       address,
		Email:                 in.Email,
		PaymentMethodID:       in.PaymentMethodID,
		ShippingInstructionID: instruction.ID,
		Mode:                  s.cfg.Mode,
	})
	if err != nil {
		order.RecordSyncError(err.Error(), s.now())
		if updateErr := s.repo.Update(ctx, order); updateErr != nil {
			s.logger.Error("failed to record submission error",
				zap.String("order_id", order.ID.String()),
				zap.Error(updateErr),
			)
		}
		return order, err
	}

	if err := order.AssignUpstream(result.UpstreamOrderID, result.TransactionID); err != nil {
		return order, err
	}
	order.UpstreamStatus = result.Status
	order.LocalStatus = fulfillment.Simplify(result.Status, nil)
	order.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, order); err != nil {
		return order, fmt.Errorf("persist upstream ids: %w", err)
	}

	s.logger.Info("order submitted upstream",
		zap.String("order_id", order.ID.String()),
		zap.String("upstream_order_id", order.UpstreamOrderID),
		zap.String("mode", string(s.cfg.Mode)),
		zap.String("upstream_status", order.UpstreamStatus),
	)
	return order, nil
}

// GetOrder returns the stored order record without touching the upstream API.
func (s *CheckoutService) GetOrder(ctx context.Context, id uuid.UUID) (*fulfillment.OrderRecord, error) {
	return s.repo.FindByID(ctx, id)
}

// RefreshOrder re-reads the live upstream state for one order and persists
// the result. When the upstream fetch fails the stale record is returned
// alongside the error, with the failure written onto it.
func (s *CheckoutService) RefreshOrder(ctx context.Context, id uuid.UUID) (*fulfillment.OrderRecord, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UpstreamOrderID == "" {
		return order, fulfillment.ErrOrderMissingUpstreamID
	}

	snap, err := s.gateway.FetchStatus(ctx, order.UpstreamOrderID)
	if err != nil {
		order.RecordSyncError(err.Error(), s.now())
		if updateErr := s.repo.Update(ctx, order); updateErr != nil {
			s.logger.Error("failed to record refresh error",
				zap.String("order_id", order.ID.String()),
				zap.Error(updateErr),
			)
		}
		return order, err
	}

	order.ApplySnapshot(snap, s.now())
	if err := s.repo.Update(ctx, order); err != nil {
		return order, fmt.Errorf("persist refreshed status: %w", err)
	}
	return order, nil
}

// PaymentMethods returns the upstream payment methods, served from the
// reference cache when warm.
func (s *CheckoutService) PaymentMethods(ctx context.Context) ([]fulfillment.PaymentMethod, error) {
	if methods, ok, err := s.cache.GetPaymentMethods(ctx); err == nil && ok {
		return methods, nil
	} else if err != nil {
		s.logger.Warn("reference cache read failed, falling through to upstream", zap.Error(err))
	}

	methods, err := s.gateway.FetchPaymentMethods(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetPaymentMethods(ctx, methods); err != nil {
		s.logger.Warn("reference cache write failed", zap.Error(err))
	}
	return methods, nil
}

// ShippingInstructions returns the upstream shipping instructions, served
// from the reference cache when warm.
func (s *CheckoutService) ShippingInstructions(ctx context.Context) ([]fulfillment.ShippingInstruction, error) {
	if instructions, ok, err := s.cache.GetShippingInstructions(ctx); err == nil && ok {
		return instructions, nil
	} else if err != nil {
		s.logger.Warn("reference cache read failed, falling through to upstream", zap.Error(err))
	}

	instructions, err := s.gateway.FetchShippingInstructions(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetShippingInstructions(ctx, instructions); err != nil {
		s.logger.Warn("reference cache write failed", zap.Error(err))
	}
	return instructions, nil
}

func (s *CheckoutService) verifyPaymentMethod(ctx context.Context, id string) error {
	methods, err := s.PaymentMethods(ctx)
	if err != nil {
		return err
	}
	for _, m := range methods {
		if m.ID == id {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", fulfillment.ErrPaymentMethodNotFound, id)
}

func (s *CheckoutService) requiredInstruction(ctx context.Context) (fulfillment.ShippingInstruction, error) {
	instructions, err := s.ShippingInstructions(ctx)
	if err != nil {
		return fulfillment.ShippingInstruction{}, err
	}
	return fulfillment.SelectRequiredInstruction(instructions, s.cfg.RequiredShippingInstruction)
}
