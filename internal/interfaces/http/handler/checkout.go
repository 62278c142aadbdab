package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appfulfillment "github.com/stellarsupply/fulfillment-gateway/internal/application/fulfillment"
	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

// CheckoutHandler handles checkout and order-tracking API endpoints
type CheckoutHandler struct {
	BaseHandler
	checkoutService *appfulfillment.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkoutService *appfulfillment.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// CheckoutRequest represents a storefront checkout submission
// @Description Request body for placing a fulfillment order
//
// Top-level field presence carries no binding tags; the service validates the
// whole request and reports every missing field in one response.
type CheckoutRequest struct {
	CustomerRef     string               `json:"customer_ref" example:"web-58213"`
	Email           string               `json:"email" example:"buyer@example.com"`
	PaymentMethodID string               `json:"payment_method_id" example:"5"`
	Items           []CheckoutItemInput  `json:"items"`
	ShippingAddress ShippingAddressInput `json:"shipping_address"`
}

// CheckoutItemInput represents one line of a checkout
// @Description Checkout line item
type CheckoutItemInput struct {
	SKU       string  `json:"sku" binding:"required,min=1,max=64" example:"WIDGET-01"`
	Quantity  int     `json:"quantity" binding:"required,gt=0" example:"3"`
	UnitPrice float64 `json:"unit_price" binding:"required,gt=0" example:"19.99"`
}

// ShippingAddressInput represents the shipping address as collected
// @Description Shipping address
type ShippingAddressInput struct {
	FullName  string `json:"full_name" example:"Ada Lovelace"`
	Attention string `json:"attention,omitempty" example:"Reception"`
	Line1     string `json:"line1" example:"12 Analytical Way"`
	Line2     string `json:"line2,omitempty" example:"Suite 4"`
	City      string `json:"city" example:"Portland"`
	State     string `json:"state" example:"OR"`
	Zip       string `json:"zip" example:"97201"`
	Country   string `json:"country,omitempty" example:"US"`
}

// OrderResponse represents a stored order in API responses
// @Description Order record response
type OrderResponse struct {
	ID                    string               `json:"id" example:"550e8400-e29b-41d4-a716-446655440010"`
	CustomerRef           string               `json:"customer_ref" example:"web-58213"`
	Email                 string               `json:"email" example:"buyer@example.com"`
	Items                 []OrderItemResponse  `json:"items"`
	ShippingAddress       ShippingAddressInput `json:"shipping_address"`
	PaymentMethodID       string               `json:"payment_method_id" example:"5"`
	LocalStatus           string               `json:"local_status" example:"processing"`
	UpstreamOrderID       string               `json:"upstream_order_id,omitempty" example:"SO-1001"`
	UpstreamTransactionID string               `json:"upstream_transaction_id,omitempty" example:"TX-1001"`
	UpstreamStatus        string               `json:"upstream_status,omitempty" example:"Pending Fulfillment"`
	TrackingNumbers       []string             `json:"tracking_numbers,omitempty"`
	LastSyncedAt          *time.Time           `json:"last_synced_at,omitempty"`
	LastError             string               `json:"last_error,omitempty"`
	LastErrorAt           *time.Time           `json:"last_error_at,omitempty"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

// OrderItemResponse represents one order line in API responses
// @Description Order line item response
type OrderItemResponse struct {
	SKU       string  `json:"sku" example:"WIDGET-01"`
	Quantity  int     `json:"quantity" example:"3"`
	UnitPrice float64 `json:"unit_price" example:"19.99"`
	Total     float64 `json:"total" example:"59.97"`
}

// PaymentMethodResponse represents an upstream payment method
// @Description Payment method response
type PaymentMethodResponse struct {
	ID    string `json:"id" example:"5"`
	Title string `json:"title" example:"Net 30"`
}

// ShippingInstructionResponse represents an upstream shipping instruction
// @Description Shipping instruction response
type ShippingInstructionResponse struct {
	ID   string `json:"id" example:"11"`
	Name string `json:"name" example:"Ship Complete - Hold For Pickup"`
}

// RegisterRoutes registers checkout routes on the API group
func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/checkout", h.Checkout)

	orders := rg.Group("/orders")
	orders.GET("/:id", h.GetOrder)

	reference := rg.Group("/reference")
	reference.GET("/payment-methods", h.ListPaymentMethods)
	reference.GET("/shipping-instructions", h.ListShippingInstructions)
}

// Checkout godoc
// @Summary      Place a fulfillment order
// @Description  Validate the checkout locally and submit it to the fulfillment provider
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        request body CheckoutRequest true "Checkout request"
// @Success      201 {object} dto.Response{data=OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items := make([]fulfillment.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		unitPrice := decimal.NewFromFloat(item.UnitPrice)
		items = append(items, fulfillment.LineItem{
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: unitPrice,
			Total:     unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}

	order, err := h.checkoutService.PlaceOrder(c.Request.Context(), appfulfillment.PlaceOrderInput{
		CustomerRef:     req.CustomerRef,
		Email:           req.Email,
		Items:           items,
		ShippingAddress: toAddressInput(req.ShippingAddress),
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toOrderResponse(order))
}

// GetOrder godoc
// @Summary      Get an order
// @Description  Retrieve a stored order, optionally refreshing it from the fulfillment provider first
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        refresh query bool false "Re-read live upstream state before responding"
// @Success      200 {object} dto.Response{data=OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var order *fulfillment.OrderRecord
	if c.Query("refresh") == "true" {
		order, err = h.checkoutService.RefreshOrder(c.Request.Context(), orderID)
	} else {
		order, err = h.checkoutService.GetOrder(c.Request.Context(), orderID)
	}
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toOrderResponse(order))
}

// ListPaymentMethods godoc
// @Summary      List payment methods
// @Description  List the fulfillment provider's payment methods, served from cache when warm
// @Tags         reference
// @Produce      json
// @Success      200 {object} dto.Response{data=[]PaymentMethodResponse}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reference/payment-methods [get]
func (h *CheckoutHandler) ListPaymentMethods(c *gin.Context) {
	methods, err := h.checkoutService.PaymentMethods(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	out := make([]PaymentMethodResponse, 0, len(methods))
	for _, m := range methods {
		out = append(out, PaymentMethodResponse{ID: m.ID, Title: m.Title})
	}
	h.Success(c, out)
}

// ListShippingInstructions godoc
// @Summary      List shipping instructions
// @Description  List the fulfillment provider's shipping instructions, served from cache when warm
// @Tags         reference
// @Produce      json
// @Success      200 {object} dto.Response{data=[]ShippingInstructionResponse}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reference/shipping-instructions [get]
func (h *CheckoutHandler) ListShippingInstructions(c *gin.Context) {
	instructions, err := h.checkoutService.ShippingInstructions(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	out := make([]ShippingInstructionResponse, 0, len(instructions))
	for _, i := range instructions {
		out = append(out, ShippingInstructionResponse{ID: i.ID, Name: i.Name})
	}
	h.Success(c, out)
}

func toAddressInput(in ShippingAddressInput) fulfillment.AddressInput {
	return fulfillment.AddressInput{
		FullName:  in.FullName,
		Attention: in.Attention,
		Line1:     in.Line1,
		Line2:     in.Line2,
		City:      in.City,
		State:     in.State,
		Zip:       in.Zip,
		Country:   in.Country,
	}
}

func toOrderResponse(order *fulfillment.OrderRecord) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.InexactFloat64(),
			Total:     item.Total.InexactFloat64(),
		})
	}

	return OrderResponse{
		ID:          order.ID.String(),
		CustomerRef: order.CustomerRef,
		Email:       order.Email,
		Items:       items,
		ShippingAddress: ShippingAddressInput{
			FullName:  order.ShippingAddress.FullName,
			Attention: order.ShippingAddress.Attention,
			Line1:     order.ShippingAddress.Line1,
			Line2:     order.ShippingAddress.Line2,
			City:      order.ShippingAddress.City,
			State:     order.ShippingAddress.State,
			Zip:       order.ShippingAddress.Zip,
			Country:   order.ShippingAddress.Country,
		},
		PaymentMethodID:       order.PaymentMethodID,
		LocalStatus:           string(order.LocalStatus),
		UpstreamOrderID:       order.UpstreamOrderID,
		UpstreamTransactionID: order.UpstreamTransactionID,
		UpstreamStatus:        order.UpstreamStatus,
		TrackingNumbers:       order.TrackingNumbers,
		LastSyncedAt:          order.LastSyncedAt,
		LastError:             order.LastError,
		LastErrorAt:           order.LastErrorAt,
		CreatedAt:             order.CreatedAt,
		UpdatedAt:             order.UpdatedAt,
	}
}
