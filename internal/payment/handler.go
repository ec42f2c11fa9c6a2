package payment

import (
	"errors"
	"net/http"
	"strconv"

	"fieldwork/internal/auth"
	"fieldwork/internal/order"
	"fieldwork/internal/paystack"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc  Service
	repo Store
}

func NewHandler(svc Service, repo Store) *Handler {
	return &Handler{svc: svc, repo: repo}
}

// Initiate godoc
// @Summary      Start payment for an order
// @Description  Initializes a gateway charge and returns the authorization
// @Description  URL the customer completes the payment at.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        orderID  path      string  true  "Order ID"
// @Success      200      {object}  InitiateResponse
// @Failure      400      {object}  gin.H
// @Failure      403      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Failure      502      {object}  gin.H
// @Router       /orders/{orderID}/pay [post]
func (h *Handler) Initiate(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	resp, err := h.svc.Initiate(c.Request.Context(), c.Param("orderID"), userID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, ErrNotOrderCustomer):
			c.JSON(http.StatusForbidden, gin.H{"error": "Only the order's customer can pay for it"})
		case errors.Is(err, order.ErrNoAgentAssigned):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Order has no assigned agent yet"})
		case errors.Is(err, ErrOrderAlreadyPaid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Order is already paid"})
		case errors.Is(err, paystack.ErrGatewayRejected):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payment gateway rejected the charge"})
		case errors.Is(err, paystack.ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway unavailable, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate payment"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Webhook godoc
// @Summary      Payment webhook ingress
// @Description  Receives signed charge events from the gateway. Always
// @Description  acknowledges verified-as-bogus and duplicate deliveries so
// @Description  the provider stops retrying them.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      200  {object}  gin.H
// @Failure      500  {object}  gin.H
// @Router       /webhooks/payments [post]
func (h *Handler) Webhook(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	err = h.svc.HandleWebhook(c.Request.Context(), rawBody, c.GetHeader(paystack.SignatureHeader))
	if err != nil {
		if errors.Is(err, paystack.ErrInvalidSignature) {
			// Ack so the provider stops retrying; nothing was changed.
			c.JSON(http.StatusOK, gin.H{"status": "discarded"})
			return
		}
		// Transient processing failure: a non-2xx makes the provider
		// redeliver, which is safe because handling is idempotent.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListByOrder godoc
// @Summary      List payments for an order. Admin only.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        orderID  path      string  true  "Order ID"
// @Success      200      {array}   Payment
// @Failure      500      {object}  gin.H
// @Router       /admin/orders/{orderID}/payments [get]
func (h *Handler) ListByOrder(c *gin.Context) {
	payments, err := h.repo.ListByOrder(c.Request.Context(), c.Param("orderID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}

// ListAll godoc
// @Summary      List payments. Admin only.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200  {array}   Payment
// @Failure      500  {object}  gin.H
// @Router       /admin/payments [get]
func (h *Handler) ListAll(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	payments, err := h.repo.ListAll(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}
