package order

import (
	"errors"
	"net/http"
	"strconv"

	"fieldwork/internal/api"
	"fieldwork/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Create godoc
// @Summary      Create order
// @Description  Creates a service order, either aimed at a specific agent or
// @Description  posted to the public pool.
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateOrderRequest  true  "Order data"
// @Success      201      {object}  Order
// @Failure      400      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /orders [post]
func (h *Handler) Create(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondWithBindingError(c, err)
		return
	}

	o, err := h.svc.Create(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create order"})
		return
	}

	c.JSON(http.StatusCreated, o)
}

// Get godoc
// @Summary      Get order with timeline
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        orderID  path      string  true  "Order ID"
// @Success      200      {object}  OrderWithTimeline
// @Failure      403      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Router       /orders/{orderID} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}
	role, _ := auth.GetUserRole(c)

	o, err := h.svc.Get(c.Request.Context(), c.Param("orderID"), userID, role)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

// Accept godoc
// @Summary      Accept order
// @Description  Assigns the calling agent to the order. Exactly one accept
// @Description  can win; concurrent attempts receive 409.
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        orderID  path      string  true  "Order ID"
// @Success      200      {object}  Order
// @Failure      404      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Router       /orders/{orderID}/accept [post]
func (h *Handler) Accept(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	o, err := h.svc.Accept(c.Request.Context(), c.Param("orderID"), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

// Reject godoc
// @Summary      Reject order
// @Description  Declines a direct request (agent) or withdraws a pool order
// @Description  (customer).
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        orderID  path      string  true  "Order ID"
// @Success      200      {object}  Order
// @Failure      403      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Router       /orders/{orderID}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	o, err := h.svc.Reject(c.Request.Context(), c.Param("orderID"), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

// UpdateStatus godoc
// @Summary      Update order status
// @Description  Moves the order along its lifecycle (e.g. accepted ->
// @Description  in_progress -> completed). Restricted to the assigned agent
// @Description  or the owning customer.
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        orderID  path      string               true  "Order ID"
// @Param        request  body      UpdateStatusRequest  true  "Target status"
// @Success      200      {object}  Order
// @Failure      400      {object}  gin.H
// @Failure      403      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Router       /orders/{orderID}/status [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondWithBindingError(c, err)
		return
	}

	o, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("orderID"), userID, req.Status, req.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

// ListMine godoc
// @Summary      List my orders
// @Description  Customer view of own orders, agent view of assigned and
// @Description  directly-requested orders.
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200  {array}   Order
// @Failure      500  {object}  gin.H
// @Router       /orders [get]
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}
	role, _ := auth.GetUserRole(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var (
		orders []Order
		err    error
	)
	if role == auth.RoleAgent {
		orders, err = h.svc.ListForAgent(c.Request.Context(), userID, limit, offset)
	} else {
		orders, err = h.svc.ListForCustomer(c.Request.Context(), userID, limit, offset)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, orders)
}

// ListPublic godoc
// @Summary      List the public order pool
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200  {array}   Order
// @Failure      500  {object}  gin.H
// @Router       /orders/pool [get]
func (h *Handler) ListPublic(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.svc.ListPublic(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, orders)
}

// ListAll godoc
// @Summary      List all orders. Admin only.
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200  {array}   Order
// @Failure      500  {object}  gin.H
// @Router       /admin/orders [get]
func (h *Handler) ListAll(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.svc.ListAll(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to modify this order"})
	case errors.Is(err, ErrOrderConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Order was updated by someone else, reload and retry"})
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNoAgentAssigned):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
