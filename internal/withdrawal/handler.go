package withdrawal

import (
	"errors"
	"net/http"
	"strconv"

	"fieldwork/internal/auth"
	"fieldwork/internal/paystack"
	"fieldwork/internal/wallet"

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
// @Summary      Request a withdrawal
// @Description  Reserves the amount from the agent's wallet and starts a
// @Description  payout transfer. Insufficient balance is rejected before
// @Description  anything is written or any gateway call is made.
// @Tags         withdrawals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      InitiateRequest  true  "Withdrawal amount"
// @Success      201      {object}  Withdrawal
// @Failure      400      {object}  gin.H
// @Failure      402      {object}  gin.H
// @Failure      502      {object}  gin.H
// @Router       /withdrawals [post]
func (h *Handler) Initiate(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_cents must be positive"})
		return
	}

	w, err := h.svc.Initiate(c.Request.Context(), userID, req.AmountCents)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount_cents must be positive"})
		case errors.Is(err, wallet.ErrInsufficientFunds):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "Insufficient wallet balance"})
		case errors.Is(err, ErrNoBankDetails):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Add your bank details before withdrawing"})
		case errors.Is(err, ErrOutcomeUnknown):
			c.JSON(http.StatusAccepted, gin.H{
				"message": "Withdrawal received; the transfer is being confirmed with the payment provider",
			})
		case errors.Is(err, paystack.ErrGatewayRejected):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payment provider rejected the transfer"})
		case errors.Is(err, paystack.ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable, funds were not taken"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process withdrawal"})
		}
		return
	}

	c.JSON(http.StatusCreated, w)
}

// ListMine godoc
// @Summary      List my withdrawals
// @Tags         withdrawals
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200  {array}   Withdrawal
// @Failure      500  {object}  gin.H
// @Router       /withdrawals [get]
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	withdrawals, err := h.repo.ListByAgent(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch withdrawals"})
		return
	}

	c.JSON(http.StatusOK, withdrawals)
}

// Webhook godoc
// @Summary      Transfer webhook ingress
// @Description  Receives signed transfer events from the gateway.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      200  {object}  gin.H
// @Failure      500  {object}  gin.H
// @Router       /webhooks/transfers [post]
func (h *Handler) Webhook(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	err = h.svc.HandleWebhook(c.Request.Context(), rawBody, c.GetHeader(paystack.SignatureHeader))
	if err != nil {
		if errors.Is(err, paystack.ErrInvalidSignature) {
			c.JSON(http.StatusOK, gin.H{"status": "discarded"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListAll godoc
// @Summary      List withdrawals. Admin only.
// @Tags         withdrawals
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200  {array}   Withdrawal
// @Failure      500  {object}  gin.H
// @Router       /admin/withdrawals [get]
func (h *Handler) ListAll(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	withdrawals, err := h.repo.ListAll(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch withdrawals"})
		return
	}

	c.JSON(http.StatusOK, withdrawals)
}
