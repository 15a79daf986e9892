package httpgin

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/service/payment"
)

// Stripe caps webhook payloads well below this.
const maxWebhookBody = 64 << 10

// @Summary  Open a subscription checkout session
// @Tags     payments
// @Param    req  body  CheckoutRequest  true  "payload"
// @Success  200  {object}  CheckoutResponse
// @Failure  400  {object}  ErrorResponse  "missing fields / invalid plan / provider rejected"
// @Failure  500  {object}  ErrorResponse
// @Failure  503  {object}  ErrorResponse
// @Router   /payments/checkout [post]
// @Router   /create-checkout-session [post]
func (h *handler) createCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	res, err := h.svcs.Payments.CreateCheckoutSession(c.Request.Context(), payment.CheckoutInput{
		PlanID:        req.PlanID,
		BillingPeriod: req.BillingPeriod,
		CustomerEmail: req.CustomerEmail,
		UserID:        optionalUser(c),
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, CheckoutResponse{SessionID: res.SessionID, PublicKey: res.PublicKey})
}

// @Summary  Verify a checkout session and record it in the ledger
// @Tags     payments
// @Param    session_id  query  string  true  "checkout session id"
// @Success  200  {object}  VerifyResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse  "unknown session"
// @Failure  500  {object}  ErrorResponse
// @Failure  503  {object}  ErrorResponse
// @Router   /payments/verify [get]
// @Router   /verify-payment [get]
func (h *handler) verifyPayment(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		badRequest(c, "session_id parameter is required")
		return
	}

	v, err := h.svcs.Payments.VerifyPayment(c.Request.Context(), sessionID, optionalUser(c))
	if err != nil {
		respondErr(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, newVerifyResponse(v))
}

// @Summary  Stripe webhook receiver
// @Tags     payments
// @Param    Stripe-Signature  header  string  true  "webhook signature"
// @Success  200  {object}  WebhookResponse
// @Failure  400  {object}  ErrorResponse  "bad signature or payload"
// @Router   /payments/webhook [post]
func (h *handler) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}
	if len(payload) > maxWebhookBody {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "payload too large"})
		return
	}

	ev, err := h.svcs.Webhooks.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook rejected", "error", err)
		respondErr(c, err)
		return
	}

	handled, err := h.svcs.Payments.HandleWebhook(c.Request.Context(), ev)
	if err != nil {
		// an unknown session will never resolve; retrying it is pointless
		if errors.Is(err, payment.ErrSessionNotFound) {
			h.logger.Warn("webhook for unknown session", "event_id", ev.ID, "session_id", ev.SessionID)
			c.JSON(http.StatusOK, WebhookResponse{Received: true})
			return
		}
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{Received: true, Handled: handled})
}
