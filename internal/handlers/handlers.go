package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "tsirk/internal/errors"
	"tsirk/internal/models"
	"tsirk/internal/service"
)

// The handler layer only needs these slices of the services.
type checkoutAPI interface {
	CreateSession(ctx context.Context, req *models.CreateCheckoutRequest) (string, error)
	Availability(ctx context.Context) ([]models.ShowAvailability, error)
}

type fulfillmentAPI interface {
	Tickets(ctx context.Context, sessionRef string) ([]string, error)
}

type redemptionAPI interface {
	Lookup(ctx context.Context, raw string) (*models.GroupView, error)
	CheckInOne(ctx context.Context, raw string) (*models.CheckinResult, error)
	CheckInGroup(ctx context.Context, raw string) (*models.CheckinResult, error)
	SetValidity(ctx context.Context, raw string, valid bool) error
}

type statsAPI interface {
	Summary(ctx context.Context) (*models.StatsResponse, error)
}

type Handlers struct {
	checkout    checkoutAPI
	fulfillment fulfillmentAPI
	redemption  redemptionAPI
	stats       statsAPI
	dispatcher  service.Dispatcher
}

func NewHandlers(services *service.Services, dispatcher service.Dispatcher) *Handlers {
	return &Handlers{
		checkout:    services.Checkout,
		fulfillment: services.Fulfillment,
		redemption:  services.Redemption,
		stats:       services.Stats,
		dispatcher:  dispatcher,
	}
}

// CreateCheckoutSession handles POST /create-checkout-session
func (h *Handlers) CreateCheckoutSession(c *gin.Context) {
	var req models.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	sessionID, err := h.checkout.CreateSession(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CreateCheckoutResponse{SessionID: sessionID})
}

// GetTickets handles GET /get_tickets?session_id=
// The sales page polls this after payment; an empty list means
// fulfillment has not finished yet.
func (h *Handlers) GetTickets(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	codes, err := h.fulfillment.Tickets(c.Request.Context(), sessionID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.GetTicketsResponse{Codes: codes})
}

// PaymentWebhook handles POST /success-hook
// It acknowledges as soon as the event is queued; fulfillment runs
// elsewhere. A non-200 makes the provider redeliver.
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	var evt models.PaymentEvent
	if err := c.ShouldBindJSON(&evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event payload"})
		return
	}

	if evt.Type != models.PaymentEventTypeCompleted {
		slog.Debug("Ignoring webhook event", "type", evt.Type)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	session := evt.Data.Object
	if session.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event has no session id"})
		return
	}

	event := &models.CheckoutCompletedEvent{
		SessionRef:    session.ID,
		Status:        session.Status,
		PaymentStatus: session.PaymentStatus,
		AmountTotal:   session.AmountTotal,
		Timestamp:     time.Now(),
	}
	if session.CustomerDetails != nil {
		event.Email = session.CustomerDetails.Email
	}

	if err := h.dispatcher.Dispatch(event); err != nil {
		slog.Error("Failed to dispatch completion event", "session_ref", session.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Checkin handles POST /checkin
// Without an action it returns the booking group for the scanned code;
// with one it mutates and returns a confirmation.
func (h *Handlers) Checkin(c *gin.Context) {
	var req models.CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	ctx := c.Request.Context()
	switch req.Action {
	case "":
		view, err := h.redemption.Lookup(ctx, req.Code)
		if err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	case models.ActionCheckInTicket:
		result, err := h.redemption.CheckInOne(ctx, req.Code)
		if err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	case models.ActionCheckInAll:
		result, err := h.redemption.CheckInGroup(ctx, req.Code)
		if err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action"})
	}
}

// Availability handles GET /availability
func (h *Handlers) Availability(c *gin.Context) {
	availability, err := h.checkout.Availability(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shows": availability})
}

// Stats handles GET /api/stats
func (h *Handlers) Stats(c *gin.Context) {
	summary, err := h.stats.Summary(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ValidateCode handles POST /api/codes/:code/validate
// Staff activates a UiTPAS code here after verifying the card number.
// An empty body marks the code valid.
func (h *Handlers) ValidateCode(c *gin.Context) {
	var req models.ValidateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	valid := true
	if req.Valid != nil {
		valid = *req.Valid
	}

	if err := h.redemption.SetValidity(c.Request.Context(), c.Param("code"), valid); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Code updated"})
}

func (h *Handlers) handleError(c *gin.Context, err error) {
	var validationErr *apperrors.ValidationError
	var capacityErr *apperrors.CapacityError
	var providerErr *apperrors.ProviderError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Reason})
	case errors.As(err, &capacityErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": capacityErr.Error()})
	case errors.As(err, &providerErr):
		slog.Error("Payment provider request failed", "error", err)
		c.JSON(http.StatusForbidden, gin.H{"error": "Payment provider rejected the request"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		slog.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
