package consumers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/stan.go"

	"tsirk/internal/models"
	"tsirk/internal/service"
)

type Handlers struct {
	fulfillment *service.FulfillmentService
}

func NewHandlers(fulfillment *service.FulfillmentService) *Handlers {
	return &Handlers{fulfillment: fulfillment}
}

// HandleCheckoutCompleted fulfills one completion event. The message is
// only acked after the pipeline succeeds; failures leave it unacked so
// NATS redelivers, and the idempotency guard absorbs the duplicates.
func (h *Handlers) HandleCheckoutCompleted(m *stan.Msg) {
	var evt models.CheckoutCompletedEvent
	if err := json.Unmarshal(m.Data, &evt); err != nil {
		slog.Error("Failed to decode completion event, dropping", "error", err)
		// A poison message would redeliver forever; ack it away.
		if ackErr := m.Ack(); ackErr != nil {
			slog.Error("Failed to ack poison message", "error", ackErr)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := h.fulfillment.Process(ctx, &evt); err != nil {
		slog.Error("Fulfillment failed, leaving event for redelivery",
			"session_ref", evt.SessionRef, "error", err)
		return
	}

	if err := m.Ack(); err != nil {
		slog.Error("Failed to ack completion event", "session_ref", evt.SessionRef, "error", err)
	}
}
