package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"tsirk/internal/cache"
	apperrors "tsirk/internal/errors"
	"tsirk/internal/external"
	"tsirk/internal/logger"
	"tsirk/internal/metrics"
	"tsirk/internal/models"
	"tsirk/internal/pricing"
)

// Door codes skip easily confused characters (0/O, 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const codeLength = 6
const maxCodeAttempts = 10

// FulfillmentService turns a completed payment session into an order
// with access codes, tickets and mails. Process is safe to call more
// than once per session: the unique session reference makes redelivered
// and racing events collapse into a single fulfillment.
type FulfillmentService struct {
	orders    OrderStore
	codes     CodeStore
	payments  PaymentProvider
	artifacts ArtifactRenderer
	mailer    Mailer
	publisher EventPublisher
	engine    *pricing.Engine
	cache     *cache.ValkeyClient
	publicURL string
}

func NewFulfillmentService(orders OrderStore, codes CodeStore, payments PaymentProvider,
	artifacts ArtifactRenderer, mailer Mailer, publisher EventPublisher,
	engine *pricing.Engine, valkeyClient *cache.ValkeyClient, publicURL string) *FulfillmentService {
	return &FulfillmentService{
		orders:    orders,
		codes:     codes,
		payments:  payments,
		artifacts: artifacts,
		mailer:    mailer,
		publisher: publisher,
		engine:    engine,
		cache:     valkeyClient,
		publicURL: publicURL,
	}
}

// Process runs the fulfillment pipeline for one completion event.
// Persistence failures return an error so the event can be redelivered;
// artifact and mail failures are logged and do not fail the order.
func (s *FulfillmentService) Process(ctx context.Context, evt *models.CheckoutCompletedEvent) error {
	log := logger.WithFields("session_ref", evt.SessionRef)

	existing, err := s.orders.GetBySessionRef(ctx, evt.SessionRef)
	if err != nil {
		return fmt.Errorf("failed to check for existing order: %w", err)
	}
	if existing != nil {
		log.Info("Session already fulfilled, discarding event")
		metrics.FulfillmentDuplicates.Inc()
		return nil
	}

	// Line items are fetched before anything is written: an abort here
	// leaves no order behind, so a redelivered event retries cleanly.
	items, err := s.payments.ListLineItems(ctx, evt.SessionRef)
	if err != nil {
		return fmt.Errorf("failed to retrieve line items: %w", err)
	}

	order := &models.Order{
		SessionRef:    evt.SessionRef,
		Status:        evt.Status,
		PaymentStatus: evt.PaymentStatus,
		AmountTotal:   evt.AmountTotal,
	}
	if evt.Email != "" {
		email := evt.Email
		order.Email = &email
	}

	err = s.orders.Create(ctx, order)
	if errors.Is(err, apperrors.ErrDuplicateOrder) {
		log.Info("Lost fulfillment race to a concurrent worker, discarding event")
		metrics.FulfillmentDuplicates.Inc()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	metrics.OrdersFulfilled.Inc()

	var pending []external.UitPasItem
	issued := 0
	for _, item := range items {
		show, ok := s.engine.ShowByID(item.Metadata[external.MetadataShowID])
		if !ok {
			log.Error("Line item references unknown show, skipping",
				"show_id", item.Metadata[external.MetadataShowID], "label", item.Name)
			continue
		}
		uitpasNumber := item.Metadata[external.MetadataUitPasNumber]

		for i := 0; i < item.Quantity; i++ {
			code, err := s.issueCode(ctx, order.ID, item, show, uitpasNumber)
			if err != nil {
				return fmt.Errorf("failed to issue access code: %w", err)
			}
			issued++
			metrics.CodesIssued.Inc()

			if uitpasNumber != "" {
				pending = append(pending, external.UitPasItem{
					Number: uitpasNumber,
					Label:  item.Name,
					Code:   code.Code,
				})
			}

			renderReq := external.RenderTicketRequest{
				Code:       code.Code,
				ShowNumber: show.Number,
				Date:       show.Date,
				Time:       show.Time,
			}
			if err := s.artifacts.RenderTicket(ctx, renderReq); err != nil {
				log.Error("Failed to render ticket artifact", "code", code.Code, "error", err)
			}
		}
	}

	if order.Email != nil {
		link := fmt.Sprintf("%s/success?session_id=%s", s.publicURL, evt.SessionRef)
		if err := s.mailer.SendConfirmation(ctx, *order.Email, link); err != nil {
			log.Error("Failed to send confirmation mail", "error", err)
		}
	} else {
		log.Warn("Order has no customer email, skipping confirmation mail")
	}

	if len(pending) > 0 {
		customerEmail := ""
		if order.Email != nil {
			customerEmail = *order.Email
		}
		if err := s.mailer.SendVerificationRequest(ctx, evt.SessionRef, customerEmail, pending); err != nil {
			log.Error("Failed to send UiTPAS verification mail", "error", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.InvalidateSoldCounts(ctx); err != nil {
			log.Warn("Failed to invalidate sold count cache", "error", err)
		}
	}

	if s.publisher != nil {
		event := models.OrderFulfilledEvent{
			OrderID:       order.ID,
			SessionRef:    evt.SessionRef,
			CodesIssued:   issued,
			UitPasPending: len(pending),
			Timestamp:     time.Now(),
		}
		if err := s.publisher.Publish(models.SubjectOrderFulfilled, event); err != nil {
			log.Error("Failed to publish order fulfilled event", "error", err)
		}
	}

	log.Info("Order fulfilled", "order_id", order.ID, "codes_issued", issued, "uitpas_pending", len(pending))
	return nil
}

// Tickets returns the code strings for a session, empty while
// fulfillment has not finished yet.
func (s *FulfillmentService) Tickets(ctx context.Context, sessionRef string) ([]string, error) {
	codes, err := s.codes.ListBySessionRef(ctx, sessionRef)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(codes))
	for _, c := range codes {
		result = append(result, c.Code)
	}
	return result, nil
}

// issueCode inserts a fresh access code, rolling a new one on the rare
// collision with an existing code. UitPas codes start out invalid.
func (s *FulfillmentService) issueCode(ctx context.Context, orderID int64,
	item external.SessionLineItem, show pricing.Show, uitpasNumber string) (*models.AccessCode, error) {

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := &models.AccessCode{
			Code:     generateCode(),
			IsValid:  uitpasNumber == "",
			ShowID:   show.ID,
			Category: item.Metadata[external.MetadataCategory],
			Variant:  item.Metadata[external.MetadataVariant],
			Label:    item.Name,
			OrderID:  orderID,
		}
		if uitpasNumber != "" {
			number := uitpasNumber
			code.UitPasNumber = &number
		}

		err := s.codes.Create(ctx, code)
		if errors.Is(err, apperrors.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return code, nil
	}

	return nil, fmt.Errorf("failed to generate a unique access code after %d attempts", maxCodeAttempts)
}

func generateCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
