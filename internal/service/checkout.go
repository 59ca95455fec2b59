package service

import (
	"context"
	"fmt"

	"tsirk/internal/cache"
	apperrors "tsirk/internal/errors"
	"tsirk/internal/external"
	"tsirk/internal/logger"
	"tsirk/internal/models"
	"tsirk/internal/pricing"
)

// uitpasNumberLength is the fixed length of a UiTPAS card number.
const uitpasNumberLength = 13

// CheckoutService validates carts, guards show capacity and opens
// payment sessions. No order exists until the completion webhook fires.
type CheckoutService struct {
	engine    *pricing.Engine
	codes     CodeStore
	payments  PaymentProvider
	cache     *cache.ValkeyClient
	capacity  int
	publicURL string
}

func NewCheckoutService(engine *pricing.Engine, codes CodeStore, payments PaymentProvider,
	valkeyClient *cache.ValkeyClient, capacity int, publicURL string) *CheckoutService {
	return &CheckoutService{
		engine:    engine,
		codes:     codes,
		payments:  payments,
		cache:     valkeyClient,
		capacity:  capacity,
		publicURL: publicURL,
	}
}

// CreateSession validates the cart, checks capacity per show against
// already issued codes, prices the cart and opens a checkout session.
// Returns the provider session id the browser redirects to.
func (s *CheckoutService) CreateSession(ctx context.Context, req *models.CreateCheckoutRequest) (string, error) {
	cart, claims, err := s.validate(req)
	if err != nil {
		return "", err
	}

	// The gate charges every issued code against the cap, valid or
	// not. The first violating show rejects the whole cart.
	for _, show := range s.engine.Shows() {
		counts := cart[show.ID]
		requested := counts.Adult + counts.Child
		if requested == 0 {
			continue
		}

		sold, err := s.codes.CountByShow(ctx, show.ID)
		if err != nil {
			return "", fmt.Errorf("failed to check capacity for %s: %w", show.ID, err)
		}
		if sold+requested > s.capacity {
			remaining := s.capacity - sold
			if remaining < 0 {
				remaining = 0
			}
			return "", &apperrors.CapacityError{ShowName: show.Name, Requested: requested, Remaining: remaining}
		}
	}

	items, total := s.engine.Quote(cart, claims)

	lineItems := make([]external.SessionLineItem, 0, len(items))
	for _, item := range items {
		metadata := map[string]string{
			external.MetadataShowID:   item.ShowID,
			external.MetadataCategory: string(item.Category),
			external.MetadataVariant:  string(item.Variant),
		}
		if item.UitPasNumber != "" {
			metadata[external.MetadataUitPasNumber] = item.UitPasNumber
		}
		lineItems = append(lineItems, external.SessionLineItem{
			Name:       item.Label,
			UnitAmount: item.UnitAmount,
			Quantity:   item.Quantity,
			Metadata:   metadata,
		})
	}

	session, err := s.payments.CreateSession(ctx, external.CreateSessionRequest{
		Mode:       "payment",
		Currency:   "eur",
		LineItems:  lineItems,
		SuccessURL: s.publicURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.publicURL + "/",
	})
	if err != nil {
		return "", &apperrors.ProviderError{Err: err}
	}

	logger.WithContext(ctx).Info("Checkout session created",
		"session_ref", session.ID, "line_items", len(lineItems), "total_cents", total)

	return session.ID, nil
}

// Availability returns remaining seats per show for the sales page,
// served from the Valkey cache when one is configured.
func (s *CheckoutService) Availability(ctx context.Context) ([]models.ShowAvailability, error) {
	var counts map[string]int

	if s.cache != nil {
		cached, err := s.cache.GetSoldCounts(ctx)
		if err != nil {
			logger.WithContext(ctx).Warn("Sold count cache read failed", "error", err)
		} else if cached != nil {
			counts = cached
		}
	}

	if counts == nil {
		counts = map[string]int{}
		for _, show := range s.engine.Shows() {
			sold, err := s.codes.CountByShow(ctx, show.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to count sold seats for %s: %w", show.ID, err)
			}
			counts[show.ID] = sold
		}
		if s.cache != nil {
			if err := s.cache.SetSoldCounts(ctx, counts); err != nil {
				logger.WithContext(ctx).Warn("Sold count cache write failed", "error", err)
			}
		}
	}

	availability := make([]models.ShowAvailability, 0, len(s.engine.Shows()))
	for _, show := range s.engine.Shows() {
		sold := counts[show.ID]
		remaining := s.capacity - sold
		if remaining < 0 {
			remaining = 0
		}
		availability = append(availability, models.ShowAvailability{
			ShowID:    show.ID,
			Name:      show.Name,
			Date:      show.Date,
			Time:      show.Time,
			Capacity:  s.capacity,
			Sold:      sold,
			Remaining: remaining,
		})
	}

	return availability, nil
}

func (s *CheckoutService) validate(req *models.CreateCheckoutRequest) (map[string]pricing.Counts, []pricing.Claim, error) {
	cart := map[string]pricing.Counts{}
	requested := 0

	for showID, counts := range req.Shows {
		if _, ok := s.engine.ShowByID(showID); !ok {
			return nil, nil, apperrors.NewValidation("unknown show %q", showID)
		}
		if counts.Adult < 0 || counts.Child < 0 {
			return nil, nil, apperrors.NewValidation("invalid quantity for show %q", showID)
		}
		cart[showID] = pricing.Counts{Adult: counts.Adult, Child: counts.Child}
		requested += counts.Adult + counts.Child
	}

	if requested == 0 {
		return nil, nil, apperrors.NewValidation("no tickets selected")
	}

	claims := make([]pricing.Claim, 0, len(req.UitPas))
	seen := map[string]bool{}
	for _, claim := range req.UitPas {
		if len(claim.Number) != uitpasNumberLength || !allDigits(claim.Number) {
			return nil, nil, apperrors.NewValidation("invalid UiTPAS number %q", claim.Number)
		}
		if seen[claim.Number] {
			return nil, nil, apperrors.NewValidation("duplicate UiTPAS number %q", claim.Number)
		}
		seen[claim.Number] = true

		category := pricing.Category(claim.Category)
		if category != pricing.CategoryAdult && category != pricing.CategoryChild {
			return nil, nil, apperrors.NewValidation("invalid UiTPAS category %q", claim.Category)
		}
		claims = append(claims, pricing.Claim{Number: claim.Number, Category: category})
	}

	return cart, claims, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
