package service

import (
	"context"
	"fmt"
	"strings"

	apperrors "tsirk/internal/errors"
	"tsirk/internal/metrics"
	"tsirk/internal/models"
)

// RedemptionService resolves door scans to booking groups and performs
// idempotent check-ins.
type RedemptionService struct {
	codes  CodeStore
	orders OrderStore
}

func NewRedemptionService(codes CodeStore, orders OrderStore) *RedemptionService {
	return &RedemptionService{codes: codes, orders: orders}
}

// NormalizeScan reduces whatever the scanner read to the final access
// code token: a bare code, a ticket URL path, or a URL with an id=
// query parameter all resolve to the same 6 upper-case characters.
func NormalizeScan(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.LastIndex(s, "id="); i >= 0 {
		s = s[i+len("id="):]
	}
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.IndexAny(s, "?&"); i >= 0 {
		s = s[:i]
	}
	if len(s) > codeLength {
		s = s[len(s)-codeLength:]
	}
	return strings.ToUpper(s)
}

// Lookup resolves a scan to the scanned ticket plus all of its order
// siblings, so one scan shows the door staff the whole booking.
func (s *RedemptionService) Lookup(ctx context.Context, raw string) (*models.GroupView, error) {
	code, err := s.find(ctx, raw)
	if err != nil {
		return nil, err
	}

	siblings, err := s.codes.ListByOrder(ctx, code.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking group: %w", err)
	}

	view := &models.GroupView{
		Scanned: toGroupTicket(code),
		OrderID: code.OrderID,
	}

	order, err := s.orders.GetByID(ctx, code.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order != nil && order.Email != nil {
		view.Email = *order.Email
	}

	for i := range siblings {
		ticket := toGroupTicket(&siblings[i])
		view.Tickets = append(view.Tickets, ticket)
		if ticket.Status == models.TicketStatusValid {
			view.ValidCount++
		}
	}

	return view, nil
}

// CheckInOne redeems a single code. Scanning a used or invalid code is
// a no-op with an explanatory message, never an error: re-scans at the
// door must not change anything.
func (s *RedemptionService) CheckInOne(ctx context.Context, raw string) (*models.CheckinResult, error) {
	code, err := s.find(ctx, raw)
	if err != nil {
		return nil, err
	}

	redeemed, err := s.codes.Redeem(ctx, code.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to check in ticket: %w", err)
	}
	if redeemed {
		metrics.CodesRedeemed.Inc()
		return &models.CheckinResult{Message: "Ticket checked in", CheckedIn: 1}, nil
	}

	if !code.IsValid {
		return &models.CheckinResult{Message: "Ticket is not valid"}, nil
	}
	return &models.CheckinResult{Message: "Ticket was already used"}, nil
}

// CheckInGroup redeems every remaining valid code in the scanned
// ticket's order and reports how many were consumed.
func (s *RedemptionService) CheckInGroup(ctx context.Context, raw string) (*models.CheckinResult, error) {
	code, err := s.find(ctx, raw)
	if err != nil {
		return nil, err
	}

	checkedIn, err := s.codes.RedeemOrder(ctx, code.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check in booking group: %w", err)
	}
	metrics.CodesRedeemed.Add(float64(checkedIn))

	return &models.CheckinResult{
		Message:   fmt.Sprintf("%d tickets checked in", checkedIn),
		CheckedIn: checkedIn,
	}, nil
}

// SetValidity is the administrative override used after manual UiTPAS
// verification.
func (s *RedemptionService) SetValidity(ctx context.Context, raw string, valid bool) error {
	token := NormalizeScan(raw)
	updated, err := s.codes.SetValidity(ctx, token, valid)
	if err != nil {
		return fmt.Errorf("failed to update code validity: %w", err)
	}
	if !updated {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *RedemptionService) find(ctx context.Context, raw string) (*models.AccessCode, error) {
	token := NormalizeScan(raw)
	if token == "" {
		return nil, apperrors.ErrNotFound
	}

	code, err := s.codes.GetByCode(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up access code: %w", err)
	}
	if code == nil {
		return nil, apperrors.ErrNotFound
	}

	return code, nil
}

func toGroupTicket(c *models.AccessCode) models.GroupTicket {
	ticket := models.GroupTicket{
		Code:       c.Code,
		Label:      c.Label,
		Status:     ticketStatus(c),
		RedeemedAt: c.RedeemedAt,
	}
	if c.UitPasNumber != nil {
		ticket.UitPasNumber = *c.UitPasNumber
	}
	return ticket
}

func ticketStatus(c *models.AccessCode) string {
	if !c.IsValid {
		return models.TicketStatusInvalid
	}
	if c.RedeemedAt != nil {
		return models.TicketStatusUsed
	}
	return models.TicketStatusValid
}
