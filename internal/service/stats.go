package service

import (
	"context"
	"fmt"

	"tsirk/internal/models"
)

// StatsService feeds the sales dashboard.
type StatsService struct {
	orders OrderStore
	codes  CodeStore
}

func NewStatsService(orders OrderStore, codes CodeStore) *StatsService {
	return &StatsService{orders: orders, codes: codes}
}

func (s *StatsService) Summary(ctx context.Context) (*models.StatsResponse, error) {
	orderCount, revenue, err := s.orders.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load order totals: %w", err)
	}

	totalCodes, redeemed, err := s.codes.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count access codes: %w", err)
	}

	perShow, err := s.codes.CountsByShowCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load per-show counts: %w", err)
	}

	pending, err := s.codes.CountPendingVerification(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending verifications: %w", err)
	}

	return &models.StatsResponse{
		TotalRevenueCents: revenue,
		TotalOrders:       orderCount,
		TotalCodes:        totalCodes,
		RedeemedCodes:     redeemed,
		PendingUitPas:     pending,
		PerShow:           perShow,
	}, nil
}
