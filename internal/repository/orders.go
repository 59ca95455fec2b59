package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tsirk/internal/database"
	apperrors "tsirk/internal/errors"
	"tsirk/internal/models"
)

type OrderRepository struct {
	db *database.DB
}

func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts an order and fills in ID and CreatedAt. A unique
// violation on session_ref means another worker already fulfilled this
// session; it surfaces as ErrDuplicateOrder.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (session_ref, status, payment_status, email, amount_total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		order.SessionRef, order.Status, order.PaymentStatus, order.Email, order.AmountTotal).
		Scan(&order.ID, &order.CreatedAt)
	if isUniqueViolation(err) {
		return apperrors.ErrDuplicateOrder
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func (r *OrderRepository) GetBySessionRef(ctx context.Context, sessionRef string) (*models.Order, error) {
	query := `
		SELECT id, session_ref, status, payment_status, email, amount_total, created_at
		FROM orders
		WHERE session_ref = $1`

	order := &models.Order{}
	err := r.db.QueryRowContext(ctx, query, sessionRef).Scan(
		&order.ID, &order.SessionRef, &order.Status, &order.PaymentStatus,
		&order.Email, &order.AmountTotal, &order.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order by session ref: %w", err)
	}

	return order, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	query := `
		SELECT id, session_ref, status, payment_status, email, amount_total, created_at
		FROM orders
		WHERE id = $1`

	order := &models.Order{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.SessionRef, &order.Status, &order.PaymentStatus,
		&order.Email, &order.AmountTotal, &order.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// Totals returns the order count and summed revenue in cents.
func (r *OrderRepository) Totals(ctx context.Context) (int, int64, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(amount_total), 0) FROM orders`

	var count int
	var revenue int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&count, &revenue); err != nil {
		return 0, 0, fmt.Errorf("failed to get order totals: %w", err)
	}

	return count, revenue, nil
}
