package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tsirk/internal/database"
	apperrors "tsirk/internal/errors"
	"tsirk/internal/models"
)

type AccessCodeRepository struct {
	db *database.DB
}

func NewAccessCodeRepository(db *database.DB) *AccessCodeRepository {
	return &AccessCodeRepository{db: db}
}

const accessCodeColumns = `id, code, is_valid, redeemed_at, show_id, category, variant, label, uitpas_number, order_id, created_at`

func scanAccessCode(row interface{ Scan(...any) error }, c *models.AccessCode) error {
	return row.Scan(&c.ID, &c.Code, &c.IsValid, &c.RedeemedAt, &c.ShowID,
		&c.Category, &c.Variant, &c.Label, &c.UitPasNumber, &c.OrderID, &c.CreatedAt)
}

// Create inserts an access code and fills in ID and CreatedAt. A unique
// violation on the code column surfaces as ErrDuplicateCode so the
// caller can roll a fresh code.
func (r *AccessCodeRepository) Create(ctx context.Context, code *models.AccessCode) error {
	query := `
		INSERT INTO access_codes (code, is_valid, show_id, category, variant, label, uitpas_number, order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		code.Code, code.IsValid, code.ShowID, code.Category, code.Variant,
		code.Label, code.UitPasNumber, code.OrderID).
		Scan(&code.ID, &code.CreatedAt)
	if isUniqueViolation(err) {
		return apperrors.ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("failed to create access code: %w", err)
	}

	return nil
}

func (r *AccessCodeRepository) GetByCode(ctx context.Context, code string) (*models.AccessCode, error) {
	query := `SELECT ` + accessCodeColumns + ` FROM access_codes WHERE code = $1`

	result := &models.AccessCode{}
	err := scanAccessCode(r.db.QueryRowContext(ctx, query, code), result)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get access code: %w", err)
	}

	return result, nil
}

func (r *AccessCodeRepository) ListByOrder(ctx context.Context, orderID int64) ([]models.AccessCode, error) {
	query := `SELECT ` + accessCodeColumns + ` FROM access_codes WHERE order_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list access codes: %w", err)
	}
	defer rows.Close()

	var codes []models.AccessCode
	for rows.Next() {
		var c models.AccessCode
		if err := scanAccessCode(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan access code: %w", err)
		}
		codes = append(codes, c)
	}

	return codes, rows.Err()
}

func (r *AccessCodeRepository) ListBySessionRef(ctx context.Context, sessionRef string) ([]models.AccessCode, error) {
	query := `
		SELECT ac.id, ac.code, ac.is_valid, ac.redeemed_at, ac.show_id, ac.category,
		       ac.variant, ac.label, ac.uitpas_number, ac.order_id, ac.created_at
		FROM access_codes ac
		JOIN orders o ON o.id = ac.order_id
		WHERE o.session_ref = $1
		ORDER BY ac.id`

	rows, err := r.db.QueryContext(ctx, query, sessionRef)
	if err != nil {
		return nil, fmt.Errorf("failed to list access codes by session: %w", err)
	}
	defer rows.Close()

	var codes []models.AccessCode
	for rows.Next() {
		var c models.AccessCode
		if err := scanAccessCode(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan access code: %w", err)
		}
		codes = append(codes, c)
	}

	return codes, rows.Err()
}

// Redeem marks a code as used. The condition makes the check-in atomic
// and idempotent: only a valid, unredeemed code is updated, and the
// return value reports whether this call consumed it.
func (r *AccessCodeRepository) Redeem(ctx context.Context, code string) (bool, error) {
	query := `
		UPDATE access_codes
		SET redeemed_at = NOW()
		WHERE code = $1 AND is_valid = TRUE AND redeemed_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, code)
	if err != nil {
		return false, fmt.Errorf("failed to redeem access code: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read redeem result: %w", err)
	}

	return affected > 0, nil
}

// RedeemOrder checks in every remaining valid code of an order and
// returns how many were consumed.
func (r *AccessCodeRepository) RedeemOrder(ctx context.Context, orderID int64) (int, error) {
	query := `
		UPDATE access_codes
		SET redeemed_at = NOW()
		WHERE order_id = $1 AND is_valid = TRUE AND redeemed_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to redeem order codes: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read redeem result: %w", err)
	}

	return int(affected), nil
}

// SetValidity flips the validity flag, used by staff after verifying a
// UitPas number. Redemption timestamps are never touched.
func (r *AccessCodeRepository) SetValidity(ctx context.Context, code string, valid bool) (bool, error) {
	query := `UPDATE access_codes SET is_valid = $2 WHERE code = $1`

	result, err := r.db.ExecContext(ctx, query, code, valid)
	if err != nil {
		return false, fmt.Errorf("failed to update access code validity: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read validity update result: %w", err)
	}

	return affected > 0, nil
}

// CountByShow counts every issued code for a show regardless of
// validity or redemption; the capacity gate charges them all.
func (r *AccessCodeRepository) CountByShow(ctx context.Context, showID string) (int, error) {
	query := `SELECT COUNT(*) FROM access_codes WHERE show_id = $1`

	var count int
	if err := r.db.QueryRowContext(ctx, query, showID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count access codes: %w", err)
	}

	return count, nil
}

func (r *AccessCodeRepository) CountsByShowCategory(ctx context.Context) ([]models.CodeCount, error) {
	query := `
		SELECT show_id, category, COUNT(*)
		FROM access_codes
		GROUP BY show_id, category
		ORDER BY show_id, category`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count access codes per show: %w", err)
	}
	defer rows.Close()

	var counts []models.CodeCount
	for rows.Next() {
		var c models.CodeCount
		if err := rows.Scan(&c.ShowID, &c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan code count: %w", err)
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

// CountAll returns total issued and total redeemed codes.
func (r *AccessCodeRepository) CountAll(ctx context.Context) (int, int, error) {
	query := `SELECT COUNT(*), COUNT(redeemed_at) FROM access_codes`

	var total, redeemed int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total, &redeemed); err != nil {
		return 0, 0, fmt.Errorf("failed to count access codes: %w", err)
	}

	return total, redeemed, nil
}

func (r *AccessCodeRepository) CountPendingVerification(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM access_codes
		WHERE uitpas_number IS NOT NULL AND is_valid = FALSE`

	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending verifications: %w", err)
	}

	return count, nil
}

// ListPendingVerification returns UitPas codes still awaiting manual
// verification that were issued before the cutoff.
func (r *AccessCodeRepository) ListPendingVerification(ctx context.Context, olderThan time.Time) ([]models.AccessCode, error) {
	query := `SELECT ` + accessCodeColumns + `
		FROM access_codes
		WHERE uitpas_number IS NOT NULL AND is_valid = FALSE AND created_at < $1
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, olderThan)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending verifications: %w", err)
	}
	defer rows.Close()

	var codes []models.AccessCode
	for rows.Next() {
		var c models.AccessCode
		if err := scanAccessCode(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan access code: %w", err)
		}
		codes = append(codes, c)
	}

	return codes, rows.Err()
}
