package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/baharserene/internal/db"
)

var ErrCouponNotFound = errors.New("coupon not found")

type Repository interface {
	// FindActive returns ErrCouponNotFound when the code is unknown, inactive
	// or outside its window at the given instant.
	FindActive(ctx context.Context, code string, at time.Time) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
}

type postgresRepository struct {
	db db.DB
}

func NewRepository(db db.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) FindActive(ctx context.Context, code string, at time.Time) (*Coupon, error) {
	query := `
		SELECT id, code, discount_type, discount_value, max_discount, min_order_amount,
		       start_date, end_date, is_active, used_count, created_at, updated_at
		FROM coupons
		WHERE code = $1 AND is_active AND start_date <= $2 AND end_date >= $2
	`

	var c Coupon
	err := r.db.QueryRow(ctx, query, NormalizeCode(code), at).Scan(
		&c.ID,
		&c.Code,
		&c.DiscountType,
		&c.DiscountValue,
		&c.MaxDiscount,
		&c.MinOrderAmount,
		&c.StartDate,
		&c.EndDate,
		&c.IsActive,
		&c.UsedCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("repository: failed to select coupon %q: %w", code, err)
	}

	return &c, nil
}

func (r *postgresRepository) Create(ctx context.Context, c *Coupon) error {
	if c.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate coupon ID: %w", err)
		}
		c.ID = id
	}
	c.Code = NormalizeCode(c.Code)

	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	query := `
		INSERT INTO coupons (id, code, discount_type, discount_value, max_discount, min_order_amount,
		                     start_date, end_date, is_active, used_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		c.ID,
		c.Code,
		string(c.DiscountType),
		c.DiscountValue,
		c.MaxDiscount,
		c.MinOrderAmount,
		c.StartDate,
		c.EndDate,
		c.IsActive,
		c.UsedCount,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert coupon %s: %w", c.Code, err)
	}
	return nil
}

// IncrementUsage bumps used_count in place. Pass a pgx.Tx to make it part of
// a larger unit of work.
func IncrementUsage(ctx context.Context, q db.DB, id uuid.UUID) error {
	cmdTag, err := q.Exec(ctx, `UPDATE coupons SET used_count = used_count + 1, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to increment coupon usage %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}
	return nil
}
