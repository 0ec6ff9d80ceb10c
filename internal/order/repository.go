package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/baharserene/internal/catalog"
	"github.com/vasiliy-maslov/baharserene/internal/coupon"
	"github.com/vasiliy-maslov/baharserene/internal/db"
)

type Repository interface {
	// CreateOrder persists the order and its items, decrements stock for each
	// line and, when couponID is set, bumps the coupon usage counter. All of
	// it commits or rolls back together.
	CreateOrder(ctx context.Context, o *Order, couponID *uuid.UUID) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, upd StatusUpdate) error
}

const orderColumns = `
	id, order_number, user_id, subtotal, coupon_code, discount_amount, delivery_charge, total_amount,
	shipping_address, payment_method, payment_status, order_status, tracking_number, notes, created_at, updated_at`

const itemColumns = `
	oi.order_id, oi.product_id, oi.product_name, oi.quantity, oi.price, oi.subtotal,
	p.id, p.name, p.price, p.images->0->>'url', p.category`

type postgresRepository struct {
	db db.DB
}

func NewRepository(db db.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateOrder(ctx context.Context, o *Order, couponID *uuid.UUID) (err error) {
	if o.ID == uuid.Nil {
		if o.ID, err = uuid.NewV4(); err != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", err)
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Stringer("order_id_attempted", o.ID).Msg("Panic recovered during CreateOrder, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id_attempted", o.ID).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			log.Warn().Err(err).Stringer("order_id_attempted", o.ID).Msg("Transaction for CreateOrder failed, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id_attempted", o.ID).Msg("Failed to rollback transaction")
			}
		} else if commitErr := tx.Commit(ctx); commitErr != nil {
			log.Error().Err(commitErr).Stringer("order_id", o.ID).Msg("Failed to commit transaction")
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
		}
	}()

	now := time.Now().UTC()

	queryOrder := `
		INSERT INTO orders (id, order_number, user_id, subtotal, coupon_code, discount_amount, delivery_charge,
		                    total_amount, shipping_address, payment_method, payment_status, order_status,
		                    tracking_number, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = tx.Exec(ctx, queryOrder,
		o.ID,
		o.OrderNumber,
		o.UserID,
		o.Subtotal,
		o.DiscountApplied.CouponCode,
		o.DiscountApplied.DiscountAmount,
		o.DeliveryCharge,
		o.TotalAmount,
		o.ShippingAddress,
		string(o.PaymentMethod),
		string(o.PaymentStatus),
		string(o.OrderStatus),
		o.TrackingNumber,
		o.Notes,
		now,
		now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("repository: %w: %s", ErrDuplicateOrderNumber, o.OrderNumber)
		}
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	queryItem := `
		INSERT INTO order_items (order_id, position, product_id, product_name, quantity, price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, item := range o.Items {
		_, err = tx.Exec(ctx, queryItem, o.ID, i, item.ProductID, item.ProductName, item.Quantity, item.Price, item.Subtotal)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}
	}

	for _, item := range o.Items {
		if err = catalog.DecrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, catalog.ErrInsufficientStock) {
				return &InsufficientStockError{ProductID: item.ProductID, ProductName: item.ProductName}
			}
			return err
		}
	}

	if couponID != nil {
		if err = coupon.IncrementUsage(ctx, tx, *couponID); err != nil {
			return err
		}
	}

	o.CreatedAt = now
	o.UpdatedAt = now
	return nil
}

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.Subtotal,
		&o.DiscountApplied.CouponCode,
		&o.DiscountApplied.DiscountAmount,
		&o.DeliveryCharge,
		&o.TotalAmount,
		&o.ShippingAddress,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.OrderStatus,
		&o.TrackingNumber,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
}

// scanItem reads a line item joined with the live product, which may have
// been deleted since the order was placed.
func scanItem(row pgx.Row) (uuid.UUID, LineItem, error) {
	var (
		orderID   uuid.UUID
		item      LineItem
		pID       *uuid.UUID
		pName     *string
		pPrice    *int64
		pImage    *string
		pCategory *string
	)
	err := row.Scan(
		&orderID,
		&item.ProductID,
		&item.ProductName,
		&item.Quantity,
		&item.Price,
		&item.Subtotal,
		&pID,
		&pName,
		&pPrice,
		&pImage,
		&pCategory,
	)
	if err != nil {
		return uuid.Nil, LineItem{}, err
	}

	if pID != nil {
		item.Product = &ProductSummary{ID: *pID, Name: *pName, Price: *pPrice, Category: *pCategory}
		if pImage != nil {
			item.Product.ImageURL = *pImage
		}
	}
	return orderID, item, nil
}

func (r *postgresRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	queryOrder := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var o Order
	if err := scanOrder(r.db.QueryRow(ctx, queryOrder, orderID), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", orderID, err)
	}

	queryItems := `
		SELECT ` + itemColumns + `
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.position
	`
	rows, err := r.db.Query(ctx, queryItems, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order id %s: %w", orderID, err)
	}
	defer rows.Close()

	o.Items = make([]LineItem, 0)
	for rows.Next() {
		_, item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order id %s: %w", orderID, err)
		}
		o.Items = append(o.Items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order id %s: %w", orderID, err)
	}

	return &o, nil
}

func (r *postgresRepository) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	userOrdersQuery := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`
	orderRows, err := r.db.Query(ctx, userOrdersQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user id %s: %w", userID, err)
	}
	defer orderRows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for orderRows.Next() {
		var o Order
		if err := scanOrder(orderRows, &o); err != nil {
			return nil, fmt.Errorf("repository: failed scan order for user id %s: %w", userID, err)
		}
		o.Items = make([]LineItem, 0)
		ordersMap[o.ID] = &o
		orderIDs = append(orderIDs, o.ID)
	}
	if err = orderRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating orders for user id %s: %w", userID, err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	userOrderItemsQuery := `
		SELECT ` + itemColumns + `
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.position
	`
	itemRows, err := r.db.Query(ctx, userOrderItemsQuery, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for user id %s: %w", userID, err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		orderID, item, err := scanItem(itemRows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for user id %s: %w", userID, err)
		}
		if o, ok := ordersMap[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating order items by user id %s: %w", userID, err)
	}

	result := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		result = append(result, *ordersMap[id])
	}
	return result, nil
}

func (r *postgresRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, upd StatusUpdate) error {
	var orderStatus, paymentStatus *string
	if upd.OrderStatus != nil {
		s := string(*upd.OrderStatus)
		orderStatus = &s
	}
	if upd.PaymentStatus != nil {
		s := string(*upd.PaymentStatus)
		paymentStatus = &s
	}

	query := `
		UPDATE orders
		SET order_status = COALESCE($1, order_status),
		    payment_status = COALESCE($2, payment_status),
		    tracking_number = COALESCE($3, tracking_number),
		    updated_at = $4
		WHERE id = $5
	`
	cmdTag, err := r.db.Exec(ctx, query, orderStatus, paymentStatus, upd.TrackingNumber, time.Now().UTC(), id)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", id).Msg("repository: failed to update order status")
		return fmt.Errorf("repository: failed to update order status %s: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		log.Warn().Stringer("order_id", id).Msg("repository: order not found for status update")
		return ErrOrderNotFound
	}
	return nil
}
