package wishlist

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
	"github.com/vasiliy-maslov/baharserene/internal/db"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrAlreadyInWishlist = errors.New("product already in wishlist")
)

type Repository interface {
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	// ProductIDs lists wishlisted products, oldest first.
	ProductIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	// TrackView records a view at the given time and drops everything past
	// the keep most recent entries.
	TrackView(ctx context.Context, userID, productID uuid.UUID, at time.Time, keep int) error
	// RecentIDs lists viewed products, newest first.
	RecentIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type postgresRepository struct {
	db db.DB
}

func NewRepository(db db.DB) Repository {
	return &postgresRepository{db: db}
}

// classify turns constraint violations on the product reference into domain errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return ErrAlreadyInWishlist
	case pgerrcode.ForeignKeyViolation:
		if pgErr.ConstraintName == "wishlist_items_product_id_fkey" || pgErr.ConstraintName == "recently_viewed_product_id_fkey" {
			return ErrProductNotFound
		}
	}
	return nil
}

func (r *postgresRepository) Add(ctx context.Context, userID, productID uuid.UUID) error {
	query := `INSERT INTO wishlist_items (user_id, product_id, created_at) VALUES ($1, $2, $3)`

	if _, err := r.db.Exec(ctx, query, userID, productID, time.Now().UTC()); err != nil {
		if domainErr := classify(err); domainErr != nil {
			return domainErr
		}
		return fmt.Errorf("repository: failed to insert wishlist item: %w", err)
	}
	return nil
}

func (r *postgresRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	query := `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`

	if _, err := r.db.Exec(ctx, query, userID, productID); err != nil {
		return fmt.Errorf("repository: failed to delete wishlist item: %w", err)
	}
	return nil
}

func (r *postgresRepository) ProductIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT product_id FROM wishlist_items WHERE user_id = $1 ORDER BY created_at, product_id`
	return r.collectIDs(ctx, query, userID)
}

func (r *postgresRepository) RecentIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT product_id FROM recently_viewed WHERE user_id = $1 ORDER BY viewed_at DESC, product_id`
	return r.collectIDs(ctx, query, userID)
}

func (r *postgresRepository) collectIDs(ctx context.Context, query string, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query product ids for user %s: %w", userID, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan product ids for user %s: %w", userID, err)
	}
	return ids, nil
}

func (r *postgresRepository) TrackView(ctx context.Context, userID, productID uuid.UUID, at time.Time, keep int) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("user_id", userID).Msg("repository: failed to rollback transaction")
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	upsert := `
		INSERT INTO recently_viewed (user_id, product_id, viewed_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO UPDATE SET viewed_at = EXCLUDED.viewed_at
	`
	if _, err = tx.Exec(ctx, upsert, userID, productID, at); err != nil {
		if domainErr := classify(err); domainErr != nil {
			return domainErr
		}
		return fmt.Errorf("repository: failed to upsert recently viewed: %w", err)
	}

	trim := `
		DELETE FROM recently_viewed
		WHERE user_id = $1 AND product_id NOT IN (
			SELECT product_id FROM recently_viewed
			WHERE user_id = $1
			ORDER BY viewed_at DESC, product_id
			LIMIT $2
		)
	`
	if _, err = tx.Exec(ctx, trim, userID, keep); err != nil {
		return fmt.Errorf("repository: failed to trim recently viewed: %w", err)
	}

	return nil
}
