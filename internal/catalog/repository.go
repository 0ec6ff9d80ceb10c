package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/baharserene/internal/db"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// GetByIDs returns the products that exist, in no particular order.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	List(ctx context.Context, f Filter) ([]Product, int, error)
	Search(ctx context.Context, query string, offset, limit int) ([]Product, int, error)
	Similar(ctx context.Context, p *Product, limit int) ([]Product, error)
	ListRatings(ctx context.Context, productID uuid.UUID) ([]Rating, error)
	AddRating(ctx context.Context, rating *Rating) (*Product, error)
}

const productColumns = `
	id, name, description, price, original_price, category, images, stock, sku,
	difficulty_level, care_instructions, climate_suitability, COALESCE(size, ''), plant_type,
	average_rating::float8, total_reviews, is_active, created_at, updated_at`

const searchDocument = `to_tsvector('english', name || ' ' || description || ' ' || plant_type)`

var sortColumns = map[SortField]string{
	SortCreatedAt:     "created_at",
	SortPrice:         "price",
	SortAverageRating: "average_rating",
	SortName:          "name",
}

type postgresRepository struct {
	db db.DB
}

func NewRepository(db db.DB) Repository {
	return &postgresRepository{db: db}
}

func scanProduct(row pgx.Row, p *Product) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.OriginalPrice,
		&p.Category,
		&p.Images,
		&p.Stock,
		&p.SKU,
		&p.DifficultyLevel,
		&p.CareInstructions,
		&p.ClimateSuitability,
		&p.Size,
		&p.PlantType,
		&p.AverageRating,
		&p.TotalReviews,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *postgresRepository) Create(ctx context.Context, p *Product) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate product ID: %w", err)
		}
		p.ID = id
	}
	if p.Images == nil {
		p.Images = []Image{}
	}
	if p.ClimateSuitability == nil {
		p.ClimateSuitability = []string{}
	}
	if p.DifficultyLevel == "" {
		p.DifficultyLevel = DifficultyModerate
	}

	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	query := `
		INSERT INTO products (id, name, description, price, original_price, category, images, stock, sku,
		                      difficulty_level, care_instructions, climate_suitability, size, plant_type,
		                      is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), $14, $15, $16, $17)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.OriginalPrice,
		string(p.Category),
		p.Images,
		p.Stock,
		p.SKU,
		string(p.DifficultyLevel),
		p.CareInstructions,
		p.ClimateSuitability,
		string(p.Size),
		p.PlantType,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert product %q: %w", p.Name, err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p Product
	if err := scanProduct(r.db.QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by id %s: %w", id, err)
	}
	return &p, nil
}

func (r *postgresRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products by ids: %w", err)
	}

	products, err := collectProducts(rows)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan products by ids: %w", err)
	}
	return products, nil
}

func (r *postgresRepository) List(ctx context.Context, f Filter) ([]Product, int, error) {
	where := []string{"is_active"}
	args := make([]any, 0, 7)

	addArg := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if f.Category != "" {
		addArg("category = $%d", string(f.Category))
	}
	if f.MinPrice != nil {
		addArg("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		addArg("price <= $%d", *f.MaxPrice)
	}
	if f.Difficulty != "" {
		addArg("difficulty_level = $%d", string(f.Difficulty))
	}
	if f.Size != "" {
		addArg("size = $%d", string(f.Size))
	}

	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count products: %w", err)
	}

	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = sortColumns[SortCreatedAt]
	}
	direction := "DESC"
	if f.Ascending {
		direction = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		productColumns, whereSQL, column, direction, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query products: %w", err)
	}

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to scan products: %w", err)
	}
	return products, total, nil
}

func (r *postgresRepository) Search(ctx context.Context, text string, offset, limit int) ([]Product, int, error) {
	match := searchDocument + ` @@ plainto_tsquery('english', $1)`

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE is_active AND `+match, text).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count search results for %q: %w", text, err)
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE is_active AND ` + match + `
		ORDER BY ts_rank(` + searchDocument + `, plainto_tsquery('english', $1)) DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, text, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to search products for %q: %w", text, err)
	}

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to scan search results for %q: %w", text, err)
	}
	return products, total, nil
}

func (r *postgresRepository) Similar(ctx context.Context, p *Product, limit int) ([]Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE category = $1 AND id <> $2 AND is_active
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, string(p.Category), p.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query similar products for %s: %w", p.ID, err)
	}

	products, err := collectProducts(rows)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan similar products for %s: %w", p.ID, err)
	}
	return products, nil
}

func (r *postgresRepository) ListRatings(ctx context.Context, productID uuid.UUID) ([]Rating, error) {
	query := `
		SELECT id, product_id, user_id, rating, review, created_at
		FROM product_ratings
		WHERE product_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query ratings for product %s: %w", productID, err)
	}
	defer rows.Close()

	ratings := make([]Rating, 0)
	for rows.Next() {
		var rt Rating
		if err := rows.Scan(&rt.ID, &rt.ProductID, &rt.UserID, &rt.Rating, &rt.Review, &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan rating for product %s: %w", productID, err)
		}
		ratings = append(ratings, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating ratings for product %s: %w", productID, err)
	}
	return ratings, nil
}

// AddRating stores the rating and refreshes the product aggregate in one
// transaction. The product row is locked first so concurrent submissions
// cannot compute the mean from a stale set.
func (r *postgresRepository) AddRating(ctx context.Context, rating *Rating) (product *Product, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Stringer("product_id", rating.ProductID).Msg("repository: failed to rollback rating transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			product = nil
			err = fmt.Errorf("repository: failed to commit rating transaction: %w", commitErr)
		}
	}()

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, rating.ProductID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to lock product %s: %w", rating.ProductID, err)
	}

	if rating.ID == uuid.Nil {
		if rating.ID, err = uuid.NewV4(); err != nil {
			return nil, fmt.Errorf("repository: failed to generate rating ID: %w", err)
		}
	}
	rating.CreatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx,
		`INSERT INTO product_ratings (id, product_id, user_id, rating, review, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rating.ID, rating.ProductID, rating.UserID, rating.Rating, rating.Review, rating.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to insert rating for product %s: %w", rating.ProductID, err)
	}

	rows, err := tx.Query(ctx, `SELECT rating FROM product_ratings WHERE product_id = $1`, rating.ProductID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query ratings for product %s: %w", rating.ProductID, err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("repository: failed to collect ratings for product %s: %w", rating.ProductID, err)
	}

	query := `
		UPDATE products
		SET average_rating = $1, total_reviews = $2, updated_at = now()
		WHERE id = $3
		RETURNING ` + productColumns

	var p Product
	if err = scanProduct(tx.QueryRow(ctx, query, AverageRating(values), len(values), rating.ProductID), &p); err != nil {
		return nil, fmt.Errorf("repository: failed to update rating aggregate for product %s: %w", rating.ProductID, err)
	}

	return &p, nil
}

// DecrementStock subtracts qty only while enough stock remains. Zero rows
// affected means the product is missing or short, reported as
// ErrInsufficientStock. Pass a pgx.Tx to join a larger unit of work.
func DecrementStock(ctx context.Context, q db.DB, id uuid.UUID, qty int) error {
	cmdTag, err := q.Exec(ctx,
		`UPDATE products SET stock = stock - $1, updated_at = now() WHERE id = $2 AND stock >= $1`,
		qty, id)
	if err != nil {
		return fmt.Errorf("repository: failed to decrement stock for product %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}
