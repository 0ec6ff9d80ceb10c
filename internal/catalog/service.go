package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

const similarProductsLimit = 5

var (
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
	ErrEmptySearchQuery = errors.New("search query is required")
)

type Service interface {
	ListProducts(ctx context.Context, f Filter) (*Page, error)
	SearchProducts(ctx context.Context, query string, page, limit int) (*Page, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Detail, error)
	// GetProducts resolves ids to products, keeping the order of ids and
	// dropping the ones that no longer exist.
	GetProducts(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	AddRating(ctx context.Context, productID, userID uuid.UUID, rating int, review string) (*Product, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListProducts(ctx context.Context, f Filter) (*Page, error) {
	f.Normalize()

	products, total, err := s.repo.List(ctx, f)
	if err != nil {
		log.Error().Err(err).Str("category", string(f.Category)).Msg("service: failed to list products")
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}

	return newPage(products, total, f.Page, f.Limit), nil
}

func (s *service) SearchProducts(ctx context.Context, query string, page, limit int) (*Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptySearchQuery
	}
	page, limit = normalizePaging(page, limit)

	products, total, err := s.repo.Search(ctx, query, (page-1)*limit, limit)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("service: failed to search products")
		return nil, fmt.Errorf("service: failed to search products: %w", err)
	}

	return newPage(products, total, page, limit), nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*Detail, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			log.Warn().Stringer("product_id", id).Msg("service: product not found")
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to fetch product")
		return nil, fmt.Errorf("service: failed to fetch product: %w", err)
	}

	ratings, err := s.repo.ListRatings(ctx, id)
	if err != nil {
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to fetch product ratings")
		return nil, fmt.Errorf("service: failed to fetch product ratings: %w", err)
	}
	product.Ratings = ratings

	similar, err := s.repo.Similar(ctx, product, similarProductsLimit)
	if err != nil {
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to fetch similar products")
		return nil, fmt.Errorf("service: failed to fetch similar products: %w", err)
	}

	return &Detail{Product: product, SimilarProducts: similar}, nil
}

func (s *service) GetProducts(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	found, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Int("count", len(ids)).Msg("service: failed to fetch products by ids")
		return nil, fmt.Errorf("service: failed to fetch products: %w", err)
	}

	byID := make(map[uuid.UUID]Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	ordered := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func (s *service) AddRating(ctx context.Context, productID, userID uuid.UUID, rating int, review string) (*Product, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	product, err := s.repo.AddRating(ctx, &Rating{
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Review:    strings.TrimSpace(review),
	})
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", productID).Stringer("user_id", userID).Msg("service: failed to add rating")
		return nil, fmt.Errorf("service: failed to add rating: %w", err)
	}

	log.Info().
		Stringer("product_id", productID).
		Float64("average_rating", product.AverageRating).
		Int("total_reviews", product.TotalReviews).
		Msg("service: rating added")
	return product, nil
}
