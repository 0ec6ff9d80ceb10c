package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/baharserene/internal/catalog"
)

// RecentlyViewedLimit caps the recently viewed list per user.
const RecentlyViewedLimit = 20

// ProductResolver returns the products that still exist, in the order asked for.
type ProductResolver interface {
	GetProducts(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error)
}

type Service interface {
	Add(ctx context.Context, userID, productID uuid.UUID) ([]uuid.UUID, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) ([]uuid.UUID, error)
	List(ctx context.Context, userID uuid.UUID) ([]catalog.Product, error)
	TrackView(ctx context.Context, userID, productID uuid.UUID) error
	RecentlyViewed(ctx context.Context, userID uuid.UUID) ([]catalog.Product, error)
}

type service struct {
	repo     Repository
	products ProductResolver
	now      func() time.Time
}

func NewService(repo Repository, products ProductResolver) Service {
	return &service{repo: repo, products: products, now: time.Now}
}

func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) ([]uuid.UUID, error) {
	if err := s.repo.Add(ctx, userID, productID); err != nil {
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrAlreadyInWishlist) {
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: failed to add wishlist item")
		return nil, fmt.Errorf("service: failed to add wishlist item: %w", err)
	}
	return s.ids(ctx, userID)
}

func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) ([]uuid.UUID, error) {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: failed to remove wishlist item")
		return nil, fmt.Errorf("service: failed to remove wishlist item: %w", err)
	}
	return s.ids(ctx, userID)
}

func (s *service) ids(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.repo.ProductIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list wishlist: %w", err)
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]catalog.Product, error) {
	ids, err := s.ids(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, ids)
}

func (s *service) TrackView(ctx context.Context, userID, productID uuid.UUID) error {
	err := s.repo.TrackView(ctx, userID, productID, s.now().UTC(), RecentlyViewedLimit)
	if err == nil || errors.Is(err, ErrProductNotFound) {
		return err
	}
	log.Error().Err(err).Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: failed to track product view")
	return fmt.Errorf("service: failed to track product view: %w", err)
}

func (s *service) RecentlyViewed(ctx context.Context, userID uuid.UUID) ([]catalog.Product, error) {
	ids, err := s.repo.RecentIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list recently viewed: %w", err)
	}
	return s.resolve(ctx, ids)
}

func (s *service) resolve(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service: failed to resolve products: %w", err)
	}
	return products, nil
}
