package catalog

import (
	"math"
	"time"

	"github.com/gofrs/uuid"
)

type Category string

const (
	CategoryIndoor    Category = "Indoor Plants"
	CategoryOutdoor   Category = "Outdoor Plants"
	CategoryFlowering Category = "Flowering Plants"
	CategorySeedlings Category = "Seedlings"
	CategorySeedsPack Category = "Seeds Pack"
	CategoryPots      Category = "Pots & Planters"
	CategorySoilTools Category = "Soil, Fertilizer, Tools"
)

var categories = map[Category]bool{
	CategoryIndoor:    true,
	CategoryOutdoor:   true,
	CategoryFlowering: true,
	CategorySeedlings: true,
	CategorySeedsPack: true,
	CategoryPots:      true,
	CategorySoilTools: true,
}

func (c Category) Valid() bool { return categories[c] }

type Difficulty string

const (
	DifficultyBeginner Difficulty = "Beginner-friendly"
	DifficultyModerate Difficulty = "Moderate"
	DifficultyAdvanced Difficulty = "Advanced"
)

type Size string

const (
	SizeSmall  Size = "Small"
	SizeMedium Size = "Medium"
	SizeLarge  Size = "Large"
)

type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

type CareInstructions struct {
	Sunlight    string `json:"sunlight,omitempty"`
	Water       string `json:"water,omitempty"`
	Soil        string `json:"soil,omitempty"`
	Temperature string `json:"temperature,omitempty"`
	Humidity    string `json:"humidity,omitempty"`
	Fertilizer  string `json:"fertilizer,omitempty"`
}

type Product struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	Description        string           `json:"description"`
	Price              int64            `json:"price"`
	OriginalPrice      *int64           `json:"original_price,omitempty"`
	Category           Category         `json:"category"`
	Images             []Image          `json:"images"`
	Stock              int64            `json:"stock"`
	SKU                *string          `json:"sku,omitempty"`
	DifficultyLevel    Difficulty       `json:"difficulty_level"`
	CareInstructions   CareInstructions `json:"care_instructions"`
	ClimateSuitability []string         `json:"climate_suitability"`
	Size               Size             `json:"size,omitempty"`
	PlantType          string           `json:"plant_type,omitempty"`
	AverageRating      float64          `json:"average_rating"`
	TotalReviews       int              `json:"total_reviews"`
	IsActive           bool             `json:"is_active"`
	Ratings            []Rating         `json:"ratings,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// PrimaryImage is the first image URL, or "" when the product has none.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

type Rating struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AverageRating is the arithmetic mean rounded to one decimal place.
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return math.Round(float64(sum)/float64(len(ratings))*10) / 10
}

type SortField string

const (
	SortCreatedAt     SortField = "created_at"
	SortPrice         SortField = "price"
	SortAverageRating SortField = "average_rating"
	SortName          SortField = "name"
)

var sortFields = map[SortField]bool{
	SortCreatedAt:     true,
	SortPrice:         true,
	SortAverageRating: true,
	SortName:          true,
}

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

// Filter selects active products for listing. Zero values mean "any".
type Filter struct {
	Category   Category
	MinPrice   *int64
	MaxPrice   *int64
	Difficulty Difficulty
	Size       Size
	SortBy     SortField
	Ascending  bool
	Page       int
	Limit      int
}

// Normalize fills defaults and clamps paging so the filter is safe to hand
// to the repository.
func (f *Filter) Normalize() {
	if !sortFields[f.SortBy] {
		f.SortBy = SortCreatedAt
	}
	f.Page, f.Limit = normalizePaging(f.Page, f.Limit)
}

func (f *Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return page, limit
}

type Pagination struct {
	CurrentPage   int `json:"current_page"`
	TotalPages    int `json:"total_pages"`
	TotalProducts int `json:"total_products"`
	Limit         int `json:"limit"`
}

type Page struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

func newPage(products []Product, total, page, limit int) *Page {
	if products == nil {
		products = []Product{}
	}
	return &Page{
		Products: products,
		Pagination: Pagination{
			CurrentPage:   page,
			TotalPages:    (total + limit - 1) / limit,
			TotalProducts: total,
			Limit:         limit,
		},
	}
}

// Detail is a product with its ratings and a few siblings from the same category.
type Detail struct {
	Product         *Product  `json:"product"`
	SimilarProducts []Product `json:"similar_products"`
}
