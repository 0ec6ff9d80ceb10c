package cart

import "github.com/gofrs/uuid"

type Item struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Quantity  int       `json:"quantity"`
	ImageURL  string    `json:"image_url,omitempty"`
}

type Cart struct {
	Items     []Item `json:"items"`
	Total     int64  `json:"total"`
	ItemCount int    `json:"item_count"`
}

func newCart(items []Item) *Cart {
	c := &Cart{Items: items}
	if c.Items == nil {
		c.Items = []Item{}
	}
	for _, it := range c.Items {
		c.Total += it.Price * int64(it.Quantity)
		c.ItemCount += it.Quantity
	}
	return c
}
