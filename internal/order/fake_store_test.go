package order_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/baharserene/internal/catalog"
	"github.com/vasiliy-maslov/baharserene/internal/coupon"
	"github.com/vasiliy-maslov/baharserene/internal/order"
)

// memStore is an in-memory stand-in for the catalog, coupon and order
// tables. CreateOrder applies all of its writes or none, like the Postgres
// transaction.
type memStore struct {
	mu       sync.Mutex
	products map[uuid.UUID]*catalog.Product
	coupons  map[string]*coupon.Coupon
	orders   []*order.Order
	seq      int

	createErr error
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[uuid.UUID]*catalog.Product),
		coupons:  make(map[string]*coupon.Coupon),
	}
}

func (s *memStore) addProduct(name string, price, stock int64) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.Must(uuid.NewV4())
	s.products[id] = &catalog.Product{ID: id, Name: name, Price: price, Stock: stock, IsActive: true}
	return id
}

func (s *memStore) addCoupon(c coupon.Coupon) *coupon.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = uuid.Must(uuid.NewV4())
	c.Code = coupon.NormalizeCode(c.Code)
	s.coupons[c.Code] = &c
	return &c
}

func (s *memStore) stock(id uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) usedCount(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coupons[code].UsedCount
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) FindActive(_ context.Context, code string, at time.Time) (*coupon.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[coupon.NormalizeCode(code)]
	if !ok || !c.ActiveAt(at) {
		return nil, coupon.ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) CreateOrder(_ context.Context, o *order.Order, couponID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}

	want := make(map[uuid.UUID]int64)
	for _, item := range o.Items {
		want[item.ProductID] += int64(item.Quantity)
		if p := s.products[item.ProductID]; p == nil || p.Stock < want[item.ProductID] {
			return &order.InsufficientStockError{ProductID: item.ProductID, ProductName: item.ProductName}
		}
	}
	for id, qty := range want {
		s.products[id].Stock -= qty
	}
	if couponID != nil {
		for _, c := range s.coupons {
			if c.ID == *couponID {
				c.UsedCount++
			}
		}
	}

	s.seq++
	o.ID = uuid.Must(uuid.NewV4())
	o.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Minute)
	o.UpdatedAt = o.CreatedAt

	cp := *o
	s.orders = append(s.orders, &cp)
	return nil
}

func (s *memStore) GetOrderByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (s *memStore) GetOrdersByUserID(_ context.Context, userID uuid.UUID) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]order.Order, 0)
	for _, o := range s.orders {
		if o.UserID == userID {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *memStore) UpdateOrderStatus(_ context.Context, id uuid.UUID, upd order.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID != id {
			continue
		}
		if upd.OrderStatus != nil {
			o.OrderStatus = *upd.OrderStatus
		}
		if upd.PaymentStatus != nil {
			o.PaymentStatus = *upd.PaymentStatus
		}
		if upd.TrackingNumber != nil {
			o.TrackingNumber = upd.TrackingNumber
		}
		return nil
	}
	return order.ErrOrderNotFound
}
