// Package memory is the default, process-local cart store. Carts are lost on
// restart.
package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dwikikusuma/storefront-gateway/internal/cart/app"
	"github.com/dwikikusuma/storefront-gateway/internal/cart/domain"
)

type slot struct {
	mu   sync.Mutex
	cart domain.Cart
	dead bool // removed from the map; callers must reload
}

type CartStore struct {
	slots   sync.Map // cart id -> *slot
	version atomic.Int64
	now     func() time.Time
}

func NewCartStore() *CartStore {
	return &CartStore{now: time.Now}
}

func (s *CartStore) Get(_ context.Context, cartID string) (domain.Cart, error) {
	v, ok := s.slots.Load(cartID)
	if !ok {
		return domain.NewCart(cartID), nil
	}
	sl := v.(*slot)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.dead {
		return domain.NewCart(cartID), nil
	}
	return sl.cart.Clone(), nil
}

func (s *CartStore) AddItem(_ context.Context, cartID string, item domain.CartItem) (domain.Cart, error) {
	return s.update(cartID, true, func(c *domain.Cart) error {
		c.AddItem(item)
		return nil
	})
}

func (s *CartStore) UpdateQuantity(_ context.Context, cartID, itemID string, quantity int) (domain.Cart, error) {
	return s.update(cartID, false, func(c *domain.Cart) error {
		if !c.SetQuantity(itemID, quantity) {
			return app.ErrItemNotFound
		}
		return nil
	})
}

func (s *CartStore) RemoveItem(_ context.Context, cartID, itemID string) (domain.Cart, error) {
	return s.update(cartID, false, func(c *domain.Cart) error {
		c.RemoveItem(itemID)
		return nil
	})
}

func (s *CartStore) SetCustomerEmail(_ context.Context, cartID, email string) (domain.Cart, error) {
	return s.update(cartID, true, func(c *domain.Cart) error {
		c.CustomerEmail = email
		return nil
	})
}

// Clear drops the cart and returns the empty cart that replaces it, versioned
// after every earlier change.
func (s *CartStore) Clear(_ context.Context, cartID string) (domain.Cart, error) {
	cleared := domain.NewCart(cartID)

	v, ok := s.slots.Load(cartID)
	if !ok {
		cleared.Version = s.version.Add(1)
		return cleared, nil
	}
	sl := v.(*slot)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if !sl.dead {
		sl.dead = true
		s.slots.CompareAndDelete(cartID, sl)
	}
	cleared.Version = s.version.Add(1)
	return cleared, nil
}

func (s *CartStore) Ping(context.Context) error { return nil }

// update runs fn against a copy of the cart under the cart's lock and stores
// the copy only when fn succeeds. Without create, a cart that does not exist
// is never added to the map: fn sees an empty cart and nothing is stored.
func (s *CartStore) update(cartID string, create bool, fn func(*domain.Cart) error) (domain.Cart, error) {
	for {
		var sl *slot
		if create {
			v, _ := s.slots.LoadOrStore(cartID, &slot{cart: domain.NewCart(cartID)})
			sl = v.(*slot)
		} else {
			v, ok := s.slots.Load(cartID)
			if !ok {
				empty := domain.NewCart(cartID)
				if err := fn(&empty); err != nil {
					return domain.Cart{}, err
				}
				return domain.NewCart(cartID), nil
			}
			sl = v.(*slot)
		}

		sl.mu.Lock()
		if sl.dead {
			sl.mu.Unlock()
			continue
		}

		next := sl.cart.Clone()
		if err := fn(&next); err != nil {
			sl.mu.Unlock()
			return domain.Cart{}, err
		}
		next.UpdatedAt = s.now()
		next.Version = s.version.Add(1)
		sl.cart = next
		out := next.Clone()
		sl.mu.Unlock()
		return out, nil
	}
}
