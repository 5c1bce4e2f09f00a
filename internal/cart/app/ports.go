package app

import (
	"context"

	"github.com/dwikikusuma/storefront-gateway/internal/cart/domain"
	"github.com/shopspring/decimal"
)

// CartStore owns every cart. Mutations on one cart id are atomic; the
// returned carts are copies carrying the version of their commit.
type CartStore interface {
	Get(ctx context.Context, cartID string) (domain.Cart, error)
	AddItem(ctx context.Context, cartID string, item domain.CartItem) (domain.Cart, error)
	UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) (domain.Cart, error)
	RemoveItem(ctx context.Context, cartID, itemID string) (domain.Cart, error)
	SetCustomerEmail(ctx context.Context, cartID, email string) (domain.Cart, error)
	// Clear drops the cart and returns the empty cart that replaces it.
	Clear(ctx context.Context, cartID string) (domain.Cart, error)
	Ping(ctx context.Context) error
}

type Upstream interface {
	ValidateAvailability(ctx context.Context, productID, variantID string) (bool, error)
	GetPrice(ctx context.Context, productID, variantID string) (decimal.Decimal, error)
}
