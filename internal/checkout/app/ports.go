package app

import (
	"context"

	"github.com/dwikikusuma/storefront-gateway/internal/checkout/domain"
	"github.com/shopspring/decimal"
)

type CartItem struct {
	ID        string
	ProductID string
	VariantID string
	Title     string
	Price     decimal.Decimal
	Quantity  int64
}

type Cart struct {
	ID    string
	Email string
	Items []CartItem
}

type CartReader interface {
	GetCart(ctx context.Context, cartID string) (Cart, error)
	ClearCart(ctx context.Context, cartID string) error
	SetCustomerEmail(ctx context.Context, cartID, email string) error
}

type CheckoutGateway interface {
	CreateCheckout(ctx context.Context, cart Cart) (string, error)
	GetCheckoutSession(ctx context.Context, token string) (domain.Session, error)
}

type PriceReader interface {
	ValidateAvailability(ctx context.Context, productID, variantID string) (bool, error)
	GetPrice(ctx context.Context, productID, variantID string) (decimal.Decimal, error)
}
