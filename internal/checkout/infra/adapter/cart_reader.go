package adapter

import (
	"context"

	cartapp "github.com/dwikikusuma/storefront-gateway/internal/cart/app"
	checkoutapp "github.com/dwikikusuma/storefront-gateway/internal/checkout/app"
)

type CartServiceReader struct {
	svc *cartapp.Service
}

func NewCartServiceReader(svc *cartapp.Service) *CartServiceReader {
	return &CartServiceReader{svc: svc}
}

func (r *CartServiceReader) GetCart(ctx context.Context, cartID string) (checkoutapp.Cart, error) {
	cart, err := r.svc.GetCart(ctx, cartID)
	if err != nil {
		return checkoutapp.Cart{}, err
	}

	items := make([]checkoutapp.CartItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, checkoutapp.CartItem{
			ID:        it.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Price:     it.Price,
			Quantity:  int64(it.Quantity),
		})
	}
	return checkoutapp.Cart{
		ID:    cart.ID,
		Email: cart.CustomerEmail,
		Items: items,
	}, nil
}

// ClearCart goes through the cart service so subscribers see the empty cart.
func (r *CartServiceReader) ClearCart(ctx context.Context, cartID string) error {
	return r.svc.ClearCart(ctx, cartID)
}

func (r *CartServiceReader) SetCustomerEmail(ctx context.Context, cartID, email string) error {
	_, err := r.svc.SetCustomerEmail(ctx, cartID, email)
	return err
}
