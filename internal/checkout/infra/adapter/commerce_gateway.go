package adapter

import (
	"context"

	checkoutapp "github.com/dwikikusuma/storefront-gateway/internal/checkout/app"
	"github.com/dwikikusuma/storefront-gateway/internal/checkout/domain"
	"github.com/dwikikusuma/storefront-gateway/internal/commerce"
)

type CommerceGateway struct {
	client *commerce.Client
}

func NewCommerceGateway(client *commerce.Client) *CommerceGateway {
	return &CommerceGateway{client: client}
}

func (g *CommerceGateway) CreateCheckout(ctx context.Context, cart checkoutapp.Cart) (string, error) {
	lines := make([]commerce.LineItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		lines = append(lines, commerce.LineItem{
			VariantID: it.VariantID,
			Quantity:  int(it.Quantity),
		})
	}
	return g.client.CreateCheckout(ctx, commerce.CheckoutInput{
		Email:     cart.Email,
		LineItems: lines,
	})
}

func (g *CommerceGateway) GetCheckoutSession(ctx context.Context, token string) (domain.Session, error) {
	s, err := g.client.GetCheckoutSession(ctx, token)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{
		ID:         s.Token,
		WebURL:     s.WebURL,
		Status:     s.Status,
		TotalPrice: s.TotalPrice,
	}, nil
}
