package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dwikikusuma/storefront-gateway/internal/checkout/domain"
	"github.com/dwikikusuma/storefront-gateway/pkg/apperr"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var ErrEmptyCart = apperr.New(apperr.EmptyCart, "cannot checkout an empty cart")

type Service struct {
	Cart     CartReader
	Gateway  CheckoutGateway
	Prices   PriceReader
	validate *validator.Validate
	log      *slog.Logger

	maxConcurrent int
}

func NewService(cart CartReader, gateway CheckoutGateway, prices PriceReader, maxConcurrent int, log *slog.Logger) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		Cart:          cart,
		Gateway:       gateway,
		Prices:        prices,
		validate:      validator.New(),
		log:           log,
		maxConcurrent: maxConcurrent,
	}
}

// Checkout creates a hosted checkout for the cart and clears the cart once
// the session is known. A given email is saved on the cart first; any later
// failure leaves the items as they were.
func (s *Service) Checkout(ctx context.Context, cartID, email string) (domain.Session, error) {
	email = strings.TrimSpace(email)
	if email != "" {
		if err := s.validate.Var(email, "email"); err != nil {
			return domain.Session{}, apperr.Invalid("invalid customer email", map[string]string{"customerEmail": "must be a valid email address"})
		}
	}

	cart, err := s.Cart.GetCart(ctx, cartID)
	if err != nil {
		return domain.Session{}, err
	}
	if len(cart.Items) == 0 {
		return domain.Session{}, ErrEmptyCart
	}
	// A blank email keeps whatever the cart already carries.
	if email != "" {
		if err := s.Cart.SetCustomerEmail(ctx, cartID, email); err != nil {
			return domain.Session{}, fmt.Errorf("set customer email: %w", err)
		}
		cart.Email = email
	}

	token, err := s.Gateway.CreateCheckout(ctx, cart)
	if err != nil {
		s.log.WarnContext(ctx, "checkout creation failed", slog.String("cart_id", cartID), slog.Any("err", err))
		return domain.Session{}, fmt.Errorf("create checkout: %w", err)
	}

	session, err := s.Gateway.GetCheckoutSession(ctx, token)
	if err != nil {
		s.log.WarnContext(ctx, "checkout session lookup failed", slog.String("cart_id", cartID), slog.String("token", token), slog.Any("err", err))
		return domain.Session{}, fmt.Errorf("get checkout session: %w", err)
	}

	if err := s.Cart.ClearCart(ctx, cartID); err != nil {
		return domain.Session{}, fmt.Errorf("clear cart: %w", err)
	}

	s.log.InfoContext(ctx, "checkout created",
		slog.String("cart_id", cartID),
		slog.String("checkout_id", session.ID),
		slog.String("total", session.TotalPrice.StringFixed(2)),
	)
	return session, nil
}

// Quote re-prices every line against upstream without touching the cart.
func (s *Service) Quote(ctx context.Context, cartID string) (domain.Quote, error) {
	cart, err := s.Cart.GetCart(ctx, cartID)
	if err != nil {
		return domain.Quote{}, err
	}

	items := cart.Items
	if len(items) == 0 {
		return domain.Quote{}, ErrEmptyCart
	}

	lines := make([]domain.QuoteLine, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for idx := range items {
		idx := idx
		g.Go(func() error {
			it := items[idx]
			if it.Quantity <= 0 {
				return fmt.Errorf("quantity must be greater than zero: %d", it.Quantity)
			}

			available, err := s.Prices.ValidateAvailability(ctx, it.ProductID, it.VariantID)
			if err != nil {
				return fmt.Errorf("failed to check availability of %s: %w", it.ID, err)
			}

			price := it.Price
			if available {
				price, err = s.Prices.GetPrice(ctx, it.ProductID, it.VariantID)
				if err != nil {
					return fmt.Errorf("failed to get price of %s: %w", it.ID, err)
				}
			}

			lines[idx] = domain.QuoteLine{
				ItemID:       it.ID,
				ProductID:    it.ProductID,
				VariantID:    it.VariantID,
				Title:        it.Title,
				Quantity:     it.Quantity,
				CartPrice:    it.Price,
				UnitPrice:    price,
				LineTotal:    price.Mul(decimal.NewFromInt(it.Quantity)),
				Available:    available,
				PriceChanged: !price.Equal(it.Price),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.Quote{}, err
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal)
	}

	return domain.Quote{
		CartID: cartID,
		Lines:  lines,
		Total:  total,
	}, nil
}
