package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	cartapp "github.com/dwikikusuma/storefront-gateway/internal/cart/app"
	"github.com/dwikikusuma/storefront-gateway/internal/cart/infra/memory"
	"github.com/dwikikusuma/storefront-gateway/internal/checkout/app"
	"github.com/dwikikusuma/storefront-gateway/internal/checkout/domain"
	"github.com/dwikikusuma/storefront-gateway/internal/checkout/infra/adapter"
	"github.com/dwikikusuma/storefront-gateway/pkg/apperr"
	"github.com/dwikikusuma/storefront-gateway/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpstream struct {
	mu        sync.Mutex
	prices    map[string]decimal.Decimal
	available map[string]bool
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{prices: map[string]decimal.Decimal{}, available: map[string]bool{}}
}

func (f *fakeUpstream) set(variantID, price string, available bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[variantID] = decimal.RequireFromString(price)
	f.available[variantID] = available
}

func (f *fakeUpstream) ValidateAvailability(_ context.Context, _, variantID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available[variantID], nil
}

func (f *fakeUpstream) GetPrice(_ context.Context, _, variantID string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[variantID]
	if !ok {
		return decimal.Zero, apperr.New(apperr.Upstream, "upstream request failed")
	}
	return p, nil
}

type fakeGateway struct {
	createErr  error
	sessionErr error
	gotCart    app.Cart
}

func (g *fakeGateway) CreateCheckout(_ context.Context, cart app.Cart) (string, error) {
	g.gotCart = cart
	if g.createErr != nil {
		return "", g.createErr
	}
	return "tok_1", nil
}

func (g *fakeGateway) GetCheckoutSession(_ context.Context, token string) (domain.Session, error) {
	if g.sessionErr != nil {
		return domain.Session{}, g.sessionErr
	}
	return domain.Session{
		ID:         token,
		WebURL:     "https://shop.example/checkouts/" + token,
		Status:     "open",
		TotalPrice: decimal.RequireFromString("20.00"),
	}, nil
}

type fixture struct {
	carts    *cartapp.Service
	checkout *app.Service
	upstream *fakeUpstream
	gateway  *fakeGateway
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	up := newFakeUpstream()
	up.set("V1", "10.00", true)
	up.set("V2", "2.50", true)

	carts := cartapp.NewService(memory.NewCartStore(), up, nil, logger.Discard())
	gw := &fakeGateway{}
	co := app.NewService(adapter.NewCartServiceReader(carts), gw, up, 4, logger.Discard())
	return fixture{carts: carts, checkout: co, upstream: up, gateway: gw}
}

func (f fixture) add(t *testing.T, cartID, variantID string, qty int) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), cartID, cartapp.AddItemInput{ProductID: "P1", VariantID: variantID, Quantity: qty})
	require.NoError(t, err)
}

func TestCheckout_EmptyCartRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkout.Checkout(context.Background(), "c1", "a@example.com")
	require.ErrorIs(t, err, app.ErrEmptyCart)
	assert.Equal(t, apperr.EmptyCart, apperr.KindOf(err))

	cart, err := f.carts.GetCart(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCheckout_SuccessClearsCart(t *testing.T) {
	f := newFixture(t)
	f.add(t, "c1", "V1", 2)

	events, cancel := f.carts.Events().Subscribe("c1")
	defer cancel()

	session, err := f.checkout.Checkout(context.Background(), "c1", " a@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "tok_1", session.ID)
	assert.Equal(t, "https://shop.example/checkouts/tok_1", session.WebURL)

	assert.Equal(t, "a@example.com", f.gateway.gotCart.Email)
	require.Len(t, f.gateway.gotCart.Items, 1)
	assert.Equal(t, int64(2), f.gateway.gotCart.Items[0].Quantity)

	cart, err := f.carts.GetCart(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())

	cleared := <-events
	assert.Empty(t, cleared.Items, "subscribers see the cleared cart")
}

func TestCheckout_UpstreamFailureKeepsCart(t *testing.T) {
	cases := map[string]func(*fakeGateway){
		"create fails":  func(g *fakeGateway) { g.createErr = apperr.New(apperr.Upstream, "upstream request failed") },
		"session fails": func(g *fakeGateway) { g.sessionErr = apperr.New(apperr.Upstream, "upstream request failed") },
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.add(t, "c1", "V1", 2)
			breakIt(f.gateway)

			_, err := f.checkout.Checkout(context.Background(), "c1", "a@example.com")
			require.Error(t, err)
			assert.Equal(t, apperr.Upstream, apperr.KindOf(err))

			cart, err := f.carts.GetCart(context.Background(), "c1")
			require.NoError(t, err)
			require.Len(t, cart.Items, 1)
			assert.Equal(t, "20.00", cart.Total.StringFixed(2))
			assert.Equal(t, "a@example.com", cart.CustomerEmail, "email is kept for the retry")
		})
	}
}

func TestCheckout_UsesStoredEmail(t *testing.T) {
	f := newFixture(t)
	f.add(t, "c1", "V1", 1)
	_, err := f.carts.SetCustomerEmail(context.Background(), "c1", "saved@example.com")
	require.NoError(t, err)

	_, err = f.checkout.Checkout(context.Background(), "c1", "")
	require.NoError(t, err)
	assert.Equal(t, "saved@example.com", f.gateway.gotCart.Email)

	cart, err := f.carts.GetCart(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, cart.CustomerEmail, "clearing drops the email with the items")
}

func TestCheckout_InvalidEmail(t *testing.T) {
	f := newFixture(t)
	f.add(t, "c1", "V1", 1)

	_, err := f.checkout.Checkout(context.Background(), "c1", "not-an-email")
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Validation, ae.Kind)
	assert.Contains(t, ae.Fields, "customerEmail")
}

func TestQuote(t *testing.T) {
	f := newFixture(t)
	f.add(t, "c1", "V1", 2)
	f.add(t, "c1", "V2", 4)

	f.upstream.set("V1", "12.00", true)
	f.upstream.set("V2", "2.50", false)

	q, err := f.checkout.Quote(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, q.Lines, 2)

	v1, v2 := q.Lines[0], q.Lines[1]
	assert.Equal(t, "P1-V1", v1.ItemID)
	assert.True(t, v1.PriceChanged)
	assert.Equal(t, "24.00", v1.LineTotal.StringFixed(2))
	assert.Equal(t, "10.00", v1.CartPrice.StringFixed(2))

	assert.False(t, v2.Available)
	assert.False(t, v2.PriceChanged)
	assert.Equal(t, "34.00", q.Total.StringFixed(2))
	assert.False(t, q.Checkoutable())

	cart, err := f.carts.GetCart(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "30.00", cart.Total.StringFixed(2), "quoting never reprices the cart")
}

func TestQuote_EmptyAndErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkout.Quote(context.Background(), "c1")
	require.True(t, errors.Is(err, app.ErrEmptyCart))

	f.add(t, "c1", "V1", 1)
	f.upstream.mu.Lock()
	delete(f.upstream.prices, "V1")
	f.upstream.mu.Unlock()

	_, err = f.checkout.Quote(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, apperr.Upstream, apperr.KindOf(err))
}
