package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dwikikusuma/storefront-gateway/internal/cart/app"
	"github.com/dwikikusuma/storefront-gateway/internal/cart/domain"
	"github.com/dwikikusuma/storefront-gateway/internal/cart/infra/memory"
	"github.com/dwikikusuma/storefront-gateway/pkg/apperr"
	"github.com/dwikikusuma/storefront-gateway/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fakeUpstream struct {
	mu          sync.Mutex
	price       decimal.Decimal
	unavailable map[string]bool
	failPrice   bool
	availCalls  int
	priceCalls  int
}

func newFakeUpstream(price string) *fakeUpstream {
	return &fakeUpstream{price: decimal.RequireFromString(price), unavailable: map[string]bool{}}
}

func (f *fakeUpstream) ValidateAvailability(_ context.Context, _, variantID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availCalls++
	return !f.unavailable[variantID], nil
}

func (f *fakeUpstream) GetPrice(context.Context, string, string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls++
	if f.failPrice {
		return decimal.Zero, apperr.New(apperr.Upstream, "upstream request failed")
	}
	return f.price, nil
}

func (f *fakeUpstream) setPrice(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price = decimal.RequireFromString(p)
}

func newService(t *testing.T, up *fakeUpstream) *app.Service {
	t.Helper()
	return app.NewService(memory.NewCartStore(), up, nil, logger.Discard())
}

func add(svc *app.Service, cartID, productID, variantID string, qty int) error {
	_, err := svc.AddItem(context.Background(), cartID, app.AddItemInput{ProductID: productID, VariantID: variantID, Quantity: qty})
	return err
}

func TestService_ExampleFlow(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newFakeUpstream("10.00"))

	cart, err := svc.AddItem(ctx, "c1", app.AddItemInput{ProductID: "P1", VariantID: "V1", Quantity: 2, Title: "Tee"})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "P1-V1", cart.Items[0].ID)
	assert.Equal(t, "20.00", cart.Total.StringFixed(2))

	cart, err = svc.UpdateQuantity(ctx, "c1", "P1-V1", 3)
	require.NoError(t, err)
	assert.Equal(t, "30.00", cart.Total.StringFixed(2))

	cart, err = svc.RemoveItem(ctx, "c1", "P1-V1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "0.00", cart.Total.StringFixed(2))
}

func TestService_AddMergesAndRefreshesPrice(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream("10.00")
	svc := newService(t, up)

	require.NoError(t, add(svc, "c1", "P1", "V1", 1))
	up.setPrice("12.50")
	require.NoError(t, add(svc, "c1", "P1", "V1", 2))

	cart, err := svc.GetCart(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, "12.50", cart.Items[0].Price.StringFixed(2))
	assert.Equal(t, "37.50", cart.Total.StringFixed(2))
}

func TestService_AddValidation(t *testing.T) {
	up := newFakeUpstream("10.00")
	svc := newService(t, up)

	cases := map[string]app.AddItemInput{
		"missing product": {VariantID: "V1", Quantity: 1},
		"blank variant":   {ProductID: "P1", VariantID: "  ", Quantity: 1},
		"zero quantity":   {ProductID: "P1", VariantID: "V1"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.AddItem(context.Background(), "c1", in)
			require.Error(t, err)
			assert.Equal(t, apperr.Validation, apperr.KindOf(err))
		})
	}
	assert.Zero(t, up.availCalls, "invalid input never reaches upstream")

	t.Run("bad cart id", func(t *testing.T) {
		for _, id := range []string{"", " c1", strings.Repeat("x", 129)} {
			_, err := svc.GetCart(context.Background(), id)
			assert.Equal(t, apperr.Validation, apperr.KindOf(err), "id %q", id)
		}
	})
}

func TestService_AddUnavailableLeavesCartUnchanged(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream("10.00")
	up.unavailable["V2"] = true
	svc := newService(t, up)

	require.NoError(t, add(svc, "c1", "P1", "V1", 1))

	err := add(svc, "c1", "P2", "V2", 1)
	require.ErrorIs(t, err, app.ErrUnavailable)
	assert.Equal(t, apperr.Unavailable, apperr.KindOf(err))

	cart, err := svc.GetCart(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "10.00", cart.Total.StringFixed(2))
}

func TestService_AddPriceFailure(t *testing.T) {
	up := newFakeUpstream("10.00")
	up.failPrice = true
	svc := newService(t, up)

	err := add(svc, "c1", "P1", "V1", 1)
	require.Error(t, err)
	assert.Equal(t, apperr.Upstream, apperr.KindOf(err))

	cart, err := svc.GetCart(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestService_UpdateQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("missing item", func(t *testing.T) {
		svc := newService(t, newFakeUpstream("10.00"))
		_, err := svc.UpdateQuantity(ctx, "c1", "P1-V1", 2)
		require.True(t, errors.Is(err, app.ErrItemNotFound))
		assert.Equal(t, apperr.InvalidOperation, apperr.KindOf(err))
	})

	t.Run("zero removes without upstream call", func(t *testing.T) {
		up := newFakeUpstream("10.00")
		svc := newService(t, up)

		for _, q := range []int{0, -4} {
			require.NoError(t, add(svc, "c2", "P1", "V1", 1))
			before := up.availCalls
			cart, err := svc.UpdateQuantity(ctx, "c2", "P1-V1", q)
			require.NoError(t, err)
			assert.Empty(t, cart.Items)
			assert.True(t, cart.Total.IsZero())
			assert.Equal(t, before, up.availCalls)
		}
	})

	t.Run("decrease still checks availability", func(t *testing.T) {
		up := newFakeUpstream("10.00")
		svc := newService(t, up)
		require.NoError(t, add(svc, "c1", "P1", "V1", 5))

		up.unavailable["V1"] = true
		_, err := svc.UpdateQuantity(ctx, "c1", "P1-V1", 1)
		require.Error(t, err)
		assert.Equal(t, apperr.Unavailable, apperr.KindOf(err))

		cart, err := svc.GetCart(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, 5, cart.Items[0].Quantity)
	})

	t.Run("update keeps stored price", func(t *testing.T) {
		up := newFakeUpstream("10.00")
		svc := newService(t, up)
		require.NoError(t, add(svc, "c1", "P1", "V1", 1))

		up.setPrice("99.00")
		cart, err := svc.UpdateQuantity(ctx, "c1", "P1-V1", 2)
		require.NoError(t, err)
		assert.Equal(t, "20.00", cart.Total.StringFixed(2))
		assert.Equal(t, 1, up.priceCalls)
	})
}

func TestService_RemoveMissingIsNoop(t *testing.T) {
	svc := newService(t, newFakeUpstream("10.00"))
	require.NoError(t, add(svc, "c1", "P1", "V1", 1))

	cart, err := svc.RemoveItem(context.Background(), "c1", "nope")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestService_PublishesMutations(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newFakeUpstream("10.00"))

	updates, cancel := svc.Events().Subscribe("c1")
	defer cancel()

	require.NoError(t, add(svc, "c1", "P1", "V1", 2))
	got := <-updates
	assert.Equal(t, "20.00", got.Total.StringFixed(2))

	_, err := svc.UpdateQuantity(ctx, "c1", "P1-V1", 1)
	require.NoError(t, err)
	got = <-updates
	assert.Equal(t, 1, got.ItemCount())

	require.NoError(t, svc.ClearCart(ctx, "c1"))
	got = <-updates
	assert.True(t, got.IsEmpty())

	// Failed mutations publish nothing.
	_, err = svc.UpdateQuantity(ctx, "c1", "P1-V1", 3)
	require.Error(t, err)
	select {
	case c := <-updates:
		t.Fatalf("unexpected update %+v", c)
	default:
	}
}

// heldStore holds the first AddItem after it has committed, until release is
// closed.
type heldStore struct {
	app.CartStore
	committed chan struct{}
	release   chan struct{}
	once      sync.Once
}

func (h *heldStore) AddItem(ctx context.Context, cartID string, item domain.CartItem) (domain.Cart, error) {
	cart, err := h.CartStore.AddItem(ctx, cartID, item)
	h.once.Do(func() {
		close(h.committed)
		<-h.release
	})
	return cart, err
}

func TestService_LateEventDoesNotOverwriteNewer(t *testing.T) {
	store := &heldStore{
		CartStore: memory.NewCartStore(),
		committed: make(chan struct{}),
		release:   make(chan struct{}),
	}
	svc := app.NewService(store, newFakeUpstream("10.00"), nil, logger.Discard())

	updates, cancel := svc.Events().Subscribe("c1")
	defer cancel()

	first := make(chan error, 1)
	go func() { first <- add(svc, "c1", "P1", "V1", 1) }()
	<-store.committed

	// The second add commits and publishes while the first still waits to
	// publish its older cart.
	require.NoError(t, add(svc, "c1", "P1", "V1", 1))
	close(store.release)
	require.NoError(t, <-first)

	got := <-updates
	assert.Equal(t, 2, got.Items[0].Quantity)
	select {
	case c := <-updates:
		t.Fatalf("stale update delivered: %+v", c)
	default:
	}

	stored, err := svc.GetCart(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, stored.Version, got.Version)
}

func TestService_SetCustomerEmail(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newFakeUpstream("10.00"))

	cart, err := svc.SetCustomerEmail(ctx, "c1", " a@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", cart.CustomerEmail)

	require.NoError(t, add(svc, "c1", "P1", "V1", 1))
	cart, err = svc.GetCart(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", cart.CustomerEmail)

	require.NoError(t, svc.ClearCart(ctx, "c1"))
	cart, err = svc.GetCart(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, cart.CustomerEmail)

	_, err = svc.SetCustomerEmail(ctx, " ", "a@example.com")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestService_ConcurrentAddsLoseNothing(t *testing.T) {
	svc := newService(t, newFakeUpstream("1.00"))
	cartID := uuid.NewString()

	const N = 50
	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < N; i++ {
		g.Go(func() error {
			return add(svc, cartID, "P1", "V1", 1)
		})
	}
	require.NoError(t, g.Wait())

	cart, err := svc.GetCart(context.Background(), cartID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, N, cart.Items[0].Quantity)
	assert.Equal(t, "50.00", cart.Total.StringFixed(2))
}
