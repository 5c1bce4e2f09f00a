package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dwikikusuma/storefront-gateway/internal/cart/domain"
	"github.com/dwikikusuma/storefront-gateway/pkg/apperr"
)

const maxCartIDLen = 128

var (
	ErrItemNotFound = apperr.New(apperr.InvalidOperation, "item not found in cart")
	ErrUnavailable  = apperr.New(apperr.Unavailable, "product is not available")
)

type Service struct {
	store    CartStore
	upstream Upstream
	events   *Broadcaster
	log      *slog.Logger
}

func NewService(store CartStore, upstream Upstream, events *Broadcaster, log *slog.Logger) *Service {
	if events == nil {
		events = NewBroadcaster()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		upstream: upstream,
		events:   events,
		log:      log,
	}
}

type AddItemInput struct {
	ProductID string
	VariantID string
	Quantity  int
	Title     string
	ImageURL  string
}

func (s *Service) Events() *Broadcaster { return s.events }

func (s *Service) GetCart(ctx context.Context, cartID string) (domain.Cart, error) {
	if err := ValidateCartID(cartID); err != nil {
		return domain.Cart{}, err
	}
	return s.store.Get(ctx, cartID)
}

// AddItem checks availability, takes the authoritative price from upstream
// and merges the line into the cart. Nothing is stored when a check fails.
func (s *Service) AddItem(ctx context.Context, cartID string, in AddItemInput) (domain.Cart, error) {
	if err := ValidateCartID(cartID); err != nil {
		return domain.Cart{}, err
	}
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.VariantID = strings.TrimSpace(in.VariantID)

	fields := map[string]string{}
	if in.ProductID == "" {
		fields["productId"] = "required"
	}
	if in.VariantID == "" {
		fields["variantId"] = "required"
	}
	if in.Quantity < 1 {
		fields["quantity"] = "must be at least 1"
	}
	if len(fields) > 0 {
		return domain.Cart{}, apperr.Invalid("invalid cart item", fields)
	}

	ok, err := s.upstream.ValidateAvailability(ctx, in.ProductID, in.VariantID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("validate availability: %w", err)
	}
	if !ok {
		return domain.Cart{}, ErrUnavailable
	}

	price, err := s.upstream.GetPrice(ctx, in.ProductID, in.VariantID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("get price: %w", err)
	}

	cart, err := s.store.AddItem(ctx, cartID, domain.CartItem{
		ID:        domain.ItemID(in.ProductID, in.VariantID),
		ProductID: in.ProductID,
		VariantID: in.VariantID,
		Title:     in.Title,
		Price:     price,
		Quantity:  in.Quantity,
		ImageURL:  in.ImageURL,
	})
	if err != nil {
		return domain.Cart{}, err
	}

	s.log.DebugContext(ctx, "cart item added",
		slog.String("cart_id", cartID),
		slog.String("product_id", in.ProductID),
		slog.String("variant_id", in.VariantID),
		slog.Int("quantity", in.Quantity),
		slog.String("price", price.String()),
	)
	s.events.Publish(cart)
	return cart, nil
}

// UpdateQuantity sets the quantity of an existing line. A quantity <= 0
// removes the line without asking upstream; any other value is re-checked
// for availability first, decreases included.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) (domain.Cart, error) {
	if err := ValidateCartID(cartID); err != nil {
		return domain.Cart{}, err
	}

	current, err := s.store.Get(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	item, ok := current.Find(itemID)
	if !ok {
		return domain.Cart{}, ErrItemNotFound
	}

	if quantity > 0 {
		available, err := s.upstream.ValidateAvailability(ctx, item.ProductID, item.VariantID)
		if err != nil {
			return domain.Cart{}, fmt.Errorf("validate availability: %w", err)
		}
		if !available {
			return domain.Cart{}, apperr.New(apperr.Unavailable, "product is not available in requested quantity")
		}
	}

	cart, err := s.store.UpdateQuantity(ctx, cartID, itemID, quantity)
	if err != nil {
		return domain.Cart{}, err
	}
	s.events.Publish(cart)
	return cart, nil
}

func (s *Service) RemoveItem(ctx context.Context, cartID, itemID string) (domain.Cart, error) {
	if err := ValidateCartID(cartID); err != nil {
		return domain.Cart{}, err
	}
	cart, err := s.store.RemoveItem(ctx, cartID, itemID)
	if err != nil {
		return domain.Cart{}, err
	}
	s.events.Publish(cart)
	return cart, nil
}

func (s *Service) ClearCart(ctx context.Context, cartID string) error {
	if err := ValidateCartID(cartID); err != nil {
		return err
	}
	cleared, err := s.store.Clear(ctx, cartID)
	if err != nil {
		return err
	}
	s.events.Publish(cleared)
	return nil
}

// SetCustomerEmail records the email the cart will be checked out with. A
// blank email removes it.
func (s *Service) SetCustomerEmail(ctx context.Context, cartID, email string) (domain.Cart, error) {
	if err := ValidateCartID(cartID); err != nil {
		return domain.Cart{}, err
	}
	cart, err := s.store.SetCustomerEmail(ctx, cartID, strings.TrimSpace(email))
	if err != nil {
		return domain.Cart{}, err
	}
	s.events.Publish(cart)
	return cart, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func ValidateCartID(cartID string) error {
	id := strings.TrimSpace(cartID)
	if id == "" || id != cartID || len(id) > maxCartIDLen {
		return apperr.Invalid("invalid cart id", map[string]string{"cartId": "must be a non-empty id of at most 128 characters"})
	}
	return nil
}
