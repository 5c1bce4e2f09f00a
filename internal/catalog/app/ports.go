package app

import (
	"context"

	"github.com/dwikikusuma/storefront-gateway/internal/catalog/domain"
)

type ProductSource interface {
	ListProducts(ctx context.Context, limit int) (domain.ProductPage, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}
