package app

import (
	"context"
	"strings"

	"github.com/dwikikusuma/storefront-gateway/internal/catalog/domain"
	"github.com/dwikikusuma/storefront-gateway/pkg/apperr"
)

const (
	DefaultLimit = 50
	MaxLimit     = 250
)

var ErrInvalidInput = apperr.New(apperr.Validation, "invalid input")

type Service struct {
	source ProductSource
}

func NewService(source ProductSource) *Service {
	return &Service{
		source: source,
	}
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, ErrInvalidInput
	}
	return s.source.GetProduct(ctx, strings.TrimSpace(id))
}

// ListProducts returns the first page of products. limit is clamped to
// [1, MaxLimit]; zero or negative means DefaultLimit.
func (s *Service) ListProducts(ctx context.Context, limit int) (domain.ProductPage, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return s.source.ListProducts(ctx, limit)
}
