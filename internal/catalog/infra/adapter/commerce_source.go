package adapter

import (
	"context"
	"strconv"
	"strings"

	"github.com/dwikikusuma/storefront-gateway/internal/catalog/domain"
	"github.com/dwikikusuma/storefront-gateway/internal/commerce"
)

type ProductLister interface {
	ListProducts(ctx context.Context, limit int) (commerce.ProductPage, error)
	GetProduct(ctx context.Context, productID string) (commerce.Product, error)
}

// CommerceSource reads the catalog straight from the commerce platform.
type CommerceSource struct {
	client ProductLister
}

func NewCommerceSource(client ProductLister) *CommerceSource {
	return &CommerceSource{client: client}
}

func (s *CommerceSource) ListProducts(ctx context.Context, limit int) (domain.ProductPage, error) {
	page, err := s.client.ListProducts(ctx, limit)
	if err != nil {
		return domain.ProductPage{}, err
	}

	products := make([]domain.Product, 0, len(page.Products))
	for _, p := range page.Products {
		products = append(products, toProduct(p))
	}
	return domain.ProductPage{
		Products: products,
		PageInfo: domain.PageInfo{
			HasNextPage:     page.HasNextPage,
			HasPreviousPage: page.HasPreviousPage,
		},
	}, nil
}

func (s *CommerceSource) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := s.client.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return toProduct(p), nil
}

func toProduct(p commerce.Product) domain.Product {
	out := domain.Product{
		ID:          strconv.FormatInt(p.ID, 10),
		Title:       p.Title,
		Description: p.BodyHTML,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		Handle:      p.Handle,
		Status:      p.Status,
		Tags:        splitTags(p.Tags),
		Variants:    make([]domain.Variant, 0, len(p.Variants)),
		Images:      make([]domain.Image, 0, len(p.Images)),
	}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, domain.Variant{
			ID:                strconv.FormatInt(v.ID, 10),
			Title:             v.Title,
			Price:             v.Price,
			SKU:               v.SKU,
			InventoryQuantity: v.InventoryQuantity,
			Available:         v.Available(),
		})
	}
	for _, img := range p.Images {
		out.Images = append(out.Images, domain.Image{
			ID:  strconv.FormatInt(img.ID, 10),
			Src: img.Src,
			Alt: img.Alt,
		})
	}
	return out
}

// splitTags turns the platform's "a, b,c" tag string into a list.
func splitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
