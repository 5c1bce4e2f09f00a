// Package httpapi exposes the product catalog over HTTP.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dwikikusuma/storefront-gateway/internal/catalog/app"
	"github.com/dwikikusuma/storefront-gateway/internal/catalog/domain"
	"github.com/dwikikusuma/storefront-gateway/internal/server/middleware"
	"github.com/dwikikusuma/storefront-gateway/pkg/apperr"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *app.Service
}

func NewHandler(svc *app.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/products", h.List)
	rg.GET("/products/:productId", h.Get)
}

type VariantResponse struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Price             string `json:"price"`
	SKU               string `json:"sku,omitempty"`
	InventoryQuantity int    `json:"inventoryQuantity"`
	Available         bool   `json:"available"`
}

type ImageResponse struct {
	ID  string `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

type ProductResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Vendor      string            `json:"vendor,omitempty"`
	ProductType string            `json:"productType,omitempty"`
	Handle      string            `json:"handle,omitempty"`
	Status      string            `json:"status,omitempty"`
	Tags        []string          `json:"tags"`
	Variants    []VariantResponse `json:"variants"`
	Images      []ImageResponse   `json:"images"`
}

type PageInfoResponse struct {
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

type ProductPageResponse struct {
	Products []ProductResponse `json:"products"`
	PageInfo PageInfoResponse  `json:"pageInfo"`
}

func (h *Handler) List(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			middleware.Fail(c, apperr.Invalid("invalid limit", map[string]string{"limit": "must be an integer"}))
			return
		}
		limit = n
	}

	page, err := h.svc.ListProducts(c.Request.Context(), limit)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	out := ProductPageResponse{
		Products: make([]ProductResponse, 0, len(page.Products)),
		PageInfo: PageInfoResponse{
			HasNextPage:     page.PageInfo.HasNextPage,
			HasPreviousPage: page.PageInfo.HasPreviousPage,
		},
	}
	for _, p := range page.Products {
		out.Products = append(out.Products, toProductResponse(p))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Get(c *gin.Context) {
	p, err := h.svc.GetProduct(c.Request.Context(), c.Param("productId"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(p))
}

func toProductResponse(p domain.Product) ProductResponse {
	out := ProductResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		Handle:      p.Handle,
		Status:      p.Status,
		Tags:        p.Tags,
		Variants:    make([]VariantResponse, 0, len(p.Variants)),
		Images:      make([]ImageResponse, 0, len(p.Images)),
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, VariantResponse{
			ID:                v.ID,
			Title:             v.Title,
			Price:             v.Price.StringFixed(2),
			SKU:               v.SKU,
			InventoryQuantity: v.InventoryQuantity,
			Available:         v.Available,
		})
	}
	for _, img := range p.Images {
		out.Images = append(out.Images, ImageResponse{ID: img.ID, Src: img.Src, Alt: img.Alt})
	}
	return out
}
