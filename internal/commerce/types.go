package commerce

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wire shapes of the commerce platform's REST API. Prices arrive as decimal
// strings; decimal.Decimal also accepts bare numbers.

type variantEnvelope struct {
	Variant Variant `json:"variant"`
}

type Variant struct {
	ID                  int64            `json:"id"`
	ProductID           int64            `json:"product_id"`
	Title               string           `json:"title"`
	Price               decimal.Decimal  `json:"price"`
	CompareAtPrice      *decimal.Decimal `json:"compare_at_price"`
	SKU                 string           `json:"sku"`
	Position            int              `json:"position"`
	InventoryPolicy     string           `json:"inventory_policy"`
	InventoryQuantity   int              `json:"inventory_quantity"`
	InventoryManagement string           `json:"inventory_management"`
}

func (v Variant) Available() bool { return v.InventoryQuantity > 0 }

type Image struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Position  int    `json:"position"`
	Src       string `json:"src"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Alt       string `json:"alt"`
}

type Product struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	BodyHTML    string    `json:"body_html"`
	Vendor      string    `json:"vendor"`
	ProductType string    `json:"product_type"`
	Handle      string    `json:"handle"`
	Status      string    `json:"status"`
	Tags        string    `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Variants    []Variant `json:"variants"`
	Images      []Image   `json:"images"`
}

type productEnvelope struct {
	Product Product `json:"product"`
}

type productsEnvelope struct {
	Products []Product `json:"products"`
}

type ProductPage struct {
	Products        []Product
	HasNextPage     bool
	HasPreviousPage bool
}

type LineItem struct {
	VariantID string
	Quantity  int
}

type CheckoutInput struct {
	Email     string
	LineItems []LineItem
}

type checkoutRequest struct {
	Checkout checkoutRequestBody `json:"checkout"`
}

type checkoutRequestBody struct {
	LineItems []checkoutLineItem `json:"line_items"`
	Email     string             `json:"email,omitempty"`
}

type checkoutLineItem struct {
	VariantID any `json:"variant_id"`
	Quantity  int `json:"quantity"`
}

type checkoutEnvelope struct {
	Checkout checkout `json:"checkout"`
}

type checkout struct {
	Token       string          `json:"token"`
	WebURL      string          `json:"web_url"`
	Status      string          `json:"status"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	CompletedAt *time.Time      `json:"completed_at"`
}

type CheckoutSession struct {
	Token      string
	WebURL     string
	Status     string
	TotalPrice decimal.Decimal
}
