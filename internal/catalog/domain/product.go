package domain

import "github.com/shopspring/decimal"

type Variant struct {
	ID                string
	Title             string
	Price             decimal.Decimal
	SKU               string
	InventoryQuantity int
	Available         bool
}

type Image struct {
	ID  string
	Src string
	Alt string
}

type Product struct {
	ID          string
	Title       string
	Description string
	Vendor      string
	ProductType string
	Handle      string
	Status      string
	Tags        []string
	Variants    []Variant
	Images      []Image
}

type PageInfo struct {
	HasNextPage     bool
	HasPreviousPage bool
}

type ProductPage struct {
	Products []Product
	PageInfo PageInfo
}
