package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ID        string
	ProductID string
	VariantID string
	Title     string
	Price     decimal.Decimal
	Quantity  int
	ImageURL  string
}

type Cart struct {
	ID            string
	Items         []CartItem
	Total         decimal.Decimal
	CustomerEmail string
	UpdatedAt     time.Time

	// Version increases with every committed change to the cart, clears
	// included. Later commits always carry a higher version.
	Version int64
}

// ItemID is the line id for a product variant. Adding the same variant twice
// lands on the same line.
func ItemID(productID, variantID string) string {
	return productID + "-" + variantID
}

func NewCart(id string) Cart {
	return Cart{ID: id, Items: []CartItem{}, Total: decimal.Zero}
}

func (c Cart) IsEmpty() bool { return len(c.Items) == 0 }

func (c Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c Cart) Find(itemID string) (CartItem, bool) {
	for _, it := range c.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return CartItem{}, false
}

// Clone returns a copy that shares no item storage with c.
func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return out
}

// AddItem merges item into the line for the same product and variant, taking
// the newer price, or appends a new line.
func (c *Cart) AddItem(item CartItem) {
	if item.ID == "" {
		item.ID = ItemID(item.ProductID, item.VariantID)
	}
	for i := range c.Items {
		it := &c.Items[i]
		if it.ProductID == item.ProductID && it.VariantID == item.VariantID {
			it.Quantity += item.Quantity
			it.Price = item.Price
			if item.Title != "" {
				it.Title = item.Title
			}
			if item.ImageURL != "" {
				it.ImageURL = item.ImageURL
			}
			c.Recalculate()
			return
		}
	}
	c.Items = append(c.Items, item)
	c.Recalculate()
}

// SetQuantity returns false when the line does not exist. Quantities <= 0
// remove the line.
func (c *Cart) SetQuantity(itemID string, quantity int) bool {
	for i := range c.Items {
		if c.Items[i].ID != itemID {
			continue
		}
		if quantity <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity = quantity
		}
		c.Recalculate()
		return true
	}
	return false
}

func (c *Cart) RemoveItem(itemID string) bool {
	return c.SetQuantity(itemID, 0)
}

func (c *Cart) Recalculate() {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	c.Total = total
}
