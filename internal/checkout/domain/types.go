package domain

import "github.com/shopspring/decimal"

type Session struct {
	ID         string
	WebURL     string
	Status     string
	TotalPrice decimal.Decimal
}

type QuoteLine struct {
	ItemID       string
	ProductID    string
	VariantID    string
	Title        string
	Quantity     int64
	CartPrice    decimal.Decimal
	UnitPrice    decimal.Decimal
	LineTotal    decimal.Decimal
	Available    bool
	PriceChanged bool
}

type Quote struct {
	CartID string
	Lines  []QuoteLine
	Total  decimal.Decimal
}

// Checkoutable reports whether every line can be bought at the quoted price.
func (q Quote) Checkoutable() bool {
	for _, ln := range q.Lines {
		if !ln.Available {
			return false
		}
	}
	return len(q.Lines) > 0
}
