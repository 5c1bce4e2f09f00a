// Package httpapi exposes checkout and quoting over HTTP.
package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/dwikikusuma/storefront-gateway/internal/checkout/app"
	"github.com/dwikikusuma/storefront-gateway/internal/checkout/domain"
	"github.com/dwikikusuma/storefront-gateway/internal/server/middleware"
	"github.com/dwikikusuma/storefront-gateway/internal/server/validation"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *app.Service
}

func NewHandler(svc *app.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/cart/:cartId/checkout", h.Checkout)
	rg.GET("/cart/:cartId/quote", h.Quote)
}

type SessionResponse struct {
	ID         string `json:"id"`
	WebURL     string `json:"webUrl"`
	Status     string `json:"status"`
	TotalPrice string `json:"totalPrice"`
}

type checkoutRequest struct {
	CustomerEmail string `json:"customerEmail" binding:"omitempty,email"`
}

// Checkout accepts an empty body; the customer email is optional.
func (h *Handler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			middleware.Fail(c, validation.FromBindError(err, &req))
			return
		}
	}

	session, err := h.svc.Checkout(c.Request.Context(), c.Param("cartId"), req.CustomerEmail)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(session))
}

func toSessionResponse(s domain.Session) SessionResponse {
	return SessionResponse{
		ID:         s.ID,
		WebURL:     s.WebURL,
		Status:     s.Status,
		TotalPrice: s.TotalPrice.StringFixed(2),
	}
}

type QuoteLineResponse struct {
	ItemID       string `json:"itemId"`
	ProductID    string `json:"productId"`
	VariantID    string `json:"variantId"`
	Title        string `json:"title"`
	Quantity     int64  `json:"quantity"`
	CartPrice    string `json:"cartPrice"`
	UnitPrice    string `json:"unitPrice"`
	LineTotal    string `json:"lineTotal"`
	Available    bool   `json:"available"`
	PriceChanged bool   `json:"priceChanged"`
}

type QuoteResponse struct {
	CartID       string              `json:"cartId"`
	Lines        []QuoteLineResponse `json:"lines"`
	Total        string              `json:"total"`
	Checkoutable bool                `json:"checkoutable"`
}

func (h *Handler) Quote(c *gin.Context) {
	q, err := h.svc.Quote(c.Request.Context(), c.Param("cartId"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	lines := make([]QuoteLineResponse, 0, len(q.Lines))
	for _, ln := range q.Lines {
		lines = append(lines, QuoteLineResponse{
			ItemID:       ln.ItemID,
			ProductID:    ln.ProductID,
			VariantID:    ln.VariantID,
			Title:        ln.Title,
			Quantity:     ln.Quantity,
			CartPrice:    ln.CartPrice.StringFixed(2),
			UnitPrice:    ln.UnitPrice.StringFixed(2),
			LineTotal:    ln.LineTotal.StringFixed(2),
			Available:    ln.Available,
			PriceChanged: ln.PriceChanged,
		})
	}
	c.JSON(http.StatusOK, QuoteResponse{
		CartID:       q.CartID,
		Lines:        lines,
		Total:        q.Total.StringFixed(2),
		Checkoutable: q.Checkoutable(),
	})
}
