// Package httpapi exposes the cart over HTTP.
package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/dwikikusuma/storefront-gateway/internal/cart/app"
	"github.com/dwikikusuma/storefront-gateway/internal/cart/domain"
	"github.com/dwikikusuma/storefront-gateway/internal/server/middleware"
	"github.com/dwikikusuma/storefront-gateway/internal/server/validation"
	"github.com/gin-gonic/gin"
)

const defaultHeartbeat = 25 * time.Second

type Handler struct {
	svc *app.Service

	// Heartbeat is the interval between keep-alive comments on the event
	// stream.
	Heartbeat time.Duration
}

func NewHandler(svc *app.Service) *Handler {
	return &Handler{svc: svc, Heartbeat: defaultHeartbeat}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	cart := rg.Group("/cart/:cartId")
	cart.GET("", h.Get)
	cart.POST("/items", h.AddItem)
	cart.PUT("/items/:itemId", h.UpdateItem)
	cart.DELETE("/items/:itemId", h.RemoveItem)
	cart.GET("/events", h.Events)
}

type ItemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"imageUrl"`
}

type CartResponse struct {
	ID            string         `json:"id"`
	Items         []ItemResponse `json:"items"`
	Total         string         `json:"total"`
	ItemCount     int            `json:"itemCount"`
	CustomerEmail string         `json:"customerEmail,omitempty"`
}

func ToCartResponse(c domain.Cart) CartResponse {
	items := make([]ItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, ItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Price:     it.Price.StringFixed(2),
			Quantity:  it.Quantity,
			ImageURL:  it.ImageURL,
		})
	}
	return CartResponse{
		ID:            c.ID,
		Items:         items,
		Total:         c.Total.StringFixed(2),
		ItemCount:     c.ItemCount(),
		CustomerEmail: c.CustomerEmail,
	}
}

func (h *Handler) Get(c *gin.Context) {
	cart, err := h.svc.GetCart(c.Request.Context(), c.Param("cartId"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ToCartResponse(cart))
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	VariantID string `json:"variantId" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"omitempty,min=1"`
	Title     string `json:"title" binding:"max=512"`
	ImageURL  string `json:"imageUrl" binding:"max=2048"`
}

func (h *Handler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, validation.FromBindError(err, &req))
		return
	}

	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	cart, err := h.svc.AddItem(c.Request.Context(), c.Param("cartId"), app.AddItemInput{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  qty,
		Title:     req.Title,
		ImageURL:  req.ImageURL,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ToCartResponse(cart))
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *Handler) UpdateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, validation.FromBindError(err, &req))
		return
	}

	cart, err := h.svc.UpdateQuantity(c.Request.Context(), c.Param("cartId"), c.Param("itemId"), *req.Quantity)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ToCartResponse(cart))
}

func (h *Handler) RemoveItem(c *gin.Context) {
	cart, err := h.svc.RemoveItem(c.Request.Context(), c.Param("cartId"), c.Param("itemId"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ToCartResponse(cart))
}

// Events streams the cart as server-sent events: the current state first,
// then every change until the client goes away.
func (h *Handler) Events(c *gin.Context) {
	cartID := c.Param("cartId")
	if err := app.ValidateCartID(cartID); err != nil {
		middleware.Fail(c, err)
		return
	}

	// Subscribe before reading so no update between the two is lost.
	updates, cancel := h.svc.Events().Subscribe(cartID)
	defer cancel()

	current, err := h.svc.GetCart(c.Request.Context(), cartID)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("cart", ToCartResponse(current))
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case cart, ok := <-updates:
			if !ok {
				return false
			}
			// Published before the initial read; already covered by it.
			if cart.Version < current.Version {
				return true
			}
			c.SSEvent("cart", ToCartResponse(cart))
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": ping\n\n")
			return err == nil
		}
	})
}
