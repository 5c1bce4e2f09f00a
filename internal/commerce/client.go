// Package commerce is the client for the upstream commerce platform's REST
// API. It never holds cart state.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dwikikusuma/storefront-gateway/pkg/apperr"
	"github.com/shopspring/decimal"
)

const (
	AccessTokenHeader = "X-Shopify-Access-Token"

	maxErrorBody = 4 << 10
)

type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration

	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	http    *http.Client
	baseURL string
	token   string
	log     *slog.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("commerce: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("commerce: invalid base URL: %w", err)
	}
	if cfg.AccessToken == "" {
		return nil, errors.New("commerce: access token is required")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		http:    hc,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.AccessToken,
		log:     log.With("component", "commerce"),
	}, nil
}

// statusError is a non-2xx upstream response.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

func upstreamErr(op string, err error) error {
	return apperr.Wrap(apperr.Upstream, "upstream request failed", fmt.Errorf("%s: %w", op, err))
}

// ValidateAvailability reports whether the variant is in stock. Any non-2xx
// answer, not found included, reads as unavailable; only transport and
// decoding failures are errors.
func (c *Client) ValidateAvailability(ctx context.Context, productID, variantID string) (bool, error) {
	v, err := c.GetVariant(ctx, productID, variantID)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return false, nil
		}
		return false, err
	}
	return v.Available(), nil
}

func (c *Client) GetPrice(ctx context.Context, productID, variantID string) (decimal.Decimal, error) {
	v, err := c.GetVariant(ctx, productID, variantID)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Price, nil
}

// GetVariant returns raw *statusError values wrapped in an Upstream error.
func (c *Client) GetVariant(ctx context.Context, productID, variantID string) (Variant, error) {
	path := fmt.Sprintf("/products/%s/variants/%s.json", url.PathEscape(productID), url.PathEscape(variantID))

	var env variantEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return Variant{}, upstreamErr("get variant", err)
	}
	return env.Variant, nil
}

func (c *Client) CreateCheckout(ctx context.Context, in CheckoutInput) (string, error) {
	body := checkoutRequest{Checkout: checkoutRequestBody{
		LineItems: make([]checkoutLineItem, 0, len(in.LineItems)),
		Email:     in.Email,
	}}
	for _, li := range in.LineItems {
		body.Checkout.LineItems = append(body.Checkout.LineItems, checkoutLineItem{
			VariantID: variantIDValue(li.VariantID),
			Quantity:  li.Quantity,
		})
	}

	var env checkoutEnvelope
	if err := c.do(ctx, http.MethodPost, "/checkouts.json", body, &env); err != nil {
		return "", upstreamErr("create checkout", err)
	}
	if env.Checkout.Token == "" {
		return "", upstreamErr("create checkout", errors.New("response has no checkout token"))
	}
	return env.Checkout.Token, nil
}

func (c *Client) GetCheckoutSession(ctx context.Context, token string) (CheckoutSession, error) {
	var env checkoutEnvelope
	if err := c.do(ctx, http.MethodGet, "/checkouts/"+url.PathEscape(token)+".json", nil, &env); err != nil {
		return CheckoutSession{}, upstreamErr("get checkout", err)
	}

	co := env.Checkout
	status := co.Status
	if status == "" {
		status = "open"
		if co.CompletedAt != nil {
			status = "completed"
		}
	}
	if co.Token == "" {
		co.Token = token
	}
	return CheckoutSession{
		Token:      co.Token,
		WebURL:     co.WebURL,
		Status:     status,
		TotalPrice: co.TotalPrice,
	}, nil
}

// ListProducts fetches one page of products. The platform does not say
// whether more pages exist, so a full page is taken to mean there are.
func (c *Client) ListProducts(ctx context.Context, limit int) (ProductPage, error) {
	path := "/products.json"
	if limit > 0 {
		path += "?" + url.Values{"limit": []string{strconv.Itoa(limit)}}.Encode()
	}

	var env productsEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return ProductPage{}, upstreamErr("list products", err)
	}
	if env.Products == nil {
		env.Products = []Product{}
	}
	return ProductPage{
		Products:    env.Products,
		HasNextPage: limit > 0 && len(env.Products) == limit,
	}, nil
}

func (c *Client) GetProduct(ctx context.Context, productID string) (Product, error) {
	var env productEnvelope
	err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(productID)+".json", nil, &env)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			return Product{}, apperr.Newf(apperr.NotFound, "product %s not found", productID)
		}
		return Product{}, upstreamErr("get product", err)
	}
	return env.Product, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set(AccessTokenHeader, c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "upstream request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Any("err", err),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.WarnContext(ctx, "upstream non-success response",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.Duration("latency", time.Since(start)),
		)
		return &statusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	c.log.DebugContext(ctx, "upstream request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// variantIDValue sends numeric ids as JSON numbers, which is what the
// platform expects, and anything else verbatim.
func variantIDValue(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
