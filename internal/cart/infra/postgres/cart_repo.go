// Package postgres stores carts as one row per cart id with the lines in a
// JSONB column. Mutations lock the row for the length of a transaction.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dwikikusuma/storefront-gateway/internal/cart/app"
	"github.com/dwikikusuma/storefront-gateway/internal/cart/domain"
	"github.com/shopspring/decimal"
)

// Versions come from one sequence shared by all carts, so a cart recreated
// after a clear keeps counting up from where the cleared one stopped.
const (
	schemaSQL = `CREATE SEQUENCE IF NOT EXISTS cart_versions;
CREATE TABLE IF NOT EXISTS carts (
	id             TEXT PRIMARY KEY,
	customer_email TEXT NOT NULL DEFAULT '',
	items          JSONB NOT NULL DEFAULT '[]'::jsonb,
	total          NUMERIC(14,2) NOT NULL DEFAULT 0,
	version        BIGINT NOT NULL DEFAULT 0,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
ALTER TABLE carts ADD COLUMN IF NOT EXISTS version BIGINT NOT NULL DEFAULT 0`
	getCartSQL     = `SELECT customer_email, items, version, updated_at FROM carts WHERE id = $1`
	ensureCartSQL  = `INSERT INTO carts (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`
	lockCartSQL    = `SELECT customer_email, items, version, updated_at FROM carts WHERE id = $1 FOR UPDATE`
	saveCartSQL    = `UPDATE carts SET customer_email = $2, items = $3, total = $4, updated_at = $5, version = nextval('cart_versions') WHERE id = $1 RETURNING version`
	deleteCartSQL  = `DELETE FROM carts WHERE id = $1`
	nextVersionSQL = `SELECT nextval('cart_versions')`
)

type itemRow struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url,omitempty"`
}

type CartRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewCartRepo(db *sql.DB) *CartRepo {
	return &CartRepo{db: db, now: time.Now}
}

func (r *CartRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create carts table: %w", err)
	}
	return nil
}

func (r *CartRepo) Get(ctx context.Context, cartID string) (domain.Cart, error) {
	cart, err := scanCart(r.db.QueryRowContext(ctx, getCartSQL, cartID), cartID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewCart(cartID), nil
	}
	if err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (r *CartRepo) AddItem(ctx context.Context, cartID string, item domain.CartItem) (domain.Cart, error) {
	return r.update(ctx, cartID, true, func(c *domain.Cart) error {
		c.AddItem(item)
		return nil
	})
}

func (r *CartRepo) UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) (domain.Cart, error) {
	return r.update(ctx, cartID, false, func(c *domain.Cart) error {
		if !c.SetQuantity(itemID, quantity) {
			return app.ErrItemNotFound
		}
		return nil
	})
}

func (r *CartRepo) RemoveItem(ctx context.Context, cartID, itemID string) (domain.Cart, error) {
	return r.update(ctx, cartID, false, func(c *domain.Cart) error {
		c.RemoveItem(itemID)
		return nil
	})
}

func (r *CartRepo) SetCustomerEmail(ctx context.Context, cartID, email string) (domain.Cart, error) {
	return r.update(ctx, cartID, true, func(c *domain.Cart) error {
		c.CustomerEmail = email
		return nil
	})
}

// Clear deletes the cart row and returns the empty cart that replaces it,
// versioned after the deleted one.
func (r *CartRepo) Clear(ctx context.Context, cartID string) (domain.Cart, error) {
	cleared := domain.NewCart(cartID)

	err := r.execTX(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteCartSQL, cartID); err != nil {
			return fmt.Errorf("delete cart: %w", err)
		}
		if err := tx.QueryRowContext(ctx, nextVersionSQL).Scan(&cleared.Version); err != nil {
			return fmt.Errorf("next cart version: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return cleared, nil
}

func (r *CartRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *CartRepo) execTX(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %w; rollback err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// update applies fn to the locked cart row and saves the result. Without
// create, a missing cart is not inserted: fn sees an empty cart and nothing is
// written.
func (r *CartRepo) update(ctx context.Context, cartID string, create bool, fn func(*domain.Cart) error) (domain.Cart, error) {
	var out domain.Cart

	err := r.execTX(ctx, func(tx *sql.Tx) error {
		if create {
			if _, err := tx.ExecContext(ctx, ensureCartSQL, cartID); err != nil {
				return fmt.Errorf("ensure cart: %w", err)
			}
		}

		cart, err := scanCart(tx.QueryRowContext(ctx, lockCartSQL, cartID), cartID)
		if !create && errors.Is(err, sql.ErrNoRows) {
			empty := domain.NewCart(cartID)
			if err := fn(&empty); err != nil {
				return err
			}
			out = domain.NewCart(cartID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}

		if err := fn(&cart); err != nil {
			return err
		}
		cart.UpdatedAt = r.now().UTC()

		items, err := encodeItems(cart.Items)
		if err != nil {
			return err
		}
		err = tx.QueryRowContext(ctx, saveCartSQL,
			cartID, cart.CustomerEmail, string(items), cart.Total.StringFixed(2), cart.UpdatedAt,
		).Scan(&cart.Version)
		if err != nil {
			return fmt.Errorf("save cart: %w", err)
		}

		out = cart
		return nil
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return out, nil
}

func scanCart(row *sql.Row, cartID string) (domain.Cart, error) {
	var (
		email     string
		rawItems  []byte
		version   int64
		updatedAt time.Time
	)
	if err := row.Scan(&email, &rawItems, &version, &updatedAt); err != nil {
		return domain.Cart{}, err
	}

	items, err := decodeItems(rawItems)
	if err != nil {
		return domain.Cart{}, err
	}

	cart := domain.NewCart(cartID)
	cart.CustomerEmail = email
	cart.Items = items
	cart.UpdatedAt = updatedAt
	cart.Version = version
	cart.Recalculate()
	return cart, nil
}

func encodeItems(items []domain.CartItem) ([]byte, error) {
	rows := make([]itemRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, itemRow{
			ID:        it.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Price:     it.Price,
			Quantity:  it.Quantity,
			ImageURL:  it.ImageURL,
		})
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode cart items: %w", err)
	}
	return b, nil
}

func decodeItems(raw []byte) ([]domain.CartItem, error) {
	var rows []itemRow
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("decode cart items: %w", err)
		}
	}

	items := make([]domain.CartItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.CartItem{
			ID:        row.ID,
			ProductID: row.ProductID,
			VariantID: row.VariantID,
			Title:     row.Title,
			Price:     row.Price,
			Quantity:  row.Quantity,
			ImageURL:  row.ImageURL,
		})
	}
	return items, nil
}
