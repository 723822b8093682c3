package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ali123/ali123/types"
)

const productColumns = `p.id, p.store_id, p.name, p.status, p.description, p.visibility, p.regular_price, p.sale_price, p.image_urls, p.created_at, p.updated_at`

type ProductStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewProductStore(db *sql.DB, dialect Dialect) *ProductStore {
	return &ProductStore{db: db, dialect: dialect, now: time.Now}
}

func (s *ProductStore) FindByExternalID(ctx context.Context, storeID int64, externalID string) (*types.Product, error) {
	query := s.dialect.Rebind(`
		SELECT ` + productColumns + `
		FROM products p
		JOIN product_meta m ON m.product_id = p.id
		WHERE p.store_id = ? AND m.meta_key = ? AND m.meta_value = ?
		ORDER BY p.id ASC
		LIMIT 1`)
	product, err := scanProduct(s.db.QueryRowContext(ctx, query, storeID, types.MetaExternalID, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find product by external id %q: %w", externalID, err)
	}
	return product, nil
}

func (s *ProductStore) Get(ctx context.Context, id int64) (*types.Product, error) {
	query := s.dialect.Rebind(`SELECT ` + productColumns + ` FROM products p WHERE p.id = ?`)
	product, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return product, nil
}

func (s *ProductStore) Save(ctx context.Context, product *types.Product) (int64, error) {
	now := types.CanonicalTime(s.now())
	images := product.ImageURLs
	if images == nil {
		images = []string{}
	}
	imageJSON, err := json.Marshal(images)
	if err != nil {
		return 0, fmt.Errorf("encode image urls: %w", err)
	}

	if product.ID == 0 {
		query := s.dialect.Rebind(`
			INSERT INTO products (store_id, name, status, description, visibility, regular_price, sale_price, image_urls, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`)
		var id int64
		err := s.db.QueryRowContext(ctx, query,
			product.StoreID, product.Name, product.Status, product.Description, product.Visibility,
			nullFloat(product.RegularPrice), nullFloat(product.SalePrice), string(imageJSON), now, now,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert product: %w", err)
		}
		product.ID = id
		product.CreatedAt = now
		product.UpdatedAt = now
		return id, nil
	}

	query := s.dialect.Rebind(`
		UPDATE products
		SET name = ?, status = ?, description = ?, visibility = ?, regular_price = ?, sale_price = ?, image_urls = ?, updated_at = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query,
		product.Name, product.Status, product.Description, product.Visibility,
		nullFloat(product.RegularPrice), nullFloat(product.SalePrice), string(imageJSON), now, product.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("update product %d: %w", product.ID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return 0, fmt.Errorf("no product found with id %d", product.ID)
	}
	product.UpdatedAt = now
	return product.ID, nil
}

func (s *ProductStore) SetMeta(ctx context.Context, productID int64, key, value string) error {
	query := s.dialect.Rebind(`
		INSERT INTO product_meta (product_id, meta_key, meta_value)
		VALUES (?, ?, ?)
		ON CONFLICT (product_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value`)
	if _, err := s.db.ExecContext(ctx, query, productID, key, value); err != nil {
		return fmt.Errorf("set product %d meta %s: %w", productID, key, err)
	}
	return nil
}

func (s *ProductStore) GetMeta(ctx context.Context, productID int64, key string) (string, bool, error) {
	query := s.dialect.Rebind(`SELECT meta_value FROM product_meta WHERE product_id = ? AND meta_key = ?`)
	var value string
	if err := s.db.QueryRowContext(ctx, query, productID, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get product %d meta %s: %w", productID, key, err)
	}
	return value, true, nil
}

func scanProduct(row rowScanner) (*types.Product, error) {
	var (
		p       types.Product
		status  string
		vis     string
		regular sql.NullFloat64
		sale    sql.NullFloat64
		images  []byte
	)
	err := row.Scan(&p.ID, &p.StoreID, &p.Name, &status, &p.Description, &vis, &regular, &sale, &images, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = types.ProductStatus(status)
	p.Visibility = types.Visibility(vis)
	if regular.Valid {
		v := regular.Float64
		p.RegularPrice = &v
	}
	if sale.Valid {
		v := sale.Float64
		p.SalePrice = &v
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.ImageURLs); err != nil {
			return nil, fmt.Errorf("decode image urls of product %d: %w", p.ID, err)
		}
	}
	return &p, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
