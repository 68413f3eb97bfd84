package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"catalog-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/errgroup"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductAlreadyExists = errors.New("product with this name already exists")
)

// pgUniqueViolation is the Postgres error code raised by the unique index on
// product names.
const pgUniqueViolation = "23505"

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	// Delete removes the product and returns its last persisted state in a
	// single statement.
	Delete(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByName(ctx context.Context, name string) (*domain.Product, error)
	Latest(ctx context.Context, limit int) ([]domain.Product, error)
	HighestPrice(ctx context.Context) (float64, error)
	Categories(ctx context.Context) ([]string, error)
	ListAll(ctx context.Context) ([]domain.Product, error)
	// Search runs the filtered page query and the companion count query
	// concurrently and returns the page plus the total match count.
	Search(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = "id, name, price, stock, category, photo_public_id, photo_url, created_at, updated_at"

func scanProduct(row interface{ Scan(dest ...any) error }) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Stock,
		&product.Category,
		&product.Photo.PublicID,
		&product.Photo.URL,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func collectProducts(rows *sql.Rows) ([]domain.Product, error) {
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Create inserts a new product. A unique-index violation on the name maps to
// ErrProductAlreadyExists so concurrent duplicate creates cannot both land.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, price, stock, category, photo_public_id, photo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Price,
		product.Stock,
		product.Category,
		product.Photo.PublicID,
		product.Photo.URL,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrProductAlreadyExists
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update replaces the mutable fields of an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, price = $3, stock = $4, category = $5,
		    photo_public_id = $6, photo_url = $7, updated_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Price,
		product.Stock,
		product.Category,
		product.Photo.PublicID,
		product.Photo.URL,
		product.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrProductAlreadyExists
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product and returns the deleted row, so the caller can
// release the remote image asset without a separate fetch.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := fmt.Sprintf(`DELETE FROM products WHERE id = $1 RETURNING %s`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}

	return product, nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindByName retrieves a product by its exact (lowercased) name
func (r *productRepository) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE name = $1`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by name: %w", err)
	}

	return product, nil
}

// Latest returns the newest products by creation time
func (r *productRepository) Latest(ctx context.Context, limit int) ([]domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY created_at DESC LIMIT $1`, productColumns)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest products: %w", err)
	}

	return collectProducts(rows)
}

// HighestPrice returns the maximum price across all products, 0 for an
// empty catalog.
func (r *productRepository) HighestPrice(ctx context.Context) (float64, error) {
	var price float64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(price), 0) FROM products`).Scan(&price)
	if err != nil {
		return 0, fmt.Errorf("failed to find highest price: %w", err)
	}
	return price, nil
}

// Categories returns the distinct category values
func (r *productRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// ListAll returns every product, newest first
func (r *productRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY created_at DESC`, productColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return collectProducts(rows)
}

// Search executes the filter's page query and count query concurrently under
// the same WHERE clause. A page past the last match yields an empty slice.
func (r *productRepository) Search(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error) {
	filter = filter.Normalize()
	where, args := filter.whereClause()

	pageQuery := fmt.Sprintf(
		`SELECT %s FROM products %s %s LIMIT $%d OFFSET $%d`,
		productColumns, where, filter.orderClause(), len(args)+1, len(args)+2,
	)
	pageArgs := append(append([]any{}, args...), filter.PageSize, filter.Offset())

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM products %s`, where)

	var (
		products []domain.Product
		total    int
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := r.db.QueryContext(gCtx, pageQuery, pageArgs...)
		if err != nil {
			return fmt.Errorf("failed to search products: %w", err)
		}
		products, err = collectProducts(rows)
		return err
	})

	g.Go(func() error {
		if err := r.db.QueryRowContext(gCtx, countQuery, args...).Scan(&total); err != nil {
			return fmt.Errorf("failed to count search results: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}
