package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"catalog-api/internal/database"
	"catalog-api/internal/domain"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// ProductRepositorySuite exercises the Postgres implementation against a
// real database started in a container.
type ProductRepositorySuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	db          *sql.DB
	repo        ProductRepository
	ctx         context.Context
}

func (s *ProductRepositorySuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("catalog_test"),
		postgres.WithUsername("catalog"),
		postgres.WithPassword("catalog"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string")

	s.db, err = sql.Open("pgx", connStr)
	require.NoError(s.T(), err, "Failed to open database")
	require.NoError(s.T(), s.db.PingContext(s.ctx), "Failed to ping database")

	migrationsDir, err := filepath.Abs("../../migrations")
	require.NoError(s.T(), err)
	require.NoError(s.T(), database.RunMigrations(s.db, migrationsDir, zap.NewNop()), "Failed to run migrations")

	s.repo = NewProductRepository(s.db)
}

func (s *ProductRepositorySuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.pgContainer != nil {
		s.pgContainer.Terminate(s.ctx)
	}
}

func (s *ProductRepositorySuite) SetupTest() {
	_, err := s.db.ExecContext(s.ctx, "TRUNCATE products")
	require.NoError(s.T(), err)
}

func (s *ProductRepositorySuite) newProduct(name string, price float64, category string) *domain.Product {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Product{
		ID:       uuid.New(),
		Name:     name,
		Price:    price,
		Stock:    5,
		Category: category,
		Photo: domain.Photo{
			PublicID: "products/" + name,
			URL:      "https://res.example.com/products/" + name + ".png",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *ProductRepositorySuite) TestCreateAndFindByID() {
	product := s.newProduct("shirt", 20, "apparel")
	require.NoError(s.T(), s.repo.Create(s.ctx, product))

	found, err := s.repo.FindByID(s.ctx, product.ID)
	require.NoError(s.T(), err)
	s.Equal(product.Name, found.Name)
	s.Equal(product.Price, found.Price)
	s.Equal(product.Stock, found.Stock)
	s.Equal(product.Category, found.Category)
	s.Equal(product.Photo, found.Photo)
}

func (s *ProductRepositorySuite) TestCreateDuplicateNameRejected() {
	require.NoError(s.T(), s.repo.Create(s.ctx, s.newProduct("shirt", 20, "apparel")))

	err := s.repo.Create(s.ctx, s.newProduct("shirt", 25, "apparel"))
	s.True(errors.Is(err, ErrProductAlreadyExists), "unique index must reject duplicate names, got %v", err)

	// Exactly one document persisted.
	var count int
	require.NoError(s.T(), s.db.QueryRowContext(s.ctx, "SELECT COUNT(*) FROM products").Scan(&count))
	s.Equal(1, count)
}

func (s *ProductRepositorySuite) TestFindByIDNotFound() {
	_, err := s.repo.FindByID(s.ctx, uuid.New())
	s.True(errors.Is(err, ErrProductNotFound))
}

func (s *ProductRepositorySuite) TestDeleteReturnsRow() {
	product := s.newProduct("mug", 8, "kitchen")
	require.NoError(s.T(), s.repo.Create(s.ctx, product))

	deleted, err := s.repo.Delete(s.ctx, product.ID)
	require.NoError(s.T(), err)
	s.Equal(product.Photo.PublicID, deleted.Photo.PublicID)

	_, err = s.repo.FindByID(s.ctx, product.ID)
	s.True(errors.Is(err, ErrProductNotFound))

	_, err = s.repo.Delete(s.ctx, product.ID)
	s.True(errors.Is(err, ErrProductNotFound))
}

func (s *ProductRepositorySuite) TestLatestOrderAndLimit() {
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		p := s.newProduct(uuid.NewString(), float64(i), "misc")
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		p.UpdatedAt = p.CreatedAt
		require.NoError(s.T(), s.repo.Create(s.ctx, p))
	}

	latest, err := s.repo.Latest(s.ctx, 5)
	require.NoError(s.T(), err)
	s.Len(latest, 5)
	for i := 1; i < len(latest); i++ {
		s.False(latest[i].CreatedAt.After(latest[i-1].CreatedAt), "latest must be newest first")
	}
}

func (s *ProductRepositorySuite) TestHighestPrice() {
	price, err := s.repo.HighestPrice(s.ctx)
	require.NoError(s.T(), err)
	s.Equal(0.0, price, "empty catalog reports 0")

	require.NoError(s.T(), s.repo.Create(s.ctx, s.newProduct("cheap", 3, "misc")))
	require.NoError(s.T(), s.repo.Create(s.ctx, s.newProduct("dear", 250, "misc")))

	price, err = s.repo.HighestPrice(s.ctx)
	require.NoError(s.T(), err)
	s.Equal(250.0, price)
}

func (s *ProductRepositorySuite) TestCategoriesDistinct() {
	require.NoError(s.T(), s.repo.Create(s.ctx, s.newProduct("a", 1, "apparel")))
	require.NoError(s.T(), s.repo.Create(s.ctx, s.newProduct("b", 2, "apparel")))
	require.NoError(s.T(), s.repo.Create(s.ctx, s.newProduct("c", 3, "shoes")))

	categories, err := s.repo.Categories(s.ctx)
	require.NoError(s.T(), err)
	s.Equal([]string{"apparel", "shoes"}, categories)
}

func (s *ProductRepositorySuite) TestSearchFilterSortAndPaginate() {
	prices := []float64{10, 20, 30, 40, 150}
	for i, price := range prices {
		name := "item-" + uuid.NewString()
		if i == 0 {
			name = "red-shirt-" + uuid.NewString()
		}
		require.NoError(s.T(), s.repo.Create(s.ctx, s.newProduct(name, price, "apparel")))
	}

	// Price bound
	maxPrice := 100.0
	products, total, err := s.repo.Search(s.ctx, ProductFilter{MaxPrice: &maxPrice, PageSize: 10})
	require.NoError(s.T(), err)
	s.Equal(4, total)
	for _, p := range products {
		s.LessOrEqual(p.Price, 100.0)
	}

	// Ascending sort
	products, _, err = s.repo.Search(s.ctx, ProductFilter{Sort: SortAscending, PageSize: 10})
	require.NoError(s.T(), err)
	for i := 1; i < len(products); i++ {
		s.GreaterOrEqual(products[i].Price, products[i-1].Price)
	}

	// Case-insensitive substring search
	_, total, err = s.repo.Search(s.ctx, ProductFilter{Search: "RED-SHIRT", PageSize: 10})
	require.NoError(s.T(), err)
	s.Equal(1, total)

	// Page beyond the last match is empty, not an error
	products, total, err = s.repo.Search(s.ctx, ProductFilter{Page: 99, PageSize: 10})
	require.NoError(s.T(), err)
	s.Equal(5, total)
	s.Empty(products)
}

func TestProductRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping repository integration tests in short mode")
	}
	suite.Run(t, new(ProductRepositorySuite))
}
