package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog-api/internal/cache"
	"catalog-api/internal/domain"
	"catalog-api/internal/media"
	"catalog-api/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrMissingFields   = errors.New("name, price, stock and category are all required")
	ErrMissingPhoto    = errors.New("a product photo is required")
	ErrNothingToUpdate = errors.New("no fields provided to update")
)

// CreateProductInput carries the fields required to create a product. Photo
// holds the raw image bytes destined for the media store.
type CreateProductInput struct {
	Name     string
	Price    float64
	Stock    int
	Category string
	Photo    []byte
}

// UpdateProductInput is a partial update. Nil pointers mean "leave
// unchanged"; a pointer to a zero value is an explicit update to zero. An
// empty Photo keeps the current image.
type UpdateProductInput struct {
	Name     *string
	Price    *float64
	Stock    *int
	Category *string
	Photo    []byte
}

// SearchParams are the optional search/filter/pagination inputs.
type SearchParams struct {
	Search   string
	MaxPrice *float64
	Category string
	Sort     string
	Page     int
}

// SearchResult is a single page of filtered products plus the page count
// computed under the same filter.
type SearchResult struct {
	TotalPages int              `json:"total_pages"`
	Products   []domain.Product `json:"filtered_products"`
}

// ProductService defines the catalog's business operations.
type ProductService interface {
	Create(ctx context.Context, in CreateProductInput) (*domain.Product, error)
	Latest(ctx context.Context) ([]domain.Product, error)
	HighestPrice(ctx context.Context) (float64, error)
	Categories(ctx context.Context) ([]string, error)
	AdminList(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)
}

// Config holds the catalog tunables the service needs.
type Config struct {
	PageSize     int
	LatestLimit  int
	UploadFolder string
}

type productService struct {
	repo       repository.ProductRepository
	mediaStore media.Store
	cache      cache.Cache
	cfg        Config
}

// NewProductService creates a new instance of ProductService
func NewProductService(repo repository.ProductRepository, mediaStore media.Store, c cache.Cache, cfg Config) ProductService {
	if cfg.PageSize < 1 {
		cfg.PageSize = repository.DefaultPageSize
	}
	if cfg.LatestLimit < 1 {
		cfg.LatestLimit = 5
	}
	if cfg.UploadFolder == "" {
		cfg.UploadFolder = "products"
	}
	return &productService{
		repo:       repo,
		mediaStore: mediaStore,
		cache:      c,
		cfg:        cfg,
	}
}

// cached reads a typed value through the cache: on a hit the entry is
// deserialized, on a miss (or an undecodable entry) the value is fetched
// from the store and written back. Serialization happens only at this
// boundary; callers deal in typed values.
func cached[T any](ctx context.Context, c cache.Cache, key string, fetch func() (T, error)) (T, error) {
	if data, ok := c.Get(ctx, key); ok {
		var value T
		if err := json.Unmarshal(data, &value); err == nil {
			return value, nil
		}
	}

	value, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}

	if data, err := json.Marshal(value); err == nil {
		c.Set(ctx, key, data)
	}
	return value, nil
}

// Create validates the input, uploads the image and persists the product.
// The unique index on name is the uniqueness contract; the FindByName call
// is only a fast path that rejects duplicates before paying for the upload.
// If persisting fails after the upload succeeded, the uploaded asset is left
// behind (no compensation), matching the documented behavior.
func (s *productService) Create(ctx context.Context, in CreateProductInput) (*domain.Product, error) {
	if len(in.Photo) == 0 {
		return nil, ErrMissingPhoto
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Category) == "" || in.Price < 0 || in.Stock < 0 {
		return nil, ErrMissingFields
	}

	name := strings.ToLower(strings.TrimSpace(in.Name))
	category := strings.ToLower(strings.TrimSpace(in.Category))

	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return nil, repository.ErrProductAlreadyExists
	} else if !errors.Is(err, repository.ErrProductNotFound) {
		return nil, fmt.Errorf("failed to check for existing product: %w", err)
	}

	asset, err := s.mediaStore.Upload(ctx, in.Photo, s.cfg.UploadFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to upload product photo: %w", err)
	}

	now := time.Now()
	product := &domain.Product{
		ID:       uuid.New(),
		Name:     name,
		Price:    in.Price,
		Stock:    in.Stock,
		Category: category,
		Photo: domain.Photo{
			PublicID: asset.PublicID,
			URL:      asset.URL,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.MatchKeys(cache.ListKeys()...))

	return product, nil
}

// Latest returns the newest products, served from cache when possible.
func (s *productService) Latest(ctx context.Context) ([]domain.Product, error) {
	return cached(ctx, s.cache, cache.KeyLatestProducts, func() ([]domain.Product, error) {
		return s.repo.Latest(ctx, s.cfg.LatestLimit)
	})
}

// HighestPrice returns the maximum product price across the catalog.
func (s *productService) HighestPrice(ctx context.Context) (float64, error) {
	return cached(ctx, s.cache, cache.KeyHighPrice, func() (float64, error) {
		return s.repo.HighestPrice(ctx)
	})
}

// Categories returns the distinct category values.
func (s *productService) Categories(ctx context.Context) ([]string, error) {
	return cached(ctx, s.cache, cache.KeyCategories, func() ([]string, error) {
		return s.repo.Categories(ctx)
	})
}

// AdminList returns every product, newest first.
func (s *productService) AdminList(ctx context.Context) ([]domain.Product, error) {
	return cached(ctx, s.cache, cache.KeyAdminProducts, func() ([]domain.Product, error) {
		return s.repo.ListAll(ctx)
	})
}

// Get returns a single product by id, read through its own cache key.
func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return cached(ctx, s.cache, cache.ProductKey(id.String()), func() (*domain.Product, error) {
		return s.repo.FindByID(ctx, id)
	})
}

// Update applies the provided fields to an existing product. A new photo
// replaces the remote asset: the old one is removed first, then the new one
// uploaded.
func (s *productService) Update(ctx context.Context, id uuid.UUID, in UpdateProductInput) (*domain.Product, error) {
	if in.Name == nil && in.Price == nil && in.Stock == nil && in.Category == nil && len(in.Photo) == 0 {
		return nil, ErrNothingToUpdate
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		product.Name = strings.ToLower(strings.TrimSpace(*in.Name))
	}
	if in.Price != nil {
		product.Price = *in.Price
	}
	if in.Stock != nil {
		product.Stock = *in.Stock
	}
	if in.Category != nil {
		product.Category = strings.ToLower(strings.TrimSpace(*in.Category))
	}

	if len(in.Photo) > 0 {
		if err := s.mediaStore.Remove(ctx, product.Photo.PublicID); err != nil {
			return nil, fmt.Errorf("failed to remove old product photo: %w", err)
		}
		asset, err := s.mediaStore.Upload(ctx, in.Photo, s.cfg.UploadFolder)
		if err != nil {
			return nil, fmt.Errorf("failed to upload product photo: %w", err)
		}
		product.Photo = domain.Photo{PublicID: asset.PublicID, URL: asset.URL}
	}

	product.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.MatchKeys(cache.AfterMutation(id.String())...))

	return product, nil
}

// Delete removes the product and its remote image asset.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	if err := s.mediaStore.Remove(ctx, product.Photo.PublicID); err != nil {
		return fmt.Errorf("failed to remove product photo: %w", err)
	}

	s.cache.Invalidate(ctx, cache.MatchKeys(cache.AfterMutation(id.String())...))

	return nil
}

// Search runs the filtered page and count queries and derives the page
// count. A page beyond the last match returns an empty page, not an error.
func (s *productService) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	filter := repository.ProductFilter{
		Search:   params.Search,
		MaxPrice: params.MaxPrice,
		Category: params.Category,
		Sort:     params.Sort,
		Page:     params.Page,
		PageSize: s.cfg.PageSize,
	}

	products, total, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := (total + s.cfg.PageSize - 1) / s.cfg.PageSize

	return &SearchResult{
		TotalPages: totalPages,
		Products:   products,
	}, nil
}
