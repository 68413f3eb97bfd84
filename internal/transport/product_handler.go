package transport

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"catalog-api/internal/middleware"
	"catalog-api/internal/repository"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxUploadSize caps the in-memory size of multipart product payloads.
const maxUploadSize = 10 << 20 // 10 MiB

// CreateProductRequest represents the multipart create payload
type CreateProductRequest struct {
	Name     string  `validate:"required"`
	Price    float64 `validate:"gte=0"`
	Stock    int     `validate:"gte=0"`
	Category string  `validate:"required"`
}

// ProductHandler handles HTTP requests for catalog operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all catalog routes. Mutations and the admin list
// sit behind the auth + admin middleware pair.
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/v1/products", func(r chi.Router) {
		// Public routes
		r.Get("/latest", h.GetLatest)
		r.Get("/high-price", h.GetHighPrice)
		r.Get("/categories", h.GetCategories)
		r.Get("/all", h.Search)
		r.Get("/single/{productID}", h.GetSingle)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(adminMiddleware)
			r.Post("/new", h.Create)
			r.Get("/admin-products", h.AdminList)
			r.Put("/single/{productID}", h.Update)
			r.Delete("/single/{productID}", h.Delete)
		})
	})
}

// Create handles POST /new: multipart form with name, price, stock,
// category and a photo file.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req := CreateProductRequest{
		Name:     r.FormValue("name"),
		Category: r.FormValue("category"),
	}

	var err error
	if req.Price, err = parseFloatField(r.FormValue("price")); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "price must be a non-negative number")
		return
	}
	if req.Stock, err = parseIntField(r.FormValue("stock")); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "stock must be a non-negative integer")
		return
	}

	if err := middleware.ValidateStruct(req); err != nil {
		if msg := middleware.ValidationMessage(err); msg != "" {
			middleware.RespondWithError(w, http.StatusBadRequest, msg)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}

	photo, err := readPhoto(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "please provide a product photo")
		return
	}

	product, err := h.productService.Create(r.Context(), service.CreateProductInput{
		Name:     req.Name,
		Price:    req.Price,
		Stock:    req.Stock,
		Category: req.Category,
		Photo:    photo,
	})
	if err != nil {
		h.logger.Debug("Product creation failed", zap.Error(err))
		h.respondServiceError(w, err)
		return
	}

	h.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	middleware.RespondWithSuccess(w, http.StatusCreated, "product created successfully", product)
}

// GetLatest handles GET /latest
func (h *ProductHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.Latest(r.Context())
	if err != nil {
		h.logger.Error("Failed to get latest products", zap.Error(err))
		h.respondServiceError(w, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, "", products)
}

// GetHighPrice handles GET /high-price
func (h *ProductHandler) GetHighPrice(w http.ResponseWriter, r *http.Request) {
	price, err := h.productService.HighestPrice(r.Context())
	if err != nil {
		h.logger.Error("Failed to get highest price", zap.Error(err))
		h.respondServiceError(w, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, "", map[string]float64{"high_price": price})
}

// GetCategories handles GET /categories
func (h *ProductHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.productService.Categories(r.Context())
	if err != nil {
		h.logger.Error("Failed to get categories", zap.Error(err))
		h.respondServiceError(w, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, "", categories)
}

// AdminList handles GET /admin-products
func (h *ProductHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.AdminList(r.Context())
	if err != nil {
		h.logger.Error("Failed to get admin product list", zap.Error(err))
		h.respondServiceError(w, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, "", products)
}

// GetSingle handles GET /single/{productID}
func (h *ProductHandler) GetSingle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseProductID(w, r)
	if !ok {
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		h.logger.Debug("Failed to get product", zap.String("product_id", id.String()), zap.Error(err))
		h.respondServiceError(w, err)
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, "", product)
}

// Update handles PUT /single/{productID}: multipart form where every field
// is optional but at least one must be present. A field that is present but
// zero is applied as zero.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseProductID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var in service.UpdateProductInput

	if name, provided := formField(r, "name"); provided {
		in.Name = &name
	}
	if category, provided := formField(r, "category"); provided {
		in.Category = &category
	}
	if raw, provided := formField(r, "price"); provided {
		price, err := parseFloatField(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "price must be a non-negative number")
			return
		}
		in.Price = &price
	}
	if raw, provided := formField(r, "stock"); provided {
		stock, err := parseIntField(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "stock must be a non-negative integer")
			return
		}
		in.Stock = &stock
	}
	if photo, err := readPhoto(r); err == nil {
		in.Photo = photo
	}

	product, err := h.productService.Update(r.Context(), id, in)
	if err != nil {
		h.logger.Debug("Product update failed", zap.String("product_id", id.String()), zap.Error(err))
		h.respondServiceError(w, err)
		return
	}

	h.logger.Info("Product updated", zap.String("product_id", product.ID.String()))
	middleware.RespondWithSuccess(w, http.StatusOK, "product updated successfully", product)
}

// Delete handles DELETE /single/{productID}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseProductID(w, r)
	if !ok {
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		h.logger.Debug("Product deletion failed", zap.String("product_id", id.String()), zap.Error(err))
		h.respondServiceError(w, err)
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	middleware.RespondWithSuccess(w, http.StatusOK, "product deleted successfully", nil)
}

// Search handles GET /all with optional search, price, category, sort and
// page query parameters.
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := service.SearchParams{
		Search:   query.Get("search"),
		Category: query.Get("category"),
		Sort:     query.Get("sort"),
	}

	if raw := query.Get("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "price must be a number")
			return
		}
		params.MaxPrice = &price
	}

	// An absent or unparsable page collapses to page 1.
	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		params.Page = page
	}

	result, err := h.productService.Search(r.Context(), params)
	if err != nil {
		h.logger.Error("Product search failed", zap.Error(err))
		h.respondServiceError(w, err)
		return
	}

	middleware.RespondWithSuccess(w, http.StatusOK, "", result)
}

func (h *ProductHandler) parseProductID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps service and repository errors onto status codes.
func (h *ProductHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, repository.ErrProductAlreadyExists):
		middleware.RespondWithError(w, http.StatusConflict, "please choose a unique product name")
	case errors.Is(err, service.ErrMissingPhoto),
		errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrNothingToUpdate):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// formField reports whether a multipart field was present at all,
// distinguishing "absent" from "provided as zero/empty".
func formField(r *http.Request, name string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	values, ok := r.MultipartForm.Value[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func readPhoto(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("photo")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func parseFloatField(raw string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return 0, errors.New("invalid numeric field")
	}
	return value, nil
}

func parseIntField(raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errors.New("invalid integer field")
	}
	return value, nil
}
