package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/luanatech/storefront/internal/catalog"
	"github.com/luanatech/storefront/internal/domain"
	"github.com/luanatech/storefront/pkg/httputil"
	"github.com/luanatech/storefront/pkg/pagination"
	"github.com/luanatech/storefront/pkg/slug"
	"github.com/luanatech/storefront/pkg/validator"
)

// Catalog is the set of catalog queries the HTTP surface exposes.
type Catalog interface {
	Categories(ctx context.Context) catalog.Result[[]domain.Category]
	CategoryListing(ctx context.Context, category, subcategory string) catalog.Result[*domain.ProductListing]
	CategoryProducts(ctx context.Context, category, subcategory string) catalog.Result[[]domain.Product]
	BrandProducts(ctx context.Context, brand string) catalog.Result[[]domain.Product]
}

// CatalogHandler handles HTTP requests for catalog endpoints. Upstream
// failures never surface as HTTP errors: the response carries the empty
// value and the degraded header.
type CatalogHandler struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(c Catalog, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: c,
		logger:  logger,
	}
}

// --- Path parameters ---

type categoryParams struct {
	Category    string `param:"category" validate:"required,slug"`
	Subcategory string `param:"subcategory" validate:"required,slug"`
}

type brandParams struct {
	Brand string `param:"brand" validate:"required,slug"`
}

// pathParam returns the decoded chi URL parameter.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// --- Handlers ---

// ListCategories handles GET /api/v1/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	res := h.catalog.Categories(r.Context())
	httputil.WriteData(w, res.Value, res.Degraded())
}

// GetCategoryListing handles GET /api/v1/categories/{category}/{subcategory}
// The data field is null when the listing could not be fetched.
func (h *CatalogHandler) GetCategoryListing(w http.ResponseWriter, r *http.Request) {
	params := categoryParams{
		Category:    pathParam(r, "category"),
		Subcategory: pathParam(r, "subcategory"),
	}
	if err := validator.Validate(params); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	res := h.catalog.CategoryListing(r.Context(), params.Category, params.Subcategory)
	httputil.WriteData(w, res.Value, res.Degraded())
}

// ListCategoryProducts handles GET /api/v1/categories/{category}/{subcategory}/products
func (h *CatalogHandler) ListCategoryProducts(w http.ResponseWriter, r *http.Request) {
	params := categoryParams{
		Category:    pathParam(r, "category"),
		Subcategory: pathParam(r, "subcategory"),
	}
	if err := validator.Validate(params); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	res := h.catalog.CategoryProducts(r.Context(), params.Category, params.Subcategory)
	writePage(w, res, pagination.FromRequest(r))
}

// ListBrandProducts handles GET /api/v1/brands/{brand}/products
// The brand is normalised first, so "UGREEN" and "ugreen" hit the same
// catalog path.
func (h *CatalogHandler) ListBrandProducts(w http.ResponseWriter, r *http.Request) {
	params := brandParams{Brand: slug.Generate(pathParam(r, "brand"))}
	if err := validator.Validate(params); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	res := h.catalog.BrandProducts(r.Context(), params.Brand)
	writePage(w, res, pagination.FromRequest(r))
}

// writePage writes one page of a product list. The paginated result is the
// envelope itself, so the list stays under the top-level data field.
func writePage(w http.ResponseWriter, res catalog.Result[[]domain.Product], params pagination.Params) {
	if res.Degraded() {
		w.Header().Set(httputil.DegradedHeader, "true")
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.Paginate(res.Value, params))
}
