package catalog

import (
	"context"
	"fmt"

	"github.com/luanatech/storefront/internal/domain"
)

// Operation names, used in logs, metrics, spans and failure events.
const (
	OpCategories       = "categories"
	OpCategoryListing  = "category_listing"
	OpCategoryProducts = "category_products"
	OpBrandProducts    = "brand_products"
)

// Categories lists the catalog categories from /api/categorys/.
// On failure Value is an empty, non-nil slice.
func (c *Client) Categories(ctx context.Context) Result[[]domain.Category] {
	ep := endpoint{
		operation: OpCategories,
		origin:    c.categoriesOrigin,
		path:      "/api/categorys/",
	}
	return nonNil(query(ctx, c, ep, []domain.Category{}))
}

// CategoryListing fetches the detail of a category/subcategory pair. On
// failure Value is nil.
func (c *Client) CategoryListing(ctx context.Context, category, subcategory string) Result[*domain.ProductListing] {
	ep := endpoint{
		operation: OpCategoryListing,
		origin:    c.baseURL,
		path:      buildPath("/api/categorys/categoria/detalle/", category, subcategory),
	}
	if err := requireArgs("category", category, "subcategory", subcategory); err != nil {
		return rejected(ctx, c, ep, (*domain.ProductListing)(nil), err)
	}

	r := query[*domain.ProductListing](ctx, c, ep, nil)
	if r.OK() && r.Value != nil && r.Value.Products == nil {
		r.Value.Products = []domain.Product{}
	}
	return r
}

// CategoryProducts lists the products filed under a category/subcategory
// pair. On failure Value is an empty, non-nil slice.
func (c *Client) CategoryProducts(ctx context.Context, category, subcategory string) Result[[]domain.Product] {
	ep := endpoint{
		operation: OpCategoryProducts,
		origin:    c.baseURL,
		path:      buildPath("/api/products/filter/", category, subcategory),
	}
	if err := requireArgs("category", category, "subcategory", subcategory); err != nil {
		return rejected(ctx, c, ep, []domain.Product{}, err)
	}
	return nonNil(query(ctx, c, ep, []domain.Product{}))
}

// BrandProducts lists the products of a brand. On failure Value is an empty,
// non-nil slice.
func (c *Client) BrandProducts(ctx context.Context, brand string) Result[[]domain.Product] {
	ep := endpoint{
		operation: OpBrandProducts,
		origin:    c.baseURL,
		path:      buildPath("/api/brands/", brand) + "products/",
	}
	if err := requireArgs("brand", brand); err != nil {
		return rejected(ctx, c, ep, []domain.Product{}, err)
	}
	return nonNil(query(ctx, c, ep, []domain.Product{}))
}

// FetchCategory returns the category list, or an empty slice on any failure.
func (c *Client) FetchCategory(ctx context.Context) []domain.Category {
	return c.Categories(ctx).Value
}

// FetchListProductCategory returns the category/subcategory listing, or nil
// on any failure.
func (c *Client) FetchListProductCategory(ctx context.Context, category, subcategory string) *domain.ProductListing {
	return c.CategoryListing(ctx, category, subcategory).Value
}

// FetchFilterProductCategorySubCategory returns the products of a
// category/subcategory pair, or an empty slice on any failure.
func (c *Client) FetchFilterProductCategorySubCategory(ctx context.Context, category, subcategory string) []domain.Product {
	return c.CategoryProducts(ctx, category, subcategory).Value
}

// FetchListProductBrand returns the products of a brand, or an empty slice on
// any failure.
func (c *Client) FetchListProductBrand(ctx context.Context, brand string) []domain.Product {
	return c.BrandProducts(ctx, brand).Value
}

// rejected settles a query whose arguments failed validation. No request is
// sent.
func rejected[T any](ctx context.Context, c *Client, ep endpoint, empty T, err error) Result[T] {
	ctx, span := c.tracer.Start(ctx, "catalog."+ep.operation)
	defer span.End()

	err = fmt.Errorf("%s: %w", ep.operation, err)
	c.absorb(ctx, span, ep, err)
	return failed(empty, err)
}

// nonNil turns a successful JSON null list into an empty slice so callers
// can always range and len without a nil check.
func nonNil[E any](r Result[[]E]) Result[[]E] {
	if r.Value == nil {
		r.Value = []E{}
	}
	return r
}
