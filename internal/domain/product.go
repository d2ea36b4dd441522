package domain

import "github.com/shopspring/decimal"

// Product is a read-only projection of a remote catalog product. Decoding is
// structural: unknown fields are ignored and missing ones stay zero.
type Product struct {
	ID            ID                  `json:"id"`
	Name          string              `json:"name"`
	Slug          string              `json:"slug,omitempty"`
	SKU           string              `json:"sku,omitempty"`
	Description   string              `json:"description,omitempty"`
	Price         decimal.Decimal     `json:"price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	Stock         int                 `json:"stock"`
	Images        []string            `json:"images,omitempty"`
	BrandID       ID                  `json:"brand,omitempty"`
	CategoryID    ID                  `json:"category,omitempty"`
	SubcategoryID ID                  `json:"subcategory,omitempty"`
}

// EffectivePrice returns the discounted price when one is set and lower than
// the list price, otherwise the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice.Valid && p.DiscountPrice.Decimal.IsPositive() && p.DiscountPrice.Decimal.LessThan(p.Price) {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

// InStock reports whether the product has stock available.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// ProductListing is the category detail payload: the category and
// subcategory being browsed and the products filed under them.
type ProductListing struct {
	Category    Category    `json:"category"`
	Subcategory Subcategory `json:"subcategory"`
	Products    []Product   `json:"products"`
}
