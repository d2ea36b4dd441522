package domain

// Category is a top-level catalog category as listed by the remote API.
type Category struct {
	ID            ID            `json:"id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	Image         *string       `json:"image,omitempty"`
	Subcategories []Subcategory `json:"subcategories,omitempty"`
}

// Subcategory is a category nested under a Category.
type Subcategory struct {
	ID    ID      `json:"id"`
	Name  string  `json:"name"`
	Slug  string  `json:"slug"`
	Image *string `json:"image,omitempty"`
}
