package storefront

import (
	"context"
	"log/slog"
	"sync"

	"github.com/luanatech/storefront/internal/catalog"
	"github.com/luanatech/storefront/internal/domain"
	"github.com/luanatech/storefront/pkg/logger"
)

// Section names reported in HomePage.Degraded.
const (
	SectionCategories = "categories"
	SectionLaptops    = "laptops"
	SectionAdapters   = "adapters"
)

// Catalog is the subset of the catalog client the home page needs.
type Catalog interface {
	Categories(ctx context.Context) catalog.Result[[]domain.Category]
	CategoryProducts(ctx context.Context, category, subcategory string) catalog.Result[[]domain.Product]
	BrandProducts(ctx context.Context, brand string) catalog.Result[[]domain.Product]
}

// Metadata is the page title and description.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Section is a titled product strip.
type Section struct {
	Title    string           `json:"title"`
	Products []domain.Product `json:"products"`
}

// HomePage is everything the storefront home renders. Sections whose query
// failed are empty and listed in Degraded.
type HomePage struct {
	Metadata   Metadata          `json:"metadata"`
	Categories []domain.Category `json:"categories"`
	Laptops    Section           `json:"laptops"`
	Adapters   Section           `json:"adapters"`
	Degraded   []string          `json:"degraded"`
}

// IsDegraded reports whether any section fell back to empty.
func (h *HomePage) IsDegraded() bool {
	return len(h.Degraded) > 0
}

// HomeConfig selects what the home page sections show.
type HomeConfig struct {
	Title              string
	Description        string
	LaptopsTitle       string
	LaptopsCategory    string
	LaptopsSubcategory string
	AdaptersTitle      string
	AdaptersBrand      string
}

// DefaultHomeConfig returns the storefront's stock home page.
func DefaultHomeConfig() HomeConfig {
	return HomeConfig{
		Title:              "Corporacion Luana",
		Description:        "Tienda de corporacion luana",
		LaptopsTitle:       "Laptops",
		LaptopsCategory:    "02",
		LaptopsSubcategory: "095",
		AdaptersTitle:      "Adquiere lo mejor en adaptadores",
		AdaptersBrand:      "ugreen",
	}
}

// HomeService composes the home page from independent catalog queries.
type HomeService struct {
	catalog Catalog
	cfg     HomeConfig
	logger  *slog.Logger
}

// NewHomeService creates a new home page composer.
func NewHomeService(c Catalog, cfg HomeConfig, logger *slog.Logger) *HomeService {
	return &HomeService{catalog: c, cfg: cfg, logger: logger}
}

// Home runs the three home queries concurrently and waits for all of them.
// It never fails: a failed query leaves its section empty.
func (s *HomeService) Home(ctx context.Context) *HomePage {
	var (
		wg         sync.WaitGroup
		categories catalog.Result[[]domain.Category]
		laptops    catalog.Result[[]domain.Product]
		adapters   catalog.Result[[]domain.Product]
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		categories = s.catalog.Categories(ctx)
	}()
	go func() {
		defer wg.Done()
		laptops = s.catalog.CategoryProducts(ctx, s.cfg.LaptopsCategory, s.cfg.LaptopsSubcategory)
	}()
	go func() {
		defer wg.Done()
		adapters = s.catalog.BrandProducts(ctx, s.cfg.AdaptersBrand)
	}()
	wg.Wait()

	page := &HomePage{
		Metadata: Metadata{
			Title:       s.cfg.Title,
			Description: s.cfg.Description,
		},
		Categories: orEmpty(categories.Value),
		Laptops:    Section{Title: s.cfg.LaptopsTitle, Products: orEmpty(laptops.Value)},
		Adapters:   Section{Title: s.cfg.AdaptersTitle, Products: orEmpty(adapters.Value)},
		Degraded:   []string{},
	}

	if categories.Degraded() {
		page.Degraded = append(page.Degraded, SectionCategories)
	}
	if laptops.Degraded() {
		page.Degraded = append(page.Degraded, SectionLaptops)
	}
	if adapters.Degraded() {
		page.Degraded = append(page.Degraded, SectionAdapters)
	}

	if page.IsDegraded() {
		logger.WithContext(ctx, s.logger).InfoContext(ctx, "home page served degraded",
			slog.Any("sections", page.Degraded),
		)
	}
	return page
}

func orEmpty[E any](s []E) []E {
	if s == nil {
		return []E{}
	}
	return s
}
