package catalog

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/example/duka-storefront/internal/api"
)

// Backend is the read-side slice of the storefront API the catalog
// needs; *api.Client satisfies it.
type Backend interface {
	ListProducts(ctx context.Context, categorySlug string) ([]api.Product, error)
	GetProduct(ctx context.Context, productID int64) (*api.Product, error)
	ListFeaturedProducts(ctx context.Context) ([]api.Product, error)
	ListCategories(ctx context.Context) ([]api.Category, error)
}

// Service caches the browsing data the storefront renders: products,
// categories and the featured shelf. Load failures keep the previous
// snapshot and are logged; browsing is best-effort.
type Service struct {
	backend Backend

	mu         sync.Mutex
	products   []api.Product
	categories []api.Category
	featured   []api.Product
	loading    bool
}

func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

// LoadProducts fetches products, optionally scoped to a category slug,
// and replaces the cached list on success.
func (s *Service) LoadProducts(ctx context.Context, categorySlug string) {
	s.setLoading(true)
	defer s.setLoading(false)

	products, err := s.backend.ListProducts(ctx, categorySlug)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch products")
		return
	}
	s.mu.Lock()
	s.products = products
	s.mu.Unlock()
}

// LoadCategories fetches all categories.
func (s *Service) LoadCategories(ctx context.Context) {
	categories, err := s.backend.ListCategories(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch categories")
		return
	}
	s.mu.Lock()
	s.categories = categories
	s.mu.Unlock()
}

// LoadFeatured fetches the featured products shelf.
func (s *Service) LoadFeatured(ctx context.Context) {
	featured, err := s.backend.ListFeaturedProducts(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch featured products")
		return
	}
	s.mu.Lock()
	s.featured = featured
	s.mu.Unlock()
}

// Product fetches a single product directly; detail pages always want
// fresh stock and pricing.
func (s *Service) Product(ctx context.Context, productID int64) (*api.Product, error) {
	return s.backend.GetProduct(ctx, productID)
}

// Products returns the cached product list.
func (s *Service) Products() []api.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Product(nil), s.products...)
}

// Categories returns the cached category list.
func (s *Service) Categories() []api.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Category(nil), s.categories...)
}

// Featured returns the cached featured shelf.
func (s *Service) Featured() []api.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Product(nil), s.featured...)
}

// Loading reports whether a product load is in flight.
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Service) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
