package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/sifnet/storefront/internal/domain/cart"
	"github.com/sifnet/storefront/internal/domain/shared"
	"github.com/sifnet/storefront/internal/infrastructure/auth"
	"github.com/sifnet/storefront/internal/infrastructure/remoteapi"
	"go.uber.org/zap"
)

// Catalog errors
var (
	ErrProductNotFound = shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	ErrAdminRequired   = shared.NewDomainError("FORBIDDEN", "Administrator role required")
)

// Backend is the part of the remote API the catalog uses
type Backend interface {
	ListProducts(ctx context.Context) ([]remoteapi.Record, error)
	ListCategories(ctx context.Context) ([]remoteapi.Record, error)
	CreateProduct(ctx context.Context, form remoteapi.ProductForm) (remoteapi.Record, error)
	UpdateProduct(ctx context.Context, id string, form remoteapi.ProductForm) (remoteapi.Record, error)
	DeleteProduct(ctx context.Context, id string) (remoteapi.Record, error)
	CreateCategory(ctx context.Context, form remoteapi.CategoryForm) (remoteapi.Record, error)
	UpdateCategory(ctx context.Context, id string, form remoteapi.CategoryForm) (remoteapi.Record, error)
	DeleteCategory(ctx context.Context, id string) (remoteapi.Record, error)
}

// Session is the logged-in user, ended when the backend rejects the token
type Session interface {
	User() (auth.User, bool)
	Logout(ctx context.Context) error
}

// Cart receives products added from the catalog
type Cart interface {
	AddItem(item cart.Item)
}

// Service lists the catalog and adds products to the cart
type Service struct {
	backend Backend
	cart    Cart
	session Session
	logger  *zap.Logger

	mu       sync.RWMutex
	products []Product
}

// NewService creates a new catalog Service
func NewService(backend Backend, c Cart, session Session, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend: backend,
		cart:    c,
		session: session,
		logger:  logger.Named("catalog"),
	}
}

// ListProducts fetches the catalog. Backend failures yield an empty list,
// except an unauthorized answer, which ends the session and is returned.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	records, err := s.backend.ListProducts(ctx)
	if err != nil {
		if uerr := s.checkUnauthorized(ctx, err); uerr != nil {
			return nil, uerr
		}
		s.logger.Warn("failed to load products", zap.Error(err))
		return []Product{}, nil
	}

	products := make([]Product, 0, len(records))
	for _, r := range records {
		products = append(products, Normalize(r))
	}

	s.mu.Lock()
	s.products = products
	s.mu.Unlock()

	return append([]Product(nil), products...), nil
}

// Search lists the catalog narrowed by category and name query
func (s *Service) Search(ctx context.Context, category, query string) ([]Product, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(products, category, query), nil
}

// ListCategories fetches the categories, with the same failure rules as
// ListProducts
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	records, err := s.backend.ListCategories(ctx)
	if err != nil {
		if uerr := s.checkUnauthorized(ctx, err); uerr != nil {
			return nil, uerr
		}
		s.logger.Warn("failed to load categories", zap.Error(err))
		return []Category{}, nil
	}

	categories := make([]Category, 0, len(records))
	for _, r := range records {
		categories = append(categories, NormalizeCategory(r))
	}
	return categories, nil
}

// GetProduct finds a product in the last listing, fetching the catalog again
// when it is not there
func (s *Service) GetProduct(ctx context.Context, id cart.ItemID) (Product, error) {
	if p, ok := s.cached(id); ok {
		return p, nil
	}
	if _, err := s.ListProducts(ctx); err != nil {
		return Product{}, err
	}
	if p, ok := s.cached(id); ok {
		return p, nil
	}
	return Product{}, ErrProductNotFound
}

// AddToCart adds qty units of a catalog product to the cart
func (s *Service) AddToCart(ctx context.Context, id cart.ItemID, qty int) (cart.Item, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return cart.Item{}, err
	}
	if qty <= 0 {
		qty = 1
	}
	item := p.CartItem(qty)
	s.cart.AddItem(item)
	return item, nil
}

func (s *Service) cached(id cart.ItemID) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

func (s *Service) invalidate() {
	s.mu.Lock()
	s.products = nil
	s.mu.Unlock()
}

// checkUnauthorized ends the session when err is an unauthorized answer and
// returns err in that case, nil otherwise
func (s *Service) checkUnauthorized(ctx context.Context, err error) error {
	if !errors.Is(err, remoteapi.ErrUnauthorized) {
		return nil
	}
	s.logger.Info("backend rejected the session, logging out")
	if s.session != nil {
		if lerr := s.session.Logout(ctx); lerr != nil {
			s.logger.Warn("failed to clear session", zap.Error(lerr))
		}
	}
	return err
}
