package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sifnet/storefront/internal/domain/cart"
	"github.com/sifnet/storefront/internal/domain/shared"
	"github.com/sifnet/storefront/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// ErrEmptyCart is returned when checking out an empty cart
var ErrEmptyCart = shared.NewDomainError("EMPTY_CART", "Cart is empty")

// Cart is the part of the cart store checkout uses
type Cart interface {
	Snapshot() cart.Snapshot
	RemovePlaced(placed []cart.Item)
}

// Customer identifies who is buying
type Customer interface {
	User() (auth.User, bool)
}

// Receipt is the outcome of a checkout
type Receipt struct {
	Order     Order  `json:"order"`
	Channel   string `json:"channel"`
	Reference string `json:"reference,omitempty"`
}

// Service places orders
type Service struct {
	cart     Cart
	handoff  Handoff
	customer Customer
	greeting string
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithGreeting sets the text opening the order summary
func WithGreeting(greeting string) Option {
	return func(s *Service) {
		if greeting != "" {
			s.greeting = greeting
		}
	}
}

// WithCustomer attaches the signed-in user to orders
func WithCustomer(c Customer) Option {
	return func(s *Service) {
		s.customer = c
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a checkout Service
func NewService(c Cart, handoff Handoff, opts ...Option) *Service {
	s := &Service{
		cart:     c,
		handoff:  handoff,
		greeting: DefaultGreeting,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("checkout")
	return s
}

// Preview builds the order for the current cart without placing it
func (s *Service) Preview() (Order, error) {
	snap := s.cart.Snapshot()
	if len(snap.Items) == 0 {
		return Order{}, ErrEmptyCart
	}

	order := Order{
		ID:             uuid.New(),
		Items:          snap.Items,
		TotalItems:     snap.TotalItems,
		Total:          snap.TotalPrice,
		FormattedTotal: snap.FormattedTotal,
		Summary:        BuildSummary(s.greeting, snap.Items, snap.FormattedTotal),
		CreatedAt:      s.now().UTC(),
	}
	if s.customer != nil {
		if user, ok := s.customer.User(); ok {
			order.Customer = &user
		}
	}
	return order, nil
}

// Checkout places the current cart. Once the handoff succeeds the placed
// lines are taken out of the cart; items added while the handoff was in
// flight stay.
func (s *Service) Checkout(ctx context.Context) (Receipt, error) {
	order, err := s.Preview()
	if err != nil {
		return Receipt{}, err
	}

	ref, err := s.handoff.Send(ctx, order)
	if err != nil {
		s.logger.Error("order handoff failed",
			zap.String("order_id", order.ID.String()),
			zap.String("channel", s.handoff.Name()),
			zap.Error(err),
		)
		return Receipt{}, err
	}

	s.cart.RemovePlaced(order.Items)
	s.logger.Info("checkout completed",
		zap.String("order_id", order.ID.String()),
		zap.String("channel", s.handoff.Name()),
		zap.Int("total_items", order.TotalItems),
		zap.String("total", order.FormattedTotal),
	)
	return Receipt{Order: order, Channel: s.handoff.Name(), Reference: ref}, nil
}
