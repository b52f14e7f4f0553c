package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sifnet/storefront/internal/domain/shared"
	"github.com/sifnet/storefront/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

const (
	// DefaultStorageKey is the key the cart payload is stored under
	DefaultStorageKey = "sifx3_cart"

	defaultLoadTimeout  = 2 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

// PriceFormatter renders an amount for display
type PriceFormatter interface {
	FormatPrice(value any, includeSymbol bool) string
}

// Snapshot is a consistent view of the cart and its aggregates
type Snapshot struct {
	Items          []Item
	TotalItems     int
	TotalPrice     valueobject.Money
	FormattedTotal string
}

// Store is the single owner of cart state for a storefront session.
// All reads and writes go through it; mutations are atomic with respect to
// each other and are persisted in the background after they return.
type Store struct {
	mu      sync.RWMutex
	cart    Cart
	version uint64

	currency  valueobject.Currency
	formatter PriceFormatter
	logger    *zap.Logger
	persister *persister
}

// Option configures a Store
type Option func(*storeOptions)

type storeOptions struct {
	key          string
	currency     valueobject.Currency
	formatter    PriceFormatter
	logger       *zap.Logger
	loadTimeout  time.Duration
	writeTimeout time.Duration
}

// WithStorageKey overrides the key the cart is persisted under
func WithStorageKey(key string) Option {
	return func(o *storeOptions) {
		if key != "" {
			o.key = key
		}
	}
}

// WithCurrency sets the currency totals are expressed in
func WithCurrency(currency valueobject.Currency) Option {
	return func(o *storeOptions) {
		if currency != "" {
			o.currency = currency
		}
	}
}

// WithFormatter sets the formatter used by FormattedTotal
func WithFormatter(f PriceFormatter) Option {
	return func(o *storeOptions) {
		if f != nil {
			o.formatter = f
		}
	}
}

// WithLogger sets the logger for the store
func WithLogger(logger *zap.Logger) Option {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLoadTimeout bounds the initial storage read
func WithLoadTimeout(d time.Duration) Option {
	return func(o *storeOptions) {
		if d > 0 {
			o.loadTimeout = d
		}
	}
}

// WithWriteTimeout bounds each background storage write
func WithWriteTimeout(d time.Duration) Option {
	return func(o *storeOptions) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// NewStore creates a store and rehydrates it from kv. A missing, corrupted
// or unreachable payload yields an empty cart; NewStore never fails.
// kv may be nil, in which case the cart lives in memory only.
func NewStore(ctx context.Context, kv shared.KeyValueStore, opts ...Option) *Store {
	o := storeOptions{
		key:          DefaultStorageKey,
		currency:     valueobject.DefaultCurrency,
		formatter:    plainFormatter{},
		logger:       zap.NewNop(),
		loadTimeout:  defaultLoadTimeout,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger.Named("cart")
	initial := load(ctx, kv, o.key, o.loadTimeout, logger)

	return &Store{
		cart:      initial,
		currency:  o.currency,
		formatter: o.formatter,
		logger:    logger,
		persister: newPersister(kv, o.key, o.writeTimeout, logger, 0),
	}
}

// load reads and decodes the persisted cart, falling back to empty
func load(ctx context.Context, kv shared.KeyValueStore, key string, timeout time.Duration, logger *zap.Logger) (c Cart) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("cart storage panicked during load", zap.Any("panic", r))
			c = Cart{}
		}
	}()

	if kv == nil {
		logger.Warn("no cart storage configured, starting with an empty cart")
		return Cart{}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, found, err := kv.Get(ctx, key)
	if err != nil {
		logger.Warn("failed to read persisted cart, starting empty", zap.String("key", key), zap.Error(err))
		return Cart{}
	}
	if !found || strings.TrimSpace(raw) == "" {
		return Cart{}
	}

	c, err = decode(raw)
	if err != nil {
		logger.Warn("persisted cart is corrupted, starting empty", zap.String("key", key), zap.Error(err))
		return Cart{}
	}

	logger.Info("cart restored", zap.String("key", key), zap.Int("lines", c.Len()), zap.Int("items", c.TotalItems()))
	return c
}

// decode parses a stored payload. JSON null is an empty cart.
func decode(raw string) (Cart, error) {
	var c Cart
	if strings.TrimSpace(raw) == "null" {
		return c, nil
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart payload: %w", err)
	}
	return c, nil
}

// AddItem merges item into the cart. See Cart.Add for the merge rules.
func (s *Store) AddItem(item Item) {
	s.mutate("add_item", item.ID, func(c Cart) Cart { return c.Add(item) })
}

// RemoveItem removes the entry with the given id. Unknown ids are a no-op.
func (s *Store) RemoveItem(id ItemID) {
	s.mutate("remove_item", id, func(c Cart) Cart { return c.Remove(id) })
}

// UpdateQuantity sets an entry's quantity; zero or less removes it
func (s *Store) UpdateQuantity(id ItemID, qty int) {
	s.mutate("update_quantity", id, func(c Cart) Cart { return c.UpdateQuantity(id, qty) })
}

// RemovePlaced takes the given lines out of the cart, keeping anything added
// since they were read. See Cart.Subtract.
func (s *Store) RemovePlaced(placed []Item) {
	s.mutate("remove_placed", "", func(c Cart) Cart { return c.Subtract(placed) })
}

// Clear empties the cart
func (s *Store) Clear() {
	s.mutate("clear", "", func(c Cart) Cart { return c.Clear() })
}

func (s *Store) mutate(op string, id ItemID, fn func(Cart) Cart) {
	s.mu.Lock()
	s.cart = fn(s.cart)
	s.version++
	version, current := s.version, s.cart
	s.mu.Unlock()

	s.persister.schedule(version, current)

	s.logger.Debug("cart updated",
		zap.String("op", op),
		zap.String("item_id", id.String()),
		zap.Uint64("version", version),
		zap.Int("lines", current.Len()),
	)
}

// Items returns a copy of the cart entries
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Items()
}

// Find returns a copy of one entry
func (s *Store) Find(id ItemID) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Find(id)
}

// Cart returns the current immutable cart value
func (s *Store) Cart() Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart
}

// TotalItems returns the sum of quantities, not the number of entries
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.TotalItems()
}

// TotalPrice returns the sum of unit price times quantity
func (s *Store) TotalPrice() valueobject.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.TotalPrice(s.currency)
}

// FormattedTotal returns TotalPrice rendered with the currency symbol
func (s *Store) FormattedTotal() string {
	return s.formatter.FormatPrice(s.TotalPrice(), true)
}

// Currency returns the currency totals are expressed in
func (s *Store) Currency() valueobject.Currency {
	return s.currency
}

// Snapshot derives items and aggregates from one read of the cart
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	c := s.cart
	s.mu.RUnlock()

	total := c.TotalPrice(s.currency)
	return Snapshot{
		Items:          c.Items(),
		TotalItems:     c.TotalItems(),
		TotalPrice:     total,
		FormattedTotal: s.formatter.FormatPrice(total, true),
	}
}

// Flush waits until every mutation made before the call has been handed to
// storage. It reports only context errors; storage failures stay silent.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.RLock()
	version := s.version
	s.mu.RUnlock()
	return s.persister.waitFor(ctx, version)
}

// Close flushes pending writes and stops background persistence.
// The store keeps working in memory afterwards.
func (s *Store) Close(ctx context.Context) error {
	return s.persister.close(ctx)
}

// plainFormatter is used when no PriceFormatter is configured
type plainFormatter struct{}

func (plainFormatter) FormatPrice(value any, includeSymbol bool) string {
	amount := valueobject.ParseAmount(value).StringFixed(2)
	if m, ok := value.(valueobject.Money); ok && includeSymbol {
		return string(m.Currency()) + " " + amount
	}
	return amount
}
