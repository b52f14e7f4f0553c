package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sifnet/storefront/internal/domain/shared"
	"github.com/sifnet/storefront/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memoryKV is a minimal in-package KeyValueStore
type memoryKV struct {
	mu     sync.Mutex
	values map[string]string
	sets   int
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: make(map[string]string)}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.sets++
	return nil
}

func (m *memoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *memoryKV) Close() error { return nil }

func (m *memoryKV) value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// MockKV is a testify mock of shared.KeyValueStore
type MockKV struct {
	mock.Mock
}

func (m *MockKV) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockKV) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockKV) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockKV) Close() error {
	args := m.Called()
	return args.Error(0)
}

// panicKV panics on every call
type panicKV struct{}

func (panicKV) Get(context.Context, string) (string, bool, error) { panic("boom") }
func (panicKV) Set(context.Context, string, string) error         { panic("boom") }
func (panicKV) Delete(context.Context, string) error              { panic("boom") }
func (panicKV) Close() error                                      { return nil }

var _ shared.KeyValueStore = (*memoryKV)(nil)

func newTestStore(t *testing.T, kv shared.KeyValueStore, opts ...Option) *Store {
	t.Helper()
	s := NewStore(context.Background(), kv, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return s
}

func flush(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Flush(ctx))
}

func TestStore_ConcreteScenario(t *testing.T) {
	s := newTestStore(t, newMemoryKV())

	s.AddItem(Item{ID: "1", Name: "A", UnitPrice: 10})
	assert.Equal(t, 1, s.TotalItems())
	assert.Equal(t, "10", s.TotalPrice().Amount().String())

	s.AddItem(Item{ID: "1", Name: "A", UnitPrice: 10, Quantity: 2})
	assert.Len(t, s.Items(), 1)
	assert.Equal(t, 3, s.TotalItems())
	assert.Equal(t, "30", s.TotalPrice().Amount().String())

	s.UpdateQuantity("1", 0)
	assert.Empty(t, s.Items())
	assert.Equal(t, 0, s.TotalItems())
	assert.True(t, s.TotalPrice().IsZero())
}

func TestStore_PersistenceRoundTrip(t *testing.T) {
	kv := newMemoryKV()
	s := newTestStore(t, kv)

	s.AddItem(Item{ID: "1", Name: "Widget", UnitPrice: 9.99, Quantity: 2})
	var attrs Item
	require.NoError(t, attrs.UnmarshalJSON([]byte(`{"id":"sku-2","name":"Gadget","price":"3.5","image":"g.png","meta":{"color":"red"}}`)))
	s.AddItem(attrs)
	flush(t, s)

	raw, ok := kv.value(DefaultStorageKey)
	require.True(t, ok)
	assert.JSONEq(t, `[
		{"id":1,"name":"Widget","price":9.99,"quantity":2},
		{"id":"sku-2","name":"Gadget","price":3.5,"quantity":1,"image":"g.png","meta":{"color":"red"}}
	]`, raw)

	restored := newTestStore(t, kv)
	assert.Equal(t, s.Items(), restored.Items())
	assert.Equal(t, 3, restored.TotalItems())
	assert.True(t, s.TotalPrice().Equals(restored.TotalPrice()))
}

func TestStore_CustomStorageKey(t *testing.T) {
	kv := newMemoryKV()
	s := newTestStore(t, kv, WithStorageKey("other"))

	s.AddItem(Item{ID: "1"})
	flush(t, s)

	_, ok := kv.value(DefaultStorageKey)
	assert.False(t, ok)
	raw, ok := kv.value("other")
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":1,"name":"","price":0,"quantity":1}]`, raw)
}

func TestStore_ClearPersistsEmptyArray(t *testing.T) {
	kv := newMemoryKV()
	s := newTestStore(t, kv)

	s.AddItem(Item{ID: "1"})
	s.Clear()
	flush(t, s)

	raw, _ := kv.value(DefaultStorageKey)
	assert.Equal(t, `[]`, raw)
}

func TestStore_LoadFallsBackToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"corrupted json", `{not json`},
		{"object instead of array", `{"id":1}`},
		{"null", `null`},
		{"blank", `   `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := newMemoryKV()
			require.NoError(t, kv.Set(context.Background(), DefaultStorageKey, tt.payload))

			s := newTestStore(t, kv)
			assert.Empty(t, s.Items())

			s.AddItem(Item{ID: "1"})
			assert.Equal(t, 1, s.TotalItems())
		})
	}

	t.Run("storage read error", func(t *testing.T) {
		kv := new(MockKV)
		kv.On("Get", mock.Anything, DefaultStorageKey).Return("", false, shared.ErrStorageUnavailable)
		kv.On("Set", mock.Anything, DefaultStorageKey, mock.Anything).Return(nil)

		s := newTestStore(t, kv)
		assert.Empty(t, s.Items())
		kv.AssertCalled(t, "Get", mock.Anything, DefaultStorageKey)
	})

	t.Run("nil storage", func(t *testing.T) {
		s := newTestStore(t, nil)
		s.AddItem(Item{ID: "1", UnitPrice: 2, Quantity: 2})
		flush(t, s)
		assert.Equal(t, "4", s.TotalPrice().Amount().String())
	})

	t.Run("panicking storage", func(t *testing.T) {
		s := newTestStore(t, panicKV{})
		assert.Empty(t, s.Items())
		s.AddItem(Item{ID: "1"})
		flush(t, s)
		assert.Equal(t, 1, s.TotalItems())
	})
}

func TestStore_LoadMergesDuplicateEntries(t *testing.T) {
	kv := newMemoryKV()
	require.NoError(t, kv.Set(context.Background(), DefaultStorageKey,
		`[{"id":1,"name":"A","price":10,"quantity":1},{"id":1,"name":"B","price":20,"quantity":2}]`))

	s := newTestStore(t, kv)
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Name)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestStore_WriteFailureIsSwallowed(t *testing.T) {
	kv := new(MockKV)
	kv.On("Get", mock.Anything, DefaultStorageKey).Return("", false, nil)
	kv.On("Set", mock.Anything, DefaultStorageKey, mock.Anything).Return(errors.New("quota exceeded"))

	s := newTestStore(t, kv)
	s.AddItem(Item{ID: "1", UnitPrice: 5})
	s.AddItem(Item{ID: "2", UnitPrice: 1, Quantity: 3})
	flush(t, s)

	assert.Equal(t, 4, s.TotalItems())
	assert.Equal(t, "8", s.TotalPrice().Amount().String())
	kv.AssertCalled(t, "Set", mock.Anything, DefaultStorageKey, mock.Anything)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	kv := newMemoryKV()
	s := newTestStore(t, kv)

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.AddItem(Item{ID: "hot", UnitPrice: 1})
			}
		}()
	}
	wg.Wait()

	require.Len(t, s.Items(), 1)
	assert.Equal(t, workers*perWorker, s.TotalItems())

	flush(t, s)
	restored := newTestStore(t, kv)
	assert.Equal(t, workers*perWorker, restored.TotalItems())
}

func TestStore_WritesCoalesce(t *testing.T) {
	kv := newMemoryKV()
	s := newTestStore(t, kv)

	for i := 0; i < 100; i++ {
		s.AddItem(Item{ID: "1"})
	}
	flush(t, s)

	kv.mu.Lock()
	sets := kv.sets
	kv.mu.Unlock()
	assert.LessOrEqual(t, sets, 100)
	assert.GreaterOrEqual(t, sets, 1)

	raw, _ := kv.value(DefaultStorageKey)
	assert.JSONEq(t, `[{"id":1,"name":"","price":0,"quantity":100}]`, raw)
}

func TestStore_Close(t *testing.T) {
	kv := newMemoryKV()
	s := NewStore(context.Background(), kv)
	s.AddItem(Item{ID: "1"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))

	raw, ok := kv.value(DefaultStorageKey)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":1,"name":"","price":0,"quantity":1}]`, raw)

	s.AddItem(Item{ID: "2"})
	assert.Equal(t, 2, s.TotalItems())
	require.NoError(t, s.Flush(ctx))

	raw, _ = kv.value(DefaultStorageKey)
	assert.JSONEq(t, `[{"id":1,"name":"","price":0,"quantity":1}]`, raw)
}

func TestStore_FlushHonorsContext(t *testing.T) {
	blocked := make(chan struct{})
	kv := new(MockKV)
	kv.On("Get", mock.Anything, DefaultStorageKey).Return("", false, nil)
	kv.On("Set", mock.Anything, DefaultStorageKey, mock.Anything).
		Run(func(mock.Arguments) { <-blocked }).
		Return(nil)

	s := NewStore(context.Background(), kv)
	s.AddItem(Item{ID: "1"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Flush(ctx), context.DeadlineExceeded)

	close(blocked)
	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
	defer closeCancel()
	require.NoError(t, s.Close(closeCtx))
}

type fakeFormatter struct{}

func (fakeFormatter) FormatPrice(value any, includeSymbol bool) string {
	s := valueobject.ParseAmount(value).StringFixed(2)
	if includeSymbol {
		return "€ " + s
	}
	return s
}

func TestStore_SnapshotAndFormatting(t *testing.T) {
	s := newTestStore(t, nil, WithCurrency(valueobject.EUR), WithFormatter(fakeFormatter{}))

	s.AddItem(Item{ID: "1", UnitPrice: 1234.5})
	s.AddItem(Item{ID: "2", UnitPrice: 0.25, Quantity: 2})

	assert.Equal(t, valueobject.EUR, s.Currency())
	assert.Equal(t, "€ 1235.00", s.FormattedTotal())

	snap := s.Snapshot()
	assert.Len(t, snap.Items, 2)
	assert.Equal(t, 3, snap.TotalItems)
	assert.Equal(t, valueobject.EUR, snap.TotalPrice.Currency())
	assert.Equal(t, "1235", snap.TotalPrice.Amount().String())
	assert.Equal(t, "€ 1235.00", snap.FormattedTotal)
}

func TestStore_DefaultFormatter(t *testing.T) {
	s := newTestStore(t, nil)
	s.AddItem(Item{ID: "1", UnitPrice: 3.5, Quantity: 2})
	assert.Equal(t, "USD 7.00", s.FormattedTotal())
}

func TestStore_ItemsAreCopies(t *testing.T) {
	s := newTestStore(t, nil)
	s.AddItem(Item{ID: "1", Quantity: 2})

	items := s.Items()
	items[0].Quantity = 99

	item, ok := s.Find("1")
	require.True(t, ok)
	assert.Equal(t, 2, item.Quantity)
}
