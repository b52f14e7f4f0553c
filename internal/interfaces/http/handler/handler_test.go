package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sifnet/storefront/internal/application/account"
	"github.com/sifnet/storefront/internal/application/catalog"
	"github.com/sifnet/storefront/internal/application/checkout"
	"github.com/sifnet/storefront/internal/domain/cart"
	"github.com/sifnet/storefront/internal/infrastructure/auth"
	"github.com/sifnet/storefront/internal/infrastructure/currency"
	"github.com/sifnet/storefront/internal/infrastructure/remoteapi"
	"github.com/sifnet/storefront/internal/infrastructure/storage"
	"github.com/sifnet/storefront/internal/interfaces/http/middleware"
	"github.com/sifnet/storefront/internal/interfaces/http/router"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// MockBackend is a testify mock of the remote API
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ListProducts(ctx context.Context) ([]remoteapi.Record, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]remoteapi.Record)
	return records, args.Error(1)
}

func (m *MockBackend) ListCategories(ctx context.Context) ([]remoteapi.Record, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]remoteapi.Record)
	return records, args.Error(1)
}

func (m *MockBackend) CreateProduct(ctx context.Context, form remoteapi.ProductForm) (remoteapi.Record, error) {
	args := m.Called(ctx, form)
	record, _ := args.Get(0).(remoteapi.Record)
	return record, args.Error(1)
}

func (m *MockBackend) UpdateProduct(ctx context.Context, id string, form remoteapi.ProductForm) (remoteapi.Record, error) {
	args := m.Called(ctx, id, form)
	record, _ := args.Get(0).(remoteapi.Record)
	return record, args.Error(1)
}

func (m *MockBackend) DeleteProduct(ctx context.Context, id string) (remoteapi.Record, error) {
	args := m.Called(ctx, id)
	record, _ := args.Get(0).(remoteapi.Record)
	return record, args.Error(1)
}

func (m *MockBackend) CreateCategory(ctx context.Context, form remoteapi.CategoryForm) (remoteapi.Record, error) {
	args := m.Called(ctx, form)
	record, _ := args.Get(0).(remoteapi.Record)
	return record, args.Error(1)
}

func (m *MockBackend) UpdateCategory(ctx context.Context, id string, form remoteapi.CategoryForm) (remoteapi.Record, error) {
	args := m.Called(ctx, id, form)
	record, _ := args.Get(0).(remoteapi.Record)
	return record, args.Error(1)
}

func (m *MockBackend) DeleteCategory(ctx context.Context, id string) (remoteapi.Record, error) {
	args := m.Called(ctx, id)
	record, _ := args.Get(0).(remoteapi.Record)
	return record, args.Error(1)
}

func (m *MockBackend) Login(ctx context.Context, email, password string) (remoteapi.LoginResult, error) {
	args := m.Called(ctx, email, password)
	res, _ := args.Get(0).(remoteapi.LoginResult)
	return res, args.Error(1)
}

func (m *MockBackend) Register(ctx context.Context, in auth.RegistrationInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

// recordingHandoff captures the orders it is asked to deliver
type recordingHandoff struct {
	orders []checkout.Order
	err    error
}

func (h *recordingHandoff) Name() string { return "test" }

func (h *recordingHandoff) Send(_ context.Context, order checkout.Order) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	h.orders = append(h.orders, order)
	return "ref-" + order.ID.String()[:8], nil
}

// testApp is the full API wired to in-memory collaborators
type testApp struct {
	engine  *gin.Engine
	store   *cart.Store
	session *auth.Session
	backend *MockBackend
	handoff *recordingHandoff
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	formatter := currency.NewFormatter("USD", "$")
	store := cart.NewStore(ctx, storage.NewMemoryStore(),
		cart.WithCurrency(formatter.CurrencyCode()),
		cart.WithFormatter(formatter),
	)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	session := auth.NewSession(storage.NewMemoryStore())
	backend := &MockBackend{}
	handoff := &recordingHandoff{}

	catalogSvc := catalog.NewService(backend, store, session, nil)
	accountSvc := account.NewService(backend, session, nil)
	checkoutSvc := checkout.NewService(store, handoff, checkout.WithCustomer(session))

	engine := gin.New()
	engine.Use(middleware.RequestID())
	r := router.NewRouter(engine)
	r.Register(
		NewSystemHandler("USD", "$", "memory").Routes(),
		NewCartHandler(store, catalogSvc).Routes(),
		NewCatalogHandler(catalogSvc).Routes(),
		NewSessionHandler(accountSvc).Routes(),
		NewCheckoutHandler(checkoutSvc).Routes(),
	)
	r.Setup()

	return &testApp{engine: engine, store: store, session: session, backend: backend, handoff: handoff}
}

func (a *testApp) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewBuffer(data)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) loginAdmin(t *testing.T) {
	t.Helper()
	require.NoError(t, a.session.Login(context.Background(), auth.User{ID: "1", Email: "admin@sifnet.co", Role: "admin"}, "opaque-token"))
}

// envelope decodes the standard response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func record(t *testing.T, raw string) remoteapi.Record {
	t.Helper()
	var r remoteapi.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	return r
}

func assertStatus(t *testing.T, want int, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, want, w.Code, w.Body.String())
}

