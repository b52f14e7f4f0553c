package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sifnet/storefront/internal/domain/cart"
	"github.com/sifnet/storefront/internal/domain/shared"
	"github.com/sifnet/storefront/internal/infrastructure/auth"
	"github.com/sifnet/storefront/internal/infrastructure/remoteapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

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
	out, _ := args.Get(0).(remoteapi.Record)
	return out, args.Error(1)
}

func (m *MockBackend) UpdateProduct(ctx context.Context, id string, form remoteapi.ProductForm) (remoteapi.Record, error) {
	args := m.Called(ctx, id, form)
	out, _ := args.Get(0).(remoteapi.Record)
	return out, args.Error(1)
}

func (m *MockBackend) DeleteProduct(ctx context.Context, id string) (remoteapi.Record, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(remoteapi.Record)
	return out, args.Error(1)
}

func (m *MockBackend) CreateCategory(ctx context.Context, form remoteapi.CategoryForm) (remoteapi.Record, error) {
	args := m.Called(ctx, form)
	out, _ := args.Get(0).(remoteapi.Record)
	return out, args.Error(1)
}

func (m *MockBackend) UpdateCategory(ctx context.Context, id string, form remoteapi.CategoryForm) (remoteapi.Record, error) {
	args := m.Called(ctx, id, form)
	out, _ := args.Get(0).(remoteapi.Record)
	return out, args.Error(1)
}

func (m *MockBackend) DeleteCategory(ctx context.Context, id string) (remoteapi.Record, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(remoteapi.Record)
	return out, args.Error(1)
}

type fakeSession struct {
	user    *auth.User
	logouts int
}

func (s *fakeSession) User() (auth.User, bool) {
	if s.user == nil {
		return auth.User{}, false
	}
	return *s.user, true
}

func (s *fakeSession) Logout(context.Context) error {
	s.logouts++
	s.user = nil
	return nil
}

type fakeCart struct {
	added []cart.Item
}

func (c *fakeCart) AddItem(item cart.Item) {
	c.added = append(c.added, item)
}

func records(t *testing.T, items ...string) []remoteapi.Record {
	t.Helper()
	out := make([]remoteapi.Record, 0, len(items))
	for _, s := range items {
		out = append(out, record(t, s))
	}
	return out
}

func TestService_ListProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes records", func(t *testing.T) {
		backend := new(MockBackend)
		backend.On("ListProducts", mock.Anything).Return(records(t, `{"id":1,"nombre":"A","precio":"2.5"}`), nil)

		svc := NewService(backend, &fakeCart{}, &fakeSession{}, nil)
		products, err := svc.ListProducts(ctx)
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, 2.5, products[0].Price)
	})

	t.Run("backend failure yields empty list", func(t *testing.T) {
		backend := new(MockBackend)
		backend.On("ListProducts", mock.Anything).Return(nil, errors.New("connection refused"))
		session := &fakeSession{user: &auth.User{Email: "a@b.co"}}

		svc := NewService(backend, &fakeCart{}, session, nil)
		products, err := svc.ListProducts(ctx)
		require.NoError(t, err)
		assert.NotNil(t, products)
		assert.Empty(t, products)
		assert.Equal(t, 0, session.logouts)
	})

	t.Run("unauthorized ends the session", func(t *testing.T) {
		backend := new(MockBackend)
		backend.On("ListProducts", mock.Anything).Return(nil, fmt.Errorf("list products: %w", remoteapi.ErrUnauthorized))
		session := &fakeSession{user: &auth.User{Email: "a@b.co"}}

		svc := NewService(backend, &fakeCart{}, session, nil)
		_, err := svc.ListProducts(ctx)
		assert.ErrorIs(t, err, remoteapi.ErrUnauthorized)
		assert.Equal(t, 1, session.logouts)
	})
}

func TestService_Search(t *testing.T) {
	backend := new(MockBackend)
	backend.On("ListProducts", mock.Anything).Return(records(t,
		`{"id":1,"nombre":"Router","categoria":"Redes"}`,
		`{"id":2,"nombre":"Cable","categoria":"Accesorios"}`,
	), nil)

	svc := NewService(backend, &fakeCart{}, nil, nil)
	products, err := svc.Search(context.Background(), "Redes", "rout")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Router", products[0].Name)
}

func TestService_ListCategories(t *testing.T) {
	backend := new(MockBackend)
	backend.On("ListCategories", mock.Anything).Return(records(t, `{"id":1,"nombre":"Redes"}`), nil).Once()
	backend.On("ListCategories", mock.Anything).Return(nil, errors.New("boom")).Once()

	svc := NewService(backend, &fakeCart{}, nil, nil)
	categories, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Category{{ID: "1", Name: "Redes"}}, categories)

	categories, err = svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestService_AddToCart(t *testing.T) {
	ctx := context.Background()

	t.Run("uses cached listing", func(t *testing.T) {
		backend := new(MockBackend)
		backend.On("ListProducts", mock.Anything).Return(records(t, `{"id":1,"nombre":"Router","precio":"10"}`), nil).Once()
		c := &fakeCart{}

		svc := NewService(backend, c, nil, nil)
		_, err := svc.ListProducts(ctx)
		require.NoError(t, err)

		item, err := svc.AddToCart(ctx, "1", 2)
		require.NoError(t, err)
		assert.Equal(t, 2, item.Quantity)
		require.Len(t, c.added, 1)
		assert.Equal(t, "Router", c.added[0].Name)
		assert.Equal(t, 10.0, c.added[0].UnitPrice)
		backend.AssertNumberOfCalls(t, "ListProducts", 1)
	})

	t.Run("refetches on miss and defaults quantity", func(t *testing.T) {
		backend := new(MockBackend)
		backend.On("ListProducts", mock.Anything).Return(records(t, `{"id":"x","title":"Cable","price":3}`), nil)
		c := &fakeCart{}

		svc := NewService(backend, c, nil, nil)
		item, err := svc.AddToCart(ctx, "x", 0)
		require.NoError(t, err)
		assert.Equal(t, 1, item.Quantity)
		require.Len(t, c.added, 1)
	})

	t.Run("unknown product", func(t *testing.T) {
		backend := new(MockBackend)
		backend.On("ListProducts", mock.Anything).Return(records(t, `{"id":1}`), nil)
		c := &fakeCart{}

		svc := NewService(backend, c, nil, nil)
		_, err := svc.AddToCart(ctx, "99", 1)
		assert.ErrorIs(t, err, ErrProductNotFound)
		assert.Empty(t, c.added)
	})
}

func validProduct() ProductInput {
	return ProductInput{
		Name:        "Router inalambrico",
		Description: "Doble banda AX3000",
		Price:       "89.90",
		CategoryID:  "3",
	}
}

func adminSession() *fakeSession {
	return &fakeSession{user: &auth.User{Email: "admin@example.com", Role: "admin"}}
}

func TestService_CreateProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("sends form and invalidates cache", func(t *testing.T) {
		backend := new(MockBackend)
		backend.On("ListProducts", mock.Anything).Return(records(t, `{"id":1,"nombre":"A"}`), nil)
		backend.On("CreateProduct", mock.Anything, remoteapi.ProductForm{
			Name:        "Router inalambrico",
			Description: "Doble banda AX3000",
			Price:       "89.90",
			CategoryID:  "3",
		}).Return(remoteapi.Record{"success": []byte(`true`)}, nil)

		svc := NewService(backend, &fakeCart{}, adminSession(), nil)
		_, err := svc.ListProducts(ctx)
		require.NoError(t, err)

		in := validProduct()
		in.Name = "  " + in.Name + "  "
		_, err = svc.CreateProduct(ctx, in)
		require.NoError(t, err)

		_, ok := svc.cached("1")
		assert.False(t, ok)
		backend.AssertExpectations(t)
	})

	t.Run("requires admin", func(t *testing.T) {
		backend := new(MockBackend)
		svc := NewService(backend, &fakeCart{}, &fakeSession{user: &auth.User{Role: "cliente"}}, nil)

		_, err := svc.CreateProduct(ctx, validProduct())
		assert.ErrorIs(t, err, ErrAdminRequired)
		backend.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*ProductInput)
			want   string
		}{
			{"short name", func(in *ProductInput) { in.Name = "Router" }, "nombre: must be at least 10 characters"},
			{"missing description", func(in *ProductInput) { in.Description = " " }, "descripcion: is required"},
			{"zero price", func(in *ProductInput) { in.Price = "0" }, "precio: must be greater than zero"},
			{"missing category", func(in *ProductInput) { in.CategoryID = "" }, "categoria_id: is required"},
			{"large image", func(in *ProductInput) {
				in.Image = &remoteapi.Upload{Filename: "big.png", Data: make([]byte, MaxImageSize+1)}
			}, "imagen: must not exceed 16MB"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := NewService(new(MockBackend), &fakeCart{}, adminSession(), nil)
				in := validProduct()
				tt.mutate(&in)

				_, err := svc.CreateProduct(ctx, in)
				var derr *shared.DomainError
				require.True(t, errors.As(err, &derr))
				assert.Equal(t, "VALIDATION_FAILED", derr.Code)
				assert.True(t, strings.Contains(derr.Message, tt.want), derr.Message)
			})
		}
	})
}

func TestService_AdminUnauthorized(t *testing.T) {
	backend := new(MockBackend)
	backend.On("DeleteProduct", mock.Anything, "5").Return(nil, remoteapi.ErrUnauthorized)
	session := adminSession()

	svc := NewService(backend, &fakeCart{}, session, nil)
	_, err := svc.DeleteProduct(context.Background(), "5")
	assert.ErrorIs(t, err, remoteapi.ErrUnauthorized)
	assert.Equal(t, 1, session.logouts)
}

func TestService_CategoryAdmin(t *testing.T) {
	ctx := context.Background()
	backend := new(MockBackend)
	backend.On("CreateCategory", mock.Anything, remoteapi.CategoryForm{Name: "Redes"}).Return(remoteapi.Record{}, nil)
	backend.On("UpdateCategory", mock.Anything, "4", remoteapi.CategoryForm{Name: "Audio"}).Return(remoteapi.Record{}, nil)
	backend.On("DeleteCategory", mock.Anything, "4").Return(remoteapi.Record{}, nil)
	backend.On("UpdateProduct", mock.Anything, "9", mock.Anything).Return(nil, errors.New("status 500"))

	svc := NewService(backend, &fakeCart{}, adminSession(), nil)

	_, err := svc.CreateCategory(ctx, CategoryInput{Name: " Redes "})
	require.NoError(t, err)
	_, err = svc.UpdateCategory(ctx, "4", CategoryInput{Name: "Audio"})
	require.NoError(t, err)
	_, err = svc.DeleteCategory(ctx, "4")
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, CategoryInput{})
	var derr *shared.DomainError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, "VALIDATION_FAILED", derr.Code)

	_, err = svc.UpdateProduct(ctx, "9", validProduct())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update product")

	_, err = svc.DeleteCategory(ctx, " ")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	backend.AssertExpectations(t)
}
