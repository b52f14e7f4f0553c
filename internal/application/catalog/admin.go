package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sifnet/storefront/internal/domain/shared"
	"github.com/sifnet/storefront/internal/domain/shared/valueobject"
	"github.com/sifnet/storefront/internal/infrastructure/remoteapi"
	"go.uber.org/zap"
)

// MaxImageSize is the largest image accepted for products and categories
const MaxImageSize = 16 << 20

// ProductInput is a product create or update request
type ProductInput struct {
	Name        string            `json:"nombre" form:"nombre" validate:"required,min=10"`
	Description string            `json:"descripcion" form:"descripcion" validate:"required,min=10"`
	Price       string            `json:"precio" form:"precio" validate:"required"`
	CategoryID  string            `json:"categoria_id" form:"categoria_id" validate:"required"`
	Image       *remoteapi.Upload `json:"-" form:"-"`
}

// CategoryInput is a category create or update request
type CategoryInput struct {
	Name  string            `json:"nombre" form:"nombre" validate:"required"`
	Image *remoteapi.Upload `json:"-" form:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateProduct registers a product
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (remoteapi.Record, error) {
	form, err := s.productForm(in)
	if err != nil {
		return nil, err
	}
	return s.admin(ctx, "create product", func() (remoteapi.Record, error) {
		return s.backend.CreateProduct(ctx, form)
	})
}

// UpdateProduct replaces a product
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (remoteapi.Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrProductNotFound
	}
	form, err := s.productForm(in)
	if err != nil {
		return nil, err
	}
	return s.admin(ctx, "update product", func() (remoteapi.Record, error) {
		return s.backend.UpdateProduct(ctx, id, form)
	})
}

// DeleteProduct removes a product
func (s *Service) DeleteProduct(ctx context.Context, id string) (remoteapi.Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrProductNotFound
	}
	return s.admin(ctx, "delete product", func() (remoteapi.Record, error) {
		return s.backend.DeleteProduct(ctx, id)
	})
}

// CreateCategory registers a category
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (remoteapi.Record, error) {
	form, err := categoryForm(in)
	if err != nil {
		return nil, err
	}
	return s.admin(ctx, "create category", func() (remoteapi.Record, error) {
		return s.backend.CreateCategory(ctx, form)
	})
}

// UpdateCategory replaces a category
func (s *Service) UpdateCategory(ctx context.Context, id string, in CategoryInput) (remoteapi.Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.ErrNotFound
	}
	form, err := categoryForm(in)
	if err != nil {
		return nil, err
	}
	return s.admin(ctx, "update category", func() (remoteapi.Record, error) {
		return s.backend.UpdateCategory(ctx, id, form)
	})
}

// DeleteCategory removes a category
func (s *Service) DeleteCategory(ctx context.Context, id string) (remoteapi.Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.ErrNotFound
	}
	return s.admin(ctx, "delete category", func() (remoteapi.Record, error) {
		return s.backend.DeleteCategory(ctx, id)
	})
}

// admin runs a catalog mutation for an administrator and drops the cached
// listing afterwards
func (s *Service) admin(ctx context.Context, op string, call func() (remoteapi.Record, error)) (remoteapi.Record, error) {
	if s.session == nil {
		return nil, ErrAdminRequired
	}
	user, ok := s.session.User()
	if !ok || !user.IsAdmin() {
		return nil, ErrAdminRequired
	}

	out, err := call()
	if err != nil {
		if uerr := s.checkUnauthorized(ctx, err); uerr != nil {
			return nil, uerr
		}
		s.logger.Warn("catalog update failed", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate()
	s.logger.Info("catalog updated", zap.String("op", op), zap.String("user", user.Email))
	return out, nil
}

func (s *Service) productForm(in ProductInput) (remoteapi.ProductForm, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Price = strings.TrimSpace(in.Price)
	in.CategoryID = strings.TrimSpace(in.CategoryID)

	var messages []string
	if err := validate.Struct(in); err != nil {
		messages = append(messages, validationMessages(err)...)
	}
	if in.Price != "" && !valueobject.ParseAmount(in.Price).IsPositive() {
		messages = append(messages, "precio: must be greater than zero")
	}
	if in.Image != nil && len(in.Image.Data) > MaxImageSize {
		messages = append(messages, "imagen: must not exceed 16MB")
	}
	if len(messages) > 0 {
		return remoteapi.ProductForm{}, shared.NewDomainError("VALIDATION_FAILED", strings.Join(messages, "; "))
	}

	return remoteapi.ProductForm{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		CategoryID:  in.CategoryID,
		Image:       in.Image,
	}, nil
}

func categoryForm(in CategoryInput) (remoteapi.CategoryForm, error) {
	in.Name = strings.TrimSpace(in.Name)

	var messages []string
	if err := validate.Struct(in); err != nil {
		messages = append(messages, validationMessages(err)...)
	}
	if in.Image != nil && len(in.Image.Data) > MaxImageSize {
		messages = append(messages, "imagen: must not exceed 16MB")
	}
	if len(messages) > 0 {
		return remoteapi.CategoryForm{}, shared.NewDomainError("VALIDATION_FAILED", strings.Join(messages, "; "))
	}
	return remoteapi.CategoryForm{Name: in.Name, Image: in.Image}, nil
}

func validationMessages(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := jsonName(fe.StructField())
		switch fe.Tag() {
		case "required":
			messages = append(messages, field+": is required")
		case "min":
			messages = append(messages, fmt.Sprintf("%s: must be at least %s characters", field, fe.Param()))
		default:
			messages = append(messages, field+": is invalid")
		}
	}
	return messages
}

func jsonName(field string) string {
	switch field {
	case "Name":
		return "nombre"
	case "Description":
		return "descripcion"
	case "Price":
		return "precio"
	case "CategoryID":
		return "categoria_id"
	}
	return strings.ToLower(field)
}
