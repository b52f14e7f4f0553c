package remoteapi

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
)

// Multipart field names expected by the backend
const (
	productImageField  = "url_imagen"
	categoryImageField = "imagen"
)

// Upload is a file attached to a form
type Upload struct {
	Filename string
	Data     []byte
}

// ProductForm is the body of product create and update requests
type ProductForm struct {
	Name        string
	Description string
	Price       string
	CategoryID  string
	Image       *Upload
}

func (f ProductForm) fields() [][2]string {
	return [][2]string{
		{"nombre", f.Name},
		{"descripcion", f.Description},
		{"precio", f.Price},
		{"categoria_id", f.CategoryID},
	}
}

// CategoryForm is the body of category create and update requests
type CategoryForm struct {
	ID    string
	Name  string
	Image *Upload
}

func (f CategoryForm) fields() [][2]string {
	out := [][2]string{{"nombre", f.Name}}
	if f.ID != "" {
		out = append(out, [2]string{"id", f.ID})
	}
	return out
}

func encodeForm(fields [][2]string, image *Upload, imageField string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", fmt.Errorf("encode form field %s: %w", kv[0], err)
		}
	}
	if image != nil && len(image.Data) > 0 {
		name := filepath.Base(image.Filename)
		if name == "." || name == string(filepath.Separator) {
			name = "upload"
		}
		part, err := w.CreateFormFile(imageField, name)
		if err != nil {
			return nil, "", fmt.Errorf("encode form file: %w", err)
		}
		if _, err := part.Write(image.Data); err != nil {
			return nil, "", fmt.Errorf("encode form file: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("encode form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
