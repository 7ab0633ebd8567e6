package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/martiv/eshop-api/internal/domain"
	"github.com/martiv/eshop-api/internal/service"
)

const maxUploadBytes = 32 << 20 // whole multipart form

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	products *service.ProductService
	baseURL  string
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(products *service.ProductService, baseURL string) *ProductHandler {
	return &ProductHandler{products: products, baseURL: baseURL}
}

// HandleList returns all products.
// GET /api/products
func (h *ProductHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondServiceError(w, "list products", err)
		return
	}

	dtos := make([]ProductDTO, 0, len(products))
	for i := range products {
		dtos = append(dtos, toProductDTO(&products[i], h.baseURL))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// HandleListByCategory returns the products belonging to one category.
// GET /api/categories/{id}/products
func (h *ProductHandler) HandleListByCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	products, err := h.products.ListByCategory(r.Context(), categoryID)
	if err != nil {
		respondServiceError(w, "list products by category", err)
		return
	}

	dtos := make([]ProductDTO, 0, len(products))
	for i := range products {
		dtos = append(dtos, toProductDTO(&products[i], h.baseURL))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// HandleGet returns one product with its variants.
// GET /api/products/{id}
func (h *ProductHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(product, h.baseURL))
}

// HandleCreate creates a product from a multipart form submission.
// POST /api/products
func (h *ProductHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	fields, err := parseProductFields(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	categoryID, err := strconv.ParseInt(r.FormValue("categoryId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid categoryId")
		return
	}

	variants, err := parseVariantList(r.FormValue("variants"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	images, err := readUploads(r.MultipartForm.File["images"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	variantUploads, err := parseVariantUploads(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.products.Create(r.Context(), service.CreateProductInput{
		ProductFields:  fields,
		CategoryID:     categoryID,
		Images:         images,
		Variants:       variants,
		VariantUploads: variantUploads,
	})
	if err != nil {
		respondServiceError(w, "create product", err)
		return
	}

	w.Header().Set("Location", "/api/products/"+strconv.FormatInt(product.ID, 10))
	writeJSON(w, http.StatusCreated, toProductDTO(product, h.baseURL))
}

// HandleUpdate reconciles a product's stored state with a multipart form
// submission carrying the kept image set, new uploads, and the variant list.
// PATCH /api/products/{id}
func (h *ProductHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	fields, err := parseProductFields(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	variants, err := parseVariantList(r.FormValue("variants"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	newImages, err := readUploads(r.MultipartForm.File["newImages"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	variantUploads, err := parseVariantUploads(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.products.Update(r.Context(), id, service.UpdateProductInput{
		ProductFields:  fields,
		KeptImages:     r.Form["keptImages"],
		NewImages:      newImages,
		Variants:       variants,
		VariantUploads: variantUploads,
	})
	if err != nil {
		respondServiceError(w, "update product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(product, h.baseURL))
}

// HandleDelete removes a product, its variants, and its media folder.
// DELETE /api/products/{id}
func (h *ProductHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.products.Delete(r.Context(), id)
	if err != nil {
		respondServiceError(w, "delete product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(product, h.baseURL))
}

// respondServiceError maps service errors onto the API's status codes.
// Faults keep their text in the body; this API serves internal tooling.
func respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email already in use")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		slog.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error: "+err.Error())
	}
}

// parseProductFields reads the scalar product fields shared by create and
// update. Prices use dot-decimal form regardless of locale.
func parseProductFields(r *http.Request) (service.ProductFields, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("price")))
	if err != nil {
		return service.ProductFields{}, fmt.Errorf("%w: invalid price", domain.ErrInvalidInput)
	}

	fields := service.ProductFields{
		Brand:       r.FormValue("brand"),
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Options:     r.Form["options"],
		Price:       price,
	}

	if v := strings.TrimSpace(r.FormValue("discount")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return service.ProductFields{}, fmt.Errorf("%w: invalid discount", domain.ErrInvalidInput)
		}
		fields.Discount = &d
	}
	return fields, nil
}

// parseVariantList decodes the variants form field, a JSON array of
// {id, name, price} objects. An empty field means "no variants remain".
func parseVariantList(raw string) ([]service.VariantInput, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var variants []service.VariantInput
	if err := json.Unmarshal([]byte(raw), &variants); err != nil {
		return nil, fmt.Errorf("%w: invalid variants JSON: %v", domain.ErrInvalidInput, err)
	}
	return variants, nil
}

// parseVariantUploads collects uploaded variant images from their form
// field names: variantImage_<id> targets an existing variant,
// variantImage_new_<n> the n-th new variant of this request.
func parseVariantUploads(form *multipart.Form) (service.VariantUploads, error) {
	uploads := service.VariantUploads{
		ByID:       make(map[int64]service.ImageUpload),
		ByNewIndex: make(map[int]service.ImageUpload),
	}

	for field, headers := range form.File {
		if !strings.HasPrefix(field, "variantImage_") || len(headers) == 0 {
			continue
		}
		up, err := readUpload(headers[0])
		if err != nil {
			return service.VariantUploads{}, err
		}

		key := strings.TrimPrefix(field, "variantImage_")
		if idx, ok := strings.CutPrefix(key, "new_"); ok {
			n, err := strconv.Atoi(idx)
			if err != nil || n < 0 {
				return service.VariantUploads{}, fmt.Errorf("%w: invalid variant image field %q", domain.ErrInvalidInput, field)
			}
			uploads.ByNewIndex[n] = up
			continue
		}

		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || id <= 0 {
			return service.VariantUploads{}, fmt.Errorf("%w: invalid variant image field %q", domain.ErrInvalidInput, field)
		}
		uploads.ByID[id] = up
	}
	return uploads, nil
}

func readUploads(headers []*multipart.FileHeader) ([]service.ImageUpload, error) {
	uploads := make([]service.ImageUpload, 0, len(headers))
	for _, fh := range headers {
		up, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, up)
	}
	return uploads, nil
}

func readUpload(fh *multipart.FileHeader) (service.ImageUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return service.ImageUpload{}, fmt.Errorf("%w: open upload %s: %v", domain.ErrInvalidInput, fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.ImageUpload{}, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return service.ImageUpload{Filename: fh.Filename, Data: data}, nil
}
