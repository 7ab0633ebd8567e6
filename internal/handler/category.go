package handler

import (
	"net/http"
	"strconv"

	"github.com/martiv/eshop-api/internal/service"
)

// CategoryHandler handles category-related HTTP requests.
type CategoryHandler struct {
	categories *service.CategoryService
	baseURL    string
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categories *service.CategoryService, baseURL string) *CategoryHandler {
	return &CategoryHandler{categories: categories, baseURL: baseURL}
}

// HandleList returns all categories.
// GET /api/categories
func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		respondServiceError(w, "list categories", err)
		return
	}

	dtos := make([]CategoryDTO, 0, len(categories))
	for i := range categories {
		dtos = append(dtos, toCategoryDTO(&categories[i], h.baseURL))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// HandleGet returns one category.
// GET /api/categories/{id}
func (h *CategoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	category, err := h.categories.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, "get category", err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(category, h.baseURL))
}

// HandleCreate creates a category from a multipart form submission with an
// optional image file.
// POST /api/categories
func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	in := service.CreateCategoryInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	}

	if headers := r.MultipartForm.File["image"]; len(headers) > 0 {
		up, err := readUpload(headers[0])
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		in.Image = &up
	}

	category, err := h.categories.Create(r.Context(), in)
	if err != nil {
		respondServiceError(w, "create category", err)
		return
	}

	w.Header().Set("Location", "/api/categories/"+strconv.FormatInt(category.ID, 10))
	writeJSON(w, http.StatusCreated, toCategoryDTO(category, h.baseURL))
}

// HandleUpdate renames a category and replaces or removes its image.
// PATCH /api/categories/{id}
func (h *CategoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	in := service.UpdateCategoryInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		RemoveImage: r.FormValue("removeImage") == "true",
	}

	if headers := r.MultipartForm.File["image"]; len(headers) > 0 {
		up, err := readUpload(headers[0])
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		in.Image = &up
	}

	category, err := h.categories.Update(r.Context(), id, in)
	if err != nil {
		respondServiceError(w, "update category", err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(category, h.baseURL))
}

// HandleDelete removes a category, everything cascading beneath it, and its
// whole media folder.
// DELETE /api/categories/{id}
func (h *CategoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	category, err := h.categories.Delete(r.Context(), id)
	if err != nil {
		respondServiceError(w, "delete category", err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(category, h.baseURL))
}
