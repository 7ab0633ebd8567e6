package handler

import (
	"strings"
	"time"

	"github.com/martiv/eshop-api/internal/domain"
)

// CategoryDTO is the JSON representation of a category. Image carries the
// absolute presentation URL; the stored reference stays relative.
type CategoryDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// ProductDTO is the JSON representation of a product with its variants.
type ProductDTO struct {
	ID          int64        `json:"id"`
	CategoryID  int64        `json:"categoryId"`
	Brand       string       `json:"brand,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Options     []string     `json:"options"`
	Price       float64      `json:"price"`
	Discount    *float64     `json:"discount,omitempty"`
	Images      []string     `json:"images"`
	Variants    []VariantDTO `json:"variants"`
	CreatedAt   string       `json:"createdAt"`
	UpdatedAt   string       `json:"updatedAt"`
}

// VariantDTO is the JSON representation of a product variant.
type VariantDTO struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"productId"`
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
}

// UserDTO is the JSON representation of a user. The password hash never
// leaves the server.
type UserDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toCategoryDTO(c *domain.Category, baseURL string) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Image:       mediaURL(c.Image, baseURL),
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.Format(time.RFC3339),
	}
}

func toProductDTO(p *domain.Product, baseURL string) ProductDTO {
	images := make([]string, 0, len(p.Images))
	for _, ref := range p.Images {
		images = append(images, mediaURL(ref, baseURL))
	}

	variants := make([]VariantDTO, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, VariantDTO{
			ID:        v.ID,
			ProductID: v.ProductID,
			Name:      v.Name,
			Price:     v.Price.InexactFloat64(),
			Image:     mediaURL(v.Image, baseURL),
		})
	}

	dto := ProductDTO{
		ID:          p.ID,
		CategoryID:  p.CategoryID,
		Brand:       p.Brand,
		Name:        p.Name,
		Description: p.Description,
		Options:     p.Options,
		Price:       p.Price.InexactFloat64(),
		Images:      images,
		Variants:    variants,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
	if p.Options == nil {
		dto.Options = []string{}
	}
	if p.Discount != nil {
		d := p.Discount.InexactFloat64()
		dto.Discount = &d
	}
	return dto
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
	}
}

// mediaURL turns a store-relative image reference into its absolute
// presentation form.
func mediaURL(ref, baseURL string) string {
	if ref == "" {
		return ""
	}
	return strings.TrimSuffix(baseURL, "/") + "/media/" + ref
}
