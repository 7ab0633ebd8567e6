package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/martiv/eshop-api/internal/domain"
)

// VariantInput describes one variant as submitted by the client. A zero ID
// means a brand-new variant; a positive ID refers to an existing row.
type VariantInput struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// VariantUploads carries uploaded variant images keyed by their correlation:
// ByID for existing variants, ByNewIndex for brand-new ones, where the index
// is the variant's position among the new entries of the incoming list.
// Each new variant gets its own index, so several new variants with images
// can arrive in one request without ambiguity.
type VariantUploads struct {
	ByID       map[int64]ImageUpload
	ByNewIndex map[int]ImageUpload
}

// VariantChangePlan combines the record-level variant plan with the file
// operations it implies. FileWrites follow the same ordering contract as
// ImagePlan: writes before the record commit, deletes after.
type VariantChangePlan struct {
	domain.VariantPlan
	FileDeletes []string
	FileWrites  []ImageWrite
}

// PlanVariants reconciles a product's stored variants against the incoming
// descriptor list.
//
// Existing variants absent from the incoming ID set are deleted along with
// their image files. Variants present in both get their name and price
// updated in place; a correlated upload replaces the variant's image and
// schedules the old file's deletion. Incoming entries with ID 0 become
// inserts. An incoming ID that matches no stored variant is a client error.
func PlanVariants(existing []domain.Variant, incoming []VariantInput, uploads VariantUploads, folder, baseURL string) (VariantChangePlan, error) {
	var plan VariantChangePlan

	existingByID := make(map[int64]domain.Variant, len(existing))
	for _, v := range existing {
		existingByID[v.ID] = v
	}
	incomingIDs := make(map[int64]bool, len(incoming))
	for _, in := range incoming {
		if in.ID > 0 {
			if _, ok := existingByID[in.ID]; !ok {
				return VariantChangePlan{}, fmt.Errorf("%w: variant %d not found on product", domain.ErrInvalidInput, in.ID)
			}
			if incomingIDs[in.ID] {
				return VariantChangePlan{}, fmt.Errorf("%w: variant %d listed twice", domain.ErrInvalidInput, in.ID)
			}
			incomingIDs[in.ID] = true
		}
	}

	for _, v := range existing {
		if !incomingIDs[v.ID] {
			plan.Deletes = append(plan.Deletes, v)
			if v.Image != "" {
				plan.FileDeletes = append(plan.FileDeletes, NormalizeRef(v.Image, baseURL))
			}
		}
	}

	newIndex := 0
	for _, in := range incoming {
		if in.ID > 0 {
			v := existingByID[in.ID]
			v.Name = in.Name
			v.Price = in.Price
			if up, ok := uploads.ByID[in.ID]; ok {
				if v.Image != "" {
					plan.FileDeletes = append(plan.FileDeletes, NormalizeRef(v.Image, baseURL))
				}
				w := ImageWrite{Path: folder + "/" + GenerateFileName(up.Filename), Data: up.Data}
				plan.FileWrites = append(plan.FileWrites, w)
				v.Image = w.Path
			}
			plan.Updates = append(plan.Updates, v)
			continue
		}

		v := domain.Variant{Name: in.Name, Price: in.Price}
		if up, ok := uploads.ByNewIndex[newIndex]; ok {
			w := ImageWrite{Path: folder + "/" + GenerateFileName(up.Filename), Data: up.Data}
			plan.FileWrites = append(plan.FileWrites, w)
			v.Image = w.Path
		}
		newIndex++
		plan.Inserts = append(plan.Inserts, v)
	}

	return plan, nil
}
