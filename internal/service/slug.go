package service

import (
	"strconv"
	"strings"
)

// SlugFolder derives the storage folder segment for an entity from its
// display name and numeric identifier. It is recomputed at every call site
// rather than stored, so it must stay deterministic: the same (name, id)
// always yields the same segment.
func SlugFolder(name string, id int64) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`<>:"/\|?*`, r) {
			return -1
		}
		return r
	}, strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-"))

	// A name made entirely of stripped characters still needs a usable
	// folder segment.
	if cleaned == "" {
		cleaned = "item"
	}
	return cleaned + "-" + strconv.FormatInt(id, 10)
}

// CategoryFolder returns the store-relative folder holding a category's
// image and its products subtree. The "categorys" segment matches the
// layout the frontend already links against.
func CategoryFolder(categoryName string, categoryID int64) string {
	return "categorys/" + SlugFolder(categoryName, categoryID)
}

// ProductFolder returns the store-relative folder holding a product's
// images and all of its variants' images.
func ProductFolder(categoryName string, categoryID int64, productName string, productID int64) string {
	return CategoryFolder(categoryName, categoryID) + "/products/" + SlugFolder(productName, productID)
}
