package service

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// ImageUpload is one uploaded file: the client-declared filename (used only
// for its extension) and the raw bytes.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// ImageWrite is a planned blob write: a freshly generated store-relative
// path and the bytes to put there.
type ImageWrite struct {
	Path string
	Data []byte
}

// ImagePlan is the outcome of reconciling a product's stored image list
// against the set the client wants to keep plus any new uploads.
//
// Writes must be executed before the record update is committed so the
// record never references a file that was not durably written. Deletions
// must be executed only after the commit, so no file is removed while a
// record still references it.
type ImagePlan struct {
	Deletions []string
	Writes    []ImageWrite
	Final     []string
}

// PlanImages computes the reconciliation of existing stored image paths
// against the kept set and new uploads targeting folder.
//
// Both existing and kept are normalized to store-relative form before
// comparison, so the client may echo back absolute URLs. Deletions is the
// set difference existing − kept; Final is the kept paths in their given
// order followed by the new uploads' paths in upload order. Generated file
// names carry a random UUID so writes can never collide with kept files or
// with a concurrent request's writes.
func PlanImages(existing, kept []string, uploads []ImageUpload, folder, baseURL string) ImagePlan {
	keptNorm := make([]string, 0, len(kept))
	keptSet := make(map[string]bool, len(kept))
	for _, ref := range kept {
		norm := NormalizeRef(ref, baseURL)
		if norm == "" || keptSet[norm] {
			continue
		}
		keptSet[norm] = true
		keptNorm = append(keptNorm, norm)
	}

	var plan ImagePlan
	seen := make(map[string]bool, len(existing))
	for _, ref := range existing {
		norm := NormalizeRef(ref, baseURL)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		if !keptSet[norm] {
			plan.Deletions = append(plan.Deletions, norm)
		}
	}

	plan.Final = keptNorm
	for _, up := range uploads {
		w := ImageWrite{Path: folder + "/" + GenerateFileName(up.Filename), Data: up.Data}
		plan.Writes = append(plan.Writes, w)
		plan.Final = append(plan.Final, w.Path)
	}
	return plan
}

// NormalizeRef converts an image reference to its canonical store-relative
// form. Absolute URLs produced by prefixing the public base URL (and the
// /media/ mount) are stripped back down; anything else just loses leading
// slashes.
func NormalizeRef(ref, baseURL string) string {
	ref = strings.TrimSpace(ref)
	if baseURL != "" {
		ref = strings.TrimPrefix(ref, strings.TrimSuffix(baseURL, "/")+"/")
	}
	ref = strings.TrimPrefix(ref, "media/")
	ref = strings.TrimPrefix(strings.TrimPrefix(ref, "/"), "media/")
	return strings.TrimPrefix(ref, "/")
}

// GenerateFileName produces a collision-free file name for an upload. Only
// the extension of the client-declared name is reused; the base name is a
// random UUID so user input can never influence the write path.
func GenerateFileName(original string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(original, "\\", "/"))))
	// Keep only simple extensions; anything odd is dropped.
	if len(ext) > 8 || strings.ContainsAny(ext, `<>:"/\|?* `) {
		ext = ""
	}
	return uuid.NewString() + ext
}
