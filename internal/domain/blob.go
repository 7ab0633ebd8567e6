package domain

import "context"

// BlobStore abstracts raw media file storage. Paths are store-relative,
// forward-slash separated, and mirror the category/product hierarchy.
// The initial implementation writes to the local filesystem; this interface
// allows swapping to S3 or another backend later.
type BlobStore interface {
	Save(ctx context.Context, path string, data []byte) error
	// Delete removes a single file. Deleting a path that does not exist is
	// treated as already satisfied and returns nil.
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	// DeleteTree removes a folder and everything beneath it. Used for the
	// cascading folder removal when a category or product is deleted.
	DeleteTree(ctx context.Context, dir string) error
}
