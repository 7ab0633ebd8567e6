package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/martiv/eshop-api/internal/domain"
)

// keyedMutex serializes work per numeric key. Two concurrent updates to the
// same product would otherwise race on the filesystem: one request could
// delete a file the other just decided to keep. Entries are reference
// counted and removed once the last holder unlocks.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*lockEntry)}
}

func (k *keyedMutex) Lock(id int64) {
	k.mu.Lock()
	e, ok := k.locks[id]
	if !ok {
		e = &lockEntry{}
		k.locks[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

func (k *keyedMutex) Unlock(id int64) {
	k.mu.Lock()
	e := k.locks[id]
	e.refs--
	if e.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// writeBlobs executes planned writes against the blob store. If any write
// fails, files already written by this call are removed again so a failed
// request leaves nothing linked and as little garbage as possible.
func writeBlobs(ctx context.Context, files domain.BlobStore, writes []ImageWrite) error {
	for i, w := range writes {
		if err := files.Save(ctx, w.Path, w.Data); err != nil {
			cleanupBlobs(ctx, files, writes[:i])
			return fmt.Errorf("write image %s: %w", w.Path, err)
		}
	}
	return nil
}

func cleanupBlobs(ctx context.Context, files domain.BlobStore, writes []ImageWrite) {
	for _, w := range writes {
		if err := files.Delete(ctx, w.Path); err != nil {
			slog.Error("cleanup written image", "path", w.Path, "error", err)
		}
	}
}

// deleteBlobs removes files whose records no longer reference them. A
// failed individual deletion only leaves inert garbage behind, so it is
// logged rather than surfaced.
func deleteBlobs(ctx context.Context, files domain.BlobStore, paths []string) {
	for _, p := range paths {
		if err := files.Delete(ctx, p); err != nil {
			slog.Error("delete stale image", "path", p, "error", err)
		}
	}
}
