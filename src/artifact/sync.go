package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrNotFound is returned by ObjectStore.Stat for a missing key.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key  string
	Size int64
	// Hash is the BLAKE3 digest recorded at upload, empty for objects
	// written by other tools.
	Hash string
}

// ObjectStore is the bucket the artifact tree is mirrored into. Stat
// returns ErrNotFound for a missing key, and List returns it when the
// bucket itself is missing.
type ObjectStore interface {
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Put(ctx context.Context, key, localPath string, size int64, hash string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// SyncOptions control a mirror run.
type SyncOptions struct {
	KeyPrefix string
	Prune     bool
	DryRun    bool
	Parallel  int
	Verbose   bool
}

// SyncResult lists the keys touched by a mirror run, each sorted.
type SyncResult struct {
	Uploaded  []string
	Unchanged []string
	Deleted   []string
}

// Key returns the object key of f under prefix.
func Key(prefix string, f File) string {
	if prefix == "" {
		return f.Path
	}
	return path.Join(prefix, f.Path)
}

// Sync mirrors files into store under opts.KeyPrefix. An object whose
// recorded hash matches the local file is left alone. With Prune, keys
// under the prefix that have no local file are deleted. DryRun reports
// what would change without writing; a store whose List returns
// ErrNotFound is treated as empty there.
func Sync(ctx context.Context, store ObjectStore, files []File, opts SyncOptions) (*SyncResult, error) {
	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = 4
	}

	var (
		mu  sync.Mutex
		res SyncResult
	)
	record := func(list *[]string, key string) {
		mu.Lock()
		*list = append(*list, key)
		mu.Unlock()
	}

	local := make(map[string]bool, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for _, f := range files {
		key := Key(opts.KeyPrefix, f)
		local[key] = true
		g.Go(func() error {
			hash, err := HashFile(f.AbsPath)
			if err != nil {
				return err
			}
			info, err := store.Stat(gctx, key)
			switch {
			case err == nil && info.Hash == hash:
				record(&res.Unchanged, key)
				return nil
			case err != nil && !errors.Is(err, ErrNotFound):
				return fmt.Errorf("stat %s: %w", key, err)
			}
			if opts.Verbose {
				fmt.Fprintf(os.Stderr, "sync: upload %s (%d bytes)\n", key, f.Size)
			}
			if !opts.DryRun {
				if err := store.Put(gctx, key, f.AbsPath, f.Size, hash); err != nil {
					return fmt.Errorf("put %s: %w", key, err)
				}
			}
			record(&res.Uploaded, key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.Prune {
		prefix := opts.KeyPrefix
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		remote, err := store.List(ctx, prefix)
		switch {
		case err != nil && opts.DryRun && errors.Is(err, ErrNotFound):
			// Nothing is stored yet; every file already counts as an upload.
			remote = nil
		case err != nil:
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, key := range remote {
			if local[key] {
				continue
			}
			if opts.Verbose {
				fmt.Fprintf(os.Stderr, "sync: delete %s\n", key)
			}
			if !opts.DryRun {
				if err := store.Delete(ctx, key); err != nil {
					return nil, fmt.Errorf("delete %s: %w", key, err)
				}
			}
			res.Deleted = append(res.Deleted, key)
		}
	}

	sort.Strings(res.Uploaded)
	sort.Strings(res.Unchanged)
	sort.Strings(res.Deleted)
	return &res, nil
}
