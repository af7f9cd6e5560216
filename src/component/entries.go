package component

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sofmeright/imagefreight/src/artifact"
	"github.com/sofmeright/imagefreight/src/config"
)

// Entries resolves every component the configured variants reference
// against the artifact tree at root. A missing document leaves Doc nil;
// any other read or parse error is returned.
func Entries(cfg *config.Config, root string, lock *artifact.Lock) ([]Entry, error) {
	var out []Entry
	for _, v := range cfg.Variants {
		for _, c := range v.Components {
			rel := artifact.ComponentFile(v, c)
			abs := filepath.Join(root, filepath.FromSlash(rel))
			e := Entry{Variant: v, Component: c}

			data, err := os.ReadFile(abs)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				out = append(out, e)
				continue
			case err != nil:
				return nil, fmt.Errorf("reading component: %w", err)
			}
			e.Hash = artifact.HashBytes(data)

			doc, err := Parse(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", abs, err)
			}
			e.Doc = doc

			if lock != nil {
				if pinned, ok := lock.Entry(rel); ok {
					e.Locked = pinned.Hash == e.Hash && pinned.Version == c.Version
				}
			}
			out = append(out, e)
		}
	}
	return out, nil
}
