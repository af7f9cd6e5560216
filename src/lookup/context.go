package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/tidwall/jsonc"
)

// ContextCache is a file-backed lookup cache in the cdk.context.json
// format: a flat JSON object keyed by Query.Key.
type ContextCache struct {
	Path    string
	entries map[string]json.RawMessage
}

// OpenContext reads the cache at path. A missing file yields an empty
// cache.
func OpenContext(path string) (*ContextCache, error) {
	c := &ContextCache{Path: path, entries: map[string]json.RawMessage{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("reading context %s: %w", path, err)
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &c.entries); err != nil {
		return nil, fmt.Errorf("parsing context %s: %w", path, err)
	}
	return c, nil
}

// LookupVpc implements VpcProvider.
func (c *ContextCache) LookupVpc(_ context.Context, q Query) (*Vpc, error) {
	raw, ok := c.entries[q.Key()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", q.Key(), ErrLookupMissing)
	}
	var v Vpc
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("context %s: %w", q.Key(), err)
	}
	if v.ID != q.VpcID {
		return nil, fmt.Errorf("context %s: cached vpc id %q does not match", q.Key(), v.ID)
	}
	return &v, nil
}

// Record stores a lookup result and reports whether the cache changed.
// An entry that already names the same CIDR and subnets is kept as is,
// so entries written by cdk keep their extra fields.
func (c *ContextCache) Record(q Query, v *Vpc) (bool, error) {
	if raw, ok := c.entries[q.Key()]; ok {
		var old Vpc
		if json.Unmarshal(raw, &old) == nil && sameNetwork(&old, v) {
			return false, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	c.entries[q.Key()] = data
	return true, nil
}

func sameNetwork(a, b *Vpc) bool {
	return a.ID == b.ID && a.CidrBlock == b.CidrBlock && slices.Equal(a.SubnetIDs(), b.SubnetIDs())
}

// Save writes the cache back to disk.
func (c *ContextCache) Save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding context: %w", err)
	}
	if err := os.WriteFile(c.Path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing context %s: %w", c.Path, err)
	}
	return nil
}
