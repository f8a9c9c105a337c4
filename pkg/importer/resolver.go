package importer

import (
	"context"
	"strconv"
	"strings"

	"asset-inventory-api/internal/schema"
)

// Resolver maps natural-key strings from import data to surrogate ids.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the id of the row the raw value references, or found=false
// when nothing matches. Empty input never touches the store. References that
// allow it (assets) may be given as a raw surrogate id instead of the
// natural key.
func (r *Resolver) Resolve(ctx context.Context, ref *schema.Ref, raw string) (int64, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	if ref.ByID {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return r.store.LookupID(ctx, ref.Table, ref.IDColumn, id)
		}
	}
	return r.store.Lookup(ctx, ref.Table, ref.IDColumn, ref.KeyColumn, raw)
}
