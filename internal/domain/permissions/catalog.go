package permissions

import (
	"context"

	"omscore/pkg/logger"
)

// GrantRow is a raw circle_permissions row joined with its permission.
// Either the structured columns or Combined must be set.
type GrantRow struct {
	CircleID     int64    `db:"circle_id"`
	PermissionID int64    `db:"permission_id"`
	Combined     string   `db:"combined"`
	Scope        string   `db:"scope"`
	Action       string   `db:"action"`
	Object       string   `db:"object"`
	Filters      []string `db:"filters"`
}

func (r GrantRow) permission() (Permission, error) {
	if r.Action != "" || r.Object != "" {
		return New(r.Scope, r.Action, r.Object)
	}
	return Parse(r.Combined)
}

// Catalog maps a circle id to the grants attached to it.
type Catalog map[int64][]Grant

// LoadCatalog parses grant rows once. Malformed rows are logged and skipped so
// a single bad permission never takes the whole catalog down.
func LoadCatalog(ctx context.Context, rows []GrantRow) Catalog {
	catalog := make(Catalog)
	seen := make(map[int64]map[string]struct{})

	for _, row := range rows {
		perm, err := row.permission()
		if err != nil {
			logger.Warn(ctx, "skipping malformed permission grant",
				"circle_id", row.CircleID,
				"permission_id", row.PermissionID,
				"permission", row.Combined,
				"error", err,
			)
			continue
		}

		g := Grant{
			Permission: perm,
			Fields:     normalizeFields(row.Filters),
			CircleID:   row.CircleID,
		}

		if seen[row.CircleID] == nil {
			seen[row.CircleID] = make(map[string]struct{})
		}
		id := g.identity()
		if _, dup := seen[row.CircleID][id]; dup {
			continue
		}
		seen[row.CircleID][id] = struct{}{}
		catalog[row.CircleID] = append(catalog[row.CircleID], g)
	}
	return catalog
}

// For returns the grants attached directly to a circle.
func (c Catalog) For(circleID int64) []Grant {
	return c[circleID]
}

// Size returns the total number of grants in the catalog.
func (c Catalog) Size() int {
	n := 0
	for _, grants := range c {
		n += len(grants)
	}
	return n
}
