// Package filter describes list queries shared by every listing endpoint.
package filter

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// Defaults applied by Normalize.
const (
	DefaultLimit = 30
	MaxLimit     = 500
)

// List is a paginated, sorted, free-text filtered list query.
type List struct {
	Query     string // matched case-insensitively against the entity's text columns
	Limit     int
	Offset    int
	Sort      string // column name, validated against the repository whitelist
	Direction string // asc | desc
}

// Normalize clamps pagination and drops sort columns the caller may not use.
func (l List) Normalize(sortable []string, defaultSort string) List {
	if l.Limit <= 0 {
		l.Limit = DefaultLimit
	}
	if l.Limit > MaxLimit {
		l.Limit = MaxLimit
	}
	if l.Offset < 0 {
		l.Offset = 0
	}

	allowed := false
	for _, col := range sortable {
		if col == l.Sort {
			allowed = true
			break
		}
	}
	if !allowed {
		l.Sort = defaultSort
	}

	if l.Direction != Desc {
		l.Direction = Asc
	}
	return l
}

// OrderBy renders the normalized sort as an ORDER BY clause fragment.
func (l List) OrderBy() string {
	if l.Sort == "" {
		return ""
	}
	if l.Direction == Desc {
		return l.Sort + " DESC"
	}
	return l.Sort + " ASC"
}
