package cache

import (
	"net/url"
	"strconv"

	"talentcore/pkg/domain"
)

// Key identifies one cached collection entry: a resource type, the workspace
// it is scoped to, and the canonicalized filter parameters of the listing.
type Key struct {
	Entity    domain.EntityType
	ScopeID   string
	FilterKey string
}

// String renders the key in entity/scope/filters form for logs and metrics.
func (k Key) String() string {
	return string(k.Entity) + "/" + k.ScopeID + "/" + k.FilterKey
}

// Filters describes the search and pagination parameters of a listing.
// The zero value means an unfiltered first page.
type Filters struct {
	Search   string
	Stage    string
	Page     int
	PageSize int
	Sort     string
}

// CanonicalKey serializes the filters deterministically: identical filter
// sets always produce identical keys regardless of construction order.
// Zero-valued fields are omitted so the unfiltered listing keys to "".
func (f Filters) CanonicalKey() string {
	v := url.Values{}
	if f.Search != "" {
		v.Set("q", f.Search)
	}
	if f.Stage != "" {
		v.Set("stage", f.Stage)
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		v.Set("size", strconv.Itoa(f.PageSize))
	}
	if f.Sort != "" {
		v.Set("sort", f.Sort)
	}
	return v.Encode()
}

// KeyFor builds the cache key for one entity listing within a workspace.
func KeyFor(entity domain.EntityType, scopeID string, filters Filters) Key {
	return Key{Entity: entity, ScopeID: scopeID, FilterKey: filters.CanonicalKey()}
}
