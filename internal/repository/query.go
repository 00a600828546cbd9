package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/sakif/resource-showcase/internal/apperror"
	"github.com/sakif/resource-showcase/internal/model"
)

// Cursor is a keyset position in the (createdAt desc, id desc) ordering.
// A page that starts "after" a cursor only contains resources that sort
// strictly later than it.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

type cursorWire struct {
	T  int64  `json:"t"`
	ID string `json:"id"`
}

// Encode returns the opaque form handed to clients.
func (c Cursor) Encode() string {
	b, _ := json.Marshal(cursorWire{T: c.CreatedAt.UnixNano(), ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a client-supplied cursor. An empty string yields nil.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, apperror.ValidationFailed("cursor", "cursor is malformed")
	}
	var w cursorWire
	if err := json.Unmarshal(raw, &w); err != nil || w.ID == "" {
		return nil, apperror.ValidationFailed("cursor", "cursor is malformed")
	}
	return &Cursor{CreatedAt: time.Unix(0, w.T).UTC(), ID: w.ID}, nil
}

// CursorOf returns the position just after r.
func CursorOf(r model.Resource) Cursor {
	return Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
}

// Before reports whether r sorts strictly after the cursor position, i.e.
// whether it belongs on a page that starts at c.
func (c Cursor) Before(r model.Resource) bool {
	if !r.CreatedAt.Equal(c.CreatedAt) {
		return r.CreatedAt.Before(c.CreatedAt)
	}
	return r.ID < c.ID
}

// NormalizeCategory maps the "all" pseudo-category to no filter.
func NormalizeCategory(c model.Category) model.Category {
	if c == model.CategoryAll {
		return ""
	}
	return c
}

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// MatchesSearch reports whether term occurs, case-insensitively, in the
// title, the description, or any tag of r. An empty term matches everything.
func MatchesSearch(r model.Resource, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Title), term) {
		return true
	}
	if strings.Contains(strings.ToLower(r.Description), term) {
		return true
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// SortNewestFirst orders resources by createdAt desc, then id desc.
func SortNewestFirst(rs []model.Resource) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.After(rs[j].CreatedAt)
		}
		return rs[i].ID > rs[j].ID
	})
}

// FetchFunc returns up to n candidates that match the store-side filter,
// in newest-first order, strictly after the given cursor (nil = from the
// start). Returning fewer than n means the candidates are exhausted.
type FetchFunc func(ctx context.Context, after *Cursor, n int) ([]model.Resource, error)

// OverFetchFactor is how many candidates are requested per wanted item.
const OverFetchFactor = 2

// CollectPage builds a page by pulling candidate batches from fetch and
// applying the search filter in memory.
//
// The stores can filter on isPublished/category natively but not on a
// substring of several fields, so the search predicate runs here. Each batch
// asks for OverFetchFactor × limit candidates; batches keep coming until
// limit+1 matches are found (the extra one only proves HasMore) or the store
// runs dry. Ordering and filtering are always exact; cost grows with the
// number of non-matching candidates skipped.
func CollectPage(ctx context.Context, fetch FetchFunc, search string, limit int, after *Cursor) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	batch := limit * OverFetchFactor

	matches := make([]model.Resource, 0, limit+1)
	pos := after
	for len(matches) <= limit {
		candidates, err := fetch(ctx, pos, batch)
		if err != nil {
			return nil, err
		}
		// The keyset cursor below depends on this order.
		SortNewestFirst(candidates)
		for _, c := range candidates {
			if pos != nil && !pos.Before(c) {
				continue
			}
			if MatchesSearch(c, search) {
				matches = append(matches, c)
				if len(matches) > limit {
					break
				}
			}
		}
		if len(candidates) < batch {
			break
		}
		next := CursorOf(candidates[len(candidates)-1])
		pos = &next
	}

	page := &Page{Resources: matches}
	if len(matches) > limit {
		page.Resources = matches[:limit]
		page.HasMore = true
		page.NextCursor = CursorOf(page.Resources[limit-1]).Encode()
	}
	if page.Resources == nil {
		page.Resources = []model.Resource{}
	}
	return page, nil
}
