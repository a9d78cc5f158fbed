// Package query filters, sorts and paginates snapshots of the recipe
// collection. Everything here is a pure function over the snapshot; nothing
// touches the database's query engine.
package query

import (
	"sort"
	"strings"

	"recipehub/domain"
)

// SortKey selects the ordering of a result set.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortUpdated   SortKey = "updated"
	SortPopular   SortKey = "popular"
	SortDiscussed SortKey = "discussed"
)

// NoDurationCap marks the upper duration bound as unbounded. The HTTP layer
// maps the legacy "slider at configured maximum" sentinel onto this value so
// the engine never compares against a magic constant.
const NoDurationCap = -1

// Criteria is one search request. Zero values mean "no constraint"; an
// entirely empty criteria set returns the full collection in newest order.
type Criteria struct {
	Text         string
	Tags         []string // AND: every tag must be present
	Complexities []string // OR: recipe complexity must be one of these
	MinMinutes   int      // inclusive lower bound on derived duration
	MaxMinutes   int      // inclusive upper bound; NoDurationCap = unbounded
	Sort         SortKey
	Page         int
	PageSize     int
	IDs          []string // short-circuits every other criterion
}

// Result is a page of matches plus the totals callers need for paging.
type Result struct {
	Data  []domain.Recipe `json:"data"`
	Total int             `json:"total"`
	Page  int             `json:"page"`
	Pages int             `json:"pages"`
}

// Run evaluates the criteria against a snapshot. The snapshot is not
// mutated; sorting happens on a filtered copy.
func Run(snapshot []domain.Recipe, c Criteria) Result {
	if len(c.IDs) > 0 {
		// Direct lookup bypasses filtering, sorting and paging entirely.
		found := byIDs(snapshot, c.IDs)
		return Result{Data: found, Total: len(found), Page: 1, Pages: 1}
	}

	matched := make([]domain.Recipe, 0, len(snapshot))
	for _, r := range snapshot {
		if matches(r, c) {
			matched = append(matched, r)
		}
	}

	sortRecipes(matched, c.Sort)

	page := c.Page
	if page < 1 {
		page = 1
	}
	size := c.PageSize
	if size < 1 {
		size = len(matched)
		if size == 0 {
			size = 1
		}
	}

	total := len(matched)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}

	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return Result{Data: matched[start:end], Total: total, Page: page, Pages: pages}
}

func byIDs(snapshot []domain.Recipe, ids []string) []domain.Recipe {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]domain.Recipe, 0, len(ids))
	for _, r := range snapshot {
		if _, ok := want[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

func matches(r domain.Recipe, c Criteria) bool {
	if c.Text != "" && !matchesText(r, c.Text) {
		return false
	}
	if len(c.Tags) > 0 && !r.HasAllTags(c.Tags) {
		return false
	}
	if len(c.Complexities) > 0 && !containsFold(c.Complexities, r.Complexity) {
		return false
	}
	if r.DurationMinutes < c.MinMinutes {
		return false
	}
	if c.MaxMinutes != NoDurationCap && c.MaxMinutes > 0 && r.DurationMinutes > c.MaxMinutes {
		return false
	}
	return true
}

// matchesText is a case-insensitive substring match against the name, any
// tag, or the ingredient text. There is no relevance ranking; ordering is
// decided by the sort key alone.
func matchesText(r domain.Recipe, text string) bool {
	needle := strings.ToLower(text)
	if strings.Contains(strings.ToLower(r.Name), needle) {
		return true
	}
	for _, t := range r.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(r.Ingredients), needle)
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// sortRecipes orders in place. The sort is stable: records with equal keys
// keep their original collection order.
func sortRecipes(rs []domain.Recipe, key SortKey) {
	switch key {
	case SortUpdated:
		sort.SliceStable(rs, func(i, j int) bool {
			return rs[i].UpdatedAt.After(rs[j].UpdatedAt)
		})
	case SortPopular:
		sort.SliceStable(rs, func(i, j int) bool {
			return rs[i].Rating.Mean > rs[j].Rating.Mean
		})
	case SortDiscussed:
		sort.SliceStable(rs, func(i, j int) bool {
			return rs[i].CommentCount() > rs[j].CommentCount()
		})
	default: // SortNewest
		sort.SliceStable(rs, func(i, j int) bool {
			return rs[i].CreatedAt.After(rs[j].CreatedAt)
		})
	}
}
