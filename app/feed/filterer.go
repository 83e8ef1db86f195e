package feed

import (
	"fmt"
	"slices"
	"strings"
)

// Rejection is an item dropped by an adaptor filter and the rule that dropped it.
type Rejection struct {
	Item   Item
	Reason string
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run splits items into those passing every filter and those rejected.
// Matching is case-insensitive substring search on the filter's field.
func (f *Filterer) Run(items []Item, filters []Filter) ([]Item, []Rejection) {
	if len(filters) == 0 {
		return items, nil
	}

	var (
		kept     = make([]Item, 0, len(items))
		rejected []Rejection
	)
	for _, item := range items {
		if reason := rejectReason(item, filters); reason != "" {
			rejected = append(rejected, Rejection{Item: item, Reason: reason})
			continue
		}
		kept = append(kept, item)
	}
	return kept, rejected
}

func rejectReason(item Item, filters []Filter) string {
	for _, filter := range filters {
		value := strings.ToLower(fieldValue(item, filter.Field))
		contains := func(pattern string) bool {
			return strings.Contains(value, strings.ToLower(pattern))
		}

		if i := slices.IndexFunc(filter.Excludes, contains); i >= 0 {
			return fmt.Sprintf("%s contains excluded %q", filter.Field, filter.Excludes[i])
		}
		if len(filter.Includes) > 0 && !slices.ContainsFunc(filter.Includes, contains) {
			return fmt.Sprintf("%s matches none of %q", filter.Field, filter.Includes)
		}
	}
	return ""
}

func fieldValue(item Item, field string) string {
	switch field {
	case "title":
		return item.Title
	case "description":
		return item.Description
	case "content":
		return item.Content
	case "authors":
		return strings.Join(item.Authors, " ")
	case "link":
		return item.Link
	case "categories":
		return strings.Join(item.Categories, " ")
	}
	return ""
}
