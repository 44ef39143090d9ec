// Package transformation edits the vendor-to-standard category mappings of
// scope configs: which Jira issue types count as bugs, which Tapd statuses
// count as done, and so on.
package transformation

import (
	"fmt"
	"sort"
)

// Category is a standard bucket that vendor items are mapped to.
type Category string

// CategorySet is a named, ordered group of mutually exclusive categories.
type CategorySet struct {
	Name       string
	Categories []Category
}

// Has reports whether c belongs to the set.
func (s CategorySet) Has(c Category) bool {
	for _, x := range s.Categories {
		if x == c {
			return true
		}
	}
	return false
}

// MappingTable maps a vendor item (issue type name, status id) to the single
// category it belongs to. Items missing from the table are unmapped.
type MappingTable map[string]Category

// Clone returns an independent copy of the table.
func (t MappingTable) Clone() MappingTable {
	out := make(MappingTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Members returns the sorted items mapped to category.
func Members(table MappingTable, category Category) []string {
	var out []string
	for item, c := range table {
		if c == category {
			out = append(out, item)
		}
	}
	sort.Strings(out)
	return out
}

// Available returns the items of universe a picker for category may offer:
// everything not already claimed by another category of the set.
func Available(table MappingTable, set CategorySet, category Category, universe []string) []string {
	out := make([]string, 0, len(universe))
	for _, item := range universe {
		c, ok := table[item]
		if ok && c != category && set.Has(c) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// rebuild assembles a fresh table from per-category member lists, in the
// order of the set. Later categories win when an item shows up twice.
func rebuild(set CategorySet, lists map[Category][]string) MappingTable {
	out := make(MappingTable)
	for _, c := range set.Categories {
		for _, item := range lists[c] {
			out[item] = c
		}
	}
	return out
}

func lists(table MappingTable, set CategorySet) map[Category][]string {
	out := make(map[Category][]string, len(set.Categories))
	for _, c := range set.Categories {
		out[c] = Members(table, c)
	}
	return out
}

// SetCategory moves one item into category, taking it out of whatever
// category held it before. The table is rebuilt from scratch; the input is
// never modified.
func SetCategory(table MappingTable, set CategorySet, item string, category Category) (MappingTable, error) {
	if !set.Has(category) {
		return nil, fmt.Errorf("unknown %s category %q", set.Name, category)
	}
	l := lists(unset(table, set, item), set)
	l[category] = append(l[category], item)
	return rebuild(set, l), nil
}

// unset removes item from every category.
func unset(table MappingTable, set CategorySet, item string) MappingTable {
	l := lists(table, set)
	for c, members := range l {
		l[c] = without(members, item)
	}
	return rebuild(set, l)
}

// SetSelection replaces the whole membership of one category, as a
// multi-select picker does. Items already claimed by another category are
// disabled in the picker and are ignored here.
func SetSelection(table MappingTable, set CategorySet, category Category, items []string) (MappingTable, error) {
	if !set.Has(category) {
		return nil, fmt.Errorf("unknown %s category %q", set.Name, category)
	}
	l := lists(table, set)
	var selected []string
	for _, item := range items {
		if c, ok := table[item]; ok && c != category && set.Has(c) {
			continue
		}
		selected = append(selected, item)
	}
	l[category] = selected
	return rebuild(set, l), nil
}

// Restrict drops mapped items that the vendor no longer reports.
func Restrict(table MappingTable, set CategorySet, universe []string) MappingTable {
	known := make(map[string]struct{}, len(universe))
	for _, item := range universe {
		known[item] = struct{}{}
	}
	l := lists(table, set)
	for c, members := range l {
		kept := members[:0]
		for _, m := range members {
			if _, ok := known[m]; ok {
				kept = append(kept, m)
			}
		}
		l[c] = kept
	}
	return rebuild(set, l)
}

func without(items []string, item string) []string {
	out := items[:0:0]
	for _, it := range items {
		if it != item {
			out = append(out, it)
		}
	}
	return out
}
