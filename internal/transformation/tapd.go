package transformation

import (
	"encoding/json"
	"fmt"
)

// Tapd standard issue types. Requirement is spelled the way the Tapd plugin
// stores it.
const (
	TapdRequirement Category = "Requirement"
	TapdBug         Category = "BUG"
	TapdIncident    Category = "INCIDENT"
)

// Tapd standard statuses.
const (
	TapdTodo       Category = "TODO"
	TapdInProgress Category = "IN-PROGRESS"
	TapdDone       Category = "DONE"
)

var (
	// TapdTypes is the category set of the Tapd issue-type editor.
	TapdTypes = CategorySet{
		Name:       "issue type",
		Categories: []Category{TapdRequirement, TapdBug, TapdIncident},
	}

	// TapdStatuses is the category set of the Tapd status editor.
	TapdStatuses = CategorySet{
		Name:       "status",
		Categories: []Category{TapdTodo, TapdInProgress, TapdDone},
	}
)

// TapdItem is a type or status offered by the Tapd editor.
type TapdItem struct {
	ID   string
	Name string
}

// TapdTransformation is the Tapd part of a scope config.
type TapdTransformation struct {
	TypeMappings   map[string]string `json:"typeMappings"`
	StatusMappings map[string]string `json:"statusMappings"`
}

// TypeTable flattens the type mappings.
func (t TapdTransformation) TypeTable() MappingTable {
	return toTable(t.TypeMappings)
}

// StatusTable flattens the status mappings.
func (t TapdTransformation) StatusTable() MappingTable {
	return toTable(t.StatusMappings)
}

// WithTypes returns a copy with type mappings rebuilt from table.
func (t TapdTransformation) WithTypes(table MappingTable) TapdTransformation {
	t.TypeMappings = fromTable(table, TapdTypes)
	return t
}

// WithStatuses returns a copy with status mappings rebuilt from table.
func (t TapdTransformation) WithStatuses(table MappingTable) TapdTransformation {
	t.StatusMappings = fromTable(table, TapdStatuses)
	return t
}

func toTable(m map[string]string) MappingTable {
	out := make(MappingTable, len(m))
	for k, v := range m {
		out[k] = Category(v)
	}
	return out
}

func fromTable(table MappingTable, set CategorySet) map[string]string {
	out := make(map[string]string, len(table))
	for k, c := range table {
		if set.Has(c) {
			out[k] = string(c)
		}
	}
	return out
}

// TapdStoryCategory is one entry of the Tapd story categories endpoint.
type TapdStoryCategory struct {
	Category struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"Category"`
}

// TapdTypeItems lists the story categories followed by the fixed bug and task
// types.
func TapdTypeItems(categories []TapdStoryCategory) []TapdItem {
	out := make([]TapdItem, 0, len(categories)+2)
	for _, c := range categories {
		out = append(out, TapdItem{ID: c.Category.ID, Name: c.Category.Name})
	}
	return append(out,
		TapdItem{ID: "BUG", Name: "bug"},
		TapdItem{ID: "TASK", Name: "task"},
	)
}

// TapdStatusItems lists the task statuses followed by the story and bug
// statuses, without duplicates.
func TapdStatusItems(storyStatus, bugStatus map[string]string) []TapdItem {
	out := []TapdItem{
		{ID: "open", Name: "task-open"},
		{ID: "progressing", Name: "task-progressing"},
		{ID: "done", Name: "task-done"},
	}
	seen := map[string]struct{}{"open": {}, "progressing": {}, "done": {}}
	for _, m := range []map[string]string{storyStatus, bugStatus} {
		for _, name := range sortedValues(m) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, TapdItem{ID: name, Name: name})
		}
	}
	return out
}

// ItemIDs returns the ids of items in order.
func ItemIDs(items []TapdItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// DecodeTapd reads the Tapd fields out of a scope config document.
func DecodeTapd(doc Document) (TapdTransformation, error) {
	var t TapdTransformation
	for key, dst := range map[string]*map[string]string{
		"typeMappings":   &t.TypeMappings,
		"statusMappings": &t.StatusMappings,
	} {
		raw, ok := doc[key]
		if !ok || isNull(raw) {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return t, fmt.Errorf("decoding %s: %w", key, err)
		}
	}
	if t.TypeMappings == nil {
		t.TypeMappings = map[string]string{}
	}
	if t.StatusMappings == nil {
		t.StatusMappings = map[string]string{}
	}
	return t, nil
}

// EncodeTapd writes t into a copy of doc, keeping every other field.
func EncodeTapd(doc Document, t TapdTransformation) (Document, error) {
	out := doc.Clone()
	if err := out.set("typeMappings", t.TypeMappings); err != nil {
		return nil, err
	}
	if err := out.set("statusMappings", t.StatusMappings); err != nil {
		return nil, err
	}
	return out, nil
}
