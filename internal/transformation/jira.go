package transformation

import (
	"encoding/json"
	"fmt"
)

// Jira standard issue types.
const (
	JiraRequirement Category = "REQUIREMENT"
	JiraBug         Category = "BUG"
	JiraIncident    Category = "INCIDENT"
)

// JiraTypes is the category set of the Jira issue-type editor.
var JiraTypes = CategorySet{
	Name:       "issue type",
	Categories: []Category{JiraRequirement, JiraBug, JiraIncident},
}

// JiraTypeMapping is the value stored per issue type name.
type JiraTypeMapping struct {
	StandardType Category `json:"standardType"`
}

// JiraIssueType is one entry of the Jira issuetype proxy endpoint.
type JiraIssueType struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IconURL string `json:"iconUrl"`
}

// JiraField is one entry of the Jira field proxy endpoint.
type JiraField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// JiraTransformation is the Jira part of a scope config.
type JiraTransformation struct {
	TypeMappings    map[string]JiraTypeMapping `json:"typeMappings"`
	StoryPointField string                     `json:"storyPointField"`
}

// Table flattens the type mappings into a MappingTable.
func (j JiraTransformation) Table() MappingTable {
	out := make(MappingTable, len(j.TypeMappings))
	for name, m := range j.TypeMappings {
		out[name] = m.StandardType
	}
	return out
}

// WithTable returns a copy whose type mappings are rebuilt from table.
func (j JiraTransformation) WithTable(table MappingTable) JiraTransformation {
	j.TypeMappings = make(map[string]JiraTypeMapping, len(table))
	for name, c := range table {
		if JiraTypes.Has(c) {
			j.TypeMappings[name] = JiraTypeMapping{StandardType: c}
		}
	}
	return j
}

// UniqueIssueTypeNames returns issue type names in first-seen order. Jira
// reports one issue type per project, so names repeat.
func UniqueIssueTypeNames(types []JiraIssueType) []string {
	seen := make(map[string]struct{}, len(types))
	var out []string
	for _, it := range types {
		if _, ok := seen[it.Name]; ok {
			continue
		}
		seen[it.Name] = struct{}{}
		out = append(out, it.Name)
	}
	return out
}

// DecodeJira reads the Jira fields out of a scope config document.
func DecodeJira(doc Document) (JiraTransformation, error) {
	var j JiraTransformation
	if raw, ok := doc["typeMappings"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &j.TypeMappings); err != nil {
			return j, fmt.Errorf("decoding typeMappings: %w", err)
		}
	}
	if raw, ok := doc["storyPointField"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &j.StoryPointField); err != nil {
			return j, fmt.Errorf("decoding storyPointField: %w", err)
		}
	}
	if j.TypeMappings == nil {
		j.TypeMappings = map[string]JiraTypeMapping{}
	}
	return j, nil
}

// EncodeJira writes j into a copy of doc, keeping every other field.
func EncodeJira(doc Document, j JiraTransformation) (Document, error) {
	out := doc.Clone()
	if err := out.set("typeMappings", j.TypeMappings); err != nil {
		return nil, err
	}
	if err := out.set("storyPointField", j.StoryPointField); err != nil {
		return nil, err
	}
	return out, nil
}
