package transformation

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// GitHubScopeConfig holds the regex-based rules of a GitHub scope config.
type GitHubScopeConfig struct {
	IssueTypeRequirement string `json:"issueTypeRequirement"`
	IssueTypeBug         string `json:"issueTypeBug"`
	IssueTypeIncident    string `json:"issueTypeIncident"`
	DeploymentPattern    string `json:"deploymentPattern"`
	ProductionPattern    string `json:"productionPattern"`
}

// FieldError names the scope config field that failed validation.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Validate compiles every non-empty pattern.
func (g GitHubScopeConfig) Validate() error {
	for _, f := range []struct {
		name, pattern string
	}{
		{"issueTypeRequirement", g.IssueTypeRequirement},
		{"issueTypeBug", g.IssueTypeBug},
		{"issueTypeIncident", g.IssueTypeIncident},
		{"deploymentPattern", g.DeploymentPattern},
		{"productionPattern", g.ProductionPattern},
	} {
		if f.pattern == "" {
			continue
		}
		if _, err := regexp.Compile(f.pattern); err != nil {
			return &FieldError{Field: f.name, Err: err}
		}
	}
	return nil
}

// DecodeGitHub reads the GitHub rules out of a scope config document.
func DecodeGitHub(doc Document) (GitHubScopeConfig, error) {
	var g GitHubScopeConfig
	raw, err := json.Marshal(doc)
	if err != nil {
		return g, err
	}
	if err := json.Unmarshal(raw, &g); err != nil {
		return g, fmt.Errorf("decoding github scope config: %w", err)
	}
	return g, nil
}

// EncodeGitHub validates g and writes it into a copy of doc.
func EncodeGitHub(doc Document, g GitHubScopeConfig) (Document, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	out := doc.Clone()
	for key, v := range map[string]string{
		"issueTypeRequirement": g.IssueTypeRequirement,
		"issueTypeBug":         g.IssueTypeBug,
		"issueTypeIncident":    g.IssueTypeIncident,
		"deploymentPattern":    g.DeploymentPattern,
		"productionPattern":    g.ProductionPattern,
	} {
		if err := out.set(key, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}
