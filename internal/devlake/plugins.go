package devlake

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nhle/lakeconsole/internal/transformation"
)

func proxyPrefix(plugin string, connectionID int) string {
	return fmt.Sprintf("/plugins/%s/connections/%d/proxy", url.PathEscape(plugin), connectionID)
}

// JiraIssueTypes lists the issue types of a Jira connection.
func (c *Client) JiraIssueTypes(ctx context.Context, connectionID int) ([]transformation.JiraIssueType, error) {
	var out []transformation.JiraIssueType
	if err := c.get(ctx, proxyPrefix("jira", connectionID)+"/rest/api/2/issuetype", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// JiraFields lists the issue fields of a Jira connection.
func (c *Client) JiraFields(ctx context.Context, connectionID int) ([]transformation.JiraField, error) {
	var out []transformation.JiraField
	if err := c.get(ctx, proxyPrefix("jira", connectionID)+"/rest/api/2/field", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TapdStoryCategories lists the story categories of a Tapd workspace.
func (c *Client) TapdStoryCategories(ctx context.Context, connectionID int, workspaceID string) ([]transformation.TapdStoryCategory, error) {
	var out struct {
		Data []transformation.TapdStoryCategory `json:"data"`
	}
	path := proxyPrefix("tapd", connectionID) + "/story_categories?workspace_id=" + url.QueryEscape(workspaceID)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// TapdStatusMap returns the status key to display name map of a Tapd
// workspace for system "story" or "bug".
func (c *Client) TapdStatusMap(ctx context.Context, connectionID int, workspaceID, system string) (map[string]string, error) {
	var out struct {
		Data map[string]string `json:"data"`
	}
	q := url.Values{}
	q.Set("workspace_id", workspaceID)
	q.Set("system", system)
	path := proxyPrefix("tapd", connectionID) + "/workflows/status_map?" + q.Encode()
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func scopeConfigPath(plugin string, connectionID, id int) string {
	return fmt.Sprintf("/plugins/%s/connections/%d/scope-configs/%d", url.PathEscape(plugin), connectionID, id)
}

// GetScopeConfig fetches a scope config as a raw document.
func (c *Client) GetScopeConfig(ctx context.Context, plugin string, connectionID, id int) (transformation.Document, error) {
	var out transformation.Document
	if err := c.get(ctx, scopeConfigPath(plugin, connectionID, id), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateScopeConfig replaces a scope config with doc.
func (c *Client) UpdateScopeConfig(ctx context.Context, plugin string, connectionID, id int, doc transformation.Document) (transformation.Document, error) {
	var out transformation.Document
	if err := c.put(ctx, scopeConfigPath(plugin, connectionID, id), doc, &out); err != nil {
		return nil, err
	}
	return out, nil
}
