package devlake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nhle/lakeconsole/internal/model"
)

// GetConnection fetches a plugin connection.
func (c *Client) GetConnection(ctx context.Context, plugin string, id int) (*model.Connection, error) {
	var out model.Connection
	path := "/connections/" + url.PathEscape(plugin) + "/" + strconv.Itoa(id)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	out.Plugin = plugin
	return &out, nil
}

// scopeBody covers the fields every plugin scope shares. The id field is
// plugin specific and is taken from the request instead.
type scopeBody struct {
	Name          string             `json:"name"`
	FullName      string             `json:"fullName"`
	ScopeConfigID int                `json:"scopeConfigId"`
	ScopeConfig   *model.ScopeConfig `json:"scopeConfig"`
}

// GetScope fetches one scope of a plugin connection.
func (c *Client) GetScope(ctx context.Context, plugin string, connectionID int, scopeID string) (*model.Scope, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/scopes/%s/%d/%s", url.PathEscape(plugin), connectionID, url.PathEscape(scopeID))
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}

	// Some plugins wrap the scope as {"scope": {...}, "scopeConfig": {...}}.
	var wrapped struct {
		Scope       json.RawMessage    `json:"scope"`
		ScopeConfig *model.ScopeConfig `json:"scopeConfig"`
	}
	var body scopeBody
	if json.Unmarshal(raw, &wrapped) == nil && len(wrapped.Scope) > 0 {
		if err := json.Unmarshal(wrapped.Scope, &body); err != nil {
			return nil, fmt.Errorf("decoding scope %s: %w", scopeID, err)
		}
		if wrapped.ScopeConfig != nil {
			body.ScopeConfig = wrapped.ScopeConfig
		}
	} else if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decoding scope %s: %w", scopeID, err)
	}

	scope := &model.Scope{
		ID:          scopeID,
		Name:        body.Name,
		FullName:    body.FullName,
		ScopeConfig: body.ScopeConfig,
	}
	if scope.ScopeConfig == nil && body.ScopeConfigID != 0 {
		scope.ScopeConfig = &model.ScopeConfig{ID: body.ScopeConfigID}
	}
	return scope, nil
}
