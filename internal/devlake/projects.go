package devlake

import (
	"context"
	"net/url"

	"github.com/nhle/lakeconsole/internal/model"
)

func projectPath(name string) string {
	return "/projects/" + url.PathEscape(name)
}

// GetProject fetches a project with its blueprint.
func (c *Client) GetProject(ctx context.Context, name string) (*model.Project, error) {
	var out model.Project
	if err := c.get(ctx, projectPath(name), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProject replaces the project stored under name. p.Name may differ
// from name when the project is being renamed.
func (c *Client) UpdateProject(ctx context.Context, name string, p model.Project) (*model.Project, error) {
	var out model.Project
	if err := c.put(ctx, projectPath(name), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProject removes a project and its blueprint.
func (c *Client) DeleteProject(ctx context.Context, name string) error {
	return c.delete(ctx, projectPath(name))
}
