package devlake

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nhle/lakeconsole/internal/model"
)

// BlueprintFilter narrows GET /blueprints. Type is "ALL", a preset label
// upper-cased ("DAILY"), "MANUAL" or "CUSTOM".
type BlueprintFilter struct {
	Type     string
	Page     int
	PageSize int
}

func (f BlueprintFilter) query() string {
	q := url.Values{}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(f.PageSize))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// ListBlueprints returns one page of blueprints and the total count.
func (c *Client) ListBlueprints(ctx context.Context, f BlueprintFilter) (*model.BlueprintList, error) {
	var out model.BlueprintList
	if err := c.get(ctx, "/blueprints"+f.query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBlueprint fetches a single blueprint.
func (c *Client) GetBlueprint(ctx context.Context, id int) (*model.Blueprint, error) {
	var out model.Blueprint
	if err := c.get(ctx, blueprintPath(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBlueprint posts a new blueprint and returns it as stored.
func (c *Client) CreateBlueprint(ctx context.Context, bp model.Blueprint) (*model.Blueprint, error) {
	var out model.Blueprint
	if err := c.post(ctx, "/blueprints", bp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBlueprint replaces a blueprint with the full object bp.
func (c *Client) UpdateBlueprint(ctx context.Context, bp model.Blueprint) (*model.Blueprint, error) {
	if bp.ID == 0 {
		return nil, fmt.Errorf("updating blueprint %q: missing id", bp.Name)
	}
	var out model.Blueprint
	if err := c.put(ctx, blueprintPath(bp.ID), bp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBlueprint removes a blueprint.
func (c *Client) DeleteBlueprint(ctx context.Context, id int) error {
	return c.delete(ctx, blueprintPath(id))
}

// TriggerBlueprint starts a pipeline for the blueprint.
func (c *Client) TriggerBlueprint(ctx context.Context, id int, opts model.TriggerOptions) (*model.Pipeline, error) {
	var out model.Pipeline
	if err := c.post(ctx, blueprintPath(id)+"/trigger", opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBlueprintPipelines returns the pipelines run for a blueprint, newest
// first.
func (c *Client) ListBlueprintPipelines(ctx context.Context, id int) (*model.PipelineList, error) {
	var out model.PipelineList
	if err := c.get(ctx, blueprintPath(id)+"/pipelines", &out); err != nil {
		return nil, err
	}
	for i := range out.Pipelines {
		if out.Pipelines[i].BlueprintID == 0 {
			out.Pipelines[i].BlueprintID = id
		}
	}
	return &out, nil
}

func blueprintPath(id int) string {
	return "/blueprints/" + strconv.Itoa(id)
}
