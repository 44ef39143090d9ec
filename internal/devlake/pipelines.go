package devlake

import (
	"context"
	"strconv"

	"github.com/nhle/lakeconsole/internal/model"
)

// GetPipeline fetches a single pipeline.
func (c *Client) GetPipeline(ctx context.Context, id int) (*model.Pipeline, error) {
	var out model.Pipeline
	if err := c.get(ctx, "/pipelines/"+strconv.Itoa(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPipelineTasks returns the tasks of a pipeline.
func (c *Client) ListPipelineTasks(ctx context.Context, id int) (*model.PipelineTaskList, error) {
	var out model.PipelineTaskList
	if err := c.get(ctx, "/pipelines/"+strconv.Itoa(id)+"/tasks", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VersionInfo is the response of GET /version.
type VersionInfo struct {
	Version string `json:"version"`
}

// Version fetches the backend version. It doubles as a connectivity check.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	var out VersionInfo
	if err := c.get(ctx, "/version", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
