package model

import "time"

// PipelineStatus is the backend-reported state of a pipeline or task.
type PipelineStatus string

const (
	PipelineCreated   PipelineStatus = "TASK_CREATED"
	PipelineRunning   PipelineStatus = "TASK_RUNNING"
	PipelineRerun     PipelineStatus = "TASK_RERUN"
	PipelineCompleted PipelineStatus = "TASK_COMPLETED"
	PipelinePartial   PipelineStatus = "TASK_PARTIAL"
	PipelineCancelled PipelineStatus = "TASK_CANCELLED"
	PipelineFailed    PipelineStatus = "TASK_FAILED"
)

// IsTerminal reports whether a pipeline in this status will not change again.
func (s PipelineStatus) IsTerminal() bool {
	switch s {
	case PipelineCompleted, PipelinePartial, PipelineCancelled, PipelineFailed:
		return true
	}
	return false
}

// Label is the short human form shown in tables.
func (s PipelineStatus) Label() string {
	switch s {
	case PipelineCreated:
		return "Created"
	case PipelineRunning:
		return "In Progress"
	case PipelineRerun:
		return "Rerun"
	case PipelineCompleted:
		return "Succeeded"
	case PipelinePartial:
		return "Partial Success"
	case PipelineCancelled:
		return "Cancelled"
	case PipelineFailed:
		return "Failed"
	default:
		return string(s)
	}
}

// Pipeline is one execution of a blueprint. It is read-only for the console.
type Pipeline struct {
	ID            int            `json:"id" db:"id"`
	BlueprintID   int            `json:"blueprintId" db:"blueprint_id"`
	Status        PipelineStatus `json:"status" db:"status"`
	FinishedTasks int            `json:"finishedTasks" db:"finished_tasks"`
	TotalTasks    int            `json:"totalTasks" db:"total_tasks"`
	Message       string         `json:"message" db:"message"`
	SpentSeconds  int            `json:"spentSeconds" db:"spent_seconds"`
	BeganAt       *time.Time     `json:"beganAt" db:"began_at"`
	FinishedAt    *time.Time     `json:"finishedAt" db:"finished_at"`
	CreatedAt     time.Time      `json:"createdAt" db:"created_at"`

	// FetchedAt is set by the local cache, never by the backend.
	FetchedAt time.Time `json:"-" db:"fetched_at"`
}

// Duration returns how long the pipeline ran, or has been running.
func (p Pipeline) Duration(now time.Time) time.Duration {
	if p.BeganAt == nil {
		return 0
	}
	end := now
	if p.FinishedAt != nil {
		end = *p.FinishedAt
	}
	return end.Sub(*p.BeganAt)
}

// AllTerminal reports whether every pipeline has reached a terminal status.
// It is the stop predicate for pipeline polling.
func AllTerminal(pipelines []Pipeline) bool {
	for _, p := range pipelines {
		if !p.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// PipelineList is the response of GET /blueprints/{id}/pipelines.
type PipelineList struct {
	Pipelines []Pipeline `json:"pipelines"`
	Count     int        `json:"count"`
}

// PipelineTask is a single unit of work inside a pipeline.
type PipelineTask struct {
	ID         int            `json:"id"`
	PipelineID int            `json:"pipelineId"`
	Plugin     string         `json:"plugin"`
	Status     PipelineStatus `json:"status"`
	Progress   float64        `json:"progress"`
	Message    string         `json:"message"`
	BeganAt    *time.Time     `json:"beganAt"`
	FinishedAt *time.Time     `json:"finishedAt"`
}

// PipelineTaskList is the response of GET /pipelines/{id}/tasks.
type PipelineTaskList struct {
	Tasks []PipelineTask `json:"tasks"`
	Count int            `json:"count"`
}
