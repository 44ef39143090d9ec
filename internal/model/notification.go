package model

import "time"

// Notification records a pipeline reaching a terminal status, observed by
// the poller. It is surfaced as an unread counter in the header.
type Notification struct {
	ID          string         `json:"id" db:"id"`
	BlueprintID int            `json:"blueprint_id" db:"blueprint_id"`
	PipelineID  int            `json:"pipeline_id" db:"pipeline_id"`
	Status      PipelineStatus `json:"status" db:"status"`
	Message     string         `json:"message" db:"message"`
	Read        bool           `json:"read" db:"read"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}
