package blueprint

import "errors"

// Validation errors reported inline by the blueprint forms. The request is
// never sent when one of these is returned.
var (
	ErrNameRequired        = errors.New("name is required")
	ErrInvalidCron         = errors.New("invalid cron code, please enter again")
	ErrInvalidPlan         = errors.New("plan must be a JSON array of stages")
	ErrIrreversibleMode    = errors.New("an advanced blueprint cannot be switched back to normal mode")
	ErrDuplicateConnection = errors.New("connection is already part of the blueprint")
	ErrInvalidProjectName  = errors.New("project name may only contain letters, digits, '-', '_' and '/'")
)
