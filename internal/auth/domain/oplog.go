package domain

import "time"

type OperationAction string

const (
	ActionCreate OperationAction = "CREATE"
	ActionUpdate OperationAction = "UPDATE"
	ActionDelete OperationAction = "DELETE"
	ActionQuery  OperationAction = "QUERY"
)

type OperationTarget string

const (
	TargetUser         OperationTarget = "USER"
	TargetUserPassword OperationTarget = "USER_PASSWORD"
	TargetUserLock     OperationTarget = "USER_LOCK"
)

type OperationOutcome string

const (
	OutcomeSuccess OperationOutcome = "SUCCESS"
	OutcomeFailure OperationOutcome = "FAILURE"
)

// OperationLogEntry records one administrative action. Entries are never
// updated or deleted.
type OperationLogEntry struct {
	ID              string
	ActorID         string
	ActorIdentifier string
	Action          OperationAction
	TargetType      OperationTarget
	TargetID        string
	TargetLabel     string
	Outcome         OperationOutcome
	Detail          string
	OriginAddress   string
	OccurredAt      time.Time
}

// OperationLogFilter selects entries for the admin log view. Zero values
// mean "any".
type OperationLogFilter struct {
	ActorIdentifier string
	Action          OperationAction
	TargetType      OperationTarget
	Outcome         OperationOutcome
	Start           *time.Time
	End             *time.Time
	Offset          int
	Limit           int
}

type OperationLogPage struct {
	Entries []OperationLogEntry
	Total   int
}

// OperationLogStats summarises entries matching a filter.
type OperationLogStats struct {
	Total    int                     `json:"total"`
	Success  int                     `json:"success"`
	Failure  int                     `json:"failure"`
	ByAction map[OperationAction]int `json:"by_action"`
}
