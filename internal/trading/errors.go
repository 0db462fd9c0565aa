package trading

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports an illegal configuration or input, such as
// requesting full_auto mode while it is still locked.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// StateConflictError reports an operation attempted from a non-eligible
// status, e.g. approving an already-executed suggestion.
type StateConflictError struct {
	Op     string
	Entity string
	Status string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s %s with status: %s", e.Op, e.Entity, e.Status)
}

// KillSwitchActiveError blocks suggestion creation, approval and execution
// while the user's kill switch is engaged.
type KillSwitchActiveError struct {
	UserID string
	Reason string
}

func (e *KillSwitchActiveError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("kill switch is active: %s", e.Reason)
	}
	return "kill switch is active. Trading is halted."
}

// RiskLimitExceededError denies an execution that would violate the
// profile's risk limits. Reason carries the specific limit and values.
type RiskLimitExceededError struct {
	Reason string
}

func (e *RiskLimitExceededError) Error() string {
	return fmt.Sprintf("risk check failed: %s", e.Reason)
}

// ExternalExecutionError records a failed exchange call. It is never
// propagated out of ExecuteTrade: the coordinator swallows it into the
// execution's error message and records a paper trade instead.
type ExternalExecutionError struct {
	Err error
}

func (e *ExternalExecutionError) Error() string {
	return fmt.Sprintf("exchange execution failed: %v", e.Err)
}

func (e *ExternalExecutionError) Unwrap() error { return e.Err }
