// Package pipeline drives a natural-language question through context
// building, authorization, SQL generation, validation and execution as an
// explicit state machine with a bounded refinement loop.
package pipeline

import (
	"genbiapi/models"
	"genbiapi/services/executor"
	"genbiapi/services/policy"
	"genbiapi/services/schema"
)

// Outcome classifies how a pipeline run terminated. Every run ends in
// exactly one outcome; components report failures as values, never as
// panics across boundaries.
type Outcome string

// Terminal outcomes of the state machine.
const (
	OutcomeOK                     Outcome = "OK"
	OutcomeNoRelevantSchema       Outcome = "NoRelevantSchema"
	OutcomeAccessDenied           Outcome = "AccessDenied"
	OutcomeGenerationFailed       Outcome = "GenerationFailed"
	OutcomeValidationFailed       Outcome = "ValidationFailed"
	OutcomeMaxRefinementsExceeded Outcome = "MaxRefinementsExceeded"
	OutcomeExecutionFailed        Outcome = "ExecutionFailed"
	OutcomeConnectionUnavailable  Outcome = "ConnectionUnavailable"
	OutcomeTimeout                Outcome = "Timeout"
)

// state is a node of the generation state machine.
type state int

const (
	stateAnalyze state = iota
	stateGenerate
	stateValidate
	stateExecute
	stateRefine
	stateEnd
)

// pipelineState carries everything one request accumulates while moving
// through the machine. Created at request start, mutated only by the
// orchestrator, discarded at request end.
type pipelineState struct {
	question        string
	principal       *models.Principal
	context         *schema.QueryContext
	requiredTables  []string
	candidateSQL    string
	validationError string
	confidence      float64
	authDecision    *policy.Decision
	executionResult *executor.RowSet
	refinementCount int

	outcome  Outcome
	errorMsg string
}

// Result is the structured answer returned to the caller. On failure the
// Error field is populated and Rows is nil; a present SQL with absent rows
// always carries an explicit error.
type Result struct {
	Question        string           `json:"question"`
	SQL             string           `json:"sql,omitempty"`
	Rows            *executor.RowSet `json:"rows,omitempty"`
	Confidence      float64          `json:"confidence"`
	RefinementCount int              `json:"refinement_count"`
	Outcome         Outcome          `json:"outcome"`
	Error           string           `json:"error,omitempty"`
	DeniedLayer     policy.Layer     `json:"denied_layer,omitempty"`
}
