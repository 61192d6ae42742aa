package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"genbiapi/models"
	"genbiapi/pkg/logger"
	"genbiapi/services/executor"
)

// Confidence scores attached to validation results. Advisory only, never a
// substitute for an authorization decision.
const (
	confidenceValidated  = 0.9
	confidenceDryRunFail = 0.3
	confidenceStructural = 0.2
)

// mutatingVerbs is the denylist of statement tokens that must never appear
// anywhere in a candidate. A coarse string-level check; connection-level
// enforcement remains the last line of defense.
var mutatingVerbs = []string{"drop", "delete", "truncate", "alter", "create", "insert", "update"}

var limitingClausePattern = regexp.MustCompile(`(?i)\blimit\b|\btop\b`)

// ValidationResult reports one validation pass over a candidate statement.
type ValidationResult struct {
	Valid      bool
	Confidence float64
	Error      string

	// ConnUnavailable marks a dry run that failed because no target
	// connection could be acquired, as opposed to the engine rejecting
	// the statement.
	ConnUnavailable bool
}

// Validator rejects statements before they run expensively: structural
// checks first, then a row-capped dry run against the real engine.
type Validator struct {
	executor executor.QueryExecutor
}

// NewValidator creates a validator that dry-runs candidates through exec.
func NewValidator(exec executor.QueryExecutor) *Validator {
	return &Validator{executor: exec}
}

// Validate checks the candidate statement structurally and, when it passes,
// dry-runs it with a LIMIT 1 cap under the principal's connection. Any
// engine error is surfaced verbatim as a validation failure.
func (v *Validator) Validate(ctx context.Context, sqlText string, principal *models.Principal) ValidationResult {
	if res, ok := v.checkStructure(sqlText); !ok {
		return res
	}

	dryRunSQL := sqlText
	if !limitingClausePattern.MatchString(sqlText) {
		dryRunSQL += " LIMIT 1"
	}

	if _, err := v.executor.Execute(ctx, dryRunSQL, principal, 1); err != nil {
		if errors.Is(err, executor.ErrConnectionUnavailable) || errors.Is(err, executor.ErrNoCredentials) {
			return ValidationResult{
				Confidence:      confidenceDryRunFail,
				Error:           err.Error(),
				ConnUnavailable: true,
			}
		}
		logger.Warnf("Dry run rejected candidate SQL: %v", err)
		return ValidationResult{
			Confidence: confidenceDryRunFail,
			Error:      fmt.Sprintf("dry run failed: %v", err),
		}
	}

	return ValidationResult{Valid: true, Confidence: confidenceValidated}
}

// checkStructure runs the static checks: SELECT-only, denylist, balanced
// parentheses.
func (v *Validator) checkStructure(sqlText string) (ValidationResult, bool) {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return structuralFailure("statement is empty"), false
	}
	if !startsWithSelect(trimmed) {
		return structuralFailure("statement must start with SELECT"), false
	}

	lower := strings.ToLower(trimmed)
	for _, verb := range mutatingVerbs {
		if strings.Contains(lower, verb) {
			return structuralFailure(fmt.Sprintf("forbidden SQL operation detected: %s", verb)), false
		}
	}

	if !balancedParens(trimmed) {
		return structuralFailure("unbalanced parentheses"), false
	}

	return ValidationResult{}, true
}

func structuralFailure(reason string) ValidationResult {
	return ValidationResult{Confidence: confidenceStructural, Error: reason}
}

func balancedParens(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
