// Package expression evaluates graph query filter conditions against node properties.
package expression

import (
	"errors"
	"fmt"
)

// ErrUnsupportedOperator marks a condition the evaluator cannot apply. Callers skip
// such conditions instead of failing the query.
var ErrUnsupportedOperator = errors.New("unsupported operator")

// CasePolicy selects how string equality is compared.
type CasePolicy int

const (
	// CaseSensitive compares strings byte for byte.
	CaseSensitive CasePolicy = iota
	// CaseInsensitive compares strings under Unicode case folding.
	CaseInsensitive
)

func (p CasePolicy) String() string {
	if p == CaseInsensitive {
		return "case_insensitive"
	}
	return "case_sensitive"
}

// OperatorFunc compares a node's property value against a filter literal.
type OperatorFunc func(fieldValue, compareValue any, policy CasePolicy) (bool, error)

// EvaluationError describes a condition that could not be evaluated.
type EvaluationError struct {
	Alias    string
	Property string
	Operator string
	Err      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation error for %s.%s with operator '%s': %v", e.Alias, e.Property, e.Operator, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
