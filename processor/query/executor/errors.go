package executor

import (
	"errors"
	"fmt"
)

// ErrAliasNotBound indicates a path step starts from an alias no binding carries.
var ErrAliasNotBound = errors.New("alias not bound")

// ExecutionError reports a failed execution. Zero matches is not an error.
type ExecutionError struct {
	Step int // path step index, -1 outside path extension
	Err  error
}

func (e *ExecutionError) Error() string {
	if e.Step >= 0 {
		return fmt.Sprintf("query execution failed at path %d: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
