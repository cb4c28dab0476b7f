package executors

import (
	"errors"
	"fmt"
)

// ErrResumeUnsupported indicates a follow-up spawn was requested for a
// client kind whose capability set lacks session resumption.
var ErrResumeUnsupported = errors.New("selected client does not support session resumption")

// UnknownExecutorTypeError indicates a profile id did not resolve to any
// configured executor.
type UnknownExecutorTypeError struct {
	Profile string
}

func (e *UnknownExecutorTypeError) Error() string {
	return fmt.Sprintf("unknown executor type: %s", e.Profile)
}

// SpawnError wraps a failure to start an underlying CLI process.
type SpawnError struct {
	Executor string
	Err      error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Executor, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
