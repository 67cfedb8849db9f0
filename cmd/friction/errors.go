package main

import (
	"errors"

	"github.com/mesh-intelligence/friction/pkg/types"
)

// exitError carries the exit code a failure should produce.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }
func sysError(err error) error  { return &exitError{code: exitSysError, err: err} }

// storeError classifies an error returned by the store: bad input and
// missing rows are the user's, everything else is the system's.
func storeError(err error) error {
	if types.IsValidation(err) || errors.Is(err, types.ErrNotFound) {
		return userError(err)
	}
	return sysError(err)
}

// exitCode maps err to a process exit code. Errors that were not
// classified, such as cobra's argument errors, are user errors.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return exitUserError
}
