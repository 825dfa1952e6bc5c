package csrf

import "errors"

var ErrTokenMissing = errors.New("csrf: expected token missing")
var ErrTokenMismatch = errors.New("csrf: token mismatch")
var ErrSuppliedTokenAbsent = errors.New("csrf: supplied token absent")
var ErrInvalidOrigin = errors.New("csrf: invalid origin")
var ErrRepositoryFailure = errors.New("csrf: token repository failure")
var ErrTokenCollision = errors.New("csrf: generated token equals the previous one")

// RepositoryError reports a TokenRepository failure. It matches both
// ErrRepositoryFailure and the underlying storage error.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return "csrf: token repository " + e.Op + ": " + e.Err.Error()
}

func (e *RepositoryError) Unwrap() []error {
	return []error{ErrRepositoryFailure, e.Err}
}

func repositoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RepositoryError
	if errors.As(err, &re) {
		return err
	}
	return &RepositoryError{Op: op, Err: err}
}
