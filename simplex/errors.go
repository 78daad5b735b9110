package simplex

import (
	"github.com/pkg/errors"
)

var (
	// ErrLength reports a space dimension above MaxSpaceDimension.
	ErrLength = errors.New("simplex: length error")
	// ErrInvalidArgument reports a dimension mismatch, a strict inequality
	// or a generator that is not a point.
	ErrInvalidArgument = errors.New("simplex: invalid argument")
	// ErrDomain reports a request for a point or value that does not exist:
	// the problem is unsatisfiable, or unbounded when an optimum is asked for.
	ErrDomain = errors.New("simplex: domain error")
	// ErrAbandoned reports a computation stopped by its context.
	ErrAbandoned = errors.New("simplex: computation abandoned")
)

// abandonedError matches ErrAbandoned and unwraps to the context error.
type abandonedError struct {
	cause error
}

func (e *abandonedError) Error() string        { return ErrAbandoned.Error() + ": " + e.cause.Error() }
func (e *abandonedError) Unwrap() error        { return e.cause }
func (e *abandonedError) Is(target error) bool { return target == ErrAbandoned }

func abandoned(cause error) error {
	return errors.WithStack(&abandonedError{cause: cause})
}
