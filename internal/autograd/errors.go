package autograd

import "github.com/pkg/errors"

// Error kinds reported by this package. Every returned error wraps exactly one
// of them, so callers classify failures with errors.Is. All of them signal a
// misuse of the API by the caller rather than a data-dependent condition.
var (
	// ErrUndefinedTensor is returned when an accessor is called on a tensor
	// handle with no backing storage.
	ErrUndefinedTensor = errors.New("undefined tensor")

	// ErrInvalidState is returned when the tensor's autograd state does not
	// allow the operation, e.g. asking a non-leaf for its gradient accumulator
	// or a non-view for its base.
	ErrInvalidState = errors.New("invalid autograd state")

	// ErrMisuse is returned for calls that can never be valid for the given
	// arguments, e.g. registering a hook on a tensor that does not require
	// gradients or removing a hook index that was never handed out.
	ErrMisuse = errors.New("autograd misuse")
)

// undefinedf wraps ErrUndefinedTensor naming the accessor that was called.
func undefinedf(accessor string) error {
	return errors.Wrapf(ErrUndefinedTensor, "cannot call %s() on undefined tensor", accessor)
}
