package autograd

import (
	"github.com/pkg/errors"

	"github.com/born-ml/autograd/internal/tensor"
)

// SavedVariable is a tensor stashed by a node for use in its backward pass,
// together with the version its storage had when it was saved.
//
// Unpacking fails if the storage was written to since, through the tensor
// itself or any alias: the backward formula would otherwise read values that
// are not the ones the forward pass used.
type SavedVariable struct {
	variable     *tensor.RawTensor
	savedVersion uint64
	isOutput     bool
	released     bool
}

// SaveVariable snapshots t and its current version. isOutput tells whether t
// is an output of the node saving it (as opposed to an input).
func SaveVariable(t *tensor.RawTensor, isOutput bool) (*SavedVariable, error) {
	if !t.Defined() {
		return nil, undefinedf("save_variable")
	}
	return &SavedVariable{
		variable:     t,
		savedVersion: t.Version(),
		isOutput:     isOutput,
	}, nil
}

// SavedVersion returns the version recorded at save time.
func (sv *SavedVariable) SavedVersion() uint64 {
	return sv.savedVersion
}

// IsOutput reports whether the saved tensor is an output of the saving node.
func (sv *SavedVariable) IsOutput() bool {
	return sv.isOutput
}

// Unpack returns the saved tensor, or ErrInvalidState if it was modified in
// place after being saved or the saved data was released.
func (sv *SavedVariable) Unpack() (*tensor.RawTensor, error) {
	if sv.released {
		return nil, errors.Wrap(ErrInvalidState,
			"trying to backward through the graph a second time, but the saved tensors have already been released")
	}
	if current := sv.variable.Version(); current != sv.savedVersion {
		return nil, errors.Wrapf(ErrInvalidState,
			"one of the tensors needed for gradient computation has been modified by an inplace operation: "+
				"tensor with shape %v is at version %d; expected version %d instead",
			sv.variable.Shape(), current, sv.savedVersion)
	}
	return sv.variable, nil
}

// Release drops the reference to the saved tensor.
func (sv *SavedVariable) Release() {
	sv.variable = nil
	sv.released = true
}
