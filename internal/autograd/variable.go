package autograd

import (
	"github.com/pkg/errors"

	"github.com/born-ml/autograd/internal/tensor"
)

// MaterializeAutogradMeta returns the metadata of t, attaching an empty one
// first if t has none. Concurrent callers observe the same instance.
func MaterializeAutogradMeta(t *tensor.RawTensor) (*AutogradMeta, error) {
	if !t.Defined() {
		return nil, undefinedf("materialize_autograd_meta")
	}
	meta := t.LoadOrStoreAutogradMeta(func() tensor.AutogradMeta {
		return NewAutogradMeta(false)
	})
	return autogradMetaOf(meta), nil
}

// GetAutogradMeta returns the metadata of t without creating it. A nil result
// with a nil error means t is untracked and exempt from autograd bookkeeping.
func GetAutogradMeta(t *tensor.RawTensor) (*AutogradMeta, error) {
	if !t.Defined() {
		return nil, undefinedf("get_autograd_meta")
	}
	return autogradMetaOf(t.AutogradMeta()), nil
}

// RequiresGrad reports whether gradients will be computed for t.
func RequiresGrad(t *tensor.RawTensor) (bool, error) {
	if !t.Defined() {
		return false, undefinedf("requires_grad")
	}
	return t.RequiresGrad(), nil
}

// SetRequiresGrad flags (or unflags) t as requiring gradients.
// Only floating point tensors can require gradients, and only leaves can be
// unflagged.
func SetRequiresGrad(t *tensor.RawTensor, requiresGrad bool) error {
	if !t.Defined() {
		return undefinedf("set_requires_grad")
	}
	if requiresGrad && !t.DType().IsFloatingPoint() {
		return errors.Wrapf(ErrMisuse, "only tensors of floating point dtype can require gradients, got %s", t.DType())
	}
	meta, err := MaterializeAutogradMeta(t)
	if err != nil {
		return err
	}
	meta.mu.Lock()
	defer meta.mu.Unlock()
	if !requiresGrad && meta.gradFn != nil {
		return errors.Wrap(ErrMisuse, "you can only change requires_grad flags of leaf tensors")
	}
	meta.requiresGrad = requiresGrad
	return nil
}

// Grad returns the accumulated gradient of t, or nil.
func Grad(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	meta, err := GetAutogradMeta(t)
	if err != nil || meta == nil {
		return nil, err
	}
	meta.mu.Lock()
	defer meta.mu.Unlock()
	return meta.grad, nil
}

// SetGrad replaces the accumulated gradient of t. grad must match t's shape.
func SetGrad(t *tensor.RawTensor, grad *tensor.RawTensor) error {
	if grad.Defined() && t.Defined() && !grad.Shape().Equal(t.Shape()) {
		return errors.Wrapf(ErrMisuse, "assigned grad has shape %v, tensor has shape %v", grad.Shape(), t.Shape())
	}
	meta, err := MaterializeAutogradMeta(t)
	if err != nil {
		return err
	}
	meta.mu.Lock()
	defer meta.mu.Unlock()
	meta.grad = grad
	return nil
}

// Name returns the display name of t ("" when untracked).
func Name(t *tensor.RawTensor) (string, error) {
	meta, err := GetAutogradMeta(t)
	if err != nil || meta == nil {
		return "", err
	}
	return meta.Name(), nil
}

// SetName sets the display name of t.
func SetName(t *tensor.RawTensor, name string) error {
	meta, err := MaterializeAutogradMeta(t)
	if err != nil {
		return err
	}
	meta.mu.Lock()
	defer meta.mu.Unlock()
	meta.name = name
	return nil
}

// VersionCounter returns the version counter shared by t and its aliases.
func VersionCounter(t *tensor.RawTensor) (*tensor.VersionCounter, error) {
	if !t.Defined() {
		return nil, undefinedf("version_counter")
	}
	return t.VersionCounter(), nil
}

// SetVersionCounter makes t share vc.
func SetVersionCounter(t *tensor.RawTensor, vc *tensor.VersionCounter) error {
	if !t.Defined() {
		return undefinedf("set_version_counter")
	}
	if vc == nil {
		return errors.Wrap(ErrMisuse, "nil version counter")
	}
	t.SetVersionCounter(vc)
	return nil
}

// BumpVersion records an in-place modification of t's storage.
func BumpVersion(t *tensor.RawTensor) error {
	if !t.Defined() {
		return undefinedf("bump_version")
	}
	t.BumpVersion()
	return nil
}

// Version returns the current version of t's storage.
func Version(t *tensor.RawTensor) (uint64, error) {
	if !t.Defined() {
		return 0, undefinedf("version")
	}
	return t.Version(), nil
}

// MakeView attaches view metadata to view, recording base as its base.
//
// If base is itself a view, its own base is recorded instead, so views never
// chain. view adopts the version counter of the recorded base. Any metadata
// view already had is replaced.
func MakeView(base, view *tensor.RawTensor) error {
	if !view.Defined() {
		return undefinedf("make_view")
	}
	vm, err := newViewMeta(view, base)
	if err != nil {
		return err
	}
	view.SetAutogradMeta(vm)
	return nil
}

// AsView creates a strided view of base and attaches its view metadata.
// When the base requires gradients, the view's history is an
// AsStridedBackward over the base's gradient edge.
func AsView(base *tensor.RawTensor, shape tensor.Shape, strides []int, offset int) (*tensor.RawTensor, error) {
	if !base.Defined() {
		return nil, undefinedf("as_view")
	}
	view, err := base.AsStrided(shape, strides, offset)
	if err != nil {
		return nil, errors.Wrap(ErrMisuse, err.Error())
	}
	if err := recordView(base, view); err != nil {
		return nil, err
	}
	return view, nil
}

// Narrow returns base[start:start+length] along dim as a tracked view, with
// history recorded as in AsView.
func Narrow(base *tensor.RawTensor, dim, start, length int) (*tensor.RawTensor, error) {
	if !base.Defined() {
		return nil, undefinedf("narrow")
	}
	view, err := base.Narrow(dim, start, length)
	if err != nil {
		return nil, errors.Wrap(ErrMisuse, err.Error())
	}
	if err := recordView(base, view); err != nil {
		return nil, err
	}
	return view, nil
}

// recordView attaches view metadata and, if the root base requires
// gradients, the node producing the view.
func recordView(base, view *tensor.RawTensor) error {
	if err := MakeView(base, view); err != nil {
		return err
	}
	root := viewMetaOf(view).base
	if !root.RequiresGrad() {
		return nil
	}
	baseEdge, err := GradientEdge(root)
	if err != nil {
		return err
	}
	return SetHistory(view, newAsStridedBackward(root.Geometry(), view.Geometry(), baseEdge))
}

// IsView reports whether t is a view of another tensor.
func IsView(t *tensor.RawTensor) bool {
	return viewMetaOf(t) != nil
}

// Base returns the root base of the view t. It fails with ErrInvalidState when
// t is not a view.
func Base(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	if !t.Defined() {
		return nil, undefinedf("base")
	}
	vm := viewMetaOf(t)
	if vm == nil {
		return nil, errors.Wrap(ErrInvalidState, "can't get base of non-view tensor")
	}
	return vm.base, nil
}

// VariableData returns a handle over t's storage with no autograd metadata
// and a fresh version counter: writes through it are invisible to autograd.
func VariableData(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	if !t.Defined() {
		return nil, undefinedf("variable_data")
	}
	return t.ShallowCopyAndDetach(nil), nil
}

// TensorData returns a handle over t's storage with no autograd metadata that
// keeps sharing t's version counter, so its in-place writes still invalidate
// saved tensors and cached view history.
func TensorData(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	if !t.Defined() {
		return nil, undefinedf("tensor_data")
	}
	return t.ShallowCopyAndDetach(t.VersionCounter()), nil
}
