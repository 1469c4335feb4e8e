package autograd

import (
	"sync"
	"weak"

	"github.com/pkg/errors"

	"github.com/born-ml/autograd/internal/tensor"
)

// AutogradMeta is the autograd bookkeeping attached to one tensor.
//
// It is attached lazily (see MaterializeAutogradMeta) the first time a tensor
// needs it. A tensor with gradFn set is a non-leaf; only leaves have a
// gradient accumulator.
//
// mu guards every field. It is only held for short critical sections and
// never while calling hooks.
type AutogradMeta struct {
	mu sync.Mutex

	name         string
	requiresGrad bool
	grad         *tensor.RawTensor

	gradFn   Node
	outputNr int

	// The accumulator holds the tensor strongly, so the tensor only holds
	// the accumulator weakly. It must be re-validated on every read.
	gradAccumulator weak.Pointer[AccumulateGrad]

	hooks   []PreHook
	hookMap *HookMap
	// hookMu serializes RegisterHook. It is taken before mu, never after.
	hookMu sync.Mutex

	isView bool
}

// NewAutogradMeta returns metadata for a tensor that is not a view.
func NewAutogradMeta(requiresGrad bool) *AutogradMeta {
	return &AutogradMeta{requiresGrad: requiresGrad}
}

// RequiresGrad reports whether gradients should be computed for the tensor:
// either it was flagged, or it was produced by a recorded operation.
func (m *AutogradMeta) RequiresGrad() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requiresGrad || m.gradFn != nil
}

// IsView reports whether the metadata belongs to a view.
func (m *AutogradMeta) IsView() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isView
}

// Name returns the display name.
func (m *AutogradMeta) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// OutputNr returns which output of the producing node this tensor is.
func (m *AutogradMeta) OutputNr() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outputNr
}

// setGradFnLocked publishes a new provenance edge. m.mu must be held.
func (m *AutogradMeta) setGradFnLocked(e Edge) {
	m.gradFn = e.Node
	m.outputNr = e.InputNr
}

// ViewMeta is the metadata of a tensor that aliases the storage of another
// tensor, its base.
//
// The base is always the root of the view chain: a view of a view records the
// original base, so every chain has depth exactly one. The view shares the
// base's version counter; attrVersion is the counter value at which gradFn was
// last built, and a mismatch means the cached history is stale.
type ViewMeta struct {
	AutogradMeta

	base        *tensor.RawTensor
	attrVersion uint64
}

// newViewMeta builds view metadata for self viewing base and makes self adopt
// the version counter of the root base.
func newViewMeta(self, base *tensor.RawTensor) (*ViewMeta, error) {
	if !base.Defined() {
		return nil, undefinedf("make_view (base)")
	}
	if vm := viewMetaOf(base); vm != nil {
		base = vm.base
	}
	if base == self {
		return nil, errors.Wrapf(ErrMisuse, "a tensor cannot be a view of itself (%s)", self)
	}

	self.SetVersionCounter(base.VersionCounter())
	vm := &ViewMeta{
		base:        base,
		attrVersion: self.Version(),
	}
	vm.isView = true
	return vm, nil
}

// RequiresGrad reports whether the view requires gradients. A view of a base
// that requires gradients does too.
func (vm *ViewMeta) RequiresGrad() bool {
	return vm.AutogradMeta.RequiresGrad() || vm.base.RequiresGrad()
}

// Base returns the root base tensor.
func (vm *ViewMeta) Base() *tensor.RawTensor {
	return vm.base
}

// autogradMetaOf returns the common part of either metadata flavor.
func autogradMetaOf(meta tensor.AutogradMeta) *AutogradMeta {
	switch m := meta.(type) {
	case *AutogradMeta:
		return m
	case *ViewMeta:
		return &m.AutogradMeta
	default:
		return nil
	}
}

// viewMetaOf returns the view metadata of t, or nil if t is not a view.
func viewMetaOf(t *tensor.RawTensor) *ViewMeta {
	if !t.Defined() {
		return nil
	}
	vm, ok := t.AutogradMeta().(*ViewMeta)
	if !ok || !vm.base.Defined() {
		return nil
	}
	return vm
}
