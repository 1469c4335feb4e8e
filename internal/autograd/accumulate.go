package autograd

import (
	"weak"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/autograd/internal/tensor"
)

// AccumulateGrad is the backward node of a leaf tensor that requires
// gradients: it sums every gradient it receives into the leaf's grad.
//
// The node keeps its leaf alive; the leaf only refers back to it weakly, so
// at most one accumulator exists per leaf and it disappears once no graph
// references it.
type AccumulateGrad struct {
	nodeState
	variable *tensor.RawTensor
}

func newAccumulateGrad(variable *tensor.RawTensor) *AccumulateGrad {
	acc := &AccumulateGrad{variable: variable}
	acc.init(nil)
	acc.AddOutputMetadata(OutputMetadataOf(variable))
	return acc
}

// Name implements Node.
func (a *AccumulateGrad) Name() string {
	return "AccumulateGrad"
}

// Variable returns the leaf tensor this node accumulates into.
func (a *AccumulateGrad) Variable() *tensor.RawTensor {
	return a.variable
}

// Accumulate runs the leaf's hooks on grad and adds the result to the leaf's
// gradient (storing it as is when there is none yet).
func (a *AccumulateGrad) Accumulate(grad *tensor.RawTensor) error {
	hooks, err := Hooks(a.variable)
	if err != nil {
		return err
	}
	grads := []*tensor.RawTensor{grad}
	for _, hook := range hooks {
		grads = hook.Call(grads)
	}
	grad = grads[0]
	if !grad.Defined() {
		return nil
	}

	meta, err := MaterializeAutogradMeta(a.variable)
	if err != nil {
		return err
	}
	meta.mu.Lock()
	defer meta.mu.Unlock()
	if meta.grad == nil {
		meta.grad = grad
		return nil
	}
	sum, err := tensor.Add(meta.grad, grad)
	if err != nil {
		return errors.Wrapf(ErrMisuse, "accumulating gradient: %v", err)
	}
	meta.grad = sum
	return nil
}

// GradAccumulator returns the gradient accumulator of the leaf t, creating it
// if needed.
//
// It returns nil (and no error) when t carries no autograd metadata or does
// not require gradients, and ErrInvalidState when t is not a leaf.
// Concurrent callers on the same leaf all receive the same accumulator.
func GradAccumulator(t *tensor.RawTensor) (*AccumulateGrad, error) {
	meta, err := GetAutogradMeta(t)
	if err != nil || meta == nil {
		return nil, err
	}

	meta.mu.Lock()
	defer meta.mu.Unlock()
	if meta.gradFn != nil {
		return nil, errors.Wrap(ErrInvalidState, "grad_accumulator() should be only called on leaf tensors")
	}
	return meta.gradAccumulatorLocked(t), nil
}

// gradAccumulatorLocked returns the live accumulator of the leaf t, building
// one if t requires gradients. m.mu must be held and m.gradFn must be nil.
func (m *AutogradMeta) gradAccumulatorLocked(t *tensor.RawTensor) *AccumulateGrad {
	if !m.requiresGrad {
		return nil
	}
	if acc := m.gradAccumulator.Value(); acc != nil {
		return acc
	}
	acc := newAccumulateGrad(t)
	m.gradAccumulator = weak.Make(acc)
	gradAccumulatorsCreated.Inc()
	klog.V(3).Infof("autograd: created %s#%d for leaf %s", acc.Name(), acc.SequenceNr(), t)
	return acc
}

// TryGetGradAccumulator returns the live accumulator of t without creating one.
func TryGetGradAccumulator(t *tensor.RawTensor) *AccumulateGrad {
	meta, err := GetAutogradMeta(t)
	if err != nil || meta == nil {
		return nil
	}
	meta.mu.Lock()
	defer meta.mu.Unlock()
	return meta.gradAccumulator.Value()
}

// SetGradAccumulator makes acc the accumulator of t (held weakly).
// A nil acc forgets the current one.
func SetGradAccumulator(t *tensor.RawTensor, acc *AccumulateGrad) error {
	meta, err := MaterializeAutogradMeta(t)
	if err != nil {
		return err
	}
	meta.mu.Lock()
	defer meta.mu.Unlock()
	if acc == nil {
		meta.gradAccumulator = weak.Pointer[AccumulateGrad]{}
		return nil
	}
	meta.gradAccumulator = weak.Make(acc)
	return nil
}
