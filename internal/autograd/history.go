package autograd

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/autograd/internal/tensor"
)

// GradFn returns the node that produced t, or nil for leaves and untracked
// tensors.
//
// For views the result is cached and rebuilt lazily: when the shared version
// counter moved since the cached node was built (the base or some alias was
// modified in place), a fresh AsStridedBackward chained onto the base's
// current history replaces it. Reads without an intervening write return the
// cached node unchanged.
func GradFn(t *tensor.RawTensor) (Node, error) {
	if !t.Defined() {
		return nil, undefinedf("grad_fn")
	}
	if vm := viewMetaOf(t); vm != nil {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		return vm.gradFnLocked(t)
	}
	meta := autogradMetaOf(t.AutogradMeta())
	if meta == nil {
		return nil, nil
	}
	meta.mu.Lock()
	defer meta.mu.Unlock()
	return meta.gradFn, nil
}

// gradFnLocked implements GradFn for the view self. vm.mu must be held, so
// checking the version and publishing the rebuilt node form one critical
// section with any rebase of this view.
func (vm *ViewMeta) gradFnLocked(self *tensor.RawTensor) (Node, error) {
	if vm.gradFn == nil && !vm.base.RequiresGrad() {
		return nil, nil
	}
	if vm.attrVersion == self.Version() {
		return vm.gradFn, nil
	}
	return vm.rebuildLocked(self)
}

// rebuildLocked replaces the view's history with an AsStridedBackward over
// the base's current gradient edge. vm.mu must be held.
func (vm *ViewMeta) rebuildLocked(self *tensor.RawTensor) (Node, error) {
	current := self.Version()

	// Lock order is always view then base; a base is never a view.
	baseEdge, err := GradientEdge(vm.base)
	if err != nil {
		return nil, err
	}
	fn := newAsStridedBackward(vm.base.Geometry(), self.Geometry(), baseEdge)
	fn.AddOutputMetadata(OutputMetadata{
		Shape:  self.Shape().Clone(), // The view's sizes, not the base's.
		DType:  vm.base.DType(),
		Device: vm.base.Device(),
	})
	klog.V(3).Infof("autograd: rebuilt view %s as %s#%d (version %d, cached %d)",
		self.Geometry(), fn.Name(), fn.SequenceNr(), current, vm.attrVersion)

	vm.gradFn = fn
	vm.outputNr = 0
	vm.attrVersion = current
	viewRecomputations.Inc()
	return fn, nil
}

// OutputNr returns which output of its producing node t is.
func OutputNr(t *tensor.RawTensor) (int, error) {
	meta, err := GetAutogradMeta(t)
	if err != nil || meta == nil {
		return 0, err
	}
	return meta.OutputNr(), nil
}

// ProvenanceEdge returns the edge to the node that produced t. The edge is
// invalid for leaves and untracked tensors.
func ProvenanceEdge(t *tensor.RawTensor) (Edge, error) {
	fn, err := GradFn(t)
	if err != nil || fn == nil {
		return Edge{}, err
	}
	nr, err := OutputNr(t)
	if err != nil {
		return Edge{}, err
	}
	return Edge{Node: fn, InputNr: nr}, nil
}

// GradientEdge returns the edge along which gradients for t must be sent: the
// provenance edge of a non-leaf, or the gradient accumulator of a leaf. The
// edge is invalid when t does not require gradients.
func GradientEdge(t *tensor.RawTensor) (Edge, error) {
	e, err := ProvenanceEdge(t)
	if err != nil || e.IsValid() {
		return e, err
	}
	acc, err := GradAccumulator(t)
	if err != nil || acc == nil {
		return Edge{}, err
	}
	return Edge{Node: acc, InputNr: 0}, nil
}

// gradientEdgeLocked is GradientEdge for a tensor that is not a view, with
// meta.mu already held.
func gradientEdgeLocked(t *tensor.RawTensor, meta *AutogradMeta) Edge {
	if meta.gradFn != nil {
		return Edge{Node: meta.gradFn, InputNr: meta.outputNr}
	}
	if acc := meta.gradAccumulatorLocked(t); acc != nil {
		return Edge{Node: acc, InputNr: 0}
	}
	return Edge{}
}

// CollectNextEdges returns the gradient edges of ts, in order, as next edges
// for a node consuming them. Undefined tensors yield invalid edges.
func CollectNextEdges(ts ...*tensor.RawTensor) []Edge {
	edges := make([]Edge, len(ts))
	for i, t := range ts {
		if !t.Defined() {
			continue
		}
		e, err := GradientEdge(t)
		if err != nil {
			klog.Warningf("autograd: no gradient edge for input %d (%s): %v", i, t, err)
			continue
		}
		edges[i] = e
	}
	return edges
}

// SetGradientEdge records e as the provenance of t, making it a non-leaf.
func SetGradientEdge(t *tensor.RawTensor, e Edge) error {
	meta, err := MaterializeAutogradMeta(t)
	if err != nil {
		return err
	}
	meta.mu.Lock()
	defer meta.mu.Unlock()
	meta.setGradFnLocked(e)
	return nil
}

// SetHistory records that node produced t: t's metadata becomes a new output
// of node, and t's provenance points at that output.
func SetHistory(t *tensor.RawTensor, node Node) error {
	if !t.Defined() {
		return undefinedf("set_history")
	}
	if node == nil {
		return errors.Wrap(ErrMisuse, "set_history with nil node")
	}
	slot := node.AddOutputMetadata(OutputMetadataOf(t))
	return SetGradientEdge(t, Edge{Node: node, InputNr: slot})
}

// RebaseHistory installs e, the edge of an in-place operation applied to t,
// as t's new history.
//
// When t is a view, the write landed in its base's storage, so the base's
// history is rewritten too: the base's provenance becomes a CopySlices node
// combining the base's previous history with e's node for the region covered
// by t. The view's own history is rebuilt on top of that splice, so it reaches
// e's node through the base. The in-place node must have exactly one output.
//
// The view and then the base are locked for the whole splice, so concurrent
// readers of the view and rebases of sibling views are serialized with it.
func RebaseHistory(t *tensor.RawTensor, e Edge) error {
	if !t.Defined() {
		return undefinedf("rebase_history")
	}
	if !e.IsValid() {
		return errors.Wrap(ErrInvalidState, "rebase_history requires an edge with a node")
	}

	vm := viewMetaOf(t)
	if vm == nil {
		if err := SetGradientEdge(t, e); err != nil {
			return err
		}
		historyRebases.WithLabelValues("tensor").Inc()
		return nil
	}

	if e.InputNr != 0 {
		return errors.Wrapf(ErrMisuse, "in-place update of a view must target output 0, got %d", e.InputNr)
	}
	if n := e.Node.NumOutputs(); n != 1 {
		return errors.Wrapf(ErrMisuse,
			"functions which modify views in-place must return a single tensor, %s returns %d", e.Node.Name(), n)
	}

	base := vm.base
	baseMeta, err := MaterializeAutogradMeta(base)
	if err != nil {
		return err
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()

	baseMeta.mu.Lock()
	prev := gradientEdgeLocked(base, baseMeta)
	copySlices := newCopySlices(base, t.Geometry(), e.Node, prev)
	baseMeta.setGradFnLocked(Edge{Node: copySlices, InputNr: 0})
	baseMeta.mu.Unlock()

	klog.V(2).Infof("autograd: rebased view %s onto %s#%d (previous base history %s)",
		t.Geometry(), copySlices.Name(), copySlices.SequenceNr(), prev)
	historyRebases.WithLabelValues("view").Inc()

	// The view now reads its values out of the spliced base.
	vm.outputNr = 0
	_, err = vm.rebuildLocked(t)
	return err
}
