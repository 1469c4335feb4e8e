package autograd

import "github.com/born-ml/autograd/internal/tensor"

// AsStridedBackward is the node synthesized for a view whose cached history
// went stale: it rebuilds the view from its (possibly mutated) base.
//
// Its single next edge is the gradient edge of the base at the time of
// synthesis. In backward, the incoming gradient is scattered into a zero
// tensor with the base geometry at the view's position.
type AsStridedBackward struct {
	nodeState

	// BaseGeometry is the geometry of the base when the node was built.
	BaseGeometry tensor.Geometry
	// Size, Stride and StorageOffset locate the view inside the base's storage.
	Size          tensor.Shape
	Stride        []int
	StorageOffset int
}

func newAsStridedBackward(base, view tensor.Geometry, baseEdge Edge) *AsStridedBackward {
	fn := &AsStridedBackward{
		BaseGeometry:  base,
		Size:          view.Shape,
		Stride:        view.Strides,
		StorageOffset: view.StorageOffset,
	}
	fn.init([]Edge{baseEdge})
	return fn
}

// Name implements Node.
func (fn *AsStridedBackward) Name() string {
	return "AsStridedBackward"
}

// ViewGeometry returns the region of the base the view occupies.
func (fn *AsStridedBackward) ViewGeometry() tensor.Geometry {
	return tensor.Geometry{Shape: fn.Size, Strides: fn.Stride, StorageOffset: fn.StorageOffset}
}

// CopySlices splices an in-place update of a view into the history of its base.
//
// After the update the base holds two kinds of values: the region covered by
// the view, produced by Fn, and everything else, unchanged from the base's
// previous history. In backward, the gradient of the view region is routed
// through Fn and the remainder flows to next edge 0 (the base's previous
// gradient edge). Next edges 1.. are Fn's own remaining inputs.
type CopySlices struct {
	nodeState

	// BaseGeometry is the geometry of the base when the update happened.
	BaseGeometry tensor.Geometry
	// ViewGeometry is where the updated view sits inside the base.
	ViewGeometry tensor.Geometry
	// Fn is the node of the in-place operation that produced the view's new values.
	Fn Node
}

func newCopySlices(base *tensor.RawTensor, view tensor.Geometry, fn Node, baseEdge Edge) *CopySlices {
	cs := &CopySlices{
		BaseGeometry: base.Geometry(),
		ViewGeometry: view,
		Fn:           fn,
	}
	fnEdges := fn.NextEdges()
	next := make([]Edge, 0, max(len(fnEdges), 1))
	next = append(next, baseEdge)
	if len(fnEdges) > 1 {
		next = append(next, fnEdges[1:]...)
	}
	cs.init(next)
	cs.AddOutputMetadata(OutputMetadataOf(base))
	return cs
}

// Name implements Node.
func (cs *CopySlices) Name() string {
	return "CopySlices"
}
