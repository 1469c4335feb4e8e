package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Geometry describes where a tensor's elements live inside its storage:
// the logical shape, the strides in elements and the offset of the first element.
//
// Autograd records geometries to rebuild a view from its base, or to write a
// gradient back into the region of the base a view occupies.
type Geometry struct {
	Shape         Shape
	Strides       []int
	StorageOffset int
}

// NumElements returns the number of logical elements.
func (g Geometry) NumElements() int {
	return g.Shape.NumElements()
}

// Equal reports whether two geometries describe the same region.
func (g Geometry) Equal(other Geometry) bool {
	if g.StorageOffset != other.StorageOffset || !g.Shape.Equal(other.Shape) || len(g.Strides) != len(other.Strides) {
		return false
	}
	for i := range g.Strides {
		if g.Strides[i] != other.Strides[i] {
			return false
		}
	}
	return true
}

// Extent returns one past the largest storage element the geometry reaches.
func (g Geometry) Extent() int {
	last := g.StorageOffset
	for i, dim := range g.Shape {
		last += (dim - 1) * g.Strides[i]
	}
	return last + 1
}

// String returns e.g. "shape=[2 3] strides=[3 1] offset=0".
func (g Geometry) String() string {
	return fmt.Sprintf("shape=%v strides=%v offset=%d", []int(g.Shape), g.Strides, g.StorageOffset)
}

// elementOffset maps a row-major logical index to a storage offset.
func (g Geometry) elementOffset(linear int) int {
	off := g.StorageOffset
	for d := len(g.Shape) - 1; d >= 0; d-- {
		dim := g.Shape[d]
		off += (linear % dim) * g.Strides[d]
		linear /= dim
	}
	return off
}
