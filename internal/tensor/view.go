package tensor

import "fmt"

// AsStrided returns a new handle over the same storage with the given
// geometry. The view shares the buffer and the version counter of r and
// carries no autograd metadata; attaching view metadata is the caller's job.
//
// Example:
//
//	base := tensor.Arange[float32](0, 6)
//	m, _ := base.AsStrided(Shape{2, 3}, []int{3, 1}, 0) // 2x3 matrix over base
func (r *RawTensor) AsStrided(shape Shape, strides []int, offset int) (*RawTensor, error) {
	if !r.Defined() {
		return nil, fmt.Errorf("as_strided: undefined tensor")
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("as_strided: invalid shape: %w", err)
	}
	if len(strides) != len(shape) {
		return nil, fmt.Errorf("as_strided: got %d strides for shape %v", len(strides), shape)
	}
	if offset < 0 {
		return nil, fmt.Errorf("as_strided: negative storage offset %d", offset)
	}
	for i, s := range strides {
		if s < 0 {
			return nil, fmt.Errorf("as_strided: negative stride %d at dim %d", s, i)
		}
	}

	geom := Geometry{Shape: shape, Strides: strides, StorageOffset: offset}
	if extent, size := geom.Extent(), r.StorageElements(); extent > size {
		return nil, fmt.Errorf("as_strided: %s reaches element %d, storage has %d elements", geom, extent-1, size)
	}

	return r.alias(shape, strides, offset, r.VersionCounter()), nil
}

// Narrow returns a view of length elements of dimension dim starting at start.
//
// Example:
//
//	b := tensor.Zeros[float32](Shape{4})
//	v, _ := b.Narrow(0, 0, 2) // b[0:2]
func (r *RawTensor) Narrow(dim, start, length int) (*RawTensor, error) {
	if !r.Defined() {
		return nil, fmt.Errorf("narrow: undefined tensor")
	}
	if dim < 0 || dim >= len(r.shape) {
		return nil, fmt.Errorf("narrow: dim %d out of range for shape %v", dim, r.shape)
	}
	if start < 0 || length <= 0 || start+length > r.shape[dim] {
		return nil, fmt.Errorf("narrow: range [%d, %d) out of bounds for dim %d of size %d",
			start, start+length, dim, r.shape[dim])
	}

	shape := r.shape.Clone()
	shape[dim] = length
	return r.AsStrided(shape, r.stride, r.offset+start*r.stride[dim])
}

// Select returns a view with dimension dim removed, fixed at index.
func (r *RawTensor) Select(dim, index int) (*RawTensor, error) {
	if !r.Defined() {
		return nil, fmt.Errorf("select: undefined tensor")
	}
	if dim < 0 || dim >= len(r.shape) {
		return nil, fmt.Errorf("select: dim %d out of range for shape %v", dim, r.shape)
	}
	if index < 0 || index >= r.shape[dim] {
		return nil, fmt.Errorf("select: index %d out of bounds for dim %d of size %d", index, dim, r.shape[dim])
	}

	shape := make(Shape, 0, len(r.shape)-1)
	strides := make([]int, 0, len(r.stride)-1)
	for i := range r.shape {
		if i == dim {
			continue
		}
		shape = append(shape, r.shape[i])
		strides = append(strides, r.stride[i])
	}
	return r.AsStrided(shape, strides, r.offset+index*r.stride[dim])
}

// Alias returns a view covering exactly the same elements as r.
func (r *RawTensor) Alias() (*RawTensor, error) {
	if !r.Defined() {
		return nil, fmt.Errorf("alias: undefined tensor")
	}
	return r.AsStrided(r.shape, r.stride, r.offset)
}
