package tensor

import "fmt"

// FromSlice creates a contiguous CPU tensor holding a copy of data.
//
// Example:
//
//	t, err := tensor.FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2})
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	raw, err := NewRaw(shape, dataTypeOf[T](), CPU)
	if err != nil {
		return nil, err
	}
	copy(bufferAs[T](raw), data)
	return raw, nil
}

// Zeros creates a CPU tensor filled with zeros.
// Panics if the shape is invalid.
//
// Example:
//
//	t := tensor.Zeros[float32](Shape{3, 4})
func Zeros[T DType](shape Shape) *RawTensor {
	raw, err := NewRaw(shape, dataTypeOf[T](), CPU)
	if err != nil {
		panic(err) // Shape validation should prevent this
	}

	// Data is already zero-initialized by make()
	return raw
}

// Full creates a CPU tensor filled with a specific value.
//
// Example:
//
//	t := tensor.Full[float32](Shape{3, 3}, 3.14)
func Full[T DType](shape Shape, value T) *RawTensor {
	raw := Zeros[T](shape)
	data := bufferAs[T](raw)
	for i := range data {
		data[i] = value
	}
	return raw
}

// Arange creates a 1D tensor with values from start to end (exclusive).
//
// Example:
//
//	t := tensor.Arange[float32](0, 4) // [0, 1, 2, 3]
func Arange[T DType](start, end T) *RawTensor {
	numElements := int(end - start)
	if numElements <= 0 {
		panic("end must be greater than start")
	}

	raw := Zeros[T](Shape{numElements})
	data := bufferAs[T](raw)
	for i := range data {
		data[i] = start + T(i)
	}
	return raw
}
