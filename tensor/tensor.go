// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/autograd/internal/tensor"
)

// DType is a constraint for tensor data types.
// Supported types: float32, float64, int32, int64.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
)

// Device represents the device where tensor data resides.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	CUDA   Device = tensor.CUDA
	Vulkan Device = tensor.Vulkan
	Metal  Device = tensor.Metal
	WebGPU Device = tensor.WebGPU
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Geometry is the shape, strides and storage offset of a tensor.
type Geometry = tensor.Geometry

// VersionCounter counts in-place writes to one storage.
type VersionCounter = tensor.VersionCounter

// NewVersionCounter returns a counter at version 0.
func NewVersionCounter() *VersionCounter {
	return tensor.NewVersionCounter()
}

// FromSlice creates a contiguous CPU tensor holding a copy of data.
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}

// Zeros creates a CPU tensor filled with zeros.
func Zeros[T DType](shape Shape) *RawTensor {
	return tensor.Zeros[T](shape)
}

// Full creates a CPU tensor filled with value.
func Full[T DType](shape Shape, value T) *RawTensor {
	return tensor.Full(shape, value)
}

// Arange creates a 1D tensor with values from start to end (exclusive).
func Arange[T float32 | float64 | int32 | int64](start, end T) *RawTensor {
	return tensor.Arange(start, end)
}

// Add returns a new tensor holding a + b (floating point, same shape).
func Add(a, b *RawTensor) (*RawTensor, error) {
	return tensor.Add(a, b)
}
