// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/autograd/internal/tensor"
)

// RawTensor is the tensor handle.
//
// RawTensor provides:
//   - Shape and type information via Shape(), DType(), Device(), Geometry()
//   - Views sharing storage via AsStrided(), Narrow(), Select(), Alias()
//   - In-place writes via Fill() and CopyFrom(), which bump the version counter
//   - The shared version counter via VersionCounter(), Version(), BumpVersion()
//
// A nil *RawTensor is an undefined tensor; Defined() reports false for it.
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
//	view, _ := raw.Narrow(1, 0, 2)   // shares storage and version counter
//	_ = view.Fill(1)                 // raw.Version() == 1
type RawTensor = tensor.RawTensor

// NewRaw creates a new zeroed RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}
