// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the tensor handle used with the autograd package.
//
// # Overview
//
// A RawTensor is a strided view over reference-counted storage:
//   - Shape, strides and storage offset (Geometry)
//   - A data type and a device
//   - A VersionCounter shared by every handle aliasing the same storage
//   - Optional autograd metadata, attached by the autograd package
//
// # Basic Usage
//
//	import "github.com/born-ml/autograd/tensor"
//
//	func main() {
//	    b := tensor.Arange[float32](0, 6)
//	    m, _ := b.AsStrided(tensor.Shape{2, 3}, []int{3, 1}, 0) // 2x3 view of b
//	    row, _ := m.Select(0, 1)                                // second row
//
//	    _ = row.Fill(0)       // writes into b's storage
//	    fmt.Println(b.Values()) // [0 1 2 0 0 0]
//	    fmt.Println(b.Version()) // 1, shared with m and row
//	}
//
// # Version Counters
//
// Every in-place write (Fill, CopyFrom, or an explicit BumpVersion) increments
// the version counter of the storage. Since all aliases share one counter, a
// consumer that remembers a version can detect a write made through any of
// them. Autograd uses this to invalidate cached view history and to reject
// saved tensors that were modified after being saved.
//
// # Supported Data Types
//
//   - float32, float64 (the only types that can require gradients)
//   - int32, int64
package tensor
