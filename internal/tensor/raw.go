package tensor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	CUDA
	Vulkan
	Metal
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case CUDA:
		return "CUDA"
	case Vulkan:
		return "Vulkan"
	case Metal:
		return "Metal"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// tensorBuffer is a reference-counted storage shared by every handle that aliases it.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
	mu       sync.Mutex // For safe deallocation
}

// newTensorBuffer creates a new reference-counted buffer with refCount = 1.
func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{
		data: make([]byte, size),
	}
	buf.refCount.Store(1)
	return buf
}

// addRef increments the reference count (a new handle aliases the storage).
func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

// release decrements the reference count and deallocates if it reaches 0.
func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		tb.data = nil
	}
}

// isUnique returns true if this buffer has only one reference.
func (tb *tensorBuffer) isUnique() bool {
	return tb.refCount.Load() == 1
}

// AutogradMeta is the slot through which the autograd package attaches its
// per-tensor bookkeeping. The tensor package only needs to ask whether the
// tensor requires gradients; everything else is owned by the attaching package.
type AutogradMeta interface {
	RequiresGrad() bool
}

// RawTensor is the low-level tensor handle: a view (shape, strides, storage
// offset) over a reference-counted buffer, plus the version counter of that
// buffer and optional autograd metadata.
//
// Several handles may alias one buffer (see AsStrided, Narrow, Select, Alias).
// All of them share a single *VersionCounter, so an in-place write through any
// alias is observable from every other alias.
//
// A nil *RawTensor is a valid, undefined tensor.
type RawTensor struct {
	buffer  *tensorBuffer                  // Shared reference-counted buffer
	shape   Shape                          // Tensor dimensions
	stride  []int                          // Memory strides in elements
	dtype   DataType                       // Runtime type information
	device  Device                         // Compute device
	offset  int                            // Storage offset in elements
	version atomic.Pointer[VersionCounter] // Shared with every alias of buffer

	metaMu sync.Mutex
	meta   AutogradMeta
}

// NewRaw creates a new contiguous RawTensor with the given shape and type.
// Memory is allocated and zeroed.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	numElements := shape.NumElements()
	byteSize := numElements * dtype.Size()

	r := &RawTensor{
		buffer: newTensorBuffer(byteSize),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
		offset: 0,
	}
	r.version.Store(NewVersionCounter())
	return r, nil
}

// Defined reports whether the handle refers to storage. It is safe to call on nil.
func (r *RawTensor) Defined() bool {
	return r != nil && r.buffer != nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides, in elements.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// StorageOffset returns the offset of the first element in the shared storage, in elements.
func (r *RawTensor) StorageOffset() int {
	return r.offset
}

// Geometry returns a copy of the tensor's shape, strides and storage offset.
func (r *RawTensor) Geometry() Geometry {
	return Geometry{
		Shape:         r.shape.Clone(),
		Strides:       append([]int(nil), r.stride...),
		StorageOffset: r.offset,
	}
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the logical memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// StorageElements returns the number of elements in the underlying storage,
// which is larger than NumElements for most views.
func (r *RawTensor) StorageElements() int {
	return len(r.buffer.data) / r.dtype.Size()
}

// IsContiguous reports whether the tensor is laid out in row-major order
// with no gaps.
func (r *RawTensor) IsContiguous() bool {
	expected := r.shape.ComputeStrides()
	for i, dim := range r.shape {
		if dim != 1 && r.stride[i] != expected[i] {
			return false
		}
	}
	return true
}

// SharesStorage reports whether r and other alias the same buffer.
func (r *RawTensor) SharesStorage(other *RawTensor) bool {
	return r.Defined() && other.Defined() && r.buffer == other.buffer
}

// Data returns the raw byte slice starting at the storage offset.
// WARNING: Direct access to underlying memory. Only meaningful for contiguous tensors.
func (r *RawTensor) Data() []byte {
	start := r.offset * r.dtype.Size()
	return r.buffer.data[start : start+r.ByteSize()]
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32 or the tensor is not contiguous.
func (r *RawTensor) AsFloat32() []float32 {
	r.mustBeContiguous(Float32)
	return bufferAs[float32](r)[r.offset : r.offset+r.NumElements()]
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64 or the tensor is not contiguous.
func (r *RawTensor) AsFloat64() []float64 {
	r.mustBeContiguous(Float64)
	return bufferAs[float64](r)[r.offset : r.offset+r.NumElements()]
}

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32 or the tensor is not contiguous.
func (r *RawTensor) AsInt32() []int32 {
	r.mustBeContiguous(Int32)
	return bufferAs[int32](r)[r.offset : r.offset+r.NumElements()]
}

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64 or the tensor is not contiguous.
func (r *RawTensor) AsInt64() []int64 {
	r.mustBeContiguous(Int64)
	return bufferAs[int64](r)[r.offset : r.offset+r.NumElements()]
}

func (r *RawTensor) mustBeContiguous(dtype DataType) {
	if r.dtype != dtype {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, dtype))
	}
	if !r.IsContiguous() {
		panic(fmt.Sprintf("tensor with shape %v and strides %v is not contiguous", r.shape, r.stride))
	}
}

// bufferAs reinterprets the whole storage as []T.
func bufferAs[T DType](r *RawTensor) []T {
	data := r.buffer.data
	if len(data) == 0 {
		return nil
	}
	var zero T
	n := len(data) / int(unsafe.Sizeof(zero))
	//nolint:gosec // unsafe.Slice for zero-copy access, length derived from the buffer size
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), n)
}

// VersionCounter returns the counter shared by every alias of this tensor's storage.
func (r *RawTensor) VersionCounter() *VersionCounter {
	return r.version.Load()
}

// SetVersionCounter replaces the tensor's version counter.
// Views use it to adopt the counter of their base.
func (r *RawTensor) SetVersionCounter(vc *VersionCounter) {
	r.version.Store(vc)
}

// Version returns the current value of the shared version counter.
func (r *RawTensor) Version() uint64 {
	return r.version.Load().Current()
}

// BumpVersion records an in-place modification of the storage and returns the new version.
func (r *RawTensor) BumpVersion() uint64 {
	return r.version.Load().Bump()
}

// AutogradMeta returns the attached autograd metadata, or nil.
func (r *RawTensor) AutogradMeta() AutogradMeta {
	r.metaMu.Lock()
	defer r.metaMu.Unlock()
	return r.meta
}

// SetAutogradMeta attaches (or, with nil, detaches) autograd metadata.
func (r *RawTensor) SetAutogradMeta(meta AutogradMeta) {
	r.metaMu.Lock()
	defer r.metaMu.Unlock()
	r.meta = meta
}

// LoadOrStoreAutogradMeta returns the attached metadata, attaching the one
// produced by create first if there is none. Concurrent callers all observe
// the same instance.
func (r *RawTensor) LoadOrStoreAutogradMeta(create func() AutogradMeta) AutogradMeta {
	r.metaMu.Lock()
	defer r.metaMu.Unlock()
	if r.meta == nil {
		r.meta = create()
	}
	return r.meta
}

// RequiresGrad reports whether the attached metadata asks for gradients.
// Tensors without metadata never require gradients.
func (r *RawTensor) RequiresGrad() bool {
	if !r.Defined() {
		return false
	}
	meta := r.AutogradMeta()
	return meta != nil && meta.RequiresGrad()
}

// ShallowCopyAndDetach returns a new handle over the same storage and geometry
// with no autograd metadata. The copy uses vc as its version counter, or a
// fresh counter when vc is nil.
func (r *RawTensor) ShallowCopyAndDetach(vc *VersionCounter) *RawTensor {
	if vc == nil {
		vc = NewVersionCounter()
	}
	return r.alias(r.shape, r.stride, r.offset, vc)
}

// alias returns a new handle over r's buffer with the given geometry and
// version counter.
func (r *RawTensor) alias(shape Shape, strides []int, offset int, vc *VersionCounter) *RawTensor {
	r.buffer.addRef()
	a := &RawTensor{
		buffer: r.buffer,
		shape:  shape.Clone(),
		stride: append([]int(nil), strides...),
		dtype:  r.dtype,
		device: r.device,
		offset: offset,
	}
	a.version.Store(vc)
	return a
}

// Release decrements the reference count and deallocates if it reaches 0.
func (r *RawTensor) Release() {
	r.buffer.release()
}

// IsUnique returns true if this tensor is the only reference to the buffer.
func (r *RawTensor) IsUnique() bool {
	return r.buffer.isUnique()
}

// String returns a short description of the tensor (no data).
func (r *RawTensor) String() string {
	if !r.Defined() {
		return "RawTensor(undefined)"
	}
	return fmt.Sprintf("RawTensor(%s, %s, %s, version=%d)", r.Geometry(), r.dtype, r.device, r.Version())
}
