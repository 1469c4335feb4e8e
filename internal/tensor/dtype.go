// Package tensor provides the tensor handle used by the autograd package:
// shared reference-counted storage, strided views over it, and the version
// counter that records in-place writes.
package tensor

import "fmt"

// DType is the constraint for Go element types a tensor can hold.
type DType interface {
	float32 | float64 | int32 | int64
}

// DataType identifies the element type of a tensor at runtime.
type DataType int

// Element types.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
)

var dataTypes = [...]struct {
	name     string
	size     int
	floating bool
}{
	Float32: {"float32", 4, true},
	Float64: {"float64", 8, true},
	Int32:   {"int32", 4, false},
	Int64:   {"int64", 8, false},
}

func (dt DataType) valid() bool {
	return dt >= 0 && int(dt) < len(dataTypes)
}

// Size returns the byte size of one element. It panics on an unknown type.
func (dt DataType) Size() int {
	if !dt.valid() {
		panic(fmt.Sprintf("unknown data type %d", int(dt)))
	}
	return dataTypes[dt].size
}

// IsFloatingPoint reports whether values of this type can carry gradients.
func (dt DataType) IsFloatingPoint() bool {
	return dt.valid() && dataTypes[dt].floating
}

// String returns the Go name of the element type.
func (dt DataType) String() string {
	if !dt.valid() {
		return "unknown"
	}
	return dataTypes[dt].name
}

// dataTypeOf returns the DataType holding elements of type T.
func dataTypeOf[T DType]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	default:
		return Int64
	}
}
