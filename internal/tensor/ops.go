package tensor

import (
	"fmt"

	"github.com/born-ml/autograd/internal/parallel"
)

// Fill writes value into every element of r, through its strides, and bumps
// the shared version counter once. Views write into their base's storage.
func (r *RawTensor) Fill(value float64) error {
	if !r.Defined() {
		return fmt.Errorf("fill: undefined tensor")
	}
	geom := r.Geometry()
	switch r.dtype {
	case Float32:
		fillStrided(bufferAs[float32](r), geom, float32(value), r.writeConfig())
	case Float64:
		fillStrided(bufferAs[float64](r), geom, value, r.writeConfig())
	case Int32:
		fillStrided(bufferAs[int32](r), geom, int32(value), r.writeConfig())
	case Int64:
		fillStrided(bufferAs[int64](r), geom, int64(value), r.writeConfig())
	default:
		return fmt.Errorf("fill: unsupported dtype %s", r.dtype)
	}
	r.BumpVersion()
	return nil
}

// CopyFrom copies the elements of src into r (same shape and dtype), through
// both tensors' strides, and bumps r's version counter once.
func (r *RawTensor) CopyFrom(src *RawTensor) error {
	if !r.Defined() || !src.Defined() {
		return fmt.Errorf("copy: undefined tensor")
	}
	if !r.shape.Equal(src.shape) {
		return fmt.Errorf("copy: shape mismatch %v vs %v", r.shape, src.shape)
	}
	if r.dtype != src.dtype {
		return fmt.Errorf("copy: dtype mismatch %s vs %s", r.dtype, src.dtype)
	}

	// A private snapshot keeps overlapping copies (src aliasing r) well defined.
	values := src.Values()
	geom := r.Geometry()
	switch r.dtype {
	case Float32:
		writeStrided(bufferAs[float32](r), geom, values, r.writeConfig())
	case Float64:
		writeStrided(bufferAs[float64](r), geom, values, r.writeConfig())
	case Int32:
		writeStrided(bufferAs[int32](r), geom, values, r.writeConfig())
	case Int64:
		writeStrided(bufferAs[int64](r), geom, values, r.writeConfig())
	default:
		return fmt.Errorf("copy: unsupported dtype %s", r.dtype)
	}
	r.BumpVersion()
	return nil
}

// Values returns the logical elements of r in row-major order, converted to float64.
func (r *RawTensor) Values() []float64 {
	if !r.Defined() {
		return nil
	}
	geom := r.Geometry()
	switch r.dtype {
	case Float32:
		return readStrided(bufferAs[float32](r), geom)
	case Float64:
		return readStrided(bufferAs[float64](r), geom)
	case Int32:
		return readStrided(bufferAs[int32](r), geom)
	case Int64:
		return readStrided(bufferAs[int64](r), geom)
	default:
		panic(fmt.Sprintf("values: unsupported dtype %s", r.dtype))
	}
}

// Add returns a new contiguous tensor holding a + b.
// Only floating point tensors of identical shape are supported; this is what
// gradient accumulation needs.
func Add(a, b *RawTensor) (*RawTensor, error) {
	if !a.Defined() || !b.Defined() {
		return nil, fmt.Errorf("add: undefined tensor")
	}
	if !a.shape.Equal(b.shape) {
		return nil, fmt.Errorf("add: shape mismatch %v vs %v", a.shape, b.shape)
	}
	if a.dtype != b.dtype || !a.dtype.IsFloatingPoint() {
		return nil, fmt.Errorf("add: unsupported dtypes %s and %s", a.dtype, b.dtype)
	}

	result, err := NewRaw(a.shape, a.dtype, a.device)
	if err != nil {
		return nil, err
	}
	av, bv := a.Values(), b.Values()
	cfg := parallel.DefaultConfig()
	switch a.dtype {
	case Float32:
		out := result.AsFloat32()
		parallel.For(len(out), func(i int) {
			out[i] = float32(av[i] + bv[i])
		}, cfg)
	case Float64:
		out := result.AsFloat64()
		parallel.For(len(out), func(i int) {
			out[i] = av[i] + bv[i]
		}, cfg)
	}
	return result, nil
}

// writeConfig disables parallel writes when two logical elements share a
// storage slot (a zero stride on a non-trivial dimension).
func (r *RawTensor) writeConfig() parallel.Config {
	for i, dim := range r.shape {
		if dim > 1 && r.stride[i] == 0 {
			return parallel.Config{}
		}
	}
	return parallel.DefaultConfig()
}

func fillStrided[T DType](data []T, geom Geometry, value T, cfg parallel.Config) {
	parallel.For(geom.NumElements(), func(i int) {
		data[geom.elementOffset(i)] = value
	}, cfg)
}

func writeStrided[T DType](data []T, geom Geometry, values []float64, cfg parallel.Config) {
	parallel.For(geom.NumElements(), func(i int) {
		data[geom.elementOffset(i)] = T(values[i])
	}, cfg)
}

func readStrided[T DType](data []T, geom Geometry) []float64 {
	out := make([]float64, geom.NumElements())
	for i := range out {
		out[i] = float64(data[geom.elementOffset(i)])
	}
	return out
}
