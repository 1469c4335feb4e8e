package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRawAllTypes(t *testing.T) {
	tests := []struct {
		dtype DataType
		size  int
	}{
		{Float32, 4},
		{Float64, 8},
		{Int32, 4},
		{Int64, 8},
	}
	for _, tt := range tests {
		t.Run(tt.dtype.String(), func(t *testing.T) {
			raw, err := NewRaw(Shape{2, 3}, tt.dtype, CPU)
			require.NoError(t, err)
			assert.Equal(t, 6, raw.NumElements())
			assert.Equal(t, 6*tt.size, raw.ByteSize())
			assert.Equal(t, []int{3, 1}, raw.Strides())
			assert.Equal(t, 0, raw.StorageOffset())
			assert.True(t, raw.IsContiguous())
			assert.Equal(t, uint64(0), raw.Version())
		})
	}
}

func TestNewRawInvalidShape(t *testing.T) {
	_, err := NewRaw(Shape{2, 0}, Float32, CPU)
	assert.Error(t, err)

	_, err = NewRaw(Shape{-1}, Float32, CPU)
	assert.Error(t, err)
}

func TestRawTensorScalar(t *testing.T) {
	raw, err := NewRaw(Shape{}, Float64, CPU)
	require.NoError(t, err)
	assert.Equal(t, 1, raw.NumElements())
	assert.Len(t, raw.AsFloat64(), 1)
}

func TestRawTensorDefined(t *testing.T) {
	var undefined *RawTensor
	assert.False(t, undefined.Defined())
	assert.False(t, undefined.RequiresGrad())
	assert.Equal(t, "RawTensor(undefined)", undefined.String())

	assert.True(t, Zeros[float32](Shape{1}).Defined())
}

func TestRawTensorAsFloat32ZeroCopy(t *testing.T) {
	raw := Zeros[float32](Shape{4})
	data := raw.AsFloat32()
	data[2] = 7
	assert.Equal(t, float32(7), raw.AsFloat32()[2])
	assert.Len(t, raw.Data(), 16)
}

func TestRawTensorAsWrongTypePanics(t *testing.T) {
	raw := Zeros[float32](Shape{2})
	assert.Panics(t, func() { raw.AsFloat64() })
	assert.Panics(t, func() { raw.AsInt32() })
	assert.Panics(t, func() { raw.AsInt64() })
}

func TestRawTensorAsNonContiguousPanics(t *testing.T) {
	raw := Arange[float32](0, 6)
	cols, err := raw.AsStrided(Shape{2, 2}, []int{1, 2}, 0)
	require.NoError(t, err)
	assert.False(t, cols.IsContiguous())
	assert.Panics(t, func() { cols.AsFloat32() })
}

func TestRawTensorVersionCounter(t *testing.T) {
	raw := Zeros[float32](Shape{2})
	assert.Equal(t, uint64(1), raw.BumpVersion())
	assert.Equal(t, uint64(1), raw.Version())

	vc := NewVersionCounter()
	raw.SetVersionCounter(vc)
	assert.Same(t, vc, raw.VersionCounter())
	assert.Equal(t, uint64(0), raw.Version())
}

type fakeMeta struct{ requires bool }

func (m *fakeMeta) RequiresGrad() bool { return m.requires }

func TestRawTensorAutogradMetaSlot(t *testing.T) {
	raw := Zeros[float32](Shape{2})
	assert.Nil(t, raw.AutogradMeta())
	assert.False(t, raw.RequiresGrad())

	first := raw.LoadOrStoreAutogradMeta(func() AutogradMeta { return &fakeMeta{requires: true} })
	second := raw.LoadOrStoreAutogradMeta(func() AutogradMeta {
		t.Fatal("create must not run once metadata is attached")
		return nil
	})
	assert.Same(t, first, second)
	assert.True(t, raw.RequiresGrad())

	raw.SetAutogradMeta(nil)
	assert.Nil(t, raw.AutogradMeta())
}

func TestShallowCopyAndDetach(t *testing.T) {
	raw := Arange[float32](0, 4)
	raw.SetAutogradMeta(&fakeMeta{requires: true})
	raw.BumpVersion()

	fresh := raw.ShallowCopyAndDetach(nil)
	assert.True(t, fresh.SharesStorage(raw))
	assert.Nil(t, fresh.AutogradMeta())
	assert.NotSame(t, raw.VersionCounter(), fresh.VersionCounter())
	assert.Equal(t, uint64(0), fresh.Version())
	assert.True(t, fresh.Geometry().Equal(raw.Geometry()))

	shared := raw.ShallowCopyAndDetach(raw.VersionCounter())
	require.NoError(t, shared.Fill(5))
	assert.Equal(t, uint64(2), raw.Version())
	assert.Equal(t, []float64{5, 5, 5, 5}, raw.Values())
}

func TestRawTensorReferenceCounting(t *testing.T) {
	raw := Zeros[float32](Shape{4})
	assert.True(t, raw.IsUnique())

	alias, err := raw.Alias()
	require.NoError(t, err)
	assert.False(t, raw.IsUnique())

	alias.Release()
	assert.True(t, raw.IsUnique())
}

func TestRawTensorString(t *testing.T) {
	raw := Zeros[float64](Shape{2, 3})
	assert.Equal(t, "RawTensor(shape=[2 3] strides=[3 1] offset=0, float64, CPU, version=0)", raw.String())
}
