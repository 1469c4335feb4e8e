package autograd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/autograd/internal/tensor"
)

// newLeaf returns a float32 leaf of length n that requires gradients.
func newLeaf(t *testing.T, n int) *tensor.RawTensor {
	t.Helper()
	x := tensor.Zeros[float32](tensor.Shape{n})
	require.NoError(t, SetRequiresGrad(x, true))
	return x
}

// newOutput returns a float32 tensor of length n produced by node.
func newOutput(t *testing.T, node Node, n int) *tensor.RawTensor {
	t.Helper()
	y := tensor.Zeros[float32](tensor.Shape{n})
	require.NoError(t, SetHistory(y, node))
	return y
}
