package autograd

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/autograd/internal/tensor"
)

func TestSequenceNrIncreases(t *testing.T) {
	first := NewOpNode("A")
	second := NewOpNode("B")
	assert.Greater(t, second.SequenceNr(), first.SequenceNr())
}

func TestOpNode(t *testing.T) {
	a := NewOpNode("A")
	edges := []Edge{{Node: a, InputNr: 1}}
	n := NewOpNode("MulBackward", edges...)
	edges[0].InputNr = 7
	assert.Equal(t, 1, n.NextEdges()[0].InputNr, "next edges are copied")

	n.SetNextEdges([]Edge{{}, {Node: a}})
	require.Len(t, n.NextEdges(), 2)
	assert.False(t, n.NextEdges()[0].IsValid())

	x := tensor.Zeros[float64](tensor.Shape{2, 3})
	assert.Equal(t, 0, n.AddOutputMetadata(OutputMetadataOf(x)))
	assert.Equal(t, 1, n.AddOutputMetadata(OutputMetadata{Shape: tensor.Shape{1}}))
	assert.Equal(t, 2, n.NumOutputs())
	assert.Equal(t, OutputMetadata{Shape: tensor.Shape{2, 3}, DType: tensor.Float64, Device: tensor.CPU}, n.OutputMetadata()[0])
}

func TestEdge(t *testing.T) {
	var e Edge
	assert.False(t, e.IsValid())
	assert.Equal(t, "<none>", e.String())

	n := NewOpNode("MulBackward")
	e = Edge{Node: n, InputNr: 1}
	assert.True(t, e.IsValid())
	assert.Equal(t, fmt.Sprintf("MulBackward#%d:1", n.SequenceNr()), e.String())
}
