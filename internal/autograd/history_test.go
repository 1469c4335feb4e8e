package autograd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/autograd/internal/tensor"
)

func TestLeafHasNoGradFn(t *testing.T) {
	x := newLeaf(t, 2)
	fn, err := GradFn(x)
	require.NoError(t, err)
	assert.Nil(t, fn)

	e, err := ProvenanceEdge(x)
	require.NoError(t, err)
	assert.False(t, e.IsValid())

	e, err = GradientEdge(x)
	require.NoError(t, err)
	require.True(t, e.IsValid())
	assert.IsType(t, &AccumulateGrad{}, e.Node)
	assert.Equal(t, 0, e.InputNr)

	untracked := tensor.Zeros[float32](tensor.Shape{2})
	e, err = GradientEdge(untracked)
	require.NoError(t, err)
	assert.False(t, e.IsValid())
}

func TestSetHistory(t *testing.T) {
	a, b := newLeaf(t, 2), newLeaf(t, 2)
	node := NewOpNode("SplitBackward", CollectNextEdges(a, b)...)
	y0 := newOutput(t, node, 2)
	y1 := newOutput(t, node, 3)

	assert.Equal(t, 2, node.NumOutputs())
	assert.Equal(t, tensor.Shape{3}, node.OutputMetadata()[1].Shape)

	e, err := ProvenanceEdge(y1)
	require.NoError(t, err)
	assert.Same(t, node, e.Node)
	assert.Equal(t, 1, e.InputNr)

	nr, err := OutputNr(y0)
	require.NoError(t, err)
	assert.Equal(t, 0, nr)

	e, err = GradientEdge(y0)
	require.NoError(t, err)
	assert.Equal(t, Edge{Node: node, InputNr: 0}, e)

	assert.ErrorIs(t, SetHistory(y0, nil), ErrMisuse)
}

func TestCollectNextEdges(t *testing.T) {
	x := newLeaf(t, 2)
	untracked := tensor.Zeros[float32](tensor.Shape{2})

	edges := CollectNextEdges(nil, x, untracked)
	require.Len(t, edges, 3)
	assert.False(t, edges[0].IsValid())
	assert.True(t, edges[1].IsValid())
	assert.Same(t, TryGetGradAccumulator(x), edges[1].Node)
	assert.False(t, edges[2].IsValid())
}

func TestGradAccumulatorOnNonLeaf(t *testing.T) {
	x := newLeaf(t, 2)
	require.NoError(t, SetGradientEdge(x, Edge{Node: NewOpNode("ExpBackward")}))

	acc, err := GradAccumulator(x)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Nil(t, acc)

	notRequiring := tensor.Zeros[float32](tensor.Shape{2})
	require.NoError(t, SetRequiresGrad(notRequiring, false))
	acc, err = GradAccumulator(notRequiring)
	assert.NoError(t, err)
	assert.Nil(t, acc)

	acc, err = GradAccumulator(tensor.Zeros[float32](tensor.Shape{2}))
	assert.NoError(t, err)
	assert.Nil(t, acc)
}

func TestViewGradFnOfUntrackedBase(t *testing.T) {
	b := tensor.Zeros[float32](tensor.Shape{4})
	v, err := Narrow(b, 0, 0, 2)
	require.NoError(t, err)

	fn, err := GradFn(v)
	require.NoError(t, err)
	assert.Nil(t, fn)
}

func TestMakeViewRecordsNoHistory(t *testing.T) {
	b := newLeaf(t, 4)
	v, err := b.Narrow(0, 0, 2)
	require.NoError(t, err)
	require.NoError(t, MakeView(b, v))

	fn, err := GradFn(v)
	require.NoError(t, err)
	assert.Nil(t, fn, "an unchanged view without history keeps none")

	require.NoError(t, b.Fill(1))
	fn, err = GradFn(v)
	require.NoError(t, err)
	assert.IsType(t, &AsStridedBackward{}, fn)
}

func TestAsViewRecordsHistoryAgainstRoot(t *testing.T) {
	b := newLeaf(t, 6)
	outer, err := Narrow(b, 0, 1, 4)
	require.NoError(t, err)
	inner, err := AsView(outer, tensor.Shape{2}, []int{2}, outer.StorageOffset())
	require.NoError(t, err)

	fn, err := GradFn(inner)
	require.NoError(t, err)
	view, ok := fn.(*AsStridedBackward)
	require.True(t, ok, "got %T", fn)
	assert.Equal(t, tensor.Shape{6}, view.BaseGeometry.Shape)
	assert.Equal(t, []int{2}, view.Stride)
	assert.Same(t, TryGetGradAccumulator(b), view.NextEdges()[0].Node)
	assert.Equal(t, 1, view.NumOutputs())
}

func TestViewGradFnIsCachedUntilWrite(t *testing.T) {
	b := newLeaf(t, 4)
	v, err := Narrow(b, 0, 1, 2)
	require.NoError(t, err)

	first, err := GradFn(v)
	require.NoError(t, err)
	require.IsType(t, &AsStridedBackward{}, first)
	again, err := GradFn(v)
	require.NoError(t, err)
	assert.Same(t, first, again, "no write, no rebuild")

	fn := first.(*AsStridedBackward)
	assert.Equal(t, tensor.Shape{2}, fn.Size)
	assert.Equal(t, []int{1}, fn.Stride)
	assert.Equal(t, 1, fn.StorageOffset)
	assert.Equal(t, tensor.Shape{4}, fn.BaseGeometry.Shape)
	assert.True(t, fn.ViewGeometry().Equal(v.Geometry()))
	require.Equal(t, 1, fn.NumOutputs())
	assert.Equal(t, tensor.Shape{2}, fn.OutputMetadata()[0].Shape)
	assert.Same(t, TryGetGradAccumulator(b), fn.NextEdges()[0].Node)

	require.NoError(t, b.Fill(1))
	rebuilt, err := GradFn(v)
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)
	assert.Greater(t, rebuilt.SequenceNr(), first.SequenceNr())

	again, err = GradFn(v)
	require.NoError(t, err)
	assert.Same(t, rebuilt, again)
}

func TestViewGradFnWriteThroughSibling(t *testing.T) {
	b := newLeaf(t, 4)
	v, err := Narrow(b, 0, 0, 2)
	require.NoError(t, err)
	sibling, err := Narrow(b, 0, 2, 2)
	require.NoError(t, err)

	before, err := GradFn(v)
	require.NoError(t, err)
	require.NoError(t, sibling.Fill(3))
	after, err := GradFn(v)
	require.NoError(t, err)
	assert.NotSame(t, before, after)
}

func TestViewGradFnConcurrentReaders(t *testing.T) {
	const workers = 16
	b := newLeaf(t, 4)
	v, err := Narrow(b, 0, 0, 2)
	require.NoError(t, err)
	_, err = GradFn(v)
	require.NoError(t, err)
	require.NoError(t, b.Fill(2))

	fns := make([]Node, workers)
	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			fn, err := GradFn(v)
			fns[i] = fn
			return err
		})
	}
	require.NoError(t, g.Wait())
	for _, fn := range fns {
		assert.Same(t, fns[0], fn)
	}
}

func TestRebaseHistoryOfTensor(t *testing.T) {
	x := newLeaf(t, 2)
	node := NewOpNode("MulBackward", CollectNextEdges(x)...)
	node.AddOutputMetadata(OutputMetadataOf(x))

	require.NoError(t, RebaseHistory(x, Edge{Node: node}))
	fn, err := GradFn(x)
	require.NoError(t, err)
	assert.Same(t, node, fn)
	assert.False(t, IsView(x))
}

// rebaseFixture builds base b[4] requiring grad, the view v = b[0:2] and an
// in-place node fn recorded against v.
func rebaseFixture(t *testing.T) (b, v *tensor.RawTensor, acc *AccumulateGrad, fn *OpNode) {
	t.Helper()
	b = newLeaf(t, 4)
	acc, err := GradAccumulator(b)
	require.NoError(t, err)
	v, err = Narrow(b, 0, 0, 2)
	require.NoError(t, err)

	fn = NewOpNode("MulBackward", CollectNextEdges(v)...)
	fn.AddOutputMetadata(OutputMetadataOf(v))
	return b, v, acc, fn
}

func TestRebaseHistoryOfView(t *testing.T) {
	b, v, acc, fn := rebaseFixture(t)
	require.NoError(t, v.Fill(2))
	require.NoError(t, RebaseHistory(v, Edge{Node: fn}))

	baseFn, err := GradFn(b)
	require.NoError(t, err)
	cs, ok := baseFn.(*CopySlices)
	require.True(t, ok, "got %T", baseFn)
	assert.Same(t, fn, cs.Fn)
	assert.True(t, cs.ViewGeometry.Equal(v.Geometry()))
	assert.Equal(t, tensor.Shape{4}, cs.BaseGeometry.Shape)
	require.Len(t, cs.NextEdges(), 1)
	assert.Equal(t, Edge{Node: acc, InputNr: 0}, cs.NextEdges()[0], "the splice keeps the base's previous history")
	assert.Equal(t, tensor.Shape{4}, cs.OutputMetadata()[0].Shape)

	e, err := ProvenanceEdge(v)
	require.NoError(t, err)
	assert.Equal(t, 0, e.InputNr)
	view, ok := e.Node.(*AsStridedBackward)
	require.True(t, ok, "got %T", e.Node)
	assert.Same(t, cs, view.NextEdges()[0].Node, "the view is rebuilt from the spliced base")

	_, err = GradAccumulator(b)
	assert.ErrorIs(t, err, ErrInvalidState, "the base is no longer a leaf")
	assert.Equal(t, []float64{2, 2, 0, 0}, b.Values())
}

func TestRebaseHistoryOfViewWithoutWrite(t *testing.T) {
	b, v, _, fn := rebaseFixture(t)
	require.NoError(t, RebaseHistory(v, Edge{Node: fn}))

	baseFn, err := GradFn(b)
	require.NoError(t, err)
	got, err := GradFn(v)
	require.NoError(t, err)
	require.IsType(t, &AsStridedBackward{}, got)
	assert.Same(t, baseFn, got.NextEdges()[0].Node)
	nr, err := OutputNr(v)
	require.NoError(t, err)
	assert.Equal(t, 0, nr)
}

func TestRebaseHistoryAfterStaleRead(t *testing.T) {
	b, v, _, fn := rebaseFixture(t)
	require.NoError(t, v.Fill(2))
	_, err := GradFn(v) // caches a node over the base's pre-splice history
	require.NoError(t, err)
	require.NoError(t, RebaseHistory(v, Edge{Node: fn}))

	baseFn, err := GradFn(b)
	require.NoError(t, err)
	got, err := GradFn(v)
	require.NoError(t, err)
	assert.Same(t, baseFn, got.NextEdges()[0].Node)
}

func TestRebaseHistoryRacesReaders(t *testing.T) {
	const rounds, readers = 20, 8
	for range rounds {
		b, v, acc, fn := rebaseFixture(t)
		require.NoError(t, v.Fill(2))

		var g errgroup.Group
		for range readers {
			g.Go(func() error {
				for range 25 {
					if _, err := GradFn(v); err != nil {
						return err
					}
				}
				return nil
			})
		}
		g.Go(func() error {
			return RebaseHistory(v, Edge{Node: fn})
		})
		require.NoError(t, g.Wait())

		baseFn, err := GradFn(b)
		require.NoError(t, err)
		cs, ok := baseFn.(*CopySlices)
		require.True(t, ok, "got %T", baseFn)
		assert.Same(t, fn, cs.Fn)
		assert.Same(t, acc, cs.NextEdges()[0].Node)

		viewFn, err := GradFn(v)
		require.NoError(t, err)
		assert.Same(t, cs, viewFn.NextEdges()[0].Node, "the view must read from the splice")
	}
}

func TestRebaseHistoryOfSiblingViewsConcurrently(t *testing.T) {
	const rounds = 20
	for range rounds {
		b := newLeaf(t, 4)
		acc, err := GradAccumulator(b)
		require.NoError(t, err)

		views := make([]*tensor.RawTensor, 2)
		fns := make([]*OpNode, 2)
		for i := range views {
			views[i], err = Narrow(b, 0, 2*i, 2)
			require.NoError(t, err)
			fns[i] = NewOpNode("MulBackward", CollectNextEdges(views[i])...)
			fns[i].AddOutputMetadata(OutputMetadataOf(views[i]))
			require.NoError(t, views[i].Fill(float64(i+1)))
		}

		var g errgroup.Group
		for i := range views {
			g.Go(func() error {
				return RebaseHistory(views[i], Edge{Node: fns[i]})
			})
		}
		require.NoError(t, g.Wait())

		outerFn, err := GradFn(b)
		require.NoError(t, err)
		outer, ok := outerFn.(*CopySlices)
		require.True(t, ok, "got %T", outerFn)
		inner, ok := outer.NextEdges()[0].Node.(*CopySlices)
		require.True(t, ok, "the first splice must stay in the base's history, got %T", outer.NextEdges()[0].Node)
		assert.Same(t, acc, inner.NextEdges()[0].Node)
		assert.ElementsMatch(t, []Node{fns[0], fns[1]}, []Node{outer.Fn, inner.Fn})

		last := views[0]
		if outer.Fn == Node(fns[1]) {
			last = views[1]
		}
		viewFn, err := GradFn(last)
		require.NoError(t, err)
		assert.Same(t, outer, viewFn.NextEdges()[0].Node)
	}
}

func TestRebaseHistoryOfViewKeepsFnInputs(t *testing.T) {
	b := newLeaf(t, 4)
	other := newLeaf(t, 2)
	v, err := Narrow(b, 0, 2, 2)
	require.NoError(t, err)

	fn := NewOpNode("AddBackward", CollectNextEdges(v, other)...)
	fn.AddOutputMetadata(OutputMetadataOf(v))
	require.NoError(t, v.CopyFrom(other))
	require.NoError(t, RebaseHistory(v, Edge{Node: fn}))

	baseFn, err := GradFn(b)
	require.NoError(t, err)
	next := baseFn.NextEdges()
	require.Len(t, next, 2)
	assert.Same(t, TryGetGradAccumulator(other), next[1].Node)
}

func TestRebaseHistoryErrors(t *testing.T) {
	_, v, _, _ := rebaseFixture(t)

	assert.ErrorIs(t, RebaseHistory(v, Edge{}), ErrInvalidState)

	multi := NewOpNode("SplitBackward", CollectNextEdges(v)...)
	multi.AddOutputMetadata(OutputMetadataOf(v))
	multi.AddOutputMetadata(OutputMetadataOf(v))
	assert.ErrorIs(t, RebaseHistory(v, Edge{Node: multi}), ErrMisuse)
	assert.ErrorIs(t, RebaseHistory(v, Edge{Node: multi, InputNr: 1}), ErrMisuse)

	none := NewOpNode("NoOutputs")
	assert.ErrorIs(t, RebaseHistory(v, Edge{Node: none}), ErrMisuse)
}
