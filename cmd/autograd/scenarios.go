package main

import (
	"fmt"
	"io"

	"github.com/born-ml/autograd/autograd"
	"github.com/born-ml/autograd/tensor"
)

type scenario struct {
	description string
	run         func(out io.Writer) error
}

var scenarios = map[string]scenario{
	"rebase": {
		description: "in-place op on a narrow view splices CopySlices into the base",
		run:         runRebase,
	},
	"view": {
		description: "writing to the base invalidates the view's cached history",
		run:         runView,
	},
	"hooks": {
		description: "hooks on a leaf keep their indices across removal",
		run:         runHooks,
	},
}

// leaf returns a float32 tensor of the given length that requires grad.
func leaf(name string, n int) (*tensor.RawTensor, error) {
	t := tensor.Zeros[float32](tensor.Shape{n})
	if err := autograd.SetRequiresGrad(t, true); err != nil {
		return nil, err
	}
	if err := autograd.SetName(t, name); err != nil {
		return nil, err
	}
	return t, nil
}

func printGradFn(out io.Writer, label string, t *tensor.RawTensor) error {
	fn, err := autograd.GradFn(t)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "-- grad_fn(%s) at version %d\n%s", label, t.Version(), autograd.FormatGraph(fn))
	return nil
}

func runRebase(out io.Writer) error {
	b, err := leaf("b", 4)
	if err != nil {
		return err
	}
	v, err := autograd.Narrow(b, 0, 0, 2)
	if err != nil {
		return err
	}

	// v.fill_(3): record the op, write, then rebase v's history onto it.
	fill := autograd.NewOpNode("FillBackward", autograd.CollectNextEdges(v)...)
	fill.AddOutputMetadata(autograd.OutputMetadataOf(v))
	if err := v.Fill(3); err != nil {
		return err
	}
	if err := autograd.RebaseHistory(v, autograd.Edge{Node: fill}); err != nil {
		return err
	}

	if err := printGradFn(out, "b", b); err != nil {
		return err
	}
	if err := printGradFn(out, "b[0:2]", v); err != nil {
		return err
	}
	fmt.Fprintf(out, "b = %v\n", b.Values())
	return nil
}

func runView(out io.Writer) error {
	b, err := leaf("b", 6)
	if err != nil {
		return err
	}
	v, err := autograd.Narrow(b, 0, 2, 3)
	if err != nil {
		return err
	}
	if err := printGradFn(out, "b[2:5]", v); err != nil {
		return err
	}
	if err := printGradFn(out, "b[2:5] (no write)", v); err != nil {
		return err
	}

	// b.add_(1) through an untracked handle that shares b's version counter.
	data, err := autograd.TensorData(b)
	if err != nil {
		return err
	}
	if err := data.Fill(1); err != nil {
		return err
	}
	return printGradFn(out, "b[2:5] (after write to b)", v)
}

func runHooks(out io.Writer) error {
	x, err := leaf("x", 3)
	if err != nil {
		return err
	}

	var idx []int
	for i := 1; i <= 3; i++ {
		scale := float32(i * 10)
		h, err := autograd.RegisterHook(x, func(grad *tensor.RawTensor) *tensor.RawTensor {
			fmt.Fprintf(out, "hook x%g sees %v\n", scale, grad.Values())
			return nil
		})
		if err != nil {
			return err
		}
		idx = append(idx, h)
	}
	if err := autograd.RemoveHook(x, idx[1]); err != nil {
		return err
	}
	fmt.Fprintf(out, "registered %v, removed %d\n", idx, idx[1])

	acc, err := autograd.GradAccumulator(x)
	if err != nil {
		return err
	}
	ones := tensor.Full[float32](tensor.Shape{3}, 1)
	for range 2 {
		if err := acc.Accumulate(ones); err != nil {
			return err
		}
	}
	grad, err := autograd.Grad(x)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "x.grad = %v\n", grad.Values())
	return nil
}
