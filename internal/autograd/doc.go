// Package autograd keeps the per-tensor bookkeeping reverse-mode automatic
// differentiation needs, and keeps it correct when tensors alias each other's
// storage and are modified in place.
//
// Every tracked tensor carries an AutogradMeta: whether it requires
// gradients, the edge to the node that produced it (its history), a weakly
// held gradient accumulator for leaves, hooks and a display name. Views carry
// a ViewMeta that also records their root base and the version of the shared
// storage at which their history was last built.
//
// Three mechanisms keep history consistent under aliasing:
//
//   - Version counters. All aliases of one storage share a counter that every
//     in-place write bumps (see tensor.VersionCounter).
//   - Lazy view history. GradFn on a view rebuilds its node from the base's
//     current history whenever the shared counter moved since the last build.
//   - Rebasing. RebaseHistory on a view that was modified in place splices the
//     update into the base's history through a CopySlices node.
//
// Usage:
//
//	b := tensor.Zeros[float32](tensor.Shape{4})
//	_ = autograd.SetRequiresGrad(b, true)
//	v, _ := autograd.Narrow(b, 0, 0, 2)           // v = b[0:2]
//
//	// An in-place op on v: record its node, write, then rebase.
//	mul := autograd.NewOpNode("MulBackward", autograd.CollectNextEdges(v)...)
//	mul.AddOutputMetadata(autograd.OutputMetadataOf(v))
//	_ = v.Fill(2)
//	_ = autograd.RebaseHistory(v, autograd.Edge{Node: mul})
//
//	fn, _ := autograd.GradFn(b) // *CopySlices with Fn == mul
//
// The backward engine and the backward formulas are not part of this package:
// nodes are opaque values implementing Node.
package autograd
