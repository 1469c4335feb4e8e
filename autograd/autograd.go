// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autograd provides the autograd bookkeeping of tensors: gradient
// requirements, history edges, leaf accumulators, hooks, and the view
// tracking that keeps history correct under in-place modification.
//
// Example:
//
//	import (
//	    "github.com/born-ml/autograd/autograd"
//	    "github.com/born-ml/autograd/tensor"
//	)
//
//	func main() {
//	    b := tensor.Zeros[float32](tensor.Shape{4})
//	    _ = autograd.SetRequiresGrad(b, true)
//
//	    v, _ := autograd.Narrow(b, 0, 0, 2) // v = b[0:2], a tracked view
//
//	    // In-place op on v: build its node, write, then rebase v's history.
//	    mul := autograd.NewOpNode("MulBackward", autograd.CollectNextEdges(v)...)
//	    mul.AddOutputMetadata(autograd.OutputMetadataOf(v))
//	    _ = v.Fill(3)
//	    _ = autograd.RebaseHistory(v, autograd.Edge{Node: mul})
//
//	    fn, _ := autograd.GradFn(b)
//	    fmt.Print(autograd.FormatGraph(fn))
//	}
package autograd

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/born-ml/autograd/internal/autograd"
	"github.com/born-ml/autograd/internal/tensor"
)

// Error kinds; test returned errors with errors.Is.
var (
	ErrUndefinedTensor = autograd.ErrUndefinedTensor
	ErrInvalidState    = autograd.ErrInvalidState
	ErrMisuse          = autograd.ErrMisuse
)

// Node is a function in the backward graph.
type Node = autograd.Node

// Edge points at one input of a backward node.
type Edge = autograd.Edge

// OutputMetadata describes one forward output of a node.
type OutputMetadata = autograd.OutputMetadata

// OpNode is the node of an ordinary differentiable operation.
type OpNode = autograd.OpNode

// AccumulateGrad is the backward node of a leaf tensor.
type AccumulateGrad = autograd.AccumulateGrad

// CopySlices splices an in-place update of a view into its base's history.
type CopySlices = autograd.CopySlices

// AsStridedBackward rebuilds a view from its base.
type AsStridedBackward = autograd.AsStridedBackward

// AutogradMeta is the bookkeeping attached to a tensor.
type AutogradMeta = autograd.AutogradMeta

// Hook is called with a tensor's gradient and may replace it.
type Hook = autograd.Hook

// PreHook runs on a node's incoming gradients.
type PreHook = autograd.PreHook

// PreHookFunc adapts a function to PreHook.
type PreHookFunc = autograd.PreHookFunc

// HookMap stores hooks under stable indices.
type HookMap = autograd.HookMap

// SavedVariable is a tensor saved for backward with its version.
type SavedVariable = autograd.SavedVariable

// NewOpNode creates an operation node with the given next edges.
func NewOpNode(name string, next ...Edge) *OpNode {
	return autograd.NewOpNode(name, next...)
}

// OutputMetadataOf returns the metadata describing t.
func OutputMetadataOf(t *tensor.RawTensor) OutputMetadata {
	return autograd.OutputMetadataOf(t)
}

// MaterializeAutogradMeta returns t's metadata, attaching it if needed.
func MaterializeAutogradMeta(t *tensor.RawTensor) (*AutogradMeta, error) {
	return autograd.MaterializeAutogradMeta(t)
}

// GetAutogradMeta returns t's metadata or nil, never attaching it.
func GetAutogradMeta(t *tensor.RawTensor) (*AutogradMeta, error) {
	return autograd.GetAutogradMeta(t)
}

// RequiresGrad reports whether gradients will be computed for t.
func RequiresGrad(t *tensor.RawTensor) (bool, error) {
	return autograd.RequiresGrad(t)
}

// SetRequiresGrad flags or unflags t as requiring gradients.
func SetRequiresGrad(t *tensor.RawTensor, requiresGrad bool) error {
	return autograd.SetRequiresGrad(t, requiresGrad)
}

// Grad returns the accumulated gradient of t.
func Grad(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	return autograd.Grad(t)
}

// SetGrad replaces the accumulated gradient of t.
func SetGrad(t, grad *tensor.RawTensor) error {
	return autograd.SetGrad(t, grad)
}

// GradFn returns the node that produced t, rebuilding stale view history.
func GradFn(t *tensor.RawTensor) (Node, error) {
	return autograd.GradFn(t)
}

// ProvenanceEdge returns the edge to the node that produced t.
func ProvenanceEdge(t *tensor.RawTensor) (Edge, error) {
	return autograd.ProvenanceEdge(t)
}

// GradientEdge returns the edge gradients of t flow along.
func GradientEdge(t *tensor.RawTensor) (Edge, error) {
	return autograd.GradientEdge(t)
}

// CollectNextEdges returns the gradient edges of ts.
func CollectNextEdges(ts ...*tensor.RawTensor) []Edge {
	return autograd.CollectNextEdges(ts...)
}

// SetGradientEdge records e as the provenance of t.
func SetGradientEdge(t *tensor.RawTensor, e Edge) error {
	return autograd.SetGradientEdge(t, e)
}

// SetHistory records that node produced t.
func SetHistory(t *tensor.RawTensor, node Node) error {
	return autograd.SetHistory(t, node)
}

// RebaseHistory installs the edge of an in-place operation on t.
func RebaseHistory(t *tensor.RawTensor, e Edge) error {
	return autograd.RebaseHistory(t, e)
}

// GradAccumulator returns the leaf accumulator of t, creating it if needed.
func GradAccumulator(t *tensor.RawTensor) (*AccumulateGrad, error) {
	return autograd.GradAccumulator(t)
}

// TryGetGradAccumulator returns the live accumulator of t, or nil.
func TryGetGradAccumulator(t *tensor.RawTensor) *AccumulateGrad {
	return autograd.TryGetGradAccumulator(t)
}

// RegisterHook registers hook on t's gradient and returns its stable index.
func RegisterHook(t *tensor.RawTensor, hook Hook) (int, error) {
	return autograd.RegisterHook(t, hook)
}

// RemoveHook removes the hook registered under idx.
func RemoveHook(t *tensor.RawTensor, idx int) error {
	return autograd.RemoveHook(t, idx)
}

// AddHook appends a pre-hook to t's hook list.
func AddHook(t *tensor.RawTensor, hook PreHook) error {
	return autograd.AddHook(t, hook)
}

// ClearHooks empties t's hook list.
func ClearHooks(t *tensor.RawTensor) error {
	return autograd.ClearHooks(t)
}

// Hooks returns t's hook list.
func Hooks(t *tensor.RawTensor) ([]PreHook, error) {
	return autograd.Hooks(t)
}

// CallPreHooks runs the pre-hooks of n on grads.
func CallPreHooks(n Node, grads []*tensor.RawTensor) []*tensor.RawTensor {
	return autograd.CallPreHooks(n, grads)
}

// MakeView attaches view metadata to view, recording base's root as its base.
func MakeView(base, view *tensor.RawTensor) error {
	return autograd.MakeView(base, view)
}

// AsView creates a tracked strided view of base.
func AsView(base *tensor.RawTensor, shape tensor.Shape, strides []int, offset int) (*tensor.RawTensor, error) {
	return autograd.AsView(base, shape, strides, offset)
}

// Narrow returns a tracked view of base[start:start+length] along dim.
func Narrow(base *tensor.RawTensor, dim, start, length int) (*tensor.RawTensor, error) {
	return autograd.Narrow(base, dim, start, length)
}

// IsView reports whether t is a view.
func IsView(t *tensor.RawTensor) bool {
	return autograd.IsView(t)
}

// Base returns the root base of the view t.
func Base(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	return autograd.Base(t)
}

// Name returns the display name of t.
func Name(t *tensor.RawTensor) (string, error) {
	return autograd.Name(t)
}

// SetName sets the display name of t.
func SetName(t *tensor.RawTensor, name string) error {
	return autograd.SetName(t, name)
}

// VariableData returns t's data with no autograd metadata and a fresh version counter.
func VariableData(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	return autograd.VariableData(t)
}

// TensorData returns t's data with no autograd metadata, sharing its version counter.
func TensorData(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	return autograd.TensorData(t)
}

// SaveVariable snapshots t and its version for use in backward.
func SaveVariable(t *tensor.RawTensor, isOutput bool) (*SavedVariable, error) {
	return autograd.SaveVariable(t, isOutput)
}

// FormatGraph renders the graph below root as an indented tree.
func FormatGraph(root Node) string {
	return autograd.FormatGraph(root)
}

// WalkGraph visits every node reachable from root once, breadth first.
func WalkGraph(root Node, visit func(n Node, depth int) bool) {
	autograd.WalkGraph(root, visit)
}

// RegisterMetrics registers the autograd metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	return autograd.RegisterMetrics(reg)
}
