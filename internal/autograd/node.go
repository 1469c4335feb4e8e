package autograd

import (
	"sync"
	"sync/atomic"

	"github.com/born-ml/autograd/internal/tensor"
)

// Node is a function in the backward graph.
//
// A node owns one input edge per tensor it consumed in the forward pass (its
// next edges, followed towards the leaves during backward) and records
// metadata for each tensor it produced (its outputs). The backward formula
// itself lives with whoever creates the node; this package only needs the
// capability set below.
//
// Implementations must be safe for concurrent use.
type Node interface {
	// Name returns a human-readable name, e.g. "MulBackward".
	Name() string

	// SequenceNr is assigned from a process-wide counter at construction:
	// a node built later always has a larger number.
	SequenceNr() uint64

	// NumOutputs returns the number of forward outputs recorded with
	// AddOutputMetadata (the gradients this node receives in backward).
	NumOutputs() int

	// AddOutputMetadata records the shape, dtype and device of one forward
	// output and returns its slot.
	AddOutputMetadata(meta OutputMetadata) int

	// OutputMetadata returns the recorded outputs in slot order.
	OutputMetadata() []OutputMetadata

	// NextEdges returns the edges towards the producers of this node's inputs.
	NextEdges() []Edge

	// SetNextEdges replaces the edges towards this node's inputs.
	SetNextEdges(edges []Edge)

	// AddPreHook appends a hook that runs on incoming gradients before the node.
	AddPreHook(hook PreHook)

	// PreHooks returns the registered pre-hooks in registration order.
	PreHooks() []PreHook
}

// OutputMetadata describes one forward output of a node.
type OutputMetadata struct {
	Shape  tensor.Shape
	DType  tensor.DataType
	Device tensor.Device
}

// OutputMetadataOf returns the metadata describing t.
func OutputMetadataOf(t *tensor.RawTensor) OutputMetadata {
	return OutputMetadata{Shape: t.Shape().Clone(), DType: t.DType(), Device: t.Device()}
}

var nextSequenceNr atomic.Uint64

// nodeState is the bookkeeping every node variant embeds: edges, output
// metadata and pre-hooks, behind a lock.
type nodeState struct {
	seq uint64

	mu       sync.Mutex
	next     []Edge
	outputs  []OutputMetadata
	preHooks []PreHook
}

// init assigns the sequence number; variants call it from their constructor.
func (s *nodeState) init(next []Edge) {
	s.seq = nextSequenceNr.Add(1)
	s.next = append([]Edge(nil), next...)
}

// SequenceNr implements Node.
func (s *nodeState) SequenceNr() uint64 {
	return s.seq
}

// NumOutputs implements Node.
func (s *nodeState) NumOutputs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outputs)
}

// AddOutputMetadata implements Node.
func (s *nodeState) AddOutputMetadata(meta OutputMetadata) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs = append(s.outputs, meta)
	return len(s.outputs) - 1
}

// OutputMetadata implements Node.
func (s *nodeState) OutputMetadata() []OutputMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OutputMetadata(nil), s.outputs...)
}

// NextEdges implements Node.
func (s *nodeState) NextEdges() []Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Edge(nil), s.next...)
}

// SetNextEdges implements Node.
func (s *nodeState) SetNextEdges(edges []Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = append([]Edge(nil), edges...)
}

// AddPreHook implements Node.
func (s *nodeState) AddPreHook(hook PreHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preHooks = append(s.preHooks, hook)
}

// PreHooks implements Node.
func (s *nodeState) PreHooks() []PreHook {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PreHook(nil), s.preHooks...)
}

// OpNode is the node of an ordinary differentiable operation.
//
// Example: an element-wise multiply c = a * b records
//
//	node := NewOpNode("MulBackward", CollectNextEdges(a, b)...)
//	SetHistory(c, node)
type OpNode struct {
	nodeState
	name string
}

// NewOpNode creates an operation node with the given next edges.
func NewOpNode(name string, next ...Edge) *OpNode {
	n := &OpNode{name: name}
	n.init(next)
	return n
}

// Name implements Node.
func (n *OpNode) Name() string {
	return n.name
}
