package autograd

import "fmt"

// Edge points at one input of a backward node: the gradient flowing along the
// edge becomes input InputNr of Node. For a tensor, its gradient edge answers
// "who produced me, and which of their outputs am I".
type Edge struct {
	Node    Node
	InputNr int
}

// IsValid reports whether the edge points at a node.
func (e Edge) IsValid() bool {
	return e.Node != nil
}

// String returns e.g. "MulBackward#12:0", or "<none>" for an invalid edge.
func (e Edge) String() string {
	if !e.IsValid() {
		return "<none>"
	}
	return fmt.Sprintf("%s#%d:%d", e.Node.Name(), e.Node.SequenceNr(), e.InputNr)
}
