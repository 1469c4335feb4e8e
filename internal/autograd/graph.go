package autograd

import (
	"fmt"
	"strings"
)

// WalkGraph visits every node reachable from root through next edges exactly
// once, breadth first, calling visit with the node and its distance from root.
// Returning false from visit stops the walk.
func WalkGraph(root Node, visit func(n Node, depth int) bool) {
	if root == nil {
		return
	}
	type item struct {
		node  Node
		depth int
	}
	seen := map[Node]bool{root: true}
	queue := []item{{root, 0}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if !visit(it.node, it.depth) {
			return
		}
		for _, e := range it.node.NextEdges() {
			if !e.IsValid() || seen[e.Node] {
				continue
			}
			seen[e.Node] = true
			queue = append(queue, item{e.Node, it.depth + 1})
		}
	}
}

// FormatGraph renders the graph below root as an indented tree. Nodes reached
// a second time are printed once more as a reference without their subtree.
//
// Example output:
//
//	CopySlices#7
//	  AccumulateGrad#3
//	  (fn) MulBackward#6
func FormatGraph(root Node) string {
	if root == nil {
		return "<none>\n"
	}
	var sb strings.Builder
	seen := map[Node]bool{}
	var write func(prefix string, n Node, depth int)
	write = func(prefix string, n Node, depth int) {
		indent := strings.Repeat("  ", depth)
		if seen[n] {
			fmt.Fprintf(&sb, "%s%s%s#%d (see above)\n", indent, prefix, n.Name(), n.SequenceNr())
			return
		}
		seen[n] = true
		fmt.Fprintf(&sb, "%s%s%s#%d\n", indent, prefix, n.Name(), n.SequenceNr())
		for _, e := range n.NextEdges() {
			if e.IsValid() {
				write("", e.Node, depth+1)
			}
		}
		if cs, ok := n.(*CopySlices); ok && cs.Fn != nil {
			write("(fn) ", cs.Fn, depth+1)
		}
	}
	write("", root, 0)
	return sb.String()
}
