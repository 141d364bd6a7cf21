package structure

import (
	"flatschema/internal/analysis"
	"flatschema/internal/infer"
)

// MergeSamples unifies the trees built from a main input and its sample
// files into one tree. Field order follows first appearance across the
// input list; scalar types widen through the inference lattice; fields
// missing from some inputs keep the type evidence of the inputs that
// carry them. The result is a fresh tree, inputs are not modified.
//
// An empty list is a MergeError. A single tree is returned as a copy.
func MergeSamples(trees []*Node) (*Node, error) {
	if len(trees) == 0 {
		return nil, analysis.NewError(analysis.MergeError, "", "no structures to merge")
	}
	merged := clone(trees[0])
	for _, t := range trees[1:] {
		merged = mergeNodes(merged, t)
	}
	return merged, nil
}

// mergeNodes unifies b into a copy of a. The merged node keeps a's name
// (callers only merge same-position nodes, sample roots included: the
// root keeps the main input's name).
func mergeNodes(a, b *Node) *Node {
	if b == nil {
		return clone(a)
	}
	if a.Kind == KindScalar && b.Kind == KindScalar {
		return Scalar(a.Name, infer.Merge(a.Type, b.Type))
	}
	if a.Kind != b.Kind {
		// Shape conflict between samples. Collapse to a string scalar,
		// the absorbing type, rather than guessing a container shape.
		return Scalar(a.Name, infer.TypeString)
	}

	out := &Node{Name: a.Name, Kind: a.Kind, IsArray: a.IsArray}
	seen := make(map[string]int, len(a.Children))
	for _, c := range a.Children {
		seen[c.Name] = len(out.Children)
		out.Children = append(out.Children, clone(c))
	}
	for _, c := range b.Children {
		if i, ok := seen[c.Name]; ok {
			out.Children[i] = mergeNodes(out.Children[i], c)
			continue
		}
		seen[c.Name] = len(out.Children)
		out.Children = append(out.Children, clone(c))
	}
	return out
}

func clone(n *Node) *Node {
	if n == nil {
		return nil
	}
	out := &Node{Name: n.Name, Kind: n.Kind, Type: n.Type, IsArray: n.IsArray}
	for _, c := range n.Children {
		out.Children = append(out.Children, clone(c))
	}
	return out
}
