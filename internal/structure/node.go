// Package structure defines the canonical tree describing a parsed
// region's shape: arrays, objects, and typed scalar fields.
//
// One tree is built per analysis request, handed read-only to a schema
// generator, and discarded when the request ends. Nothing in this package
// mutates a tree after construction.
package structure

// Node kinds. A node carries either children (array/object) or a declared
// scalar type, never both.
const (
	KindArray  = "array"
	KindObject = "object"
	KindScalar = "scalar"
)

// Node is one element of a structural tree.
//
// Invariants:
//   - Kind==KindScalar ⇒ Type is set and Children is empty.
//   - Kind==KindArray/KindObject ⇒ Type is empty and Children holds the
//     ordered fields (names unique among siblings).
//   - IsArray is true exactly for array nodes; it is kept as a separate
//     flag because result metadata counts arrays without re-checking Kind.
type Node struct {
	Name     string
	Kind     string
	Type     string
	Children []*Node
	IsArray  bool
}

// Scalar builds a leaf field with a declared type.
func Scalar(name, typ string) *Node {
	return &Node{Name: name, Kind: KindScalar, Type: typ}
}

// Object builds an object node over ordered children.
func Object(name string, children ...*Node) *Node {
	return &Node{Name: name, Kind: KindObject, Children: children}
}

// Array builds an array node over ordered children (normally a single
// "item" object for row-shaped data).
func Array(name string, children ...*Node) *Node {
	return &Node{Name: name, Kind: KindArray, Children: children, IsArray: true}
}

// FindChild returns the first child with the given name, or nil.
func (n *Node) FindChild(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Item returns the row-object child of an array root, or nil when the tree
// does not have the array→object shape the flat-file generators expect.
func (n *Node) Item() *Node {
	if n == nil || n.Kind != KindArray || len(n.Children) == 0 {
		return nil
	}
	item := n.Children[0]
	if item.Kind != KindObject {
		return nil
	}
	return item
}

// CountNodes counts every node in the tree, the root included.
func CountNodes(n *Node) int {
	if n == nil {
		return 0
	}
	count := 1
	for _, c := range n.Children {
		count += CountNodes(c)
	}
	return count
}

// CountScalars counts the scalar leaves (the analyzed fields).
func CountScalars(n *Node) int {
	if n == nil {
		return 0
	}
	count := 0
	if n.Kind == KindScalar {
		count = 1
	}
	for _, c := range n.Children {
		count += CountScalars(c)
	}
	return count
}

// CountArrays counts the array nodes.
func CountArrays(n *Node) int {
	if n == nil {
		return 0
	}
	count := 0
	if n.IsArray {
		count = 1
	}
	for _, c := range n.Children {
		count += CountArrays(c)
	}
	return count
}

// ArrayPaths returns the dot-joined path of every array node, root name
// first, in tree order. Used for the detectedArrayPaths result field.
func ArrayPaths(n *Node) []string {
	var paths []string
	collectArrayPaths(n, "", &paths)
	return paths
}

func collectArrayPaths(n *Node, prefix string, out *[]string) {
	if n == nil {
		return
	}
	path := n.Name
	if prefix != "" {
		path = prefix + "." + n.Name
	}
	if n.IsArray {
		*out = append(*out, path)
	}
	for _, c := range n.Children {
		collectArrayPaths(c, path, out)
	}
}
