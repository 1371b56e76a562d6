// Package node provides the canonical UAST node structure consumed by the
// structural matcher: the input trees handed over by language front ends.
package node

import (
	"strings"
)

// UAST node type constants.
const (
	UASTFile       Type = "File"
	UASTFunction   Type = "Function"
	UASTMethod     Type = "Method"
	UASTClass      Type = "Class"
	UASTStruct     Type = "Struct"
	UASTVariable   Type = "Variable"
	UASTParameter  Type = "Parameter"
	UASTBlock      Type = "Block"
	UASTIf         Type = "If"
	UASTLoop       Type = "Loop"
	UASTReturn     Type = "Return"
	UASTAssignment Type = "Assignment"
	UASTCall       Type = "Call"
	UASTIdentifier Type = "Identifier"
	UASTLiteral    Type = "Literal"
	UASTBinaryOp   Type = "BinaryOp"
	UASTImport     Type = "Import"
	UASTPackage    Type = "Package"
	UASTComment    Type = "Comment"
	UASTField      Type = "Field"
	UASTSynthetic  Type = "Synthetic"
)

// Role represents a syntactic/semantic label for a node.
type Role string

// Type represents a type label for a node.
type Type string

// Positions represents the byte and line/col offsets for a node.
// All fields are 1-based except StartOffset/EndOffset, which are byte offsets.
type Positions struct {
	StartLine   uint `json:"start_line,omitempty"   yaml:"start_line,omitempty"`
	StartCol    uint `json:"start_col,omitempty"    yaml:"start_col,omitempty"`
	StartOffset uint `json:"start_offset,omitempty" yaml:"start_offset,omitempty"`
	EndLine     uint `json:"end_line,omitempty"     yaml:"end_line,omitempty"`
	EndCol      uint `json:"end_col,omitempty"      yaml:"end_col,omitempty"`
	EndOffset   uint `json:"end_offset,omitempty"   yaml:"end_offset,omitempty"`
}

// Node is the canonical UAST node structure.
//
// Fields:
//
//	ID: unique node identifier (optional).
//	Type: node type (e.g., "Function", "Identifier").
//	Token: string value or token for leaf nodes.
//	Roles: semantic/syntactic roles (see Role).
//	Pos: source code position info (optional).
//	Props: additional properties (language-specific).
//	Children: child nodes (ordered).
type Node struct {
	ID       string            `json:"id,omitempty"       yaml:"id,omitempty"`
	Token    string            `json:"token,omitempty"    yaml:"token,omitempty"`
	Type     Type              `json:"type,omitempty"     yaml:"type,omitempty"`
	Roles    []Role            `json:"roles,omitempty"    yaml:"roles,omitempty"`
	Pos      *Positions        `json:"pos,omitempty"      yaml:"pos,omitempty"`
	Props    map[string]string `json:"props,omitempty"    yaml:"props,omitempty"`
	Children []*Node           `json:"children,omitempty" yaml:"children,omitempty"`
}

// NodeBuilder provides a fluent interface for building Node instances.
type NodeBuilder struct {
	node *Node
}

// NewBuilder creates a new NodeBuilder.
func NewBuilder() *NodeBuilder {
	return &NodeBuilder{node: &Node{}}
}

// WithType sets the node type.
func (builder *NodeBuilder) WithType(nodeType Type) *NodeBuilder {
	builder.node.Type = nodeType

	return builder
}

// WithToken sets the node token.
func (builder *NodeBuilder) WithToken(token string) *NodeBuilder {
	builder.node.Token = token

	return builder
}

// WithRoles sets the node roles.
func (builder *NodeBuilder) WithRoles(roles []Role) *NodeBuilder {
	builder.node.Roles = roles

	return builder
}

// WithPosition sets the node position.
func (builder *NodeBuilder) WithPosition(pos *Positions) *NodeBuilder {
	builder.node.Pos = pos

	return builder
}

// WithChildren appends children to the node.
func (builder *NodeBuilder) WithChildren(children ...*Node) *NodeBuilder {
	builder.node.Children = append(builder.node.Children, children...)

	return builder
}

// Build returns the final Node.
func (builder *NodeBuilder) Build() *Node {
	return builder.node
}

// NewNodeWithToken creates a new Node with type and token.
func NewNodeWithToken(nodeType Type, token string) *Node {
	return &Node{Type: nodeType, Token: token}
}

// NewInternal creates a tokenless node with the given children.
func NewInternal(nodeType Type, children ...*Node) *Node {
	return &Node{Type: nodeType, Children: children}
}

// AddChild appends a child node to n.
func (targetNode *Node) AddChild(child *Node) {
	targetNode.Children = append(targetNode.Children, child)
}

// Find returns all nodes in the tree (including root) for which predicate(node) is true.
// Traversal is pre-order. Returns nil if n is nil.
func (targetNode *Node) Find(predicate func(*Node) bool) []*Node {
	if targetNode == nil {
		return nil
	}

	var result []*Node

	stack := []*Node{targetNode}

	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if predicate(curr) {
			result = append(result, curr)
		}

		for idx := len(curr.Children) - 1; idx >= 0; idx-- {
			stack = append(stack, curr.Children[idx])
		}
	}

	return result
}

// postOrderFrame represents a frame in the post-order traversal stack.
type postOrderFrame struct {
	node     *Node
	expanded bool
}

// VisitPostOrder visits all nodes in post-order (children left-to-right, then root).
// The traversal is iterative, so deep trees do not grow the goroutine stack.
func (targetNode *Node) VisitPostOrder(fn func(*Node)) {
	if targetNode == nil {
		return
	}

	stack := []postOrderFrame{{node: targetNode}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if !top.expanded && len(top.node.Children) > 0 {
			top.expanded = true
			children := top.node.Children

			for idx := len(children) - 1; idx >= 0; idx-- {
				stack = append(stack, postOrderFrame{node: children[idx]})
			}

			continue
		}

		fn(top.node)

		stack = stack[:len(stack)-1]
	}
}

// PostOrder returns the nodes of the tree in post-order. The i-th element is
// the node that receives postorder index i in a decompressed view of the tree.
func (targetNode *Node) PostOrder() []*Node {
	var nodes []*Node

	targetNode.VisitPostOrder(func(visited *Node) {
		nodes = append(nodes, visited)
	})

	return nodes
}

// Size returns the number of nodes in the tree rooted at n.
func (targetNode *Node) Size() int {
	count := 0

	targetNode.VisitPostOrder(func(*Node) { count++ })

	return count
}

// HasAnyType checks if the node has any of the specified types.
func (targetNode *Node) HasAnyType(nodeTypes ...Type) bool {
	for _, nodeType := range nodeTypes {
		if targetNode.Type == nodeType {
			return true
		}
	}

	return false
}

// String renders the node as a compact s-expression: (Type "token" children...).
func (targetNode *Node) String() string {
	if targetNode == nil {
		return "()"
	}

	var buf strings.Builder

	writeNode(&buf, targetNode)

	return buf.String()
}

func writeNode(buf *strings.Builder, targetNode *Node) {
	buf.WriteByte('(')
	buf.WriteString(string(targetNode.Type))

	if targetNode.Token != "" {
		buf.WriteString(" \"")
		buf.WriteString(targetNode.Token)
		buf.WriteByte('"')
	}

	for _, child := range targetNode.Children {
		buf.WriteByte(' ')
		writeNode(buf, child)
	}

	buf.WriteByte(')')
}
