package parser

import (
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/javalens/internal/source"
)

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	return string(src[node.StartByte():node.EndByte()])
}

// nodeRange converts a node span to a 1-based inclusive range. Columns
// count characters, so they match editor columns on lines with non-ASCII
// text.
func nodeRange(node *sitter.Node, src []byte) source.Range {
	start := node.StartPosition()
	end := node.EndPosition()
	endCol := charColumn(src, node.EndByte(), end.Column)
	if endCol < 1 {
		endCol = 1
	}
	return source.Range{
		Begin: source.Position{Line: int(start.Row) + 1, Column: charColumn(src, node.StartByte(), start.Column) + 1},
		End:   source.Position{Line: int(end.Row) + 1, Column: endCol},
	}
}

// charColumn counts the characters between the start of the line and
// offset. byteCol is the byte column tree-sitter reports for offset.
func charColumn(src []byte, offset, byteCol uint) int {
	if offset > uint(len(src)) || byteCol > offset {
		return int(byteCol)
	}
	return utf8.RuneCount(src[offset-byteCol : offset])
}

func startLine(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

func endLine(node *sitter.Node) int {
	return int(node.EndPosition().Row) + 1
}

// findChildByType finds the first child node with the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == nodeType {
			return child
		}
	}
	return nil
}

// findChildrenByType finds all child nodes with the given type.
func findChildrenByType(node *sitter.Node, nodeType string) []*sitter.Node {
	var results []*sitter.Node
	if node == nil {
		return results
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == nodeType {
			results = append(results, child)
		}
	}
	return results
}

// firstSyntaxError returns the first ERROR or MISSING node in the tree.
func firstSyntaxError(node *sitter.Node) *sitter.Node {
	if node == nil || !node.HasError() {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if found := firstSyntaxError(node.Child(i)); found != nil {
			return found
		}
	}
	return node
}
