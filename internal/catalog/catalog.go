package catalog

import "strings"

// Node is an entry in a recursively nested catalog tree. A node with
// children is a category, a node without children is a selectable leaf.
type Node struct {
	Name     string `json:"name"`
	Children []Node `json:"children,omitempty"`
}

// IsLeaf reports whether the node has no variants.
func (n Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Section is a named grouping of top-level catalog entries.
type Section struct {
	Title string `json:"title"`
	Items []Node `json:"items"`
}

// Filter returns the sections whose trees survive a case-insensitive
// substring search. A node is retained if its own name matches or any
// descendant survives; a node kept only for its descendants carries the
// filtered subset, not the original children. Sections left with no
// items are dropped. The input is never mutated; an empty term returns
// the input unchanged.
func Filter(sections []Section, term string) []Section {
	if strings.TrimSpace(term) == "" {
		return sections
	}

	needle := strings.ToLower(term)

	var out []Section
	for _, section := range sections {
		items := filterNodes(section.Items, needle)
		if len(items) == 0 {
			continue
		}
		out = append(out, Section{Title: section.Title, Items: items})
	}
	return out
}

func filterNodes(nodes []Node, needle string) []Node {
	var out []Node
	for _, node := range nodes {
		matches := strings.Contains(strings.ToLower(node.Name), needle)
		children := filterNodes(node.Children, needle)

		if !matches && len(children) == 0 {
			continue
		}
		out = append(out, Node{Name: node.Name, Children: children})
	}
	return out
}
