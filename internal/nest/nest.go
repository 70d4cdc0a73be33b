// Package nest serializes stacked flat clusterings into a nested grouping
// tree suitable for hierarchy visualizations.
package nest

import (
	"encoding/json"
	"fmt"

	"github.com/proteomica/comap/internal/models"
)

// Node is one tree node. Item leaves carry a value; internal nodes carry
// children.
type Node struct {
	Name     string
	Value    int
	Children []*Node
}

// Leaf reports whether the node is an item leaf.
func (n *Node) Leaf() bool {
	return len(n.Children) == 0
}

// LeafCount returns the number of item leaves at or below the node.
func (n *Node) LeafCount() int {
	if n.Leaf() {
		return 1
	}
	total := 0
	for _, c := range n.Children {
		total += c.LeafCount()
	}
	return total
}

// MarshalJSON writes leaves as {"name", "value"} objects and internal nodes
// as {"name", "children"} objects.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n.Leaf() {
		return json.Marshal(struct {
			Name  string `json:"name"`
			Value int    `json:"value"`
		}{n.Name, n.Value})
	}
	return json.Marshal(struct {
		Name     string  `json:"name"`
		Children []*Node `json:"children"`
	}{n.Name, n.Children})
}

// Build nests the given levels into a tree rooted at rootName. Levels are
// applied coarsest first: the first level splits the root, each following
// level splits within the groups above it, and the items themselves form the
// leaves with unit value. Every level must carry one label per item. Groups
// appear in first-occurrence order of their labels, so the tree is
// deterministic for a given input.
func Build(rootName string, items []string, levels []models.Level) (*Node, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no items to nest")
	}
	for i, lvl := range levels {
		if len(lvl.Labels) != len(items) {
			return nil, fmt.Errorf("level %d (%s) has %d labels for %d items", i, lvl.Name, len(lvl.Labels), len(items))
		}
	}

	indices := make([]int, len(items))
	for i := range indices {
		indices[i] = i
	}
	return &Node{
		Name:     rootName,
		Children: group(items, levels, indices, 0),
	}, nil
}

func group(items []string, levels []models.Level, indices []int, depth int) []*Node {
	if depth == len(levels) {
		leaves := make([]*Node, len(indices))
		for i, idx := range indices {
			leaves[i] = &Node{Name: items[idx], Value: 1}
		}
		return leaves
	}

	lvl := levels[depth]
	var order []int
	groups := make(map[int][]int)
	for _, idx := range indices {
		label := lvl.Labels[idx]
		if _, ok := groups[label]; !ok {
			order = append(order, label)
		}
		groups[label] = append(groups[label], idx)
	}

	name := lvl.Name
	if name == "" {
		name = fmt.Sprintf("level%d", depth+1)
	}
	nodes := make([]*Node, 0, len(order))
	for _, label := range order {
		nodes = append(nodes, &Node{
			Name:     fmt.Sprintf("%s-%d", name, label),
			Children: group(items, levels, groups[label], depth+1),
		})
	}
	return nodes
}
