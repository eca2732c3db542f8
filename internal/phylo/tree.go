// Package phylo computes lane similarity from band presence and builds
// similarity trees over the lanes.
package phylo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoTaxa is returned when there is nothing to compare.
var ErrNoTaxa = errors.New("no lanes to compare")

// Tree is a rooted binary tree stored as parallel arrays. Nodes 0..Leaves-1
// are the leaves in input order; each merge appends one internal node.
// Parent[i] is -1 for a root. When more than one root remains, the roots are
// the children of an implicit top node.
type Tree struct {
	Parent []int     `json:"parent"`
	Length []float64 `json:"length"` // Branch length from node to its parent
	Leaves int       `json:"leaves"`
}

func newTree(leaves int) *Tree {
	t := &Tree{
		Parent: make([]int, leaves),
		Length: make([]float64, leaves),
		Leaves: leaves,
	}
	for i := range t.Parent {
		t.Parent[i] = -1
	}
	return t
}

// join appends a parent node for a and b and returns its index.
func (t *Tree) join(a, b int) int {
	node := len(t.Parent)
	t.Parent = append(t.Parent, -1)
	t.Length = append(t.Length, 0)
	t.Parent[a] = node
	t.Parent[b] = node
	return node
}

// Nodes returns the total number of nodes.
func (t *Tree) Nodes() int {
	return len(t.Parent)
}

// IsLeaf reports whether node is a leaf.
func (t *Tree) IsLeaf(node int) bool {
	return node >= 0 && node < t.Leaves
}

// Children returns the children of node in index order. Children(-1)
// returns the roots.
func (t *Tree) Children(node int) []int {
	var children []int
	for i, p := range t.Parent {
		if p == node {
			children = append(children, i)
		}
	}
	return children
}

// Roots returns the nodes without a parent.
func (t *Tree) Roots() []int {
	return t.Children(-1)
}

// Newick renders the tree in Newick format. labels name the leaves; when
// nil, leaves are named by index. Labels with characters that Newick
// reserves are single-quoted.
func (t *Tree) Newick(labels []string) (string, error) {
	if labels != nil && len(labels) != t.Leaves {
		return "", fmt.Errorf("have %d labels for %d leaves", len(labels), t.Leaves)
	}

	var b strings.Builder
	roots := t.Roots()
	if len(roots) == 1 {
		t.writeNewick(&b, roots[0], labels, false)
	} else {
		b.WriteByte('(')
		for k, r := range roots {
			if k > 0 {
				b.WriteByte(',')
			}
			t.writeNewick(&b, r, labels, true)
		}
		b.WriteByte(')')
	}
	b.WriteByte(';')
	return b.String(), nil
}

func (t *Tree) writeNewick(b *strings.Builder, node int, labels []string, withLength bool) {
	if t.IsLeaf(node) {
		if labels != nil {
			b.WriteString(quoteLabel(labels[node]))
		} else {
			b.WriteString(strconv.Itoa(node))
		}
	} else {
		b.WriteByte('(')
		for k, c := range t.Children(node) {
			if k > 0 {
				b.WriteByte(',')
			}
			t.writeNewick(b, c, labels, true)
		}
		b.WriteByte(')')
	}
	if withLength {
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(t.Length[node], 'f', -1, 64))
	}
}

func quoteLabel(s string) string {
	if !strings.ContainsAny(s, " \t()[]':;,") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// LaneLabels names lanes by their one-based index, padded to two digits.
// A non-empty names[l] replaces the default name of lane l.
func LaneLabels(lanes []int, names ...string) []string {
	labels := make([]string, len(lanes))
	for i, l := range lanes {
		if l >= 0 && l < len(names) && strings.TrimSpace(names[l]) != "" {
			labels[i] = strings.TrimSpace(names[l])
			continue
		}
		labels[i] = fmt.Sprintf("Lane %2d", l+1)
	}
	return labels
}
