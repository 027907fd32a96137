package hierarchy

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/martinsuchenak/nsotctl/internal/model"
)

var ErrInterfaceNotFound = errors.New("interface not found")

// InterfaceRelationships lists the views InterfaceForest.Navigate accepts.
var InterfaceRelationships = []Relationship{
	RelParent, RelAncestors, RelChildren, RelDescendants, RelRoot, RelSiblings,
}

type ifaceNode struct {
	iface    model.Interface
	parent   int
	children []int
}

// InterfaceForest is the parent/child tree of interfaces. A parent must be
// on the same device as its child; a ParentID pointing elsewhere, at a
// missing interface or into a cycle is ignored and the interface is a root.
type InterfaceForest struct {
	nodes []ifaceNode
	byID  map[int]int
}

// NewInterfaceForest builds the forest. Interfaces of several devices may
// be mixed; each device gets its own trees.
func NewInterfaceForest(ifaces []model.Interface) *InterfaceForest {
	f := &InterfaceForest{
		nodes: make([]ifaceNode, 0, len(ifaces)),
		byID:  make(map[int]int, len(ifaces)),
	}

	sorted := slices.Clone(ifaces)
	slices.SortFunc(sorted, func(a, b model.Interface) int {
		return cmp.Or(cmp.Compare(a.Device, b.Device), cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	for _, iface := range sorted {
		if _, dup := f.byID[iface.ID]; dup {
			continue
		}
		f.nodes = append(f.nodes, ifaceNode{iface: iface, parent: noParent})
		f.byID[iface.ID] = len(f.nodes) - 1
	}

	for i := range f.nodes {
		n := &f.nodes[i]
		if n.iface.ParentID == nil {
			continue
		}
		p, ok := f.byID[*n.iface.ParentID]
		if !ok || p == i || f.nodes[p].iface.Device != n.iface.Device {
			continue
		}
		n.parent = p
	}

	// Break cycles by cutting the link that closes them.
	for i := range f.nodes {
		seen := map[int]bool{i: true}
		for cur := i; f.nodes[cur].parent != noParent; cur = f.nodes[cur].parent {
			p := f.nodes[cur].parent
			if seen[p] {
				f.nodes[cur].parent = noParent
				break
			}
			seen[p] = true
		}
	}

	for i := range f.nodes {
		if p := f.nodes[i].parent; p != noParent {
			f.nodes[p].children = append(f.nodes[p].children, i)
		}
	}
	return f
}

func (f *InterfaceForest) index(id int) (int, error) {
	i, ok := f.byID[id]
	if !ok {
		return 0, fmt.Errorf("%w: id %d", ErrInterfaceNotFound, id)
	}
	return i, nil
}

func (f *InterfaceForest) collect(idx []int) []model.Interface {
	out := make([]model.Interface, len(idx))
	for i, n := range idx {
		out[i] = f.nodes[n].iface
	}
	return out
}

// Navigate returns the interfaces related to id. Ancestors are root first
// unless p.Ascending; siblings leave id out unless p.IncludeSelf.
func (f *InterfaceForest) Navigate(rel Relationship, id int, p Params) ([]model.Interface, error) {
	i, err := f.index(id)
	if err != nil {
		return nil, err
	}

	switch rel {
	case RelParent:
		if parent := f.nodes[i].parent; parent != noParent {
			return f.collect([]int{parent}), nil
		}
		return nil, nil

	case RelAncestors:
		var chain []int
		for a := f.nodes[i].parent; a != noParent; a = f.nodes[a].parent {
			chain = append(chain, a)
		}
		if !p.Ascending {
			slices.Reverse(chain)
		}
		return f.collect(chain), nil

	case RelChildren:
		return f.collect(f.nodes[i].children), nil

	case RelDescendants:
		var out []int
		stack := slices.Clone(f.nodes[i].children)
		slices.Reverse(stack)
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			out = append(out, n)
			kids := slices.Clone(f.nodes[n].children)
			slices.Reverse(kids)
			stack = append(stack, kids...)
		}
		return f.collect(out), nil

	case RelRoot:
		r := i
		for f.nodes[r].parent != noParent {
			r = f.nodes[r].parent
		}
		return f.collect([]int{r}), nil

	case RelSiblings:
		var peers []int
		if parent := f.nodes[i].parent; parent != noParent {
			peers = f.nodes[parent].children
		} else {
			for j, n := range f.nodes {
				if n.parent == noParent && n.iface.Device == f.nodes[i].iface.Device {
					peers = append(peers, j)
				}
			}
		}
		out := make([]int, 0, len(peers))
		for _, j := range peers {
			if j != i || p.IncludeSelf {
				out = append(out, j)
			}
		}
		return f.collect(out), nil
	}

	return nil, fmt.Errorf("relationship %q does not apply to interfaces", rel)
}
