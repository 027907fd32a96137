package hierarchy

import (
	"net/netip"
	"slices"

	"github.com/martinsuchenak/nsotctl/internal/model"
)

// Parent returns the immediate containing network. ok is false for roots.
func (f *Forest) Parent(id int) (parent model.Network, ok bool, err error) {
	i, err := f.index(id)
	if err != nil {
		return model.Network{}, false, err
	}
	p := f.nodes[i].parent
	if p == noParent {
		return model.Network{}, false, nil
	}
	return f.nodes[p].net, true, nil
}

// Ancestors returns every containing network, root first.
func (f *Forest) Ancestors(id int) ([]model.Network, error) {
	i, err := f.index(id)
	if err != nil {
		return nil, err
	}
	var chain []int
	for p := f.nodes[i].parent; p != noParent; p = f.nodes[p].parent {
		chain = append(chain, p)
	}
	slices.Reverse(chain)
	return f.collect(chain), nil
}

// Children returns the networks directly below id.
func (f *Forest) Children(id int) ([]model.Network, error) {
	i, err := f.index(id)
	if err != nil {
		return nil, err
	}
	return f.collect(f.nodes[i].children), nil
}

// Descendants returns every network below id in address order.
func (f *Forest) Descendants(id int) ([]model.Network, error) {
	i, err := f.index(id)
	if err != nil {
		return nil, err
	}
	return f.collect(f.descendants(i)), nil
}

// descendants walks depth first in child order, which is address order
// because nested blocks sort directly after their container.
func (f *Forest) descendants(i int) []int {
	var out []int
	stack := slices.Clone(f.nodes[i].children)
	slices.Reverse(stack)
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, top)
		kids := f.nodes[top].children
		for k := len(kids) - 1; k >= 0; k-- {
			stack = append(stack, kids[k])
		}
	}
	return out
}

// Siblings returns the networks sharing id's parent. Roots are siblings of
// each other.
func (f *Forest) Siblings(id int, includeSelf bool) ([]model.Network, error) {
	i, err := f.index(id)
	if err != nil {
		return nil, err
	}
	peers := f.roots
	if p := f.nodes[i].parent; p != noParent {
		peers = f.nodes[p].children
	}
	out := make([]int, 0, len(peers))
	for _, s := range peers {
		if s == i && !includeSelf {
			continue
		}
		out = append(out, s)
	}
	return f.collect(out), nil
}

// Root returns the top-most ancestor. A root network is its own root.
func (f *Forest) Root(id int) (model.Network, error) {
	i, err := f.index(id)
	if err != nil {
		return model.Network{}, err
	}
	for f.nodes[i].parent != noParent {
		i = f.nodes[i].parent
	}
	return f.nodes[i].net, nil
}

// Supernets is Ancestors, or just the parent when direct is set.
func (f *Forest) Supernets(id int, direct bool) ([]model.Network, error) {
	if !direct {
		return f.Ancestors(id)
	}
	parent, ok, err := f.Parent(id)
	if err != nil || !ok {
		return nil, err
	}
	return []model.Network{parent}, nil
}

// Subnets is Descendants, or just the children when direct is set.
func (f *Forest) Subnets(id int, direct bool) ([]model.Network, error) {
	if direct {
		return f.Children(id)
	}
	return f.Descendants(id)
}

// ClosestParent returns the smallest network that strictly contains cidr.
// cidr itself need not exist.
func (f *Forest) ClosestParent(cidr netip.Prefix) (model.Network, error) {
	i := f.containing(cidr.Masked())
	if i == noParent {
		return model.Network{}, errNotFoundFor(cidr)
	}
	return f.nodes[i].net, nil
}

// Reserved returns every network in the reserved state.
func (f *Forest) Reserved() []model.Network {
	var out []int
	for i, n := range f.nodes {
		if n.net.State == model.StateReserved {
			out = append(out, i)
		}
	}
	return f.collect(out)
}
