// Package hierarchy answers parent/child questions about a site's networks
// and finds free space within them.
package hierarchy

import (
	"cmp"
	"errors"
	"fmt"
	"net/netip"
	"slices"

	"github.com/martinsuchenak/nsotctl/internal/model"
	"github.com/martinsuchenak/nsotctl/internal/resolver"
)

var (
	ErrNotFound             = errors.New("network not found")
	ErrExhausted            = errors.New("not enough free space")
	ErrInvalidPrefixLength  = errors.New("invalid prefix length")
	ErrForbiddenDelete      = errors.New("cannot delete a network with children without force")
	ErrForbiddenForceDelete = errors.New("cannot force delete a root network whose children are all leaves")
)

const noParent = -1

type node struct {
	net      model.Network
	prefix   netip.Prefix
	parent   int
	children []int
}

// Forest is a flat table of networks. Parents and children are indexes
// into the table, never pointers.
type Forest struct {
	nodes  []node
	byID   map[int]int
	byCIDR map[netip.Prefix]int
	roots  []int
}

// New builds a forest. A ParentID is honoured when that parent is present
// and strictly contains the network; otherwise the parent is the smallest
// present block that strictly contains it.
func New(networks []model.Network) (*Forest, error) {
	f := &Forest{
		nodes:  make([]node, 0, len(networks)),
		byID:   make(map[int]int, len(networks)),
		byCIDR: make(map[netip.Prefix]int, len(networks)),
	}

	for _, n := range networks {
		p, err := n.Prefix()
		if err != nil {
			return nil, err
		}
		if _, dup := f.byCIDR[p]; dup {
			return nil, fmt.Errorf("duplicate network %s", p)
		}
		f.nodes = append(f.nodes, node{net: n, prefix: p, parent: noParent})
		f.byCIDR[p] = len(f.nodes) - 1
	}

	// Sorting first keeps every child list in address order.
	slices.SortFunc(f.nodes, func(a, b node) int { return comparePrefix(a.prefix, b.prefix) })
	for i := range f.nodes {
		f.byCIDR[f.nodes[i].prefix] = i
		if f.nodes[i].net.ID != 0 {
			f.byID[f.nodes[i].net.ID] = i
		}
	}

	for i := range f.nodes {
		parent := f.recordedParent(i)
		if parent == noParent {
			parent = f.containing(f.nodes[i].prefix)
		}
		f.nodes[i].parent = parent
		if parent == noParent {
			f.roots = append(f.roots, i)
		} else {
			f.nodes[parent].children = append(f.nodes[parent].children, i)
		}
	}

	return f, nil
}

func (f *Forest) recordedParent(i int) int {
	n := f.nodes[i]
	if n.net.ParentID == nil {
		return noParent
	}
	p, ok := f.byID[*n.net.ParentID]
	if !ok || !strictlyContains(f.nodes[p].prefix, n.prefix) {
		return noParent
	}
	return p
}

// containing returns the smallest present block strictly containing p.
func (f *Forest) containing(p netip.Prefix) int {
	for bits := p.Bits() - 1; bits >= 0; bits-- {
		candidate := netip.PrefixFrom(p.Addr(), bits).Masked()
		if i, ok := f.byCIDR[candidate]; ok {
			return i
		}
	}
	return noParent
}

// Len returns the number of networks in the forest.
func (f *Forest) Len() int {
	return len(f.nodes)
}

// Networks returns every network in address order.
func (f *Forest) Networks() []model.Network {
	out := make([]model.Network, len(f.nodes))
	for i, n := range f.nodes {
		out[i] = n.net
	}
	return out
}

// Roots returns the networks without a parent.
func (f *Forest) Roots() []model.Network {
	return f.collect(f.roots)
}

// Get returns the network with the given ID.
func (f *Forest) Get(id int) (model.Network, error) {
	i, err := f.index(id)
	if err != nil {
		return model.Network{}, err
	}
	return f.nodes[i].net, nil
}

// Find returns the network addressed by ident, by ID or by CIDR.
func (f *Forest) Find(ident resolver.Identifier) (model.Network, error) {
	i, err := f.indexOf(ident)
	if err != nil {
		return model.Network{}, err
	}
	return f.nodes[i].net, nil
}

func (f *Forest) index(id int) (int, error) {
	i, ok := f.byID[id]
	if !ok {
		return 0, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return i, nil
}

func (f *Forest) indexOf(ident resolver.Identifier) (int, error) {
	if ident.Kind == resolver.ByID {
		return f.index(ident.ID)
	}
	p, err := resolver.ParseCIDR(ident.Key)
	if err != nil {
		return 0, err
	}
	i, ok := f.byCIDR[p]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return i, nil
}

func (f *Forest) collect(idx []int) []model.Network {
	out := make([]model.Network, 0, len(idx))
	for _, i := range idx {
		out = append(out, f.nodes[i].net)
	}
	return out
}

func strictlyContains(outer, inner netip.Prefix) bool {
	return outer.Bits() < inner.Bits() && outer.Contains(inner.Addr())
}

func comparePrefix(a, b netip.Prefix) int {
	if c := a.Addr().Compare(b.Addr()); c != 0 {
		return c
	}
	return cmp.Compare(a.Bits(), b.Bits())
}
