package hierarchy

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"

	"github.com/martinsuchenak/nsotctl/internal/model"
	"github.com/martinsuchenak/nsotctl/internal/resolver"
)

// Relationship names a hierarchy view.
type Relationship string

const (
	RelParent        Relationship = "parent"
	RelAncestors     Relationship = "ancestors"
	RelChildren      Relationship = "children"
	RelDescendants   Relationship = "descendants"
	RelSiblings      Relationship = "siblings"
	RelRoot          Relationship = "root"
	RelSupernets     Relationship = "supernets"
	RelSubnets       Relationship = "subnets"
	RelClosestParent Relationship = "closest_parent"
	RelNextAddress   Relationship = "next_address"
	RelNextNetwork   Relationship = "next_network"
)

// Relationships lists every name Navigate accepts.
var Relationships = []Relationship{
	RelParent, RelAncestors, RelChildren, RelDescendants, RelSiblings, RelRoot,
	RelSupernets, RelSubnets, RelClosestParent, RelNextAddress, RelNextNetwork,
}

// ParseRelationship accepts dashed names and the old "descendents" spelling.
func ParseRelationship(s string) (Relationship, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if name == "descendents" {
		return RelDescendants, nil
	}
	rel := Relationship(name)
	if !slices.Contains(Relationships, rel) {
		return "", fmt.Errorf("unknown relationship %q", s)
	}
	return rel, nil
}

// Params tunes Navigate.
type Params struct {
	IncludeSelf  bool // siblings
	Ascending    bool // ancestors: immediate parent first
	Direct       bool // supernets, subnets: one level only
	PrefixLength int  // next_network
	Num          int  // next_address, next_network
	Strict       bool // next_address, next_network
}

// Navigate returns the networks related to target. closest_parent accepts
// a CIDR absent from the forest; every other view requires target to exist.
// next_address and next_network return unsaved candidates with ID zero.
func (f *Forest) Navigate(rel Relationship, target resolver.Identifier, p Params) ([]model.Network, error) {
	if rel == RelClosestParent {
		prefix, err := f.targetPrefix(target)
		if err != nil {
			return nil, err
		}
		n, err := f.ClosestParent(prefix)
		if err != nil {
			return nil, err
		}
		return []model.Network{n}, nil
	}

	i, err := f.indexOf(target)
	if err != nil {
		return nil, err
	}
	id := f.nodes[i].net.ID

	switch rel {
	case RelParent:
		return f.Supernets(id, true)
	case RelAncestors:
		out, err := f.Ancestors(id)
		if err == nil && p.Ascending {
			slices.Reverse(out)
		}
		return out, err
	case RelChildren:
		return f.Children(id)
	case RelDescendants:
		return f.Descendants(id)
	case RelSiblings:
		return f.Siblings(id, p.IncludeSelf)
	case RelRoot:
		n, err := f.Root(id)
		if err != nil {
			return nil, err
		}
		return []model.Network{n}, nil
	case RelSupernets:
		return f.Supernets(id, p.Direct)
	case RelSubnets:
		return f.Subnets(id, p.Direct)
	case RelNextAddress:
		prefixes, err := f.NextAddress(id, p.Num, p.Strict)
		if err != nil {
			return nil, err
		}
		return candidates(f.nodes[i].net, prefixes), nil
	case RelNextNetwork:
		prefixes, err := f.NextNetwork(id, p.PrefixLength, p.Num, p.Strict)
		if err != nil {
			return nil, err
		}
		return candidates(f.nodes[i].net, prefixes), nil
	}

	return nil, fmt.Errorf("unknown relationship %q", rel)
}

func (f *Forest) targetPrefix(target resolver.Identifier) (netip.Prefix, error) {
	if target.Kind == resolver.ByNaturalKey {
		return resolver.ParseCIDR(target.Key)
	}
	i, err := f.index(target.ID)
	if err != nil {
		return netip.Prefix{}, err
	}
	return f.nodes[i].prefix, nil
}

func candidates(parent model.Network, prefixes []netip.Prefix) []model.Network {
	out := make([]model.Network, len(prefixes))
	for i, p := range prefixes {
		parentID := parent.ID
		version := "4"
		if p.Addr().Is6() {
			version = "6"
		}
		out[i] = model.Network{
			SiteID:         parent.SiteID,
			NetworkAddress: p.Addr().String(),
			PrefixLength:   p.Bits(),
			IPVersion:      version,
			IsIP:           p.IsSingleIP(),
			ParentID:       &parentID,
		}
	}
	return out
}
