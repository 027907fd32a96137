package hierarchy

import (
	"errors"
	"net/netip"
	"slices"
	"testing"

	"github.com/martinsuchenak/nsotctl/internal/model"
	"github.com/martinsuchenak/nsotctl/internal/resolver"
	"pgregory.net/rapid"
)

func network(id int, cidr, state string) model.Network {
	p := netip.MustParsePrefix(cidr)
	version := "4"
	if p.Addr().Is6() {
		version = "6"
	}
	return model.Network{
		ID:             id,
		SiteID:         1,
		NetworkAddress: p.Addr().String(),
		PrefixLength:   p.Bits(),
		IPVersion:      version,
		IsIP:           p.IsSingleIP(),
		State:          state,
	}
}

// setupTestForest builds:
//
//	1 10.0.0.0/8
//	  4 10.20.0.0/16
//	    2 10.20.30.0/24
//	      3 10.20.30.2/32 (assigned)
//	    5 10.20.31.0/24
//	6 192.168.0.0/16
//	  7 192.168.1.0/24
//	  8 192.168.2.0/24
//	9 2001:db8::/32
func setupTestForest(t *testing.T) *Forest {
	t.Helper()
	f, err := New([]model.Network{
		network(9, "2001:db8::/32", model.StateAllocated),
		network(3, "10.20.30.2/32", model.StateAssigned),
		network(1, "10.0.0.0/8", model.StateAllocated),
		network(2, "10.20.30.0/24", model.StateAllocated),
		network(4, "10.20.0.0/16", model.StateAllocated),
		network(5, "10.20.31.0/24", model.StateAllocated),
		network(6, "192.168.0.0/16", model.StateAllocated),
		network(7, "192.168.1.0/24", model.StateAllocated),
		network(8, "192.168.2.0/24", model.StateAllocated),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f
}

func ids(networks []model.Network) []int {
	out := make([]int, len(networks))
	for i, n := range networks {
		out[i] = n.ID
	}
	return out
}

func cidrs(networks []model.Network) []string {
	out := make([]string, len(networks))
	for i, n := range networks {
		out[i] = n.CIDR()
	}
	return out
}

func TestForest_Relationships(t *testing.T) {
	f := setupTestForest(t)

	tests := []struct {
		name string
		get  func() ([]model.Network, error)
		want []int
	}{
		{"ancestors root first", func() ([]model.Network, error) { return f.Ancestors(3) }, []int{1, 4, 2}},
		{"ancestors of root", func() ([]model.Network, error) { return f.Ancestors(1) }, []int{}},
		{"children", func() ([]model.Network, error) { return f.Children(4) }, []int{2, 5}},
		{"children of leaf", func() ([]model.Network, error) { return f.Children(3) }, []int{}},
		{"descendants", func() ([]model.Network, error) { return f.Descendants(1) }, []int{4, 2, 3, 5}},
		{"siblings", func() ([]model.Network, error) { return f.Siblings(2, false) }, []int{5}},
		{"siblings with self", func() ([]model.Network, error) { return f.Siblings(2, true) }, []int{2, 5}},
		{"root siblings", func() ([]model.Network, error) { return f.Siblings(1, false) }, []int{6, 9}},
		{"direct supernets", func() ([]model.Network, error) { return f.Supernets(2, true) }, []int{4}},
		{"direct subnets", func() ([]model.Network, error) { return f.Subnets(1, true) }, []int{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.get()
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if !slices.Equal(ids(got), tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, ids(got))
			}
		})
	}
}

func TestForest_ParentAndRoot(t *testing.T) {
	f := setupTestForest(t)

	parent, ok, err := f.Parent(2)
	if err != nil || !ok || parent.ID != 4 {
		t.Errorf("Expected parent 4, got %d (ok=%v, err=%v)", parent.ID, ok, err)
	}
	if _, ok, err := f.Parent(1); ok || err != nil {
		t.Errorf("Expected root to have no parent, got ok=%v err=%v", ok, err)
	}

	root, err := f.Root(3)
	if err != nil || root.ID != 1 {
		t.Errorf("Expected root 1, got %d (err=%v)", root.ID, err)
	}
	root, err = f.Root(6)
	if err != nil || root.ID != 6 {
		t.Errorf("Expected a root to be its own root, got %d (err=%v)", root.ID, err)
	}
}

// supernets and subnets are documented both as one-level and as recursive
// views; they are implemented as the recursive form.
func TestForest_SupernetsSubnetsMatchAncestorsDescendants(t *testing.T) {
	f := setupTestForest(t)
	for _, n := range f.Networks() {
		anc, _ := f.Ancestors(n.ID)
		sup, _ := f.Supernets(n.ID, false)
		if !slices.Equal(ids(anc), ids(sup)) {
			t.Errorf("%s: supernets %v != ancestors %v", n.CIDR(), ids(sup), ids(anc))
		}
		desc, _ := f.Descendants(n.ID)
		sub, _ := f.Subnets(n.ID, false)
		if !slices.Equal(ids(desc), ids(sub)) {
			t.Errorf("%s: subnets %v != descendants %v", n.CIDR(), ids(sub), ids(desc))
		}
	}
}

func TestForest_UnknownID(t *testing.T) {
	f := setupTestForest(t)
	if _, err := f.Children(42); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := f.NextAddress(42, 1, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestForest_RecordedParent(t *testing.T) {
	root := 1
	child := network(2, "10.1.1.0/24", model.StateAllocated)
	child.ParentID = &root

	f, err := New([]model.Network{
		network(1, "10.0.0.0/8", model.StateAllocated),
		network(3, "10.1.0.0/16", model.StateAllocated),
		child,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	parent, _, _ := f.Parent(2)
	if parent.ID != 1 {
		t.Errorf("Expected recorded parent 1, got %d", parent.ID)
	}

	bogus := 2
	wrong := network(4, "172.16.0.0/12", model.StateAllocated)
	wrong.ParentID = &bogus
	f, err = New([]model.Network{network(2, "10.1.1.0/24", model.StateAllocated), wrong})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok, _ := f.Parent(4); ok {
		t.Error("Expected a parent that does not contain the network to be ignored")
	}
}

func TestForest_Duplicate(t *testing.T) {
	_, err := New([]model.Network{
		network(1, "10.0.0.0/8", model.StateAllocated),
		network(2, "10.0.0.0/8", model.StateAllocated),
	})
	if err == nil {
		t.Error("Expected duplicate CIDR to be rejected")
	}
}

func TestForest_ClosestParent(t *testing.T) {
	f := setupTestForest(t)

	tests := []struct {
		cidr    string
		want    string
		wantErr error
	}{
		{"10.101.103.100/30", "10.0.0.0/8", nil},
		{"10.20.30.0/24", "10.20.0.0/16", nil},
		{"10.20.30.77/32", "10.20.30.0/24", nil},
		{"192.168.2.128/25", "192.168.2.0/24", nil},
		{"2001:db8:1::/48", "2001:db8::/32", nil},
		{"172.16.0.0/12", "", ErrNotFound},
		{"10.0.0.0/8", "", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.cidr, func(t *testing.T) {
			got, err := f.ClosestParent(netip.MustParsePrefix(tt.cidr))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ClosestParent() error = %v", err)
			}
			if got.CIDR() != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got.CIDR())
			}
		})
	}
}

func TestForest_NextAddress(t *testing.T) {
	f := setupTestForest(t)

	got, err := f.NextAddress(2, 3, false)
	if err != nil {
		t.Fatalf("NextAddress() error = %v", err)
	}
	want := []netip.Prefix{
		netip.MustParsePrefix("10.20.30.1/32"),
		netip.MustParsePrefix("10.20.30.3/32"),
		netip.MustParsePrefix("10.20.30.4/32"),
	}
	if !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestForest_NextAddressStates(t *testing.T) {
	f, err := New([]model.Network{
		network(1, "10.9.9.0/29", model.StateAllocated),
		network(2, "10.9.9.1/32", model.StateOrphaned),
		network(3, "10.9.9.2/32", model.StateReserved),
		network(4, "10.9.9.4/31", model.StateAllocated),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := f.NextAddress(1, 4, false)
	if err != nil {
		t.Fatalf("NextAddress() error = %v", err)
	}
	want := []string{"10.9.9.1/32", "10.9.9.3/32", "10.9.9.4/32", "10.9.9.5/32"}
	if gotS := prefixStrings(got); !slices.Equal(gotS, want) {
		t.Errorf("Expected %v, got %v", want, gotS)
	}

	got, err = f.NextAddress(1, 3, true)
	if err != nil {
		t.Fatalf("NextAddress(strict) error = %v", err)
	}
	want = []string{"10.9.9.1/32", "10.9.9.3/32", "10.9.9.6/32"}
	if gotS := prefixStrings(got); !slices.Equal(gotS, want) {
		t.Errorf("Expected %v, got %v", want, gotS)
	}

	if _, err := f.NextAddress(1, 4, true); !errors.Is(err, ErrExhausted) {
		t.Errorf("Expected ErrExhausted, got %v", err)
	}
}

func TestForest_NextAddressIPv6(t *testing.T) {
	f, err := New([]model.Network{network(1, "2001:db8::/126", model.StateAllocated)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got, err := f.NextAddress(1, 3, false)
	if err != nil {
		t.Fatalf("NextAddress() error = %v", err)
	}
	want := []string{"2001:db8::1/128", "2001:db8::2/128", "2001:db8::3/128"}
	if gotS := prefixStrings(got); !slices.Equal(gotS, want) {
		t.Errorf("Expected %v, got %v", want, gotS)
	}
}

func TestForest_NextNetwork(t *testing.T) {
	f := setupTestForest(t)

	tests := []struct {
		name    string
		id      int
		length  int
		num     int
		want    []string
		wantErr error
	}{
		{"first free /24s", 4, 24, 3, []string{"10.20.0.0/24", "10.20.1.0/24", "10.20.2.0/24"}, nil},
		{"skips allocated", 4, 23, 16, nil, nil},
		{"around an assigned host", 2, 31, 2, []string{"10.20.30.0/31", "10.20.30.4/31"}, nil},
		{"exhausted", 4, 17, 2, nil, ErrExhausted},
		{"same length", 2, 24, 1, nil, ErrInvalidPrefixLength},
		{"shorter", 2, 16, 1, nil, ErrInvalidPrefixLength},
		{"too long", 2, 33, 1, nil, ErrInvalidPrefixLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.NextNetwork(tt.id, tt.length, tt.num, false)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NextNetwork() error = %v", err)
			}
			if tt.want != nil && !slices.Equal(prefixStrings(got), tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, prefixStrings(got))
			}
			for _, p := range got {
				if p.Bits() != tt.length {
					t.Errorf("Expected /%d, got %s", tt.length, p)
				}
				if p.Overlaps(netip.MustParsePrefix("10.20.30.0/24")) && tt.id == 4 {
					t.Errorf("Expected %s to avoid 10.20.30.0/24", p)
				}
			}
		})
	}
}

func TestForest_CheckDelete(t *testing.T) {
	f := setupTestForest(t)

	tests := []struct {
		name    string
		id      int
		force   bool
		wantErr error
	}{
		{"leaf", 3, false, nil},
		{"children without force", 4, false, ErrForbiddenDelete},
		{"children with force and parent", 4, true, nil},
		{"root with non-leaf child", 1, true, nil},
		{"root with leaf children", 6, true, ErrForbiddenForceDelete},
		{"root with leaf children without force", 6, false, ErrForbiddenDelete},
		{"childless root", 9, true, nil},
		{"unknown", 99, true, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.CheckDelete(tt.id, tt.force)
			if tt.wantErr == nil && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestForest_Navigate(t *testing.T) {
	f := setupTestForest(t)
	byCIDR, _ := resolver.Resolve(model.NetworkType, "10.20.30.2/32", 1)
	byID, _ := resolver.Resolve(model.NetworkType, "3", 1)

	for _, target := range []resolver.Identifier{byCIDR, byID} {
		got, err := f.Navigate(RelAncestors, target, Params{Ascending: true})
		if err != nil {
			t.Fatalf("Navigate() error = %v", err)
		}
		if !slices.Equal(ids(got), []int{2, 4, 1}) {
			t.Errorf("Expected ascending ancestors [2 4 1], got %v", ids(got))
		}
	}

	missing, _ := resolver.Resolve(model.NetworkType, "10.101.103.100/30", 1)
	if _, err := f.Navigate(RelChildren, missing, Params{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	got, err := f.Navigate(RelClosestParent, missing, Params{})
	if err != nil {
		t.Fatalf("Navigate(closest_parent) error = %v", err)
	}
	if !slices.Equal(cidrs(got), []string{"10.0.0.0/8"}) {
		t.Errorf("Expected [10.0.0.0/8], got %v", cidrs(got))
	}

	block, _ := resolver.Resolve(model.NetworkType, "10.20.30.0/24", 1)
	got, err = f.Navigate(RelNextAddress, block, Params{Num: 2})
	if err != nil {
		t.Fatalf("Navigate(next_address) error = %v", err)
	}
	if !slices.Equal(cidrs(got), []string{"10.20.30.1/32", "10.20.30.3/32"}) {
		t.Errorf("Unexpected candidates %v", cidrs(got))
	}
	if !got[0].IsIP || got[0].ID != 0 || *got[0].ParentID != 2 {
		t.Errorf("Expected unsaved host candidate under 2, got %+v", got[0])
	}

	got, err = f.Navigate(RelParent, resolver.Identifier{Type: model.NetworkType, Kind: resolver.ByID, ID: 1}, Params{})
	if err != nil || len(got) != 0 {
		t.Errorf("Expected no parent for a root, got %v (err=%v)", cidrs(got), err)
	}
}

func TestParseRelationship(t *testing.T) {
	tests := map[string]Relationship{
		"descendents":    RelDescendants,
		"descendants":    RelDescendants,
		"closest-parent": RelClosestParent,
		"Next_Network":   RelNextNetwork,
	}
	for in, want := range tests {
		got, err := ParseRelationship(in)
		if err != nil || got != want {
			t.Errorf("ParseRelationship(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseRelationship("cousins"); err == nil {
		t.Error("Expected unknown relationship to fail")
	}
}

func TestForest_Invariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seen := map[netip.Prefix]bool{}
		var networks []model.Network
		count := rapid.IntRange(1, 40).Draw(t, "count")
		for i := 0; i < count; i++ {
			b := rapid.SliceOfN(rapid.Byte(), 3, 3).Draw(t, "addr")
			bits := rapid.IntRange(8, 32).Draw(t, "bits")
			p := netip.PrefixFrom(netip.AddrFrom4([4]byte{10, b[0], b[1], b[2]}), bits).Masked()
			if seen[p] {
				continue
			}
			seen[p] = true
			state := rapid.SampledFrom([]string{model.StateAllocated, model.StateAssigned, model.StateOrphaned, model.StateReserved}).Draw(t, "state")
			networks = append(networks, network(len(networks)+1, p.String(), state))
		}

		f, err := New(networks)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		total := 0
		for _, r := range f.Roots() {
			desc, _ := f.Descendants(r.ID)
			total += 1 + len(desc)
		}
		if total != f.Len() {
			t.Fatalf("Expected roots and descendants to cover %d networks, got %d", f.Len(), total)
		}

		for _, n := range f.Networks() {
			p, _ := n.Prefix()
			anc, _ := f.Ancestors(n.ID)
			for _, a := range anc {
				ap, _ := a.Prefix()
				if !strictlyContains(ap, p) {
					t.Fatalf("%s is not contained by ancestor %s", p, ap)
				}
			}
			if len(anc) > 0 {
				closest, err := f.ClosestParent(p)
				if err != nil || closest.ID != anc[len(anc)-1].ID {
					t.Fatalf("%s: closest parent %s != parent %s", p, closest.CIDR(), anc[len(anc)-1].CIDR())
				}
			}
		}

		target := f.Roots()[0]
		free, err := f.NextAddress(target.ID, 3, false)
		if err != nil {
			return
		}
		block, _ := target.Prefix()
		taken := map[netip.Prefix]bool{}
		desc, _ := f.Descendants(target.ID)
		for _, d := range desc {
			if d.IsIP && inUse(d.State) {
				dp, _ := d.Prefix()
				taken[dp] = true
			}
		}
		for i, a := range free {
			if !block.Contains(a.Addr()) || taken[a] {
				t.Fatalf("%s is not a free address in %s", a, block)
			}
			if i > 0 && free[i-1].Addr().Compare(a.Addr()) >= 0 {
				t.Fatalf("addresses not ascending: %v", free)
			}
		}
	})
}

func prefixStrings(ps []netip.Prefix) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}
