package hierarchy

import (
	"fmt"
	"net/netip"

	"go4.org/netipx"

	"github.com/martinsuchenak/nsotctl/internal/model"
)

func errNotFoundFor(p netip.Prefix) error {
	return fmt.Errorf("%w: no network contains %s", ErrNotFound, p)
}

func inUse(state string) bool {
	switch state {
	case model.StateAllocated, model.StateAssigned, model.StateReserved:
		return true
	}
	return false
}

// NextAddress returns the first n free host addresses in id, in ascending
// order. Hosts that are allocated, assigned or reserved are taken, as is
// everything inside a reserved subnet. With strict set, everything inside
// any subnet is taken.
func (f *Forest) NextAddress(id, n int, strict bool) ([]netip.Prefix, error) {
	i, err := f.index(id)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		n = 1
	}
	block := f.nodes[i].prefix

	var b netipx.IPSetBuilder
	b.AddPrefix(block)
	if !block.IsSingleIP() && block.Bits() < block.Addr().BitLen()-1 {
		// Network address, and the IPv4 broadcast address.
		b.Remove(block.Addr())
		if block.Addr().Is4() {
			b.Remove(netipx.PrefixLastIP(block))
		}
	}
	for _, d := range f.descendants(i) {
		dn := f.nodes[d]
		switch {
		case dn.net.IsIP || dn.prefix.IsSingleIP():
			if inUse(dn.net.State) {
				b.RemovePrefix(dn.prefix)
			}
		case strict || dn.net.State == model.StateReserved:
			b.RemovePrefix(dn.prefix)
		}
	}

	free, err := b.IPSet()
	if err != nil {
		return nil, fmt.Errorf("computing free addresses in %s: %w", block, err)
	}

	out := make([]netip.Prefix, 0, n)
	for _, r := range free.Ranges() {
		for a := r.From(); ; a = a.Next() {
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
			if len(out) == n {
				return out, nil
			}
			if a == r.To() {
				break
			}
		}
	}

	return nil, fmt.Errorf("%w: %d of %d addresses free in %s", ErrExhausted, len(out), n, block)
}

// NextNetwork returns the first n free blocks of prefixLength inside id, in
// ascending order. A block is taken if it overlaps an allocated, assigned or
// reserved descendant; with strict set, any descendant.
func (f *Forest) NextNetwork(id, prefixLength, n int, strict bool) ([]netip.Prefix, error) {
	i, err := f.index(id)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		n = 1
	}
	block := f.nodes[i].prefix
	if prefixLength <= block.Bits() || prefixLength > block.Addr().BitLen() {
		return nil, fmt.Errorf("%w: /%d is not inside %s", ErrInvalidPrefixLength, prefixLength, block)
	}

	var b netipx.IPSetBuilder
	b.AddPrefix(block)
	for _, d := range f.descendants(i) {
		dn := f.nodes[d]
		if strict || inUse(dn.net.State) {
			b.RemovePrefix(dn.prefix)
		}
	}

	free, err := b.IPSet()
	if err != nil {
		return nil, fmt.Errorf("computing free space in %s: %w", block, err)
	}

	out := make([]netip.Prefix, 0, n)
	for _, r := range free.Ranges() {
		for _, p := range r.Prefixes() {
			if p.Bits() > prefixLength {
				continue
			}
			last := netipx.PrefixLastIP(p)
			for start := p.Addr(); ; {
				candidate := netip.PrefixFrom(start, prefixLength)
				out = append(out, candidate)
				if len(out) == n {
					return out, nil
				}
				end := netipx.PrefixLastIP(candidate)
				if end == last {
					break
				}
				start = end.Next()
			}
		}
	}

	return nil, fmt.Errorf("%w: %d of %d /%d networks free in %s", ErrExhausted, len(out), n, prefixLength, block)
}
