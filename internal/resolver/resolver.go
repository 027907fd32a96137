// Package resolver maps user-supplied identifiers to the numeric IDs or
// natural keys the API accepts for each resource type.
package resolver

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/martinsuchenak/nsotctl/internal/model"
)

var (
	ErrInvalidCIDR  = errors.New("invalid CIDR")
	ErrMalformedKey = errors.New("malformed natural key")
)

// Kind says how an Identifier addresses its resource.
type Kind int

const (
	ByID Kind = iota
	ByNaturalKey
)

func (k Kind) String() string {
	if k == ByID {
		return "id"
	}
	return "natural_key"
}

// Identifier is a resolved reference to one resource. It is built only by
// Resolve and NaturalKey and never modified afterwards.
type Identifier struct {
	Type model.ResourceType
	Kind Kind
	ID   int
	// Key is the canonical natural key when Kind is ByNaturalKey.
	Key  string
	Site int

	// Interface: the owning device and the interface name.
	Device *Identifier
	Name   string

	// Circuit: the two endpoints, A first.
	A, Z *Identifier

	// Attribute: the resource the attribute applies to.
	ResourceName string
}

// String returns the ID or the canonical key.
func (id Identifier) String() string {
	if id.Kind == ByID {
		return strconv.Itoa(id.ID)
	}
	return id.Key
}

// Resolve interprets raw for the given resource type. A purely numeric
// string is always an ID.
func Resolve(rt model.ResourceType, raw string, site int) (Identifier, error) {
	raw = strings.TrimSpace(raw)
	if n, ok := numericID(raw); ok {
		return Identifier{Type: rt, Kind: ByID, ID: n, Site: site}, nil
	}
	return NaturalKey(rt, raw, site)
}

// NaturalKey interprets raw as a natural key even when it is numeric, as
// the type-specific lookup flags (--hostname, --cidr) require.
func NaturalKey(rt model.ResourceType, raw string, site int) (Identifier, error) {
	raw = strings.TrimSpace(raw)

	switch rt {
	case model.DeviceType:
		if raw == "" {
			return Identifier{}, fmt.Errorf("%w: empty hostname", ErrMalformedKey)
		}
		return Identifier{Type: rt, Kind: ByNaturalKey, Key: raw, Site: site}, nil

	case model.NetworkType:
		prefix, err := ParseCIDR(raw)
		if err != nil {
			return Identifier{}, err
		}
		return Identifier{Type: rt, Kind: ByNaturalKey, Key: prefix.String(), Site: site}, nil

	case model.InterfaceType:
		return resolveInterface(raw, site)

	case model.CircuitType:
		return resolveCircuit(raw, site)

	case model.AttributeType:
		resourceName, name, ok := strings.Cut(raw, ":")
		if !ok || resourceName == "" || name == "" || strings.Contains(name, ":") {
			return Identifier{}, fmt.Errorf("%w: attribute key %q must be resource_name:name", ErrMalformedKey, raw)
		}
		return Identifier{
			Type:         rt,
			Kind:         ByNaturalKey,
			Key:          resourceName + ":" + name,
			Site:         site,
			ResourceName: resourceName,
			Name:         name,
		}, nil
	}

	return Identifier{}, fmt.Errorf("%w: natural keys not supported for %s", ErrMalformedKey, rt.Path())
}

// ParseCIDR accepts an IPv4 or IPv6 network or host. Bare addresses become
// /32 or /128 and host bits are masked off.
func ParseCIDR(raw string) (netip.Prefix, error) {
	if raw == "" {
		return netip.Prefix{}, fmt.Errorf("%w: empty", ErrInvalidCIDR)
	}
	if strings.Contains(raw, "/") {
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("%w: %q", ErrInvalidCIDR, raw)
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil || addr.Zone() != "" {
		return netip.Prefix{}, fmt.Errorf("%w: %q", ErrInvalidCIDR, raw)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func resolveInterface(raw string, site int) (Identifier, error) {
	device, name, ok := strings.Cut(raw, ":")
	if !ok {
		return Identifier{}, fmt.Errorf("%w: interface key %q must be device:name", ErrMalformedKey, raw)
	}
	if device == "" || name == "" {
		return Identifier{}, fmt.Errorf("%w: interface key %q has an empty part", ErrMalformedKey, raw)
	}

	dev, err := Resolve(model.DeviceType, device, site)
	if err != nil {
		return Identifier{}, err
	}

	return Identifier{
		Type:   model.InterfaceType,
		Kind:   ByNaturalKey,
		Key:    dev.String() + ":" + name,
		Site:   site,
		Device: &dev,
		Name:   name,
	}, nil
}

// resolveCircuit splits raw at the last "_" before the last ":". Interface
// names may contain "_" (slugified slashes) but the Z hostname may not:
// "a:eth0_foo_bar:eth1" reads as a:eth0_foo and bar:eth1. Use the circuit
// ID or name for such circuits.
func resolveCircuit(raw string, site int) (Identifier, error) {
	lastColon := strings.LastIndex(raw, ":")
	if lastColon < 0 {
		return Identifier{}, fmt.Errorf("%w: circuit key %q must be endpointA_endpointZ", ErrMalformedKey, raw)
	}
	sep := strings.LastIndex(raw[:lastColon], "_")
	if sep < 0 {
		return Identifier{}, fmt.Errorf("%w: circuit key %q must be endpointA_endpointZ", ErrMalformedKey, raw)
	}

	a, err := resolveInterface(raw[:sep], site)
	if err != nil {
		return Identifier{}, fmt.Errorf("endpoint A: %w", err)
	}
	z, err := resolveInterface(raw[sep+1:], site)
	if err != nil {
		return Identifier{}, fmt.Errorf("endpoint Z: %w", err)
	}

	return Identifier{
		Type: model.CircuitType,
		Kind: ByNaturalKey,
		Key:  Slugify(a.Key) + "_" + Slugify(z.Key),
		Site: site,
		A:    &a,
		Z:    &z,
	}, nil
}

func numericID(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
