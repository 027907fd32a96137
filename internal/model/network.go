package model

import (
	"fmt"
	"net/netip"
)

// Network states
const (
	StateAllocated = "allocated"
	StateAssigned  = "assigned"
	StateOrphaned  = "orphaned"
	StateReserved  = "reserved"
)

// Network is a CIDR block or a host address within a site
type Network struct {
	ID             int        `json:"id" yaml:"id"`
	SiteID         int        `json:"site_id" yaml:"site_id"`
	NetworkAddress string     `json:"network_address" yaml:"network_address"`
	PrefixLength   int        `json:"prefix_length" yaml:"prefix_length"`
	IPVersion      string     `json:"ip_version" yaml:"ip_version"`
	IsIP           bool       `json:"is_ip" yaml:"is_ip"`
	ParentID       *int       `json:"parent_id" yaml:"parent_id"`
	State          string     `json:"state" yaml:"state"`
	Attributes     Attributes `json:"attributes" yaml:"attributes"`
}

// CIDR returns the block in address/prefix notation.
func (n Network) CIDR() string {
	return fmt.Sprintf("%s/%d", n.NetworkAddress, n.PrefixLength)
}

// Prefix parses the block. The result is masked.
func (n Network) Prefix() (netip.Prefix, error) {
	p, err := netip.ParsePrefix(n.CIDR())
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("network %d: %w", n.ID, err)
	}
	return p.Masked(), nil
}

// HasParent reports whether the server recorded a parent.
func (n Network) HasParent() bool {
	return n.ParentID != nil
}

// NetworkFilter holds filter criteria for listing networks
type NetworkFilter struct {
	IncludeIPs      bool
	IncludeNetworks bool
	IPVersion       string
	RootOnly        bool
	State           string
	Limit           int
	Offset          int
}

// Params renders the filter as query parameters understood by the API.
func (f NetworkFilter) Params() map[string]string {
	p := map[string]string{
		"include_ips":      boolParam(f.IncludeIPs),
		"include_networks": boolParam(f.IncludeNetworks),
	}
	if f.IPVersion != "" {
		p["ip_version"] = f.IPVersion
	}
	if f.RootOnly {
		p["root_only"] = "True"
	}
	if f.State != "" {
		p["state"] = f.State
	}
	if f.Limit > 0 {
		p["limit"] = fmt.Sprint(f.Limit)
	}
	if f.Offset > 0 {
		p["offset"] = fmt.Sprint(f.Offset)
	}
	return p
}

func boolParam(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
