package model

import "testing"

func TestParseResourceType(t *testing.T) {
	tests := []struct {
		in   string
		want ResourceType
	}{
		{"networks", NetworkType},
		{"Network", NetworkType},
		{"network", NetworkType},
		{"protocol_types", ProtocolType},
		{"protocol-types", ProtocolType},
		{"ProtocolType", ProtocolType},
		{" devices ", DeviceType},
		{"changes", Change},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResourceType(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := ParseResourceType("racks"); err == nil {
		t.Error("expected an error for an unknown type")
	}
}

func TestResourceType_SiteScoped(t *testing.T) {
	if SiteType.SiteScoped() {
		t.Error("sites are not site scoped")
	}
	if !InterfaceType.SiteScoped() {
		t.Error("interfaces are site scoped")
	}
	if ProtocolType.Path() != "protocol_types" || ProtocolType.String() != "ProtocolType" {
		t.Errorf("unexpected names %q %q", ProtocolType.Path(), ProtocolType.String())
	}
}

func TestNetwork_Prefix(t *testing.T) {
	n := Network{ID: 1, NetworkAddress: "10.20.30.1", PrefixLength: 24}
	p, err := n.Prefix()
	if err != nil {
		t.Fatal(err)
	}
	if p.String() != "10.20.30.0/24" {
		t.Errorf("prefix should be masked, got %s", p)
	}
	if n.CIDR() != "10.20.30.1/24" {
		t.Errorf("CIDR should keep the stored address, got %s", n.CIDR())
	}

	if _, err := (Network{ID: 2, NetworkAddress: "bogus", PrefixLength: 8}).Prefix(); err == nil {
		t.Error("expected an error for a bad address")
	}
}

func TestNetworkFilter_Params(t *testing.T) {
	p := NetworkFilter{IncludeNetworks: true, IPVersion: "6", RootOnly: true, Limit: 10}.Params()
	want := map[string]string{
		"include_ips":      "False",
		"include_networks": "True",
		"ip_version":       "6",
		"root_only":        "True",
		"limit":            "10",
	}
	if len(p) != len(want) {
		t.Fatalf("got %v, want %v", p, want)
	}
	for k, v := range want {
		if p[k] != v {
			t.Errorf("%s: got %q, want %q", k, p[k], v)
		}
	}
}
