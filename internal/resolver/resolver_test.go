package resolver

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/martinsuchenak/nsotctl/internal/model"
	"pgregory.net/rapid"
)

func TestResolve_NumericIsAlwaysID(t *testing.T) {
	types := []model.ResourceType{
		model.SiteType, model.DeviceType, model.NetworkType, model.InterfaceType,
		model.CircuitType, model.AttributeType, model.Protocol, model.ProtocolType,
	}

	for _, rt := range types {
		t.Run(rt.Path(), func(t *testing.T) {
			id, err := Resolve(rt, "123", 1)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if id.Kind != ByID || id.ID != 123 {
				t.Errorf("Expected ByID(123), got %s(%s)", id.Kind, id)
			}
		})
	}
}

func TestNaturalKey_ForcesHostname(t *testing.T) {
	id, err := NaturalKey(model.DeviceType, "123", 1)
	if err != nil {
		t.Fatalf("NaturalKey() error = %v", err)
	}
	if id.Kind != ByNaturalKey || id.Key != "123" {
		t.Errorf("Expected natural key 123, got %s(%s)", id.Kind, id)
	}
	if got := id.Params()["hostname"]; got != "123" {
		t.Errorf("Expected hostname filter 123, got %q", got)
	}
}

func TestResolve_Network(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{"ipv4 network", "10.0.0.0/8", "10.0.0.0/8", nil},
		{"host bits masked", "10.20.30.5/24", "10.20.30.0/24", nil},
		{"bare ipv4 host", "192.168.1.1", "192.168.1.1/32", nil},
		{"ipv6 network", "2001:db8::/32", "2001:db8::/32", nil},
		{"bare ipv6 host", "2001:db8::1", "2001:db8::1/128", nil},
		{"garbage", "not-a-cidr", "", ErrInvalidCIDR},
		{"prefix too long", "10.0.0.0/33", "", ErrInvalidCIDR},
		{"octet out of range", "10.0.0.256/24", "", ErrInvalidCIDR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Resolve(model.NetworkType, tt.raw, 1)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if id.Key != tt.want {
				t.Errorf("Expected key %s, got %s", tt.want, id.Key)
			}
			if seg, ok := id.PathSegment(); !ok || seg != tt.want {
				t.Errorf("Expected path segment %s, got %s (ok=%v)", tt.want, seg, ok)
			}
		})
	}
}

func TestResolve_NetworkRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var addr netip.Addr
		if rapid.Bool().Draw(t, "v6") {
			b := rapid.SliceOfN(rapid.Byte(), 16, 16).Draw(t, "bytes")
			addr = netip.AddrFrom16([16]byte(b))
		} else {
			b := rapid.SliceOfN(rapid.Byte(), 4, 4).Draw(t, "bytes")
			addr = netip.AddrFrom4([4]byte(b))
		}
		bits := rapid.IntRange(0, addr.BitLen()).Draw(t, "bits")
		prefix := netip.PrefixFrom(addr, bits).Masked()

		id, err := Resolve(model.NetworkType, prefix.String(), 1)
		if err != nil {
			t.Fatalf("Resolve(%s) error = %v", prefix, err)
		}
		if id.Key != prefix.String() {
			t.Fatalf("Expected %s, got %s", prefix, id.Key)
		}
	})
}

func TestResolve_Interface(t *testing.T) {
	t.Run("device by hostname", func(t *testing.T) {
		id, err := Resolve(model.InterfaceType, "foo-bar1:eth0", 1)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if id.Device.Kind != ByNaturalKey || id.Device.Key != "foo-bar1" {
			t.Errorf("Expected device hostname foo-bar1, got %s(%s)", id.Device.Kind, id.Device)
		}
		if id.Name != "eth0" {
			t.Errorf("Expected name eth0, got %s", id.Name)
		}
		p := id.Params()
		if p["device_hostname"] != "foo-bar1" || p["name"] != "eth0" {
			t.Errorf("Unexpected params %v", p)
		}
		if _, ok := p["device"]; ok {
			t.Errorf("Expected no device ID filter, got %v", p)
		}
		if seg, ok := id.PathSegment(); !ok || seg != "foo-bar1:eth0" {
			t.Errorf("Expected path segment foo-bar1:eth0, got %s", seg)
		}
	})

	t.Run("device by id", func(t *testing.T) {
		id, err := Resolve(model.InterfaceType, "1:eth0", 1)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if id.Device.Kind != ByID || id.Device.ID != 1 {
			t.Errorf("Expected device ID 1, got %s(%s)", id.Device.Kind, id.Device)
		}
		p := id.Params()
		if p["device"] != "1" || p["name"] != "eth0" {
			t.Errorf("Unexpected params %v", p)
		}
		if _, ok := id.PathSegment(); ok {
			t.Error("Expected interface with device ID to need a filter lookup")
		}
	})

	t.Run("slash in name", func(t *testing.T) {
		id, err := Resolve(model.InterfaceType, "foo-bar1:xe-0/0/0.0", 1)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if seg, _ := id.PathSegment(); seg != "foo-bar1:xe-0_0_0.0" {
			t.Errorf("Expected slugified segment, got %s", seg)
		}
	})

	malformed := []string{"foo-bar1", ":eth0", "foo-bar1:"}
	for _, raw := range malformed {
		t.Run("malformed "+raw, func(t *testing.T) {
			if _, err := Resolve(model.InterfaceType, raw, 1); !errors.Is(err, ErrMalformedKey) {
				t.Errorf("Expected ErrMalformedKey, got %v", err)
			}
		})
	}
}

func TestResolve_Circuit(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		wantA string
		wantZ string
		key   string
	}{
		{
			"slugified endpoints",
			"foo-bar1:xe-0_0_0.0_foo-bar2:xe-0_0_0.0",
			"foo-bar1:xe-0_0_0.0", "foo-bar2:xe-0_0_0.0",
			"foo-bar1:xe-0_0_0.0_foo-bar2:xe-0_0_0.0",
		},
		{
			"raw endpoints",
			"foo-bar1:xe-0/0/0.0_foo-bar2:xe-0/0/0.0",
			"foo-bar1:xe-0/0/0.0", "foo-bar2:xe-0/0/0.0",
			"foo-bar1:xe-0_0_0.0_foo-bar2:xe-0_0_0.0",
		},
		{
			"simple",
			"r1:eth0_r2:eth1",
			"r1:eth0", "r2:eth1",
			"r1:eth0_r2:eth1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Resolve(model.CircuitType, tt.raw, 1)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if id.A.Key != tt.wantA {
				t.Errorf("Expected endpoint A %s, got %s", tt.wantA, id.A.Key)
			}
			if id.Z.Key != tt.wantZ {
				t.Errorf("Expected endpoint Z %s, got %s", tt.wantZ, id.Z.Key)
			}
			if id.Key != tt.key {
				t.Errorf("Expected key %s, got %s", tt.key, id.Key)
			}
		})
	}

	t.Run("order matters", func(t *testing.T) {
		az, _ := Resolve(model.CircuitType, "r1:eth0_r2:eth1", 1)
		za, _ := Resolve(model.CircuitType, "r2:eth1_r1:eth0", 1)
		if az.Key == za.Key {
			t.Errorf("Expected reversed endpoints to differ, both %s", az.Key)
		}
	})

	for _, raw := range []string{"r1:eth0", "r1eth0_r2eth1", "r1:eth0_r2eth1", "_r2:eth1"} {
		t.Run("malformed "+raw, func(t *testing.T) {
			if _, err := Resolve(model.CircuitType, raw, 1); !errors.Is(err, ErrMalformedKey) {
				t.Errorf("Expected ErrMalformedKey, got %v", err)
			}
		})
	}
}

func TestResolve_Attribute(t *testing.T) {
	id, err := Resolve(model.AttributeType, "Device:owner", 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id.ResourceName != "Device" || id.Name != "owner" {
		t.Errorf("Expected Device/owner, got %s/%s", id.ResourceName, id.Name)
	}
	if _, ok := id.PathSegment(); ok {
		t.Error("Expected attribute key to be unusable as a path segment")
	}

	for _, raw := range []string{"owner", "Device:", ":owner", "a:b:c"} {
		if _, err := Resolve(model.AttributeType, raw, 1); !errors.Is(err, ErrMalformedKey) {
			t.Errorf("Resolve(%q): expected ErrMalformedKey, got %v", raw, err)
		}
	}
}

func TestResolve_NoNaturalKeySupport(t *testing.T) {
	for _, rt := range []model.ResourceType{model.SiteType, model.Value, model.Change, model.Protocol, model.ProtocolType} {
		if _, err := Resolve(rt, "something", 1); !errors.Is(err, ErrMalformedKey) {
			t.Errorf("%s: expected ErrMalformedKey, got %v", rt.Path(), err)
		}
	}
}

func TestSlugify(t *testing.T) {
	got := Slugify("foo-bar1:xe-0/0/0.0_foo-bar2:xe-0/0/0.0")
	want := "foo-bar1:xe-0_0_0.0_foo-bar2:xe-0_0_0.0"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestResolve_CircuitUnderscoreInZHostname(t *testing.T) {
	id, err := Resolve(model.CircuitType, "a:eth0_foo_bar:eth1", 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id.A.String() != "a:eth0_foo" || id.Z.String() != "bar:eth1" {
		t.Errorf("Expected the split at the last '_' before the last ':', got A=%s Z=%s", id.A, id.Z)
	}
}
