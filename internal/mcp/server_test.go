package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/martinsuchenak/nsotctl/internal/hierarchy"
	"github.com/martinsuchenak/nsotctl/internal/inventory"
	"github.com/martinsuchenak/nsotctl/internal/model"
	"github.com/martinsuchenak/nsotctl/internal/resolver"
	"github.com/martinsuchenak/nsotctl/internal/setquery"
)

type args map[string]string

func (a args) String(name string) (string, error) {
	v, ok := a[name]
	if !ok {
		return "", fmt.Errorf("parameter %s not found", name)
	}
	return v, nil
}

func (a args) StringOr(name, def string) string {
	if v, ok := a[name]; ok {
		return v
	}
	return def
}

type fakeAPI struct{}

func (fakeAPI) Networks(ctx context.Context, site int) ([]model.Network, error) {
	var out []model.Network
	for i, cidr := range []string{"10.0.0.0/8", "10.1.0.0/16", "10.1.1.0/24", "10.1.1.1/32", "192.168.0.0/16", "192.168.1.0/24"} {
		p := netip.MustParsePrefix(cidr)
		out = append(out, model.Network{
			ID:             i + 1,
			SiteID:         site,
			NetworkAddress: p.Addr().String(),
			PrefixLength:   p.Bits(),
			IPVersion:      "4",
			IsIP:           p.IsSingleIP(),
			State:          model.StateAllocated,
		})
	}
	return out, nil
}

func (fakeAPI) LookupByFilter(ctx context.Context, rt model.ResourceType, pred setquery.Predicate) (mapset.Set[int], error) {
	switch pred.String() {
	case "owner=jathan":
		return mapset.NewSet(1, 2, 3), nil
	case "metro=lax":
		return mapset.NewSet(2), nil
	}
	return mapset.NewSet[int](), nil
}

func (fakeAPI) Delete(ctx context.Context, ident resolver.Identifier, force bool) error {
	return nil
}

func setupTestServer(t *testing.T, token string) *Server {
	t.Helper()
	svc := inventory.New(fakeAPI{}, inventory.WithSite(1))
	return NewServer(svc, token)
}

func TestTools(t *testing.T) {
	s := setupTestServer(t, "")
	ctx := context.Background()

	tests := []struct {
		name string
		fn   toolFunc
		args args
		want []string
	}{
		{
			name: "resolve device hostname",
			fn:   s.resolveIdentifier,
			args: args{"resource_type": "devices", "identifier": "foo-bar1"},
			want: []string{"Kind: natural_key", "Key: foo-bar1", "Filter hostname: foo-bar1"},
		},
		{
			name: "resolve numeric id",
			fn:   s.resolveIdentifier,
			args: args{"resource_type": "network", "identifier": "42"},
			want: []string{"Kind: id", "ID: 42"},
		},
		{
			name: "set query difference",
			fn:   s.setQuery,
			args: args{"resource_type": "devices", "query": "owner=jathan -metro=lax"},
			want: []string{"Found 2 devices: 1, 3"},
		},
		{
			name: "set query no match",
			fn:   s.setQuery,
			args: args{"resource_type": "devices", "query": "owner=nobody"},
			want: []string{"No devices matched"},
		},
		{
			name: "children",
			fn:   s.navigate,
			args: args{"network": "10.1.0.0/16", "relationship": "children"},
			want: []string{"children of 10.1.0.0/16: 1", "10.1.1.0/24 (ID: 3"},
		},
		{
			name: "siblings including self",
			fn:   s.navigate,
			args: args{"network": "10.0.0.0/8", "relationship": "siblings", "include_self": "True"},
			want: []string{": 2", "10.0.0.0/8", "192.168.0.0/16"},
		},
		{
			name: "next address",
			fn:   s.nextAddress,
			args: args{"network": "10.1.1.0/24", "num": "2"},
			want: []string{"- 10.1.1.2/32", "- 10.1.1.3/32"},
		},
		{
			name: "next network",
			fn:   s.nextNetwork,
			args: args{"network": "10.1.0.0/16", "prefix_length": "24"},
			want: []string{"- 10.1.0.0/24"},
		},
		{
			name: "closest parent",
			fn:   s.closestParent,
			args: args{"cidr": "192.168.1.128/25"},
			want: []string{"192.168.1.0/24 (ID: 6"},
		},
		{
			name: "delete leaf",
			fn:   s.deleteCheck,
			args: args{"network": "10.1.1.1/32"},
			want: []string{"can be deleted"},
		},
		{
			name: "delete with children refused",
			fn:   s.deleteCheck,
			args: args{"network": "10.1.0.0/16", "force": "False"},
			want: []string{"refused"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(ctx, tt.args)
			if err != nil {
				t.Fatalf("tool failed: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q:\n%s", w, got)
				}
			}
		})
	}
}

func TestTools_InvalidInput(t *testing.T) {
	s := setupTestServer(t, "")
	ctx := context.Background()

	tests := []struct {
		name string
		fn   toolFunc
		args args
	}{
		{"missing identifier", s.resolveIdentifier, args{"resource_type": "devices"}},
		{"unknown resource", s.resolveIdentifier, args{"resource_type": "routers", "identifier": "x"}},
		{"bad cidr", s.navigate, args{"network": "10.1/99", "relationship": "children"}},
		{"bad relationship", s.navigate, args{"network": "1", "relationship": "cousins"}},
		{"malformed query", s.setQuery, args{"resource_type": "devices", "query": "owner"}},
		{"bad num", s.nextAddress, args{"network": "1", "num": "many"}},
		{"missing prefix length", s.nextNetwork, args{"network": "1"}},
		{"prefix length too short", s.nextNetwork, args{"network": "10.1.0.0/16", "prefix_length": "8"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn(ctx, tt.args)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !isInvalidInput(err) {
				t.Errorf("expected invalid input error, got %v", err)
			}
		})
	}
}

func TestTools_NotFoundIsNotInvalidInput(t *testing.T) {
	s := setupTestServer(t, "")

	_, err := s.navigate(context.Background(), args{"network": "172.16.0.0/12", "relationship": "children"})
	if !errors.Is(err, hierarchy.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if isInvalidInput(err) {
		t.Error("not found should be reported as an internal error")
	}
}

func TestHandleRequest_BearerToken(t *testing.T) {
	s := setupTestServer(t, "secret")

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic secret"},
		{"wrong token", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{}`))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			s.GetHTTPHandler()(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}
