package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/martinsuchenak/nsotctl/internal/client"
	"github.com/martinsuchenak/nsotctl/internal/inventory"
	"github.com/martinsuchenak/nsotctl/internal/model"
	"github.com/martinsuchenak/nsotctl/internal/resolver"
	"github.com/martinsuchenak/nsotctl/internal/setquery"
)

type mockAPI struct {
	lookupErr error
}

func (m *mockAPI) Networks(ctx context.Context, site int) ([]model.Network, error) {
	var out []model.Network
	for i, cidr := range []string{"10.0.0.0/8", "10.1.0.0/16", "10.1.1.0/24", "10.2.0.0/16"} {
		p := netip.MustParsePrefix(cidr)
		out = append(out, model.Network{
			ID:             i + 1,
			SiteID:         site,
			NetworkAddress: p.Addr().String(),
			PrefixLength:   p.Bits(),
			IPVersion:      "4",
			State:          model.StateAllocated,
		})
	}
	return out, nil
}

func (m *mockAPI) LookupByFilter(ctx context.Context, rt model.ResourceType, pred setquery.Predicate) (mapset.Set[int], error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	if pred.Name == "owner" {
		return mapset.NewSet(3, 1, 2), nil
	}
	return mapset.NewSet(2), nil
}

func (m *mockAPI) Delete(ctx context.Context, ident resolver.Identifier, force bool) error {
	return nil
}

func setupTestHandler(api *mockAPI) http.Handler {
	mux := http.NewServeMux()
	NewHandler(inventory.New(api, inventory.WithSite(1))).RegisterRoutes(mux)
	return mux
}

func get(t *testing.T, h http.Handler, path string, v any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if v != nil && w.Code == http.StatusOK {
		if err := json.NewDecoder(w.Body).Decode(v); err != nil {
			t.Fatalf("decoding %s: %v", path, err)
		}
	}
	return w.Code
}

func TestHandler_Resolve(t *testing.T) {
	h := setupTestHandler(&mockAPI{})

	var resp identifierResponse
	code := get(t, h, "/api/resolve/interfaces?identifier="+url.QueryEscape("foo-bar1:eth0"), &resp)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Kind != "natural_key" || resp.Params["device_hostname"] != "foo-bar1" || resp.Params["name"] != "eth0" {
		t.Errorf("unexpected response %+v", resp)
	}

	if code := get(t, h, "/api/resolve/networks?identifier=10.0.0.0/99", nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid CIDR, got %d", code)
	}
	if code := get(t, h, "/api/resolve/routers?identifier=x", nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown resource, got %d", code)
	}
}

func TestHandler_Query(t *testing.T) {
	h := setupTestHandler(&mockAPI{})

	var resp struct {
		IDs   []int `json:"ids"`
		Count int   `json:"count"`
	}
	code := get(t, h, "/api/query/devices?query="+url.QueryEscape("owner=jathan -vendor=juniper"), &resp)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Count != 2 || resp.IDs[0] != 1 || resp.IDs[1] != 3 {
		t.Errorf("unexpected response %+v", resp)
	}

	if code := get(t, h, "/api/query/devices?query=owner", nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed query, got %d", code)
	}
}

func TestHandler_QueryTransportError(t *testing.T) {
	h := setupTestHandler(&mockAPI{lookupErr: &client.TransportError{Operation: "GET /devices/query/", StatusCode: 500, Message: "boom"}})

	if code := get(t, h, "/api/query/devices?query=owner=jathan", nil); code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", code)
	}
}

func TestHandler_Navigate(t *testing.T) {
	h := setupTestHandler(&mockAPI{})

	tests := []struct {
		path string
		code int
		want []string
	}{
		{"/api/navigate/children?network=10.0.0.0/8", http.StatusOK, []string{"10.1.0.0/16", "10.2.0.0/16"}},
		{"/api/navigate/siblings?network=2", http.StatusOK, []string{"10.2.0.0/16"}},
		{"/api/navigate/next_network?network=10.1.0.0/16&prefix_length=24&num=2", http.StatusOK, []string{"10.1.0.0/24", "10.1.2.0/24"}},
		{"/api/navigate/closest-parent?network=10.1.1.128/25", http.StatusOK, []string{"10.1.1.0/24"}},
		{"/api/navigate/children?network=172.16.0.0/12", http.StatusNotFound, nil},
		{"/api/navigate/cousins?network=1", http.StatusBadRequest, nil},
		{"/api/navigate/next_network?network=1&prefix_length=x", http.StatusBadRequest, nil},
		{"/api/navigate/children", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var networks []model.Network
			code := get(t, h, tt.path, &networks)
			if code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, code)
			}
			if len(networks) != len(tt.want) {
				t.Fatalf("got %d networks, want %v", len(networks), tt.want)
			}
			for i, n := range networks {
				if n.CIDR() != tt.want[i] {
					t.Errorf("position %d: got %s, want %s", i, n.CIDR(), tt.want[i])
				}
			}
		})
	}
}

func TestHandler_DeleteCheck(t *testing.T) {
	h := setupTestHandler(&mockAPI{})

	var resp deleteCheckResponse
	if code := get(t, h, "/api/delete-check?network=10.1.1.0/24", &resp); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !resp.Deletable {
		t.Errorf("leaf should be deletable: %+v", resp)
	}

	resp = deleteCheckResponse{}
	if code := get(t, h, "/api/delete-check?network=10.0.0.0/8", &resp); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Deletable || resp.Reason == "" {
		t.Errorf("network with children needs force: %+v", resp)
	}
}

func TestMiddleware_SecurityHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	SecurityHeadersMiddleware(next).ServeHTTP(w, req)

	for _, name := range []string{
		"Content-Security-Policy",
		"Strict-Transport-Security",
		"X-Frame-Options",
		"X-Content-Type-Options",
		"Referrer-Policy",
	} {
		if w.Header().Get(name) == "" {
			t.Errorf("expected header %s to be set", name)
		}
	}
}

func TestMiddleware_Auth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	middleware := AuthMiddleware("secret-token", next)

	tests := []struct {
		name       string
		path       string
		authHeader string
		want       int
	}{
		{"non-API path", "/mcp", "", http.StatusOK},
		{"health is open", "/api/health", "", http.StatusOK},
		{"missing token", "/api/query/devices", "", http.StatusUnauthorized},
		{"valid token", "/api/query/devices", "Bearer secret-token", http.StatusOK},
		{"wrong token", "/api/query/devices", "Bearer wrong-token", http.StatusUnauthorized},
		{"wrong scheme", "/api/query/devices", "Basic secret-token", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			middleware.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}
