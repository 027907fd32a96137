package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/martinsuchenak/nsotctl/internal/inventory"
	"github.com/martinsuchenak/nsotctl/internal/model"
	"github.com/martinsuchenak/nsotctl/internal/resolver"
	"github.com/martinsuchenak/nsotctl/internal/setquery"
)

type stubAPI struct{}

func (stubAPI) Networks(ctx context.Context, site int) ([]model.Network, error) {
	p := netip.MustParsePrefix("10.0.0.0/8")
	return []model.Network{{ID: 1, SiteID: site, NetworkAddress: p.Addr().String(), PrefixLength: p.Bits(), IPVersion: "4", State: model.StateAllocated}}, nil
}

func (stubAPI) LookupByFilter(ctx context.Context, rt model.ResourceType, pred setquery.Predicate) (mapset.Set[int], error) {
	return mapset.NewSet(1), nil
}

func (stubAPI) Delete(ctx context.Context, ident resolver.Identifier, force bool) error {
	return nil
}

func testConfig() *ServerConfig {
	return &ServerConfig{
		ListenAddr:   DefaultListenAddr,
		APIAuthToken: "api-secret",
		MCPAuthToken: "mcp-secret",
		Inventory:    inventory.New(stubAPI{}, inventory.WithSite(1)),
	}
}

func do(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandler_HealthIsOpen(t *testing.T) {
	h := Handler(testConfig())

	w := do(h, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should only be sent over TLS")
	}
}

func TestHandler_APIRequiresToken(t *testing.T) {
	h := Handler(testConfig())
	path := "/api/query/devices?query=owner%3Djathan"

	if w := do(h, http.MethodGet, path, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
	if w := do(h, http.MethodGet, path, "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", w.Code)
	}
	w := do(h, http.MethodGet, path, "api-secret")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"ids":[1]`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestHandler_APIOpenWithoutToken(t *testing.T) {
	cfg := testConfig()
	cfg.APIAuthToken = ""
	h := Handler(cfg)

	if w := do(h, http.MethodGet, "/api/navigate/root?network=10.0.0.0/8", ""); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandler_MCPRequiresToken(t *testing.T) {
	h := Handler(testConfig())

	if w := do(h, http.MethodPost, "/mcp", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
	if w := do(h, http.MethodPost, "/mcp", "api-secret"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with the API token, got %d", w.Code)
	}
}
