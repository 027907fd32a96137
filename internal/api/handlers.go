// Package api serves read-only inventory lookups over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/martinsuchenak/nsotctl/internal/bulk"
	"github.com/martinsuchenak/nsotctl/internal/client"
	"github.com/martinsuchenak/nsotctl/internal/hierarchy"
	"github.com/martinsuchenak/nsotctl/internal/inventory"
	"github.com/martinsuchenak/nsotctl/internal/log"
	"github.com/martinsuchenak/nsotctl/internal/model"
	"github.com/martinsuchenak/nsotctl/internal/resolver"
	"github.com/martinsuchenak/nsotctl/internal/setquery"
)

// Handler handles HTTP requests
type Handler struct {
	inventory *inventory.Service
}

// NewHandler creates a new API handler
func NewHandler(svc *inventory.Service) *Handler {
	return &Handler{inventory: svc}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.health)
	mux.HandleFunc("GET /api/resolve/{resource}", h.resolve)
	mux.HandleFunc("GET /api/query/{resource}", h.query)
	mux.HandleFunc("GET /api/navigate/{relationship}", h.navigate)
	mux.HandleFunc("GET /api/delete-check", h.deleteCheck)
}

type identifierResponse struct {
	Type        string            `json:"type"`
	Kind        string            `json:"kind"`
	ID          int               `json:"id,omitempty"`
	Key         string            `json:"key,omitempty"`
	Site        int               `json:"site,omitempty"`
	PathSegment string            `json:"path_segment,omitempty"`
	Params      map[string]string `json:"params"`
}

type deleteCheckResponse struct {
	Network   model.Network `json:"network"`
	Force     bool          `json:"force"`
	Deletable bool          `json:"deletable"`
	Reason    string        `json:"reason,omitempty"`
}

// health handles GET /api/health
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"site":    h.inventory.Site(),
		"offline": h.inventory.Offline(),
	})
}

// resolve handles GET /api/resolve/{resource}?identifier=
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	rt, ok := h.resourceType(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("identifier")
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, "identifier is required")
		return
	}

	ident, err := h.inventory.Resolve(rt, raw)
	if err != nil {
		h.fail(w, err)
		return
	}

	resp := identifierResponse{
		Type:   rt.Path(),
		Kind:   ident.Kind.String(),
		Site:   ident.Site,
		Params: ident.Params(),
	}
	if ident.Kind == resolver.ByID {
		resp.ID = ident.ID
	} else {
		resp.Key = ident.Key
	}
	if seg, ok := ident.PathSegment(); ok {
		resp.PathSegment = seg
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// query handles GET /api/query/{resource}?query=
func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	rt, ok := h.resourceType(w, r)
	if !ok {
		return
	}
	q := r.URL.Query().Get("query")
	if q == "" {
		h.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	ids, err := h.inventory.Query(r.Context(), rt, q)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ids": ids, "count": len(ids)})
}

// navigate handles GET /api/navigate/{relationship}?network=
func (h *Handler) navigate(w http.ResponseWriter, r *http.Request) {
	rel, err := hierarchy.ParseRelationship(r.PathValue("relationship"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	network := q.Get("network")
	if network == "" {
		h.writeError(w, http.StatusBadRequest, "network is required")
		return
	}

	p := hierarchy.Params{
		IncludeSelf: bulk.ParseBool(q.Get("include_self")),
		Ascending:   bulk.ParseBool(q.Get("ascending")),
		Direct:      bulk.ParseBool(q.Get("direct")),
		Strict:      bulk.ParseBool(q.Get("strict")),
		Num:         1,
	}
	for name, dst := range map[string]*int{"num": &p.Num, "prefix_length": &p.PrefixLength} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, name+" must be a number")
			return
		}
		*dst = n
	}

	networks, err := h.inventory.Navigate(r.Context(), rel, network, p)
	if err != nil {
		h.fail(w, err)
		return
	}
	if networks == nil {
		networks = []model.Network{}
	}
	h.writeJSON(w, http.StatusOK, networks)
}

// deleteCheck handles GET /api/delete-check?network=&force=
func (h *Handler) deleteCheck(w http.ResponseWriter, r *http.Request) {
	network := r.URL.Query().Get("network")
	if network == "" {
		h.writeError(w, http.StatusBadRequest, "network is required")
		return
	}
	force := bulk.ParseBool(r.URL.Query().Get("force"))

	n, err := h.inventory.CheckDelete(r.Context(), network, force)
	resp := deleteCheckResponse{Network: n, Force: force, Deletable: err == nil}
	switch {
	case errors.Is(err, hierarchy.ErrForbiddenDelete), errors.Is(err, hierarchy.ErrForbiddenForceDelete):
		resp.Reason = err.Error()
	case err != nil:
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) resourceType(w http.ResponseWriter, r *http.Request) (model.ResourceType, bool) {
	rt, err := model.ParseResourceType(r.PathValue("resource"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return 0, false
	}
	return rt, true
}

// fail maps an inventory error to a status code.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var terr *client.TransportError
	switch {
	case errors.Is(err, resolver.ErrInvalidCIDR),
		errors.Is(err, resolver.ErrMalformedKey),
		errors.Is(err, setquery.ErrMalformedQueryToken),
		errors.Is(err, hierarchy.ErrInvalidPrefixLength):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, hierarchy.ErrNotFound), errors.Is(err, client.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, hierarchy.ErrExhausted):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, inventory.ErrOffline):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &terr):
		log.Warn("Upstream request failed", "error", terr.DetailedError())
		h.writeError(w, http.StatusBadGateway, terr.Error())
	default:
		h.internalError(w, err)
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// internalError logs the error and writes a generic 500 response
func (h *Handler) internalError(w http.ResponseWriter, err error) {
	log.Error("Internal server error", "error", err)
	h.writeError(w, http.StatusInternalServerError, "Internal Server Error")
}
