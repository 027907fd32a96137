package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/paularlott/mcp"

	"github.com/martinsuchenak/nsotctl/internal/bulk"
	"github.com/martinsuchenak/nsotctl/internal/hierarchy"
	"github.com/martinsuchenak/nsotctl/internal/inventory"
	"github.com/martinsuchenak/nsotctl/internal/log"
	"github.com/martinsuchenak/nsotctl/internal/model"
	"github.com/martinsuchenak/nsotctl/internal/resolver"
	"github.com/martinsuchenak/nsotctl/internal/setquery"
)

const serverVersion = "1.0.0"

// Server exposes inventory lookups and network navigation as MCP tools
type Server struct {
	mcpServer   *mcp.Server
	inventory   *inventory.Service
	bearerToken string
}

// toolArgs is the part of a tool request the handlers read
type toolArgs interface {
	String(name string) (string, error)
	StringOr(name, def string) string
}

type toolFunc func(ctx context.Context, args toolArgs) (string, error)

// NewServer creates a new MCP server backed by svc
func NewServer(svc *inventory.Service, bearerToken string) *Server {
	s := &Server{
		mcpServer:   mcp.NewServer("nsotctl", serverVersion),
		inventory:   svc,
		bearerToken: bearerToken,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.RegisterTool(
		mcp.NewTool("resolve_identifier", "Resolve a resource reference (numeric ID or natural key such as a hostname, CIDR or device:interface) without contacting the API",
			mcp.String("resource_type", "Resource type (devices, networks, interfaces, circuits, attributes, ...)", mcp.Required()),
			mcp.String("identifier", "Numeric ID or natural key", mcp.Required()),
		),
		s.wrap("resolve_identifier", s.resolveIdentifier),
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("set_query", "Evaluate a set query such as 'owner=jathan +metro=lax -vendor=juniper' and return matching IDs",
			mcp.String("resource_type", "Resource type to query", mcp.Required()),
			mcp.String("query", "Space separated attribute predicates; + for union, - for difference", mcp.Required()),
		),
		s.wrap("set_query", s.setQuery),
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("network_navigate", "List networks related to a network: parent, ancestors, children, descendants, siblings, root, supernets or subnets",
			mcp.String("network", "Network ID or CIDR", mcp.Required()),
			mcp.String("relationship", "Relationship to follow", mcp.Required()),
			mcp.String("include_self", "Siblings: include the network itself (True/False)"),
			mcp.String("ascending", "Ancestors: immediate parent first (True/False)"),
			mcp.String("direct", "Supernets and subnets: one level only (True/False)"),
		),
		s.wrap("network_navigate", s.navigate),
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("network_next_address", "Return the next free host addresses inside a network",
			mcp.String("network", "Network ID or CIDR", mcp.Required()),
			mcp.String("num", "Number of addresses (default 1)"),
			mcp.String("strict", "Skip space below any child network, not just used addresses (True/False)"),
		),
		s.wrap("network_next_address", s.nextAddress),
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("network_next_network", "Return the next free child networks of a prefix length inside a network",
			mcp.String("network", "Network ID or CIDR", mcp.Required()),
			mcp.String("prefix_length", "Prefix length of the networks to allocate", mcp.Required()),
			mcp.String("num", "Number of networks (default 1)"),
			mcp.String("strict", "Skip space below any child network, not just used blocks (True/False)"),
		),
		s.wrap("network_next_network", s.nextNetwork),
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("network_closest_parent", "Return the smallest network that contains a CIDR, which need not exist",
			mcp.String("cidr", "CIDR or address", mcp.Required()),
		),
		s.wrap("network_closest_parent", s.closestParent),
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("network_delete_check", "Check whether a network may be deleted, without deleting it",
			mcp.String("network", "Network ID or CIDR", mcp.Required()),
			mcp.String("force", "Force delete a network with children (True/False)"),
		),
		s.wrap("network_delete_check", s.deleteCheck),
	)
}

// wrap adapts a tool function to the MCP handler signature and maps errors
// caused by bad input to invalid-params responses.
func (s *Server) wrap(name string, fn toolFunc) func(context.Context, *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	return func(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
		log.Debug("MCP tool request", "tool", name)
		text, err := fn(ctx, req)
		if err != nil {
			if isInvalidInput(err) {
				log.Warn("MCP tool rejected input", "tool", name, "error", err)
				return nil, mcp.NewToolErrorInvalidParams(err.Error())
			}
			log.Error("MCP tool failed", "tool", name, "error", err)
			return nil, mcp.NewToolErrorInternal(err.Error())
		}
		return mcp.NewToolResponseText(text), nil
	}
}

var errInvalidParam = errors.New("invalid parameter")

func isInvalidInput(err error) bool {
	for _, target := range []error{
		errInvalidParam,
		resolver.ErrInvalidCIDR,
		resolver.ErrMalformedKey,
		setquery.ErrMalformedQueryToken,
		hierarchy.ErrInvalidPrefixLength,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func required(args toolArgs, name string) (string, error) {
	v, err := args.String(name)
	if err != nil || v == "" {
		return "", fmt.Errorf("%w: %s is required", errInvalidParam, name)
	}
	return v, nil
}

func intArg(args toolArgs, name string, def int) (int, error) {
	raw := args.StringOr(name, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errInvalidParam, name)
	}
	return n, nil
}

func boolArg(args toolArgs, name string) bool {
	return bulk.ParseBool(args.StringOr(name, ""))
}

func resourceArg(args toolArgs) (model.ResourceType, error) {
	raw, err := required(args, "resource_type")
	if err != nil {
		return 0, err
	}
	rt, err := model.ParseResourceType(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errInvalidParam, err)
	}
	return rt, nil
}

func (s *Server) resolveIdentifier(ctx context.Context, args toolArgs) (string, error) {
	rt, err := resourceArg(args)
	if err != nil {
		return "", err
	}
	raw, err := required(args, "identifier")
	if err != nil {
		return "", err
	}
	ident, err := s.inventory.Resolve(rt, raw)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\n", ident.Type)
	fmt.Fprintf(&b, "Kind: %s\n", ident.Kind)
	if ident.Kind == resolver.ByID {
		fmt.Fprintf(&b, "ID: %d\n", ident.ID)
	} else {
		fmt.Fprintf(&b, "Key: %s\n", ident.Key)
	}
	if ident.Site != 0 {
		fmt.Fprintf(&b, "Site: %d\n", ident.Site)
	}
	if seg, ok := ident.PathSegment(); ok {
		fmt.Fprintf(&b, "Path segment: %s\n", seg)
	}
	if params := ident.Params(); len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "Filter %s: %s\n", k, params[k])
		}
	}
	return b.String(), nil
}

func (s *Server) setQuery(ctx context.Context, args toolArgs) (string, error) {
	rt, err := resourceArg(args)
	if err != nil {
		return "", err
	}
	query, err := required(args, "query")
	if err != nil {
		return "", err
	}
	ids, err := s.inventory.Query(ctx, rt, query)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return fmt.Sprintf("No %s matched %q", rt.Path(), query), nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("Found %d %s: %s", len(ids), rt.Path(), strings.Join(parts, ", ")), nil
}

func (s *Server) navigate(ctx context.Context, args toolArgs) (string, error) {
	network, err := required(args, "network")
	if err != nil {
		return "", err
	}
	relRaw, err := required(args, "relationship")
	if err != nil {
		return "", err
	}
	rel, err := hierarchy.ParseRelationship(relRaw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidParam, err)
	}
	p := hierarchy.Params{
		IncludeSelf: boolArg(args, "include_self"),
		Ascending:   boolArg(args, "ascending"),
		Direct:      boolArg(args, "direct"),
		Num:         1,
	}
	networks, err := s.inventory.Navigate(ctx, rel, network, p)
	if err != nil {
		return "", err
	}
	return formatNetworks(fmt.Sprintf("%s of %s", rel, network), networks), nil
}

func (s *Server) nextAddress(ctx context.Context, args toolArgs) (string, error) {
	network, err := required(args, "network")
	if err != nil {
		return "", err
	}
	num, err := intArg(args, "num", 1)
	if err != nil {
		return "", err
	}
	p := hierarchy.Params{Num: num, Strict: boolArg(args, "strict")}
	networks, err := s.inventory.Navigate(ctx, hierarchy.RelNextAddress, network, p)
	if err != nil {
		return "", err
	}
	return formatNetworks("Next free addresses in "+network, networks), nil
}

func (s *Server) nextNetwork(ctx context.Context, args toolArgs) (string, error) {
	network, err := required(args, "network")
	if err != nil {
		return "", err
	}
	if _, err := required(args, "prefix_length"); err != nil {
		return "", err
	}
	prefixLength, err := intArg(args, "prefix_length", 0)
	if err != nil {
		return "", err
	}
	num, err := intArg(args, "num", 1)
	if err != nil {
		return "", err
	}
	p := hierarchy.Params{PrefixLength: prefixLength, Num: num, Strict: boolArg(args, "strict")}
	networks, err := s.inventory.Navigate(ctx, hierarchy.RelNextNetwork, network, p)
	if err != nil {
		return "", err
	}
	return formatNetworks(fmt.Sprintf("Next free /%d networks in %s", prefixLength, network), networks), nil
}

func (s *Server) closestParent(ctx context.Context, args toolArgs) (string, error) {
	cidr, err := required(args, "cidr")
	if err != nil {
		return "", err
	}
	networks, err := s.inventory.Navigate(ctx, hierarchy.RelClosestParent, cidr, hierarchy.Params{})
	if err != nil {
		return "", err
	}
	return formatNetworks("Closest parent of "+cidr, networks), nil
}

func (s *Server) deleteCheck(ctx context.Context, args toolArgs) (string, error) {
	network, err := required(args, "network")
	if err != nil {
		return "", err
	}
	force := boolArg(args, "force")
	n, err := s.inventory.CheckDelete(ctx, network, force)
	switch {
	case errors.Is(err, hierarchy.ErrForbiddenDelete), errors.Is(err, hierarchy.ErrForbiddenForceDelete):
		return fmt.Sprintf("Delete of %s refused: %v", n.CIDR(), err), nil
	case err != nil:
		return "", err
	}
	return fmt.Sprintf("%s (ID: %d) can be deleted", n.CIDR(), n.ID), nil
}

func formatNetworks(title string, networks []model.Network) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d\n", title, len(networks))
	for _, n := range networks {
		if n.ID == 0 {
			fmt.Fprintf(&b, "- %s\n", n.CIDR())
			continue
		}
		fmt.Fprintf(&b, "- %s (ID: %d, state: %s)\n", n.CIDR(), n.ID, n.State)
	}
	return b.String()
}

// HandleRequest checks the bearer token, if one is configured, and passes
// the request to the MCP server.
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	log.Debug("MCP request received", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)

	if s.bearerToken != "" {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			log.Warn("MCP request missing Authorization header", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Missing Authorization header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(auth, "Bearer ") {
			log.Warn("MCP request invalid Authorization format", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid Authorization format", http.StatusUnauthorized)
			return
		}
		if strings.TrimPrefix(auth, "Bearer ") != s.bearerToken {
			log.Warn("MCP request invalid token", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}
	}

	s.mcpServer.HandleRequest(w, r)
}

// GetHTTPHandler returns the HTTP handler for the MCP server
func (s *Server) GetHTTPHandler() http.HandlerFunc {
	return s.HandleRequest
}

// LogStartup logs MCP server startup information
func (s *Server) LogStartup() {
	log.Info("MCP Server initialized", "version", serverVersion, "site", s.inventory.Site(), "offline", s.inventory.Offline())
	if s.bearerToken != "" {
		log.Info("MCP authentication enabled", "type", "Bearer token")
	} else {
		log.Info("MCP authentication disabled")
	}
	tools := s.mcpServer.ListTools()
	log.Info("MCP tools registered", "count", len(tools))
	for _, tool := range tools {
		log.Debug("MCP tool registered", "name", tool.Name)
	}
}
