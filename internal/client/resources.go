package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/tidwall/gjson"

	"github.com/martinsuchenak/nsotctl/internal/model"
	"github.com/martinsuchenak/nsotctl/internal/resolver"
	"github.com/martinsuchenak/nsotctl/internal/setquery"
)

// LookupByFilter returns the IDs of rt resources matching one predicate,
// evaluated by the server's set-query endpoint.
func (c *Client) LookupByFilter(ctx context.Context, rt model.ResourceType, pred setquery.Predicate) (mapset.Set[int], error) {
	records, err := c.Query(ctx, rt, pred.String(), false)
	if err != nil {
		return nil, err
	}
	ids := mapset.NewSetWithSize[int](len(records))
	for _, r := range records {
		ids.Add(int(r.Get("id").Int()))
	}
	return ids, nil
}

// Query runs a set query on the server. With unique set the server fails
// unless exactly one object matches.
func (c *Client) Query(ctx context.Context, rt model.ResourceType, query string, unique bool) ([]gjson.Result, error) {
	path, err := c.path(0, rt, "query")
	if err != nil {
		return nil, err
	}
	params := url.Values{"query": {query}}
	if unique {
		params.Set("unique", "true")
	}
	res, err := c.do(ctx, http.MethodGet, path, params, "")
	if err != nil {
		return nil, err
	}
	return Results(res), nil
}

// List returns every rt resource matching params.
func (c *Client) List(ctx context.Context, rt model.ResourceType, params map[string]string) ([]gjson.Result, error) {
	path, err := c.path(0, rt)
	if err != nil {
		return nil, err
	}
	res, err := c.do(ctx, http.MethodGet, path, toValues(params), "")
	if err != nil {
		return nil, err
	}
	return Results(res), nil
}

// Get returns the single resource ident refers to. Natural keys the API
// cannot route are looked up by filter and must match exactly one object.
func (c *Client) Get(ctx context.Context, ident resolver.Identifier) (gjson.Result, error) {
	if seg, ok := ident.PathSegment(); ok {
		path, err := c.path(ident.Site, ident.Type, seg)
		if err != nil {
			return gjson.Result{}, err
		}
		res, err := c.do(ctx, http.MethodGet, path, nil, "")
		if err != nil {
			return gjson.Result{}, err
		}
		return one(ident, Results(res))
	}

	records, err := c.List(ctx, ident.Type, ident.Params())
	if err != nil {
		return gjson.Result{}, err
	}
	return one(ident, records)
}

func one(ident resolver.Identifier, records []gjson.Result) (gjson.Result, error) {
	switch len(records) {
	case 0:
		return gjson.Result{}, fmt.Errorf("%w: %s %s", ErrNotFound, ident.Type, ident)
	case 1:
		return records[0], nil
	}
	return gjson.Result{}, fmt.Errorf("%w: %d %s objects for %s", ErrAmbiguous, len(records), ident.Type, ident)
}

// ID returns the numeric ID of ident, fetching the object when ident is a
// natural key.
func (c *Client) ID(ctx context.Context, ident resolver.Identifier) (int, error) {
	if ident.Kind == resolver.ByID {
		return ident.ID, nil
	}
	obj, err := c.Get(ctx, ident)
	if err != nil {
		return 0, err
	}
	return int(obj.Get("id").Int()), nil
}

// Detail fetches a sub-resource view such as /networks/{id}/assignments/.
func (c *Client) Detail(ctx context.Context, ident resolver.Identifier, view string, params map[string]string) ([]gjson.Result, error) {
	id, err := c.ID(ctx, ident)
	if err != nil {
		return nil, err
	}
	path, err := c.path(ident.Site, ident.Type, strconv.Itoa(id), view)
	if err != nil {
		return nil, err
	}
	res, err := c.do(ctx, http.MethodGet, path, toValues(params), "")
	if err != nil {
		return nil, err
	}
	return Results(res), nil
}

// Collection fetches a collection-level view such as /networks/reserved/.
func (c *Client) Collection(ctx context.Context, rt model.ResourceType, view string, params map[string]string) ([]gjson.Result, error) {
	path, err := c.path(0, rt, view)
	if err != nil {
		return nil, err
	}
	res, err := c.do(ctx, http.MethodGet, path, toValues(params), "")
	if err != nil {
		return nil, err
	}
	return Results(res), nil
}

// Create POSTs body, an object or a list of objects.
func (c *Client) Create(ctx context.Context, rt model.ResourceType, body string) ([]gjson.Result, error) {
	path, err := c.path(0, rt)
	if err != nil {
		return nil, err
	}
	res, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	return Results(res), nil
}

// Update replaces the object with PUT.
func (c *Client) Update(ctx context.Context, ident resolver.Identifier, body string) (gjson.Result, error) {
	return c.write(ctx, http.MethodPut, ident, body)
}

// Patch changes only the fields present in body.
func (c *Client) Patch(ctx context.Context, ident resolver.Identifier, body string) (gjson.Result, error) {
	return c.write(ctx, http.MethodPatch, ident, body)
}

func (c *Client) write(ctx context.Context, method string, ident resolver.Identifier, body string) (gjson.Result, error) {
	id, err := c.ID(ctx, ident)
	if err != nil {
		return gjson.Result{}, err
	}
	path, err := c.path(ident.Site, ident.Type, strconv.Itoa(id))
	if err != nil {
		return gjson.Result{}, err
	}
	return c.do(ctx, method, path, nil, body)
}

// Delete removes the object. force asks the server to reparent or remove
// children instead of refusing.
func (c *Client) Delete(ctx context.Context, ident resolver.Identifier, force bool) error {
	id, err := c.ID(ctx, ident)
	if err != nil {
		return err
	}
	path, err := c.path(ident.Site, ident.Type, strconv.Itoa(id))
	if err != nil {
		return err
	}
	var params url.Values
	if force {
		params = url.Values{"force_delete": {"true"}}
	}
	_, err = c.do(ctx, http.MethodDelete, path, params, "")
	return err
}

// Networks returns every network and address in site, for building a
// hierarchy locally. Zero means the client's site.
func (c *Client) Networks(ctx context.Context, site int) ([]model.Network, error) {
	path, err := c.path(site, model.NetworkType)
	if err != nil {
		return nil, err
	}
	params := url.Values{"include_ips": {"True"}, "include_networks": {"True"}}
	res, err := c.do(ctx, http.MethodGet, path, params, "")
	if err != nil {
		return nil, err
	}
	return Decode[model.Network](Results(res))
}

// Sites lists all sites.
func (c *Client) Sites(ctx context.Context) ([]model.Site, error) {
	records, err := c.List(ctx, model.SiteType, nil)
	if err != nil {
		return nil, err
	}
	return Decode[model.Site](records)
}

// Decode unmarshals each record into T.
func Decode[T any](records []gjson.Result) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		var v T
		if err := json.Unmarshal([]byte(r.Raw), &v); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func toValues(params map[string]string) url.Values {
	if len(params) == 0 {
		return nil
	}
	v := make(url.Values, len(params))
	for k, val := range params {
		v.Set(k, val)
	}
	return v
}
