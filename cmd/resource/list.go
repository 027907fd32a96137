package resource

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/paularlott/cli"
	"github.com/tidwall/gjson"

	"github.com/martinsuchenak/nsotctl/internal/bulk"
	"github.com/martinsuchenak/nsotctl/internal/cmdutil"
	"github.com/martinsuchenak/nsotctl/internal/inventory"
	"github.com/martinsuchenak/nsotctl/internal/log"
	"github.com/martinsuchenak/nsotctl/internal/resolver"
	"github.com/martinsuchenak/nsotctl/internal/setquery"
)

// ListCommand lists resources, optionally narrowed by ID, filters or a
// set query.
func ListCommand(spec Spec) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "ID or natural key of a single object"},
		&cli.StringFlag{Name: "query", Usage: "Set query, e.g. 'owner=jathan -metro=lax'; prints natural keys by default"},
		&cli.IntFlag{Name: "limit", Usage: "Limit results"},
		&cli.IntFlag{Name: "offset", Usage: "Skip results"},
	}
	if spec.Attributes {
		flags = append(flags, &cli.StringFlag{Name: "attributes", Usage: "Filter by comma-separated key=value pairs"})
	}
	flags = append(flags, fieldFlags(spec.Fields, true)...)
	flags = append(flags, spec.ListFlags...)

	return &cli.Command{
		Name:        "list",
		Usage:       "List " + spec.Type.Path(),
		Description: "List " + spec.Type.Path() + " in the inventory",
		Flags:       flags,
		Run: func(ctx context.Context, cmd *cli.Command) error {
			records, err := list(ctx, cmd, spec)
			if err != nil {
				return cmdutil.Fail(spec.Type, err)
			}
			p := cmdutil.NewPrinter(cmd)
			p.Format = outputFormat(p.Format, cmd.GetString("query"))
			return p.Records(spec.Type, records)
		},
	}
}

func list(ctx context.Context, cmd *cli.Command, spec Spec) ([]gjson.Result, error) {
	c, _, err := cmdutil.NewClient(cmd)
	if err != nil {
		return nil, err
	}

	if raw := cmd.GetString("id"); raw != "" {
		ident, err := inventory.New(c, inventory.WithSite(c.Site())).Resolve(spec.Type, raw)
		if err != nil {
			return nil, err
		}
		rec, err := c.Get(ctx, ident)
		if err != nil {
			return nil, err
		}
		return []gjson.Result{rec}, nil
	}

	params, err := filterParams(spec.Fields, cmd.GetString, c.Site())
	if err != nil {
		return nil, err
	}
	if spec.ListParams != nil {
		maps.Copy(params, spec.ListParams(cmd))
	}
	if n := cmd.GetInt("limit"); n > 0 {
		params["limit"] = fmt.Sprint(n)
	}
	if n := cmd.GetInt("offset"); n > 0 {
		params["offset"] = fmt.Sprint(n)
	}

	var attributes string
	if spec.Attributes {
		attributes = cmd.GetString("attributes")
	}
	exprs, err := filterExpressions(attributes, cmd.GetString("query"))
	if err != nil {
		return nil, err
	}
	if len(exprs) == 0 {
		return c.List(ctx, spec.Type, params)
	}

	svc := inventory.New(c, inventory.WithSite(c.Site()), inventory.WithWorkers(cmd.GetInt("workers")))
	ids, err := evaluateAll(ctx, exprs, func(ctx context.Context, expr setquery.Expression) (mapset.Set[int], error) {
		return svc.Evaluate(ctx, spec.Type, expr)
	})
	if err != nil {
		return nil, err
	}
	log.Debug("Query matched", "type", spec.Type.String(), "filters", len(exprs), "ids", ids.Cardinality())
	if ids.Cardinality() == 0 {
		return nil, nil
	}

	// limit and offset apply to the matched objects, not the lookup.
	delete(params, "limit")
	delete(params, "offset")
	all, err := c.List(ctx, spec.Type, params)
	if err != nil {
		return nil, err
	}
	return page(matching(all, ids), cmd.GetInt("offset"), cmd.GetInt("limit")), nil
}

// filterParams collects the filter flags. A KindRef filter given by
// natural key goes under its ByName key, so "--device foo-bar1" becomes
// device_hostname=foo-bar1 and "--device 1" stays device=1.
func filterParams(fields []Field, get func(string) string, site int) (map[string]string, error) {
	params := map[string]string{}
	for _, f := range fields {
		v := strings.TrimSpace(get(f.Flag))
		if !f.Filter || v == "" {
			continue
		}
		if f.Kind != KindRef || f.ByName == "" {
			params[f.Key] = v
			continue
		}
		ident, err := resolver.Resolve(f.Ref, v, site)
		if err != nil {
			return nil, err
		}
		if ident.Kind == resolver.ByID {
			params[f.Key] = strconv.Itoa(ident.ID)
		} else {
			params[f.ByName] = ident.Key
		}
	}
	return params, nil
}

// filterExpressions returns the set queries that narrow a list. The
// --attributes pairs form one expression of intersected terms, built
// directly so values may contain spaces. --query is parsed as given.
func filterExpressions(attributes, query string) ([]setquery.Expression, error) {
	var exprs []setquery.Expression

	pairs, err := bulk.ParsePairs(splitList(attributes))
	if err != nil {
		return nil, err
	}
	if len(pairs) > 0 {
		terms := make([]setquery.Term, len(pairs))
		for i, p := range pairs {
			terms[i] = setquery.Term{Op: setquery.Intersect, Predicate: setquery.Predicate{Name: p.Key, Value: p.Value}}
		}
		exprs = append(exprs, setquery.Expression{Terms: terms})
	}

	if q := strings.TrimSpace(query); q != "" {
		expr, err := setquery.Parse(q)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

// evaluateAll intersects the results of every expression, so a union in
// --query never widens what --attributes selected.
func evaluateAll(ctx context.Context, exprs []setquery.Expression, eval func(context.Context, setquery.Expression) (mapset.Set[int], error)) (mapset.Set[int], error) {
	result := mapset.NewSet[int]()
	for i, expr := range exprs {
		ids, err := eval(ctx, expr)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			result = ids
			continue
		}
		result = result.Intersect(ids)
	}
	return result, nil
}

// outputFormat prints natural keys for --query unless another format was
// asked for.
func outputFormat(format, query string) string {
	if strings.TrimSpace(query) != "" && (format == cmdutil.FormatTable || format == "") {
		return cmdutil.FormatNaturalKey
	}
	return format
}

func matching(records []gjson.Result, ids mapset.Set[int]) []gjson.Result {
	out := make([]gjson.Result, 0, ids.Cardinality())
	for _, r := range records {
		if ids.Contains(int(r.Get("id").Int())) {
			out = append(out, r)
		}
	}
	return out
}

func page(records []gjson.Result, offset, limit int) []gjson.Result {
	if offset > 0 {
		if offset >= len(records) {
			return nil
		}
		records = records[offset:]
	}
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}
