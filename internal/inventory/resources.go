package inventory

import (
	"context"
	"errors"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/martinsuchenak/nsotctl/internal/client"
	"github.com/martinsuchenak/nsotctl/internal/hierarchy"
	"github.com/martinsuchenak/nsotctl/internal/log"
	"github.com/martinsuchenak/nsotctl/internal/model"
	"github.com/martinsuchenak/nsotctl/internal/resolver"
)

// ResourceClient is the part of the REST client Exists, Ensure and Purge
// drive.
type ResourceClient interface {
	List(ctx context.Context, rt model.ResourceType, params map[string]string) ([]gjson.Result, error)
	Create(ctx context.Context, rt model.ResourceType, body string) ([]gjson.Result, error)
	Patch(ctx context.Context, ident resolver.Identifier, body string) (gjson.Result, error)
	Delete(ctx context.Context, ident resolver.Identifier, force bool) error
}

var _ ResourceClient = (*client.Client)(nil)

// Existing looks ident up by its natural key filter. ok is false when
// nothing matches.
func Existing(ctx context.Context, rc ResourceClient, ident resolver.Identifier) (obj gjson.Result, ok bool, err error) {
	records, err := rc.List(ctx, ident.Type, ident.Params())
	if err != nil {
		return gjson.Result{}, false, err
	}
	if len(records) == 0 {
		return gjson.Result{}, false, nil
	}
	return records[0], true, nil
}

// Exists reports whether ident is present upstream.
func Exists(ctx context.Context, rc ResourceClient, ident resolver.Identifier) (bool, error) {
	_, ok, err := Existing(ctx, rc, ident)
	return ok, err
}

// Ensure makes the object named by ident match body: an existing object is
// patched, a missing one created. Calling it twice changes nothing the
// second time.
func Ensure(ctx context.Context, rc ResourceClient, ident resolver.Identifier, body string) (gjson.Result, error) {
	obj, ok, err := Existing(ctx, rc, ident)
	if err != nil {
		return gjson.Result{}, err
	}

	if ok {
		id := int(obj.Get("id").Int())
		body, err = sjson.Set(body, "id", id)
		if err != nil {
			return gjson.Result{}, err
		}
		log.Debug("Patching existing object", "type", ident.Type.String(), "key", ident.String(), "id", id)
		return rc.Patch(ctx, byID(ident, id), body)
	}

	log.Debug("Creating object", "type", ident.Type.String(), "key", ident.String())
	created, err := rc.Create(ctx, ident.Type, body)
	if err != nil {
		return gjson.Result{}, err
	}
	if len(created) == 0 {
		return gjson.Result{}, errors.New("create returned no object")
	}
	return created[0], nil
}

// Purge removes the object named by ident. An absent object is already
// purged, so deleted is false and err nil.
func Purge(ctx context.Context, rc ResourceClient, ident resolver.Identifier) (deleted bool, err error) {
	obj, ok, err := Existing(ctx, rc, ident)
	if err != nil || !ok {
		return false, err
	}
	id := int(obj.Get("id").Int())
	log.Debug("Deleting object", "type", ident.Type.String(), "key", ident.String(), "id", id)
	if err := rc.Delete(ctx, byID(ident, id), false); err != nil {
		return false, err
	}
	return true, nil
}

// ClosestParent returns the smallest network of the site that contains
// cidr. ok is false when no network does.
func ClosestParent(ctx context.Context, src NetworkSource, site int, cidr string) (parent model.Network, ok bool, err error) {
	p, err := resolver.ParseCIDR(cidr)
	if err != nil {
		return model.Network{}, false, err
	}
	networks, err := src.Networks(ctx, site)
	if err != nil {
		return model.Network{}, false, err
	}
	forest, err := hierarchy.New(networks)
	if err != nil {
		return model.Network{}, false, err
	}
	parent, err = forest.ClosestParent(p)
	if errors.Is(err, hierarchy.ErrNotFound) {
		return model.Network{}, false, nil
	}
	return parent, err == nil, err
}

func byID(ident resolver.Identifier, id int) resolver.Identifier {
	out, _ := resolver.Resolve(ident.Type, strconv.Itoa(id), ident.Site)
	return out
}
