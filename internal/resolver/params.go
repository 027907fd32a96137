package resolver

import (
	"strconv"
	"strings"

	"github.com/martinsuchenak/nsotctl/internal/model"
)

// Slugify makes a natural key safe for use as a single path segment.
func Slugify(s string) string {
	return strings.ReplaceAll(s, "/", "_")
}

// PathSegment returns the value to place after the collection path. ok is
// false for natural keys the API cannot address directly, which must be
// looked up with Params instead.
func (id Identifier) PathSegment() (string, bool) {
	if id.Kind == ByID {
		return strconv.Itoa(id.ID), true
	}
	switch id.Type {
	case model.DeviceType, model.NetworkType, model.CircuitType:
		return id.Key, true
	case model.InterfaceType:
		if id.Device != nil && id.Device.Kind == ByNaturalKey {
			return Slugify(id.Key), true
		}
	}
	return "", false
}

// Params returns the list filter selecting this resource by natural key.
// An interface whose device was given by ID filters on "device", one given
// by hostname on "device_hostname".
func (id Identifier) Params() map[string]string {
	if id.Kind == ByID {
		return map[string]string{"id": strconv.Itoa(id.ID)}
	}

	switch id.Type {
	case model.DeviceType:
		return map[string]string{"hostname": id.Key}
	case model.NetworkType:
		return map[string]string{"cidr": id.Key}
	case model.InterfaceType:
		p := map[string]string{"name": id.Name}
		if id.Device.Kind == ByID {
			p["device"] = strconv.Itoa(id.Device.ID)
		} else {
			p["device_hostname"] = id.Device.Key
		}
		return p
	case model.CircuitType:
		return map[string]string{"name": id.Key}
	case model.AttributeType:
		return map[string]string{"resource_name": id.ResourceName, "name": id.Name}
	}
	return map[string]string{}
}
