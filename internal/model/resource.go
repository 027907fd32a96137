package model

import (
	"fmt"
	"strings"
)

// ResourceType identifies an API collection.
type ResourceType int

const (
	SiteType ResourceType = iota
	DeviceType
	NetworkType
	InterfaceType
	CircuitType
	AttributeType
	Protocol
	ProtocolType
	Value
	Change
)

var resourcePaths = map[ResourceType]string{
	SiteType:      "sites",
	DeviceType:    "devices",
	NetworkType:   "networks",
	InterfaceType: "interfaces",
	CircuitType:   "circuits",
	AttributeType: "attributes",
	Protocol:      "protocols",
	ProtocolType:  "protocol_types",
	Value:         "values",
	Change:        "changes",
}

var resourceNames = map[ResourceType]string{
	SiteType:      "Site",
	DeviceType:    "Device",
	NetworkType:   "Network",
	InterfaceType: "Interface",
	CircuitType:   "Circuit",
	AttributeType: "Attribute",
	Protocol:      "Protocol",
	ProtocolType:  "ProtocolType",
	Value:         "Value",
	Change:        "Change",
}

// Path returns the REST collection name, e.g. "protocol_types".
func (r ResourceType) Path() string {
	return resourcePaths[r]
}

// String returns the singular resource name as the API uses it in
// attribute resource_name fields.
func (r ResourceType) String() string {
	if name, ok := resourceNames[r]; ok {
		return name
	}
	return fmt.Sprintf("ResourceType(%d)", int(r))
}

// SiteScoped reports whether the collection lives under /sites/{id}/.
func (r ResourceType) SiteScoped() bool {
	return r != SiteType
}

// ParseResourceType accepts a collection path ("networks"), a singular
// name ("Network") or a dashed form ("protocol-types").
func ParseResourceType(s string) (ResourceType, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for rt, path := range resourcePaths {
		if norm == path || norm == strings.ToLower(resourceNames[rt]) || norm == strings.TrimSuffix(path, "s") {
			return rt, nil
		}
	}
	if norm == "protocoltype" {
		return ProtocolType, nil
	}
	return 0, fmt.Errorf("unknown resource type %q", s)
}

// Attributes holds attribute values keyed by attribute name. Multi-valued
// attributes decode to []any.
type Attributes map[string]any
