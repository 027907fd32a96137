package resource

import "github.com/martinsuchenak/nsotctl/internal/model"

func Sites() Spec {
	return Spec{
		Type:  model.SiteType,
		Name:  "sites",
		Usage: "Site management commands",
		Fields: []Field{
			{Flag: "name", Key: "name", Usage: "Site name", Required: true, Filter: true},
			{Flag: "description", Key: "description", Usage: "Site description"},
		},
	}
}

func Devices() Spec {
	return Spec{
		Type:       model.DeviceType,
		Name:       "devices",
		Usage:      "Device management commands",
		Attributes: true,
		Fields: []Field{
			{Flag: "hostname", Key: "hostname", Usage: "Device hostname", Required: true, Filter: true},
		},
		Extra: detailCommands(model.DeviceType,
			DetailView{View: "interfaces", Usage: "List the interfaces of the device", Out: model.InterfaceType},
		),
	}
}

func Interfaces() Spec {
	return Spec{
		Type:       model.InterfaceType,
		Name:       "interfaces",
		Usage:      "Interface management commands",
		Attributes: true,
		Fields: []Field{
			{Flag: "device", Key: "device", Usage: "Device ID or hostname", Kind: KindRef, Required: true, Filter: true, Ref: model.DeviceType, ByName: "device_hostname"},
			{Flag: "name", Key: "name", Usage: "Interface name", Required: true, Filter: true},
			{Flag: "description", Key: "description", Usage: "Interface description"},
			{Flag: "addresses", Key: "addresses", Usage: "Comma-separated addresses", Kind: KindList},
			{Flag: "mac-address", Key: "mac_address", Usage: "MAC address", Filter: true},
			{Flag: "parent-id", Key: "parent_id", Usage: "Parent interface ID", Kind: KindInt},
			{Flag: "speed", Key: "speed", Usage: "Speed in Mbps", Kind: KindInt, Filter: true},
			{Flag: "type", Key: "type", Usage: "SNMP ifType", Kind: KindInt, Filter: true},
		},
		Extra: interfaceCommands(),
	}
}

func Circuits() Spec {
	return Spec{
		Type:       model.CircuitType,
		Name:       "circuits",
		Usage:      "Circuit management commands",
		Attributes: true,
		Fields: []Field{
			{Flag: "endpoint-a", Key: "endpoint_a", Usage: "A-side interface ID or device:name", Kind: KindRef, Required: true, Filter: true},
			{Flag: "endpoint-z", Key: "endpoint_z", Usage: "Z-side interface ID or device:name", Kind: KindRef, Filter: true},
			{Flag: "name", Key: "name", Usage: "Circuit name", Filter: true},
		},
		Extra: detailCommands(model.CircuitType,
			DetailView{View: "addresses", Usage: "List addresses on the circuit's interfaces", Out: model.NetworkType},
			DetailView{View: "devices", Usage: "List devices connected by the circuit", Out: model.DeviceType},
			DetailView{View: "interfaces", Usage: "List interfaces connected by the circuit", Out: model.InterfaceType},
		),
	}
}

func Attributes() Spec {
	return Spec{
		Type:  model.AttributeType,
		Name:  "attributes",
		Usage: "Attribute management commands",
		Fields: []Field{
			{Flag: "name", Key: "name", Usage: "Attribute name", Required: true, Filter: true},
			{Flag: "resource-name", Key: "resource_name", Usage: "Resource the attribute applies to", Required: true, Filter: true},
			{Flag: "description", Key: "description", Usage: "Attribute description"},
			{Flag: "required", Key: "required", Usage: "Values are required (True/False)", Kind: KindBool, Filter: true},
			{Flag: "display", Key: "display", Usage: "Show in listings (True/False)", Kind: KindBool, Filter: true},
			{Flag: "multi", Key: "multi", Usage: "Values are lists (True/False)", Kind: KindBool, Filter: true},
			{Flag: "allow-empty", Key: "constraints.allow_empty", Usage: "Allow empty values (True/False)", Kind: KindBool},
			{Flag: "pattern", Key: "constraints.pattern", Usage: "Regex values must match"},
			{Flag: "valid-values", Key: "constraints.valid_values", Usage: "Comma-separated allowed values", Kind: KindList},
		},
	}
}

func Protocols() Spec {
	return Spec{
		Type:       model.Protocol,
		Name:       "protocols",
		Usage:      "Protocol management commands",
		Attributes: true,
		Fields: []Field{
			{Flag: "device", Key: "device", Usage: "Device ID or hostname", Kind: KindRef, Required: true, Filter: true},
			{Flag: "type", Key: "type", Usage: "Protocol type ID or name", Kind: KindRef, Required: true, Filter: true},
			{Flag: "interface", Key: "interface", Usage: "Interface ID or device:name", Kind: KindRef, Filter: true},
			{Flag: "circuit", Key: "circuit", Usage: "Circuit ID or name", Kind: KindRef, Filter: true},
			{Flag: "description", Key: "description", Usage: "Protocol description"},
		},
	}
}

func ProtocolTypes() Spec {
	return Spec{
		Type:  model.ProtocolType,
		Name:  "protocol-types",
		Usage: "Protocol type management commands",
		Fields: []Field{
			{Flag: "name", Key: "name", Usage: "Protocol type name", Required: true, Filter: true},
			{Flag: "description", Key: "description", Usage: "Protocol type description"},
			{Flag: "required-attributes", Key: "required_attributes", Usage: "Comma-separated attribute names", Kind: KindList},
		},
	}
}

func Values() Spec {
	return Spec{
		Type:     model.Value,
		Name:     "values",
		Usage:    "List attribute values",
		ReadOnly: true,
		Fields: []Field{
			{Flag: "name", Key: "name", Usage: "Attribute name", Filter: true},
			{Flag: "resource-name", Key: "resource_name", Usage: "Resource type", Filter: true},
		},
	}
}

func Changes() Spec {
	return Spec{
		Type:     model.Change,
		Name:     "changes",
		Usage:    "List the change log",
		ReadOnly: true,
		Fields: []Field{
			{Flag: "event", Key: "event", Usage: "Create, Update or Delete", Filter: true},
			{Flag: "resource-name", Key: "resource_name", Usage: "Resource type", Filter: true},
			{Flag: "resource-id", Key: "resource_id", Usage: "Resource ID", Filter: true},
		},
	}
}
