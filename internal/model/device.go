package model

// Device is a host in the inventory. Hostname is its natural key.
type Device struct {
	ID         int        `json:"id" yaml:"id"`
	SiteID     int        `json:"site_id" yaml:"site_id"`
	Hostname   string     `json:"hostname" yaml:"hostname"`
	Attributes Attributes `json:"attributes" yaml:"attributes"`
}

// Interface belongs to exactly one device.
type Interface struct {
	ID             int        `json:"id" yaml:"id"`
	SiteID         int        `json:"site_id" yaml:"site_id"`
	Device         int        `json:"device" yaml:"device"`
	DeviceHostname string     `json:"device_hostname" yaml:"device_hostname"`
	Name           string     `json:"name" yaml:"name"`
	Description    string     `json:"description" yaml:"description"`
	Type           int        `json:"type" yaml:"type"`
	MACAddress     string     `json:"mac_address" yaml:"mac_address"`
	Speed          int        `json:"speed" yaml:"speed"`
	ParentID       *int       `json:"parent_id" yaml:"parent_id"`
	Addresses      []string   `json:"addresses" yaml:"addresses"`
	Networks       []string   `json:"networks" yaml:"networks"`
	Attributes     Attributes `json:"attributes" yaml:"attributes"`
}

// NaturalKey returns "hostname:name".
func (i Interface) NaturalKey() string {
	return i.DeviceHostname + ":" + i.Name
}

// Circuit joins two interfaces. EndpointA and EndpointZ carry interface
// natural keys as returned by the API.
type Circuit struct {
	ID         int        `json:"id" yaml:"id"`
	SiteID     int        `json:"site_id" yaml:"site_id"`
	Name       string     `json:"name" yaml:"name"`
	EndpointA  string     `json:"endpoint_a" yaml:"endpoint_a"`
	EndpointZ  string     `json:"endpoint_z" yaml:"endpoint_z"`
	Attributes Attributes `json:"attributes" yaml:"attributes"`
}
