package model

// Site is the top-level namespace every other resource lives in
type Site struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Attribute describes an attribute schema entry for one resource type.
type Attribute struct {
	ID           int    `json:"id" yaml:"id"`
	SiteID       int    `json:"site_id" yaml:"site_id"`
	Name         string `json:"name" yaml:"name"`
	ResourceName string `json:"resource_name" yaml:"resource_name"`
	Description  string `json:"description" yaml:"description"`
	Display      bool   `json:"display" yaml:"display"`
	Multi        bool   `json:"multi" yaml:"multi"`
	Required     bool   `json:"required" yaml:"required"`
}

// NaturalKey returns "resource_name:name".
func (a Attribute) NaturalKey() string {
	return a.ResourceName + ":" + a.Name
}
