package client

import (
	"fmt"

	"github.com/tidwall/sjson"
)

// Body builds a JSON request body by path. Errors are kept and reported by
// String so calls can be chained.
//
//	body, err := client.Body{}.
//	    Set("hostname", "foo-bar1").
//	    Set("attributes.owner", "jathan").
//	    String()
type Body struct {
	str string
	err error
}

// Set sets a value at the specified JSON path and returns a new Body
func (b Body) Set(path string, value any) Body {
	if b.err != nil {
		return b
	}
	result, err := sjson.Set(b.str, path, value)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("Set(%q): %w", path, err)}
	}
	return Body{str: result}
}

// SetRaw sets pre-encoded JSON at path.
func (b Body) SetRaw(path, raw string) Body {
	if b.err != nil {
		return b
	}
	result, err := sjson.SetRaw(b.str, path, raw)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("SetRaw(%q): %w", path, err)}
	}
	return Body{str: result}
}

// String returns the JSON document, "{}" when nothing was set.
func (b Body) String() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if b.str == "" {
		return "{}", nil
	}
	return b.str, nil
}
