package bulk

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/martinsuchenak/nsotctl/internal/model"
)

var (
	ErrInvalidAttribute = errors.New("invalid attribute; format should be key=value")
	ErrInvalidAction    = errors.New("invalid attribute action")
)

// Action is how attribute flags are merged into an object's attributes
type Action string

const (
	ActionAdd     Action = "add"
	ActionDelete  Action = "delete"
	ActionReplace Action = "replace"
)

// ParseAction accepts add, delete, remove and replace.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(s) {
	case "", "add":
		return ActionAdd, nil
	case "delete", "remove":
		return ActionDelete, nil
	case "replace":
		return ActionReplace, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// Pair is one key=value attribute flag
type Pair struct {
	Key   string
	Value string
}

// ParsePairs parses key=value flags in order. Duplicate flags collapse to one.
func ParsePairs(values []string) ([]Pair, error) {
	pairs := make([]Pair, 0, len(values))
	for _, v := range values {
		key, val, _ := strings.Cut(v, "=")
		if key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAttribute, v)
		}
		p := Pair{Key: key, Value: val}
		if !slices.Contains(pairs, p) {
			pairs = append(pairs, p)
		}
	}
	return pairs, nil
}

// ParseAttributes turns key=value flags into an attribute map. A later flag
// for the same key wins.
func ParseAttributes(values []string) (model.Attributes, error) {
	pairs, err := ParsePairs(values)
	if err != nil {
		return nil, err
	}
	attrs := make(model.Attributes, len(pairs))
	for _, p := range pairs {
		attrs[p.Key] = p.Value
	}
	return attrs, nil
}

// Apply merges pairs into attrs according to action and returns attrs.
// With multi the values are lists: add appends missing values, replace
// swaps the whole list for the given values, and delete removes the value
// and drops the key when no value was given or the list becomes empty.
// Without multi add and replace set the value and delete drops the key.
func Apply(attrs model.Attributes, pairs []Pair, action Action, multi bool) model.Attributes {
	if attrs == nil {
		attrs = model.Attributes{}
	}
	if !multi {
		for _, p := range pairs {
			if action == ActionDelete {
				delete(attrs, p.Key)
			} else {
				attrs[p.Key] = p.Value
			}
		}
		return attrs
	}

	replaced := map[string]bool{}
	for _, p := range pairs {
		list := toList(attrs[p.Key])
		switch action {
		case ActionAdd:
			if !slices.Contains(list, p.Value) {
				list = append(list, p.Value)
			}
			attrs[p.Key] = list
		case ActionReplace:
			if !replaced[p.Key] {
				list = nil
				replaced[p.Key] = true
			}
			if !slices.Contains(list, p.Value) {
				list = append(list, p.Value)
			}
			attrs[p.Key] = list
		case ActionDelete:
			if _, ok := attrs[p.Key]; !ok {
				continue
			}
			list = slices.DeleteFunc(list, func(v string) bool { return v == p.Value })
			if p.Value == "" || len(list) == 0 {
				delete(attrs, p.Key)
			} else {
				attrs[p.Key] = list
			}
		}
	}
	return attrs
}

// toList normalizes an existing attribute value to a string list.
func toList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return slices.Clone(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			out = append(out, fmt.Sprint(x))
		}
		return out
	case string:
		return []string{t}
	default:
		return []string{fmt.Sprint(t)}
	}
}
