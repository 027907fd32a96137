package storage

import (
	"encoding/json"

	"github.com/martinsuchenak/nsotctl/internal/model"
)

// encodeAttributes stores attributes as a JSON object column.
func encodeAttributes(attrs model.Attributes) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeAttributes(s string) (model.Attributes, error) {
	attrs := model.Attributes{}
	if s == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(s), &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}
