package bulk

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/martinsuchenak/nsotctl/internal/model"
)

var ErrBadFile = errors.New("invalid bulk file")

// Record is one object read from a bulk file, keyed by header field
type Record map[string]any

// ReadFile parses a colon-delimited file whose first line names the fields.
// The attributes column holds comma-separated key=value pairs and is
// skipped for resources that carry no attributes. Columns named in boolFields
// go through ParseBool; any other column holding a literal True or False
// becomes a boolean too.
func ReadFile(r io.Reader, rt model.ResourceType, boolFields ...string) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = ':'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header row", ErrBadFile)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFile, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	isBool := map[string]bool{}
	for _, f := range boolFields {
		isBool[f] = true
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) && errors.Is(perr.Err, csv.ErrFieldCount) {
				return nil, fmt.Errorf("%w: wrong number of fields on line %d", ErrBadFile, perr.Line)
			}
			return nil, fmt.Errorf("%w: %v", ErrBadFile, err)
		}
		line, _ := cr.FieldPos(0)

		rec := make(Record, len(header))
		for i, field := range header {
			val := row[i]
			switch {
			case field == "attributes" && rt != model.AttributeType:
				attrs, err := ParseAttributes(splitAttributes(val))
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrBadFile, line, err)
				}
				rec[field] = attrs
			case isBool[field]:
				rec[field] = ParseBool(val)
			default:
				if b, ok := literalBool(val); ok {
					rec[field] = b
				} else {
					rec[field] = val
				}
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func splitAttributes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
