package cmdutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/netip"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/paularlott/cli"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/martinsuchenak/nsotctl/internal/model"
)

// Column is a field shown in table output
type Column struct {
	Field  string
	Header string
}

// Columns lists the table columns per resource type. The pseudo-field
// "cidr" renders network_address/prefix_length.
var Columns = map[model.ResourceType][]Column{
	model.SiteType:      {{"id", "ID"}, {"name", "Name"}, {"description", "Description"}},
	model.DeviceType:    {{"id", "ID"}, {"hostname", "Hostname"}, {"attributes", "Attributes"}},
	model.NetworkType:   {{"id", "ID"}, {"cidr", "Network"}, {"is_ip", "Is IP?"}, {"ip_version", "IP Ver."}, {"parent_id", "Parent ID"}, {"state", "State"}, {"attributes", "Attributes"}},
	model.InterfaceType: {{"id", "ID"}, {"device_hostname", "Device"}, {"name", "Name"}, {"description", "Description"}, {"addresses", "Addresses"}, {"attributes", "Attributes"}},
	model.CircuitType:   {{"id", "ID"}, {"name", "Name"}, {"endpoint_a", "Endpoint A"}, {"endpoint_z", "Endpoint Z"}, {"attributes", "Attributes"}},
	model.AttributeType: {{"id", "ID"}, {"name", "Name"}, {"resource_name", "Resource"}, {"required", "Required?"}, {"display", "Display?"}, {"multi", "Multi?"}, {"description", "Description"}},
	model.Protocol:      {{"id", "ID"}, {"device", "Device"}, {"type", "Type"}, {"interface", "Interface"}, {"circuit", "Circuit"}, {"attributes", "Attributes"}},
	model.ProtocolType:  {{"id", "ID"}, {"name", "Name"}, {"description", "Description"}, {"required_attributes", "Required Attributes"}},
	model.Value:         {{"id", "ID"}, {"name", "Name"}, {"value", "Value"}, {"resource_name", "Resource"}, {"resource_id", "Resource ID"}},
	model.Change:        {{"id", "ID"}, {"change_at", "Change At"}, {"user.email", "User"}, {"event", "Event"}, {"resource_name", "Resource"}, {"resource_id", "Obj"}},
}

// GrepKey returns the grep-friendly identity of a record: hostname for
// devices, CIDR for networks, device_hostname:name for interfaces,
// resource_name:name for attributes, device:type:id for protocols and the
// name for sites and circuits. Other types use the ID.
func GrepKey(rt model.ResourceType, rec gjson.Result) string {
	switch rt {
	case model.DeviceType:
		return rec.Get("hostname").String()
	case model.NetworkType:
		return rec.Get("network_address").String() + "/" + rec.Get("prefix_length").String()
	case model.InterfaceType:
		return rec.Get("device_hostname").String() + ":" + rec.Get("name").String()
	case model.AttributeType:
		return rec.Get("resource_name").String() + ":" + rec.Get("name").String()
	case model.Protocol:
		return rec.Get("device").String() + ":" + rec.Get("type").String() + ":" + rec.Get("id").String()
	case model.SiteType, model.CircuitType:
		return rec.Get("name").String()
	}
	return rec.Get("id").String()
}

// Printer writes results in the format chosen with --output
type Printer struct {
	Out       io.Writer
	Format    string
	Delimited bool
}

// NewPrinter reads --output, --natural-key and --delimited.
func NewPrinter(cmd *cli.Command) *Printer {
	p := &Printer{
		Out:       os.Stdout,
		Format:    cmd.GetString("output"),
		Delimited: cmd.GetBool("delimited"),
	}
	if cmd.GetBool("natural-key") {
		p.Format = FormatNaturalKey
	}
	return p
}

// Records prints API records of type rt.
func (p *Printer) Records(rt model.ResourceType, records []gjson.Result) error {
	switch p.Format {
	case FormatJSON, FormatYAML:
		values := make([]any, len(records))
		for i, r := range records {
			values[i] = r.Value()
		}
		return p.Value(values)
	case FormatGrep:
		p.grep(rt, records)
		return nil
	case FormatNaturalKey:
		keys := make([]string, len(records))
		for i, r := range records {
			keys[i] = GrepKey(rt, r)
		}
		p.naturalKeys(rt, keys)
		return nil
	case FormatTable, "":
		if len(records) == 0 {
			fmt.Fprintf(p.Out, "No %s found\n", rt.Path())
			return nil
		}
		p.table(Columns[rt], records)
		return nil
	}
	return fmt.Errorf("unknown output format %q", p.Format)
}

// Networks prints networks computed locally, such as navigation results.
func (p *Printer) Networks(networks []model.Network) error {
	records, err := Encode(networks)
	if err != nil {
		return err
	}
	return p.Records(model.NetworkType, records)
}

// Encode turns typed objects back into records for Records.
func Encode[T any](items []T) ([]gjson.Result, error) {
	records := make([]gjson.Result, len(items))
	for i, item := range items {
		b, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		records[i] = gjson.ParseBytes(b)
	}
	return records, nil
}

// IDs prints matching IDs, one per line or comma joined with --delimited.
func (p *Printer) IDs(ids []int) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	fmt.Fprintln(p.Out, strings.Join(parts, p.delimiter()))
}

// Value prints v as JSON or YAML, falling back to JSON for other formats.
func (p *Printer) Value(v any) error {
	if p.Format == FormatYAML {
		enc := yaml.NewEncoder(p.Out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(p.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Message prints a status line.
func (p *Printer) Message(format string, args ...any) {
	fmt.Fprintf(p.Out, format+"\n", args...)
}

func (p *Printer) delimiter() string {
	if p.Delimited {
		return ","
	}
	return "\n"
}

// Table prints rows under headers, aligned in columns.
func (p *Printer) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(p.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

func (p *Printer) table(cols []Column, records []gjson.Result) {
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = make([]string, len(cols))
		for j, c := range cols {
			rows[i][j] = formatField(c.Field, r)
		}
	}
	p.Table(headers, rows)
}

// grep prints one "<key> field=value" line per attribute and field, with
// attributes first.
func (p *Printer) grep(rt model.ResourceType, records []gjson.Result) {
	for _, r := range records {
		prefix := GrepKey(rt, r)

		attrs := r.Get("attributes").Map()
		for _, k := range sortedKeys(attrs) {
			fmt.Fprintf(p.Out, "%s %s=%s\n", prefix, k, scalar(attrs[k]))
		}

		fields := r.Map()
		delete(fields, "attributes")
		for _, k := range sortedKeys(fields) {
			fmt.Fprintf(p.Out, "%s %s=%s\n", prefix, k, scalar(fields[k]))
		}
	}
}

// naturalKeys prints sorted keys. Networks sort by address, then prefix.
func (p *Printer) naturalKeys(rt model.ResourceType, keys []string) {
	if rt == model.NetworkType {
		slices.SortFunc(keys, func(a, b string) int {
			pa, errA := netip.ParsePrefix(a)
			pb, errB := netip.ParsePrefix(b)
			if errA != nil || errB != nil {
				return strings.Compare(a, b)
			}
			if c := pa.Addr().Compare(pb.Addr()); c != 0 {
				return c
			}
			return pa.Bits() - pb.Bits()
		})
	} else {
		slices.Sort(keys)
	}
	fmt.Fprintln(p.Out, strings.Join(keys, p.delimiter()))
}

func formatField(field string, r gjson.Result) string {
	switch field {
	case "cidr":
		return r.Get("network_address").String() + "/" + r.Get("prefix_length").String()
	case "attributes":
		attrs := r.Get("attributes").Map()
		parts := make([]string, 0, len(attrs))
		for _, k := range sortedKeys(attrs) {
			parts = append(parts, k+"="+scalar(attrs[k]))
		}
		return strings.Join(parts, ", ")
	case "change_at":
		if ts := r.Get(field); ts.Exists() {
			return time.Unix(ts.Int(), 0).Format(time.DateTime)
		}
		return ""
	}
	return scalar(r.Get(field))
}

// scalar renders a value on one line. Lists are comma joined.
func scalar(v gjson.Result) string {
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return ""
	case v.IsArray():
		items := v.Array()
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = scalar(item)
		}
		return strings.Join(parts, ",")
	case v.IsObject():
		return v.Raw
	case v.Type == gjson.True:
		return "True"
	case v.Type == gjson.False:
		return "False"
	}
	return v.String()
}

func sortedKeys(m map[string]gjson.Result) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
