package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"fsinv/internal/inv"
)

// TimeLayout is the layout of every timestamp in an exported report.
const TimeLayout = time.RFC3339

var (
	entryColumns  = []string{"Path", "Name", "ISDIR", "ID", "PARENTID", "PARENTPATH", "CreationTime", "LastAccessTime", "LastWriteTime", "Extension", "BaseName", "Bytes"}
	errorColumns  = []string{"Path", "Category", "Message"}
	accessColumns = []string{"Path", "Owner", "Group", "UID", "GID", "Mode"}
)

// EntryColumns returns the entry report header. The digest column, named
// after the algorithm, is appended only when hashing was enabled.
func EntryColumns(algorithm inv.HashAlgorithm) []string {
	cols := append([]string(nil), entryColumns...)
	if algorithm != inv.HashNone {
		cols = append(cols, string(algorithm))
	}
	return cols
}

// field is one named cell of a report row.
type field struct {
	key   string
	value any
}

// row keeps column order across every format.
type row []field

func (r row) cells() []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = cell(f.value)
	}
	return out
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

func (r row) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, f := range r {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", f.key, err)
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

func (r row) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range r {
		var v yaml.Node
		if err := v.Encode(f.value); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", f.key, err)
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: f.key}, &v)
	}
	return node, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

// sizeValue is nil for directories, whose size is undefined.
func sizeValue(e *inv.Entry) any {
	if e.IsDir {
		return nil
	}
	return e.Size
}

func entryRow(e *inv.Entry, algorithm inv.HashAlgorithm) row {
	r := row{
		{"Path", e.Path},
		{"Name", e.Name},
		{"ISDIR", e.IsDir},
		{"ID", e.ID},
		{"PARENTID", e.ParentID},
		{"PARENTPATH", e.ParentPath},
		{"CreationTime", formatTime(e.CreatedAt)},
		{"LastAccessTime", formatTime(e.AccessedAt)},
		{"LastWriteTime", formatTime(e.ModifiedAt)},
		{"Extension", e.Extension},
		{"BaseName", e.BaseName},
		{"Bytes", sizeValue(e)},
	}
	if algorithm != inv.HashNone {
		r = append(r, field{string(algorithm), e.Hash})
	}
	return r
}

// WriteEntries writes one row per entry, in inventory order.
func WriteEntries(w io.Writer, inventory *inv.Inventory, format Format) error {
	rows := make([]row, len(inventory.Entries))
	for i, e := range inventory.Entries {
		rows[i] = entryRow(e, inventory.Algorithm)
	}
	return writeRows(w, EntryColumns(inventory.Algorithm), rows, format)
}

// WriteErrors writes the itemized error report.
func WriteErrors(w io.Writer, records []*inv.ErrorRecord, format Format) error {
	rows := make([]row, len(records))
	for i, rec := range records {
		rows[i] = row{
			{"Path", rec.Path},
			{"Category", string(rec.Category)},
			{"Message", rec.Message},
		}
	}
	return writeRows(w, errorColumns, rows, format)
}

// WriteAccess writes the access-control report.
func WriteAccess(w io.Writer, records []*inv.AccessRecord, format Format) error {
	rows := make([]row, len(records))
	for i, rec := range records {
		rows[i] = row{
			{"Path", rec.Path},
			{"Owner", rec.Owner},
			{"Group", rec.Group},
			{"UID", rec.UID},
			{"GID", rec.GID},
			{"Mode", rec.Mode},
		}
	}
	return writeRows(w, accessColumns, rows, format)
}

func writeRows(w io.Writer, header []string, rows []row, format Format) error {
	switch format {
	case FormatCSV, "":
		return writeCSV(w, header, rows)
	case FormatJSON:
		return writeJSON(w, rows)
	case FormatYAML:
		return writeYAML(w, rows)
	default:
		return fmt.Errorf("unknown export format: %q", string(format))
	}
}

func writeCSV(w io.Writer, header []string, rows []row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.cells()); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, rows []row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, rows []row) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
