package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/oakwood-commons/jvx/internal/flatten"
)

// WritePaths prints one "path = value" line per row. Expanded objects and
// arrays with children are skipped since their children follow.
func WritePaths(w io.Writer, rows []flatten.Row, opts Options) error {
	for _, r := range rows {
		if r.IsExpandable && r.Expanded && r.Value.Len() > 0 {
			continue
		}
		line := DisplayPath(r.Path)
		if !opts.NoValues {
			line += " = " + Truncate(ValueText(r), opts.MaxValueWidth)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RowView is the wire shape of a row, shared by -o json and the browser API.
type RowView struct {
	Path       string          `json:"path"`
	Key        string          `json:"key"`
	Level      int             `json:"level"`
	Expandable bool            `json:"expandable"`
	Expanded   bool            `json:"expanded"`
	Kind       string          `json:"kind"`
	Text       string          `json:"text"`
	Value      json.RawMessage `json:"value,omitempty"`
}

// NewRowView converts a row. Value carries the JSON of scalars only.
func NewRowView(r flatten.Row) RowView {
	v := RowView{
		Path:       r.Path,
		Key:        r.Key,
		Level:      r.Level,
		Expandable: r.IsExpandable,
		Expanded:   r.Expanded,
		Kind:       r.Value.Kind().String(),
		Text:       ValueText(r),
	}
	if !r.IsExpandable {
		v.Value = r.Value.JSON()
	}
	return v
}

// WriteJSONLines prints one JSON object per row.
func WriteJSONLines(w io.Writer, rows []flatten.Row) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range rows {
		if err := enc.Encode(NewRowView(r)); err != nil {
			return err
		}
	}
	return nil
}
