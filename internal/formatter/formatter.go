// Package formatter renders flattened rows as text: the shared cell text used
// by the viewers, and the non-interactive outputs (tree, table, paths, json).
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/jvx/internal/flatten"
)

// Format names a non-interactive output style.
type Format string

const (
	FormatTree  Format = "tree"
	FormatTable Format = "table"
	FormatPaths Format = "paths"
	FormatJSON  Format = "json"
)

// ValidFormats lists the accepted -o values.
var ValidFormats = []Format{FormatTree, FormatTable, FormatPaths, FormatJSON}

// ParseFormat validates an -o flag value. Empty means tree.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatTree, nil
	}
	for _, f := range ValidFormats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid output %q: valid values are tree, table, paths, json", s)
}

// RootLabel is shown in place of the root row's empty key and path.
const RootLabel = "(root)"

// Options controls non-interactive output.
type Options struct {
	Format Format
	// MaxValueWidth truncates value text to this many cells; 0 = unlimited.
	MaxValueWidth int
	// NoValues prints keys only (tree and paths).
	NoValues bool
}

// Write renders rows to w.
func Write(w io.Writer, rows []flatten.Row, opts Options) error {
	switch opts.Format {
	case FormatTree, "":
		_, err := io.WriteString(w, FormatAsTree(rows, opts))
		return err
	case FormatTable:
		return WriteTable(w, rows, opts)
	case FormatPaths:
		return WritePaths(w, rows, opts)
	case FormatJSON:
		return WriteJSONLines(w, rows)
	}
	return fmt.Errorf("unsupported output %q", opts.Format)
}

// DisplayKey returns the label for a row's key.
func DisplayKey(r flatten.Row) string {
	if r.Path == flatten.RootPath {
		return RootLabel
	}
	return r.Key
}

// DisplayPath returns the path text shown to users.
func DisplayPath(path string) string {
	if path == flatten.RootPath {
		return RootLabel
	}
	return path
}

// ValueText is the value column of a row: "{} N items" / "[] N items" for
// objects and arrays, the plain scalar text otherwise. Line breaks are
// flattened so a row stays on one line.
func ValueText(r flatten.Row) string {
	if r.IsExpandable {
		return r.Value.Summary()
	}
	return oneLine(r.Value.String())
}

// CopyText returns the clipboard text for what ("key", "path" or "value").
// Values of objects and arrays copy as compact JSON.
func CopyText(r flatten.Row, what string) (string, error) {
	switch what {
	case "key":
		return r.Key, nil
	case "path":
		return r.Path, nil
	case "value", "":
		return r.Value.String(), nil
	}
	return "", fmt.Errorf("invalid copy target %q: valid values are key, path, value", what)
}

// Truncate shortens s to at most width display cells, ending with "…" when
// cut. width <= 0 disables truncation.
func Truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

func oneLine(s string) string {
	if !strings.ContainsAny(s, "\r\n\t") {
		return s
	}
	return strings.NewReplacer("\r\n", "⏎", "\n", "⏎", "\r", "⏎", "\t", " ").Replace(s)
}
