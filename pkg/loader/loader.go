// Package loader turns raw text or files into a document value.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tailscale/hujson"

	"github.com/oakwood-commons/jvx/pkg/value"
)

// Format names an input syntax.
type Format string

const (
	FormatAuto  Format = "auto"
	FormatJSON  Format = "json"
	FormatJSONC Format = "jsonc"
	FormatYAML  Format = "yaml"
	FormatTOML  Format = "toml"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = []Format{FormatAuto, FormatJSON, FormatJSONC, FormatYAML, FormatTOML}

// ErrEmptyInput reports whitespace-only input. Callers treat it as "no
// document" rather than a failure.
var ErrEmptyInput = errors.New("empty input")

// ParseError is returned when input text cannot be parsed. Message() is the
// short text shown to users; Error() also carries the cause.
type ParseError struct {
	Format   Format
	FromFile bool
	Err      error
}

// Message returns the user-visible summary, e.g. "Invalid JSON file".
func (e *ParseError) Message() string {
	name := "JSON"
	switch e.Format {
	case FormatYAML:
		name = "YAML"
	case FormatTOML:
		name = "TOML"
	}
	if e.FromFile {
		return "Invalid " + name + " file"
	}
	return "Invalid " + name + " format"
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return e.Message()
	}
	return e.Message() + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseFormat validates a --format flag value. The empty string means auto.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatAuto, nil
	}
	if s == "yml" {
		return FormatYAML, nil
	}
	for _, f := range ValidFormats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid format %q: valid values are auto, json, jsonc, yaml, toml", s)
}

// DetectFormat picks a format from a file extension, defaulting to JSON.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonc", ".json5", ".hujson":
		return FormatJSONC
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	}
	return FormatJSON
}

// Load parses input in the given format. FormatAuto is treated as JSON.
// Whitespace-only input returns ErrEmptyInput; anything else that fails to
// parse returns a *ParseError and no partial document.
func Load(input []byte, format Format) (value.Value, error) {
	return load(input, format, false)
}

// LoadReader reads r to EOF and parses it like Load.
func LoadReader(r io.Reader, format Format) (value.Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return value.Value{}, fmt.Errorf("read input: %w", err)
	}
	return Load(data, format)
}

// LoadFile reads and parses a local file. With FormatAuto the format comes
// from the file extension.
func LoadFile(path string, format Format) (value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Value{}, fmt.Errorf("read %s: %w", path, err)
	}
	if format == FormatAuto || format == "" {
		format = DetectFormat(path)
	}
	return load(data, format, true)
}

// LoadNamed parses the contents of a file that was read elsewhere, such as
// an upload. name picks the format under FormatAuto and errors read as file
// errors.
func LoadNamed(input []byte, name string, format Format) (value.Value, error) {
	if format == FormatAuto || format == "" {
		format = DetectFormat(name)
	}
	return load(input, format, true)
}

func load(input []byte, format Format, fromFile bool) (value.Value, error) {
	if len(bytes.TrimSpace(input)) == 0 {
		return value.Value{}, ErrEmptyInput
	}
	if format == FormatAuto || format == "" {
		format = FormatJSON
	}

	var (
		doc value.Value
		err error
	)
	switch format {
	case FormatJSON:
		doc, err = parseJSON(input, true)
	case FormatJSONC:
		doc, err = parseJSON(input, false)
	case FormatYAML:
		doc, err = parseYAML(input)
	case FormatTOML:
		doc, err = parseTOML(input)
	default:
		return value.Value{}, fmt.Errorf("unsupported format %q", format)
	}
	if errors.Is(err, ErrEmptyInput) {
		return value.Value{}, err
	}
	if err != nil {
		return value.Value{}, &ParseError{Format: format, FromFile: fromFile, Err: err}
	}
	return doc, nil
}

// parseJSON parses with hujson so object members keep their source order.
// In strict mode the extensions hujson tolerates (comments, trailing commas)
// are rejected.
func parseJSON(input []byte, strict bool) (value.Value, error) {
	root, err := hujson.Parse(input)
	if err != nil {
		return value.Value{}, err
	}
	if strict && !json.Valid(input) {
		return value.Value{}, errors.New("comments and trailing commas are not valid JSON (use --format jsonc)")
	}
	return fromHuJSON(root.Value)
}

func fromHuJSON(v hujson.ValueTrimmed) (value.Value, error) {
	switch t := v.(type) {
	case hujson.Literal:
		return fromLiteral(t)
	case *hujson.Object:
		members := make([]value.Member, 0, len(t.Members))
		for _, m := range t.Members {
			name, ok := m.Name.Value.(hujson.Literal)
			if !ok {
				return value.Value{}, errors.New("object member name is not a string")
			}
			key, err := unquote(name)
			if err != nil {
				return value.Value{}, err
			}
			mv, err := fromHuJSON(m.Value.Value)
			if err != nil {
				return value.Value{}, err
			}
			members = append(members, value.Member{Key: key, Value: mv})
		}
		return value.Object(members...), nil
	case *hujson.Array:
		elems := make([]value.Value, 0, len(t.Elements))
		for _, e := range t.Elements {
			ev, err := fromHuJSON(e.Value)
			if err != nil {
				return value.Value{}, err
			}
			elems = append(elems, ev)
		}
		return value.Array(elems...), nil
	}
	return value.Value{}, fmt.Errorf("unexpected JSON node %T", v)
}

func fromLiteral(lit hujson.Literal) (value.Value, error) {
	if len(lit) == 0 {
		return value.Value{}, errors.New("empty literal")
	}
	switch lit[0] {
	case 'n':
		return value.Null(), nil
	case 't':
		return value.Bool(true), nil
	case 'f':
		return value.Bool(false), nil
	case '"':
		s, err := unquote(lit)
		if err != nil {
			return value.Value{}, err
		}
		return value.String(s), nil
	}
	return value.Number(string(lit)), nil
}

func unquote(lit hujson.Literal) (string, error) {
	var s string
	if err := json.Unmarshal(lit, &s); err != nil {
		return "", fmt.Errorf("invalid string literal %s: %w", lit, err)
	}
	return s, nil
}

// parseTOML decodes a TOML document. Tables decode into Go maps, so keys come
// back sorted.
func parseTOML(input []byte) (value.Value, error) {
	var data map[string]any
	if err := toml.Unmarshal(input, &data); err != nil {
		return value.Value{}, err
	}
	return value.FromAny(data)
}
