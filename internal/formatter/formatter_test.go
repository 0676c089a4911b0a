package formatter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/jvx/internal/flatten"
	"github.com/oakwood-commons/jvx/pkg/loader"
	"github.com/oakwood-commons/jvx/pkg/value"
)

const doc = `{"name": "alice", "server": {"host": "localhost", "port": 8080}, "tags": ["a", "b"], "empty": {}, "note": "line1\nline2"}`

func rowsFor(t *testing.T, expanded ...string) []flatten.Row {
	t.Helper()
	v, err := loader.Load([]byte(doc), loader.FormatJSON)
	require.NoError(t, err)
	return flatten.Flatten(v, flatten.NewPaths(expanded...), nil)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTree, f)
	f, err = ParseFormat("TABLE")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)
	_, err = ParseFormat("mermaid")
	assert.Error(t, err)
}

func TestValueText(t *testing.T) {
	rows := rowsFor(t, "")
	byPath := map[string]flatten.Row{}
	for _, r := range rows {
		byPath[r.Path] = r
	}
	assert.Equal(t, "{} 5 items", ValueText(byPath[""]))
	assert.Equal(t, "alice", ValueText(byPath["name"]))
	assert.Equal(t, "{} 2 items", ValueText(byPath["server"]))
	assert.Equal(t, "[] 2 items", ValueText(byPath["tags"]))
	assert.Equal(t, "{} 0 items", ValueText(byPath["empty"]))
	assert.Equal(t, "line1⏎line2", ValueText(byPath["note"]))
	assert.Equal(t, RootLabel, DisplayKey(byPath[""]))
	assert.Equal(t, "server", DisplayKey(byPath["server"]))
}

func TestCopyText(t *testing.T) {
	rows := rowsFor(t, "", "server")
	server := rows[2]
	require.Equal(t, "server", server.Path)

	got, err := CopyText(server, "value")
	require.NoError(t, err)
	assert.Equal(t, `{"host":"localhost","port":8080}`, got)

	port := rows[4]
	require.Equal(t, "server.port", port.Path)
	for what, want := range map[string]string{"key": "port", "path": "server.port", "value": "8080"} {
		got, err := CopyText(port, what)
		require.NoError(t, err)
		assert.Equal(t, want, got, what)
	}

	_, err = CopyText(port, "row")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 0))
	assert.Equal(t, "hello", Truncate("hello", 5))
	assert.Equal(t, "hel…", Truncate("hello", 4))
	// Wide runes take two cells.
	assert.Equal(t, "日…", Truncate("日本語", 4))
}

func TestFormatAsTree(t *testing.T) {
	result := FormatAsTree(rowsFor(t, "", "server"), Options{})

	assert.True(t, strings.HasPrefix(result, RootLabel+"\n"), "root line first, got:\n%s", result)
	for _, want := range []string{"name: alice", "server\n", "host: localhost", "port: 8080", "tags: [] 2 items", "empty: {} 0 items"} {
		assert.Contains(t, result, want)
	}
	// host is nested one level deeper than server.
	lines := strings.Split(result, "\n")
	var serverIndent, hostIndent int
	for _, l := range lines {
		if strings.HasSuffix(l, "server") {
			serverIndent = strings.Index(l, "server")
		}
		if strings.Contains(l, "host: localhost") {
			hostIndent = strings.Index(l, "host")
		}
	}
	assert.Greater(t, hostIndent, serverIndent)
}

func TestFormatAsTreeCollapsedAndScalarRoot(t *testing.T) {
	assert.Equal(t, "(root): {} 5 items\n", FormatAsTree(rowsFor(t), Options{}))

	rows := flatten.Flatten(value.Int(7), nil, nil)
	assert.Equal(t, "(root): 7\n", FormatAsTree(rows, Options{}))
	assert.Equal(t, "", FormatAsTree(nil, Options{}))
}

func TestFormatAsTreeNoValues(t *testing.T) {
	result := FormatAsTree(rowsFor(t, ""), Options{NoValues: true})
	assert.Contains(t, result, "name\n")
	assert.NotContains(t, result, "alice")
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, rowsFor(t, ""), Options{}))
	out := buf.String()
	for _, want := range []string{"PATH", "TYPE", "VALUE", "(root)", "name", "string", "alice", "object", "(6 rows)"} {
		assert.Contains(t, out, want)
	}

	buf.Reset()
	require.NoError(t, WriteTable(&buf, nil, Options{}))
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestWritePaths(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePaths(&buf, rowsFor(t, "", "server"), Options{MaxValueWidth: 8}))
	want := strings.Join([]string{
		"name = alice",
		"server.host = localho…",
		"server.port = 8080",
		"tags = [] 2 it…",
		"empty = {} 0 it…",
		"note = line1⏎l…",
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, WritePaths(&buf, rowsFor(t), Options{}))
	assert.Equal(t, "(root) = {} 5 items\n", buf.String())
}

func TestWritePathsKeepsLeafComposites(t *testing.T) {
	v, err := loader.Load([]byte(`{"list": [1, 2], "other": 3, "empty": {}}`), loader.FormatJSON)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePaths(&buf, flatten.Flatten(v, flatten.CompositePaths(v), nil), Options{}))
	assert.Equal(t, "list.0 = 1\nlist.1 = 2\nother = 3\nempty = {} 0 items\n", buf.String())

	m, err := flatten.CompileSearch("st$", flatten.InvalidPatternLiteral)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, WritePaths(&buf, flatten.Flatten(v, flatten.CompositePaths(v), m), Options{}))
	assert.Equal(t, "list = [] 2 items\n", buf.String())
}

func TestWriteJSONLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONLines(&buf, rowsFor(t, "", "server")))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 8)

	var root, port RowView
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &root))
	assert.Equal(t, "", root.Path)
	assert.True(t, root.Expandable)
	assert.True(t, root.Expanded)
	assert.Equal(t, "object", root.Kind)
	assert.Empty(t, root.Value)

	require.NoError(t, json.Unmarshal([]byte(lines[4]), &port))
	assert.Equal(t, "server.port", port.Path)
	assert.Equal(t, 2, port.Level)
	assert.JSONEq(t, "8080", string(port.Value))
}

func TestWriteDispatch(t *testing.T) {
	rows := rowsFor(t)
	for _, f := range ValidFormats {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, rows, Options{Format: f}), f)
		assert.NotEmpty(t, buf.String(), f)
	}
	assert.Error(t, Write(&bytes.Buffer{}, rows, Options{Format: "xml"}))
}
