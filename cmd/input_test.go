package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/jvx/pkg/loader"
	"github.com/oakwood-commons/jvx/pkg/settings"
	"github.com/oakwood-commons/jvx/pkg/value"
)

func TestResolveSource(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		piped   bool
		want    settings.Source
		wantErr error
	}{
		{name: "file", args: []string{"data.json"}, want: settings.Source{Path: "data.json"}},
		{name: "file wins over pipe", args: []string{"data.json"}, piped: true, want: settings.Source{Path: "data.json"}},
		{name: "dash", args: []string{"-"}, want: settings.Source{FromStdin: true}},
		{name: "piped", piped: true, want: settings.Source{FromStdin: true}},
		{name: "nothing", wantErr: errNoInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveSource(tt.args, tt.piped)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadSourceFromReader(t *testing.T) {
	doc, err := loadSource(settings.Source{FromStdin: true}, strings.NewReader(`[1]`), loader.FormatAuto)
	require.NoError(t, err)
	assert.Equal(t, value.KindArray, doc.Kind())

	_, err = loadSource(settings.Source{FromStdin: true}, strings.NewReader(" "), loader.FormatAuto)
	assert.ErrorIs(t, err, loader.ErrEmptyInput)

	_, err = loadSource(settings.Source{FromStdin: true}, strings.NewReader("{"), loader.FormatAuto)
	var pe *loader.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestDeriver(t *testing.T) {
	doc, err := loader.Load([]byte(`{"items":[{"n":"x"},{"n":"y"}]}`), loader.FormatJSON)
	require.NoError(t, err)

	d, err := newDeriver("", "")
	require.NoError(t, err)
	assert.False(t, d.active())
	same, err := d.apply(doc)
	require.NoError(t, err)
	assert.Equal(t, doc.JSON(), same.JSON())

	d, err = newDeriver("$.items[*].n", "")
	require.NoError(t, err)
	assert.True(t, d.active())
	got, err := d.apply(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `["x","y"]`, string(got.JSON()))

	d, err = newDeriver("$.items", "_.size()")
	require.NoError(t, err)
	got, err = d.apply(doc)
	require.NoError(t, err)
	assert.Equal(t, "2", got.String())

	_, err = newDeriver("items[", "")
	assert.Equal(t, 2, ExitCode(err))
}
