package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCliParams(t *testing.T) {
	got := NewCliParams()
	assert.Equal(t, &Run{LogLevel: "info", ExitOnError: true}, got)
}

func TestSourceName(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		want string
	}{
		{name: "file", src: Source{Path: "data.json"}, want: "data.json"},
		{name: "file wins over stdin", src: Source{Path: "data.json", FromStdin: true}, want: "data.json"},
		{name: "stdin", src: Source{FromStdin: true}, want: "stdin"},
		{name: "none", src: Source{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.src.Name())
		})
	}
}
