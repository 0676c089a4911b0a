package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubPlatformActions(t *testing.T) {
	var copied []string
	restore := StubPlatformActions(&copied)

	require.NoError(t, CopyToClipboard("a.b"))
	require.NoError(t, OpenURL("http://127.0.0.1:8080"))
	assert.Equal(t, []string{"a.b"}, copied)

	restore()
	assert.NotNil(t, copyToClipboardFn)
}
