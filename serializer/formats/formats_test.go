package formats

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipp01105/nlogsink/serializer"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"container", "json_lines", "text"}, r.Names())

	reopen := map[string]bool{"text": true, "json_lines": true, "container": false}
	for name, want := range reopen {
		b, err := r.Builder(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, b.Build(&bytes.Buffer{}).SupportsReopen(), name)
	}
}

func TestRegister_Twice(t *testing.T) {
	r := serializer.NewRegistry()
	require.NoError(t, Register(r))
	err := Register(r)
	assert.True(t, errors.Is(err, serializer.ErrDuplicateFormat))
}

func TestDefault_IsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
	assert.True(t, Default().Has("JSON_LINES"))
}
