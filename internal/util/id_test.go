package util

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id := NewID("")
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewID(""))

	prefixed := NewID("req")
	require.True(t, strings.HasPrefix(prefixed, "req_"))
	_, err = uuid.Parse(strings.TrimPrefix(prefixed, "req_"))
	assert.NoError(t, err)
}
