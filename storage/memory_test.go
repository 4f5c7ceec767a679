package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var missing interface{}
	require.ErrorIs(t, m.Load(ctx, "x", &missing), ErrNotFound)

	require.NoError(t, m.Save(ctx, "x", map[string]interface{}{"a": 1.0}))
	var got map[string]interface{}
	require.NoError(t, m.Load(ctx, "x", &got))
	require.Equal(t, 1.0, got["a"])
}
