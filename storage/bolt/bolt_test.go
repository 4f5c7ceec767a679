package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/oakbot/oak/storage"

	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "oak.db"))
	require.NoError(t, s.Open())
	defer s.Close()

	ctx := context.Background()

	var missing map[string]interface{}
	require.ErrorIs(t, s.Load(ctx, "nope", &missing), storage.ErrNotFound)

	doc := map[string]interface{}{
		"interactions": []interface{}{"trigger::message"},
	}
	require.NoError(t, s.Save(ctx, "interactions", doc))

	var got map[string]interface{}
	require.NoError(t, s.Load(ctx, "interactions", &got))
	require.Equal(t, doc, got)

	// Overwrite.
	doc["extra"] = "x"
	require.NoError(t, s.Save(ctx, "interactions", doc))
	var again map[string]interface{}
	require.NoError(t, s.Load(ctx, "interactions", &again))
	require.Equal(t, "x", again["extra"])
}
