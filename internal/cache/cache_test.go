// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "home", Key(ListingKey, ""))
	assert.Equal(t, "home_gemini", Key(ListingKey, "gemini"))
	assert.Equal(t, "home_schema_v2", Key(SchemaKey, "v2"))
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"file":   func(t *testing.T) Store { return NewFile(filepath.Join(t.TempDir(), "media")) },
		"memory": func(t *testing.T) Store { return NewMemory() },
	}
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			_, err := s.Get(ctx, "home")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, PutJSON(ctx, s, "home", []map[string]string{{"title": "A"}}))

			var got []map[string]string
			require.NoError(t, GetJSON(ctx, s, "home", &got))
			assert.Equal(t, []map[string]string{{"title": "A"}}, got)
		})
	}
}

func TestFile_WritesIndentedJSON(t *testing.T) {
	dir := t.TempDir()
	s := NewFile(dir)
	require.NoError(t, PutJSON(context.Background(), s, "home_schema", map[string]string{"name": "papers"}))

	data, err := os.ReadFile(filepath.Join(dir, "home_schema.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"papers\"\n}\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestGetJSON_Malformed(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Put(ctx, "home", []byte("{not json")))

	var v any
	err := GetJSON(ctx, s, "home", &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "decoding cache entry home")
}
