package factory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasirciogluhq/sortbench/internal/config"
	"github.com/hasirciogluhq/sortbench/internal/session"
	"github.com/hasirciogluhq/sortbench/internal/source"
)

func TestHandlerFactory(t *testing.T) {
	cfg := &config.Config{
		MaxMessageSize:    2048,
		DefaultSortColumn: "ID_VENTA",
		ReadTimeout:       time.Second,
		ProcessTimeout:    2 * time.Second,
		WriteTimeout:      3 * time.Second,
	}

	h, ok := NewHandlerFactory(cfg).Create().(*session.Handler)
	require.True(t, ok)
	assert.Equal(t, 2048, h.Codec.MaxMessageSize)
	assert.Equal(t, "ID_VENTA", h.DefaultColumn)
	assert.Equal(t, time.Second, h.ReadTimeout)
	assert.Equal(t, 2*time.Second, h.ProcessTimeout)
	assert.Equal(t, 3*time.Second, h.WriteTimeout)
	assert.Nil(t, h.Sort)
}

func TestSourceFactory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"A":1}]`), 0o644))

	src, err := NewSourceFactory("", path, "").Create(ctx)
	require.NoError(t, err)
	assert.IsType(t, &source.File{}, src)
	ds, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, ds, 1)

	src, err = NewSourceFactory("sqlite", ":memory:", "SELECT 2 AS A UNION ALL SELECT 1").Create(ctx)
	require.NoError(t, err)
	defer src.Close()
	ds, err = src.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, ds, 2)
}

func TestSourceFactoryErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewSourceFactory("file", "", "").Create(ctx)
	assert.ErrorContains(t, err, "path is required")

	_, err = NewSourceFactory("sqlite", ":memory:", "").Create(ctx)
	assert.ErrorContains(t, err, "query is required")

	_, err = NewSourceFactory("oracle", "x", "SELECT 1").Create(ctx)
	assert.ErrorContains(t, err, "unsupported database driver")
}
