package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/config"
	"finanzas/internal/source/api"
	"finanzas/internal/source/memory"
)

func TestCreateBackend(t *testing.T) {
	f := NewFactory(nil)

	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, res.Backend)

	res, err = f.CreateBackend(context.Background(), Config{Type: APIBackend, BaseURL: "http://localhost:8000", Token: "t"})
	require.NoError(t, err)
	assert.IsType(t, &api.Client{}, res.Backend)

	_, err = f.CreateBackend(context.Background(), Config{Type: "sheets"})
	assert.Error(t, err)
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	cfg := &config.Config{DataBackend: "memory", DataDir: "seed", APIToken: "abc", APIMaxRetries: 2}
	bc, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, MemoryBackend, bc.Type)
	assert.Equal(t, "seed", bc.DataDirectory)
	assert.Equal(t, "abc", bc.Token)
	assert.Equal(t, 2, bc.MaxRetries)

	cfg.DataBackend = "sqlite"
	_, err = FromAppConfig(cfg)
	assert.Error(t, err)
}
