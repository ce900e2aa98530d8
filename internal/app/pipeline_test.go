package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webintel/internal/usecase/scrape"
)

func TestBuild(t *testing.T) {
	t.Setenv("CACHE_DIR", t.TempDir())
	t.Setenv("SCRAPE_CONCURRENCY", "2")

	p, err := Build(nil)
	require.NoError(t, err)
	require.NotNil(t, p.Service)
	assert.True(t, p.Cache.Config().Enabled)

	// private targets are refused before any network I/O
	res := p.Service.Scrape(context.Background(), "http://127.0.0.1:8080/admin")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, scrape.ErrSSRFBlocked)
}

func TestBuild_InvalidConfig(t *testing.T) {
	t.Setenv("CACHE_DIR", t.TempDir())
	t.Setenv("REDDIT_MAX_DEPTH", "0")

	_, err := Build(nil)
	assert.Error(t, err)
}
