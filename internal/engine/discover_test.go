package engine

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_FindsReferencedDirs(t *testing.T) {
	fsys := memfs.New()
	files := map[string]string{
		"assets/js/app.js":    "var app;",
		"assets/img/logo.png": "png",
		"assets/unused.css":   "body {}",
		"templates/index.html": "<script src=\"js/app.js\"></script><img src=\"img/logo.png\">",
		"docs/readme.md":       "no resource references here",
	}
	for p, content := range files {
		require.NoError(t, util.WriteFile(fsys, p, []byte(content), 0o644))
	}

	cfg, err := Discover(context.Background(), fsys)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"assets/js", "assets/img"}, cfg.StaticDirs)
	assert.Equal(t, []string{"templates"}, cfg.CodeDirs)
	assert.NotEmpty(t, cfg.Marker, "defaults must be applied to the proposal")
}

func TestDiscover_EmptyProject(t *testing.T) {
	cfg, err := Discover(context.Background(), memfs.New())
	require.NoError(t, err)
	assert.Empty(t, cfg.StaticDirs)
	assert.Empty(t, cfg.CodeDirs)
}

func TestDiscover_IgnoresVendoredTrees(t *testing.T) {
	fsys := memfs.New()
	files := map[string]string{
		"lib/vendor/jquery.js": "var $;",
		"assets/app.js":        "var app;",
		"pages/index.html":     "<script src=\"app.js\"></script>",
	}
	for p, content := range files {
		require.NoError(t, util.WriteFile(fsys, p, []byte(content), 0o644))
	}

	cfg, err := Discover(context.Background(), fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"assets"}, cfg.StaticDirs)
	assert.Equal(t, []string{"pages"}, cfg.CodeDirs)
}
