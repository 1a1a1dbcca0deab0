package ui

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-analytics/internal/ui/assets"
)

func TestVersionedAsset(t *testing.T) {
	fsys := fstest.MapFS{
		"css/app.css": {Data: []byte("body{}")},
		"css/alt.css": {Data: []byte("main{}")},
	}

	a := versionedAsset(fsys, "css/app.css")
	assert.Regexp(t, `^/static/css/app\.css\?v=[0-9a-f]{12}$`, a)
	assert.Equal(t, a, versionedAsset(fsys, "css/app.css"))
	assert.NotEqual(t, a[len(a)-12:], versionedAsset(fsys, "css/alt.css")[len(a)-12:])

	assert.Equal(t, "/static/css/missing.css", versionedAsset(fsys, "css/missing.css"))
}

func TestStaticAssets_ContainStylesheet(t *testing.T) {
	_, err := fs.Stat(assets.Static(), stylesheetFile)
	require.NoError(t, err)
	assert.Contains(t, stylesheetHref(), "/static/css/app.css?v=")
}
