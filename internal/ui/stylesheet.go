package ui

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"sync"

	"invoice-analytics/internal/ui/assets"
)

const stylesheetFile = "css/app.css"

var stylesheetHref = sync.OnceValue(func() string {
	return versionedAsset(assets.Static(), stylesheetFile)
})

// versionedAsset returns the /static/ URL of name with a content hash query
// so browsers refetch the file after a deploy. A missing file yields the
// bare URL.
func versionedAsset(fsys fs.FS, name string) string {
	href := "/static/" + name
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return href
	}
	sum := sha256.Sum256(b)
	return href + "?v=" + hex.EncodeToString(sum[:6])
}
