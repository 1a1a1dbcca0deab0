// Package assets holds the stylesheet and other files the dashboard and
// chat pages load from /static/.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed static
var embedded embed.FS

// Static returns the files served under /static/, so "css/app.css" is
// reachable as /static/css/app.css.
func Static() fs.FS {
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		panic(err) // the directory is embedded above
	}
	return sub
}
