// Package static embeds the operator page served at the web root.
package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed dist
var distFS embed.FS

// FS returns the embedded dist directory.
func FS() fs.FS {
	fsys, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic(err)
	}
	return fsys
}

// Handler serves the embedded files.
func Handler() http.Handler {
	return http.FileServerFS(FS())
}
