// Package web serves the embedded browser chat client.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// Handler serves the chat client from the embedded filesystem, with
// index.html at the root path.
func Handler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// embed guarantees the directory exists at compile time.
		panic(fmt.Sprintf("web: failed to create sub-filesystem: %v", err))
	}
	return http.FileServer(http.FS(sub))
}
