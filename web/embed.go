// Package web carries the embeddable widget assets. The JS is the hardened
// variant: it posts to the proxy endpoint with an anti-forgery token and
// never sees the webhook URL or the session identifier.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// Handler serves the widget assets. Mount under /widget/.
func Handler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
