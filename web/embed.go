// Package web embeds the static dashboard for serving from the Go binary.
//
// The dashboard is a single static page talking to the JSON API; it is
// embedded at compile-time with go:embed and mounted by the API server.
package web

import (
	"embed"
	"io/fs"
	"log"
)

//go:embed all:out
var dist embed.FS

// DistFS returns a filesystem rooted at the embedded out/ directory,
// ready to use with http.FileServerFS.
func DistFS() fs.FS {
	sub, err := fs.Sub(dist, "out")
	if err != nil {
		log.Fatalf("web.DistFS: %v", err)
	}
	return sub
}
