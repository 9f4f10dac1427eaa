package server

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed all:static
var staticFS embed.FS

const staticDir = "static"

// staticHandler serves the embedded server UI with an index.html
// fallback for unknown paths, adapted from the teacher's embedded
// frontend handler: missing files under assets/ still 404 instead of
// silently falling back, so a broken build is visible as a 404 rather
// than a misleading 200 of the wrong page.
func staticHandler() http.Handler {
	subFS, err := fs.Sub(staticFS, staticDir)
	if err != nil {
		panic("embedded static sub filesystem: " + err.Error())
	}
	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		urlPath := strings.TrimPrefix(r.URL.Path, "/")
		if urlPath == "" {
			urlPath = "index.html"
		}

		if f, err := subFS.Open(urlPath); err == nil {
			info, statErr := f.Stat()
			f.Close()
			if statErr == nil && info.IsDir() {
				http.NotFound(w, r)
				return
			}
			if strings.HasPrefix(urlPath, "assets/") {
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			} else {
				w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			}
			fileServer.ServeHTTP(w, r)
			return
		}

		if strings.HasPrefix(urlPath, "assets/") {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		r.URL.Path = "/index.html"
		fileServer.ServeHTTP(w, r)
	})
}
