package http

import (
	"net/http"
	"path"

	"github.com/spf13/afero"
)

// newStaticHandler serves the front-end build from dir. Unknown paths and
// directories get index.html so client-side routes resolve.
func newStaticHandler(fs afero.Fs, dir string) http.HandlerFunc {
	root := afero.NewHttpFs(fs).Dir(dir)
	files := http.FileServer(root)

	serveIndex := func(w http.ResponseWriter, r *http.Request) {
		f, err := root.Open("/index.html")
		if err != nil {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		http.ServeContent(w, r, "index.html", info.ModTime(), f)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		f, err := root.Open(name)
		if err != nil {
			serveIndex(w, r)
			return
		}
		info, err := f.Stat()
		f.Close()
		if err != nil || info.IsDir() || name == "/index.html" {
			serveIndex(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}
}
