package api

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

//go:embed static
var embeddedStatic embed.FS

const indexFile = "index.html"

func defaultStatic() fs.FS {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// StaticDir returns the bundle in dir, or nil when dir is empty.
func StaticDir(dir string) fs.FS {
	if dir == "" {
		return nil
	}
	return os.DirFS(dir)
}

// HandleStatic serves files from bundle. Paths that do not name a file get
// index.html so client-side routes survive a reload.
func HandleStatic(bundle fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+chi.URLParam(r, "*")), "/")
		if name == "" {
			name = indexFile
		}

		info, err := fs.Stat(bundle, name)
		if err != nil || info.IsDir() {
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				respondError(w, http.StatusInternalServerError, "Failed to read static bundle")
				return
			}
			name = indexFile
		}

		http.ServeFileFS(w, r, bundle, name)
	}
}
