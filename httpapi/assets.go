package httpapi

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"
)

//go:embed assets/index.html assets/app.js assets/style.css
var embeddedAssets embed.FS

var (
	staticFS  = subFS(embeddedAssets, "assets")
	indexPage = template.Must(template.ParseFS(embeddedAssets, "assets/index.html"))
	// Embedded files carry no mtime; the process start stands in for it.
	assetsModTime = time.Now()
)

func subFS(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

type indexData struct {
	BaseHref string
}

func renderIndex(data indexData) ([]byte, error) {
	var buf bytes.Buffer
	if err := indexPage.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// staticHandler serves app.js and style.css. index.html is a template and
// only reachable through the index route.
func staticHandler() http.Handler {
	files := http.FileServer(http.FS(staticFS))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "index.html" || r.URL.Path == "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	})
}
