package httpapi

import (
	"net/http"
	"path"
	"strings"
)

// cleanBasePath turns a configured mount point into "" or "/a[/b...]".
func cleanBasePath(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	cleaned := path.Clean("/" + value)
	if cleaned == "/" {
		return ""
	}
	return cleaned
}

// baseHref is the <base> target of the index page. Asset and API URLs in the
// UI are relative and resolve below it.
func baseHref(baseURL, basePath string) string {
	origin := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	mountPoint := cleanBasePath(basePath)
	if origin == "" && mountPoint == "" {
		return ""
	}
	return origin + mountPoint + "/"
}

// mount serves h below basePath. The bare mount point redirects to its
// trailing-slash form.
func mount(basePath string, h http.Handler) http.Handler {
	if basePath == "" {
		return h
	}
	mux := http.NewServeMux()
	mux.Handle(basePath+"/", http.StripPrefix(basePath, h))
	mux.HandleFunc(basePath, func(w http.ResponseWriter, r *http.Request) {
		target := basePath + "/"
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	})
	return mux
}
