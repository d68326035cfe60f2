package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCleanBasePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"  ", ""},
		{"cmdweb", "/cmdweb"},
		{"/cmdweb", "/cmdweb"},
		{"/cmdweb/", "/cmdweb"},
		{"tools//cmdweb/", "/tools/cmdweb"},
		{"/a/../term", "/term"},
	}
	for _, tc := range cases {
		if got := cleanBasePath(tc.in); got != tc.want {
			t.Fatalf("cleanBasePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBaseHref(t *testing.T) {
	cases := []struct {
		baseURL  string
		basePath string
		want     string
	}{
		{"", "", ""},
		{"", "/cmdweb", "/cmdweb/"},
		{"", "cmdweb", "/cmdweb/"},
		{"https://example.com", "", "https://example.com/"},
		{"https://example.com/", "cmdweb", "https://example.com/cmdweb/"},
		{"https://example.com/base", "/x", "https://example.com/base/x/"},
	}
	for _, tc := range cases {
		if got := baseHref(tc.baseURL, tc.basePath); got != tc.want {
			t.Fatalf("baseHref(%q, %q) = %q, want %q", tc.baseURL, tc.basePath, got, tc.want)
		}
	}
}

func TestMountRedirectKeepsQuery(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	})
	h := mount("/term", inner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/term?x=1", nil))
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/term/?x=1" {
		t.Fatalf("unexpected redirect %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/term/api/state", nil))
	if rec.Body.String() != "/api/state" {
		t.Fatalf("expected stripped path, got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 outside the mount point, got %d", rec.Code)
	}
}
