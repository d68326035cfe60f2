package bootstrap

import (
	"embed"
	"io/fs"
	"text/template"
)

//go:embed files templates
var bundleFS embed.FS

// unitTemplates holds every templates/*.tmpl, keyed by base name.
var unitTemplates = template.Must(template.New("units").Option("missingkey=error").ParseFS(bundleFS, "templates/*.tmpl"))

// seedVocabulary is the word list shipped next to config.yaml for the file
// suggestion source.
func seedVocabulary() ([]byte, error) {
	return fs.ReadFile(bundleFS, "files/vocabulary.txt")
}
