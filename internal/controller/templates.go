package controller

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the page templates shipped with the binary.
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}
