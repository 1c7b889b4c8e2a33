package web

import (
	"embed"
	"html/template"
)

//go:embed index.html
var files embed.FS

// IndexTemplate returns the parsed index page template.
func IndexTemplate() *template.Template {
	return template.Must(template.ParseFS(files, "index.html"))
}
