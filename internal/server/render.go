package server

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/askweb/internal/helpers"
)

//go:embed templates/*.html
var templateFS embed.FS

type renderer struct {
	templates *template.Template
}

func newRenderer() (*renderer, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"timefmt":  timefmt,
		"markdown": markdown,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &renderer{templates: t}, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// markdown renders an answer as sanitized HTML.
func markdown(s string) template.HTML {
	return template.HTML(helpers.RenderMarkdown(s))
}
