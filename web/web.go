// Package web embeds the staff and admin HTML templates.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates
var files embed.FS

var funcs = template.FuncMap{
	"clock": func(t time.Time) string { return t.Format("15:04 02 Jan") },
}

// Templates parses the staff index page and the admin pages by name.
func Templates() (*template.Template, map[string]*template.Template, error) {
	index, err := template.New("index.html").Funcs(funcs).ParseFS(files, "templates/index.html")
	if err != nil {
		return nil, nil, fmt.Errorf("parse index: %w", err)
	}

	admin := make(map[string]*template.Template)
	for _, name := range []string{"login", "dashboard"} {
		t, err := template.New(name+".html").Funcs(funcs).ParseFS(files, "templates/admin/"+name+".html")
		if err != nil {
			return nil, nil, fmt.Errorf("parse admin %s: %w", name, err)
		}
		admin[name] = t
	}
	return index, admin, nil
}
