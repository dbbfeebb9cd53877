package web

import (
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/geniass/price-tracker/pkg/model"
	"github.com/geniass/price-tracker/pkg/store"
)

//go:embed templates
var templatesFs embed.FS

var funcs = template.FuncMap{
	"shortURL": store.ShortURL,
	"clock": func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04:05")
	},
}

type BaseContext struct {
	PathPrefix string
}

type DashboardContext struct {
	BaseContext
	Products    []model.Product
	Events      []model.Event
	Error       string
	LastUpdated time.Time
	// Static drops the forms and the live event stream for pages written to disk.
	Static bool
}

func (c DashboardContext) FormattedLastUpdated() string {
	return c.LastUpdated.Local().Format("2006-01-02T15:04:05 MST")
}

func RenderDashboard(w io.Writer, c DashboardContext) error {
	t, err := template.New("index.html.tpl").Funcs(funcs).ParseFS(templatesFs, "templates/index.html.tpl")
	if err != nil {
		return err
	}
	t, err = t.ParseFS(templatesFs, "templates/common/*")
	if err != nil {
		return err
	}

	err = t.Execute(w, c)
	if err != nil {
		return err
	}
	return nil
}
