package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/geniass/price-tracker/pkg/config"
	"github.com/geniass/price-tracker/pkg/store"
	"github.com/geniass/price-tracker/pkg/web"
	cli "github.com/jawher/mow.cli"
)

// generate-web writes a read-only snapshot of the tracked products, suitable
// for static hosting.
func main() {
	app := cli.App("generate-web", "Render the tracked products to a static HTML page")

	var (
		configDir  = app.StringOpt("c config", ".", "directory holding config.yaml and .env")
		outputDir  = app.StringOpt("o output-dir", "docs", "directory to write rendered HTML to")
		pathPrefix = app.StringOpt("path-prefix", "", "prefix page link URLs (in case pages are hosted at a subpath); should start with '/'")
	)

	app.Action = func() {
		if err := generate(*configDir, *outputDir, *pathPrefix); err != nil {
			fmt.Fprintln(os.Stderr, err)
			cli.Exit(1)
		}
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func generate(configDir, outputDir, pathPrefix string) error {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	ps, err := st.List()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, os.ModeDir|0775); err != nil {
		return err
	}

	return renderToFile(outputDir, "index.html", func(w io.Writer) error {
		return web.RenderDashboard(w, web.DashboardContext{
			BaseContext: web.BaseContext{PathPrefix: pathPrefix},
			Products:    ps,
			LastUpdated: time.Now(),
			Static:      true,
		})
	})
}

func renderToFile(dir string, filename string, renderFunc func(w io.Writer) error) error {
	f, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return err
	}
	defer f.Close()

	if err := renderFunc(f); err != nil {
		return err
	}
	return nil
}
