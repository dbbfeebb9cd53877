package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/geniass/price-tracker/pkg/config"
	"github.com/geniass/price-tracker/pkg/logger"
	"github.com/geniass/price-tracker/pkg/scheduler"
	"github.com/geniass/price-tracker/pkg/store"
	"github.com/geniass/price-tracker/pkg/web"
	"github.com/gin-gonic/gin"
	cli "github.com/jawher/mow.cli"
	"go.uber.org/zap"
)

func main() {
	app := cli.App("price-tracker", "Watch product pages and email when a price drops to its target")

	configDir := app.String(cli.StringOpt{
		Name:   "c config",
		Value:  ".",
		Desc:   "directory holding config.yaml and .env",
		EnvVar: config.EnvPrefix + "_CONFIG_DIR",
	})

	var (
		cfg config.Config
		log *zap.Logger
	)

	app.Before = func() {
		var err error
		cfg, err = config.LoadConfig(*configDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "loading config:", err)
			cli.Exit(1)
		}
		log, err = logger.New(cfg.Log.Env)
		if err != nil {
			fmt.Fprintln(os.Stderr, "building logger:", err)
			cli.Exit(1)
		}
	}

	app.Command("run", "run the scheduled checker and the web dashboard", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			defer log.Sync()
			if err := run(cfg, log); err != nil {
				log.Error("run failed", zap.Error(err))
				cli.Exit(1)
			}
		}
	})

	app.Command("check", "run one check cycle and exit", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			defer log.Sync()
			if err := checkOnce(cfg, log); err != nil {
				log.Error("check failed", zap.Error(err))
				cli.Exit(1)
			}
		}
	})

	app.Command("list ls", "list tracked products", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			t, err := newStoreTracker(cfg, log)
			if err != nil {
				fail(err)
			}
			ps, err := t.List()
			if err != nil {
				fail(err)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "URL\tTARGET")
			for _, p := range ps {
				fmt.Fprintf(w, "%s\t$%s\n", p.URL, p.TargetPrice.StringFixed(2))
			}
			w.Flush()
		}
	})

	app.Command("add", "track a product", func(cmd *cli.Cmd) {
		cmd.Spec = "URL PRICE"
		url := cmd.StringArg("URL", "", "product page URL")
		price := cmd.StringArg("PRICE", "", "target price")

		cmd.Action = func() {
			t, err := newStoreTracker(cfg, log)
			if err != nil {
				fail(err)
			}
			target, err := store.ParseTargetPrice(*price)
			if err != nil {
				fail(err)
			}
			if err := t.Add(*url, target); err != nil {
				fail(err)
			}
			fmt.Printf("tracking %s at $%s\n", store.ShortURL(*url), target.StringFixed(2))
		}
	})

	app.Command("remove rm", "stop tracking a product", func(cmd *cli.Cmd) {
		cmd.Spec = "URL"
		url := cmd.StringArg("URL", "", "product page URL")

		cmd.Action = func() {
			t, err := newStoreTracker(cfg, log)
			if err != nil {
				fail(err)
			}
			removed, err := t.Remove(*url)
			if err != nil {
				fail(err)
			}
			if !removed {
				fmt.Printf("%s was not tracked\n", *url)
				return
			}
			fmt.Printf("removed %s\n", *url)
		}
	})

	app.Command("edit", "change a tracked product's URL or target price", func(cmd *cli.Cmd) {
		cmd.Spec = "OLD_URL NEW_URL PRICE"
		oldURL := cmd.StringArg("OLD_URL", "", "currently tracked URL")
		newURL := cmd.StringArg("NEW_URL", "", "replacement URL (repeat OLD_URL to keep it)")
		price := cmd.StringArg("PRICE", "", "new target price")

		cmd.Action = func() {
			t, err := newStoreTracker(cfg, log)
			if err != nil {
				fail(err)
			}
			target, err := store.ParseTargetPrice(*price)
			if err != nil {
				fail(err)
			}
			if err := t.Edit(*oldURL, *newURL, target); err != nil {
				fail(err)
			}
			fmt.Printf("updated %s\n", store.ShortURL(*newURL))
		}
	})

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	cli.Exit(1)
}

func checkOnce(cfg config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	t, err := newTracker(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, unsubscribe := t.Subscribe()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for e := range events {
			fmt.Printf("%s [%s] %s\n", e.Time.Local().Format("15:04:05"), e.Severity, e.Message)
		}
	}()

	s, err := t.RunCycle(ctx)
	unsubscribe()
	<-printed
	if err != nil {
		return err
	}
	fmt.Printf("checked %d, alerts %d, skipped %d, failed alerts %d\n", s.Checked, s.Alerts, s.Skipped, s.Failed)
	return nil
}

func run(cfg config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	t, err := newTracker(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx, cfg.Check.Interval, log, func(ctx context.Context) {
			s, err := t.RunCycle(ctx)
			if err != nil {
				log.Error("check cycle failed", zap.Error(err))
				return
			}
			log.Info("check cycle done",
				zap.String("cycle_id", s.CycleID),
				zap.Int("checked", s.Checked),
				zap.Int("alerts", s.Alerts),
				zap.Int("skipped", s.Skipped),
				zap.Bool("shared", s.Shared),
			)
		})
	}()

	if !cfg.Web.Enabled {
		<-ctx.Done()
		log.Info("shutdown signal received")
		wg.Wait()
		return nil
	}

	if cfg.Log.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    cfg.Web.Addr,
		Handler: web.NewServer(t, log, "").Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("web server started", zap.String("addr", cfg.Web.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			stop()
			wg.Wait()
			return fmt.Errorf("web server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("web server shutdown", zap.Error(err))
	}

	wg.Wait()
	log.Info("graceful shutdown complete")
	return nil
}
