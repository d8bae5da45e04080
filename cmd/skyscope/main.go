package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/curbz/skyscope/internal/history"
	"github.com/curbz/skyscope/internal/ingest"
	"github.com/curbz/skyscope/internal/server"
	"github.com/curbz/skyscope/internal/watch"
	"github.com/curbz/skyscope/pkg/util"
)

var (
	configPath      = flag.String("config", "config.yaml", "path to YAML configuration")
	httpAddr        = flag.String("addr", "", "override server.addr from the config")
	feedAddr        = flag.String("feed", "", "override feed.addr from the config")
	shutdownTimeout = flag.Duration("shutdown_timeout", 10*time.Second, "HTTP server shutdown timeout")
)

type config struct {
	Feed    ingest.Config `yaml:"feed"`
	History struct {
		Capacity int `yaml:"capacity"`
	} `yaml:"history"`
	Server server.Config `yaml:"server"`
	Log    logConfig     `yaml:"log"`
}

type logConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

func main() {
	flag.Parse()

	cfg := loadConfig()
	setupLogging(cfg.Log)

	hist := history.New(cfg.History.Capacity)
	bc := watch.New()
	ing := ingest.New(cfg.Feed, hist, bc)
	srv := server.New(cfg.Server, hist, bc, ing)

	httpSrv := &http.Server{
		Addr:              srv.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logrus.Infof("serving on http://localhost%s/", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		// An ingest failure degrades the service to stale data; it must not
		// take the HTTP layer down with it.
		if err := ing.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			logrus.WithError(err).Error("ingestion terminated")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		bc.Close()
		shCtx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil {
		logrus.Fatalf("shutdown error: %v", err)
	}
	logrus.Info("shut down cleanly")
}

func loadConfig() *config {
	cfg, err := util.LoadConfig[config](*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logrus.Warnf("config %s not found, using defaults", *configPath)
			cfg = &config{}
		} else {
			logrus.Fatalf("error reading configuration file: %v", err)
		}
	}
	if *httpAddr != "" {
		cfg.Server.Addr = *httpAddr
	}
	if *feedAddr != "" {
		cfg.Feed.Addr = *feedAddr
	}
	return cfg
}

func setupLogging(cfg logConfig) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Level != "" {
		lvl, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			logrus.Fatalf("invalid log level %q: %v", cfg.Level, err)
		}
		logrus.SetLevel(lvl)
	}
	if cfg.File != "" {
		logrus.SetOutput(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		})
	}
}
