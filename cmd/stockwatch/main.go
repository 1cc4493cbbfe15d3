package main

import (
	"context"
	"flag"
	"log"
	"os"

	"stockwatch/internal/browser"
	"stockwatch/internal/config"
	"stockwatch/internal/detector"
	"stockwatch/internal/logbus"
	"stockwatch/internal/notify"
	"stockwatch/internal/runner"
	"stockwatch/internal/statuslog"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := run(cfg); err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	bus := logbus.New(200)
	bus.AddSink(os.Stderr)
	if cfg.Log.Path != "" {
		f, err := os.OpenFile(cfg.Log.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			bus.Log("warn", "cannot open run log file", map[string]any{
				"path":  cfg.Log.Path,
				"error": err.Error(),
			})
		} else {
			bus.AddSink(f)
			defer f.Close()
		}
	}

	var status *statuslog.Writer
	if cfg.StatusLogPath == "" {
		bus.Log("warn", "status log path not configured, file logging disabled", nil)
	} else {
		var err error
		status, err = statuslog.Open(cfg.StatusLogPath)
		if err != nil {
			bus.Log("warn", "cannot open status log", map[string]any{
				"path":  cfg.StatusLogPath,
				"error": err.Error(),
			})
		} else {
			defer status.Close()
		}
	}

	var email *notify.EmailReporter
	if cfg.Email.Enabled {
		email = notify.NewEmailReporter(cfg.Email, bus)
	}

	r := runner.New(runner.Options{
		Cfg:    cfg,
		Bus:    bus,
		Pusher: notify.NewPushover(cfg.Pushover, bus),
		Status: status,
		Email:  email,
		OpenSession: func() (runner.Session, error) {
			s, err := browser.Open(cfg.Browser, bus)
			if err != nil {
				return nil, err
			}
			return browserSession{s}, nil
		},
	})
	return r.Run(context.Background())
}

// browserSession adapts *browser.Session to the runner's Session interface.
type browserSession struct {
	*browser.Session
}

func (s browserSession) Page() (detector.Page, error) {
	return s.Session.Page()
}
