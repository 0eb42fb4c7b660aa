// shopchat is a terminal client for the shopping assistant. It restores the
// stored credential on start, then reads commands and messages from stdin.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/shopassist/shopchat/internal/app"
	"github.com/shopassist/shopchat/internal/pkg/config"
	"github.com/shopassist/shopchat/internal/terminal"
	"github.com/shopassist/shopchat/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	flagSet := pflag.NewFlagSet("shopchat", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "backend base URL")
	flagSet.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	flagSet.StringVar(&cfg.Credentials.Store, "store", cfg.Credentials.Store, "credential store: file, redis or mongo")
	flagSet.StringVar(&cfg.Credentials.Path, "credentials", cfg.Credentials.Path, "credential file for the file store")
	flagSet.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: trace, debug, info, warn, error, off")
	flagSet.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (empty disables)")
	width := flagSet.Int("width", 100, "word wrap width for assistant replies")
	plain := flagSet.Bool("plain", false, "print assistant replies without markdown rendering")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "shopchat",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, log)
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	var renderer terminal.Renderer = terminal.PlainRenderer{}
	if !*plain {
		if r, err := terminal.NewMarkdownRenderer(*width); err == nil {
			renderer = r
		} else {
			log.Warn().Err(err).Msg("markdown renderer unavailable")
		}
	}

	shell := terminal.NewShell(a.Auth, a.Chat, renderer, os.Stdin, os.Stdout)
	if err := shell.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func serveMetrics(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
