// shopchat-mockserver runs the in-memory reference backend on PORT, serving
// the authentication and chatbot API under /api.
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

	"github.com/spf13/pflag"

	"github.com/shopassist/shopchat/internal/api"
	"github.com/shopassist/shopchat/internal/api/backend"
	"github.com/shopassist/shopchat/internal/pkg/config"
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

	flagSet := pflag.NewFlagSet("shopchat-mockserver", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "listen port")
	flagSet.StringVar(&cfg.Server.JWTSecret, "jwt-secret", cfg.Server.JWTSecret, "HS256 signing secret")
	flagSet.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Output:  os.Stdout,
		Service: "shopchat-mockserver",
	})

	e := api.NewRouter(api.Options{
		Accounts: backend.NewAccounts(cfg.Server.JWTSecret),
		Chats:    backend.NewChats(),
		Log:      log,
		Metrics:  true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("reference backend listening")
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
