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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/veritas/internal/application/session"
	"github.com/bryanwahyu/veritas/internal/infra/httpserver"
	"github.com/bryanwahyu/veritas/internal/logger"
	"github.com/bryanwahyu/veritas/internal/middleware"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := build(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		mux := chi.NewRouter()
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
		mux.Use(middleware.LoggingMiddleware)
		mux.Use(middleware.MetricsMiddleware)
		mux.Use(middleware.APIKeyAuth(apiKeys(cfg.Server.APIKeys)))
		if cfg.Server.RateLimit > 0 {
			limiter := middleware.NewRateLimiter(cfg.Server.RateBurst, cfg.Server.RateLimit)
			go limiter.RunSweeper(ctx, 5*time.Minute)
			mux.Use(middleware.RateLimitMiddleware(limiter))
		}
		mux.Mount("/", httpserver.NewRouter(httpserver.Deps{
			Service:  a.service,
			Sessions:       session.NewRegistry(cfg.Server.SessionTTL),
			Archive:        a.archive,
			Checkers:       a.checkers,
			Ready:          a.ready,
			AnalyzeTimeout: cfg.Server.AnalyzeTimeout,
		}))

		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		}

		errc := make(chan error, 1)
		go func() {
			logger.Log.WithField("addr", addr).Info("[http] server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
			close(errc)
		}()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}
		logger.Log.Info("[http] shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// apiKeys names configured keys by position so logs never show the key itself.
func apiKeys(keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for i, k := range keys {
		if k != "" {
			out[fmt.Sprintf("client-%d", i+1)] = k
		}
	}
	return out
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
