package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"github.com/swimforge/garminbridge/api"
	"github.com/swimforge/garminbridge/auth"
	"github.com/swimforge/garminbridge/config"
	"github.com/swimforge/garminbridge/provider/garmin"
)

var (
	port     int
	tokenDir string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the bridge server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.FromEnv()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}
		if cmd.Flags().Changed("token-dir") {
			cfg.TokenDir = tokenDir
		}

		log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		var tokens auth.TokenStore
		switch cfg.TokenBackend {
		case "bolt":
			if err := os.MkdirAll(cfg.TokenDir, 0o700); err != nil {
				return fmt.Errorf("creating token directory: %w", err)
			}
			store, err := auth.NewBoltTokenStore(filepath.Join(cfg.TokenDir, "tokens.db"), cfg.ServiceSecret)
			if err != nil {
				return fmt.Errorf("opening token store: %w", err)
			}
			defer store.Close()
			tokens = store
		default:
			store, err := auth.NewFileTokenStore(cfg.TokenDir, cfg.ServiceSecret)
			if err != nil {
				return fmt.Errorf("opening token store: %w", err)
			}
			tokens = store
		}

		mgr := auth.NewManager(garmin.NewAuthenticator(), tokens,
			auth.WithLogger(log),
			auth.WithChallengeTTL(cfg.ChallengeTTL))

		a := api.New(mgr, cfg.ServiceSecret, api.WithLogger(log))

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key"},
			AllowCredentials: true,
		}))
		r.Mount("/", a.Router())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		log.Info("starting garmin bridge",
			"version", Version, "port", cfg.Port, "token_backend", cfg.TokenBackend)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			log.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8000, "Port to listen on")
	serverCmd.Flags().StringVar(&tokenDir, "token-dir", "./tokens", "Directory for persisted credentials")
}
