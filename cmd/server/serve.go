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

	"github.com/spf13/cobra"

	"studio-portal/internal/auth"
	"studio-portal/internal/server"
	ws "studio-portal/internal/websocket"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the portal HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return serve(cmd.Context(), ctx)
		},
	}
}

func serve(parent context.Context, c *commandContext) error {
	if parent == nil {
		parent = context.Background()
	}
	sigCtx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := c.logger
	db, err := c.openDB(sigCtx)
	if err != nil {
		return err
	}
	defer db.Close()

	issuer, err := auth.NewIssuer([]byte(c.cfg.JWTSecret), c.cfg.TokenTTL)
	if err != nil {
		return err
	}

	hub := ws.NewHub(logger)
	go hub.Run(sigCtx)

	srv := &http.Server{
		Addr: c.cfg.Addr,
		Handler: server.New(server.Options{
			DB:            db,
			Issuer:        issuer,
			Hub:           hub,
			MediaDir:      c.cfg.MediaDir,
			ThumbnailSize: c.cfg.ThumbnailSize,
			CookieSecure:  c.cfg.CookieSecure,
			Logger:        logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("portal listening", "addr", c.cfg.Addr, "db", c.cfg.DBPath, "media", c.cfg.MediaDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-sigCtx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
