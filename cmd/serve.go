package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	srv "github.com/mohammad-safakhou/askweb/internal/server"
	"github.com/spf13/cobra"
)

func serveCMD(flags *globalFlags) *cobra.Command {
	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the web search assistant HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				a.Close(shutdownCtx)
			}()

			sessions, err := a.newSessionStore(ctx)
			if err != nil {
				return err
			}
			e, err := srv.New(srv.Options{
				Pipeline:   a.pipeline,
				Sessions:   sessions,
				SessionTTL: cfg.Session.TTL,
				CookieName: cfg.Session.CookieName,
				Gatherer:   a.registry,
				RateLimit:  cfg.Server.RateLimit,
				RateBurst:  cfg.Server.RateBurst,
				Logger:     log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
			})
			if err != nil {
				return err
			}
			return srv.Run(ctx, e, cfg.Server.Address)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")

	return serve
}
