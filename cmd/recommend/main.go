package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	cmnenv "chatbot_server/server/common/env"
	commonlog "chatbot_server/server/common/log"
	"chatbot_server/server/recommend/app"
)

func main() {
	dotenvErr := cmnenv.LoadDotEnv()
	commonlog.Configure()
	if dotenvErr != nil {
		commonlog.Warnf("event=dotenv action=load status=failed error=%v", dotenvErr)
	}
	cfg := app.LoadConfig()

	rootCmd := &cobra.Command{
		Use:   "recommend",
		Short: "Nearest-listing recommendation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Host, _ = cmd.Flags().GetString("host")
			cfg.Port, _ = cmd.Flags().GetString("port")
			cfg.ListingsSource, _ = cmd.Flags().GetString("listings")
			return serve(cfg)
		},
	}
	rootCmd.Flags().String("host", cfg.Host, "Interface to listen on")
	rootCmd.Flags().StringP("port", "p", cfg.Port, "Port to listen on")
	rootCmd.Flags().StringP("listings", "l", cfg.ListingsSource, "Listings source: builtin, a YAML/JSON file or minio://bucket/key")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(cfg app.Config) error {
	server, err := app.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		commonlog.Infof("event=http_server action=start addr=%s", server.HTTPServer.Addr)
		if err := server.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			commonlog.Fatalf("event=http_server action=run status=failed error=%v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
