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

	"chatbot_server/server/chat/app"
	commonauth "chatbot_server/server/common/auth"
	cmnenv "chatbot_server/server/common/env"
	commonlog "chatbot_server/server/common/log"
)

func main() {
	dotenvErr := cmnenv.LoadDotEnv()
	commonlog.Configure()
	if dotenvErr != nil {
		commonlog.Warnf("event=dotenv action=load status=failed error=%v", dotenvErr)
	}
	cfg := app.LoadConfig()

	rootCmd := &cobra.Command{
		Use:   "chatbot",
		Short: "Boarding house chat service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Host, _ = cmd.Flags().GetString("host")
			cfg.Port, _ = cmd.Flags().GetString("port")
			return serve(cfg)
		},
	}
	rootCmd.Flags().String("host", cfg.Host, "Interface to listen on")
	rootCmd.Flags().StringP("port", "p", cfg.Port, "Port to listen on")

	tokenCmd := &cobra.Command{
		Use:   "token <user_id>",
		Short: "Issue an access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			auth := commonauth.NewService(cfg.JWTSecret, cfg.JWTTTLMinutes)
			if !auth.Enabled() {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			token, err := auth.GenerateToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	rootCmd.AddCommand(tokenCmd)

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

	if err := server.Shutdown(shutdownCtx); err != nil {
		commonlog.Warnf("event=http_server action=shutdown status=failed error=%v", err)
	}
	commonlog.Infof("event=http_server action=stop")
	return nil
}
