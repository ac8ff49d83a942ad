package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"letsblog/internal/bootstrap"
	"letsblog/internal/config"
	"letsblog/internal/models"
	"letsblog/internal/observability"
	"letsblog/internal/service"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "letsblog",
		Short:         "A toy blog with in-memory posts, comments and reactions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newDemoCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		port      string
		configDir string
		seedPosts int
		seedValue int64
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var paths []string
			if configDir != "" {
				paths = append(paths, configDir)
			}
			cfg, err := config.LoadConfig(paths...)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if port != "" {
				cfg.Port = port
			}
			observability.Configure(cfg.Env, cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, bootstrap.Options{SeedPosts: seedPosts, SeedValue: seedValue})
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	cmd.Flags().StringVar(&configDir, "config-dir", "", "directory holding .env and config.yml")
	cmd.Flags().IntVar(&seedPosts, "seed", 0, "seed this many fake posts (overrides SEED_DEMO_POSTS)")
	cmd.Flags().Int64Var(&seedValue, "seed-value", 0, "random seed for demo content")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, opts bootstrap.Options) error {
	rt, err := bootstrap.InitRuntime(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	srv, err := rt.NewServer()
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	observability.Logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		observability.Logger.Error("Server shutdown error", "error", err)
	}
	return nil
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the alice walkthrough against an in-memory store and print the snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

// runDemo signs alice up, posts, likes twice, comments and prints the
// resulting snapshot as JSON.
func runDemo(ctx context.Context, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store := service.NewInMemoryContentStore(service.WithLogger(observability.NewLogger(io.Discard, "", "error")))
	defer store.Close()

	if _, err := store.Signup(ctx, "alice", "pw1"); err != nil {
		return err
	}
	id, err := store.CreatePost(ctx, "Hello", "World", string(models.CategoryGeneral))
	if err != nil {
		return err
	}
	for i := 0; i < 2; i++ {
		if err := store.Like(ctx, id); err != nil {
			return err
		}
	}
	if _, err := store.AddComment(ctx, id, "nice"); err != nil {
		return err
	}

	snap, err := store.Snapshot(ctx, "")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

