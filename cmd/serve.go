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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/YalmanchiliTejas/Product-manager/internal/api"
	"github.com/YalmanchiliTejas/Product-manager/internal/daemon"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the session API under /api/v1.
Sessions created over HTTP carry their documents in the request body and
are persisted to the database, so interrupted flows can be resumed by
later requests. By default it listens on port 8080.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func serveRun(ctx context.Context) error {
	a, err := buildApp(nil)
	if err != nil {
		return err
	}

	pf := daemon.NewPIDFile(daemon.DefaultPIDPath())
	if pid, running := pf.IsRunning(); running {
		return fmt.Errorf("pma server already running (pid %d)", pid)
	}
	if err := os.MkdirAll(filepath.Dir(pf.Path), 0o755); err == nil {
		if err := pf.Write(); err != nil {
			slog.Warn("write pid file", "path", pf.Path, "error", err)
		} else {
			defer func() { _ = pf.Remove() }()
		}
	}

	server := api.NewServer(a.sessions, a.orch, a.cache)
	addr := fmt.Sprintf(":%d", viper.GetInt("port"))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("pma API listening", "addr", addr)
		ui.Info("Serving API at http://localhost%s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
