package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clausewatch/internal/api"
	"github.com/ppiankov/clausewatch/internal/pipeline"
)

var (
	serveAddr string
	serveOpts analysisFlags
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis HTTP API",
	Long: `Serve exposes the analyzer over HTTP:
  GET  /health               liveness and rule catalog version
  GET  /api/rules            the loaded rule catalog
  POST /api/analyze          analyze JSON {"text": "..."}
  POST /api/analyze/upload   analyze a multipart "file" upload

Logs are written to stderr as JSON.

Example:
  clausewatch serve --addr :8080
  clausewatch serve --rules my-rules.yaml --min-confidence 0.8`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr from config)")
	serveOpts.register(serveCmd, false)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	serveOpts.apply(cmd, cfg)
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
	}

	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}

	srv := api.NewServer(p.Analyzer(), log, cfg)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Graceful shutdown
	shutdownDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownDone <- httpServer.Shutdown(shutdownCtx)
	}()

	catalog := p.Analyzer().Catalog()
	log.Info("starting clausewatch",
		"addr", cfg.Server.Addr,
		"rules", catalog.Len(),
		"catalog_version", catalog.Version(),
		"pid", os.Getpid())

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		return err
	}

	return <-shutdownDone
}
