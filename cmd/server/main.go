package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/textvec/internal/api"
	"github.com/knowledge-engine/textvec/internal/config"
	"github.com/knowledge-engine/textvec/internal/engine"
	"github.com/knowledge-engine/textvec/internal/storage"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "textvec",
		Short:   "Text vectorization service",
		Version: version,
	}
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var (
		cfgPath string
		addr    string
		dataDir string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			envErr := loadDotEnv()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if dataDir != "" {
				cfg.Storage.DataDir = dataDir
			}
			if verbose {
				cfg.Log.Level = "debug"
			}

			entry, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			if envErr != nil {
				entry.Warnf("Failed to load .env: %v", envErr)
			}
			return serve(cmd.Context(), cfg, entry)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "config.yaml", "Path to YAML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Corpus fixture directory (overrides config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}

// loadDotEnv loads .env from the working directory; a missing file is not an error
func loadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func newLogger(cfg config.LogConfig) (*logrus.Entry, error) {
	logger := logrus.New()
	if cfg.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	return logger.WithField("service", "textvec"), nil
}

func serve(ctx context.Context, cfg *config.Config, entry *logrus.Entry) error {
	entry.Info("Starting text vectorization service")

	store, err := storage.NewFileStorage(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	loadExistingData(store, entry)

	eng, err := engine.NewEngine(cfg, entry, store)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(eng, entry)
	if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	entry.Info("Server stopped")
	return nil
}

func loadExistingData(store storage.FixtureStorage, log *logrus.Entry) {
	names, err := store.List()
	if err != nil {
		log.Warnf("Failed to list stored corpora: %v", err)
		return
	}
	if len(names) > 0 {
		log.WithField("corpora", names).Infof("Pre-loaded %d corpus fixtures", len(names))
	}
}
