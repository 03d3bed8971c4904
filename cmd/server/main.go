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
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/sam-embed/internal/checkpoint"
	"github.com/Brownie44l1/sam-embed/internal/config"
	"github.com/Brownie44l1/sam-embed/internal/handlers"
	"github.com/Brownie44l1/sam-embed/internal/logging"
	"github.com/Brownie44l1/sam-embed/internal/model"
	"github.com/Brownie44l1/sam-embed/internal/pipeline"
	"github.com/Brownie44l1/sam-embed/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:           "sam-embed-server",
		Short:         "Server for embedding generation using SAM",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flags.String("device", "", "The device to run the model on (cpu, cuda, cuda:N); empty picks cuda when available")
	flags.String("addr", "", "Listen address")
	flags.String("checkpoint", "", "Path of the model checkpoint; downloaded when missing")
	flags.String("checkpoint-url", "", "Where to fetch the checkpoint from")
	flags.String("model-type", "", "Model type, one of "+fmt.Sprint(model.Types()))
	flags.String("ort-library", "", "Path to the onnxruntime shared library")
	flags.String("log-level", "", "Log level")
	flags.String("log-file", "", "Base name of a daily rotated log file")

	for key, flag := range map[string]string{
		"device":         "device",
		"addr":           "addr",
		"checkpoint":     "checkpoint",
		"checkpoint_url": "checkpoint-url",
		"model_type":     "model-type",
		"ort_library":    "ort-library",
		"log_level":      "log-level",
		"log_file":       "log-file",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	logger, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}

	metrics, err := telemetry.New()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	device, err := model.ResolveDevice(cfg.Device, cfg.ORTLibrary)
	if err != nil {
		return err
	}
	logger.Info().Str("device", device.String()).Msg("Compute device selected")

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	downloader := checkpoint.NewDownloader(
		checkpoint.WithLogger(logger),
		checkpoint.WithMetrics(metrics),
	)
	if _, err := downloader.Ensure(ctx, cfg.Checkpoint, cfg.CheckpointURL); err != nil {
		return err
	}

	loader := &model.Loader{LibraryPath: cfg.ORTLibrary}
	pipe, err := pipeline.New(pipeline.Config{
		ModelType:  cfg.ModelType,
		Checkpoint: cfg.Checkpoint,
		Device:     device,
		Load:       loader.Load,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return err
	}

	handler := handlers.NewHandler(pipe, cfg.MaxUploadBytes, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handlers.NewRouter(handler, logger),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Str("model_type", cfg.ModelType).
		Str("checkpoint", cfg.Checkpoint).
		Msg("Server starting")
	logger.Info().Msg("Endpoints: GET /health, POST /api/embedding")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
			return server.Close()
		}
		return nil
	})

	err = g.Wait()
	if derr := model.ShutdownRuntime(); derr != nil {
		logger.Debug().Err(derr).Msg("ONNX environment was not running")
	}
	if err != nil {
		return err
	}
	logger.Info().Msg("Server stopped")
	return nil
}
