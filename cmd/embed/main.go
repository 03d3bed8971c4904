// Command sam-embed converts an input image into a SAM image embedding
// stored as a .npy file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/sam-embed/internal/logging"
	"github.com/Brownie44l1/sam-embed/internal/model"
	"github.com/Brownie44l1/sam-embed/internal/pipeline"
	"github.com/Brownie44l1/sam-embed/internal/telemetry"
)

type options struct {
	input      string
	output     string
	modelType  string
	checkpoint string
	device     string
	ortLibrary string
	logLevel   string
}

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command. load overrides the onnxruntime loader.
func newRootCmd(load model.LoadFunc) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "sam-embed",
		Short:         "Converts an input image into embeddings.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, load)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.input, "input", "", "Path to the input image to extract into embeddings.")
	flags.StringVar(&opts.output, "output", "", "Path to the output folder to save the embeddings to.")
	flags.StringVar(&opts.modelType, "model-type", "", fmt.Sprintf("The type of model to load, in %v", model.Types()))
	flags.StringVar(&opts.checkpoint, "checkpoint", "", "The path to the SAM checkpoint to use.")
	flags.StringVar(&opts.device, "device", model.DeviceCUDA, "The device to run the model on.")
	flags.StringVar(&opts.ortLibrary, "ort-library", "", "Path to the onnxruntime shared library.")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level.")
	for _, name := range []string{"input", "output", "model-type", "checkpoint"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func run(cmd *cobra.Command, opts options, load model.LoadFunc) error {
	logger, err := logging.Setup(logging.Options{Level: opts.logLevel, Console: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}

	// Reject unknown model types before touching the filesystem.
	if _, err := model.Lookup(opts.modelType); err != nil {
		return err
	}
	device, err := model.ParseDevice(opts.device)
	if err != nil {
		return err
	}

	if load == nil {
		loader := &model.Loader{LibraryPath: opts.ortLibrary}
		load = loader.Load
		defer func() {
			if err := model.ShutdownRuntime(); err != nil {
				logger.Debug().Err(err).Msg("ONNX environment was not running")
			}
		}()
	}

	metrics, err := telemetry.New()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	out := cmd.OutOrStdout()
	pipe, err := pipeline.New(pipeline.Config{
		ModelType:  opts.modelType,
		Checkpoint: opts.checkpoint,
		Device:     device,
		Load:       load,
		Status:     out,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return err
	}

	path, err := pipe.EmbedFile(cmd.Context(), opts.input, opts.output)
	if err != nil {
		return err
	}
	logger.Info().Str("path", path).Msg("Embedding saved")

	fmt.Fprintln(out, "Done!")
	return nil
}
