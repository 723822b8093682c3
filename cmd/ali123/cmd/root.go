package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ali123/ali123/app"
	"github.com/ali123/ali123/internal/logger"
	"github.com/ali123/ali123/types/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCommand builds the ali123 command tree.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "ali123",
		Short: "ali123 imports dropshipping products and keeps orders in sync",
		Long: `ali123 runs the product import queue and the pricing rules pipeline.

Common workflows:

  Queue a product and run the pipeline once:
    ali123 queue --file product.json --store 1
    ali123 process

  Check what a set of pricing rules does to a price:
    ali123 preview --file product.json

  Run the API and the recurring scheduler:
    ali123 serve

Configuration is read from ali123.toml (or --config) and ALI123_* environment
variables, e.g. ALI123_STORAGE_DRIVER=postgres ALI123_STORAGE_POSTGRES_URL=...`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./ali123.toml)")

	loader := &runtime{cfgFile: &cfgFile}
	root.AddCommand(
		newServeCommand(loader),
		newMigrateCommand(loader),
		newProcessCommand(loader),
		newQueueCommand(loader),
		newPreviewCommand(),
		newTrackingSyncCommand(loader),
		newUserCommand(loader),
		newEventsCommand(loader),
	)
	return root
}

func Execute() error {
	return NewRootCommand().Execute()
}

// runtime loads configuration and builds the container for a command.
type runtime struct {
	cfgFile *string
}

func (r *runtime) container(ctx context.Context) (*app.Container, error) {
	cfg, err := config.Load(*r.cfgFile)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	c, err := app.NewContainer(ctx, cfg, app.WithLogger(log))
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return c, nil
}

// withContainer runs fn against a migrated container and closes it afterwards.
func (r *runtime) withContainer(ctx context.Context, fn func(c *app.Container) error) error {
	c, err := r.container(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(context.Background()); err != nil {
			c.Logger.Warn("close container", zap.Error(err))
		}
		_ = c.Logger.Sync()
	}()
	if err := c.Migrate(ctx); err != nil {
		return err
	}
	return fn(c)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("--file is required")
	}
	return os.ReadFile(path)
}
