package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/ali123/ali123/app"
	"github.com/ali123/ali123/internal/db"
	"github.com/ali123/ali123/internal/pricing"
	"github.com/ali123/ali123/types"
	"github.com/spf13/cobra"
)

func newMigrateCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withContainer(cmd.Context(), func(c *app.Container) error {
				names, err := db.Migrations(c.Config.StorageDriver)
				if err != nil {
					return err
				}
				cmd.Printf("schema up to date on %s (%d migration files)\n", c.Config.StorageDriver, len(names))
				return nil
			})
		},
	}
}

func newProcessCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run process_queue once and print its stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withContainer(cmd.Context(), func(c *app.Container) error {
				stats, err := c.JobRunner.RunNow(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, stats)
			})
		},
	}
}

func newQueueCommand(r *runtime) *cobra.Command {
	var (
		file    string
		storeID int64
	)
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Queue an import payload read from a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(file)
			if err != nil {
				return err
			}
			return r.withContainer(cmd.Context(), func(c *app.Container) error {
				entry, err := c.ImportService.QueueImport(cmd.Context(), storeID, payload)
				if err != nil {
					return err
				}
				return printJSON(cmd, entry)
			})
		},
	}
	queueCmd.Flags().StringVarP(&file, "file", "f", "", "path to the import payload JSON")
	queueCmd.Flags().Int64Var(&storeID, "store", 0, "store id (default from configuration)")
	_ = queueCmd.MarkFlagRequired("file")
	return queueCmd
}

// newPreviewCommand runs the pricing engine alone; it needs no database.
func newPreviewCommand() *cobra.Command {
	var file string
	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Show what the payload's pricing rules do to its price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(file)
			if err != nil {
				return err
			}
			result, err := pricing.NewEngine().Preview(payload)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	previewCmd.Flags().StringVarP(&file, "file", "f", "", "path to the import payload JSON")
	_ = previewCmd.MarkFlagRequired("file")
	return previewCmd
}

func readPayload(path string) (types.ImportPayload, error) {
	var payload types.ImportPayload
	raw, err := readFile(path)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("parse %s: %w", path, err)
	}
	return payload, nil
}
