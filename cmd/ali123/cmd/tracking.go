package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/ali123/ali123/app"
	"github.com/ali123/ali123/internal/fulfillment"
	"github.com/ali123/ali123/internal/message_broaker"
	"github.com/spf13/cobra"
)

func newTrackingSyncCommand(r *runtime) *cobra.Command {
	var storeID int64
	syncCmd := &cobra.Command{
		Use:   "tracking-sync",
		Short: "Fetch tracking for fulfillable orders and mark them fulfilled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withContainer(cmd.Context(), func(c *app.Container) error {
				if storeID > 0 {
					c.TrackingSync.ScopeToStore(&storeID)
				}
				stats, err := c.TrackingSync.Sync(cmd.Context())
				if errors.Is(err, fulfillment.ErrSyncRunning) {
					cmd.Println("another tracking sync is running, nothing to do")
					return nil
				}
				if err != nil {
					return err
				}
				return printJSON(cmd, stats)
			})
		},
	}
	syncCmd.Flags().Int64Var(&storeID, "store", 0, "only sync orders of this store")
	return syncCmd
}

func newUserCommand(r *runtime) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}
	userCmd.AddCommand(&cobra.Command{
		Use:   "add [username] [password]",
		Short: "Create an API user, replacing the password of an existing one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withContainer(cmd.Context(), func(c *app.Container) error {
				id, err := c.UserStore.Create(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				cmd.Printf("user %q saved with id %d\n", args[0], id)
				return nil
			})
		},
	})
	userCmd.AddCommand(&cobra.Command{
		Use:   "delete [username]",
		Short: "Remove an API user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withContainer(cmd.Context(), func(c *app.Container) error {
				if err := c.UserStore.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				cmd.Printf("user %q deleted\n", args[0])
				return nil
			})
		},
	})
	return userCmd
}

func newEventsCommand(r *runtime) *cobra.Command {
	var queue string
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Print domain events from RabbitMQ until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := r.container(ctx)
			if err != nil {
				return err
			}
			defer c.Close(context.Background())

			if c.MessageBroker == nil {
				return errors.New("events need a broker, set rabbitmq.url or ALI123_RABBITMQ_URL")
			}
			return tailEvents(ctx, cmd, c.MessageBroker, queue)
		},
	}
	eventsCmd.Flags().StringVar(&queue, "queue", "", "queue to consume (default from configuration)")
	return eventsCmd
}

func tailEvents(ctx context.Context, cmd *cobra.Command, broker message_broaker.MessageBroker, queue string) error {
	messages, err := broker.Consume(ctx, queue)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case body, ok := <-messages:
			if !ok {
				return nil
			}
			event, err := message_broaker.DecodeEvent(body)
			if err != nil {
				cmd.PrintErrf("skipping undecodable message: %v\n", err)
				continue
			}
			cmd.Printf("%s %-18s store=%d %v\n",
				event.OccurredAt.Format("2006-01-02T15:04:05Z07:00"), event.Type, event.StoreID, event.Data)
		}
	}
}
