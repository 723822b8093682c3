package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ali123/ali123/app"
	"github.com/ali123/ali123/web"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and the recurring queue scheduler",
		Long: `Apply migrations, register the recurring process_queue job and serve the
REST API until interrupted. Pending tracking syncs are cancelled on shutdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return r.withContainer(ctx, func(c *app.Container) error {
				gin.SetMode(gin.ReleaseMode)

				if err := c.JobRunner.EnsureSchedule(); err != nil {
					return err
				}
				c.JobRunner.Start()
				defer func() {
					stopCtx, cancel := context.WithTimeout(context.Background(), c.Config.HTTP.ShutdownTimeout)
					defer cancel()
					if err := c.JobRunner.Stop(stopCtx); err != nil {
						c.Logger.Warn("job runner did not stop cleanly", zap.Error(err))
					}
				}()

				handler := web.NewRouteHandler(
					c.ImportService,
					c.JobRunner,
					c.Fulfillment,
					c.UserStore,
					c.Config.APIAuth.Enabled,
					c.Logger,
					web.WithMetricsHandler(c.MetricsHandler),
					web.WithHealthCheck(c.DB.PingContext),
				)
				c.Logger.Info("serving",
					zap.String("address", c.Config.HTTP.Address),
					zap.String("storage", c.Config.StorageDriver.String()),
					zap.Bool("events", c.Events.Enabled()),
				)
				return web.NewServer(c.Config.HTTP, handler).Serve(ctx)
			})
		},
	}
}
