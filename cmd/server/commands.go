package main

import (
	"context"
	"io"
	"os"

	"github.com/dmitrijs2005/questkeeper/internal/logging"
	"github.com/dmitrijs2005/questkeeper/internal/server"
	"github.com/dmitrijs2005/questkeeper/internal/server/config"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

var (
	logOutput io.Writer = os.Stdout
	newApp              = server.NewApp
)

type options struct {
	configFile string
}

// NewRootCmd creates the root command. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "questkeeper",
		Short:        "QuestKeeper quest backend",
		Long:         `QuestKeeper serves accounts, the quest catalog and quest progress over HTTP.`,
		SilenceUsage: true,
		RunE:         opts.runServe,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))

	return cmd
}

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, gRPC health and metrics endpoints",
		Args:  cobra.NoArgs,
		RunE:  opts.runServe,
	}
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *server.App) error {
				if err := app.Migrate(ctx); err != nil {
					return oops.Code("MIGRATION_FAILED").Wrap(err)
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}
}

func newSeedCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import the quest catalog from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *server.App) error {
				if err := app.Migrate(ctx); err != nil {
					return oops.Code("MIGRATION_FAILED").Wrap(err)
				}
				res, err := app.Seed(ctx, file)
				if err != nil {
					return oops.Code("SEED_FAILED").With("file", file).Wrap(err)
				}
				cmd.Printf("Seeded %d quests with %d locations (%d previews uploaded)\n",
					res.Quests, res.Locations, res.Uploaded)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (o *options) runServe(cmd *cobra.Command, _ []string) error {
	return o.withApp(cmd, func(ctx context.Context, app *server.App) error {
		return app.Run(ctx)
	})
}

// withApp loads the configuration, builds the App and closes it after fn.
func (o *options) withApp(cmd *cobra.Command, fn func(context.Context, *server.App) error) error {
	cfg, err := config.Load(o.configFile, cmd.Flags())
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger := logging.New(logOutput, cfg.LogLevel, cfg.LogFormat)
	ctx := cmd.Context()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logging.LogError(ctx, logger, "init failed", err)
		return oops.Code("INIT_FAILED").Wrap(err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logging.LogError(ctx, logger, "close failed", err)
		}
	}()

	return fn(ctx, app)
}
