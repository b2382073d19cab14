package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/snakeaid/backend/internal/config"
	"github.com/zhouzirui/snakeaid/backend/pkg/logger"
)

type rootOptions struct {
	logLevel  string
	logFormat string
	envFile   string
	cfg       *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("snakeaid exited with an error")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "snakeaid",
		Short:         "Snake bite first aid chat relay and reference responder",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error); overrides LOG_LEVEL")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (console or json); overrides LOG_FORMAT")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		newServeCommand(opts),
		newResponderCommand(opts),
		newChatCommand(opts),
	)
	return root
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	envLoaded := true
	if err := godotenv.Load(o.envFile); err != nil {
		envLoaded = false
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	o.cfg = cfg

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if !envLoaded && cmd.Flags().Changed("env-file") {
		log.Warn().Str("file", o.envFile).Msg("failed to load env file, continuing with system environment variables only")
	}
	return nil
}
