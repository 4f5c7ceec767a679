// Command oak runs an oak bot from a YAML configuration file.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oakbot/oak/bot"
	"github.com/oakbot/oak/platform"
	"github.com/oakbot/oak/platform/mq"
	"github.com/oakbot/oak/platform/ws"
	"github.com/oakbot/oak/storage"
	"github.com/oakbot/oak/storage/bolt"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configFile string
		verbose    bool
	)

	root := &cobra.Command{
		Use:           "oak",
		Short:         "oak is a chat bot with a command tree and a rule engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "oak.yaml", "configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newRunCmd(&configFile, &verbose))
	root.AddCommand(newValidateCmd(&configFile))
	root.AddCommand(newDocsCmd())

	return root
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newRunCmd(configFile *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to the platform and serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bot.LoadConfig(*configFile)
			if err != nil {
				return err
			}

			log, err := newLogger(*verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			store, closeStore, err := newStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			client, err := newClient(cfg, log)
			if err != nil {
				return err
			}

			b, err := bot.New(cfg, client, store, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("starting", zap.String("platform", cfg.Platform.Kind))
			return b.Run(ctx)
		},
	}
}

func newValidateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := bot.LoadConfig(*configFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", *configFile)
			return nil
		},
	}
}

func newStore(cfg *bot.Config) (storage.DataIO, func(), error) {
	switch cfg.Storage.Kind {
	case "bolt":
		s := bolt.NewStore(cfg.Storage.Path)
		if err := s.Open(); err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return storage.NewMemory(), func() {}, nil
	}
}

func newClient(cfg *bot.Config, log *zap.Logger) (platform.Client, error) {
	switch cfg.Platform.Kind {
	case "mq":
		return mq.NewBridge(mq.Options{
			Broker:       cfg.Platform.Broker,
			ClientId:     cfg.Platform.ClientId,
			Username:     cfg.Platform.Username,
			Password:     cfg.Platform.Password,
			EventTopic:   cfg.Platform.EventTopic,
			CommandTopic: cfg.Platform.CommandTopic,
		}, log), nil
	case "ws":
		return ws.NewClient(cfg.Platform.URL, log), nil
	default:
		return nil, fmt.Errorf("no platform configured; set platform.kind")
	}
}
