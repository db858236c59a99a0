package main

import (
	"os"

	"github.com/dd0wney/cluso-navigator/pkg/config"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/spf13/cobra"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	LogLevel   string
	Pretty     bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "navigator",
		Short:         "Campus navigator",
		Long:          "Multi-layer campus routing with time and access constraints.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", os.Getenv("NAV_CONFIG"), "config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override logging.level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.Pretty, "pretty", false, "human-readable console logs")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newRouteCommand(opts))
	cmd.AddCommand(newValidateCommand(opts))
	cmd.AddCommand(newImportTMXCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))
	cmd.AddCommand(newAPIKeyCommand(opts))
	cmd.AddCommand(newTUICommand(opts))

	return cmd
}

// load reads the configuration and builds the logger it describes.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	return o.loadWithLevel(cmd, "")
}

// loadQuiet is load for one-shot commands, which log warnings and up
// unless --log-level says otherwise.
func (o *rootOptions) loadQuiet(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	return o.loadWithLevel(cmd, "warn")
}

func (o *rootOptions) loadWithLevel(cmd *cobra.Command, level string) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	lc := cfg.LoggerConfig()
	if level != "" {
		lc.Level = level
	}
	if o.LogLevel != "" {
		lc.Level = o.LogLevel
	}
	lc.Pretty = lc.Pretty || o.Pretty
	logger := logging.NewWithWriter(lc, cmd.ErrOrStderr())
	logging.SetDefaultLogger(logger)
	return cfg, logger, nil
}
