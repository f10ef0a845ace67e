package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abelbrown/goldmine/internal/app"
	"github.com/abelbrown/goldmine/internal/config"
	"github.com/abelbrown/goldmine/internal/logging"
)

// cli holds global flags and the loaded configuration.
type cli struct {
	cfgFile string
	debug   bool
	user    string

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "goldmine",
		Short:         "Find business opportunities in what people complain about",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default $GOLDMINE_CONFIG or ~/.goldmine/config.yaml)")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&c.user, "user", app.DefaultUserID, "user whose history and favorites to use")

	root.AddCommand(
		c.scanCmd(),
		c.historyCmd(),
		c.favoriteCmd(),
		c.eventsCmd(),
		c.topicsCmd(),
		c.configCmd(),
	)
	return root
}

func (c *cli) load() error {
	path := c.cfgFile
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.debug {
		cfg.Log.Level = "debug"
	}
	c.cfg = cfg

	if err := logging.Init(cfg.Log.Dir, cfg.Log.Level); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logging.Debug("Config loaded", "path", path, "provider", cfg.LLM.Provider, "cache", cfg.Cache.Backend)
	return nil
}

// service builds the app service; callers must Close it.
func (c *cli) service() (*app.Service, error) {
	svc, err := app.Build(c.cfg)
	if err != nil {
		return nil, err
	}
	return svc, nil
}
