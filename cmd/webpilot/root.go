package main

import (
	"github.com/spf13/cobra"

	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/logging"
)

// cli holds state shared by the subcommands.
type cli struct {
	configFile string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "webpilot",
		Short:         "A browsing assistant that drives remote browsers through an LLM.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configFile)
			if err != nil {
				return err
			}
			c.cfg = cfg

			logging.Initialize(cfg.Logger)
			logging.NewLogger("cli").Debugf("Starting webpilot %s", Version)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "config file (default is ./webpilot.yaml)")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newServeCmd(c),
		newToolsCmd(c),
		newCallCmd(c),
	)
	return root
}
