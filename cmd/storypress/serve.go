package main

import (
	"github.com/spf13/cobra"

	"github.com/storypress/storypress/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the production pipeline workers",
	Long: `Start the pipeline worker pools and process stories until stopped.

With the durable queue backend configured, multiple serve processes can
share the work. Provider and routing changes in the config file are
picked up without a restart.

Examples:
  storypress serve
  storypress serve --config ./config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		a.cfgManager.OnChange(func(cfg *config.Config) {
			regCfg := cfg.ToRegistryConfig()
			regCfg.Logger = a.logger
			a.registry.Reload(regCfg)
		})
		a.cfgManager.WatchConfig()

		a.pipe.Start(ctx)

		<-ctx.Done()
		a.logger.Info("shutting down, draining workers")
		a.pipe.Wait()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
