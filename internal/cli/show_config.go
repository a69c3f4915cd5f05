package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: "Config prints the settings in effect after merging config.yaml,\n" +
			"TASKBOARD_* environment variables, flags and defaults.",
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			fc := newFileConfig(a.cfg, a.logCfg, a.cfg.DataDir)
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), struct {
					ConfigDir string `json:"config_dir"`
					fileConfig
				}{a.configDir, fc})
			}

			data, err := yaml.Marshal(&fc)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", a.configDir, data)
			return nil
		}),
	}
}
