package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/taskboard/pkg/store"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// fileConfig is the layout of config.yaml.
type fileConfig struct {
	Backend string            `json:"backend" yaml:"backend"`
	DataDir string            `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	API     fileAPIConfig     `json:"api" yaml:"api"`
	Local   types.LocalConfig `json:"local" yaml:"local"`
	Sync    fileSyncConfig    `json:"sync" yaml:"sync"`
	Board   fileBoardConfig   `json:"board" yaml:"board"`
	Server  fileServerConfig  `json:"server" yaml:"server"`
	Log     logConfig         `json:"log" yaml:"log"`
}

type fileAPIConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

type fileSyncConfig struct {
	Interval string `json:"interval" yaml:"interval"`
}

type fileBoardConfig struct {
	Assignee string `json:"assignee" yaml:"assignee"`
}

type fileServerConfig struct {
	Addr   string `json:"addr" yaml:"addr"`
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

func newFileConfig(cfg types.Config, logCfg logConfig, dataDir string) fileConfig {
	return fileConfig{
		Backend: cfg.Backend,
		DataDir: dataDir,
		API: fileAPIConfig{
			BaseURL: cfg.API.BaseURL,
			Timeout: durationString(cfg.API.Timeout),
		},
		Local:  cfg.Local,
		Sync:   fileSyncConfig{Interval: durationString(cfg.SyncInterval)},
		Board:  fileBoardConfig{Assignee: cfg.Assignee},
		Server: fileServerConfig(cfg.Server),
		Log:    logCfg,
	}
}

func durationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func (a *app) newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize taskboard configuration and storage",
		Long: "Write config.yaml from the effective settings, create the data directory\n" +
			"and open the configured store once. An existing config.yaml is kept\n" +
			"unless --force is given.",
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd, force)
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config.yaml")
	return cmd
}

func (a *app) runInit(cmd *cobra.Command, force bool) error {
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(a.configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	configPath := filepath.Join(a.configDir, configFileExt)
	written, err := writeConfig(configPath, newFileConfig(a.cfg, a.logCfg, a.flags.dataDir), force)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	s, err := store.Open(a.cfg, a.log)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	out := cmd.OutOrStdout()
	if written {
		fmt.Fprintf(out, "Wrote %s\n", configPath)
	} else {
		fmt.Fprintf(out, "Kept existing %s\n", configPath)
	}
	fmt.Fprintf(out, "Taskboard initialized (backend %s, data %s)\n", a.cfg.Backend, a.cfg.DataDir)
	return nil
}

// writeConfig marshals fc to path. An existing file is left alone unless
// force is set. Reports whether the file was written.
func writeConfig(path string, fc fileConfig, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
