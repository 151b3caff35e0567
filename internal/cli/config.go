package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppiankov/citelink/internal/model"
	"github.com/ppiankov/citelink/internal/normalize"
	"github.com/ppiankov/citelink/internal/output"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	configInitPath  string
	configInitForce bool
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage citelink configuration",
	Long: `Manage citelink configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CITELINK_*, also read from a .env file)
3. Config file (~/.citelink/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(yamlData)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  `Create a default configuration file (default: ~/.citelink/config.yaml) with every option and the built-in role map.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configInitPath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("finding home directory: %w", err)
			}
			path = filepath.Join(home, ".citelink", "config.yaml")
		}

		if _, err := os.Stat(path); err == nil && !configInitForce {
			return &ConfigError{Err: fmt.Errorf("%s already exists (use --force to overwrite)", path)}
		}

		data, err := defaultConfigFile()
		if err != nil {
			return err
		}

		if err := output.WriteFileAtomic(path, func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}); err != nil {
			return fmt.Errorf("write config: %w", err)
		}

		fmt.Fprintf(os.Stderr, "✓ Created default configuration: %s\n", path)
		fmt.Fprintf(os.Stderr, "\nTo view the effective configuration:\n")
		fmt.Fprintf(os.Stderr, "  citelink config show\n\n")
		return nil
	},
}

// defaultConfigFile renders the defaults with the built-in role map spelled
// out so it can be edited in place
func defaultConfigFile() ([]byte, error) {
	cfg := model.DefaultConfig()
	cfg.Normalize.Roles = make(map[string]model.RoleSpec, len(normalize.DefaultRoles))
	for category, spec := range normalize.DefaultRoles {
		cfg.Normalize.Roles[category] = spec
	}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	header := `# citelink configuration
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (CITELINK_HTTP_TIMEOUT, CITELINK_OUTPUT_DIR, ...)
#   3. This config file
#   4. Built-in defaults
#
# normalize.role_policy:
#   strict      declared roles win; entries missing them are skipped
#   lenient     declared roles when present, positional inference otherwise
#   positional  declared roles are ignored

`
	return append([]byte(header), body...), nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "where to write the file (default: ~/.citelink/config.yaml)")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
}
