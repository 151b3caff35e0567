package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ppiankov/citelink/internal/logger"
	"github.com/ppiankov/citelink/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Version is set at build time via ldflags
var Version = "v0.1.0"

var (
	cfgFile   string
	verbose   bool
	noCache   bool
	noRobots  bool
	configErr error
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "citelink",
	Short: "citelink - link extracted relationships to cited PubMed publications",
	Long: `citelink builds a reference table from article pages and joins it with
structured relationship documents.

Phase one reads each page's reference section and records every citation's
ordinal, cleaned text and PubMed identifier. Phase two reads the structured
documents extracted from the same pages and writes one association table per
relationship category, with each relationship's in-text reference markers
resolved to PubMed identifiers.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "citelink %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.citelink/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.Int("workers", 4, "number of concurrent fetch workers")
	flags.Duration("timeout", 30*time.Second, "per-request HTTP timeout")
	flags.String("ua", "", "HTTP User-Agent")
	flags.String("output-dir", "", "directory for output tables")
	flags.String("role-policy", "", "role policy for relationship lists (strict, lenient, positional)")
	flags.BoolVar(&noCache, "no-cache", false, "disable the page cache (force fresh fetch)")
	flags.BoolVar(&noRobots, "no-robots", false, "ignore robots.txt")

	_ = viper.BindPFlag("concurrency.workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("http.timeout", flags.Lookup("timeout"))
	_ = viper.BindPFlag("http.user_agent", flags.Lookup("ua"))
	_ = viper.BindPFlag("output.dir", flags.Lookup("output-dir"))
	_ = viper.BindPFlag("normalize.role_policy", flags.Lookup("role-policy"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	_ = godotenv.Load()

	configErr = nil
	registerDefaults(model.DefaultConfig())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			logger.Warn("finding home directory: %v", err)
		} else {
			viper.AddConfigPath(filepath.Join(home, ".citelink"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// CITELINK_HTTP_TIMEOUT overrides http.timeout, and so on
	viper.SetEnvPrefix("CITELINK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			configErr = fmt.Errorf("read config: %w", err)
		}
		return
	}
	logger.Info("Using config file: %s", viper.ConfigFileUsed())
}

// registerDefaults makes every config key known to viper so environment
// variables apply even when no config file mentions the key
func registerDefaults(cfg *model.Config) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	setDefaults("", tree)
}

func setDefaults(prefix string, tree map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			setDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

// loadConfig resolves flags > env > config file > defaults
func loadConfig() (*model.Config, error) {
	if configErr != nil {
		return nil, &ConfigError{Err: configErr}
	}

	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("decode config: %w", err)}
	}

	if noCache {
		cfg.Cache.Enabled = false
	}
	if noRobots {
		cfg.Robots.Respect = false
	}
	cfg.Output.Verbose = verbose

	if err := validateConfig(cfg); err != nil {
		return nil, &ConfigError{Err: err}
	}
	return cfg, nil
}

func validateConfig(cfg *model.Config) error {
	if cfg.Normalize.RolePolicy == "" {
		cfg.Normalize.RolePolicy = model.RolePolicyStrict
	}
	if !cfg.Normalize.RolePolicy.Valid() {
		return fmt.Errorf("normalize.role_policy: unknown policy %q", cfg.Normalize.RolePolicy)
	}
	if cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = 1
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be positive")
	}
	if strings.TrimSpace(cfg.Extract.MarkerText) == "" || strings.TrimSpace(cfg.Extract.Namespace) == "" {
		return fmt.Errorf("extract.marker_text and extract.namespace are required")
	}
	if cfg.Output.ReferenceName == "" || cfg.Output.CombinedName == "" {
		return fmt.Errorf("output.reference_name and output.combined_name are required")
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "."
	}
	return nil
}
