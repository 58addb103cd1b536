// Package config loads bookfetch settings from bookfetch.yaml, BOOKFETCH_*
// environment variables, and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"bookfetch/internal/logger"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Book is one release archive to fetch into a directory.
type Book struct {
	Name          string `mapstructure:"name"`
	Owner         string `mapstructure:"owner"`
	Project       string `mapstructure:"project"`
	TargetDir     string `mapstructure:"target_dir"`
	ExpectedAsset string `mapstructure:"expected_asset"`
	Clean         bool   `mapstructure:"clean"`
}

type GitHub struct {
	APIURL      string        `mapstructure:"api_url"`
	DownloadURL string        `mapstructure:"download_url"`
	Token       string        `mapstructure:"token"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type Cache struct {
	Backend  string `mapstructure:"backend"`
	Dir      string `mapstructure:"dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type Ledger struct {
	Path          string `mapstructure:"path"`
	SkipUnchanged bool   `mapstructure:"skip_unchanged"`
}

type Config struct {
	LogLevel string `mapstructure:"log_level"`
	Policy   string `mapstructure:"policy"`
	GitHub   GitHub `mapstructure:"github"`
	Books    []Book `mapstructure:"books"`
	Cache    Cache  `mapstructure:"cache"`
	Ledger   Ledger `mapstructure:"ledger"`
}

// DefaultBook is the documentation book the docs build step ships.
var DefaultBook = Book{
	Name:          "kinode-book",
	Owner:         "kinode-dao",
	Project:       "kinode-book",
	TargetDir:     "docs/pkg/ui",
	ExpectedAsset: "book.tar.gz",
	Clean:         true,
}

// Init reads cfgFile, or bookfetch.yaml from the working directory when
// cfgFile is empty, and registers defaults.
func Init(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bookfetch") // bookfetch.yaml
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("BOOKFETCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("log_level", "info")
	viper.SetDefault("policy", "listing")
	viper.SetDefault("github.api_url", "https://api.github.com/")
	viper.SetDefault("github.download_url", "https://github.com")
	viper.SetDefault("github.token", "")
	viper.SetDefault("github.timeout", "60s")
	// Every key needs a default so AutomaticEnv can override it on Unmarshal.
	viper.SetDefault("cache.backend", "none")
	viper.SetDefault("cache.dir", ".cache/bookfetch")
	viper.SetDefault("cache.bucket", "")
	viper.SetDefault("cache.prefix", "bookfetch")
	viper.SetDefault("cache.region", "")
	viper.SetDefault("cache.endpoint", "")
	viper.SetDefault("ledger.path", "")
	viper.SetDefault("ledger.skip_unchanged", false)
	viper.SetDefault("books", []map[string]any{{
		"name":           DefaultBook.Name,
		"owner":          DefaultBook.Owner,
		"project":        DefaultBook.Project,
		"target_dir":     DefaultBook.TargetDir,
		"expected_asset": DefaultBook.ExpectedAsset,
		"clean":          DefaultBook.Clean,
	}})

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (cfgFile == "" && os.IsNotExist(err)) {
			logger.Log.Info("No config file found; using defaults.")
		} else {
			logger.Log.Warn("could not read config file; using defaults", "err", err)
		}
	}
}

// BindFlags lets persistent root flags override config keys.
func BindFlags(flags *pflag.FlagSet) error {
	bindings := map[string]string{
		"log_level":      "log-level",
		"policy":         "policy",
		"github.token":   "token",
		"cache.backend":  "cache",
		"ledger.path":    "ledger",
		"github.api_url": "api-url",
	}
	for key, name := range bindings {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load unmarshals the merged settings. A token missing from flags and config
// falls back to GITHUB_TOKEN.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	for i, b := range cfg.Books {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("books[%d]: %w", i, err)
		}
	}
	return &cfg, nil
}

// Validate checks the fields a fetch cannot run without.
func (b Book) Validate() error {
	switch {
	case strings.TrimSpace(b.Owner) == "":
		return errors.New("owner is required")
	case strings.TrimSpace(b.Project) == "":
		return errors.New("project is required")
	case strings.TrimSpace(b.TargetDir) == "":
		return errors.New("target_dir is required")
	}
	return nil
}
