// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Segmentation SegmentationConfig `yaml:"segmentation" mapstructure:"segmentation"`
	Crawl        CrawlConfig        `yaml:"crawl" mapstructure:"crawl"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Export       ExportConfig       `yaml:"export" mapstructure:"export"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// SegmentationConfig drives the lead classifier.
type SegmentationConfig struct {
	MicroMaxReviews     int      `yaml:"micro_max_reviews" mapstructure:"micro_max_reviews"`
	GoodRatingThreshold float64  `yaml:"good_rating_threshold" mapstructure:"good_rating_threshold"`
	ChainBlacklist      []string `yaml:"chain_blacklist" mapstructure:"chain_blacklist"`
}

// CrawlConfig configures the crawl session coordinator.
type CrawlConfig struct {
	StabilityAttempts int     `yaml:"stability_attempts" mapstructure:"stability_attempts"`
	ScrollWaitSecs    int     `yaml:"scroll_wait_secs" mapstructure:"scroll_wait_secs"`
	ManualWaitSecs    int     `yaml:"manual_wait_secs" mapstructure:"manual_wait_secs"`
	ListingsPerSec    float64 `yaml:"listings_per_sec" mapstructure:"listings_per_sec"`
}

// ScrollWait returns the delay between feed scroll polls.
func (c CrawlConfig) ScrollWait() time.Duration {
	return time.Duration(c.ScrollWaitSecs) * time.Second
}

// ManualWait returns the bounded window allowed for manual intervention
// (captcha solving) before a search is treated as having no results.
func (c CrawlConfig) ManualWait() time.Duration {
	return time.Duration(c.ManualWaitSecs) * time.Second
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ExportConfig configures the XLSX export sinks.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// defaultChainBlacklist matches well-known retail chains that are never
// micro leads regardless of their review profile.
var defaultChainBlacklist = []string{
	"OXXO", "7-ELEVEN", "WALMART", "OFFICE DEPOT", "HEB", "SORIANA",
	"FARMACIAS GUADALAJARA", "FARMACIAS DEL AHORRO", "COSTCO", "HOME DEPOT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("segmentation.micro_max_reviews", 20)
	v.SetDefault("segmentation.good_rating_threshold", 3.5)
	v.SetDefault("segmentation.chain_blacklist", defaultChainBlacklist)
	v.SetDefault("crawl.stability_attempts", 5)
	v.SetDefault("crawl.scroll_wait_secs", 3)
	v.SetDefault("crawl.manual_wait_secs", 60)
	v.SetDefault("crawl.listings_per_sec", 0.5)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "leads.db")
	v.SetDefault("export.dir", ".")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from config.yaml and LEADS_* environment
// variables. A malformed file or invalid values never abort: the offending
// parts revert to defaults and the problems come back as warnings for the
// caller to log once the logger is up.
func Load() (*Config, []string, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var warnings []string

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			warnings = append(warnings, fmt.Sprintf("config file unreadable, using defaults: %v", err))
			v = viper.New()
			v.SetEnvPrefix("LEADS")
			v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
			v.AutomaticEnv()
			setDefaults(v)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, warnings, eris.Wrap(err, "config: unmarshal")
	}

	warnings = append(warnings, cfg.validate()...)
	return &cfg, warnings, nil
}

// validate reverts out-of-range values to defaults and reports what changed.
func (c *Config) validate() []string {
	var warnings []string

	if c.Segmentation.MicroMaxReviews < 0 {
		warnings = append(warnings, fmt.Sprintf("segmentation.micro_max_reviews %d is negative, using 20", c.Segmentation.MicroMaxReviews))
		c.Segmentation.MicroMaxReviews = 20
	}
	if c.Segmentation.GoodRatingThreshold < 0 || c.Segmentation.GoodRatingThreshold > 5 {
		warnings = append(warnings, fmt.Sprintf("segmentation.good_rating_threshold %.2f out of range [0,5], using 3.5", c.Segmentation.GoodRatingThreshold))
		c.Segmentation.GoodRatingThreshold = 3.5
	}
	if c.Crawl.StabilityAttempts < 1 {
		warnings = append(warnings, fmt.Sprintf("crawl.stability_attempts %d must be at least 1, using 5", c.Crawl.StabilityAttempts))
		c.Crawl.StabilityAttempts = 5
	}
	if c.Crawl.ScrollWaitSecs < 0 {
		warnings = append(warnings, "crawl.scroll_wait_secs is negative, using 3")
		c.Crawl.ScrollWaitSecs = 3
	}
	if c.Crawl.ManualWaitSecs < 0 {
		warnings = append(warnings, "crawl.manual_wait_secs is negative, using 60")
		c.Crawl.ManualWaitSecs = 60
	}
	if c.Crawl.ListingsPerSec <= 0 {
		warnings = append(warnings, "crawl.listings_per_sec must be positive, using 0.5")
		c.Crawl.ListingsPerSec = 0.5
	}
	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		warnings = append(warnings, fmt.Sprintf("store.driver %q unknown, using sqlite", c.Store.Driver))
		c.Store.Driver = "sqlite"
	}

	return warnings
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
