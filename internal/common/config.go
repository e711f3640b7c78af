package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Logging     LoggingConfig  `toml:"logging"`
	Runner      RunnerConfig   `toml:"runner"`
	Scraper     ScraperConfig  `toml:"scraper"`
	Stream      StreamConfig   `toml:"stream"`
	Telegram    TelegramConfig `toml:"telegram"`
	Schedule    ScheduleConfig `toml:"schedule"`
	Tenants     []TenantConfig `toml:"tenants"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	// Path is the root directory for tenant databases; each tenant gets
	// an isolated Badger directory at {path}/{tenant}.
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// RunnerConfig controls the per-tenant background scraper process
type RunnerConfig struct {
	LocksDir    string        `toml:"locks_dir"`    // Lock files ({tenant}.lock, holds PID)
	LogsDir     string        `toml:"logs_dir"`     // Run logs ({tenant}_sync.log, truncated per run)
	ConfigDir   string        `toml:"config_dir"`   // Temp scraper configs (temp_{tenant}.json)
	Launcher    string        `toml:"launcher"`     // Path to the msgvault-scraper binary
	LockTimeout time.Duration `toml:"lock_timeout"` // Hard ceiling before a lock is considered stale
}

// ScraperConfig is the extraction configuration handed to the scraper process.
// Timeouts and selectors are config-driven so tests can inject short values
// and so page-structure drift is an edit, not a rebuild.
type ScraperConfig struct {
	TargetURL        string           `toml:"target_url"`
	Site             string           `toml:"site"`
	ListingURLBase   string           `toml:"listing_url_base"`
	MaxPages         int              `toml:"max_pages"`
	MaxConversations int              `toml:"max_conversations"`
	Headless         bool             `toml:"headless"`
	UserAgent        string           `toml:"user_agent"`
	Timeouts         ScraperTimeouts  `toml:"timeouts"`
	Selectors        ScraperSelectors `toml:"selectors"`
}

type ScraperTimeouts struct {
	Settle        time.Duration `toml:"settle"`         // Initial page-stability wait
	ListPoll      time.Duration `toml:"list_poll"`      // Conversation-list poll interval
	ListTimeout   time.Duration `toml:"list_timeout"`   // Give up waiting for the list
	ResponsePoll  time.Duration `toml:"response_poll"`  // Intercepted-response poll interval
	ResponseWait  time.Duration `toml:"response_wait"`  // Per-conversation interception timeout
	Images        time.Duration `toml:"images"`         // Settle before harvesting images
	ListingModal  time.Duration `toml:"listing_modal"`  // Listing panel open/close settle
	LoadMore      time.Duration `toml:"load_more"`      // Wait after triggering pagination
	BetweenConvs  time.Duration `toml:"between_convs"`  // Pacing between conversations
	Navigation    time.Duration `toml:"navigation"`     // Page navigation timeout
}

type ScraperSelectors struct {
	ConvList     string `toml:"conv_list"`
	ConvTitle    string `toml:"conv_title"`
	ConvUser     string `toml:"conv_user"`
	LoadMore     string `toml:"load_more"`
	LoadMoreText string `toml:"load_more_text"`
	ListingBtn   string `toml:"listing_btn"`
	ListingDesc  string `toml:"listing_desc"`
	ListingBadge string `toml:"listing_badge"`
	ListingClose string `toml:"listing_close"`
	ChatPane     string `toml:"chat_pane"`
	Images       string `toml:"images"`
}

// StreamConfig controls the live log stream endpoints
type StreamConfig struct {
	PollInterval      time.Duration `toml:"poll_interval"`      // Log file poll interval
	HeartbeatInterval time.Duration `toml:"heartbeat_interval"` // Keep-alive cadence while idle
	LogWaitTimeout    time.Duration `toml:"log_wait_timeout"`   // Max wait for the log file to appear
	MaxLifetime       time.Duration `toml:"max_lifetime"`       // Hard ceiling per connection
}

type TelegramConfig struct {
	Enabled  bool          `toml:"enabled"`
	BotToken string        `toml:"bot_token"`
	Timeout  time.Duration `toml:"timeout"`
}

// ScheduleConfig enables cron-driven automatic syncs
type ScheduleConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"` // Standard 5-field cron expression
}

// TenantConfig carries the per-tenant data the runner needs to launch a scrape
type TenantConfig struct {
	Name           string `toml:"name"`
	Email          string `toml:"email"`
	Password       string `toml:"password"`
	TelegramChatID string `toml:"telegram_chat_id"`
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings belong in msgvault.toml; the defaults here
// match the source site's observed behavior.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Path: "./data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Runner: RunnerConfig{
			LocksDir:    "./locks",
			LogsDir:     "./logs",
			ConfigDir:   "./config",
			Launcher:    "./msgvault-scraper",
			LockTimeout: 2 * time.Hour,
		},
		Scraper: ScraperConfig{
			TargetURL:        "https://annonces.nc/dashboard/conversations",
			Site:             "annonces.nc",
			ListingURLBase:   "https://annonces.nc/annonce/",
			MaxPages:         5,
			MaxConversations: 600,
			Headless:         true,
			UserAgent:        "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
			Timeouts: ScraperTimeouts{
				Settle:       2 * time.Second,
				ListPoll:     200 * time.Millisecond,
				ListTimeout:  10 * time.Second,
				ResponsePoll: 100 * time.Millisecond,
				ResponseWait: 3 * time.Second,
				Images:       500 * time.Millisecond,
				ListingModal: 1500 * time.Millisecond,
				LoadMore:     1 * time.Second,
				BetweenConvs: 300 * time.Millisecond,
				Navigation:   30 * time.Second,
			},
			Selectors: ScraperSelectors{
				ConvList:     ".conversations__sidebar__content > .clickable",
				ConvTitle:    ".text-dark.text-sm",
				ConvUser:     ".font-weight-normal.position-relative",
				LoadMore:     ".conversations__sidebar__content button.rounded-pill",
				LoadMoreText: "Voir plus",
				ListingBtn:   "button.btn-primary.ml-2",
				ListingDesc:  ".mat-dialog-container .card-body .pre-wrap.text-justify",
				ListingBadge: ".mat-dialog-container .badge.badge-light.text-sm",
				ListingClose: ".mat-dialog-container .text-2x",
				ChatPane:     ".chat-content",
				Images:       "annonces-image img",
			},
		},
		Stream: StreamConfig{
			PollInterval:      500 * time.Millisecond,
			HeartbeatInterval: 5 * time.Second,
			LogWaitTimeout:    10 * time.Second,
			MaxLifetime:       10 * time.Minute,
		},
		Telegram: TelegramConfig{
			Enabled: false,
			Timeout: 10 * time.Second,
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 */6 * * *",
		},
	}
}

// LoadFromFile loads configuration: defaults -> TOML file -> env overrides.
// A missing path is not an error; defaults plus env apply.
func LoadFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies MSGVAULT_* environment overrides (highest priority
// below CLI flags)
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MSGVAULT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MSGVAULT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("MSGVAULT_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("MSGVAULT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MSGVAULT_TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
		cfg.Telegram.Enabled = true
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(cfg *Config, port int, host string) {
	if port != 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
}

// Tenant returns the tenant config by name, or nil if not declared
func (c *Config) Tenant(name string) *TenantConfig {
	for i := range c.Tenants {
		if c.Tenants[i].Name == name {
			return &c.Tenants[i]
		}
	}
	return nil
}
