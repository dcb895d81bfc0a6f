package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// RedisConfig holds connection settings for the queue and KV store.
type RedisConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// Addr returns the host:port address for the Redis client.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JiraConfig holds the destination tracker connection and project settings.
type JiraConfig struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`

	ProjectKey string `mapstructure:"project_key" yaml:"project_key"`
	ProjectID  string `mapstructure:"project_id" yaml:"project_id"`

	// DefaultIssueTypeID is the issue type used for every created issue.
	DefaultIssueTypeID string `mapstructure:"default_issue_type_id" yaml:"default_issue_type_id"`

	// DefaultVersionID is the fix version applied when no mapping resolves.
	DefaultVersionID string `mapstructure:"default_version_id" yaml:"default_version_id"`

	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// NotionConfig holds the workspace API connection and write-back settings.
type NotionConfig struct {
	Token   string `mapstructure:"token" yaml:"token"`
	Version string `mapstructure:"version" yaml:"version"`

	// IssueRefProperty is the url property on each page that carries the
	// browse link of the synced issue. It doubles as the back-reference
	// consulted by the create-vs-update decision.
	IssueRefProperty string `mapstructure:"issue_ref_property" yaml:"issue_ref_property"`

	// SyncedStatusName is the status label written back after a create.
	SyncedStatusName string `mapstructure:"synced_status_name" yaml:"synced_status_name"`

	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// SyncConfig holds queue names and retry policy knobs.
type SyncConfig struct {
	QueueName        string `mapstructure:"queue_name" yaml:"queue_name"`
	DeadLetterQueue  string `mapstructure:"dead_letter_queue" yaml:"dead_letter_queue"`
	MaxRetries       int    `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelaySec    int    `mapstructure:"retry_delay_sec" yaml:"retry_delay_sec"`
	RetryMaxDelaySec int    `mapstructure:"retry_max_delay_sec" yaml:"retry_max_delay_sec"`
	BatchSize        int    `mapstructure:"batch_size" yaml:"batch_size"`
	PopTimeoutSec    int    `mapstructure:"pop_timeout_sec" yaml:"pop_timeout_sec"`
}

// MappingConfig holds the categorical translation tables. They live in
// configuration so deployments can adjust option names without a rebuild.
type MappingConfig struct {
	// PriorityMap translates workspace priority option names to tracker
	// priority ids. Unmapped values drop the field.
	PriorityMap map[string]string `mapstructure:"priority_map" yaml:"priority_map"`

	// StatusMap translates workspace status names to tracker status names.
	// Used for logging only; the service never transitions workflows.
	StatusMap map[string]string `mapstructure:"status_map" yaml:"status_map"`

	// ProductLineOwners maps product-line option names to the owning
	// engineer's email, used as the assignee/reporter fallback.
	ProductLineOwners map[string]string `mapstructure:"product_line_owners" yaml:"product_line_owners"`

	// DefaultOwner is the final assignee/reporter fallback.
	DefaultOwner string `mapstructure:"default_owner" yaml:"default_owner"`

	// VersionTablePath is the operator-editable version alias table file.
	VersionTablePath string `mapstructure:"version_table_path" yaml:"version_table_path"`

	// VersionCachePath is the snapshot file of the remote page-name cache.
	VersionCachePath string `mapstructure:"version_cache_path" yaml:"version_cache_path"`

	// VersionLocalPath is an optional operator-pinned id-to-name mapping
	// that bypasses the remote page-name cache.
	VersionLocalPath string `mapstructure:"version_local_path" yaml:"version_local_path"`

	// VersionCacheTTLHours bounds staleness of cached page names.
	VersionCacheTTLHours int `mapstructure:"version_cache_ttl_hours" yaml:"version_cache_ttl_hours"`
}

// StoreConfig selects and configures the mapping store backend.
type StoreConfig struct {
	// Backend is "redis" or "sqlite".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// SQLitePath is the database file used when Backend is "sqlite".
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

// AppConfig is the top-level service configuration.
type AppConfig struct {
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis"`
	Jira    JiraConfig    `mapstructure:"jira" yaml:"jira"`
	Notion  NotionConfig  `mapstructure:"notion" yaml:"notion"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Mapping MappingConfig `mapstructure:"mapping" yaml:"mapping"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/notion2jira/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "notion2jira", "config.yaml")
}

// setDefaults registers every default so missing keys resolve sensibly.
func setDefaults(v *viper.Viper) {
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("jira.project_key", "SMBNET")
	v.SetDefault("jira.project_id", "13904")
	v.SetDefault("jira.default_issue_type_id", "10001")
	v.SetDefault("jira.default_version_id", "14577")
	v.SetDefault("jira.timeout_sec", 30)
	v.SetDefault("jira.max_retries", 3)

	v.SetDefault("notion.version", "2022-06-28")
	v.SetDefault("notion.issue_ref_property", "JIRA Card")
	v.SetDefault("notion.synced_status_name", "已输入 JIRA")
	v.SetDefault("notion.timeout_sec", 30)

	v.SetDefault("sync.queue_name", "sync_queue")
	v.SetDefault("sync.dead_letter_queue", "failed_sync_queue")
	v.SetDefault("sync.max_retries", 3)
	v.SetDefault("sync.retry_delay_sec", 60)
	v.SetDefault("sync.retry_max_delay_sec", 900)
	v.SetDefault("sync.batch_size", 10)
	v.SetDefault("sync.pop_timeout_sec", 10)

	v.SetDefault("mapping.priority_map", map[string]string{
		"高 High":   "1",
		"中 Medium": "3",
		"低 Low":    "4",
		"无 None":   "5",
	})
	v.SetDefault("mapping.status_map", map[string]string{
		"初始反馈 OR":     "待可行性评估",
		"待评估 UR":      "待可行性评估",
		"待输入 WI":      "待可行性评估",
		"同步中 SYNC":    "待可行性评估",
		"已输入 JIRA":    "待可行性评估",
		"JIRA进行中 IN":  "开发中",
		"JIRA完成 DONE": "完成",
	})
	v.SetDefault("mapping.product_line_owners", map[string]string{
		"Controller":       "ludingyang@tp-link.com.hk",
		"Gateway":          "zhujiayin@tp-link.com.hk",
		"Managed Switch":   "huangguangrun@tp-link.com.hk",
		"Unmanaged Switch": "huangguangrun@tp-link.com.hk",
		"EAP":              "ouhuanrui@tp-link.com.hk",
		"OLT":              "fancunlian@tp-link.com.hk",
		"APP":              "xingxiaosong@tp-link.com.hk",
	})
	v.SetDefault("mapping.default_owner", "ludingyang@tp-link.com.hk")
	v.SetDefault("mapping.version_table_path", "version_mapping.json")
	v.SetDefault("mapping.version_cache_path", "notion_version_cache.json")
	v.SetDefault("mapping.version_cache_ttl_hours", 1)

	v.SetDefault("store.backend", "redis")
	v.SetDefault("store.sqlite_path", "notion2jira.db")
}

// defaultAppConfig returns the configuration produced by defaults alone.
func defaultAppConfig() (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)
	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("building default config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns the default configuration.
// Environment variables prefixed with NOTION2JIRA_ override file values
// (e.g. NOTION2JIRA_REDIS_PASSWORD).
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("notion2jira")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig()
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig()
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("redis", cfg.Redis)
	v.Set("jira", cfg.Jira)
	v.Set("notion", cfg.Notion)
	v.Set("sync", cfg.Sync)
	v.Set("mapping", cfg.Mapping)
	v.Set("store", cfg.Store)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
