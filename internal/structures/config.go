package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" validate:"required|in:memory,file,sqlite"`
	Path   string `yaml:"path"`
	// Quota caps the total stored bytes for the memory and file drivers. Zero disables it.
	Quota int `yaml:"quota" validate:"int|min:0"`
}

type DatasetConfig struct {
	Name string `yaml:"name" validate:"required"`
	Kind string `yaml:"kind" validate:"required|in:list,object"`
}

type PreferencesConfig struct {
	AutoBackup      bool   `yaml:"autoBackup"`
	BackupFrequency string `yaml:"backupFrequency" validate:"in:hourly,daily,weekly,monthly"`
}

type BackupConfig struct {
	MaxBackups  int               `yaml:"maxBackups" validate:"required|int|min:1"`
	Version     string            `yaml:"version" validate:"required"`
	KeyPrefix   string            `yaml:"keyPrefix" validate:"required"`
	DataPrefix  string            `yaml:"dataPrefix"`
	Datasets    []DatasetConfig   `yaml:"datasets"`
	Preferences PreferencesConfig `yaml:"preferences"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	WebServer Server        `yaml:"webServer"`
	Logger    LoggerConfig  `yaml:"logger"`
	Store     StoreConfig   `yaml:"store"`
	Backup    BackupConfig  `yaml:"backup"`
	Cache     CacheConfig   `yaml:"cache"`
	Metrics   MetricsConfig `yaml:"metrics"`
}
