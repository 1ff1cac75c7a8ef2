package providers

import (
	"testing"

	"backupd/internal/structures"

	"github.com/stretchr/testify/assert"
)

func validConfig() *structures.Config {
	return &structures.Config{
		WebServer: structures.Server{
			Host: "127.0.0.1",
			Port: 8470,
		},
		Logger: structures.LoggerConfig{
			Level: "info",
			Mode:  0644,
			Dir:   "/tmp/logs",
		},
		Store: structures.StoreConfig{
			Driver: "file",
			Path:   "/tmp/backupd.json",
		},
		Backup: structures.BackupConfig{
			MaxBackups: 5,
			Version:    "1.0.0",
			KeyPrefix:  "backup.",
			DataPrefix: "data.",
			Datasets: []structures.DatasetConfig{
				{Name: "stories", Kind: "list"},
				{Name: "settings", Kind: "object"},
			},
			Preferences: structures.PreferencesConfig{AutoBackup: true, BackupFrequency: "daily"},
		},
	}
}

func TestConfigValidator_ValidConfig(t *testing.T) {
	v := NewCnfValidator(validConfig())
	assert.NoError(t, v.Validate())
}

func TestConfigValidator_EmptyHost(t *testing.T) {
	c := validConfig()
	c.WebServer.Host = ""
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_ZeroPort(t *testing.T) {
	c := validConfig()
	c.WebServer.Port = 0
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_InvalidLogLevel(t *testing.T) {
	c := validConfig()
	c.Logger.Level = "verbose"
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_UnknownStoreDriver(t *testing.T) {
	c := validConfig()
	c.Store.Driver = "redis"
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_FileDriverNeedsPath(t *testing.T) {
	c := validConfig()
	c.Store.Path = ""
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_MemoryDriverWithoutPath(t *testing.T) {
	c := validConfig()
	c.Store.Driver = "memory"
	c.Store.Path = ""
	assert.NoError(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_ZeroMaxBackups(t *testing.T) {
	c := validConfig()
	c.Backup.MaxBackups = 0
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_UnknownFrequency(t *testing.T) {
	c := validConfig()
	c.Backup.Preferences.BackupFrequency = "yearly"
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_DatasetRules(t *testing.T) {
	tests := []struct {
		name     string
		datasets []structures.DatasetConfig
	}{
		{"empty name", []structures.DatasetConfig{{Name: "", Kind: "list"}}},
		{"bad kind", []structures.DatasetConfig{{Name: "stories", Kind: "map"}}},
		{"duplicate", []structures.DatasetConfig{{Name: "stories", Kind: "list"}, {Name: "stories", Kind: "object"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Backup.Datasets = tt.datasets
			assert.Error(t, NewCnfValidator(c).Validate())
		})
	}
}
