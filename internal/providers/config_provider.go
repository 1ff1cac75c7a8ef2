package providers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"backupd/internal/structures"
)

var defaultDatasets = []structures.DatasetConfig{
	{Name: "needs", Kind: "list"},
	{Name: "stories", Kind: "list"},
	{Name: "contacts", Kind: "list"},
	{Name: "interviews", Kind: "list"},
	{Name: "templates", Kind: "list"},
	{Name: "settings", Kind: "object"},
	{Name: "preferences", Kind: "object"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("webServer.host", "127.0.0.1")
	v.SetDefault("webServer.port", 8470)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("store.driver", "file")
	v.SetDefault("backup.maxBackups", 5)
	v.SetDefault("backup.version", "1.0.0")
	v.SetDefault("backup.keyPrefix", "backup.")
	v.SetDefault("backup.dataPrefix", "data.")
	v.SetDefault("backup.preferences.autoBackup", true)
	v.SetDefault("backup.preferences.backupFrequency", "daily")
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")
	setDefaults(v)

	v.BindEnv("logger.level", "BACKUPD_LOG_LEVEL")
	v.BindEnv("store.driver", "BACKUPD_STORE_DRIVER")
	v.BindEnv("store.path", "BACKUPD_STORE_PATH")
	v.BindEnv("backup.maxBackups", "BACKUPD_MAX_BACKUPS")
	v.BindEnv("backup.preferences.autoBackup", "BACKUPD_AUTO_BACKUP")
	v.BindEnv("backup.preferences.backupFrequency", "BACKUPD_BACKUP_FREQUENCY")
	v.BindEnv("cache.enabled", "BACKUPD_CACHE_ENABLED")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	if len(conf.Backup.Datasets) == 0 {
		conf.Backup.Datasets = append([]structures.DatasetConfig(nil), defaultDatasets...)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "backupd"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
