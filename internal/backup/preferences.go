package backup

import (
	"time"

	"backupd/internal/structures"
)

type Frequency string

const (
	Hourly  Frequency = "hourly"
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Interval maps a frequency to its schedule period. Unknown values count as daily.
func (f Frequency) Interval() time.Duration {
	switch f {
	case Hourly:
		return time.Hour
	case Weekly:
		return 7 * 24 * time.Hour
	case Monthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func (f Frequency) normalize() Frequency {
	switch f {
	case Hourly, Daily, Weekly, Monthly:
		return f
	default:
		return Daily
	}
}

type Preferences struct {
	AutoBackup      bool      `json:"autoBackup"`
	BackupFrequency Frequency `json:"backupFrequency"`
}

func (p Preferences) normalize() Preferences {
	p.BackupFrequency = p.BackupFrequency.normalize()
	return p
}

func PreferencesFromConfig(conf *structures.Config) Preferences {
	return Preferences{
		AutoBackup:      conf.Backup.Preferences.AutoBackup,
		BackupFrequency: Frequency(conf.Backup.Preferences.BackupFrequency),
	}.normalize()
}
