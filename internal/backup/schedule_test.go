package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestInitialize_AutoBackupCapturesAndArms(t *testing.T) {
	f := newFixture(t, 10)

	f.svc.Initialize(Preferences{AutoBackup: true, BackupFrequency: Daily})

	assert.Equal(t, 1, f.sched.Arms)
	assert.Equal(t, 24*time.Hour, f.sched.Interval)
	assert.Len(t, f.svc.GetBackupHistory(), 1)

	status := f.svc.Status()
	assert.True(t, status.Running)
	assert.True(t, status.AutoBackup)
	assert.Equal(t, Daily, status.BackupFrequency)
	assert.Equal(t, "24h0m0s", status.Interval)

	f.sched.Fire()
	assert.Len(t, f.svc.GetBackupHistory(), 2)
}

func TestInitialize_Disabled(t *testing.T) {
	f := newFixture(t, 10)

	f.svc.Initialize(Preferences{AutoBackup: false, BackupFrequency: Weekly})

	assert.Equal(t, 0, f.sched.Arms)
	assert.Empty(t, f.svc.GetBackupHistory())
	assert.False(t, f.svc.Status().Running)
}

func TestInitialize_TwiceLeavesOneLiveSchedule(t *testing.T) {
	f := newFixture(t, 10)

	f.svc.Initialize(Preferences{AutoBackup: true, BackupFrequency: Daily})
	f.svc.Initialize(Preferences{AutoBackup: true, BackupFrequency: Daily})
	require.Len(t, f.svc.GetBackupHistory(), 2)

	f.sched.FireAll()
	assert.Len(t, f.svc.GetBackupHistory(), 3)
}

func TestInitialize_UnknownFrequencyIsDaily(t *testing.T) {
	f := newFixture(t, 10)

	f.svc.Initialize(Preferences{AutoBackup: true, BackupFrequency: "yearly"})

	assert.Equal(t, 24*time.Hour, f.sched.Interval)
	assert.Equal(t, Daily, f.svc.Status().BackupFrequency)
}

func TestUpdatePreferences_FrequencyChangeRearms(t *testing.T) {
	f := newFixture(t, 10)
	f.svc.Initialize(Preferences{AutoBackup: true, BackupFrequency: Daily})

	f.svc.UpdatePreferences(Preferences{AutoBackup: true, BackupFrequency: Hourly})

	assert.Equal(t, 2, f.sched.Arms)
	assert.Equal(t, time.Hour, f.sched.Interval)
	require.Len(t, f.svc.GetBackupHistory(), 2)

	// the job armed for the daily schedule is stale
	f.sched.FireAll()
	assert.Len(t, f.svc.GetBackupHistory(), 3)
}

func TestUpdatePreferences_SameValuesNoop(t *testing.T) {
	f := newFixture(t, 10)
	f.svc.Initialize(Preferences{AutoBackup: true, BackupFrequency: Weekly})

	f.svc.UpdatePreferences(Preferences{AutoBackup: true, BackupFrequency: Weekly})

	assert.Equal(t, 1, f.sched.Arms)
	assert.Len(t, f.svc.GetBackupHistory(), 1)
}

func TestUpdatePreferences_FrequencyChangeWhileDisabled(t *testing.T) {
	f := newFixture(t, 10)
	f.svc.Initialize(Preferences{AutoBackup: false, BackupFrequency: Daily})

	f.svc.UpdatePreferences(Preferences{AutoBackup: false, BackupFrequency: Monthly})

	assert.Equal(t, 0, f.sched.Arms)
	status := f.svc.Status()
	assert.False(t, status.Running)
	assert.Equal(t, Monthly, status.BackupFrequency)
	assert.Equal(t, "720h0m0s", status.Interval)
}

func TestUpdatePreferences_TurnOnAndOff(t *testing.T) {
	f := newFixture(t, 10)
	f.svc.Initialize(Preferences{AutoBackup: false, BackupFrequency: Daily})

	f.svc.UpdatePreferences(Preferences{AutoBackup: true, BackupFrequency: Daily})
	assert.True(t, f.sched.Armed())
	assert.Len(t, f.svc.GetBackupHistory(), 1)

	f.svc.UpdatePreferences(Preferences{AutoBackup: false, BackupFrequency: Daily})
	assert.False(t, f.sched.Armed())
	assert.False(t, f.svc.Status().Running)

	f.sched.FireAll()
	assert.Len(t, f.svc.GetBackupHistory(), 1)
}

func TestStop_Idempotent(t *testing.T) {
	f := newFixture(t, 10)

	f.svc.Stop()
	f.svc.Start()
	f.svc.Stop()
	f.svc.Stop()

	assert.False(t, f.svc.Status().Running)
	f.sched.FireAll()
	assert.Len(t, f.svc.GetBackupHistory(), 1)
}

func TestFrequencyInterval(t *testing.T) {
	assert.Equal(t, time.Hour, Hourly.Interval())
	assert.Equal(t, 24*time.Hour, Daily.Interval())
	assert.Equal(t, 7*24*time.Hour, Weekly.Interval())
	assert.Equal(t, 30*24*time.Hour, Monthly.Interval())
	assert.Equal(t, 24*time.Hour, Frequency("").Interval())
}

func TestCronSchedule_FiresAndDisarms(t *testing.T) {
	s := NewCronSchedule().(*CronSchedule)
	var fired atomic.Int32

	s.Arm(time.Second, func() { fired.Inc() })
	assert.True(t, s.Armed())
	require.Eventually(t, func() bool { return fired.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	s.Disarm()
	assert.False(t, s.Armed())
	time.Sleep(100 * time.Millisecond)
	after := fired.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, after, fired.Load())
}

func TestCronSchedule_ArmReplacesJob(t *testing.T) {
	s := NewCronSchedule().(*CronSchedule)
	defer s.Disarm()
	var first, second atomic.Int32

	s.Arm(time.Second, func() { first.Inc() })
	s.Arm(time.Second, func() { second.Inc() })
	time.Sleep(100 * time.Millisecond)
	before := first.Load()

	require.Eventually(t, func() bool { return second.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, before, first.Load())
}
