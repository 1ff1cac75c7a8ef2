package backup

import (
	"sync"
	"time"

	"github.com/roylee0704/gron"
)

// Schedule owns at most one recurring job. Arm replaces any armed job.
type Schedule interface {
	Arm(interval time.Duration, job func())
	Disarm()
}

// CronSchedule runs the armed job on a gron cron. Each Arm gets a fresh cron so
// a replaced job can never share a dispatcher with its successor.
type CronSchedule struct {
	mu   sync.Mutex
	cron *gron.Cron
}

func NewCronSchedule() Schedule {
	return &CronSchedule{}
}

func (c *CronSchedule) Arm(interval time.Duration, job func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.disarmLocked()
	cron := gron.New()
	cron.AddFunc(gron.Every(interval), job)
	cron.Start()
	c.cron = cron
}

func (c *CronSchedule) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disarmLocked()
}

func (c *CronSchedule) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cron != nil
}

func (c *CronSchedule) disarmLocked() {
	if c.cron != nil {
		c.cron.Stop()
		c.cron = nil
	}
}
