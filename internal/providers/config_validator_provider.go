package providers

import (
	"fmt"

	"github.com/gookit/validate"

	"backupd/internal/structures"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (c *CnfValidator) Validate() error {
	v := validate.Struct(c.conf)
	if !v.Validate() {
		return v.Errors
	}

	if c.conf.Store.Driver != "memory" && c.conf.Store.Path == "" {
		return fmt.Errorf("store.path is required for driver %q", c.conf.Store.Driver)
	}

	seen := make(map[string]struct{}, len(c.conf.Backup.Datasets))
	for i, ds := range c.conf.Backup.Datasets {
		if ds.Name == "" {
			return fmt.Errorf("backup.datasets[%d]: name is required", i)
		}
		if ds.Kind != "list" && ds.Kind != "object" {
			return fmt.Errorf("backup.datasets[%d]: kind must be list or object, got %q", i, ds.Kind)
		}
		if _, dup := seen[ds.Name]; dup {
			return fmt.Errorf("backup.datasets[%d]: duplicate dataset %q", i, ds.Name)
		}
		seen[ds.Name] = struct{}{}
	}
	return nil
}
