package kvstore

import (
	"fmt"

	"backupd/internal/providers"
	"backupd/internal/structures"
)

// NewStoreProvider opens the configured driver and fronts the backup keys with
// the cache.
// The returned cleanup closes the store.
func NewStoreProvider(conf *structures.Config, logger providers.Logger, cache providers.CacheProviderInterface) (Store, func(), error) {
	var (
		inner Store
		err   error
	)

	switch conf.Store.Driver {
	case "memory":
		inner = NewMemoryStore(conf.Store.Quota)
	case "file":
		inner, err = OpenFileStore(conf.Store.Path, conf.Store.Quota)
	case "sqlite":
		if conf.Store.Quota > 0 {
			logger.Warnf(providers.TypeStore, "store.quota is ignored by the sqlite driver")
		}
		inner, err = OpenSQLiteStore(conf.Store.Path)
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", conf.Store.Driver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", conf.Store.Driver, err)
	}
	logger.Infof(providers.TypeStore, "Opened %s store %s", conf.Store.Driver, conf.Store.Path)

	store := Store(NewCachedStore(inner, cache, conf.Backup.KeyPrefix))
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Errorf(providers.TypeStore, "Error while closing store: %s", err)
		}
	}
	return store, cleanup, nil
}
