//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"backupd/internal"
	"backupd/internal/backup"
	"backupd/internal/controllers"
	"backupd/internal/kvstore"
	"backupd/internal/providers"
	"backupd/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, func(), error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		kvstore.NewStoreProvider,
		backup.NewCronSchedule,
		backup.NewService,
		wire.Bind(new(backup.BackupServiceInterface), new(*backup.Service)),
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil, nil
}

func InitService(cfg *structures.CliFlags) (*backup.Service, func(), error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		kvstore.NewStoreProvider,
		backup.NewCronSchedule,
		backup.NewService,
	)

	return nil, nil, nil
}
