package internal

import (
	"net/http"

	"backupd/internal/controllers"
	"backupd/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/backups", http.HandlerFunc(apiController.GetHistory))
	routers.Post("/backups", http.HandlerFunc(apiController.CreateBackup))
	routers.Get("/backups/latest", http.HandlerFunc(apiController.GetLatest))
	routers.Get("/backups/get", http.HandlerFunc(apiController.GetByTimestamp))
	routers.Get("/backups/pre-restore", http.HandlerFunc(apiController.GetPreRestore))
	routers.Get("/backups/stats", http.HandlerFunc(apiController.GetStats))
	routers.Get("/backups/status", http.HandlerFunc(apiController.GetStatus))
	routers.Post("/backups/restore", http.HandlerFunc(apiController.Restore))
	routers.Post("/backups/undo", http.HandlerFunc(apiController.Undo))
	routers.Post("/backups/clear", http.HandlerFunc(apiController.Clear))
	routers.Post("/preferences", http.HandlerFunc(apiController.UpdatePreferences))
	return routers
}
