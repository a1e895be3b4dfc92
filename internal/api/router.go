package api

import (
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/tidemark/chartpack/internal/api/controllers"
	"github.com/tidemark/chartpack/internal/app"
)

func RegisterRoutes(e *echo.Echo, app *app.Context) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			app.Logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	regionCtrl := &controllers.RegionController{App: app}
	transferCtrl := &controllers.TransferController{App: app}
	systemCtrl := &controllers.SystemController{App: app}

	// Region lifecycle
	e.GET("/api/regions/:id", regionCtrl.HandleGet)
	e.POST("/api/regions/:id/install", regionCtrl.HandleInstall)
	e.DELETE("/api/regions/:id", regionCtrl.HandleDelete)

	// Transfer control
	e.POST("/api/transfers/pause", transferCtrl.HandlePause)
	e.POST("/api/transfers/resume", transferCtrl.HandleResume)
	e.GET("/api/transfers/incomplete", transferCtrl.HandleIncomplete)

	// System
	e.POST("/api/manifest/rebuild", systemCtrl.HandleManifestRebuild)
	e.GET("/api/status", systemCtrl.HandleStatus)
}
