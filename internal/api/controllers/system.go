package controllers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/tidemark/chartpack/internal/app"
	"github.com/tidemark/chartpack/internal/manifest"
)

type SystemController struct {
	App *app.Context
}

// HandleManifestRebuild forces a full rescan of the package directory and
// rewrites the manifest atomically.
func (ctrl *SystemController) HandleManifestRebuild(c *echo.Context) error {
	if err := ctrl.App.Manifest.Generate(); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	doc, err := manifest.Load(ctrl.App.Config.Packs.ManifestPath)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, ManifestResponse{Entries: len(doc.Entries), GeneratedAt: doc.GeneratedAt})
}

// HandleStatus reports the current (or most recent) install run and the
// count of incomplete transfers in the ledger.
func (ctrl *SystemController) HandleStatus(c *echo.Context) error {
	incomplete, err := ctrl.App.Ledger.GetIncomplete("")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, StatusResponse{
		Run:        ctrl.App.Status(),
		Incomplete: len(incomplete),
	})
}
