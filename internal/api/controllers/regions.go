package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/tidemark/chartpack/internal/app"
	"github.com/tidemark/chartpack/internal/domain"
	"github.com/tidemark/chartpack/internal/packs"
)

type RegionController struct {
	App *app.Context
}

// HandleGet returns the catalog document for a region merged with the local
// install state: which package ids are on disk and the capability flags.
func (ctrl *RegionController) HandleGet(c *echo.Context) error {
	regionID := c.Param("id")

	region, err := ctrl.App.Catalog.GetRegion(c.Request().Context(), regionID)
	if err != nil {
		if errors.Is(err, domain.ErrRegionNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown region: " + regionID})
		}
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	}

	installed, err := packs.InstalledPackageIDs(ctrl.App.Config.Packs.Dir, regionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	flags, err := ctrl.App.Registry.GetFlags(regionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, RegionResponse{
		Region:    region,
		Installed: installed,
		Flags:     flags,
	})
}

// HandleInstall kicks off a region install in the background. Only one run
// at a time: a second install while one is active gets a 409.
func (ctrl *RegionController) HandleInstall(c *echo.Context) error {
	regionID := c.Param("id")
	includeOptional := c.QueryParam("optional") == "true"

	if st := ctrl.App.Status(); st != nil && st.Active {
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "an install run is already active for region " + st.RegionID})
	}

	// Validate the region before accepting, so a typo gets a 404 instead of
	// a background failure.
	if _, err := ctrl.App.Catalog.GetRegion(c.Request().Context(), regionID); err != nil {
		if errors.Is(err, domain.ErrRegionNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown region: " + regionID})
		}
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	}

	go func() {
		// Detached from the request: pause/cancel go through the ledger.
		if _, err := ctrl.App.InstallRegion(context.Background(), regionID, includeOptional); err != nil {
			ctrl.App.Logger.Error("install run for %s failed: %v", regionID, err)
		}
	}()

	return c.JSON(http.StatusAccepted, AcceptedResponse{Message: "install started", RegionID: regionID})
}

// HandleDelete removes the region's artifacts. Shared files survive when
// another region still uses them; the manifest is rebuilt afterwards.
func (ctrl *RegionController) HandleDelete(c *echo.Context) error {
	regionID := c.Param("id")

	if st := ctrl.App.Status(); st != nil && st.Active && st.RegionID == regionID {
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "region has an active install run"})
	}

	// Cancel leftover transfer state first so a later resume cannot
	// resurrect packages that were just deleted.
	if err := ctrl.App.Ledger.CancelAll(regionID); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	others, err := packs.InstalledRegionIDs(ctrl.App.Config.Packs.Dir, regionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	result, err := ctrl.App.Remover.DeleteRegion(regionID, others)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, DeleteResponse{
		RegionID:     regionID,
		FilesDeleted: result.FilesDeleted,
		BytesFreed:   result.BytesFreed,
	})
}
