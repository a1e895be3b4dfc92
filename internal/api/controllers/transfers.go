package controllers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/tidemark/chartpack/internal/app"
)

type TransferController struct {
	App *app.Context
}

// HandlePause marks the region's live transfers paused and interrupts them.
// Checkpoints stay in the ledger. An empty region_id pauses everything.
func (ctrl *TransferController) HandlePause(c *echo.Context) error {
	regionID := c.QueryParam("region_id")

	if err := ctrl.App.Ledger.PauseAll(regionID); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, AcceptedResponse{Message: "transfers paused", RegionID: regionID})
}

// HandleResume requeues incomplete transfers and restarts them in the
// background from their saved byte offsets.
func (ctrl *TransferController) HandleResume(c *echo.Context) error {
	regionID := c.QueryParam("region_id")

	if st := ctrl.App.Status(); st != nil && st.Active {
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "an install run is already active for region " + st.RegionID})
	}

	incomplete, err := ctrl.App.Ledger.GetIncomplete(regionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	if len(incomplete) == 0 {
		return c.JSON(http.StatusOK, AcceptedResponse{Message: "nothing to resume", RegionID: regionID})
	}

	go func() {
		if _, err := ctrl.App.ResumeRegion(context.Background(), regionID); err != nil {
			ctrl.App.Logger.Error("resume run failed: %v", err)
		}
	}()

	return c.JSON(http.StatusAccepted, AcceptedResponse{Message: "resume started", RegionID: regionID})
}

// HandleIncomplete lists ledger records that have not finished, oldest
// first, optionally scoped to one region.
func (ctrl *TransferController) HandleIncomplete(c *echo.Context) error {
	regionID := c.QueryParam("region_id")

	records, err := ctrl.App.Ledger.GetIncomplete(regionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, IncompleteResponse{Count: len(records), Transfers: records})
}
