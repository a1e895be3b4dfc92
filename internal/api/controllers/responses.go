package controllers

import (
	"time"

	"github.com/tidemark/chartpack/internal/app"
	"github.com/tidemark/chartpack/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type AcceptedResponse struct {
	Message  string `json:"message"`
	RegionID string `json:"region_id,omitempty"`
}

type RegionResponse struct {
	Region    *domain.Region     `json:"region"`
	Installed []string           `json:"installed_packages"`
	Flags     domain.RegionFlags `json:"flags"`
}

type DeleteResponse struct {
	RegionID     string `json:"region_id"`
	FilesDeleted int    `json:"files_deleted"`
	BytesFreed   int64  `json:"bytes_freed"`
}

type IncompleteResponse struct {
	Count     int                      `json:"count"`
	Transfers []*domain.TransferRecord `json:"transfers"`
}

type ManifestResponse struct {
	Entries     int       `json:"entries"`
	GeneratedAt time.Time `json:"generated_at"`
}

type StatusResponse struct {
	Run        *app.RunStatus `json:"run"`
	Incomplete int            `json:"incomplete_transfers"`
}
