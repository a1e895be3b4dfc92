package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tidemark/chartpack/internal/domain"
)

// SetFlags upserts a region's capability flags. Called by the sequencer
// after a successful run and by region deletion.
func (l *PersistentLedger) SetFlags(regionID string, flags domain.RegionFlags) error {
	query := `INSERT OR REPLACE INTO region_flags
              (region_id, has_charts, has_predictions, has_buoys, has_zones, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)`

	_, err := l.db.Exec(query, regionID,
		flags.HasCharts, flags.HasPredictions, flags.HasBuoys, flags.HasZones,
		time.Now().UTC())
	return err
}

// GetFlags returns a region's capability flags; all false when no row exists.
func (l *PersistentLedger) GetFlags(regionID string) (domain.RegionFlags, error) {
	query := `SELECT has_charts, has_predictions, has_buoys, has_zones
              FROM region_flags WHERE region_id = ? LIMIT 1`

	var flags domain.RegionFlags
	err := l.db.QueryRow(query, regionID).Scan(
		&flags.HasCharts, &flags.HasPredictions, &flags.HasBuoys, &flags.HasZones)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RegionFlags{}, nil
		}
		return domain.RegionFlags{}, fmt.Errorf("failed to fetch region flags: %w", err)
	}

	return flags, nil
}

// ClearFlags removes a region's capability row entirely.
func (l *PersistentLedger) ClearFlags(regionID string) error {
	_, err := l.db.Exec(`DELETE FROM region_flags WHERE region_id = ?`, regionID)
	return err
}
