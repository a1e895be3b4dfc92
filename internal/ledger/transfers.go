package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tidemark/chartpack/internal/domain"
)

const transferColumns = "package_id, region_id, dest_path, bytes_downloaded, total_bytes, state, updated_at"

// SaveRecord upserts a transfer record. Called when a transfer starts and on
// every throttled progress tick, so the checkpoint survives a process kill.
func (l *PersistentLedger) SaveRecord(rec *domain.TransferRecord) error {
	query := `INSERT OR REPLACE INTO transfers (` + transferColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := l.db.Exec(query,
		rec.PackageID,
		rec.RegionID,
		rec.DestPath,
		rec.BytesDownloaded,
		rec.TotalBytes,
		rec.State,
		time.Now().UTC(),
	)
	return err
}

// SaveCheckpoint updates only the byte counters of an existing record. The
// state column is never touched: checkpoint writes race with PauseAll's
// transition, and a full upsert could flip a freshly paused record back to
// active or resurrect a row CancelAll just deleted. A checkpoint for a
// missing record is a no-op.
func (l *PersistentLedger) SaveCheckpoint(regionID, packageID string, bytesDownloaded, totalBytes int64) error {
	_, err := l.db.Exec(
		`UPDATE transfers SET bytes_downloaded = ?, total_bytes = ?, updated_at = ?
         WHERE region_id = ? AND package_id = ?`,
		bytesDownloaded, totalBytes, time.Now().UTC(), regionID, packageID)
	return err
}

// GetRecord fetches one record. Returns nil, nil when none exists.
func (l *PersistentLedger) GetRecord(regionID, packageID string) (*domain.TransferRecord, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers
              WHERE region_id = ? AND package_id = ? LIMIT 1`

	row := l.db.QueryRow(query, regionID, packageID)

	rec := &domain.TransferRecord{}
	err := row.Scan(&rec.PackageID, &rec.RegionID, &rec.DestPath,
		&rec.BytesDownloaded, &rec.TotalBytes, &rec.State, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch transfer record: %w", err)
	}

	return rec, nil
}

// DeleteRecord removes a record outright. Used on successful completion and
// by explicit cancellation.
func (l *PersistentLedger) DeleteRecord(regionID, packageID string) error {
	_, err := l.db.Exec(`DELETE FROM transfers WHERE region_id = ? AND package_id = ?`, regionID, packageID)
	return err
}

// GetIncomplete returns every record that is not done, oldest first. An empty
// regionID widens the scope to all regions. Called at application start and
// when a region panel opens, to offer a resume affordance.
func (l *PersistentLedger) GetIncomplete(regionID string) ([]*domain.TransferRecord, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE state != ?`
	args := []any{domain.TransferDone}
	if regionID != "" {
		query += ` AND region_id = ?`
		args = append(args, regionID)
	}
	query += ` ORDER BY updated_at ASC`

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch incomplete transfers: %w", err)
	}
	defer rows.Close()

	var recs []*domain.TransferRecord
	for rows.Next() {
		rec := &domain.TransferRecord{}
		err := rows.Scan(&rec.PackageID, &rec.RegionID, &rec.DestPath,
			&rec.BytesDownloaded, &rec.TotalBytes, &rec.State, &rec.UpdatedAt)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// PauseAll marks every active or queued record in scope as paused and
// releases the in-flight transport handles. The byte checkpoints are
// retained so ResumeAll can pick up mid-file.
func (l *PersistentLedger) PauseAll(regionID string) error {
	l.releaseHandles(regionID)

	query := `UPDATE transfers SET state = ?, updated_at = ? WHERE state IN (?, ?)`
	args := []any{domain.TransferPaused, time.Now().UTC(), domain.TransferActive, domain.TransferQueued}
	if regionID != "" {
		query += ` AND region_id = ?`
		args = append(args, regionID)
	}

	_, err := l.db.Exec(query, args...)
	return err
}

// ResumeAll flips paused and failed records in scope back to queued and
// returns them so the caller can re-issue transfer engine calls starting
// from each retained checkpoint.
func (l *PersistentLedger) ResumeAll(regionID string) ([]*domain.TransferRecord, error) {
	query := `UPDATE transfers SET state = ?, updated_at = ? WHERE state IN (?, ?)`
	args := []any{domain.TransferQueued, time.Now().UTC(), domain.TransferPaused, domain.TransferFailed}
	if regionID != "" {
		query += ` AND region_id = ?`
		args = append(args, regionID)
	}

	if _, err := l.db.Exec(query, args...); err != nil {
		return nil, err
	}

	return l.GetIncomplete(regionID)
}

// CancelAll releases in-flight handles and deletes every record in scope.
// Cancelled work is gone for good; resuming it means starting over.
func (l *PersistentLedger) CancelAll(regionID string) error {
	l.releaseHandles(regionID)

	query := `DELETE FROM transfers`
	var args []any
	if regionID != "" {
		query += ` WHERE region_id = ?`
		args = append(args, regionID)
	}

	_, err := l.db.Exec(query, args...)
	return err
}
