// Package ledger is the durable record of in-flight and paused transfers.
// Mobile OSes kill suspended processes without notice, so every checkpoint
// lands in sqlite; the ledger is also the single serialization point for
// pause/resume/cancel state transitions.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

type PersistentLedger struct {
	db *sql.DB

	mu      sync.Mutex
	cancels map[string]context.CancelFunc // key: regionID/packageID
}

func Open(dbPath string) (*PersistentLedger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Ping makes sure the file is actually accessible and the DSN is valid
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	l := &PersistentLedger{
		db:      db,
		cancels: make(map[string]context.CancelFunc),
	}

	if err := l.runMigrations(); err != nil {
		return nil, fmt.Errorf("could not migrate ledger database: %w", err)
	}

	return l, nil
}

func (l *PersistentLedger) Close() error {
	return l.db.Close()
}

// RegisterCancel associates the in-flight transfer's cancel function with its
// record so PauseAll/CancelAll can release the transport handle.
func (l *PersistentLedger) RegisterCancel(regionID, packageID string, cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancels[recordKey(regionID, packageID)] = cancel
}

// UnregisterCancel drops the cancel hook once a transfer finishes.
func (l *PersistentLedger) UnregisterCancel(regionID, packageID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cancels, recordKey(regionID, packageID))
}

func (l *PersistentLedger) releaseHandles(regionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, cancel := range l.cancels {
		if regionID != "" && !keyInRegion(key, regionID) {
			continue
		}
		cancel()
		delete(l.cancels, key)
	}
}

func recordKey(regionID, packageID string) string {
	return regionID + "/" + packageID
}

func keyInRegion(key, regionID string) bool {
	return len(key) > len(regionID) && key[:len(regionID)] == regionID && key[len(regionID)] == '/'
}
