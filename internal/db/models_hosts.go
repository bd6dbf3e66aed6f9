package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrHostNotFound = errors.New("host not found")

// Host is the per-target record tracking what is known to run there.
// LastKnownGood is only moved after a release reaches succeeded, so it is
// always a safe rollback target.
type Host struct {
	AppName       string    `json:"app_name"`
	TargetName    string    `json:"target_name"`
	Address       string    `json:"address"`
	LastKnownGood string    `json:"last_known_good,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func createHostsTable(db *DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS hosts (
    app_name TEXT NOT NULL,
    target_name TEXT NOT NULL,
    address TEXT NOT NULL,
    last_known_good TEXT,                   -- release ID, only set after success
    updated_at DATETIME NOT NULL,

    PRIMARY KEY (app_name, target_name),
    FOREIGN KEY (last_known_good) REFERENCES releases(id)
);
`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create hosts table: %w", err)
	}
	return nil
}

func (db *DB) GetHost(appName, targetName string) (Host, error) {
	var host Host
	var lastKnownGood sql.NullString

	query := `SELECT app_name, target_name, address, last_known_good, updated_at
              FROM hosts WHERE app_name = ? AND target_name = ?`
	err := db.QueryRow(query, appName, targetName).Scan(
		&host.AppName, &host.TargetName, &host.Address, &lastKnownGood, &host.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return host, ErrHostNotFound
		}
		return host, fmt.Errorf("failed to get host: %w", err)
	}
	if lastKnownGood.Valid {
		host.LastKnownGood = lastKnownGood.String
	}
	return host, nil
}

// UpsertHost records the host address without touching last_known_good.
func (db *DB) UpsertHost(appName, targetName, address string) error {
	query := `
        INSERT INTO hosts (app_name, target_name, address, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(app_name, target_name) DO UPDATE SET
            address = excluded.address,
            updated_at = excluded.updated_at
    `
	_, err := db.Exec(query, appName, targetName, address, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert host: %w", err)
	}
	return nil
}

// SetLastKnownGood moves the last-known-good pointer for a host.
func (db *DB) SetLastKnownGood(appName, targetName, releaseID string) error {
	query := `UPDATE hosts SET last_known_good = ?, updated_at = ? WHERE app_name = ? AND target_name = ?`
	result, err := db.Exec(query, releaseID, time.Now(), appName, targetName)
	if err != nil {
		return fmt.Errorf("failed to set last known good release: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrHostNotFound
	}
	return nil
}
