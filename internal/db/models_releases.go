package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/larsvik/berth/internal/release"
)

var ErrReleaseNotFound = errors.New("release not found")

func createReleasesTable(db *DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS releases (
    id TEXT PRIMARY KEY,                    -- ULID, sortable by creation time
    app_name TEXT NOT NULL,
    source_ref TEXT NOT NULL,               -- commit hash or other source reference
    target_name TEXT NOT NULL,
    artifact_hash TEXT NOT NULL DEFAULT '',
    artifact_path TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    rolled_back_to TEXT,                  -- for a rolled-back release, the ID of the release that was restored
    created_at DATETIME NOT NULL,
    finished_at DATETIME,

    FOREIGN KEY (rolled_back_to) REFERENCES releases(id)
);

CREATE INDEX IF NOT EXISTS idx_releases_app_name ON releases(app_name);
CREATE INDEX IF NOT EXISTS idx_releases_target_name ON releases(target_name);
CREATE INDEX IF NOT EXISTS idx_releases_status ON releases(status);
`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create releases table: %w", err)
	}
	return nil
}

func (db *DB) SaveRelease(rel release.Release) error {
	query := `INSERT INTO releases (id, app_name, source_ref, target_name, artifact_hash, artifact_path, status, reason, rolled_back_to, created_at, finished_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.Exec(query, rel.ID, rel.AppName, rel.SourceRef, rel.TargetName,
		rel.ArtifactHash, rel.ArtifactPath, string(rel.Status), rel.Reason,
		nullString(rel.RolledBackTo), rel.CreatedAt, nullTime(rel.FinishedAt))
	if err != nil {
		return fmt.Errorf("failed to save release: %w", err)
	}
	return nil
}

// UpdateRelease overwrites the mutable fields of an existing release record.
func (db *DB) UpdateRelease(rel release.Release) error {
	query := `UPDATE releases
              SET artifact_hash = ?, artifact_path = ?, status = ?, reason = ?, rolled_back_to = ?, finished_at = ?
              WHERE id = ?`
	result, err := db.Exec(query, rel.ArtifactHash, rel.ArtifactPath, string(rel.Status),
		rel.Reason, nullString(rel.RolledBackTo), nullTime(rel.FinishedAt), rel.ID)
	if err != nil {
		return fmt.Errorf("failed to update release: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrReleaseNotFound
	}
	return nil
}

func (db *DB) GetRelease(releaseID string) (release.Release, error) {
	query := `SELECT id, app_name, source_ref, target_name, artifact_hash, artifact_path, status, reason, rolled_back_to, created_at, finished_at
              FROM releases WHERE id = ?`
	return db.scanRelease(db.QueryRow(query, releaseID))
}

func (db *DB) GetReleaseHistory(appName string, limit int) ([]release.Release, error) {
	query := `SELECT id, app_name, source_ref, target_name, artifact_hash, artifact_path, status, reason, rolled_back_to, created_at, finished_at
              FROM releases
              WHERE app_name = ?
              ORDER BY id DESC
              LIMIT ?`
	rows, err := db.Query(query, appName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query release history: %w", err)
	}
	defer rows.Close()

	var releases []release.Release
	for rows.Next() {
		rel, err := db.scanRelease(rows)
		if err != nil {
			return nil, err
		}
		releases = append(releases, rel)
	}
	return releases, rows.Err()
}

// SucceededReleases returns succeeded releases for a target, newest first.
// These are the valid rollback candidates.
func (db *DB) SucceededReleases(appName, targetName string, limit int) ([]release.Release, error) {
	query := `SELECT id, app_name, source_ref, target_name, artifact_hash, artifact_path, status, reason, rolled_back_to, created_at, finished_at
              FROM releases
              WHERE app_name = ? AND target_name = ? AND status = ?
              ORDER BY id DESC
              LIMIT ?`
	rows, err := db.Query(query, appName, targetName, string(release.StatusSucceeded), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query succeeded releases: %w", err)
	}
	defer rows.Close()

	var releases []release.Release
	for rows.Next() {
		rel, err := db.scanRelease(rows)
		if err != nil {
			return nil, err
		}
		releases = append(releases, rel)
	}
	return releases, rows.Err()
}

// PruneOldReleases keeps the N most recent terminal releases for an app and
// deletes the rest. Releases still in flight are never pruned, and neither is
// any release still referenced as a host's last known good or as a rollback
// target of a kept release: deleting those would break the rollback path (and
// the foreign keys enforce that).
func (db *DB) PruneOldReleases(appName string, releasesToKeep int) (int64, error) {
	query := `
        DELETE FROM releases
        WHERE app_name = ?
        AND status IN (?, ?, ?)
        AND id NOT IN (
            SELECT id FROM releases
            WHERE app_name = ?
            ORDER BY id DESC
            LIMIT ?
        )
        AND id NOT IN (
            SELECT last_known_good FROM hosts WHERE last_known_good IS NOT NULL
        )
        AND id NOT IN (
            SELECT rolled_back_to FROM releases WHERE rolled_back_to IS NOT NULL
        )
    `

	result, err := db.Exec(query, appName,
		string(release.StatusSucceeded), string(release.StatusRolledBack), string(release.StatusFailed),
		appName, releasesToKeep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune old releases: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

// FailInterruptedReleases marks every non-terminal release as failed. The
// daemon runs it once at startup, before accepting new work: a row still in
// flight at that point belonged to a process that died mid-release.
func (db *DB) FailInterruptedReleases() (int64, error) {
	query := `UPDATE releases
              SET status = ?, reason = ?, finished_at = ?
              WHERE status IN (?, ?, ?, ?)`
	result, err := db.Exec(query, string(release.StatusFailed), "interrupted", time.Now().UTC(),
		string(release.StatusPending), string(release.StatusBuilding),
		string(release.StatusDeploying), string(release.StatusHealthChecking))
	if err != nil {
		return 0, fmt.Errorf("failed to mark interrupted releases: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanRelease(row rowScanner) (release.Release, error) {
	var rel release.Release
	var status string
	var rolledBackTo sql.NullString
	var finishedAt sql.NullTime

	err := row.Scan(&rel.ID, &rel.AppName, &rel.SourceRef, &rel.TargetName,
		&rel.ArtifactHash, &rel.ArtifactPath, &status, &rel.Reason,
		&rolledBackTo, &rel.CreatedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rel, ErrReleaseNotFound
		}
		return rel, fmt.Errorf("failed to scan release: %w", err)
	}

	rel.Status = release.Status(status)
	if rolledBackTo.Valid {
		rel.RolledBackTo = rolledBackTo.String
	}
	if finishedAt.Valid {
		rel.FinishedAt = finishedAt.Time
	}
	return rel, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
