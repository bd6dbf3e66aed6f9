// Package release defines the release record and its lifecycle states.
package release

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid"
)

// Status is the lifecycle state of a release. A release moves strictly
// forward: Pending -> Building -> Deploying -> HealthChecking and then to
// exactly one of the terminal states.
type Status string

const (
	StatusPending        Status = "pending"
	StatusBuilding       Status = "building"
	StatusDeploying      Status = "deploying"
	StatusHealthChecking Status = "health_checking"
	StatusSucceeded      Status = "succeeded"
	StatusRolledBack     Status = "rolled_back"
	StatusFailed         Status = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusRolledBack, StatusFailed:
		return true
	}
	return false
}

// Release is the audit record for one deploy attempt. It is created when a
// deploy is triggered and only the coordinator mutates it.
type Release struct {
	ID             string    `json:"id"`
	AppName        string    `json:"app_name"`
	SourceRef      string    `json:"source_ref"`
	TargetName     string    `json:"target_name"`
	ArtifactHash   string    `json:"artifact_hash,omitempty"`
	ArtifactPath   string    `json:"artifact_path,omitempty"`
	Status         Status    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	RolledBackTo   string    `json:"rolled_back_to,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	FinishedAt     time.Time `json:"finished_at,omitzero"`
}

// NewID returns a sortable unique release ID. ULIDs sort by creation time,
// which keeps history queries a plain ORDER BY on the primary key.
func NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()
}
