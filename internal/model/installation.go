package model

import "time"

// Installation records the app's grant on a single repository.
// The natural key is (InstallationID, RepositoryID, TargetID).
//
// TargetType is "User" or "Organization", as GitHub reports it for the
// account the app was installed on.
type Installation struct {
	ID             string    `json:"id"             db:"id"`
	InstallationID int64     `json:"installationId" db:"installation_id"`
	TargetID       int64     `json:"targetId"       db:"target_id"`
	TargetType     string    `json:"targetType"     db:"target_type"`
	RepositoryID   int64     `json:"repositoryId"   db:"repository_id"`
	RepositoryName string    `json:"repositoryName" db:"repository_name"`
	State          State     `json:"state"          db:"state"`
	UpdatedAt      time.Time `json:"updatedAt"      db:"updated_at"`
}
