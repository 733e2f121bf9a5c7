package models

import "time"

// Index actions recorded on a failure
const (
	IndexActionUpsert = "upsert"
	IndexActionDelete = "delete"
)

// IndexFailure is a dead letter for a search index write that did not succeed
// after retries. The record store already holds the committed change.
type IndexFailure struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Entity     string     `gorm:"size:64;index:idx_index_failure_lookup" json:"entity"`
	RecordID   int64      `gorm:"index:idx_index_failure_lookup" json:"record_id"`
	Action     string     `gorm:"size:16" json:"action"`
	Error      string     `gorm:"type:text" json:"error"`
	Attempts   int        `json:"attempts"`
	Resolved   bool       `gorm:"index" json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
