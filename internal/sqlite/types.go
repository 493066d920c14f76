// File path: internal/sqlite/types.go
package sqlite

import "database/sql"

// LoanRow is one catalogued LoanJSON record.
type LoanRow struct {
	LoanID            string  `db:"loan_id" json:"loan_id"`
	UploadID          string  `db:"upload_id" json:"upload_id"`
	BorrowerName      string  `db:"borrower_name" json:"borrower_name"`
	Sector            string  `db:"sector" json:"sector"`
	HealthScore       float64 `db:"health_score" json:"health_score"`
	BreachedCovenants int     `db:"breached_covenants" json:"breached_covenants"`
	Source            string  `db:"source" json:"source"`
	FileName          string  `db:"file_name" json:"file_name"`
	Data              string  `db:"data" json:"-"`
	CreatedAt         string  `db:"created_at" json:"created_at"`
	UpdatedAt         string  `db:"updated_at" json:"updated_at"`
}

// AuditRow represents an audit entry.
type AuditRow struct {
	ID        int64          `db:"id" json:"id"`
	LoanID    sql.NullString `db:"loan_id" json:"-"`
	Action    string         `db:"action" json:"action"`
	Detail    string         `db:"detail" json:"detail"`
	CreatedAt string         `db:"created_at" json:"created_at"`
}

// ListOptions filters catalog listings. Zero values mean no filter.
type ListOptions struct {
	Sector       string
	BreachedOnly bool
	MaxHealth    *float64
	Limit        int
	Offset       int
}
