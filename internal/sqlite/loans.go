// File path: internal/sqlite/loans.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/loan"
)

var (
	ErrNotFound      = errors.New("loan not found")
	ErrMissingLoanID = errors.New("loan record has no loan_id")
)

// Upload is a normalized record ready to be catalogued. Data is the exact
// JSON returned to the client; Record is its decoded view.
type Upload struct {
	UploadID string
	Source   string
	FileName string
	Record   loan.Record
	Data     []byte
}

// SaveLoan upserts the record keyed by loan_id and appends a "normalized"
// audit entry. Re-uploading a loan keeps its original created_at.
func (s *Store) SaveLoan(ctx context.Context, upload Upload) (*LoanRow, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	loanID := strings.TrimSpace(string(upload.Record.LoanID))
	if loanID == "" {
		return nil, ErrMissingLoanID
	}
	stats := loan.CovenantStats(upload.Record)
	now := s.timestamp()
	row := LoanRow{
		LoanID:            loanID,
		UploadID:          upload.UploadID,
		BorrowerName:      string(upload.Record.Borrower.Name),
		Sector:            string(upload.Record.Borrower.Sector),
		HealthScore:       upload.Record.RiskEngine.HealthScore.Float(),
		BreachedCovenants: stats.Breached,
		Source:            upload.Source,
		FileName:          upload.FileName,
		Data:              string(upload.Data),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		query := `INSERT INTO loans(loan_id, upload_id, borrower_name, sector, health_score, breached_covenants, source, file_name, data, created_at, updated_at)
                VALUES(:loan_id, :upload_id, :borrower_name, :sector, :health_score, :breached_covenants, :source, :file_name, :data, :created_at, :updated_at)
                ON CONFLICT(loan_id) DO UPDATE SET
                        upload_id = excluded.upload_id,
                        borrower_name = excluded.borrower_name,
                        sector = excluded.sector,
                        health_score = excluded.health_score,
                        breached_covenants = excluded.breached_covenants,
                        source = excluded.source,
                        file_name = excluded.file_name,
                        data = excluded.data,
                        updated_at = excluded.updated_at`
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("upsert loan: %w", err)
		}
		detail := fmt.Sprintf("source=%s file=%s upload=%s", upload.Source, upload.FileName, upload.UploadID)
		return recordAudit(ctx, tx, loanID, "normalized", detail, now)
	})
	if err != nil {
		return nil, err
	}
	return s.GetLoan(ctx, loanID)
}

// GetLoan returns the catalogued row for loanID or ErrNotFound.
func (s *Store) GetLoan(ctx context.Context, loanID string) (*LoanRow, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var row LoanRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM loans WHERE loan_id = ?`, strings.TrimSpace(loanID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select loan: %w", err)
	}
	return &row, nil
}

// ListLoans returns catalog rows, most recently updated first.
func (s *Store) ListLoans(ctx context.Context, opts ListOptions) ([]LoanRow, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	filters := []string{}
	args := []interface{}{}
	if sector := strings.TrimSpace(opts.Sector); sector != "" {
		filters = append(filters, "sector = ? COLLATE NOCASE")
		args = append(args, sector)
	}
	if opts.BreachedOnly {
		filters = append(filters, "breached_covenants > 0")
	}
	if opts.MaxHealth != nil {
		filters = append(filters, "health_score <= ?")
		args = append(args, *opts.MaxHealth)
	}

	var b strings.Builder
	b.WriteString(`SELECT * FROM loans`)
	if len(filters) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(filters, " AND "))
	}
	b.WriteString(" ORDER BY updated_at DESC, loan_id LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows := []LoanRow{}
	if err := s.db.SelectContext(ctx, &rows, b.String(), args...); err != nil {
		return nil, fmt.Errorf("select loans: %w", err)
	}
	return rows, nil
}

// RecordAudit appends an audit entry for loanID outside of a save.
func (s *Store) RecordAudit(ctx context.Context, loanID, action, detail string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return recordAudit(ctx, tx, strings.TrimSpace(loanID), action, detail, s.timestamp())
	})
}

// AuditTrail lists audit entries for loanID in insertion order.
func (s *Store) AuditTrail(ctx context.Context, loanID string) ([]AuditRow, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	rows := []AuditRow{}
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM audit WHERE loan_id = ? ORDER BY id`, strings.TrimSpace(loanID)); err != nil {
		return nil, fmt.Errorf("select audit: %w", err)
	}
	return rows, nil
}

func recordAudit(ctx context.Context, tx *sqlx.Tx, loanID, action, detail, createdAt string) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO audit(loan_id, action, detail, created_at) VALUES(?, ?, ?, ?)`,
		nullIfEmpty(loanID), action, detail, createdAt); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullIfEmpty(value string) interface{} {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
