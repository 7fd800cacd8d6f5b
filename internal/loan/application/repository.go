package application

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var (
	ErrDatabaseInsertFailed = errors.New("DATABASE_INSERT_FAILED")
	ErrDuplicateReceipt     = errors.New("DUPLICATE_RECEIPT_NUMBER")
	ErrApplicationNotFound  = errors.New("APPLICATION_NOT_FOUND")
	ErrSearchFailed         = errors.New("SEARCH_QUERY_FAILED")
)

const uniqueViolation = "23505"

// Repository is the persistence collaborator for applications.
type Repository interface {
	Insert(ctx context.Context, record models.LoanApplicationRecord) error
	GetByReceiptNumber(ctx context.Context, receiptNumber string) (models.LoanApplicationRecord, error)
	SearchByName(ctx context.Context, name string, limit int) ([]models.ClientSummary, error)
}

type PostgresRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresRepository(db *sql.DB, log logger.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "application-repository"}),
	}
}

func (r *PostgresRepository) Insert(ctx context.Context, record models.LoanApplicationRecord) error {
	w := record.Wire()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO loan_applications (
			id, name, phone, email, nin, amount, term, interest, total_amount, receipt_number, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID,
		w.Name,
		w.Phone,
		w.Email,
		w.NIN,
		w.Amount.String(),
		string(w.Term),
		w.Interest,
		w.TotalAmount.String(),
		w.ReceiptNumber,
		record.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateReceipt, w.ReceiptNumber)
		}
		return fmt.Errorf("%w: insert failed: %v", ErrDatabaseInsertFailed, err)
	}

	r.recordEvent(ctx, "application_created", w.ReceiptNumber, map[string]interface{}{
		"amount": w.Amount.String(),
		"term":   string(w.Term),
	})
	return nil
}

// recordEvent writes to the audit table. Failures are logged only.
func (r *PostgresRepository) recordEvent(ctx context.Context, eventType, receiptNumber string, details map[string]interface{}) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO loan_application_events (event_type, receipt_number, details)
		VALUES ($1, $2, $3)`,
		eventType, receiptNumber, detailsJSON,
	); err != nil {
		r.logger.Warn("audit event insert failed", map[string]interface{}{
			"error":         err.Error(),
			"eventType":     eventType,
			"receiptNumber": receiptNumber,
		})
	}
}

func (r *PostgresRepository) GetByReceiptNumber(ctx context.Context, receiptNumber string) (models.LoanApplicationRecord, error) {
	var (
		rec           models.LoanApplicationRecord
		term          string
		amount, total string
		interest      int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, nin, amount, term, interest, total_amount, receipt_number, created_at
		FROM loan_applications
		WHERE receipt_number = $1`, receiptNumber,
	).Scan(
		&rec.ID,
		&rec.Applicant.Name,
		&rec.Applicant.Phone,
		&rec.Applicant.Email,
		&rec.Applicant.NIN,
		&amount,
		&term,
		&interest,
		&total,
		&rec.ReceiptNumber,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.LoanApplicationRecord{}, fmt.Errorf("%w: %s", ErrApplicationNotFound, receiptNumber)
	}
	if err != nil {
		return models.LoanApplicationRecord{}, fmt.Errorf("load application %s: %w", receiptNumber, err)
	}

	rec.Quote.Term = models.TermCode(term)
	if rec.Quote.Amount, err = decimal.NewFromString(amount); err != nil {
		return models.LoanApplicationRecord{}, fmt.Errorf("decode amount: %w", err)
	}
	if rec.Quote.TotalRepayment, err = decimal.NewFromString(total); err != nil {
		return models.LoanApplicationRecord{}, fmt.Errorf("decode total: %w", err)
	}
	rec.Quote.InterestRate = decimal.NewFromInt(interest).Shift(-2)
	return rec, nil
}

// SearchByName matches a case-insensitive substring of the applicant name, newest first.
func (r *PostgresRepository) SearchByName(ctx context.Context, name string, limit int) ([]models.ClientSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []models.ClientSummary{}, nil
	}
	if limit <= 0 {
		limit = 25
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT name, phone, email, receipt_number, amount, term, created_at
		FROM loan_applications
		WHERE name ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY created_at DESC
		LIMIT $2`, escapeLike(name), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer rows.Close()

	results := []models.ClientSummary{}
	for rows.Next() {
		var (
			c      models.ClientSummary
			amount string
			term   string
		)
		if err := rows.Scan(&c.Name, &c.Phone, &c.Email, &c.ReceiptNumber, &amount, &term, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrSearchFailed, err)
		}
		c.Amount, _ = decimal.NewFromString(amount)
		c.Term = models.TermCode(term)
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	return results, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
