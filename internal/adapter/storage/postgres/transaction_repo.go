package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gds-payments/internal/core/domain"
	"gds-payments/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, user_id, item_id, checkout_type, processor_payment_id, amount, currency,
		status, payment_method, receipt_url, created_at, updated_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a ledger row. A row that already exists for the processor
// payment id is left untouched and reported as not inserted.
func (r *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) (bool, error) {
	method, err := json.Marshal(t.PaymentMethod)
	if err != nil {
		return false, fmt.Errorf("encode payment method: %w", err)
	}

	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (processor_payment_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		t.ID, t.UserID, t.ItemID, t.CheckoutType, t.ProcessorPaymentID,
		t.Amount, t.Currency, t.Status, method, t.ReceiptURL,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert transaction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetByProcessorPaymentID returns nil, nil when no row exists.
func (r *TransactionRepo) GetByProcessorPaymentID(ctx context.Context, processorPaymentID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE processor_payment_id = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, processorPaymentID))
}

// UpdateStatus is a compare-and-set: the row changes only while its current
// status is one of from, so concurrent deliveries cannot move it backwards.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, processorPaymentID string, status domain.TransactionStatus, from []domain.TransactionStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	query := `UPDATE transactions SET status = $1, updated_at = $2
		WHERE processor_payment_id = $3 AND status = ANY($4)`

	tag, err := r.pool.Exec(ctx, query, status, time.Now().UTC(), processorPaymentID, allowed)
	if err != nil {
		return false, fmt.Errorf("update transaction status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List fetches transactions with filtering and pagination.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, *params.UserID)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}
	if s := strings.TrimSpace(params.Search); s != "" {
		conditions = append(conditions, fmt.Sprintf("(processor_payment_id ILIKE $%d OR id::text ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+s+"%")
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	page, pageSize := params.Page, params.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		t, err := scanTransactionRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

// GetStats aggregates ledger counts for one currency, optionally from since onwards.
func (r *TransactionRepo) GetStats(ctx context.Context, currency string, since *time.Time) (*ports.TransactionStats, error) {
	args := []any{currency}
	condition := "currency = $1"
	if since != nil {
		condition += " AND created_at >= $2"
		args = append(args, *since)
	}

	query := fmt.Sprintf(`SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'PENDING') AS pending,
		COUNT(*) FILTER (WHERE status = 'APPROVED') AS approved,
		COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed,
		COUNT(*) FILTER (WHERE status = 'CANCELED') AS canceled,
		COUNT(*) FILTER (WHERE status = 'FAILED') AS failed,
		COALESCE(SUM(amount) FILTER (WHERE status = 'COMPLETED'), 0) AS completed_amount
		FROM transactions WHERE %s`, condition)

	stats := &ports.TransactionStats{Currency: currency}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.Total, &stats.Pending, &stats.Approved, &stats.Completed,
		&stats.Canceled, &stats.Failed, &stats.CompletedAmount,
	)
	if err != nil {
		return nil, fmt.Errorf("get transaction stats: %w", err)
	}
	return stats, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t, err := scanTransactionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}

func scanTransactionRow(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var method []byte
	err := row.Scan(
		&t.ID, &t.UserID, &t.ItemID, &t.CheckoutType, &t.ProcessorPaymentID,
		&t.Amount, &t.Currency, &t.Status, &method, &t.ReceiptURL,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(method) > 0 {
		if err := json.Unmarshal(method, &t.PaymentMethod); err != nil {
			return nil, fmt.Errorf("decode payment method: %w", err)
		}
	}
	return t, nil
}
