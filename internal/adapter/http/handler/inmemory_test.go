package handler_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"gds-payments/internal/core/domain"
	"gds-payments/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.Transaction // by processor payment id

	updates int
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{rows: make(map[string]*domain.Transaction)}
}

func (r *inMemoryTransactionRepo) Create(_ context.Context, t *domain.Transaction) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[t.ProcessorPaymentID]; ok {
		return false, nil
	}
	cp := *t
	r.rows[t.ProcessorPaymentID] = &cp
	return true, nil
}

func (r *inMemoryTransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.rows {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) GetByProcessorPaymentID(_ context.Context, id string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// UpdateStatus applies the same guard as the SQL: the row changes only while
// its status is one of from.
func (r *inMemoryTransactionRepo) UpdateStatus(_ context.Context, id string, status domain.TransactionStatus, from []domain.TransactionStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if t.Status == s {
			t.Status = status
			t.UpdatedAt = time.Now().UTC()
			r.updates++
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryTransactionRepo) List(_ context.Context, p ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Transaction, 0, len(r.rows))
	for _, t := range r.rows {
		if p.Status != nil && t.Status != *p.Status {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *inMemoryTransactionRepo) GetStats(_ context.Context, currency string, _ *time.Time) (*ports.TransactionStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &ports.TransactionStats{Currency: currency}
	for _, t := range r.rows {
		if t.Currency != currency {
			continue
		}
		stats.Total++
		if t.Status == domain.TransactionStatusCompleted {
			stats.Completed++
			stats.CompletedAmount += t.Amount
		}
	}
	return stats, nil
}

func (r *inMemoryTransactionRepo) get(id string) (domain.Transaction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return domain.Transaction{}, false
	}
	return *t, true
}

func (r *inMemoryTransactionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *inMemoryTransactionRepo) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates
}

// --- In-Memory Credential Repo ---

type inMemoryCredentialRepo struct {
	mu   sync.Mutex
	rows []*domain.IntegrationCredential
}

func (r *inMemoryCredentialRepo) Create(_ context.Context, _ pgx.Tx, c *domain.IntegrationCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *inMemoryCredentialRepo) DeactivateByService(_ context.Context, _ pgx.Tx, service string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.rows {
		if c.Service == service && c.IsActive {
			c.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *inMemoryCredentialRepo) GetActiveByService(_ context.Context, service string) (*domain.IntegrationCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.Service == service && c.IsActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryCredentialRepo) active() []*domain.IntegrationCredential {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.IntegrationCredential
	for _, c := range r.rows {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out
}

// --- Recording task queue ---

type recordingQueue struct {
	mu       sync.Mutex
	receipts []domain.Receipt
	repairs  []domain.Transaction
}

func (q *recordingQueue) EnqueueReceipt(_ context.Context, r domain.Receipt) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.receipts = append(q.receipts, r)
	return nil
}

func (q *recordingQueue) EnqueueLedgerRepair(_ context.Context, t domain.Transaction) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.repairs = append(q.repairs, t)
	return nil
}

func (q *recordingQueue) receiptCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.receipts)
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func (t *inMemoryTransactor) Begin(context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(context.Context) error          { return nil }
func (t *noopTx) Rollback(context.Context) error        { return nil }
func (t *noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *noopTx) Conn() *pgx.Conn                                         { return nil }
