// Package ledger applies balance mutations atomically and appends one transaction row per posting.
//
// Every operation runs in a single database transaction: the accounts involved are read, the
// caller stages postings and extra writes against that snapshot, and the commit swaps each account
// row only if its version is unchanged. A lost race rolls the whole transaction back and the
// operation is replayed from a fresh read, up to the retry budget.
package ledger

import (
	"context"       // Request scoped cancellation
	"errors"        // Sentinel matching
	"fmt"           // Error wrapping
	"math/rand/v2"  // Retry jitter
	"sort"          // Lock ordering
	"strings"       // Driver error inspection
	"time"          // Clock and back-off

	"rewards_system/internal/domain"   // Domain models
	"rewards_system/internal/metrics"  // Prometheus collectors
	"rewards_system/internal/realtime" // Balance changed events
	"rewards_system/internal/utils"    // Cache helpers

	"github.com/google/uuid"        // Operation ids
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Logging
	"gorm.io/gorm"                  // GORM ORM library
)

// errConflict marks a lost optimistic race; it never leaves the package.
var errConflict = errors.New("ledger: concurrent modification")

// Notifier receives an event for every account changed by a committed operation.
type Notifier interface {
	BalanceChanged(ctx context.Context, ev realtime.Event) error
}

// Options tune a single operation.
type Options struct {
	Kind        string // Label for metrics and the operation record
	OperationID string // Idempotency key; falls back to the ctx key, then a fresh uuid
}

// Engine is the sole writer of account balances and reward counters.
type Engine struct {
	db         *gorm.DB
	rdb        *redis.Client
	notifier   Notifier
	maxRetries int
	now        func() time.Time
}

// NewEngine creates a ledger engine. rdb and notifier may be nil.
func NewEngine(db *gorm.DB, rdb *redis.Client, notifier Notifier, maxRetries int) *Engine {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Engine{
		db:         db,
		rdb:        rdb,
		notifier:   notifier,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used to stamp operations.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Now reads the engine clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// DB exposes the underlying handle for read paths that share the engine's connection.
func (e *Engine) DB() *gorm.DB {
	return e.db
}

// Result describes a committed operation.
type Result struct {
	OperationID  string
	Accounts     map[uint]domain.Account
	Transactions []domain.Transaction
}

// Account returns the post-commit state of one account of the operation.
func (r *Result) Account(id uint) domain.Account {
	return r.Accounts[id]
}

// Batch is the staging area of one attempt.
type Batch struct {
	tx          *gorm.DB
	ops         map[uint]*Op
	writes      []func(tx *gorm.DB) error
	now         time.Time
	operationID string
}

// Op stages changes to one account.
type Op struct {
	batch    *Batch
	account  *domain.Account
	version  int64
	postings []domain.Transaction
}

// DB is the transaction handle. Reads inside an operation must go through it.
func (b *Batch) DB() *gorm.DB { return b.tx }

// Now is the timestamp shared by every row of the operation.
func (b *Batch) Now() time.Time { return b.now }

// OperationID identifies the operation.
func (b *Batch) OperationID() string { return b.operationID }

// Op returns the staging handle of an account loaded by the operation.
func (b *Batch) Op(accountID uint) *Op { return b.ops[accountID] }

// Then stages an extra write executed after the account rows are swapped, in the same transaction.
func (b *Batch) Then(fn func(tx *gorm.DB) error) { b.writes = append(b.writes, fn) }

// DB is the transaction handle.
func (o *Op) DB() *gorm.DB { return o.batch.tx }

// Now is the operation timestamp.
func (o *Op) Now() time.Time { return o.batch.now }

// OperationID identifies the operation.
func (o *Op) OperationID() string { return o.batch.operationID }

// Then stages an extra write, see Batch.Then.
func (o *Op) Then(fn func(tx *gorm.DB) error) { o.batch.Then(fn) }

// Account is the snapshot read at the start of the attempt. Field edits are persisted on commit.
func (o *Op) Account() *domain.Account { return o.account }

// Post stages a signed balance change and its transaction row.
func (o *Op) Post(amount decimal.Decimal, txType domain.TransactionType, description string) error {
	if amount.IsZero() || !txType.Valid() {
		return domain.ErrInvalidAmount
	}
	next := o.account.Balance.Add(amount)
	if next.IsNegative() {
		return domain.ErrInsufficientFunds
	}
	o.account.Balance = next
	o.postings = append(o.postings, domain.Transaction{
		AccountID:    o.account.ID,
		OperationID:  o.batch.operationID,
		Type:         txType,
		Amount:       amount,
		BalanceAfter: next,
		Description:  description,
		CreatedAt:    o.batch.now,
	})
	return nil
}

// ApplyDelta credits (delta > 0) or debits (delta < 0) one account and records one transaction.
func (e *Engine) ApplyDelta(ctx context.Context, accountID uint, delta decimal.Decimal, txType domain.TransactionType, description string) (decimal.Decimal, error) {
	if !txType.Valid() {
		return decimal.Zero, domain.ErrInvalidInput
	}
	res, err := e.Run(ctx, accountID, Options{Kind: string(txType)}, func(op *Op) error {
		return op.Post(delta, txType, description)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return res.Account(accountID).Balance, nil
}

// Run executes fn against a single account, see RunMany.
func (e *Engine) Run(ctx context.Context, accountID uint, opts Options, fn func(op *Op) error) (*Result, error) {
	return e.RunMany(ctx, []uint{accountID}, opts, func(b *Batch) error {
		return fn(b.Op(accountID))
	})
}

// RunMany executes fn against several accounts in one transaction. Accounts are read and
// swapped in ascending id order. Rule errors returned by fn abort without retry; conflicts are
// retried and surface as domain.ErrStorageConflict once the budget is spent.
func (e *Engine) RunMany(ctx context.Context, accountIDs []uint, opts Options, fn func(b *Batch) error) (*Result, error) {
	ids := uniqueSorted(accountIDs)
	if len(ids) == 0 {
		return nil, domain.ErrInvalidInput
	}
	kind := opts.Kind
	if kind == "" {
		kind = "operation"
	}
	opID := opts.OperationID
	if opID == "" {
		opID = OperationIDFrom(ctx)
	}
	if opID == "" {
		opID = uuid.NewString()
	}
	started := time.Now()
	defer func() { metrics.LedgerDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds()) }()

	for attempt := 1; ; attempt++ {
		res, err := e.attempt(ctx, ids, kind, opID, fn)
		if err == nil {
			metrics.LedgerOperations.WithLabelValues(kind, "ok").Inc()
			e.afterCommit(ctx, res)
			return res, nil
		}
		if !errors.Is(err, errConflict) {
			metrics.LedgerOperations.WithLabelValues(kind, metrics.Outcome(err)).Inc()
			return nil, err
		}
		metrics.LedgerConflicts.WithLabelValues(kind).Inc()
		if attempt >= e.maxRetries {
			metrics.LedgerOperations.WithLabelValues(kind, "conflict").Inc()
			logrus.WithFields(logrus.Fields{
				"account_ids": ids,
				"kind":        kind,
				"attempts":    attempt,
			}).Warn("Ledger retry budget exhausted")
			return nil, fmt.Errorf("%s after %d attempts: %w", kind, attempt, domain.ErrStorageConflict)
		}
		if err := backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (e *Engine) attempt(ctx context.Context, ids []uint, kind, opID string, fn func(b *Batch) error) (*Result, error) {
	var res *Result
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&domain.Operation{}).Where("id = ?", opID).Count(&seen).Error; err != nil {
			return classify(err)
		}
		if seen > 0 {
			return domain.ErrDuplicateOperation
		}

		b := &Batch{tx: tx, ops: make(map[uint]*Op, len(ids)), now: e.now(), operationID: opID}
		for _, id := range ids {
			var acc domain.Account
			if err := tx.First(&acc, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.ErrAccountNotFound
				}
				return classify(err)
			}
			b.ops[id] = &Op{batch: b, account: &acc, version: acc.Version}
		}

		if err := fn(b); err != nil {
			return err
		}

		res = &Result{OperationID: opID, Accounts: make(map[uint]domain.Account, len(ids))}
		for _, id := range ids {
			op := b.ops[id]
			if err := swap(tx, op, b.now); err != nil {
				return err
			}
			res.Accounts[id] = *op.account
		}
		for _, w := range b.writes {
			if err := w(tx); err != nil {
				return classify(err)
			}
		}
		for _, id := range ids {
			res.Transactions = append(res.Transactions, b.ops[id].postings...)
		}
		if len(res.Transactions) > 0 {
			if err := tx.Create(&res.Transactions).Error; err != nil {
				return classify(err)
			}
		}
		op := domain.Operation{ID: opID, AccountID: ids[0], Kind: kind, CreatedAt: b.now}
		if err := tx.Create(&op).Error; err != nil {
			return classify(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// swap persists the staged account state if nobody committed a newer version meanwhile.
func swap(tx *gorm.DB, op *Op, now time.Time) error {
	acc := op.account
	q := tx.Model(&domain.Account{}).
		Where("id = ? AND version = ?", acc.ID, op.version).
		Updates(map[string]any{
			"balance":                acc.Balance,
			"last_bonus_claim_at":    acc.LastBonusClaimAt,
			"daily_bonus_amount":     acc.DailyBonusAmount,
			"bonus_streak":           acc.BonusStreak,
			"completed_daily_tasks":  acc.CompletedDailyTasks,
			"daily_tasks_day":        acc.DailyTasksDay,
			"completed_intern_tasks": acc.CompletedInternTasks,
			"version":                gorm.Expr("version + 1"),
			"updated_at":             now,
		})
	if q.Error != nil {
		return classify(q.Error)
	}
	if q.RowsAffected == 0 {
		return errConflict
	}
	acc.Version = op.version + 1
	acc.UpdatedAt = now
	return nil
}

// afterCommit drops cached reads and notifies subscribers. Failures here are logged only.
func (e *Engine) afterCommit(ctx context.Context, res *Result) {
	net := make(map[uint]decimal.Decimal)
	last := make(map[uint]domain.TransactionType)
	for _, t := range res.Transactions {
		net[t.AccountID] = net[t.AccountID].Add(t.Amount)
		last[t.AccountID] = t.Type
	}
	for id, acc := range res.Accounts {
		if err := utils.DeleteCache(ctx, e.rdb, utils.AccountKey(id)); err != nil {
			logrus.WithFields(logrus.Fields{"account_id": id, "error": err.Error()}).Warn("Failed to invalidate account cache")
		}
		if _, moved := net[id]; !moved {
			continue
		}
		if err := utils.DeletePrefix(ctx, e.rdb, utils.HistoryPrefix(id)); err != nil {
			logrus.WithFields(logrus.Fields{"account_id": id, "error": err.Error()}).Warn("Failed to invalidate history cache")
		}
		if e.notifier == nil {
			continue
		}
		ev := realtime.Event{
			AccountID:   id,
			Balance:     acc.Balance,
			Amount:      net[id],
			Type:        last[id],
			OperationID: res.OperationID,
			At:          acc.UpdatedAt,
		}
		if err := e.notifier.BalanceChanged(ctx, ev); err != nil {
			logrus.WithFields(logrus.Fields{"account_id": id, "error": err.Error()}).Warn("Failed to publish balance change")
		}
	}
}

// classify maps driver errors that mean "someone else won" onto errConflict.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errConflict
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"deadlock",
		"could not serialize",
		"sqlstate 40001",
		"database is locked",
		"duplicate entry",
		"unique constraint",
		"duplicate key",
	} {
		if strings.Contains(msg, marker) {
			return errConflict
		}
	}
	return err
}

func backoff(ctx context.Context, attempt int) error {
	d := time.Duration(attempt)*5*time.Millisecond + time.Duration(rand.IntN(5))*time.Millisecond // nolint:gosec
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func uniqueSorted(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
