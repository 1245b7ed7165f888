package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"rewards_system/internal/dbtest"
	"rewards_system/internal/domain"
	"rewards_system/internal/realtime"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (n *recordingNotifier) BalanceChanged(_ context.Context, ev realtime.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

type EngineTestSuite struct {
	suite.Suite
	db       *gorm.DB
	engine   *Engine
	notifier *recordingNotifier
	seq      int
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) SetupTest() {
	s.db = dbtest.Open(s.T())
	s.notifier = &recordingNotifier{}
	s.engine = NewEngine(s.db, nil, s.notifier, 3)
}

func (s *EngineTestSuite) newAccount(deposit string) uint {
	s.seq++
	acc := domain.Account{
		Email:        fmt.Sprintf("user%d@example.com", s.seq),
		Password:     "hash",
		Role:         domain.RoleUser,
		ReferralCode: fmt.Sprintf("CODE%04d", s.seq),
	}
	s.Require().NoError(s.db.Create(&acc).Error)
	if deposit != "" {
		_, err := s.engine.ApplyDelta(context.Background(), acc.ID, decimal.RequireFromString(deposit), domain.TxDeposit, "seed")
		s.Require().NoError(err)
	}
	return acc.ID
}

func (s *EngineTestSuite) balance(id uint) string {
	var acc domain.Account
	s.Require().NoError(s.db.First(&acc, id).Error)
	return acc.Balance.StringFixed(2)
}

func (s *EngineTestSuite) countTransactions(id uint) int64 {
	var n int64
	s.Require().NoError(s.db.Model(&domain.Transaction{}).Where("account_id = ?", id).Count(&n).Error)
	return n
}

func (s *EngineTestSuite) TestApplyDelta() {
	ctx := context.Background()
	id := s.newAccount("")

	cases := []struct {
		name        string
		delta       string
		txType      domain.TransactionType
		wantErr     error
		wantBalance string
	}{
		{name: "credit", delta: "100.00", txType: domain.TxDeposit, wantBalance: "100.00"},
		{name: "debit", delta: "-40.50", txType: domain.TxPurchase, wantBalance: "59.50"},
		{name: "overdraw", delta: "-59.51", txType: domain.TxWithdrawal, wantErr: domain.ErrInsufficientFunds, wantBalance: "59.50"},
		{name: "drain exactly", delta: "-59.50", txType: domain.TxWithdrawal, wantBalance: "0.00"},
		{name: "zero", delta: "0", txType: domain.TxBonus, wantErr: domain.ErrInvalidAmount, wantBalance: "0.00"},
		{name: "unknown type", delta: "1", txType: "gift", wantErr: domain.ErrInvalidInput, wantBalance: "0.00"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			newBalance, err := s.engine.ApplyDelta(ctx, id, decimal.RequireFromString(tc.delta), tc.txType, tc.name)
			if tc.wantErr != nil {
				s.Require().ErrorIs(err, tc.wantErr)
			} else {
				s.Require().NoError(err)
				s.Equal(tc.wantBalance, newBalance.StringFixed(2))
			}
			s.Equal(tc.wantBalance, s.balance(id))
		})
	}
	// only the three accepted calls left a row
	s.Equal(int64(3), s.countTransactions(id))
	s.Len(s.notifier.events, 3)
}

func (s *EngineTestSuite) TestApplyDeltaAccountNotFound() {
	_, err := s.engine.ApplyDelta(context.Background(), 9999, decimal.NewFromInt(1), domain.TxDeposit, "x")
	s.Require().ErrorIs(err, domain.ErrAccountNotFound)
}

// Runs on the single connection in-memory database, so the debits are serialized;
// TestOverlappingDebitsRetry covers transactions that really overlap.
func (s *EngineTestSuite) TestConcurrentDebitsNeverOverdraw() {
	ctx := context.Background()
	id := s.newAccount("100")

	const workers = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, rejected := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.engine.ApplyDelta(ctx, id, decimal.NewFromInt(-10), domain.TxPurchase, "concurrent")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
				return
			}
			if errors.Is(err, domain.ErrInsufficientFunds) {
				rejected++
			}
		}()
	}
	wg.Wait()

	s.Equal(10, accepted)
	s.Equal(workers-10, rejected)
	s.Equal("0.00", s.balance(id))

	rec, err := s.engine.Reconcile(ctx, id)
	s.Require().NoError(err)
	s.True(rec.OK)
	s.Equal(11, rec.Entries)
}

func (s *EngineTestSuite) TestOverlappingDebitsRetry() {
	ctx := context.Background()
	db := dbtest.OpenFile(s.T(), 4)
	engine := NewEngine(db, nil, nil, 100)
	acc := domain.Account{Email: "wal@example.com", Password: "hash", Role: domain.RoleUser, ReferralCode: "WALCODE1"}
	s.Require().NoError(db.Create(&acc).Error)
	_, err := engine.ApplyDelta(ctx, acc.ID, decimal.NewFromInt(50), domain.TxDeposit, "seed")
	s.Require().NoError(err)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = engine.ApplyDelta(ctx, acc.ID, decimal.NewFromInt(-10), domain.TxPurchase, "overlapping")
		}()
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		s.Require().ErrorIs(err, domain.ErrInsufficientFunds)
	}
	s.Equal(5, accepted)

	var got domain.Account
	s.Require().NoError(db.First(&got, acc.ID).Error)
	s.Equal("0.00", got.Balance.StringFixed(2))
	rec, err := engine.Reconcile(ctx, acc.ID)
	s.Require().NoError(err)
	s.True(rec.OK)
	s.Equal(6, rec.Entries)
}

func (s *EngineTestSuite) TestConflictIsRetried() {
	ctx := context.Background()
	id := s.newAccount("10")

	calls := 0
	res, err := s.engine.Run(ctx, id, Options{Kind: "test"}, func(op *Op) error {
		calls++
		if calls == 1 {
			// another writer commits first
			if err := op.DB().Model(&domain.Account{}).Where("id = ?", id).
				Update("version", gorm.Expr("version + 1")).Error; err != nil {
				return err
			}
		}
		return op.Post(decimal.NewFromInt(5), domain.TxBonus, "retry")
	})
	s.Require().NoError(err)
	s.Equal(2, calls)
	s.Equal("15.00", res.Account(id).Balance.StringFixed(2))
	s.Equal("15.00", s.balance(id))
	s.Equal(int64(2), s.countTransactions(id))
}

func (s *EngineTestSuite) TestConflictBudgetExhausted() {
	ctx := context.Background()
	id := s.newAccount("10")

	calls := 0
	_, err := s.engine.Run(ctx, id, Options{Kind: "test"}, func(op *Op) error {
		calls++
		if err := op.DB().Model(&domain.Account{}).Where("id = ?", id).
			Update("version", gorm.Expr("version + 1")).Error; err != nil {
			return err
		}
		return op.Post(decimal.NewFromInt(5), domain.TxBonus, "never")
	})
	s.Require().ErrorIs(err, domain.ErrStorageConflict)
	s.Equal(3, calls)
	s.Equal("10.00", s.balance(id))
	s.Equal(int64(1), s.countTransactions(id))
}

func (s *EngineTestSuite) TestFailedWriteRollsBackPosting() {
	ctx := context.Background()
	id := s.newAccount("100")

	_, err := s.engine.Run(ctx, id, Options{Kind: "purchase"}, func(op *Op) error {
		if err := op.Post(decimal.NewFromInt(-60), domain.TxPurchase, "item"); err != nil {
			return err
		}
		op.Then(func(tx *gorm.DB) error { return domain.ErrOutOfStock })
		return nil
	})
	s.Require().ErrorIs(err, domain.ErrOutOfStock)
	s.Equal("100.00", s.balance(id))
	s.Equal(int64(1), s.countTransactions(id))
}

func (s *EngineTestSuite) TestOperationIDIsIdempotent() {
	ctx := context.Background()
	id := s.newAccount("")

	post := func(op *Op) error { return op.Post(decimal.NewFromInt(25), domain.TxDeposit, "keyed") }
	res, err := s.engine.Run(ctx, id, Options{Kind: "deposit", OperationID: "client-key-1"}, post)
	s.Require().NoError(err)
	s.Equal("client-key-1", res.OperationID)
	s.Equal("client-key-1", res.Transactions[0].OperationID)

	_, err = s.engine.Run(ctx, id, Options{Kind: "deposit", OperationID: "client-key-1"}, post)
	s.Require().ErrorIs(err, domain.ErrDuplicateOperation)
	s.Equal("25.00", s.balance(id))
}

func (s *EngineTestSuite) TestRunManyMovesBothAccounts() {
	ctx := context.Background()
	a := s.newAccount("")
	b := s.newAccount("")

	res, err := s.engine.RunMany(ctx, []uint{b, a, b}, Options{Kind: "referral"}, func(batch *Batch) error {
		if err := batch.Op(a).Post(decimal.NewFromInt(50), domain.TxReferralBonus, "referrer"); err != nil {
			return err
		}
		return batch.Op(b).Post(decimal.NewFromInt(20), domain.TxReferralBonus, "referred")
	})
	s.Require().NoError(err)
	s.Len(res.Transactions, 2)
	s.Equal("50.00", s.balance(a))
	s.Equal("20.00", s.balance(b))
	s.Equal(res.Transactions[0].OperationID, res.Transactions[1].OperationID)
}

func (s *EngineTestSuite) TestHistoryPagination() {
	ctx := context.Background()
	id := s.newAccount("")
	for i := 1; i <= 5; i++ {
		_, err := s.engine.ApplyDelta(ctx, id, decimal.NewFromInt(int64(i)), domain.TxDeposit, fmt.Sprintf("d%d", i))
		s.Require().NoError(err)
	}

	page, err := s.engine.History(ctx, id, 1, 2)
	s.Require().NoError(err)
	s.Equal(int64(5), page.Total)
	s.Equal(3, page.TotalPages)
	s.Require().Len(page.Transactions, 2)
	s.Equal("d5", page.Transactions[0].Description)

	last, err := s.engine.History(ctx, id, 3, 2)
	s.Require().NoError(err)
	s.Require().Len(last.Transactions, 1)
	s.Equal("d1", last.Transactions[0].Description)
}

func (s *EngineTestSuite) TestNormalizePage() {
	p, size := NormalizePage(0, 1000)
	s.Equal(1, p)
	s.Equal(20, size)
}

func (s *EngineTestSuite) TestContextOperationID() {
	id := s.newAccount("")
	ctx := WithClientKey(context.Background(), id, "header-key")
	s.Equal(ClientOperationID(id, "header-key"), OperationIDFrom(ctx))

	_, err := s.engine.ApplyDelta(ctx, id, decimal.NewFromInt(5), domain.TxDeposit, "first")
	s.Require().NoError(err)
	_, err = s.engine.ApplyDelta(ctx, id, decimal.NewFromInt(5), domain.TxDeposit, "replayed")
	s.Require().ErrorIs(err, domain.ErrDuplicateOperation)

	// an explicit id wins over the ctx key
	res, err := s.engine.Run(ctx, id, Options{OperationID: "explicit"}, func(op *Op) error {
		return op.Post(decimal.NewFromInt(1), domain.TxBonus, "explicit")
	})
	s.Require().NoError(err)
	s.Equal("explicit", res.OperationID)
	s.Equal("6.00", s.balance(id))
}

func (s *EngineTestSuite) TestClientKeysAreScopedPerAccount() {
	a := s.newAccount("")
	b := s.newAccount("")

	_, err := s.engine.ApplyDelta(WithClientKey(context.Background(), a, "1"), a, decimal.NewFromInt(5), domain.TxDeposit, "a")
	s.Require().NoError(err)
	_, err = s.engine.ApplyDelta(WithClientKey(context.Background(), b, "1"), b, decimal.NewFromInt(7), domain.TxDeposit, "b")
	s.Require().NoError(err)
	s.Equal("5.00", s.balance(a))
	s.Equal("7.00", s.balance(b))

	// a client key equal to a server side id does not consume it
	_, err = s.engine.ApplyDelta(WithClientKey(context.Background(), a, "profit:1:0"), a, decimal.NewFromInt(1), domain.TxDeposit, "shaped")
	s.Require().NoError(err)
	_, err = s.engine.Run(context.Background(), b, Options{OperationID: "profit:1:0"}, func(op *Op) error {
		return op.Post(decimal.NewFromInt(3), domain.TxProfit, "server")
	})
	s.Require().NoError(err)
	s.Equal("10.00", s.balance(b))
}

func (s *EngineTestSuite) TestTransactionsFilter() {
	ctx := context.Background()
	a := s.newAccount("10")
	b := s.newAccount("20")
	_, err := s.engine.ApplyDelta(ctx, b, decimal.NewFromInt(-5), domain.TxPurchase, "buy")
	s.Require().NoError(err)

	all, err := s.engine.Transactions(ctx, TransactionFilter{}, 1, 50)
	s.Require().NoError(err)
	s.Equal(int64(3), all.Total)

	mine, err := s.engine.Transactions(ctx, TransactionFilter{AccountID: a}, 1, 50)
	s.Require().NoError(err)
	s.Equal(int64(1), mine.Total)

	buys, err := s.engine.Transactions(ctx, TransactionFilter{Type: domain.TxPurchase}, 1, 50)
	s.Require().NoError(err)
	s.Require().Len(buys.Transactions, 1)
	s.Equal(b, buys.Transactions[0].AccountID)

	_, err = s.engine.Transactions(ctx, TransactionFilter{Type: "gift"}, 1, 50)
	s.Require().ErrorIs(err, domain.ErrInvalidInput)
}
