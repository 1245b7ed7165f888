package rewards

import (
	"context"     // Request context
	"crypto/rand" // Unbiased draws
	"fmt"         // Error wrapping
	"math/big"    // Draw bounds

	"rewards_system/internal/domain" // Domain models
	"rewards_system/internal/ledger" // Atomic balance mutations

	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Logging
)

// Segment is one slice of the spin wheel
type Segment struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
	Weight int             `json:"weight"`
}

// Wheel is an ordered list of weighted segments
type Wheel []Segment

// DefaultWheel is the wheel served to clients and drawn on the server
var DefaultWheel = Wheel{
	{Label: "Try again", Amount: decimal.Zero, Weight: 30},
	{Label: "5", Amount: decimal.NewFromInt(5), Weight: 25},
	{Label: "10", Amount: decimal.NewFromInt(10), Weight: 20},
	{Label: "20", Amount: decimal.NewFromInt(20), Weight: 12},
	{Label: "50", Amount: decimal.NewFromInt(50), Weight: 8},
	{Label: "100", Amount: decimal.NewFromInt(100), Weight: 4},
	{Label: "500", Amount: decimal.NewFromInt(500), Weight: 1},
}

// TotalWeight is the size of the draw range
func (w Wheel) TotalWeight() int {
	total := 0
	for _, seg := range w {
		total += seg.Weight
	}
	return total
}

// Pick maps a draw in [0, TotalWeight) to a segment index. Segment i owns the half-open
// interval [sum of weights before i, that sum + weight i).
func (w Wheel) Pick(draw int) (int, error) {
	if draw < 0 {
		return 0, fmt.Errorf("draw %d out of range", draw)
	}
	upper := 0
	for i, seg := range w {
		upper += seg.Weight
		if draw < upper {
			return i, nil
		}
	}
	return 0, fmt.Errorf("draw %d out of range [0,%d)", draw, upper)
}

// cryptoDraw returns a uniform integer in [0, n)
func cryptoDraw(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// Wheel returns the wheel clients render
func (s *Service) Wheel() Wheel {
	return s.wheel
}

// SpinResult is the outcome of one spin
type SpinResult struct {
	Reward
	Segment int    `json:"segment"`
	Label   string `json:"label"`
}

// Spin draws one wheel segment per account per day and credits its amount
func (s *Service) Spin(ctx context.Context, accountID uint) (*SpinResult, error) {
	out := &SpinResult{}
	res, err := s.ledger.Run(ctx, accountID, ledger.Options{Kind: domain.ClaimSpin}, func(op *ledger.Op) error {
		today := s.day(op.Now())
		done, err := claimed(op.DB(), op.Account().ID, domain.ClaimSpin, 0, today)
		if err != nil {
			return err
		}
		if done {
			return domain.ErrAlreadyClaimedToday
		}
		draw, err := s.draw(s.wheel.TotalWeight())
		if err != nil {
			return fmt.Errorf("spin draw: %w", err)
		}
		idx, err := s.wheel.Pick(draw)
		if err != nil {
			return err
		}
		seg := s.wheel[idx]
		if seg.Amount.IsPositive() {
			if err := op.Post(seg.Amount, domain.TxBonus, "Spin wheel: "+seg.Label); err != nil {
				return err
			}
		}
		recordClaim(op, domain.ClaimSpin, 0, today, seg.Amount)
		out.Segment = idx
		out.Label = seg.Label
		out.Amount = seg.Amount
		return nil
	})
	logOutcome("spin", accountID, logrus.Fields{"segment": out.Segment, "amount": out.Amount.String()}, err)
	if err != nil {
		return nil, err
	}
	out.Balance = res.Account(accountID).Balance
	out.OperationID = res.OperationID
	return out, nil
}
