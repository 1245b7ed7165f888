// Package realtime pushes balance-changed events to connected clients through redis pub/sub.
package realtime

import (
	"context"       // Request context
	"encoding/json" // Event encoding
	"strconv"       // Channel names
	"time"          // Clock and durations

	"rewards_system/internal/domain" // Domain models

	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Money
)

// EventBalanceChanged is the only event kind emitted today.
const EventBalanceChanged = "balance_changed"

// Event is the payload delivered to subscribers after a ledger commit.
type Event struct {
	Kind        string                 `json:"kind"`
	AccountID   uint                   `json:"account_id"`
	Balance     decimal.Decimal        `json:"balance"`
	Amount      decimal.Decimal        `json:"amount"`
	Type        domain.TransactionType `json:"type,omitempty"`
	OperationID string                 `json:"operation_id"`
	At          time.Time              `json:"at"`
}

// Channel is the redis channel carrying one account's events.
func Channel(accountID uint) string {
	return "account:" + strconv.FormatUint(uint64(accountID), 10) + ":events"
}

// Publisher emits events on redis. A nil client turns it into a no-op.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a publisher over rdb.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// BalanceChanged publishes ev on the account channel.
func (p *Publisher) BalanceChanged(ctx context.Context, ev Event) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	if ev.Kind == "" {
		ev.Kind = EventBalanceChanged
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, Channel(ev.AccountID), b).Err()
}
