package ledger

import (
	"context" // Request scoped values
	"strconv" // Account id formatting
)

type operationIDKey struct{}

// clientKeyPrefix namespaces client supplied keys; server side ids (profit:, referral:) never start with it
const clientKeyPrefix = "client:"

// ClientOperationID is the operation id a client key commits under. Keys are scoped to the
// account that sent them, so two accounts may reuse the same key.
func ClientOperationID(accountID uint, key string) string {
	return clientKeyPrefix + strconv.FormatUint(uint64(accountID), 10) + ":" + key
}

// WithClientKey attaches the idempotency key sent by accountID to ctx. Operations started with
// ctx and no explicit Options.OperationID commit under ClientOperationID(accountID, key).
func WithClientKey(ctx context.Context, accountID uint, key string) context.Context {
	if key == "" || accountID == 0 {
		return ctx
	}
	return context.WithValue(ctx, operationIDKey{}, ClientOperationID(accountID, key))
}

// OperationIDFrom returns the scoped id attached by WithClientKey, if any.
func OperationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(operationIDKey{}).(string)
	return id
}
