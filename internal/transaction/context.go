package transaction

import "context"

type contextKey struct{}

// WithContext returns a context carrying the transaction.
func WithContext(ctx context.Context, txn *Transaction) context.Context {
	return context.WithValue(ctx, contextKey{}, txn)
}

// FromContext retrieves the transaction from the context, if any.
func FromContext(ctx context.Context) (*Transaction, bool) {
	txn, ok := ctx.Value(contextKey{}).(*Transaction)
	return txn, ok
}
