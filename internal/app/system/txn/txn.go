// Package txn runs multi-document writes in a MongoDB transaction when the
// deployment supports one, and falls back to running them without a
// transaction on standalone servers.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes meaning "transactions are unavailable here".
const (
	codeIllegalOperation         = 20
	codeNoSuchTransaction        = 51
	codeOperationNotSupportedTxn = 263
)

// IsNotSupported reports whether err says the server cannot run the
// operation inside a transaction (standalone mongod, some emulators).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case codeIllegalOperation, codeNoSuchTransaction, codeOperationNotSupportedTxn:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}

// Run executes fn inside a transaction. If the server rejects transactions,
// fn is run again with a plain context and the writes are not atomic.
// fn must therefore be safe to repeat.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, fn func(ctx context.Context) error) error {
	if client == nil {
		return fn(ctx)
	}

	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		if log != nil {
			log.Info("transactions unavailable, running without one", zap.Error(err))
		}
		return fn(ctx)
	}
	return err
}
