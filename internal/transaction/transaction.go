package transaction

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/settings"
	"github.com/lib/pq"
)

// SerializationAttempts bounds how often a serializable transaction is replayed after a conflict.
const SerializationAttempts = 3

const serializationFailure = "40001"

type Runner interface {
	DoWithSettings(ctx context.Context, s trm.Settings, fn func(ctx context.Context) error) error
}

func Serializable() trm.Settings {
	return trmsql.MustSettings(
		settings.Must(settings.WithCancelable(true)),
		trmsql.WithTxOptions(&sql.TxOptions{Isolation: sql.LevelSerializable}),
	)
}

// RunSerializable runs fn in a serializable transaction, replaying it on serialization failures.
func RunSerializable(ctx context.Context, r Runner, fn func(ctx context.Context) error) error {
	return WithRetry(SerializationAttempts, func(ctx context.Context) error {
		return r.DoWithSettings(ctx, Serializable(), fn)
	})(ctx)
}

func WithRetry(attempts int, f func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		var lastErr error
		for i := 0; i < attempts; i++ {
			err := f(ctx)
			if err == nil {
				return nil
			}

			if !IsSerializationFailure(err) {
				return err
			}

			log.FromContext(ctx).
				WithField("attempt", i+1).
				WithError(err).
				Warn("serialization failure, retrying transaction")
			lastErr = err
		}
		return lastErr
	}
}

func IsSerializationFailure(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == serializationFailure
}
