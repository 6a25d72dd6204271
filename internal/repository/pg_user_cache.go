package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/notifyhub/xnft-notify/internal/domain"
)

type pgUserCache struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgUserCache returns a UserCache backed by the resolved_users table.
// Row ids preserve insertion order across runs.
func NewPgUserCache(pool *pgxpool.Pool, logger *zap.Logger) UserCache {
	return &pgUserCache{pool: pool, logger: logger}
}

func (r *pgUserCache) Load(ctx context.Context) []domain.UserID {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM resolved_users ORDER BY id`)
	if err != nil {
		r.logger.Warn("error loading user cache", zap.Error(err))
		return []domain.UserID{}
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[domain.UserID])
	if err != nil {
		r.logger.Warn("error scanning user cache", zap.Error(err))
		return []domain.UserID{}
	}
	if ids == nil {
		ids = []domain.UserID{}
	}
	return ids
}

func (r *pgUserCache) Append(ctx context.Context, ids []domain.UserID) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"resolved_users"},
		[]string{"user_id"},
		pgx.CopyFromSlice(len(ids), func(i int) ([]any, error) {
			return []any{string(ids[i])}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy resolved users: %w", err)
	}
	return nil
}
