package database

import (
	"context"

	"github.com/SakuraBurst/bored/internal/bored/config"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type DB struct {
	Conn   *pgxpool.Pool
	logger *zap.Logger
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func NewDB(cfg *config.Config, logger *zap.Logger) (*DB, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "pgxpool.New failed: ")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "pool.Ping failed: ")
	}
	return &DB{Conn: pool, logger: logger.Named("database")}, nil
}

func (d *DB) Close() error {
	d.Conn.Close()
	return nil
}

func userExists(ctx context.Context, q querier, userName string) error {
	var exists bool
	err := q.QueryRow(ctx, "select exists(select 1 from users where username = $1)", userName).Scan(&exists)
	if err != nil {
		return errors.Wrap(err, "row.Scan failed: ")
	}
	if !exists {
		return ErrUserNotExist
	}
	return nil
}
