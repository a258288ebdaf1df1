// Package postgres 基于 PostgreSQL jsonb 表实现 docstore.Store
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/evaltrans/internal/docstore"
	"github.com/nerdneilsfield/evaltrans/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config 连接池配置
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store PostgreSQL 文档存储
type Store struct {
	pool    *pgxpool.Pool
	poolCfg *pgxpool.Config
	log     *zap.Logger
}

var _ docstore.Store = (*Store)(nil)

// New 连接数据库并返回存储实例
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	poolCfg, err := newPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg.Copy())
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Store{pool: pool, poolCfg: poolCfg, log: logger.OrNop(log)}, nil
}

// newPoolConfig 根据配置构建 pgxpool.Config
func newPoolConfig(cfg Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	return poolCfg, nil
}

// Migrate 执行内嵌的数据库迁移。迁移使用独立的连接池，结束后关闭
func (s *Store) Migrate() error {
	cfg := s.poolCfg.Copy()
	cfg.MaxConns = 2
	cfg.MinConns = 0
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create migration pool: %w", err)
	}
	defer pool.Close()
	db := stdlib.OpenDBFromPool(pool)

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	s.log.Info("database migrations applied")
	return nil
}

const upsertSQL = `INSERT INTO documents (collection, id, data, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`

// Get 读取文档
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var doc docstore.Document
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// Set 写入文档
func (s *Store) Set(ctx context.Context, collection, id string, doc docstore.Document) error {
	_, err := s.pool.Exec(ctx, upsertSQL, collection, id, doc)
	return err
}

// Delete 删除文档
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	return err
}

// Query 字段等值查询
func (s *Store) Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Document, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT data FROM documents WHERE collection = $1`)
	args := []any{collection}
	for _, f := range filters {
		args = append(args, f.Field, f.Value)
		fmt.Fprintf(&sb, ` AND data ->> $%d = $%d`, len(args)-1, len(args))
	}
	sb.WriteString(` ORDER BY id`)

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (docstore.Document, error) {
		var doc docstore.Document
		err := row.Scan(&doc)
		return doc, err
	})
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	return docs, nil
}

// Update 读取-修改-写入，同一文档的并发更新由事务级 advisory lock 串行化
func (s *Store) Update(ctx context.Context, collection, id string, fn docstore.UpdateFunc) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1 || '/' || $2, 0))`,
			collection, id); err != nil {
			return err
		}

		var current docstore.Document
		exists := true
		err := tx.QueryRow(ctx,
			`SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`,
			collection, id).Scan(&current)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			exists = false
		}

		next, err := fn(current, exists)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, upsertSQL, collection, id, next)
		return err
	})
}

// Batch 创建事务批量写入器
func (s *Store) Batch() docstore.AtomicWriter {
	return &batchWriter{pool: s.pool}
}

// Close 关闭连接池
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type batchWriter struct {
	pool  *pgxpool.Pool
	batch pgx.Batch
}

func (b *batchWriter) Stage(collection, id string, doc docstore.Document) {
	b.batch.Queue(upsertSQL, collection, id, docstore.Clone(doc))
}

func (b *batchWriter) Commit(ctx context.Context) error {
	if b.batch.Len() == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, b.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, &b.batch).Close()
	})
}
