// Package redisstore 基于 Redis 实现 docstore.Store：文档以 JSON 字符串保存，
// 每个集合维护一个 ID 集合用于查询
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/evaltrans/internal/docstore"
	"github.com/nerdneilsfield/evaltrans/internal/logger"
)

const (
	defaultPrefix    = "evaltrans:"
	maxUpdateRetries = 64
	mgetChunkSize    = 200
)

// Options Redis 连接配置
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store Redis 文档存储
type Store struct {
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
}

var _ docstore.Store = (*Store)(nil)

// New 连接 Redis 并返回存储实例
func New(ctx context.Context, opts Options, log *zap.Logger) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewFromClient(rdb, opts.Prefix, log), nil
}

// NewFromClient 使用已有客户端创建存储
func NewFromClient(rdb *redis.Client, prefix string, log *zap.Logger) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix, log: logger.OrNop(log)}
}

func (s *Store) docKey(collection, id string) string {
	return s.prefix + "doc:" + collection + ":" + id
}

func (s *Store) indexKey(collection string) string {
	return s.prefix + "idx:" + collection
}

// Get 读取文档
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	data, err := s.rdb.Get(ctx, s.docKey(collection, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("redis get error: %w", err)
	}
	return decode(data)
}

// Set 写入文档
func (s *Store) Set(ctx context.Context, collection, id string, doc docstore.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(collection, id), data, 0)
		pipe.SAdd(ctx, s.indexKey(collection), id)
		return nil
	})
	return err
}

// Delete 删除文档
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.docKey(collection, id))
		pipe.SRem(ctx, s.indexKey(collection), id)
		return nil
	})
	return err
}

// Query 扫描集合索引并在客户端过滤
func (s *Store) Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Document, error) {
	ids, err := s.rdb.SMembers(ctx, s.indexKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers error: %w", err)
	}
	sort.Strings(ids)

	result := make([]docstore.Document, 0, len(ids))
	for start := 0; start < len(ids); start += mgetChunkSize {
		end := start + mgetChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, s.docKey(collection, id))
		}

		values, err := s.rdb.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("redis mget error: %w", err)
		}
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				// 索引残留但文档已删除
				continue
			}
			doc, err := decode([]byte(raw))
			if err != nil {
				s.log.Warn("skipping undecodable document",
					zap.String("key", keys[i]), zap.Error(err))
				continue
			}
			if docstore.Matches(doc, filters) {
				result = append(result, doc)
			}
		}
	}
	return result, nil
}

// Update 基于 WATCH 的乐观事务，冲突时重试
func (s *Store) Update(ctx context.Context, collection, id string, fn docstore.UpdateFunc) error {
	key := s.docKey(collection, id)

	txf := func(tx *redis.Tx) error {
		var current docstore.Document
		exists := true
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			exists = false
		case err != nil:
			return err
		default:
			if current, err = decode(data); err != nil {
				return err
			}
		}

		next, err := fn(current, exists)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			pipe.SAdd(ctx, s.indexKey(collection), id)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		s.log.Debug("optimistic update conflict, retrying",
			zap.String("key", key), zap.Int("attempt", i+1))
	}
	return fmt.Errorf("update of %s aborted after %d conflicts", key, maxUpdateRetries)
}

// Batch 创建 MULTI/EXEC 批量写入器
func (s *Store) Batch() docstore.AtomicWriter {
	return &batchWriter{store: s}
}

// Close 关闭客户端
func (s *Store) Close() error {
	return s.rdb.Close()
}

type stagedWrite struct {
	collection string
	id         string
	doc        docstore.Document
}

type batchWriter struct {
	store  *Store
	writes []stagedWrite
}

func (b *batchWriter) Stage(collection, id string, doc docstore.Document) {
	b.writes = append(b.writes, stagedWrite{collection: collection, id: id, doc: docstore.Clone(doc)})
}

func (b *batchWriter) Commit(ctx context.Context) error {
	if len(b.writes) == 0 {
		return nil
	}
	// 先完成全部编码，避免事务中途失败
	encoded := make([][]byte, len(b.writes))
	for i, w := range b.writes {
		data, err := json.Marshal(w.doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document %s/%s: %w", w.collection, w.id, err)
		}
		encoded[i] = data
	}

	_, err := b.store.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, w := range b.writes {
			pipe.Set(ctx, b.store.docKey(w.collection, w.id), encoded[i], 0)
			pipe.SAdd(ctx, b.store.indexKey(w.collection), w.id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.writes = nil
	return nil
}

func decode(data []byte) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("json unmarshal error: %w", err)
	}
	return doc, nil
}
