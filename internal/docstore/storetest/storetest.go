// Package storetest 提供所有 docstore 实现共用的行为测试
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/evaltrans/internal/docstore"
)

// Run 对给定的存储实现执行完整的行为测试，newStore 每次必须返回空存储
func Run(t *testing.T, newStore func(t *testing.T) docstore.Store) {
	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "goals", "nope")
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("SetGetDelete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "goals", "g1_en", docstore.Document{"title": "Improve safety", "weight": 30.0}))

		doc, err := s.Get(ctx, "goals", "g1_en")
		require.NoError(t, err)
		assert.Equal(t, "Improve safety", doc["title"])
		assert.Equal(t, 30.0, doc["weight"])

		require.NoError(t, s.Delete(ctx, "goals", "g1_en"))
		_, err = s.Get(ctx, "goals", "g1_en")
		assert.ErrorIs(t, err, docstore.ErrNotFound)
		require.NoError(t, s.Delete(ctx, "goals", "g1_en"))
	})

	t.Run("QueryByField", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "c", "b", docstore.Document{"tenantId": "t1", "lang": "en"}))
		require.NoError(t, s.Set(ctx, "c", "a", docstore.Document{"tenantId": "t1", "lang": "ja"}))
		require.NoError(t, s.Set(ctx, "c", "c", docstore.Document{"tenantId": "t2", "lang": "en"}))

		docs, err := s.Query(ctx, "c", docstore.Eq("tenantId", "t1"))
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "ja", docs[0]["lang"])
		assert.Equal(t, "en", docs[1]["lang"])

		docs, err = s.Query(ctx, "c", docstore.Eq("tenantId", "t1"), docstore.Eq("lang", "en"))
		require.NoError(t, err)
		assert.Len(t, docs, 1)

		docs, err = s.Query(ctx, "empty")
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("UpdateCreatesAndModifies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		inc := func(current docstore.Document, exists bool) (docstore.Document, error) {
			if !exists {
				return docstore.Document{"n": 1.0}, nil
			}
			current["n"] = current["n"].(float64) + 1
			return current, nil
		}
		require.NoError(t, s.Update(ctx, "counters", "x", inc))
		require.NoError(t, s.Update(ctx, "counters", "x", inc))

		doc, err := s.Get(ctx, "counters", "x")
		require.NoError(t, err)
		assert.Equal(t, 2.0, doc["n"])
	})

	t.Run("UpdateAbortKeepsDocument", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "c", "k", docstore.Document{"v": "keep"}))

		sentinel := errors.New("declined")
		err := s.Update(ctx, "c", "k", func(current docstore.Document, exists bool) (docstore.Document, error) {
			return docstore.Document{"v": "overwritten"}, sentinel
		})
		assert.ErrorIs(t, err, sentinel)

		doc, err := s.Get(ctx, "c", "k")
		require.NoError(t, err)
		assert.Equal(t, "keep", doc["v"])
	})

	t.Run("ConcurrentUpdates", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Update(ctx, "counters", "y", func(current docstore.Document, exists bool) (docstore.Document, error) {
					if !exists {
						return docstore.Document{"n": 1.0}, nil
					}
					current["n"] = current["n"].(float64) + 1
					return current, nil
				}))
			}()
		}
		wg.Wait()

		doc, err := s.Get(ctx, "counters", "y")
		require.NoError(t, err)
		assert.Equal(t, 20.0, doc["n"])
	})

	t.Run("BatchCommit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		batch := s.Batch()
		batch.Stage("goals", "g1_en", docstore.Document{"lang": "en"})
		batch.Stage("goals", "g1_ja", docstore.Document{"lang": "ja"})
		batch.Stage("goals", "g1_vi", docstore.Document{"lang": "vi"})

		docs, err := s.Query(ctx, "goals")
		require.NoError(t, err)
		assert.Empty(t, docs, "staged writes must not be visible before commit")

		require.NoError(t, batch.Commit(ctx))
		docs, err = s.Query(ctx, "goals")
		require.NoError(t, err)
		assert.Len(t, docs, 3)
	})

	t.Run("ReturnedDocumentsAreCopies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "c", "k", docstore.Document{"v": "a"}))
		doc, err := s.Get(ctx, "c", "k")
		require.NoError(t, err)
		doc["v"] = "mutated"

		again, err := s.Get(ctx, "c", "k")
		require.NoError(t, err)
		assert.Equal(t, "a", again["v"])
	})
}
