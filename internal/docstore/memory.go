package docstore

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore 内存文档存储，所有操作共享一把锁，批量提交天然原子
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建内存文档存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Document),
	}
}

// Get 读取文档
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return Clone(doc), nil
}

// Set 写入文档
func (s *MemoryStore) Set(ctx context.Context, collection, id string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setUnsafe(collection, id, doc)
	return nil
}

// Delete 删除文档
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[collection], id)
	return nil
}

// Query 字段等值查询
func (s *MemoryStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id, doc := range docs {
		if Matches(doc, filters) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	result := make([]Document, 0, len(ids))
	for _, id := range ids {
		result = append(result, Clone(docs[id]))
	}
	return result, nil
}

// Update 读取-修改-写入
func (s *MemoryStore) Update(ctx context.Context, collection, id string, fn UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.collections[collection][id]
	next, err := fn(Clone(current), exists)
	if err != nil {
		return err
	}
	s.setUnsafe(collection, id, next)
	return nil
}

// Batch 创建批量写入器
func (s *MemoryStore) Batch() AtomicWriter {
	return &memoryBatch{store: s}
}

// Close 内存存储无需释放资源
func (s *MemoryStore) Close() error {
	return nil
}

// setUnsafe 需要已持有写锁
func (s *MemoryStore) setUnsafe(collection, id string, doc Document) {
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]Document)
		s.collections[collection] = coll
	}
	coll[id] = Clone(doc)
}

type stagedWrite struct {
	collection string
	id         string
	doc        Document
}

type memoryBatch struct {
	store  *MemoryStore
	writes []stagedWrite
}

func (b *memoryBatch) Stage(collection, id string, doc Document) {
	b.writes = append(b.writes, stagedWrite{collection: collection, id: id, doc: Clone(doc)})
}

func (b *memoryBatch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	for _, w := range b.writes {
		b.store.setUnsafe(w.collection, w.id, w.doc)
	}
	b.writes = nil
	return nil
}
