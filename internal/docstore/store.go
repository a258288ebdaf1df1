// Package docstore 定义文档数据库的最小能力集合：按键读写、字段等值查询、
// 单文档事务更新以及跨文档的原子批量写入。
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound 文档不存在
var ErrNotFound = errors.New("document not found")

// Document 文档内容，字段值必须是可 JSON 序列化的类型
type Document map[string]any

// Filter 字段等值过滤条件
type Filter struct {
	Field string
	Value string
}

// Eq 创建等值过滤条件
func Eq(field, value string) Filter {
	return Filter{Field: field, Value: value}
}

// UpdateFunc 在事务内计算新文档。返回错误时放弃写入并原样返回该错误
type UpdateFunc func(current Document, exists bool) (Document, error)

// AtomicWriter 原子批量写入器：多次 Stage 后一次 Commit，要么全部可见要么全部不可见
type AtomicWriter interface {
	// Stage 暂存一次写入
	Stage(collection, id string, doc Document)

	// Commit 提交所有暂存的写入
	Commit(ctx context.Context) error
}

// Store 文档存储接口
type Store interface {
	// Get 按键读取文档，不存在时返回 ErrNotFound
	Get(ctx context.Context, collection, id string) (Document, error)

	// Set 按键写入（覆盖）文档
	Set(ctx context.Context, collection, id string, doc Document) error

	// Delete 删除文档，不存在时不报错
	Delete(ctx context.Context, collection, id string) error

	// Query 按字段等值查询，结果按文档 ID 排序
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)

	// Update 在单文档事务中读取-修改-写入
	Update(ctx context.Context, collection, id string, fn UpdateFunc) error

	// Batch 创建原子批量写入器
	Batch() AtomicWriter

	// Close 释放底层连接
	Close() error
}

// Encode 将结构体转换为文档
func Encode(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return doc, nil
}

// Decode 将文档转换为结构体
func Decode(doc Document, v any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// Matches 判断文档是否满足所有过滤条件
func Matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		value, ok := doc[f.Field]
		if !ok || value == nil {
			return false
		}
		if s, isString := value.(string); isString {
			if s != f.Value {
				return false
			}
			continue
		}
		if fmt.Sprint(value) != f.Value {
			return false
		}
	}
	return true
}

// Clone 深拷贝文档
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return map[string]any(Clone(Document(val)))
	case Document:
		return Clone(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
