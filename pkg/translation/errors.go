package translation

import (
	"errors"
	"fmt"
)

// 预定义错误
var (
	// ErrNotFound 缓存中不存在该译文
	ErrNotFound = errors.New("translation not found")

	// ErrVerifiedEntry 已人工确认的译文拒绝自动覆盖
	ErrVerifiedEntry = errors.New("translation is manually verified")

	// ErrValidation 输入无效
	ErrValidation = errors.New("validation failed")

	// ErrPersistence 持久化失败
	ErrPersistence = errors.New("persistence failed")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError 输入校验错误，在任何网络调用之前返回
type ValidationError struct {
	Field  string
	Reason string
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap 返回 ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError 创建校验错误
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// PersistenceError 存储写入失败，调用方必须假定数据未写入
type PersistenceError struct {
	Op  string
	Err error
}

// Error 实现error接口
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap 同时匹配 ErrPersistence 和原因错误
func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// NewPersistenceError 创建持久化错误
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}
