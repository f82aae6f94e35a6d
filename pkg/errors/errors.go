package errors

import (
	"errors"
	"fmt"
)

// 跨层共享的错误分类，各模块错误通过 %w 包装以便 errors.Is 判断
var (
	// ErrUnauthenticated 未登录状态下调用用户数据操作
	ErrUnauthenticated = errors.New("用户未登录")
	// ErrNotFound 记录不存在（或不属于当前用户）
	ErrNotFound = errors.New("记录不存在")
	// ErrPersistence 存储层读写失败
	ErrPersistence = errors.New("数据存储失败")
)

// Persistence 将存储错误包装为 ErrPersistence，同时保留原始错误链
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &persistenceError{op: op, err: err}
}

type persistenceError struct {
	op  string
	err error
}

func (e *persistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *persistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.err}
}
