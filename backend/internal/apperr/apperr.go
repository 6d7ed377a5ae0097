package apperr

import (
	"errors"
	"fmt"
)

// Kind 标识业务错误的类别，供 handler 层映射 HTTP 状态码。
type Kind int

const (
	// KindValidation 表示调用方输入缺失或非法。
	KindValidation Kind = iota + 1
	// KindNotFound 表示目标实体不存在，或不属于当前调用方。
	// 两种情况对外统一，避免泄露他人私有内容的存在性。
	KindNotFound
	// KindAuthorization 表示已认证但无权执行该操作。
	KindAuthorization
	// KindConflict 表示与现有状态冲突，例如自我关注。
	KindConflict
)

// Error 是携带 Kind 的业务错误。
type Error struct {
	kind Kind
	msg  string
	err  error
}

// New 构造一个指定类别的业务错误。
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Newf 以格式化消息构造业务错误。
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap 在保留底层错误的同时附加类别与消息。
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Unwrap 暴露底层错误，支持 errors.Is/As 链式判断。
func (e *Error) Unwrap() error {
	return e.err
}

// Kind 返回错误类别。
func (e *Error) Kind() Kind {
	return e.kind
}

// KindOf 提取错误链中的业务类别，非业务错误返回 0。
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.kind
	}
	return 0
}

// IsValidation 判断错误是否属于输入校验失败。
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound 判断错误是否属于目标不存在。
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsAuthorization 判断错误是否属于权限不足。
func IsAuthorization(err error) bool { return KindOf(err) == KindAuthorization }

// IsConflict 判断错误是否属于状态冲突。
func IsConflict(err error) bool { return KindOf(err) == KindConflict }
