package txmanager

import (
	"errors"
	"fmt"
)

// 存储层错误
var (
	ErrTXNotFound     = errors.New("transaction not found")
	ErrUnknownService = errors.New("unknown service")
	ErrDuplicateTXID  = errors.New("duplicate transaction id")
	ErrTXFinalized    = errors.New("transaction finalized")
)

// 协调者返回给传输层的错误类型, 用 errors.Is 判断
var (
	ErrNotFound      = errors.New("transaction not found")
	ErrAborted       = errors.New("transaction aborted")
	ErrExpired       = errors.New("transaction expired")
	ErrRepeated      = errors.New("transaction processed")
	ErrUnprocessable = errors.New("unprocessable")
	ErrTimeout       = errors.New("timeout on waiting for status update")
	ErrBadParams     = errors.New("bad params")
)

// ValidationError 创建事务时的入参错误, 不会产生任何事务记录
type ValidationError struct {
	Msg string
}

func (v *ValidationError) Error() string {
	return v.Msg
}

// Is 让 errors.Is(err, ErrBadParams) 对 ValidationError 也成立
func (v *ValidationError) Is(target error) bool {
	return target == ErrBadParams
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
