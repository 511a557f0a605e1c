package domain

import "errors"

// 错误类型（调用方只需要区分这几种）
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrIncompleteInput = errors.New("incomplete input")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ErrorKind 稳定的错误类型标识（用于 HTTP 返回）
type ErrorKind string

const (
	KindNotFound        ErrorKind = "NotFound"
	KindConflict        ErrorKind = "Conflict"
	KindInvalidState    ErrorKind = "InvalidState"
	KindIncompleteInput ErrorKind = "IncompleteInput"
	KindInvalidArgument ErrorKind = "InvalidArgument"
	KindInternal        ErrorKind = "Internal"
)

// KindOf 返回 err 对应的错误类型；无法识别的错误归为 Internal
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrIncompleteInput):
		return KindIncompleteInput
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	default:
		return KindInternal
	}
}
