package httpapi

import (
	"net/http"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
)

// Result 统一响应信封
// - code: 2000 成功，其余为错误码
// - type: 'success' | 'error'
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1

	ResultInvalidArgument = 4000
	ResultNotFound        = 4040
	ResultConflict        = 4090
	ResultInvalidState    = 4091
	ResultIncompleteInput = 4220
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

// failWithCode 带业务错误码的失败响应
func failWithCode(code int, message string) Result[any] {
	return Result[any]{Code: code, Type: "error", Message: message, Result: nil}
}

// statusForKind 错误类型 -> HTTP 状态码 + 业务错误码
func statusForKind(kind domain.ErrorKind) (int, int) {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound, ResultNotFound
	case domain.KindConflict:
		return http.StatusConflict, ResultConflict
	case domain.KindInvalidState:
		return http.StatusConflict, ResultInvalidState
	case domain.KindIncompleteInput:
		return http.StatusUnprocessableEntity, ResultIncompleteInput
	case domain.KindInvalidArgument:
		return http.StatusBadRequest, ResultInvalidArgument
	}
	return http.StatusInternalServerError, ResultError
}
