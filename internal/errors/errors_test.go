// internal/errors/errors_test.go
package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := NewValidationError("字段校验失败", nil)
	if err.Error() != "字段校验失败" {
		t.Errorf("Error() = %q", err.Error())
	}

	wrapped := NewUpstreamError("调用失败", errors.New("timeout"))
	if wrapped.Error() != "调用失败: timeout" {
		t.Errorf("包含底层错误时格式错误: %q", wrapped.Error())
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewUpstreamError("调用失败", inner)

	if !errors.Is(err, inner) {
		t.Error("errors.Is应该能找到底层错误")
	}
}

func TestTypePredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		predicate func(error) bool
		want      bool
	}{
		{"校验错误", NewValidationError("x", nil), IsValidationError, true},
		{"非校验错误", NewUpstreamError("x", nil), IsValidationError, false},
		{"未授权错误", NewUnauthorizedError("x", nil), IsUnauthorizedError, true},
		{"上游错误", NewUpstreamError("x", nil), IsUpstreamError, true},
		{"普通错误", errors.New("x"), IsUpstreamError, false},
		{"nil错误", nil, IsValidationError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.predicate(tt.err); got != tt.want {
				t.Errorf("判定结果 = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTypePredicates_WrappedChain(t *testing.T) {
	// 类型判定要穿透fmt.Errorf包装
	err := fmt.Errorf("外层: %w", NewUnauthorizedError("密钥缺失", nil))

	if !IsUnauthorizedError(err) {
		t.Error("包装后的AppError仍然应该被识别")
	}
}

func TestErrorCodes(t *testing.T) {
	if NewValidationError("x", nil).Code != "VALIDATION_ERROR" {
		t.Error("校验错误的错误码不正确")
	}
	if NewUnauthorizedError("x", nil).Code != "UNAUTHORIZED" {
		t.Error("未授权错误的错误码不正确")
	}
	if NewUpstreamError("x", nil).Code != "UPSTREAM_ERROR" {
		t.Error("上游错误的错误码不正确")
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "msg", ErrorTypeError) != nil {
		t.Error("nil错误包装后应该还是nil")
	}

	plain := errors.New("plain")
	wrapped := WrapError(plain, "处理失败", ErrorTypeError)

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("包装结果应该是AppError")
	}
	if appErr.Type != ErrorTypeError {
		t.Errorf("错误类型 = %q", appErr.Type)
	}

	// 已经是AppError时保留原类型
	rewrapped := WrapError(NewValidationError("字段缺失", nil), "外层", ErrorTypeError)
	if !IsValidationError(rewrapped) {
		t.Error("重复包装应该保留原始错误类型")
	}
}
