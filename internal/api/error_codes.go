// internal/api/error_codes.go
package api

// API错误代码常量
const (
	ErrorInvalidRequest    = "INVALID_REQUEST"
	ErrorIncompleteRequest = "INCOMPLETE_REQUEST"
	ErrorMissingAPIKey     = "MISSING_API_KEY"
	ErrorGenerationFailed  = "GENERATION_FAILED"
	ErrorLLMNotReady       = "LLM_NOT_READY"
	ErrorInternal          = "INTERNAL_ERROR"
)
