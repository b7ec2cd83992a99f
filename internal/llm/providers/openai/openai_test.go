// internal/llm/providers/openai/openai_test.go
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Hexvane/ScriptForge/internal/llm"
)

func newStubServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Provider) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider := &Provider{baseURL: "https://api.openai.com/v1"}
	err := provider.Initialize(map[string]string{
		"api_key":  "sk-test",
		"base_url": server.URL,
	})
	if err != nil {
		t.Fatalf("初始化提供商失败: %v", err)
	}

	return server, provider
}

func TestInitialize_RequiresAPIKey(t *testing.T) {
	provider := &Provider{}

	if err := provider.Initialize(map[string]string{}); err == nil {
		t.Error("缺少api_key应该返回错误")
	}
	if err := provider.Initialize(map[string]string{"api_key": ""}); err == nil {
		t.Error("空api_key应该返回错误")
	}
}

func TestInitialize_DefaultModel(t *testing.T) {
	provider := &Provider{}

	if err := provider.Initialize(map[string]string{"api_key": "sk-test"}); err != nil {
		t.Fatalf("初始化失败: %v", err)
	}
	if provider.defaultModel != "gpt-4o-mini" {
		t.Errorf("默认模型应该是gpt-4o-mini: %q", provider.defaultModel)
	}

	if err := provider.Initialize(map[string]string{
		"api_key":       "sk-test",
		"default_model": "gpt-4o",
	}); err != nil {
		t.Fatalf("初始化失败: %v", err)
	}
	if provider.defaultModel != "gpt-4o" {
		t.Errorf("配置的模型应该生效: %q", provider.defaultModel)
	}
}

func TestCompleteText_RequestShape(t *testing.T) {
	var captured struct {
		Model       string              `json:"model"`
		Temperature float64             `json:"temperature"`
		Messages    []map[string]string `json:"messages"`
	}
	var authHeader string

	_, provider := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("意外的请求路径: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("解析请求体失败: %v", err)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "ok"}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8},
			"model": "gpt-4o-mini",
		})
	})

	_, err := provider.CompleteText(context.Background(), llm.CompletionRequest{
		Prompt:       "user prompt",
		SystemPrompt: "system prompt",
		Temperature:  0.5,
	})
	if err != nil {
		t.Fatalf("调用失败: %v", err)
	}

	if authHeader != "Bearer sk-test" {
		t.Errorf("应该使用Bearer认证头: %q", authHeader)
	}
	if captured.Model != "gpt-4o-mini" {
		t.Errorf("未指定模型时应该用默认模型: %q", captured.Model)
	}
	if captured.Temperature != 0.5 {
		t.Errorf("温度应该透传: %v", captured.Temperature)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("应该有system和user两条消息: %v", captured.Messages)
	}
	if captured.Messages[0]["role"] != "system" || captured.Messages[0]["content"] != "system prompt" {
		t.Errorf("system消息错误: %v", captured.Messages[0])
	}
	if captured.Messages[1]["role"] != "user" || captured.Messages[1]["content"] != "user prompt" {
		t.Errorf("user消息错误: %v", captured.Messages[1])
	}
}

func TestCompleteText_MapsResponse(t *testing.T) {
	_, provider := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "Title: X\nScript: Y"}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 50, "completion_tokens": 20, "total_tokens": 70},
			"model": "gpt-4o-mini-2024",
		})
	})

	resp, err := provider.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("调用失败: %v", err)
	}

	if resp.Text != "Title: X\nScript: Y" {
		t.Errorf("响应文本应该原样返回: %q", resp.Text)
	}
	if resp.TokensUsed != 70 || resp.PromptTokens != 50 || resp.OutputTokens != 20 {
		t.Errorf("用量映射错误: %+v", resp)
	}
	if resp.ModelName != "gpt-4o-mini-2024" {
		t.Errorf("模型名映射错误: %q", resp.ModelName)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("结束原因映射错误: %q", resp.FinishReason)
	}
}

func TestCompleteText_UpstreamError(t *testing.T) {
	_, provider := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "Invalid API key"}}`))
	})

	_, err := provider.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("非200响应应该返回错误")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("错误消息应该包含状态码: %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid API key") {
		t.Errorf("错误消息应该包含上游响应体: %v", err)
	}
}

func TestCompleteText_EmptyChoices(t *testing.T) {
	_, provider := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{},
		})
	})

	if _, err := provider.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "x"}); err == nil {
		t.Error("空choices应该返回错误")
	}
}

func TestCompleteText_ContextCancellation(t *testing.T) {
	_, provider := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := provider.CompleteText(ctx, llm.CompletionRequest{Prompt: "x"}); err == nil {
		t.Error("已取消的上下文应该返回错误")
	}
}
