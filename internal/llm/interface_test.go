// internal/llm/interface_test.go
package llm

import (
	"context"
	"errors"
	"testing"
)

type registryTestProvider struct {
	initConfig map[string]string
	initErr    error
}

func (p *registryTestProvider) Initialize(config map[string]string) error {
	p.initConfig = config
	return p.initErr
}

func (p *registryTestProvider) GetName() string              { return "registry-test" }
func (p *registryTestProvider) GetSupportedModels() []string { return []string{"m1", "m2"} }

func (p *registryTestProvider) CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return &CompletionResponse{Text: "ok"}, nil
}

func TestGetProvider_Unknown(t *testing.T) {
	_, err := GetProvider("no-such-provider", map[string]string{})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("未注册的提供者应该返回ErrUnknownProvider: %v", err)
	}
}

func TestRegisterAndGetProvider(t *testing.T) {
	instance := &registryTestProvider{}
	Register("registry-test", func() Provider { return instance })

	config := map[string]string{"api_key": "sk-test"}
	provider, err := GetProvider("registry-test", config)
	if err != nil {
		t.Fatalf("获取提供者失败: %v", err)
	}
	if provider != instance {
		t.Error("应该返回工厂创建的实例")
	}

	// 凭证通过配置map传入实例，不经过进程环境
	if instance.initConfig["api_key"] != "sk-test" {
		t.Errorf("配置应该传给Initialize: %v", instance.initConfig)
	}
}

func TestGetProvider_InitializeFailure(t *testing.T) {
	Register("registry-fail", func() Provider {
		return &registryTestProvider{initErr: errors.New("bad config")}
	})

	if _, err := GetProvider("registry-fail", map[string]string{}); err == nil {
		t.Error("初始化失败应该向上返回错误")
	}
}

func TestListProviders(t *testing.T) {
	Register("registry-list", func() Provider { return &registryTestProvider{} })

	names := ListProviders()
	found := false
	for _, name := range names {
		if name == "registry-list" {
			found = true
		}
	}
	if !found {
		t.Errorf("已注册的提供者应该出现在列表中: %v", names)
	}
}

func TestGetSupportedModelsForProvider(t *testing.T) {
	Register("registry-models", func() Provider { return &registryTestProvider{} })

	models := GetSupportedModelsForProvider("registry-models")
	if len(models) != 2 {
		t.Errorf("应该返回2个模型: %v", models)
	}

	if got := GetSupportedModelsForProvider("no-such"); len(got) != 0 {
		t.Errorf("未注册的提供者应该返回空列表: %v", got)
	}
}
