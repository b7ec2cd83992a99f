// internal/services/script_service.go
package services

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Hexvane/ScriptForge/internal/errors"
	"github.com/Hexvane/ScriptForge/internal/models"
	"github.com/Hexvane/ScriptForge/internal/utils"
)

// 提示词模板是设计常量，六个替换点之外的文本不可配置
const scriptPromptTemplate = `You are a social media script writer.
Write a %s script for %s about %s.
The category of the topic is %s, the target audience includes %s, and
the duration is %d seconds.
Generate an appropriate title as well for the generated content.

Output format:
Title:
Script:`

// 采样温度固定为0.5，每次触发恰好一次同步调用
const scriptTemperature = 0.5

// ScriptService 负责脚本生成流水线：模板替换、一次外部调用、返回原始文本
type ScriptService struct {
	LLMService   *LLMService
	StatsService *StatsService
}

// NewScriptService 创建脚本生成服务
func NewScriptService(llmService *LLMService, statsService *StatsService) *ScriptService {
	return &ScriptService{
		LLMService:   llmService,
		StatsService: statsService,
	}
}

// BuildPrompt 把请求参数替换进固定模板
// 受众列表用", "连接，替换值原样出现在提示词中
func (s *ScriptService) BuildPrompt(req *models.ScriptRequest) string {
	return fmt.Sprintf(scriptPromptTemplate,
		req.Format,
		req.ContentType,
		req.Topic,
		req.Category,
		req.AudienceJoined(),
		req.Duration)
}

// GenerateScript 执行一次完整的生成流程
// 字段不全或服务未就绪时不会发起外部调用；外部调用失败原样上抛，不重试
func (s *ScriptService) GenerateScript(ctx context.Context, req *models.ScriptRequest) (*models.ScriptResult, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}

	ready, state := s.LLMService.GetProviderStatus()
	if !ready {
		return nil, apperrors.NewUnauthorizedError(
			fmt.Sprintf("请先在设置页面配置API密钥 (%s)", state), nil)
	}

	prompt := s.BuildPrompt(req)

	utils.GetLogger().Info("开始生成脚本", map[string]interface{}{
		"content_type": req.ContentType,
		"category":     req.Category,
		"format":       req.Format,
		"duration":     req.Duration,
	})

	resp, err := s.LLMService.CreateChatCompletion(ctx, ChatCompletionRequest{
		Messages: []ChatCompletionMessage{
			{Role: RoleUser, Content: prompt},
		},
		Model:       "", // 使用提供商的固定默认模型
		Temperature: scriptTemperature,
	})
	if err != nil {
		utils.GetLogger().Error("脚本生成失败", map[string]interface{}{"error": err.Error()})
		return nil, apperrors.NewUpstreamError("An error occurred: "+err.Error(), err)
	}

	if len(resp.Choices) == 0 {
		return nil, apperrors.NewUpstreamError("An error occurred: 模型未返回任何结果", nil)
	}

	if s.StatsService != nil {
		s.StatsService.RecordRequest(resp.Usage.TotalTokens)
	}

	return &models.ScriptResult{
		Text:         resp.Choices[0].Message.Content,
		ModelName:    resp.Model,
		ProviderName: s.LLMService.GetProviderName(),
		TokensUsed:   resp.Usage.TotalTokens,
		GeneratedAt:  time.Now(),
	}, nil
}
