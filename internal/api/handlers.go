// internal/api/handlers.go
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Hexvane/ScriptForge/internal/config"
	"github.com/Hexvane/ScriptForge/internal/di"
	apperrors "github.com/Hexvane/ScriptForge/internal/errors"
	"github.com/Hexvane/ScriptForge/internal/llm"
	"github.com/Hexvane/ScriptForge/internal/models"
	"github.com/Hexvane/ScriptForge/internal/services"
	"github.com/gin-gonic/gin"
)

// Handler 处理API请求
type Handler struct {
	ScriptService *services.ScriptService // 脚本生成服务
	ConfigService *services.ConfigService // 配置服务
	StatsService  *services.StatsService  // 统计服务
	Response      *ResponseHelper         // 响应助手
}

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Warning   string      `json:"warning,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"` // 用于调试和追踪
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewHandler 创建API处理器
func NewHandler(
	scriptService *services.ScriptService,
	configService *services.ConfigService,
	statsService *services.StatsService,
) *Handler {
	return &Handler{
		ScriptService: scriptService,
		ConfigService: configService,
		StatsService:  statsService,
		Response:      NewResponseHelper(),
	}
}

// ------------------------------------------------
// 页面路由
// ------------------------------------------------

// IndexPage 渲染脚本生成表单页
func (h *Handler) IndexPage(c *gin.Context) {
	llmService := h.getLLMService()
	ready, state := llmService.GetProviderStatus()

	c.HTML(http.StatusOK, "index.html", gin.H{
		"content_types": models.ContentTypes,
		"categories":    models.Categories,
		"audiences":     models.Audiences,
		"formats":       models.Formats,
		"duration_min":  models.DurationMin,
		"duration_max":  models.DurationMax,
		"duration_step": models.DurationStep,
		"llm_ready":     ready,
		"llm_state":     state,
	})
}

// SettingsPage 渲染设置页
func (h *Handler) SettingsPage(c *gin.Context) {
	cfg := h.ConfigService.GetCurrentConfig()
	stats := h.StatsService.GetUsageStats()

	c.HTML(http.StatusOK, "setting.html", gin.H{
		"current_provider": cfg.LLMProvider,
		"current_model":    cfg.LLMConfig["default_model"],
		"has_api_key":      cfg.LLMConfig["api_key"] != "",
		"debug_mode":       cfg.DebugMode,
		"providers":        llm.ListProviders(),
		"today_requests":   stats.TodayRequests,
		"monthly_tokens":   stats.MonthlyTokens,
	})
}

// ------------------------------------------------
// 脚本生成
// ------------------------------------------------

// GenerateScript 处理一次脚本生成请求
// 表单快照随请求提交，每次触发恰好一次同步外部调用
func (h *Handler) GenerateScript(c *gin.Context) {
	var req models.ScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求数据", err.Error())
		return
	}

	// 凭证缺失时给出警告，不发起调用
	llmService := h.getLLMService()
	if ready, state := llmService.GetProviderStatus(); !ready {
		h.Response.Warning(c, http.StatusServiceUnavailable, ErrorMissingAPIKey,
			"Please enter your OpenAI API key in the sidebar. ("+state+")")
		return
	}

	// 字段不全时给出警告，不发起调用
	if err := req.Validate(); err != nil {
		h.Response.Warning(c, http.StatusBadRequest, ErrorIncompleteRequest,
			"Please fill in all the fields. ("+err.Error()+")")
		return
	}

	statusHub.Broadcast("generating", "Generating script...")

	result, err := h.ScriptService.GenerateScript(c.Request.Context(), &req)
	if err != nil {
		statusHub.Broadcast("error", err.Error())

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			switch appErr.Type {
			case apperrors.ErrorTypeValidation:
				h.Response.Warning(c, http.StatusBadRequest, ErrorIncompleteRequest, appErr.Message)
			case apperrors.ErrorTypeUnauthorized:
				h.Response.Warning(c, http.StatusServiceUnavailable, ErrorMissingAPIKey, appErr.Message)
			default:
				// 外部调用失败：单条扁平错误消息，原样带出底层错误文本
				h.Response.Error(c, http.StatusBadGateway, ErrorGenerationFailed, appErr.Message)
			}
			return
		}

		h.Response.Error(c, http.StatusBadGateway, ErrorGenerationFailed, "An error occurred: "+err.Error())
		return
	}

	statusHub.Broadcast("success", "Script generated successfully!")
	h.Response.Success(c, result, "Script generated successfully!")
}

// ------------------------------------------------
// 设置与LLM配置
// ------------------------------------------------

// GetSettings 返回当前设置（api_key只返回是否已配置）
func (h *Handler) GetSettings(c *gin.Context) {
	cfg := config.GetCurrentConfig()

	llmConfig := make(map[string]interface{})
	if cfg.LLMConfig != nil {
		llmConfig["default_model"] = cfg.LLMConfig["default_model"]
		llmConfig["has_api_key"] = cfg.LLMConfig["api_key"] != ""
	}

	data := map[string]interface{}{
		"llm_provider": cfg.LLMProvider,
		"debug_mode":   cfg.DebugMode,
		"port":         cfg.Port,
		"llm_config":   llmConfig,
	}

	h.Response.Success(c, data, "设置获取成功")
}

// SaveSettings 保存设置
func (h *Handler) SaveSettings(c *gin.Context) {
	var request struct {
		LLMProvider string            `json:"llm_provider"`
		LLMConfig   map[string]string `json:"llm_config"`
		DebugMode   bool              `json:"debug_mode"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		h.Response.BadRequest(c, "无效的请求数据", err.Error())
		return
	}

	if request.LLMProvider != "" && request.LLMConfig != nil {
		// 掩码输入框留空表示沿用已保存的密钥
		if request.LLMConfig["api_key"] == "" {
			if stored := h.ConfigService.GetLLMConfig(); stored != nil && stored["api_key"] != "" {
				request.LLMConfig["api_key"] = stored["api_key"]
			}
		}

		if ok, msg := h.ConfigService.ValidateAPIKey(request.LLMProvider, request.LLMConfig["api_key"]); !ok {
			h.Response.BadRequest(c, "API密钥无效", msg)
			return
		}

		if err := h.ConfigService.UpdateLLMConfig(request.LLMProvider, request.LLMConfig, "web_ui"); err != nil {
			h.Response.InternalError(c, "保存LLM配置失败", err.Error())
			return
		}

		// 让LLM服务立即使用保存后的完整配置（含补全的默认模型）
		if err := h.getLLMService().UpdateProvider(request.LLMProvider, h.ConfigService.GetLLMConfig()); err != nil {
			h.Response.Error(c, http.StatusPartialContent, "CONFIG_UPDATED_LLM_FAILED",
				"配置已保存，但LLM服务更新失败", err.Error())
			return
		}
	}

	h.Response.Success(c, nil, "设置保存成功")
}

// TestConnection 用一次最小调用验证凭证和连通性
func (h *Handler) TestConnection(c *gin.Context) {
	llmService := h.getLLMService()

	if !llmService.IsReady() {
		h.Response.Error(c, http.StatusServiceUnavailable, ErrorLLMNotReady,
			"LLM服务未就绪", llmService.GetReadyState())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	request := services.ChatCompletionRequest{
		Messages: []services.ChatCompletionMessage{
			{Role: services.RoleSystem, Content: "You are a helpful assistant."},
			{Role: services.RoleUser, Content: "Hello"},
		},
		Model:       "", // 使用默认模型
		Temperature: 0.1,
		MaxTokens:   5,
	}

	if _, err := llmService.CreateChatCompletion(ctx, request); err != nil {
		h.Response.Error(c, http.StatusServiceUnavailable, "CONNECTION_TEST_FAILED",
			"连接测试失败", err.Error())
		return
	}

	data := map[string]interface{}{
		"provider": llmService.GetProviderName(),
		"status":   "connected",
		"test":     "passed",
	}
	h.Response.Success(c, data, "连接测试成功")
}

// GetLLMStatus 获取LLM服务状态
func (h *Handler) GetLLMStatus(c *gin.Context) {
	llmService := h.getLLMService()
	cfg := config.GetCurrentConfig()

	status := map[string]interface{}{
		"ready":    llmService.IsReady(),
		"status":   llmService.GetReadyState(),
		"provider": llmService.GetProviderName(),
		"config": map[string]interface{}{
			"provider":    cfg.LLMProvider,
			"has_api_key": cfg.LLMConfig != nil && cfg.LLMConfig["api_key"] != "",
		},
	}

	if cfg.LLMConfig != nil {
		if model, ok := cfg.LLMConfig["default_model"]; ok {
			status["config"].(map[string]interface{})["model"] = model
		}
	}

	c.JSON(http.StatusOK, status)
}

// UpdateLLMConfig 更新LLM配置
func (h *Handler) UpdateLLMConfig(c *gin.Context) {
	var req struct {
		Provider string            `json:"provider" binding:"required"`
		Config   map[string]string `json:"config" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	if err := h.ConfigService.UpdateLLMConfig(req.Provider, req.Config, "web_api"); err != nil {
		h.Response.BadRequest(c, "配置验证失败", err.Error())
		return
	}

	if err := h.getLLMService().UpdateProvider(req.Provider, h.ConfigService.GetLLMConfig()); err != nil {
		// 配置已保存，但 LLM 服务更新失败
		h.Response.Error(c, http.StatusPartialContent, "CONFIG_UPDATED_LLM_FAILED",
			"配置已保存，但LLM服务更新失败", err.Error())
		return
	}

	h.Response.Success(c, nil, "LLM配置更新成功")
}

// GetLLMModels 获取指定LLM提供商支持的模型列表
func (h *Handler) GetLLMModels(c *gin.Context) {
	provider := c.Query("provider")
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少提供商参数"})
		return
	}

	supportedModels := llm.GetSupportedModelsForProvider(provider)

	if len(supportedModels) == 0 {
		// 验证提供商是否在注册列表中
		providerExists := false
		for _, p := range llm.ListProviders() {
			if p == provider {
				providerExists = true
				break
			}
		}

		if !providerExists {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "不支持的LLM提供商: " + provider,
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"provider": provider,
		"models":   supportedModels,
		"count":    len(supportedModels),
	})
}

// GetStats 返回使用统计
func (h *Handler) GetStats(c *gin.Context) {
	h.Response.Success(c, h.StatsService.GetUsageStats(), "统计获取成功")
}

// getLLMService 从容器获取LLM服务实例
func (h *Handler) getLLMService() *services.LLMService {
	container := di.GetContainer()
	if llmService, ok := container.Get("llm").(*services.LLMService); ok {
		return llmService
	}
	return services.NewEmptyLLMService()
}
