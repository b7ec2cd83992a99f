// internal/services/config_service.go
package services

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Hexvane/ScriptForge/internal/config"
)

// ConfigService 提供配置管理功能
type ConfigService struct {
	// 缓存最近获取的配置，减少反复访问底层存储
	cachedConfig *config.AppConfig

	// 配置更新时间
	lastUpdated time.Time

	// 配置变更历史
	changeHistory []ConfigChangeRecord

	// 互斥锁保护内部状态
	mu sync.RWMutex
}

// ConfigChangeRecord 配置变更记录
type ConfigChangeRecord struct {
	Timestamp time.Time
	ChangedBy string
	Section   string
	OldValue  interface{}
	NewValue  interface{}
}

// NewConfigService 创建配置服务实例
func NewConfigService() *ConfigService {
	service := &ConfigService{
		lastUpdated:   time.Now(),
		changeHistory: make([]ConfigChangeRecord, 0, 100), // 预分配容量
	}

	// 初始化时加载配置到缓存
	service.cachedConfig = config.GetCurrentConfig()

	return service
}

// GetCurrentConfig 获取当前配置
func (s *ConfigService) GetCurrentConfig() *config.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cachedConfig == nil {
		s.cachedConfig = config.GetCurrentConfig()
	}

	return s.cachedConfig
}

// UpdateLLMConfig 更新LLM提供商和配置
func (s *ConfigService) UpdateLLMConfig(provider string, configMap map[string]string, changedBy string) error {
	if provider == "" {
		return errors.New("provider cannot be empty")
	}

	oldConfig := s.GetCurrentConfig()
	oldProvider := oldConfig.LLMProvider

	// 拷贝一份再补默认值，不改写调用方传入的map
	newConfig := make(map[string]string, len(configMap)+1)
	for k, v := range configMap {
		newConfig[k] = v
	}

	// 确保必需的配置项存在
	if _, ok := newConfig["api_key"]; !ok {
		log.Println("Warning: LLM config missing api_key")
	}

	// 确保有默认模型
	if _, ok := newConfig["default_model"]; !ok {
		switch provider {
		case "openai":
			newConfig["default_model"] = "gpt-4o-mini"
		case "openrouter":
			newConfig["default_model"] = "openai/gpt-4o-mini"
		default:
			newConfig["default_model"] = "gpt-4o-mini" // 默认回退到OpenAI
		}
	}

	// 调用底层配置更新函数
	err := config.UpdateLLMConfig(provider, newConfig)
	if err == nil {
		s.mu.Lock()
		s.cachedConfig = config.GetCurrentConfig()
		s.lastUpdated = time.Now()
		s.mu.Unlock()

		s.recordChange("LLM提供商", oldProvider, provider, changedBy)
	}

	return err
}

// GetLLMProvider 获取当前LLM提供商
func (s *ConfigService) GetLLMProvider() string {
	return s.GetCurrentConfig().LLMProvider
}

// GetLLMConfig 获取LLM配置
func (s *ConfigService) GetLLMConfig() map[string]string {
	return s.GetCurrentConfig().LLMConfig
}

// ValidateAPIKey 验证API密钥是否有效
// 返回验证结果和可能的错误信息
func (s *ConfigService) ValidateAPIKey(provider string, apiKey string) (bool, string) {
	if apiKey == "" {
		return false, "API key cannot be empty!"
	}
	return true, ""
}

// SetDebugMode 设置调试模式
func (s *ConfigService) SetDebugMode(enabled bool) error {
	err := config.SetDebugMode(enabled)
	if err == nil {
		s.mu.Lock()
		s.cachedConfig = config.GetCurrentConfig()
		s.mu.Unlock()
	}
	return err
}

// GetChangeHistory 获取配置变更历史
func (s *ConfigService) GetChangeHistory(limit int) []ConfigChangeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.changeHistory) {
		limit = len(s.changeHistory)
	}

	// 返回最近的变更记录
	history := make([]ConfigChangeRecord, limit)
	startIdx := len(s.changeHistory) - limit
	copy(history, s.changeHistory[startIdx:])

	return history
}

// recordChange 记录配置变更
func (s *ConfigService) recordChange(section string, oldValue, newValue interface{}, changedBy string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := ConfigChangeRecord{
		Timestamp: time.Now(),
		ChangedBy: changedBy,
		Section:   section,
		OldValue:  oldValue,
		NewValue:  newValue,
	}

	// 限制历史记录数量，避免无限增长
	if len(s.changeHistory) >= 1000 {
		s.changeHistory = s.changeHistory[1:]
	}

	s.changeHistory = append(s.changeHistory, record)
}
