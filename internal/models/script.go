// internal/models/script.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// 表单各字段的固定取值集合
var (
	ContentTypes = []string{"youtube", "instagram"}
	Categories   = []string{"Fashion", "Education", "Technology", "Health", "Travel"}
	Audiences    = []string{"Students", "Housewives", "Professionals", "Teenagers", "Seniors"}
	Formats      = []string{"reel", "video"}
)

// 时长滑块的边界（秒）
const (
	DurationMin  = 15
	DurationMax  = 300
	DurationStep = 5
)

// ScriptRequest 一次脚本生成请求，随请求创建、展示完结果即丢弃
type ScriptRequest struct {
	ContentType string   `json:"content_type"`
	Topic       string   `json:"topic"`
	Category    string   `json:"category"`
	Audience    []string `json:"audience"`
	Format      string   `json:"format"`
	Duration    int      `json:"duration"`
}

// ScriptResult 外部模型返回的文本，按约定包含Title:/Script:两段，但不做解析
type ScriptResult struct {
	Text         string    `json:"text"`
	ModelName    string    `json:"model_name,omitempty"`
	ProviderName string    `json:"provider_name,omitempty"`
	TokensUsed   int       `json:"tokens_used,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// AudienceJoined 返回逗号连接的受众串，单个元素时不带分隔符
func (r *ScriptRequest) AudienceJoined() string {
	return strings.Join(r.Audience, ", ")
}

// Validate 检查所有字段都已填写且取值在集合/边界内
// 只做在场性和集合校验，topic内容本身不做任何约束
func (r *ScriptRequest) Validate() error {
	if r.Topic == "" {
		return fmt.Errorf("请填写所有字段: topic不能为空")
	}
	if len(r.Audience) == 0 {
		return fmt.Errorf("请填写所有字段: 至少选择一个目标受众")
	}
	if !contains(ContentTypes, r.ContentType) {
		return fmt.Errorf("无效的内容类型: %q", r.ContentType)
	}
	if !contains(Categories, r.Category) {
		return fmt.Errorf("无效的分类: %q", r.Category)
	}
	for _, a := range r.Audience {
		if !contains(Audiences, a) {
			return fmt.Errorf("无效的目标受众: %q", a)
		}
	}
	if !contains(Formats, r.Format) {
		return fmt.Errorf("无效的格式: %q", r.Format)
	}
	if r.Duration < DurationMin || r.Duration > DurationMax {
		return fmt.Errorf("时长必须在%d到%d秒之间", DurationMin, DurationMax)
	}
	if r.Duration%DurationStep != 0 {
		return fmt.Errorf("时长必须是%d秒的倍数", DurationStep)
	}
	return nil
}

func contains(set []string, value string) bool {
	for _, v := range set {
		if v == value {
			return true
		}
	}
	return false
}
