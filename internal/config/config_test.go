// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupTestEnv(t *testing.T) string {
	t.Helper()

	tempDir := t.TempDir()
	t.Setenv("DATA_DIR", filepath.Join(tempDir, "data"))
	t.Setenv("STATIC_DIR", filepath.Join(tempDir, "static"))
	t.Setenv("TEMPLATES_DIR", filepath.Join(tempDir, "templates"))
	t.Setenv("LOG_DIR", filepath.Join(tempDir, "logs"))
	t.Setenv("OPENAI_API_KEY", "")

	return filepath.Join(tempDir, "data")
}

func TestLoad_Defaults(t *testing.T) {
	setupTestEnv(t)
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("默认端口应该是8080: %q", cfg.Port)
	}
	if cfg.DataDir == "" || cfg.LogDir == "" {
		t.Error("目录配置不应该为空")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	setupTestEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("DEBUG_MODE", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Port != "9999" {
		t.Errorf("PORT环境变量应该生效: %q", cfg.Port)
	}
	if cfg.DebugMode {
		t.Error("DEBUG_MODE=false应该生效")
	}
}

func TestInitConfig_CreatesFiles(t *testing.T) {
	dataDir := setupTestEnv(t)

	if err := InitConfig(dataDir); err != nil {
		t.Fatalf("初始化配置失败: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dataDir, "config.json")); err != nil {
		t.Error("config.json应该已被创建")
	}
	if _, err := os.Stat(filepath.Join(dataDir, "secret.key")); err != nil {
		t.Error("secret.key应该已被创建")
	}

	// 密钥文件不能是组可读的
	info, err := os.Stat(filepath.Join(dataDir, "secret.key"))
	if err == nil && info.Mode().Perm()&0077 != 0 {
		t.Errorf("secret.key权限过宽: %v", info.Mode().Perm())
	}
}

func TestAPIKey_EncryptedAtRest(t *testing.T) {
	dataDir := setupTestEnv(t)

	if err := InitConfig(dataDir); err != nil {
		t.Fatalf("初始化配置失败: %v", err)
	}

	const plainKey = "sk-very-secret-key-12345"
	if err := UpdateLLMConfig("openai", map[string]string{
		"api_key":       plainKey,
		"default_model": "gpt-4o-mini",
	}); err != nil {
		t.Fatalf("更新配置失败: %v", err)
	}

	// 落盘的配置文件中不能出现明文密钥
	data, err := os.ReadFile(filepath.Join(dataDir, "config.json"))
	if err != nil {
		t.Fatalf("读取配置文件失败: %v", err)
	}
	if strings.Contains(string(data), plainKey) {
		t.Error("配置文件中不应该出现明文api_key")
	}

	// 内存中的配置保持明文
	cfg := GetCurrentConfig()
	if cfg.LLMConfig["api_key"] != plainKey {
		t.Errorf("内存中的api_key应该是明文: %q", cfg.LLMConfig["api_key"])
	}
}

func TestAPIKey_RoundTripAcrossRestart(t *testing.T) {
	dataDir := setupTestEnv(t)

	if err := InitConfig(dataDir); err != nil {
		t.Fatalf("初始化配置失败: %v", err)
	}

	const plainKey = "sk-restart-roundtrip"
	if err := UpdateLLMConfig("openrouter", map[string]string{
		"api_key":       plainKey,
		"default_model": "openai/gpt-4o-mini",
	}); err != nil {
		t.Fatalf("更新配置失败: %v", err)
	}

	// 再次初始化模拟进程重启，应该能用同一密钥文件还原明文
	if err := InitConfig(dataDir); err != nil {
		t.Fatalf("重新初始化配置失败: %v", err)
	}

	cfg := GetCurrentConfig()
	if cfg.LLMProvider != "openrouter" {
		t.Errorf("提供商应该从文件恢复: %q", cfg.LLMProvider)
	}
	if cfg.LLMConfig["api_key"] != plainKey {
		t.Errorf("api_key应该解密还原为明文: %q", cfg.LLMConfig["api_key"])
	}
}

func TestGetCurrentConfig_ReturnsCopy(t *testing.T) {
	dataDir := setupTestEnv(t)

	if err := InitConfig(dataDir); err != nil {
		t.Fatalf("初始化配置失败: %v", err)
	}

	cfg := GetCurrentConfig()
	cfg.LLMConfig["api_key"] = "tampered"
	cfg.Port = "0"

	cfg2 := GetCurrentConfig()
	if cfg2.LLMConfig["api_key"] == "tampered" {
		t.Error("修改返回的配置副本不应该影响内部状态")
	}
	if cfg2.Port == "0" {
		t.Error("修改返回的配置副本不应该影响内部状态")
	}
}

func TestSetDebugMode(t *testing.T) {
	dataDir := setupTestEnv(t)

	if err := InitConfig(dataDir); err != nil {
		t.Fatalf("初始化配置失败: %v", err)
	}

	if err := SetDebugMode(false); err != nil {
		t.Fatalf("设置调试模式失败: %v", err)
	}
	if GetCurrentConfig().DebugMode {
		t.Error("调试模式应该已关闭")
	}
}
