package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"remidi/backend/config"
)

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(&config.LogConfig{Level: "loud", Format: "json"})
	if err == nil {
		t.Error("无效日志级别应返回错误")
	}
}

func TestNewLogger_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remidi.log")
	l, err := NewLogger(&config.LogConfig{
		Level:      "info",
		Format:     "console",
		Filename:   path,
		MaxSizeMB:  1,
		MaxBackups: 1,
	})
	if err != nil {
		t.Fatalf("NewLogger 应成功: %v", err)
	}

	l.Info("调度器已启动")
	l.Debug("不应写入")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "调度器已启动") {
		t.Errorf("日志文件应包含 info 日志，实际: %s", content)
	}
	if strings.Contains(content, "不应写入") {
		t.Error("低于配置级别的日志不应写入")
	}
}
