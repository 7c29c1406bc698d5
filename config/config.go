package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ModelConfig 一个模型槽位的来源：本地 onnx 文件，或者设置了 URL 时走远端推理
type ModelConfig struct {
	Path string
	URL  string
}

type Config struct {
	Host           string
	Port           int
	Device         string
	ORTLibraryPath string
	DepthAnything  ModelConfig
	MiDaS          ModelConfig
	Marigold       ModelConfig
	RemoteTimeout  time.Duration
	StatsSchedule  string
	LogLevel       string
	LogFormat      string
	GinMode        string
}

// Load 先读取可选的 .env（文件不存在不算错误），再读环境变量
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	return &Config{
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnvAsInt("PORT", 8000),
		Device:         getEnv("DEVICE", "auto"),
		ORTLibraryPath: os.Getenv("ORT_LIBRARY_PATH"),
		DepthAnything: ModelConfig{
			Path: getEnv("DEPTH_ANYTHING_MODEL", filepath.Join("models", "depth_anything_v2_base.onnx")),
			URL:  os.Getenv("DEPTH_ANYTHING_URL"),
		},
		MiDaS: ModelConfig{
			Path: getEnv("MIDAS_MODEL", filepath.Join("models", "dpt_large.onnx")),
			URL:  os.Getenv("MIDAS_URL"),
		},
		Marigold: ModelConfig{
			Path: getEnv("MARIGOLD_MODEL", filepath.Join("models", "marigold_vit_base.onnx")),
			URL:  os.Getenv("MARIGOLD_URL"),
		},
		RemoteTimeout: getEnvAsDuration("REMOTE_TIMEOUT", 60*time.Second),
		StatsSchedule: getEnvAllowEmpty("STATS_SCHEDULE", "@every 5m"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		GinMode:       getEnv("GIN_MODE", "release"),
	}, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty 显式设置为空字符串时返回空，用来关闭功能
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
