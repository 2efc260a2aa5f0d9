// Package config loads service configuration from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"deal_diligence/pkg/core/calc"
)

// Config holds everything the entrypoints need to wire the service.
// Environment variables win over the YAML file; the file wins over
// the built-in defaults.
type Config struct {
	ServerAddr string `yaml:"server_addr"`
	LogMode    string `yaml:"log_mode"`

	DatabaseURL string `yaml:"database_url"`

	LLMProvider    string `yaml:"llm_provider"` // "gemini" or "deepseek"
	GeminiAPIKey   string `yaml:"-"`
	GeminiModel    string `yaml:"gemini_model"`
	DeepSeekAPIKey string `yaml:"-"`
	DeepSeekModel  string `yaml:"deepseek_model"`

	MilvusAddr     string `yaml:"milvus_addr"`
	EmbeddingModel string `yaml:"embedding_model"`

	DCF calc.Assumptions `yaml:"dcf"`
}

// Load reads .env (if present), the optional YAML file named by
// DILIGENCE_CONFIG, and the environment. Missing .env is not an error.
func Load() (Config, error) {
	godotenv.Load()

	cfg := Config{
		ServerAddr:  ":8080",
		LogMode:     "dev",
		LLMProvider: "gemini",
	}

	if path := os.Getenv("DILIGENCE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	overlay(&cfg.ServerAddr, "SERVER_ADDR")
	overlay(&cfg.LogMode, "LOG_MODE")
	overlay(&cfg.DatabaseURL, "DATABASE_URL")
	overlay(&cfg.LLMProvider, "LLM_PROVIDER")
	overlay(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	overlay(&cfg.GeminiModel, "GEMINI_MODEL")
	overlay(&cfg.DeepSeekAPIKey, "DEEPSEEK_API_KEY")
	overlay(&cfg.DeepSeekModel, "DEEPSEEK_MODEL")
	overlay(&cfg.MilvusAddr, "MILVUS_ADDR")
	overlay(&cfg.EmbeddingModel, "EMBEDDING_MODEL")

	return cfg, nil
}

func overlay(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
