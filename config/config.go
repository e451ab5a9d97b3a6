// Package config loads application configuration from config.json, .env and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"ai_gallery_simulator/generator"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 GALLERY_LLM_PROVIDER、GALLERY_SERVER_ADDR。
const EnvPrefix = "GALLERY"

// Config 与 config.json 结构一致。
type Config struct {
	LLM            LLMConfig             `mapstructure:"llm"`
	ServerAddr     string                `mapstructure:"server_addr"`
	StoreURL       string                `mapstructure:"store_url"`
	LogLevel       string                `mapstructure:"log_level"`
	RequestTimeout time.Duration         `mapstructure:"request_timeout"`
	CORSOrigins    []string              `mapstructure:"cors_origins"`
	RateLimit      RateLimitConfig       `mapstructure:"rate_limit"`
	Retry          generator.RetryPolicy `mapstructure:"retry"`
	Limits         generator.Limits      `mapstructure:"limits"`
}

// LLMConfig 模型提供方配置。api_key 为空时回退到 GEMINI_API_KEY / API_KEY。
type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// RateLimitConfig 每个客户端 IP 的生成请求限流。RPS <= 0 表示不限流。
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Settings 转换成 generator 使用的 LLM 配置。
func (c LLMConfig) Settings() *generator.LLMSettings {
	return &generator.LLMSettings{
		Provider: c.Provider,
		Model:    c.Model,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
	}
}

func setDefaults(v *viper.Viper) {
	limits := generator.DefaultLimits()
	retry := generator.DefaultRetryPolicy()

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", generator.DefaultModel)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("store_url", "memory://")
	v.SetDefault("log_level", "info")
	v.SetDefault("request_timeout", "3m")
	v.SetDefault("cors_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("rate_limit.rps", 1.0)
	v.SetDefault("rate_limit.burst", 5)
	v.SetDefault("retry.attempts", retry.Attempts)
	v.SetDefault("retry.initial_interval", retry.InitialInterval)
	v.SetDefault("retry.multiplier", retry.Multiplier)
	v.SetDefault("limits.posts", limits.Posts)
	v.SetDefault("limits.comments.min", limits.Comments.Min)
	v.SetDefault("limits.comments.max", limits.Comments.Max)
	v.SetDefault("limits.best_comments.min", limits.BestComments.Min)
	v.SetDefault("limits.best_comments.max", limits.BestComments.Max)
	v.SetDefault("limits.follow_ups.min", limits.FollowUps.Min)
	v.SetDefault("limits.follow_ups.max", limits.FollowUps.Max)
	v.SetDefault("limits.max_comments_per_post", limits.MaxCommentsPerPost)
	v.SetDefault("limits.best_threshold", limits.BestThreshold)
}

// Load reads path (JSON) when it exists, then applies .env and environment overrides.
// An empty path or a missing file falls back to defaults.
func Load(path string) (Config, error) {
	// .env 不存在是正常情况
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = firstEnv("GEMINI_API_KEY", "API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

var providers = map[string]bool{"gemini": true, "openai": true, "deepseek": true, "mock": true}

// Validate 只检查结构性错误；缺少 API key 不算配置错误，运行时以 ErrMissingCredential 报告。
func (c Config) Validate() error {
	var errs []error
	if !providers[c.LLM.Provider] {
		errs = append(errs, fmt.Errorf("llm provider %q not supported", c.LLM.Provider))
	}
	if c.LLM.Provider == "deepseek" && c.LLM.BaseURL == "" {
		errs = append(errs, errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)"))
	}
	if c.LLM.Provider != "gemini" && c.LLM.Provider != "mock" && c.LLM.Model == "" {
		errs = append(errs, errors.New("llm model is required"))
	}
	if c.ServerAddr == "" {
		errs = append(errs, errors.New("server_addr is required"))
	}
	if c.Retry.Attempts < 1 {
		errs = append(errs, errors.New("retry.attempts must be at least 1"))
	}
	if c.Retry.InitialInterval < 0 {
		errs = append(errs, errors.New("retry.initial_interval must not be negative"))
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("rate_limit.burst must be at least 1"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	errs = append(errs, validateLimits(c.Limits)...)
	return errors.Join(errs...)
}

func validateLimits(l generator.Limits) []error {
	var errs []error
	if l.Posts < 1 {
		errs = append(errs, errors.New("limits.posts must be at least 1"))
	}
	ranges := []struct {
		name string
		r    generator.Range
	}{
		{"comments", l.Comments},
		{"best_comments", l.BestComments},
		{"follow_ups", l.FollowUps},
	}
	for _, rr := range ranges {
		if rr.r.Min < 0 || rr.r.Max < rr.r.Min {
			errs = append(errs, fmt.Errorf("limits.%s must satisfy 0 <= min <= max", rr.name))
		}
	}
	if l.MaxCommentsPerPost < l.BestComments.Max {
		errs = append(errs, errors.New("limits.max_comments_per_post must cover best_comments.max"))
	}
	return errs
}
