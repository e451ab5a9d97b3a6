package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"ai_gallery_simulator/config"
	"ai_gallery_simulator/generator"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gallery",
	Short: "AI 가상 갤러리 시뮬레이터",
	Long: `Generates fictional DC Inside style galleries with an LLM.

Run "gallery serve" for the HTTP API, or "gallery generate" for a one-shot gallery in the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg.LogLevel, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.json", "path to config.json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(presetsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger -v 优先于配置里的 log_level。
func newLogger(level string, debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		lvl = parsed
	}
	if debug {
		lvl = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func buildLLM(ctx context.Context, c config.LLMConfig) (generator.LLMClient, error) {
	switch c.Provider {
	case "gemini":
		return generator.NewGeminiLLMFromConfig(ctx, c.Settings(), logger)
	case "openai", "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，base_url 已在配置校验时检查
		return generator.NewOpenAILLMFromConfig(c.Settings())
	case "mock":
		logger.Warn("using offline mock llm; output is fake")
		return generator.NewMockLLM(time.Now().UnixNano()), nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", c.Provider)
	}
}

func buildAgent(ctx context.Context) (*generator.Agent, error) {
	llm, err := buildLLM(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	return generator.NewAgent(llm,
		generator.WithLogger(logger),
		generator.WithRetryPolicy(cfg.Retry),
		generator.WithPostProcessor(generator.NewPostProcessor(generator.WithLimits(cfg.Limits))),
	)
}
