package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/evaltrans/internal/config"
	"github.com/nerdneilsfield/evaltrans/internal/logger"
)

var (
	// 全局标志
	cfgFile   string
	debugMode bool
	tenantID  string
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "evaltrans",
		Short: "评价系统的多语言翻译服务",
		Long: `evaltrans 为人事评价系统提供多语言翻译：
按优先级依次尝试翻译后端、内置术语词典，全部失败时返回原文，
译文按租户缓存并支持人工修正和质量报告。

支持的翻译后端:
  - deepl: DeepL API
  - google: Google Cloud Translation v2
  - libretranslate: LibreTranslate (开源)
  - openai: OpenAI 兼容的对话模型
  - rest: 通用 JSON 接口`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径 (默认 ./evaltrans.yaml 或 $HOME/.evaltrans.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "启用调试日志")
	rootCmd.PersistentFlags().StringVarP(&tenantID, "tenant", "t", "default", "租户 ID")

	rootCmd.AddCommand(
		newServeCommand(),
		newTranslateCommand(),
		newBatchCommand(),
		newStatsCommand(),
		newImproveCommand(),
		newExportCommand(),
		newCacheCommand(),
		newMigrateCommand(),
		newTokenCommand(),
	)
	return rootCmd
}

// loadConfig 加载配置并创建日志
func loadConfig() (*config.RuntimeConfig, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	if debugMode || cfg.Log.Debug {
		level = "debug"
	}
	return cfg, logger.NewLoggerWithLevel(level), nil
}
