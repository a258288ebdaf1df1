package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "EVALTRANS"

// Load 加载配置：显式路径优先，否则查找 ./evaltrans.yaml 与 $HOME/.evaltrans.yaml
func Load(configPath string) (*RuntimeConfig, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("evaltrans")
		v.SetConfigType("yaml")
	}

	// 读取环境变量，例如 EVALTRANS_STORE_DRIVER
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// 当前目录没有时再查找家目录
		if configPath == "" {
			if err := readHomeConfig(v); err != nil {
				return nil, err
			}
		}
	}

	var config RuntimeConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// readHomeConfig 读取 $HOME/.evaltrans.yaml，不存在时忽略
func readHomeConfig(v *viper.Viper) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	v.AddConfigPath(home)
	v.SetConfigName(".evaltrans")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}
