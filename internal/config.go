package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// 配對策略
const (
	PolicyOnDemand = "ondemand" // 請求觸發：找陌生人時立刻嘗試配對
	PolicySweep    = "sweep"    // 背景掃描：定期把佇列中最早的兩人配對
)

// Config 服務配置
//
// 來源優先級：預設值 < 配置檔（yaml）< 環境變數 < 命令行參數。
type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	Matching struct {
		Policy        string        `yaml:"policy"`         // ondemand / sweep
		SweepInterval time.Duration `yaml:"sweep_interval"` // 掃描策略的週期
	} `yaml:"matching"`

	Reaper struct {
		Interval time.Duration `yaml:"interval"` // 清理週期
		Timeout  time.Duration `yaml:"timeout"`  // 閒置逾時門檻
	} `yaml:"reaper"`

	Log struct {
		Level  string `yaml:"level"`  // debug / info / warn / error
		Format string `yaml:"format"` // text / json
	} `yaml:"log"`
}

// DefaultConfig 返回預設配置
func DefaultConfig() *Config {
	config := &Config{}
	config.Server.Port = 8080
	config.Server.ReadTimeout = 15 * time.Second
	config.Server.WriteTimeout = 15 * time.Second
	config.Server.IdleTimeout = 60 * time.Second
	config.Matching.Policy = PolicyOnDemand
	config.Matching.SweepInterval = 1 * time.Second
	config.Reaper.Interval = 10 * time.Second
	config.Reaper.Timeout = 30 * time.Second
	config.Log.Level = "info"
	config.Log.Format = "text"
	return config
}

// LoadConfig 載入配置
//
// path 為空時只使用預設值與環境變數。
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("讀取配置檔失敗: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("解析配置檔失敗: %w", err)
		}
	}

	// 環境變數覆蓋
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("無效的 PORT 環境變數: %q", port)
		}
		config.Server.Port = p
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate 驗證配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("無效的端口: %d", c.Server.Port)
	}
	if c.Matching.Policy != PolicyOnDemand && c.Matching.Policy != PolicySweep {
		return fmt.Errorf("無效的配對策略: %q", c.Matching.Policy)
	}
	if c.Matching.SweepInterval <= 0 {
		return fmt.Errorf("掃描週期必須為正: %v", c.Matching.SweepInterval)
	}
	if c.Reaper.Interval <= 0 || c.Reaper.Timeout <= 0 {
		return fmt.Errorf("清理週期與逾時必須為正")
	}
	return nil
}
