package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the structure of the configuration
type AppConfig struct {
	SelfPath       string `json:"selfpath" yaml:"selfpath"`               // 对外地址，用于拼接图片和回调地址
	Port           string `json:"port" yaml:"port"`                       // 监听端口
	ImageSize      int    `json:"imagesize" yaml:"imagesize"`             // 输出图片边长
	StaticDir      string `json:"static_dir" yaml:"static_dir"`           // 图片输出目录
	FontDir        string `json:"font_dir" yaml:"font_dir"`               // 字体目录，热更新
	Font           string `json:"font" yaml:"font"`                       // 字体文件名
	Store          string `json:"store" yaml:"store"`                     // memory, sqlite 或 postgres
	SqlitePath     string `json:"sqlite_path" yaml:"sqlite_path"`         // sqlite 数据库文件
	PostgresURL    string `json:"postgres_url" yaml:"postgres_url"`       // postgres 连接串
	HubURL         string `json:"hub_url" yaml:"hub_url"`                 // Farcaster hub 地址
	TrustUntrusted bool   `json:"trust_untrusted" yaml:"trust_untrusted"` // 跳过 hub 验证，仅用于开发
	LogLevel       string `json:"log_level" yaml:"log_level"`             // debug, info, warn, error
}

const (
	StoreMemory   = "memory"
	StoreSqlite   = "sqlite"
	StorePostgres = "postgres"
)

var (
	instance *AppConfig
	once     sync.Once
	loadErr  error
)

// Default returns the configuration written when no file exists.
func Default() *AppConfig {
	return &AppConfig{
		SelfPath:   "http://localhost:38870",
		Port:       "38870",
		ImageSize:  480,
		StaticDir:  "./static",
		FontDir:    "./fonts",
		Font:       "PressStart2P-Regular.ttf",
		Store:      StoreMemory,
		SqlitePath: "game.db",
		HubURL:     "https://nemes.farcaster.xyz:2281",
		LogLevel:   "info",
	}
}

// LoadConfig initializes and returns the instance of AppConfig.
// The file is created with defaults when it does not exist.
func LoadConfig(filePath string) (*AppConfig, error) {
	once.Do(func() {
		instance, loadErr = load(filePath)
	})
	return instance, loadErr
}

func isYAML(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	return ext == ".yaml" || ext == ".yml"
}

func load(filePath string) (*AppConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		if err := save(filePath, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if isYAML(filePath) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filePath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", filePath, err)
	}
	return cfg, nil
}

// save saves the current settings to the file
func save(filePath string, cfg *AppConfig) error {
	var (
		data []byte
		err  error
	)
	if isYAML(filePath) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

// Validate 检查配置组合是否可用
func (c *AppConfig) Validate() error {
	switch c.Store {
	case StoreMemory, StoreSqlite:
	case StorePostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("store %q requires postgres_url", c.Store)
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.ImageSize <= 0 {
		return fmt.Errorf("imagesize must be positive, got %d", c.ImageSize)
	}
	if c.Port == "" {
		return fmt.Errorf("port is empty")
	}
	if !c.TrustUntrusted && c.HubURL == "" {
		return fmt.Errorf("hub_url is required unless trust_untrusted is set")
	}
	return nil
}
