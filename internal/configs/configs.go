package configs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 默认值
const (
	DefaultNetwork    = "devnet"
	DefaultModuleName = "supercircle"
	DefaultProvider   = "openai"
	DefaultJudgeCron  = "0 */10 * * * *"
	DefaultLockTTL    = "10m"
	DefaultHTTPAddr   = ":8080"
	DefaultLogLevel   = "debug"
)

type Config struct {
	LogLevel string `json:"log_level" yaml:"log_level"` // debug/info/warn/error
	Proxy    string `json:"proxy" yaml:"proxy"`         // HTTP(S) 代理

	Chain    ChainConfig    `json:"chain" yaml:"chain"`
	Contract ContractConfig `json:"contract" yaml:"contract"`

	// AI 判决模型参数
	AIConfig AIConfig `json:"ai_config" yaml:"ai_config"`

	Judge JudgeConfig `json:"judge" yaml:"judge"`

	Database Database `json:"database" yaml:"database"`
	Redis    Redis    `json:"redis" yaml:"redis"`
	HTTP     HTTP     `json:"http" yaml:"http"`
}

type ChainConfig struct {
	Network  string   `json:"network" yaml:"network"`     // devnet/testnet/mainnet
	NodeURLs []string `json:"node_urls" yaml:"node_urls"` // 按顺序回退，为空时按 network 推导
}

type ContractConfig struct {
	ModuleAddress string `json:"module_address" yaml:"module_address"`
	ModuleName    string `json:"module_name" yaml:"module_name"`
}

type AIConfig struct {
	Provider string `json:"provider" yaml:"provider"` // openai/deepseek/gemini
	APIKey   string `json:"api_key" yaml:"api_key"`   // AI服务API密钥
	Model    string `json:"model" yaml:"model"`       // 为空时使用各提供方默认模型
	BaseURL  string `json:"base_url" yaml:"base_url"` // OpenAI 兼容接口地址
}

type JudgeConfig struct {
	PrivateKey    string `json:"private_key" yaml:"private_key"`       // 判决签名私钥
	SignerAddress string `json:"signer_address" yaml:"signer_address"` // 合约登记的判决地址，非空时校验私钥
	Cron          string `json:"cron" yaml:"cron"`
	LockTTL       string `json:"lock_ttl" yaml:"lock_ttl"`
	Disabled      bool   `json:"disabled" yaml:"disabled"` // serve 时不启动定时判决
}

type Database struct {
	ConnStr string `json:"conn_str" yaml:"conn_str"` // 数据库连接字符串，为空时使用内存存储
}

type Redis struct {
	Addr     string `json:"addr" yaml:"addr"` // 为空时使用进程内锁
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

type HTTP struct {
	Addr        string   `json:"addr" yaml:"addr"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
}

// Load reads path (JSON or YAML by extension; a missing file is allowed),
// loads .env, applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := unmarshal(path, data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("LOG_LEVEL", &c.LogLevel)
	setString("HTTPS_PROXY", &c.Proxy)
	setString("NETWORK", &c.Chain.Network)
	if v := os.Getenv("NODE_URL"); v != "" {
		c.Chain.NodeURLs = splitList(v)
	}
	setString("MODULE_ADDRESS", &c.Contract.ModuleAddress)
	setString("MODULE_NAME", &c.Contract.ModuleName)

	setString("AI_PROVIDER", &c.AIConfig.Provider)
	setString("AI_MODEL", &c.AIConfig.Model)
	setString("AI_BASE_URL", &c.AIConfig.BaseURL)

	// 判决签名与部署共用同一私钥，JUDGE_PRIVATE_KEY 可单独覆盖
	setString("DEPLOYER_PRIVATE_KEY", &c.Judge.PrivateKey)
	setString("JUDGE_PRIVATE_KEY", &c.Judge.PrivateKey)
	setString("AI_SIGNER_ADDRESS", &c.Judge.SignerAddress)
	setString("JUDGE_CRON", &c.Judge.Cron)

	setString("DATABASE_URL", &c.Database.ConnStr)
	setString("REDIS_ADDR", &c.Redis.Addr)
	setString("REDIS_PASSWORD", &c.Redis.Password)
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		c.Redis.DB = db
	}
	setString("HTTP_ADDR", &c.HTTP.Addr)

	// API key follows the selected provider
	provider := strings.ToLower(c.AIConfig.Provider)
	switch provider {
	case "gemini":
		setString("GEMINI_API_KEY", &c.AIConfig.APIKey)
	case "deepseek":
		setString("DEEPSEEK_API_KEY", &c.AIConfig.APIKey)
	default:
		setString("OPENAI_API_KEY", &c.AIConfig.APIKey)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.Chain.Network = strings.ToLower(strings.TrimSpace(c.Chain.Network))
	if c.Chain.Network == "" {
		c.Chain.Network = DefaultNetwork
	}
	if c.Contract.ModuleName == "" {
		c.Contract.ModuleName = DefaultModuleName
	}
	if c.AIConfig.Provider == "" {
		c.AIConfig.Provider = DefaultProvider
	}
	c.AIConfig.Provider = strings.ToLower(c.AIConfig.Provider)
	if c.Judge.Cron == "" {
		c.Judge.Cron = DefaultJudgeCron
	}
	if c.Judge.LockTTL == "" {
		c.Judge.LockTTL = DefaultLockTTL
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
}

// Validate checks the fields every command needs.
func (c *Config) Validate() error {
	if c.Contract.ModuleAddress == "" {
		return fmt.Errorf("contract.module_address is required")
	}
	switch c.Chain.Network {
	case "devnet", "testnet", "mainnet":
	default:
		if len(c.Chain.NodeURLs) == 0 {
			return fmt.Errorf("chain.node_urls is required for network %q", c.Chain.Network)
		}
	}
	if _, err := c.LockTTL(); err != nil {
		return err
	}
	return nil
}

// ValidateJudge checks the fields the judge needs on top of Validate.
func (c *Config) ValidateJudge() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.AIConfig.Provider {
	case "openai", "deepseek", "gemini":
	default:
		return fmt.Errorf("unsupported ai_config.provider %q", c.AIConfig.Provider)
	}
	if c.AIConfig.APIKey == "" {
		return fmt.Errorf("ai_config.api_key is required")
	}
	if c.Judge.PrivateKey == "" {
		return fmt.Errorf("judge.private_key is required")
	}
	return nil
}

// LockTTL parses judge.lock_ttl.
func (c *Config) LockTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.Judge.LockTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid judge.lock_ttl %q: %w", c.Judge.LockTTL, err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("judge.lock_ttl must be positive")
	}
	return ttl, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
