package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server ServerConfig `mapstructure:"server"` // 服务器配置
	Source SourceConfig `mapstructure:"source"` // Opinion 数据源配置
	AI     AIConfig     `mapstructure:"ai"`     // 关键词生成（GLM）配置
	Build  BuildConfig  `mapstructure:"build"`  // 索引构建配置
	Match  MatchConfig  `mapstructure:"match"`  // 运行时匹配配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port  int    `mapstructure:"port"`  // 服务端口
	Mode  string `mapstructure:"mode"`  // Gin运行模式：debug/release/test
	Debug bool   `mapstructure:"debug"` // 调试日志开关
}

// SourceConfig 市场数据源配置
type SourceConfig struct {
	BaseURL     string `mapstructure:"base_url"`     // API基础地址
	MarketsPath string `mapstructure:"markets_path"` // 市场列表接口路径
	EventsPath  string `mapstructure:"events_path"`  // 父事件（wrap-events）接口路径
	Timeout     int    `mapstructure:"timeout"`      // 请求超时（秒）
	RetryCount  int    `mapstructure:"retry_count"`  // 重试次数
	Proxy       string `mapstructure:"proxy"`        // 代理地址
}

// AIConfig GLM 关键词生成配置
type AIConfig struct {
	BaseURL    string `mapstructure:"base_url"`    // 聊天补全接口地址
	Model      string `mapstructure:"model"`       // 模型名
	APIKey     string `mapstructure:"api_key"`     // 密钥（建议用 GLM_KEY 环境变量）
	Timeout    int    `mapstructure:"timeout"`     // 请求超时（秒）
	RetryCount int    `mapstructure:"retry_count"` // 重试次数
	SleepMS    int    `mapstructure:"sleep_ms"`    // 每次生成后的限速休眠（毫秒）
	Proxy      string `mapstructure:"proxy"`       // 代理地址
}

// BuildConfig 索引构建配置
type BuildConfig struct {
	OutputPath          string   `mapstructure:"output_path"`           // 快照输出路径
	PreviousDataURL     string   `mapstructure:"previous_data_url"`     // 上一版快照的远程地址（优先于本地文件）
	FrontendBaseURL     string   `mapstructure:"frontend_base_url"`     // 市场详情页地址前缀
	RefParam            string   `mapstructure:"ref"`                   // 详情页链接的 ref 参数
	MaxMarkets          int      `mapstructure:"max_markets"`           // 市场数上限（0=不限）
	MaxEvents           int      `mapstructure:"max_events"`            // AI处理事件数上限（0=不限）
	FullRefresh         bool     `mapstructure:"full_refresh"`          // 忽略旧数据全量重算
	SkipAI              bool     `mapstructure:"skip_ai"`               // 跳过AI仅用降级关键词
	OnlyAIForNew        bool     `mapstructure:"only_ai_for_new"`       // 仅对新事件调AI
	TitleFilterPrefixes []string `mapstructure:"title_filter_prefixes"` // 按标题前缀剔除的噪声市场
}

// MatchConfig 运行时匹配配置
type MatchConfig struct {
	Threshold float64 `mapstructure:"threshold"` // 命中阈值
	TopN      int     `mapstructure:"top_n"`     // 返回的最大匹配数
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	viper.SetTypeByDefaultValue(true)
	// 默认增量模式：有旧快照时只对新事件调AI
	viper.SetDefault("build.only_ai_for_new", true)
	viper.SetDefault("build.ref", "opinion_hud")
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段与运行参数：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)

	if cfg.Match.Threshold <= 0 {
		cfg.Match.Threshold = 0.50
	}
	if cfg.Match.TopN <= 0 {
		cfg.Match.TopN = 5
	}
	if cfg.Build.OutputPath == "" {
		cfg.Build.OutputPath = "data/opinion-match.json"
	}

	// 全量刷新必须有密钥，否则会静默产出纯降级索引
	if cfg.Build.FullRefresh && cfg.AI.APIKey == "" && !cfg.Build.SkipAI {
		return nil, fmt.Errorf("开启 full_refresh 但未配置 GLM_KEY")
	}
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置与运行参数
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("GLM_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("PREVIOUS_DATA_URL"); v != "" {
		cfg.Build.PreviousDataURL = v
	}
	if v := os.Getenv("OUTPUT_PATH"); v != "" {
		cfg.Build.OutputPath = v
	}
	if v, ok := envBool("FULL_AI_REFRESH"); ok {
		cfg.Build.FullRefresh = v
	}
	if v, ok := envBool("SKIP_AI"); ok {
		cfg.Build.SkipAI = v
	}
	if v, ok := envBool("ONLY_AI_FOR_NEW"); ok {
		cfg.Build.OnlyAIForNew = v
	}
	if v, ok := envBool("DEBUG"); ok {
		cfg.Server.Debug = v
	}
	if v, ok := envInt("MAX_MARKETS"); ok {
		cfg.Build.MaxMarkets = v
	}
	if v, ok := envInt("MAX_EVENTS"); ok {
		cfg.Build.MaxEvents = v
	}
	if v, ok := envInt("SLEEP_MS"); ok {
		cfg.AI.SleepMS = v
	}
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true, true
	case "0", "false", "FALSE", "False", "no", "off":
		return false, true
	}
	return false, false
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
