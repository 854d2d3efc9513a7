package config

import "strings"

// Config 是 stratex 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	AI       AIConfig       `toml:"ai"`
	Captions CaptionsConfig `toml:"captions"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Tuning   Tuning         `toml:"tuning"`
	RunLog   RunLogConfig   `toml:"runlog"`
	Notify   NotifyConfig   `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	LLMLog   string `toml:"llm_log_path"`
	LLMDump  bool   `toml:"llm_dump_payload"`
	EnvFile  string `toml:"env_file"`
}

// AIConfig 描述补全服务。APIKey 为空时从 APIKeyEnv 指定的环境变量读取。
type AIConfig struct {
	ID             string            `toml:"id"`
	APIURL         string            `toml:"api_url"`
	APIKey         string            `toml:"api_key"`
	APIKeyEnv      string            `toml:"api_key_env"`
	Model          string            `toml:"model"`
	GroundedModel  string            `toml:"grounded_model"`
	Temperature    float64           `toml:"temperature"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	Headers        map[string]string `toml:"headers"`

	// 连续失败达到阈值后熔断，0 表示关闭熔断。
	BreakerThreshold       int `toml:"breaker_threshold"`
	BreakerCooldownSeconds int `toml:"breaker_cooldown_seconds"`
}

// CaptionsConfig 描述字幕检索服务，关闭时管道跳过字幕阶段。
type CaptionsConfig struct {
	Enabled        bool   `toml:"enabled"`
	APIURL         string `toml:"api_url"`
	APIKey         string `toml:"api_key"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type PipelineConfig struct {
	StageTimeoutSeconds int    `toml:"stage_timeout_seconds"`
	MaxTranscriptChars  int    `toml:"max_transcript_chars"`
	TuningPath          string `toml:"tuning_path"`
}

// RunLogConfig 控制运行记录的 sqlite 存储。
type RunLogConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// NotifyConfig 控制运行结果的 Telegram 推送。Statuses 为空时推送 success 与 warning。
type NotifyConfig struct {
	Enabled          bool     `toml:"enabled"`
	TelegramBotToken string   `toml:"telegram_bot_token"`
	TelegramChatID   string   `toml:"telegram_chat_id"`
	Statuses         []string `toml:"statuses"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
