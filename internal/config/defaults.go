package config

import "strings"

// 默认值常量
const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":8787"
	defaultAppEnvFile        = ".env"
	defaultAIID              = "openai"
	defaultAIAPIURL          = "https://api.openai.com/v1"
	defaultAIAPIKeyEnv       = "STRATEX_AI_API_KEY"
	defaultAIModel           = "gpt-4o-mini"
	defaultAITemperature     = 0.3
	defaultAITimeout         = 120
	defaultCaptionsLanguage  = "en"
	defaultCaptionsTimeout   = 30
	defaultStageTimeout      = 90
	defaultMaxTranscriptChar = 60000
	defaultRunLogPath        = "data/stratex-runs.db"
	defaultBreakerThreshold  = 5
	defaultBreakerCooldown   = 60
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.AI.applyDefaults(keys)
	c.Captions.applyDefaults(keys)
	c.Pipeline.applyDefaults(keys)
	c.Tuning.applyDefaults(keys)
	c.RunLog.applyDefaults(keys)
	c.Notify.applyDefaults()
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.env_file", &a.EnvFile, defaultAppEnvFile),
	)
}

func (a *AIConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("ai.id", &a.ID, defaultAIID),
		stringFieldDefault("ai.api_url", &a.APIURL, defaultAIAPIURL),
		stringFieldDefault("ai.api_key_env", &a.APIKeyEnv, defaultAIAPIKeyEnv),
		stringFieldDefault("ai.model", &a.Model, defaultAIModel),
		floatFieldDefault("ai.temperature", &a.Temperature, defaultAITemperature),
		intFieldDefault("ai.timeout_seconds", &a.TimeoutSeconds, defaultAITimeout),
		intFieldDefault("ai.breaker_threshold", &a.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("ai.breaker_cooldown_seconds", &a.BreakerCooldownSeconds, defaultBreakerCooldown),
	)
	// 未单独配置 grounded 模型时沿用主模型
	if strings.TrimSpace(a.GroundedModel) == "" {
		a.GroundedModel = a.Model
	}
}

func (c *CaptionsConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("captions.enabled", &c.Enabled, true),
		stringFieldDefault("captions.language", &c.Language, defaultCaptionsLanguage),
		intFieldDefault("captions.timeout_seconds", &c.TimeoutSeconds, defaultCaptionsTimeout),
	)
	if strings.TrimSpace(c.APIURL) == "" {
		c.Enabled = false
	}
}

func (p *PipelineConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("pipeline.stage_timeout_seconds", &p.StageTimeoutSeconds, defaultStageTimeout),
		intFieldDefault("pipeline.max_transcript_chars", &p.MaxTranscriptChars, defaultMaxTranscriptChar),
	)
}

func (r *RunLogConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("runlog.path", &r.Path, defaultRunLogPath),
	)
}

func (n *NotifyConfig) applyDefaults() {
	if n == nil || len(n.Statuses) > 0 {
		return
	}
	n.Statuses = []string{"success", "warning"}
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
