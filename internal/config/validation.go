package config

import (
	"fmt"
	"strings"

	"stratex/internal/types"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.AI.validate(); err != nil {
		return err
	}
	if err := c.Captions.validate(); err != nil {
		return err
	}
	if err := c.Pipeline.validate(); err != nil {
		return err
	}
	if err := c.Tuning.Validate(); err != nil {
		return err
	}
	if err := c.RunLog.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AIConfig) validate() error {
	if strings.TrimSpace(a.APIKey) == "" {
		return fmt.Errorf("ai.api_key is required (set it in config or via $%s)", a.APIKeyEnv)
	}
	if strings.TrimSpace(a.Model) == "" {
		return fmt.Errorf("ai.model cannot be empty")
	}
	if strings.TrimSpace(a.APIURL) == "" {
		return fmt.Errorf("ai.api_url cannot be empty")
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be in [0,2]")
	}
	if a.TimeoutSeconds < 0 {
		return fmt.Errorf("ai.timeout_seconds must be >= 0")
	}
	if a.BreakerThreshold < 0 || a.BreakerCooldownSeconds < 0 {
		return fmt.Errorf("ai.breaker_threshold and ai.breaker_cooldown_seconds must be >= 0")
	}
	return nil
}

func (c *CaptionsConfig) validate() error {
	if c.Enabled && strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("captions enabled but captions.api_url is empty")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("captions.timeout_seconds must be >= 0")
	}
	return nil
}

func (p *PipelineConfig) validate() error {
	if p.StageTimeoutSeconds < 0 {
		return fmt.Errorf("pipeline.stage_timeout_seconds must be >= 0")
	}
	if p.MaxTranscriptChars < 1000 {
		return fmt.Errorf("pipeline.max_transcript_chars must be >= 1000")
	}
	return nil
}

func (r *RunLogConfig) validate() error {
	if r.Enabled && strings.TrimSpace(r.Path) == "" {
		return fmt.Errorf("runlog enabled but runlog.path is empty")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if !n.Enabled {
		return nil
	}
	if strings.TrimSpace(n.TelegramBotToken) == "" || strings.TrimSpace(n.TelegramChatID) == "" {
		return fmt.Errorf("notify enabled but notify.telegram_bot_token or notify.telegram_chat_id is empty")
	}
	for _, s := range n.Statuses {
		if _, ok := types.ParseImportStatus(s); !ok {
			return fmt.Errorf("notify.statuses: unknown status %q", s)
		}
	}
	return nil
}

// Validate 校验调参常量的取值范围。
func (t Tuning) Validate() error {
	inRange := func(name string, v, lo, hi float64) error {
		if v < lo || v > hi {
			return fmt.Errorf("tuning.%s must be in [%g,%g], got %g", name, lo, hi, v)
		}
		return nil
	}
	checks := []error{
		inRange("min_methodology_confidence", t.MinMethodologyConfidence, 0, 100),
		inRange("success_threshold", t.SuccessThreshold, 0, 100),
		inRange("review_threshold", t.ReviewThreshold, 0, 100),
		inRange("methodology_weight", t.MethodologyWeight, 0, 1),
		inRange("actionability_weight", t.ActionabilityWeight, 0, 1),
		inRange("extraction_weight", t.ExtractionWeight, 0, 1),
		inRange("validator_score_weight", t.ValidatorScoreWeight, 0, 1),
		inRange("validator_clarity_weight", t.ValidatorClarityWeight, 0, 1),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if t.ReviewThreshold > t.SuccessThreshold {
		return fmt.Errorf("tuning.review_threshold must not exceed tuning.success_threshold")
	}
	if t.MandatoryEntryRules < 0 || t.MaxMissingForActionable < 0 {
		return fmt.Errorf("tuning.mandatory_entry_rules and tuning.max_missing_for_actionable must be >= 0")
	}
	if t.MediumTranscriptWords > t.LongTranscriptWords {
		return fmt.Errorf("tuning.medium_transcript_words must not exceed tuning.long_transcript_words")
	}
	return nil
}
