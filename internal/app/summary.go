package app

import (
	"fmt"
	"strings"

	"stratex/internal/config"
	"stratex/internal/gateway/provider"
	"stratex/internal/logger"
	"stratex/internal/types"
)

type StartupSummary struct {
	HTTPAddr      string
	Provider      string
	Model         string
	GroundedModel string
	Captions      bool
	Breaker       string
	Notify        string
	StageTimeout  int
	RunLog        string
	TuningSource  string
	Tuning        config.Tuning
}

func newStartupSummary(cfg *config.Config, llm provider.Completer, captions bool, tuningSource string) *StartupSummary {
	s := &StartupSummary{
		HTTPAddr:      cfg.App.HTTPAddr,
		Model:         cfg.AI.Model,
		GroundedModel: cfg.AI.GroundedModel,
		Captions:      captions,
		StageTimeout:  cfg.Pipeline.StageTimeoutSeconds,
		TuningSource:  tuningSource,
		Tuning:        cfg.Tuning,
	}
	if llm != nil {
		s.Provider = llm.ID()
	}
	if cfg.RunLog.Enabled {
		s.RunLog = cfg.RunLog.Path
	}
	if cfg.AI.BreakerThreshold > 0 {
		s.Breaker = fmt.Sprintf("%d 次失败 / 冷却 %ds", cfg.AI.BreakerThreshold, cfg.AI.BreakerCooldownSeconds)
	}
	if cfg.Notify.Enabled {
		s.Notify = "telegram " + strings.Join(cfg.Notify.Statuses, ",")
	}
	return s
}

// Print 通过 logger 输出摘要，日志落盘时同样可见。
func (s *StartupSummary) Print() {
	logger.InfoBlock(s.Render())
}

func (s *StartupSummary) Render() string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}
	title := "启动配置摘要 (STARTUP SUMMARY)"
	line("%s", strings.Repeat("=", 80))
	line("%*s", 40+len(title)/2, title)
	line("%s", strings.Repeat("=", 80))

	line("[服务 (SERVICE)]")
	line("  监听地址: %s", s.HTTPAddr)
	line("  运行日志: %s", orDash(s.RunLog))
	line("  推送: %s", orDash(s.Notify))
	line("")

	line("[补全服务 (COMPLETION)]")
	line("  Provider: %s", orDash(s.Provider))
	line("  模型: %s", orDash(s.Model))
	line("  Grounded 模型: %s", orDash(s.GroundedModel))
	line("  单阶段超时: %ds", s.StageTimeout)
	line("  熔断: %s", orDash(s.Breaker))
	line("")

	line("[获取链 (ACQUISITION CHAIN)]")
	stages := []string{"unified_extraction", "direct_transcription", "grounded_transcription", "caption_api"}
	if !s.Captions {
		stages[3] += " (disabled)"
	}
	for i, st := range stages {
		line("  %d. %s", i+1, st)
	}
	line("")

	t := s.Tuning
	line("[判定参数 (TUNING) - %s]", orDash(s.TuningSource))
	line("  方法论门槛: %.0f", t.MinMethodologyConfidence)
	line("  权重: methodology=%.2f actionability=%.2f extraction=%.2f", t.MethodologyWeight, t.ActionabilityWeight, t.ExtractionWeight)
	line("  状态阈值: %s>=%.0f %s>=%.0f", types.StatusSuccess, t.SuccessThreshold, types.StatusWarning, t.ReviewThreshold)
	line("%s", strings.Repeat("=", 80))
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
