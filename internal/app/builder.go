package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stratex/internal/config"
	"stratex/internal/extraction/acquire"
	"stratex/internal/extraction/classify"
	"stratex/internal/extraction/extract"
	"stratex/internal/extraction/prompt"
	"stratex/internal/gateway/captions"
	"stratex/internal/gateway/notifier"
	"stratex/internal/gateway/provider"
	"stratex/internal/pkg/circuit"
	"stratex/internal/pipeline"
	"stratex/internal/store/runlog"
	extracthttp "stratex/internal/transport/http/extract"
)

type AppBuilder struct {
	cfg *config.Config

	completerFn func(config.AIConfig) (provider.Completer, error)
	captionsFn  func(config.CaptionsConfig) captions.Fetcher
	runLogFn    func(config.RunLogConfig) (*runlog.Store, error)
	watchFn     func(path string, base config.Tuning, onChange func(config.Tuning)) (config.Tuning, *config.TuningWatcher, error)
}

type AppBuilderOption func(*AppBuilder)

// WithCompleter 替换补全服务（测试用）。
func WithCompleter(c provider.Completer) AppBuilderOption {
	return func(b *AppBuilder) {
		b.completerFn = func(config.AIConfig) (provider.Completer, error) { return c, nil }
	}
}

// WithCaptions 替换字幕服务（测试用）。
func WithCaptions(f captions.Fetcher) AppBuilderOption {
	return func(b *AppBuilder) {
		b.captionsFn = func(config.CaptionsConfig) captions.Fetcher { return f }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:         cfg,
		completerFn: buildCompleter,
		captionsFn:  buildCaptions,
		runLogFn:    buildRunLog,
		watchFn:     config.WatchTuning,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b == nil || b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	llm, err := b.completerFn(cfg.AI)
	if err != nil {
		return nil, err
	}
	llm = guardCompleter(llm, cfg.AI)
	fetcher := b.captionsFn(cfg.Captions)

	tuning := cfg.Tuning
	prompts := prompt.NewBuilder(cfg.Pipeline.MaxTranscriptChars)
	acq := &acquire.Acquirer{
		LLM:      llm,
		Captions: fetcher,
		Prompts:  prompts,
		Detector: acquire.NewDetector(tuning.MinTranscriptChars, tuning.MinTranscriptWords),
		Models: acquire.Models{
			Default:     cfg.AI.Model,
			Grounded:    cfg.AI.GroundedModel,
			Temperature: cfg.AI.Temperature,
		},
		StageTimeout: time.Duration(cfg.Pipeline.StageTimeoutSeconds) * time.Second,
	}
	cls := &classify.Classifier{LLM: llm, Prompts: prompts, Model: cfg.AI.Model, Temperature: cfg.AI.Temperature}
	ext := &extract.Extractor{LLM: llm, Prompts: prompts, Model: cfg.AI.Model, Temperature: cfg.AI.Temperature}

	p := pipeline.New(acq, cls, ext, tuning)
	p.Metrics = pipeline.NewMetrics()

	tuningSource := "config"
	var watcher *config.TuningWatcher
	if path := strings.TrimSpace(cfg.Pipeline.TuningPath); path != "" {
		loaded, w, err := b.watchFn(path, tuning, p.SetTuning)
		if err != nil {
			return nil, fmt.Errorf("load tuning overrides: %w", err)
		}
		p.SetTuning(loaded)
		watcher = w
		tuningSource = path + " (watching)"
	}

	var runs *runlog.Store
	if cfg.RunLog.Enabled {
		runs, err = b.runLogFn(cfg.RunLog)
		if err != nil {
			return nil, fmt.Errorf("open run log: %w", err)
		}
		p.Observers = append(p.Observers, runs)
	}
	if cfg.Notify.Enabled {
		tg := notifier.NewTelegram(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID)
		p.Observers = append(p.Observers, notifier.NewRunNotifier(tg, cfg.Notify.Statuses))
	}

	srvCfg := extracthttp.ServerConfig{
		Addr:     cfg.App.HTTPAddr,
		Runner:   p,
		Registry: p.Metrics.Registry,
	}
	if runs != nil {
		srvCfg.Runs = runs
	}
	srv, err := extracthttp.NewServer(srvCfg)
	if err != nil {
		if runs != nil {
			_ = runs.Close()
		}
		return nil, err
	}

	return &App{
		cfg:      cfg,
		pipeline: p,
		runs:     runs,
		http:     srv,
		tuning:   watcher,
		Summary:  newStartupSummary(cfg, llm, fetcher != nil, tuningSource),
	}, nil
}

func buildCompleter(ai config.AIConfig) (provider.Completer, error) {
	return provider.BuildFromConfig(provider.ModelCfg{
		ID:          ai.ID,
		APIURL:      ai.APIURL,
		APIKey:      ai.APIKey,
		Model:       ai.Model,
		Temperature: ai.Temperature,
		Headers:     ai.Headers,
	}, time.Duration(ai.TimeoutSeconds)*time.Second)
}

// guardCompleter 按配置加熔断，阈值为 0 时原样返回。
func guardCompleter(llm provider.Completer, ai config.AIConfig) provider.Completer {
	if llm == nil || ai.BreakerThreshold <= 0 {
		return llm
	}
	b := circuit.New("llm:"+llm.ID(), ai.BreakerThreshold, time.Duration(ai.BreakerCooldownSeconds)*time.Second)
	return provider.NewGuarded(llm, b)
}

// buildCaptions 未启用时返回 nil，获取链把字幕阶段记为 skipped。
func buildCaptions(c config.CaptionsConfig) captions.Fetcher {
	if !c.Enabled || strings.TrimSpace(c.APIURL) == "" {
		return nil
	}
	return captions.NewHTTPFetcher(c.APIURL, c.APIKey, c.Language, time.Duration(c.TimeoutSeconds)*time.Second)
}

func buildRunLog(c config.RunLogConfig) (*runlog.Store, error) {
	return runlog.Open(c.Path)
}
