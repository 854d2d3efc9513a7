package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stratex/internal/config"
	"stratex/internal/gateway/captions/captionstest"
	"stratex/internal/gateway/notifier"
	"stratex/internal/gateway/provider"
	"stratex/internal/gateway/provider/providertest"
	"stratex/internal/pipeline"
	"stratex/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:      config.AppConfig{HTTPAddr: "127.0.0.1:0", LogLevel: "error"},
		AI:       config.AIConfig{ID: "openai", APIKey: "sk-test", Model: "base", GroundedModel: "pro"},
		Pipeline: config.PipelineConfig{StageTimeoutSeconds: 5, MaxTranscriptChars: 10000},
		Tuning:   config.DefaultTuning(),
		RunLog:   config.RunLogConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "runs.db")},
	}
}

func TestAppBuilder_Build(t *testing.T) {
	llm := new(providertest.MockCompleter)
	app, err := NewAppBuilder(testConfig(t), WithCompleter(llm), WithCaptions(new(captionstest.MockFetcher))).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	require.NotNil(t, app.Pipeline())
	assert.Len(t, app.Pipeline().Observers, 1)
	assert.NotNil(t, app.Pipeline().Metrics)
	assert.Equal(t, "mock", app.Summary.Provider)
	assert.True(t, app.Summary.Captions)
}

func TestAppBuilder_RunPersistsToRunLog(t *testing.T) {
	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, providertest.Purpose("methodology_detection")).
		Return(`{"methodology": "wyckoff", "confidence": 30}`, nil).Once()

	app, err := NewAppBuilder(testConfig(t), WithCompleter(llm)).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	resp, err := app.Pipeline().Run(context.Background(), pipeline.Request{Transcript: "accumulation phase then a spring"})
	require.NoError(t, err)
	assert.Equal(t, types.StatusBlocked, resp.Status)

	rec, err := app.runs.Get(context.Background(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusBlocked, rec.Status)
	assert.Equal(t, types.KindLowConfidenceMethodology, rec.ErrorKind)
}

func TestAppBuilder_TuningOverrides(t *testing.T) {
	cfg := testConfig(t)
	cfg.RunLog.Enabled = false
	cfg.Pipeline.TuningPath = "tuning.yaml"

	var onChange func(config.Tuning)
	b := NewAppBuilder(cfg, WithCompleter(new(providertest.MockCompleter)))
	b.watchFn = func(path string, base config.Tuning, cb func(config.Tuning)) (config.Tuning, *config.TuningWatcher, error) {
		assert.Equal(t, "tuning.yaml", path)
		onChange = cb
		base.SuccessThreshold = 90
		return base, nil, nil
	}
	app, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 90.0, app.Pipeline().Tuning().SuccessThreshold)

	next := config.DefaultTuning()
	next.SuccessThreshold = 85
	onChange(next)
	assert.Equal(t, 85.0, app.Pipeline().Tuning().SuccessThreshold)
}

func TestApp_RunReloadsTuningAndStops(t *testing.T) {
	cfg := testConfig(t)
	cfg.RunLog.Enabled = false
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("success_threshold: 82\n"), 0o644))
	cfg.Pipeline.TuningPath = path

	app, err := NewAppBuilder(cfg, WithCompleter(new(providertest.MockCompleter))).Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, app.tuning)
	assert.Equal(t, 82.0, app.Pipeline().Tuning().SuccessThreshold)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("success_threshold: 88\n"), 0o644)
		return app.Pipeline().Tuning().SuccessThreshold == 88
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}

func TestAppBuilder_BreakerAndNotify(t *testing.T) {
	cfg := testConfig(t)
	cfg.RunLog.Enabled = false
	cfg.AI.BreakerThreshold = 3
	cfg.AI.BreakerCooldownSeconds = 30
	cfg.Notify = config.NotifyConfig{Enabled: true, TelegramBotToken: "t", TelegramChatID: "1", Statuses: []string{"success"}}

	app, err := NewAppBuilder(cfg, WithCompleter(new(providertest.MockCompleter))).Build(context.Background())
	require.NoError(t, err)

	require.Len(t, app.Pipeline().Observers, 1)
	assert.IsType(t, &notifier.RunNotifier{}, app.Pipeline().Observers[0])
	assert.IsType(t, &provider.Guarded{}, app.Pipeline().Classifier.LLM)
	assert.Equal(t, "mock", app.Summary.Provider)
	assert.NotEmpty(t, app.Summary.Breaker)
	assert.Equal(t, "telegram success", app.Summary.Notify)

	out := app.Summary.Render()
	assert.Contains(t, out, "4. caption_api (disabled)")
	assert.Contains(t, out, "熔断: 3 次失败 / 冷却 30s")
}

func TestGuardCompleter_Disabled(t *testing.T) {
	llm := new(providertest.MockCompleter)
	assert.Same(t, llm, guardCompleter(llm, config.AIConfig{}))
}

func TestBuildCaptions_Disabled(t *testing.T) {
	assert.Nil(t, buildCaptions(config.CaptionsConfig{Enabled: false, APIURL: "http://x"}))
	assert.Nil(t, buildCaptions(config.CaptionsConfig{Enabled: true}))
	assert.NotNil(t, buildCaptions(config.CaptionsConfig{Enabled: true, APIURL: "http://x"}))
}

func TestNewApp_NilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}
