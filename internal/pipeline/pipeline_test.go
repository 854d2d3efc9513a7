package pipeline

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"stratex/internal/config"
	"stratex/internal/extraction/acquire"
	"stratex/internal/extraction/classify"
	"stratex/internal/extraction/extract"
	"stratex/internal/extraction/prompt"
	"stratex/internal/gateway/captions"
	"stratex/internal/gateway/captions/captionstest"
	"stratex/internal/gateway/provider"
	"stratex/internal/gateway/provider/providertest"
	"stratex/internal/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const videoURL = "https://youtu.be/dQw4w9WgXcQ"

var transcript600 = strings.TrimSpace(strings.Repeat("wait for the sweep of liquidity then enter on the order block retest ", 50))

const classified = `{"methodology": "smc", "confidence": 85, "evidence": ["order block retest"], "reasoning": "smc vocabulary"}`

const extracted = "```json\n" + `{
  "name": "Sweep and retest",
  "methodology": "smc",
  "conceptsUsed": ["liquidity sweep", "order block"],
  "entryRules": [
    {"type": "liquidity", "concept": "sweep", "condition": "price sweeps the previous session high", "sourceQuote": "wait for the sweep"},
    {"type": "smc", "concept": "order block", "condition": "price retests the bearish order block", "sourceQuote": "enter on the retest"}
  ],
  "exitRules": [{"type": "take_profit", "value": 3, "unit": "rr", "description": "3R target", "sourceQuote": "take three R"}],
  "riskManagement": {"stopLoss": {"type": "structure", "placement": "above the sweep high"}, "riskRewardRatio": "1:3"},
  "timeframeContext": {"primary": "15m"},
  "suitablePairs": ["EURUSD"]
}` + "\n```"

func newPipeline(llm provider.Completer, f captions.Fetcher) *Pipeline {
	b := prompt.NewBuilder(0)
	acq := &acquire.Acquirer{LLM: llm, Captions: f, Prompts: b, Models: acquire.Models{Default: "base", Grounded: "pro"}}
	p := New(acq,
		&classify.Classifier{LLM: llm, Prompts: b},
		&extract.Extractor{LLM: llm, Prompts: b},
		config.DefaultTuning())
	p.Metrics = NewMetrics()
	return p
}

func TestRun_ManualTranscriptSuccess(t *testing.T) {
	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, providertest.Purpose(StepMethodology)).Return(classified, nil).Once()
	llm.On("Complete", mock.Anything, providertest.Purpose(StepExtraction)).Return(extracted, nil).Once()

	p := newPipeline(llm, nil)
	resp, err := p.Run(context.Background(), Request{Transcript: transcript600})
	require.NoError(t, err)

	assert.Equal(t, types.StatusSuccess, resp.Status)
	require.NotNil(t, resp.Confidence)
	// 85*0.4 + 100*0.4 + 10
	assert.Equal(t, 84, *resp.Confidence)
	assert.Equal(t, "manual", resp.Source)
	assert.NotEmpty(t, resp.RunID)
	assert.NotEmpty(t, resp.Reason)

	require.NotNil(t, resp.Strategy)
	assert.Equal(t, types.MethodologySMC, resp.Strategy.Methodology)
	assert.Equal(t, "entry_0", resp.Strategy.EntryRules[0].ID)
	require.NotNil(t, resp.Strategy.RiskManagement.RiskRewardRatio)
	assert.Equal(t, 3.0, *resp.Strategy.RiskManagement.RiskRewardRatio)
	require.NotNil(t, resp.Validation)
	assert.Equal(t, 100, resp.Validation.Score)

	assert.Equal(t, []string{
		acquire.StepManual, StepMethodology, StepExtraction, StepNormalize, StepValidation, StepResolution,
	}, resp.Debug.StepNames())
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.runs.WithLabelValues("success")))
	llm.AssertExpectations(t)
}

func TestRun_BareExtractionConfidenceKeepsSuccess(t *testing.T) {
	withConf := strings.Replace(extracted, `"suitablePairs": ["EURUSD"]`, `"suitablePairs": ["EURUSD"],
  "extractionConfidence": 90`, 1)
	require.NotEqual(t, extracted, withConf)

	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, providertest.Purpose(StepMethodology)).Return(classified, nil).Once()
	llm.On("Complete", mock.Anything, providertest.Purpose(StepExtraction)).Return(withConf, nil).Once()

	resp, err := newPipeline(llm, nil).Run(context.Background(), Request{Transcript: transcript600})
	require.NoError(t, err)

	assert.Equal(t, types.StatusSuccess, resp.Status)
	require.NotNil(t, resp.Validation)
	// 100*0.6 + 90*0.4
	assert.Equal(t, 96, resp.Validation.Score)
	require.NotNil(t, resp.Confidence)
	// 85*0.25 + 96*0.25 + 90*0.3 + 10
	assert.Equal(t, 82, *resp.Confidence)
}

func TestRun_GateBlocksBeforeExtraction(t *testing.T) {
	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, providertest.Purpose(StepMethodology)).
		Return(`{"methodology": "hybrid", "confidence": 59}`, nil).Once()

	resp, err := newPipeline(llm, nil).Run(context.Background(), Request{Transcript: transcript600})
	require.NoError(t, err)
	assert.Equal(t, types.StatusBlocked, resp.Status)
	assert.Nil(t, resp.Strategy)
	assert.Contains(t, resp.Reason, "59%")

	step, ok := resp.Debug.Last(StepMethodology)
	require.True(t, ok)
	assert.Equal(t, types.StepFailed, step.Status)
	_, ran := resp.Debug.Last(StepExtraction)
	assert.False(t, ran)
	llm.AssertNotCalled(t, "Complete", mock.Anything, providertest.Purpose(StepExtraction))
}

func TestRun_FallbackToCaptions(t *testing.T) {
	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, providertest.Purpose(acquire.StepUnified)).Return(`{"error": "CANNOT_ACCESS_VIDEO"}`, nil).Once()
	llm.On("Complete", mock.Anything, providertest.Purpose(acquire.StepDirect)).Return("CANNOT_ACCESS_VIDEO", nil).Once()
	llm.On("Complete", mock.Anything, providertest.Purpose(acquire.StepGrounded)).Return("I cannot access external URLs.", nil).Once()
	llm.On("Complete", mock.Anything, providertest.Purpose(StepMethodology)).Return(classified, nil).Once()
	llm.On("Complete", mock.Anything, providertest.Purpose(StepExtraction)).Return(extracted, nil).Once()

	f := new(captionstest.MockFetcher)
	f.On("Fetch", mock.Anything, "dQw4w9WgXcQ").
		Return(captions.Transcript{Text: transcript600, VideoTitle: "Sweep & retest", IsAutoGenerated: true}, nil).Once()

	resp, err := newPipeline(llm, f).Run(context.Background(), Request{URL: videoURL})
	require.NoError(t, err)
	assert.Equal(t, []string{
		acquire.StepUnified, acquire.StepDirect, acquire.StepGrounded, acquire.StepCaptions,
		StepMethodology, StepExtraction, StepNormalize, StepValidation, StepResolution,
	}, resp.Debug.StepNames())
	assert.Equal(t, "Sweep & retest", resp.VideoTitle)
	assert.Equal(t, "captions", resp.Source)
	// 84 - 10 auto captions
	require.NotNil(t, resp.Confidence)
	assert.Equal(t, 74, *resp.Confidence)
	assert.Equal(t, types.StatusWarning, resp.Status)
	llm.AssertExpectations(t)
	f.AssertExpectations(t)
}

func TestRun_UnifiedPath(t *testing.T) {
	strategy := strings.TrimSuffix(strings.TrimPrefix(extracted, "```json\n"), "\n```")
	unified := `{"videoTitle": "ICT killzones", "transcriptPreview": "` + transcript600[:400] + `", "wordCount": 1800,` +
		`"methodology": {"methodology": "smc", "confidence": 90}, "strategy": ` + strategy + `, "status": "success"}`
	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, providertest.Purpose(acquire.StepUnified)).Return(unified, nil).Once()

	resp, err := newPipeline(llm, nil).Run(context.Background(), Request{URL: videoURL})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, resp.Status)
	assert.Equal(t, "ICT killzones", resp.VideoTitle)
	require.NotNil(t, resp.Strategy)
	assert.Equal(t, "Sweep and retest", resp.Strategy.Name)
	// 90*0.4 + 100*0.4 + 15 = 91
	assert.Equal(t, 91, *resp.Confidence)
	assert.Equal(t, []string{
		acquire.StepUnified, StepMethodology, StepExtraction, StepNormalize, StepValidation, StepResolution,
	}, resp.Debug.StepNames())
	llm.AssertNotCalled(t, "Complete", mock.Anything, providertest.Purpose(StepMethodology))
}

func TestRun_InputErrors(t *testing.T) {
	llm := new(providertest.MockCompleter)
	p := newPipeline(llm, nil)

	for _, req := range []Request{{}, {URL: "   "}, {URL: "https://vimeo.com/123"}} {
		resp, err := p.Run(context.Background(), req)
		kind, ok := types.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, types.KindInput, kind)
		assert.Equal(t, http.StatusBadRequest, kind.HTTPStatus())
		assert.Equal(t, types.StatusFailed, resp.Status)
		assert.NotEmpty(t, resp.Reason)
		require.NotNil(t, resp.Debug)
		assert.Equal(t, []string{StepInput}, resp.Debug.StepNames())
	}
	llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestRun_TranscriptWithBadURLUsesTranscript(t *testing.T) {
	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, providertest.Purpose(StepMethodology)).Return(classified, nil).Once()
	llm.On("Complete", mock.Anything, providertest.Purpose(StepExtraction)).Return(extracted, nil).Once()

	resp, err := newPipeline(llm, nil).Run(context.Background(), Request{URL: "not a url", Transcript: transcript600})
	require.NoError(t, err)
	assert.Equal(t, "manual", resp.Source)
}

func TestRun_UpstreamErrors(t *testing.T) {
	cases := []struct {
		status int
		kind   types.ErrorKind
	}{
		{http.StatusTooManyRequests, types.KindUpstreamRateLimited},
		{http.StatusPaymentRequired, types.KindUpstreamBillingExhausted},
		{http.StatusBadGateway, types.KindUpstreamUnavailable},
	}
	for _, tc := range cases {
		llm := new(providertest.MockCompleter)
		llm.On("Complete", mock.Anything, providertest.Purpose(StepMethodology)).
			Return("", &provider.UpstreamError{StatusCode: tc.status, Message: "upstream"}).Once()

		resp, err := newPipeline(llm, nil).Run(context.Background(), Request{Transcript: transcript600})
		kind, ok := types.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, tc.kind, kind)
		assert.Equal(t, types.StatusFailed, resp.Status)
		step, _ := resp.Debug.Last(StepMethodology)
		assert.Equal(t, types.StepFailed, step.Status)
	}
}

func TestRun_RateLimitDuringAcquisition(t *testing.T) {
	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, providertest.Purpose(acquire.StepUnified)).
		Return("", &provider.UpstreamError{StatusCode: 429, Message: "rate limit exceeded"}).Once()

	resp, err := newPipeline(llm, nil).Run(context.Background(), Request{URL: videoURL})
	kind, _ := types.KindOf(err)
	assert.Equal(t, types.KindUpstreamRateLimited, kind)
	assert.Equal(t, types.StatusFailed, resp.Status)
	assert.Contains(t, resp.Reason, "rate limiting")
	assert.Equal(t, []string{acquire.StepUnified}, resp.Debug.StepNames())
}

func TestRun_AllAcquisitionFails(t *testing.T) {
	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, mock.Anything).Return("CANNOT_ACCESS_VIDEO", nil)

	resp, err := newPipeline(llm, nil).Run(context.Background(), Request{URL: videoURL})
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, resp.Status)
	assert.Equal(t, acquire.FailureReason, resp.Reason)
	assert.Nil(t, resp.Strategy)
}

func TestRun_ExtractionParseFailure(t *testing.T) {
	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, providertest.Purpose(StepMethodology)).Return(classified, nil).Once()
	llm.On("Complete", mock.Anything, providertest.Purpose(StepExtraction)).Return("Sure! The strategy is to buy low.", nil).Once()

	resp, err := newPipeline(llm, nil).Run(context.Background(), Request{Transcript: transcript600})
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, resp.Status)
	step, _ := resp.Debug.Last(StepExtraction)
	assert.Equal(t, types.StepFailed, step.Status)
}

func TestRun_Deterministic(t *testing.T) {
	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, providertest.Purpose(StepMethodology)).Return(classified, nil)
	llm.On("Complete", mock.Anything, providertest.Purpose(StepExtraction)).Return(extracted, nil)
	p := newPipeline(llm, nil)

	a, err := p.Run(context.Background(), Request{Transcript: transcript600})
	require.NoError(t, err)
	b, err := p.Run(context.Background(), Request{Transcript: transcript600})
	require.NoError(t, err)
	assert.Equal(t, *a.Confidence, *b.Confidence)
	assert.Equal(t, a.Status, b.Status)
	assert.Equal(t, a.Strategy, b.Strategy)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRun_TuningSnapshot(t *testing.T) {
	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, providertest.Purpose(StepMethodology)).Return(classified, nil)

	p := newPipeline(llm, nil)
	tun := config.DefaultTuning()
	tun.MinMethodologyConfidence = 90
	p.SetTuning(tun)

	resp, err := p.Run(context.Background(), Request{Transcript: transcript600})
	require.NoError(t, err)
	assert.Equal(t, types.StatusBlocked, resp.Status)
	assert.Equal(t, 90.0, p.Tuning().MinMethodologyConfidence)
}

type recordingObserver struct {
	mu   sync.Mutex
	recs []RunRecord
}

func (o *recordingObserver) Observe(_ context.Context, rec RunRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recs = append(o.recs, rec)
	return nil
}

func TestRun_NotifiesObservers(t *testing.T) {
	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, providertest.Purpose(StepMethodology)).Return(`{"methodology": "ict", "confidence": 20}`, nil)

	obs := &recordingObserver{}
	p := newPipeline(llm, nil)
	p.Observers = append(p.Observers, obs)

	resp, _ := p.Run(context.Background(), Request{Transcript: transcript600})
	require.Len(t, obs.recs, 1)
	assert.Equal(t, resp.RunID, obs.recs[0].Response.RunID)
	assert.Equal(t, types.KindLowConfidenceMethodology, obs.recs[0].Kind)
}
