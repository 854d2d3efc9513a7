// Package pipeline 串联获取、分类、抽取、归一化、校验与判定，
// 单次请求内严格顺序执行，不重试、不缓存。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"stratex/internal/config"
	"stratex/internal/extraction/acquire"
	"stratex/internal/extraction/classify"
	"stratex/internal/extraction/extract"
	"stratex/internal/extraction/normalize"
	"stratex/internal/extraction/resolve"
	"stratex/internal/extraction/validate"
	"stratex/internal/logger"
	"stratex/internal/pkg/youtube"
	"stratex/internal/types"

	"github.com/google/uuid"
)

// 调试步骤名。
const (
	StepInput       = "input_validation"
	StepMethodology = "methodology_detection"
	StepExtraction  = "strategy_extraction"
	StepNormalize   = "normalization"
	StepValidation  = "validation"
	StepResolution  = "confidence_resolution"
)

type Request struct {
	URL        string `json:"url,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

type Response struct {
	RunID       string                     `json:"runId"`
	Status      types.ImportStatus         `json:"status"`
	Reason      string                     `json:"reason"`
	Strategy    *types.ExtractedStrategy   `json:"strategy"`
	Validation  *types.ActionabilityResult `json:"validation"`
	VideoTitle  string                     `json:"videoTitle,omitempty"`
	Confidence  *int                       `json:"confidence,omitempty"`
	Methodology *classify.Classification   `json:"methodology,omitempty"`
	Source      string                     `json:"source,omitempty"`
	Debug       *types.DebugInfo           `json:"debug"`
}

// RunRecord 是交给 Observer 的一次运行摘要。
type RunRecord struct {
	Request   Request
	Response  Response
	Kind      types.ErrorKind
	StartedAt time.Time
	Duration  time.Duration
}

// Observer 在每次运行结束后收到通知，失败不影响响应。
type Observer interface {
	Observe(ctx context.Context, rec RunRecord) error
}

type Pipeline struct {
	Acquirer   *acquire.Acquirer
	Classifier *classify.Classifier
	Extractor  *extract.Extractor
	Metrics    *Metrics
	Observers  []Observer

	tuning atomic.Pointer[config.Tuning]
}

func New(acq *acquire.Acquirer, cls *classify.Classifier, ext *extract.Extractor, t config.Tuning) *Pipeline {
	p := &Pipeline{Acquirer: acq, Classifier: cls, Extractor: ext}
	p.SetTuning(t)
	return p
}

// SetTuning 替换调参常量，进行中的运行继续使用开始时的快照。
func (p *Pipeline) SetTuning(t config.Tuning) {
	p.tuning.Store(&t)
}

func (p *Pipeline) Tuning() config.Tuning {
	if t := p.tuning.Load(); t != nil {
		return *t
	}
	return config.DefaultTuning()
}

// run 保存单次运行的状态。
type run struct {
	p     *Pipeline
	t     config.Tuning
	req   Request
	resp  Response
	debug *types.DebugInfo
	kind  types.ErrorKind
}

// Run 执行一次完整的抽取。返回的 Response 总是完整填充；
// error 仅在输入错误或上游错误时非空，可用 types.KindOf 取得分类。
func (p *Pipeline) Run(ctx context.Context, req Request) (Response, error) {
	started := time.Now()
	r := &run{
		p:     p,
		t:     p.Tuning(),
		req:   req,
		debug: &types.DebugInfo{},
	}
	r.resp = Response{RunID: uuid.NewString(), Debug: r.debug}

	err := r.execute(ctx)
	if err != nil {
		if kind, ok := types.KindOf(err); ok {
			r.kind = kind
		}
	}
	if r.resp.Status == "" {
		r.resp.Status = types.StatusFailed
	}
	logger.Infow("extraction run finished",
		"run_id", r.resp.RunID,
		"status", r.resp.Status,
		"source", r.resp.Source,
		"steps", strings.Join(r.debug.StepNames(), ","),
		"elapsed", time.Since(started).Round(time.Millisecond).String(),
	)
	p.Metrics.observeRun(r.resp.Status, r.debug)
	p.notify(ctx, RunRecord{Request: req, Response: r.resp, Kind: r.kind, StartedAt: started, Duration: time.Since(started)})
	return r.resp, err
}

func (p *Pipeline) notify(ctx context.Context, rec RunRecord) {
	for _, o := range p.Observers {
		if o == nil {
			continue
		}
		if err := o.Observe(context.WithoutCancel(ctx), rec); err != nil {
			logger.Warnf("[pipeline] observer failed run=%s: %v", rec.Response.RunID, err)
		}
	}
}

func (r *run) execute(ctx context.Context) error {
	if err := r.validateInput(); err != nil {
		return err
	}

	start := time.Now()
	out := r.acquirer().Acquire(ctx, acquire.Input{URL: r.req.URL, Transcript: r.req.Transcript}, r.debug)
	r.p.Metrics.observeStage("acquisition", start)
	r.resp.Source = string(out.Source)
	r.resp.VideoTitle = out.VideoTitle

	var (
		cls      classify.Classification
		strategy types.ExtractedStrategy
	)
	switch out.Kind {
	case acquire.KindFailure:
		return r.acquisitionFailed(out)
	case acquire.KindUnified:
		cls = out.Unified.Classification
		r.resp.Methodology = &cls
		if !r.gate(cls, "from unified extraction") {
			return nil
		}
		strategy = out.Unified.Strategy
		r.debug.Add(StepExtraction, types.StepSuccess, fmt.Sprintf("from unified extraction: %d entry, %d exit rules", len(strategy.EntryRules), len(strategy.ExitRules)))
	default:
		var err error
		start = time.Now()
		cls, err = r.p.Classifier.Classify(ctx, out.Transcript)
		r.p.Metrics.observeStage(StepMethodology, start)
		if err != nil {
			return r.stageFailed(StepMethodology, err)
		}
		r.resp.Methodology = &cls
		if !r.gate(cls, "") {
			return nil
		}
		start = time.Now()
		strategy, err = r.p.Extractor.Extract(ctx, out.Transcript, cls.Methodology, cls.Confidence)
		r.p.Metrics.observeStage(StepExtraction, start)
		if err != nil {
			return r.stageFailed(StepExtraction, err)
		}
		r.debug.Add(StepExtraction, types.StepSuccess, fmt.Sprintf("%d entry, %d exit rules", len(strategy.EntryRules), len(strategy.ExitRules)))
	}

	r.finish(cls, strategy, out)
	return nil
}

func (r *run) acquirer() *acquire.Acquirer {
	acq := *r.p.Acquirer
	acq.Detector.MinChars = r.t.MinTranscriptChars
	acq.Detector.MinWords = r.t.MinTranscriptWords
	if acq.Detector.Phrases == nil {
		acq.Detector.Phrases = acquire.DefaultRefusalPhrases
	}
	return &acq
}

func (r *run) validateInput() error {
	transcript := strings.TrimSpace(r.req.Transcript)
	url := strings.TrimSpace(r.req.URL)
	var err error
	switch {
	case transcript == "" && url == "":
		err = errors.New("either a video URL or a transcript is required")
	case transcript == "":
		if _, perr := youtube.VideoID(url); perr != nil {
			err = fmt.Errorf("invalid YouTube URL: %w", perr)
		}
	}
	if err == nil {
		return nil
	}
	r.debug.Add(StepInput, types.StepFailed, err.Error())
	r.resp.Status = types.StatusFailed
	r.resp.Reason = capitalize(err.Error()) + "."
	return types.NewStageError(types.KindInput, StepInput, err)
}

func (r *run) acquisitionFailed(out acquire.Outcome) error {
	r.resp.Status = types.StatusFailed
	if out.Err == nil {
		r.resp.Reason = out.Reason
		return nil
	}
	if _, ok := types.KindOf(out.Err); !ok {
		// 调用方取消或超时
		r.resp.Reason = "Transcript acquisition was interrupted before any source succeeded."
		return types.NewStageError(types.KindUpstreamUnavailable, "acquisition", out.Err)
	}
	r.resp.Reason = upstreamReason(out.Err)
	return out.Err
}

// gate 方法论置信度低于门槛时阻断运行。
func (r *run) gate(cls classify.Classification, note string) bool {
	detail := fmt.Sprintf("%s (%.0f%%)", cls.Methodology, cls.Confidence)
	if note != "" {
		detail += " " + note
	}
	if !cls.Passes(r.t.MinMethodologyConfidence) {
		r.debug.Add(StepMethodology, types.StepFailed, fmt.Sprintf("%s below threshold %.0f", detail, r.t.MinMethodologyConfidence))
		r.resp.Status = types.StatusBlocked
		r.resp.Reason = resolve.GateReason(cls.Methodology, cls.Confidence, r.t.MinMethodologyConfidence)
		r.kind = types.KindLowConfidenceMethodology
		return false
	}
	r.debug.Add(StepMethodology, types.StepSuccess, detail)
	return true
}

func (r *run) stageFailed(step string, err error) error {
	r.debug.Add(step, types.StepFailed, err.Error())
	r.resp.Status = types.StatusFailed
	kind, _ := types.KindOf(err)
	if kind == types.KindParseFailure {
		r.resp.Reason = fmt.Sprintf("The model response for %s could not be parsed. Please try again or paste the transcript manually.", strings.ReplaceAll(step, "_", " "))
		r.kind = kind
		return nil
	}
	r.resp.Reason = upstreamReason(err)
	return err
}

func (r *run) finish(cls classify.Classification, strategy types.ExtractedStrategy, out acquire.Outcome) {
	start := time.Now()
	defer r.p.Metrics.observeStage("post_processing", start)

	s := normalize.Strategy(strategy, normalize.Options{MandatoryEntryRules: r.t.MandatoryEntryRules})
	rr := "none"
	if s.RiskManagement.RiskRewardRatio != nil {
		rr = fmt.Sprintf("%g", *s.RiskManagement.RiskRewardRatio)
	}
	r.debug.Add(StepNormalize, types.StepSuccess, fmt.Sprintf("%d entry, %d exit rules, rr=%s", len(s.EntryRules), len(s.ExitRules), rr))

	act := validate.Actionability(s, r.t)
	vStatus := types.StepSuccess
	if !act.IsActionable || len(act.MissingElements) > 0 {
		vStatus = types.StepWarning
	}
	r.debug.Add(StepValidation, vStatus, fmt.Sprintf("score=%d actionable=%t missing=[%s] warnings=%d",
		act.Score, act.IsActionable, strings.Join(act.MissingElements, ", "), len(act.Warnings)))

	res := resolve.Resolve(resolve.Input{
		MethodologyConfidence: cls.Confidence,
		Actionability:         act,
		WordCount:             out.WordCount,
		IsAutoGenerated:       out.IsAutoGenerated,
		ExtractionConfidence:  s.ExtractionConfidence,
	}, r.t)
	r.debug.Add(StepResolution, resolutionStepStatus(res.Status), fmt.Sprintf("final=%d rule=%s status=%s", res.FinalConfidence, res.Rule, res.Status))

	if res.Rule == "not_actionable" {
		r.kind = types.KindNotActionable
	}
	conf := res.FinalConfidence
	r.resp.Status = res.Status
	r.resp.Reason = res.Reason
	r.resp.Strategy = &s
	r.resp.Validation = &act
	r.resp.Confidence = &conf
}

func resolutionStepStatus(s types.ImportStatus) types.StepStatus {
	switch s {
	case types.StatusSuccess:
		return types.StepSuccess
	case types.StatusWarning:
		return types.StepWarning
	default:
		return types.StepFailed
	}
}

func upstreamReason(err error) string {
	kind, _ := types.KindOf(err)
	switch kind {
	case types.KindUpstreamRateLimited:
		return "The AI service is rate limiting requests. Please wait a moment and try again."
	case types.KindUpstreamBillingExhausted:
		return "The AI service account has run out of credits. Please add credits and try again."
	default:
		return "The AI service is unavailable: " + err.Error()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
