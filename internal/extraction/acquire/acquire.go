// Package acquire 按固定顺序尝试获取转录文本，首个成功的阶段胜出。
package acquire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stratex/internal/extraction/prompt"
	"stratex/internal/gateway/captions"
	"stratex/internal/gateway/provider"
	"stratex/internal/logger"
	"stratex/internal/pkg/text"
	"stratex/internal/pkg/youtube"
	"stratex/internal/types"
)

// Source 标记转录文本的来源。
type Source string

const (
	SourceManual   Source = "manual"
	SourceUnified  Source = "unified"
	SourceDirect   Source = "direct_transcription"
	SourceGrounded Source = "grounded_transcription"
	SourceCaptions Source = "captions"
)

// 调试步骤名。
const (
	StepManual   = "manual_transcript"
	StepUnified  = "unified_extraction"
	StepDirect   = "direct_transcription"
	StepGrounded = "grounded_transcription"
	StepCaptions = "caption_api"
)

// Kind 区分获取结果的形态。
type Kind int

const (
	KindFailure Kind = iota
	KindUnified
	KindTranscript
)

func (k Kind) String() string {
	switch k {
	case KindUnified:
		return "unified"
	case KindTranscript:
		return "transcript"
	default:
		return "failure"
	}
}

// FailureReason 全部阶段失败时返回给调用方的提示。
const FailureReason = "Could not obtain a transcript for this video from any source. " +
	"Please paste the video transcript manually and try again."

type Input struct {
	URL        string
	Transcript string
}

// Outcome 是获取阶段的结果。Kind 为 KindFailure 时 Err 非空表示链路被
// 上游限流/额度错误中止，否则只是所有阶段都没有拿到文本。
type Outcome struct {
	Kind            Kind
	Unified         *UnifiedResult
	Transcript      string
	Source          Source
	WordCount       int
	IsAutoGenerated bool
	VideoTitle      string
	Reason          string
	Err             error
}

// Models 各阶段使用的模型。
type Models struct {
	Default     string
	Grounded    string
	Temperature float64
}

type Acquirer struct {
	LLM          provider.Completer
	Captions     captions.Fetcher
	Prompts      prompt.Builder
	Detector     Detector
	Models       Models
	StageTimeout time.Duration
}

type stage struct {
	name string
	run  func(ctx context.Context, in Input) (Outcome, error)
}

// stages 返回网络获取链，顺序即优先级。
func (a *Acquirer) stages() []stage {
	return []stage{
		{name: StepUnified, run: a.unified},
		{name: StepDirect, run: a.direct},
		{name: StepGrounded, run: a.grounded},
		{name: StepCaptions, run: a.captions},
	}
}

// errSkipped 表示阶段未配置，记录为 skipped。
var errSkipped = errors.New("stage not configured")

// Acquire 运行获取链，每个尝试过的阶段向 debug 追加一条记录。
func (a *Acquirer) Acquire(ctx context.Context, in Input, debug *types.DebugInfo) Outcome {
	if manual := strings.TrimSpace(in.Transcript); manual != "" {
		words := text.WordCount(manual)
		debug.Add(StepManual, types.StepSuccess, fmt.Sprintf("manual transcript, %d words", words))
		return Outcome{Kind: KindTranscript, Transcript: manual, Source: SourceManual, WordCount: words}
	}

	for _, st := range a.stages() {
		if err := ctx.Err(); err != nil {
			return Outcome{Kind: KindFailure, Reason: FailureReason, Err: err}
		}
		start := time.Now()
		out, err := a.runStage(ctx, st, in)
		elapsed := time.Since(start).Round(time.Millisecond)
		switch {
		case err == nil:
			debug.Add(st.name, types.StepSuccess, describe(out, elapsed))
			logger.Infof("[acquire] %s succeeded in %s (%s)", st.name, elapsed, out.Kind)
			return out
		case errors.Is(err, errSkipped):
			debug.Add(st.name, types.StepSkipped, err.Error())
			continue
		}
		debug.Add(st.name, types.StepFailed, fmt.Sprintf("%v (%s)", err, elapsed))
		if provider.IsRateLimited(err) || provider.IsBillingExhausted(err) {
			logger.Warnw("acquisition chain aborted", "stage", st.name, "err", err)
			return Outcome{
				Kind:   KindFailure,
				Reason: err.Error(),
				Err:    types.NewStageError(provider.Classify(err), st.name, err),
			}
		}
		logger.Infof("[acquire] %s failed, falling back: %v", st.name, err)
	}
	return Outcome{Kind: KindFailure, Reason: FailureReason}
}

func (a *Acquirer) runStage(ctx context.Context, st stage, in Input) (Outcome, error) {
	if a.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.StageTimeout)
		defer cancel()
	}
	return st.run(ctx, in)
}

func (a *Acquirer) complete(ctx context.Context, p prompt.Prompt, model, purpose string) (string, error) {
	if a.LLM == nil {
		return "", errSkipped
	}
	return a.LLM.Complete(ctx, provider.ChatPayload{
		System:      p.System,
		User:        p.User,
		Model:       model,
		Temperature: a.Models.Temperature,
		Purpose:     purpose,
	})
}

func (a *Acquirer) unified(ctx context.Context, in Input) (Outcome, error) {
	raw, err := a.complete(ctx, a.Prompts.Unified(in.URL), a.Models.Default, StepUnified)
	if err != nil {
		return Outcome{}, err
	}
	res, err := ParseUnified(raw, a.Detector)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Kind:       KindUnified,
		Unified:    res,
		Transcript: res.TranscriptPreview,
		Source:     SourceUnified,
		WordCount:  res.WordCount,
		VideoTitle: res.VideoTitle,
	}, nil
}

func (a *Acquirer) direct(ctx context.Context, in Input) (Outcome, error) {
	return a.transcribe(ctx, a.Prompts.DirectTranscription(in.URL), a.Models.Default, StepDirect, SourceDirect)
}

func (a *Acquirer) grounded(ctx context.Context, in Input) (Outcome, error) {
	model := a.Models.Grounded
	if model == "" {
		model = a.Models.Default
	}
	return a.transcribe(ctx, a.Prompts.GroundedTranscription(in.URL), model, StepGrounded, SourceGrounded)
}

func (a *Acquirer) transcribe(ctx context.Context, p prompt.Prompt, model, purpose string, src Source) (Outcome, error) {
	raw, err := a.complete(ctx, p, model, purpose)
	if err != nil {
		return Outcome{}, err
	}
	body := strings.TrimSpace(raw)
	if v := a.Detector.Detect(body); v != Valid {
		return Outcome{}, verdictError(v, body)
	}
	return Outcome{Kind: KindTranscript, Transcript: body, Source: src, WordCount: text.WordCount(body)}, nil
}

func (a *Acquirer) captions(ctx context.Context, in Input) (Outcome, error) {
	if a.Captions == nil {
		return Outcome{}, errSkipped
	}
	id, err := youtube.VideoID(in.URL)
	if err != nil {
		return Outcome{}, err
	}
	tr, err := a.Captions.Fetch(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	body := strings.TrimSpace(tr.Text)
	words := text.WordCount(body)
	if a.Detector.short(body, words) {
		return Outcome{}, fmt.Errorf("%w: %d chars, %d words", ErrTooShort, len(body), words)
	}
	return Outcome{
		Kind:            KindTranscript,
		Transcript:      body,
		Source:          SourceCaptions,
		WordCount:       words,
		IsAutoGenerated: tr.IsAutoGenerated,
		VideoTitle:      tr.VideoTitle,
	}, nil
}

func verdictError(v Verdict, body string) error {
	switch v {
	case ExplicitRefusal:
		return ErrCannotAccess
	case ImplicitRefusal:
		return fmt.Errorf("%w: %q", ErrRefused, text.Preview(body, 80))
	default:
		return fmt.Errorf("%w: %d chars, %d words", ErrTooShort, len(body), text.WordCount(body))
	}
}

func describe(out Outcome, elapsed time.Duration) string {
	switch out.Kind {
	case KindUnified:
		return fmt.Sprintf("unified extraction ok: %s (%.0f), ~%d words, %s",
			out.Unified.Classification.Methodology, out.Unified.Classification.Confidence, out.WordCount, elapsed)
	default:
		s := fmt.Sprintf("transcript via %s: %d words, %s", out.Source, out.WordCount, elapsed)
		if out.IsAutoGenerated {
			s += ", auto-generated"
		}
		return s
	}
}
