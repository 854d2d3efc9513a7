package acquire

import (
	"errors"
	"fmt"
	"strings"

	"stratex/internal/extraction/classify"
	"stratex/internal/extraction/extract"
	"stratex/internal/extraction/prompt"
	"stratex/internal/pkg/convert"
	"stratex/internal/pkg/jsonutil"
	"stratex/internal/pkg/text"
	"stratex/internal/types"

	"github.com/tidwall/gjson"
)

var (
	ErrCannotAccess = errors.New("model reported it cannot access the video")
	ErrRefused      = errors.New("model response looks like a refusal")
	ErrTooShort     = errors.New("response too short to be a real transcript")
)

// UnifiedResult 是单次调用路径产出的完整结果，策略在解析时即已绑定。
type UnifiedResult struct {
	Classification    classify.Classification
	Strategy          types.ExtractedStrategy
	VideoTitle        string
	TranscriptPreview string
	WordCount         int
	// StatusHint 模型自报的状态，仅用于调试；最终状态由 resolve 决定。
	StatusHint types.ImportStatus
}

// ParseUnified 校验并解析统一抽取的响应。
func ParseUnified(raw string, d Detector) (*UnifiedResult, error) {
	if strings.Contains(raw, prompt.CannotAccessSentinel) {
		return nil, ErrCannotAccess
	}
	obj, err := jsonutil.ExtractObject(raw)
	if err != nil {
		return nil, fmt.Errorf("parse unified response: %w", err)
	}
	node := gjson.Parse(obj)
	if node.Get("error").Exists() {
		return nil, fmt.Errorf("%w: %s", ErrCannotAccess, text.Truncate(node.Get("error").String(), 120))
	}
	for _, key := range []string{"methodology", "strategy"} {
		if !node.Get(key).Exists() {
			return nil, fmt.Errorf("unified response missing %q", key)
		}
	}

	preview := strings.TrimSpace(node.Get("transcriptPreview").String())
	words := int(node.Get("wordCount").Int())
	if words <= 0 {
		words = text.WordCount(preview)
	}
	if d.short(preview, words) {
		return nil, fmt.Errorf("%w: preview=%d chars words=%d", ErrTooShort, len(preview), words)
	}

	var cls classify.Classification
	if m := node.Get("methodology"); m.IsObject() {
		cls, err = classify.ParseResult(m)
	} else {
		cls, err = labelOnly(m.String(), node.Get("confidence"))
	}
	if err != nil {
		return nil, err
	}

	strategy, err := extract.DecodeStrategy(node.Get("strategy"))
	if err != nil {
		return nil, err
	}
	strategy.Methodology = cls.Methodology

	out := &UnifiedResult{
		Classification:    cls,
		Strategy:          strategy,
		VideoTitle:        strings.TrimSpace(node.Get("videoTitle").String()),
		TranscriptPreview: preview,
		WordCount:         words,
	}
	if st, ok := types.ParseImportStatus(node.Get("status").String()); ok {
		out.StatusHint = st
	}
	return out, nil
}

// labelOnly 处理 methodology 为字符串、置信度放在顶层的旧形态。
func labelOnly(label string, confidence gjson.Result) (classify.Classification, error) {
	if strings.TrimSpace(label) == "" {
		return classify.Classification{}, errors.New("unified response has empty methodology")
	}
	m, ok := types.ParseMethodology(label)
	if !ok {
		m = types.MethodologyHybrid
	}
	conf, _ := convert.AsFloat(confidence.Value())
	return classify.Classification{Methodology: m, Confidence: convert.Clamp(conf, 0, 100)}, nil
}
