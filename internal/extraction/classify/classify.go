// Package classify 对转录文本做单标签方法论分类。
package classify

import (
	"context"
	"fmt"
	"strings"

	"stratex/internal/extraction/prompt"
	"stratex/internal/gateway/provider"
	"stratex/internal/logger"
	"stratex/internal/pkg/convert"
	"stratex/internal/pkg/jsonutil"
	"stratex/internal/types"

	"github.com/tidwall/gjson"
)

const maxEvidence = 5

// Classification 分类结果。
type Classification struct {
	Methodology types.Methodology `json:"methodology"`
	Confidence  float64           `json:"confidence"`
	Evidence    []string          `json:"evidence"`
	Reasoning   string            `json:"reasoning"`
}

// Passes 报告置信度是否达到抽取门槛。
func (c Classification) Passes(min float64) bool {
	return c.Confidence >= min
}

// Classifier 调用补全服务完成分类。
type Classifier struct {
	LLM         provider.Completer
	Prompts     prompt.Builder
	Model       string
	Temperature float64
}

func (c *Classifier) Classify(ctx context.Context, transcript string) (Classification, error) {
	p := c.Prompts.Classification(transcript)
	raw, err := c.LLM.Complete(ctx, provider.ChatPayload{
		System:      p.System,
		User:        p.User,
		Model:       c.Model,
		Temperature: c.Temperature,
		Purpose:     "methodology_detection",
	})
	if err != nil {
		return Classification{}, types.NewStageError(provider.Classify(err), "methodology_detection", err)
	}
	out, err := ParseResponse(raw)
	if err != nil {
		return Classification{}, types.NewStageError(types.KindParseFailure, "methodology_detection", err)
	}
	logger.Debugf("[classify] methodology=%s confidence=%.0f evidence=%d", out.Methodology, out.Confidence, len(out.Evidence))
	return out, nil
}

// ParseResponse 从模型原始输出中解析分类结果。
func ParseResponse(raw string) (Classification, error) {
	obj, err := jsonutil.ExtractObject(raw)
	if err != nil {
		return Classification{}, err
	}
	return ParseResult(gjson.Parse(obj))
}

// ParseResult 解析分类对象。未知标签归为 hybrid，置信度截断到 [0,100]。
func ParseResult(node gjson.Result) (Classification, error) {
	if !node.IsObject() {
		return Classification{}, fmt.Errorf("classification must be a JSON object")
	}
	label := node.Get("methodology")
	if !label.Exists() || strings.TrimSpace(label.String()) == "" {
		return Classification{}, fmt.Errorf("classification missing methodology")
	}
	m, ok := types.ParseMethodology(label.String())
	if !ok {
		logger.Warnf("[classify] unknown methodology label %q, treating as hybrid", label.String())
		m = types.MethodologyHybrid
	}
	conf, _ := convert.AsFloat(node.Get("confidence").Value())
	out := Classification{
		Methodology: m,
		Confidence:  convert.Clamp(conf, 0, 100),
		Reasoning:   strings.TrimSpace(node.Get("reasoning").String()),
	}
	for _, ev := range node.Get("evidence").Array() {
		if s := strings.TrimSpace(ev.String()); s != "" && len(out.Evidence) < maxEvidence {
			out.Evidence = append(out.Evidence, s)
		}
	}
	return out, nil
}
