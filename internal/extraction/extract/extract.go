// Package extract 在方法论已知的前提下，把转录文本抽取为结构化策略。
package extract

import (
	"context"

	"stratex/internal/extraction/prompt"
	"stratex/internal/gateway/provider"
	"stratex/internal/logger"
	"stratex/internal/types"
)

const stage = "strategy_extraction"

type Extractor struct {
	LLM         provider.Completer
	Prompts     prompt.Builder
	Model       string
	Temperature float64
}

// Extract 抽取策略，结果的 methodology 总是等于传入的分类标签。
func (e *Extractor) Extract(ctx context.Context, transcript string, m types.Methodology, confidence float64) (types.ExtractedStrategy, error) {
	p := e.Prompts.Extraction(transcript, m, confidence)
	raw, err := e.LLM.Complete(ctx, provider.ChatPayload{
		System:      p.System,
		User:        p.User,
		Model:       e.Model,
		Temperature: e.Temperature,
		Purpose:     stage,
	})
	if err != nil {
		return types.ExtractedStrategy{}, types.NewStageError(provider.Classify(err), stage, err)
	}
	s, err := DecodeResponse(raw)
	if err != nil {
		logger.Warnf("[extract] decode failed: %v", err)
		return types.ExtractedStrategy{}, types.NewStageError(types.KindParseFailure, stage, err)
	}
	s.Methodology = m
	logger.Debugf("[extract] name=%q entries=%d exits=%d", s.Name, len(s.EntryRules), len(s.ExitRules))
	return s, nil
}
