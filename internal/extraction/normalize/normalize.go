// Package normalize 对抽取出的策略做纯函数式整理，不发起任何网络调用。
package normalize

import (
	"fmt"
	"strings"

	"stratex/internal/types"
)

// Options 归一化参数。
type Options struct {
	// MandatoryEntryRules 未显式声明时，前 N 条入场规则视为必需。
	MandatoryEntryRules int
}

// Strategy 返回归一化后的副本，输入不被修改。
func Strategy(in types.ExtractedStrategy, opts Options) types.ExtractedStrategy {
	out := in

	out.EntryRules = make([]types.EntryRule, len(in.EntryRules))
	for i, r := range in.EntryRules {
		if strings.TrimSpace(r.ID) == "" {
			r.ID = fmt.Sprintf("entry_%d", i)
		}
		if r.IsMandatory == nil {
			mandatory := i < opts.MandatoryEntryRules
			r.IsMandatory = &mandatory
		} else {
			v := *r.IsMandatory
			r.IsMandatory = &v
		}
		r.Type = types.EntryRuleType(strings.ToLower(strings.TrimSpace(string(r.Type))))
		r.Condition = strings.TrimSpace(r.Condition)
		out.EntryRules[i] = r
	}

	out.ExitRules = make([]types.ExitRule, len(in.ExitRules))
	for i, r := range in.ExitRules {
		if strings.TrimSpace(r.ID) == "" {
			r.ID = fmt.Sprintf("exit_%d", i)
		}
		r.Type = types.ExitRuleType(strings.ToLower(strings.TrimSpace(string(r.Type))))
		r.Unit = types.ExitUnit(strings.ToLower(strings.TrimSpace(string(r.Unit))))
		out.ExitRules[i] = r
	}

	out.RiskManagement = normalizeRisk(in.RiskManagement)
	out.ConceptsUsed = dedupe(in.ConceptsUsed)
	out.IndicatorsUsed = dedupe(in.IndicatorsUsed)
	out.PatternsUsed = dedupe(in.PatternsUsed)
	out.SuitablePairs = dedupe(in.SuitablePairs)
	mergeLegacy(&out)
	return out
}

func normalizeRisk(rm types.RiskManagement) types.RiskManagement {
	raw := rm.RawRiskReward
	if raw == nil && rm.RiskRewardRatio != nil {
		raw = *rm.RiskRewardRatio
	}
	rm.RiskRewardRatio = ParseRiskRewardRatio(raw)
	return rm
}

// mergeLegacy 把 metadata 中的旧字段合并进规范字段。
func mergeLegacy(s *types.ExtractedStrategy) {
	if s.Metadata == nil {
		return
	}
	meta := *s.Metadata
	tfs := dedupe(meta.Timeframes)
	if len(tfs) > 0 && strings.TrimSpace(s.TimeframeContext.Primary) == "" {
		s.TimeframeContext.Primary = tfs[0]
	}
	if len(tfs) > 1 && strings.TrimSpace(s.TimeframeContext.HigherTF) == "" {
		s.TimeframeContext.HigherTF = tfs[1]
	}
	s.SuitablePairs = dedupe(append(append([]string{}, s.SuitablePairs...), meta.Pairs...))
	meta.StopLossDescription = strings.TrimSpace(meta.StopLossDescription)
	meta.Timeframes = tfs
	s.Metadata = &meta
}

// dedupe 去空白、去重，保留首次出现的顺序；比较忽略大小写。
func dedupe(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
