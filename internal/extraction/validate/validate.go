// Package validate 判断策略是否包含可机械执行的入场、出场与风控信息。
package validate

import (
	"fmt"
	"strings"

	"stratex/internal/config"
	"stratex/internal/pkg/convert"
	"stratex/internal/types"
)

// 缺失项。
const (
	MissingEntryRules     = "Entry rules"
	MissingExitRules      = "Exit rules"
	MissingTakeProfit     = "Take profit level"
	MissingRisk           = "Risk management"
	MissingSMCConcepts    = "SMC/ICT concepts"
	MissingIndicatorSpecs = "Indicator specifications"
)

// 警告。
const (
	WarnLowConfluence = "Low confluence: fewer than %d clear entry conditions"
	WarnNoPairs       = "No suitable pairs specified"
	WarnNoTimeframe   = "No primary timeframe specified"
	WarnNoQuotes      = "%d rules lack source quotes"
)

// Actionability 校验策略，缺失项与警告按固定顺序输出。
func Actionability(s types.ExtractedStrategy, t config.Tuning) types.ActionabilityResult {
	res := types.ActionabilityResult{
		Warnings:        []string{},
		MissingElements: []string{},
	}

	res.HasEntry = len(s.EntryRules) > 0
	if !res.HasEntry {
		res.MissingElements = append(res.MissingElements, MissingEntryRules)
	} else if n := clearEntryRules(s.EntryRules, t.ClearConditionMinLength); n < t.MinClearEntryRules {
		res.Warnings = append(res.Warnings, fmt.Sprintf(WarnLowConfluence, t.MinClearEntryRules))
	}

	hasTP, hasSL := exitCoverage(s.ExitRules)
	hasSL = hasSL || stopLossPopulated(s.RiskManagement.StopLoss)
	res.HasExit = hasTP || hasSL
	if !res.HasExit {
		res.MissingElements = append(res.MissingElements, MissingExitRules)
	}
	if !hasTP && s.RiskManagement.RiskRewardRatio == nil {
		res.MissingElements = append(res.MissingElements, MissingTakeProfit)
	}

	res.HasRiskManagement = hasRisk(s)
	if !res.HasRiskManagement {
		res.MissingElements = append(res.MissingElements, MissingRisk)
	}

	switch {
	case s.Methodology.IsSmartMoney() && len(s.ConceptsUsed) == 0:
		res.MissingElements = append(res.MissingElements, MissingSMCConcepts)
	case s.Methodology == types.MethodologyIndicatorBased && len(s.IndicatorsUsed) == 0:
		res.MissingElements = append(res.MissingElements, MissingIndicatorSpecs)
	}

	if len(s.SuitablePairs) == 0 {
		res.Warnings = append(res.Warnings, WarnNoPairs)
	}
	if strings.TrimSpace(s.TimeframeContext.Primary) == "" {
		res.Warnings = append(res.Warnings, WarnNoTimeframe)
	}
	if n := unquotedRules(s); n > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf(WarnNoQuotes, n))
	}

	res.Score = score(len(res.MissingElements), len(res.Warnings), s.ExtractionConfidence, t)
	res.IsActionable = res.HasEntry && res.HasExit && len(res.MissingElements) <= t.MaxMissingForActionable
	return res
}

func score(missing, warnings int, ec *types.ExtractionConfidence, t config.Tuning) int {
	base := convert.Clamp(100-t.MissingElementPenalty*float64(missing)-t.WarningPenalty*float64(warnings), 0, 100)
	if ec == nil {
		return convert.Score(base)
	}
	return convert.Score(base*t.ValidatorScoreWeight + ec.AverageClarity()*t.ValidatorClarityWeight)
}

// clearEntryRules 统计类型明确且条件足够具体的入场规则。
func clearEntryRules(rules []types.EntryRule, minLen int) int {
	n := 0
	for _, r := range rules {
		if strings.TrimSpace(string(r.Type)) != "" && len(strings.TrimSpace(r.Condition)) > minLen {
			n++
		}
	}
	return n
}

func exitCoverage(rules []types.ExitRule) (tp, sl bool) {
	for _, r := range rules {
		tp = tp || r.Type.IsTakeProfit()
		sl = sl || r.Type.IsStopLoss()
	}
	return tp, sl
}

func stopLossPopulated(sl *types.StopLoss) bool {
	if sl == nil {
		return false
	}
	return sl.Value != nil || strings.TrimSpace(sl.Type) != "" || strings.TrimSpace(sl.Placement) != ""
}

func hasRisk(s types.ExtractedStrategy) bool {
	rm := s.RiskManagement
	if rm.RiskRewardRatio != nil || stopLossPopulated(rm.StopLoss) {
		return true
	}
	if raw, ok := rm.RawRiskReward.(string); ok && strings.TrimSpace(raw) != "" {
		return true
	}
	if s.Metadata != nil && strings.TrimSpace(s.Metadata.StopLossDescription) != "" {
		return true
	}
	ps := rm.PositionSizing
	return ps != nil && (ps.Value != nil || strings.TrimSpace(ps.Method) != "")
}

func unquotedRules(s types.ExtractedStrategy) int {
	n := 0
	for _, r := range s.EntryRules {
		if strings.TrimSpace(r.SourceQuote) == "" {
			n++
		}
	}
	for _, r := range s.ExitRules {
		if strings.TrimSpace(r.SourceQuote) == "" {
			n++
		}
	}
	return n
}
