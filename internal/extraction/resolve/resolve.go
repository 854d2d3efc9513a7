// Package resolve 聚合最终置信度并给出导入状态，是唯一的判定点。
package resolve

import (
	"fmt"
	"math"
	"strings"

	"stratex/internal/config"
	"stratex/internal/pkg/convert"
	"stratex/internal/types"
)

type Input struct {
	MethodologyConfidence float64
	Actionability         types.ActionabilityResult
	WordCount             int
	IsAutoGenerated       bool
	ExtractionConfidence  *types.ExtractionConfidence
}

type Result struct {
	FinalConfidence int
	Status          types.ImportStatus
	Rule            string
	Reason          string
}

// Rule 是判定表中的一行。
type Rule struct {
	Name   string
	Match  func(in Input, confidence int, t config.Tuning) bool
	Status types.ImportStatus
}

// Rules 按顺序求值，首条命中即为结果。
var Rules = []Rule{
	{
		Name:   "no_entry_no_exit",
		Match:  func(in Input, _ int, _ config.Tuning) bool { return !in.Actionability.HasEntry && !in.Actionability.HasExit },
		Status: types.StatusFailed,
	},
	{
		Name:   "not_actionable",
		Match:  func(in Input, _ int, _ config.Tuning) bool { return !in.Actionability.IsActionable },
		Status: types.StatusBlocked,
	},
	{
		Name:   "high_confidence",
		Match:  func(_ Input, c int, t config.Tuning) bool { return float64(c) >= t.SuccessThreshold },
		Status: types.StatusSuccess,
	},
	{
		Name:   "review_confidence",
		Match:  func(_ Input, c int, t config.Tuning) bool { return float64(c) >= t.ReviewThreshold },
		Status: types.StatusWarning,
	},
	{
		Name:   "low_confidence",
		Match:  func(Input, int, config.Tuning) bool { return true },
		Status: types.StatusBlocked,
	},
}

// Resolve 计算最终置信度并查表得出状态。
func Resolve(in Input, t config.Tuning) Result {
	conf := FinalConfidence(in, t)
	for _, r := range Rules {
		if r.Match(in, conf, t) {
			return Result{
				FinalConfidence: conf,
				Status:          r.Status,
				Rule:            r.Name,
				Reason:          reason(r.Name, in, conf),
			}
		}
	}
	// 最后一条规则恒为真
	return Result{FinalConfidence: conf, Status: types.StatusBlocked, Rule: "low_confidence", Reason: reason("low_confidence", in, conf)}
}

// FinalConfidence 按权重聚合方法论置信度、可执行性得分与抽取自评，
// 再按转录长度加分、自动字幕扣分，截断到 [0,100] 并取整。
func FinalConfidence(in Input, t config.Tuning) int {
	m := convert.Clamp(in.MethodologyConfidence, 0, 100)
	a := float64(in.Actionability.Score)
	var v float64
	if ec := in.ExtractionConfidence; ec != nil {
		half := t.ExtractionWeight / 2
		v = m*math.Max(t.MethodologyWeight-half, 0) +
			a*math.Max(t.ActionabilityWeight-half, 0) +
			convert.Clamp(ec.Overall, 0, 100)*t.ExtractionWeight
	} else {
		v = m*t.MethodologyWeight + a*t.ActionabilityWeight
	}
	switch {
	case t.LongTranscriptWords > 0 && in.WordCount >= t.LongTranscriptWords:
		v += t.LongTranscriptBonus
	case t.MediumTranscriptWords > 0 && in.WordCount >= t.MediumTranscriptWords:
		v += t.MediumTranscriptBonus
	}
	if in.IsAutoGenerated {
		v -= t.AutoCaptionPenalty
	}
	return convert.Score(v)
}

func reason(rule string, in Input, conf int) string {
	act := in.Actionability
	switch rule {
	case "no_entry_no_exit":
		return "No entry or exit rules could be extracted from this video."
	case "not_actionable":
		return fmt.Sprintf("Strategy is not actionable: missing %s.", strings.Join(act.MissingElements, ", "))
	case "high_confidence":
		return fmt.Sprintf("Strategy extracted with high confidence (%d%%).", conf)
	case "review_confidence":
		s := fmt.Sprintf("Strategy extracted with moderate confidence (%d%%); review before importing.", conf)
		if len(act.MissingElements) > 0 {
			s += " Missing: " + strings.Join(act.MissingElements, ", ") + "."
		}
		if len(act.Warnings) > 0 {
			s += " Warnings: " + strings.Join(act.Warnings, "; ") + "."
		}
		return s
	default:
		return fmt.Sprintf("Extraction confidence too low (%d%%) to import this strategy.", conf)
	}
}

// GateReason 方法论置信度未达门槛时的说明。
func GateReason(m types.Methodology, confidence, min float64) string {
	return fmt.Sprintf("Methodology could not be identified reliably (%s at %.0f%%, need %.0f%%). "+
		"Try a video or transcript that explains the strategy more explicitly.", m, confidence, min)
}
