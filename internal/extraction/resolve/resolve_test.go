package resolve

import (
	"testing"

	"stratex/internal/config"
	"stratex/internal/types"

	"github.com/stretchr/testify/assert"
)

func actionable(score int) types.ActionabilityResult {
	return types.ActionabilityResult{IsActionable: true, HasEntry: true, HasExit: true, HasRiskManagement: true, Score: score}
}

func TestFinalConfidence(t *testing.T) {
	tun := config.DefaultTuning()

	assert.Equal(t, 80, FinalConfidence(Input{MethodologyConfidence: 100, Actionability: actionable(100)}, tun))
	// 75*0.4 + 80*0.4 = 62, +15
	assert.Equal(t, 77, FinalConfidence(Input{MethodologyConfidence: 75, Actionability: actionable(80), WordCount: 1200}, tun))
	// +10 for medium, -10 auto captions
	assert.Equal(t, 62, FinalConfidence(Input{MethodologyConfidence: 75, Actionability: actionable(80), WordCount: 600, IsAutoGenerated: true}, tun))
	// 80*0.25 + 80*0.25 + 90*0.3 = 67
	assert.Equal(t, 67, FinalConfidence(Input{
		MethodologyConfidence: 80, Actionability: actionable(80),
		ExtractionConfidence: &types.ExtractionConfidence{Overall: 90},
	}, tun))
	assert.Equal(t, 0, FinalConfidence(Input{IsAutoGenerated: true}, tun))
	assert.Equal(t, 95, FinalConfidence(Input{MethodologyConfidence: 100, Actionability: actionable(100), WordCount: 5000}, tun))
}

// inputFor 构造一个最终置信度恰为 target 的可执行输入（target 需为偶数，且不超过 80）。
func inputFor(target int) Input {
	v := float64(target) / 0.8
	return Input{MethodologyConfidence: v, Actionability: actionable(int(v))}
}

func TestResolve_Boundaries(t *testing.T) {
	tun := config.DefaultTuning()

	res := Resolve(inputFor(80), tun)
	assert.Equal(t, 80, res.FinalConfidence)
	assert.Equal(t, types.StatusSuccess, res.Status)
	assert.Equal(t, "high_confidence", res.Rule)

	in := Input{MethodologyConfidence: 77.5, Actionability: actionable(80)}
	res = Resolve(in, tun)
	assert.Equal(t, 63, res.FinalConfidence)

	// 79 = 0.4*m + 0.4*a with m=97.5, a=100
	res = Resolve(Input{MethodologyConfidence: 97.5, Actionability: actionable(100)}, tun)
	assert.Equal(t, 79, res.FinalConfidence)
	assert.Equal(t, types.StatusWarning, res.Status)
	assert.Equal(t, "review_confidence", res.Rule)

	res = Resolve(inputFor(60), tun)
	assert.Equal(t, 60, res.FinalConfidence)
	assert.Equal(t, types.StatusWarning, res.Status)

	// 59 = 0.4*47.5 + 0.4*100
	res = Resolve(Input{MethodologyConfidence: 47.5, Actionability: actionable(100)}, tun)
	assert.Equal(t, 59, res.FinalConfidence)
	assert.Equal(t, types.StatusBlocked, res.Status)
	assert.Equal(t, "low_confidence", res.Rule)
}

func TestResolve_NoRulesFailsRegardlessOfConfidence(t *testing.T) {
	in := Input{
		MethodologyConfidence: 100,
		Actionability:         types.ActionabilityResult{Score: 100},
		WordCount:             5000,
	}
	res := Resolve(in, config.DefaultTuning())
	assert.Equal(t, types.StatusFailed, res.Status)
	assert.Equal(t, "no_entry_no_exit", res.Rule)
}

func TestResolve_NotActionableBlocks(t *testing.T) {
	act := types.ActionabilityResult{HasEntry: true, Score: 60, MissingElements: []string{"Exit rules", "Risk management"}}
	res := Resolve(Input{MethodologyConfidence: 100, Actionability: act, WordCount: 2000}, config.DefaultTuning())
	assert.Equal(t, types.StatusBlocked, res.Status)
	assert.Equal(t, "not_actionable", res.Rule)
	assert.Contains(t, res.Reason, "Exit rules, Risk management")
}

func TestFinalConfidence_MonotonicInMethodology(t *testing.T) {
	tun := config.DefaultTuning()
	for _, ec := range []*types.ExtractionConfidence{nil, {Overall: 50}} {
		prev := -1
		for m := 0.0; m <= 100; m += 5 {
			c := FinalConfidence(Input{MethodologyConfidence: m, Actionability: actionable(70), WordCount: 700, ExtractionConfidence: ec}, tun)
			assert.GreaterOrEqual(t, c, prev)
			prev = c
		}
	}
}

func TestRules_LastAlwaysMatches(t *testing.T) {
	last := Rules[len(Rules)-1]
	assert.True(t, last.Match(Input{}, 0, config.DefaultTuning()))
}

func TestGateReason(t *testing.T) {
	r := GateReason(types.MethodologyHybrid, 59, 60)
	assert.Contains(t, r, "59%")
	assert.Contains(t, r, "60%")
}
