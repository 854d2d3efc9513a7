package normalize

import (
	"regexp"
	"strings"

	"stratex/internal/pkg/convert"

	"github.com/shopspring/decimal"
)

var (
	colonRatio = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[:/]\s*(\d+(?:\.\d+)?)`)
	toRatio    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s+to\s+(\d+(?:\.\d+)?)`)
	rMultiple  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*r\b`)
)

const ratioPlaces = 4

// ParseRiskRewardRatio 把 2、"1:2"、"2:1"、"1 to 4"、"3R" 等形态转换为
// 回报/风险倍数。无法解析或非正数时返回 nil，不返回 0。
func ParseRiskRewardRatio(v any) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return parseRatioString(t)
	case *float64:
		if t == nil {
			return nil
		}
		return positive(decimal.NewFromFloat(*t))
	}
	f, ok := convert.AsFloat(v)
	if !ok {
		return nil
	}
	return positive(decimal.NewFromFloat(f))
}

func parseRatioString(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if m := colonRatio.FindStringSubmatch(s); m != nil {
		return divide(m[1], m[2])
	}
	if m := toRatio.FindStringSubmatch(s); m != nil {
		return divide(m[1], m[2])
	}
	if m := rMultiple.FindStringSubmatch(s); m != nil {
		d, err := decimal.NewFromString(m[1])
		if err != nil {
			return nil
		}
		return positive(d)
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(s, "x"))
	if err != nil {
		return nil
	}
	return positive(d)
}

// divide 计算 "risk:reward" 的 reward/risk。
func divide(risk, reward string) *float64 {
	r, err := decimal.NewFromString(risk)
	if err != nil || r.IsZero() {
		return nil
	}
	w, err := decimal.NewFromString(reward)
	if err != nil {
		return nil
	}
	return positive(w.DivRound(r, ratioPlaces))
}

func positive(d decimal.Decimal) *float64 {
	if !d.IsPositive() {
		return nil
	}
	f := d.Round(ratioPlaces).InexactFloat64()
	return &f
}
