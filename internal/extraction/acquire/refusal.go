package acquire

import (
	"strings"

	"stratex/internal/extraction/prompt"
	"stratex/internal/pkg/text"
)

// Verdict 是对模型返回文本的判定。
type Verdict int

const (
	Valid Verdict = iota
	ExplicitRefusal
	ImplicitRefusal
	TooShort
)

func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	case ExplicitRefusal:
		return "explicit_refusal"
	case ImplicitRefusal:
		return "implicit_refusal"
	case TooShort:
		return "too_short"
	default:
		return "unknown"
	}
}

// DefaultRefusalPhrases 模型不遵守标记时常见的拒答措辞，大小写敏感。
var DefaultRefusalPhrases = []string{
	"I cannot access",
	"I can't access",
	"I'm unable to access",
	"I am unable to access",
	"I don't have access",
	"I do not have access",
	"I cannot watch",
	"I can't watch",
	"I'm not able to watch",
	"I cannot view",
	"I'm unable to view",
	"unable to access the video",
	"cannot access the video",
	"I don't have the ability to",
	"I do not have the ability to",
	"As an AI",
	"as a text-based AI",
	"I'm sorry, but I can't",
	"I'm sorry, but I cannot",
}

// Detector 识别拒答与明显不是转录文本的输出。
type Detector struct {
	MinChars int
	MinWords int
	Phrases  []string
}

func NewDetector(minChars, minWords int) Detector {
	return Detector{MinChars: minChars, MinWords: minWords, Phrases: DefaultRefusalPhrases}
}

// Detect 依次检查标记、拒答措辞和长度。
func (d Detector) Detect(s string) Verdict {
	if strings.Contains(s, prompt.CannotAccessSentinel) {
		return ExplicitRefusal
	}
	for _, p := range d.Phrases {
		if p != "" && strings.Contains(s, p) {
			return ImplicitRefusal
		}
	}
	if d.short(s, text.WordCount(s)) {
		return TooShort
	}
	return Valid
}

func (d Detector) short(s string, words int) bool {
	return len(strings.TrimSpace(s)) < d.MinChars || words < d.MinWords
}
