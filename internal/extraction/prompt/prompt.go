// Package prompt 生成管道各阶段发送给补全服务的指令文本。
// 所有函数都是 (transcript, 已知信号) -> prompt 的纯函数。
package prompt

import (
	"fmt"
	"strings"

	"stratex/internal/pkg/text"
	"stratex/internal/types"
)

// CannotAccessSentinel 是要求模型在无法访问视频时输出的标记。
const CannotAccessSentinel = "CANNOT_ACCESS_VIDEO"

const defaultMaxTranscriptChars = 60000

// Prompt 是一次补全调用的 system/user 文本。
type Prompt struct {
	System string
	User   string
}

// Builder 持有截断长度等静态参数。
type Builder struct {
	MaxTranscriptChars int
}

func NewBuilder(maxTranscriptChars int) Builder {
	if maxTranscriptChars <= 0 {
		maxTranscriptChars = defaultMaxTranscriptChars
	}
	return Builder{MaxTranscriptChars: maxTranscriptChars}
}

func (b Builder) clip(transcript string) string {
	max := b.MaxTranscriptChars
	if max <= 0 {
		max = defaultMaxTranscriptChars
	}
	return text.Truncate(strings.TrimSpace(transcript), max)
}

const analystSystem = "You are a meticulous trading-education analyst. You only report what the source material actually says. " +
	"You never invent rules, numbers or quotes. You always answer with a single JSON object and nothing else."

// Classification 方法论分类提示词。
func (b Builder) Classification(transcript string) Prompt {
	v := mustVocabulary()
	var sb strings.Builder
	sb.WriteString("Classify the trading methodology taught in the transcript below into exactly ONE label.\n\n")
	sb.WriteString("## Labels and lexical triggers\n")
	for _, m := range v.Methodologies {
		fmt.Fprintf(&sb, "- %s: %s\n  triggers: %s\n", m.ID, m.Summary, strings.Join(m.Triggers, ", "))
	}
	sb.WriteString("\n## Rules\n")
	sb.WriteString("- Do NOT default to indicator_based. Choose it only when indicators are the primary decision tool and are named explicitly.\n")
	sb.WriteString("- Terms such as order block, FVG, BOS or ChoCH mean smc unless ICT session timing (killzones, optimal trade entry) dominates, then ict.\n")
	sb.WriteString("- Use hybrid only when two methodologies carry comparable weight.\n")
	sb.WriteString("- evidence must be verbatim quotes copied from the transcript (max 5).\n")
	sb.WriteString("- confidence is an integer 0-100 reflecting how clearly the transcript supports the label.\n\n")
	sb.WriteString("## Response format\n")
	sb.WriteString(`{"methodology": "<label>", "confidence": <0-100>, "evidence": ["<quote>", "..."], "reasoning": "<one or two sentences>"}`)
	sb.WriteString("\n\n## Transcript\n")
	sb.WriteString(b.clip(transcript))
	return Prompt{System: analystSystem, User: sb.String()}
}

// Extraction 结构化策略抽取提示词，按方法论调整概念/指标字段的要求。
func (b Builder) Extraction(transcript string, methodology types.Methodology, confidence float64) Prompt {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The transcript below teaches a %s trading strategy (classifier confidence %.0f/100).\n", methodology, confidence)
	sb.WriteString("Extract the strategy as structured rules.\n\n")
	sb.WriteString(b.methodologyGuidance(methodology))
	sb.WriteString(extractionRules)
	sb.WriteString("\n## Response format\n")
	sb.WriteString(strategyShape)
	sb.WriteString("\n\n## Transcript\n")
	sb.WriteString(b.clip(transcript))
	return Prompt{System: analystSystem, User: sb.String()}
}

// Unified 单次调用完成：访问确认 + 分类 + 抽取。
func (b Builder) Unified(videoURL string) Prompt {
	v := mustVocabulary()
	labels := make([]string, 0, len(v.Methodologies))
	for _, m := range v.Methodologies {
		labels = append(labels, m.ID)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Video: %s\n\n", strings.TrimSpace(videoURL))
	sb.WriteString("Step 1. Confirm you can access the spoken content of this exact video. ")
	fmt.Fprintf(&sb, "If you cannot, respond with exactly {\"error\": %q} and nothing else. Do not guess from the title.\n", CannotAccessSentinel)
	fmt.Fprintf(&sb, "Step 2. Classify the methodology as one of: %s. Do NOT default to indicator_based.\n", strings.Join(labels, ", "))
	sb.WriteString("Step 3. Extract the full strategy.\n\n")
	sb.WriteString(extractionRules)
	sb.WriteString("\n## Response format\n")
	sb.WriteString(`{"videoTitle": "<title>", "transcriptPreview": "<first ~500 characters of what is said>", "wordCount": <estimated spoken words>, `)
	sb.WriteString(`"methodology": {"methodology": "<label>", "confidence": <0-100>, "evidence": ["<quote>"], "reasoning": "<text>"}, `)
	sb.WriteString(`"strategy": `)
	sb.WriteString(strategyShape)
	sb.WriteString(`, "status": "success|review|blocked"}`)
	return Prompt{System: analystSystem, User: sb.String()}
}

// DirectTranscription 要求模型直接转写视频语音。
func (b Builder) DirectTranscription(videoURL string) Prompt {
	user := fmt.Sprintf("Transcribe the spoken audio of this YouTube video verbatim: %s\n\n"+
		"Return only the transcript text, no commentary. If you cannot access the audio of this exact video, "+
		"respond with exactly %s and nothing else.", strings.TrimSpace(videoURL), CannotAccessSentinel)
	return Prompt{System: "You are a transcription service.", User: user}
}

// GroundedTranscription 换一种表述并配合更强的模型，处理能力不足而非不愿意的情况。
func (b Builder) GroundedTranscription(videoURL string) Prompt {
	user := fmt.Sprintf("Use your video understanding tools to open %s and write down everything the presenter says, "+
		"in order, as plain text paragraphs. Include every trading rule, number and condition mentioned. "+
		"Do not summarise. If the video cannot be opened, answer with exactly %s.", strings.TrimSpace(videoURL), CannotAccessSentinel)
	return Prompt{System: "You are a grounded video transcription assistant with web and video access.", User: user}
}

func (b Builder) methodologyGuidance(m types.Methodology) string {
	v := mustVocabulary()
	switch {
	case m.IsSmartMoney():
		return "## Methodology guidance\n" +
			"- conceptsUsed must use this controlled vocabulary: " + strings.Join(v.SmartMoneyConcepts, ", ") + ".\n" +
			"- Leave indicatorsUsed EMPTY unless the presenter explicitly names an indicator.\n\n"
	case m == types.MethodologyIndicatorBased:
		return "## Methodology guidance\n" +
			"- indicatorsUsed must list every indicator with its settings when stated (known names: " + strings.Join(v.Indicators, ", ") + ").\n" +
			"- Leave conceptsUsed EMPTY unless the presenter explicitly uses SMC/ICT terminology.\n\n"
	default:
		return "## Methodology guidance\n" +
			"- Fill conceptsUsed, indicatorsUsed and patternsUsed only with items the presenter actually names.\n\n"
	}
}

const extractionRules = `## Extraction rules
- Every entry rule condition must be testable on a chart (observable, not "when it feels right").
- Set entryRules[].isMandatory only when the presenter says the condition is required or optional; otherwise omit it.
- Attach sourceQuote (verbatim excerpt from the transcript) to every entry and exit rule whenever possible.
- Never fabricate numbers. If a stop loss, target or risk-reward is not stated, omit it.
- entryRules[].type is one of: smc, ict, indicator, price_action, liquidity, structure, time, confluence.
- exitRules[].type is one of: take_profit, stop_loss, trailing_stop, time_based, fixed_target, risk_reward, structure, indicator, trailing.
- exitRules[].unit is one of: percent, atr, rr, pips (omit when not applicable).
- riskManagement.riskRewardRatio may be a number or the ratio as stated (e.g. "1:2", "3R").
- extractionConfidence reports how clearly the source states entries, exits and risk (0-100 each).
`

const strategyShape = `{"name": "<short name>", "description": "<2-3 sentences>", "methodology": "<label>", ` +
	`"conceptsUsed": [], "indicatorsUsed": [], "patternsUsed": [], ` +
	`"entryRules": [{"type": "<type>", "concept": "<concept>", "condition": "<testable condition>", "parameters": {}, "sourceQuote": "<verbatim>"}], ` +
	`"exitRules": [{"type": "<type>", "value": <number>, "unit": "<unit>", "description": "<text>", "sourceQuote": "<verbatim>", "parameters": {}}], ` +
	`"riskManagement": {"stopLoss": {"type": "<type>", "value": <number>, "placement": "<text>", "sourceQuote": "<verbatim>"}, ` +
	`"positionSizing": {"method": "<method>", "value": <number>, "sourceQuote": "<verbatim>"}, "riskRewardRatio": "<e.g. 1:2>"}, ` +
	`"timeframeContext": {"primary": "<tf>", "higherTF": "<tf>", "lowerTF": "<tf>"}, "suitablePairs": [], ` +
	`"difficulty": "beginner|intermediate|advanced", "riskLevel": "low|medium|high", "notes": "<text>", ` +
	`"extractionConfidence": {"overall": <0-100>, "entryClarity": <0-100>, "exitClarity": <0-100>, "riskClarity": <0-100>}}`
