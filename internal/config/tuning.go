package config

// Tuning 汇总评分与判定所用的常量。数值沿用既有产品行为，未经重新标定，
// 因此全部可通过配置覆盖。
type Tuning struct {
	// 方法论分类
	MinMethodologyConfidence float64 `toml:"min_methodology_confidence"`

	// 归一化
	MandatoryEntryRules int `toml:"mandatory_entry_rules"`

	// 可执行性校验
	ClearConditionMinLength int     `toml:"clear_condition_min_length"`
	MinClearEntryRules      int     `toml:"min_clear_entry_rules"`
	MissingElementPenalty   float64 `toml:"missing_element_penalty"`
	WarningPenalty          float64 `toml:"warning_penalty"`
	ValidatorScoreWeight    float64 `toml:"validator_score_weight"`
	ValidatorClarityWeight  float64 `toml:"validator_clarity_weight"`
	MaxMissingForActionable int     `toml:"max_missing_for_actionable"`

	// 置信度聚合
	MethodologyWeight     float64 `toml:"methodology_weight"`
	ActionabilityWeight   float64 `toml:"actionability_weight"`
	ExtractionWeight      float64 `toml:"extraction_weight"`
	LongTranscriptWords   int     `toml:"long_transcript_words"`
	LongTranscriptBonus   float64 `toml:"long_transcript_bonus"`
	MediumTranscriptWords int     `toml:"medium_transcript_words"`
	MediumTranscriptBonus float64 `toml:"medium_transcript_bonus"`
	AutoCaptionPenalty    float64 `toml:"auto_caption_penalty"`
	SuccessThreshold      float64 `toml:"success_threshold"`
	ReviewThreshold       float64 `toml:"review_threshold"`

	// 转录文本合理性
	MinTranscriptChars int `toml:"min_transcript_chars"`
	MinTranscriptWords int `toml:"min_transcript_words"`
}

// DefaultTuning 返回内置常量。
func DefaultTuning() Tuning {
	return Tuning{
		MinMethodologyConfidence: 60,
		MandatoryEntryRules:      2,
		ClearConditionMinLength:  10,
		MinClearEntryRules:       2,
		MissingElementPenalty:    20,
		WarningPenalty:           5,
		ValidatorScoreWeight:     0.6,
		ValidatorClarityWeight:   0.4,
		MaxMissingForActionable:  1,
		MethodologyWeight:        0.4,
		ActionabilityWeight:      0.4,
		ExtractionWeight:         0.3,
		LongTranscriptWords:      1000,
		LongTranscriptBonus:      15,
		MediumTranscriptWords:    500,
		MediumTranscriptBonus:    10,
		AutoCaptionPenalty:       10,
		SuccessThreshold:         80,
		ReviewThreshold:          60,
		MinTranscriptChars:       100,
		MinTranscriptWords:       50,
	}
}

// applyDefaults 只填充零值字段，显式配置的值保持不变。
func (t *Tuning) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	def := DefaultTuning()
	applyFieldDefaults(keys,
		floatFieldDefault("tuning.min_methodology_confidence", &t.MinMethodologyConfidence, def.MinMethodologyConfidence),
		intFieldDefault("tuning.mandatory_entry_rules", &t.MandatoryEntryRules, def.MandatoryEntryRules),
		intFieldDefault("tuning.clear_condition_min_length", &t.ClearConditionMinLength, def.ClearConditionMinLength),
		intFieldDefault("tuning.min_clear_entry_rules", &t.MinClearEntryRules, def.MinClearEntryRules),
		floatFieldDefault("tuning.missing_element_penalty", &t.MissingElementPenalty, def.MissingElementPenalty),
		floatFieldDefault("tuning.warning_penalty", &t.WarningPenalty, def.WarningPenalty),
		floatFieldDefault("tuning.validator_score_weight", &t.ValidatorScoreWeight, def.ValidatorScoreWeight),
		floatFieldDefault("tuning.validator_clarity_weight", &t.ValidatorClarityWeight, def.ValidatorClarityWeight),
		intFieldDefault("tuning.max_missing_for_actionable", &t.MaxMissingForActionable, def.MaxMissingForActionable),
		floatFieldDefault("tuning.methodology_weight", &t.MethodologyWeight, def.MethodologyWeight),
		floatFieldDefault("tuning.actionability_weight", &t.ActionabilityWeight, def.ActionabilityWeight),
		floatFieldDefault("tuning.extraction_weight", &t.ExtractionWeight, def.ExtractionWeight),
		intFieldDefault("tuning.long_transcript_words", &t.LongTranscriptWords, def.LongTranscriptWords),
		floatFieldDefault("tuning.long_transcript_bonus", &t.LongTranscriptBonus, def.LongTranscriptBonus),
		intFieldDefault("tuning.medium_transcript_words", &t.MediumTranscriptWords, def.MediumTranscriptWords),
		floatFieldDefault("tuning.medium_transcript_bonus", &t.MediumTranscriptBonus, def.MediumTranscriptBonus),
		floatFieldDefault("tuning.auto_caption_penalty", &t.AutoCaptionPenalty, def.AutoCaptionPenalty),
		floatFieldDefault("tuning.success_threshold", &t.SuccessThreshold, def.SuccessThreshold),
		floatFieldDefault("tuning.review_threshold", &t.ReviewThreshold, def.ReviewThreshold),
		intFieldDefault("tuning.min_transcript_chars", &t.MinTranscriptChars, def.MinTranscriptChars),
		intFieldDefault("tuning.min_transcript_words", &t.MinTranscriptWords, def.MinTranscriptWords),
	)
}
