package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var vocabularyYAML []byte

// MethodologyHint 描述一个方法论标签及其词汇触发器。
type MethodologyHint struct {
	ID       string   `yaml:"id"`
	Summary  string   `yaml:"summary"`
	Triggers []string `yaml:"triggers"`
}

// Vocabulary 是提示词使用的受控词表。
type Vocabulary struct {
	Methodologies      []MethodologyHint `yaml:"methodologies"`
	SmartMoneyConcepts []string          `yaml:"smart_money_concepts"`
	Indicators         []string          `yaml:"indicators"`
}

var (
	vocabOnce sync.Once
	vocab     Vocabulary
	vocabErr  error
)

// LoadVocabulary 解析内嵌词表；结果被缓存。
func LoadVocabulary() (Vocabulary, error) {
	vocabOnce.Do(func() {
		dec := yaml.NewDecoder(bytes.NewReader(vocabularyYAML))
		dec.KnownFields(true)
		if err := dec.Decode(&vocab); err != nil {
			vocabErr = fmt.Errorf("parse prompt vocabulary failed: %w", err)
		}
	})
	return vocab, vocabErr
}

func mustVocabulary() Vocabulary {
	v, err := LoadVocabulary()
	if err != nil {
		panic(err)
	}
	return v
}
