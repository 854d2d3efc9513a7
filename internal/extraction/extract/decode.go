package extract

import (
	_ "embed"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"stratex/internal/pkg/convert"
	"stratex/internal/pkg/jsonutil"
	"stratex/internal/types"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

//go:embed strategy.schema.json
var strategySchemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// ErrNotObject 模型输出的 strategy 不是 JSON 对象。
var ErrNotObject = errors.New("strategy must be a JSON object")

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("strategy.schema.json", strings.NewReader(strategySchemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile("strategy.schema.json")
	})
	return schema, schemaErr
}

var stringListFields = []string{"conceptsUsed", "indicatorsUsed", "patternsUsed", "suitablePairs"}

// DecodeResponse 从原始补全文本中取出 JSON 对象并解码为策略。
func DecodeResponse(raw string) (types.ExtractedStrategy, error) {
	obj, err := jsonutil.ExtractObject(raw)
	if err != nil {
		return types.ExtractedStrategy{}, err
	}
	return DecodeStrategy(gjson.Parse(obj))
}

// DecodeStrategy 把模型输出的 strategy 节点宽松地解码为 ExtractedStrategy。
// 风险回报比原样保存在 RawRiskReward 中，留给归一化处理。
func DecodeStrategy(node gjson.Result) (types.ExtractedStrategy, error) {
	doc, ok := node.Value().(map[string]any)
	if !ok {
		return types.ExtractedStrategy{}, ErrNotObject
	}
	var rawRR any
	if rm, ok := doc["riskManagement"].(map[string]any); ok {
		rawRR = rm["riskRewardRatio"]
		delete(rm, "riskRewardRatio")
		coerceStruct(rm, "stopLoss", "placement")
		coerceStruct(rm, "positionSizing", "method")
	}
	for _, key := range stringListFields {
		if v, ok := doc[key]; ok {
			doc[key] = stringList(v)
		}
	}
	if meta, ok := doc["metadata"].(map[string]any); ok {
		for _, key := range []string{"timeframes", "pairs"} {
			if v, ok := meta[key]; ok {
				meta[key] = stringList(v)
			}
		}
	}
	if v, ok := convert.AsFloat(doc["extractionConfidence"]); ok {
		doc["extractionConfidence"] = map[string]any{"overall": v}
	}
	if ec, ok := doc["extractionConfidence"].(map[string]any); ok {
		fillClarity(ec)
	}

	s, err := compiledSchema()
	if err != nil {
		return types.ExtractedStrategy{}, fmt.Errorf("compile strategy schema: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return types.ExtractedStrategy{}, fmt.Errorf("strategy schema: %w", err)
	}

	var out types.ExtractedStrategy
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       lenientFloatHook,
		Result:           &out,
	})
	if err != nil {
		return types.ExtractedStrategy{}, err
	}
	if err := dec.Decode(doc); err != nil {
		return types.ExtractedStrategy{}, fmt.Errorf("decode strategy: %w", err)
	}
	out.RiskManagement.RawRiskReward = rawRR
	return out, nil
}

var clarityKeys = []string{"entryClarity", "exitClarity", "riskClarity"}

// fillClarity 用 overall 补齐缺失的清晰度分项，避免缺省 0 拉低校验得分。
func fillClarity(ec map[string]any) {
	overall, ok := convert.AsFloat(ec["overall"])
	if !ok {
		return
	}
	for _, key := range clarityKeys {
		if _, ok := convert.AsFloat(ec[key]); !ok {
			ec[key] = overall
		}
	}
}

var (
	floatType    = reflect.TypeOf(float64(0))
	floatPtrType = reflect.TypeOf((*float64)(nil))
)

// lenientFloatHook 把 "2.5"、"1%" 之类的字符串转成数值；无法解析时
// 指针字段留空，普通字段置 0。
func lenientFloatHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != floatType && to != floatPtrType {
		return data, nil
	}
	if from.Kind() != reflect.String && from.Kind() != reflect.Bool {
		return data, nil
	}
	if f, ok := convert.AsFloat(data); ok {
		return f, nil
	}
	if to == floatPtrType {
		return nil, nil
	}
	return 0.0, nil
}

// stringList 接受字符串数组、对象数组（取 name）或单个字符串。
func stringList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []any{s}
		}
		return nil
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			switch it := item.(type) {
			case string:
				if s := strings.TrimSpace(it); s != "" {
					out = append(out, s)
				}
			case map[string]any:
				if name, ok := it["name"].(string); ok && strings.TrimSpace(name) != "" {
					out = append(out, strings.TrimSpace(name))
				}
			case float64:
				out = append(out, fmt.Sprint(it))
			}
		}
		return out
	default:
		return nil
	}
}

// coerceStruct 把字符串形式的子对象展开成 {field: value}。
func coerceStruct(parent map[string]any, key, field string) {
	if s, ok := parent[key].(string); ok {
		if strings.TrimSpace(s) == "" {
			delete(parent, key)
			return
		}
		parent[key] = map[string]any{field: strings.TrimSpace(s)}
	}
}
