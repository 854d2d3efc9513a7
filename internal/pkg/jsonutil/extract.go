package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

const codeFence = "```"

var (
	// ErrNoObject 文本中找不到完整的 {...} 片段。
	ErrNoObject = errors.New("jsonutil: no JSON object found")
	// ErrInvalidJSON 找到了片段但不是合法 JSON。
	ErrInvalidJSON = errors.New("jsonutil: invalid JSON object")
)

// ExtractObject 从模型输出中取出最外层 JSON 对象：先剥离代码围栏，再按括号深度定位 {...}。
func ExtractObject(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoObject
	}
	if block, ok := stripFence(raw); ok {
		raw = block
	}
	obj, _, ok := extractJSONObject(raw)
	if !ok {
		return "", ErrNoObject
	}
	if !gjson.Valid(obj) {
		return "", ErrInvalidJSON
	}
	return obj, nil
}

func stripFence(raw string) (string, bool) {
	start := strings.Index(raw, codeFence)
	if start == -1 {
		return "", false
	}
	rest := raw[start+len(codeFence):]
	end := strings.Index(rest, codeFence)
	if end == -1 {
		return "", false
	}
	block := strings.TrimLeft(rest[:end], "\r\n")
	if idx := strings.Index(block, "\n"); idx != -1 {
		first := strings.TrimSpace(block[:idx])
		if first != "" && !strings.ContainsAny(first, "[{") {
			block = block[idx+1:]
		}
	}
	block = strings.TrimSpace(block)
	if block == "" {
		return "", false
	}
	return block, true
}

func extractJSONObject(raw string) (string, int, bool) {
	start := strings.Index(raw, "{")
	if start == -1 {
		return "", -1, false
	}
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(raw[start : i+1]), start, true
			}
		}
	}
	return "", -1, false
}

// Indent 缩进 JSON 文本并保留键顺序，非法输入原样返回。
func Indent(raw string) string {
	raw = strings.TrimSpace(raw)
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}
