package logger

import (
	"io"
	"log"
	"strconv"
	"strings"
	"sync"

	"stratex/internal/pkg/jsonutil"
)

var (
	llmMu          sync.Mutex
	llmLog         *log.Logger
	llmDumpPayload bool
)

// SetLLMWriter 设置 LLM 请求/响应转储目标，nil 关闭转储。
func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

// EnableLLMPayloadDump 控制是否转储完整 prompt；关闭时只记录长度。
func EnableLLMPayloadDump(enabled bool) {
	llmMu.Lock()
	llmDumpPayload = enabled
	llmMu.Unlock()
}

type llmSection struct {
	Title string
	Body  string
}

func logLLM(kind, provider, purpose string, sections []llmSection) {
	llmMu.Lock()
	logger := llmLog
	llmMu.Unlock()
	if logger == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM]")
	for _, tag := range []string{kind, provider, purpose} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	logger.Print(b.String())
}

func LogLLMRequest(kind, provider, purpose, systemPrompt, userPrompt string) {
	llmMu.Lock()
	full := llmDumpPayload
	llmMu.Unlock()
	if !full {
		systemPrompt = summarizeLen(systemPrompt)
		userPrompt = summarizeLen(userPrompt)
	}
	logLLM(kind+"-request", provider, purpose, []llmSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	})
}

func LogLLMResponse(kind, provider, purpose, raw string) {
	body := raw
	if obj, err := jsonutil.ExtractObject(raw); err == nil {
		body = jsonutil.Indent(obj)
	}
	logLLM(kind+"-response", provider, purpose, []llmSection{{Title: "RAW", Body: body}})
}

func summarizeLen(s string) string {
	if s == "" {
		return ""
	}
	return "(" + strconv.Itoa(len(s)) + " chars, payload dump disabled)"
}
