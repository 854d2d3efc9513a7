package notifier

import (
	"strings"
	"time"
)

const maxMessageLen = 3800

// Section 是推送中的一个段落，空行会被丢弃。
type Section struct {
	Title string
	Lines []string
}

// Message 统一格式的 Markdown 推送。
type Message struct {
	Icon      string
	Title     string
	Sections  []Section
	Footer    string
	Timestamp time.Time
}

// Add 追加段落，所有行都为空时忽略。
func (m *Message) Add(title string, lines ...string) {
	if len(cleanLines(lines)) == 0 {
		return
	}
	m.Sections = append(m.Sections, Section{Title: title, Lines: lines})
}

// Render 生成 Markdown 文本，超长时截断。
func (m Message) Render() string {
	var b strings.Builder
	if header := strings.TrimSpace(m.Icon + " " + m.Title); header != "" {
		b.WriteString(escape(header))
		b.WriteString("\n\n")
	}
	b.WriteString(renderSections(m.Sections))
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(escape(footer))
		b.WriteString("\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("时间：" + m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	body := strings.TrimSpace(b.String())
	if len([]rune(body)) > maxMessageLen {
		body = string([]rune(body)[:maxMessageLen]) + "..."
	}
	return body
}

func renderSections(secs []Section) string {
	var parts []string
	for _, sec := range secs {
		lines := cleanLines(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		var b strings.Builder
		if title := strings.TrimSpace(sec.Title); title != "" {
			b.WriteString(escape(title) + "\n")
		}
		for _, line := range lines {
			b.WriteString("- " + escape(line) + "\n")
		}
		parts = append(parts, b.String())
	}
	if len(parts) == 0 {
		return ""
	}
	return "```\n" + strings.Join(parts, "\n") + "```\n\n"
}

func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if text := strings.TrimSpace(line); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// escape 防止转录内容里的代码块标记破坏排版。
func escape(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}
