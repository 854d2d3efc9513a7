package notifier

import (
	"context"
	"fmt"
	"strings"

	"stratex/internal/pipeline"
	"stratex/internal/types"
)

var statusIcons = map[types.ImportStatus]string{
	types.StatusSuccess: "✅",
	types.StatusWarning: "⚠️",
	types.StatusBlocked: "⛔",
	types.StatusFailed:  "❌",
}

// RunNotifier 是 pipeline.Observer，把指定终态的运行结果推送出去。
type RunNotifier struct {
	Sender   TextNotifier
	Statuses map[types.ImportStatus]bool
}

// NewRunNotifier 解析状态名，未知名称忽略。
func NewRunNotifier(sender TextNotifier, statuses []string) *RunNotifier {
	set := make(map[types.ImportStatus]bool, len(statuses))
	for _, s := range statuses {
		if st, ok := types.ParseImportStatus(s); ok {
			set[st] = true
		}
	}
	return &RunNotifier{Sender: sender, Statuses: set}
}

func (n *RunNotifier) Observe(ctx context.Context, rec pipeline.RunRecord) error {
	if n == nil || n.Sender == nil || !n.Statuses[rec.Response.Status] {
		return nil
	}
	return n.Sender.SendText(ctx, RenderRun(rec).Render())
}

// RenderRun 把一次运行整理成推送消息。
func RenderRun(rec pipeline.RunRecord) Message {
	resp := rec.Response
	msg := Message{
		Icon:      statusIcons[resp.Status],
		Title:     "策略提取 " + strings.ToUpper(string(resp.Status)),
		Timestamp: rec.StartedAt,
	}
	if s := resp.Strategy; s != nil && strings.TrimSpace(s.Name) != "" {
		msg.Title += " · " + s.Name
	}

	var overview []string
	if resp.Confidence != nil {
		overview = append(overview, fmt.Sprintf("置信度: %d", *resp.Confidence))
	}
	if m := resp.Methodology; m != nil {
		overview = append(overview, fmt.Sprintf("方法论: %s (%.0f)", m.Methodology, m.Confidence))
	}
	if resp.Source != "" {
		overview = append(overview, "来源: "+resp.Source)
	}
	if resp.VideoTitle != "" {
		overview = append(overview, "视频: "+resp.VideoTitle)
	}
	if resp.Reason != "" {
		overview = append(overview, "说明: "+resp.Reason)
	}
	msg.Add("概览", overview...)

	if s := resp.Strategy; s != nil {
		msg.Add("规则", fmt.Sprintf("入场 %d 条，出场 %d 条", len(s.EntryRules), len(s.ExitRules)))
	}
	if v := resp.Validation; v != nil {
		msg.Add("缺失要素", v.MissingElements...)
		msg.Add("警告", v.Warnings...)
	}

	footer := "run=" + resp.RunID
	if u := strings.TrimSpace(rec.Request.URL); u != "" {
		footer += " " + u
	}
	msg.Footer = footer
	return msg
}

var _ pipeline.Observer = (*RunNotifier)(nil)
