package types

// StepStatus 单个调试步骤的结果。
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepWarning StepStatus = "warning"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

type DebugStep struct {
	Step    string     `json:"step"`
	Status  StepStatus `json:"status"`
	Details string     `json:"details"`
}

// DebugInfo 是整次运行的追加式步骤日志，不参与控制流。
type DebugInfo struct {
	Steps []DebugStep `json:"steps"`
}

func (d *DebugInfo) Add(step string, status StepStatus, details string) {
	if d == nil {
		return
	}
	d.Steps = append(d.Steps, DebugStep{Step: step, Status: status, Details: details})
}

// Last 返回指定步骤最后一次记录，找不到时 ok=false。
func (d *DebugInfo) Last(step string) (DebugStep, bool) {
	if d == nil {
		return DebugStep{}, false
	}
	for i := len(d.Steps) - 1; i >= 0; i-- {
		if d.Steps[i].Step == step {
			return d.Steps[i], true
		}
	}
	return DebugStep{}, false
}

// StepNames 按顺序返回已记录的步骤名。
func (d *DebugInfo) StepNames() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.Steps))
	for _, s := range d.Steps {
		out = append(out, s.Step)
	}
	return out
}
