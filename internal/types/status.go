package types

import "strings"

// ImportStatus 是一次管道运行的终态分类，只用于决定调用方是否接受结果。
type ImportStatus string

const (
	StatusSuccess ImportStatus = "success"
	StatusWarning ImportStatus = "warning"
	StatusBlocked ImportStatus = "blocked"
	StatusFailed  ImportStatus = "failed"
)

// ParseImportStatus 兼容统一抽取路径中的 "review" 别名。
func ParseImportStatus(raw string) (ImportStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success":
		return StatusSuccess, true
	case "warning", "review":
		return StatusWarning, true
	case "blocked":
		return StatusBlocked, true
	case "failed":
		return StatusFailed, true
	default:
		return "", false
	}
}
