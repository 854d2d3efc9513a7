package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"stratex/internal/types"
)

// ChatPayload 一次补全请求。Model 为空时使用客户端默认模型。
type ChatPayload struct {
	System      string
	User        string
	Model       string
	Temperature float64
	MaxTokens   int
	// Purpose 仅用于日志，标记调用所属的管道阶段。
	Purpose string
}

// Completer 是补全服务的能力接口：complete(prompt) -> text。
type Completer interface {
	ID() string
	Complete(ctx context.Context, payload ChatPayload) (string, error)
}

// UpstreamError 表示补全服务返回了非 2xx。
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("status=%d: %s", e.StatusCode, e.Message)
}

// IsRateLimited 报告错误链中是否包含 429。
func IsRateLimited(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == http.StatusTooManyRequests
}

// IsBillingExhausted 报告错误链中是否包含 402。
func IsBillingExhausted(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == http.StatusPaymentRequired
}

// Classify 将补全调用错误映射到管道错误分类。
func Classify(err error) types.ErrorKind {
	switch {
	case IsRateLimited(err):
		return types.KindUpstreamRateLimited
	case IsBillingExhausted(err):
		return types.KindUpstreamBillingExhausted
	default:
		return types.KindUpstreamUnavailable
	}
}
