package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind 是管道错误分类。
type ErrorKind string

const (
	KindInput                    ErrorKind = "input_error"
	KindUpstreamRateLimited      ErrorKind = "upstream_rate_limited"
	KindUpstreamBillingExhausted ErrorKind = "upstream_billing_exhausted"
	KindUpstreamUnavailable      ErrorKind = "upstream_unavailable"
	KindLowConfidenceMethodology ErrorKind = "low_confidence_methodology"
	KindNotActionable            ErrorKind = "not_actionable"
	KindParseFailure             ErrorKind = "parse_failure"
)

// StageError 记录失败所在阶段及其分类。
type StageError struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s (%s): %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func NewStageError(kind ErrorKind, stage string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

// KindOf 返回错误链中第一个 StageError 的分类。
func KindOf(err error) (ErrorKind, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// HTTPStatus 将错误分类映射为 HTTP 状态码；业务性结果（blocked 等）返回 200。
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindInput:
		return http.StatusBadRequest
	case KindUpstreamRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamBillingExhausted:
		return http.StatusPaymentRequired
	case KindUpstreamUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
