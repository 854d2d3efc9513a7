package extracthttp

import (
	"fmt"
	"net/http"
	"strings"

	"stratex/internal/logger"
	"stratex/internal/types"

	"github.com/gin-gonic/gin"
)

const (
	allowHeaders = "authorization, x-client-info, apikey, content-type"
	allowMethods = "POST, OPTIONS"
)

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Allow-Methods", allowMethods)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// catchAll 是最后一道防线：把 panic 转换为失败响应，
// 并按错误文本中的限流/额度关键字选择状态码。
func catchAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			msg := fmt.Sprint(rec)
			if err, ok := rec.(error); ok {
				msg = err.Error()
			}
			logger.Errorf("[http] unhandled panic %s %s: %s", c.Request.Method, c.Request.URL.Path, msg)
			c.AbortWithStatusJSON(statusFromMessage(msg), failure(msg, nil))
		}()
		c.Next()
	}
}

// statusFromMessage 仅在没有结构化错误分类时使用。
func statusFromMessage(msg string) int {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "rate limit"), strings.Contains(lower, "429"):
		return http.StatusTooManyRequests
	case strings.Contains(lower, "402"), strings.Contains(lower, "payment"), strings.Contains(lower, "credits"):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func failure(reason string, debug *types.DebugInfo) gin.H {
	return gin.H{
		"status":     types.StatusFailed,
		"reason":     reason,
		"strategy":   nil,
		"validation": nil,
		"debug":      debug,
	}
}
