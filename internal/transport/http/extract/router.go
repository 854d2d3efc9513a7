// Package extracthttp 提供策略抽取的 HTTP 传输层。
package extracthttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"stratex/internal/pipeline"
	"stratex/internal/store/runlog"
	"stratex/internal/types"

	"github.com/gin-gonic/gin"
)

// Runner 由 pipeline.Pipeline 实现。
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Response, error)
}

// RunStore 由 runlog.Store 实现，可为空。
type RunStore interface {
	Get(ctx context.Context, runID string) (runlog.Record, error)
	Recent(ctx context.Context, limit int) ([]runlog.Record, error)
}

type Router struct {
	Runner Runner
	Runs   RunStore
}

func NewRouter(runner Runner, runs RunStore) *Router {
	return &Router{Runner: runner, Runs: runs}
}

func (r *Router) Register(router *gin.Engine) {
	router.POST("/", r.handleExtract)
	router.OPTIONS("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	if r.Runs != nil {
		router.GET("/runs", r.handleRecentRuns)
		router.GET("/runs/:id", r.handleRunByID)
	}
}

func (r *Router) handleExtract(c *gin.Context) {
	var req pipeline.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failure("invalid request body: "+err.Error(), nil))
		return
	}
	resp, err := r.Runner.Run(c.Request.Context(), req)
	c.JSON(statusFor(err), resp)
}

// statusFor 按错误分类决定状态码；业务性结果（blocked、failed）一律 200。
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if kind, ok := types.KindOf(err); ok {
		return kind.HTTPStatus()
	}
	return statusFromMessage(err.Error())
}

func (r *Router) handleRunByID(c *gin.Context) {
	rec, err := r.Runs.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, runlog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (r *Router) handleRecentRuns(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	recs, err := r.Runs.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": recs})
}
