package app

import (
	"context"
	"fmt"

	"stratex/internal/config"
	"stratex/internal/logger"
	"stratex/internal/pipeline"
	"stratex/internal/store/runlog"
	extracthttp "stratex/internal/transport/http/extract"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 服务。
type App struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	runs     *runlog.Store
	http     *extracthttp.Server
	tuning   *config.TuningWatcher
	Summary  *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildApp(context.Background(), cfg)
}

// Run 启动 HTTP 服务与调参文件监听，ctx 取消后二者一并退出。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	if a.http == nil {
		return fmt.Errorf("http server not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	if a.tuning != nil {
		group.Go(func() error {
			// 监听失败只影响热加载，不拖垮服务
			if err := a.tuning.Run(ctx); err != nil {
				logger.Warnf("tuning hot reload disabled: %v", err)
			}
			return nil
		})
	}
	err := group.Wait()
	if cerr := a.Close(); cerr != nil {
		logger.Warnf("close app resources: %v", cerr)
	}
	return err
}

// Close 释放运行日志等资源。
func (a *App) Close() error {
	if a == nil || a.runs == nil {
		return nil
	}
	return a.runs.Close()
}

// Pipeline 暴露底层管道（测试与回放用）。
func (a *App) Pipeline() *pipeline.Pipeline {
	if a == nil {
		return nil
	}
	return a.pipeline
}
