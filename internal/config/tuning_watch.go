package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"stratex/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LoadTuning 读取独立的调参文件（顶层即 Tuning 字段），未出现的字段取 base 的值。
func LoadTuning(path string, base Tuning) (Tuning, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Tuning{}, fmt.Errorf("read tuning file failed: %w", err)
	}
	return decodeTuning(v, base)
}

func decodeTuning(v *viper.Viper, base Tuning) (Tuning, error) {
	out := base
	if err := v.Unmarshal(&out, decoderOptions); err != nil {
		return Tuning{}, fmt.Errorf("parsing tuning file failed: %w", err)
	}
	if err := out.Validate(); err != nil {
		return Tuning{}, err
	}
	return out, nil
}

// TuningWatcher 监听调参文件，Run 在 ctx 取消前持续重载；重载失败保留旧值并记录错误。
type TuningWatcher struct {
	path     string
	base     Tuning
	v        *viper.Viper
	onChange func(Tuning)
}

// WatchTuning 加载调参文件并返回监听器，调用方负责在自己的生命周期内运行 Run。
// path 为空时返回 base 与 nil 监听器。
func WatchTuning(path string, base Tuning, onChange func(Tuning)) (Tuning, *TuningWatcher, error) {
	if strings.TrimSpace(path) == "" {
		return base, nil, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Tuning{}, nil, fmt.Errorf("read tuning file failed: %w", err)
	}
	initial, err := decodeTuning(v, base)
	if err != nil {
		return Tuning{}, nil, err
	}
	return initial, &TuningWatcher{path: filepath.Clean(path), base: base, v: v, onChange: onChange}, nil
}

// Run 监听文件所在目录（兼容编辑器的改名式保存），直到 ctx 取消。
func (w *TuningWatcher) Run(ctx context.Context) error {
	if w == nil {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create tuning watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != w.path {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
				continue
			}
			w.reload(evt.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("tuning watcher: %v", err)
		}
	}
}

func (w *TuningWatcher) reload(name string) {
	if err := w.v.ReadInConfig(); err != nil {
		logger.Errorf("tuning reload failed (%s): %v", name, err)
		return
	}
	next, err := decodeTuning(w.v, w.base)
	if err != nil {
		logger.Errorf("tuning reload failed (%s): %v", name, err)
		return
	}
	logger.Infof("tuning reloaded from %s", name)
	if w.onChange != nil {
		w.onChange(next)
	}
}
