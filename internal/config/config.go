package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix 是环境变量覆盖的前缀，例如 STRATEX_APP_HTTP_ADDR 覆盖 app.http_addr。
const EnvPrefix = "STRATEX"

// envOverridable 列出允许用环境变量覆盖的键，部署时常用。
var envOverridable = []string{
	"app.env",
	"app.log_level",
	"app.http_addr",
	"ai.api_url",
	"ai.model",
	"ai.grounded_model",
	"captions.enabled",
	"captions.api_url",
	"captions.api_key",
	"runlog.enabled",
	"runlog.path",
	"notify.enabled",
	"notify.telegram_bot_token",
	"notify.telegram_chat_id",
}

// Load 读取 YAML 配置（支持 include），加载 .env，应用环境变量覆盖，
// 补齐默认值并校验。缺少补全服务 API key 属于启动期致命错误。
func Load(path string) (*Config, error) {
	files, err := includeOrder(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range files {
		if err := mergeFile(v, file); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
	}
	// .env 需先于环境变量覆盖加载
	if err := loadEnvFile(v.GetString("app.env_file"), v.IsSet("app.env_file")); err != nil {
		return nil, err
	}
	bindEnv(v)

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.AI.resolveAPIKey()
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindEnv(v *viper.Viper) {
	for _, key := range envOverridable {
		env := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, env)
	}
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	keys := make(keySet)
	flattenKeys("", v.AllSettings(), keys)
	cfg.applyDefaults(keys)
	return &cfg, nil
}

func decoderOptions(dc *mapstructure.DecoderConfig) {
	dc.TagName = "toml"
	dc.WeaklyTypedInput = true
}

// loadEnvFile 读取 .env；未显式配置时尝试默认文件，文件不存在不算错误，
// 已存在的环境变量不会被覆盖。
func loadEnvFile(path string, explicit bool) error {
	path = strings.TrimSpace(path)
	if path == "" {
		if explicit {
			return nil
		}
		path = defaultAppEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s failed: %w", path, err)
	}
	return nil
}

func (a *AIConfig) resolveAPIKey() {
	if strings.TrimSpace(a.APIKey) != "" {
		return
	}
	if env := strings.TrimSpace(a.APIKeyEnv); env != "" {
		a.APIKey = strings.TrimSpace(os.Getenv(env))
	}
}

func readFile(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return v, nil
}

func mergeFile(v *viper.Viper, path string) error {
	f, err := readFile(path)
	if err != nil {
		return err
	}
	settings := f.AllSettings()
	delete(settings, "include")
	return v.MergeConfigMap(settings)
}

// includeOrder 深度优先展开 include，被包含文件先于包含者合并，
// 同一文件只合并一次，出现环时报错。
func includeOrder(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	var (
		ordered []string
		done    = map[string]bool{}
		active  = map[string]bool{}
		walk    func(p string) error
	)
	walk = func(p string) error {
		p = filepath.Clean(p)
		if active[p] {
			return fmt.Errorf("include cycle detected: %s", p)
		}
		if done[p] {
			return nil
		}
		active[p] = true
		f, err := readFile(p)
		if err != nil {
			return fmt.Errorf("parsing include failed (%s): %w", p, err)
		}
		// 单个字符串或字符串数组均可
		for _, inc := range f.GetStringSlice("include") {
			inc = strings.TrimSpace(inc)
			if inc == "" {
				continue
			}
			if !filepath.IsAbs(inc) {
				inc = filepath.Join(filepath.Dir(p), inc)
			}
			if err := walk(inc); err != nil {
				return err
			}
		}
		delete(active, p)
		done[p] = true
		ordered = append(ordered, p)
		return nil
	}
	if err := walk(abs); err != nil {
		return nil, err
	}
	return ordered, nil
}

// flattenKeys 把 viper 的嵌套设置展开成小写点分路径。
func flattenKeys(prefix string, node any, dest keySet) {
	m, ok := node.(map[string]any)
	if !ok {
		dest.mark(prefix)
		return
	}
	for k, v := range m {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		flattenKeys(key, v, dest)
	}
}
