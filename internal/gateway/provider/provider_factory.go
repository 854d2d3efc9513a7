package provider

import (
	"fmt"
	"strings"
	"time"
)

type ModelCfg struct {
	ID, APIURL, APIKey, Model string
	Temperature               float64
	Headers                   map[string]string
}

// BuildFromConfig 根据配置构造默认的补全服务适配器。
func BuildFromConfig(m ModelCfg, timeout time.Duration) (*OpenAIModelProvider, error) {
	if strings.TrimSpace(m.APIKey) == "" {
		return nil, fmt.Errorf("completion provider requires an api key")
	}
	if strings.TrimSpace(m.Model) == "" {
		return nil, fmt.Errorf("completion provider requires a model")
	}
	id := strings.TrimSpace(m.ID)
	if id == "" {
		id = "openai"
	}
	client := &OpenAIChatClient{
		BaseURL:      m.APIURL,
		APIKey:       m.APIKey,
		Model:        m.Model,
		Temperature:  m.Temperature,
		ExtraHeaders: m.Headers,
	}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return NewOpenAIModelProvider(id, client), nil
}
