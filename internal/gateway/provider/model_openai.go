package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stratex/internal/logger"
)

// OpenAIChatClient：兼容 OpenAI 风格的聊天补全接口（/v1/chat/completions）。
// 429/402 直接返回 UpstreamError，不做重试。
type OpenAIChatClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	Timeout      time.Duration
	ExtraHeaders map[string]string

	httpc *http.Client
}

func (c *OpenAIChatClient) endpoint() string {
	url := c.BaseURL
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimRight(url, "/")
	// 用户可能把完整的 /chat/completions 写进配置
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

func (c *OpenAIChatClient) client() *http.Client {
	if c.httpc != nil {
		return c.httpc
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	c.httpc = &http.Client{Timeout: timeout}
	return c.httpc
}

// CallWithMessages 发送 system/user 两段消息并返回首个 choice 的文本。
func (c *OpenAIChatClient) CallWithMessages(ctx context.Context, model string, temperature float64, systemPrompt, userPrompt string) (string, error) {
	url := c.endpoint()
	if strings.TrimSpace(model) == "" {
		model = c.Model
	}
	messages := []map[string]string{}
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": userPrompt})

	body := map[string]any{"model": model, "messages": messages, "temperature": temperature}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	logger.Debugf("[AI] 请求: POST %s, headers=%v, model=%s, bytes=%d", url, c.maskedHeaders(), model, len(b))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	for k, v := range c.ExtraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp)}
	}
	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(r.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return r.Choices[0].Message.Content, nil
}

func (c *OpenAIChatClient) maskedHeaders() map[string]string {
	hlog := map[string]string{"Content-Type": "application/json"}
	if c.APIKey != "" {
		hlog["Authorization"] = "Bearer " + mask(c.APIKey)
	}
	for k, v := range c.ExtraHeaders {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "key") || strings.Contains(lk, "token") || strings.Contains(lk, "auth") {
			v = mask(v)
		}
		hlog[k] = v
	}
	return hlog
}

func mask(v string) string {
	if len(v) > 4 {
		return "****" + v[len(v)-4:]
	}
	return "****"
}

func readErrorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eresp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &eresp); err == nil {
		if msg := strings.TrimSpace(eresp.Error.Message); msg != "" {
			return msg
		}
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" && len(msg) < 512 {
		return msg
	}
	return resp.Status
}

// OpenAIModelProvider 把 OpenAIChatClient 包装成 Completer，并写入 LLM 转储日志。
type OpenAIModelProvider struct {
	id     string
	client *OpenAIChatClient
}

func NewOpenAIModelProvider(id string, client *OpenAIChatClient) *OpenAIModelProvider {
	return &OpenAIModelProvider{id: id, client: client}
}

func (p *OpenAIModelProvider) ID() string { return p.id }

func (p *OpenAIModelProvider) Complete(ctx context.Context, payload ChatPayload) (string, error) {
	temp := payload.Temperature
	if temp == 0 {
		temp = p.client.Temperature
	}
	model := payload.Model
	if model == "" {
		model = p.client.Model
	}
	logger.LogLLMRequest("completion", p.id+":"+model, payload.Purpose, payload.System, payload.User)
	start := time.Now()
	out, err := p.client.CallWithMessages(ctx, model, temp, payload.System, payload.User)
	if err != nil {
		logger.Warnf("[AI] %s purpose=%s failed after %s: %v", p.id, payload.Purpose, time.Since(start).Round(time.Millisecond), err)
		return "", err
	}
	logger.LogLLMResponse("completion", p.id+":"+model, payload.Purpose, out)
	logger.Debugf("[AI] %s purpose=%s ok dur=%s chars=%d", p.id, payload.Purpose, time.Since(start).Round(time.Millisecond), len(out))
	return out, nil
}

var _ Completer = (*OpenAIModelProvider)(nil)
