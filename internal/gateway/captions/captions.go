// Package captions 访问公开字幕检索服务（非 AI 路径）。
package captions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stratex/internal/logger"
	"stratex/internal/pkg/text"
)

// ErrNoCaptions 视频没有可用字幕。
var ErrNoCaptions = errors.New("captions: no captions available")

// Transcript 是字幕服务返回的结果。
type Transcript struct {
	Text            string
	VideoTitle      string
	Language        string
	IsAutoGenerated bool
}

// Fetcher 获取指定视频的字幕。
type Fetcher interface {
	Fetch(ctx context.Context, videoID string) (Transcript, error)
}

// ServiceError 是字幕服务的结构化错误。
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("captions status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("captions status=%d: %s", e.StatusCode, e.Message)
}

// HTTPFetcher 调用 GET {BaseURL}?videoId=...&lang=...。
type HTTPFetcher struct {
	BaseURL  string
	APIKey   string
	Language string
	Timeout  time.Duration

	httpc *http.Client
}

func NewHTTPFetcher(baseURL, apiKey, lang string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		BaseURL:  strings.TrimSpace(baseURL),
		APIKey:   strings.TrimSpace(apiKey),
		Language: strings.TrimSpace(lang),
		Timeout:  timeout,
		httpc:    &http.Client{Timeout: timeout},
	}
}

type captionResponse struct {
	Transcript      string `json:"transcript"`
	VideoTitle      string `json:"videoTitle"`
	Language        string `json:"language"`
	IsAutoGenerated bool   `json:"isAutoGenerated"`
	Segments        []struct {
		Text string `json:"text"`
	} `json:"segments"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (f *HTTPFetcher) Fetch(ctx context.Context, videoID string) (Transcript, error) {
	if f == nil || f.BaseURL == "" {
		return Transcript{}, fmt.Errorf("captions: fetcher not configured")
	}
	q := url.Values{}
	q.Set("videoId", videoID)
	if f.Language != "" {
		q.Set("lang", f.Language)
	}
	endpoint := f.BaseURL
	if strings.Contains(endpoint, "?") {
		endpoint += "&" + q.Encode()
	} else {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Transcript{}, err
	}
	req.Header.Set("Accept", "application/json")
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	httpc := f.httpc
	if httpc == nil {
		httpc = &http.Client{Timeout: f.Timeout}
	}
	start := time.Now()
	resp, err := httpc.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("captions request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return Transcript{}, fmt.Errorf("captions read: %w", err)
	}
	var body captionResponse
	decodeErr := json.Unmarshal(raw, &body)
	if resp.StatusCode/100 != 2 {
		msg := strings.TrimSpace(body.Error)
		if msg == "" {
			msg = resp.Status
		}
		if resp.StatusCode == http.StatusNotFound {
			return Transcript{}, fmt.Errorf("%w: %s", ErrNoCaptions, msg)
		}
		return Transcript{}, &ServiceError{StatusCode: resp.StatusCode, Code: body.Code, Message: msg}
	}
	if decodeErr != nil {
		return Transcript{}, fmt.Errorf("captions decode: %w", decodeErr)
	}
	if msg := strings.TrimSpace(body.Error); msg != "" {
		return Transcript{}, &ServiceError{StatusCode: resp.StatusCode, Code: body.Code, Message: msg}
	}
	out := Transcript{
		Text:            strings.TrimSpace(body.Transcript),
		VideoTitle:      strings.TrimSpace(body.VideoTitle),
		Language:        body.Language,
		IsAutoGenerated: body.IsAutoGenerated,
	}
	if out.Text == "" && len(body.Segments) > 0 {
		parts := make([]string, 0, len(body.Segments))
		for _, seg := range body.Segments {
			if s := strings.TrimSpace(seg.Text); s != "" {
				parts = append(parts, s)
			}
		}
		out.Text = strings.Join(parts, " ")
	}
	if out.Text == "" {
		return Transcript{}, ErrNoCaptions
	}
	logger.Debugf("[captions] video=%s words=%d auto=%v dur=%s", videoID, text.WordCount(out.Text), out.IsAutoGenerated, time.Since(start).Round(time.Millisecond))
	return out, nil
}

var _ Fetcher = (*HTTPFetcher)(nil)
