package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lc2gh/internal/model"
	"lc2gh/pkg/version"
)

const (
	// maxBodySize 响应体读取上限
	maxBodySize = 1 << 20
	// maxMessageLen 非 JSON 响应截取作为错误信息的长度
	maxMessageLen = 200
)

// Client 后端 HTTP API 客户端，base 由调用方按会话传入
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient 创建后端客户端
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "lc2gh/" + version.Version,
	}
}

// SubmissionResponse 写入提交的响应
type SubmissionResponse struct {
	Status int
	Body   json.RawMessage
}

// Refresh 用刷新令牌换取新的访问令牌
func (c *Client) Refresh(ctx context.Context, base string, req model.RefreshRequest) (*model.RefreshResponse, error) {
	var resp model.RefreshResponse
	if _, err := c.do(ctx, "refresh", http.MethodPost, endpoint(base, "/auth/refresh"), "", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateSubmission 写入一条提交，idempotencyKey 让后端合并重复投递
func (c *Client) CreateSubmission(ctx context.Context, base, token, idempotencyKey string, artifact *model.Artifact) (*SubmissionResponse, error) {
	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	var body json.RawMessage
	status, err := c.do(ctx, "create submission", http.MethodPost, endpoint(base, "/v1/submissions"), token, headers, artifact, &body)
	if err != nil {
		return nil, err
	}
	return &SubmissionResponse{Status: status, Body: body}, nil
}

// SubmissionStatus 查询某题的提交状态
func (c *Client) SubmissionStatus(ctx context.Context, base, token, slug string) (*model.SubmissionStatus, error) {
	target := endpoint(base, "/v1/submissions/status") + "?slug=" + url.QueryEscape(slug)
	var status model.SubmissionStatus
	if _, err := c.do(ctx, "submission status", http.MethodGet, target, token, nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Settings 获取已关联的 GitHub 账号信息
func (c *Client) Settings(ctx context.Context, base, token string) (*model.AccountSettings, error) {
	var settings model.AccountSettings
	if _, err := c.do(ctx, "settings", http.MethodGet, endpoint(base, "/v1/settings"), token, nil, nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// GitHubStartURL 构造交互式关联的起始地址
func GitHubStartURL(base, redirect, nonce string) string {
	query := url.Values{}
	query.Set("client", "ext")
	query.Set("redirect", redirect)
	query.Set("nonce", nonce)
	return endpoint(base, "/auth/github/start") + "?" + query.Encode()
}

func (c *Client) do(ctx context.Context, op, method, target, token string, headers map[string]string, in, out interface{}) (int, error) {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, newAPIError(resp.StatusCode, raw)
	}

	switch dst := out.(type) {
	case nil:
	case *json.RawMessage:
		*dst = rawJSON(raw)
	default:
		if len(bytes.TrimSpace(raw)) == 0 {
			break
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s response: %w", op, err)
		}
	}
	return resp.StatusCode, nil
}

// newAPIError 尽力从响应体中解析错误信息
func newAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status, Body: rawJSON(raw)}

	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case json.Unmarshal(raw, &parsed) == nil && (parsed.Message != "" || parsed.Error != ""):
		apiErr.Message = parsed.Message
		if apiErr.Message == "" {
			apiErr.Message = parsed.Error
		}
	case trimmed != "" && !json.Valid(raw):
		if len(trimmed) > maxMessageLen {
			trimmed = trimmed[:maxMessageLen]
		}
		apiErr.Message = trimmed
	default:
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// rawJSON 非 JSON 的响应体不保留
func rawJSON(raw []byte) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !json.Valid(raw) {
		return nil
	}
	return json.RawMessage(append([]byte(nil), raw...))
}

func endpoint(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
