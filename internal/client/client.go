// Package client はbukumaサーバーAPIへのGoクライアントバインディングを提供する。
// セッションCookieとCSRFトークンの管理、ブックマークCRUD、
// 変更フィードのWebSocket購読をまとめる。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	gosync "sync"
	"time"

	"github.com/hitoshi/bukuma/internal/model"
)

// Client はサーバーAPIへのHTTPバインディング。
// Cookie jarでセッションCookieを保持し、状態変更リクエストには
// CSRFトークンを自動で付与する。
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu        gosync.Mutex
	csrfToken string
}

// NewClient はClientを生成する。
// baseURLはサーバーのルートURL（例: http://localhost:8080）。
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
			// APIバインディングとしてはリダイレクトを追わない
			// （OAuthフローはブラウザ側で完結する）
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// BaseURL はサーバーのルートURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Jar はセッションCookieを保持するCookie jarを返す。
// WebSocket接続のハンドシェイクで共有するために使用する。
func (c *Client) Jar() http.CookieJar {
	return c.httpClient.Jar
}

// ensureCSRFToken はCSRFトークンを取得済みであることを保証する。
func (c *Client) ensureCSRFToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.csrfToken
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/csrf-token", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create csrf token request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch csrf token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("csrf token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode csrf token response: %w", err)
	}

	c.mu.Lock()
	c.csrfToken = body.Token
	c.mu.Unlock()

	return body.Token, nil
}

// getJSON はGETリクエストを送り、レスポンスJSONをoutにデコードする。
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doJSON は状態変更リクエスト（POST/PUT/DELETE）を送る。
// CSRFトークンを付与し、レスポンスJSONをoutにデコードする。
func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	token, err := c.ensureCSRFToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-CSRF-Token", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeAPIError はエラーレスポンスをAPIErrorに復元する。
// 統一エラーフォーマットでない場合はステータスコードのみのエラーを返す。
func decodeAPIError(resp *http.Response) error {
	var apiErr struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Category string `json:"category"`
		Action   string `json:"action"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Code == "" {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return &model.APIError{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	}
}
