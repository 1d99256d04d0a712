package bookmark

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hitoshi/bukuma/internal/model"
)

// maxPreviewBodySize はタイトル取得時に読み込むレスポンスの最大サイズ（1MB）。
const maxPreviewBodySize = 1 * 1024 * 1024

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// TitleSanitizer はタイトル文字列のサニタイズインターフェース。
type TitleSanitizer interface {
	Sanitize(rawHTML string) string
}

// TitleFetcher はブックマーク対象ページのタイトル取得機能を提供する。
// フォーム入力の補助として、URLからページタイトルをプレビューする。
type TitleFetcher struct {
	ssrfGuard SSRFValidator
	sanitizer TitleSanitizer
	timeout   time.Duration
}

// NewTitleFetcher はTitleFetcherの新しいインスタンスを生成する。
func NewTitleFetcher(ssrfGuard SSRFValidator, sanitizer TitleSanitizer, timeout time.Duration) *TitleFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TitleFetcher{
		ssrfGuard: ssrfGuard,
		sanitizer: sanitizer,
		timeout:   timeout,
	}
}

// FetchTitle は指定URLのHTMLからページタイトルを取得する。
// 1. SSRF検証を実行
// 2. URLにHTTPリクエストを送信（最大1MB読み込み）
// 3. HTMLのtitleタグからテキストを抽出しサニタイズ
// 4. タイトル未検出の場合はエラー（原因カテゴリ + 対処方法）を返す
func (f *TitleFetcher) FetchTitle(ctx context.Context, inputURL string) (string, error) {
	if inputURL == "" {
		return "", model.NewEmptyURLError()
	}

	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(inputURL); err != nil {
			return "", model.NewSSRFBlockedError()
		}
	}

	client := f.getHTTPClient()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, inputURL, nil)
	if err != nil {
		return "", model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", "Bukuma/1.0 Bookmark Manager")
	req.Header.Set("Accept", "text/html, application/xhtml+xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return "", model.NewFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", model.NewFetchFailedError(resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPreviewBodySize))
	if err != nil {
		return "", model.NewFetchFailedError(err.Error())
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != "" && !strings.Contains(strings.ToLower(mediaType), "html") {
		return "", model.NewTitleNotFoundError(inputURL)
	}

	title := extractTitle(body)
	if f.sanitizer != nil {
		title = f.sanitizer.Sanitize(title)
	}
	title = collapseWhitespace(title)

	if title == "" {
		return "", model.NewTitleNotFoundError(inputURL)
	}

	return title, nil
}

// getHTTPClient はHTTPクライアントを取得する。
// SSRFGuardが設定されている場合はSSRF防止付きクライアントを返す。
func (f *TitleFetcher) getHTTPClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(f.timeout, maxPreviewBodySize)
	}
	return &http.Client{Timeout: f.timeout}
}

// extractTitle はHTMLのheadタグ内のtitle要素からテキストを抽出する。
func extractTitle(htmlBody []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	inTitle := false

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""

		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "title":
				inTitle = true
			case "body":
				// bodyに入ったらheadの解析を終了
				return ""
			}

		case html.TextToken:
			if inTitle {
				return string(tokenizer.Text())
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = false
			}
		}
	}
}

// collapseWhitespace は連続する空白を1つにまとめ、前後の空白を除去する。
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
