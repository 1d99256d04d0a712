package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bukuma/internal/model"
)

const (
	// csrfCookieName はCSRFトークンを保持するCookieの名前。
	// フロントエンドがX-CSRF-Tokenヘッダーに載せ替えるため、HttpOnlyにしない。
	csrfCookieName = "csrf_token"

	// csrfHeaderName はブックマークの作成・更新・削除と退会リクエストに
	// フロントエンドが付与するヘッダーの名前。
	csrfHeaderName = "X-CSRF-Token"

	// csrfTokenBytes はトークンの乱数長（hexエンコード前）。
	csrfTokenBytes = 32

	// csrfCookieMaxAge はCSRFトークンCookieの有効期間（秒）。
	// セッションより短い24時間で、期限切れ時はフロントエンドが再取得する。
	csrfCookieMaxAge = 86400
)

// CSRFConfig はCSRFミドルウェアの設定。
// セッションCookieと同じドメイン・Secure属性を使用する。
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
}

// NewCSRFMiddleware はdouble-submit Cookie方式のCSRF防止ミドルウェアを返す。
// ブックマークAPIはCookie認証のため、状態変更メソッド（POST, PUT, PATCH,
// DELETE）にはCookieとヘッダーのトークン一致を必須とする。
// 安全なメソッド（GET, HEAD, OPTIONS）は検証をスキップし、
// トークンCookie未設定のクライアントにはCookieを発行する。
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				ensureCSRFCookie(w, r, config)
				next.ServeHTTP(w, r)
				return
			}

			if reason := validateDoubleSubmit(r); reason != "" {
				slog.Warn("CSRF validation failed",
					slog.String("reason", reason),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				writeCSRFRejected(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// validateDoubleSubmit はCookieとヘッダーのCSRFトークンを照合する。
// 検証に通った場合は空文字列を、失敗した場合は失敗理由を返す。
func validateDoubleSubmit(r *http.Request) string {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return "missing cookie token"
	}

	headerToken := r.Header.Get(csrfHeaderName)
	if headerToken == "" {
		return "missing header token"
	}

	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(headerToken)) != 1 {
		return "token mismatch"
	}

	return ""
}

// writeCSRFRejected はCSRF検証失敗時の統一エラーレスポンスを書き込む。
// 失敗理由はログのみに記録し、レスポンスでは区別しない。
func writeCSRFRejected(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusForbidden, &model.APIError{
		Code:     "CSRF_TOKEN_INVALID",
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "security",
		Action:   "ページを再読み込みしてから再度お試しください。",
	})
}

// NewCSRFTokenHandler はCSRFトークン取得エンドポイントのハンドラーを返す。
// GET /api/csrf-token
// フロントエンドはログイン直後とトークン未保持時にこのエンドポイントを呼ぶ。
// 既存のトークンCookieがある場合はその値を返し、なければ新規発行する。
func NewCSRFTokenHandler(config CSRFConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string

		cookie, err := r.Cookie(csrfCookieName)
		if err == nil && cookie.Value != "" {
			token = cookie.Value
		} else {
			token, err = generateCSRFToken()
			if err != nil {
				slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
				WriteInternalServerError(w)
				return
			}
			setCSRFCookie(w, token, config)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"token": token,
		})
	})
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// ensureCSRFCookie はCSRFトークンCookieが未設定の場合に発行する。
func ensureCSRFCookie(w http.ResponseWriter, r *http.Request, config CSRFConfig) {
	if _, err := r.Cookie(csrfCookieName); err == nil {
		return
	}

	token, err := generateCSRFToken()
	if err != nil {
		slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
		return
	}
	setCSRFCookie(w, token, config)
}

// setCSRFCookie はCSRFトークンCookieを設定する。
func setCSRFCookie(w http.ResponseWriter, token string, config CSRFConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   csrfCookieMaxAge,
		HttpOnly: false, // フロントエンドがヘッダーに載せ替えるため読み取り可能にする
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// generateCSRFToken は暗号的に安全なCSRFトークンを生成する。
func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
