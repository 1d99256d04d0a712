package middleware

import "net/http"

// corsAllowedMethods はブックマークAPIが受け付けるメソッドの一覧。
const corsAllowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"

// corsAllowedHeaders はフロントエンドが付与するリクエストヘッダーの一覧。
// 変更系リクエストのCSRFトークンヘッダーを含む。
const corsAllowedHeaders = "Content-Type, X-CSRF-Token"

// NewCORSMiddleware はフロントエンドのオリジンに対するCORSミドルウェアを返す。
// セッションCookieを伴うリクエストを許可するため、オリジンは単一指定で
// ワイルドカード(*)は使用しない。
// OPTIONSプリフライトリクエストには204で応答する。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
