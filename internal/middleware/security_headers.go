package middleware

import "net/http"

// NewSecurityHeadersMiddleware はセキュリティ関連のレスポンスヘッダーを付与する
// ミドルウェアを返す。このサーバーはJSON APIのみを提供するため、
// フレーム埋め込みとContent-Type推測を全面的に拒否する。
// ブックマークは個人データのため、共有キャッシュへの保存も禁止する。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
