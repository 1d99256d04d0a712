package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bukuma/internal/bookmark"
	"github.com/hitoshi/bukuma/internal/middleware"
	"github.com/hitoshi/bukuma/internal/model"
)

// BookmarkServiceInterface はブックマークハンドラーが必要とするサービスインターフェース。
type BookmarkServiceInterface interface {
	// List はユーザーのブックマーク一覧を作成日時の新しい順で返す。
	List(ctx context.Context, userID string) ([]bookmark.BookmarkInfo, error)
	// Create はブックマークを作成し、作成された完全なレコードを返す。
	Create(ctx context.Context, userID, title, url string) (*bookmark.BookmarkInfo, error)
	// Update はブックマークのタイトルとURLを更新し、更新後のレコードを返す。
	Update(ctx context.Context, userID, bookmarkID, title, url string) (*bookmark.BookmarkInfo, error)
	// Delete はブックマークを削除する。
	Delete(ctx context.Context, userID, bookmarkID string) error
}

// TitlePreviewInterface はURLプレビューハンドラーが必要とするインターフェース。
type TitlePreviewInterface interface {
	// FetchTitle は指定URLのページタイトルを取得する。
	FetchTitle(ctx context.Context, url string) (string, error)
}

// BookmarkHandler はブックマーク管理のHTTPハンドラー。
type BookmarkHandler struct {
	service BookmarkServiceInterface
	preview TitlePreviewInterface
}

// NewBookmarkHandler はBookmarkHandlerを生成する。
func NewBookmarkHandler(service BookmarkServiceInterface, preview TitlePreviewInterface) *BookmarkHandler {
	return &BookmarkHandler{
		service: service,
		preview: preview,
	}
}

// bookmarkRequest はブックマーク作成・更新リクエストのボディ。
type bookmarkRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// previewRequest はタイトルプレビューリクエストのボディ。
type previewRequest struct {
	URL string `json:"url"`
}

// bookmarkResponse はブックマーク情報のAPIレスポンス。
type bookmarkResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	FaviconURL *string   `json:"favicon_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// previewResponse はタイトルプレビューのAPIレスポンス。
type previewResponse struct {
	Title string `json:"title"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// ListBookmarks はログインユーザーのブックマーク一覧を取得する。
// GET /api/bookmarks
func (h *BookmarkHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	bookmarks, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 空一覧でもnullではなく[]を返す
	results := make([]bookmarkResponse, len(bookmarks))
	for i, b := range bookmarks {
		results[i] = toBookmarkResponse(&b)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// CreateBookmark はブックマークを作成する。
// POST /api/bookmarks
func (h *BookmarkHandler) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req bookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	created, err := h.service.Create(r.Context(), userID, req.Title, req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toBookmarkResponse(created))
}

// UpdateBookmark はブックマークのタイトルとURLを更新する。
// PUT /api/bookmarks/:id
func (h *BookmarkHandler) UpdateBookmark(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	bookmarkID := chi.URLParam(r, "id")

	var req bookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.Update(r.Context(), userID, bookmarkID, req.Title, req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toBookmarkResponse(updated))
}

// DeleteBookmark はブックマークを削除する。
// DELETE /api/bookmarks/:id
func (h *BookmarkHandler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	bookmarkID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, bookmarkID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PreviewTitle は指定URLのページタイトルを取得する。
// ブックマーク登録フォームのタイトル自動補完に使用する。
// POST /api/bookmarks/preview
func (h *BookmarkHandler) PreviewTitle(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeUnauthorized(w)
		return
	}

	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	title, err := h.preview.FetchTitle(r.Context(), req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(previewResponse{Title: title})
}

// --- ヘルパー関数 ---

// toBookmarkResponse はドメインオブジェクトからAPIレスポンスに変換する。
func toBookmarkResponse(b *bookmark.BookmarkInfo) bookmarkResponse {
	return bookmarkResponse{
		ID:         b.ID,
		UserID:     b.UserID,
		Title:      b.Title,
		URL:        b.URL,
		FaviconURL: b.FaviconURL,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeUnauthorized は認証エラーの統一レスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// writeInvalidRequestBody はリクエストボディ解析エラーの統一レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeBookmarkNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmptyTitle, model.ErrCodeEmptyURL, model.ErrCodeInvalidURL:
		return http.StatusBadRequest
	case model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeFetchFailed:
		return http.StatusBadGateway
	case model.ErrCodeTitleNotFound:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
