// Package bookmark はブックマーク管理のドメインロジックを提供する。
package bookmark

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bukuma/internal/metrics"
	"github.com/hitoshi/bukuma/internal/model"
	"github.com/hitoshi/bukuma/internal/repository"
	"github.com/hitoshi/bukuma/internal/sync"
)

// BookmarkInfo はAPI応答向けのブックマークドメインオブジェクト。
type BookmarkInfo struct {
	ID         string
	UserID     string
	Title      string
	URL        string
	FaviconURL *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Service はブックマーク管理のサービス層。
// 一覧取得、作成、更新、削除のビジネスロジックと変更イベントの発行を提供する。
type Service struct {
	repo      repository.BookmarkRepository
	publisher sync.Publisher
	metrics   metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// publisherとmetricsはnilでもよい（イベント発行・計測なしで動作する）。
func NewService(
	repo repository.BookmarkRepository,
	publisher sync.Publisher,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		metrics:   collector,
	}
}

// List はユーザーのブックマーク一覧を作成日時の新しい順で返す。
// 他ユーザーのブックマークは決して含まれない。
func (s *Service) List(ctx context.Context, userID string) ([]BookmarkInfo, error) {
	rows, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ブックマーク一覧の取得に失敗しました: %w", err)
	}

	results := make([]BookmarkInfo, len(rows))
	for i, row := range rows {
		results[i] = toInfo(row)
	}

	return results, nil
}

// Create はブックマークを作成し、作成された完全なレコードを返す。
// タイトルとURLの検証を行い、作成後にinsertイベントを発行する。
func (s *Service) Create(ctx context.Context, userID, title, rawURL string) (*BookmarkInfo, error) {
	title = strings.TrimSpace(title)
	rawURL = strings.TrimSpace(rawURL)

	if err := validateInput(title, rawURL); err != nil {
		return nil, err
	}

	now := time.Now()
	b := &model.Bookmark{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		URL:       rawURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("ブックマークの作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordBookmarkCreated()
	}
	s.publishChange(ctx, model.ChangeInsert, b.ID, userID)

	info := toInfo(b)
	return &info, nil
}

// Update はブックマークのタイトルとURLを更新し、更新後のレコードを返す。
// 所有者以外からの更新は存在しないものとして扱う。
func (s *Service) Update(ctx context.Context, userID, bookmarkID, title, rawURL string) (*BookmarkInfo, error) {
	title = strings.TrimSpace(title)
	rawURL = strings.TrimSpace(rawURL)

	if err := validateInput(title, rawURL); err != nil {
		return nil, err
	}

	b, err := s.repo.FindByID(ctx, bookmarkID)
	if err != nil {
		return nil, fmt.Errorf("ブックマークの取得に失敗しました: %w", err)
	}
	if b == nil || b.UserID != userID {
		return nil, model.NewBookmarkNotFoundError(bookmarkID)
	}

	b.Title = title
	b.URL = rawURL
	b.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("ブックマークの更新に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordBookmarkUpdated()
	}
	s.publishChange(ctx, model.ChangeUpdate, b.ID, userID)

	info := toInfo(b)
	return &info, nil
}

// Delete はブックマークを削除する。
// 所有者以外からの削除は存在しないものとして扱う。
func (s *Service) Delete(ctx context.Context, userID, bookmarkID string) error {
	b, err := s.repo.FindByID(ctx, bookmarkID)
	if err != nil {
		return fmt.Errorf("ブックマークの取得に失敗しました: %w", err)
	}
	if b == nil || b.UserID != userID {
		return model.NewBookmarkNotFoundError(bookmarkID)
	}

	if err := s.repo.Delete(ctx, bookmarkID); err != nil {
		return fmt.Errorf("ブックマークの削除に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordBookmarkDeleted()
	}
	s.publishChange(ctx, model.ChangeDelete, bookmarkID, userID)

	return nil
}

// publishChange は変更イベントを発行する。
// 本体のデータは既に永続化済みのため、発行失敗は操作の失敗にしない。
func (s *Service) publishChange(ctx context.Context, changeType model.ChangeType, bookmarkID, userID string) {
	if s.publisher == nil {
		return
	}

	event := model.ChangeEvent{
		Type:       changeType,
		BookmarkID: bookmarkID,
		UserID:     userID,
		OccurredAt: time.Now(),
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Error("failed to publish change event",
			slog.String("change_type", string(changeType)),
			slog.String("bookmark_id", bookmarkID),
			slog.String("error", err.Error()),
		)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordChangeEventPublished()
	}
}

// validateInput はタイトルとURLの入力検証を行う。
func validateInput(title, rawURL string) error {
	if title == "" {
		return model.NewEmptyTitleError()
	}
	if rawURL == "" {
		return model.NewEmptyURLError()
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return model.NewInvalidURLError(err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return model.NewInvalidURLError(fmt.Sprintf("スキーム %q は使用できません", parsed.Scheme))
	}
	if parsed.Host == "" {
		return model.NewInvalidURLError("ホストが含まれていません")
	}

	return nil
}

// toInfo はモデルをドメインオブジェクトに変換する。
func toInfo(b *model.Bookmark) BookmarkInfo {
	info := BookmarkInfo{
		ID:        b.ID,
		UserID:    b.UserID,
		Title:     b.Title,
		URL:       b.URL,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}

	// faviconデータがある場合はdata URLに変換
	if len(b.FaviconData) > 0 && b.FaviconMime != "" {
		dataURL := fmt.Sprintf("data:%s;base64,%s", b.FaviconMime, base64.StdEncoding.EncodeToString(b.FaviconData))
		info.FaviconURL = &dataURL
	}

	return info
}
