// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/bukuma/internal/model"
	"github.com/hitoshi/bukuma/internal/repository"
)

// BookmarkDeleter はブックマークの一括削除インターフェース。
type BookmarkDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// Service はユーザー管理のサービス層。
// 退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo        repository.UserRepository
	sessionRepo     repository.SessionRepository
	bookmarkDeleter BookmarkDeleter
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	bookmarkDeleter BookmarkDeleter,
) *Service {
	return &Service{
		userRepo:        userRepo,
		sessionRepo:     sessionRepo,
		bookmarkDeleter: bookmarkDeleter,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: bookmarks → sessions → user（+ CASCADE: identities）
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. ブックマークを削除
	if s.bookmarkDeleter != nil {
		if err := s.bookmarkDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("ブックマークの削除に失敗しました: %w", err)
		}
	}

	// 2. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 3. ユーザーを削除（identitiesはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
