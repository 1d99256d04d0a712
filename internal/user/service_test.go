package user

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/bukuma/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn   func(ctx context.Context, id string) (*model.User, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	return nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFn(ctx, id)
}

type mockSessionRepo struct {
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	return nil
}
func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	return nil
}
func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return m.deleteByUserIDFn(ctx, userID)
}

type mockBookmarkDeleter struct {
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockBookmarkDeleter) DeleteByUserID(ctx context.Context, userID string) error {
	return m.deleteByUserIDFn(ctx, userID)
}

// --- テスト ---

// TestService_Withdraw は退会処理が全関連データを削除することを検証する。
func TestService_Withdraw(t *testing.T) {
	userDeleteCalled := false
	sessionDeleteCalled := false
	bookmarkDeleteCalled := false

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "leaving@example.com"}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			userDeleteCalled = true
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		deleteByUserIDFn: func(ctx context.Context, userID string) error {
			sessionDeleteCalled = true
			return nil
		},
	}
	bookmarkDeleter := &mockBookmarkDeleter{
		deleteByUserIDFn: func(ctx context.Context, userID string) error {
			bookmarkDeleteCalled = true
			return nil
		},
	}

	svc := NewService(userRepo, sessionRepo, bookmarkDeleter)

	err := svc.Withdraw(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Withdraw returned error: %v", err)
	}
	if !bookmarkDeleteCalled {
		t.Error("expected bookmarks DeleteByUserID to be called")
	}
	if !sessionDeleteCalled {
		t.Error("expected sessions DeleteByUserID to be called")
	}
	if !userDeleteCalled {
		t.Error("expected user DeleteByID to be called")
	}
}

// TestService_Withdraw_UserNotFound は存在しないユーザーの退会がエラーになることを検証する。
func TestService_Withdraw_UserNotFound(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}

	svc := NewService(userRepo, nil, nil)

	err := svc.Withdraw(context.Background(), "nonexistent-user")
	if err == nil {
		t.Fatal("expected error for nonexistent user, got nil")
	}
}

// TestService_Withdraw_BookmarkDeleteFails はブックマーク削除失敗時に
// ユーザー削除まで進まないことを検証する。
func TestService_Withdraw_BookmarkDeleteFails(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			t.Fatal("user DeleteByID should not be called when bookmark deletion fails")
			return nil
		},
	}
	bookmarkDeleter := &mockBookmarkDeleter{
		deleteByUserIDFn: func(ctx context.Context, userID string) error {
			return errors.New("db error")
		},
	}

	svc := NewService(userRepo, nil, bookmarkDeleter)

	if err := svc.Withdraw(context.Background(), "user-err"); err == nil {
		t.Fatal("expected error when bookmark deletion fails")
	}
}
