// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/bukuma/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessions、bookmarksはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// BookmarkRepository はブックマークデータの永続化インターフェース。
type BookmarkRepository interface {
	// FindByID は指定IDのブックマークを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Bookmark, error)

	// ListByUserID はユーザーのブックマーク一覧をcreated_at降順（新しい順）で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Bookmark, error)

	// Create はブックマークを作成する。
	Create(ctx context.Context, bookmark *model.Bookmark) error

	// Update はブックマークのtitle、url、updated_atを更新する。
	Update(ctx context.Context, bookmark *model.Bookmark) error

	// Delete は指定IDのブックマークを削除する。
	Delete(ctx context.Context, id string) error

	// DeleteByUserID はユーザーの全ブックマークを削除する。
	DeleteByUserID(ctx context.Context, userID string) error

	// UpdateFavicon はブックマークのfaviconデータを更新する。
	UpdateFavicon(ctx context.Context, bookmarkID string, faviconData []byte, faviconMime string) error

	// ListMissingFavicon はfavicon未取得のブックマークを作成日時の古い順に最大limit件返す。
	// faviconエンリッチワーカーが取得対象の選定に使用する。
	ListMissingFavicon(ctx context.Context, limit int) ([]*model.Bookmark, error)
}
