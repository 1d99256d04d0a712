package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bukuma/internal/model"
)

// PostgresBookmarkRepo はPostgreSQLを使用したブックマークリポジトリ。
type PostgresBookmarkRepo struct {
	db *sql.DB
}

// NewPostgresBookmarkRepo はPostgresBookmarkRepoを生成する。
func NewPostgresBookmarkRepo(db *sql.DB) *PostgresBookmarkRepo {
	return &PostgresBookmarkRepo{db: db}
}

// FindByID は指定IDのブックマークを取得する。見つからない場合はnilを返す。
func (r *PostgresBookmarkRepo) FindByID(ctx context.Context, id string) (*model.Bookmark, error) {
	b := &model.Bookmark{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, url, favicon_data, COALESCE(favicon_mime, ''), created_at, updated_at
		 FROM bookmarks WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.UserID, &b.Title, &b.URL, &b.FaviconData, &b.FaviconMime, &b.CreatedAt, &b.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ブックマークの取得に失敗しました: %w", err)
	}

	return b, nil
}

// ListByUserID はユーザーのブックマーク一覧をcreated_at降順（新しい順）で返す。
func (r *PostgresBookmarkRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Bookmark, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, url, favicon_data, COALESCE(favicon_mime, ''), created_at, updated_at
		 FROM bookmarks WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ブックマーク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var bookmarks []*model.Bookmark
	for rows.Next() {
		b := &model.Bookmark{}
		if err := rows.Scan(&b.ID, &b.UserID, &b.Title, &b.URL, &b.FaviconData, &b.FaviconMime, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ブックマーク行の読み取りに失敗しました: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ブックマーク一覧の走査に失敗しました: %w", err)
	}
	return bookmarks, nil
}

// Create はブックマークを作成する。
func (r *PostgresBookmarkRepo) Create(ctx context.Context, b *model.Bookmark) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bookmarks (id, user_id, title, url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.UserID, b.Title, b.URL, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ブックマークの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はブックマークのtitle、url、updated_atを更新する。
func (r *PostgresBookmarkRepo) Update(ctx context.Context, b *model.Bookmark) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bookmarks SET title = $2, url = $3, updated_at = $4 WHERE id = $1`,
		b.ID, b.Title, b.URL, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ブックマークの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("ブックマークが見つかりません: %s", b.ID)
	}
	return nil
}

// Delete は指定IDのブックマークを削除する。
func (r *PostgresBookmarkRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("ブックマークの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("ブックマークが見つかりません: %s", id)
	}
	return nil
}

// DeleteByUserID はユーザーの全ブックマークを削除する。
func (r *PostgresBookmarkRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの全ブックマークの削除に失敗しました: %w", err)
	}
	return nil
}

// UpdateFavicon はブックマークのfaviconデータを更新する。
func (r *PostgresBookmarkRepo) UpdateFavicon(ctx context.Context, bookmarkID string, faviconData []byte, faviconMime string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bookmarks SET favicon_data = $2, favicon_mime = $3, updated_at = now() WHERE id = $1`,
		bookmarkID, faviconData, faviconMime,
	)
	if err != nil {
		return fmt.Errorf("faviconの更新に失敗しました: %w", err)
	}
	return nil
}

// ListMissingFavicon はfavicon未取得のブックマークを作成日時の古い順に最大limit件返す。
func (r *PostgresBookmarkRepo) ListMissingFavicon(ctx context.Context, limit int) ([]*model.Bookmark, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, url, favicon_data, COALESCE(favicon_mime, ''), created_at, updated_at
		 FROM bookmarks WHERE favicon_data IS NULL ORDER BY created_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("favicon未取得ブックマークの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var bookmarks []*model.Bookmark
	for rows.Next() {
		b := &model.Bookmark{}
		if err := rows.Scan(&b.ID, &b.UserID, &b.Title, &b.URL, &b.FaviconData, &b.FaviconMime, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ブックマーク行の読み取りに失敗しました: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("favicon未取得ブックマークの走査に失敗しました: %w", err)
	}
	return bookmarks, nil
}

// compile-time interface check
var _ BookmarkRepository = (*PostgresBookmarkRepo)(nil)
