package database

import (
	"strings"
	"testing"
)

// マイグレーションファイルが埋め込まれていることを検証
func TestMigrationsFS_ContainsInitMigration(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}

	var hasUp, hasDown bool
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			hasUp = true
		}
		if strings.HasSuffix(e.Name(), ".down.sql") {
			hasDown = true
		}
	}

	if !hasUp {
		t.Error("expected at least one .up.sql migration")
	}
	if !hasDown {
		t.Error("expected at least one .down.sql migration")
	}
}

// 初期マイグレーションにbookmarksテーブルの定義が含まれることを検証
func TestInitMigration_DefinesBookmarksTable(t *testing.T) {
	data, err := migrationsFS.ReadFile("migrations/000001_init.up.sql")
	if err != nil {
		t.Fatalf("failed to read init migration: %v", err)
	}

	content := string(data)
	for _, want := range []string{"CREATE TABLE bookmarks", "user_id", "created_at", "title", "url"} {
		if !strings.Contains(content, want) {
			t.Errorf("init migration should contain %q", want)
		}
	}
}

// 不正なデータベースURLでマイグレーターの生成が失敗することを検証
func TestNewMigrator_InvalidURL(t *testing.T) {
	if _, err := NewMigrator("invalid-scheme://foo"); err == nil {
		t.Fatal("NewMigrator should return error for unsupported database URL")
	}
}
