package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/bukuma/internal/model"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// PostgresIdentityRepoはIdentityRepositoryインターフェースを満たすことを検証
func TestPostgresIdentityRepo_ImplementsInterface(t *testing.T) {
	var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
}

// User/Identityモデルのフィールドが正しく構築されることを検証
func TestUserAndIdentityModel_Fields(t *testing.T) {
	now := time.Now()
	user := &model.User{
		ID:        "user-id-1",
		Email:     "u1@example.com",
		Name:      "User One",
		CreatedAt: now,
		UpdatedAt: now,
	}
	identity := &model.Identity{
		ID:             "identity-id-1",
		UserID:         user.ID,
		Provider:       "google",
		ProviderUserID: "google-sub-1",
		CreatedAt:      now,
	}

	if identity.UserID != user.ID {
		t.Errorf("identity.UserID = %q, want %q", identity.UserID, user.ID)
	}
	if identity.Provider != "google" {
		t.Errorf("identity.Provider = %q, want %q", identity.Provider, "google")
	}
}
