package store

import (
	"testing"

	"github.com/GollaBharath/Gamify/internal/database"
)

func setupUserTestDB(t *testing.T) *UserStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db)
}

func TestUserCreate(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("alice", "alice@example.com", "hash", "Member")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Username != "alice" {
		t.Errorf("username = %q, want %q", u.Username, "alice")
	}
	if u.Role != "Member" {
		t.Errorf("role = %q, want Member", u.Role)
	}
	if u.Points != 0 {
		t.Errorf("points = %d, want 0", u.Points)
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	us := setupUserTestDB(t)

	if _, err := us.Create("alice", "alice@example.com", "hash", "Member"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := us.Create("alice2", "alice@example.com", "hash", "Member"); err == nil {
		t.Fatal("expected error for duplicate email, got nil")
	}
}

func TestUserCreateDuplicateUsername(t *testing.T) {
	us := setupUserTestDB(t)

	if _, err := us.Create("alice", "alice@example.com", "hash", "Member"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := us.Create("alice", "other@example.com", "hash", "Member"); err == nil {
		t.Fatal("expected error for duplicate username, got nil")
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.GetByID(999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserGetByEmailOrUsername(t *testing.T) {
	us := setupUserTestDB(t)

	if _, err := us.Create("alice", "alice@example.com", "hash", "Member"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	byEmail, err := us.GetByEmailOrUsername("alice@example.com", "someone-else")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail == nil {
		t.Fatal("expected match on email")
	}

	byUsername, err := us.GetByEmailOrUsername("other@example.com", "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byUsername == nil {
		t.Fatal("expected match on username")
	}

	neither, err := us.GetByEmailOrUsername("other@example.com", "bob")
	if err != nil {
		t.Fatalf("get by neither: %v", err)
	}
	if neither != nil {
		t.Error("expected nil when neither matches")
	}
}

func TestUserCreateFromGoogle(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.CreateFromGoogle("google-123", "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("create from google: %v", err)
	}
	if u.GoogleID == nil || *u.GoogleID != "google-123" {
		t.Errorf("google id = %v, want google-123", u.GoogleID)
	}
	if u.PasswordHash != "" {
		t.Error("expected empty password hash for OAuth account")
	}

	found, err := us.GetByGoogleID("google-123")
	if err != nil {
		t.Fatalf("get by google id: %v", err)
	}
	if found == nil || found.ID != u.ID {
		t.Error("expected lookup by google id to find the user")
	}
}

func TestUserSetRole(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("alice", "alice@example.com", "hash", "Member")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := us.SetRole(u.ID, "Moderator"); err != nil {
		t.Fatalf("set role: %v", err)
	}

	updated, err := us.GetByID(u.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if updated.Role != "Moderator" {
		t.Errorf("role = %q, want Moderator", updated.Role)
	}
}
