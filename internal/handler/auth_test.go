package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/GollaBharath/Gamify/internal/auth"
	"github.com/GollaBharath/Gamify/internal/database"
	"github.com/GollaBharath/Gamify/internal/store"
)

func setupAuthTest(t *testing.T) (*AuthHandler, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewAuthHandler(users, tokens, slog.New(slog.DiscardHandler)), users
}

type authResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
	} `json:"user"`
}

func postJSON(t *testing.T, fn http.HandlerFunc, target, body string) (*httptest.ResponseRecorder, authResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", target, strings.NewReader(body))
	fn(rec, req)

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestRegister(t *testing.T) {
	h, users := setupAuthTest(t)

	rec, resp := postJSON(t, h.Register, "/api/auth/register",
		`{"username": "alice", "email": "Alice@Example.com", "password": "s3cret"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	if !resp.Success || resp.Token == "" {
		t.Errorf("expected success with token, got %+v", resp)
	}
	if resp.User.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", resp.User.Email)
	}
	if resp.User.Role != "Member" {
		t.Errorf("role = %q, want Member", resp.User.Role)
	}

	stored, _ := users.GetByEmail("alice@example.com")
	if stored == nil {
		t.Fatal("user not persisted")
	}
	if stored.PasswordHash == "s3cret" {
		t.Error("password stored in plaintext")
	}
	if stored.Points != 0 {
		t.Errorf("points = %d, want 0", stored.Points)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	h, _ := setupAuthTest(t)

	for _, body := range []string{
		`{}`,
		`{"username": "alice"}`,
		`{"username": "alice", "email": "a@b.c"}`,
		`{"username": "  ", "email": "a@b.c", "password": "x"}`,
	} {
		rec, resp := postJSON(t, h.Register, "/api/auth/register", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
		if resp.Message != "All fields are required" {
			t.Errorf("body %q: message = %q", body, resp.Message)
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	h, _ := setupAuthTest(t)

	body := `{"username": "alice", "email": "alice@example.com", "password": "s3cret"}`
	rec, _ := postJSON(t, h.Register, "/api/auth/register", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first register: status = %d", rec.Code)
	}

	// Same email, different username.
	rec, resp := postJSON(t, h.Register, "/api/auth/register",
		`{"username": "alice2", "email": "alice@example.com", "password": "other"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if resp.Message != "User already exists" {
		t.Errorf("message = %q", resp.Message)
	}

	// Same username, different email.
	rec, resp = postJSON(t, h.Register, "/api/auth/register",
		`{"username": "alice", "email": "alice2@example.com", "password": "other"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if resp.Message != "User already exists" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestLogin(t *testing.T) {
	h, _ := setupAuthTest(t)

	postJSON(t, h.Register, "/api/auth/register",
		`{"username": "alice", "email": "alice@example.com", "password": "s3cret"}`)

	rec, resp := postJSON(t, h.Login, "/api/auth/login",
		`{"email": "ALICE@example.com", "password": "s3cret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if resp.Token == "" {
		t.Error("expected token")
	}
	if resp.User.Username != "alice" {
		t.Errorf("username = %q", resp.User.Username)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h, _ := setupAuthTest(t)

	postJSON(t, h.Register, "/api/auth/register",
		`{"username": "alice", "email": "alice@example.com", "password": "s3cret"}`)

	rec, resp := postJSON(t, h.Login, "/api/auth/login",
		`{"email": "alice@example.com", "password": "wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if resp.Message != "Invalid credentials" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	h, _ := setupAuthTest(t)

	rec, resp := postJSON(t, h.Login, "/api/auth/login",
		`{"email": "ghost@example.com", "password": "whatever"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if resp.Message != "Invalid credentials" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestLoginOAuthAccountRejected(t *testing.T) {
	h, users := setupAuthTest(t)

	// Google-provisioned accounts carry no password hash.
	if _, err := users.CreateFromGoogle("google-sub-123", "gal", "gal@example.com"); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec, resp := postJSON(t, h.Login, "/api/auth/login",
		`{"email": "gal@example.com", "password": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty password: status = %d, want 400", rec.Code)
	}

	rec, resp = postJSON(t, h.Login, "/api/auth/login",
		`{"email": "gal@example.com", "password": "anything"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if resp.Message != "Invalid credentials" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestLoginMissingFields(t *testing.T) {
	h, _ := setupAuthTest(t)

	rec, resp := postJSON(t, h.Login, "/api/auth/login", `{"email": "a@b.c"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if resp.Message != "Email and password are required" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestProfile(t *testing.T) {
	h, users := setupAuthTest(t)

	user, err := users.Create("alice", "alice@example.com", "hash", "Moderator")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/users/profile", nil)
	req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: user.ID, Role: auth.RoleModerator}))
	h.Profile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		User    struct {
			Username     string `json:"username"`
			Role         string `json:"role"`
			PasswordHash string `json:"password_hash"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.User.Username != "alice" || resp.User.Role != "Moderator" {
		t.Errorf("user = %+v", resp.User)
	}
	if resp.User.PasswordHash != "" {
		t.Error("password hash leaked in profile response")
	}
	if !strings.Contains(rec.Body.String(), "Protected data") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func setRoleRequest(id, body string) *http.Request {
	req := httptest.NewRequest("PUT", "/api/users/"+id+"/role", strings.NewReader(body))
	req.SetPathValue("id", id)
	return req
}

func TestSetRole(t *testing.T) {
	h, users := setupAuthTest(t)

	user, err := users.Create("carol", "carol@example.com", "hash", "Member")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	rec := httptest.NewRecorder()
	h.SetRole(rec, setRoleRequest(strconv.FormatInt(user.ID, 10), `{"role": "Event Staff"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.User.Role != "Event Staff" {
		t.Errorf("response role = %q, want Event Staff", resp.User.Role)
	}

	stored, err := users.GetByID(user.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.Role != "Event Staff" {
		t.Errorf("stored role = %q, want Event Staff", stored.Role)
	}
}

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	h, users := setupAuthTest(t)

	user, err := users.Create("carol", "carol@example.com", "hash", "Member")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	rec := httptest.NewRecorder()
	h.SetRole(rec, setRoleRequest(strconv.FormatInt(user.ID, 10), `{"role": "Superuser"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	stored, _ := users.GetByID(user.ID)
	if stored.Role != "Member" {
		t.Errorf("role changed to %q on rejected request", stored.Role)
	}
}

func TestSetRoleBadID(t *testing.T) {
	h, _ := setupAuthTest(t)

	rec := httptest.NewRecorder()
	h.SetRole(rec, setRoleRequest("abc", `{"role": "Admin"}`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSetRoleUnknownUser(t *testing.T) {
	h, _ := setupAuthTest(t)

	rec := httptest.NewRecorder()
	h.SetRole(rec, setRoleRequest("424242", `{"role": "Admin"}`))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
