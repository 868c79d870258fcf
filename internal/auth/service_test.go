package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/daiki/tsudoi/internal/model"
	"github.com/daiki/tsudoi/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	createWithIdentityFn func(ctx context.Context, user *model.User, identity *model.Identity) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, user, identity)
	}
	return nil
}

func (m *mockUserRepo) UpdateSettings(_ context.Context, _, _ string, _, _ bool) error {
	return nil
}

func (m *mockUserRepo) DeleteByID(_ context.Context, _ string) error {
	return nil
}

type mockIdentityRepo struct {
	findByProviderFn func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	if m.findByProviderFn != nil {
		return m.findByProviderFn(ctx, provider, providerUserID)
	}
	return nil, nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.IdentityRepository = (*mockIdentityRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)

// --- テスト ---

func TestGetLoginURL_ReturnsOAuthURL(t *testing.T) {
	provider := &mockOAuthProvider{
		getLoginURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	svc := NewService(provider, nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	url := svc.GetLoginURL("test-state")

	if url != "https://accounts.google.com/o/oauth2/auth?state=test-state" {
		t.Errorf("unexpected login URL: %q", url)
	}
}

func TestHandleCallback_NewUser_CreatesUserAndIdentityAndSession(t *testing.T) {
	var createdUser *model.User
	var createdIdentity *model.Identity
	var createdSession *model.Session

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, code string) (*OAuthUserInfo, error) {
			if code != "auth-code-1" {
				t.Errorf("code = %q, want %q", code, "auth-code-1")
			}
			return &OAuthUserInfo{
				ProviderUserID: "google-123",
				Email:          "new@example.com",
				Name:           "New User",
				Provider:       "google",
			}, nil
		},
	}
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(_ context.Context, user *model.User, identity *model.Identity) error {
			createdUser = user
			createdIdentity = identity
			return nil
		},
	}
	identRepo := &mockIdentityRepo{
		findByProviderFn: func(_ context.Context, _, _ string) (*model.Identity, error) {
			return nil, nil // 初回サインイン
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(_ context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(provider, userRepo, identRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(context.Background(), "auth-code-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if createdUser == nil {
		t.Fatal("expected user to be created")
	}
	if createdUser.Email != "new@example.com" {
		t.Errorf("Email = %q, want %q", createdUser.Email, "new@example.com")
	}
	if createdUser.Name != "New User" {
		t.Errorf("Name = %q, want %q", createdUser.Name, "New User")
	}
	// 通知設定はメール・ブラウザともに有効で初期化される
	if !createdUser.NotifyEmail {
		t.Error("NotifyEmail should default to true")
	}
	if !createdUser.NotifyBrowser {
		t.Error("NotifyBrowser should default to true")
	}

	if createdIdentity == nil {
		t.Fatal("expected identity to be created")
	}
	if createdIdentity.Provider != "google" {
		t.Errorf("Provider = %q, want %q", createdIdentity.Provider, "google")
	}
	if createdIdentity.ProviderUserID != "google-123" {
		t.Errorf("ProviderUserID = %q, want %q", createdIdentity.ProviderUserID, "google-123")
	}
	if createdIdentity.UserID != createdUser.ID {
		t.Errorf("identity.UserID = %q, want %q", createdIdentity.UserID, createdUser.ID)
	}

	if createdSession == nil {
		t.Fatal("expected session to be created")
	}
	if session.UserID != createdUser.ID {
		t.Errorf("session.UserID = %q, want %q", session.UserID, createdUser.ID)
	}
	if session.ID == "" {
		t.Error("session ID should not be empty")
	}
	if !session.ExpiresAt.After(time.Now()) {
		t.Error("session should expire in the future")
	}
}

func TestHandleCallback_ExistingUser_LogsInAndCreatesSession(t *testing.T) {
	userCreated := false

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, _ string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: "google-456",
				Email:          "existing@example.com",
				Name:           "Existing User",
				Provider:       "google",
			}, nil
		},
	}
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(_ context.Context, _ *model.User, _ *model.Identity) error {
			userCreated = true
			return nil
		},
	}
	identRepo := &mockIdentityRepo{
		findByProviderFn: func(_ context.Context, provider, providerUserID string) (*model.Identity, error) {
			if provider != "google" || providerUserID != "google-456" {
				t.Errorf("unexpected identity lookup: provider=%q, providerUserID=%q", provider, providerUserID)
			}
			return &model.Identity{
				ID:             "ident-1",
				UserID:         "user-existing",
				Provider:       "google",
				ProviderUserID: "google-456",
			}, nil
		},
	}
	sessionRepo := &mockSessionRepo{}

	svc := NewService(provider, userRepo, identRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(context.Background(), "auth-code-2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if userCreated {
		t.Error("existing user should not be re-created")
	}
	if session.UserID != "user-existing" {
		t.Errorf("session.UserID = %q, want %q", session.UserID, "user-existing")
	}
}

func TestHandleCallback_OAuthError_ReturnsError(t *testing.T) {
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, _ string) (*OAuthUserInfo, error) {
			return nil, errors.New("invalid authorization code")
		},
	}

	svc := NewService(provider, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(context.Background(), "bad-code")
	if err == nil {
		t.Fatal("expected error for OAuth failure, got nil")
	}
}

func TestHandleCallback_UserCreationError_ReturnsError(t *testing.T) {
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, _ string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: "google-789",
				Email:          "fail@example.com",
				Name:           "Fail User",
				Provider:       "google",
			}, nil
		},
	}
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(_ context.Context, _ *model.User, _ *model.Identity) error {
			return errors.New("db error")
		},
	}

	svc := NewService(provider, userRepo, &mockIdentityRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(context.Background(), "auth-code-3")
	if err == nil {
		t.Fatal("expected error for user creation failure, got nil")
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	var deletedID string
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(_ context.Context, id string) error {
			deletedID = id
			return nil
		},
	}

	svc := NewService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	err := svc.Logout(context.Background(), "session-abc")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if deletedID != "session-abc" {
		t.Errorf("deleted session ID = %q, want %q", deletedID, "session-abc")
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	svc := NewService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

	err := svc.Logout(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty session ID, got nil")
	}
}

func TestGetCurrentUser_ValidSession_ReturnsUser(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Session, error) {
			if id != "session-valid" {
				t.Errorf("session ID = %q, want %q", id, "session-valid")
			}
			return &model.Session{
				ID:        "session-valid",
				UserID:    "user-1",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{
				ID:    id,
				Email: "current@example.com",
				Name:  "Current User",
			}, nil
		},
	}

	svc := NewService(&mockOAuthProvider{}, userRepo, &mockIdentityRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	user, err := svc.GetCurrentUser(context.Background(), "session-valid")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user.ID = %q, want %q", user.ID, "user-1")
	}
	if user.Email != "current@example.com" {
		t.Errorf("user.Email = %q, want %q", user.Email, "current@example.com")
	}
}

func TestGetCurrentUser_ExpiredSession_ReturnsError(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Session, error) {
			return nil, nil // 期限切れセッションはnilが返る
		},
	}

	svc := NewService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.GetCurrentUser(context.Background(), "session-expired")
	if err == nil {
		t.Fatal("expected error for expired session, got nil")
	}
}

func TestGetCurrentUser_UserNotFound_ReturnsError(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Session, error) {
			return &model.Session{
				ID:        "session-orphan",
				UserID:    "user-deleted",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.User, error) {
			return nil, nil
		},
	}

	svc := NewService(&mockOAuthProvider{}, userRepo, &mockIdentityRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.GetCurrentUser(context.Background(), "session-orphan")
	if err == nil {
		t.Fatal("expected error for deleted user, got nil")
	}
}
