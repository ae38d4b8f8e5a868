package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pictogram/internal/config"
	"pictogram/internal/model"
)

// =============================================================================
// MOCK REPOSITORY
// =============================================================================

// mockRefreshTokenRepository is a small in-memory token store so the
// rotation flow can be exercised end to end.
type mockRefreshTokenRepository struct {
	tokens map[string]*model.RefreshToken // keyed by token hash
	nextID int
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: map[string]*model.RefreshToken{}}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	m.nextID++
	token.ID = fmt.Sprintf("token-%d", m.nextID)
	token.CreatedAt = time.Now()
	m.tokens[token.TokenHash] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	token, ok := m.tokens[tokenHash]
	if !ok {
		return nil, model.ErrRefreshTokenNotFound
	}
	return token, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, id string, replacedBy *string) error {
	for _, token := range m.tokens {
		if token.ID == id {
			now := time.Now()
			token.RevokedAt = &now
			token.ReplacedBy = replacedBy
			return nil
		}
	}
	return model.ErrRefreshTokenNotFound
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	now := time.Now()
	for _, token := range m.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (m *mockRefreshTokenRepository) activeCount(userID int64) int {
	n := 0
	for _, token := range m.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			n++
		}
	}
	return n
}

func newTestAuthService(repo *mockRefreshTokenRepository) *AuthService {
	return NewAuthService(repo, &config.Config{
		JWTSecret:          "test-secret",
		AccessTokenMaxAge:  3600,
		RefreshTokenMaxAge: 86400,
	})
}

// =============================================================================
// TESTS
// =============================================================================

func TestAuthService_GenerateTokenPair(t *testing.T) {
	repo := newMockRefreshTokenRepository()
	svc := newTestAuthService(repo)

	pair, err := svc.GenerateTokenPair(context.Background(), 42)
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	if pair.RefreshToken == "" {
		t.Error("Expected a refresh token")
	}
	if pair.ExpiresIn != 3600 {
		t.Errorf("Expected ExpiresIn 3600, got %d", pair.ExpiresIn)
	}

	// The access token must verify against the configured secret and
	// carry the user_id claim.
	parsed, err := jwt.Parse(pair.AccessToken, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("Access token did not verify: %v", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("Expected MapClaims")
	}
	if userID, ok := claims["user_id"].(float64); !ok || int64(userID) != 42 {
		t.Errorf("Expected user_id claim 42, got %v", claims["user_id"])
	}

	// The raw refresh token must never be stored.
	if _, ok := repo.tokens[pair.RefreshToken]; ok {
		t.Error("Raw refresh token stored instead of its hash")
	}
	if _, ok := repo.tokens[hashToken(pair.RefreshToken)]; !ok {
		t.Error("Hashed refresh token not stored")
	}
}

func TestAuthService_RefreshTokens_Rotation(t *testing.T) {
	repo := newMockRefreshTokenRepository()
	svc := newTestAuthService(repo)

	first, err := svc.GenerateTokenPair(context.Background(), 7)
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	second, userID, err := svc.RefreshTokens(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokens: %v", err)
	}
	if userID != 7 {
		t.Errorf("Expected userID 7, got %d", userID)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("Rotation must issue a new refresh token")
	}

	// The old token is revoked and linked to its replacement.
	old := repo.tokens[hashToken(first.RefreshToken)]
	if old.RevokedAt == nil {
		t.Error("Old token not revoked after rotation")
	}
	replacement := repo.tokens[hashToken(second.RefreshToken)]
	if old.ReplacedBy == nil || *old.ReplacedBy != replacement.ID {
		t.Errorf("Old token not linked to replacement: got %v, want %s", old.ReplacedBy, replacement.ID)
	}
}

func TestAuthService_RefreshTokens_ReuseRevokesFamily(t *testing.T) {
	repo := newMockRefreshTokenRepository()
	svc := newTestAuthService(repo)

	first, err := svc.GenerateTokenPair(context.Background(), 9)
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}
	if _, _, err := svc.RefreshTokens(context.Background(), first.RefreshToken); err != nil {
		t.Fatalf("First refresh: %v", err)
	}

	// Replaying the rotated token signals compromise.
	_, _, err = svc.RefreshTokens(context.Background(), first.RefreshToken)
	if !errors.Is(err, model.ErrRefreshTokenReused) {
		t.Fatalf("Expected ErrRefreshTokenReused, got %v", err)
	}

	if n := repo.activeCount(9); n != 0 {
		t.Errorf("Expected whole family revoked after reuse, %d tokens still active", n)
	}
}

func TestAuthService_RefreshTokens_Expired(t *testing.T) {
	repo := newMockRefreshTokenRepository()
	svc := newTestAuthService(repo)

	expired := &model.RefreshToken{
		UserID:    5,
		TokenHash: hashToken("stale-token"),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := repo.Create(context.Background(), expired); err != nil {
		t.Fatalf("Seed token: %v", err)
	}

	_, _, err := svc.RefreshTokens(context.Background(), "stale-token")
	if !errors.Is(err, model.ErrRefreshTokenExpired) {
		t.Errorf("Expected ErrRefreshTokenExpired, got %v", err)
	}
}

func TestAuthService_RefreshTokens_Unknown(t *testing.T) {
	repo := newMockRefreshTokenRepository()
	svc := newTestAuthService(repo)

	_, _, err := svc.RefreshTokens(context.Background(), "never-issued")
	if !errors.Is(err, model.ErrRefreshTokenNotFound) {
		t.Errorf("Expected ErrRefreshTokenNotFound, got %v", err)
	}
}

func TestAuthService_RevokeAllUserTokens(t *testing.T) {
	repo := newMockRefreshTokenRepository()
	svc := newTestAuthService(repo)

	for i := 0; i < 3; i++ {
		if _, err := svc.GenerateTokenPair(context.Background(), 11); err != nil {
			t.Fatalf("GenerateTokenPair: %v", err)
		}
	}

	if err := svc.RevokeAllUserTokens(context.Background(), 11); err != nil {
		t.Fatalf("RevokeAllUserTokens: %v", err)
	}
	if n := repo.activeCount(11); n != 0 {
		t.Errorf("Expected 0 active tokens, got %d", n)
	}
}
