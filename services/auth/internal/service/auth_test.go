package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/skincare_shop/pkg/db/dbtest"
	"github.com/Skotchmaster/skincare_shop/pkg/events"
	"github.com/Skotchmaster/skincare_shop/pkg/tokens"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/models"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/repo"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/transport"
)

func newTestAuthService(t *testing.T) (*AuthService, *events.Recorder) {
	t.Helper()
	db := dbtest.Open(t, &models.User{}, &models.RefreshToken{})
	rec := &events.Recorder{}
	return &AuthService{
		Repo:          &repo.GormRepo{DB: db},
		JWTSecret:     []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		Events:        rec,
	}, rec
}

func register(t *testing.T, svc *AuthService, email string) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), transport.RegisterRequest{
		Name: "Asha", Email: email, Password: "Secret123",
	})
	require.NoError(t, err)
	return u
}

func TestAuthService_CreateAccessToken_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	svc := &AuthService{JWTSecret: []byte("test-jwt-secret")}
	userID := uuid.NewString()
	accessExp := time.Now().Add(15 * time.Minute).UTC()

	token, err := svc.CreateAccessToken(models.RoleAdmin, userID, accessExp)
	require.NoError(t, err)

	claims, err := tokens.AccessClaimsFromToken(token, svc.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, userID, claims.Subject)
	assert.WithinDuration(t, accessExp, claims.ExpiresAt.Time, time.Second)
}

func TestAuthService_CreateRefreshToken_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	svc := &AuthService{RefreshSecret: []byte("test-refresh-secret")}
	userID := uuid.NewString()
	refreshExp := time.Now().Add(24 * time.Hour).UTC()

	token, jti, err := svc.CreateRefreshToken(models.RoleClient, userID, refreshExp)
	require.NoError(t, err)

	claims, err := tokens.RefreshClaimsFromToken(token, svc.RefreshSecret)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, jti, claims.ID)
	assert.WithinDuration(t, refreshExp, claims.ExpiresAt.Time, time.Second)
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t)

	tests := []struct {
		name string
		req  transport.RegisterRequest
	}{
		{"empty name", transport.RegisterRequest{Email: "a@b.in", Password: "Secret123"}},
		{"empty email", transport.RegisterRequest{Name: "A", Password: "Secret123"}},
		{"bad email", transport.RegisterRequest{Name: "A", Email: "not-an-email", Password: "Secret123"}},
		{"short password", transport.RegisterRequest{Name: "A", Email: "a@b.in", Password: "short"}},
		{"empty password", transport.RegisterRequest{Name: "A", Email: "a@b.in"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthService_Register_SuccessAndConflict(t *testing.T) {
	svc, rec := newTestAuthService(t)

	u := register(t, svc, " Asha@Example.com ")
	assert.Equal(t, "asha@example.com", u.Email)
	assert.Equal(t, models.RoleClient, u.Role)
	assert.NotEqual(t, "Secret123", u.PasswordHash)
	assert.Equal(t, []string{"user_registered"}, rec.Types(events.TopicUser))

	_, err := svc.Register(context.Background(), transport.RegisterRequest{
		Name: "Other", Email: "asha@example.com", Password: "Secret123",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAuthService_Login(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	u := register(t, svc, "asha@example.com")

	res, err := svc.Login(ctx, transport.LoginRequest{Email: "ASHA@example.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.False(t, res.IsAdmin)

	claims, err := tokens.AccessClaimsFromToken(res.AccessToken, svc.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims.Subject)
	assert.Equal(t, models.RoleClient, claims.Role)

	_, err = svc.Login(ctx, transport.LoginRequest{Email: "asha@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, transport.LoginRequest{Email: "nobody@example.com", Password: "Secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, transport.LoginRequest{Email: "", Password: "Secret123"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAuthService_Refresh_Rotates(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	register(t, svc, "asha@example.com")

	login, err := svc.Login(ctx, transport.LoginRequest{Email: "asha@example.com", Password: "Secret123"})
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, next.RefreshToken)

	// the rotated token is single use
	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// replaying it also revoked the token issued by the rotation
	_, err = svc.Refresh(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthService_Refresh_PicksUpRoleChange(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	register(t, svc, "admin@example.com")

	login, err := svc.Login(ctx, transport.LoginRequest{Email: "admin@example.com", Password: "Secret123"})
	require.NoError(t, err)
	require.False(t, login.IsAdmin)

	require.NoError(t, svc.PromoteAdmin(ctx, "admin@example.com"))

	next, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.True(t, next.IsAdmin)

	assert.ErrorIs(t, svc.PromoteAdmin(ctx, "missing@example.com"), ErrNotFound)
}

func TestAuthService_Refresh_InvalidToken(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t)

	res, err := svc.Refresh(context.Background(), "not-a-valid-jwt")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// well signed but never stored
	tok, err := tokens.SignRefresh(uuid.NewString(), models.RoleClient, "jti-x", time.Now().Add(time.Hour), svc.RefreshSecret)
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background(), tok)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthService_LogOut(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	register(t, svc, "asha@example.com")

	require.NoError(t, svc.LogOut(ctx, ""))

	login, err := svc.Login(ctx, transport.LoginRequest{Email: "asha@example.com", Password: "Secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.LogOut(ctx, login.RefreshToken))
	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthService_Me(t *testing.T) {
	svc, _ := newTestAuthService(t)
	u := register(t, svc, "asha@example.com")

	got, err := svc.Me(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)

	_, err = svc.Me(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
