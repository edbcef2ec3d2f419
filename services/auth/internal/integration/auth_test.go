package integration

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Skotchmaster/skincare_shop/pkg/events"
	"github.com/Skotchmaster/skincare_shop/pkg/tokens"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/models"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/repo"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/service"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/transport"
)

type integrationEnv struct {
	db  *gorm.DB
	svc *service.AuthService
	rp  *repo.GormRepo
}

func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()

	dsn := os.Getenv("AUTH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("AUTH_TEST_DATABASE_URL is required for tests")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}))

	rp := &repo.GormRepo{DB: db}
	env := &integrationEnv{
		db: db,
		rp: rp,
		svc: &service.AuthService{
			Repo:          rp,
			JWTSecret:     []byte("test-jwt-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
			Events:        events.Noop{},
		},
	}

	t.Cleanup(func() {
		db.Exec("TRUNCATE TABLE refresh_tokens, users RESTART IDENTITY CASCADE")
	})
	return env
}

func uniqueEmail() string {
	return "u_" + uuid.NewString() + "@example.com"
}

func (env *integrationEnv) registerAndLogin(t *testing.T) *transport.LoginResult {
	t.Helper()
	ctx := context.Background()
	email := uniqueEmail()

	_, err := env.svc.Register(ctx, transport.RegisterRequest{Name: "Asha", Email: email, Password: "Secret123"})
	require.NoError(t, err)
	res, err := env.svc.Login(ctx, transport.LoginRequest{Email: email, Password: "Secret123"})
	require.NoError(t, err)
	return res
}

func TestAuthService_Register_SuccessAndConflict(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()
	req := transport.RegisterRequest{Name: "Asha", Email: uniqueEmail(), Password: "Secret123"}

	_, err := env.svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = env.svc.Register(ctx, req)
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestAuthService_Login_Success_IssuesTokens(t *testing.T) {
	env := newIntegrationEnv(t)
	res := env.registerAndLogin(t)

	accessClaims, err := tokens.AccessClaimsFromToken(res.AccessToken, env.svc.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, accessClaims.Role)
	assert.True(t, accessClaims.ExpiresAt.Time.After(time.Now().UTC()))

	refreshClaims, err := tokens.RefreshClaimsFromToken(res.RefreshToken, env.svc.RefreshSecret)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshClaims.ID)
	assert.True(t, refreshClaims.ExpiresAt.Time.After(time.Now().UTC()))
}

func TestAuthService_Refresh_Success_RotatesToken(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()
	loginRes := env.registerAndLogin(t)

	oldClaims, err := tokens.RefreshClaimsFromToken(loginRes.RefreshToken, env.svc.RefreshSecret)
	require.NoError(t, err)

	refreshed, err := env.svc.Refresh(ctx, loginRes.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, loginRes.RefreshToken, refreshed.RefreshToken)

	oldTokenModel, err := env.rp.FindRefreshByJTI(ctx, oldClaims.ID)
	require.NoError(t, err)
	assert.True(t, oldTokenModel.Revoked)

	newClaims, err := tokens.RefreshClaimsFromToken(refreshed.RefreshToken, env.svc.RefreshSecret)
	require.NoError(t, err)
	newTokenModel, err := env.rp.FindRefreshByJTI(ctx, newClaims.ID)
	require.NoError(t, err)
	assert.False(t, newTokenModel.Revoked)
}

func TestAuthService_Refresh_ConcurrentRotationHasOneWinner(t *testing.T) {
	env := newIntegrationEnv(t)
	loginRes := env.registerAndLogin(t)

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.svc.Refresh(context.Background(), loginRes.RefreshToken); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestAuthService_LogOut_RevokesRefreshToken(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()
	loginRes := env.registerAndLogin(t)

	claims, err := tokens.RefreshClaimsFromToken(loginRes.RefreshToken, env.svc.RefreshSecret)
	require.NoError(t, err)

	require.NoError(t, env.svc.LogOut(ctx, loginRes.RefreshToken))

	tokenModel, err := env.rp.FindRefreshByJTI(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, tokenModel.Revoked)

	res, err := env.svc.Refresh(ctx, loginRes.RefreshToken)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, service.ErrInvalidRefreshToken)
}
